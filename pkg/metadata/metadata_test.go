package metadata

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xscraper/pkg/models"
)

func TestRunRoundTrip(t *testing.T) {
	spec := models.SearchSpec{Query: "golang", Mode: models.ModeKeyword, Recency: models.RecencyTop}
	m := NewRun(spec, 100)
	_, err := uuid.Parse(m.RunID)
	require.NoError(t, err)

	m.Collected, m.Written, m.Dropped = 100, 90, 10
	m.Finish("completed", nil)
	assert.False(t, m.FinishedAt.Before(m.StartedAt))
	assert.Empty(t, m.Error)

	csvPath := filepath.Join(t.TempDir(), "out.csv")
	assert.False(t, Exists(csvPath))
	require.NoError(t, m.Save(csvPath))
	assert.True(t, Exists(csvPath))

	loaded, err := Load(csvPath)
	require.NoError(t, err)
	assert.Equal(t, m.RunID, loaded.RunID)
	assert.Equal(t, spec, loaded.Search)
	assert.Equal(t, 90, loaded.Written)
	assert.Contains(t, loaded.Summary(), "completed: 100/100 collected")
}

func TestFinishRecordsError(t *testing.T) {
	m := NewRun(models.SearchSpec{Query: "x"}, 1)
	m.Finish("login_failed", errors.New("all accounts failed"))
	assert.Equal(t, "all accounts failed", m.Error)
	assert.Equal(t, "login_failed", m.Outcome)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "none.csv"))
	assert.Error(t, err)
}

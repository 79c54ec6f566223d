package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xscraper/pkg/models"
)

func day(s string) *time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return &t
}

func rec(ts string) models.Record {
	return models.Record{Author: "@a", Timestamp: ts, Text: ts}
}

func TestByDateBoundaries(t *testing.T) {
	recs := []models.Record{
		rec("2024-03-01T00:00:00.000Z"), // first instant of start day
		rec("2024-03-03T23:59:59.999Z"), // last millisecond of end day
		rec("2024-02-29T23:59:59.999Z"), // just before
		rec("2024-03-04T00:00:00.000Z"), // just after
		rec("2024-03-02T12:00:00+02:00"),
	}

	res := ByDate(recs, day("2024-03-01"), day("2024-03-03"))

	require.Len(t, res.Kept, 3)
	assert.Equal(t, recs[0], res.Kept[0])
	assert.Equal(t, recs[1], res.Kept[1])
	assert.Equal(t, recs[4], res.Kept[2])
	assert.Equal(t, 2, res.OutOfRange)
	assert.Empty(t, res.Dropped)
}

func TestByDateOffsetsNormalisedToUTC(t *testing.T) {
	// 01:30 at +02:00 is 23:30 UTC on the previous day
	r := rec("2024-03-01T01:30:00+02:00")
	res := ByDate([]models.Record{r}, day("2024-03-01"), nil)
	assert.Empty(t, res.Kept)
	assert.Equal(t, 1, res.OutOfRange)
}

func TestByDateAcceptsBasicOffset(t *testing.T) {
	recs := []models.Record{
		rec("2024-03-01T10:00:00+0000"),
		rec("2024-03-02T01:30:00.250+0200"), // 23:30 UTC on the 1st
		rec("2024-03-02T23:00:00-0300"),     // 02:00 UTC on the 3rd
	}

	res := ByDate(recs, day("2024-03-01"), day("2024-03-02"))

	assert.Empty(t, res.Dropped)
	require.Len(t, res.Kept, 2)
	assert.Equal(t, recs[0], res.Kept[0])
	assert.Equal(t, recs[1], res.Kept[1])
	assert.Equal(t, 1, res.OutOfRange)
}

func TestByDateSingleBound(t *testing.T) {
	recs := []models.Record{rec("2024-01-01T00:00:00Z"), rec("2024-06-01T00:00:00Z")}

	onlyStart := ByDate(recs, day("2024-03-01"), nil)
	require.Len(t, onlyStart.Kept, 1)
	assert.Equal(t, recs[1], onlyStart.Kept[0])

	onlyEnd := ByDate(recs, nil, day("2024-03-01"))
	require.Len(t, onlyEnd.Kept, 1)
	assert.Equal(t, recs[0], onlyEnd.Kept[0])
}

func TestByDateUnboundedIsIdentity(t *testing.T) {
	recs := []models.Record{rec("garbage"), rec(""), rec("2024-01-01T00:00:00Z")}
	res := ByDate(recs, nil, nil)
	assert.Equal(t, recs, res.Kept)
	assert.Empty(t, res.Dropped)
}

func TestByDateDropsUnparsable(t *testing.T) {
	recs := []models.Record{rec("yesterday"), rec(""), rec("2024-03-01T08:00:00Z")}
	res := ByDate(recs, day("2024-03-01"), day("2024-03-01"))

	require.Len(t, res.Kept, 1)
	require.Len(t, res.Dropped, 2)
	assert.Contains(t, res.Dropped[0].Reason, "unparsable")
	assert.Contains(t, res.Dropped[1].Reason, "missing")
}

func TestNewWindowIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2024, 3, 1, 17, 45, 0, 0, time.UTC)
	w := NewWindow(&start, &start)
	assert.True(t, w.Contains(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, w.Contains(time.Date(2024, 3, 1, 23, 59, 59, 999999999, time.UTC)))
	assert.False(t, w.Contains(time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)))
}

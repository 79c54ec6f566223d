package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xscraper/pkg/config"
	"xscraper/pkg/models"
)

func testConfig() *config.Config {
	return config.DefaultConfig()
}

func resetScrapeFlags() {
	searchMode, recency, count, since, until = "", "", 0, "", ""
	resumeRun, forceRestart = false, false
}

func promptWith(input string) (*prompter, *bytes.Buffer) {
	out := &bytes.Buffer{}
	return newPrompter(strings.NewReader(input), out), out
}

func TestPrompterYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"maybe\nno\n", false},
	}
	for _, tt := range tests {
		t.Run(strings.TrimSpace(tt.input), func(t *testing.T) {
			p, _ := promptWith(tt.input)
			got, err := p.yesNo("Use a proxy?")
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPrompterYesNoGivesUp(t *testing.T) {
	p, _ := promptWith(strings.Repeat("what\n", maxPromptAttempts))
	_, err := p.yesNo("Use a proxy?")
	assert.Error(t, err)
}

func TestPrompterMode(t *testing.T) {
	p, out := promptWith("tags\nmessage\n")
	m, err := p.mode()
	require.NoError(t, err)
	assert.Equal(t, models.ModeKeyword, m)
	assert.Contains(t, out.String(), "Invalid mode")
}

func TestPrompterQueryRejectsEmpty(t *testing.T) {
	p, out := promptWith("\n  golang  \n")
	q, err := p.query(models.ModeHashtag)
	require.NoError(t, err)
	assert.Equal(t, "golang", q)
	assert.Contains(t, out.String(), "Hashtag (without #)")
	assert.Contains(t, out.String(), "cannot be empty")
}

func TestPrompterRecencyDefaultsToLatest(t *testing.T) {
	p, _ := promptWith("\n")
	r, err := p.recency()
	require.NoError(t, err)
	assert.Equal(t, models.RecencyLatest, r)
}

func TestPrompterCount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    int
		warning bool
	}{
		{"number", "250\n", 250, false},
		{"empty uses default", "\n", 100, false},
		{"garbage uses default", "lots\n", 100, true},
		{"negative uses default", "-5\n", 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, out := promptWith(tt.input)
			got, err := p.count(100)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.warning, strings.Contains(out.String(), "Invalid number, using 100."))
		})
	}
}

func TestPrompterDate(t *testing.T) {
	p, out := promptWith("2024/03/01\n2024-03-01\n")
	d, err := p.date("Start date")
	require.NoError(t, err)
	require.NotNil(t, d)
	assert.Equal(t, "2024-03-01", d.Format(models.DateLayout))
	assert.Contains(t, out.String(), "Invalid date format.")

	p, _ = promptWith("\n")
	d, err = p.date("End date")
	require.NoError(t, err)
	assert.Nil(t, d)
}

func TestPrompterEOF(t *testing.T) {
	p, _ := promptWith("")
	_, err := p.ask("anything: ")
	assert.Error(t, err)

	// A final line without a newline still counts.
	p, _ = promptWith("golang")
	answer, err := p.ask("anything: ")
	require.NoError(t, err)
	assert.Equal(t, "golang", answer)
}

func TestResolveRequestFromFlags(t *testing.T) {
	defer resetScrapeFlags()
	searchMode, recency, count, since, until = "user", "top", 30, "2024-01-01", "2024-01-31"

	p, _ := promptWith("")
	req, err := resolveRequest([]string{"gopher"}, testConfig(), p, false)
	require.NoError(t, err)
	assert.Equal(t, models.ModeUser, req.Search.Mode)
	assert.Equal(t, models.RecencyLatest, req.Search.Recency, "user timelines ignore recency")
	assert.Equal(t, "gopher", req.Search.Query)
	assert.Equal(t, 30, req.Target)
	require.NotNil(t, req.Search.StartDate)
	require.NotNil(t, req.Search.EndDate)
}

func TestResolveRequestPromptsInOrder(t *testing.T) {
	defer resetScrapeFlags()

	p, out := promptWith("keyword\ngo generics\ntop\n40\n2024-02-01\n\n")
	req, err := resolveRequest(nil, testConfig(), p, true)
	require.NoError(t, err)
	assert.Equal(t, models.ModeKeyword, req.Search.Mode)
	assert.Equal(t, "go generics", req.Search.Query)
	assert.Equal(t, models.RecencyTop, req.Search.Recency)
	assert.Equal(t, 40, req.Target)
	require.NotNil(t, req.Search.StartDate)
	assert.Nil(t, req.Search.EndDate)

	transcript := out.String()
	assert.Less(t, strings.Index(transcript, "hashtag, user or keyword"), strings.Index(transcript, "Keyword or phrase"))
	assert.Less(t, strings.Index(transcript, "Latest or top"), strings.Index(transcript, "How many posts"))
}

func TestResolveRequestNonInteractive(t *testing.T) {
	defer resetScrapeFlags()

	p, _ := promptWith("")
	_, err := resolveRequest(nil, testConfig(), p, false)
	assert.Error(t, err, "query is required")

	req, err := resolveRequest([]string{"golang"}, testConfig(), p, false)
	require.NoError(t, err)
	assert.Equal(t, models.ModeHashtag, req.Search.Mode)
	assert.Equal(t, models.RecencyLatest, req.Search.Recency)
	assert.Equal(t, 100, req.Target)
}

func TestResolveRequestRejectsReversedRange(t *testing.T) {
	defer resetScrapeFlags()
	since, until = "2024-03-10", "2024-03-01"

	p, _ := promptWith("")
	_, err := resolveRequest([]string{"golang"}, testConfig(), p, false)
	assert.Error(t, err)
}

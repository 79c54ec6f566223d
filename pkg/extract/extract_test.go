package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"xscraper/pkg/models"
)

const fullItem = `
<article data-testid="tweet">
  <div data-testid="User-Name">
    <a role="link" href="/gopher"><span>Gopher</span></a>
    <a role="link" href="/gopher"><span>@gopher</span></a>
  </div>
  <a href="/gopher/status/1"><time datetime="2024-03-01T10:15:00.000Z">Mar 1</time></a>
  <div data-testid="tweetText">
    Hello
      world   from	#golang
  </div>
</article>`

func mustItem(t *testing.T, html string) *HTMLItem {
	t.Helper()
	item, err := NewHTMLItem(html)
	require.NoError(t, err)
	return item
}

func TestExtractFullItem(t *testing.T) {
	rec, ok := Extract(mustItem(t, fullItem))
	require.True(t, ok)

	assert.Equal(t, "@gopher", rec.Author)
	assert.Equal(t, "2024-03-01T10:15:00.000Z", rec.Timestamp)
	assert.Equal(t, "Hello world from #golang", rec.Text)
}

func TestExtractPrefersStatusLinkHandle(t *testing.T) {
	html := `<article>
  <a href="/x/status/9"><div dir="ltr"><span>@first</span></div></a>
  <div data-testid="User-Name"><a role="link"><span>@second</span></a></div>
  <time datetime="2024-03-01T00:00:00Z"></time>
  <div data-testid="tweetText">t</div>
</article>`

	rec, ok := Extract(mustItem(t, html))
	require.True(t, ok)
	assert.Equal(t, "@first", rec.Author)
}

func TestExtractAnonymousAuthor(t *testing.T) {
	html := `<article>
  <div data-testid="User-Name"><a role="link"><span>No Handle Here</span></a></div>
  <time datetime="2024-03-01T00:00:00Z"></time>
  <div data-testid="tweetText">anonymous</div>
</article>`

	rec, ok := Extract(mustItem(t, html))
	require.True(t, ok)
	assert.Equal(t, models.AnonymousAuthor, rec.Author)
	assert.Equal(t, "unknown_user_2024-03-01T00:00:00Z", rec.Key())
}

func TestExtractMalformedItems(t *testing.T) {
	tests := []struct {
		name string
		html string
	}{
		{"missing timestamp", `<article><div data-testid="tweetText">no time</div></article>`},
		{"empty datetime", `<article><time datetime=""></time><div data-testid="tweetText">x</div></article>`},
		{"time without attribute", `<article><time>Mar 1</time><div data-testid="tweetText">x</div></article>`},
		{"missing text", `<article><time datetime="2024-03-01T00:00:00Z"></time></article>`},
		{"empty fragment", ``},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotPanics(t, func() {
				_, ok := Extract(mustItem(t, tt.html))
				assert.False(t, ok)
			})
		})
	}
}

func TestExtractNilItem(t *testing.T) {
	_, ok := Extract(nil)
	assert.False(t, ok)
}

func TestExtractEmptyTextNodeIsKept(t *testing.T) {
	html := `<article><time datetime="2024-03-01T00:00:00Z"></time><div data-testid="tweetText">   </div></article>`
	rec, ok := Extract(mustItem(t, html))
	require.True(t, ok)
	assert.Equal(t, "", rec.Text)
}

func TestExtractSkipsPlaceholder(t *testing.T) {
	_, ok := Extract(mustItem(t, `<article data-testid="tweet"><span>promo</span></article>`))
	assert.False(t, ok, "promoted placeholder has no timestamp")
}

func TestCollapseWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", CollapseWhitespace("  a\n\tb   c \r\n"))
	assert.Equal(t, "", CollapseWhitespace(" \n "))
}

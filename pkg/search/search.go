// Package search builds search-page URLs from a SearchSpec.
package search

import (
	"net/url"
	"strings"

	"xscraper/pkg/models"
)

// DefaultBaseURL is the search endpoint the query string is appended to.
const DefaultBaseURL = "https://twitter.com/search?q="

// BuildURL returns the live or top search URL for spec. The end date is
// made inclusive by asking for results until the following day.
func BuildURL(base string, spec models.SearchSpec) string {
	if base == "" {
		base = DefaultBaseURL
	}

	parts := []string{operator(spec.Mode, spec.Query)}
	if spec.StartDate != nil {
		parts = append(parts, "since%3A"+spec.StartDate.Format(models.DateLayout))
	}
	if spec.EndDate != nil {
		parts = append(parts, "until%3A"+spec.EndDate.AddDate(0, 0, 1).Format(models.DateLayout))
	}

	u := base + strings.Join(parts, "%20") + "&src=typed_query"
	if spec.Recency != models.RecencyTop {
		u += "&f=live"
	}
	return u
}

func operator(mode models.Mode, query string) string {
	q := strings.TrimSpace(query)
	switch mode {
	case models.ModeHashtag:
		return "%23" + escape(strings.TrimPrefix(q, "#"))
	case models.ModeUser:
		return "from%3A" + escape(strings.TrimPrefix(q, "@"))
	default:
		return escape(q)
	}
}

// escape percent-encodes s with spaces as %20.
func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

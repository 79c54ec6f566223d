// Package extract turns one rendered post into a models.Record.
//
// Extraction never fails loudly: a missing timestamp or text node means
// the item is not a usable post (ads, placeholders, half-rendered nodes)
// and is skipped.
package extract

import (
	"strings"

	"xscraper/pkg/models"
)

// Extract reads author, timestamp and text from item. The second return
// is false when the timestamp or text node is absent.
func Extract(item Item) (models.Record, bool) {
	if item == nil {
		return models.Record{}, false
	}

	ts, ok := item.Attr(TimeSelector, TimeAttr)
	ts = strings.TrimSpace(ts)
	if !ok || ts == "" {
		return models.Record{}, false
	}

	raw, ok := item.Text(TextSelector)
	if !ok {
		return models.Record{}, false
	}

	return models.Record{
		Author:    findHandle(item),
		Timestamp: ts,
		Text:      CollapseWhitespace(raw),
	}, true
}

func findHandle(item Item) string {
	for _, sel := range HandleSelectors {
		for _, candidate := range item.Texts(sel) {
			candidate = strings.TrimSpace(candidate)
			if strings.HasPrefix(candidate, "@") {
				return candidate
			}
		}
	}
	return models.AnonymousAuthor
}

// CollapseWhitespace replaces every run of whitespace with one space and trims the ends.
func CollapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

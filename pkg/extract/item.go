package extract

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Item is a handle to one rendered post. Lookups are scoped to the item.
type Item interface {
	// Attr returns the attribute of the first node matching selector.
	Attr(selector, name string) (string, bool)
	// Text returns the text of the first node matching selector.
	Text(selector string) (string, bool)
	// Texts returns the text of every node matching selector, in document order.
	Texts(selector string) []string
}

// HTMLItem is an Item backed by a parsed HTML fragment.
type HTMLItem struct {
	sel *goquery.Selection
}

// NewHTMLItem parses the outer HTML of a rendered item.
func NewHTMLItem(html string) (*HTMLItem, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse item html: %w", err)
	}
	return &HTMLItem{sel: doc.Selection}, nil
}

func (h *HTMLItem) Attr(selector, name string) (string, bool) {
	node := h.sel.Find(selector).First()
	if node.Length() == 0 {
		return "", false
	}
	return node.Attr(name)
}

func (h *HTMLItem) Text(selector string) (string, bool) {
	node := h.sel.Find(selector).First()
	if node.Length() == 0 {
		return "", false
	}
	return node.Text(), true
}

func (h *HTMLItem) Texts(selector string) []string {
	var out []string
	h.sel.Find(selector).Each(func(_ int, s *goquery.Selection) {
		out = append(out, s.Text())
	})
	return out
}

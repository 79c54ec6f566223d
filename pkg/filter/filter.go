// Package filter narrows records to an inclusive calendar-date window.
package filter

import (
	"fmt"
	"strings"
	"time"

	"xscraper/pkg/models"
)

// Drop is a record the filter could not evaluate.
type Drop struct {
	Record models.Record
	Reason string
}

// Result holds the kept records in input order and the dropped ones.
type Result struct {
	Kept    []models.Record
	Dropped []Drop
	// OutOfRange counts records that parsed but fell outside the window.
	OutOfRange int
}

// Window is an inclusive UTC instant range derived from calendar dates.
type Window struct {
	From *time.Time
	To   *time.Time
}

// NewWindow expands start to 00:00:00 UTC and end to the last nanosecond
// of its day. Only the calendar date of each bound is used.
func NewWindow(start, end *time.Time) Window {
	var w Window
	if start != nil {
		y, m, d := start.Date()
		from := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
		w.From = &from
	}
	if end != nil {
		y, m, d := end.Date()
		to := time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
		w.To = &to
	}
	return w
}

// Contains reports whether t lies inside the window.
func (w Window) Contains(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && t.After(*w.To) {
		return false
	}
	return true
}

// Unbounded reports whether neither bound is set.
func (w Window) Unbounded() bool {
	return w.From == nil && w.To == nil
}

// ByDate keeps records whose timestamp falls within [start, end] by
// calendar date. With both bounds nil every record is kept unchanged.
// Records with a missing or unparsable timestamp are dropped and reported.
func ByDate(recs []models.Record, start, end *time.Time) Result {
	w := NewWindow(start, end)
	if w.Unbounded() {
		kept := make([]models.Record, len(recs))
		copy(kept, recs)
		return Result{Kept: kept}
	}

	res := Result{Kept: make([]models.Record, 0, len(recs))}
	for _, r := range recs {
		ts, err := ParseTimestamp(r.Timestamp)
		if err != nil {
			res.Dropped = append(res.Dropped, Drop{Record: r, Reason: err.Error()})
			continue
		}
		if w.Contains(ts) {
			res.Kept = append(res.Kept, r)
		} else {
			res.OutOfRange++
		}
	}
	return res
}

// timestampLayouts are tried in order. The second accepts offsets written
// without a colon, e.g. +0000.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
}

// ParseTimestamp parses an ISO-8601 instant with a Z suffix or numeric offset.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q", s)
}

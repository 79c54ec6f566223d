package models

import (
	"fmt"
	"strings"
	"time"
)

// AnonymousAuthor is recorded when no handle can be found on an item.
// Records sharing it and a timestamp collapse to one identity.
const AnonymousAuthor = "unknown_user"

// Record is one extracted post.
type Record struct {
	Author    string `json:"author"`
	Timestamp string `json:"timestamp"`
	Text      string `json:"text"`
}

// Key returns the identity key used for deduplication.
func (r Record) Key() string {
	return r.Author + "_" + r.Timestamp
}

// Mode selects how the query is interpreted.
type Mode string

const (
	ModeHashtag Mode = "hashtag"
	ModeUser    Mode = "user"
	ModeKeyword Mode = "keyword"
)

// ParseMode accepts the three modes plus "message" as an alias for keyword.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hashtag":
		return ModeHashtag, nil
	case "user":
		return ModeUser, nil
	case "keyword", "message":
		return ModeKeyword, nil
	}
	return "", fmt.Errorf("unknown search mode %q (want hashtag, user or keyword)", s)
}

// Recency selects the result ordering.
type Recency string

const (
	RecencyLatest Recency = "latest"
	RecencyTop    Recency = "top"
)

// ParseRecency parses "latest" or "top".
func ParseRecency(s string) (Recency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "latest", "":
		return RecencyLatest, nil
	case "top":
		return RecencyTop, nil
	}
	return "", fmt.Errorf("unknown recency %q (want latest or top)", s)
}

// SearchSpec describes what to retrieve.
type SearchSpec struct {
	Query     string     `json:"query"`
	Mode      Mode       `json:"mode"`
	Recency   Recency    `json:"recency"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}

// Validate checks the search is usable.
func (s SearchSpec) Validate() error {
	if strings.TrimSpace(s.Query) == "" {
		return fmt.Errorf("query cannot be empty")
	}
	switch s.Mode {
	case ModeHashtag, ModeUser, ModeKeyword:
	default:
		return fmt.Errorf("unknown search mode %q", s.Mode)
	}
	switch s.Recency {
	case RecencyLatest, RecencyTop:
	default:
		return fmt.Errorf("unknown recency %q", s.Recency)
	}
	if s.StartDate != nil && s.EndDate != nil && s.EndDate.Before(*s.StartDate) {
		return fmt.Errorf("end date %s is before start date %s",
			s.EndDate.Format(DateLayout), s.StartDate.Format(DateLayout))
	}
	return nil
}

// DateLayout is the calendar date format used for CLI input and search operators.
const DateLayout = "2006-01-02"

// ParseDate parses an optional YYYY-MM-DD date. Empty input yields nil.
func ParseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return &t, nil
}

// CollectionState is the mutable state of one engine run.
type CollectionState struct {
	Records           []Record
	SeenKeys          map[string]struct{}
	TargetCount       int
	ConsecutiveStalls int
	LastSignature     int
}

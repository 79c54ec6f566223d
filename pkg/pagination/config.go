package pagination

import (
	"fmt"
	"time"

	"xscraper/pkg/config"
	"xscraper/pkg/extract"
)

// Config tunes the engine. Zero values are replaced by DefaultConfig values
// in New.
type Config struct {
	ItemSelector     string
	TargetCount      int
	InitialWait      time.Duration
	ScrollPauseMin   time.Duration
	ScrollPauseMax   time.Duration
	StallPauseFactor float64
	StallThreshold   int
	LongPauseMin     time.Duration
	LongPauseMax     time.Duration
	// MaxAdapterFailures ends the run once this many consecutive passes
	// saw every adapter call fail. Zero disables the check.
	MaxAdapterFailures int
}

// DefaultConfig returns the standard pacing.
func DefaultConfig() Config {
	return Config{
		ItemSelector:       extract.ItemSelector,
		TargetCount:        100,
		InitialWait:        15 * time.Second,
		ScrollPauseMin:     3 * time.Second,
		ScrollPauseMax:     6 * time.Second,
		StallPauseFactor:   1.5,
		StallThreshold:     5,
		LongPauseMin:       300 * time.Second,
		LongPauseMax:       720 * time.Second,
		MaxAdapterFailures: 10,
	}
}

// FromConfig maps the pagination config section onto engine settings.
func FromConfig(pc config.PaginationConfig, target int) Config {
	c := DefaultConfig()
	c.TargetCount = target
	if pc.ItemSelector != "" {
		c.ItemSelector = pc.ItemSelector
	}
	if pc.InitialWait > 0 {
		c.InitialWait = pc.InitialWait
	}
	c.ScrollPauseMin, c.ScrollPauseMax = pc.ScrollPauseMin, pc.ScrollPauseMax
	if pc.StallPauseFactor > 0 {
		c.StallPauseFactor = pc.StallPauseFactor
	}
	if pc.StallThreshold > 0 {
		c.StallThreshold = pc.StallThreshold
	}
	c.LongPauseMin, c.LongPauseMax = pc.LongPauseMin, pc.LongPauseMax
	return c
}

// Validate rejects settings the engine cannot run with.
func (c Config) Validate() error {
	switch {
	case c.TargetCount <= 0:
		return fmt.Errorf("target count must be positive, got %d", c.TargetCount)
	case c.ItemSelector == "":
		return fmt.Errorf("item selector is required")
	case c.StallThreshold <= 0:
		return fmt.Errorf("stall threshold must be positive")
	case c.ScrollPauseMax < c.ScrollPauseMin || c.ScrollPauseMin < 0:
		return fmt.Errorf("invalid scroll pause range %v-%v", c.ScrollPauseMin, c.ScrollPauseMax)
	case c.LongPauseMax < c.LongPauseMin || c.LongPauseMin < 0:
		return fmt.Errorf("invalid long pause range %v-%v", c.LongPauseMin, c.LongPauseMax)
	}
	return nil
}

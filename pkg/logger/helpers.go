package logger

import (
	"fmt"
	"time"
)

// LogPass records the outcome of one engine scan pass.
func LogPass(l Logger, pass, newItems, collected, target int) {
	l.DebugWithFields("Scan pass complete", Fields{
		"pass":      pass,
		"new":       newItems,
		"collected": collected,
		"target":    target,
	})
}

// LogStall records a pass that neither added items nor grew the page.
func LogStall(l Logger, consecutive, threshold int, pause time.Duration) {
	l.WarnWithFields("No progress after scroll", Fields{
		"consecutive_stalls": consecutive,
		"threshold":          threshold,
		"pause":              pause,
	})
}

// LogLongPause records entry into the rate-limit cool-down.
func LogLongPause(l Logger, pause time.Duration, collected int) {
	l.WarnWithFields("Possible rate limit, entering long pause", Fields{
		"pause":     pause,
		"resume_at": time.Now().Add(pause).Format("15:04:05"),
		"collected": collected,
	})
}

// LogDroppedRecord reports a record the date filter could not evaluate.
func LogDroppedRecord(l Logger, author, timestamp, reason string) {
	l.WarnWithFields("Skipping record", Fields{
		"author":    author,
		"timestamp": timestamp,
		"reason":    reason,
	})
}

// LogScrapeProgress records how far a run got toward its target.
func LogScrapeProgress(l Logger, collected, target int) {
	percentage := 0.0
	if target > 0 {
		percentage = float64(collected) / float64(target) * 100
	}
	l.InfoWithFields("Scraping progress", Fields{
		"collected":  collected,
		"target":     target,
		"percentage": fmt.Sprintf("%.1f%%", percentage),
	})
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, settings Fields) {
	l := GetLogger().WithField("component", component)
	if len(settings) > 0 {
		l = l.WithFields(settings)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(Fields{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a logger that discards everything.
func NewNopLogger() Logger {
	return nopLogger{}
}

type nopLogger struct{}

func (nopLogger) Debug(string)                           {}
func (nopLogger) Info(string)                            {}
func (nopLogger) Warn(string)                            {}
func (nopLogger) Error(string)                           {}
func (n nopLogger) WithField(string, interface{}) Logger { return n }
func (n nopLogger) WithFields(Fields) Logger             { return n }
func (n nopLogger) WithError(error) Logger               { return n }
func (nopLogger) DebugWithFields(string, Fields)         {}
func (nopLogger) InfoWithFields(string, Fields)          {}
func (nopLogger) WarnWithFields(string, Fields)          {}
func (nopLogger) ErrorWithFields(string, Fields)         {}

package ui

import "xscraper/pkg/pagination"

// TUI is an interface for full-screen terminal interfaces. It receives
// engine progress as an observer plus free-form log lines.
type TUI interface {
	pagination.Observer
	SetSearch(query, mode string, target int)
	SetPhase(phase string)
	LogInfo(format string, args ...interface{})
	LogSuccess(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})
	Finish(summary string)
}

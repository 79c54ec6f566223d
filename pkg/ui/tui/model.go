package tui

import (
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"xscraper/pkg/pagination"
)

// Model represents the TUI model
type Model struct {
	spinner     spinner.Model
	progressBar progress.Model

	// Search
	query  string
	mode   string
	target int
	phase  string

	// Engine progress
	state       pagination.State
	passes      int
	lastFound   int
	lastNew     int
	collected   int
	stalls      int
	consecutive int
	threshold   int
	longPauses  int
	pauseUntil  time.Time
	passHistory []int

	sessionStartTime time.Time
	done             bool
	summary          string

	// UI state
	width          int
	height         int
	showHelp       bool
	logMessages    []LogMessage
	maxLogMessages int

	mu sync.RWMutex
}

// LogMessage represents a log entry
type LogMessage struct {
	Time    time.Time
	Level   string
	Message string
	Color   lipgloss.Color
}

// NewModel creates a new TUI model
func NewModel() Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(neonCyan)

	p := progress.New(progress.WithDefaultGradient())
	p.Width = 40

	return Model{
		spinner:          s,
		progressBar:      p,
		phase:            "Starting",
		sessionStartTime: time.Now(),
		maxLogMessages:   50,
	}
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// SetSearch records what is being collected.
func (m *Model) SetSearch(query, mode string, target int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.query, m.mode, m.target = query, mode, target
}

// SetPhase records the orchestrator phase, e.g. logging in or scraping.
func (m *Model) SetPhase(phase string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phase = phase
}

// SetState records an engine state transition.
func (m *Model) SetState(state pagination.State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	if state != pagination.StateLongPause {
		m.pauseUntil = time.Time{}
	}
}

// RecordPass applies one pass of engine statistics.
func (m *Model) RecordPass(stats pagination.PassStats) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.passes = stats.Pass
	m.lastFound = stats.Found
	m.lastNew = stats.New
	m.collected = stats.Collected
	if stats.Target > 0 {
		m.target = stats.Target
	}
	if stats.New > 0 {
		m.consecutive = 0
	}
	m.passHistory = append(m.passHistory, stats.New)
	if len(m.passHistory) > 30 {
		m.passHistory = m.passHistory[len(m.passHistory)-30:]
	}
}

// RecordStall applies a stall event.
func (m *Model) RecordStall(consecutive, threshold int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stalls++
	m.consecutive = consecutive
	m.threshold = threshold
}

// RecordLongPause applies a long pause event.
func (m *Model) RecordLongPause(pause time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.longPauses++
	m.consecutive = 0
	m.pauseUntil = time.Now().Add(pause)
}

// Finish marks the run as over.
func (m *Model) Finish(summary string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.done = true
	m.summary = summary
}

// Progress returns the completed fraction in [0, 1].
func (m *Model) Progress() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.target <= 0 {
		return 0
	}
	p := float64(m.collected) / float64(m.target)
	if p > 1 {
		p = 1
	}
	return p
}

// Rate returns collected posts per minute since the session started.
func (m *Model) Rate() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	minutes := time.Since(m.sessionStartTime).Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(m.collected) / minutes
}

// AddLogMessage adds a log message
func (m *Model) AddLogMessage(level, message string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	color := dimWhite
	switch level {
	case "ERROR":
		color = alertRed
	case "WARN":
		color = neonOrange
	case "SUCCESS":
		color = neonGreen
	case "INFO":
		color = neonCyan
	}

	m.logMessages = append(m.logMessages, LogMessage{
		Time:    time.Now(),
		Level:   level,
		Message: message,
		Color:   color,
	})

	if len(m.logMessages) > m.maxLogMessages {
		m.logMessages = m.logMessages[len(m.logMessages)-m.maxLogMessages:]
	}
}

package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"xscraper/pkg/pagination"
)

// SearchMsg announces the search being run.
type SearchMsg struct {
	Query  string
	Mode   string
	Target int
}

// PhaseMsg changes the phase line.
type PhaseMsg struct{ Phase string }

// StateMsg carries an engine state transition.
type StateMsg struct{ From, To pagination.State }

// PassMsg carries one pass of engine statistics.
type PassMsg struct{ Stats pagination.PassStats }

// StallMsg is sent when a pass found nothing new on an unchanged page.
type StallMsg struct {
	Consecutive int
	Threshold   int
	Pause       time.Duration
}

// LongPauseMsg is sent when the engine backs off after repeated stalls.
type LongPauseMsg struct {
	Pause     time.Duration
	Collected int
}

// LogMsg is sent to add a log message
type LogMsg struct {
	Level   string
	Message string
}

// DoneMsg ends the run; the view keeps showing the summary until quit.
type DoneMsg struct{ Summary string }

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// Update handles all messages and updates the model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		return m, tea.Batch(tickCmd(), m.spinner.Tick)

	case SearchMsg:
		m.SetSearch(msg.Query, msg.Mode, msg.Target)
		m.AddLogMessage("INFO", fmt.Sprintf("Searching %s %q for %d posts", msg.Mode, msg.Query, msg.Target))
		return m, nil

	case PhaseMsg:
		m.SetPhase(msg.Phase)
		return m, nil

	case StateMsg:
		m.SetState(msg.To)
		return m, nil

	case PassMsg:
		m.RecordPass(msg.Stats)
		return m, nil

	case StallMsg:
		m.RecordStall(msg.Consecutive, msg.Threshold)
		m.AddLogMessage("WARN", fmt.Sprintf("No new posts (%d/%d), waiting %s",
			msg.Consecutive, msg.Threshold, msg.Pause.Round(time.Second)))
		return m, nil

	case LongPauseMsg:
		m.RecordLongPause(msg.Pause)
		m.AddLogMessage("WARN", fmt.Sprintf("Possible rate limit at %d posts, pausing %s",
			msg.Collected, msg.Pause.Round(time.Second)))
		return m, nil

	case LogMsg:
		m.AddLogMessage(msg.Level, msg.Message)
		return m, nil

	case DoneMsg:
		m.Finish(msg.Summary)
		m.AddLogMessage("SUCCESS", msg.Summary)
		return m, nil
	}

	return m, nil
}

func (m *Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "Q", "ctrl+c":
		return m, tea.Quit

	case "?":
		m.showHelp = !m.showHelp
		return m, nil

	case "ctrl+l":
		m.mu.Lock()
		m.logMessages = []LogMessage{}
		m.mu.Unlock()
		return m, nil
	}

	return m, nil
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

package tui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"xscraper/pkg/pagination"
	"xscraper/pkg/ui"
)

// TUI represents the terminal user interface
type TUI struct {
	program *tea.Program
	model   *Model
}

var _ ui.TUI = (*TUI)(nil)

// NewTUI creates a new TUI instance
func NewTUI() *TUI {
	model := NewModel()
	program := tea.NewProgram(&model, tea.WithAltScreen())

	return &TUI{
		program: program,
		model:   &model,
	}
}

// Start runs the program until the user quits. It blocks.
func (t *TUI) Start() error {
	go func() {
		time.Sleep(100 * time.Millisecond)
		t.program.Send(TickMsg(time.Now()))
	}()

	_, err := t.program.Run()
	return err
}

// Stop stops the TUI gracefully
func (t *TUI) Stop() {
	t.program.Quit()
}

// Send sends a message to the TUI
func (t *TUI) Send(msg tea.Msg) {
	if t.program != nil {
		t.program.Send(msg)
	}
}

func (t *TUI) SetSearch(query, mode string, target int) {
	t.Send(SearchMsg{Query: query, Mode: mode, Target: target})
}

func (t *TUI) SetPhase(phase string) {
	t.Send(PhaseMsg{Phase: phase})
}

func (t *TUI) OnStateChange(from, to pagination.State) {
	t.Send(StateMsg{From: from, To: to})
}

func (t *TUI) OnPass(stats pagination.PassStats) {
	t.Send(PassMsg{Stats: stats})
}

func (t *TUI) OnStall(consecutive, threshold int, pause time.Duration) {
	t.Send(StallMsg{Consecutive: consecutive, Threshold: threshold, Pause: pause})
}

func (t *TUI) OnLongPause(pause time.Duration, collected int) {
	t.Send(LongPauseMsg{Pause: pause, Collected: collected})
}

// Log sends a log message to the TUI
func (t *TUI) Log(level, format string, args ...interface{}) {
	t.Send(LogMsg{Level: level, Message: fmt.Sprintf(format, args...)})
}

// LogInfo logs an info message
func (t *TUI) LogInfo(format string, args ...interface{}) {
	t.Log("INFO", format, args...)
}

// LogSuccess logs a success message
func (t *TUI) LogSuccess(format string, args ...interface{}) {
	t.Log("SUCCESS", format, args...)
}

// LogWarning logs a warning message
func (t *TUI) LogWarning(format string, args ...interface{}) {
	t.Log("WARN", format, args...)
}

// LogError logs an error message
func (t *TUI) LogError(format string, args ...interface{}) {
	t.Log("ERROR", format, args...)
}

func (t *TUI) Finish(summary string) {
	t.Send(DoneMsg{Summary: summary})
}

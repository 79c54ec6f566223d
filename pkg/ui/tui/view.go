package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the entire TUI
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	var sections []string
	sections = append(sections, m.renderLogo())

	width := (m.width - 4) / 2
	left := lipgloss.JoinVertical(lipgloss.Left,
		m.renderSearchPanel(width),
		m.renderProgressPanel(width),
	)
	right := lipgloss.JoinVertical(lipgloss.Left,
		m.renderEnginePanel(width),
		m.renderLogsPanel(width),
	)
	sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, left, "  ", right))

	if m.showHelp {
		sections = append(sections, m.renderHelp())
	} else {
		sections = append(sections, helpStyle.Render("Press ? for help, q to quit"))
	}

	return baseStyle.Width(m.width).Height(m.height).Render(
		lipgloss.JoinVertical(lipgloss.Left, sections...),
	)
}

func (m *Model) renderLogo() string {
	logo := `
╔═══════════════════════════════════════════════════════╗
║  ██╗  ██╗███████╗ ██████╗██████╗  █████╗ ██████╗ ███████╗ ║
║  ╚██╗██╔╝██╔════╝██╔════╝██╔══██╗██╔══██╗██╔══██╗██╔════╝ ║
║   ╚███╔╝ ███████╗██║     ██████╔╝███████║██████╔╝█████╗   ║
║   ██╔██╗ ╚════██║██║     ██╔══██╗██╔══██║██╔═══╝ ██╔══╝   ║
║  ██╔╝ ██╗███████║╚██████╗██║  ██║██║  ██║██║     ███████╗ ║
║  ╚═╝  ╚═╝╚══════╝ ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚═╝     ╚══════╝ ║
║           TIMELINE EXTRACTION UTILITY                     ║
╚═══════════════════════════════════════════════════════╝`

	return logoStyle.Width(m.width).Render(logo)
}

func (m *Model) renderSearchPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" SEARCH ")
	phase := m.spinner.View() + " " + statsValueStyle.Render(m.phase)
	if m.done {
		phase = successStyle.Render("✓ " + m.phase)
	}

	lines := []string{
		title,
		"",
		label("Query:", m.query),
		label("Mode:", m.mode),
		label("Target:", fmt.Sprintf("%d posts", m.target)),
		fmt.Sprintf("%s %s", statsLabelStyle.Render("Phase:"), phase),
	}
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderProgressPanel(width int) string {
	pct := m.Progress()
	rate := m.Rate()

	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" COLLECTION ")
	elapsed := time.Since(m.sessionStartTime)

	eta := "--:--"
	if rate > 0 && m.target > m.collected {
		remaining := float64(m.target-m.collected) / rate
		eta = formatDuration(time.Duration(remaining * float64(time.Minute)))
	}

	lines := []string{
		title,
		"",
		m.progressBar.ViewAs(pct),
		"",
		label("Collected:", fmt.Sprintf("%d/%d (%.0f%%)", m.collected, m.target, pct*100)),
		label("Rate:", fmt.Sprintf("%.1f posts/min", rate)),
		label("Elapsed:", formatDuration(elapsed)),
		label("ETA:", eta),
		label("New per pass:", sparkStyle.Render(sparkline(m.passHistory))),
	}
	if m.done && m.summary != "" {
		lines = append(lines, "", successStyle.Render(m.summary))
	}
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderEnginePanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" ENGINE ")
	lines := []string{
		title,
		"",
		fmt.Sprintf("%s %s", statsLabelStyle.Render("State:"), StateStyle(m.state).Render(m.state.String())),
		label("Passes:", fmt.Sprintf("%d", m.passes)),
		label("Last pass:", fmt.Sprintf("%d found, %d new", m.lastFound, m.lastNew)),
		label("Stalls:", fmt.Sprintf("%d total, %d/%d in a row", m.stalls, m.consecutive, m.threshold)),
		label("Long pauses:", fmt.Sprintf("%d", m.longPauses)),
	}
	if !m.pauseUntil.IsZero() {
		left := time.Until(m.pauseUntil)
		if left > 0 {
			lines = append(lines, warningStyle.Render("⏸  Cooling down, resuming in "+formatDuration(left)))
		}
	}
	return panelStyle.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (m *Model) renderLogsPanel(width int) string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	title := titleStyle.Render(" LOGS ")

	start := len(m.logMessages) - 10
	if start < 0 {
		start = 0
	}

	maxMsgLen := width - 25
	if maxMsgLen < 10 {
		maxMsgLen = 10
	}

	var logs []string
	for _, log := range m.logMessages[start:] {
		msg := log.Message
		if len(msg) > maxMsgLen {
			msg = msg[:maxMsgLen-3] + "..."
		}
		timestamp := logTimestampStyle.Render(log.Time.Format("15:04:05"))
		level := lipgloss.NewStyle().Foreground(log.Color).Bold(true).Render(fmt.Sprintf("[%-7s]", log.Level))
		logs = append(logs, fmt.Sprintf("%s %s %s", timestamp, level, logMessageStyle.Render(msg)))
	}

	content := strings.Join(logs, "\n")
	if content == "" {
		content = lipgloss.NewStyle().Foreground(dimWhite).Render("No logs yet...")
	}

	logsHeight := m.height - 30
	if logsHeight < 5 {
		logsHeight = 5
	}

	return panelStyle.Width(width).Height(logsHeight).Render(
		lipgloss.JoinVertical(lipgloss.Left, title, content),
	)
}

func (m *Model) renderHelp() string {
	help := `
  Keys:
    q/Q      - Quit (stops the scrape and writes what was collected)
    ctrl+l   - Clear logs
    ?        - Toggle this help

  Engine states:
    ` + successStyle.Render("DONE") + `         - Target reached
    ` + warningStyle.Render("STALLED") + `      - No new posts on an unchanged page
    ` + errorStyle.Render("LONG_PAUSE") + `   - Backing off after repeated stalls
`

	return panelStyle.Width(m.width).Render(help)
}

func label(name, value string) string {
	return fmt.Sprintf("%s %s", statsLabelStyle.Render(name), statsValueStyle.Render(value))
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// sparkline renders per-pass counts as a row of block characters.
func sparkline(values []int) string {
	if len(values) == 0 {
		return ""
	}
	max := 0
	for _, v := range values {
		if v > max {
			max = v
		}
	}
	var b strings.Builder
	for _, v := range values {
		idx := 0
		if max > 0 {
			idx = v * (len(sparkLevels) - 1) / max
		}
		b.WriteRune(sparkLevels[idx])
	}
	return b.String()
}

// formatDuration formats a duration in a human-readable way
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "00:00"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

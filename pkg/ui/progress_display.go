package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"xscraper/pkg/pagination"
)

// ProgressDisplay prints a single updating progress line for a scrape.
// It is registered on the engine as an observer.
type ProgressDisplay struct {
	pagination.BaseObserver

	mu         sync.Mutex
	out        io.Writer
	query      string
	target     int
	collected  int
	startCount int
	passes     int
	stalls     int
	longPauses int
	state      pagination.State
	startTime  time.Time
	isDebug    bool
}

// NewProgressDisplay creates a display writing to stdout.
func NewProgressDisplay(query string, target int, debug bool) *ProgressDisplay {
	return NewProgressDisplayTo(os.Stdout, query, target, debug)
}

// NewProgressDisplayTo creates a display writing to out.
func NewProgressDisplayTo(out io.Writer, query string, target int, debug bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:       out,
		query:     query,
		target:    target,
		startTime: time.Now(),
		isDebug:   debug,
	}
}

// SetCollectedCount sets the initial count when resuming.
func (p *ProgressDisplay) SetCollectedCount(count int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.collected = count
	p.startCount = count
}

func (p *ProgressDisplay) OnStateChange(_, to pagination.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = to
}

func (p *ProgressDisplay) OnPass(stats pagination.PassStats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.passes = stats.Pass
	p.collected = stats.Collected
	if stats.Target > 0 {
		p.target = stats.Target
	}
	if p.isDebug {
		fmt.Fprintf(p.out, "\n%s pass %d: %d found, %d new\n", Magenta("→"), stats.Pass, stats.Found, stats.New)
		return
	}
	p.printProgress()
}

func (p *ProgressDisplay) OnStall(consecutive, threshold int, pause time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stalls++
	if p.isDebug {
		fmt.Fprintf(p.out, "\n%s No new posts (%d/%d), waiting %s\n",
			Yellow("…"), consecutive, threshold, formatDuration(pause))
		return
	}
	p.printProgress()
}

func (p *ProgressDisplay) OnLongPause(pause time.Duration, collected int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.longPauses++
	fmt.Fprintf(p.out, "\n%s Possible rate limit at %d posts. Pausing %s...\n",
		Yellow("⚠"), collected, formatDuration(pause))
}

func (p *ProgressDisplay) printProgress() {
	eta := p.calculateETA()

	barWidth := 20
	filled := 0
	if p.target > 0 {
		filled = p.collected * barWidth / p.target
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("━", filled) + strings.Repeat("─", barWidth-filled)

	line := fmt.Sprintf("\r%s [%s] %d/%d • %.1f/min • pass %d • %s",
		Cyan(p.query),
		bar,
		p.collected,
		p.target,
		p.rate(),
		p.passes,
		eta,
	)
	if p.stalls > 0 {
		line += " • " + Yellow(fmt.Sprintf("%d stalls", p.stalls))
	}

	fmt.Fprintf(p.out, "\r%s\r%s", strings.Repeat(" ", 120), line)
}

func (p *ProgressDisplay) rate() float64 {
	minutes := time.Since(p.startTime).Minutes()
	if minutes <= 0 {
		return 0
	}
	return float64(p.collected-p.startCount) / minutes
}

// Complete prints the final summary.
func (p *ProgressDisplay) Complete(written, dropped int, path string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.startTime)
	fmt.Fprintf(p.out, "\n\n%s Collected %d posts for %s\n", Green("✓"), p.collected, p.query)
	fmt.Fprintf(p.out, "  %s %d passes, %d stalls, %d long pauses in %s\n",
		Dim("•"), p.passes, p.stalls, p.longPauses, formatDuration(elapsed))
	if dropped > 0 {
		fmt.Fprintf(p.out, "  %s %d outside the date range\n", Dim("•"), dropped)
	}
	if path != "" {
		fmt.Fprintf(p.out, "  %s %d rows written to %s\n", Dim("•"), written, path)
	}
}

func (p *ProgressDisplay) calculateETA() string {
	gained := p.collected - p.startCount
	if gained <= 0 {
		return "calculating..."
	}
	remaining := p.target - p.collected
	if remaining <= 0 {
		return "0s"
	}
	perItem := time.Since(p.startTime) / time.Duration(gained)
	return formatDuration(perItem * time.Duration(remaining))
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	} else if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}

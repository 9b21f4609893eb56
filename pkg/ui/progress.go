package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/muesli/termenv"

	"github.com/csrfshield/csrfshield/pkg/pipeline"
)

// ProgressLine renders an in-place batch progress line on a TTY and
// degrades to occasional plain lines when output is piped. Safe for calls
// from the analysis goroutine while the main goroutine prints elsewhere.
type ProgressLine struct {
	mu       sync.Mutex
	w        io.Writer
	tty      bool
	lastPct  float64
	rendered bool
}

// NewProgressLine creates a progress line writing to w. TTY behavior is
// decided from the process environment, not from w, because the CLI always
// points this at stderr.
func NewProgressLine(w io.Writer) *ProgressLine {
	return &ProgressLine{
		w:   w,
		tty: termenv.NewOutput(os.Stderr).Profile != termenv.Ascii && isTerminal(),
	}
}

func isTerminal() bool {
	fi, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return fi.Mode()&os.ModeCharDevice != 0
}

// Update renders one progress event.
func (p *ProgressLine) Update(ev pipeline.Progress) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.tty {
		// Piped output: one line per completed 10% step keeps logs short.
		if ev.Percent-p.lastPct >= 10 || ev.Percent >= 100 {
			fmt.Fprintf(p.w, "progress: session %d/%d %s (%.0f%%)\n",
				ev.SessionIndex, ev.SessionTotal, ev.Step, ev.Percent)
			p.lastPct = ev.Percent
		}
		return
	}

	bar := renderBar(ev.Percent, 24)
	fmt.Fprintf(p.w, "\r\033[K%s %5.1f%%  session %d/%d  %s (%d/%d)",
		bar, ev.Percent, ev.SessionIndex, ev.SessionTotal, ev.Step, ev.StepCurrent, ev.StepTotal)
	p.rendered = true
	p.lastPct = ev.Percent
}

// Done finishes the line so subsequent output starts on a fresh row.
func (p *ProgressLine) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.tty && p.rendered {
		fmt.Fprint(p.w, "\n")
	}
}

func renderBar(percent float64, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := int(percent / 100 * float64(width))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

package main

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pspoerri/gprat/internal/dataflow"
)

// dagProgress renders an in-place terminal progress bar driven by an
// Engine's own submitted/completed counters, adapted from the teacher's
// internal/tile/progress.go terminal progress bar (pspoerri-geotiff2pmtiles)
// — generalized from an externally-incremented counter to one that polls
// Engine.Progress() directly, since a DAG's total task count is not known
// until construction finishes submitting tasks.
type dagProgress struct {
	label    string
	barWidth int
	start    time.Time
	done     chan struct{}
	mu       sync.Mutex
	eng      *dataflow.Engine
}

func newDAGProgress(label string, eng *dataflow.Engine) *dagProgress {
	p := &dagProgress{
		label:    label,
		barWidth: 30,
		start:    time.Now(),
		done:     make(chan struct{}),
		eng:      eng,
	}
	go p.run()
	return p
}

// Finish stops the refresh loop and prints the final bar state with a newline.
func (p *dagProgress) Finish() {
	close(p.done)
	p.draw()
	fmt.Fprint(os.Stderr, "\n")
}

func (p *dagProgress) run() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-p.done:
			return
		case <-ticker.C:
			p.draw()
		}
	}
}

func (p *dagProgress) draw() {
	p.mu.Lock()
	defer p.mu.Unlock()

	submitted, completed := p.eng.Progress()

	var frac float64
	if submitted > 0 {
		frac = float64(completed) / float64(submitted)
	}
	if frac > 1 {
		frac = 1
	}

	filled := int(float64(p.barWidth) * frac)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", p.barWidth-filled)

	elapsed := time.Since(p.start)
	rate := float64(0)
	if secs := elapsed.Seconds(); secs > 0 {
		rate = float64(completed) / secs
	}

	fmt.Fprintf(os.Stderr, "\r%s [%s] %3.0f%%  %d/%d tasks  %.0f/s  %s\033[K",
		p.label, bar, frac*100, completed, submitted, rate, formatDuration(elapsed))
}

// formatDuration formats a duration concisely (e.g. "1m23s", "45s", "0s").
func formatDuration(d time.Duration) string {
	d = d.Truncate(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) - m*60
	return fmt.Sprintf("%dm%02ds", m, s)
}

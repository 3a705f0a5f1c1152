// Package log carries logging helpers for long-running batch work.
package log

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// ProgressIndicator reports periodic progress for descriptor generation
// and similar long batch loops. It is safe to call from worker goroutines.
type ProgressIndicator struct {
	mu        sync.Mutex
	name      string
	total     int
	current   int
	failed    int
	started   time.Time
	lastEmit  time.Time
	emitEvery time.Duration
}

// NewProgressIndicator starts tracking a batch of total items.
func NewProgressIndicator(name string, total int) *ProgressIndicator {
	now := time.Now()
	return &ProgressIndicator{
		name:      name,
		total:     total,
		started:   now,
		lastEmit:  now,
		emitEvery: 5 * time.Second,
	}
}

// Increment records one completed item and emits a progress event at most
// once per reporting interval.
func (p *ProgressIndicator) Increment() { p.advance(false) }

// Fail records one failed item.
func (p *ProgressIndicator) Fail() { p.advance(true) }

func (p *ProgressIndicator) advance(failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	if failed {
		p.failed++
	}

	now := time.Now()
	if now.Sub(p.lastEmit) < p.emitEvery && p.current != p.total {
		return
	}
	p.lastEmit = now

	evt := log.Info().
		Str("task", p.name).
		Int("done", p.current).
		Int("total", p.total)
	if p.failed > 0 {
		evt = evt.Int("failed", p.failed)
	}
	if p.current > 0 && p.total > 0 {
		elapsed := now.Sub(p.started)
		remaining := time.Duration(float64(elapsed) / float64(p.current) * float64(p.total-p.current))
		evt = evt.Dur("elapsed", elapsed.Round(time.Second)).
			Dur("eta", remaining.Round(time.Second))
	}
	evt.Msg("progress")
}

// Done emits the final summary.
func (p *ProgressIndicator) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	log.Info().
		Str("task", p.name).
		Int("done", p.current).
		Int("failed", p.failed).
		Dur("elapsed", time.Since(p.started).Round(time.Second)).
		Msg("finished")
}

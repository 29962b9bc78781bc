// Package analysis classifies stored files for sensitive content. The engine
// is pluggable; the shipped implementation is a stand-in scorer that a real
// classifier would replace behind the same contract.
package analysis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"vidscreen/internal/apperr"
	"vidscreen/internal/config"
)

type Result struct {
	Score   int
	Flagged bool
}

// Engine analyzes the file at path. Implementations send a monotonically
// increasing progress sequence ending at 100 on updates and close the channel
// before returning, whatever the outcome. A canceled ctx aborts the run; no
// progress is sent after a failure.
type Engine interface {
	Analyze(ctx context.Context, path string, updates chan<- int) (Result, error)
}

// StubEngine emits progress on a fixed tick and produces a pseudo-random
// score. Flagged iff score exceeds the configured threshold.
type StubEngine struct {
	tick      time.Duration
	step      int
	threshold int

	mu      sync.Mutex
	rng     *rand.Rand
	scoreFn func() int
}

type Option func(*StubEngine)

// WithScoreFunc fixes the score source, for deterministic tests.
func WithScoreFunc(fn func() int) Option {
	return func(e *StubEngine) { e.scoreFn = fn }
}

func NewStubEngine(cfg config.AnalysisConfig, opts ...Option) *StubEngine {
	e := &StubEngine{
		tick:      cfg.TickInterval,
		step:      cfg.ProgressStep,
		threshold: cfg.FlagThreshold,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if e.tick <= 0 {
		e.tick = 500 * time.Millisecond
	}
	if e.step <= 0 {
		e.step = 10
	}
	if e.threshold <= 0 {
		e.threshold = 70
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *StubEngine) Analyze(ctx context.Context, path string, updates chan<- int) (Result, error) {
	defer close(updates)

	ticker := time.NewTicker(e.tick)
	defer ticker.Stop()

	for p := e.step; ; p += e.step {
		select {
		case <-ctx.Done():
			return Result{}, apperr.Analysis("analysis aborted", ctx.Err())
		case <-ticker.C:
		}

		if p >= 100 {
			// The terminal 100 is never skipped, even when the step
			// does not divide evenly.
			updates <- 100
			score := e.score()
			return Result{Score: score, Flagged: score > e.threshold}, nil
		}
		updates <- p
	}
}

func (e *StubEngine) score() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.scoreFn != nil {
		return e.scoreFn()
	}
	return e.rng.Intn(100)
}

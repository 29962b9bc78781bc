package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Runner launches fire-and-forget jobs: callers never wait on an outcome,
// they observe it through the record store and the event topic. Concurrency
// is bounded by a semaphore; queued launches hold only a goroutine.
type Runner struct {
	pipeline *Pipeline
	log      zerolog.Logger
	sem      chan struct{}
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewRunner(p *Pipeline, maxConcurrent int, log zerolog.Logger) *Runner {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		pipeline: p,
		log:      log,
		sem:      make(chan struct{}, maxConcurrent),
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (r *Runner) Launch(videoID, ownerID string) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		select {
		case r.sem <- struct{}{}:
		case <-r.ctx.Done():
			// Shutting down before the job started. Fail the record now
			// rather than leaving it at processing for the janitor to find.
			r.pipeline.fail(videoID, ownerID)
			return
		}
		defer func() { <-r.sem }()

		r.pipeline.Run(r.ctx, videoID, ownerID)
	}()
}

// Shutdown cancels in-flight jobs and waits for them to land in a terminal
// state, up to timeout.
func (r *Runner) Shutdown(timeout time.Duration) {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		r.log.Warn().Msg("job drain timed out")
	}
}

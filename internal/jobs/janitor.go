// Package jobs hosts the background sweep that keeps the record store
// honest: after a crash or missed shutdown, records can be left sitting in
// "processing" forever. The recovery policy is to fail them. The engine is
// stateless, so a failed record can simply be re-run, while a stuck one
// shows a frozen progress bar until someone notices.
package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"vidscreen/internal/config"
)

const lockKey = "vidscreen:janitor:lock"

type RecordSweeper interface {
	FailStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

type Janitor struct {
	cron   *cron.Cron
	videos RecordSweeper
	locker *redis.Client
	cfg    config.JanitorConfig
	log    zerolog.Logger
}

func NewJanitor(videos RecordSweeper, locker *redis.Client, cfg config.JanitorConfig, log zerolog.Logger) *Janitor {
	return &Janitor{
		cron:   cron.New(cron.WithSeconds()),
		videos: videos,
		locker: locker,
		cfg:    cfg,
		log:    log,
	}
}

// RecoverOrphans fails every record left non-terminal by a previous process.
// Runs once at startup, before jobs are accepted.
func (j *Janitor) RecoverOrphans(ctx context.Context) error {
	swept, err := j.videos.FailStale(ctx, 0)
	if err != nil {
		return err
	}
	if swept > 0 {
		j.log.Warn().Int64("records", swept).Msg("failed orphaned jobs from previous run")
	}
	return nil
}

func (j *Janitor) Start() error {
	if _, err := j.cron.AddFunc(j.cfg.Schedule, j.sweep); err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		j.log.Warn().Msg("janitor stop timed out")
	}
}

func (j *Janitor) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// One instance sweeps at a time; the lock expires on its own so a
	// crashed holder cannot wedge the sweep.
	if j.locker != nil {
		ok, err := j.locker.SetNX(ctx, lockKey, time.Now().UTC().Format(time.RFC3339), j.cfg.LockTTL).Result()
		if err != nil {
			j.log.Error().Err(err).Msg("janitor lock failed")
			return
		}
		if !ok {
			return
		}
	}

	swept, err := j.videos.FailStale(ctx, j.cfg.StaleAfter)
	if err != nil {
		j.log.Error().Err(err).Msg("stale job sweep failed")
		return
	}
	if swept > 0 {
		j.log.Warn().Int64("records", swept).Dur("stale_after", j.cfg.StaleAfter).Msg("failed stale jobs")
	}
}

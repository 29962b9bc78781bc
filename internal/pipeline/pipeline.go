// Package pipeline drives one analysis job per uploaded video: fetch the
// record, run the engine, persist progress as it arrives, land the record in
// exactly one terminal state, and publish lifecycle events on the owner's
// topic. Errors never propagate back to the uploading request; by the time a
// job runs, that response has long been sent.
package pipeline

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"vidscreen/internal/analysis"
	"vidscreen/internal/apperr"
	"vidscreen/internal/models"
	"vidscreen/internal/progress"
)

// RecordStore is the slice of the record store the pipeline needs. Writes to
// terminal states are idempotent and refuse transitions out of a terminal
// state.
type RecordStore interface {
	GetByID(ctx context.Context, id string) (models.Video, error)
	SetProgress(ctx context.Context, id string, progress int) error
	MarkCompleted(ctx context.Context, id string, status models.SensitivityStatus, score int, at time.Time) error
	MarkFailed(ctx context.Context, id string) error
}

type Publisher interface {
	Publish(topic string, name string, payload any)
}

// terminalWriteTimeout bounds the persist of a terminal state. It uses a
// fresh context so a job canceled at shutdown still lands in failed instead
// of sticking at a stale progress value.
const terminalWriteTimeout = 5 * time.Second

type Pipeline struct {
	store  RecordStore
	bus    Publisher
	engine analysis.Engine
	log    zerolog.Logger
}

func New(store RecordStore, bus Publisher, engine analysis.Engine, log zerolog.Logger) *Pipeline {
	return &Pipeline{
		store:  store,
		bus:    bus,
		engine: engine,
		log:    log,
	}
}

// Run executes the job for one record to a terminal outcome. It never returns
// an error; failures are absorbed into the failed state and the owner's event
// topic.
func (p *Pipeline) Run(ctx context.Context, videoID, ownerID string) {
	video, err := p.store.GetByID(ctx, videoID)
	if err != nil {
		if apperr.IsKind(err, apperr.KindNotFound) {
			// No record means no valid owner channel; nothing to report.
			p.log.Error().Str("video_id", videoID).Msg("job started for missing record")
			return
		}
		p.log.Error().Err(err).Str("video_id", videoID).Msg("job fetch failed")
		p.fail(videoID, ownerID)
		return
	}

	if video.Status.Terminal() {
		p.log.Warn().Str("video_id", videoID).Str("status", string(video.Status)).Msg("job skipped, record already terminal")
		return
	}

	updates := make(chan int, 1)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for pct := range updates {
			// Progress writes are best-effort; a write failure must not
			// abort the run.
			if err := p.store.SetProgress(ctx, videoID, pct); err != nil {
				p.log.Warn().Err(err).Str("video_id", videoID).Int("progress", pct).Msg("progress persist failed")
			}
			p.bus.Publish(ownerID, progress.EventProgress, progress.ProgressPayload{
				VideoID:  videoID,
				Progress: pct,
			})
		}
	}()

	result, err := p.engine.Analyze(ctx, video.FilePath, updates)
	<-drained

	if err != nil {
		p.log.Error().Err(err).Str("video_id", videoID).Msg("analysis failed")
		p.fail(videoID, ownerID)
		return
	}

	p.complete(videoID, ownerID, result)
}

func (p *Pipeline) complete(videoID, ownerID string, result analysis.Result) {
	status := models.SensitivitySafe
	if result.Flagged {
		status = models.SensitivityFlagged
	}

	ctx, cancel := context.WithTimeout(context.Background(), terminalWriteTimeout)
	defer cancel()

	if err := p.store.MarkCompleted(ctx, videoID, status, result.Score, time.Now().UTC()); err != nil {
		p.log.Error().Err(err).Str("video_id", videoID).Msg("terminal persist failed")
	}

	p.bus.Publish(ownerID, progress.EventCompleted, progress.CompletedPayload{
		VideoID:           videoID,
		SensitivityStatus: status,
		SensitivityScore:  result.Score,
	})

	p.log.Info().
		Str("video_id", videoID).
		Str("sensitivity", string(status)).
		Int("score", result.Score).
		Msg("analysis completed")
}

func (p *Pipeline) fail(videoID, ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), terminalWriteTimeout)
	defer cancel()

	if err := p.store.MarkFailed(ctx, videoID); err != nil {
		p.log.Error().Err(err).Str("video_id", videoID).Msg("failed-state persist failed")
	}

	p.bus.Publish(ownerID, progress.EventFailed, progress.FailedPayload{
		VideoID: videoID,
		Error:   "Processing failed",
	})
}

package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
)

// PublishFunc delivers one scheduled post to its platform.
type PublishFunc func(ctx context.Context, post *ScheduledPost) error

// Summary aggregates one processing run. Deferred counts posts whose
// platform window was spent; they keep their retry budget and come back
// when the window reopens.
type Summary struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Deferred  int `json:"deferred"`
}

type publishOutcome int

const (
	publishSucceeded publishOutcome = iota
	publishDeferred
	publishFailed
)

// Processor drains ready scheduled posts in bounded batches. Overlapping
// invocations are safe: readiness is re-evaluated from persisted state and
// bounded by the retry ledger, not by table locks.
type Processor struct {
	store      *Store
	publish    PublishFunc
	batchSize  int
	batchDelay time.Duration
	logger     *slog.Logger
}

// NewProcessor builds a processor with the config's batch settings.
func NewProcessor(store *Store, cfg *config.Config, publish PublishFunc, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Processor{
		store:      store,
		publish:    publish,
		batchSize:  cfg.Scheduler.BatchSize,
		batchDelay: time.Duration(cfg.Scheduler.BatchDelaySeconds) * time.Second,
		logger:     logger.With(logging.String(logging.FieldComponent, "scheduler")),
	}
}

// RunOnce drains everything currently ready, one bounded batch at a time,
// pausing between batches to avoid bursting external platforms.
func (p *Processor) RunOnce(ctx context.Context) (Summary, error) {
	var summary Summary
	for {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		ready, err := p.store.GetReady(ctx, p.batchSize)
		if err != nil {
			return summary, err
		}
		if len(ready) == 0 {
			return summary, nil
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(p.batchSize)
		results := make([]publishOutcome, len(ready))
		for i, post := range ready {
			i, post := i, post
			group.Go(func() error {
				results[i] = p.processOne(groupCtx, post)
				return nil
			})
		}
		if err := group.Wait(); err != nil {
			return summary, err
		}

		for _, outcome := range results {
			summary.Processed++
			switch outcome {
			case publishSucceeded:
				summary.Succeeded++
			case publishDeferred:
				summary.Deferred++
			default:
				summary.Failed++
			}
		}

		if len(ready) < p.batchSize {
			return summary, nil
		}
		if p.batchDelay > 0 {
			select {
			case <-time.After(p.batchDelay):
			case <-ctx.Done():
				return summary, ctx.Err()
			}
		}
	}
}

func (p *Processor) processOne(ctx context.Context, post *ScheduledPost) publishOutcome {
	logger := p.logger.With(
		logging.Int64("scheduled_post_id", post.ID),
		logging.String(logging.FieldPlatform, post.Platform),
	)

	if err := p.publish(ctx, post); err != nil {
		// A spent admission window is throttling, not a failure: push the
		// delivery out past the window and leave the retry ledger alone.
		if wait, ok := services.IsRateLimited(err); ok {
			logger.Info("platform window spent, deferring delivery",
				logging.Duration("retry_after", wait))
			if deferErr := p.store.Defer(ctx, post.ID, wait); deferErr != nil {
				logger.Error("defer failed", logging.Error(deferErr))
			}
			return publishDeferred
		}
		logger.Warn("scheduled publish attempt failed",
			logging.Error(err),
			logging.Int("retry_count", post.RetryCount),
		)
		if retryErr := p.store.Retry(ctx, post.ID); retryErr != nil {
			logger.Error("retry ledger update failed", logging.Error(retryErr))
		}
		return publishFailed
	}

	if err := p.store.MarkPublished(ctx, post.ID); err != nil {
		logger.Error("mark published failed", logging.Error(err))
		return publishFailed
	}
	logger.Info("scheduled post published",
		logging.String(logging.FieldEventType, "scheduled_post_published"),
		logging.Time("scheduled_time", post.ScheduledTime),
	)
	return publishSucceeded
}

// RunContinuous ticks RunOnce at the config interval until the context ends.
// The interval schedule rides on a cron runner so operators can swap in a
// cron expression without changing the processing path.
func (p *Processor) RunContinuous(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}

	runner := cron.New()
	_, err := runner.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		summary, runErr := p.RunOnce(ctx)
		if runErr != nil && ctx.Err() == nil {
			p.logger.Error("scheduler tick failed", logging.Error(runErr))
			return
		}
		if summary.Processed > 0 {
			p.logger.Info("scheduler tick complete",
				logging.Int("processed", summary.Processed),
				logging.Int("succeeded", summary.Succeeded),
				logging.Int("failed", summary.Failed),
				logging.Int("deferred", summary.Deferred),
			)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule processor tick: %w", err)
	}

	runner.Start()
	<-ctx.Done()
	stopped := runner.Stop()
	<-stopped.Done()
	return ctx.Err()
}

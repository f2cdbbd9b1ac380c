package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/publishing"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
)

func (m *Manager) processJob(ctx context.Context, logger *slog.Logger, job *queue.Job) {
	handler := m.handlers[job.Queue]
	if handler == nil {
		err := services.Wrap(services.ErrConfiguration, "pipeline", "dispatch",
			"no handler registered for queue "+job.Queue, nil)
		m.failJob(ctx, logger, nil, job, err)
		return
	}

	if job.Queue == config.QueuePublish {
		if !m.admitPublish(ctx, logger, job) {
			return
		}
	}

	start := time.Now()
	jobLogger := logger.With(
		logging.Int64("job_id", job.ID),
		logging.String("request_id", uuid.NewString()))
	jobLogger.Info("job started", logging.Int("attempt", job.AttemptsMade))

	if err := handler.Prepare(ctx, job); err != nil {
		m.failJob(ctx, jobLogger, handler, job, err)
		return
	}

	execErr := m.executeWithHeartbeat(ctx, handler, job)
	switch {
	case execErr == nil:
		if err := m.store.Ack(ctx, job, ""); err != nil {
			m.setLastError(err)
			jobLogger.Error("ack failed", logging.Error(err))
			return
		}
		jobLogger.Info("job completed", logging.Duration("duration", time.Since(start)))

	case errors.Is(execErr, context.Canceled):
		// Shutdown mid-attempt: hand the job back without burning budget.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.store.Release(releaseCtx, job, 0); err != nil {
			jobLogger.Warn("release on shutdown failed", logging.Error(err))
		}

	default:
		if retryAfter, ok := services.IsRateLimited(execErr); ok {
			jobLogger.Info("platform rate limited, releasing job",
				logging.Duration("retry_after", retryAfter))
			if err := m.store.Release(ctx, job, retryAfter); err != nil {
				m.setLastError(err)
				jobLogger.Error("release failed", logging.Error(err))
			}
			return
		}
		m.failJob(ctx, jobLogger, handler, job, execErr)
	}
}

// admitPublish applies the per-platform window before a publish attempt runs.
// A denied job goes back to the queue with the window's retry-after delay and
// keeps its full attempt budget.
func (m *Manager) admitPublish(ctx context.Context, logger *slog.Logger, job *queue.Job) bool {
	var payload publishing.Payload
	if err := stage.DecodePayload(job, &payload); err != nil || payload.PostID <= 0 {
		// Malformed payloads fall through to the handler's own validation.
		return true
	}
	post, err := m.contents.GetPost(ctx, payload.PostID)
	if err != nil || post == nil {
		return true
	}
	decision := m.limiter.Admit(post.Platform)
	if decision.Allowed {
		return true
	}
	logger.Info("publish window exhausted, delaying job",
		logging.Int64("job_id", job.ID),
		logging.String("platform", post.Platform),
		logging.Duration("retry_after", decision.RetryAfter))
	if err := m.store.Release(ctx, job, decision.RetryAfter); err != nil {
		m.setLastError(err)
		logger.Error("release failed", logging.Error(err))
	}
	return false
}

func (m *Manager) executeWithHeartbeat(ctx context.Context, handler stage.Handler, job *queue.Job) error {
	hbCtx, hbCancel := context.WithCancel(ctx)
	var hbWG sync.WaitGroup
	hbWG.Add(1)
	go m.renewLeaseLoop(hbCtx, &hbWG, job.ID)

	execErr := handler.Execute(ctx, job)
	hbCancel()
	hbWG.Wait()
	return execErr
}

func (m *Manager) renewLeaseLoop(ctx context.Context, wg *sync.WaitGroup, jobID int64) {
	defer wg.Done()
	interval := m.heartbeatInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.store.RenewLease(ctx, jobID); err != nil && ctx.Err() == nil {
				m.logger.Warn("lease renewal failed",
					logging.Int64("job_id", jobID), logging.Error(err))
			}
		}
	}
}

func (m *Manager) failJob(ctx context.Context, logger *slog.Logger, handler stage.Handler, job *queue.Job, cause error) {
	m.setLastError(cause)
	updated, err := m.store.Nack(ctx, job, cause)
	if err != nil {
		logger.Error("nack failed", logging.Error(err), logging.Int64("job_id", job.ID))
		return
	}
	if updated.Status == queue.StatusFailed {
		logger.Error("job permanently failed",
			logging.Int64("job_id", job.ID),
			logging.Int("attempts", updated.AttemptsMade),
			logging.Error(cause))
		if recorder, ok := handler.(stage.FailureRecorder); ok {
			recorder.RecordFailure(ctx, job, cause)
		}
		return
	}
	logger.Warn("job attempt failed, retrying later",
		logging.Int64("job_id", job.ID),
		logging.Int("attempts", updated.AttemptsMade),
		logging.Time("available_at", updated.AvailableAt),
		logging.Error(cause))
}

// Package publishing implements the terminal pipeline stage: delivering an
// approved post to its platform and recording the external post id.
package publishing

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/scheduler"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/publish"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
)

// Payload identifies the post a publish job delivers. ScheduledPostID links
// back to the scheduler ledger when the job originated from a scheduled slot.
type Payload struct {
	PostID          int64 `json:"post_id"`
	ScheduledPostID int64 `json:"scheduled_post_id,omitempty"`
}

// Publisher is the stage handler for the publish queue.
type Publisher struct {
	cfg       *config.Config
	store     *queue.Store
	contents  *content.Store
	schedules *scheduler.Store
	publisher publish.Publisher
	logger    *slog.Logger
}

// NewPublisher constructs the publish stage handler over the configured platforms.
func NewPublisher(cfg *config.Config, store *queue.Store, contents *content.Store, schedules *scheduler.Store, logger *slog.Logger) *Publisher {
	client := publish.NewHTTPPublisher(cfg, publish.NewConfigCredentials(cfg))
	return NewPublisherWithDependencies(cfg, store, contents, schedules, logger, client)
}

// NewPublisherWithDependencies allows injecting the platform client (used in tests).
func NewPublisherWithDependencies(cfg *config.Config, store *queue.Store, contents *content.Store, schedules *scheduler.Store, logger *slog.Logger, client publish.Publisher) *Publisher {
	return &Publisher{
		cfg:       cfg,
		store:     store,
		contents:  contents,
		schedules: schedules,
		publisher: client,
		logger:    logging.NewComponentLogger(logger, "publishing"),
	}
}

func (p *Publisher) Prepare(ctx context.Context, job *queue.Job) error {
	payload, err := decodePayload(job)
	if err != nil {
		return err
	}
	post, err := p.contents.GetPost(ctx, payload.PostID)
	if err != nil || post == nil {
		return services.Wrap(services.ErrValidation, "publishing", "prepare",
			fmt.Sprintf("post %d not found", payload.PostID), err)
	}
	switch post.Status {
	case content.PostStatusApproved, content.PostStatusScheduled:
	case content.PostStatusPublished:
		// Republishing an already-published post is a no-op, not a failure.
	default:
		return services.Wrap(services.ErrValidation, "publishing", "prepare",
			fmt.Sprintf("post %d is %s; only approved or scheduled posts publish", post.ID, post.Status), nil)
	}
	logging.WithContext(ctx, p.logger).Info("starting publish",
		logging.Int64("post_id", post.ID),
		logging.String("platform", post.Platform))
	return nil
}

func (p *Publisher) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, p.logger)
	payload, err := decodePayload(job)
	if err != nil {
		return err
	}
	post, err := p.contents.GetPost(ctx, payload.PostID)
	if err != nil || post == nil {
		return services.Wrap(services.ErrValidation, "publishing", "execute",
			fmt.Sprintf("post %d not found", payload.PostID), err)
	}
	if post.Status == content.PostStatusPublished {
		logger.Info("post already published, skipping",
			logging.Int64("post_id", post.ID),
			logging.String("external_post_id", post.ExternalPostID))
		return nil
	}

	p.progress(ctx, job, 10, fmt.Sprintf("Publishing to %s", post.Platform))
	result, err := p.publisher.Publish(ctx, post.Platform, post.Body)
	if err != nil {
		return err
	}

	p.progress(ctx, job, 80, "Recording published post")
	if err := p.contents.MarkPostPublished(ctx, post.ID, result.ExternalPostID); err != nil {
		return services.Wrap(services.ErrTransient, "publishing", "execute", "record published post", err)
	}
	if payload.ScheduledPostID > 0 && p.schedules != nil {
		if err := p.schedules.MarkPublished(ctx, payload.ScheduledPostID); err != nil {
			logger.Warn("failed to close scheduler ledger entry",
				logging.Int64("scheduled_post_id", payload.ScheduledPostID), logging.Error(err))
		}
	}

	p.progress(ctx, job, 100, "Published")
	logger.Info("post published",
		logging.Int64("post_id", post.ID),
		logging.String("platform", post.Platform),
		logging.String("external_post_id", result.ExternalPostID))
	return nil
}

// RecordFailure marks the post failed once the job's retries run out.
func (p *Publisher) RecordFailure(ctx context.Context, job *queue.Job, cause error) {
	payload, err := decodePayload(job)
	if err != nil {
		return
	}
	message := "publish failed"
	if cause != nil {
		message = cause.Error()
	}
	if err := p.contents.SetPostStatus(ctx, payload.PostID, content.PostStatusFailed, message); err != nil {
		p.logger.Warn("failed to record post failure",
			logging.Int64("post_id", payload.PostID), logging.Error(err))
	}
	if payload.ScheduledPostID > 0 && p.schedules != nil {
		if err := p.schedules.MarkFailed(ctx, payload.ScheduledPostID, message); err != nil {
			p.logger.Warn("failed to record scheduler failure",
				logging.Int64("scheduled_post_id", payload.ScheduledPostID), logging.Error(err))
		}
	}
}

func (p *Publisher) HealthCheck(ctx context.Context) stage.Health {
	enabled := 0
	for name, platform := range p.cfg.Platforms {
		if !platform.Enabled {
			continue
		}
		enabled++
		if strings.TrimSpace(platform.AccessToken) == "" {
			return stage.Unhealthy("publishing", fmt.Sprintf("platform %q has no access token", name))
		}
	}
	if enabled == 0 {
		return stage.Unhealthy("publishing", "no platforms are enabled")
	}
	if err := p.contents.Health(ctx); err != nil {
		return stage.Unhealthy("publishing", err.Error())
	}
	return stage.Healthy("publishing")
}

func (p *Publisher) progress(ctx context.Context, job *queue.Job, percent float64, message string) {
	if err := p.store.UpdateProgress(ctx, job.ID, percent, message); err != nil {
		p.logger.Warn("progress update failed", logging.Int64("job_id", job.ID), logging.Error(err))
	}
}

func decodePayload(job *queue.Job) (Payload, error) {
	var payload Payload
	if err := stage.DecodePayload(job, &payload); err != nil {
		return payload, err
	}
	if payload.PostID <= 0 {
		return payload, services.Wrap(services.ErrValidation, "publishing", "decode payload",
			"payload is missing a post id", nil)
	}
	return payload, nil
}

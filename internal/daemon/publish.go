package daemon

import (
	"context"

	"log/slog"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ratelimit"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/scheduler"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/publish"
)

// SchedulerPublishFunc builds the delivery callback the scheduled-post
// processor uses. It publishes directly through the platform client under the
// same per-platform window the pipeline honors, so scheduled and queued
// publishes share one admission budget. Denied admissions surface as
// rate-limit errors, which the processor records as a ledger retry rather
// than a failure.
func SchedulerPublishFunc(contents *content.Store, publisher publish.Publisher, limiter *ratelimit.Limiter, logger *slog.Logger) scheduler.PublishFunc {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.NewComponentLogger(logger, "scheduler-publish")

	return func(ctx context.Context, post *scheduler.ScheduledPost) error {
		if limiter != nil {
			decision := limiter.Admit(post.Platform)
			if !decision.Allowed {
				return services.RateLimited(post.Platform, decision.RetryAfter)
			}
		}

		result, err := publisher.Publish(ctx, post.Platform, post.Content)
		if err != nil {
			return err
		}

		// A scheduled post created from a reviewed draft carries the draft's
		// row ID; ad-hoc schedules do not.
		if post.PostID > 0 {
			if err := contents.MarkPostPublished(ctx, post.PostID, result.ExternalPostID); err != nil {
				logger.Warn("scheduled post published but draft update failed",
					logging.Int64("post_id", post.PostID),
					logging.Error(err))
			}
		}

		logger.Info("scheduled post delivered",
			logging.Int64("scheduled_post_id", post.ID),
			logging.String("platform", post.Platform),
			logging.String("external_post_id", result.ExternalPostID))
		return nil
	}
}

package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/cleaning"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/scheduler"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
)

// AddTranscript stores a raw transcript and enqueues its cleaning job.
func (d *Daemon) AddTranscript(ctx context.Context, title, rawContent string) (*content.Transcript, *queue.Job, error) {
	transcript, err := d.contents.CreateTranscript(ctx, title, rawContent)
	if err != nil {
		return nil, nil, err
	}

	payload, err := stage.EncodePayload(cleaning.Payload{TranscriptID: transcript.ID})
	if err != nil {
		return nil, nil, err
	}
	job, err := d.store.Enqueue(ctx, config.QueueClean, payload, queue.EnqueueOptions{
		DedupID: fmt.Sprintf("transcript:%d", transcript.ID),
	})
	if err != nil {
		return nil, nil, err
	}

	d.logger.Info("transcript queued for cleaning",
		logging.Int64("transcript_id", transcript.ID),
		logging.Int64("job_id", job.ID))
	return transcript, job, nil
}

// ApproveInsight records the review decision and queues post generation.
func (d *Daemon) ApproveInsight(ctx context.Context, id int64) (*queue.Job, error) {
	if err := d.contents.ApproveInsight(ctx, id); err != nil {
		return nil, err
	}
	return d.manager.RetryFromStage(ctx, config.QueueGenerate, id)
}

// RejectInsight records the review decision; the insight leaves the pipeline.
func (d *Daemon) RejectInsight(ctx context.Context, id int64) error {
	return d.contents.RejectInsight(ctx, id)
}

// ApprovePost records the review decision and queues immediate publishing.
func (d *Daemon) ApprovePost(ctx context.Context, id int64) (*queue.Job, error) {
	if err := d.contents.ApprovePost(ctx, id); err != nil {
		return nil, err
	}
	return d.manager.RetryFromStage(ctx, config.QueuePublish, id)
}

// RejectPost records the review decision; the draft leaves the pipeline.
func (d *Daemon) RejectPost(ctx context.Context, id int64) error {
	return d.contents.RejectPost(ctx, id)
}

// SchedulePost approves a reviewed draft and books it for later delivery
// instead of publishing immediately.
func (d *Daemon) SchedulePost(ctx context.Context, postID int64, at time.Time) (int64, error) {
	post, err := d.contents.GetPost(ctx, postID)
	if err != nil {
		return 0, err
	}
	if post == nil {
		return 0, services.Wrap(services.ErrNotFound, "daemon", "schedule-post",
			fmt.Sprintf("post %d not found", postID), nil)
	}

	switch post.Status {
	case content.PostStatusPendingReview:
		if err := d.contents.ApprovePost(ctx, postID); err != nil {
			return 0, err
		}
	case content.PostStatusApproved:
	default:
		return 0, services.Wrap(services.ErrValidation, "daemon", "schedule-post",
			fmt.Sprintf("post %d is %s and cannot be scheduled", postID, post.Status), nil)
	}

	// Claim the draft before touching the ledger so a concurrent caller
	// cannot book a second delivery for the same post.
	if err := d.contents.MarkPostScheduled(ctx, postID); err != nil {
		return 0, err
	}
	scheduledID, err := d.schedules.Schedule(ctx, scheduler.ScheduleRequest{
		PostID:        post.ID,
		Platform:      post.Platform,
		Content:       post.Body,
		ScheduledTime: at,
	})
	if err != nil {
		if revertErr := d.contents.MarkPostUnscheduled(ctx, postID); revertErr != nil {
			d.logger.Warn("draft left scheduled after booking failure",
				logging.Int64("post_id", postID),
				logging.Error(revertErr))
		}
		return 0, err
	}

	d.logger.Info("post scheduled",
		logging.Int64("post_id", postID),
		logging.Int64("scheduled_post_id", scheduledID),
		logging.Time("scheduled_time", at))
	return scheduledID, nil
}

// CancelSchedule cancels a pending scheduled post and returns the draft, if
// one is linked, to the approved state.
func (d *Daemon) CancelSchedule(ctx context.Context, id int64) error {
	scheduled, err := d.schedules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if scheduled == nil {
		return services.Wrap(services.ErrNotFound, "daemon", "cancel-schedule",
			fmt.Sprintf("scheduled post %d not found", id), nil)
	}
	if err := d.schedules.Cancel(ctx, id); err != nil {
		return err
	}
	if scheduled.PostID > 0 {
		if err := d.contents.MarkPostUnscheduled(ctx, scheduled.PostID); err != nil {
			d.logger.Warn("schedule cancelled but draft state unchanged",
				logging.Int64("post_id", scheduled.PostID),
				logging.Error(err))
		}
	}
	return nil
}

// RunSchedulerOnce drains ready scheduled posts immediately.
func (d *Daemon) RunSchedulerOnce(ctx context.Context) (scheduler.Summary, error) {
	if d.processor == nil {
		return scheduler.Summary{}, services.Wrap(services.ErrConfiguration, "daemon", "scheduler-run",
			"scheduler processor is not configured", nil)
	}
	return d.processor.RunOnce(ctx)
}

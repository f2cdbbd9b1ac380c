package pipeline

import (
	"context"
	"fmt"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
)

// State is the pipeline-level view of one transcript's journey.
type State string

const (
	StatePending    State = "pending"
	StateProcessing State = "processing"
	StatePaused     State = "paused"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
	StateCancelled  State = "cancelled"
)

// Progress describes where a transcript sits in the pipeline.
type Progress struct {
	TranscriptID int64  `json:"transcript_id"`
	State        State  `json:"state"`
	Detail       string `json:"detail,omitempty"`
}

// Progress folds the transcript's entity statuses and review gates into one
// pipeline-level state. Paused means the pipeline is waiting on a human.
func (m *Manager) Progress(ctx context.Context, transcriptID int64) (Progress, error) {
	transcript, err := m.contents.GetTranscript(ctx, transcriptID)
	if err != nil {
		return Progress{}, err
	}
	if transcript == nil {
		return Progress{}, services.Wrap(services.ErrNotFound, "pipeline", "progress",
			fmt.Sprintf("transcript %d not found", transcriptID), nil)
	}

	result := Progress{TranscriptID: transcriptID}
	switch transcript.Status {
	case content.TranscriptStatusCancelled:
		result.State = StateCancelled
		return result, nil
	case content.TranscriptStatusFailed:
		result.State = StateFailed
		result.Detail = transcript.ErrorMessage
		return result, nil
	case content.TranscriptStatusRaw:
		result.State = StatePending
		result.Detail = "awaiting cleaning"
		return result, nil
	case content.TranscriptStatusCleaning, content.TranscriptStatusCleaned, content.TranscriptStatusExtracting:
		result.State = StateProcessing
		result.Detail = string(transcript.Status)
		return result, nil
	}

	return m.foldExtracted(ctx, transcript)
}

// foldExtracted resolves the post-extraction states, where progress depends on
// insights, posts, and the review gates between them.
func (m *Manager) foldExtracted(ctx context.Context, transcript *content.Transcript) (Progress, error) {
	result := Progress{TranscriptID: transcript.ID}

	allInsights, err := m.contents.InsightsByTranscript(ctx, transcript.ID)
	if err != nil {
		return Progress{}, err
	}
	if len(allInsights) == 0 {
		result.State = StateCompleted
		result.Detail = "no insights extracted"
		return result, nil
	}

	var anyFailed, anyPausedGate, anyProcessing bool
	var failedDetail string
	for _, insight := range allInsights {
		switch insight.Status {
		case content.ReviewPending:
			anyPausedGate = true
		case content.ReviewFailed:
			anyFailed = true
			failedDetail = insight.ErrorMessage
		case content.ReviewRejected:
			// A rejected insight leaves the pipeline.
		case content.ReviewApproved:
			posts, err := m.contents.PostsByInsight(ctx, insight.ID)
			if err != nil {
				return Progress{}, err
			}
			if len(posts) == 0 {
				anyProcessing = true
				continue
			}
			for _, post := range posts {
				switch post.Status {
				case content.PostStatusPendingReview:
					anyPausedGate = true
				case content.PostStatusApproved, content.PostStatusScheduled:
					anyProcessing = true
				case content.PostStatusFailed:
					anyFailed = true
					failedDetail = post.ErrorMessage
				case content.PostStatusPublished, content.PostStatusRejected:
				}
			}
		}
	}

	switch {
	case anyFailed:
		result.State = StateFailed
		result.Detail = failedDetail
	case anyProcessing:
		result.State = StateProcessing
		result.Detail = "generating or publishing posts"
	case anyPausedGate:
		result.State = StatePaused
		result.Detail = "awaiting review"
	default:
		result.State = StateCompleted
	}
	return result, nil
}

// Stats returns per-queue job counts.
func (m *Manager) Stats(ctx context.Context) (map[string]queue.Counts, error) {
	stats := make(map[string]queue.Counts, len(m.handlers))
	for _, queueName := range config.QueueNames() {
		counts, err := m.store.Counts(ctx, queueName)
		if err != nil {
			return nil, err
		}
		stats[queueName] = counts
	}
	return stats, nil
}

// HealthCheck reports store connectivity and each stage's readiness.
func (m *Manager) HealthCheck(ctx context.Context) []stage.Health {
	checks := make([]stage.Health, 0, len(m.handlers)+1)
	if err := m.store.Health(ctx); err != nil {
		checks = append(checks, stage.Unhealthy("queue-store", err.Error()))
	} else {
		checks = append(checks, stage.Healthy("queue-store"))
	}
	for _, queueName := range config.QueueNames() {
		handler := m.handlers[queueName]
		if handler == nil {
			continue
		}
		checks = append(checks, handler.HealthCheck(ctx))
	}
	return checks
}

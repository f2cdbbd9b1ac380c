package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/cleaning"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/insights"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/postgen"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/publishing"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
)

// Pause stops claiming from the named queue, or from every queue when the
// name is empty. In-flight attempts run to completion.
func (m *Manager) Pause(queueName string) error {
	queueName = strings.ToLower(strings.TrimSpace(queueName))
	m.mu.Lock()
	defer m.mu.Unlock()
	if queueName == "" {
		m.allPaused = true
		return nil
	}
	if _, ok := m.handlers[queueName]; !ok {
		return fmt.Errorf("unknown queue %q", queueName)
	}
	m.paused[queueName] = true
	return nil
}

// Resume restarts claiming from the named queue, or from every queue when the
// name is empty.
func (m *Manager) Resume(queueName string) error {
	queueName = strings.ToLower(strings.TrimSpace(queueName))
	m.mu.Lock()
	defer m.mu.Unlock()
	if queueName == "" {
		m.allPaused = false
		for name := range m.paused {
			delete(m.paused, name)
		}
		return nil
	}
	if _, ok := m.handlers[queueName]; !ok {
		return fmt.Errorf("unknown queue %q", queueName)
	}
	delete(m.paused, queueName)
	return nil
}

// Paused reports which queues are currently paused.
func (m *Manager) Paused() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.allPaused {
		return config.QueueNames()
	}
	names := make([]string, 0, len(m.paused))
	for _, name := range config.QueueNames() {
		if m.paused[name] {
			names = append(names, name)
		}
	}
	return names
}

// RetryFromStage re-runs one entity through the named queue. An existing
// failed job for the entity gets its budget back; otherwise a fresh job is
// enqueued.
func (m *Manager) RetryFromStage(ctx context.Context, queueName string, entityID int64) (*queue.Job, error) {
	queueName = strings.ToLower(strings.TrimSpace(queueName))
	payload, dedupID, err := retryPayload(queueName, entityID)
	if err != nil {
		return nil, err
	}

	failed, err := m.store.List(ctx, queueName, queue.StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("list failed jobs: %w", err)
	}
	for _, job := range failed {
		if !payloadMatches(job, queueName, entityID) {
			continue
		}
		if err := m.store.RetryFailed(ctx, job.ID); err != nil {
			return nil, err
		}
		m.logger.Info("failed job requeued",
			logging.String("queue", queueName),
			logging.Int64("job_id", job.ID))
		return m.store.GetByID(ctx, job.ID)
	}

	encoded, err := stage.EncodePayload(payload)
	if err != nil {
		return nil, err
	}
	return m.store.Enqueue(ctx, queueName, encoded, queue.EnqueueOptions{DedupID: dedupID})
}

// Cancel marks the transcript cancelled and withdraws its jobs that have not
// started. Active attempts finish and are recorded, but nothing advances
// afterwards.
func (m *Manager) Cancel(ctx context.Context, transcriptID int64) error {
	if err := m.contents.CancelTranscript(ctx, transcriptID); err != nil {
		return err
	}

	removed := 0
	for _, queueName := range []string{config.QueueClean, config.QueueInsights} {
		jobs, err := m.store.List(ctx, queueName, queue.StatusWaiting, queue.StatusDelayed)
		if err != nil {
			return fmt.Errorf("list %s jobs: %w", queueName, err)
		}
		for _, job := range jobs {
			if !payloadMatches(job, queueName, transcriptID) {
				continue
			}
			ok, err := m.store.Remove(ctx, job.ID)
			if err != nil {
				return err
			}
			if ok {
				removed++
			}
		}
	}
	m.logger.Info("transcript cancelled",
		logging.Int64("transcript_id", transcriptID),
		logging.Int("jobs_removed", removed))
	return nil
}

func retryPayload(queueName string, entityID int64) (any, string, error) {
	if entityID <= 0 {
		return nil, "", services.Wrap(services.ErrValidation, "pipeline", "retry", "entity id is required", nil)
	}
	switch queueName {
	case config.QueueClean:
		return cleaning.Payload{TranscriptID: entityID}, fmt.Sprintf("transcript:%d", entityID), nil
	case config.QueueInsights:
		return insights.Payload{TranscriptID: entityID}, fmt.Sprintf("transcript:%d", entityID), nil
	case config.QueueGenerate:
		return postgen.Payload{InsightID: entityID}, fmt.Sprintf("insight:%d", entityID), nil
	case config.QueuePublish:
		return publishing.Payload{PostID: entityID}, fmt.Sprintf("post:%d", entityID), nil
	default:
		return nil, "", services.Wrap(services.ErrValidation, "pipeline", "retry",
			fmt.Sprintf("unknown queue %q", queueName), nil)
	}
}

func payloadMatches(job *queue.Job, queueName string, entityID int64) bool {
	switch queueName {
	case config.QueueClean:
		var payload cleaning.Payload
		return stage.DecodePayload(job, &payload) == nil && payload.TranscriptID == entityID
	case config.QueueInsights:
		var payload insights.Payload
		return stage.DecodePayload(job, &payload) == nil && payload.TranscriptID == entityID
	case config.QueueGenerate:
		var payload postgen.Payload
		return stage.DecodePayload(job, &payload) == nil && payload.InsightID == entityID
	case config.QueuePublish:
		var payload publishing.Payload
		return stage.DecodePayload(job, &payload) == nil && payload.PostID == entityID
	default:
		return false
	}
}

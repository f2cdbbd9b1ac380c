// Package cleaning implements the first pipeline stage: turning a raw
// transcript into cleaned prose via the LLM cleaner and queueing insight
// extraction behind it.
package cleaning

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/insights"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/contentai"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/llm"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
)

// Payload identifies the transcript a cleaning job operates on.
type Payload struct {
	TranscriptID int64 `json:"transcript_id"`
}

// Cleaner is the stage handler for the cleaning queue.
type Cleaner struct {
	cfg      *config.Config
	store    *queue.Store
	contents *content.Store
	cleaner  contentai.Cleaner
	logger   *slog.Logger
}

// NewCleaner constructs the cleaning stage handler using the configured LLM.
func NewCleaner(cfg *config.Config, store *queue.Store, contents *content.Store, logger *slog.Logger) *Cleaner {
	service := contentai.NewService(llm.NewClient(cfg.LLM))
	return NewCleanerWithDependencies(cfg, store, contents, logger, service)
}

// NewCleanerWithDependencies allows injecting the cleaner (used in tests).
func NewCleanerWithDependencies(cfg *config.Config, store *queue.Store, contents *content.Store, logger *slog.Logger, cleaner contentai.Cleaner) *Cleaner {
	return &Cleaner{
		cfg:      cfg,
		store:    store,
		contents: contents,
		cleaner:  cleaner,
		logger:   logging.NewComponentLogger(logger, "cleaning"),
	}
}

func (c *Cleaner) Prepare(ctx context.Context, job *queue.Job) error {
	payload, err := decodePayload(job)
	if err != nil {
		return err
	}
	transcript, err := c.contents.GetTranscript(ctx, payload.TranscriptID)
	if err != nil || transcript == nil {
		return services.Wrap(services.ErrValidation, "cleaning", "prepare",
			fmt.Sprintf("transcript %d not found", payload.TranscriptID), err)
	}
	if transcript.Status == content.TranscriptStatusCancelled {
		return services.Wrap(services.ErrValidation, "cleaning", "prepare",
			fmt.Sprintf("transcript %d is cancelled", transcript.ID), nil)
	}
	if err := c.contents.SetTranscriptStatus(ctx, transcript.ID, content.TranscriptStatusCleaning, ""); err != nil {
		return services.Wrap(services.ErrTransient, "cleaning", "prepare", "mark transcript cleaning", err)
	}
	logging.WithContext(ctx, c.logger).Info("starting transcript cleaning",
		logging.Int64("transcript_id", transcript.ID),
		logging.String("title", strings.TrimSpace(transcript.Title)))
	return nil
}

func (c *Cleaner) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, c.logger)
	payload, err := decodePayload(job)
	if err != nil {
		return err
	}
	transcript, err := c.contents.GetTranscript(ctx, payload.TranscriptID)
	if err != nil || transcript == nil {
		return services.Wrap(services.ErrValidation, "cleaning", "execute",
			fmt.Sprintf("transcript %d not found", payload.TranscriptID), err)
	}

	c.progress(ctx, job, 10, "Sending transcript to cleaner")
	result, err := c.cleaner.Clean(ctx, transcript.RawContent)
	if err != nil {
		return err
	}

	c.progress(ctx, job, 80, "Persisting cleaned transcript")
	if err := c.contents.SetTranscriptCleaned(ctx, transcript.ID, result.CleanedContent, result.WordCount); err != nil {
		return services.Wrap(services.ErrTransient, "cleaning", "execute", "persist cleaned transcript", err)
	}

	// Cancellation between claim and persist stops auto-advancement; the
	// cleaned content above is still recorded.
	current, err := c.contents.GetTranscript(ctx, transcript.ID)
	if err == nil && current != nil && current.Status == content.TranscriptStatusCancelled {
		c.progress(ctx, job, 100, "Transcript cancelled, extraction skipped")
		logger.Info("transcript cancelled, skipping extraction",
			logging.Int64("transcript_id", transcript.ID))
		return nil
	}

	c.progress(ctx, job, 90, "Queueing insight extraction")
	next, err := stage.EncodePayload(insights.Payload{TranscriptID: transcript.ID})
	if err != nil {
		return err
	}
	if _, err := c.store.Enqueue(ctx, config.QueueInsights, next, queue.EnqueueOptions{
		DedupID: fmt.Sprintf("transcript:%d", transcript.ID),
	}); err != nil {
		return services.Wrap(services.ErrTransient, "cleaning", "execute", "enqueue insight extraction", err)
	}

	c.progress(ctx, job, 100, "Transcript cleaned")
	logger.Info("transcript cleaned",
		logging.Int64("transcript_id", transcript.ID),
		logging.Int("word_count", result.WordCount))
	return nil
}

// RecordFailure marks the transcript failed once the job's retries run out.
func (c *Cleaner) RecordFailure(ctx context.Context, job *queue.Job, cause error) {
	payload, err := decodePayload(job)
	if err != nil {
		return
	}
	message := "cleaning failed"
	if cause != nil {
		message = cause.Error()
	}
	if err := c.contents.SetTranscriptStatus(ctx, payload.TranscriptID, content.TranscriptStatusFailed, message); err != nil {
		c.logger.Warn("failed to record transcript failure",
			logging.Int64("transcript_id", payload.TranscriptID), logging.Error(err))
	}
}

func (c *Cleaner) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(c.cfg.LLM.APIKey) == "" {
		return stage.Unhealthy("cleaning", "llm api key is not configured")
	}
	if err := c.contents.Health(ctx); err != nil {
		return stage.Unhealthy("cleaning", err.Error())
	}
	return stage.Healthy("cleaning")
}

func (c *Cleaner) progress(ctx context.Context, job *queue.Job, percent float64, message string) {
	if err := c.store.UpdateProgress(ctx, job.ID, percent, message); err != nil {
		c.logger.Warn("progress update failed", logging.Int64("job_id", job.ID), logging.Error(err))
	}
}

func decodePayload(job *queue.Job) (Payload, error) {
	var payload Payload
	if err := stage.DecodePayload(job, &payload); err != nil {
		return payload, err
	}
	if payload.TranscriptID <= 0 {
		return payload, services.Wrap(services.ErrValidation, "cleaning", "decode payload",
			"payload is missing a transcript id", nil)
	}
	return payload, nil
}

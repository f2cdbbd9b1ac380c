// Package insights implements the extraction stage: pulling discrete insights
// out of a cleaned transcript and parking them for human review.
package insights

import (
	"context"
	"fmt"
	"strings"

	"log/slog"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/contentai"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/llm"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
)

// Payload identifies the transcript an extraction job operates on.
type Payload struct {
	TranscriptID int64 `json:"transcript_id"`
}

// Extractor is the stage handler for the insights queue.
type Extractor struct {
	cfg       *config.Config
	store     *queue.Store
	contents  *content.Store
	extractor contentai.Extractor
	logger    *slog.Logger
}

// NewExtractor constructs the extraction stage handler using the configured LLM.
func NewExtractor(cfg *config.Config, store *queue.Store, contents *content.Store, logger *slog.Logger) *Extractor {
	service := contentai.NewService(llm.NewClient(cfg.LLM))
	return NewExtractorWithDependencies(cfg, store, contents, logger, service)
}

// NewExtractorWithDependencies allows injecting the extractor (used in tests).
func NewExtractorWithDependencies(cfg *config.Config, store *queue.Store, contents *content.Store, logger *slog.Logger, extractor contentai.Extractor) *Extractor {
	return &Extractor{
		cfg:       cfg,
		store:     store,
		contents:  contents,
		extractor: extractor,
		logger:    logging.NewComponentLogger(logger, "insights"),
	}
}

func (e *Extractor) Prepare(ctx context.Context, job *queue.Job) error {
	payload, err := decodePayload(job)
	if err != nil {
		return err
	}
	transcript, err := e.contents.GetTranscript(ctx, payload.TranscriptID)
	if err != nil || transcript == nil {
		return services.Wrap(services.ErrValidation, "insights", "prepare",
			fmt.Sprintf("transcript %d not found", payload.TranscriptID), err)
	}
	if transcript.Status == content.TranscriptStatusCancelled {
		return services.Wrap(services.ErrValidation, "insights", "prepare",
			fmt.Sprintf("transcript %d is cancelled", transcript.ID), nil)
	}
	if strings.TrimSpace(transcript.CleanedContent) == "" {
		return services.Wrap(services.ErrValidation, "insights", "prepare",
			fmt.Sprintf("transcript %d has no cleaned content; run cleaning first", transcript.ID), nil)
	}
	if err := e.contents.SetTranscriptStatus(ctx, transcript.ID, content.TranscriptStatusExtracting, ""); err != nil {
		return services.Wrap(services.ErrTransient, "insights", "prepare", "mark transcript extracting", err)
	}
	logging.WithContext(ctx, e.logger).Info("starting insight extraction",
		logging.Int64("transcript_id", transcript.ID))
	return nil
}

func (e *Extractor) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, e.logger)
	payload, err := decodePayload(job)
	if err != nil {
		return err
	}
	transcript, err := e.contents.GetTranscript(ctx, payload.TranscriptID)
	if err != nil || transcript == nil {
		return services.Wrap(services.ErrValidation, "insights", "execute",
			fmt.Sprintf("transcript %d not found", payload.TranscriptID), err)
	}

	e.progress(ctx, job, 10, "Extracting insights")
	extracted, err := e.extractor.Extract(ctx, transcript.CleanedContent)
	if err != nil {
		return err
	}

	e.progress(ctx, job, 70, "Persisting insights")
	drafts := make([]content.InsightDraft, 0, len(extracted))
	for _, insight := range extracted {
		drafts = append(drafts, content.InsightDraft{
			Title:    insight.Title,
			Body:     insight.Body,
			Category: insight.Category,
		})
	}
	if len(drafts) > 0 {
		if _, err := e.contents.InsertInsights(ctx, transcript.ID, drafts); err != nil {
			return services.Wrap(services.ErrTransient, "insights", "execute", "persist insights", err)
		}
	}
	if err := e.contents.SetTranscriptStatus(ctx, transcript.ID, content.TranscriptStatusExtracted, ""); err != nil {
		return services.Wrap(services.ErrTransient, "insights", "execute", "mark transcript extracted", err)
	}

	// Extracted insights wait for human review; nothing advances automatically.
	e.progress(ctx, job, 100, fmt.Sprintf("Extracted %d insights", len(drafts)))
	logger.Info("insight extraction completed",
		logging.Int64("transcript_id", transcript.ID),
		logging.Int("insights", len(drafts)))
	return nil
}

// RecordFailure marks the transcript failed once the job's retries run out.
func (e *Extractor) RecordFailure(ctx context.Context, job *queue.Job, cause error) {
	payload, err := decodePayload(job)
	if err != nil {
		return
	}
	message := "insight extraction failed"
	if cause != nil {
		message = cause.Error()
	}
	if err := e.contents.SetTranscriptStatus(ctx, payload.TranscriptID, content.TranscriptStatusFailed, message); err != nil {
		e.logger.Warn("failed to record transcript failure",
			logging.Int64("transcript_id", payload.TranscriptID), logging.Error(err))
	}
}

func (e *Extractor) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(e.cfg.LLM.APIKey) == "" {
		return stage.Unhealthy("insights", "llm api key is not configured")
	}
	if err := e.contents.Health(ctx); err != nil {
		return stage.Unhealthy("insights", err.Error())
	}
	return stage.Healthy("insights")
}

func (e *Extractor) progress(ctx context.Context, job *queue.Job, percent float64, message string) {
	if err := e.store.UpdateProgress(ctx, job.ID, percent, message); err != nil {
		e.logger.Warn("progress update failed", logging.Int64("job_id", job.ID), logging.Error(err))
	}
}

func decodePayload(job *queue.Job) (Payload, error) {
	var payload Payload
	if err := stage.DecodePayload(job, &payload); err != nil {
		return payload, err
	}
	if payload.TranscriptID <= 0 {
		return payload, services.Wrap(services.ErrValidation, "insights", "decode payload",
			"payload is missing a transcript id", nil)
	}
	return payload, nil
}

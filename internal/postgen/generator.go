// Package postgen implements the generation stage: turning one approved
// insight into platform-specific post drafts awaiting human review.
package postgen

import (
	"context"
	"fmt"
	"sort"
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

// Payload identifies the insight a generation job operates on.
type Payload struct {
	InsightID int64 `json:"insight_id"`
}

// Generator is the stage handler for the generation queue.
type Generator struct {
	cfg       *config.Config
	store     *queue.Store
	contents  *content.Store
	generator contentai.Generator
	logger    *slog.Logger
}

// NewGenerator constructs the generation stage handler using the configured LLM.
func NewGenerator(cfg *config.Config, store *queue.Store, contents *content.Store, logger *slog.Logger) *Generator {
	service := contentai.NewService(llm.NewClient(cfg.LLM))
	return NewGeneratorWithDependencies(cfg, store, contents, logger, service)
}

// NewGeneratorWithDependencies allows injecting the generator (used in tests).
func NewGeneratorWithDependencies(cfg *config.Config, store *queue.Store, contents *content.Store, logger *slog.Logger, generator contentai.Generator) *Generator {
	return &Generator{
		cfg:       cfg,
		store:     store,
		contents:  contents,
		generator: generator,
		logger:    logging.NewComponentLogger(logger, "postgen"),
	}
}

func (g *Generator) Prepare(ctx context.Context, job *queue.Job) error {
	payload, err := decodePayload(job)
	if err != nil {
		return err
	}
	insight, err := g.contents.GetInsight(ctx, payload.InsightID)
	if err != nil || insight == nil {
		return services.Wrap(services.ErrValidation, "postgen", "prepare",
			fmt.Sprintf("insight %d not found", payload.InsightID), err)
	}
	if insight.Status != content.ReviewApproved {
		return services.Wrap(services.ErrValidation, "postgen", "prepare",
			fmt.Sprintf("insight %d is %s; only approved insights generate posts", insight.ID, insight.Status), nil)
	}
	logging.WithContext(ctx, g.logger).Info("starting post generation",
		logging.Int64("insight_id", insight.ID),
		logging.String("category", insight.Category))
	return nil
}

func (g *Generator) Execute(ctx context.Context, job *queue.Job) error {
	logger := logging.WithContext(ctx, g.logger)
	payload, err := decodePayload(job)
	if err != nil {
		return err
	}
	insight, err := g.contents.GetInsight(ctx, payload.InsightID)
	if err != nil || insight == nil {
		return services.Wrap(services.ErrValidation, "postgen", "execute",
			fmt.Sprintf("insight %d not found", payload.InsightID), err)
	}

	platforms := g.enabledPlatforms()
	if len(platforms) == 0 {
		return services.Wrap(services.ErrConfiguration, "postgen", "execute",
			"no platforms are enabled", nil)
	}

	g.progress(ctx, job, 10, "Generating post drafts")
	drafted, err := g.generator.Generate(ctx, contentai.Insight{
		Title:    insight.Title,
		Body:     insight.Body,
		Category: insight.Category,
	}, platforms)
	if err != nil {
		return err
	}

	g.progress(ctx, job, 80, "Persisting post drafts")
	drafts := make([]content.PostDraft, 0, len(drafted))
	for _, draft := range drafted {
		drafts = append(drafts, content.PostDraft{Platform: draft.Platform, Body: draft.Body})
	}
	if _, err := g.contents.InsertPosts(ctx, insight.ID, drafts); err != nil {
		return services.Wrap(services.ErrTransient, "postgen", "execute", "persist post drafts", err)
	}

	// Drafts wait for human review; scheduling happens after approval.
	g.progress(ctx, job, 100, fmt.Sprintf("Drafted %d posts", len(drafts)))
	logger.Info("post generation completed",
		logging.Int64("insight_id", insight.ID),
		logging.Int("posts", len(drafts)))
	return nil
}

// RecordFailure marks the insight failed once the job's retries run out.
func (g *Generator) RecordFailure(ctx context.Context, job *queue.Job, cause error) {
	payload, err := decodePayload(job)
	if err != nil {
		return
	}
	message := "post generation failed"
	if cause != nil {
		message = cause.Error()
	}
	if err := g.contents.SetInsightStatus(ctx, payload.InsightID, content.ReviewFailed, message); err != nil {
		g.logger.Warn("failed to record insight failure",
			logging.Int64("insight_id", payload.InsightID), logging.Error(err))
	}
}

func (g *Generator) HealthCheck(ctx context.Context) stage.Health {
	if strings.TrimSpace(g.cfg.LLM.APIKey) == "" {
		return stage.Unhealthy("postgen", "llm api key is not configured")
	}
	if len(g.enabledPlatforms()) == 0 {
		return stage.Unhealthy("postgen", "no platforms are enabled")
	}
	if err := g.contents.Health(ctx); err != nil {
		return stage.Unhealthy("postgen", err.Error())
	}
	return stage.Healthy("postgen")
}

func (g *Generator) enabledPlatforms() []contentai.PlatformSpec {
	specs := make([]contentai.PlatformSpec, 0, len(g.cfg.Platforms))
	for name, platform := range g.cfg.Platforms {
		if !platform.Enabled {
			continue
		}
		specs = append(specs, contentai.PlatformSpec{
			Name:      strings.ToLower(name),
			MaxLength: platform.MaxContentLength,
		})
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

func (g *Generator) progress(ctx context.Context, job *queue.Job, percent float64, message string) {
	if err := g.store.UpdateProgress(ctx, job.ID, percent, message); err != nil {
		g.logger.Warn("progress update failed", logging.Int64("job_id", job.ID), logging.Error(err))
	}
}

func decodePayload(job *queue.Job) (Payload, error) {
	var payload Payload
	if err := stage.DecodePayload(job, &payload); err != nil {
		return payload, err
	}
	if payload.InsightID <= 0 {
		return payload, services.Wrap(services.ErrValidation, "postgen", "decode payload",
			"payload is missing an insight id", nil)
	}
	return payload, nil
}

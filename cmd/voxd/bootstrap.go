package main

import (
	"log/slog"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/daemon"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/pipeline"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ratelimit"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/scheduler"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/publish"
)

// buildDaemon wires the pipeline manager and the scheduled-post processor
// over the shared stores. The scheduler delivers through the same platform
// client and admission limiter the publish stage uses.
func buildDaemon(cfg *config.Config, logger *slog.Logger, store *queue.Store, contents *content.Store, schedules *scheduler.Store) (*daemon.Daemon, error) {
	stages := pipeline.DefaultStageSet(cfg, store, contents, schedules, logger)
	manager := pipeline.NewManager(cfg, store, contents, logger, stages)

	publisher := publish.NewHTTPPublisher(cfg, publish.NewConfigCredentials(cfg))
	limiter := ratelimit.New(cfg)
	processor := scheduler.NewProcessor(
		schedules,
		cfg,
		daemon.SchedulerPublishFunc(contents, publisher, limiter, logger),
		logger,
	)

	return daemon.New(cfg, logger, store, contents, schedules, manager, processor)
}

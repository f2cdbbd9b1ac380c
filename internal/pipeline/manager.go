package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"log/slog"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/cleaning"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/insights"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/postgen"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/publishing"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ratelimit"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/scheduler"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
)

// StageSet bundles the concrete stage handlers the manager orchestrates.
type StageSet struct {
	Cleaner   stage.Handler
	Extractor stage.Handler
	Generator stage.Handler
	Publisher stage.Handler
}

// DefaultStageSet wires the production handlers over the shared stores.
func DefaultStageSet(cfg *config.Config, store *queue.Store, contents *content.Store, schedules *scheduler.Store, logger *slog.Logger) StageSet {
	return StageSet{
		Cleaner:   cleaning.NewCleaner(cfg, store, contents, logger),
		Extractor: insights.NewExtractor(cfg, store, contents, logger),
		Generator: postgen.NewGenerator(cfg, store, contents, logger),
		Publisher: publishing.NewPublisher(cfg, store, contents, schedules, logger),
	}
}

func (s StageSet) byQueue() map[string]stage.Handler {
	return map[string]stage.Handler{
		config.QueueClean:    s.Cleaner,
		config.QueueInsights: s.Extractor,
		config.QueueGenerate: s.Generator,
		config.QueuePublish:  s.Publisher,
	}
}

// Manager runs the per-queue worker pools.
type Manager struct {
	cfg      *config.Config
	store    *queue.Store
	contents *content.Store
	logger   *slog.Logger
	handlers map[string]stage.Handler

	ceiling *ratelimit.Ceiling
	limiter *ratelimit.Limiter

	pollInterval      time.Duration
	errRetryInterval  time.Duration
	heartbeatInterval time.Duration

	mu        sync.RWMutex
	running   bool
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	paused    map[string]bool
	allPaused bool
	lastErr   error
}

// NewManager constructs a pipeline manager over the provided stores and stages.
func NewManager(cfg *config.Config, store *queue.Store, contents *content.Store, logger *slog.Logger, stages StageSet) *Manager {
	return &Manager{
		cfg:               cfg,
		store:             store,
		contents:          contents,
		logger:            logging.NewComponentLogger(logger, "pipeline"),
		handlers:          stages.byQueue(),
		ceiling:           ratelimit.NewCeiling(cfg.Workflow.ClaimsPerMinute),
		limiter:           ratelimit.New(cfg),
		pollInterval:      time.Duration(cfg.Workflow.QueuePollInterval) * time.Second,
		errRetryInterval:  time.Duration(cfg.Workflow.ErrorRetryInterval) * time.Second,
		heartbeatInterval: time.Duration(cfg.Workflow.HeartbeatInterval) * time.Second,
		paused:            make(map[string]bool),
	}
}

// SetPlatformLimiter replaces the publish admission limiter (used in tests).
func (m *Manager) SetPlatformLimiter(limiter *ratelimit.Limiter) {
	if limiter != nil {
		m.limiter = limiter
	}
}

// Start launches the worker pools and the lease reclaimer.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return errors.New("pipeline already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.running = true

	for _, queueName := range config.QueueNames() {
		handler := m.handlers[queueName]
		if handler == nil {
			continue
		}
		concurrency := m.cfg.QueuePolicyFor(queueName).Concurrency
		if concurrency < 1 {
			concurrency = 1
		}
		for i := 0; i < concurrency; i++ {
			m.wg.Add(1)
			go m.runWorker(runCtx, queueName)
		}
	}

	m.wg.Add(1)
	go m.runReclaimer(runCtx)
	return nil
}

// Stop terminates background processing and waits for in-flight work.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	m.wg.Wait()
}

// Running reports whether the worker pools are active.
func (m *Manager) Running() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

// LastError returns the most recent processing error, if any.
func (m *Manager) LastError() error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lastErr
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

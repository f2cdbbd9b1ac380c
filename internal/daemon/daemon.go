package daemon

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/gofrs/flock"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/pipeline"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/scheduler"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
)

// Daemon owns the background processing services.
type Daemon struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     *queue.Store
	contents  *content.Store
	schedules *scheduler.Store
	manager   *pipeline.Manager
	processor *scheduler.Processor

	lockPath string
	lock     *flock.Flock

	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Status is the daemon's runtime snapshot.
type Status struct {
	Running        bool                    `json:"running"`
	PID            int                     `json:"pid"`
	QueueStats     map[string]queue.Counts `json:"queue_stats"`
	PausedQueues   []string                `json:"paused_queues"`
	StageHealth    []stage.Health          `json:"stage_health"`
	SchedulerStats scheduler.Stats         `json:"scheduler_stats"`
	LastError      string                  `json:"last_error"`
	LockPath       string                  `json:"lock_path"`
	SocketPath     string                  `json:"socket_path"`
}

// New wires a daemon over already-opened stores and services.
func New(cfg *config.Config, logger *slog.Logger, store *queue.Store, contents *content.Store, schedules *scheduler.Store, manager *pipeline.Manager, processor *scheduler.Processor) (*Daemon, error) {
	if cfg == nil || store == nil || contents == nil || schedules == nil || manager == nil {
		return nil, errors.New("daemon requires config, stores, and pipeline manager")
	}
	lockPath := cfg.LockPath()
	return &Daemon{
		cfg:       cfg,
		logger:    logging.NewComponentLogger(logger, "daemon"),
		store:     store,
		contents:  contents,
		schedules: schedules,
		manager:   manager,
		processor: processor,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}, nil
}

// Start acquires the instance lock and launches the pipeline and scheduler.
func (d *Daemon) Start(ctx context.Context) error {
	if d.running.Load() {
		return errors.New("daemon already running")
	}

	ok, err := d.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return errors.New("another voxd instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	if err := d.manager.Start(runCtx); err != nil {
		cancel()
		_ = d.lock.Unlock()
		return fmt.Errorf("start pipeline: %w", err)
	}
	d.cancel = cancel

	if d.processor != nil {
		interval := time.Duration(d.cfg.Scheduler.IntervalMinutes) * time.Minute
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			if err := d.processor.RunContinuous(runCtx, interval); err != nil && !errors.Is(err, context.Canceled) {
				d.logger.Error("scheduler processor stopped", logging.Error(err))
			}
		}()
	}

	d.running.Store(true)
	d.logger.Info("daemon started", logging.String("lock", d.lockPath))
	return nil
}

// Stop halts background processing and releases the instance lock.
func (d *Daemon) Stop() {
	if !d.running.Load() {
		return
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.manager.Stop()
	d.wg.Wait()
	if err := d.lock.Unlock(); err != nil {
		d.logger.Warn("failed to release daemon lock", logging.Error(err))
	}
	d.running.Store(false)
	d.logger.Info("daemon stopped")
}

// Close stops processing and closes the stores.
func (d *Daemon) Close() error {
	d.Stop()
	var firstErr error
	for _, closer := range []interface{ Close() error }{d.store, d.contents, d.schedules} {
		if closer == nil {
			continue
		}
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Running reports whether background processing is active.
func (d *Daemon) Running() bool {
	return d.running.Load()
}

// Status collects the runtime snapshot served over IPC.
func (d *Daemon) Status(ctx context.Context) Status {
	status := Status{
		Running:      d.running.Load(),
		PID:          os.Getpid(),
		PausedQueues: d.manager.Paused(),
		LockPath:     d.lockPath,
		SocketPath:   d.cfg.SocketPath(),
	}
	if stats, err := d.manager.Stats(ctx); err == nil {
		status.QueueStats = stats
	}
	if stats, err := d.schedules.Stats(ctx); err == nil {
		status.SchedulerStats = stats
	}
	status.StageHealth = d.manager.HealthCheck(ctx)
	if err := d.manager.LastError(); err != nil {
		status.LastError = err.Error()
	}
	return status
}

// Manager exposes the pipeline control surface.
func (d *Daemon) Manager() *pipeline.Manager { return d.manager }

// Store exposes the job store for queue operations.
func (d *Daemon) Store() *queue.Store { return d.store }

// Contents exposes the entity store for review operations.
func (d *Daemon) Contents() *content.Store { return d.contents }

// Schedules exposes the scheduled-post store.
func (d *Daemon) Schedules() *scheduler.Store { return d.schedules }

// Processor exposes the scheduled-post processor for manual runs.
func (d *Daemon) Processor() *scheduler.Processor { return d.processor }

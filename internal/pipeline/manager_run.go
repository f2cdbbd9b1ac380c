package pipeline

import (
	"context"
	"time"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
)

func (m *Manager) runWorker(ctx context.Context, queueName string) {
	defer m.wg.Done()
	logger := m.logger.With(logging.String("queue", queueName))

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if m.isPaused(queueName) {
			m.sleep(ctx, m.pollInterval)
			continue
		}
		if !m.ceiling.Allow() {
			m.sleep(ctx, time.Second)
			continue
		}

		job, err := m.store.Claim(ctx, queueName)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.setLastError(err)
			logger.Error("claim failed", logging.Error(err))
			m.sleep(ctx, m.errRetryInterval)
			continue
		}
		if job == nil {
			m.sleep(ctx, m.pollInterval)
			continue
		}

		m.processJob(ctx, logger, job)
	}
}

// terminalRetention is how long completed and failed jobs stay queryable
// before the reclaimer sweeps them.
const terminalRetention = 7 * 24 * time.Hour

const sweepInterval = time.Hour

func (m *Manager) runReclaimer(ctx context.Context) {
	defer m.wg.Done()
	interval := m.pollInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastSweep time.Time
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		reclaimed, failed, err := m.store.ReclaimExpiredLeases(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Warn("lease reclaim failed", logging.Error(err))
			continue
		}
		if reclaimed > 0 || failed > 0 {
			m.logger.Info("reclaimed expired leases",
				logging.Int64("reclaimed", reclaimed),
				logging.Int64("failed", failed))
		}

		if time.Since(lastSweep) < sweepInterval {
			continue
		}
		lastSweep = time.Now()
		swept, err := m.store.SweepTerminal(ctx, terminalRetention)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Warn("terminal sweep failed", logging.Error(err))
			continue
		}
		if swept > 0 {
			m.logger.Info("swept terminal jobs", logging.Int64("removed", swept))
		}
	}
}

func (m *Manager) isPaused(queueName string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.allPaused || m.paused[queueName]
}

func (m *Manager) sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		d = time.Second
	}
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

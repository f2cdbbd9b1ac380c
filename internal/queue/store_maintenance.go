package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/jobstate"
)

// ReclaimExpiredLeases recovers jobs whose lease lapsed without an ack. Jobs
// with attempts remaining return to waiting; jobs on their final attempt move
// to failed. Returns the number reclaimed and the number failed.
func (s *Store) ReclaimExpiredLeases(ctx context.Context) (reclaimed, failed int64, err error) {
	now := formatTime(time.Now().UTC())

	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, error_message = 'lease expired on final attempt',
             lease_expires_at = NULL, updated_at = ?
         WHERE status = ? AND lease_expires_at IS NOT NULL AND lease_expires_at <= ?
           AND attempts_made >= max_attempts`,
		StatusFailed, now, StatusActive, now,
	)
	if err != nil {
		return 0, 0, fmt.Errorf("fail stalled jobs: %w", err)
	}
	if failed, err = res.RowsAffected(); err != nil {
		return 0, 0, fmt.Errorf("rows affected: %w", err)
	}

	res, err = s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, available_at = ?, lease_expires_at = NULL, updated_at = ?
         WHERE status = ? AND lease_expires_at IS NOT NULL AND lease_expires_at <= ?`,
		StatusWaiting, now, now, StatusActive, now,
	)
	if err != nil {
		return 0, failed, fmt.Errorf("reclaim stalled jobs: %w", err)
	}
	if reclaimed, err = res.RowsAffected(); err != nil {
		return 0, failed, fmt.Errorf("rows affected: %w", err)
	}
	return reclaimed, failed, nil
}

// Remove deletes a job by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ClearCompleted removes completed jobs across all queues.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("clear completed: %w", err)
	}
	return res.RowsAffected()
}

// ClearFailed removes failed jobs across all queues.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs WHERE status = ?`, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear failed: %w", err)
	}
	return res.RowsAffected()
}

// Clear removes all jobs from all queues.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM jobs`)
	if err != nil {
		return 0, fmt.Errorf("clear queue: %w", err)
	}
	return res.RowsAffected()
}

// SweepTerminal deletes completed and failed jobs not touched within the
// retention horizon. Active and pending jobs are never swept.
func (s *Store) SweepTerminal(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, nil
	}
	cutoff := formatTime(time.Now().UTC().Add(-olderThan))
	res, err := s.execWithRetry(
		ctx,
		`DELETE FROM jobs WHERE status IN (?, ?) AND updated_at <= ?`,
		StatusCompleted, StatusFailed, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("sweep terminal jobs: %w", err)
	}
	return res.RowsAffected()
}

// Health verifies the database responds to a trivial query.
func (s *Store) Health(ctx context.Context) error {
	var one int
	if err := s.db.QueryRowContext(ensureContext(ctx), "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("queue database health: %w", err)
	}
	return nil
}

// RetryFailed returns a failed job to the waiting state with a fresh retry
// budget. It refuses jobs in any other state.
func (s *Store) RetryFailed(ctx context.Context, id int64) error {
	job, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if job == nil {
		return fmt.Errorf("job %d is not in the failed state", id)
	}
	if err := checkTransition(job, jobstate.EventRetry); err != nil {
		return fmt.Errorf("retry: %w", err)
	}
	now := formatTime(time.Now().UTC())
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, attempts_made = 0, error_message = NULL,
             available_at = ?, lease_expires_at = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusWaiting, now, now, id, StatusFailed,
	)
	if err != nil {
		return fmt.Errorf("retry failed job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("job %d is not in the failed state", id)
	}
	return nil
}

package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/jobstate"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
)

// ErrNotActive indicates an ack, nack, or release targeted a job that is no
// longer held under a lease.
var ErrNotActive = errors.New("job is not active")

// Enqueue inserts a new job. When opts.DedupID matches a live job in the same
// queue, the existing job is returned and no new row is created.
func (s *Store) Enqueue(ctx context.Context, queueName, payload string, opts EnqueueOptions) (*Job, error) {
	if queueName == "" {
		return nil, services.Wrap(services.ErrValidation, "queue", "enqueue", "queue name is required", nil)
	}

	if opts.DedupID != "" {
		existing, err := s.FindByDedupID(ctx, queueName, opts.DedupID)
		if err != nil {
			return nil, err
		}
		if existing != nil && !existing.Status.Terminal() {
			return existing, nil
		}
	}

	maxAttempts := opts.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = s.policyFor(queueName).MaxAttempts
	}

	now := time.Now().UTC()
	available := now
	status := StatusWaiting
	if opts.Delay > 0 {
		available = now.Add(opts.Delay)
		status = StatusDelayed
	}
	timestamp := formatTime(now)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            queue_name, dedup_id, payload, priority, status,
            attempts_made, max_attempts, available_at, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(queue_name, dedup_id) WHERE dedup_id IS NOT NULL DO NOTHING`,
		queueName,
		nullableString(opts.DedupID),
		payload,
		opts.Priority,
		status,
		0,
		maxAttempts,
		formatTime(available),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 && opts.DedupID != "" {
		return s.FindByDedupID(ctx, queueName, opts.DedupID)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. Returns nil when the job does not exist.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// FindByDedupID returns the most recent job carrying a dedup id in a queue.
func (s *Store) FindByDedupID(ctx context.Context, queueName, dedupID string) (*Job, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE queue_name = ? AND dedup_id = ? ORDER BY id DESC LIMIT 1`,
		queueName,
		dedupID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find by dedup id: %w", err)
	}
	return job, nil
}

// Claim atomically takes the next due job from a queue and places it under a
// lease. It returns nil when no job is due. The claim counts one attempt.
func (s *Store) Claim(ctx context.Context, queueName string) (*Job, error) {
	ctx = ensureContext(ctx)
	now := time.Now().UTC()
	nowStr := formatTime(now)
	lease := formatTime(now.Add(s.leaseTimeout))

	// A lost race on the conditional update means another worker took the
	// candidate; pick the next one.
	for tries := 0; tries < 3; tries++ {
		row := s.db.QueryRowContext(
			ctx,
			`SELECT id FROM jobs
             WHERE queue_name = ? AND status IN (?, ?) AND available_at <= ?
             ORDER BY priority DESC, available_at ASC, id ASC
             LIMIT 1`,
			queueName, StatusWaiting, StatusDelayed, nowStr,
		)
		var id int64
		if err := row.Scan(&id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			return nil, fmt.Errorf("select claim candidate: %w", err)
		}

		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs
             SET status = ?, attempts_made = attempts_made + 1,
                 lease_expires_at = ?, last_heartbeat = ?, updated_at = ?
             WHERE id = ? AND status IN (?, ?)`,
			StatusActive, lease, nowStr, nowStr,
			id, StatusWaiting, StatusDelayed,
		)
		if err != nil {
			return nil, fmt.Errorf("claim job: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		}
		if affected == 1 {
			return s.GetByID(ctx, id)
		}
	}
	return nil, nil
}

// Ack marks an active job completed and records its result.
func (s *Store) Ack(ctx context.Context, job *Job, resultJSON string) error {
	if job == nil {
		return errors.New("job is nil")
	}
	if err := checkTransition(job, jobstate.EventComplete); err != nil {
		return fmt.Errorf("ack: %w", err)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, result_json = ?, progress_percent = 100,
             lease_expires_at = NULL, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusCompleted, nullableString(resultJSON), formatTime(time.Now().UTC()),
		job.ID, StatusActive,
	)
	if err != nil {
		return fmt.Errorf("ack job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("ack job %d: %w", job.ID, ErrNotActive)
	}
	return nil
}

// Nack records a failed attempt. Retryable errors park the job in the delayed
// state with exponential backoff; non-retryable errors and exhausted budgets
// move it to failed with attempts forced to the maximum. The refreshed job is
// returned so callers can inspect the outcome.
func (s *Store) Nack(ctx context.Context, job *Job, cause error) (*Job, error) {
	if job == nil {
		return nil, errors.New("job is nil")
	}
	if err := checkTransition(job, jobstate.EventFail); err != nil {
		return nil, fmt.Errorf("nack: %w", err)
	}
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	now := time.Now().UTC()
	nowStr := formatTime(now)

	exhausted := job.AttemptsMade >= job.MaxAttempts
	if cause != nil && !services.Retryable(cause) {
		exhausted = true
	}

	if exhausted {
		res, err := s.execWithRetry(
			ctx,
			`UPDATE jobs
             SET status = ?, attempts_made = max_attempts, error_message = ?,
                 lease_expires_at = NULL, updated_at = ?
             WHERE id = ? AND status = ?`,
			StatusFailed, nullableString(message), nowStr,
			job.ID, StatusActive,
		)
		if err != nil {
			return nil, fmt.Errorf("fail job: %w", err)
		}
		if affected, err := res.RowsAffected(); err != nil {
			return nil, fmt.Errorf("rows affected: %w", err)
		} else if affected == 0 {
			return nil, fmt.Errorf("fail job %d: %w", job.ID, ErrNotActive)
		}
		return s.GetByID(ctx, job.ID)
	}

	policy := s.policyFor(job.Queue)
	delay := jobstate.Backoff(
		job.AttemptsMade,
		time.Duration(policy.BackoffBaseSeconds)*time.Second,
		time.Duration(policy.BackoffMaxSeconds)*time.Second,
	)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, available_at = ?, error_message = ?,
             lease_expires_at = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusDelayed, formatTime(now.Add(delay)), nullableString(message), nowStr,
		job.ID, StatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("nack job: %w", err)
	}
	if affected, err := res.RowsAffected(); err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	} else if affected == 0 {
		return nil, fmt.Errorf("nack job %d: %w", job.ID, ErrNotActive)
	}
	return s.GetByID(ctx, job.ID)
}

// Release returns an active job to the delayed state without consuming the
// attempt that claimed it. Used when admission control defers a job.
func (s *Store) Release(ctx context.Context, job *Job, delay time.Duration) error {
	if job == nil {
		return errors.New("job is nil")
	}
	// A release ends the attempt without a result; attempt-ending events are
	// only legal while the job is processing.
	if err := checkTransition(job, jobstate.EventFail); err != nil {
		return fmt.Errorf("release: %w", err)
	}
	if delay < 0 {
		delay = 0
	}
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET status = ?, available_at = ?,
             attempts_made = CASE WHEN attempts_made > 0 THEN attempts_made - 1 ELSE 0 END,
             lease_expires_at = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusDelayed, formatTime(now.Add(delay)), formatTime(now),
		job.ID, StatusActive,
	)
	if err != nil {
		return fmt.Errorf("release job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("release job %d: %w", job.ID, ErrNotActive)
	}
	return nil
}

// RenewLease extends the lease on an active job and records a heartbeat.
func (s *Store) RenewLease(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs
         SET lease_expires_at = ?, last_heartbeat = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		formatTime(now.Add(s.leaseTimeout)), formatTime(now), formatTime(now),
		id, StatusActive,
	)
	if err != nil {
		return fmt.Errorf("renew lease: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("renew lease for job %d: %w", id, ErrNotActive)
	}
	return nil
}

// UpdateProgress records a coarse progress milestone on an active job.
func (s *Store) UpdateProgress(ctx context.Context, id int64, percent float64, message string) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return s.execWithoutResultRetry(
		ctx,
		`UPDATE jobs
         SET progress_percent = MAX(progress_percent, ?), progress_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		percent, nullableString(message), formatTime(time.Now().UTC()),
		id, StatusActive,
	)
}

// Counts summarizes one queue by status.
func (s *Store) Counts(ctx context.Context, queueName string) (Counts, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT status, COUNT(1) FROM jobs WHERE queue_name = ? GROUP BY status`,
		queueName,
	)
	if err != nil {
		return Counts{}, fmt.Errorf("count jobs: %w", err)
	}
	defer rows.Close()

	var counts Counts
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return Counts{}, fmt.Errorf("scan counts: %w", err)
		}
		switch Status(status) {
		case StatusWaiting:
			counts.Waiting = n
		case StatusActive:
			counts.Active = n
		case StatusCompleted:
			counts.Completed = n
		case StatusFailed:
			counts.Failed = n
		case StatusDelayed:
			counts.Delayed = n
		}
	}
	return counts, rows.Err()
}

// List returns jobs in a queue filtered by status set (or all jobs in the
// queue when no status is provided), oldest first.
func (s *Store) List(ctx context.Context, queueName string, statuses ...Status) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE queue_name = ?`
	args := []any{queueName}
	if len(statuses) > 0 {
		query += ` AND status IN (`
		for i, status := range statuses {
			if i > 0 {
				query += `,`
			}
			query += `?`
			args = append(args, status)
		}
		query += `)`
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

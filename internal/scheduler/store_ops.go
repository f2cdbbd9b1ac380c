package scheduler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
)

const postColumns = "id, post_id, platform, content, scheduled_time, status, retry_count, error_message, metadata_json, created_at, updated_at"

// Schedule persists a publish intent. The scheduled time must be strictly in
// the future, content must be non-empty, and content must fit the platform's
// length ceiling when one is configured.
func (s *Store) Schedule(ctx context.Context, req ScheduleRequest) (int64, error) {
	platform := strings.ToLower(strings.TrimSpace(req.Platform))
	if platform == "" {
		return 0, services.Wrap(services.ErrValidation, "scheduler", "schedule", "platform is required", nil)
	}
	if strings.TrimSpace(req.Content) == "" {
		return 0, services.Wrap(services.ErrValidation, "scheduler", "schedule", "content is empty", nil)
	}
	if !req.ScheduledTime.After(s.now()) {
		return 0, services.Wrap(services.ErrValidation, "scheduler", "schedule", "scheduled time must be in the future", nil)
	}
	if settings, ok := s.cfg.PlatformFor(platform); ok && settings.MaxContentLength > 0 {
		if length := len([]rune(req.Content)); length > settings.MaxContentLength {
			return 0, services.Wrap(services.ErrValidation, "scheduler", "schedule",
				fmt.Sprintf("content length %d exceeds %s ceiling %d", length, platform, settings.MaxContentLength), nil)
		}
	}

	metadataJSON := ""
	if len(req.Metadata) > 0 {
		encoded, err := json.Marshal(req.Metadata)
		if err != nil {
			return 0, fmt.Errorf("marshal metadata: %w", err)
		}
		metadataJSON = string(encoded)
	}

	now := formatTime(s.now())
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO scheduled_posts (post_id, platform, content, scheduled_time, status, created_at, updated_at, metadata_json)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.PostID, platform, req.Content, formatTime(req.ScheduledTime), StatusPending, now, now, nullableString(metadataJSON),
	)
	if err != nil {
		if req.PostID > 0 && strings.Contains(err.Error(), "UNIQUE") {
			return 0, services.Wrap(services.ErrValidation, "scheduler", "schedule",
				fmt.Sprintf("post %d already has a pending scheduled delivery", req.PostID), err)
		}
		return 0, fmt.Errorf("insert scheduled post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetByID fetches a scheduled post by identifier. Returns nil when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*ScheduledPost, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM scheduled_posts WHERE id = ?`, id)
	post, err := scanScheduledPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get scheduled post: %w", err)
	}
	return post, nil
}

// GetReady returns due pending rows with retries remaining, earliest-due
// first. The ordering determines publish order under contention.
func (s *Store) GetReady(ctx context.Context, limit int) ([]*ScheduledPost, error) {
	if limit <= 0 {
		limit = s.cfg.Scheduler.BatchSize
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+postColumns+` FROM scheduled_posts
         WHERE status = ? AND scheduled_time <= ? AND retry_count < ?
         ORDER BY scheduled_time ASC, id ASC
         LIMIT ?`,
		StatusPending, formatTime(s.now()), s.maxRetries, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("get ready: %w", err)
	}
	defer rows.Close()
	return collectScheduledPosts(rows)
}

// MarkPublished moves a row to published. Calling it again for an already
// published row is a no-op.
func (s *Store) MarkPublished(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE scheduled_posts
         SET status = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND status != ?`,
		StatusPublished, formatTime(s.now()), id, StatusPublished,
	)
	if err != nil {
		return fmt.Errorf("mark published: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		post, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if post == nil {
			return services.Wrap(services.ErrNotFound, "scheduler", "mark-published", fmt.Sprintf("scheduled post %d not found", id), nil)
		}
	}
	return nil
}

// MarkFailed records a terminal failure with its reason.
func (s *Store) MarkFailed(ctx context.Context, id int64, reason string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE scheduled_posts SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		StatusFailed, nullableString(reason), formatTime(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "scheduler", "mark-failed", fmt.Sprintf("scheduled post %d not found", id), nil)
	}
	return nil
}

// Retry increments the retry ledger in one atomic statement. Reaching the
// retry cap forces status failed with reason "max retries reached" instead of
// re-queuing; concurrent callers cannot push the count past the cap.
func (s *Store) Retry(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE scheduled_posts
         SET retry_count = retry_count + 1,
             status = CASE WHEN retry_count + 1 >= ? THEN ? ELSE ? END,
             error_message = CASE WHEN retry_count + 1 >= ? THEN 'max retries reached' ELSE error_message END,
             updated_at = ?
         WHERE id = ? AND status = ? AND retry_count < ?`,
		s.maxRetries, StatusFailed, StatusPending,
		s.maxRetries,
		formatTime(s.now()),
		id, StatusPending, s.maxRetries,
	)
	if err != nil {
		return fmt.Errorf("retry scheduled post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		post, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if post == nil {
			return services.Wrap(services.ErrNotFound, "scheduler", "retry", fmt.Sprintf("scheduled post %d not found", id), nil)
		}
		return services.Wrap(services.ErrValidation, "scheduler", "retry",
			fmt.Sprintf("scheduled post %d is %s with %d retries, not retryable", id, post.Status, post.RetryCount), nil)
	}
	return nil
}

// Defer pushes a pending row's delivery out past the wait without touching
// its retry ledger. Admission throttling is deferral, never a failed attempt.
func (s *Store) Defer(ctx context.Context, id int64, wait time.Duration) error {
	if wait <= 0 {
		wait = time.Minute
	}
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE scheduled_posts SET scheduled_time = ?, updated_at = ? WHERE id = ? AND status = ?`,
		formatTime(s.now().Add(wait)), formatTime(s.now()), id, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("defer scheduled post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		post, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if post == nil {
			return services.Wrap(services.ErrNotFound, "scheduler", "defer", fmt.Sprintf("scheduled post %d not found", id), nil)
		}
		return services.Wrap(services.ErrValidation, "scheduler", "defer",
			fmt.Sprintf("scheduled post %d is %s, only pending posts can be deferred", id, post.Status), nil)
	}
	return nil
}

// Cancel withdraws a pending intent. Only pending rows can be cancelled.
func (s *Store) Cancel(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE scheduled_posts SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		StatusCancelled, formatTime(s.now()), id, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("cancel scheduled post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		post, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if post == nil {
			return services.Wrap(services.ErrNotFound, "scheduler", "cancel", fmt.Sprintf("scheduled post %d not found", id), nil)
		}
		return services.Wrap(services.ErrValidation, "scheduler", "cancel",
			fmt.Sprintf("scheduled post %d is %s, only pending posts can be cancelled", id, post.Status), nil)
	}
	return nil
}

// Remove deletes a row by identifier.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_posts WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove scheduled post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// List returns scheduled posts, optionally filtered by status, due first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*ScheduledPost, error) {
	query := `SELECT ` + postColumns + ` FROM scheduled_posts`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (`
		for i, status := range statuses {
			if i > 0 {
				query += `,`
			}
			query += `?`
			args = append(args, status)
		}
		query += `)`
	}
	query += ` ORDER BY scheduled_time ASC, id ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list scheduled posts: %w", err)
	}
	defer rows.Close()
	return collectScheduledPosts(rows)
}

// Stats summarizes scheduled posts by status.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM scheduled_posts GROUP BY status`)
	if err != nil {
		return Stats{}, fmt.Errorf("scheduler stats: %w", err)
	}
	defer rows.Close()

	var stats Stats
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return Stats{}, fmt.Errorf("scan stats: %w", err)
		}
		switch Status(status) {
		case StatusPending:
			stats.Pending = n
		case StatusPublished:
			stats.Published = n
		case StatusFailed:
			stats.Failed = n
		case StatusCancelled:
			stats.Cancelled = n
		}
	}
	return stats, rows.Err()
}

func collectScheduledPosts(rows *sql.Rows) ([]*ScheduledPost, error) {
	var posts []*ScheduledPost
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func scanScheduledPost(scanner interface{ Scan(dest ...any) error }) (*ScheduledPost, error) {
	var (
		id           int64
		postID       int64
		platform     string
		contentBody  string
		scheduledRaw string
		statusStr    string
		retryCount   int
		errorMessage sql.NullString
		metadata     sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&id, &postID, &platform, &contentBody, &scheduledRaw, &statusStr, &retryCount, &errorMessage, &metadata, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	post := &ScheduledPost{
		ID:           id,
		PostID:       postID,
		Platform:     platform,
		Content:      contentBody,
		Status:       Status(statusStr),
		RetryCount:   retryCount,
		ErrorMessage: errorMessage.String,
		MetadataJSON: metadata.String,
	}
	if scheduled, err := parseTimeString(scheduledRaw); err == nil {
		post.ScheduledTime = scheduled
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		post.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		post.UpdatedAt = updated
	}
	return post, nil
}

package content

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
)

const postColumns = "id, insight_id, platform, body, status, external_post_id, error_message, created_at, updated_at"

// InsertPosts persists generator output for an insight in one transaction.
func (s *Store) InsertPosts(ctx context.Context, insightID int64, drafts []PostDraft) ([]*Post, error) {
	if len(drafts) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin posts tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := formatTime(time.Now())
	ids := make([]int64, 0, len(drafts))
	for _, draft := range drafts {
		platform := strings.ToLower(strings.TrimSpace(draft.Platform))
		if platform == "" {
			return nil, services.Wrap(services.ErrValidation, "content", "insert-posts", "post platform is empty", nil)
		}
		if strings.TrimSpace(draft.Body) == "" {
			return nil, services.Wrap(services.ErrValidation, "content", "insert-posts", "post body is empty", nil)
		}
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO posts (insight_id, platform, body, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?)`,
			insightID, platform, draft.Body, PostStatusPendingReview, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert post: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit posts: %w", err)
	}

	posts := make([]*Post, 0, len(ids))
	for _, id := range ids {
		post, err := s.GetPost(ctx, id)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, nil
}

// GetPost fetches a post by identifier. Returns nil when absent.
func (s *Store) GetPost(ctx context.Context, id int64) (*Post, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+postColumns+` FROM posts WHERE id = ?`, id)
	post, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get post: %w", err)
	}
	return post, nil
}

// PostsByInsight returns the posts generated from an insight.
func (s *Store) PostsByInsight(ctx context.Context, insightID int64) ([]*Post, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+postColumns+` FROM posts WHERE insight_id = ? ORDER BY id`,
		insightID,
	)
	if err != nil {
		return nil, fmt.Errorf("posts by insight: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

// PostsByStatus returns posts in one lifecycle state, oldest first.
func (s *Store) PostsByStatus(ctx context.Context, status PostStatus) ([]*Post, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+postColumns+` FROM posts WHERE status = ? ORDER BY created_at, id`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("posts by status: %w", err)
	}
	defer rows.Close()
	return collectPosts(rows)
}

// ApprovePost moves a pending post through its review gate.
func (s *Store) ApprovePost(ctx context.Context, id int64) error {
	return s.transitionPost(ctx, id, PostStatusPendingReview, PostStatusApproved, "")
}

// RejectPost records a reviewer rejection of a pending post.
func (s *Store) RejectPost(ctx context.Context, id int64) error {
	return s.transitionPost(ctx, id, PostStatusPendingReview, PostStatusRejected, "")
}

// MarkPostScheduled records that an approved post now has an active schedule
// entry. Only approved posts can be scheduled.
func (s *Store) MarkPostScheduled(ctx context.Context, id int64) error {
	return s.transitionPost(ctx, id, PostStatusApproved, PostStatusScheduled, "")
}

// MarkPostUnscheduled returns a scheduled post to approved when its schedule
// entry is cancelled.
func (s *Store) MarkPostUnscheduled(ctx context.Context, id int64) error {
	return s.transitionPost(ctx, id, PostStatusScheduled, PostStatusApproved, "")
}

func (s *Store) transitionPost(ctx context.Context, id int64, from, to PostStatus, errorMessage string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE posts SET status = ?, error_message = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, nullableString(errorMessage), formatTime(time.Now()), id, from,
	)
	if err != nil {
		return fmt.Errorf("transition post: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		post, err := s.GetPost(ctx, id)
		if err != nil {
			return err
		}
		if post == nil {
			return services.Wrap(services.ErrNotFound, "content", "transition-post", fmt.Sprintf("post %d not found", id), nil)
		}
		return services.Wrap(services.ErrValidation, "content", "transition-post",
			fmt.Sprintf("post %d is %s, expected %s", id, post.Status, from), nil)
	}
	return nil
}

// MarkPostPublished records the platform's post identifier and moves the post
// to published. Calling it again for an already published post is a no-op.
func (s *Store) MarkPostPublished(ctx context.Context, id int64, externalPostID string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE posts
         SET status = ?, external_post_id = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND status != ?`,
		PostStatusPublished, nullableString(externalPostID), formatTime(time.Now()), id, PostStatusPublished,
	)
	if err != nil {
		return fmt.Errorf("mark post published: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		post, err := s.GetPost(ctx, id)
		if err != nil {
			return err
		}
		if post == nil {
			return services.Wrap(services.ErrNotFound, "content", "mark-post-published", fmt.Sprintf("post %d not found", id), nil)
		}
	}
	return nil
}

// SetPostStatus records a processing outcome on a post regardless of its
// current state. Used for final-attempt failures.
func (s *Store) SetPostStatus(ctx context.Context, id int64, status PostStatus, errorMessage string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE posts SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, nullableString(errorMessage), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set post status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "content", "set-post-status", fmt.Sprintf("post %d not found", id), nil)
	}
	return nil
}

func collectPosts(rows *sql.Rows) ([]*Post, error) {
	var posts []*Post
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func scanPost(scanner interface{ Scan(dest ...any) error }) (*Post, error) {
	var (
		id           int64
		insightID    int64
		platform     string
		body         string
		statusStr    string
		externalID   sql.NullString
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&id, &insightID, &platform, &body, &statusStr, &externalID, &errorMessage, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	post := &Post{
		ID:             id,
		InsightID:      insightID,
		Platform:       platform,
		Body:           body,
		Status:         PostStatus(statusStr),
		ExternalPostID: externalID.String,
		ErrorMessage:   errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		post.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		post.UpdatedAt = updated
	}
	return post, nil
}

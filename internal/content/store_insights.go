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

const insightColumns = "id, transcript_id, title, body, category, status, error_message, created_at, updated_at"

// InsertInsights persists extractor output for a transcript in one
// transaction. Existing insights for the transcript are left untouched;
// callers use InsightsByTranscript first to keep re-runs idempotent.
func (s *Store) InsertInsights(ctx context.Context, transcriptID int64, drafts []InsightDraft) ([]*Insight, error) {
	if len(drafts) == 0 {
		return nil, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin insights tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := formatTime(time.Now())
	ids := make([]int64, 0, len(drafts))
	for _, draft := range drafts {
		if strings.TrimSpace(draft.Body) == "" {
			return nil, services.Wrap(services.ErrValidation, "content", "insert-insights", "insight body is empty", nil)
		}
		res, err := tx.ExecContext(
			ctx,
			`INSERT INTO insights (transcript_id, title, body, category, status, created_at, updated_at)
             VALUES (?, ?, ?, ?, ?, ?, ?)`,
			transcriptID, draft.Title, draft.Body, nullableString(draft.Category), ReviewPending, now, now,
		)
		if err != nil {
			return nil, fmt.Errorf("insert insight: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return nil, fmt.Errorf("last insert id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit insights: %w", err)
	}

	insights := make([]*Insight, 0, len(ids))
	for _, id := range ids {
		insight, err := s.GetInsight(ctx, id)
		if err != nil {
			return nil, err
		}
		insights = append(insights, insight)
	}
	return insights, nil
}

// GetInsight fetches an insight by identifier. Returns nil when absent.
func (s *Store) GetInsight(ctx context.Context, id int64) (*Insight, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+insightColumns+` FROM insights WHERE id = ?`, id)
	insight, err := scanInsight(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get insight: %w", err)
	}
	return insight, nil
}

// InsightsByTranscript returns all insights extracted from a transcript.
func (s *Store) InsightsByTranscript(ctx context.Context, transcriptID int64) ([]*Insight, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+insightColumns+` FROM insights WHERE transcript_id = ? ORDER BY id`,
		transcriptID,
	)
	if err != nil {
		return nil, fmt.Errorf("insights by transcript: %w", err)
	}
	defer rows.Close()
	return collectInsights(rows)
}

// InsightsByStatus returns insights in a review state, oldest first.
func (s *Store) InsightsByStatus(ctx context.Context, status ReviewStatus) ([]*Insight, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+insightColumns+` FROM insights WHERE status = ? ORDER BY created_at, id`,
		status,
	)
	if err != nil {
		return nil, fmt.Errorf("insights by status: %w", err)
	}
	defer rows.Close()
	return collectInsights(rows)
}

// ApproveInsight moves a pending insight through its review gate.
func (s *Store) ApproveInsight(ctx context.Context, id int64) error {
	return s.reviewInsight(ctx, id, ReviewApproved)
}

// RejectInsight records a reviewer rejection of a pending insight.
func (s *Store) RejectInsight(ctx context.Context, id int64) error {
	return s.reviewInsight(ctx, id, ReviewRejected)
}

func (s *Store) reviewInsight(ctx context.Context, id int64, status ReviewStatus) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE insights SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		status, formatTime(time.Now()), id, ReviewPending,
	)
	if err != nil {
		return fmt.Errorf("review insight: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		insight, err := s.GetInsight(ctx, id)
		if err != nil {
			return err
		}
		if insight == nil {
			return services.Wrap(services.ErrNotFound, "content", "review-insight", fmt.Sprintf("insight %d not found", id), nil)
		}
		return services.Wrap(services.ErrValidation, "content", "review-insight",
			fmt.Sprintf("insight %d is %s, only pending insights can be reviewed", id, insight.Status), nil)
	}
	return nil
}

// SetInsightStatus records a terminal processing outcome on an insight.
func (s *Store) SetInsightStatus(ctx context.Context, id int64, status ReviewStatus, errorMessage string) error {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE insights SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		status, nullableString(errorMessage), formatTime(time.Now()), id,
	)
	if err != nil {
		return fmt.Errorf("set insight status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "content", "set-insight-status", fmt.Sprintf("insight %d not found", id), nil)
	}
	return nil
}

func collectInsights(rows *sql.Rows) ([]*Insight, error) {
	var insights []*Insight
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, err
		}
		insights = append(insights, insight)
	}
	return insights, rows.Err()
}

func scanInsight(scanner interface{ Scan(dest ...any) error }) (*Insight, error) {
	var (
		id           int64
		transcriptID int64
		title        string
		body         string
		category     sql.NullString
		statusStr    string
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&id, &transcriptID, &title, &body, &category, &statusStr, &errorMessage, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	insight := &Insight{
		ID:           id,
		TranscriptID: transcriptID,
		Title:        title,
		Body:         body,
		Category:     category.String,
		Status:       ReviewStatus(statusStr),
		ErrorMessage: errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		insight.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		insight.UpdatedAt = updated
	}
	return insight, nil
}

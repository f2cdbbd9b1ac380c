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

const transcriptColumns = "id, title, raw_content, cleaned_content, word_count, status, error_message, created_at, updated_at"

// CreateTranscript inserts raw transcript content awaiting cleaning.
func (s *Store) CreateTranscript(ctx context.Context, title, rawContent string) (*Transcript, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, services.Wrap(services.ErrValidation, "content", "create-transcript", "title is required", nil)
	}
	if strings.TrimSpace(rawContent) == "" {
		return nil, services.Wrap(services.ErrValidation, "content", "create-transcript", "raw content is empty", nil)
	}

	now := formatTime(time.Now())
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO transcripts (title, raw_content, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)`,
		title, rawContent, TranscriptStatusRaw, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert transcript: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetTranscript(ctx, id)
}

// GetTranscript fetches a transcript by identifier. Returns nil when absent.
func (s *Store) GetTranscript(ctx context.Context, id int64) (*Transcript, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transcriptColumns+` FROM transcripts WHERE id = ?`, id)
	transcript, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get transcript: %w", err)
	}
	return transcript, nil
}

// ListTranscripts returns transcripts, optionally filtered by status.
func (s *Store) ListTranscripts(ctx context.Context, statuses ...TranscriptStatus) ([]*Transcript, error) {
	query := `SELECT ` + transcriptColumns + ` FROM transcripts`
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
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []*Transcript
	for rows.Next() {
		transcript, err := scanTranscript(rows)
		if err != nil {
			return nil, err
		}
		transcripts = append(transcripts, transcript)
	}
	return transcripts, rows.Err()
}

// SetTranscriptCleaned stores the cleaner output and advances the status.
// Cancelled transcripts keep the cleaned content but stay cancelled.
func (s *Store) SetTranscriptCleaned(ctx context.Context, id int64, cleaned string, wordCount int) error {
	return s.updateTranscript(ctx, id,
		`UPDATE transcripts
         SET cleaned_content = ?, word_count = ?,
             status = CASE WHEN status = ? THEN status ELSE ? END,
             error_message = NULL, updated_at = ?
         WHERE id = ?`,
		cleaned, wordCount, TranscriptStatusCancelled, TranscriptStatusCleaned, formatTime(time.Now()), id,
	)
}

// SetTranscriptStatus moves a transcript to the given status, optionally
// recording an error message for failed states. Cancelled transcripts are
// left untouched; only CancelTranscript sets or clears that state.
func (s *Store) SetTranscriptStatus(ctx context.Context, id int64, status TranscriptStatus, errorMessage string) error {
	return s.updateTranscript(ctx, id,
		`UPDATE transcripts SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status != ?`,
		status, nullableString(errorMessage), formatTime(time.Now()), id, TranscriptStatusCancelled,
	)
}

// CancelTranscript marks a transcript cancelled so no further stage advances it.
func (s *Store) CancelTranscript(ctx context.Context, id int64) error {
	return s.updateTranscript(ctx, id,
		`UPDATE transcripts SET status = ?, updated_at = ? WHERE id = ?`,
		TranscriptStatusCancelled, formatTime(time.Now()), id,
	)
}

func (s *Store) updateTranscript(ctx context.Context, id int64, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update transcript: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		existing, getErr := s.GetTranscript(ctx, id)
		if getErr == nil && existing != nil {
			// Guarded update skipped a cancelled transcript.
			return nil
		}
		return services.Wrap(services.ErrNotFound, "content", "update-transcript", fmt.Sprintf("transcript %d not found", id), nil)
	}
	return nil
}

func scanTranscript(scanner interface{ Scan(dest ...any) error }) (*Transcript, error) {
	var (
		id           int64
		title        string
		rawContent   string
		cleaned      sql.NullString
		wordCount    int
		statusStr    string
		errorMessage sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(&id, &title, &rawContent, &cleaned, &wordCount, &statusStr, &errorMessage, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	transcript := &Transcript{
		ID:             id,
		Title:          title,
		RawContent:     rawContent,
		CleanedContent: cleaned.String,
		WordCount:      wordCount,
		Status:         TranscriptStatus(statusStr),
		ErrorMessage:   errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		transcript.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		transcript.UpdatedAt = updated
	}
	return transcript, nil
}

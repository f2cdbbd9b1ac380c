package queue

import (
	"database/sql"
	"errors"
	"time"
)

const jobColumns = "id, queue_name, dedup_id, payload, priority, status, attempts_made, max_attempts, available_at, lease_expires_at, last_heartbeat, error_message, result_json, progress_percent, progress_message, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id              int64
		queueName       string
		dedupID         sql.NullString
		payload         string
		priority        int
		statusStr       string
		attemptsMade    int
		maxAttempts     int
		availableRaw    sql.NullString
		leaseRaw        sql.NullString
		heartbeatRaw    sql.NullString
		errorMessage    sql.NullString
		resultJSON      sql.NullString
		progressPercent sql.NullFloat64
		progressMessage sql.NullString
		createdRaw      sql.NullString
		updatedRaw      sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&queueName,
		&dedupID,
		&payload,
		&priority,
		&statusStr,
		&attemptsMade,
		&maxAttempts,
		&availableRaw,
		&leaseRaw,
		&heartbeatRaw,
		&errorMessage,
		&resultJSON,
		&progressPercent,
		&progressMessage,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		Queue:        queueName,
		DedupID:      dedupID.String,
		Payload:      payload,
		Priority:     priority,
		Status:       Status(statusStr),
		AttemptsMade: attemptsMade,
		MaxAttempts:  maxAttempts,
		ErrorMessage: errorMessage.String,
		ResultJSON:   resultJSON.String,
		ProgressPct:  progressPercent.Float64,
		ProgressMsg:  progressMessage.String,
	}

	if available, err := parseTimeString(availableRaw.String); err == nil {
		job.AvailableAt = available
	}
	if leaseRaw.Valid {
		if lease, err := parseTimeString(leaseRaw.String); err == nil {
			job.LeaseExpiresAt = &lease
		}
	}
	if heartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(heartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

package queue

import (
	"time"
)

// Status identifies where a job sits in its queue lifecycle.
type Status string

const (
	// StatusWaiting marks jobs eligible for an immediate claim.
	StatusWaiting Status = "waiting"
	// StatusDelayed marks jobs parked until available_at passes.
	StatusDelayed Status = "delayed"
	// StatusActive marks jobs held under a worker lease.
	StatusActive Status = "active"
	// StatusCompleted marks jobs acked with a successful result.
	StatusCompleted Status = "completed"
	// StatusFailed marks jobs whose attempt budget is exhausted.
	StatusFailed Status = "failed"
)

// Terminal reports whether the status permits no further processing.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one queued unit of stage work.
type Job struct {
	ID             int64
	Queue          string
	DedupID        string
	Payload        string
	Priority       int
	Status         Status
	AttemptsMade   int
	MaxAttempts    int
	AvailableAt    time.Time
	LeaseExpiresAt *time.Time
	LastHeartbeat  *time.Time
	ErrorMessage   string
	ResultJSON     string
	ProgressPct    float64
	ProgressMsg    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EnqueueOptions tune a single enqueue call. Zero values mean: no delay,
// default priority, no dedup id, queue-policy attempt budget.
type EnqueueOptions struct {
	Delay       time.Duration
	Priority    int
	DedupID     string
	MaxAttempts int
}

// Counts summarizes a queue by status.
type Counts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
}

// Total returns the number of jobs across all states.
func (c Counts) Total() int64 {
	return c.Waiting + c.Active + c.Completed + c.Failed + c.Delayed
}

package scheduler

import "time"

// Status tracks a scheduled post's lifecycle.
type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// ScheduledPost is a persisted intent to publish content on a platform at a
// specific future time.
type ScheduledPost struct {
	ID            int64
	PostID        int64
	Platform      string
	Content       string
	ScheduledTime time.Time
	Status        Status
	RetryCount    int
	ErrorMessage  string
	MetadataJSON  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ScheduleRequest carries the inputs to Schedule. PostID is optional and
// links the intent back to a generated post draft.
type ScheduleRequest struct {
	PostID        int64
	Platform      string
	Content       string
	ScheduledTime time.Time
	Metadata      map[string]string
}

// Stats summarizes scheduled posts by status.
type Stats struct {
	Pending   int64 `json:"pending"`
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}

package content

import "time"

// TranscriptStatus tracks a transcript through the pipeline.
type TranscriptStatus string

const (
	TranscriptStatusRaw        TranscriptStatus = "raw"
	TranscriptStatusCleaning   TranscriptStatus = "cleaning"
	TranscriptStatusCleaned    TranscriptStatus = "cleaned"
	TranscriptStatusExtracting TranscriptStatus = "extracting"
	TranscriptStatusExtracted  TranscriptStatus = "extracted"
	TranscriptStatusFailed     TranscriptStatus = "failed"
	TranscriptStatusCancelled  TranscriptStatus = "cancelled"
)

// ReviewStatus tracks an entity through its human-review gate.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending_review"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
	ReviewFailed   ReviewStatus = "failed"
)

// PostStatus tracks a generated post from draft to published.
type PostStatus string

const (
	PostStatusPendingReview PostStatus = "pending_review"
	PostStatusApproved      PostStatus = "approved"
	PostStatusRejected      PostStatus = "rejected"
	PostStatusScheduled     PostStatus = "scheduled"
	PostStatusPublished     PostStatus = "published"
	PostStatusFailed        PostStatus = "failed"
)

// Transcript is raw spoken-word content awaiting processing.
type Transcript struct {
	ID             int64
	Title          string
	RawContent     string
	CleanedContent string
	WordCount      int
	Status         TranscriptStatus
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Insight is one extracted idea from a cleaned transcript.
type Insight struct {
	ID           int64
	TranscriptID int64
	Title        string
	Body         string
	Category     string
	Status       ReviewStatus
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// InsightDraft is the extractor's output before persistence.
type InsightDraft struct {
	Title    string
	Body     string
	Category string
}

// Post is a platform-specific draft generated from an approved insight.
type Post struct {
	ID             int64
	InsightID      int64
	Platform       string
	Body           string
	Status         PostStatus
	ExternalPostID string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// PostDraft is the generator's output before persistence.
type PostDraft struct {
	Platform string
	Body     string
}

package ipc

import "time"

// StartRequest triggers daemon processing startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops daemon processing.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// QueueCounts summarizes one queue by job status.
type QueueCounts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
}

// StageHealth describes readiness of one pipeline stage.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// SchedulerStats summarizes scheduled posts by status.
type SchedulerStats struct {
	Pending   int64 `json:"pending"`
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
	Cancelled int64 `json:"cancelled"`
}

// StatusResponse represents combined daemon status information.
type StatusResponse struct {
	Running        bool                   `json:"running"`
	PID            int                    `json:"pid"`
	QueueStats     map[string]QueueCounts `json:"queue_stats"`
	PausedQueues   []string               `json:"paused_queues"`
	StageHealth    []StageHealth          `json:"stage_health"`
	SchedulerStats SchedulerStats         `json:"scheduler_stats"`
	LastError      string                 `json:"last_error"`
	LockPath       string                 `json:"lock_path"`
	SocketPath     string                 `json:"socket_path"`
}

// JobItem is the wire representation of one queued job.
type JobItem struct {
	ID           int64     `json:"id"`
	Queue        string    `json:"queue"`
	Payload      string    `json:"payload"`
	Status       string    `json:"status"`
	AttemptsMade int       `json:"attempts_made"`
	MaxAttempts  int       `json:"max_attempts"`
	AvailableAt  time.Time `json:"available_at"`
	ErrorMessage string    `json:"error_message,omitempty"`
	ProgressPct  float64   `json:"progress_pct"`
	ProgressMsg  string    `json:"progress_msg,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// QueueListRequest filters job listing by queue and status.
type QueueListRequest struct {
	Queue    string   `json:"queue"`
	Statuses []string `json:"statuses"`
}

// QueueListResponse contains queue entries.
type QueueListResponse struct {
	Items []JobItem `json:"items"`
}

// QueueStatsRequest fetches per-queue counts.
type QueueStatsRequest struct{}

// QueueStatsResponse reports per-queue counts.
type QueueStatsResponse struct {
	Stats map[string]QueueCounts `json:"stats"`
}

// QueueRetryRequest revives failed jobs by id.
type QueueRetryRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRetryResponse reports number of revived jobs.
type QueueRetryResponse struct {
	Updated int64 `json:"updated"`
}

// QueueClearCompletedRequest removes completed jobs.
type QueueClearCompletedRequest struct{}

// QueueClearCompletedResponse reports number of removed entries.
type QueueClearCompletedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueClearFailedRequest removes failed jobs.
type QueueClearFailedRequest struct{}

// QueueClearFailedResponse reports number of removed entries.
type QueueClearFailedResponse struct {
	Removed int64 `json:"removed"`
}

// QueueRemoveRequest removes specific jobs by id.
type QueueRemoveRequest struct {
	IDs []int64 `json:"ids"`
}

// QueueRemoveResponse reports number of removed entries.
type QueueRemoveResponse struct {
	Removed int64 `json:"removed"`
}

// HealthRequest fetches store and stage readiness.
type HealthRequest struct{}

// HealthResponse lists the daemon's health checks.
type HealthResponse struct {
	Checks []StageHealth `json:"checks"`
}

// PauseRequest pauses claiming from one queue, or all when empty.
type PauseRequest struct {
	Queue string `json:"queue"`
}

// PauseResponse lists the queues now paused.
type PauseResponse struct {
	Paused []string `json:"paused"`
}

// ResumeRequest resumes claiming from one queue, or all when empty.
type ResumeRequest struct {
	Queue string `json:"queue"`
}

// ResumeResponse lists the queues still paused.
type ResumeResponse struct {
	Paused []string `json:"paused"`
}

// ProgressRequest fetches one transcript's pipeline state.
type ProgressRequest struct {
	TranscriptID int64 `json:"transcript_id"`
}

// ProgressResponse reports the folded pipeline state.
type ProgressResponse struct {
	TranscriptID int64  `json:"transcript_id"`
	State        string `json:"state"`
	Detail       string `json:"detail,omitempty"`
}

// PipelineRetryRequest re-runs one entity through the named queue.
type PipelineRetryRequest struct {
	Queue    string `json:"queue"`
	EntityID int64  `json:"entity_id"`
}

// PipelineRetryResponse identifies the revived or created job.
type PipelineRetryResponse struct {
	JobID  int64  `json:"job_id"`
	Status string `json:"status"`
}

// CancelRequest withdraws a transcript from the pipeline.
type CancelRequest struct {
	TranscriptID int64 `json:"transcript_id"`
}

// CancelResponse indicates the cancellation was recorded.
type CancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// TranscriptAddRequest stores a raw transcript and starts processing.
type TranscriptAddRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// TranscriptAddResponse identifies the stored transcript and its first job.
type TranscriptAddResponse struct {
	TranscriptID int64 `json:"transcript_id"`
	JobID        int64 `json:"job_id"`
}

// TranscriptItem is the wire representation of one transcript.
type TranscriptItem struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	WordCount    int       `json:"word_count"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// TranscriptListRequest filters transcripts by status.
type TranscriptListRequest struct {
	Statuses []string `json:"statuses"`
}

// TranscriptListResponse contains transcript entries.
type TranscriptListResponse struct {
	Items []TranscriptItem `json:"items"`
}

// InsightItem is the wire representation of one extracted insight.
type InsightItem struct {
	ID           int64  `json:"id"`
	TranscriptID int64  `json:"transcript_id"`
	Title        string `json:"title"`
	Body         string `json:"body"`
	Category     string `json:"category,omitempty"`
	Status       string `json:"status"`
}

// InsightListRequest filters insights by review status.
type InsightListRequest struct {
	Status string `json:"status"`
}

// InsightListResponse contains insight entries.
type InsightListResponse struct {
	Items []InsightItem `json:"items"`
}

// InsightApproveRequest approves one insight for post generation.
type InsightApproveRequest struct {
	ID int64 `json:"id"`
}

// InsightApproveResponse identifies the generation job.
type InsightApproveResponse struct {
	JobID int64 `json:"job_id"`
}

// InsightRejectRequest rejects one insight.
type InsightRejectRequest struct {
	ID int64 `json:"id"`
}

// InsightRejectResponse indicates the rejection was recorded.
type InsightRejectResponse struct {
	Rejected bool `json:"rejected"`
}

// PostItem is the wire representation of one generated post draft.
type PostItem struct {
	ID             int64  `json:"id"`
	InsightID      int64  `json:"insight_id"`
	Platform       string `json:"platform"`
	Body           string `json:"body"`
	Status         string `json:"status"`
	ExternalPostID string `json:"external_post_id,omitempty"`
}

// PostListRequest filters post drafts by status.
type PostListRequest struct {
	Status string `json:"status"`
}

// PostListResponse contains post entries.
type PostListResponse struct {
	Items []PostItem `json:"items"`
}

// PostApproveRequest approves one post for immediate publishing.
type PostApproveRequest struct {
	ID int64 `json:"id"`
}

// PostApproveResponse identifies the publish job.
type PostApproveResponse struct {
	JobID int64 `json:"job_id"`
}

// PostRejectRequest rejects one post draft.
type PostRejectRequest struct {
	ID int64 `json:"id"`
}

// PostRejectResponse indicates the rejection was recorded.
type PostRejectResponse struct {
	Rejected bool `json:"rejected"`
}

// ScheduleAddRequest books content for later delivery. When PostID is set the
// linked draft is approved and marked scheduled; otherwise Platform and
// Content describe an ad-hoc schedule.
type ScheduleAddRequest struct {
	PostID   int64     `json:"post_id"`
	Platform string    `json:"platform"`
	Content  string    `json:"content"`
	At       time.Time `json:"at"`
}

// ScheduleAddResponse identifies the scheduled post.
type ScheduleAddResponse struct {
	ScheduledID int64 `json:"scheduled_id"`
}

// ScheduledItem is the wire representation of one scheduled post.
type ScheduledItem struct {
	ID            int64     `json:"id"`
	PostID        int64     `json:"post_id,omitempty"`
	Platform      string    `json:"platform"`
	Content       string    `json:"content"`
	ScheduledTime time.Time `json:"scheduled_time"`
	Status        string    `json:"status"`
	RetryCount    int       `json:"retry_count"`
	ErrorMessage  string    `json:"error_message,omitempty"`
}

// ScheduleListRequest filters scheduled posts by status.
type ScheduleListRequest struct {
	Statuses []string `json:"statuses"`
}

// ScheduleListResponse contains scheduled post entries.
type ScheduleListResponse struct {
	Items []ScheduledItem `json:"items"`
}

// ScheduleCancelRequest cancels a pending scheduled post.
type ScheduleCancelRequest struct {
	ID int64 `json:"id"`
}

// ScheduleCancelResponse indicates the cancellation was recorded.
type ScheduleCancelResponse struct {
	Cancelled bool `json:"cancelled"`
}

// ScheduleRemoveRequest deletes a scheduled post record.
type ScheduleRemoveRequest struct {
	ID int64 `json:"id"`
}

// ScheduleRemoveResponse indicates whether a record was deleted.
type ScheduleRemoveResponse struct {
	Removed bool `json:"removed"`
}

// ScheduleRunRequest drains ready scheduled posts immediately.
type ScheduleRunRequest struct{}

// ScheduleRunResponse aggregates one processing run.
type ScheduleRunResponse struct {
	Processed int `json:"processed"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Deferred  int `json:"deferred"`
}

// ScheduleStatsRequest fetches scheduled-post counts.
type ScheduleStatsRequest struct{}

// ScheduleStatsResponse reports scheduled-post counts.
type ScheduleStatsResponse struct {
	Stats SchedulerStats `json:"stats"`
}

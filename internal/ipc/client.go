package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start processing.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Vox.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop processing.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Vox.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Vox.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueList returns jobs optionally filtered by queue and statuses.
func (c *Client) QueueList(queueName string, statuses []string) (*QueueListResponse, error) {
	var resp QueueListResponse
	req := QueueListRequest{Queue: queueName, Statuses: statuses}
	if err := c.client.Call("Vox.QueueList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueStats returns per-queue job counts.
func (c *Client) QueueStats() (*QueueStatsResponse, error) {
	var resp QueueStatsResponse
	if err := c.client.Call("Vox.QueueStats", QueueStatsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRetry revives failed jobs by id.
func (c *Client) QueueRetry(ids []int64) (*QueueRetryResponse, error) {
	var resp QueueRetryResponse
	if err := c.client.Call("Vox.QueueRetry", QueueRetryRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClearCompleted removes completed jobs.
func (c *Client) QueueClearCompleted() (*QueueClearCompletedResponse, error) {
	var resp QueueClearCompletedResponse
	if err := c.client.Call("Vox.QueueClearCompleted", QueueClearCompletedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueClearFailed removes failed jobs.
func (c *Client) QueueClearFailed() (*QueueClearFailedResponse, error) {
	var resp QueueClearFailedResponse
	if err := c.client.Call("Vox.QueueClearFailed", QueueClearFailedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// QueueRemove deletes jobs by id.
func (c *Client) QueueRemove(ids []int64) (*QueueRemoveResponse, error) {
	var resp QueueRemoveResponse
	if err := c.client.Call("Vox.QueueRemove", QueueRemoveRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health returns store and stage readiness checks.
func (c *Client) Health() (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.client.Call("Vox.Health", HealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Pause stops claiming from one queue, or all when the name is empty.
func (c *Client) Pause(queueName string) (*PauseResponse, error) {
	var resp PauseResponse
	if err := c.client.Call("Vox.Pause", PauseRequest{Queue: queueName}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Resume restarts claiming from one queue, or all when the name is empty.
func (c *Client) Resume(queueName string) (*ResumeResponse, error) {
	var resp ResumeResponse
	if err := c.client.Call("Vox.Resume", ResumeRequest{Queue: queueName}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Progress returns one transcript's folded pipeline state.
func (c *Client) Progress(transcriptID int64) (*ProgressResponse, error) {
	var resp ProgressResponse
	if err := c.client.Call("Vox.Progress", ProgressRequest{TranscriptID: transcriptID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PipelineRetry re-runs one entity through the named queue.
func (c *Client) PipelineRetry(queueName string, entityID int64) (*PipelineRetryResponse, error) {
	var resp PipelineRetryResponse
	req := PipelineRetryRequest{Queue: queueName, EntityID: entityID}
	if err := c.client.Call("Vox.PipelineRetry", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Cancel withdraws a transcript from the pipeline.
func (c *Client) Cancel(transcriptID int64) (*CancelResponse, error) {
	var resp CancelResponse
	if err := c.client.Call("Vox.Cancel", CancelRequest{TranscriptID: transcriptID}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TranscriptAdd stores a raw transcript and starts processing.
func (c *Client) TranscriptAdd(title, body string) (*TranscriptAddResponse, error) {
	var resp TranscriptAddResponse
	req := TranscriptAddRequest{Title: title, Content: body}
	if err := c.client.Call("Vox.TranscriptAdd", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TranscriptList returns transcripts optionally filtered by status.
func (c *Client) TranscriptList(statuses []string) (*TranscriptListResponse, error) {
	var resp TranscriptListResponse
	if err := c.client.Call("Vox.TranscriptList", TranscriptListRequest{Statuses: statuses}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InsightList returns insights with the given review status.
func (c *Client) InsightList(status string) (*InsightListResponse, error) {
	var resp InsightListResponse
	if err := c.client.Call("Vox.InsightList", InsightListRequest{Status: status}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InsightApprove approves one insight for post generation.
func (c *Client) InsightApprove(id int64) (*InsightApproveResponse, error) {
	var resp InsightApproveResponse
	if err := c.client.Call("Vox.InsightApprove", InsightApproveRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// InsightReject rejects one insight.
func (c *Client) InsightReject(id int64) (*InsightRejectResponse, error) {
	var resp InsightRejectResponse
	if err := c.client.Call("Vox.InsightReject", InsightRejectRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PostList returns post drafts with the given status.
func (c *Client) PostList(status string) (*PostListResponse, error) {
	var resp PostListResponse
	if err := c.client.Call("Vox.PostList", PostListRequest{Status: status}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PostApprove approves one post for immediate publishing.
func (c *Client) PostApprove(id int64) (*PostApproveResponse, error) {
	var resp PostApproveResponse
	if err := c.client.Call("Vox.PostApprove", PostApproveRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// PostReject rejects one post draft.
func (c *Client) PostReject(id int64) (*PostRejectResponse, error) {
	var resp PostRejectResponse
	if err := c.client.Call("Vox.PostReject", PostRejectRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleAdd books content for later delivery.
func (c *Client) ScheduleAdd(req ScheduleAddRequest) (*ScheduleAddResponse, error) {
	var resp ScheduleAddResponse
	if err := c.client.Call("Vox.ScheduleAdd", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleList returns scheduled posts optionally filtered by status.
func (c *Client) ScheduleList(statuses []string) (*ScheduleListResponse, error) {
	var resp ScheduleListResponse
	if err := c.client.Call("Vox.ScheduleList", ScheduleListRequest{Statuses: statuses}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleCancel cancels a pending scheduled post.
func (c *Client) ScheduleCancel(id int64) (*ScheduleCancelResponse, error) {
	var resp ScheduleCancelResponse
	if err := c.client.Call("Vox.ScheduleCancel", ScheduleCancelRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleRemove deletes a scheduled post record.
func (c *Client) ScheduleRemove(id int64) (*ScheduleRemoveResponse, error) {
	var resp ScheduleRemoveResponse
	if err := c.client.Call("Vox.ScheduleRemove", ScheduleRemoveRequest{ID: id}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleRun drains ready scheduled posts immediately.
func (c *Client) ScheduleRun() (*ScheduleRunResponse, error) {
	var resp ScheduleRunResponse
	if err := c.client.Call("Vox.ScheduleRun", ScheduleRunRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleStats returns scheduled-post counts.
func (c *Client) ScheduleStats() (*ScheduleStatsResponse, error) {
	var resp ScheduleStatsResponse
	if err := c.client.Call("Vox.ScheduleStats", ScheduleStatsRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

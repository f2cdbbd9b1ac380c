package ipc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"

	"log/slog"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/daemon"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/scheduler"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	daemon    *daemon.Daemon
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}

	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	srv := &service{daemon: d, logger: logging.NewComponentLogger(logger, "ipc"), ctx: ctx}
	if err := rpcServer.RegisterName("Vox", srv); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		daemon:    d,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve starts accepting RPC connections until the context is canceled.
func (s *Server) Serve() {
	s.logger.Debug("IPC server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	status := s.daemon.Status(s.ctx)
	resp.Running = status.Running
	resp.PID = status.PID
	resp.PausedQueues = status.PausedQueues
	resp.LastError = status.LastError
	resp.LockPath = status.LockPath
	resp.SocketPath = status.SocketPath
	resp.QueueStats = make(map[string]QueueCounts, len(status.QueueStats))
	for name, counts := range status.QueueStats {
		resp.QueueStats[name] = QueueCounts(counts)
	}
	resp.StageHealth = make([]StageHealth, 0, len(status.StageHealth))
	for _, health := range status.StageHealth {
		resp.StageHealth = append(resp.StageHealth, StageHealth(health))
	}
	resp.SchedulerStats = SchedulerStats(status.SchedulerStats)
	return nil
}

func (s *service) QueueList(req QueueListRequest, resp *QueueListResponse) error {
	queues := config.QueueNames()
	if req.Queue != "" {
		queues = []string{req.Queue}
	}
	statuses := parseJobStatuses(req.Statuses)
	for _, queueName := range queues {
		jobs, err := s.daemon.Store().List(s.ctx, queueName, statuses...)
		if err != nil {
			return err
		}
		for _, job := range jobs {
			resp.Items = append(resp.Items, convertJob(job))
		}
	}
	return nil
}

func (s *service) QueueStats(_ QueueStatsRequest, resp *QueueStatsResponse) error {
	stats, err := s.daemon.Manager().Stats(s.ctx)
	if err != nil {
		return err
	}
	resp.Stats = make(map[string]QueueCounts, len(stats))
	for name, counts := range stats {
		resp.Stats[name] = QueueCounts(counts)
	}
	return nil
}

func (s *service) QueueRetry(req QueueRetryRequest, resp *QueueRetryResponse) error {
	for _, id := range req.IDs {
		if err := s.daemon.Store().RetryFailed(s.ctx, id); err != nil {
			return err
		}
		resp.Updated++
	}
	return nil
}

func (s *service) QueueClearCompleted(_ QueueClearCompletedRequest, resp *QueueClearCompletedResponse) error {
	removed, err := s.daemon.Store().ClearCompleted(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) QueueClearFailed(_ QueueClearFailedRequest, resp *QueueClearFailedResponse) error {
	removed, err := s.daemon.Store().ClearFailed(s.ctx)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) QueueRemove(req QueueRemoveRequest, resp *QueueRemoveResponse) error {
	for _, id := range req.IDs {
		removed, err := s.daemon.Store().Remove(s.ctx, id)
		if err != nil {
			return err
		}
		if removed {
			resp.Removed++
		}
	}
	return nil
}

func (s *service) Health(_ HealthRequest, resp *HealthResponse) error {
	for _, check := range s.daemon.Manager().HealthCheck(s.ctx) {
		resp.Checks = append(resp.Checks, StageHealth(check))
	}
	return nil
}

func (s *service) Pause(req PauseRequest, resp *PauseResponse) error {
	if err := s.daemon.Manager().Pause(req.Queue); err != nil {
		return err
	}
	resp.Paused = s.daemon.Manager().Paused()
	return nil
}

func (s *service) Resume(req ResumeRequest, resp *ResumeResponse) error {
	if err := s.daemon.Manager().Resume(req.Queue); err != nil {
		return err
	}
	resp.Paused = s.daemon.Manager().Paused()
	return nil
}

func (s *service) Progress(req ProgressRequest, resp *ProgressResponse) error {
	progress, err := s.daemon.Manager().Progress(s.ctx, req.TranscriptID)
	if err != nil {
		return err
	}
	resp.TranscriptID = progress.TranscriptID
	resp.State = string(progress.State)
	resp.Detail = progress.Detail
	return nil
}

func (s *service) PipelineRetry(req PipelineRetryRequest, resp *PipelineRetryResponse) error {
	job, err := s.daemon.Manager().RetryFromStage(s.ctx, req.Queue, req.EntityID)
	if err != nil {
		return err
	}
	if job != nil {
		resp.JobID = job.ID
		resp.Status = string(job.Status)
	}
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	if err := s.daemon.Manager().Cancel(s.ctx, req.TranscriptID); err != nil {
		return err
	}
	resp.Cancelled = true
	return nil
}

func (s *service) TranscriptAdd(req TranscriptAddRequest, resp *TranscriptAddResponse) error {
	transcript, job, err := s.daemon.AddTranscript(s.ctx, req.Title, req.Content)
	if err != nil {
		return err
	}
	resp.TranscriptID = transcript.ID
	if job != nil {
		resp.JobID = job.ID
	}
	return nil
}

func (s *service) TranscriptList(req TranscriptListRequest, resp *TranscriptListResponse) error {
	statuses := make([]content.TranscriptStatus, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		statuses = append(statuses, content.TranscriptStatus(status))
	}
	transcripts, err := s.daemon.Contents().ListTranscripts(s.ctx, statuses...)
	if err != nil {
		return err
	}
	for _, transcript := range transcripts {
		resp.Items = append(resp.Items, TranscriptItem{
			ID:           transcript.ID,
			Title:        transcript.Title,
			WordCount:    transcript.WordCount,
			Status:       string(transcript.Status),
			ErrorMessage: transcript.ErrorMessage,
			CreatedAt:    transcript.CreatedAt,
		})
	}
	return nil
}

func (s *service) InsightList(req InsightListRequest, resp *InsightListResponse) error {
	status := content.ReviewStatus(req.Status)
	if req.Status == "" {
		status = content.ReviewPending
	}
	items, err := s.daemon.Contents().InsightsByStatus(s.ctx, status)
	if err != nil {
		return err
	}
	for _, insight := range items {
		resp.Items = append(resp.Items, InsightItem{
			ID:           insight.ID,
			TranscriptID: insight.TranscriptID,
			Title:        insight.Title,
			Body:         insight.Body,
			Category:     insight.Category,
			Status:       string(insight.Status),
		})
	}
	return nil
}

func (s *service) InsightApprove(req InsightApproveRequest, resp *InsightApproveResponse) error {
	job, err := s.daemon.ApproveInsight(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if job != nil {
		resp.JobID = job.ID
	}
	return nil
}

func (s *service) InsightReject(req InsightRejectRequest, resp *InsightRejectResponse) error {
	if err := s.daemon.RejectInsight(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Rejected = true
	return nil
}

func (s *service) PostList(req PostListRequest, resp *PostListResponse) error {
	status := content.PostStatus(req.Status)
	if req.Status == "" {
		status = content.PostStatusPendingReview
	}
	items, err := s.daemon.Contents().PostsByStatus(s.ctx, status)
	if err != nil {
		return err
	}
	for _, post := range items {
		resp.Items = append(resp.Items, PostItem{
			ID:             post.ID,
			InsightID:      post.InsightID,
			Platform:       post.Platform,
			Body:           post.Body,
			Status:         string(post.Status),
			ExternalPostID: post.ExternalPostID,
		})
	}
	return nil
}

func (s *service) PostApprove(req PostApproveRequest, resp *PostApproveResponse) error {
	job, err := s.daemon.ApprovePost(s.ctx, req.ID)
	if err != nil {
		return err
	}
	if job != nil {
		resp.JobID = job.ID
	}
	return nil
}

func (s *service) PostReject(req PostRejectRequest, resp *PostRejectResponse) error {
	if err := s.daemon.RejectPost(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Rejected = true
	return nil
}

func (s *service) ScheduleAdd(req ScheduleAddRequest, resp *ScheduleAddResponse) error {
	if req.PostID > 0 {
		id, err := s.daemon.SchedulePost(s.ctx, req.PostID, req.At)
		if err != nil {
			return err
		}
		resp.ScheduledID = id
		return nil
	}
	id, err := s.daemon.Schedules().Schedule(s.ctx, scheduler.ScheduleRequest{
		Platform:      req.Platform,
		Content:       req.Content,
		ScheduledTime: req.At,
	})
	if err != nil {
		return err
	}
	resp.ScheduledID = id
	return nil
}

func (s *service) ScheduleList(req ScheduleListRequest, resp *ScheduleListResponse) error {
	statuses := make([]scheduler.Status, 0, len(req.Statuses))
	for _, status := range req.Statuses {
		statuses = append(statuses, scheduler.Status(status))
	}
	items, err := s.daemon.Schedules().List(s.ctx, statuses...)
	if err != nil {
		return err
	}
	for _, scheduled := range items {
		resp.Items = append(resp.Items, ScheduledItem{
			ID:            scheduled.ID,
			PostID:        scheduled.PostID,
			Platform:      scheduled.Platform,
			Content:       scheduled.Content,
			ScheduledTime: scheduled.ScheduledTime,
			Status:        string(scheduled.Status),
			RetryCount:    scheduled.RetryCount,
			ErrorMessage:  scheduled.ErrorMessage,
		})
	}
	return nil
}

func (s *service) ScheduleCancel(req ScheduleCancelRequest, resp *ScheduleCancelResponse) error {
	if err := s.daemon.CancelSchedule(s.ctx, req.ID); err != nil {
		return err
	}
	resp.Cancelled = true
	return nil
}

func (s *service) ScheduleRemove(req ScheduleRemoveRequest, resp *ScheduleRemoveResponse) error {
	removed, err := s.daemon.Schedules().Remove(s.ctx, req.ID)
	if err != nil {
		return err
	}
	resp.Removed = removed
	return nil
}

func (s *service) ScheduleRun(_ ScheduleRunRequest, resp *ScheduleRunResponse) error {
	summary, err := s.daemon.RunSchedulerOnce(s.ctx)
	if err != nil {
		return err
	}
	resp.Processed = summary.Processed
	resp.Succeeded = summary.Succeeded
	resp.Failed = summary.Failed
	resp.Deferred = summary.Deferred
	return nil
}

func (s *service) ScheduleStats(_ ScheduleStatsRequest, resp *ScheduleStatsResponse) error {
	stats, err := s.daemon.Schedules().Stats(s.ctx)
	if err != nil {
		return err
	}
	resp.Stats = SchedulerStats(stats)
	return nil
}

func convertJob(job *queue.Job) JobItem {
	return JobItem{
		ID:           job.ID,
		Queue:        job.Queue,
		Payload:      job.Payload,
		Status:       string(job.Status),
		AttemptsMade: job.AttemptsMade,
		MaxAttempts:  job.MaxAttempts,
		AvailableAt:  job.AvailableAt,
		ErrorMessage: job.ErrorMessage,
		ProgressPct:  job.ProgressPct,
		ProgressMsg:  job.ProgressMsg,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

func parseJobStatuses(raw []string) []queue.Status {
	statuses := make([]queue.Status, 0, len(raw))
	for _, value := range raw {
		switch status := queue.Status(value); status {
		case queue.StatusWaiting, queue.StatusDelayed, queue.StatusActive, queue.StatusCompleted, queue.StatusFailed:
			statuses = append(statuses, status)
		}
	}
	return statuses
}

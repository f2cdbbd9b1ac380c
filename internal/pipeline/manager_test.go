package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/cleaning"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/insights"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/pipeline"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/postgen"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/publishing"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ratelimit"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/scheduler"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/contentai"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/publish"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/testsupport"
)

type errBox struct {
	err error
}

type fakeAI struct {
	cleanErr atomic.Value // errBox
}

func (f *fakeAI) setCleanError(err error) {
	f.cleanErr.Store(errBox{err: err})
}

func (f *fakeAI) Clean(ctx context.Context, raw string) (contentai.CleanResult, error) {
	if box, ok := f.cleanErr.Load().(errBox); ok && box.err != nil {
		return contentai.CleanResult{}, box.err
	}
	return contentai.CleanResult{CleanedContent: "Cleaned " + raw, WordCount: 2}, nil
}

func (f *fakeAI) Extract(ctx context.Context, cleaned string) ([]contentai.Insight, error) {
	return []contentai.Insight{{Title: "Idea", Body: "Ship smaller batches.", Category: "process"}}, nil
}

func (f *fakeAI) Generate(ctx context.Context, insight contentai.Insight, platforms []contentai.PlatformSpec) ([]contentai.PostDraft, error) {
	drafts := make([]contentai.PostDraft, 0, len(platforms))
	for _, platform := range platforms {
		drafts = append(drafts, contentai.PostDraft{Platform: platform.Name, Body: "post for " + platform.Name})
	}
	return drafts, nil
}

type fakePlatform struct {
	calls atomic.Int64
}

func (f *fakePlatform) Publish(ctx context.Context, platform, body string) (publish.Result, error) {
	n := f.calls.Add(1)
	return publish.Result{ExternalPostID: fmt.Sprintf("%s-%d", platform, n)}, nil
}

type harness struct {
	cfg       *config.Config
	store     *queue.Store
	contents  *content.Store
	schedules *scheduler.Store
	manager   *pipeline.Manager
	ai        *fakeAI
	platform  *fakePlatform
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Workflow.QueuePollInterval = 0

	store := testsupport.MustOpenStore(t, cfg)
	contents := testsupport.MustOpenContentStore(t, cfg)
	schedules := testsupport.MustOpenSchedulerStore(t, cfg)

	ai := &fakeAI{}
	platform := &fakePlatform{}
	logger := logging.NewNop()
	stages := pipeline.StageSet{
		Cleaner:   cleaning.NewCleanerWithDependencies(cfg, store, contents, logger, ai),
		Extractor: insights.NewExtractorWithDependencies(cfg, store, contents, logger, ai),
		Generator: postgen.NewGeneratorWithDependencies(cfg, store, contents, logger, ai),
		Publisher: publishing.NewPublisherWithDependencies(cfg, store, contents, schedules, logger, platform),
	}
	return &harness{
		cfg:       cfg,
		store:     store,
		contents:  contents,
		schedules: schedules,
		manager:   pipeline.NewManager(cfg, store, contents, logger, stages),
		ai:        ai,
		platform:  platform,
	}
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	if err := h.manager.Start(context.Background()); err != nil {
		t.Fatalf("start manager: %v", err)
	}
	t.Cleanup(h.manager.Stop)
}

func (h *harness) enqueueClean(t *testing.T, transcriptID int64) *queue.Job {
	t.Helper()
	payload, err := stage.EncodePayload(cleaning.Payload{TranscriptID: transcriptID})
	if err != nil {
		t.Fatal(err)
	}
	job, err := h.store.Enqueue(context.Background(), config.QueueClean, payload, queue.EnqueueOptions{})
	if err != nil {
		t.Fatalf("enqueue clean: %v", err)
	}
	return job
}

func waitFor(t *testing.T, what string, check func() (bool, error)) {
	t.Helper()
	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		ok, err := check()
		if err != nil {
			t.Fatalf("waiting for %s: %v", what, err)
		}
		if ok {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestManagerRunsTranscriptThroughReviewGates(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.start(t)

	transcript, err := h.contents.CreateTranscript(ctx, "demo", "raw words")
	if err != nil {
		t.Fatal(err)
	}
	h.enqueueClean(t, transcript.ID)

	// Cleaning auto-advances into extraction; extraction parks at review.
	var insightID int64
	waitFor(t, "insights awaiting review", func() (bool, error) {
		stored, err := h.contents.InsightsByTranscript(ctx, transcript.ID)
		if err != nil || len(stored) == 0 {
			return false, err
		}
		insightID = stored[0].ID
		return stored[0].Status == content.ReviewPending, nil
	})

	progress, err := h.manager.Progress(ctx, transcript.ID)
	if err != nil {
		t.Fatal(err)
	}
	if progress.State != pipeline.StatePaused {
		t.Fatalf("progress = %s, want paused at insight review", progress.State)
	}

	// Approve the insight and push it into generation.
	if err := h.contents.ApproveInsight(ctx, insightID); err != nil {
		t.Fatal(err)
	}
	if _, err := h.manager.RetryFromStage(ctx, config.QueueGenerate, insightID); err != nil {
		t.Fatal(err)
	}

	var postID int64
	waitFor(t, "posts awaiting review", func() (bool, error) {
		posts, err := h.contents.PostsByInsight(ctx, insightID)
		if err != nil || len(posts) == 0 {
			return false, err
		}
		postID = posts[0].ID
		return posts[0].Status == content.PostStatusPendingReview, nil
	})

	// Approve one post and publish it.
	if err := h.contents.ApprovePost(ctx, postID); err != nil {
		t.Fatal(err)
	}
	if _, err := h.manager.RetryFromStage(ctx, config.QueuePublish, postID); err != nil {
		t.Fatal(err)
	}

	waitFor(t, "post published", func() (bool, error) {
		post, err := h.contents.GetPost(ctx, postID)
		if err != nil || post == nil {
			return false, err
		}
		return post.Status == content.PostStatusPublished && post.ExternalPostID != "", nil
	})

	// Reject the remaining drafts so the pipeline view settles.
	posts, err := h.contents.PostsByInsight(ctx, insightID)
	if err != nil {
		t.Fatal(err)
	}
	for _, post := range posts {
		if post.Status == content.PostStatusPendingReview {
			if err := h.contents.RejectPost(ctx, post.ID); err != nil {
				t.Fatal(err)
			}
		}
	}

	waitFor(t, "pipeline completed", func() (bool, error) {
		progress, err := h.manager.Progress(ctx, transcript.ID)
		if err != nil {
			return false, err
		}
		return progress.State == pipeline.StateCompleted, nil
	})
}

func TestPauseStopsClaimsUntilResume(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	if err := h.manager.Pause(config.QueueClean); err != nil {
		t.Fatal(err)
	}
	h.start(t)

	transcript, err := h.contents.CreateTranscript(ctx, "demo", "raw words")
	if err != nil {
		t.Fatal(err)
	}
	job := h.enqueueClean(t, transcript.ID)

	time.Sleep(1500 * time.Millisecond)
	current, err := h.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if current.Status != queue.StatusWaiting {
		t.Fatalf("paused queue claimed a job: status = %s", current.Status)
	}

	if err := h.manager.Resume(config.QueueClean); err != nil {
		t.Fatal(err)
	}
	waitFor(t, "job completed after resume", func() (bool, error) {
		current, err := h.store.GetByID(ctx, job.ID)
		if err != nil {
			return false, err
		}
		return current.Status == queue.StatusCompleted, nil
	})
}

func TestPublishAdmissionDelaysOverWindow(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	// A one-slot window that is already spent.
	limiter := ratelimit.NewWithWindows(map[string]ratelimit.Window{
		"twitter": {Limit: 1, Length: time.Minute},
	})
	if decision := limiter.Admit("twitter"); !decision.Allowed {
		t.Fatal("window should admit its first call")
	}
	h.manager.SetPlatformLimiter(limiter)
	h.start(t)

	transcript, err := h.contents.CreateTranscript(ctx, "demo", "raw")
	if err != nil {
		t.Fatal(err)
	}
	stored, err := h.contents.InsertInsights(ctx, transcript.ID, []content.InsightDraft{{Title: "t", Body: "idea"}})
	if err != nil {
		t.Fatal(err)
	}
	posts, err := h.contents.InsertPosts(ctx, stored[0].ID, []content.PostDraft{{Platform: "twitter", Body: "hi"}})
	if err != nil {
		t.Fatal(err)
	}
	if err := h.contents.ApprovePost(ctx, posts[0].ID); err != nil {
		t.Fatal(err)
	}

	job, err := h.manager.RetryFromStage(ctx, config.QueuePublish, posts[0].ID)
	if err != nil {
		t.Fatal(err)
	}

	waitFor(t, "publish job delayed by window", func() (bool, error) {
		current, err := h.store.GetByID(ctx, job.ID)
		if err != nil {
			return false, err
		}
		return current.Status == queue.StatusDelayed, nil
	})

	current, err := h.store.GetByID(ctx, job.ID)
	if err != nil {
		t.Fatal(err)
	}
	if current.AttemptsMade != 0 {
		t.Fatalf("admission denial consumed %d attempts", current.AttemptsMade)
	}
	if h.platform.calls.Load() != 0 {
		t.Fatal("platform was called despite exhausted window")
	}
}

func TestRetryFromStageRequeuesFailedJob(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.cfg.Queues[config.QueueClean] = config.QueuePolicy{
		MaxAttempts: 1, BackoffBaseSeconds: 1, BackoffMaxSeconds: 1, Concurrency: 1,
	}
	h.ai.setCleanError(errors.New("model offline"))
	h.start(t)

	transcript, err := h.contents.CreateTranscript(ctx, "demo", "raw words")
	if err != nil {
		t.Fatal(err)
	}
	job := h.enqueueClean(t, transcript.ID)

	waitFor(t, "job permanently failed", func() (bool, error) {
		current, err := h.store.GetByID(ctx, job.ID)
		if err != nil {
			return false, err
		}
		return current.Status == queue.StatusFailed, nil
	})

	failed, err := h.contents.GetTranscript(ctx, transcript.ID)
	if err != nil {
		t.Fatal(err)
	}
	if failed.Status != content.TranscriptStatusFailed {
		t.Fatalf("transcript status = %s, want failed", failed.Status)
	}

	h.ai.setCleanError(nil)
	retried, err := h.manager.RetryFromStage(ctx, config.QueueClean, transcript.ID)
	if err != nil {
		t.Fatal(err)
	}
	if retried.ID != job.ID {
		t.Fatalf("retry created job %d, want requeued original %d", retried.ID, job.ID)
	}

	waitFor(t, "transcript cleaned after retry", func() (bool, error) {
		current, err := h.contents.GetTranscript(ctx, transcript.ID)
		if err != nil {
			return false, err
		}
		return current.Status == content.TranscriptStatusExtracted, nil
	})
}

func TestCancelWithdrawsPendingWork(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	transcript, err := h.contents.CreateTranscript(ctx, "demo", "raw words")
	if err != nil {
		t.Fatal(err)
	}
	job := h.enqueueClean(t, transcript.ID)

	if err := h.manager.Cancel(ctx, transcript.ID); err != nil {
		t.Fatal(err)
	}

	if removed, err := h.store.GetByID(ctx, job.ID); err == nil && removed != nil {
		t.Fatalf("cancelled job still present: %+v", removed)
	}

	progress, err := h.manager.Progress(ctx, transcript.ID)
	if err != nil {
		t.Fatal(err)
	}
	if progress.State != pipeline.StateCancelled {
		t.Fatalf("progress = %s, want cancelled", progress.State)
	}

	// A later stage refuses to touch the cancelled transcript.
	if err := h.contents.SetTranscriptStatus(ctx, transcript.ID, content.TranscriptStatusCleaning, ""); err != nil {
		t.Fatal(err)
	}
	current, err := h.contents.GetTranscript(ctx, transcript.ID)
	if err != nil {
		t.Fatal(err)
	}
	if current.Status != content.TranscriptStatusCancelled {
		t.Fatalf("status = %s, cancellation must stick", current.Status)
	}
}

func TestHealthCheckCoversStoreAndStages(t *testing.T) {
	h := newHarness(t)
	checks := h.manager.HealthCheck(context.Background())
	if len(checks) != 5 {
		t.Fatalf("checks = %d, want store + four stages", len(checks))
	}
	for _, check := range checks {
		if !check.Ready {
			t.Fatalf("check %s unhealthy: %s", check.Name, check.Detail)
		}
	}
}

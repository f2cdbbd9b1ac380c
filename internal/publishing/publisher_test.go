package publishing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/publishing"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/scheduler"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/publish"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/testsupport"
)

type stubPlatform struct {
	result publish.Result
	err    error
	calls  int
}

func (s *stubPlatform) Publish(ctx context.Context, platform, body string) (publish.Result, error) {
	s.calls++
	if s.err != nil {
		return publish.Result{}, s.err
	}
	return s.result, nil
}

type fixture struct {
	cfg       *config.Config
	store     *queue.Store
	contents  *content.Store
	schedules *scheduler.Store
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return fixture{
		cfg:       cfg,
		store:     testsupport.MustOpenStore(t, cfg),
		contents:  testsupport.MustOpenContentStore(t, cfg),
		schedules: testsupport.MustOpenSchedulerStore(t, cfg),
	}
}

func (f fixture) approvedPost(t *testing.T) *content.Post {
	t.Helper()
	ctx := context.Background()
	transcript, err := f.contents.CreateTranscript(ctx, "talk", "raw")
	if err != nil {
		t.Fatal(err)
	}
	stored, err := f.contents.InsertInsights(ctx, transcript.ID, []content.InsightDraft{
		{Title: "t", Body: "idea"},
	})
	if err != nil {
		t.Fatal(err)
	}
	posts, err := f.contents.InsertPosts(ctx, stored[0].ID, []content.PostDraft{
		{Platform: "twitter", Body: "hello world"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := f.contents.ApprovePost(ctx, posts[0].ID); err != nil {
		t.Fatal(err)
	}
	post, err := f.contents.GetPost(ctx, posts[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	return post
}

func (f fixture) publishJob(t *testing.T, payload publishing.Payload) *queue.Job {
	t.Helper()
	encoded, err := stage.EncodePayload(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	job, err := f.store.Enqueue(context.Background(), config.QueuePublish, encoded, queue.EnqueueOptions{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return job
}

func TestPublisherRecordsExternalID(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	post := f.approvedPost(t)

	stub := &stubPlatform{result: publish.Result{ExternalPostID: "tw-55"}}
	handler := publishing.NewPublisherWithDependencies(f.cfg, f.store, f.contents, f.schedules, logging.NewNop(), stub)

	job := f.publishJob(t, publishing.Payload{PostID: post.ID})
	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	updated, err := f.contents.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != content.PostStatusPublished {
		t.Fatalf("status = %s, want published", updated.Status)
	}
	if updated.ExternalPostID != "tw-55" {
		t.Fatalf("external id = %q", updated.ExternalPostID)
	}
}

func TestPublisherClosesSchedulerLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	post := f.approvedPost(t)

	scheduledID, err := f.schedules.Schedule(ctx, scheduler.ScheduleRequest{
		PostID:        post.ID,
		Platform:      post.Platform,
		Content:       post.Body,
		ScheduledTime: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if err := f.contents.MarkPostScheduled(ctx, post.ID); err != nil {
		t.Fatal(err)
	}

	stub := &stubPlatform{result: publish.Result{ExternalPostID: "tw-56"}}
	handler := publishing.NewPublisherWithDependencies(f.cfg, f.store, f.contents, f.schedules, logging.NewNop(), stub)

	job := f.publishJob(t, publishing.Payload{PostID: post.ID, ScheduledPostID: scheduledID})
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	entries, err := f.schedules.List(ctx, scheduler.StatusPublished)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].ID != scheduledID {
		t.Fatalf("published ledger entries = %+v", entries)
	}
}

func TestPublisherSkipsAlreadyPublishedPost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	post := f.approvedPost(t)
	if err := f.contents.MarkPostPublished(ctx, post.ID, "tw-1"); err != nil {
		t.Fatal(err)
	}

	stub := &stubPlatform{result: publish.Result{ExternalPostID: "tw-2"}}
	handler := publishing.NewPublisherWithDependencies(f.cfg, f.store, f.contents, f.schedules, logging.NewNop(), stub)

	job := f.publishJob(t, publishing.Payload{PostID: post.ID})
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if stub.calls != 0 {
		t.Fatalf("platform calls = %d, want 0 for published post", stub.calls)
	}

	updated, err := f.contents.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.ExternalPostID != "tw-1" {
		t.Fatalf("external id = %q, want original", updated.ExternalPostID)
	}
}

func TestPublisherRejectsPendingPost(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	transcript, err := f.contents.CreateTranscript(ctx, "talk", "raw")
	if err != nil {
		t.Fatal(err)
	}
	stored, err := f.contents.InsertInsights(ctx, transcript.ID, []content.InsightDraft{{Title: "t", Body: "idea"}})
	if err != nil {
		t.Fatal(err)
	}
	posts, err := f.contents.InsertPosts(ctx, stored[0].ID, []content.PostDraft{{Platform: "twitter", Body: "hi"}})
	if err != nil {
		t.Fatal(err)
	}

	handler := publishing.NewPublisherWithDependencies(f.cfg, f.store, f.contents, f.schedules, logging.NewNop(), &stubPlatform{})
	job := f.publishJob(t, publishing.Payload{PostID: posts[0].ID})
	if err := handler.Prepare(ctx, job); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPublisherRecordFailureMarksPostAndLedger(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	post := f.approvedPost(t)

	scheduledID, err := f.schedules.Schedule(ctx, scheduler.ScheduleRequest{
		PostID:        post.ID,
		Platform:      post.Platform,
		Content:       post.Body,
		ScheduledTime: time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatal(err)
	}

	handler := publishing.NewPublisherWithDependencies(f.cfg, f.store, f.contents, f.schedules, logging.NewNop(), &stubPlatform{})
	job := f.publishJob(t, publishing.Payload{PostID: post.ID, ScheduledPostID: scheduledID})
	handler.RecordFailure(ctx, job, errors.New("platform rejected credentials"))

	updated, err := f.contents.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != content.PostStatusFailed {
		t.Fatalf("post status = %s, want failed", updated.Status)
	}

	entries, err := f.schedules.List(ctx, scheduler.StatusFailed)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("failed ledger entries = %d, want 1", len(entries))
	}
}

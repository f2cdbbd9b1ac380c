package content_test

import (
	"context"
	"errors"
	"testing"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/testsupport"
)

func TestTranscriptLifecycle(t *testing.T) {
	store := testsupport.MustOpenContentStore(t, nil)
	ctx := context.Background()

	transcript, err := store.CreateTranscript(ctx, "Weekly recap", "um so this week we uh shipped the thing")
	if err != nil {
		t.Fatalf("CreateTranscript: %v", err)
	}
	if transcript.Status != content.TranscriptStatusRaw {
		t.Fatalf("status = %s, want raw", transcript.Status)
	}

	if err := store.SetTranscriptCleaned(ctx, transcript.ID, "This week we shipped the thing.", 6); err != nil {
		t.Fatalf("SetTranscriptCleaned: %v", err)
	}
	after, err := store.GetTranscript(ctx, transcript.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != content.TranscriptStatusCleaned || after.WordCount != 6 {
		t.Fatalf("after clean = %s words=%d", after.Status, after.WordCount)
	}

	if err := store.SetTranscriptStatus(ctx, transcript.ID, content.TranscriptStatusFailed, "extractor exploded"); err != nil {
		t.Fatal(err)
	}
	after, err = store.GetTranscript(ctx, transcript.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != content.TranscriptStatusFailed || after.ErrorMessage == "" {
		t.Fatalf("failed status not durable: %s %q", after.Status, after.ErrorMessage)
	}
}

func TestCreateTranscriptRejectsEmptyContent(t *testing.T) {
	store := testsupport.MustOpenContentStore(t, nil)

	_, err := store.CreateTranscript(context.Background(), "title", "   ")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestInsightReviewGate(t *testing.T) {
	store := testsupport.MustOpenContentStore(t, nil)
	ctx := context.Background()

	transcript, err := store.CreateTranscript(ctx, "t", "raw")
	if err != nil {
		t.Fatal(err)
	}
	insights, err := store.InsertInsights(ctx, transcript.ID, []content.InsightDraft{
		{Title: "First", Body: "idea one", Category: "product"},
		{Title: "Second", Body: "idea two"},
	})
	if err != nil {
		t.Fatalf("InsertInsights: %v", err)
	}
	if len(insights) != 2 {
		t.Fatalf("inserted %d insights, want 2", len(insights))
	}
	for _, insight := range insights {
		if insight.Status != content.ReviewPending {
			t.Fatalf("insight %d status = %s, want pending_review", insight.ID, insight.Status)
		}
	}

	if err := store.ApproveInsight(ctx, insights[0].ID); err != nil {
		t.Fatalf("ApproveInsight: %v", err)
	}
	if err := store.RejectInsight(ctx, insights[1].ID); err != nil {
		t.Fatalf("RejectInsight: %v", err)
	}

	// Review decisions are one-shot.
	err = store.ApproveInsight(ctx, insights[1].ID)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("re-review should be rejected, got %v", err)
	}

	approved, err := store.InsightsByStatus(ctx, content.ReviewApproved)
	if err != nil {
		t.Fatal(err)
	}
	if len(approved) != 1 || approved[0].ID != insights[0].ID {
		t.Fatalf("approved = %+v", approved)
	}
}

func TestPostApprovalAndScheduleTransitions(t *testing.T) {
	store := testsupport.MustOpenContentStore(t, nil)
	ctx := context.Background()

	transcript, err := store.CreateTranscript(ctx, "t", "raw")
	if err != nil {
		t.Fatal(err)
	}
	insights, err := store.InsertInsights(ctx, transcript.ID, []content.InsightDraft{{Title: "i", Body: "b"}})
	if err != nil {
		t.Fatal(err)
	}
	posts, err := store.InsertPosts(ctx, insights[0].ID, []content.PostDraft{
		{Platform: "Twitter", Body: "short take"},
	})
	if err != nil {
		t.Fatalf("InsertPosts: %v", err)
	}
	post := posts[0]
	if post.Platform != "twitter" {
		t.Fatalf("platform should be lowercased, got %q", post.Platform)
	}

	// Scheduling requires approval first.
	if err := store.MarkPostScheduled(ctx, post.ID); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("scheduling unapproved post should fail, got %v", err)
	}

	if err := store.ApprovePost(ctx, post.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkPostScheduled(ctx, post.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkPostUnscheduled(ctx, post.ID); err != nil {
		t.Fatal(err)
	}
	if err := store.MarkPostScheduled(ctx, post.ID); err != nil {
		t.Fatal(err)
	}

	if err := store.MarkPostPublished(ctx, post.ID, "tw-123"); err != nil {
		t.Fatal(err)
	}
	// Idempotent second call.
	if err := store.MarkPostPublished(ctx, post.ID, "tw-123"); err != nil {
		t.Fatalf("second MarkPostPublished should be a no-op, got %v", err)
	}

	after, err := store.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != content.PostStatusPublished || after.ExternalPostID != "tw-123" {
		t.Fatalf("post = %s external=%q", after.Status, after.ExternalPostID)
	}
}

func TestMissingEntitiesReportNotFound(t *testing.T) {
	store := testsupport.MustOpenContentStore(t, nil)
	ctx := context.Background()

	if err := store.SetTranscriptStatus(ctx, 999, content.TranscriptStatusFailed, "x"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if err := store.ApproveInsight(ctx, 999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
	if err := store.ApprovePost(ctx, 999); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

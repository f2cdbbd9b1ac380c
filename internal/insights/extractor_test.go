package insights_test

import (
	"context"
	"errors"
	"testing"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/insights"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/contentai"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/testsupport"
)

type stubExtractor struct {
	insights []contentai.Insight
	err      error
}

func (s *stubExtractor) Extract(ctx context.Context, cleaned string) ([]contentai.Insight, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.insights, nil
}

func newCleanedTranscript(t *testing.T, contents *content.Store) *content.Transcript {
	t.Helper()
	ctx := context.Background()
	transcript, err := contents.CreateTranscript(ctx, "interview", "raw words")
	if err != nil {
		t.Fatalf("create transcript: %v", err)
	}
	if err := contents.SetTranscriptCleaned(ctx, transcript.ID, "We shipped the feature.", 4); err != nil {
		t.Fatalf("set cleaned: %v", err)
	}
	updated, err := contents.GetTranscript(ctx, transcript.ID)
	if err != nil {
		t.Fatal(err)
	}
	return updated
}

func newExtractionJob(t *testing.T, store *queue.Store, transcriptID int64) *queue.Job {
	t.Helper()
	payload, err := stage.EncodePayload(insights.Payload{TranscriptID: transcriptID})
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	job, err := store.Enqueue(context.Background(), config.QueueInsights, payload, queue.EnqueueOptions{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return job
}

func TestExtractorPersistsInsightsForReview(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	contents := testsupport.MustOpenContentStore(t, cfg)
	transcript := newCleanedTranscript(t, contents)

	stub := &stubExtractor{insights: []contentai.Insight{
		{Title: "Ship small", Body: "Smaller releases fail less.", Category: "process"},
		{Title: "Tell the story", Body: "Narrate the rollout.", Category: "story"},
	}}
	handler := insights.NewExtractorWithDependencies(cfg, store, contents, logging.NewNop(), stub)

	job := newExtractionJob(t, store, transcript.ID)
	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	updated, err := contents.GetTranscript(ctx, transcript.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != content.TranscriptStatusExtracted {
		t.Fatalf("status = %s, want extracted", updated.Status)
	}

	stored, err := contents.InsightsByTranscript(ctx, transcript.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 2 {
		t.Fatalf("insights = %d, want 2", len(stored))
	}
	for _, insight := range stored {
		if insight.Status != content.ReviewPending {
			t.Fatalf("insight %d status = %s, want pending_review", insight.ID, insight.Status)
		}
	}

	// Review is a human gate; no generation jobs appear on their own.
	queued, err := store.List(ctx, config.QueueGenerate)
	if err != nil {
		t.Fatal(err)
	}
	if len(queued) != 0 {
		t.Fatalf("generate jobs = %d, want 0", len(queued))
	}
}

func TestExtractorAllowsEmptyResult(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	contents := testsupport.MustOpenContentStore(t, cfg)
	transcript := newCleanedTranscript(t, contents)

	handler := insights.NewExtractorWithDependencies(cfg, store, contents, logging.NewNop(), &stubExtractor{})
	job := newExtractionJob(t, store, transcript.ID)
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	updated, err := contents.GetTranscript(ctx, transcript.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != content.TranscriptStatusExtracted {
		t.Fatalf("status = %s, want extracted even with zero insights", updated.Status)
	}
}

func TestExtractorRequiresCleanedContent(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	contents := testsupport.MustOpenContentStore(t, cfg)

	transcript, err := contents.CreateTranscript(ctx, "interview", "raw words")
	if err != nil {
		t.Fatal(err)
	}
	handler := insights.NewExtractorWithDependencies(cfg, store, contents, logging.NewNop(), &stubExtractor{})
	job := newExtractionJob(t, store, transcript.ID)
	if err := handler.Prepare(ctx, job); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExtractorRecordFailureMarksTranscript(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	contents := testsupport.MustOpenContentStore(t, cfg)
	transcript := newCleanedTranscript(t, contents)

	handler := insights.NewExtractorWithDependencies(cfg, store, contents, logging.NewNop(), &stubExtractor{})
	job := newExtractionJob(t, store, transcript.ID)
	handler.RecordFailure(ctx, job, errors.New("extractor exploded"))

	updated, err := contents.GetTranscript(ctx, transcript.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != content.TranscriptStatusFailed {
		t.Fatalf("status = %s, want failed", updated.Status)
	}
}

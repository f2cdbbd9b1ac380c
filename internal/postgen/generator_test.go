package postgen_test

import (
	"context"
	"errors"
	"testing"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/postgen"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/contentai"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/testsupport"
)

type stubGenerator struct {
	drafts    []contentai.PostDraft
	err       error
	platforms []contentai.PlatformSpec
}

func (s *stubGenerator) Generate(ctx context.Context, insight contentai.Insight, platforms []contentai.PlatformSpec) ([]contentai.PostDraft, error) {
	s.platforms = platforms
	if s.err != nil {
		return nil, s.err
	}
	return s.drafts, nil
}

func newApprovedInsight(t *testing.T, contents *content.Store) *content.Insight {
	t.Helper()
	ctx := context.Background()
	transcript, err := contents.CreateTranscript(ctx, "talk", "raw")
	if err != nil {
		t.Fatal(err)
	}
	stored, err := contents.InsertInsights(ctx, transcript.ID, []content.InsightDraft{
		{Title: "Ship small", Body: "Smaller releases fail less.", Category: "process"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := contents.ApproveInsight(ctx, stored[0].ID); err != nil {
		t.Fatal(err)
	}
	insight, err := contents.GetInsight(ctx, stored[0].ID)
	if err != nil {
		t.Fatal(err)
	}
	return insight
}

func newGenerationJob(t *testing.T, store *queue.Store, insightID int64) *queue.Job {
	t.Helper()
	payload, err := stage.EncodePayload(postgen.Payload{InsightID: insightID})
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	job, err := store.Enqueue(context.Background(), config.QueueGenerate, payload, queue.EnqueueOptions{})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	return job
}

func TestGeneratorPersistsDraftsForReview(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	contents := testsupport.MustOpenContentStore(t, cfg)
	insight := newApprovedInsight(t, contents)

	stub := &stubGenerator{drafts: []contentai.PostDraft{
		{Platform: "twitter", Body: "Smaller releases fail less."},
		{Platform: "linkedin", Body: "Why smaller releases fail less, in practice."},
	}}
	handler := postgen.NewGeneratorWithDependencies(cfg, store, contents, logging.NewNop(), stub)

	job := newGenerationJob(t, store, insight.ID)
	if err := handler.Prepare(ctx, job); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	if err := handler.Execute(ctx, job); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	posts, err := contents.PostsByInsight(ctx, insight.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(posts) != 2 {
		t.Fatalf("posts = %d, want 2", len(posts))
	}
	for _, post := range posts {
		if post.Status != content.PostStatusPendingReview {
			t.Fatalf("post %d status = %s, want pending_review", post.ID, post.Status)
		}
	}

	// The generator receives every enabled platform with its length ceiling.
	if len(stub.platforms) == 0 {
		t.Fatal("generator saw no platforms")
	}
	for _, spec := range stub.platforms {
		platform, ok := cfg.PlatformFor(spec.Name)
		if !ok {
			t.Fatalf("unexpected platform %q", spec.Name)
		}
		if spec.MaxLength != platform.MaxContentLength {
			t.Fatalf("%s max length = %d, want %d", spec.Name, spec.MaxLength, platform.MaxContentLength)
		}
	}
}

func TestGeneratorRejectsUnapprovedInsight(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	contents := testsupport.MustOpenContentStore(t, cfg)

	transcript, err := contents.CreateTranscript(ctx, "talk", "raw")
	if err != nil {
		t.Fatal(err)
	}
	stored, err := contents.InsertInsights(ctx, transcript.ID, []content.InsightDraft{
		{Title: "t", Body: "still pending review"},
	})
	if err != nil {
		t.Fatal(err)
	}

	handler := postgen.NewGeneratorWithDependencies(cfg, store, contents, logging.NewNop(), &stubGenerator{})
	job := newGenerationJob(t, store, stored[0].ID)
	if err := handler.Prepare(ctx, job); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestGeneratorRecordFailureMarksInsight(t *testing.T) {
	ctx := context.Background()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	contents := testsupport.MustOpenContentStore(t, cfg)
	insight := newApprovedInsight(t, contents)

	handler := postgen.NewGeneratorWithDependencies(cfg, store, contents, logging.NewNop(), &stubGenerator{})
	job := newGenerationJob(t, store, insight.ID)
	handler.RecordFailure(ctx, job, errors.New("generator exploded"))

	updated, err := contents.GetInsight(ctx, insight.ID)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != content.ReviewFailed {
		t.Fatalf("status = %s, want failed", updated.Status)
	}
}

func TestGeneratorHealthRequiresEnabledPlatforms(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	contents := testsupport.MustOpenContentStore(t, cfg)
	handler := postgen.NewGeneratorWithDependencies(cfg, store, contents, logging.NewNop(), &stubGenerator{})

	if health := handler.HealthCheck(context.Background()); !health.Ready {
		t.Fatalf("expected healthy, got %+v", health)
	}
	for name, platform := range cfg.Platforms {
		platform.Enabled = false
		cfg.Platforms[name] = platform
	}
	if health := handler.HealthCheck(context.Background()); health.Ready {
		t.Fatal("expected unhealthy with all platforms disabled")
	}
}

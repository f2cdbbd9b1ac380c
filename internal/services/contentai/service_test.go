package contentai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services/llm"
)

func newTestService(t *testing.T, modelJSON string) *Service {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := `{"choices":[{"message":{"content":` + modelJSON + `}}]}`
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)

	client := llm.NewClient(config.LLM{APIKey: "test", BaseURL: server.URL, Model: "m"})
	return NewService(client)
}

func TestCleanCountsWords(t *testing.T) {
	service := newTestService(t, `"{\"cleaned_content\":\"We shipped the feature on time.\"}"`)

	result, err := service.Clean(context.Background(), "um so we uh shipped the feature on time")
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if result.CleanedContent != "We shipped the feature on time." {
		t.Fatalf("cleaned = %q", result.CleanedContent)
	}
	if result.WordCount != 6 {
		t.Fatalf("word count = %d, want 6", result.WordCount)
	}
}

func TestCleanRejectsEmptyInput(t *testing.T) {
	service := newTestService(t, `"{}"`)
	if _, err := service.Clean(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestExtractSkipsEmptyBodiesAndFillsTitles(t *testing.T) {
	service := newTestService(t, `"{\"insights\":[{\"title\":\"\",\"body\":\"Ship smaller batches.\",\"category\":\"Process\"},{\"title\":\"x\",\"body\":\"\"}]}"`)

	insights, err := service.Extract(context.Background(), "cleaned text")
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(insights) != 1 {
		t.Fatalf("insights = %d, want 1 (empty body skipped)", len(insights))
	}
	if insights[0].Title != "Ship smaller batches." {
		t.Fatalf("title should default to body, got %q", insights[0].Title)
	}
	if insights[0].Category != "process" {
		t.Fatalf("category = %q, want lowercased", insights[0].Category)
	}
}

func TestExtractAllowsEmptyResult(t *testing.T) {
	service := newTestService(t, `"{\"insights\":[]}"`)
	insights, err := service.Extract(context.Background(), "small talk only")
	if err != nil {
		t.Fatal(err)
	}
	if len(insights) != 0 {
		t.Fatalf("insights = %d, want 0", len(insights))
	}
}

func TestGenerateEnforcesPlatformCeiling(t *testing.T) {
	service := newTestService(t, `"{\"posts\":[{\"platform\":\"twitter\",\"body\":\"0123456789012345\"}]}"`)

	_, err := service.Generate(context.Background(), Insight{Body: "idea"}, []PlatformSpec{{Name: "twitter", MaxLength: 10}})
	if err == nil {
		t.Fatal("expected over-length failure")
	}
	if errors.Is(err, services.ErrValidation) {
		t.Fatal("over-length model output is transient, not a validation failure")
	}
}

func TestGenerateDropsUnknownPlatforms(t *testing.T) {
	service := newTestService(t, `"{\"posts\":[{\"platform\":\"mastodon\",\"body\":\"hi\"},{\"platform\":\"Twitter\",\"body\":\"hello\"}]}"`)

	drafts, err := service.Generate(context.Background(), Insight{Body: "idea"}, []PlatformSpec{{Name: "twitter", MaxLength: 280}})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(drafts) != 1 || drafts[0].Platform != "twitter" {
		t.Fatalf("drafts = %+v", drafts)
	}
}

func TestGenerateRequiresPlatforms(t *testing.T) {
	service := newTestService(t, `"{}"`)
	if _, err := service.Generate(context.Background(), Insight{Body: "idea"}, nil); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
)

func TestConsoleHandlerPullsSubjectIntoHeader(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("stage started",
		String(FieldComponent, "cleaning"),
		Int64(FieldJobID, 7),
		String(FieldQueue, "clean"),
		String("extra", "value"),
	)

	line := buf.String()
	if !strings.Contains(line, "[cleaning]") {
		t.Fatalf("expected component header, got %q", line)
	}
	if !strings.Contains(line, "job_id=7") || !strings.Contains(line, "queue=clean") {
		t.Fatalf("expected subject fields, got %q", line)
	}
	if !strings.Contains(line, "extra=value") {
		t.Fatalf("expected trailing attrs, got %q", line)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(slog.LevelWarn)
	logger := slog.New(newConsoleHandler(&buf, lvl, false))

	logger.Info("hidden")
	logger.Warn("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info line should be suppressed, got %q", out)
	}
	if !strings.Contains(out, "visible") {
		t.Fatalf("warn line missing, got %q", out)
	}
}

func TestWithContextCarriesStandardFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	base := slog.New(newConsoleHandler(&buf, lvl, false))

	ctx := services.WithJobID(context.Background(), 42)
	ctx = services.WithQueue(ctx, "publish")
	ctx = services.WithStage(ctx, "publishing")

	WithContext(ctx, base).Info("claimed")

	line := buf.String()
	for _, want := range []string{"job_id=42", "queue=publish", "stage=publishing"} {
		if !strings.Contains(line, want) {
			t.Fatalf("expected %s in %q", want, line)
		}
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "yaml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

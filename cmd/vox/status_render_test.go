package main

import (
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ipc"
)

func TestRenderStatusLineNoColor(t *testing.T) {
	got := renderStatusLine("Processing", statusError, "stopped", false)
	want := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, "Processing:", "[ERROR] stopped")
	if got != want {
		t.Fatalf("renderStatusLine mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestRenderStatusLineWithColor(t *testing.T) {
	got := renderStatusLine("Processing", statusOK, "running", true)
	if !strings.HasPrefix(got, ansiGreen) {
		t.Fatalf("expected green prefix, got %q", got)
	}
	if !strings.HasSuffix(got, ansiReset) {
		t.Fatalf("expected reset suffix, got %q", got)
	}
}

func TestRenderQueueStatsTable(t *testing.T) {
	out := renderQueueStatsTable(map[string]ipc.QueueCounts{
		"clean":   {Waiting: 2, Active: 1},
		"publish": {Failed: 3},
	})
	cleanIdx := strings.Index(out, "clean")
	publishIdx := strings.Index(out, "publish")
	if cleanIdx < 0 || publishIdx < 0 {
		t.Fatalf("expected both queues in output:\n%s", out)
	}
	if cleanIdx > publishIdx {
		t.Fatalf("expected sorted queue order:\n%s", out)
	}

	if got := renderQueueStatsTable(nil); !strings.Contains(got, "No queues reported") {
		t.Fatalf("expected empty-stats message, got %q", got)
	}
}

func TestShouldColorizeNonFile(t *testing.T) {
	if shouldColorize(io.Discard) {
		t.Fatalf("expected non-file writer to disable color")
	}
}

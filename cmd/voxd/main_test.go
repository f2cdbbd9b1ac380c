package main

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/testsupport"
)

func TestBuildDaemonWiresAllServices(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	contents := testsupport.MustOpenContentStore(t, cfg)
	schedules := testsupport.MustOpenSchedulerStore(t, cfg)

	d, err := buildDaemon(cfg, logging.NewNop(), store, contents, schedules)
	if err != nil {
		t.Fatalf("buildDaemon: %v", err)
	}
	if d.Manager() == nil {
		t.Fatal("expected a pipeline manager")
	}
	if d.Processor() == nil {
		t.Fatal("expected a scheduled-post processor")
	}

	ctx := context.Background()
	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	status := d.Status(ctx)
	if !status.Running {
		t.Fatal("expected running daemon")
	}
	if len(status.StageHealth) != 5 {
		t.Fatalf("expected 5 health checks, got %d", len(status.StageHealth))
	}
	d.Stop()
}

func TestWritePIDFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxd.pid")
	if err := writePIDFile(path); err != nil {
		t.Fatalf("writePIDFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read pid file: %v", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid != os.Getpid() {
		t.Fatalf("unexpected pid file contents %q", data)
	}
}

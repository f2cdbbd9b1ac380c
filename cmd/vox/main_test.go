package main

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/content"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/daemon"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/ipc"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/logging"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/pipeline"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/queue"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/scheduler"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/stage"
	"github.com/HanifCarroll/vox-prismatic-sub008/internal/testsupport"
)

type idleStage struct{}

func (idleStage) Prepare(context.Context, *queue.Job) error { return nil }
func (idleStage) Execute(context.Context, *queue.Job) error { return nil }
func (idleStage) HealthCheck(context.Context) stage.Health  { return stage.Healthy("idle") }

type cliTestEnv struct {
	cfg        *config.Config
	store      *queue.Store
	contents   *content.Store
	schedules  *scheduler.Store
	daemon     *daemon.Daemon
	server     *ipc.Server
	socketPath string
	configPath string
	baseDir    string
	cancel     context.CancelFunc
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t)
	base := filepath.Dir(cfg.Paths.DataDir)

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	store := testsupport.MustOpenStore(t, cfg)
	contents := testsupport.MustOpenContentStore(t, cfg)
	schedules := testsupport.MustOpenSchedulerStore(t, cfg)

	logger := logging.NewNop()
	stages := pipeline.StageSet{
		Cleaner:   idleStage{},
		Extractor: idleStage{},
		Generator: idleStage{},
		Publisher: idleStage{},
	}
	manager := pipeline.NewManager(cfg, store, contents, logger, stages)

	processor := scheduler.NewProcessor(schedules, cfg, func(context.Context, *scheduler.ScheduledPost) error {
		return nil
	}, logger)

	d, err := daemon.New(cfg, logger, store, contents, schedules, manager, processor)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	socketPath := cfg.SocketPath()
	srv, err := ipc.NewServer(ctx, socketPath, d, logger)
	if err != nil {
		cancel()
		if strings.Contains(err.Error(), "operation not permitted") {
			t.Skipf("unix sockets unavailable: %v", err)
		}
		t.Fatalf("ipc.NewServer: %v", err)
	}
	srv.Serve()

	env := &cliTestEnv{
		cfg:        cfg,
		store:      store,
		contents:   contents,
		schedules:  schedules,
		daemon:     d,
		server:     srv,
		socketPath: socketPath,
		configPath: configPath,
		baseDir:    base,
		cancel:     cancel,
	}

	t.Cleanup(func() {
		cancel()
		srv.Close()
		d.Close()
	})

	return env
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	data, err := toml.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func runCLI(t *testing.T, args []string, socket, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	flags := []string{"--socket", socket}
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got:\n%s", needle, haystack)
	}
}

func TestCLITranscriptAndQueueCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	transcriptPath := filepath.Join(env.baseDir, "standup notes.txt")
	if err := os.WriteFile(transcriptPath, []byte("um so today we shipped the importer"), 0o644); err != nil {
		t.Fatalf("write transcript file: %v", err)
	}

	out, _, err := runCLI(t, []string{"transcript", "add", "--file", transcriptPath}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("transcript add: %v", err)
	}
	requireContains(t, out, "queued for cleaning")

	out, _, err = runCLI(t, []string{"transcript", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("transcript list: %v", err)
	}
	requireContains(t, out, "standup notes")

	out, _, err = runCLI(t, []string{"transcript", "status", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("transcript status: %v", err)
	}
	requireContains(t, out, "Transcript 1:")

	out, _, err = runCLI(t, []string{"queue", "list", "--queue", "clean"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue list: %v", err)
	}
	requireContains(t, out, "clean")
	requireContains(t, out, "Waiting")

	out, _, err = runCLI(t, []string{"queue", "stats"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue stats: %v", err)
	}
	requireContains(t, out, "clean")

	out, _, err = runCLI(t, []string{"queue", "clear", "--completed"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue clear: %v", err)
	}
	requireContains(t, out, "Removed 0 completed job(s)")

	out, _, err = runCLI(t, []string{"queue", "health"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("queue health: %v", err)
	}
	requireContains(t, out, "[OK]")

	out, _, err = runCLI(t, []string{"transcript", "cancel", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("transcript cancel: %v", err)
	}
	requireContains(t, out, "Transcript 1 cancelled")
}

func TestCLILogsShowsRecentLines(t *testing.T) {
	env := setupCLITestEnv(t)

	logPath := filepath.Join(env.cfg.Paths.LogDir, "voxd.log")
	if err := os.WriteFile(logPath, []byte("first\nsecond\nthird\n"), 0o644); err != nil {
		t.Fatalf("write log file: %v", err)
	}

	out, _, err := runCLI(t, []string{"logs", "--lines", "2"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	requireContains(t, out, "second")
	requireContains(t, out, "third")
	if strings.Contains(out, "first") {
		t.Fatalf("expected only the last two lines, got:\n%s", out)
	}
}

func TestCLIQueueCommandsFallBackToStore(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	if _, err := env.store.Enqueue(ctx, config.QueueClean, `{"transcript_id":7}`, queue.EnqueueOptions{}); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// A dead socket forces the direct-store path.
	deadSocket := filepath.Join(env.baseDir, "dead.sock")
	out, _, err := runCLI(t, []string{"queue", "stats"}, deadSocket, env.configPath)
	if err != nil {
		t.Fatalf("queue stats via store: %v", err)
	}
	requireContains(t, out, "clean")

	out, _, err = runCLI(t, []string{"queue", "list"}, deadSocket, env.configPath)
	if err != nil {
		t.Fatalf("queue list via store: %v", err)
	}
	requireContains(t, out, "Waiting")
}

func TestCLIReviewAndScheduleCommands(t *testing.T) {
	env := setupCLITestEnv(t)
	ctx := context.Background()

	transcript, err := env.contents.CreateTranscript(ctx, "demo talk", "raw words here")
	if err != nil {
		t.Fatalf("CreateTranscript: %v", err)
	}
	insights, err := env.contents.InsertInsights(ctx, transcript.ID, []content.InsightDraft{
		{Title: "ship small", Body: "release in slices", Category: "process"},
		{Title: "measure twice", Body: "verify before deploy", Category: "process"},
	})
	if err != nil {
		t.Fatalf("InsertInsights: %v", err)
	}

	out, _, err := runCLI(t, []string{"review", "insights", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("insights list: %v", err)
	}
	requireContains(t, out, "ship small")
	requireContains(t, out, "measure twice")

	out, _, err = runCLI(t, []string{"review", "insights", "approve", fmt.Sprintf("%d", insights[0].ID)}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("insights approve: %v", err)
	}
	requireContains(t, out, "generation job")

	out, _, err = runCLI(t, []string{"review", "insights", "reject", fmt.Sprintf("%d", insights[1].ID)}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("insights reject: %v", err)
	}
	requireContains(t, out, "rejected")

	posts, err := env.contents.InsertPosts(ctx, insights[0].ID, []content.PostDraft{
		{Platform: "twitter", Body: "shipping small keeps releases boring"},
	})
	if err != nil {
		t.Fatalf("InsertPosts: %v", err)
	}

	out, _, err = runCLI(t, []string{"review", "posts", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("posts list: %v", err)
	}
	requireContains(t, out, "twitter")

	postID := fmt.Sprintf("%d", posts[0].ID)
	out, _, err = runCLI(t, []string{"review", "posts", "approve", postID, "--at", "+2h"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("posts approve --at: %v", err)
	}
	requireContains(t, out, "scheduled for")

	draft, err := env.contents.GetPost(ctx, posts[0].ID)
	if err != nil || draft == nil {
		t.Fatalf("GetPost: %v", err)
	}
	if draft.Status != content.PostStatusScheduled {
		t.Fatalf("expected scheduled draft, got %s", draft.Status)
	}

	out, _, err = runCLI(t, []string{"schedule", "list"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("schedule list: %v", err)
	}
	requireContains(t, out, "twitter")
	requireContains(t, out, "Pending")

	out, _, err = runCLI(t, []string{"schedule", "stats"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("schedule stats: %v", err)
	}
	requireContains(t, out, "Pending")

	out, _, err = runCLI(t, []string{"schedule", "cancel", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("schedule cancel: %v", err)
	}
	requireContains(t, out, "cancelled")

	draft, err = env.contents.GetPost(ctx, posts[0].ID)
	if err != nil || draft == nil {
		t.Fatalf("GetPost after cancel: %v", err)
	}
	if draft.Status != content.PostStatusApproved {
		t.Fatalf("expected approved draft after cancel, got %s", draft.Status)
	}

	out, _, err = runCLI(t, []string{"schedule", "remove", "1"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("schedule remove: %v", err)
	}
	requireContains(t, out, "removed")

	out, _, err = runCLI(t, []string{"schedule", "add", "--platform", "twitter", "--content", "direct note", "--at", "+1h"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("schedule add ad-hoc: %v", err)
	}
	requireContains(t, out, "Scheduled")

	out, _, err = runCLI(t, []string{"schedule", "run"}, env.socketPath, env.configPath)
	if err != nil {
		t.Fatalf("schedule run: %v", err)
	}
	requireContains(t, out, "Processed 0")
}

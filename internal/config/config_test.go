package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, _, exists, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if exists {
		t.Fatal("expected exists=false for missing file")
	}
	if got := cfg.QueuePolicyFor(QueueClean).MaxAttempts; got != 3 {
		t.Fatalf("clean max_attempts = %d, want 3", got)
	}
	if got := cfg.Workflow.ClaimsPerMinute; got != 100 {
		t.Fatalf("claims_per_minute = %d, want 100", got)
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vox.toml")
	body := `
[llm]
base_url = "https://example.test/v1/"
model = "test/model"

[queues.publish]
max_attempts = 5

[platforms.Twitter]
enabled = true
max_content_length = 280
rate_limit = 4
rate_window_seconds = 30
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, resolved, exists, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !exists || resolved == "" {
		t.Fatalf("expected file to resolve, exists=%v path=%q", exists, resolved)
	}
	if cfg.LLM.BaseURL != "https://example.test/v1" {
		t.Fatalf("base_url not trimmed: %q", cfg.LLM.BaseURL)
	}
	if got := cfg.QueuePolicyFor(QueuePublish); got.MaxAttempts != 5 || got.BackoffBaseSeconds != 2 {
		t.Fatalf("publish policy merge wrong: %+v", got)
	}
	if _, ok := cfg.PlatformFor("twitter"); !ok {
		t.Fatal("platform key should be lowercased")
	}
}

func TestValidateRejectsBadWindow(t *testing.T) {
	cfg := Default()
	policy := cfg.Queues[QueueClean]
	policy.BackoffBaseSeconds = 100
	policy.BackoffMaxSeconds = 10
	cfg.Queues[QueueClean] = policy

	err := cfg.Validate()
	if err == nil || !strings.Contains(err.Error(), "backoff_max_seconds") {
		t.Fatalf("expected backoff validation error, got %v", err)
	}
}

func TestValidateForProcessingRequiresCredentials(t *testing.T) {
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("VOX_TWITTER_ACCESS_TOKEN", "")
	t.Setenv("VOX_LINKEDIN_ACCESS_TOKEN", "")

	cfg := Default()
	if err := cfg.normalize(); err != nil {
		t.Fatal(err)
	}
	err := cfg.ValidateForProcessing()
	if err == nil {
		t.Fatal("expected missing credential error")
	}
	if !strings.Contains(err.Error(), "llm.api_key") {
		t.Fatalf("expected api key complaint, got %v", err)
	}
}

func TestCreateSampleWritesParseableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := Load(path); err != nil || !exists {
		t.Fatalf("sample config should load, exists=%v err=%v", exists, err)
	}
}

func TestExpandPathHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	got, err := ExpandPath("~/vox-data")
	if err != nil {
		t.Fatal(err)
	}
	if got != filepath.Join(home, "vox-data") {
		t.Fatalf("expandPath = %q", got)
	}
}

// Package testsupport provides shared helpers for package tests: temp-dir
// backed configs and opened stores with automatic cleanup.
package testsupport

import (
	"path/filepath"
	"testing"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.DataDir = filepath.Join(base, "data")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.LLM.APIKey = "test"
	for name, platform := range cfg.Platforms {
		platform.AccessToken = "test-token"
		cfg.Platforms[name] = platform
	}

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithQueuePolicy overrides one queue's retry policy on the test config.
func WithQueuePolicy(queue string, policy config.QueuePolicy) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Queues[queue] = policy
	}
}

// WithLeaseTimeout sets the workflow lease timeout in seconds.
func WithLeaseTimeout(seconds int) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Workflow.LeaseTimeout = seconds
	}
}

// WithPlatform adds or replaces a platform definition on the test config.
func WithPlatform(name string, platform config.Platform) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Platforms[name] = platform
	}
}

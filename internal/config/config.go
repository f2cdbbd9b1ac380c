package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// LLM contains the shared connection settings for the AI content services.
type LLM struct {
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"`
	Referer        string `toml:"referer"`
	Title          string `toml:"title"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Platform contains per-platform publishing configuration.
type Platform struct {
	Enabled            bool   `toml:"enabled"`
	BaseURL            string `toml:"base_url"`
	AccessToken        string `toml:"access_token"`
	MaxContentLength   int    `toml:"max_content_length"`
	RateLimit          int    `toml:"rate_limit"`
	RateWindowSeconds  int    `toml:"rate_window_seconds"`
	RequestTimeoutSecs int    `toml:"request_timeout_seconds"`
}

// QueuePolicy contains retry and concurrency settings for one job queue.
type QueuePolicy struct {
	MaxAttempts        int `toml:"max_attempts"`
	BackoffBaseSeconds int `toml:"backoff_base_seconds"`
	BackoffMaxSeconds  int `toml:"backoff_max_seconds"`
	Concurrency        int `toml:"concurrency"`
}

// Workflow contains daemon timing and admission settings.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	LeaseTimeout       int `toml:"lease_timeout"`
	ClaimsPerMinute    int `toml:"claims_per_minute"`
}

// Scheduler contains settings for the scheduled-post processor.
type Scheduler struct {
	BatchSize         int `toml:"batch_size"`
	BatchDelaySeconds int `toml:"batch_delay_seconds"`
	MaxRetries        int `toml:"max_retries"`
	IntervalMinutes   int `toml:"interval_minutes"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for vox prismatic.
//
// Configuration sections by subsystem:
//   - Paths: data and log directories
//   - LLM: connection settings for transcript cleaning, insight extraction,
//     and post generation
//   - Platforms: per-platform publishing endpoints, credentials, length
//     ceilings, and rate windows
//   - Queues: per-stage retry budgets, backoff, and worker concurrency
//   - Workflow: daemon polling, lease, and admission-ceiling settings
//   - Scheduler: batch size and pacing for scheduled publishing
//   - Logging: log format, level, and retention
type Config struct {
	Paths     Paths               `toml:"paths"`
	LLM       LLM                 `toml:"llm"`
	Platforms map[string]Platform `toml:"platforms"`
	Queues    map[string]QueuePolicy `toml:"queues"`
	Workflow  Workflow            `toml:"workflow"`
	Scheduler Scheduler           `toml:"scheduler"`
	Logging   Logging             `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/vox/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized. The second return value
// is the resolved path, the third reports whether the file existed.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		if _, err := os.Stat(expanded); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	projectPath, err := filepath.Abs("vox.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// QueuePolicyFor returns the policy for a queue name, falling back to the
// built-in defaults when the section is missing.
func (c *Config) QueuePolicyFor(queue string) QueuePolicy {
	if policy, ok := c.Queues[queue]; ok {
		return policy
	}
	if policy, ok := defaultQueuePolicies()[queue]; ok {
		return policy
	}
	return QueuePolicy{MaxAttempts: 3, BackoffBaseSeconds: 5, BackoffMaxSeconds: 300, Concurrency: 1}
}

// PlatformFor returns the platform settings and whether the platform is known.
func (c *Config) PlatformFor(name string) (Platform, bool) {
	platform, ok := c.Platforms[strings.ToLower(strings.TrimSpace(name))]
	return platform, ok
}

// EnabledPlatforms returns the names of all enabled platforms, sorted order
// is not guaranteed.
func (c *Config) EnabledPlatforms() []string {
	names := make([]string, 0, len(c.Platforms))
	for name, platform := range c.Platforms {
		if platform.Enabled {
			names = append(names, name)
		}
	}
	return names
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SocketPath returns the daemon's IPC socket location.
func (c *Config) SocketPath() string {
	return filepath.Join(c.Paths.DataDir, "voxd.sock")
}

// LockPath returns the daemon's single-instance lock file location.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, "voxd.lock")
}

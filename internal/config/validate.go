package config

import (
	"fmt"
	"strings"

	"github.com/HanifCarroll/vox-prismatic-sub008/internal/services"
)

// Validate checks configuration invariants that normalization cannot repair.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.DataDir == "" {
		problems = append(problems, "paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		problems = append(problems, "paths.log_dir must be set")
	}

	if c.LLM.BaseURL == "" {
		problems = append(problems, "llm.base_url must be set")
	}
	if c.LLM.Model == "" {
		problems = append(problems, "llm.model must be set")
	}

	for name, platform := range c.Platforms {
		if !platform.Enabled {
			continue
		}
		if platform.MaxContentLength <= 0 {
			problems = append(problems, fmt.Sprintf("platforms.%s.max_content_length must be positive", name))
		}
		if platform.RateLimit <= 0 {
			problems = append(problems, fmt.Sprintf("platforms.%s.rate_limit must be positive", name))
		}
		if platform.RateWindowSeconds <= 0 {
			problems = append(problems, fmt.Sprintf("platforms.%s.rate_window_seconds must be positive", name))
		}
	}

	for queue, policy := range c.Queues {
		if policy.BackoffMaxSeconds < policy.BackoffBaseSeconds {
			problems = append(problems, fmt.Sprintf("queues.%s.backoff_max_seconds must be >= backoff_base_seconds", queue))
		}
	}

	switch c.Logging.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q is not supported (console, json)", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q is not supported (debug, info, warn, error)", c.Logging.Level))
	}

	if len(problems) > 0 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", strings.Join(problems, "; "), nil)
	}
	return nil
}

// ValidateForProcessing checks the additional requirements the daemon needs
// before it can run AI stages and publish posts.
func (c *Config) ValidateForProcessing() error {
	var problems []string

	if c.LLM.APIKey == "" {
		problems = append(problems, "llm.api_key is required (or set OPENROUTER_API_KEY)")
	}
	for name, platform := range c.Platforms {
		if platform.Enabled && platform.AccessToken == "" {
			problems = append(problems, fmt.Sprintf("platforms.%s.access_token is required (or set VOX_%s_ACCESS_TOKEN)", name, strings.ToUpper(name)))
		}
	}

	if len(problems) > 0 {
		return services.Wrap(services.ErrConfiguration, "config", "validate", strings.Join(problems, "; "), nil)
	}
	return nil
}

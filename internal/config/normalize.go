package config

import (
	"os"
	"strings"
)

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return err
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return err
	}

	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = strings.TrimSpace(os.Getenv("OPENROUTER_API_KEY"))
	}
	c.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(c.LLM.BaseURL), "/")
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = Default().LLM.TimeoutSeconds
	}

	normalized := make(map[string]Platform, len(c.Platforms))
	for name, platform := range c.Platforms {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		platform.BaseURL = strings.TrimRight(strings.TrimSpace(platform.BaseURL), "/")
		platform.AccessToken = strings.TrimSpace(platform.AccessToken)
		if platform.AccessToken == "" {
			envKey := "VOX_" + strings.ToUpper(key) + "_ACCESS_TOKEN"
			platform.AccessToken = strings.TrimSpace(os.Getenv(envKey))
		}
		if platform.RequestTimeoutSecs <= 0 {
			platform.RequestTimeoutSecs = 30
		}
		normalized[key] = platform
	}
	c.Platforms = normalized

	defaults := defaultQueuePolicies()
	if c.Queues == nil {
		c.Queues = make(map[string]QueuePolicy, len(defaults))
	}
	for _, queue := range QueueNames() {
		policy, ok := c.Queues[queue]
		if !ok {
			c.Queues[queue] = defaults[queue]
			continue
		}
		fallback := defaults[queue]
		if policy.MaxAttempts <= 0 {
			policy.MaxAttempts = fallback.MaxAttempts
		}
		if policy.BackoffBaseSeconds <= 0 {
			policy.BackoffBaseSeconds = fallback.BackoffBaseSeconds
		}
		if policy.BackoffMaxSeconds <= 0 {
			policy.BackoffMaxSeconds = fallback.BackoffMaxSeconds
		}
		if policy.Concurrency <= 0 {
			policy.Concurrency = fallback.Concurrency
		}
		c.Queues[queue] = policy
	}

	if c.Workflow.QueuePollInterval <= 0 {
		c.Workflow.QueuePollInterval = Default().Workflow.QueuePollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = Default().Workflow.ErrorRetryInterval
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		c.Workflow.HeartbeatInterval = Default().Workflow.HeartbeatInterval
	}
	if c.Workflow.LeaseTimeout <= 0 {
		c.Workflow.LeaseTimeout = Default().Workflow.LeaseTimeout
	}
	if c.Workflow.ClaimsPerMinute <= 0 {
		c.Workflow.ClaimsPerMinute = Default().Workflow.ClaimsPerMinute
	}

	if c.Scheduler.BatchSize <= 0 {
		c.Scheduler.BatchSize = Default().Scheduler.BatchSize
	}
	if c.Scheduler.BatchDelaySeconds < 0 {
		c.Scheduler.BatchDelaySeconds = Default().Scheduler.BatchDelaySeconds
	}
	if c.Scheduler.MaxRetries <= 0 {
		c.Scheduler.MaxRetries = Default().Scheduler.MaxRetries
	}
	if c.Scheduler.IntervalMinutes <= 0 {
		c.Scheduler.IntervalMinutes = Default().Scheduler.IntervalMinutes
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = Default().Logging.Format
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = Default().Logging.Level
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}

	return nil
}

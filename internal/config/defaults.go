package config

// Queue names shared across the pipeline. Each queue carries jobs for exactly
// one processing stage.
const (
	QueueClean    = "clean"
	QueueInsights = "insights"
	QueueGenerate = "generate"
	QueuePublish  = "publish"
)

// QueueNames lists every pipeline queue in stage order.
func QueueNames() []string {
	return []string{QueueClean, QueueInsights, QueueGenerate, QueuePublish}
}

func defaultQueuePolicies() map[string]QueuePolicy {
	return map[string]QueuePolicy{
		QueueClean:    {MaxAttempts: 3, BackoffBaseSeconds: 5, BackoffMaxSeconds: 60, Concurrency: 2},
		QueueInsights: {MaxAttempts: 2, BackoffBaseSeconds: 30, BackoffMaxSeconds: 300, Concurrency: 1},
		QueueGenerate: {MaxAttempts: 2, BackoffBaseSeconds: 30, BackoffMaxSeconds: 300, Concurrency: 1},
		QueuePublish:  {MaxAttempts: 3, BackoffBaseSeconds: 2, BackoffMaxSeconds: 30, Concurrency: 2},
	}
}

func defaultPlatforms() map[string]Platform {
	return map[string]Platform{
		"twitter": {
			Enabled:            true,
			BaseURL:            "https://api.twitter.com/2",
			MaxContentLength:   280,
			RateLimit:          10,
			RateWindowSeconds:  60,
			RequestTimeoutSecs: 30,
		},
		"linkedin": {
			Enabled:            true,
			BaseURL:            "https://api.linkedin.com/v2",
			MaxContentLength:   3000,
			RateLimit:          50,
			RateWindowSeconds:  900,
			RequestTimeoutSecs: 30,
		},
	}
}

// Default returns a config populated with default values.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: "~/.local/share/vox",
			LogDir:  "~/.local/share/vox/logs",
		},
		LLM: LLM{
			BaseURL:        "https://openrouter.ai/api/v1",
			Model:          "anthropic/claude-sonnet-4",
			Referer:        "https://github.com/HanifCarroll/vox-prismatic-sub008",
			Title:          "vox prismatic",
			TimeoutSeconds: 120,
		},
		Platforms: defaultPlatforms(),
		Queues:    defaultQueuePolicies(),
		Workflow: Workflow{
			QueuePollInterval:  5,
			ErrorRetryInterval: 10,
			HeartbeatInterval:  15,
			LeaseTimeout:       120,
			ClaimsPerMinute:    100,
		},
		Scheduler: Scheduler{
			BatchSize:         5,
			BatchDelaySeconds: 2,
			MaxRetries:        3,
			IntervalMinutes:   1,
		},
		Logging: Logging{
			Format:        "console",
			Level:         "info",
			RetentionDays: 30,
		},
	}
}

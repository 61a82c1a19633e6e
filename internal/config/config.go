// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) initializer to build a Config with defaults.
// - Layer defaults -> optional YAML file -> environment variables.
// - External errors must be wrapped via this package's error helpers.
package config

import (
	"runtime"
)

// AI contains settings for the generative AI backend.
type AI struct {
	// BaseURL is the AI backend endpoint, e.g. "https://api.openai.com".
	BaseURL string `koanf:"base_url"`

	// APIKey authenticates requests. Empty disables generation (reports fail fast).
	APIKey string `koanf:"api_key"`

	// Model names the chat model used for report generation.
	Model string `koanf:"model"`

	// TimeoutSeconds bounds the total time budget of a single generation call,
	// retries included. Also used as the fingerprint lease timeout.
	TimeoutSeconds int `koanf:"timeout_seconds"`

	// MaxAttempts caps attempts per generation call (1 initial + retries).
	MaxAttempts int `koanf:"max_attempts"`

	// BackoffBaseMS is the initial retry backoff; doubles per attempt.
	BackoffBaseMS int `koanf:"backoff_base_ms"`
}

// Guardrails carries the configurable content-safety term lists applied by the
// content validator. These are configuration, not business logic: operators can
// tighten or extend the lists without a code change.
type Guardrails struct {
	// MedicalTerms reject content that drifts into medical advice.
	MedicalTerms []string `koanf:"medical_terms"`

	// GuaranteeTerms reject recruiting/outcome-guarantee language.
	GuaranteeTerms []string `koanf:"guarantee_terms"`

	// DisclaimerTerms: at least one must appear in the report disclaimer.
	DisclaimerTerms []string `koanf:"disclaimer_terms"`
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory generation job queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of generation workers.
	WorkerCount int `koanf:"worker_count"`

	// MinGames is the minimum number of games required to accept a request.
	MinGames int `koanf:"min_games"`

	// MaxGames caps the number of games considered for one report.
	MaxGames int `koanf:"max_games"`

	// ReportsPerHour is the per-owner generation quota.
	ReportsPerHour int `koanf:"reports_per_hour"`

	// CacheBackend selects the fingerprint cache: "memory" or "redis".
	CacheBackend string `koanf:"cache_backend"`

	// CacheTTLSeconds is the fingerprint cache entry lifetime.
	CacheTTLSeconds int `koanf:"cache_ttl_seconds"`

	// RedisAddr and RedisDB configure the redis cache backend.
	RedisAddr string `koanf:"redis_addr"`
	RedisDB   int    `koanf:"redis_db"`

	// PostgresDSN selects the postgres report store when set; empty keeps the
	// in-memory store.
	PostgresDSN string `koanf:"postgres_dsn"`

	AI         AI         `koanf:"ai"`
	Guardrails Guardrails `koanf:"guardrails"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:        "info",
		Addr:            ":8080",
		QueueSize:       1024,
		WorkerCount:     runtime.NumCPU(),
		MinGames:        3,
		MaxGames:        10,
		ReportsPerHour:  10,
		CacheBackend:    "memory",
		CacheTTLSeconds: 3600,
		AI: AI{
			BaseURL:        "https://api.openai.com",
			Model:          "gpt-4o",
			TimeoutSeconds: 60,
			MaxAttempts:    3,
			BackoffBaseMS:  1000,
		},
		Guardrails: Guardrails{
			MedicalTerms: []string{
				"diagnose",
				"diagnosis",
				"treatment plan",
				"medication",
				"injury treatment",
				"see a doctor",
			},
			GuaranteeTerms: []string{
				"guaranteed scholarship",
				"guaranteed admission",
				"scholarship lock",
				"definitely will",
				"will be recruited",
				"assured acceptance",
				"college bound",
			},
			DisclaimerTerms: []string{
				"guarantee",
				"promise",
			},
		},
	}
}

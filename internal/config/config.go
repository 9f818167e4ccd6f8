// Package config defines service configuration and loading.
package config

import "runtime"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DatabaseURL points at Postgres. Empty runs the service on the
	// in-memory stores.
	DatabaseURL string `koanf:"database_url"`

	// MigrationsDir overrides the embedded SQL migrations.
	MigrationsDir string `koanf:"migrations_dir"`

	// AdminToken guards the leaderboard admin endpoints. Empty disables
	// them.
	AdminToken string `koanf:"admin_token"`

	// RebuildQueueSize bounds the in-memory rebuild job queue.
	RebuildQueueSize int `koanf:"rebuild_queue_size"`

	// RebuildWorkers sets the number of rebuild workers.
	RebuildWorkers int `koanf:"rebuild_workers"`

	// DedupeSize sets the size of the submission idempotency cache.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxTopLimit caps GET scores ?limit.
	MaxTopLimit int `koanf:"max_top_limit"`

	// MaxAroundWindow caps the around query ?window.
	MaxAroundWindow int `koanf:"max_around_window"`

	// SubmitRetryAttempts bounds persistence retries per submission.
	SubmitRetryAttempts int `koanf:"submit_retry_attempts"`

	// SubmitRetryInitialMS and SubmitRetryMaxMS bound the backoff delays
	// between persistence retries.
	SubmitRetryInitialMS int `koanf:"submit_retry_initial_ms"`
	SubmitRetryMaxMS     int `koanf:"submit_retry_max_ms"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:             "info",
		Addr:                 ":9080",
		RebuildQueueSize:     1024,
		RebuildWorkers:       runtime.NumCPU(),
		DedupeSize:           50_000,
		MaxTopLimit:          100,
		MaxAroundWindow:      50,
		SubmitRetryAttempts:  4,
		SubmitRetryInitialMS: 50,
		SubmitRetryMaxMS:     1000,
	}
}

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	ferrors "git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

// Validate checks a defaulted configuration and reports every problem found.
func Validate(cfg *Config) error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if cfg.Build.Workers < 1 {
		add("build.workers must be >= 1")
	}
	if cfg.Build.QueueSize < 1 {
		add("build.queue_size must be >= 1")
	}
	if cfg.Build.MaxRetries > 10 {
		add("build.max_retries must be <= 10, got %d", cfg.Build.MaxRetries)
	}
	if NormalizeRetryBackoff(string(cfg.Build.RetryBackoff)) == "" {
		add("build.retry_backoff %q is not one of fixed, linear, exponential", cfg.Build.RetryBackoff)
	}
	if cfg.Build.RetryInitialDelay > cfg.Build.RetryMaxDelay {
		add("build.retry_initial_delay (%s) exceeds build.retry_max_delay (%s)", cfg.Build.RetryInitialDelay, cfg.Build.RetryMaxDelay)
	}

	switch cfg.Storage.Backend {
	case StorageFilesystem:
		if strings.TrimSpace(cfg.Storage.Directory) == "" {
			add("storage.directory is required for the filesystem backend")
		}
	case StorageMinIO:
		m := cfg.Storage.MinIO
		if m.Endpoint == "" {
			add("storage.minio.endpoint is required")
		}
		if m.Bucket == "" {
			add("storage.minio.bucket is required")
		}
	case StorageMemory:
		if cfg.Journal.Enabled {
			add("journal.enabled requires a durable storage.backend, not memory")
		}
	default:
		add("storage.backend %q is not one of filesystem, minio, memory", cfg.Storage.Backend)
	}

	if NormalizeRetentionPolicy(string(cfg.Retention.Policy)) == "" {
		add("retention.policy %q is not one of idle, first_download", cfg.Retention.Policy)
	}
	if cfg.Retention.SweepInterval.Duration() < time.Second {
		add("retention.sweep_interval must be at least 1s")
	}

	if !strings.HasPrefix(cfg.Monitoring.Metrics.Path, "/") {
		add("monitoring.metrics.path must start with '/'")
	}
	if cfg.Journal.Enabled && cfg.Journal.Path == "" {
		add("journal.path is required when the journal is enabled")
	}

	if len(problems) == 0 {
		return nil
	}
	return ferrors.WrapError(errors.New(strings.Join(problems, "; ")), ferrors.CategoryConfig, "configuration validation failed").
		Fatal().
		WithContext("problems", problems).
		Build()
}

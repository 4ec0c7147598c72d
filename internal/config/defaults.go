package config

import (
	"path/filepath"
	"time"
)

// Default values applied when a field is omitted.
const (
	DefaultAddress        = ":8080"
	DefaultMaxConnections = 256
	DefaultWorkers        = 4
	DefaultQueueSize      = 100
	DefaultMaxRetries     = 2
	DefaultStorageDir     = "./artifacts"
	DefaultJournalPath    = "./skelbuilder.db"
	DefaultMetricsPath    = "/metrics"
	DefaultSubject        = "skelbuilder.builds"
	DefaultIdleAfter      = time.Hour
	DefaultSweepInterval  = 5 * time.Minute
)

// DefaultApplier applies defaults for a specific configuration domain.
type DefaultApplier interface {
	ApplyDefaults(cfg *Config)
	Domain() string
}

type serverDefaults struct{}

func (serverDefaults) Domain() string { return "server" }

func (serverDefaults) ApplyDefaults(cfg *Config) {
	s := &cfg.Server
	if s.Address == "" {
		s.Address = DefaultAddress
	}
	if s.MaxConnections <= 0 {
		s.MaxConnections = DefaultMaxConnections
	}
	if s.ReadTimeout <= 0 {
		s.ReadTimeout = Duration(30 * time.Second)
	}
	if s.WriteTimeout <= 0 {
		s.WriteTimeout = Duration(60 * time.Second)
	}
	if s.IdleTimeout <= 0 {
		s.IdleTimeout = Duration(2 * time.Minute)
	}
}

type buildDefaults struct{}

func (buildDefaults) Domain() string { return "build" }

func (buildDefaults) ApplyDefaults(cfg *Config) {
	b := &cfg.Build
	if b.Workers <= 0 {
		b.Workers = DefaultWorkers
	}
	if b.QueueSize <= 0 {
		b.QueueSize = DefaultQueueSize
	}
	// max_retries: 0 is a legitimate "no retries" only when written explicitly.
	if b.MaxRetries < 0 || (b.MaxRetries == 0 && !b.maxRetriesSpecified) {
		b.MaxRetries = DefaultMaxRetries
	}
	if b.RetryBackoff == "" {
		b.RetryBackoff = RetryBackoffExponential
	}
	if b.RetryInitialDelay <= 0 {
		b.RetryInitialDelay = Duration(500 * time.Millisecond)
	}
	if b.RetryMaxDelay <= 0 {
		b.RetryMaxDelay = Duration(10 * time.Second)
	}
}

type storageDefaults struct{}

func (storageDefaults) Domain() string { return "storage" }

func (storageDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = StorageFilesystem
	}
	if cfg.Storage.Directory == "" {
		cfg.Storage.Directory = DefaultStorageDir
	}
	cfg.Storage.Directory = filepath.Clean(cfg.Storage.Directory)
}

type retentionDefaults struct{}

func (retentionDefaults) Domain() string { return "retention" }

func (retentionDefaults) ApplyDefaults(cfg *Config) {
	r := &cfg.Retention
	if r.Policy == "" {
		r.Policy = RetentionIdle
	}
	if r.IdleAfter <= 0 {
		r.IdleAfter = Duration(DefaultIdleAfter)
	}
	if r.SweepInterval <= 0 {
		r.SweepInterval = Duration(DefaultSweepInterval)
	}
}

type observabilityDefaults struct{}

func (observabilityDefaults) Domain() string { return "observability" }

func (observabilityDefaults) ApplyDefaults(cfg *Config) {
	if cfg.Journal.Path == "" {
		cfg.Journal.Path = DefaultJournalPath
	}
	if cfg.Notifications.NATSURL != "" && cfg.Notifications.Subject == "" {
		cfg.Notifications.Subject = DefaultSubject
	}
	if cfg.Monitoring.Metrics.Path == "" {
		cfg.Monitoring.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Monitoring.Logging.Level == "" {
		cfg.Monitoring.Logging.Level = LogLevelInfo
	}
	if cfg.Monitoring.Logging.Format == "" {
		cfg.Monitoring.Logging.Format = LogFormatText
	}
}

func defaultAppliers() []DefaultApplier {
	return []DefaultApplier{serverDefaults{}, buildDefaults{}, storageDefaults{}, retentionDefaults{}, observabilityDefaults{}}
}

// ApplyDefaults fills every omitted field.
func ApplyDefaults(cfg *Config) {
	for _, a := range defaultAppliers() {
		a.ApplyDefaults(cfg)
	}
}

// Default returns a fully defaulted configuration without reading any file.
func Default() *Config {
	cfg := &Config{Version: CurrentVersion}
	ApplyDefaults(cfg)
	return cfg
}

package config

// CurrentVersion is the only configuration schema version accepted by Load.
const CurrentVersion = "1.0"

// Config is the skelbuilder service configuration.
type Config struct {
	Version       string              `yaml:"version"`
	Server        ServerConfig        `yaml:"server"`
	Build         BuildConfig         `yaml:"build"`
	Storage       StorageConfig       `yaml:"storage"`
	Retention     RetentionConfig     `yaml:"retention"`
	Journal       JournalConfig       `yaml:"journal"`
	Notifications NotificationsConfig `yaml:"notifications,omitempty"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
}

// ServerConfig represents the HTTP API listener.
type ServerConfig struct {
	Address        string   `yaml:"address"`
	MaxConnections int      `yaml:"max_connections"`
	ReadTimeout    Duration `yaml:"read_timeout"`
	WriteTimeout   Duration `yaml:"write_timeout"`
	IdleTimeout    Duration `yaml:"idle_timeout"`
}

// BuildConfig holds worker pool sizing and pipeline retry options.
type BuildConfig struct {
	Workers           int              `yaml:"workers"`
	QueueSize         int              `yaml:"queue_size"`
	MaxRetries        int              `yaml:"max_retries"`
	RetryBackoff      RetryBackoffMode `yaml:"retry_backoff"`
	RetryInitialDelay Duration         `yaml:"retry_initial_delay"`
	RetryMaxDelay     Duration         `yaml:"retry_max_delay"`
	StagingDir        string           `yaml:"staging_dir,omitempty"` // empty => private dir under os.TempDir()

	maxRetriesSpecified bool
}

// StorageConfig selects and configures the artifact store backend.
type StorageConfig struct {
	Backend   StorageBackend `yaml:"backend"`
	Directory string         `yaml:"directory"`
	MinIO     MinIOConfig    `yaml:"minio,omitempty"`
}

// MinIOConfig configures the S3-compatible blob backend.
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix,omitempty"`
	UseSSL    bool   `yaml:"use_ssl"`
}

// RetentionConfig governs when published artifacts are purged.
type RetentionConfig struct {
	Policy        RetentionPolicy `yaml:"policy"`
	IdleAfter     Duration        `yaml:"idle_after"`
	SweepInterval Duration        `yaml:"sweep_interval"`
}

// JournalConfig enables the SQLite transition journal used for recovery.
type JournalConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// NotificationsConfig publishes status transitions to NATS when URL is set.
type NotificationsConfig struct {
	NATSURL string `yaml:"nats_url,omitempty"`
	Subject string `yaml:"subject,omitempty"`
}

// MonitoringConfig represents metrics and logging configuration.
type MonitoringConfig struct {
	Metrics MonitoringMetrics `yaml:"metrics"`
	Logging MonitoringLogging `yaml:"logging"`
}

// MonitoringMetrics represents metrics configuration
type MonitoringMetrics struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// MonitoringLogging represents logging configuration
type MonitoringLogging struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

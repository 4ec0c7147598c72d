package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	ferrors "git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

// DefaultPath is used when no --config flag is given.
const DefaultPath = "skelbuilder.yaml"

// UnmarshalYAML records whether max_retries was written so an explicit 0 survives defaulting.
func (b *BuildConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain BuildConfig
	var raw plain
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*b = BuildConfig(raw)
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == "max_retries" {
			b.maxRetriesSpecified = true
		}
	}
	return nil
}

// Load reads, expands, normalizes, defaults and validates a configuration file.
func Load(configPath string) (*Config, error) {
	if _, err := loadEnvFiles(envFiles...); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to load .env file").Build()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ferrors.ConfigError("configuration file not found").WithContext("path", configPath).Build()
		}
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").WithContext("path", configPath).Build()
	}
	return Parse(data)
}

// Parse decodes configuration bytes after environment expansion.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to unmarshal config").Build()
	}
	if cfg.Version != CurrentVersion {
		return nil, ferrors.ConfigError(fmt.Sprintf("unsupported configuration version %q (expected %s)", cfg.Version, CurrentVersion)).Build()
	}

	for _, w := range normalize(&cfg) {
		slog.Warn("config normalization", "detail", w)
	}
	ApplyDefaults(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Init writes an example configuration file.
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return ferrors.ConfigError("configuration file already exists (use --force to overwrite)").WithContext("path", configPath).Build()
	}

	example := Default()
	example.Journal.Enabled = true
	example.Monitoring.Metrics.Enabled = true
	example.Notifications = NotificationsConfig{NATSURL: "${SKELBUILDER_NATS_URL}", Subject: DefaultSubject}
	example.Storage.MinIO = MinIOConfig{
		Endpoint:  "localhost:9000",
		AccessKey: "${MINIO_ACCESS_KEY}",
		SecretKey: "${MINIO_SECRET_KEY}",
		Bucket:    "skelbuilder-artifacts",
	}
	example.Retention.IdleAfter = Duration(time.Hour)

	data, err := yaml.Marshal(example)
	if err != nil {
		return fmt.Errorf("failed to marshal example config: %w", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return ferrors.WrapError(err, ferrors.CategoryFileSystem, "failed to write config file").WithContext("path", configPath).Build()
	}
	return nil
}

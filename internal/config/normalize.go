package config

import "fmt"

// normalize canonicalizes enum-valued fields in place. Unknown values are left
// as typed so that validation reports them with the original spelling.
func normalize(cfg *Config) []string {
	var warnings []string
	fold := func(field, raw, canon string) {
		if raw != "" && canon != "" && raw != canon {
			warnings = append(warnings, fmt.Sprintf("normalized %s from %q to %q", field, raw, canon))
		}
	}

	if m := NormalizeRetryBackoff(string(cfg.Build.RetryBackoff)); m != "" {
		fold("build.retry_backoff", string(cfg.Build.RetryBackoff), string(m))
		cfg.Build.RetryBackoff = m
	}
	if b := NormalizeStorageBackend(string(cfg.Storage.Backend)); b != "" {
		fold("storage.backend", string(cfg.Storage.Backend), string(b))
		cfg.Storage.Backend = b
	}
	if p := NormalizeRetentionPolicy(string(cfg.Retention.Policy)); p != "" {
		fold("retention.policy", string(cfg.Retention.Policy), string(p))
		cfg.Retention.Policy = p
	}
	if raw := cfg.Monitoring.Logging.Level; raw != "" {
		cfg.Monitoring.Logging.Level = NormalizeLogLevel(string(raw))
		fold("monitoring.logging.level", string(raw), string(cfg.Monitoring.Logging.Level))
	}
	if raw := cfg.Monitoring.Logging.Format; raw != "" {
		cfg.Monitoring.Logging.Format = NormalizeLogFormat(string(raw))
		fold("monitoring.logging.format", string(raw), string(cfg.Monitoring.Logging.Format))
	}
	return warnings
}

package config

import "git.home.luguber.info/inful/skelbuilder/internal/foundation/normalization"

// StorageBackend selects where artifacts are published.
type StorageBackend string

const (
	StorageFilesystem StorageBackend = "filesystem"
	StorageMinIO      StorageBackend = "minio"
	// StorageMemory keeps artifacts in process memory; nothing survives a restart.
	StorageMemory StorageBackend = "memory"
)

var storageBackends = normalization.Members("storage backend", normalization.Lowercase, "",
	StorageFilesystem, StorageMinIO, StorageMemory).
	Alias("fs", StorageFilesystem).
	Alias("s3", StorageMinIO)

// NormalizeStorageBackend returns empty string for unknown input.
func NormalizeStorageBackend(raw string) StorageBackend {
	return storageBackends.Normalize(raw)
}

// RetentionPolicy decides when a READY artifact becomes eligible for deletion.
type RetentionPolicy string

const (
	// RetentionIdle keeps artifacts until they have been idle for IdleAfter.
	RetentionIdle RetentionPolicy = "idle"
	// RetentionFirstDownload purges right after the first completed download,
	// and still applies the idle window to artifacts never downloaded.
	RetentionFirstDownload RetentionPolicy = "first_download"
)

var retentionPolicies = normalization.Members("retention policy", normalization.Identifier, "",
	RetentionIdle, RetentionFirstDownload)

// NormalizeRetentionPolicy returns empty string for unknown input.
func NormalizeRetentionPolicy(raw string) RetentionPolicy {
	return retentionPolicies.Normalize(raw)
}

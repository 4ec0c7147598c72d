package storage

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/skelbuilder/internal/config"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
)

// New opens the backend selected by cfg.
func New(ctx context.Context, cfg config.StorageConfig, now func() time.Time) (Store, error) {
	switch cfg.Backend {
	case config.StorageFilesystem, "":
		s, err := NewFSStore(cfg.Directory, now)
		if err != nil {
			return nil, err
		}
		slog.Info("Artifact store ready", slog.String("backend", "filesystem"), logfields.Path(cfg.Directory))
		return s, nil
	case config.StorageMinIO:
		s, err := NewMinIOStore(ctx, cfg.MinIO, now)
		if err != nil {
			return nil, err
		}
		slog.Info("Artifact store ready",
			slog.String("backend", "minio"),
			slog.String("endpoint", cfg.MinIO.Endpoint),
			slog.String("bucket", cfg.MinIO.Bucket))
		return s, nil
	case config.StorageMemory:
		slog.Warn("Artifact store is in memory; artifacts are lost on exit", slog.String("backend", "memory"))
		return NewMemoryStore(now), nil
	default:
		return nil, errors.ConfigError("unknown storage backend").
			WithContext("backend", string(cfg.Backend)).Build()
	}
}

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"git.home.luguber.info/inful/skelbuilder/internal/api"
	"git.home.luguber.info/inful/skelbuilder/internal/archive"
	"git.home.luguber.info/inful/skelbuilder/internal/build"
	"git.home.luguber.info/inful/skelbuilder/internal/config"
	"git.home.luguber.info/inful/skelbuilder/internal/eventstore"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
	"git.home.luguber.info/inful/skelbuilder/internal/metrics"
	"git.home.luguber.info/inful/skelbuilder/internal/notify"
	"git.home.luguber.info/inful/skelbuilder/internal/render"
	"git.home.luguber.info/inful/skelbuilder/internal/storage"
)

// ShutdownTimeout bounds graceful shutdown after SIGINT or SIGTERM.
const ShutdownTimeout = 30 * time.Second

// ServeCmd implements the 'serve' command.
type ServeCmd struct {
	Watch bool `help:"Reload retention and logging settings when the config file changes"`
}

func (s *ServeCmd) Run(g *Global, root *CLI) error {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return err
	}
	applyLogging(g, root.Verbose, cfg.Monitoring.Logging)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, err := newService(ctx, cfg)
	if err != nil {
		return err
	}

	if s.Watch {
		w, err := config.NewWatcher(root.Config, func(next *config.Config) {
			svc.reload(next)
			if !root.Verbose {
				g.Level.Set(next.Monitoring.Logging.Level.SlogLevel())
			}
		})
		if err != nil {
			svc.shutdown()
			return err
		}
		if err := w.Start(ctx); err != nil {
			svc.shutdown()
			return err
		}
		defer w.Stop()
	}

	errChan := make(chan error, 1)
	go func() { errChan <- svc.server.ListenAndServe() }()
	slog.Info("Service started, waiting for shutdown signal...")

	var serveErr error
	select {
	case serveErr = <-errChan:
		if serveErr != nil {
			slog.Error("HTTP API stopped unexpectedly", logfields.Error(serveErr))
		}
	case <-ctx.Done():
		slog.Info("Shutdown signal received, stopping service...")
	}

	svc.shutdown()
	if serveErr != nil {
		return serveErr
	}
	slog.Info("Service stopped successfully")
	return nil
}

// service owns every long-running component started by serve.
type service struct {
	store     storage.Store
	builds    *build.Orchestrator
	sweeper   *build.Sweeper
	journal   eventstore.Store
	notifier  *notify.Notifier
	server    *api.Server
	runCancel context.CancelFunc
}

func newService(ctx context.Context, cfg *config.Config) (svc *service, err error) {
	svc = &service{}
	defer func() {
		if err != nil {
			svc.close()
		}
	}()

	if svc.store, err = storage.New(ctx, cfg.Storage, time.Now); err != nil {
		return nil, err
	}
	renderer, err := render.New()
	if err != nil {
		return nil, err
	}

	svc.builds = build.New(build.ConfigFrom(cfg), renderer, archive.NewPackager(0), svc.store)

	opts := api.OptionsFrom(cfg.Server)
	if cfg.Monitoring.Metrics.Enabled {
		reg := metrics.NewRegistry()
		svc.builds.SetRecorder(metrics.NewPrometheusRecorder(reg))
		opts.Metrics = metrics.HTTPHandler(reg)
		opts.MetricsPath = cfg.Monitoring.Metrics.Path
	}

	if cfg.Journal.Enabled {
		if err = svc.openJournal(ctx, cfg.Journal.Path); err != nil {
			return nil, err
		}
	}

	if cfg.Notifications.NATSURL != "" {
		if svc.notifier, err = notify.Connect(cfg.Notifications); err != nil {
			return nil, err
		}
		svc.builds.AddObserver(svc.notifier)
	}

	if svc.sweeper, err = build.NewSweeper(svc.builds, cfg.Retention.SweepInterval.Duration()); err != nil {
		return nil, err
	}

	// Workers outlive the signal context so shutdown can drain them.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	svc.runCancel = cancel
	svc.builds.Start(runCtx)
	if err = svc.sweeper.Start(runCtx); err != nil {
		return nil, err
	}

	svc.server = api.NewServer(svc.builds, opts)
	return svc, nil
}

// openJournal restores requests recorded before the last exit and
// registers the journal for new transitions.
func (s *service) openJournal(ctx context.Context, path string) error {
	store, err := eventstore.NewSQLiteStore(path)
	if err != nil {
		return err
	}
	s.journal = store

	journal := build.NewJournal(store)
	records, err := journal.Records(ctx)
	if err != nil {
		return err
	}
	// Registered first so recovery outcomes are journaled too.
	s.builds.AddObserver(journal)
	restored, err := s.builds.Recover(ctx, records)
	if err != nil {
		return fmt.Errorf("failed to recover build journal: %w", err)
	}
	slog.Info("Build journal loaded", logfields.Path(path), slog.Int("restored", restored), slog.Int("records", len(records)))
	return nil
}

// reload applies the settings that may change without a restart.
func (s *service) reload(cfg *config.Config) {
	s.builds.SetRetention(build.RetentionFrom(cfg.Retention))
	if err := s.sweeper.SetInterval(cfg.Retention.SweepInterval.Duration()); err != nil {
		slog.Error("Failed to apply sweep interval", logfields.Error(err))
	}
}

// shutdown stops intake first, then the pipelines, then the backends.
func (s *service) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			slog.Warn("HTTP API shutdown incomplete", logfields.Error(err))
		}
	}
	if s.sweeper != nil {
		if err := s.sweeper.Stop(); err != nil {
			slog.Warn("Retention sweeper shutdown incomplete", logfields.Error(err))
		}
	}

	done := make(chan struct{})
	go func() {
		s.builds.Stop(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		slog.Warn("Shutdown deadline reached with builds still running")
	}
	s.close()
}

func (s *service) close() {
	if s.runCancel != nil {
		s.runCancel()
	}
	if s.notifier != nil {
		if err := s.notifier.Close(); err != nil {
			slog.Warn("Failed to close NATS connection", logfields.Error(err))
		}
	}
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			slog.Warn("Failed to close build journal", logfields.Error(err))
		}
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Failed to close artifact store", logfields.Error(err))
		}
	}
}

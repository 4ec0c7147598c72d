package build

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"

	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
)

// DefaultSweepInterval is used when no interval is configured.
const DefaultSweepInterval = time.Minute

// Sweeper runs Orchestrator.Sweep periodically on a gocron scheduler.
type Sweeper struct {
	scheduler gocron.Scheduler
	target    *Orchestrator

	mu       sync.Mutex
	ctx      context.Context
	jobID    uuid.UUID
	interval time.Duration
}

// NewSweeper creates a sweeper for o. It does nothing until Start.
func NewSweeper(o *Orchestrator, interval time.Duration) (*Sweeper, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{scheduler: s, target: o, interval: interval, ctx: context.Background()}, nil
}

// Start registers the sweep job and starts the scheduler. Sweeps observe
// ctx for cancellation.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ctx = ctx
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(s.run),
		gocron.WithName("retention-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create retention sweep job: %w", err)
	}
	s.jobID = job.ID()
	slog.Info("Starting retention sweeper", slog.Duration("interval", s.interval))
	s.scheduler.Start()
	return nil
}

// SetInterval reschedules the sweep job.
func (s *Sweeper) SetInterval(interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if interval == s.interval {
		return nil
	}
	s.interval = interval
	if s.jobID == uuid.Nil {
		return nil
	}
	_, err := s.scheduler.Update(s.jobID,
		gocron.DurationJob(interval),
		gocron.NewTask(s.run),
		gocron.WithName("retention-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to reschedule retention sweep: %w", err)
	}
	slog.Info("Retention sweep rescheduled", slog.Duration("interval", interval))
	return nil
}

// Stop shuts the scheduler down, waiting for a running sweep.
func (s *Sweeper) Stop() error {
	slog.Info("Stopping retention sweeper")
	return s.scheduler.Shutdown()
}

func (s *Sweeper) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if _, err := s.target.Sweep(ctx); err != nil {
		slog.Error("Retention sweep failed", logfields.Error(err))
	}
}

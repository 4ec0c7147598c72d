package build

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/skelbuilder/internal/archive"
	"git.home.luguber.info/inful/skelbuilder/internal/config"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
	"git.home.luguber.info/inful/skelbuilder/internal/metrics"
	"git.home.luguber.info/inful/skelbuilder/internal/project"
	"git.home.luguber.info/inful/skelbuilder/internal/render"
	"git.home.luguber.info/inful/skelbuilder/internal/retry"
	"git.home.luguber.info/inful/skelbuilder/internal/storage"
	"git.home.luguber.info/inful/skelbuilder/internal/workspace"
)

// Renderer writes a skeleton for spec below dir.
type Renderer interface {
	Render(ctx context.Context, spec project.Specification, dir string) (*render.Tree, error)
	Version() string
}

// Packager turns a rendered tree into an archive.
type Packager interface {
	Package(ctx context.Context, root, name string) (*archive.Archive, error)
}

// Config sizes the worker pool and sets the pipeline policies.
type Config struct {
	Workers    int
	QueueSize  int
	Retry      retry.Policy
	StagingDir string
	Retention  Retention
}

// ConfigFrom derives the orchestrator settings from the service config.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		Workers:    cfg.Build.Workers,
		QueueSize:  cfg.Build.QueueSize,
		Retry:      retry.FromConfig(cfg.Build),
		StagingDir: cfg.Build.StagingDir,
		Retention:  RetentionFrom(cfg.Retention),
	}
}

// Orchestrator owns every build request known to the process.
type Orchestrator struct {
	cfg      Config
	renderer Renderer
	packager Packager
	store    storage.Store
	staging  *workspace.Manager

	mu        sync.RWMutex
	builds    map[string]*entry
	retention Retention

	queue    chan string
	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	active   atomic.Int64

	recorder  metrics.Recorder
	observers []Observer
	now       func() time.Time
	newID     func() string
}

// New creates an orchestrator. Workers do not run until Start.
func New(cfg Config, renderer Renderer, packager Packager, store storage.Store) *Orchestrator {
	if renderer == nil || packager == nil || store == nil {
		panic("build.New: renderer, packager and store are required")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 100
	}
	if cfg.Retry.Initial <= 0 {
		cfg.Retry = retry.DefaultPolicy()
	}
	return &Orchestrator{
		cfg:       cfg,
		renderer:  renderer,
		packager:  packager,
		store:     store,
		staging:   workspace.NewManager(cfg.StagingDir),
		builds:    make(map[string]*entry),
		retention: cfg.Retention,
		queue:     make(chan string, cfg.QueueSize),
		stopChan:  make(chan struct{}),
		recorder:  metrics.NoopRecorder{},
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SetRecorder injects a metrics recorder (optional).
func (o *Orchestrator) SetRecorder(r metrics.Recorder) {
	if r == nil {
		r = metrics.NoopRecorder{}
	}
	o.recorder = r
}

// AddObserver registers a transition observer. Call before Start.
func (o *Orchestrator) AddObserver(obs Observer) {
	if obs != nil {
		o.observers = append(o.observers, obs)
	}
}

// SetClock replaces the clock used for timestamps and retention.
func (o *Orchestrator) SetClock(now func() time.Time) {
	if now != nil {
		o.now = now
	}
}

// Start removes stale staging directories and launches the workers.
func (o *Orchestrator) Start(ctx context.Context) {
	if _, err := o.staging.PurgeStale(); err != nil {
		slog.Warn("Failed to purge stale staging directories", logfields.Path(o.staging.BaseDir()), logfields.Error(err))
	}
	slog.Info("Starting build orchestrator", slog.Int("workers", o.cfg.Workers), slog.Int("queue_size", o.cfg.QueueSize))
	for i := range o.cfg.Workers {
		o.wg.Add(1)
		go o.worker(ctx, i)
	}
}

// Stop interrupts running pipelines that have not reached packaging, waits
// for the workers and fails whatever is still queued.
func (o *Orchestrator) Stop(ctx context.Context) {
	o.stopOnce.Do(func() {
		o.mu.Lock()
		close(o.stopChan)
		o.mu.Unlock()

		for _, e := range o.entries() {
			e.mu.Lock()
			if e.cancel != nil && !e.packaging {
				e.cancel()
			}
			e.mu.Unlock()
		}

		o.wg.Wait()
		if err := o.staging.Close(); err != nil {
			slog.Warn("Failed to remove staging base", logfields.Error(err))
		}

		for {
			select {
			case id := <-o.queue:
				if e, ok := o.lookup(id); ok {
					o.failPending(ctx, e, ReasonShutdown)
				}
			default:
				o.recorder.SetQueueDepth(0)
				slog.Info("Build orchestrator stopped")
				return
			}
		}
	})
}

// Schedule registers a PENDING request for spec and queues it. It never
// waits for the pipeline. A full queue is reported as a runtime error and
// no identity is issued.
func (o *Orchestrator) Schedule(ctx context.Context, spec project.Specification) (Request, error) {
	now := o.now()
	e := &entry{req: Request{
		ID:        o.newID(),
		Spec:      spec,
		Renderer:  o.renderer.Version(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}}
	id := e.req.ID

	// The entry lock is held until observers have seen PENDING so a worker
	// cannot publish BUILDING first.
	e.mu.Lock()
	defer e.mu.Unlock()

	o.mu.Lock()
	if o.stopped() {
		o.mu.Unlock()
		return Request{}, errors.RuntimeError("build orchestrator is stopped").Build()
	}
	if _, dup := o.builds[id]; dup {
		o.mu.Unlock()
		return Request{}, errors.InternalError("build identity collision").WithContext("id", id).Build()
	}
	select {
	case o.queue <- id:
	default:
		o.mu.Unlock()
		return Request{}, errors.RuntimeError("build queue is full").
			WithContext("capacity", o.cfg.QueueSize).
			Build()
	}
	o.builds[id] = e
	o.mu.Unlock()

	o.recorder.SetQueueDepth(len(o.queue))
	slog.Info("Build scheduled",
		logfields.BuildID(id),
		slog.String("name", spec.Name),
		slog.Int("languages", len(spec.Languages)))
	o.notifyTransition(ctx, e.req)
	e.publish()
	return e.snapshot(), nil
}

// Status returns the current status of id.
func (o *Orchestrator) Status(id string) (Status, error) {
	r, err := o.Get(id)
	if err != nil {
		return "", err
	}
	return r.Status, nil
}

// Get returns a snapshot of id.
func (o *Orchestrator) Get(id string) (Request, error) {
	e, key, ok := o.resolve(id)
	if !ok {
		return Request{}, notFound(key)
	}
	r, visible := e.load()
	if !visible {
		return Request{}, notFound(key)
	}
	return r, nil
}

// List returns snapshots of every known request, newest first.
func (o *Orchestrator) List() []Request {
	entries := o.entries()
	out := make([]Request, 0, len(entries))
	for _, e := range entries {
		if r, visible := e.load(); visible {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b Request) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		if a.ID > b.ID {
			return -1
		}
		if a.ID < b.ID {
			return 1
		}
		return 0
	})
	return out
}

func (o *Orchestrator) stopped() bool {
	select {
	case <-o.stopChan:
		return true
	default:
		return false
	}
}

// QueueLength returns the number of requests waiting for a worker.
func (o *Orchestrator) QueueLength() int { return len(o.queue) }

// Active returns the number of pipelines currently running.
func (o *Orchestrator) Active() int { return int(o.active.Load()) }

// resolve maps an external id to its entry. Malformed ids are unknown ids.
func (o *Orchestrator) resolve(id string) (*entry, string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, id, false
	}
	key := parsed.String()
	e, ok := o.lookup(key)
	return e, key, ok
}

// entries copies the entry set. o.mu is never held while an entry lock is
// taken; the order is always entry first.
func (o *Orchestrator) entries() []*entry {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]*entry, 0, len(o.builds))
	for _, e := range o.builds {
		out = append(out, e)
	}
	return out
}

func (o *Orchestrator) lookup(id string) (*entry, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	e, ok := o.builds[id]
	return e, ok
}

// transitionLocked applies one edge of the state machine. e.mu must be held.
func (o *Orchestrator) transitionLocked(ctx context.Context, e *entry, to Status, mutate func(*Request)) bool {
	from := e.req.Status
	if !CanTransition(from, to) {
		slog.Error("Rejected invalid status transition",
			logfields.BuildID(e.req.ID),
			slog.String("from", string(from)),
			slog.String("to", string(to)))
		return false
	}
	e.req.Status = to
	e.req.UpdatedAt = o.now()
	if mutate != nil {
		mutate(&e.req)
	}

	attrs := []any{logfields.BuildID(e.req.ID), logfields.Status(string(to))}
	if e.req.Reason != "" {
		attrs = append(attrs, logfields.Reason(e.req.Reason))
	}
	slog.Info("Build status changed", attrs...)

	o.notifyTransition(ctx, e.snapshot())
	e.publish()
	return true
}

func (o *Orchestrator) failPending(ctx context.Context, e *entry, reason string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.req.Status != StatusPending {
		return false
	}
	return o.transitionLocked(ctx, e, StatusFailed, func(r *Request) { r.Reason = reason })
}

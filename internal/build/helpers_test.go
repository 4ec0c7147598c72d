package build

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/skelbuilder/internal/archive"
	"git.home.luguber.info/inful/skelbuilder/internal/config"
	"git.home.luguber.info/inful/skelbuilder/internal/project"
	"git.home.luguber.info/inful/skelbuilder/internal/render"
	"git.home.luguber.info/inful/skelbuilder/internal/retry"
	"git.home.luguber.info/inful/skelbuilder/internal/storage"
)

func ptr[T any](v T) *T { return &v }

func scenarioSpec(t *testing.T) project.Specification {
	t.Helper()
	spec, err := project.Validate(project.RawSpecification{
		Name:      "myapp",
		Namespace: "com.test",
		Version:   ptr("1.0"),
		Testing:   "TESTNG",
		Logging:   "SLF4J",
		License:   "MIT",
		Languages: []string{"JAVA", "KOTLIN"},
	})
	require.NoError(t, err)
	return spec
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// recordingObserver keeps every callback for later assertions.
type recordingObserver struct {
	mu          sync.Mutex
	transitions []Request
	retries     []int
	purged      map[string]string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{purged: make(map[string]string)}
}

func (r *recordingObserver) OnTransition(_ context.Context, req Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, req)
}

func (r *recordingObserver) OnRetry(_ context.Context, _ Request, retry int, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries = append(r.retries, retry)
}

func (r *recordingObserver) OnPurge(_ context.Context, id, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.purged[id] = reason
}

func (r *recordingObserver) statuses(id string) []Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Status
	for _, t := range r.transitions {
		if t.ID == id {
			out = append(out, t.Status)
		}
	}
	return out
}

func (r *recordingObserver) retryCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.retries)
}

// gateRenderer blocks inside Render until released or canceled.
type gateRenderer struct {
	inner   Renderer
	started chan struct{}
	release chan struct{}
	calls   atomic.Int32
}

func newGateRenderer(t *testing.T) *gateRenderer {
	t.Helper()
	r, err := render.New()
	require.NoError(t, err)
	return &gateRenderer{inner: r, started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gateRenderer) Render(ctx context.Context, spec project.Specification, dir string) (*render.Tree, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return g.inner.Render(ctx, spec, dir)
}

func (g *gateRenderer) Version() string { return g.inner.Version() }

// gatePackager blocks inside Package until released.
type gatePackager struct {
	inner   Packager
	started chan struct{}
	release chan struct{}
}

func newGatePackager() *gatePackager {
	return &gatePackager{inner: archive.NewPackager(0), started: make(chan struct{}, 16), release: make(chan struct{})}
}

func (g *gatePackager) Package(ctx context.Context, root, name string) (*archive.Archive, error) {
	g.started <- struct{}{}
	<-g.release
	return g.inner.Package(ctx, root, name)
}

// countingPackager counts calls and optionally fails them.
type countingPackager struct {
	inner Packager
	calls atomic.Int32
	err   error
}

func (c *countingPackager) Package(ctx context.Context, root, name string) (*archive.Archive, error) {
	c.calls.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return c.inner.Package(ctx, root, name)
}

// failingRenderer always returns err.
type failingRenderer struct {
	err   error
	calls atomic.Int32
}

func (f *failingRenderer) Render(context.Context, project.Specification, string) (*render.Tree, error) {
	f.calls.Add(1)
	return nil, f.err
}

func (f *failingRenderer) Version() string { return "test" }

type fixture struct {
	o        *Orchestrator
	store    *storage.MemoryStore
	observer *recordingObserver
	clock    *fakeClock
}

type fixtureOption func(*Config)

func withQueueSize(n int) fixtureOption { return func(c *Config) { c.QueueSize = n } }

func withRetention(r Retention) fixtureOption { return func(c *Config) { c.Retention = r } }

func withStagingDir(dir string) fixtureOption { return func(c *Config) { c.StagingDir = dir } }

func newFixture(t *testing.T, renderer Renderer, packager Packager, opts ...fixtureOption) *fixture {
	t.Helper()
	if renderer == nil {
		r, err := render.New()
		require.NoError(t, err)
		renderer = r
	}
	if packager == nil {
		packager = archive.NewPackager(0)
	}
	cfg := Config{
		Workers:    2,
		QueueSize:  32,
		Retry:      retry.NewPolicy(config.RetryBackoffFixed, time.Millisecond, time.Millisecond, 2),
		StagingDir: t.TempDir(),
		Retention:  Retention{Policy: config.RetentionIdle, IdleAfter: time.Hour},
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	clock := newFakeClock()
	store := storage.NewMemoryStore(clock.Now)
	o := New(cfg, renderer, packager, store)
	o.SetClock(clock.Now)
	obs := newRecordingObserver()
	o.AddObserver(obs)
	t.Cleanup(func() { o.Stop(context.Background()) })
	return &fixture{o: o, store: store, observer: obs, clock: clock}
}

func (f *fixture) start(t *testing.T) {
	t.Helper()
	f.o.Start(t.Context())
}

func (f *fixture) waitTerminal(t *testing.T, id string) Request {
	t.Helper()
	var r Request
	require.Eventually(t, func() bool {
		var err error
		r, err = f.o.Get(id)
		return err == nil && r.Status.IsTerminal()
	}, 10*time.Second, 5*time.Millisecond)
	return r
}

func (f *fixture) waitStatus(t *testing.T, id string, want Status) {
	t.Helper()
	require.Eventually(t, func() bool {
		s, err := f.o.Status(id)
		return err == nil && s == want
	}, 10*time.Second, 5*time.Millisecond)
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for signal")
	}
}

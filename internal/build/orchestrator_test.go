package build

import (
	"context"
	stderrors "errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/skelbuilder/internal/archive"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/storage"
)

func TestOrchestrator_Scenario(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.start(t)

	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)
	assert.Equal(t, StatusPending, req.Status)
	assert.Nil(t, req.Artifact)

	done := f.waitTerminal(t, req.ID)
	require.Equal(t, StatusReady, done.Status, done.Reason)
	require.NotNil(t, done.Artifact)
	assert.Equal(t, "myapp.zip", done.Artifact.Name)
	assert.Equal(t, []Status{StatusPending, StatusBuilding, StatusReady}, f.observer.statuses(req.ID))

	h, err := f.o.Fetch(t.Context(), req.ID)
	require.NoError(t, err)
	data, err := io.ReadAll(h)
	require.NoError(t, err)
	require.NoError(t, h.Close())
	require.NotEmpty(t, data)
	assert.True(t, archive.Verify(data, h.Digest()))
	assert.Equal(t, int64(len(data)), h.Size())

	dest := t.TempDir()
	require.NoError(t, archive.Unpack(data, dest))
	root := filepath.Join(dest, "myapp")
	assert.DirExists(t, filepath.Join(root, "src", "main", "java", "com", "test"))
	assert.DirExists(t, filepath.Join(root, "src", "main", "kotlin", "com", "test"))

	license, err := os.ReadFile(filepath.Join(root, "LICENSE"))
	require.NoError(t, err)
	assert.Contains(t, string(license), "MIT License")

	gradle, err := os.ReadFile(filepath.Join(root, "build.gradle"))
	require.NoError(t, err)
	assert.Contains(t, string(gradle), "org.testng:testng")
	assert.Contains(t, string(gradle), "useTestNG()")
	assert.Contains(t, string(gradle), "org.slf4j:slf4j-api")
}

func TestOrchestrator_ScheduleIssuesUniqueIdentities(t *testing.T) {
	f := newFixture(t, nil, nil, withQueueSize(64))

	seen := make(map[string]bool)
	for range 50 {
		req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
		require.NoError(t, err)
		assert.Equal(t, StatusPending, req.Status)
		_, err = uuid.Parse(req.ID)
		require.NoError(t, err)
		require.False(t, seen[req.ID], "identity issued twice")
		seen[req.ID] = true
	}
	assert.Len(t, f.o.List(), 50)
}

func TestOrchestrator_QueueFull(t *testing.T) {
	f := newFixture(t, nil, nil, withQueueSize(1))

	_, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)

	_, err = f.o.Schedule(t.Context(), scenarioSpec(t))
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryRuntime))
	assert.Len(t, f.o.List(), 1, "a rejected schedule must not issue an identity")
}

func TestOrchestrator_StoreFailsOnEveryAttempt(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.store.WriteErr = func(string) error { return stderrors.New("disk unavailable") }
	f.start(t)

	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)

	done := f.waitTerminal(t, req.ID)
	require.Equal(t, StatusFailed, done.Status)
	assert.Contains(t, done.Reason, "after 3 attempts")
	assert.Contains(t, done.Reason, "disk unavailable")
	assert.Nil(t, done.Artifact)
	assert.Equal(t, 3, done.Attempts)
	assert.Equal(t, 3, f.store.Calls().Write)
	assert.Equal(t, 2, f.observer.retryCount())
	assert.Equal(t, 0, f.store.Len())

	_, err = f.o.Fetch(t.Context(), req.ID)
	require.Error(t, err)
	reason, ok := FailedReason(err)
	require.True(t, ok)
	assert.Equal(t, done.Reason, reason)
}

func TestOrchestrator_StoreRecoversOnRetry(t *testing.T) {
	packager := &countingPackager{inner: archive.NewPackager(0)}
	f := newFixture(t, nil, packager)
	var failures sync.Map
	f.store.WriteErr = func(id string) error {
		if _, failed := failures.LoadOrStore(id, true); !failed {
			return errors.StoreError("transient write failure").Retryable().Build()
		}
		return nil
	}
	f.start(t)

	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)

	done := f.waitTerminal(t, req.ID)
	require.Equal(t, StatusReady, done.Status, done.Reason)
	assert.Equal(t, 2, done.Attempts)
	assert.Equal(t, int32(1), packager.calls.Load(), "a packaged archive is reused for the retry")
	assert.Equal(t, []Status{StatusPending, StatusBuilding, StatusReady}, f.observer.statuses(req.ID))
}

func TestOrchestrator_NonRetryableErrorFailsAtOnce(t *testing.T) {
	renderer := &failingRenderer{err: errors.CapabilityError("no boilerplate for JAVA/NONE/NONE").Build()}
	f := newFixture(t, renderer, nil)
	f.start(t)

	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)

	done := f.waitTerminal(t, req.ID)
	require.Equal(t, StatusFailed, done.Status)
	assert.Equal(t, int32(1), renderer.calls.Load())
	assert.NotContains(t, done.Reason, "attempts")
	assert.Contains(t, done.Reason, "no boilerplate")
	assert.Equal(t, 0, f.observer.retryCount())
}

func TestOrchestrator_PackageErrorRetried(t *testing.T) {
	packager := &countingPackager{err: errors.PackageError("archive write failed").Retryable().Build()}
	f := newFixture(t, nil, packager)
	f.start(t)

	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)

	done := f.waitTerminal(t, req.ID)
	require.Equal(t, StatusFailed, done.Status)
	assert.Equal(t, int32(3), packager.calls.Load())
	assert.Equal(t, 0, f.store.Calls().Write)
}

func TestOrchestrator_AtMostOneExecution(t *testing.T) {
	f := newFixture(t, nil, nil)

	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)
	e, ok := f.o.lookup(req.ID)
	require.True(t, ok)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.o.process(t.Context(), e, i)
		}()
	}
	wg.Wait()

	r, err := f.o.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, r.Status)
	assert.Equal(t, 1, f.store.Calls().Write)
	assert.Equal(t, 1, r.Attempts)
	assert.Equal(t, []Status{StatusPending, StatusBuilding, StatusReady}, f.observer.statuses(req.ID))
}

func TestOrchestrator_FetchOutcomes(t *testing.T) {
	f := newFixture(t, nil, nil)

	_, err := f.o.Fetch(t.Context(), uuid.NewString())
	assert.True(t, IsNotFound(err))

	_, err = f.o.Fetch(t.Context(), "not-a-build-id")
	assert.True(t, IsNotFound(err))

	_, err = f.o.Status("not-a-build-id")
	assert.True(t, IsNotFound(err))

	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)
	_, err = f.o.Fetch(t.Context(), req.ID)
	assert.True(t, IsNotReady(err))
	assert.False(t, IsNotFound(err))
	_, isFailed := FailedReason(err)
	assert.False(t, isFailed)
}

func TestOrchestrator_MonotonicStatus(t *testing.T) {
	f := newFixture(t, nil, nil)
	f.start(t)

	var ids []string
	for range 10 {
		req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
		require.NoError(t, err)
		ids = append(ids, req.ID)
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := StatusPending
			for !last.IsTerminal() {
				s, err := f.o.Status(id)
				if err != nil {
					t.Errorf("status %s: %v", id, err)
					return
				}
				if s.Before(last) {
					t.Errorf("status of %s went from %s back to %s", id, last, s)
					return
				}
				last = s
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		statuses := f.observer.statuses(id)
		assert.Equal(t, []Status{StatusPending, StatusBuilding, StatusReady}, statuses)
	}
}

func TestOrchestrator_ListNewestFirst(t *testing.T) {
	f := newFixture(t, nil, nil)

	first, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)
	f.clock.Advance(1)
	second, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)

	list := f.o.List()
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)
}

func TestOrchestrator_StopFailsQueuedRequests(t *testing.T) {
	f := newFixture(t, nil, nil)

	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)

	f.o.Stop(t.Context())

	r, err := f.o.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, r.Status)
	assert.Equal(t, ReasonShutdown, r.Reason)

	_, err = f.o.Schedule(t.Context(), scenarioSpec(t))
	assert.True(t, errors.HasCategory(err, errors.CategoryRuntime))
}

func TestOrchestrator_DigestMismatchOnExistingIdentity(t *testing.T) {
	f := newFixture(t, nil, nil)

	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)
	require.NoError(t, f.store.Write(t.Context(), req.ID, []byte("other"), "sha256:other"))

	e, ok := f.o.lookup(req.ID)
	require.True(t, ok)
	f.o.process(t.Context(), e, 0)

	r, err := f.o.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, r.Status)
	data, ok := f.store.Bytes(req.ID)
	require.True(t, ok)
	assert.Equal(t, []byte("other"), data, "a published artifact is never overwritten")
}

func TestPublish_AlreadyPublishedSameDigest(t *testing.T) {
	f := newFixture(t, nil, nil)
	id := uuid.NewString()
	art := &archive.Archive{Data: []byte("zip"), Digest: archive.Digest([]byte("zip")), Size: 3}

	require.NoError(t, f.store.Write(t.Context(), id, art.Data, art.Digest))
	require.NoError(t, f.o.publish(context.Background(), id, art))

	err := f.o.publish(context.Background(), id, &archive.Archive{Data: []byte("x"), Digest: "sha256:x"})
	require.Error(t, err)
	assert.True(t, storage.IsAlreadyExists(err))
	assert.False(t, errors.CanRetry(err))
}

func TestOrchestrator_DefaultStagingLeavesOtherInstancesAlone(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)
	other := filepath.Join(tmp, "skelbuilder-b7-123")
	require.NoError(t, os.Mkdir(other, 0o750))

	f := newFixture(t, nil, nil, withStagingDir(""))
	f.start(t)
	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)
	done := f.waitTerminal(t, req.ID)
	require.Equal(t, StatusReady, done.Status, done.Reason)
	assert.DirExists(t, other)

	f.o.Stop(context.Background())
	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Len(t, entries, 1, "private staging base is removed on stop")
	assert.Equal(t, "skelbuilder-b7-123", entries[0].Name())
}

func TestOrchestrator_SlowObserverDoesNotBlockReads(t *testing.T) {
	f := newFixture(t, nil, nil)
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	f.o.AddObserver(ObserverFunc(func(_ context.Context, r Request) {
		if r.Status == StatusReady {
			once.Do(func() { close(entered) })
			<-release
		}
	}))
	f.start(t)

	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)
	waitSignal(t, entered)

	read := make(chan Request, 1)
	go func() {
		r, err := f.o.Get(req.ID)
		if err == nil {
			read <- r
		}
		close(read)
	}()
	select {
	case r, ok := <-read:
		require.True(t, ok)
		assert.Equal(t, StatusBuilding, r.Status, "readers see the last state observers have acknowledged")
	case <-time.After(5 * time.Second):
		t.Fatal("Get blocked behind an observer")
	}
	assert.Len(t, f.o.List(), 1)
	_, err = f.o.Fetch(t.Context(), req.ID)
	assert.True(t, IsNotReady(err))

	close(release)
	done := f.waitTerminal(t, req.ID)
	assert.Equal(t, StatusReady, done.Status)
	assert.Equal(t, []Status{StatusPending, StatusBuilding, StatusReady}, f.observer.statuses(req.ID))
}

package build

import (
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/skelbuilder/internal/config"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

func readyBuild(t *testing.T, f *fixture) string {
	t.Helper()
	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)
	e, ok := f.o.lookup(req.ID)
	require.True(t, ok)
	f.o.process(t.Context(), e, 0)
	s, err := f.o.Status(req.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReady, s)
	return req.ID
}

func download(t *testing.T, f *fixture, id string) {
	t.Helper()
	h, err := f.o.Fetch(t.Context(), id)
	require.NoError(t, err)
	_, err = io.Copy(io.Discard, h)
	require.NoError(t, err)
	require.NoError(t, h.Close())
}

func TestSweep_Idle(t *testing.T) {
	f := newFixture(t, nil, nil)
	id := readyBuild(t, f)

	f.clock.Advance(30 * time.Minute)
	report, err := f.o.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total())

	// Opening the artifact counts as activity.
	download(t, f, id)
	f.clock.Advance(45 * time.Minute)
	report, err = f.o.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total())

	f.clock.Advance(time.Hour)
	report, err = f.o.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report[PurgeIdle])

	_, err = f.o.Fetch(t.Context(), id)
	assert.True(t, IsNotFound(err))
	_, err = f.o.Status(id)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, PurgeIdle, f.observer.purged[id])
}

func TestRetention_FirstDownloadPurgesImmediately(t *testing.T) {
	f := newFixture(t, nil, nil, withRetention(Retention{Policy: config.RetentionFirstDownload, IdleAfter: time.Hour}))
	id := readyBuild(t, f)

	// A download that stops early does not count.
	h, err := f.o.Fetch(t.Context(), id)
	require.NoError(t, err)
	_, err = h.Read(make([]byte, 1))
	require.NoError(t, err)
	require.NoError(t, h.Close())
	r, err := f.o.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Downloads)

	download(t, f, id)

	_, err = f.o.Fetch(t.Context(), id)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, f.store.Len())
	assert.Equal(t, PurgeDownloaded, f.observer.purged[id])
}

func TestRetention_IdlePolicyKeepsDownloaded(t *testing.T) {
	f := newFixture(t, nil, nil)
	id := readyBuild(t, f)

	download(t, f, id)
	r, err := f.o.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 1, r.Downloads)
	download(t, f, id)

	// Switching policy applies to artifacts already downloaded.
	f.o.SetRetention(Retention{Policy: config.RetentionFirstDownload, IdleAfter: time.Hour})
	report, err := f.o.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report[PurgeDownloaded])
}

func TestSweep_FailedRequestsExpire(t *testing.T) {
	renderer := &failingRenderer{err: errors.CapabilityError("gap").Build()}
	f := newFixture(t, renderer, nil)

	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)
	e, _ := f.o.lookup(req.ID)
	f.o.process(t.Context(), e, 0)

	f.clock.Advance(2 * time.Hour)
	report, err := f.o.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report[PurgeExpired])
	_, err = f.o.Get(req.ID)
	assert.True(t, IsNotFound(err))
}

func TestSweep_MissingArtifactAndOrphans(t *testing.T) {
	f := newFixture(t, nil, nil)
	id := readyBuild(t, f)
	require.NoError(t, f.store.Delete(t.Context(), id))
	require.NoError(t, f.store.Write(t.Context(), "orphan-1", []byte("zip"), "sha256:00"))

	report, err := f.o.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report[PurgeMissing])
	assert.Equal(t, 0, report[PurgeOrphan], "fresh orphans are kept")
	_, err = f.o.Get(id)
	assert.True(t, IsNotFound(err))

	f.clock.Advance(2 * time.Hour)
	report, err = f.o.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 1, report[PurgeOrphan])
	assert.Equal(t, 0, f.store.Len())
}

func TestSweep_KeepsUnfinishedRequests(t *testing.T) {
	f := newFixture(t, nil, nil)
	req, err := f.o.Schedule(t.Context(), scenarioSpec(t))
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	report, err := f.o.Sweep(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Total())
	s, err := f.o.Status(req.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, s)
}

func TestSweeper_RunsPeriodically(t *testing.T) {
	f := newFixture(t, nil, nil)
	readyBuild(t, f)
	f.clock.Advance(2 * time.Hour)

	s, err := NewSweeper(f.o, 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, s.Start(t.Context()))
	t.Cleanup(func() { _ = s.Stop() })

	require.Eventually(t, func() bool { return f.store.Len() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Empty(t, f.o.List())

	require.NoError(t, s.SetInterval(20*time.Millisecond))
}

func TestRetentionFrom(t *testing.T) {
	r := RetentionFrom(config.RetentionConfig{IdleAfter: config.Duration(time.Minute)})
	assert.Equal(t, config.RetentionIdle, r.Policy)
	assert.Equal(t, time.Minute, r.IdleAfter)
	assert.False(t, Retention{}.idle(time.Time{}, time.Now()), "zero window never expires")
}

package eventstore

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/skelbuilder/internal/project"
)

func must(t *testing.T) func(Event, error) Event {
	return func(ev Event, err error) Event {
		t.Helper()
		require.NoError(t, err)
		return ev
	}
}

func TestProjection_RebuildFoldsLifecycle(t *testing.T) {
	store := newTestStore(t)
	spec := project.Specification{Name: "myapp", Namespace: "com.test", Version: "1.0", Languages: []project.Language{project.LanguageJava}}
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	appendAll(t, store,
		must(t)(NewBuildScheduled(testBuildID, spec, "gradle-skeleton/3", t0)),
		must(t)(NewBuildStarted(testBuildID, t0.Add(time.Second))),
		must(t)(NewBuildRetrying(testBuildID, 1, time.Second, "disk full", t0.Add(2*time.Second))),
		must(t)(NewBuildReady(testBuildID, "sha256:ab", 42, t0.Add(3*time.Second))),
	)

	projection := NewProjection(store)
	require.NoError(t, projection.Rebuild(t.Context()))

	rec, ok := projection.Get(testBuildID)
	require.True(t, ok)
	assert.Equal(t, StatusReady, rec.Status)
	assert.Equal(t, "myapp", rec.Spec.Name)
	assert.Equal(t, "gradle-skeleton/3", rec.Renderer)
	assert.Equal(t, "sha256:ab", rec.Digest)
	assert.Equal(t, int64(42), rec.Size)
	assert.Equal(t, 2, rec.Attempts)
	assert.True(t, rec.CreatedAt.Equal(t0))
	assert.True(t, rec.UpdatedAt.Equal(t0.Add(3*time.Second)))
}

func TestProjection_IgnoresOrphanEvents(t *testing.T) {
	projection := NewProjection(newTestStore(t))
	projection.Apply(must(t)(NewBuildFailed("orphan", "x", time.Now())))

	_, ok := projection.Get("orphan")
	assert.False(t, ok, "an event without a schedule record must not create a build")
}

func TestProjection_RecordsOrderedAndForget(t *testing.T) {
	projection := NewProjection(newTestStore(t))
	t0 := time.Now()

	projection.Apply(must(t)(NewBuildScheduled("b", project.Specification{}, "r", t0.Add(time.Second))))
	projection.Apply(must(t)(NewBuildScheduled("a", project.Specification{}, "r", t0)))
	projection.Apply(must(t)(NewBuildFailed("a", "canceled", t0.Add(2*time.Second))))

	records := projection.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].BuildID)
	assert.Equal(t, "b", records[1].BuildID)
	assert.Equal(t, StatusFailed, records[0].Status)
	assert.Equal(t, "canceled", records[0].Reason)

	projection.Forget("a")
	_, ok := projection.Get("a")
	assert.False(t, ok)
}

func TestProjection_RebuildReplacesState(t *testing.T) {
	store := newTestStore(t)
	projection := NewProjection(store)
	projection.Apply(must(t)(NewBuildScheduled("stale", project.Specification{}, "r", time.Now())))

	require.NoError(t, projection.Rebuild(t.Context()))
	assert.Empty(t, projection.Records(), "state not in the journal is dropped")
}

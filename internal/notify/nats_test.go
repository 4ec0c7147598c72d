package notify

import (
	"encoding/json"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/skelbuilder/internal/build"
	"git.home.luguber.info/inful/skelbuilder/internal/config"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

type message struct {
	subject string
	data    []byte
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []message
	err  error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, message{subject: subject, data: data})
	return nil
}

func TestNotifier_PublishesTransitions(t *testing.T) {
	pub := &fakePublisher{}
	n := New(pub, "skel.builds.")

	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	n.OnTransition(t.Context(), build.Request{ID: "b1", Status: build.StatusBuilding, UpdatedAt: at, Attempts: 1})
	n.OnTransition(t.Context(), build.Request{
		ID:        "b1",
		Status:    build.StatusReady,
		UpdatedAt: at,
		Artifact:  &build.Artifact{Name: "x.zip", Digest: "sha256:ab", Size: 42},
	})
	n.OnPurge(t.Context(), "b1", build.PurgeIdle)

	require.Len(t, pub.msgs, 3)
	assert.Equal(t, "skel.builds.building", pub.msgs[0].subject)
	assert.Equal(t, "skel.builds.ready", pub.msgs[1].subject)
	assert.Equal(t, "skel.builds.purged", pub.msgs[2].subject)

	var ev Event
	require.NoError(t, json.Unmarshal(pub.msgs[1].data, &ev))
	assert.Equal(t, "b1", ev.BuildID)
	assert.Equal(t, "READY", ev.Status)
	assert.Equal(t, "sha256:ab", ev.Digest)
	assert.Equal(t, int64(42), ev.Size)
	assert.True(t, at.Equal(ev.Timestamp))
}

func TestNotifier_DefaultSubject(t *testing.T) {
	n := New(&fakePublisher{}, "  ")
	assert.Equal(t, DefaultSubject+".failed", n.Subject("FAILED"))
}

func TestNotifier_PublishErrorsAreSwallowed(t *testing.T) {
	pub := &fakePublisher{err: stderrors.New("connection closed")}
	n := New(pub, "")
	assert.NotPanics(t, func() {
		n.OnTransition(t.Context(), build.Request{ID: "b1", Status: build.StatusFailed, Reason: "boom"})
	})
	assert.Empty(t, pub.msgs)
	assert.NoError(t, n.Close())
}

func TestConnect_RequiresURL(t *testing.T) {
	_, err := Connect(config.NotificationsConfig{})
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryConfig))
}

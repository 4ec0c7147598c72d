package build

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/skelbuilder/internal/eventstore"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
)

// Journal records transitions in an event store so that requests survive a
// restart. It implements Observer, RetryObserver and PurgeObserver.
type Journal struct {
	store      eventstore.Store
	projection *eventstore.Projection
	now        func() time.Time
}

// NewJournal wraps store. The projection is kept current with every
// appended event.
func NewJournal(store eventstore.Store) *Journal {
	return &Journal{
		store:      store,
		projection: eventstore.NewProjection(store),
		now:        time.Now,
	}
}

// Records replays the journal and returns the last known state of every
// build, oldest first.
func (j *Journal) Records(ctx context.Context) ([]eventstore.BuildRecord, error) {
	if err := j.projection.Rebuild(ctx); err != nil {
		return nil, err
	}
	return j.projection.Records(), nil
}

func (j *Journal) OnTransition(ctx context.Context, r Request) {
	var (
		ev  eventstore.Event
		err error
	)
	switch r.Status {
	case StatusPending:
		ev, err = eventstore.NewBuildScheduled(r.ID, r.Spec, r.Renderer, r.CreatedAt)
	case StatusBuilding:
		ev, err = eventstore.NewBuildStarted(r.ID, r.UpdatedAt)
	case StatusReady:
		var digest string
		var size int64
		if r.Artifact != nil {
			digest, size = r.Artifact.Digest, r.Artifact.Size
		}
		ev, err = eventstore.NewBuildReady(r.ID, digest, size, r.UpdatedAt)
	case StatusFailed:
		ev, err = eventstore.NewBuildFailed(r.ID, r.Reason, r.UpdatedAt)
	default:
		return
	}
	j.append(ctx, r.ID, ev, err)
}

func (j *Journal) OnRetry(ctx context.Context, r Request, retry int, delay time.Duration, cause error) {
	ev, err := eventstore.NewBuildRetrying(r.ID, retry, delay, cause.Error(), j.now())
	j.append(ctx, r.ID, ev, err)
}

func (j *Journal) OnPurge(ctx context.Context, id, _ string) {
	if err := j.store.Forget(ctx, id); err != nil {
		slog.Error("Failed to remove build from journal", logfields.BuildID(id), logfields.Error(err))
	}
	j.projection.Forget(id)
}

func (j *Journal) append(ctx context.Context, id string, ev eventstore.Event, err error) {
	if err == nil {
		err = j.store.Append(ctx, &ev)
	}
	if err != nil {
		slog.Error("Failed to journal build event", logfields.BuildID(id), logfields.Error(err))
		return
	}
	j.projection.Apply(ev)
}

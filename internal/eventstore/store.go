package eventstore

import "context"

// Store persists journal events.
type Store interface {
	// Append stores ev and sets its Seq.
	Append(ctx context.Context, ev *Event) error

	// History returns the events of one build in append order.
	History(ctx context.Context, buildID string) ([]Event, error)

	// Replay calls fn for every event in append order and stops at the
	// first error fn returns. fn must not call back into the store.
	Replay(ctx context.Context, fn func(Event) error) error

	// Forget drops every event of a build.
	Forget(ctx context.Context, buildID string) error

	Close() error
}

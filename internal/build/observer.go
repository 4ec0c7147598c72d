package build

import (
	"context"
	"time"
)

// Observer receives a snapshot after every status transition. Calls for one
// identity arrive in transition order; calls for different identities may
// interleave. Observers must not call back into the Orchestrator for the
// same identity.
type Observer interface {
	OnTransition(ctx context.Context, r Request)
}

// RetryObserver is optionally implemented by observers that want to hear
// about transient failures that will be retried.
type RetryObserver interface {
	OnRetry(ctx context.Context, r Request, retry int, delay time.Duration, cause error)
}

// PurgeObserver is optionally implemented by observers that track
// identities removed by retention.
type PurgeObserver interface {
	OnPurge(ctx context.Context, id, reason string)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, r Request)

func (f ObserverFunc) OnTransition(ctx context.Context, r Request) { f(ctx, r) }

func (o *Orchestrator) notifyTransition(ctx context.Context, r Request) {
	ctx = context.WithoutCancel(ctx)
	for _, obs := range o.observers {
		obs.OnTransition(ctx, r)
	}
}

func (o *Orchestrator) notifyRetry(ctx context.Context, r Request, retry int, delay time.Duration, cause error) {
	ctx = context.WithoutCancel(ctx)
	for _, obs := range o.observers {
		if ro, ok := obs.(RetryObserver); ok {
			ro.OnRetry(ctx, r, retry, delay, cause)
		}
	}
}

func (o *Orchestrator) notifyPurge(ctx context.Context, id, reason string) {
	ctx = context.WithoutCancel(ctx)
	for _, obs := range o.observers {
		if po, ok := obs.(PurgeObserver); ok {
			po.OnPurge(ctx, id, reason)
		}
	}
}

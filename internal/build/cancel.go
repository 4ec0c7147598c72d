package build

import (
	"context"
	"log/slog"

	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
	"git.home.luguber.info/inful/skelbuilder/internal/metrics"
)

// CancelOutcome reports what Cancel did.
type CancelOutcome string

const (
	// CancelCanceled: the request was PENDING or had not started packaging.
	// It ends FAILED with reason "canceled".
	CancelCanceled CancelOutcome = "canceled"
	// CancelPackaging: packaging had started; the pipeline runs to completion.
	CancelPackaging CancelOutcome = "packaging"
	// CancelTerminal: the request was already READY or FAILED.
	CancelTerminal CancelOutcome = "terminal"
)

// Cancel asks the pipeline of id to stop. A PENDING request fails at once;
// a BUILDING request fails as soon as its pipeline observes the
// cancellation, which is before packaging begins.
func (o *Orchestrator) Cancel(ctx context.Context, id string) (CancelOutcome, error) {
	e, key, ok := o.resolve(id)
	if !ok {
		return "", notFound(key)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	switch {
	case e.req.Status.IsTerminal():
		return CancelTerminal, nil
	case e.req.Status == StatusPending:
		e.cancelRequested = true
		if o.transitionLocked(ctx, e, StatusFailed, func(r *Request) { r.Reason = ReasonCanceled }) {
			o.recorder.IncBuildOutcome(metrics.OutcomeCanceled)
		}
		return CancelCanceled, nil
	case e.packaging:
		slog.Info("Cancel ignored, build is packaging", logfields.BuildID(key))
		return CancelPackaging, nil
	default:
		e.cancelRequested = true
		if e.cancel != nil {
			e.cancel()
		}
		slog.Info("Cancel requested", logfields.BuildID(key))
		return CancelCanceled, nil
	}
}

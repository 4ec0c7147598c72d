package build

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/skelbuilder/internal/archive"
	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
	"git.home.luguber.info/inful/skelbuilder/internal/metrics"
	"git.home.luguber.info/inful/skelbuilder/internal/storage"
)

// errShutdown ends a pipeline interrupted by Stop before packaging.
var errShutdown = stderrors.New(ReasonShutdown)

func (o *Orchestrator) worker(ctx context.Context, n int) {
	defer o.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-o.stopChan:
			return
		case id := <-o.queue:
			o.recorder.SetQueueDepth(len(o.queue))
			e, ok := o.lookup(id)
			if !ok {
				continue
			}
			if o.stopped() {
				o.failPending(ctx, e, ReasonShutdown)
				continue
			}
			o.process(ctx, e, n)
		}
	}
}

func (o *Orchestrator) process(ctx context.Context, e *entry, worker int) {
	buildCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	if !o.claim(buildCtx, e, cancel) {
		return
	}

	o.recorder.SetActiveBuilds(int(o.active.Add(1)))
	defer func() { o.recorder.SetActiveBuilds(int(o.active.Add(-1))) }()

	id := e.req.ID
	slog.Debug("Worker picked up build", logfields.BuildID(id), logfields.Worker(worker))

	start := time.Now()
	art, attempts, err := o.execute(buildCtx, e)
	o.recorder.ObserveBuildDuration(time.Since(start))

	o.finish(ctx, e, art, attempts, err)
}

// claim moves a queued request to BUILDING. It fails when the request was
// canceled while it waited or was claimed before.
func (o *Orchestrator) claim(ctx context.Context, e *entry, cancel context.CancelFunc) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.req.Status != StatusPending {
		return false
	}
	e.cancel = cancel
	return o.transitionLocked(ctx, e, StatusBuilding, nil)
}

// execute runs attempts until one succeeds, the error is not transient or
// the retry budget is spent. Once an archive exists only the store write
// is repeated.
func (o *Orchestrator) execute(ctx context.Context, e *entry) (*archive.Archive, int, error) {
	policy := o.cfg.Retry
	id := e.req.ID

	var art *archive.Archive
	retries := 0
	for {
		attempt := o.nextAttempt(e)

		var stage string
		var err error
		art, stage, err = o.attempt(ctx, e, art)
		if err == nil {
			return art, attempt, nil
		}

		packaging := o.isPackaging(e)
		if !packaging && ctx.Err() != nil {
			return nil, attempt, o.interruption(e)
		}
		if stderrors.Is(err, errCanceled) {
			return nil, attempt, err
		}

		if !policy.ShouldRetry(err, retries) {
			if errors.CanRetry(err) {
				o.recorder.IncBuildRetryExhausted(stage)
				slog.Error("Build retries exhausted",
					logfields.BuildID(id),
					logfields.Stage(stage),
					logfields.Attempt(attempt),
					logfields.Error(err))
			}
			return nil, attempt, err
		}

		retries++
		delay := policy.Delay(retries)
		o.recorder.IncBuildRetry(stage)
		slog.Warn("Transient build error, retrying",
			logfields.BuildID(id),
			logfields.Stage(stage),
			logfields.Attempt(attempt),
			logfields.Retry(retries),
			slog.Int("max_retries", policy.MaxRetries),
			logfields.Delay(delay),
			logfields.Error(err))

		e.mu.Lock()
		snap := e.snapshot()
		e.mu.Unlock()
		o.notifyRetry(ctx, snap, retries, delay, err)

		waitCtx := ctx
		if packaging {
			waitCtx = context.WithoutCancel(ctx)
		}
		if err := policy.Wait(waitCtx, retries); err != nil {
			return nil, attempt, o.interruption(e)
		}
	}
}

// attempt renders and packages unless art is already known, then publishes.
func (o *Orchestrator) attempt(ctx context.Context, e *entry, art *archive.Archive) (*archive.Archive, string, error) {
	if art == nil {
		var stage string
		var err error
		art, stage, err = o.produce(ctx, e)
		if err != nil {
			return nil, stage, err
		}
	}

	start := time.Now()
	err := o.publish(context.WithoutCancel(ctx), e.req.ID, art)
	o.recorder.ObserveStageDuration(metrics.StageStore, time.Since(start))
	if err != nil {
		return art, metrics.StageStore, err
	}
	return art, "", nil
}

// produce renders into a private staging directory and packages the result.
// The staging directory is released on every path.
func (o *Orchestrator) produce(ctx context.Context, e *entry) (*archive.Archive, string, error) {
	id := e.req.ID
	spec := e.req.Spec

	staging, err := o.staging.Acquire(id)
	if err != nil {
		return nil, metrics.StageRender, err
	}
	defer func() { _ = staging.Release() }()

	start := time.Now()
	tree, err := o.renderer.Render(ctx, spec, staging.Path())
	o.recorder.ObserveStageDuration(metrics.StageRender, time.Since(start))
	if err != nil {
		return nil, metrics.StageRender, err
	}

	if !o.beginPackaging(e) {
		return nil, metrics.StageRender, errCanceled
	}

	start = time.Now()
	art, err := o.packager.Package(context.WithoutCancel(ctx), tree.Root, tree.Name)
	o.recorder.ObserveStageDuration(metrics.StagePackage, time.Since(start))
	if err != nil {
		return nil, metrics.StagePackage, err
	}
	slog.Debug("Packaged skeleton",
		logfields.BuildID(id),
		logfields.Digest(art.Digest),
		logfields.Size(art.Size))
	return art, "", nil
}

// publish writes art to the store. An identity already holding the same
// digest was published by an earlier attempt whose acknowledgment was lost.
func (o *Orchestrator) publish(ctx context.Context, id string, art *archive.Archive) error {
	err := o.store.Write(ctx, id, art.Data, art.Digest)
	if err == nil {
		return nil
	}
	if storage.IsAlreadyExists(err) {
		if info, statErr := o.store.Stat(ctx, id); statErr == nil && info.Digest == art.Digest {
			return nil
		}
		return errors.WrapError(err, errors.CategoryStore, "artifact identity already holds other content").
			WithContext("id", id).
			Build()
	}
	slog.Error("Artifact store write failed", logfields.BuildID(id), logfields.Error(err))
	if errors.IsClassified(err) {
		return err
	}
	return errors.WrapError(err, errors.CategoryStore, "failed to publish artifact").
		WithContext("id", id).
		Retryable().
		Build()
}

func (o *Orchestrator) finish(ctx context.Context, e *entry, art *archive.Archive, attempts int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cancel = nil

	if err == nil {
		if o.transitionLocked(ctx, e, StatusReady, func(r *Request) {
			r.Reason = ""
			r.Artifact = &Artifact{Name: r.Spec.ArchiveName(), Digest: art.Digest, Size: art.Size}
		}) {
			o.recorder.IncBuildOutcome(metrics.OutcomeReady)
			o.recorder.ObserveArtifactSize(art.Size)
		}
		return
	}

	reason := failureReason(err, attempts)
	if o.transitionLocked(ctx, e, StatusFailed, func(r *Request) { r.Reason = reason }) {
		if stderrors.Is(err, errCanceled) {
			o.recorder.IncBuildOutcome(metrics.OutcomeCanceled)
		} else {
			o.recorder.IncBuildOutcome(metrics.OutcomeFailed)
		}
	}
}

func failureReason(err error, attempts int) string {
	switch {
	case stderrors.Is(err, errCanceled):
		return ReasonCanceled
	case stderrors.Is(err, errShutdown):
		return ReasonShutdown
	case attempts > 1:
		return fmt.Sprintf("after %d attempts: %v", attempts, err)
	default:
		return err.Error()
	}
}

func (o *Orchestrator) nextAttempt(e *entry) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.req.Attempts++
	e.publish()
	return e.req.Attempts
}

// beginPackaging marks the point after which cancel has no effect.
func (o *Orchestrator) beginPackaging(e *entry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelRequested {
		return false
	}
	e.packaging = true
	return true
}

func (o *Orchestrator) isPackaging(e *entry) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.packaging
}

// interruption names why a context was canceled: Cancel or Stop.
func (o *Orchestrator) interruption(e *entry) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancelRequested {
		return errCanceled
	}
	return errShutdown
}

package build

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/skelbuilder/internal/eventstore"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
	"git.home.luguber.info/inful/skelbuilder/internal/storage"
)

// Recover restores requests from journal records. Call it before Start.
// READY requests come back only when their artifact still exists. Requests
// a crash left PENDING or BUILDING are restored as FAILED. A store that
// cannot answer aborts recovery.
func (o *Orchestrator) Recover(ctx context.Context, records []eventstore.BuildRecord) (int, error) {
	restored := 0
	for _, rec := range records {
		if _, err := uuid.Parse(rec.BuildID); err != nil {
			slog.Warn("Skipping journal record with malformed id", logfields.BuildID(rec.BuildID))
			continue
		}
		if _, known := o.lookup(rec.BuildID); known {
			continue
		}

		e := &entry{req: Request{
			ID:        rec.BuildID,
			Spec:      rec.Spec,
			Renderer:  rec.Renderer,
			Status:    Status(rec.Status),
			Reason:    rec.Reason,
			Attempts:  rec.Attempts,
			CreatedAt: rec.CreatedAt,
			UpdatedAt: rec.UpdatedAt,
		}}

		switch e.req.Status {
		case StatusReady:
			info, err := o.store.Stat(ctx, rec.BuildID)
			if err != nil && !storage.IsNotFound(err) {
				return restored, err
			}
			if err != nil {
				slog.Warn("Dropping recovered build without artifact", logfields.BuildID(rec.BuildID), logfields.Error(err))
				o.notifyPurge(ctx, rec.BuildID, PurgeMissing)
				continue
			}
			e.req.Artifact = &Artifact{Name: rec.Spec.ArchiveName(), Digest: rec.Digest, Size: rec.Size}
			if e.req.Artifact.Digest == "" {
				e.req.Artifact.Digest, e.req.Artifact.Size = info.Digest, info.Size
			}
			e.req.Downloads = info.Downloads
			o.insert(e)
		case StatusFailed:
			o.insert(e)
		case StatusPending, StatusBuilding:
			o.insert(e)
			e.mu.Lock()
			o.transitionLocked(ctx, e, StatusFailed, func(r *Request) { r.Reason = ReasonInterrupted })
			e.mu.Unlock()
		default:
			slog.Warn("Skipping journal record with unknown status",
				logfields.BuildID(rec.BuildID), logfields.Status(rec.Status))
			continue
		}
		restored++
	}
	if restored > 0 {
		slog.Info("Recovered builds from journal", slog.Int("count", restored))
	}
	return restored, nil
}

func (o *Orchestrator) insert(e *entry) {
	e.mu.Lock()
	e.publish()
	e.mu.Unlock()
	o.mu.Lock()
	o.builds[e.req.ID] = e
	o.mu.Unlock()
}

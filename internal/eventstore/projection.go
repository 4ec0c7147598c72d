// Package eventstore journals build transitions in SQLite and folds them
// into the latest known state of every build.
package eventstore

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
	"git.home.luguber.info/inful/skelbuilder/internal/project"
)

// BuildRecord is the last state the journal saw for one build.
type BuildRecord struct {
	BuildID   string                `json:"build_id"`
	Spec      project.Specification `json:"spec"`
	Renderer  string                `json:"renderer"`
	Status    string                `json:"status"`
	Reason    string                `json:"reason,omitempty"`
	Digest    string                `json:"digest,omitempty"`
	Size      int64                 `json:"size,omitempty"`
	Attempts  int                   `json:"attempts"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// fold applies ev to the record. Bodies that fail to decode leave the
// previous values in place.
func (r *BuildRecord) fold(ev Event) {
	r.UpdatedAt = ev.At
	switch ev.Kind {
	case TypeBuildScheduled:
		var body ScheduledPayload
		if ev.Decode(&body) == nil {
			r.Spec, r.Renderer = body.Spec, body.Renderer
		}
		r.Status = StatusPending
	case TypeBuildStarted:
		r.Status = StatusBuilding
		r.Attempts = 1
	case TypeBuildRetrying:
		var body RetryingPayload
		if ev.Decode(&body) == nil {
			r.Attempts = body.Attempt + 1
		}
	case TypeBuildReady:
		var body ReadyPayload
		if ev.Decode(&body) == nil {
			r.Digest, r.Size = body.Digest, body.Size
		}
		r.Status = StatusReady
	case TypeBuildFailed:
		var body FailedPayload
		if ev.Decode(&body) == nil {
			r.Reason = body.Reason
		}
		r.Status = StatusFailed
	}
}

// Projection keeps the latest BuildRecord of every journaled build.
type Projection struct {
	store Store

	mu     sync.RWMutex
	builds map[string]*BuildRecord
}

func NewProjection(store Store) *Projection {
	return &Projection{store: store, builds: make(map[string]*BuildRecord)}
}

// Rebuild discards the in-memory state and replays the whole journal.
func (p *Projection) Rebuild(ctx context.Context) error {
	builds := make(map[string]*BuildRecord)
	if err := p.store.Replay(ctx, func(ev Event) error {
		foldInto(builds, ev)
		return nil
	}); err != nil {
		return err
	}

	p.mu.Lock()
	p.builds = builds
	p.mu.Unlock()
	return nil
}

// Apply folds one freshly appended event.
func (p *Projection) Apply(ev Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	foldInto(p.builds, ev)
}

func (p *Projection) Forget(buildID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.builds, buildID)
}

func foldInto(builds map[string]*BuildRecord, ev Event) {
	if ev.BuildID == "" {
		return
	}
	rec, ok := builds[ev.BuildID]
	if !ok {
		// A build whose schedule event is gone cannot be restored.
		if ev.Kind != TypeBuildScheduled {
			slog.Debug("Skipping journal event without schedule record", logfields.BuildID(ev.BuildID), slog.String("kind", ev.Kind))
			return
		}
		rec = &BuildRecord{BuildID: ev.BuildID, CreatedAt: ev.At}
		builds[ev.BuildID] = rec
	}
	rec.fold(ev)
}

// Records returns copies of every record ordered by creation time.
func (p *Projection) Records() []BuildRecord {
	p.mu.RLock()
	out := make([]BuildRecord, 0, len(p.builds))
	for _, r := range p.builds {
		out = append(out, *r)
	}
	p.mu.RUnlock()

	slices.SortFunc(out, func(a, b BuildRecord) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.BuildID, b.BuildID)
	})
	return out
}

func (p *Projection) Get(buildID string) (BuildRecord, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if r, ok := p.builds[buildID]; ok {
		return *r, true
	}
	return BuildRecord{}, false
}

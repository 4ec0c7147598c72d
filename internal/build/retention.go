package build

import (
	"context"
	"log/slog"
	"time"

	"git.home.luguber.info/inful/skelbuilder/internal/config"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
	"git.home.luguber.info/inful/skelbuilder/internal/storage"
)

// Purge reasons, also used as metric labels.
const (
	PurgeIdle       = "idle"
	PurgeDownloaded = "downloaded"
	PurgeMissing    = "missing"
	PurgeExpired    = "expired"
	PurgeOrphan     = "orphan"
)

// Retention decides when READY artifacts and FAILED requests are dropped.
// A zero IdleAfter disables idle expiry.
type Retention struct {
	Policy    config.RetentionPolicy
	IdleAfter time.Duration
}

// RetentionFrom converts the retention config section.
func RetentionFrom(c config.RetentionConfig) Retention {
	p := c.Policy
	if p == "" {
		p = config.RetentionIdle
	}
	return Retention{Policy: p, IdleAfter: c.IdleAfter.Duration()}
}

func (r Retention) idle(last, now time.Time) bool {
	return r.IdleAfter > 0 && now.Sub(last) >= r.IdleAfter
}

// Retention returns the active retention settings.
func (o *Orchestrator) Retention() Retention {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.retention
}

// SetRetention replaces the retention settings; it takes effect on the next
// download or sweep.
func (o *Orchestrator) SetRetention(r Retention) {
	o.mu.Lock()
	o.retention = r
	o.mu.Unlock()
	slog.Info("Retention updated", slog.String("policy", string(r.Policy)), slog.Duration("idle_after", r.IdleAfter))
}

// SweepReport counts what one sweep removed, by reason.
type SweepReport map[string]int

// Total is the number of removed identities.
func (s SweepReport) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

// Sweep applies the retention policy once. READY requests lose their
// artifact when idle, when already downloaded under first_download, or
// when the artifact disappeared. FAILED requests are forgotten after the
// idle window. Idle artifacts no request refers to are deleted.
func (o *Orchestrator) Sweep(ctx context.Context) (SweepReport, error) {
	now := o.now()
	ret := o.Retention()
	report := SweepReport{}

	// Snapshot requests before listing the store so that every READY
	// request seen here already has its artifact listed.
	type candidate struct {
		id      string
		status  Status
		updated time.Time
	}
	var candidates []candidate
	known := make(map[string]bool)
	for _, e := range o.entries() {
		e.mu.Lock()
		candidates = append(candidates, candidate{id: e.req.ID, status: e.req.Status, updated: e.req.UpdatedAt})
		e.mu.Unlock()
		known[e.req.ID] = true
	}

	infos, err := o.store.List(ctx)
	if err != nil {
		return report, err
	}
	byID := make(map[string]storage.Info, len(infos))
	for _, info := range infos {
		byID[info.ID] = info
	}

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		var reason string
		switch c.status {
		case StatusReady:
			info, ok := byID[c.id]
			switch {
			case !ok:
				reason = PurgeMissing
			case ret.Policy == config.RetentionFirstDownload && info.Downloads > 0:
				reason = PurgeDownloaded
			case ret.idle(info.LastActivity(), now):
				reason = PurgeIdle
			}
		case StatusFailed:
			if ret.idle(c.updated, now) {
				reason = PurgeExpired
			}
		}
		if reason != "" && o.purge(ctx, c.id, reason) {
			report[reason]++
		}
	}

	for _, info := range infos {
		if known[info.ID] || !ret.idle(info.LastActivity(), now) {
			continue
		}
		if _, ok := o.lookup(info.ID); ok {
			continue
		}
		if err := o.store.Delete(ctx, info.ID); err != nil {
			slog.Warn("Failed to delete orphan artifact", logfields.BuildID(info.ID), logfields.Error(err))
			continue
		}
		o.recorder.IncArtifactsPurged(PurgeOrphan)
		report[PurgeOrphan]++
		slog.Info("Deleted orphan artifact", logfields.BuildID(info.ID))
	}

	if n := report.Total(); n > 0 {
		slog.Info("Retention sweep finished", slog.Int("purged", n))
	}
	return report, nil
}

// purge deletes the artifact of a terminal request and forgets the request.
// Afterwards every lookup of id reports NotFound.
func (o *Orchestrator) purge(ctx context.Context, id, reason string) bool {
	e, ok := o.lookup(id)
	if !ok {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.req.Status.IsTerminal() {
		return false
	}
	if e.req.Status == StatusReady {
		if err := o.store.Delete(ctx, id); err != nil {
			slog.Warn("Failed to delete artifact", logfields.BuildID(id), logfields.Reason(reason), logfields.Error(err))
			return false
		}
	}

	o.mu.Lock()
	if o.builds[id] == e {
		delete(o.builds, id)
	}
	o.mu.Unlock()

	o.recorder.IncArtifactsPurged(reason)
	slog.Info("Build purged", logfields.BuildID(id), logfields.Status(string(e.req.Status)), logfields.Reason(reason))
	o.notifyPurge(ctx, id, reason)
	return true
}

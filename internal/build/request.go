package build

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/skelbuilder/internal/project"
)

// Artifact references a published archive.
type Artifact struct {
	Name   string `json:"name"`
	Digest string `json:"digest"`
	Size   int64  `json:"size"`
}

// Request is a snapshot of one build request. Snapshots are values; they
// never change after they are returned.
type Request struct {
	ID        string                `json:"id"`
	Spec      project.Specification `json:"spec"`
	Renderer  string                `json:"renderer"`
	Status    Status                `json:"status"`
	Reason    string                `json:"reason,omitempty"`
	Artifact  *Artifact             `json:"artifact,omitempty"`
	Attempts  int                   `json:"attempts"`
	Downloads int                   `json:"downloads"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}

// entry is the mutable state behind a Request. mu serializes every
// transition of one identity and is held while observers run. Readers use
// view, which holds the last state every observer has seen, and never take mu.
type entry struct {
	mu   sync.Mutex
	req  Request
	view atomic.Pointer[Request]

	cancel          context.CancelFunc
	cancelRequested bool
	packaging       bool
}

func (e *entry) snapshot() Request {
	r := e.req
	if r.Artifact != nil {
		a := *r.Artifact
		r.Artifact = &a
	}
	r.Spec.Languages = append([]project.Language(nil), r.Spec.Languages...)
	return r
}

// publish makes the current state visible to readers. e.mu must be held.
func (e *entry) publish() {
	r := e.snapshot()
	e.view.Store(&r)
}

// load returns the published state, or false before the first publish.
func (e *entry) load() (Request, bool) {
	p := e.view.Load()
	if p == nil {
		return Request{}, false
	}
	r := *p
	if r.Artifact != nil {
		a := *r.Artifact
		r.Artifact = &a
	}
	r.Spec.Languages = append([]project.Language(nil), r.Spec.Languages...)
	return r, true
}

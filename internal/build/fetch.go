package build

import (
	"context"
	stderrors "errors"
	"io"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/skelbuilder/internal/config"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
	"git.home.luguber.info/inful/skelbuilder/internal/storage"
)

// Handle streams a READY artifact. Reading it to the end and closing it
// counts as a completed download.
type Handle struct {
	Request Request
	Info    storage.Info

	rc         io.ReadCloser
	onComplete func()
	eof        bool
	closeOnce  sync.Once
	closeErr   error
}

// Name is the file name offered to the client.
func (h *Handle) Name() string { return h.Request.Artifact.Name }

// Digest is the content digest of the archive.
func (h *Handle) Digest() string { return h.Request.Artifact.Digest }

// Size is the archive length in bytes.
func (h *Handle) Size() int64 { return h.Request.Artifact.Size }

func (h *Handle) Read(p []byte) (int, error) {
	n, err := h.rc.Read(p)
	if stderrors.Is(err, io.EOF) {
		h.eof = true
	}
	return n, err
}

// Close releases the stream. Only a stream read to EOF records a download.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		h.closeErr = h.rc.Close()
		if h.eof && h.onComplete != nil {
			h.onComplete()
		}
	})
	return h.closeErr
}

// Fetch returns the artifact of a READY request. The outcomes are
// exclusive: NotFound for unknown or purged ids, NotReady while PENDING or
// BUILDING, a build_failed error carrying the reason for FAILED, or a Handle.
func (o *Orchestrator) Fetch(ctx context.Context, id string) (*Handle, error) {
	e, key, ok := o.resolve(id)
	if !ok {
		return nil, notFound(key)
	}

	snap, visible := e.load()
	if !visible {
		return nil, notFound(key)
	}

	switch snap.Status {
	case StatusReady:
	case StatusFailed:
		return nil, failed(snap)
	default:
		return nil, notReady(snap)
	}

	rc, info, err := o.store.Open(ctx, key)
	if err != nil {
		if storage.IsNotFound(err) {
			// Purged between the status read and the open.
			return nil, notFound(key)
		}
		return nil, err
	}

	h := &Handle{Request: snap, Info: info, rc: rc}
	h.onComplete = func() { o.recordDownload(context.WithoutCancel(ctx), key) }
	return h, nil
}

func (o *Orchestrator) recordDownload(ctx context.Context, id string) {
	info, err := o.store.MarkDownloaded(ctx, id)
	if err != nil {
		if !storage.IsNotFound(err) {
			slog.Warn("Failed to record download", logfields.BuildID(id), logfields.Error(err))
		}
		return
	}
	o.recorder.IncDownloads()

	if e, ok := o.lookup(id); ok {
		e.mu.Lock()
		e.req.Downloads = info.Downloads
		e.publish()
		e.mu.Unlock()
	}
	slog.Info("Artifact downloaded", logfields.BuildID(id), slog.Int("downloads", info.Downloads))

	if o.Retention().Policy == config.RetentionFirstDownload {
		o.purge(ctx, id, PurgeDownloaded)
	}
}

package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

const (
	artifactExt = ".zip"
	metaExt     = ".json"
)

// FSStore keeps artifacts on the local filesystem:
//
//	<dir>/
//	  artifacts/
//	    <id>.zip
//	    <id>.json   (Info)
//	  tmp/          (files being written, never read)
//
// Writes land in tmp/, are fsynced, and are then renamed into artifacts/,
// so a reader never observes a partial archive.
type FSStore struct {
	basePath string
	now      Clock
	mu       sync.RWMutex
}

// NewFSStore creates the directory layout below basePath and removes
// temporary files left by an interrupted process.
func NewFSStore(basePath string, now Clock) (*FSStore, error) {
	if now == nil {
		now = time.Now
	}
	s := &FSStore{basePath: basePath, now: now}
	for _, dir := range []string{s.artifactDir(), s.tmpDir()} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.FromIO(err, errors.CategoryStore, "create store directory").
				WithContext("path", dir).Build()
		}
	}
	if err := s.clearTmp(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FSStore) artifactDir() string { return filepath.Join(s.basePath, "artifacts") }
func (s *FSStore) tmpDir() string      { return filepath.Join(s.basePath, "tmp") }

func (s *FSStore) artifactPath(id string) string {
	return filepath.Join(s.artifactDir(), id+artifactExt)
}

func (s *FSStore) metadataPath(id string) string {
	return filepath.Join(s.artifactDir(), id+metaExt)
}

func (s *FSStore) clearTmp() error {
	entries, err := os.ReadDir(s.tmpDir())
	if err != nil {
		return errors.FromIO(err, errors.CategoryStore, "read tmp directory").Build()
	}
	for _, e := range entries {
		_ = os.Remove(filepath.Join(s.tmpDir(), e.Name()))
	}
	return nil
}

// Write stores data under id.
func (s *FSStore) Write(ctx context.Context, id string, data []byte, digest string) error {
	if !ValidID(id) {
		return invalidID(id)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.artifactPath(id)); err == nil {
		return alreadyExists(id)
	}

	now := s.now().UTC()
	info := Info{ID: id, Size: int64(len(data)), Digest: digest, CreatedAt: now, LastAccess: now}
	meta, err := json.Marshal(info)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal metadata").Build()
	}

	// Metadata first: a published archive always has its metadata.
	if err := s.publish(id+metaExt, s.metadataPath(id), meta); err != nil {
		return err
	}
	if err := s.publish(id+artifactExt, s.artifactPath(id), data); err != nil {
		_ = os.Remove(s.metadataPath(id))
		return err
	}
	return nil
}

// publish writes data to a temp file and renames it to target.
func (s *FSStore) publish(name, target string, data []byte) error {
	tmp, err := os.CreateTemp(s.tmpDir(), name+".*")
	if err != nil {
		return errors.FromIO(err, errors.CategoryStore, "create temp file").
			WithContext("path", s.tmpDir()).Build()
	}
	tmpName := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		cleanup()
		return errors.FromIO(err, errors.CategoryStore, "write artifact").WithContext("path", tmpName).Build()
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return errors.FromIO(err, errors.CategoryStore, "sync artifact").WithContext("path", tmpName).Build()
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.FromIO(err, errors.CategoryStore, "close artifact").WithContext("path", tmpName).Build()
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return errors.FromIO(err, errors.CategoryStore, "publish artifact").WithContext("path", target).Build()
	}
	return nil
}

// Open returns the archive and refreshes its last access time.
func (s *FSStore) Open(ctx context.Context, id string) (io.ReadCloser, Info, error) {
	if !ValidID(id) {
		return nil, Info{}, notFound(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// #nosec G304 -- id is validated against idPattern
	f, err := os.Open(s.artifactPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Info{}, notFound(id)
		}
		return nil, Info{}, errors.FromIO(err, errors.CategoryStore, "open artifact").WithContext("id", id).Build()
	}

	info, err := s.readMetadata(id)
	if err != nil {
		_ = f.Close()
		return nil, Info{}, err
	}
	info.LastAccess = s.now().UTC()
	if err := s.writeMetadata(info); err != nil {
		_ = f.Close()
		return nil, Info{}, err
	}
	return f, info, nil
}

// Delete removes the archive and its metadata.
func (s *FSStore) Delete(ctx context.Context, id string) error {
	if !ValidID(id) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range []string{s.artifactPath(id), s.metadataPath(id)} {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return errors.FromIO(err, errors.CategoryStore, "delete artifact").WithContext("path", p).Build()
		}
	}
	return nil
}

// Exists reports whether the archive is published.
func (s *FSStore) Exists(ctx context.Context, id string) (bool, error) {
	if !ValidID(id) {
		return false, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.artifactPath(id))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, errors.FromIO(err, errors.CategoryStore, "stat artifact").WithContext("id", id).Build()
}

// Stat returns the metadata of a published archive.
func (s *FSStore) Stat(ctx context.Context, id string) (Info, error) {
	if !ValidID(id) {
		return Info{}, notFound(id)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(s.artifactPath(id)); err != nil {
		if os.IsNotExist(err) {
			return Info{}, notFound(id)
		}
		return Info{}, errors.FromIO(err, errors.CategoryStore, "stat artifact").WithContext("id", id).Build()
	}
	return s.readMetadata(id)
}

// List returns every published archive sorted by id.
func (s *FSStore) List(ctx context.Context) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.artifactDir())
	if err != nil {
		return nil, errors.FromIO(err, errors.CategoryStore, "list artifacts").Build()
	}
	var out []Info
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), artifactExt)
		if !ok || !ValidID(id) {
			continue
		}
		info, err := s.readMetadata(id)
		if err != nil {
			return nil, err
		}
		out = append(out, info)
	}
	slices.SortFunc(out, func(a, b Info) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

// MarkDownloaded increments the download counter.
func (s *FSStore) MarkDownloaded(ctx context.Context, id string) (Info, error) {
	if !ValidID(id) {
		return Info{}, notFound(id)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := os.Stat(s.artifactPath(id)); os.IsNotExist(err) {
		return Info{}, notFound(id)
	}
	info, err := s.readMetadata(id)
	if err != nil {
		return Info{}, err
	}
	info.Downloads++
	info.LastAccess = s.now().UTC()
	if err := s.writeMetadata(info); err != nil {
		return Info{}, err
	}
	return info, nil
}

// Close releases resources.
func (s *FSStore) Close() error {
	return nil
}

// readMetadata loads <id>.json. A missing file is rebuilt from the archive
// so that an artifact is never orphaned by lost metadata.
func (s *FSStore) readMetadata(id string) (Info, error) {
	// #nosec G304 -- id is validated against idPattern
	data, err := os.ReadFile(s.metadataPath(id))
	if os.IsNotExist(err) {
		st, statErr := os.Stat(s.artifactPath(id))
		if statErr != nil {
			return Info{}, notFound(id)
		}
		mod := st.ModTime().UTC()
		return Info{ID: id, Size: st.Size(), CreatedAt: mod, LastAccess: mod}, nil
	}
	if err != nil {
		return Info{}, errors.FromIO(err, errors.CategoryStore, "read metadata").WithContext("id", id).Build()
	}
	var info Info
	if err := json.Unmarshal(data, &info); err != nil {
		return Info{}, errors.WrapError(err, errors.CategoryStore, "corrupt metadata").WithContext("id", id).Build()
	}
	info.ID = id
	return info, nil
}

func (s *FSStore) writeMetadata(info Info) error {
	data, err := json.Marshal(info)
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "marshal metadata").Build()
	}
	return s.publish(info.ID+metaExt, s.metadataPath(info.ID), data)
}

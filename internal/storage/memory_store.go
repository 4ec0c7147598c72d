package storage

import (
	"bytes"
	"context"
	"io"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps artifacts in process memory. It backs the "memory"
// storage backend and doubles as a test store with injectable failures.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*memoryObject
	calls   MemoryCalls
	now     Clock

	// WriteErr, when set, is returned by every Write before anything is stored.
	WriteErr func(id string) error
}

type memoryObject struct {
	data []byte
	info Info
}

// MemoryCalls counts method invocations for test verification.
type MemoryCalls struct {
	Write          int
	Open           int
	Delete         int
	Exists         int
	MarkDownloaded int
}

// NewMemoryStore creates an empty store.
func NewMemoryStore(now Clock) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{objects: make(map[string]*memoryObject), now: now}
}

func (m *MemoryStore) Write(ctx context.Context, id string, data []byte, digest string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Write++

	if !ValidID(id) {
		return invalidID(id)
	}
	if m.WriteErr != nil {
		if err := m.WriteErr(id); err != nil {
			return err
		}
	}
	if _, ok := m.objects[id]; ok {
		return alreadyExists(id)
	}
	now := m.now().UTC()
	m.objects[id] = &memoryObject{
		data: bytes.Clone(data),
		info: Info{ID: id, Size: int64(len(data)), Digest: digest, CreatedAt: now, LastAccess: now},
	}
	return nil
}

func (m *MemoryStore) Open(ctx context.Context, id string) (io.ReadCloser, Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Open++

	obj, ok := m.objects[id]
	if !ok {
		return nil, Info{}, notFound(id)
	}
	obj.info.LastAccess = m.now().UTC()
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

func (m *MemoryStore) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.Delete++
	delete(m.objects, id)
	return nil
}

func (m *MemoryStore) Exists(ctx context.Context, id string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	m.calls.Exists++
	_, ok := m.objects[id]
	return ok, nil
}

func (m *MemoryStore) Stat(ctx context.Context, id string) (Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[id]
	if !ok {
		return Info{}, notFound(id)
	}
	return obj.info, nil
}

func (m *MemoryStore) List(ctx context.Context) ([]Info, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Info, 0, len(m.objects))
	for _, id := range slices.Sorted(maps.Keys(m.objects)) {
		out = append(out, m.objects[id].info)
	}
	return out, nil
}

func (m *MemoryStore) MarkDownloaded(ctx context.Context, id string) (Info, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls.MarkDownloaded++
	obj, ok := m.objects[id]
	if !ok {
		return Info{}, notFound(id)
	}
	obj.info.Downloads++
	obj.info.LastAccess = m.now().UTC()
	return obj.info, nil
}

func (m *MemoryStore) Close() error { return nil }

// Bytes returns a copy of the stored artifact.
func (m *MemoryStore) Bytes(id string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	obj, ok := m.objects[id]
	if !ok {
		return nil, false
	}
	return bytes.Clone(obj.data), true
}

// Calls returns a snapshot of the invocation counters.
func (m *MemoryStore) Calls() MemoryCalls {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

// Len returns the number of stored artifacts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// IDs returns the stored ids in order.
func (m *MemoryStore) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.objects))
}

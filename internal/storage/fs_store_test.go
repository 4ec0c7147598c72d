package storage

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newFSStore(t *testing.T) (*FSStore, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	s, err := NewFSStore(t.TempDir(), clock.Now)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, clock
}

func TestFSStore_WriteOpen(t *testing.T) {
	s, clock := newFSStore(t)
	ctx := t.Context()

	require.NoError(t, s.Write(ctx, "abc-123", []byte("zipdata"), "sha256:00"))

	ok, err := s.Exists(ctx, "abc-123")
	require.NoError(t, err)
	assert.True(t, ok)

	clock.Advance(time.Minute)
	rc, info, err := s.Open(ctx, "abc-123")
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())

	assert.Equal(t, "zipdata", string(data))
	assert.Equal(t, int64(7), info.Size)
	assert.Equal(t, "sha256:00", info.Digest)
	assert.Equal(t, clock.Now(), info.LastAccess)
	assert.Equal(t, clock.Now().Add(-time.Minute), info.CreatedAt)

	stat, err := s.Stat(ctx, "abc-123")
	require.NoError(t, err)
	assert.Equal(t, info.LastAccess, stat.LastAccess)
}

func TestFSStore_WriteTwiceFails(t *testing.T) {
	s, _ := newFSStore(t)
	ctx := t.Context()

	require.NoError(t, s.Write(ctx, "id1", []byte("first"), "d1"))
	err := s.Write(ctx, "id1", []byte("second"), "d2")
	require.Error(t, err)
	assert.True(t, IsAlreadyExists(err))
	assert.True(t, errors.HasCategory(err, errors.CategoryAlreadyExists))

	rc, _, err := s.Open(ctx, "id1")
	require.NoError(t, err)
	defer rc.Close()
	data, _ := io.ReadAll(rc)
	assert.Equal(t, "first", string(data))
}

func TestFSStore_NotFound(t *testing.T) {
	s, _ := newFSStore(t)
	ctx := t.Context()

	_, _, err := s.Open(ctx, "missing")
	assert.True(t, IsNotFound(err))
	assert.True(t, errors.HasCategory(err, errors.CategoryNotFound))

	_, err = s.Stat(ctx, "../etc/passwd")
	assert.True(t, IsNotFound(err))

	ok, err := s.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.MarkDownloaded(ctx, "missing")
	assert.True(t, IsNotFound(err))
}

func TestFSStore_RejectsInvalidID(t *testing.T) {
	s, _ := newFSStore(t)
	err := s.Write(t.Context(), "../escape", []byte("x"), "")
	require.Error(t, err)
	assert.True(t, errors.HasCategory(err, errors.CategoryValidation))
}

func TestFSStore_Delete(t *testing.T) {
	s, _ := newFSStore(t)
	ctx := t.Context()

	require.NoError(t, s.Write(ctx, "gone", []byte("x"), ""))
	require.NoError(t, s.Delete(ctx, "gone"))
	require.NoError(t, s.Delete(ctx, "gone"), "deleting twice is fine")

	_, _, err := s.Open(ctx, "gone")
	assert.True(t, IsNotFound(err))
	_, err = os.Stat(s.metadataPath("gone"))
	assert.True(t, os.IsNotExist(err))

	require.NoError(t, s.Write(ctx, "gone", []byte("again"), ""), "a deleted id may be written again")
}

func TestFSStore_ListAndMarkDownloaded(t *testing.T) {
	s, clock := newFSStore(t)
	ctx := t.Context()

	require.NoError(t, s.Write(ctx, "b", []byte("bb"), "db"))
	require.NoError(t, s.Write(ctx, "a", []byte("a"), "da"))

	clock.Advance(time.Hour)
	info, err := s.MarkDownloaded(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 1, info.Downloads)
	assert.Equal(t, clock.Now(), info.LastActivity())

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, 1, list[0].Downloads)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, int64(2), list[1].Size)
	assert.Equal(t, list[1].CreatedAt, list[1].LastActivity())
}

func TestFSStore_NoPartialFilesVisible(t *testing.T) {
	s, _ := newFSStore(t)
	ctx := t.Context()
	require.NoError(t, s.Write(ctx, "x", []byte("data"), ""))

	tmp, err := os.ReadDir(s.tmpDir())
	require.NoError(t, err)
	assert.Empty(t, tmp)
}

func TestFSStore_ClearsStaleTempFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tmp"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tmp", "half.zip.123"), []byte("partial"), 0o600))

	s, err := NewFSStore(dir, nil)
	require.NoError(t, err)
	entries, err := os.ReadDir(s.tmpDir())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFSStore_RebuildsMissingMetadata(t *testing.T) {
	s, _ := newFSStore(t)
	ctx := t.Context()
	require.NoError(t, s.Write(ctx, "meta", []byte("12345"), "d"))
	require.NoError(t, os.Remove(s.metadataPath("meta")))

	info, err := s.Stat(ctx, "meta")
	require.NoError(t, err)
	assert.Equal(t, int64(5), info.Size)
	assert.False(t, info.CreatedAt.IsZero())
}

func TestFSStore_ConcurrentWritesSameID(t *testing.T) {
	s, _ := newFSStore(t)
	ctx := t.Context()

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- s.Write(ctx, "race", []byte("x"), "")
		}()
	}
	wg.Wait()
	close(results)

	var ok, exists int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case IsAlreadyExists(err):
			exists++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 7, exists)
}

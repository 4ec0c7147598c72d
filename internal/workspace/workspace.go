package workspace

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/logfields"
)

const (
	dirPrefix = "skelbuilder-"
	// Private bases must not match dirPrefix so a configured base that
	// happens to be os.TempDir never purges another process's base.
	privatePrefix = "skelbuilder.run-"
)

// Manager creates and tracks staging directories.
type Manager struct {
	baseDir string
	private bool
	mu      sync.Mutex
	active  atomic.Int64
}

// NewManager creates a manager rooted at baseDir. With an empty baseDir the
// manager owns a private directory under os.TempDir, created on first use and
// removed by Close.
func NewManager(baseDir string) *Manager {
	return &Manager{baseDir: baseDir, private: baseDir == ""}
}

// BaseDir returns the directory under which staging areas are created. For a
// private manager it is empty until the first Acquire.
func (m *Manager) BaseDir() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.baseDir
}

func (m *Manager) base() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.baseDir != "" {
		if err := os.MkdirAll(m.baseDir, 0o750); err != nil {
			return "", errors.FromIO(err, errors.CategoryFileSystem, "staging base unavailable").
				WithContext("path", m.baseDir).Build()
		}
		return m.baseDir, nil
	}
	dir, err := os.MkdirTemp(os.TempDir(), privatePrefix+"*")
	if err != nil {
		return "", errors.FromIO(err, errors.CategoryFileSystem, "staging base unavailable").
			WithContext("path", os.TempDir()).Build()
	}
	m.baseDir = dir
	slog.Debug("Created private staging base", logfields.Path(dir))
	return dir, nil
}

// Close removes a private base directory. Managers rooted at a configured
// directory leave it in place.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.private || m.baseDir == "" {
		return nil
	}
	dir := m.baseDir
	m.baseDir = ""
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove staging base %s: %w", dir, err)
	}
	return nil
}

// Active returns the number of staging directories not yet released.
func (m *Manager) Active() int { return int(m.active.Load()) }

// Staging is one private directory. Release is safe to call more than once.
type Staging struct {
	path    string
	manager *Manager
	once    sync.Once
	err     error
}

// Acquire creates a fresh staging directory tagged with label (usually a build id).
func (m *Manager) Acquire(label string) (*Staging, error) {
	base, err := m.base()
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp(base, dirPrefix+sanitize(label)+"-*")
	if err != nil {
		return nil, errors.FromIO(err, errors.CategoryFileSystem, "failed to create staging directory").
			WithContext("path", base).Build()
	}
	m.active.Add(1)
	slog.Debug("Created staging directory", logfields.Path(dir))
	return &Staging{path: dir, manager: m}, nil
}

// Path returns the staging directory.
func (s *Staging) Path() string { return s.path }

// Release removes the staging directory and everything in it.
func (s *Staging) Release() error {
	s.once.Do(func() {
		s.manager.active.Add(-1)
		if err := os.RemoveAll(s.path); err != nil {
			s.err = fmt.Errorf("failed to remove staging directory %s: %w", s.path, err)
			slog.Warn("Staging cleanup failed", logfields.Path(s.path), logfields.Error(err))
			return
		}
		slog.Debug("Removed staging directory", logfields.Path(s.path))
	})
	return s.err
}

// PurgeStale removes staging directories left behind by a previous process.
// Call it before any Acquire. A private manager has nothing stale and never
// touches the shared temp directory.
func (m *Manager) PurgeStale() (int, error) {
	if m.private {
		return 0, nil
	}
	entries, err := os.ReadDir(m.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	removed := 0
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), dirPrefix) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(m.baseDir, e.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		slog.Info("Removed stale staging directories", slog.Int("count", removed), logfields.Path(m.baseDir))
	}
	return removed, nil
}

func sanitize(label string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, label)
}

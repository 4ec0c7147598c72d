package render

import (
	"fmt"
	"strings"
	"sync"

	"git.home.luguber.info/inful/skelbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/skelbuilder/internal/project"
)

// CapabilityKey selects boilerplate for one source root.
type CapabilityKey struct {
	Language project.Language
	Testing  project.TestingFramework
	Logging  project.LoggingFramework
}

func (k CapabilityKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Language, k.Testing, k.Logging)
}

// BoilerplateFunc renders the source files of one language root.
type BoilerplateFunc func(spec project.Specification) ([]File, error)

// Registry maps capability keys to boilerplate renderers.
type Registry struct {
	mu      sync.RWMutex
	entries map[CapabilityKey]BoilerplateFunc
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{entries: make(map[CapabilityKey]BoilerplateFunc)}
}

// DefaultRegistry registers the built-in templates for every combination.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, key := range AllKeys() {
		if fn, ok := boilerplateFor(key); ok {
			r.Register(key, fn)
		}
	}
	return r
}

// AllKeys enumerates every (language, testing, logging) combination.
func AllKeys() []CapabilityKey {
	keys := make([]CapabilityKey, 0, len(project.Languages)*len(project.TestingFrameworks)*len(project.LoggingFrameworks))
	for _, l := range project.Languages {
		for _, t := range project.TestingFrameworks {
			for _, g := range project.LoggingFrameworks {
				keys = append(keys, CapabilityKey{Language: l, Testing: t, Logging: g})
			}
		}
	}
	return keys
}

// Register adds or replaces the renderer for key.
func (r *Registry) Register(key CapabilityKey, fn BoilerplateFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[key] = fn
}

// Lookup returns the renderer for key.
func (r *Registry) Lookup(key CapabilityKey) (BoilerplateFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.entries[key]
	return fn, ok
}

// Validate fails unless every combination of enum members is registered.
func (r *Registry) Validate() error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var missing []string
	for _, key := range AllKeys() {
		if _, ok := r.entries[key]; !ok {
			missing = append(missing, key.String())
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return errors.CapabilityError(fmt.Sprintf("capability registry incomplete: %d combination(s) missing", len(missing))).
		WithContext("missing", strings.Join(missing, ", ")).
		Build()
}

package backend

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/somnolab/actigraphy/internal/monitoring"
)

// Registry selection errors.
var (
	ErrUnknownBackend     = errors.New("unknown backend")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrNoBackends         = errors.New("no backend available")
)

type entry struct {
	backend  Backend
	priority int
	order    int
}

// Registry holds named backends with selection priorities. Lower priority
// values win; registration order breaks ties.
type Registry struct {
	mu      sync.RWMutex
	entries []entry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry { return &Registry{} }

// Register adds a backend under its own name. Registering a second backend
// with the same name is an error.
func (r *Registry) Register(b Backend, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.backend.Name() == b.Name() {
			return fmt.Errorf("backend %q already registered", b.Name())
		}
	}
	r.entries = append(r.entries, entry{backend: b, priority: priority, order: len(r.entries)})
	return nil
}

// Names lists registered backends sorted by name, available or not.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.entries))
	for _, e := range r.entries {
		names = append(names, e.backend.Name())
	}
	sort.Strings(names)
	return names
}

// Create returns the named backend, or the best available one when id is
// empty: the lowest priority value among available backends, registration
// order breaking ties.
func (r *Registry) Create(id string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if id != "" {
		for _, e := range r.entries {
			if e.backend.Name() != id {
				continue
			}
			if !e.backend.Available() {
				return nil, fmt.Errorf("%w: %s", ErrBackendUnavailable, id)
			}
			return e.backend, nil
		}
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, id)
	}

	var best *entry
	for i := range r.entries {
		e := &r.entries[i]
		if !e.backend.Available() {
			continue
		}
		if best == nil || e.priority < best.priority ||
			(e.priority == best.priority && e.order < best.order) {
			best = e
		}
	}
	if best == nil {
		return nil, ErrNoBackends
	}
	monitoring.Debugf("backend: selected %s (priority %d)", best.backend.Name(), best.priority)
	return best.backend, nil
}

// WithCapability lists the available backends advertising every bit of c,
// in priority order.
func (r *Registry) WithCapability(c Capability) []Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matched := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		if e.backend.Available() && e.backend.Capabilities().Has(c) {
			matched = append(matched, e)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].priority != matched[j].priority {
			return matched[i].priority < matched[j].priority
		}
		return matched[i].order < matched[j].order
	})
	out := make([]Backend, len(matched))
	for i, e := range matched {
		out[i] = e.backend
	}
	return out
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry

	// defaultBuilders is populated by init functions, some behind build
	// tags, so the default registry only ever sees backends compiled in.
	defaultBuilders []func(*Registry) error
)

// DefaultRegistry returns the process-wide registry with every compiled-in
// backend registered.
func DefaultRegistry() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = NewRegistry()
		for _, build := range defaultBuilders {
			if err := build(defaultRegistry); err != nil {
				monitoring.Logf("backend: registration failed: %v", err)
			}
		}
	})
	return defaultRegistry
}

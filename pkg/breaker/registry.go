package breaker

import (
	"sort"
	"sync"
)

// Registry provides stable, named access to circuit breakers without
// requiring callers to manage their lifetime.
//
// Breakers are created lazily on first reference by name and live for the
// process lifetime; the registry never removes entries on its own. The
// registry's own lock is distinct from each breaker's internal lock, so
// lookups never contend with in-flight call processing, and independent
// dependencies never block one another.
//
// The application should construct exactly one Registry at a defined point
// and inject it into every component that needs breaker protection; this
// package deliberately provides no hidden global instance.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*Breaker
	defaults Config
}

// NewRegistry creates a registry whose breakers default to the given
// configuration. Zero-value fields of defaults are filled in; invalid
// values are rejected with a ConfigError.
func NewRegistry(defaults Config) (*Registry, error) {
	defaults = defaults.withDefaults()
	if err := defaults.Validate(); err != nil {
		return nil, err
	}

	return &Registry{
		breakers: make(map[string]*Breaker),
		defaults: defaults,
	}, nil
}

// GetOrCreate returns the breaker for name, creating it with the shared
// default configuration if it does not exist yet. Creation is atomic with
// respect to concurrent callers requesting the same new name.
func (r *Registry) GetOrCreate(name string) *Breaker {
	b, _ := r.getOrCreate(name, r.defaults)
	return b
}

// Configure returns the breaker for name, creating it with cfg if it does
// not exist yet. The configuration only applies on first creation; an
// existing breaker is returned as-is. Invalid configurations are rejected
// with a ConfigError.
func (r *Registry) Configure(name string, cfg Config) (*Breaker, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return r.getOrCreate(name, cfg)
}

func (r *Registry) getOrCreate(name string, cfg Config) (*Breaker, error) {
	r.mu.RLock()
	b, exists := r.breakers[name]
	r.mu.RUnlock()

	if exists {
		return b, nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check: another goroutine may have created it.
	if b, exists = r.breakers[name]; exists {
		return b, nil
	}

	b, err := New(name, cfg)
	if err != nil {
		return nil, err
	}
	r.breakers[name] = b

	return b, nil
}

// Get returns the breaker for name, or false if none has been created.
func (r *Registry) Get(name string) (*Breaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, exists := r.breakers[name]
	return b, exists
}

// Names returns the names of all registered breakers, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// ListOpen returns the names of all breakers currently in the open state,
// sorted.
func (r *Registry) ListOpen() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	open := make([]string, 0)
	for name, b := range r.breakers {
		if b.IsOpen() {
			open = append(open, name)
		}
	}
	sort.Strings(open)

	return open
}

// Snapshots returns a point-in-time view of every registered breaker,
// sorted by name.
func (r *Registry) Snapshots() []Snapshot {
	r.mu.RLock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.RUnlock()

	snapshots := make([]Snapshot, 0, len(breakers))
	for _, b := range breakers {
		snapshots = append(snapshots, b.Snapshot())
	}
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name < snapshots[j].Name
	})

	return snapshots
}

// ResetAll resets every registered breaker to the closed state with all
// counters at zero. Used for test teardown or administrative recovery.
func (r *Registry) ResetAll() {
	r.mu.RLock()
	breakers := make([]*Breaker, 0, len(r.breakers))
	for _, b := range r.breakers {
		breakers = append(breakers, b)
	}
	r.mu.RUnlock()

	for _, b := range breakers {
		b.Reset()
	}
}

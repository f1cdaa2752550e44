// Package registry provides name-keyed capability lookup for collaborators
// that components resolve at runtime instead of receiving at construction.
package registry

import (
	"slices"
	"sync"
)

// Well-known registry names.
const (
	// NamePBitTwoTest resolves the PBIT-Two implementation (bittest.PowerOnTest).
	NamePBitTwoTest = "PBitTwoTest"

	// NameHealthLogger resolves the health/status log sink (health.Logger).
	NameHealthLogger = "HealthStatusLogger"

	// NameTelemetryWriter resolves the telemetry writer (telemetry.Writer).
	NameTelemetryWriter = "TelemetryWriter"

	// NameCommands resolves the external command channel (command.Channel).
	NameCommands = "Commands"

	// NameFlowSensor resolves the water-flow sensor used by flow tests.
	NameFlowSensor = "FlowSensor"

	// NameProbes resolves the named probe set used by plan-driven tests.
	NameProbes = "Probes"
)

// Resolver looks up a shared instance by name.
type Resolver interface {
	Resolve(name string) (any, bool)
}

// Registry is a goroutine-safe Resolver populated with Provide.
type Registry struct {
	mu      sync.Mutex
	entries map[string]any
	lazy    map[string]*lazyEntry
}

// lazyEntry constructs its instance once, outside the registry lock, so a
// constructor may resolve other names.
type lazyEntry struct {
	once sync.Once
	fn   func() any
	v    any
}

func (e *lazyEntry) get() any {
	e.once.Do(func() { e.v = e.fn() })
	return e.v
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		entries: make(map[string]any),
		lazy:    make(map[string]*lazyEntry),
	}
}

// Provide registers instance under name, replacing any previous entry.
func (r *Registry) Provide(name string, instance any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lazy, name)
	r.entries[name] = instance
}

// ProvideFunc registers a constructor under name. The constructor runs on
// the first Resolve and its result is shared by every later lookup.
func (r *Registry) ProvideFunc(name string, fn func() any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
	r.lazy[name] = &lazyEntry{fn: fn}
}

// Resolve returns the instance registered under name.
func (r *Registry) Resolve(name string) (any, bool) {
	r.mu.Lock()
	if v, ok := r.entries[name]; ok {
		r.mu.Unlock()
		return v, v != nil
	}
	entry, ok := r.lazy[name]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}

	v := entry.get()
	return v, v != nil
}

// Remove deletes the entry registered under name.
func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, name)
	delete(r.lazy, name)
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.entries)+len(r.lazy))
	for name := range r.entries {
		names = append(names, name)
	}
	for name := range r.lazy {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Lookup resolves name and asserts the instance to T. It returns false when
// r is nil, the name is unknown, or the instance does not implement T.
func Lookup[T any](r Resolver, name string) (T, bool) {
	var zero T
	if r == nil {
		return zero, false
	}
	v, ok := r.Resolve(name)
	if !ok {
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Compile-time interface satisfaction check.
var _ Resolver = (*Registry)(nil)

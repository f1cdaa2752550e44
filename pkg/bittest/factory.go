package bittest

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/fbce-flight/bit-go/pkg/registry"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

// ErrNoConstructor is returned when no constructor serves an identifier.
var ErrNoConstructor = errors.New("no test constructor")

// Constructor builds the implementation for a physical identifier.
type Constructor func(physical testid.TestID, r registry.Resolver) (Test, error)

// Factory builds tests from a table of constructors keyed by physical
// identifier. It is safe for concurrent use.
type Factory struct {
	mu           sync.RWMutex
	constructors map[testid.TestID]Constructor
	fallback     Constructor
}

// NewFactory creates an empty factory.
func NewFactory() *Factory {
	return &Factory{constructors: make(map[testid.TestID]Constructor)}
}

// Register binds c to the physical identifier, replacing any previous
// binding.
func (f *Factory) Register(physical testid.TestID, c Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.constructors[physical] = c
}

// SetFallback sets the constructor used for identifiers without a binding.
func (f *Factory) SetFallback(c Constructor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fallback = c
}

// New constructs the implementation bound to physical.
func (f *Factory) New(physical testid.TestID, r registry.Resolver) (Test, error) {
	f.mu.RLock()
	c, ok := f.constructors[physical]
	if !ok {
		c = f.fallback
	}
	f.mu.RUnlock()

	if c == nil {
		return nil, fmt.Errorf("%w for %s", ErrNoConstructor, physical)
	}

	t, err := c(physical, r)
	if err != nil {
		return nil, fmt.Errorf("construct %s: %w", physical, err)
	}
	return t, nil
}

// Bound returns the identifiers with an explicit binding, in order.
func (f *Factory) Bound() []testid.TestID {
	f.mu.RLock()
	defer f.mu.RUnlock()

	ids := make([]testid.TestID, 0, len(f.constructors))
	for id := range f.constructors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

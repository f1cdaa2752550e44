package bittest

import (
	"context"
	"slices"
	"sync"
)

// Probe is a single health check used by plans and by PowerOnTwo.
type Probe interface {
	Check(ctx context.Context) error
}

// ProbeFunc adapts a function to the Probe interface.
type ProbeFunc func(ctx context.Context) error

// Check calls f(ctx).
func (f ProbeFunc) Check(ctx context.Context) error { return f(ctx) }

// Probes is a named probe set, published in the registry under
// registry.NameProbes.
type Probes struct {
	mu     sync.RWMutex
	probes map[string]Probe
}

// NewProbes creates an empty probe set.
func NewProbes() *Probes {
	return &Probes{probes: make(map[string]Probe)}
}

// Add registers p under name.
func (p *Probes) Add(name string, probe Probe) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes[name] = probe
}

// Get returns the probe registered under name.
func (p *Probes) Get(name string) (Probe, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	probe, ok := p.probes[name]
	return probe, ok
}

// Names returns the registered probe names in order.
func (p *Probes) Names() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.probes))
	for name := range p.probes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// FlowSensor reads the Coriolis water flow meter, published in the registry
// under registry.NameFlowSensor.
type FlowSensor interface {
	// ReadFlow returns the mass flow rate in grams per second.
	ReadFlow(ctx context.Context) (float64, error)
}

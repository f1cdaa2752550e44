package bittest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fbce-flight/bit-go/pkg/affinity"
	"github.com/fbce-flight/bit-go/pkg/registry"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

// DefaultProbeInterval separates PowerOnTwo probe rounds.
const DefaultProbeInterval = time.Second

// PowerOnTwoConfig configures the continuous power-on test.
type PowerOnTwoConfig struct {
	// Interval separates probe rounds. Zero selects DefaultProbeInterval.
	Interval time.Duration

	// Logger is the optional logger for debug output.
	Logger *slog.Logger
}

// PowerOnTwo is the continuous power-on BIT. Probe rounds run on the test's
// own loop; each round checks every registered probe.
type PowerOnTwo struct {
	*Base

	config PowerOnTwoConfig
	probes *Probes
	loop   *affinity.Loop

	mu       sync.Mutex
	cancel   context.CancelFunc
	rounds   int
	failures int
}

// NewPowerOnTwo creates the test. Probes and the health logger are resolved
// from r.
func NewPowerOnTwo(r registry.Resolver, config PowerOnTwoConfig) *PowerOnTwo {
	if config.Interval <= 0 {
		config.Interval = DefaultProbeInterval
	}
	probes, _ := registry.Lookup[*Probes](r, registry.NameProbes)
	return &PowerOnTwo{
		Base:   NewBase(testid.PowerOnTwo, r),
		config: config,
		probes: probes,
		loop:   affinity.New(affinity.Config{Name: "pbit-two", Logger: config.Logger}),
	}
}

// StartThread implements PowerOnTest.
func (p *PowerOnTwo) StartThread() error {
	err := p.loop.Start(context.Background())
	if errors.Is(err, affinity.ErrAlreadyStarted) {
		return nil
	}
	return err
}

// Start implements Test. Rounds are queued until StartThread has run.
func (p *PowerOnTwo) Start(requested testid.TestID) {
	if !p.Begin(requested) {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancel = cancel
	p.rounds = 0
	p.failures = 0
	p.mu.Unlock()

	go p.schedule(ctx)
}

// Stop implements Test. The completion reports success when no round failed.
func (p *PowerOnTwo) Stop(requested testid.TestID) {
	if !p.CheckStop(requested) {
		return
	}

	p.mu.Lock()
	cancel := p.cancel
	p.cancel = nil
	failures := p.failures
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	p.Finish(failures == 0)
}

// Rounds returns the number of completed rounds and how many failed.
func (p *PowerOnTwo) Rounds() (total, failed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rounds, p.failures
}

// Close stops the test's loop.
func (p *PowerOnTwo) Close() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.loop.Stop()
}

func (p *PowerOnTwo) schedule(ctx context.Context) {
	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.loop.Post(p.roundTask(ctx))
	for {
		select {
		case <-ticker.C:
			if !p.loop.Post(p.roundTask(ctx)) {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (p *PowerOnTwo) roundTask(ctx context.Context) affinity.Task {
	return func(context.Context) {
		if ctx.Err() != nil {
			return
		}
		failed := p.round(ctx)

		p.mu.Lock()
		p.rounds++
		if failed {
			p.failures++
		}
		p.mu.Unlock()
	}
}

// round runs every probe once and reports whether any failed.
func (p *PowerOnTwo) round(ctx context.Context) bool {
	if p.probes == nil {
		return false
	}

	failed := false
	for _, name := range p.probes.Names() {
		probe, ok := p.probes.Get(name)
		if !ok {
			continue
		}
		if err := probe.Check(ctx); err != nil {
			if ctx.Err() != nil {
				return failed
			}
			failed = true
			p.logError(OpProbe, fmt.Sprintf("probe %q: %v", name, err))
		}
	}
	return failed
}

var _ PowerOnTest = (*PowerOnTwo)(nil)

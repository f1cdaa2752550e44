package bittest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fbce-flight/bit-go/pkg/command"
	"github.com/fbce-flight/bit-go/pkg/registry"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

// inboxSize bounds the commands buffered for await steps.
const inboxSize = 32

// Routine is a plan-driven test.
type Routine struct {
	*Base

	plan   *Plan
	probes *Probes
	inbox  chan command.Command

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint32
}

// NewRoutine creates a Routine executing plan for the physical identifier.
// Probes are resolved from r.
func NewRoutine(physical testid.TestID, plan *Plan, r registry.Resolver) *Routine {
	probes, _ := registry.Lookup[*Probes](r, registry.NameProbes)
	rt := &Routine{
		Base:   NewBase(physical, r),
		plan:   plan,
		probes: probes,
		inbox:  make(chan command.Command, inboxSize),
	}
	rt.Inbound().Connect(rt, rt.buffer)
	return rt
}

// RoutineConstructor returns a Constructor serving every identifier that has
// a plan in plans.
func RoutineConstructor(plans map[testid.TestID]*Plan) Constructor {
	return func(physical testid.TestID, r registry.Resolver) (Test, error) {
		plan, ok := plans[physical]
		if !ok {
			return nil, fmt.Errorf("%w %s", ErrNoPlan, physical)
		}
		return NewRoutine(physical, plan, r), nil
	}
}

// Plan returns the plan the routine executes.
func (rt *Routine) Plan() *Plan { return rt.plan }

// Start implements Test.
func (rt *Routine) Start(requested testid.TestID) {
	if !rt.Begin(requested) {
		return
	}
	rt.drainInbox()

	var (
		ctx    context.Context
		cancel context.CancelFunc
	)
	if rt.plan.timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), rt.plan.timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	rt.mu.Lock()
	rt.cancel = cancel
	rt.mu.Unlock()

	go rt.run(ctx, cancel)
}

// Stop implements Test.
func (rt *Routine) Stop(requested testid.TestID) {
	if !rt.CheckStop(requested) {
		return
	}
	rt.mu.Lock()
	cancel := rt.cancel
	rt.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (rt *Routine) run(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	for i := range rt.plan.Steps {
		step := &rt.plan.Steps[i]
		if err := rt.exec(ctx, step); err != nil {
			rt.logError(OpStep, fmt.Sprintf("step %d (%s): %v", i+1, step.Action, err))
			rt.Finish(false)
			return
		}
	}
	rt.Finish(true)
}

func (rt *Routine) exec(ctx context.Context, step *Step) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	switch step.Action {
	case ActionDelay:
		t := time.NewTimer(step.duration)
		defer t.Stop()
		select {
		case <-t.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}

	case ActionCommand:
		rt.mu.Lock()
		rt.seq++
		seq := rt.seq
		rt.mu.Unlock()
		rt.SendCommand(command.Command{Code: step.code, Sequence: seq, Payload: step.payload})
		return nil

	case ActionAwait:
		waitCtx, cancel := context.WithTimeout(ctx, step.duration)
		defer cancel()
		for {
			select {
			case cmd := <-rt.inbox:
				if cmd.Code == step.code {
					return nil
				}
			case <-waitCtx.Done():
				return fmt.Errorf("awaiting %s: %w", step.code, waitCtx.Err())
			}
		}

	case ActionProbe:
		if rt.probes == nil {
			return fmt.Errorf("no probes registered for %q", step.Probe)
		}
		probe, ok := rt.probes.Get(step.Probe)
		if !ok {
			return fmt.Errorf("unknown probe %q", step.Probe)
		}
		if err := probe.Check(ctx); err != nil {
			return fmt.Errorf("probe %q: %w", step.Probe, err)
		}
		return nil
	}
	return fmt.Errorf("unknown action %q", step.Action)
}

// buffer keeps inbound commands for await steps, dropping the oldest when
// full.
func (rt *Routine) buffer(cmd command.Command) {
	for {
		select {
		case rt.inbox <- cmd:
			return
		default:
		}
		select {
		case <-rt.inbox:
		default:
		}
	}
}

func (rt *Routine) drainInbox() {
	for {
		select {
		case <-rt.inbox:
		default:
			return
		}
	}
}

var _ Test = (*Routine)(nil)

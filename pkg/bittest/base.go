package bittest

import (
	"fmt"
	"sync"
	"time"

	"github.com/fbce-flight/bit-go/pkg/command"
	"github.com/fbce-flight/bit-go/pkg/health"
	"github.com/fbce-flight/bit-go/pkg/registry"
	"github.com/fbce-flight/bit-go/pkg/signal"
	"github.com/fbce-flight/bit-go/pkg/telemetry"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

// Operation names used in health entries written by tests.
const (
	OpStart    = "Start"
	OpStop     = "Stop"
	OpComplete = "Complete"
	OpProbe    = "Probe"
	OpStep     = "Step"
)

// Base carries the identity validation, lifecycle bookkeeping and signals
// shared by the concrete tests. Embed it and implement Start and Stop.
type Base struct {
	bound  testid.TestID
	logger health.Logger

	completed signal.Signal[Completion]
	inbound   signal.Signal[command.Command]
	outbound  signal.Signal[command.Command]
	telemetry signal.Signal[telemetry.Frame]

	mu        sync.Mutex
	running   bool
	requested testid.TestID
	runID     string
	seq       telemetry.Sequencer
}

// NewBase creates a Base bound to the physical identifier. The health logger
// is resolved from r; without one, entries are discarded.
func NewBase(bound testid.TestID, r registry.Resolver) *Base {
	logger, ok := registry.Lookup[health.Logger](r, registry.NameHealthLogger)
	if !ok {
		logger = health.NoopLogger{}
	}
	return &Base{bound: bound, logger: logger}
}

// Bound returns the physical identifier the test was constructed for.
func (b *Base) Bound() testid.TestID { return b.bound }

// Logger returns the health logger the test writes to.
func (b *Base) Logger() health.Logger { return b.logger }

// Accepts reports whether requested names this implementation. PowerOnTwo
// only answers to itself; every other test answers to each identifier the
// dispatch table resolves to it.
func (b *Base) Accepts(requested testid.TestID) bool {
	if b.bound == testid.PowerOnTwo {
		return requested == testid.PowerOnTwo
	}
	physical, err := testid.Resolve(requested)
	return err == nil && physical == b.bound
}

// Begin validates a start request. A foreign identifier is logged as an
// ERROR and completed as failed. A start while running is logged and
// ignored. Begin returns true when the caller should run the routine.
func (b *Base) Begin(requested testid.TestID) bool {
	if !b.Accepts(requested) {
		b.logError(OpStart, fmt.Sprintf("%s is not served by %s", requested, b.bound))
		b.completed.Emit(Completion{Test: requested, Succeeded: false})
		return false
	}

	b.mu.Lock()
	if b.running {
		current := b.requested
		b.mu.Unlock()
		b.logStatus(OpStart, fmt.Sprintf("%s already running as %s", b.bound, current))
		return false
	}
	b.running = true
	b.requested = requested
	b.mu.Unlock()

	b.logStatus(OpStart, fmt.Sprintf("%s started as %s", b.bound, requested))
	return true
}

// CheckStop validates a stop request. A foreign identifier is logged as an
// ERROR. It returns true when the test is running and should halt.
func (b *Base) CheckStop(requested testid.TestID) bool {
	if !b.Accepts(requested) {
		b.logError(OpStop, fmt.Sprintf("%s is not served by %s", requested, b.bound))
		return false
	}
	return b.IsRunning()
}

// Finish ends the current run and emits its completion. Calls after the
// first for a run are ignored.
func (b *Base) Finish(succeeded bool) {
	b.mu.Lock()
	if !b.running {
		b.mu.Unlock()
		return
	}
	b.running = false
	requested := b.requested
	b.mu.Unlock()

	if succeeded {
		b.logStatus(OpComplete, fmt.Sprintf("%s passed", requested))
	} else {
		b.logError(OpComplete, fmt.Sprintf("%s failed", requested))
	}
	b.completed.Emit(Completion{Test: requested, Succeeded: succeeded})
}

// IsRunning reports whether a run is in progress.
func (b *Base) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// Requested returns the identifier of the current or last run.
func (b *Base) Requested() testid.TestID {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requested
}

// SetRunID tags subsequent health entries with id.
func (b *Base) SetRunID(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.runID = id
}

// Completed implements Test.
func (b *Base) Completed() *signal.Signal[Completion] { return &b.completed }

// Inbound is emitted for every command delivered through ReceiveCommand.
func (b *Base) Inbound() *signal.Signal[command.Command] { return &b.inbound }

// Outbound implements Test.
func (b *Base) Outbound() *signal.Signal[command.Command] { return &b.outbound }

// Telemetry implements TelemetrySource.
func (b *Base) Telemetry() *signal.Signal[telemetry.Frame] { return &b.telemetry }

// ReceiveCommand implements Test.
func (b *Base) ReceiveCommand(cmd command.Command) { b.inbound.Emit(cmd) }

// SendCommand implements Test.
func (b *Base) SendCommand(cmd command.Command) { b.outbound.Emit(cmd) }

// Publish emits payload as the next telemetry frame of the BIT subsystem.
func (b *Base) Publish(payload []byte) {
	b.mu.Lock()
	seq := b.seq.Next()
	b.mu.Unlock()

	b.telemetry.Emit(telemetry.Frame{
		Timestamp: time.Now(),
		Subsystem: health.CSCBit,
		Sequence:  seq,
		Payload:   payload,
	})
}

func (b *Base) log(entry health.Entry) {
	b.mu.Lock()
	entry.RunID = b.runID
	b.mu.Unlock()
	b.logger.Log(entry)
}

func (b *Base) logStatus(op, msg string) {
	b.log(health.Status(health.CSCBit, op, msg))
}

func (b *Base) logError(op, msg string) {
	b.log(health.Error(health.CSCBit, op, msg))
}

package bittest

import (
	"github.com/fbce-flight/bit-go/pkg/command"
	"github.com/fbce-flight/bit-go/pkg/signal"
	"github.com/fbce-flight/bit-go/pkg/telemetry"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

// Completion reports the outcome of a started test. Test carries the
// identifier the test was started with.
type Completion struct {
	Test      testid.TestID
	Succeeded bool
}

// Test is the lifecycle contract shared by every built-in test.
type Test interface {
	// Start begins the routine for the requested identifier.
	Start(requested testid.TestID)

	// Stop requests early termination.
	Stop(requested testid.TestID)

	// Completed is emitted once per accepted or rejected start.
	Completed() *signal.Signal[Completion]

	// ReceiveCommand delivers an inbound command to the test.
	ReceiveCommand(cmd command.Command)

	// SendCommand queues an outbound command; it is re-emitted on Outbound.
	SendCommand(cmd command.Command)

	// Outbound is emitted for every command the test sends.
	Outbound() *signal.Signal[command.Command]
}

// PowerOnTest is a test that runs continuously on its own thread.
type PowerOnTest interface {
	Test

	// IsRunning reports the live running state.
	IsRunning() bool

	// StartThread starts the test's own execution context. Calling it again
	// is a no-op.
	StartThread() error
}

// TelemetrySource is implemented by tests that publish telemetry while they
// run.
type TelemetrySource interface {
	Telemetry() *signal.Signal[telemetry.Frame]
}

// RunTagger is implemented by tests that tag their health entries with the
// run ID assigned by the manager.
type RunTagger interface {
	SetRunID(id string)
}

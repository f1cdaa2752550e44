package bit

import (
	"time"

	"github.com/fbce-flight/bit-go/pkg/testid"
)

// EventType identifies a manager event.
type EventType uint8

const (
	// EventTestStarted - a test was built, wired and started.
	EventTestStarted EventType = iota

	// EventTestComplete - a start request finished, successfully or not.
	// Rejected requests complete immediately with Err set.
	EventTestComplete

	// EventPBitStarted - the secondary track was started.
	EventPBitStarted

	// EventPBitStopped - a running secondary track was stopped.
	EventPBitStopped
)

// String returns the event type name.
func (t EventType) String() string {
	switch t {
	case EventTestStarted:
		return "TEST_STARTED"
	case EventTestComplete:
		return "TEST_COMPLETE"
	case EventPBitStarted:
		return "PBIT_STARTED"
	case EventPBitStopped:
		return "PBIT_STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Event is emitted by the manager on its loop.
type Event struct {
	// Type is the event type.
	Type EventType

	// Test is the identifier as requested by the caller.
	Test testid.TestID

	// Physical is the implementation that served Test (started events only).
	Physical testid.TestID

	// Succeeded is the outcome (complete events only).
	Succeeded bool

	// RunID correlates the events and health entries of one run.
	RunID string

	// Err explains a rejected request.
	Err error

	// Time is when the event was emitted.
	Time time.Time
}

// EventHandler handles manager events. Handlers run on the manager's loop
// and must not block; calling back into the manager has to happen from
// another goroutine.
type EventHandler func(Event)

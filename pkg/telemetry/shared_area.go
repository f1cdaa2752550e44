package telemetry

import (
	"fmt"
	"sync"

	"github.com/fbce-flight/bit-go/pkg/health"
)

// SharedArea holds the most recent frame of every subsystem, standing in for
// the memory region read by the downlink. It is safe for concurrent use.
type SharedArea struct {
	mu     sync.RWMutex
	latest map[health.CSC]Frame
	writes uint64
}

// NewSharedArea creates an empty SharedArea.
func NewSharedArea() *SharedArea {
	return &SharedArea{latest: make(map[health.CSC]Frame)}
}

// Write stores frame as its subsystem's latest frame. Frames whose sequence
// is not greater than the stored one are rejected with ErrStaleSequence.
func (a *SharedArea) Write(frame Frame) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if prev, ok := a.latest[frame.Subsystem]; ok && frame.Sequence <= prev.Sequence {
		return fmt.Errorf("%w: %s %d after %d", ErrStaleSequence, frame.Subsystem, frame.Sequence, prev.Sequence)
	}

	frame.Payload = append([]byte(nil), frame.Payload...)
	a.latest[frame.Subsystem] = frame
	a.writes++
	return nil
}

// Latest returns the most recent frame for subsystem.
func (a *SharedArea) Latest(subsystem health.CSC) (Frame, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	f, ok := a.latest[subsystem]
	return f, ok
}

// Snapshot returns a copy of the latest frame of every subsystem.
func (a *SharedArea) Snapshot() map[health.CSC]Frame {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[health.CSC]Frame, len(a.latest))
	for k, v := range a.latest {
		out[k] = v
	}
	return out
}

// Writes returns the number of accepted frames.
func (a *SharedArea) Writes() uint64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.writes
}

var _ Writer = (*SharedArea)(nil)

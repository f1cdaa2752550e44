package telemetry

import (
	"errors"
	"time"

	"github.com/fbce-flight/bit-go/pkg/health"
)

// ErrStaleSequence is returned when a frame's sequence does not advance the
// subsystem's last accepted sequence.
var ErrStaleSequence = errors.New("stale telemetry sequence")

// Frame is one telemetry sample.
type Frame struct {
	Timestamp time.Time  `cbor:"1,keyasint"`
	Subsystem health.CSC `cbor:"2,keyasint"`
	Sequence  uint32     `cbor:"3,keyasint"`
	Payload   []byte     `cbor:"4,keyasint,omitempty"`
}

// Writer accepts telemetry frames.
type Writer interface {
	Write(frame Frame) error
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(Frame) error

// Write calls f(frame).
func (f WriterFunc) Write(frame Frame) error { return f(frame) }

// MultiWriter writes each frame to every writer. All writers are attempted;
// their errors are joined.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a MultiWriter over the non-nil writers given.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	m := &MultiWriter{}
	for _, w := range writers {
		if w != nil {
			m.writers = append(m.writers, w)
		}
	}
	return m
}

// Write sends frame to all writers.
func (m *MultiWriter) Write(frame Frame) error {
	var errs []error
	for _, w := range m.writers {
		if err := w.Write(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Sequencer hands out increasing sequence numbers for one producer.
// The zero value starts at 1.
type Sequencer struct {
	next uint32
}

// Next returns the next sequence number.
func (s *Sequencer) Next() uint32 {
	s.next++
	return s.next
}

// Compile-time interface satisfaction checks.
var (
	_ Writer = WriterFunc(nil)
	_ Writer = (*MultiWriter)(nil)
)

package health

import (
	"fmt"
	"strings"
	"time"
)

// Severity classifies a health entry.
type Severity uint8

const (
	// SeverityStatus marks a lifecycle milestone.
	SeverityStatus Severity = 0
	// SeverityError marks a validation failure or fault.
	SeverityError Severity = 1
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case SeverityStatus:
		return "STATUS"
	case SeverityError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseSeverity converts a severity name into its value.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "STATUS":
		return SeverityStatus, nil
	case "ERROR":
		return SeverityError, nil
	default:
		return 0, fmt.Errorf("unknown severity %q", s)
	}
}

// CSC identifies the software component that produced an entry.
type CSC uint8

const (
	CSCUnknown CSC = iota
	CSCBit
	CSCCommands
	CSCSensorEffector
	CSCTelemetry
	CSCController
)

// String returns the component tag.
func (c CSC) String() string {
	switch c {
	case CSCBit:
		return "BIT"
	case CSCCommands:
		return "COMMANDS"
	case CSCSensorEffector:
		return "SENSOR_EFFECTOR"
	case CSCTelemetry:
		return "TELEMETRY"
	case CSCController:
		return "CONTROLLER"
	default:
		return "UNKNOWN"
	}
}

// ParseCSC converts a component tag into its value.
func ParseCSC(s string) (CSC, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	for c := CSCBit; c <= CSCController; c++ {
		if c.String() == name {
			return c, nil
		}
	}
	return CSCUnknown, fmt.Errorf("unknown subsystem %q", s)
}

// Entry is one health and status log record.
// CBOR encoding uses integer keys for compactness.
type Entry struct {
	// Timestamp when the entry was produced.
	Timestamp time.Time `cbor:"1,keyasint"`

	// Subsystem that produced the entry.
	Subsystem CSC `cbor:"2,keyasint"`

	// Operation is the name of the operation that produced the entry.
	Operation string `cbor:"3,keyasint"`

	// Severity of the entry.
	Severity Severity `cbor:"4,keyasint"`

	// Message is free text for operators.
	Message string `cbor:"5,keyasint,omitempty"`

	// RunID correlates entries belonging to one test execution.
	RunID string `cbor:"6,keyasint,omitempty"`
}

// Status builds a STATUS entry timestamped now.
func Status(subsystem CSC, operation, message string) Entry {
	return Entry{
		Timestamp: time.Now(),
		Subsystem: subsystem,
		Operation: operation,
		Severity:  SeverityStatus,
		Message:   message,
	}
}

// Error builds an ERROR entry timestamped now.
func Error(subsystem CSC, operation, message string) Entry {
	e := Status(subsystem, operation, message)
	e.Severity = SeverityError
	return e
}

// IsError reports whether the entry has ERROR severity.
func (e Entry) IsError() bool {
	return e.Severity == SeverityError
}

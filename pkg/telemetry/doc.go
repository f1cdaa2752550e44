// Package telemetry carries sampled data from running tests to the
// controller's telemetry sinks.
//
// A Frame is one payload tagged with the producing subsystem and a
// per-subsystem sequence number. Writers accept frames; the package provides
// an in-memory SharedArea holding the latest frame per subsystem, a
// CBOR-encoded FileWriter with a matching Reader, and a MultiWriter for
// fan-out.
package telemetry

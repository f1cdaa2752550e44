// Package bittest defines the contract every built-in test implements and
// provides the concrete implementations the controller ships with.
//
// A Test is bound to one physical identifier at construction but is started
// and stopped with the identifier the operator requested, which may be an
// alias served by the same implementation. Tests validate that identifier
// themselves: a start for a foreign identifier completes immediately as
// failed and logs an ERROR, a stop for a foreign identifier only logs.
//
// Implementations:
//
//   - Routine executes a YAML Plan of delay, command, await and probe steps.
//   - CoriolisWaterFlow samples the Coriolis flow meter and checks the mean
//     flow against configured limits.
//   - PowerOnTwo runs periodic probe rounds on its own thread until stopped.
package bittest

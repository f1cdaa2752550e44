// Package bit implements the BIT manager: the component that decides which
// built-in test runs, wires it into the command link and reports its
// lifecycle.
//
// # Tracks
//
// The primary track runs at most one test at a time. StartTest resolves the
// requested identifier through the dispatch table (see package testid),
// builds the implementation for the physical identifier, routes commands to
// it and starts it with the requested identifier. When the test completes,
// the manager re-emits the completion with that same requested identifier,
// unwires the test and returns to idle.
//
// The secondary track holds the continuous PBIT-Two test. It is resolved
// from the registry on first start, is never part of the dispatch table and
// is kept across stops so it can be restarted.
//
// # Threading
//
// All manager state is owned by one affinity loop. Public methods marshal
// their body onto that loop and wait for it to run; a caller that is already
// on the loop (it passes the context handed to loop tasks) runs inline. Test completions and inbound commands are posted to
// the loop, so the loop never blocks waiting for a test.
//
// # Reporting
//
// Health entries are emitted on an internal signal that is connected to the
// health logger, and test telemetry is routed to the telemetry writer. Both
// collaborators are optional; with neither connected, nothing is reported
// and nothing fails.
package bit

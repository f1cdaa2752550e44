package bit

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fbce-flight/bit-go/pkg/bittest"
	"github.com/fbce-flight/bit-go/pkg/command"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

// StartTest requests the test named by requested. The outcome is reported
// only through EventTestComplete; the returned error covers the call itself
// (ctx cancelled, manager closed).
func (m *Manager) StartTest(ctx context.Context, requested testid.TestID) error {
	return m.loop.Call(ctx, func(context.Context) {
		m.startTest(requested)
	})
}

// StopTest asks the active test to stop. Without an active test it does
// nothing. The identifier is forwarded unchecked; validating it is the
// test's responsibility.
func (m *Manager) StopTest(ctx context.Context, requested testid.TestID) error {
	return m.loop.Call(ctx, func(context.Context) {
		m.stopTest(requested)
	})
}

// ReceiveCommand delivers an inbound command to the active test.
// It returns immediately; delivery happens on the loop.
func (m *Manager) ReceiveCommand(cmd command.Command) {
	m.loop.Post(func(context.Context) {
		m.commandReceived.Emit(cmd)
	})
}

// SendCommand passes an outbound command to the command channel.
// It returns immediately; delivery happens on the loop.
func (m *Manager) SendCommand(cmd command.Command) {
	m.loop.Post(func(context.Context) {
		m.commandSend.Emit(cmd)
	})
}

func (m *Manager) startTest(requested testid.TestID) {
	physical, err := testid.Resolve(requested)
	if err != nil {
		m.reject(requested, err)
		return
	}
	if m.active != nil {
		m.reject(requested, fmt.Errorf("%w: %s", ErrAlreadyRunning, m.active.requested))
		return
	}
	if m.config.Factory == nil {
		m.reject(requested, ErrNoFactory)
		return
	}

	test, err := m.config.Factory.New(physical, m.config.Registry)
	if err != nil {
		m.reject(requested, err)
		return
	}

	a := &activeTest{
		test:      test,
		requested: requested,
		physical:  physical,
		runID:     uuid.New().String(),
		startedAt: m.config.Clock(),
	}
	if tagger, ok := test.(bittest.RunTagger); ok {
		tagger.SetRunID(a.runID)
	}

	m.active = a
	m.router.Attach(test)
	test.Completed().Connect(m, func(c bittest.Completion) {
		// Completions may arrive from the test's own goroutine, or from
		// inside Start below; either way they are handled after this task.
		m.loop.Post(func(context.Context) {
			m.complete(a, c)
		})
	})

	m.debugLog("starting test", "requested", requested, "physical", physical, "run", a.runID)
	m.logStatus(OpStartTest, fmt.Sprintf("starting %s as %s", requested, physical))
	m.emitEvent(Event{Type: EventTestStarted, Test: requested, Physical: physical, RunID: a.runID})

	test.Start(requested)
}

// reject completes a start request that never produced an active test.
func (m *Manager) reject(requested testid.TestID, err error) {
	m.debugLog("rejecting test", "requested", requested, "error", err)
	m.emitEvent(Event{Type: EventTestComplete, Test: requested, Succeeded: false, Err: err})
	m.logError(OpStartTest, err.Error())
}

// complete forwards the active test's completion and releases it.
func (m *Manager) complete(a *activeTest, c bittest.Completion) {
	if m.active != a {
		m.debugLog("ignoring completion of released test", "test", c.Test, "run", a.runID)
		return
	}

	m.emitEvent(Event{Type: EventTestComplete, Test: c.Test, Succeeded: c.Succeeded, RunID: a.runID})
	if c.Succeeded {
		m.logStatus(OpTestComplete, fmt.Sprintf("%s passed", c.Test))
	} else {
		m.logStatus(OpTestComplete, fmt.Sprintf("%s failed", c.Test))
	}
	m.release(a)
}

// release unwires the active test and drops it.
func (m *Manager) release(a *activeTest) {
	m.router.Detach()
	a.test.Completed().Disconnect(m)
	if m.active == a {
		m.active = nil
	}
}

func (m *Manager) stopTest(requested testid.TestID) {
	a := m.active
	if a == nil {
		return
	}
	m.logStatus(OpStopTest, fmt.Sprintf("stop %s requested", requested))
	a.test.Stop(requested)
}

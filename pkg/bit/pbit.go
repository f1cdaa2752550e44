package bit

import (
	"context"
	"fmt"

	"github.com/fbce-flight/bit-go/pkg/bittest"
	"github.com/fbce-flight/bit-go/pkg/registry"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

// PBitIsRunning reports whether the secondary track is running. It is false
// until the track has been started once.
func (m *Manager) PBitIsRunning(ctx context.Context) (bool, error) {
	var running bool
	err := m.loop.Call(ctx, func(context.Context) {
		running = m.pbitIsRunning()
	})
	return running, err
}

// PBitStart starts the secondary track, resolving it from the registry on
// first use. EventPBitStarted is emitted on every call that finds a track,
// whether or not it was already running.
//
// When no track exists and none is registered under registry.NamePBitTwoTest,
// there is nothing to start: PBitStart logs one ERROR entry and emits no
// event.
func (m *Manager) PBitStart(ctx context.Context) error {
	return m.loop.Call(ctx, func(context.Context) {
		m.pbitStart()
	})
}

// PBitStop stops the secondary track if it is running and emits
// EventPBitStopped. Otherwise it does nothing. The track is kept for a
// later restart.
func (m *Manager) PBitStop(ctx context.Context) error {
	return m.loop.Call(ctx, func(context.Context) {
		m.pbitStop()
	})
}

func (m *Manager) pbitIsRunning() bool {
	if m.pbit == nil {
		return false
	}
	return m.pbit.IsRunning()
}

func (m *Manager) pbitStart() {
	if m.pbit == nil {
		pbit, ok := registry.Lookup[bittest.PowerOnTest](m.config.Registry, registry.NamePBitTwoTest)
		if !ok {
			m.logError(OpPBitStart, "no PBIT-Two test registered")
			return
		}
		m.pbit = pbit
	}

	if err := m.pbit.StartThread(); err != nil {
		m.logError(OpPBitStart, fmt.Sprintf("start PBIT-Two thread: %v", err))
	}
	m.pbit.Start(testid.PowerOnTwo)
	m.emitEvent(Event{Type: EventPBitStarted, Test: testid.PowerOnTwo})
}

func (m *Manager) pbitStop() {
	if !m.pbitIsRunning() {
		return
	}
	m.pbit.Stop(testid.PowerOnTwo)
	m.emitEvent(Event{Type: EventPBitStopped, Test: testid.PowerOnTwo})
}

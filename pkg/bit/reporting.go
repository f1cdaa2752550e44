package bit

import (
	"context"

	"github.com/fbce-flight/bit-go/pkg/command"
	"github.com/fbce-flight/bit-go/pkg/health"
	"github.com/fbce-flight/bit-go/pkg/registry"
	"github.com/fbce-flight/bit-go/pkg/telemetry"
)

// SetLogger assigns the health logger and connects it at once. A nil
// logger disconnects the current one.
func (m *Manager) SetLogger(ctx context.Context, logger health.Logger) error {
	return m.loop.Call(ctx, func(context.Context) {
		m.healthLog.Disconnect(loggerSlot{})
		m.logger = logger
		m.connectLogger()
	})
}

// SetTelemetryWriter assigns the telemetry writer and connects it at once.
// A nil writer disconnects the current one.
func (m *Manager) SetTelemetryWriter(ctx context.Context, w telemetry.Writer) error {
	return m.loop.Call(ctx, func(context.Context) {
		m.telemetryOut.Disconnect(telemetrySlot{})
		m.telemetryWriter = w
		m.connectTelemetry()
	})
}

// StartReporting connects the manager to its collaborators. The logger and
// telemetry writer are resolved from the registry unless already assigned;
// the command channel is always resolved. Connecting is idempotent.
func (m *Manager) StartReporting(ctx context.Context) error {
	return m.loop.Call(ctx, func(context.Context) {
		m.startReporting()
	})
}

// StopReporting drops the health logger and stops the secondary track the
// same way PBitStop does.
func (m *Manager) StopReporting(ctx context.Context) error {
	return m.loop.Call(ctx, func(context.Context) {
		m.healthLog.Disconnect(loggerSlot{})
		m.logger = nil
		m.pbitStop()
	})
}

func (m *Manager) startReporting() {
	if m.logger == nil {
		m.logger, _ = registry.Lookup[health.Logger](m.config.Registry, registry.NameHealthLogger)
	}
	m.connectLogger()

	if m.telemetryWriter == nil {
		m.telemetryWriter, _ = registry.Lookup[telemetry.Writer](m.config.Registry, registry.NameTelemetryWriter)
	}
	m.connectTelemetry()

	ch, ok := registry.Lookup[command.Channel](m.config.Registry, registry.NameCommands)
	if ok {
		m.bindCommands(ch)
	} else {
		m.debugLog("no command channel registered")
	}

	m.logStatus(OpStartReporting, "reporting started")
}

func (m *Manager) connectLogger() {
	if m.logger == nil {
		return
	}
	m.healthLog.Connect(loggerSlot{}, m.logger.Log)
}

func (m *Manager) connectTelemetry() {
	w := m.telemetryWriter
	if w == nil {
		return
	}
	m.telemetryOut.Connect(telemetrySlot{}, func(f telemetry.Frame) {
		if err := w.Write(f); err != nil {
			m.debugLog("telemetry write failed", "subsystem", f.Subsystem, "seq", f.Sequence, "error", err)
		}
	})
}

// bindCommands connects the manager's command endpoints to ch, replacing a
// previously bound channel.
func (m *Manager) bindCommands(ch command.Channel) {
	if m.commands != nil && m.commands != ch {
		m.commands.Received().Disconnect(m)
		m.commandSend.Disconnect(commandsSlot{})
	}
	m.commands = ch

	ch.Received().Connect(m, m.ReceiveCommand)
	m.commandSend.Connect(commandsSlot{}, func(cmd command.Command) {
		if err := ch.Send(cmd); err != nil {
			m.debugLog("command send failed", "command", cmd.String(), "error", err)
		}
	})
}

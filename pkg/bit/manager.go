package bit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fbce-flight/bit-go/pkg/affinity"
	"github.com/fbce-flight/bit-go/pkg/bittest"
	"github.com/fbce-flight/bit-go/pkg/command"
	"github.com/fbce-flight/bit-go/pkg/health"
	"github.com/fbce-flight/bit-go/pkg/registry"
	"github.com/fbce-flight/bit-go/pkg/signal"
	"github.com/fbce-flight/bit-go/pkg/telemetry"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

// Manager errors.
var (
	// ErrAlreadyRunning rejects a start while another test is active.
	ErrAlreadyRunning = errors.New("a test is already running")

	// ErrNoFactory rejects a start when no factory is configured.
	ErrNoFactory = errors.New("no test factory configured")
)

// Operation names used in health entries written by the manager.
const (
	OpStartTest      = "StartTest"
	OpStopTest       = "StopTest"
	OpTestComplete   = "TestComplete"
	OpPBitStart      = "PBitStart"
	OpPBitStop       = "PBitStop"
	OpStartReporting = "StartReporting"
	OpStopReporting  = "StopReporting"
	OpStartThread    = "StartThread"
)

// Factory builds the implementation for a physical identifier.
// *bittest.Factory satisfies it.
type Factory interface {
	New(physical testid.TestID, r registry.Resolver) (bittest.Test, error)
}

// Config configures a Manager.
type Config struct {
	// Registry resolves collaborators that were not assigned explicitly.
	Registry registry.Resolver

	// Factory builds primary-track tests.
	Factory Factory

	// PriorityHook runs once on the manager's thread when it starts.
	PriorityHook affinity.PriorityHook

	// Clock timestamps health entries and events. Defaults to time.Now.
	Clock func() time.Time

	// Logger is the optional logger for debug output.
	Logger *slog.Logger
}

// Slot keys for connections the manager owns on its own signals.
type (
	loggerSlot    struct{}
	telemetrySlot struct{}
	commandsSlot  struct{}
)

// Manager orchestrates the primary and secondary BIT tracks.
type Manager struct {
	config Config
	loop   *affinity.Loop

	started atomic.Bool
	closed  atomic.Bool

	handlersMu    sync.RWMutex
	eventHandlers []EventHandler

	// Signals. healthLog and telemetryOut are connected to the collaborators;
	// commandReceived and commandSend are the manager's command endpoints.
	healthLog       signal.Signal[health.Entry]
	telemetryOut    signal.Signal[telemetry.Frame]
	commandReceived signal.Signal[command.Command]
	commandSend     signal.Signal[command.Command]

	router *Router

	// Loop-owned state.
	active          *activeTest
	pbit            bittest.PowerOnTest
	logger          health.Logger
	telemetryWriter telemetry.Writer
	commands        command.Channel
}

// activeTest is the Active Test Handle.
type activeTest struct {
	test      bittest.Test
	requested testid.TestID
	physical  testid.TestID
	runID     string
	startedAt time.Time
}

// New creates a manager. Operations may be issued at once; they execute
// after Start.
func New(config Config) *Manager {
	if config.Registry == nil {
		config.Registry = registry.New()
	}
	if config.Clock == nil {
		config.Clock = time.Now
	}

	m := &Manager{config: config}
	m.router = NewRouter(&m.commandReceived, m.SendCommand, &m.telemetryOut)
	m.loop = affinity.New(affinity.Config{
		Name:    "bit",
		OnStart: m.startThread,
		Logger:  config.Logger,
	})
	return m
}

// debugLog logs a debug message if a logger is configured.
func (m *Manager) debugLog(msg string, args ...any) {
	if m.config.Logger != nil {
		m.config.Logger.Debug(msg, args...)
	}
}

// Start launches the manager's loop. The thread-start hook runs before any
// queued operation.
func (m *Manager) Start(ctx context.Context) error {
	if err := m.loop.Start(ctx); err != nil {
		return err
	}
	m.started.Store(true)
	return nil
}

// Close releases the active test and the secondary track, then stops the
// loop. Operations issued afterwards fail with affinity.ErrClosed.
//
// When the loop already exited because the context passed to Start was
// cancelled, the release runs on the caller's goroutine and Close returns
// an error wrapping affinity.ErrClosed.
func (m *Manager) Close() error {
	if m.closed.Swap(true) {
		return nil
	}

	if !m.started.Load() {
		m.teardown(context.Background())
		m.loop.Stop()
		return nil
	}

	err := m.loop.Call(context.Background(), m.teardown)
	m.loop.Stop()
	if err != nil {
		// The loop has exited; nothing else touches the manager state now.
		m.teardown(context.Background())
		return fmt.Errorf("manager loop stopped before close: %w", err)
	}
	return nil
}

// Done is closed once the manager's loop has exited.
func (m *Manager) Done() <-chan struct{} {
	return m.loop.Done()
}

// teardown releases everything the manager owns. Runs on the loop.
func (m *Manager) teardown(context.Context) {
	if a := m.active; a != nil {
		m.release(a)
		a.test.Stop(a.requested)
	}
	if m.pbit != nil {
		if m.pbit.IsRunning() {
			m.pbit.Stop(testid.PowerOnTwo)
		}
		if c, ok := m.pbit.(interface{ Close() }); ok {
			c.Close()
		}
	}
}

// OnEvent registers a handler for manager events.
func (m *Manager) OnEvent(handler EventHandler) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.eventHandlers = append(m.eventHandlers, handler)
}

func (m *Manager) emitEvent(event Event) {
	event.Time = m.config.Clock()

	m.handlersMu.RLock()
	handlers := make([]EventHandler, len(m.eventHandlers))
	copy(handlers, m.eventHandlers)
	m.handlersMu.RUnlock()

	for _, handler := range handlers {
		handler(event)
	}
}

// Sync waits until every operation queued before it has executed.
func (m *Manager) Sync(ctx context.Context) error {
	return m.loop.Call(ctx, func(context.Context) {})
}

// Status is a snapshot of the manager state.
type Status struct {
	// Running is true while a primary-track test is active.
	Running bool

	// Test and Physical identify the active test.
	Test     testid.TestID
	Physical testid.TestID

	// RunID and Since describe the active run.
	RunID string
	Since time.Time

	// PBitCreated is true once the secondary track has been resolved.
	PBitCreated bool

	// PBitRunning is the secondary track's live running state.
	PBitRunning bool

	// Reporting is true while a health logger is connected.
	Reporting bool

	// CommandsBound is true while a command channel is connected.
	CommandsBound bool
}

// Status returns a snapshot of the manager state.
func (m *Manager) Status(ctx context.Context) (Status, error) {
	var st Status
	err := m.loop.Call(ctx, func(context.Context) {
		if a := m.active; a != nil {
			st.Running = true
			st.Test = a.requested
			st.Physical = a.physical
			st.RunID = a.runID
			st.Since = a.startedAt
		}
		st.PBitCreated = m.pbit != nil
		st.PBitRunning = m.pbitIsRunning()
		st.Reporting = m.healthLog.IsConnected(loggerSlot{})
		st.CommandsBound = m.commands != nil
	})
	return st, err
}

// logStatus emits a STATUS health entry. Runs on the loop.
func (m *Manager) logStatus(op, msg string) {
	m.emitHealth(health.SeverityStatus, op, msg)
}

// logError emits an ERROR health entry. Runs on the loop.
func (m *Manager) logError(op, msg string) {
	m.emitHealth(health.SeverityError, op, msg)
}

func (m *Manager) emitHealth(severity health.Severity, op, msg string) {
	entry := health.Entry{
		Timestamp: m.config.Clock(),
		Subsystem: health.CSCBit,
		Operation: op,
		Severity:  severity,
		Message:   msg,
	}
	if m.active != nil {
		entry.RunID = m.active.runID
	}
	m.healthLog.Emit(entry)
}

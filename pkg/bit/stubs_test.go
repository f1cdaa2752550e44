package bit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fbce-flight/bit-go/pkg/bittest"
	"github.com/fbce-flight/bit-go/pkg/command"
	"github.com/fbce-flight/bit-go/pkg/health"
	"github.com/fbce-flight/bit-go/pkg/registry"
	"github.com/fbce-flight/bit-go/pkg/signal"
	"github.com/fbce-flight/bit-go/pkg/telemetry"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

// stubTest is a primary-track test double. Signals are real; lifecycle
// calls go through the mock.
type stubTest struct {
	mock.Mock

	completed signal.Signal[bittest.Completion]
	outbound  signal.Signal[command.Command]
	telemetry signal.Signal[telemetry.Frame]
}

// newStubTest returns a stubTest whose Stop may be called any number of
// times, which Close does for an active test.
func newStubTest() *stubTest {
	s := &stubTest{}
	s.On("Stop", mock.Anything).Return().Maybe()
	return s
}

func (s *stubTest) Start(id testid.TestID) { s.Called(id) }
func (s *stubTest) Stop(id testid.TestID) { s.Called(id) }
func (s *stubTest) ReceiveCommand(cmd command.Command) { s.Called(cmd) }
func (s *stubTest) SendCommand(cmd command.Command) { s.outbound.Emit(cmd) }
func (s *stubTest) Completed() *signal.Signal[bittest.Completion] { return &s.completed }
func (s *stubTest) Outbound() *signal.Signal[command.Command] { return &s.outbound }
func (s *stubTest) Telemetry() *signal.Signal[telemetry.Frame] { return &s.telemetry }

// stubPBit is a secondary-track double.
type stubPBit struct {
	mock.Mock

	completed signal.Signal[bittest.Completion]
	outbound  signal.Signal[command.Command]
}

func (s *stubPBit) Start(id testid.TestID) { s.Called(id) }
func (s *stubPBit) Stop(id testid.TestID) { s.Called(id) }
func (s *stubPBit) ReceiveCommand(cmd command.Command) { s.Called(cmd) }
func (s *stubPBit) SendCommand(cmd command.Command) { s.Called(cmd) }
func (s *stubPBit) Completed() *signal.Signal[bittest.Completion] { return &s.completed }
func (s *stubPBit) Outbound() *signal.Signal[command.Command] { return &s.outbound }

func (s *stubPBit) IsRunning() bool {
	return s.Called().Bool(0)
}

func (s *stubPBit) StartThread() error {
	return s.Called().Error(0)
}

// stubFactory hands out prepared tests.
type stubFactory struct {
	mock.Mock
}

func (f *stubFactory) New(physical testid.TestID, r registry.Resolver) (bittest.Test, error) {
	args := f.Called(physical, r)
	t, _ := args.Get(0).(bittest.Test)
	return t, args.Error(1)
}

// stubWriter records telemetry writes.
type stubWriter struct {
	mock.Mock
}

func (w *stubWriter) Write(f telemetry.Frame) error {
	return w.Called(f).Error(0)
}

var (
	_ bittest.Test            = (*stubTest)(nil)
	_ bittest.TelemetrySource = (*stubTest)(nil)
	_ bittest.PowerOnTest     = (*stubPBit)(nil)
	_ Factory                 = (*stubFactory)(nil)
	_ telemetry.Writer        = (*stubWriter)(nil)
)

// fixture is a started manager with spies on its events and health log.
type fixture struct {
	m       *Manager
	reg     *registry.Registry
	factory *stubFactory
	health  *health.Recorder
	events  chan Event
}

// newFixture creates a manager; setup runs before the loop starts.
func newFixture(t *testing.T, setup func(f *fixture)) *fixture {
	t.Helper()
	f := &fixture{
		reg:     registry.New(),
		factory: &stubFactory{},
		health:  health.NewRecorder(0),
		events:  make(chan Event, 64),
	}
	f.m = New(Config{Registry: f.reg, Factory: f.factory})
	f.m.OnEvent(func(e Event) { f.events <- e })

	if setup != nil {
		setup(f)
	}

	require.NoError(t, f.m.Start(context.Background()))
	t.Cleanup(func() { _ = f.m.Close() })

	// Drop the thread-start entry, then spy on everything after it.
	require.NoError(t, f.m.Sync(context.Background()))
	f.m.healthLog.Connect("spy", f.health.Log)
	return f
}

func (f *fixture) sync(t *testing.T) {
	t.Helper()
	require.NoError(t, f.m.Sync(context.Background()))
}

// drain returns the events received so far.
func (f *fixture) drain() []Event {
	var out []Event
	for {
		select {
		case e := <-f.events:
			out = append(out, e)
		default:
			return out
		}
	}
}

func (f *fixture) waitEvent(t *testing.T, typ EventType) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-f.events:
			if e.Type == typ {
				return e
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s", typ)
			return Event{}
		}
	}
}

// onLoop runs fn on the manager's loop and waits for it.
func (f *fixture) onLoop(t *testing.T, fn func()) {
	t.Helper()
	require.NoError(t, f.m.loop.Call(context.Background(), func(context.Context) { fn() }))
}

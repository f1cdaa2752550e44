package bittest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/fbce-flight/bit-go/pkg/command"
	"github.com/fbce-flight/bit-go/pkg/health"
	"github.com/fbce-flight/bit-go/pkg/registry"
	"github.com/fbce-flight/bit-go/pkg/telemetry"
)

type stubFlowSensor struct {
	mock.Mock
}

func (s *stubFlowSensor) ReadFlow(ctx context.Context) (float64, error) {
	args := s.Called(ctx)
	return args.Get(0).(float64), args.Error(1)
}

// testEnv is a registry with a recording health logger.
type testEnv struct {
	reg    *registry.Registry
	logger *health.Recorder
}

func newTestEnv() *testEnv {
	env := &testEnv{reg: registry.New(), logger: health.NewRecorder(0)}
	env.reg.Provide(registry.NameHealthLogger, health.Logger(env.logger))
	return env
}

// spy captures the signals of a test.
type spy struct {
	completions chan Completion
	outbound    chan command.Command
	frames      chan telemetry.Frame
}

func spyOn(t Test) *spy {
	s := &spy{
		completions: make(chan Completion, 16),
		outbound:    make(chan command.Command, 64),
		frames:      make(chan telemetry.Frame, 64),
	}
	t.Completed().Connect(s, func(c Completion) { s.completions <- c })
	t.Outbound().Connect(s, func(c command.Command) { s.outbound <- c })
	if src, ok := t.(TelemetrySource); ok {
		src.Telemetry().Connect(s, func(f telemetry.Frame) { s.frames <- f })
	}
	return s
}

func (s *spy) waitCompletion(t *testing.T) Completion {
	t.Helper()
	select {
	case c := <-s.completions:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for completion")
		return Completion{}
	}
}

func (s *spy) noCompletion(t *testing.T) {
	t.Helper()
	select {
	case c := <-s.completions:
		t.Fatalf("unexpected completion %+v", c)
	default:
	}
}

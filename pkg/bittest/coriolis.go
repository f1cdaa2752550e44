package bittest

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/fbce-flight/bit-go/pkg/command"
	"github.com/fbce-flight/bit-go/pkg/registry"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

// ErrNoFlowSensor is reported when no FlowSensor is registered.
var ErrNoFlowSensor = errors.New("no flow sensor")

// FlowLimits configures the Coriolis water flow check.
type FlowLimits struct {
	// Min and Max bound the accepted mean flow, in grams per second.
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`

	// Samples is the number of readings averaged.
	Samples int `yaml:"samples"`

	// Interval separates readings.
	Interval time.Duration `yaml:"interval"`
}

// DefaultFlowLimits returns the nominal water loop limits.
func DefaultFlowLimits() FlowLimits {
	return FlowLimits{
		Min:      2.0,
		Max:      6.0,
		Samples:  10,
		Interval: 100 * time.Millisecond,
	}
}

// CoriolisWaterFlow verifies the water loop flow with the pump running.
// It implements FunctionalTest1 and its maintenance alias.
type CoriolisWaterFlow struct {
	*Base

	sensor FlowSensor
	limits FlowLimits

	mu     sync.Mutex
	cancel context.CancelFunc
	seq    uint32
}

// NewCoriolisWaterFlow creates the test. The flow sensor and health logger
// are resolved from r.
func NewCoriolisWaterFlow(r registry.Resolver, limits FlowLimits) *CoriolisWaterFlow {
	if limits.Samples <= 0 {
		limits.Samples = 1
	}
	sensor, _ := registry.Lookup[FlowSensor](r, registry.NameFlowSensor)
	return &CoriolisWaterFlow{
		Base:   NewBase(testid.FunctionalTest1, r),
		sensor: sensor,
		limits: limits,
	}
}

// CoriolisConstructor returns a Constructor for FunctionalTest1.
func CoriolisConstructor(limits FlowLimits) Constructor {
	return func(physical testid.TestID, r registry.Resolver) (Test, error) {
		if physical != testid.FunctionalTest1 {
			return nil, fmt.Errorf("coriolis water flow cannot serve %s", physical)
		}
		return NewCoriolisWaterFlow(r, limits), nil
	}
}

// Sensor returns the flow sensor resolved at construction.
func (c *CoriolisWaterFlow) Sensor() FlowSensor { return c.sensor }

// Start implements Test.
func (c *CoriolisWaterFlow) Start(requested testid.TestID) {
	if !c.Begin(requested) {
		return
	}
	if c.sensor == nil {
		c.logError(OpStart, ErrNoFlowSensor.Error())
		c.Finish(false)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.mu.Lock()
	c.cancel = cancel
	c.mu.Unlock()

	go c.run(ctx, cancel)
}

// Stop implements Test.
func (c *CoriolisWaterFlow) Stop(requested testid.TestID) {
	if !c.CheckStop(requested) {
		return
	}
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (c *CoriolisWaterFlow) run(ctx context.Context, cancel context.CancelFunc) {
	defer cancel()

	c.send(command.CodePumpOn)
	mean, err := c.sample(ctx)
	c.send(command.CodePumpOff)

	if err != nil {
		c.logError(OpStep, fmt.Sprintf("flow sampling: %v", err))
		c.Finish(false)
		return
	}
	if mean < c.limits.Min || mean > c.limits.Max {
		c.logError(OpStep, fmt.Sprintf("mean flow %.3f g/s outside [%.3f, %.3f]", mean, c.limits.Min, c.limits.Max))
		c.Finish(false)
		return
	}
	c.Finish(true)
}

func (c *CoriolisWaterFlow) sample(ctx context.Context) (float64, error) {
	var sum float64
	for i := 0; i < c.limits.Samples; i++ {
		if i > 0 && c.limits.Interval > 0 {
			t := time.NewTimer(c.limits.Interval)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return 0, ctx.Err()
			}
		}

		flow, err := c.sensor.ReadFlow(ctx)
		if err != nil {
			return 0, err
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		c.Publish(EncodeFlowSample(flow))
		sum += flow
	}
	return sum / float64(c.limits.Samples), nil
}

func (c *CoriolisWaterFlow) send(code command.Code) {
	c.mu.Lock()
	c.seq++
	seq := c.seq
	c.mu.Unlock()
	c.SendCommand(command.Command{Code: code, Sequence: seq})
}

// EncodeFlowSample encodes a flow reading as a big-endian IEEE 754 double.
func EncodeFlowSample(flow float64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], math.Float64bits(flow))
	return buf[:]
}

// DecodeFlowSample reverses EncodeFlowSample.
func DecodeFlowSample(payload []byte) (float64, error) {
	if len(payload) != 8 {
		return 0, fmt.Errorf("flow sample must be 8 bytes, got %d", len(payload))
	}
	return math.Float64frombits(binary.BigEndian.Uint64(payload)), nil
}

var (
	_ Test            = (*CoriolisWaterFlow)(nil)
	_ TelemetrySource = (*CoriolisWaterFlow)(nil)
)

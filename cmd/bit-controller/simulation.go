package main

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/fbce-flight/bit-go/pkg/command"
)

// simulatedFlow is a Coriolis flow sensor fed by the pump commands the
// controller sends. It reads zero while the pump is off.
type simulatedFlow struct {
	mu      sync.Mutex
	nominal float64
	jitter  float64
	pumpOn  bool
}

func newSimulatedFlow(nominal float64) *simulatedFlow {
	return &simulatedFlow{nominal: nominal, jitter: 0.1}
}

// ReadFlow implements bittest.FlowSensor.
func (s *simulatedFlow) ReadFlow(ctx context.Context) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.pumpOn {
		return 0, nil
	}
	return s.nominal + s.jitter*(rand.Float64()*2-1), nil
}

// Nominal returns the reading produced with the pump on.
func (s *simulatedFlow) Nominal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nominal
}

// SetNominal changes the reading produced with the pump on.
func (s *simulatedFlow) SetNominal(flow float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nominal = flow
}

// PumpOn reports the simulated pump state.
func (s *simulatedFlow) PumpOn() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pumpOn
}

// observe tracks the pump state from outbound commands.
func (s *simulatedFlow) observe(cmd command.Command) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch cmd.Code {
	case command.CodePumpOn:
		s.pumpOn = true
	case command.CodePumpOff:
		s.pumpOn = false
	}
}

// tapChannel passes every outbound command to tap before the link.
type tapChannel struct {
	command.Channel
	tap func(command.Command)
}

// Send implements command.Channel.
func (c *tapChannel) Send(cmd command.Command) error {
	c.tap(cmd)
	return c.Channel.Send(cmd)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/fbce-flight/bit-go/pkg/affinity"
	"github.com/fbce-flight/bit-go/pkg/bit"
	"github.com/fbce-flight/bit-go/pkg/bittest"
	"github.com/fbce-flight/bit-go/pkg/command"
	"github.com/fbce-flight/bit-go/pkg/health"
	"github.com/fbce-flight/bit-go/pkg/registry"
	"github.com/fbce-flight/bit-go/pkg/telemetry"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

// recentEntries bounds the in-memory health log kept for the console.
const recentEntries = 500

// controller owns every component bit-controller wires together.
type controller struct {
	cfg    Config
	logger *slog.Logger

	reg     *registry.Registry
	factory *bittest.Factory
	plans   map[testid.TestID]*bittest.Plan

	recent     *health.Recorder
	healthFile *health.FileLogger

	area    *telemetry.SharedArea
	tlmFile *telemetry.FileWriter

	hub  *command.Hub
	flow *simulatedFlow
	pbit *bittest.PowerOnTwo

	manager *bit.Manager

	stopServe context.CancelFunc
	serveWG   sync.WaitGroup
}

// newController builds the component graph. Nothing runs until start.
func newController(cfg Config, logger *slog.Logger) (*controller, error) {
	c := &controller{
		cfg:    cfg,
		logger: logger,
		reg:    registry.New(),
		recent: health.NewRecorder(recentEntries),
		area:   telemetry.NewSharedArea(),
		flow:   newSimulatedFlow(cfg.NominalFlow),
	}

	// Health sinks
	loggers := []health.Logger{c.recent, health.NewSlogAdapter(logger)}
	if cfg.HealthLog != "" {
		fl, err := health.NewFileLogger(cfg.HealthLog)
		if err != nil {
			return nil, fmt.Errorf("open health log: %w", err)
		}
		c.healthFile = fl
		loggers = append(loggers, fl)
	}
	c.reg.Provide(registry.NameHealthLogger, health.Logger(health.NewMultiLogger(loggers...)))

	// Telemetry sinks
	writers := []telemetry.Writer{c.area}
	if cfg.TelemetryLog != "" {
		fw, err := telemetry.NewFileWriter(cfg.TelemetryLog)
		if err != nil {
			c.closeFiles()
			return nil, fmt.Errorf("open telemetry log: %w", err)
		}
		c.tlmFile = fw
		writers = append(writers, fw)
	}
	c.reg.Provide(registry.NameTelemetryWriter, telemetry.Writer(telemetry.NewMultiWriter(writers...)))

	// Command link
	c.hub = command.NewHub(command.HubConfig{Logger: logger})
	c.reg.Provide(registry.NameCommands, command.Channel(&tapChannel{Channel: c.hub, tap: c.flow.observe}))
	c.reg.Provide(registry.NameFlowSensor, bittest.FlowSensor(c.flow))

	// PBIT-Two probes
	probes := bittest.NewProbes()
	probes.Add("flow-sensor", bittest.ProbeFunc(c.probeFlow))
	probes.Add("command-link", bittest.ProbeFunc(c.probeLink))
	c.reg.Provide(registry.NameProbes, probes)

	c.pbit = bittest.NewPowerOnTwo(c.reg, bittest.PowerOnTwoConfig{
		Interval: cfg.ProbeInterval,
		Logger:   logger,
	})
	c.reg.Provide(registry.NamePBitTwoTest, bittest.PowerOnTest(c.pbit))

	// Primary-track implementations
	c.factory = bittest.NewFactory()
	if cfg.PlansDir != "" {
		plans, err := bittest.LoadPlanDirectory(cfg.PlansDir)
		if err != nil {
			c.closeFiles()
			return nil, fmt.Errorf("load plans: %w", err)
		}
		c.plans = plans
		c.factory.SetFallback(bittest.RoutineConstructor(plans))
	}
	c.factory.Register(testid.FunctionalTest1, bittest.CoriolisConstructor(cfg.Flow))

	var hook affinity.PriorityHook
	if cfg.Nice != 0 {
		hook = affinity.NicePriority(cfg.Nice)
	}
	c.manager = bit.New(bit.Config{
		Registry:     c.reg,
		Factory:      c.factory,
		PriorityHook: hook,
		Logger:       logger,
	})
	c.manager.OnEvent(c.handleEvent)
	return c, nil
}

// bound reports whether a physical test has an implementation.
func (c *controller) bound(physical testid.TestID) bool {
	if physical == testid.FunctionalTest1 {
		return true
	}
	_, ok := c.plans[physical]
	return ok
}

// start launches the manager, connects reporting and opens the command
// link on ln when it is non-nil. Cancelling ctx closes the link; the manager
// keeps running until close.
func (c *controller) start(ctx context.Context, ln net.Listener) error {
	if err := c.manager.Start(context.WithoutCancel(ctx)); err != nil {
		return fmt.Errorf("start manager: %w", err)
	}
	if err := c.manager.StartReporting(ctx); err != nil {
		return fmt.Errorf("start reporting: %w", err)
	}

	if ln != nil {
		serveCtx, cancel := context.WithCancel(ctx)
		c.stopServe = cancel
		c.serveWG.Add(1)
		go func() {
			defer c.serveWG.Done()
			if err := c.hub.Serve(serveCtx, ln); err != nil {
				c.logger.Error("command link stopped", "error", err)
			}
		}()
	}

	if c.cfg.PBit {
		if err := c.manager.PBitStart(ctx); err != nil {
			return fmt.Errorf("start PBIT-Two: %w", err)
		}
	}
	return nil
}

// close stops every component. The manager goes first so nothing is
// reported into closed sinks.
func (c *controller) close() error {
	var errs []error
	if err := c.manager.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.stopServe != nil {
		c.stopServe()
	}
	c.serveWG.Wait()
	if err := c.hub.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := c.closeFiles(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (c *controller) closeFiles() error {
	var errs []error
	if c.healthFile != nil {
		errs = append(errs, c.healthFile.Close())
	}
	if c.tlmFile != nil {
		errs = append(errs, c.tlmFile.Close())
	}
	return errors.Join(errs...)
}

// probeFlow checks that the flow sensor answers and, with the pump on,
// reads inside twice the accepted band.
func (c *controller) probeFlow(ctx context.Context) error {
	flow, err := c.flow.ReadFlow(ctx)
	if err != nil {
		return err
	}
	if c.flow.PumpOn() && (flow < 0 || flow > 2*c.cfg.Flow.Max) {
		return fmt.Errorf("flow %.2f g/s implausible", flow)
	}
	return nil
}

// probeLink checks that a ground station is attached to the command link.
func (c *controller) probeLink(context.Context) error {
	if c.cfg.Listen == "" {
		return nil
	}
	if c.hub.StreamCount() == 0 {
		return errors.New("no ground station attached")
	}
	return nil
}

// handleEvent logs manager events.
func (c *controller) handleEvent(e bit.Event) {
	switch e.Type {
	case bit.EventTestComplete:
		if e.Err != nil {
			c.logger.Warn("test rejected", "test", e.Test, "error", e.Err)
			return
		}
		c.logger.Info("test complete", "test", e.Test, "passed", e.Succeeded, "run", e.RunID)
	case bit.EventTestStarted:
		c.logger.Info("test started", "test", e.Test, "physical", e.Physical, "run", e.RunID)
	default:
		c.logger.Info("manager event", "event", e.Type)
	}
}

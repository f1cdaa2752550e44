// Package interactive provides the operator console for bit-controller.
package interactive

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"

	"github.com/fbce-flight/bit-go/pkg/bit"
	"github.com/fbce-flight/bit-go/pkg/health"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

// Manager is the part of the BIT manager the console drives.
// *bit.Manager satisfies it.
type Manager interface {
	StartTest(ctx context.Context, requested testid.TestID) error
	StopTest(ctx context.Context, requested testid.TestID) error
	PBitStart(ctx context.Context) error
	PBitStop(ctx context.Context) error
	Status(ctx context.Context) (bit.Status, error)
	OnEvent(handler bit.EventHandler)
}

// FlowControl adjusts the simulated flow sensor.
type FlowControl interface {
	Nominal() float64
	SetNominal(flow float64)
}

// Config configures a Console.
type Config struct {
	// Manager receives the operator's requests.
	Manager Manager

	// Health holds recent health entries for the log command. Optional.
	Health *health.Recorder

	// Bound reports whether a physical test has an implementation. Optional.
	Bound func(physical testid.TestID) bool

	// Flow adjusts the simulated flow sensor. Optional.
	Flow FlowControl
}

// Console handles interactive mode for bit-controller.
type Console struct {
	config Config
	rl     *readline.Instance
	out    io.Writer
}

// New creates a console reading from the terminal.
func New(config Config) (*Console, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "bit> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	c := newConsole(config, rl.Stdout())
	c.rl = rl
	return c, nil
}

func newConsole(config Config, out io.Writer) *Console {
	c := &Console{config: config, out: out}
	config.Manager.OnEvent(c.handleEvent)
	return c
}

// Stdout returns a writer that coordinates with the readline prompt.
// Use it for log output to avoid clobbering the input line.
func (c *Console) Stdout() io.Writer {
	return c.out
}

// Run starts the interactive command loop.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) {
	defer c.rl.Close()

	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := c.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}

		if !c.execute(ctx, line) {
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return
		}
	}
}

// execute runs one command line. It returns false when the operator quits.
func (c *Console) execute(ctx context.Context, line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return true
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		c.printHelp()

	case "start", "s":
		c.cmdStart(ctx, args)

	case "stop":
		c.cmdStop(ctx, args)

	case "pbit", "p":
		c.cmdPBit(ctx, args)

	case "status", "st":
		c.cmdStatus(ctx)

	case "log", "l":
		c.cmdLog(args)

	case "tests", "t":
		c.cmdTests()

	case "flow":
		c.cmdFlow(args)

	case "quit", "exit", "q":
		return false

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return true
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
BIT Controller Commands:
  Primary track:
    start <test>       - Start a test (e.g. MBIT-1, ftest-2, IBIT3)
    stop <test>        - Ask the running test to stop
    tests              - List requestable tests and their implementations

  PBIT-Two:
    pbit start         - Start the continuous power-on test
    pbit stop          - Stop it
    pbit status        - Show whether it is running

  Diagnostics:
    status             - Show manager status
    log [n]            - Show the last n health entries (default 10)
    flow [g/s]         - Show or set the simulated nominal flow

  General:
    help               - Show this help
    quit               - Exit`)
}

func (c *Console) parseTest(args []string, usage string) (testid.TestID, bool) {
	if len(args) < 1 {
		fmt.Fprintf(c.out, "Usage: %s\n", usage)
		return testid.NoTest, false
	}
	id, err := testid.Parse(args[0])
	if err != nil {
		fmt.Fprintf(c.out, "Invalid test: %v\n", err)
		return testid.NoTest, false
	}
	return id, true
}

// cmdStart handles the start command. The outcome arrives as an event.
func (c *Console) cmdStart(ctx context.Context, args []string) {
	id, ok := c.parseTest(args, "start <test>")
	if !ok {
		return
	}
	if err := c.config.Manager.StartTest(ctx, id); err != nil {
		fmt.Fprintf(c.out, "Start failed: %v\n", err)
	}
}

// cmdStop handles the stop command.
func (c *Console) cmdStop(ctx context.Context, args []string) {
	id, ok := c.parseTest(args, "stop <test>")
	if !ok {
		return
	}
	if err := c.config.Manager.StopTest(ctx, id); err != nil {
		fmt.Fprintf(c.out, "Stop failed: %v\n", err)
		return
	}
	fmt.Fprintf(c.out, "Stop requested for %s\n", id)
}

// cmdPBit handles the pbit subcommands.
func (c *Console) cmdPBit(ctx context.Context, args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.out, "Usage: pbit start|stop|status")
		return
	}

	var err error
	switch strings.ToLower(args[0]) {
	case "start":
		err = c.config.Manager.PBitStart(ctx)
	case "stop":
		err = c.config.Manager.PBitStop(ctx)
	case "status":
		st, serr := c.config.Manager.Status(ctx)
		if serr != nil {
			err = serr
			break
		}
		state := "stopped"
		if st.PBitRunning {
			state = "running"
		} else if !st.PBitCreated {
			state = "not started"
		}
		fmt.Fprintf(c.out, "PBIT-Two: %s\n", state)
	default:
		fmt.Fprintf(c.out, "Unknown pbit command: %s\n", args[0])
		return
	}
	if err != nil {
		fmt.Fprintf(c.out, "pbit %s failed: %v\n", args[0], err)
	}
}

// cmdStatus shows the manager status.
func (c *Console) cmdStatus(ctx context.Context) {
	st, err := c.config.Manager.Status(ctx)
	if err != nil {
		fmt.Fprintf(c.out, "Status failed: %v\n", err)
		return
	}

	fmt.Fprintln(c.out, "\nBIT Status")
	fmt.Fprintln(c.out, "-------------------------------------------")
	if st.Running {
		fmt.Fprintf(c.out, "  Active test:    %s (as %s)\n", st.Test, st.Physical)
		fmt.Fprintf(c.out, "  Run:            %s\n", st.RunID)
		fmt.Fprintf(c.out, "  Running for:    %s\n", time.Since(st.Since).Round(time.Millisecond))
	} else {
		fmt.Fprintln(c.out, "  Active test:    none")
	}
	fmt.Fprintf(c.out, "  PBIT-Two:       %s\n", onOff(st.PBitRunning))
	fmt.Fprintf(c.out, "  Reporting:      %s\n", onOff(st.Reporting))
	fmt.Fprintf(c.out, "  Command link:   %s\n", onOff(st.CommandsBound))
	if c.config.Flow != nil {
		fmt.Fprintf(c.out, "  Nominal flow:   %.2f g/s\n", c.config.Flow.Nominal())
	}
	fmt.Fprintln(c.out)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// cmdLog prints the most recent health entries.
func (c *Console) cmdLog(args []string) {
	if c.config.Health == nil {
		fmt.Fprintln(c.out, "Health log not available")
		return
	}

	n := 10
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v <= 0 {
			fmt.Fprintf(c.out, "Invalid count: %s\n", args[0])
			return
		}
		n = v
	}

	entries := c.config.Health.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(c.out, "No health entries")
		return
	}
	if len(entries) > n {
		entries = entries[len(entries)-n:]
	}
	for _, e := range entries {
		fmt.Fprintf(c.out, "  %s %-8s %-6s %-14s %s\n",
			e.Timestamp.Format("15:04:05.000"), e.Subsystem, e.Severity, e.Operation, e.Message)
	}
}

// cmdTests lists the requestable tests.
func (c *Console) cmdTests() {
	fmt.Fprintln(c.out, "\nRequestable tests:")
	for _, id := range testid.Requestable() {
		physical, _ := testid.Resolve(id)

		line := fmt.Sprintf("  %-9s", id)
		if physical != id {
			line += fmt.Sprintf(" -> %-9s", physical)
		} else {
			line += strings.Repeat(" ", 13)
		}
		if c.config.Bound != nil && !c.config.Bound(physical) {
			line += " (no implementation)"
		}
		fmt.Fprintln(c.out, line)
	}
}

// cmdFlow shows or sets the simulated nominal flow.
func (c *Console) cmdFlow(args []string) {
	if c.config.Flow == nil {
		fmt.Fprintln(c.out, "No simulated flow sensor")
		return
	}
	if len(args) == 0 {
		fmt.Fprintf(c.out, "Nominal flow: %.2f g/s\n", c.config.Flow.Nominal())
		return
	}

	v, err := strconv.ParseFloat(args[0], 64)
	if err != nil || v < 0 {
		fmt.Fprintf(c.out, "Invalid flow value: %s\n", args[0])
		return
	}
	c.config.Flow.SetNominal(v)
	fmt.Fprintf(c.out, "Nominal flow set to %.2f g/s\n", v)
}

// handleEvent prints manager events. It runs on the manager's loop and
// must not call back into the manager.
func (c *Console) handleEvent(e bit.Event) {
	switch e.Type {
	case bit.EventTestStarted:
		fmt.Fprintf(c.out, "[%s] %s started (as %s)\n", e.Time.Format("15:04:05"), e.Test, e.Physical)
	case bit.EventTestComplete:
		result := "PASSED"
		if !e.Succeeded {
			result = "FAILED"
		}
		if e.Err != nil {
			fmt.Fprintf(c.out, "[%s] %s %s: %v\n", e.Time.Format("15:04:05"), e.Test, result, e.Err)
			return
		}
		fmt.Fprintf(c.out, "[%s] %s %s\n", e.Time.Format("15:04:05"), e.Test, result)
	case bit.EventPBitStarted, bit.EventPBitStopped:
		fmt.Fprintf(c.out, "[%s] %s\n", e.Time.Format("15:04:05"), e.Type)
	}
}

// Command bit-controller runs the built-in test orchestration core.
//
// It wires the BIT manager to its collaborators:
//   - Health log (slog, optional CBOR file, in-memory ring for the console)
//   - Telemetry (shared area, optional CBOR file)
//   - Command link (length-prefixed CBOR over TCP)
//   - PBIT-Two with flow-sensor and command-link probes
//   - The Coriolis water flow test and plan-driven routines
//
// Usage:
//
//	bit-controller [flags]
//
// Flags:
//
//	-config string          Configuration file path (YAML)
//	-log-level string       Log level: debug, info, warn, error (default "info")
//	-health-log string      Append health entries to this file (CBOR)
//	-telemetry-log string   Append telemetry frames to this file (CBOR)
//	-listen string          Command link listen address (default ":7400")
//	-plans string           Directory of BIT procedure plans (YAML)
//	-probe-interval dur     PBIT-Two probe interval (default 1s)
//	-nice int               Nice value for the manager thread
//	-pbit                   Start PBIT-Two at startup
//	-interactive            Run the operator console
//	-flow float             Simulated nominal flow in g/s (default 4)
//
// Examples:
//
//	# Run with plans and a persistent health log
//	bit-controller -plans /etc/bit/plans -health-log /var/log/bit/health.hlog
//
//	# Operator console with PBIT-Two running
//	bit-controller -interactive -pbit -log-level debug
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/fbce-flight/bit-go/cmd/bit-controller/interactive"
)

func main() {
	cfg, err := parseConfig(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		log.Fatalf("Invalid configuration: %v", err)
	}

	log.SetFlags(log.Ltime | log.Lmicroseconds)
	log.Println("BIT Controller")
	log.Println("==============")
	if cfg.ConfigFile != "" {
		log.Printf("Config: %s", cfg.ConfigFile)
	}
	log.Printf("Command link: %s", displayAddr(cfg.Listen))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sink := newLogSink(os.Stderr)
	ctrl, err := newController(cfg, newLogger(cfg.LogLevel, sink))
	if err != nil {
		log.Fatalf("Failed to create controller: %v", err)
	}

	var console *interactive.Console
	if cfg.Interactive {
		console, err = interactive.New(interactive.Config{
			Manager: ctrl.manager,
			Health:  ctrl.recent,
			Bound:   ctrl.bound,
			Flow:    ctrl.flow,
		})
		if err != nil {
			log.Fatalf("Failed to start console: %v", err)
		}
		sink.set(console.Stdout())
		log.SetOutput(console.Stdout())
	}

	var ln net.Listener
	if cfg.Listen != "" {
		ln, err = net.Listen("tcp", cfg.Listen)
		if err != nil {
			log.Fatalf("Failed to listen on %s: %v", cfg.Listen, err)
		}
	}

	if err := ctrl.start(ctx, ln); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}
	log.Println("Controller started")

	if console != nil {
		go console.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigCh:
		log.Printf("Received signal: %v", sig)
	case <-ctx.Done():
	}

	log.Println("Shutting down...")
	if err := ctrl.close(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}
	log.Println("Goodbye!")
}

// logSink is a log destination that can be redirected after loggers have
// been handed out.
type logSink struct {
	w atomic.Pointer[io.Writer]
}

func newLogSink(w io.Writer) *logSink {
	s := &logSink{}
	s.set(w)
	return s
}

func (s *logSink) set(w io.Writer) {
	s.w.Store(&w)
}

func (s *logSink) Write(p []byte) (int, error) {
	return (*s.w.Load()).Write(p)
}

func newLogger(level string, w io.Writer) *slog.Logger {
	lvl, _ := parseLevel(level)
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

func displayAddr(addr string) string {
	if addr == "" {
		return "disabled"
	}
	return addr
}

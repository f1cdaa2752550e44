package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fbce-flight/bit-go/pkg/bittest"
)

// Config holds the controller configuration.
type Config struct {
	ConfigFile string `yaml:"-"`

	LogLevel     string `yaml:"log_level"`
	HealthLog    string `yaml:"health_log"`
	TelemetryLog string `yaml:"telemetry_log"`
	Listen       string `yaml:"listen"`
	PlansDir     string `yaml:"plans_dir"`

	// ProbeInterval separates PBIT-Two probe rounds.
	ProbeInterval time.Duration `yaml:"probe_interval"`

	// Nice is applied to the manager thread at start. Zero leaves the
	// priority unchanged.
	Nice int `yaml:"nice"`

	// PBit starts PBIT-Two once reporting is up.
	PBit bool `yaml:"pbit"`

	Interactive bool `yaml:"interactive"`

	Flow bittest.FlowLimits `yaml:"flow"`

	// NominalFlow is the simulated sensor reading with the pump on.
	NominalFlow float64 `yaml:"nominal_flow"`
}

// defaultConfig returns the built-in configuration.
func defaultConfig() Config {
	return Config{
		LogLevel:      "info",
		Listen:        ":7400",
		ProbeInterval: bittest.DefaultProbeInterval,
		Flow:          bittest.DefaultFlowLimits(),
		NominalFlow:   4.0,
	}
}

// loadConfigFile overlays the YAML file at path onto cfg. Keys absent from
// the file keep their current values.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// parseConfig builds the configuration from defaults, the optional config
// file and the command line, in increasing precedence.
func parseConfig(args []string) (Config, error) {
	cfg := defaultConfig()

	fs := flag.NewFlagSet("bit-controller", flag.ContinueOnError)
	var flags Config
	fs.StringVar(&flags.ConfigFile, "config", "", "Configuration file path (YAML)")
	fs.StringVar(&flags.LogLevel, "log-level", cfg.LogLevel, "Log level: debug, info, warn, error")
	fs.StringVar(&flags.HealthLog, "health-log", "", "Append health entries to this file (CBOR)")
	fs.StringVar(&flags.TelemetryLog, "telemetry-log", "", "Append telemetry frames to this file (CBOR)")
	fs.StringVar(&flags.Listen, "listen", cfg.Listen, "Command link listen address (empty disables)")
	fs.StringVar(&flags.PlansDir, "plans", "", "Directory of BIT procedure plans (YAML)")
	fs.DurationVar(&flags.ProbeInterval, "probe-interval", cfg.ProbeInterval, "PBIT-Two probe interval")
	fs.IntVar(&flags.Nice, "nice", 0, "Nice value for the manager thread (-20..19)")
	fs.BoolVar(&flags.PBit, "pbit", false, "Start PBIT-Two at startup")
	fs.BoolVar(&flags.Interactive, "interactive", false, "Run the operator console")
	fs.Float64Var(&flags.NominalFlow, "flow", cfg.NominalFlow, "Simulated nominal flow in g/s")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if flags.ConfigFile != "" {
		if err := loadConfigFile(flags.ConfigFile, &cfg); err != nil {
			return Config{}, err
		}
		cfg.ConfigFile = flags.ConfigFile
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "log-level":
			cfg.LogLevel = flags.LogLevel
		case "health-log":
			cfg.HealthLog = flags.HealthLog
		case "telemetry-log":
			cfg.TelemetryLog = flags.TelemetryLog
		case "listen":
			cfg.Listen = flags.Listen
		case "plans":
			cfg.PlansDir = flags.PlansDir
		case "probe-interval":
			cfg.ProbeInterval = flags.ProbeInterval
		case "nice":
			cfg.Nice = flags.Nice
		case "pbit":
			cfg.PBit = flags.PBit
		case "interactive":
			cfg.Interactive = flags.Interactive
		case "flow":
			cfg.NominalFlow = flags.NominalFlow
		}
	})

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var errs []error

	if _, err := parseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if cfg.Listen != "" {
		if _, _, err := net.SplitHostPort(cfg.Listen); err != nil {
			errs = append(errs, fmt.Errorf("listen address %q: %w", cfg.Listen, err))
		}
	}
	if cfg.ProbeInterval <= 0 {
		errs = append(errs, fmt.Errorf("probe interval must be positive, got %s", cfg.ProbeInterval))
	}
	if cfg.Nice < -20 || cfg.Nice > 19 {
		errs = append(errs, fmt.Errorf("nice must be -20..19, got %d", cfg.Nice))
	}
	if cfg.Flow.Min > cfg.Flow.Max {
		errs = append(errs, fmt.Errorf("flow limits inverted: min %.2f > max %.2f", cfg.Flow.Min, cfg.Flow.Max))
	}
	if cfg.Flow.Samples <= 0 {
		errs = append(errs, fmt.Errorf("flow samples must be positive, got %d", cfg.Flow.Samples))
	}
	if cfg.NominalFlow < 0 {
		errs = append(errs, fmt.Errorf("nominal flow must not be negative, got %.2f", cfg.NominalFlow))
	}
	return errors.Join(errs...)
}

func parseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", level)
	}
}

package bittest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fbce-flight/bit-go/pkg/command"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

// ErrNoPlan is returned when a plan-driven test has no plan for its
// identifier.
var ErrNoPlan = errors.New("no plan for test")

// Step actions.
const (
	ActionDelay   = "delay"
	ActionCommand = "command"
	ActionAwait   = "await"
	ActionProbe   = "probe"
)

// DefaultAwaitTimeout bounds an await step without its own timeout.
const DefaultAwaitTimeout = 5 * time.Second

// Plan is a BIT procedure loaded from YAML.
type Plan struct {
	// Test is the physical identifier the plan implements.
	Test testid.TestID `yaml:"test"`

	// Name is a short title.
	Name string `yaml:"name"`

	// Description explains what the procedure verifies.
	Description string `yaml:"description,omitempty"`

	// Timeout bounds the whole procedure (e.g. "30s"). Empty means no bound.
	Timeout string `yaml:"timeout,omitempty"`

	// Steps run in order; the first failing step fails the test.
	Steps []Step `yaml:"steps"`

	timeout time.Duration
}

// Step is one action of a plan.
type Step struct {
	// Action is one of delay, command, await or probe.
	Action string `yaml:"action"`

	// Duration is the delay length.
	Duration string `yaml:"duration,omitempty"`

	// Code is the command code to send or await, by name or number.
	Code string `yaml:"code,omitempty"`

	// Payload is the hex-encoded command payload.
	Payload string `yaml:"payload,omitempty"`

	// Probe names the probe to run.
	Probe string `yaml:"probe,omitempty"`

	// Timeout bounds an await step.
	Timeout string `yaml:"timeout,omitempty"`

	// Description explains what this step does.
	Description string `yaml:"description,omitempty"`

	duration time.Duration
	code     command.Code
	payload  []byte
}

// PlanError provides details about a plan loading error.
type PlanError struct {
	// File is the path of the plan, empty when parsed from bytes.
	File string

	// Message describes the error.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

func (e *PlanError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.File == "" {
		return msg
	}
	return e.File + ": " + msg
}

func (e *PlanError) Unwrap() error {
	return e.Cause
}

// ParsePlan parses and validates a plan from YAML bytes.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, &PlanError{Message: "failed to parse YAML", Cause: err}
	}
	if err := p.compile(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Plan) compile() error {
	if !p.Test.Valid() || p.Test == testid.NoTest {
		return &PlanError{Message: "plan test identifier is required"}
	}
	if len(p.Steps) == 0 {
		return &PlanError{Message: "plan must have at least one step"}
	}

	var err error
	if p.timeout, err = parseDuration(p.Timeout); err != nil {
		return &PlanError{Message: "invalid plan timeout", Cause: err}
	}

	for i := range p.Steps {
		if err := p.Steps[i].compile(); err != nil {
			return &PlanError{Message: fmt.Sprintf("step %d", i+1), Cause: err}
		}
	}
	return nil
}

func (s *Step) compile() error {
	var err error
	switch s.Action {
	case ActionDelay:
		if s.duration, err = parseDuration(s.Duration); err != nil {
			return err
		}
		if s.duration <= 0 {
			return errors.New("delay requires a positive duration")
		}

	case ActionCommand, ActionAwait:
		if s.code, err = command.ParseCode(s.Code); err != nil {
			return err
		}
		if s.Action == ActionCommand && s.Payload != "" {
			if s.payload, err = hex.DecodeString(s.Payload); err != nil {
				return fmt.Errorf("payload: %w", err)
			}
		}
		if s.Action == ActionAwait {
			if s.duration, err = parseDuration(s.Timeout); err != nil {
				return err
			}
			if s.duration == 0 {
				s.duration = DefaultAwaitTimeout
			}
		}

	case ActionProbe:
		if s.Probe == "" {
			return errors.New("probe step requires a probe name")
		}

	default:
		return fmt.Errorf("unknown action %q", s.Action)
	}
	return nil
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d < 0 {
		return 0, fmt.Errorf("negative duration %q", s)
	}
	return d, nil
}

// LoadPlan loads a plan from a file.
func LoadPlan(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &PlanError{File: path, Message: "failed to read file", Cause: err}
	}

	p, err := ParsePlan(data)
	if err != nil {
		var pe *PlanError
		if errors.As(err, &pe) {
			pe.File = path
			return nil, pe
		}
		return nil, &PlanError{File: path, Message: err.Error()}
	}
	return p, nil
}

// LoadPlanDirectory loads every .yaml or .yml plan in dir, keyed by test.
// Two plans for the same test are an error.
func LoadPlanDirectory(dir string) (map[testid.TestID]*Plan, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &PlanError{File: dir, Message: "failed to read directory", Cause: err}
	}

	plans := make(map[testid.TestID]*Plan)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		path := filepath.Join(dir, entry.Name())
		p, err := LoadPlan(path)
		if err != nil {
			return nil, err
		}
		if _, dup := plans[p.Test]; dup {
			return nil, &PlanError{File: path, Message: fmt.Sprintf("duplicate plan for %s", p.Test)}
		}
		plans[p.Test] = p
	}
	return plans, nil
}

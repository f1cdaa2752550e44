package bittest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fbce-flight/bit-go/pkg/command"
	"github.com/fbce-flight/bit-go/pkg/testid"
)

const validPlan = `
test: IBIT-2
name: Valve actuation
description: Opens and closes the loop isolation valve.
timeout: 10s
steps:
  - action: command
    code: VALVE_OPEN
    payload: "0a0b"
  - action: await
    code: ACK
    timeout: 500ms
  - action: delay
    duration: 10ms
  - action: probe
    probe: valve-position
  - action: command
    code: "0x0202"
`

func TestParsePlan(t *testing.T) {
	p, err := ParsePlan([]byte(validPlan))
	require.NoError(t, err)

	assert.Equal(t, testid.InterfaceBit2, p.Test)
	assert.Equal(t, "Valve actuation", p.Name)
	assert.Equal(t, 10*time.Second, p.timeout)
	require.Len(t, p.Steps, 5)

	assert.Equal(t, command.CodeValveOpen, p.Steps[0].code)
	assert.Equal(t, []byte{0x0a, 0x0b}, p.Steps[0].payload)
	assert.Equal(t, command.CodeAck, p.Steps[1].code)
	assert.Equal(t, 500*time.Millisecond, p.Steps[1].duration)
	assert.Equal(t, 10*time.Millisecond, p.Steps[2].duration)
	assert.Equal(t, "valve-position", p.Steps[3].Probe)
	assert.Equal(t, command.CodeValveShut, p.Steps[4].code)
}

func TestParsePlanAwaitDefaultTimeout(t *testing.T) {
	p, err := ParsePlan([]byte("test: FTEST-3\nsteps:\n  - action: await\n    code: ACK\n"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAwaitTimeout, p.Steps[0].duration)
}

func TestParsePlanErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad yaml", "test: [unclosed"},
		{"missing test", "steps:\n  - action: delay\n    duration: 1s\n"},
		{"unknown test", "test: XBIT-1\nsteps:\n  - action: delay\n    duration: 1s\n"},
		{"no steps", "test: IBIT-1\n"},
		{"unknown action", "test: IBIT-1\nsteps:\n  - action: jump\n"},
		{"delay without duration", "test: IBIT-1\nsteps:\n  - action: delay\n"},
		{"bad duration", "test: IBIT-1\nsteps:\n  - action: delay\n    duration: soon\n"},
		{"bad code", "test: IBIT-1\nsteps:\n  - action: command\n    code: LAUNCH\n"},
		{"bad payload", "test: IBIT-1\nsteps:\n  - action: command\n    code: ACK\n    payload: zz\n"},
		{"probe without name", "test: IBIT-1\nsteps:\n  - action: probe\n"},
		{"bad timeout", "test: IBIT-1\ntimeout: -1s\nsteps:\n  - action: delay\n    duration: 1s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePlan([]byte(tt.yaml))
			require.Error(t, err)

			var pe *PlanError
			assert.True(t, errors.As(err, &pe), "want *PlanError, got %T", err)
		})
	}
}

func TestLoadPlanSetsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("test: IBIT-1\n"), 0o644))

	_, err := LoadPlan(path)
	var pe *PlanError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, path, pe.File)
	assert.Contains(t, err.Error(), path)

	_, err = LoadPlan(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadPlanDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ibit2.yaml"), []byte(validPlan), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mbit2.yml"),
		[]byte("test: MBIT-2\nsteps:\n  - action: delay\n    duration: 1ms\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	plans, err := LoadPlanDirectory(dir)
	require.NoError(t, err)
	assert.Len(t, plans, 2)
	assert.Contains(t, plans, testid.InterfaceBit2)
	assert.Contains(t, plans, testid.MaintenanceBit2)
}

func TestLoadPlanDirectoryDuplicate(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yaml"), []byte(validPlan), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), []byte(validPlan), 0o644))

	_, err := LoadPlanDirectory(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate plan")
}

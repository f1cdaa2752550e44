package commands

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/fbce-flight/bit-go/pkg/health"
)

var baseTime = time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)

// createTestLogFile writes entries to a temporary health log.
func createTestLogFile(t *testing.T, entries []health.Entry) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.hlog")
	logger, err := health.NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	for _, e := range entries {
		logger.Log(e)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	return path
}

func sampleEntries() []health.Entry {
	return []health.Entry{
		{Timestamp: baseTime, Subsystem: health.CSCBit, Operation: "StartThread", Severity: health.SeverityStatus},
		{Timestamp: baseTime.Add(time.Second), Subsystem: health.CSCBit, Operation: "StartTest", Severity: health.SeverityStatus, Message: "starting MBIT-1 as FTEST-1", RunID: "1a2b3c4d-0000-4000-8000-000000000001"},
		{Timestamp: baseTime.Add(2 * time.Second), Subsystem: health.CSCBit, Operation: "Step", Severity: health.SeverityError, Message: "mean flow out of range", RunID: "1a2b3c4d-0000-4000-8000-000000000001"},
		{Timestamp: baseTime.Add(3 * time.Second), Subsystem: health.CSCCommands, Operation: "Send", Severity: health.SeverityStatus},
		{Timestamp: baseTime.Add(4 * time.Second), Subsystem: health.CSCBit, Operation: "StartTest", Severity: health.SeverityError, Message: "invalid test identifier"},
	}
}

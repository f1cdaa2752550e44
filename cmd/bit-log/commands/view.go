// Package commands implements the bit-log CLI commands.
package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fbce-flight/bit-go/pkg/health"
)

// ViewFilter specifies criteria for filtering entries in the view command.
type ViewFilter struct {
	Severity  *health.Severity
	Subsystem *health.CSC
	Operation string
	RunID     string
}

func (f ViewFilter) health() health.Filter {
	return health.Filter{
		Severity:  f.Severity,
		Subsystem: f.Subsystem,
		Operation: f.Operation,
		RunID:     f.RunID,
	}
}

// RunView reads the log file and writes matching entries to w.
func RunView(path string, filter ViewFilter, w io.Writer) error {
	reader, err := health.NewFilteredReader(path, filter.health())
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	count := 0
	for {
		entry, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read entry: %w", err)
		}
		formatEntry(w, entry)
		count++
	}

	if count == 0 {
		fmt.Fprintln(w, "No matching entries")
	}
	return nil
}

// formatEntry writes a single-line representation of the entry to w.
//
//	2026-01-28T10:00:00.000000Z BIT      ERROR  StartTest [run:1a2b3c4d] message
func formatEntry(w io.Writer, entry health.Entry) {
	ts := entry.Timestamp.UTC().Format("2006-01-02T15:04:05.000000Z")

	var b strings.Builder
	fmt.Fprintf(&b, "%s %-8s %-6s %s", ts, entry.Subsystem, entry.Severity, entry.Operation)
	if entry.RunID != "" {
		fmt.Fprintf(&b, " [run:%s]", shortenRunID(entry.RunID))
	}
	if entry.Message != "" {
		b.WriteString(" ")
		b.WriteString(entry.Message)
	}
	fmt.Fprintln(w, b.String())
}

// shortenRunID returns the first 8 characters of the run ID.
func shortenRunID(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}

// ParseSeverityFlag parses a severity flag value.
func ParseSeverityFlag(s string) (health.Severity, error) {
	return health.ParseSeverity(s)
}

// ParseSubsystemFlag parses a subsystem flag value.
func ParseSubsystemFlag(s string) (health.CSC, error) {
	return health.ParseCSC(s)
}

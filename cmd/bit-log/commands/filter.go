package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/fbce-flight/bit-go/pkg/health"
)

// FilterOptions specifies filtering criteria for the filter command.
type FilterOptions struct {
	Output    string
	Severity  string
	Subsystem string
	Operation string
	RunID     string
	TimeStart string
	TimeEnd   string
}

// RunFilter filters the log file and writes matching entries to a new file.
// It returns the number of entries written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter := health.Filter{
		Operation: opts.Operation,
		RunID:     opts.RunID,
	}

	if opts.TimeStart != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeStart)
		if err != nil {
			return 0, fmt.Errorf("invalid time-start format: %w", err)
		}
		filter.TimeStart = &t
	}

	if opts.TimeEnd != "" {
		t, err := time.Parse(time.RFC3339, opts.TimeEnd)
		if err != nil {
			return 0, fmt.Errorf("invalid time-end format: %w", err)
		}
		filter.TimeEnd = &t
	}

	if opts.Severity != "" {
		s, err := health.ParseSeverity(opts.Severity)
		if err != nil {
			return 0, err
		}
		filter.Severity = &s
	}

	if opts.Subsystem != "" {
		c, err := health.ParseCSC(opts.Subsystem)
		if err != nil {
			return 0, err
		}
		filter.Subsystem = &c
	}

	reader, err := health.NewFilteredReader(path, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	logger, err := health.NewFileLogger(opts.Output)
	if err != nil {
		return 0, fmt.Errorf("failed to create output logger: %w", err)
	}
	defer logger.Close()

	count := 0
	for {
		entry, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("failed to read entry: %w", err)
		}

		logger.Log(entry)
		count++
	}
	return count, nil
}

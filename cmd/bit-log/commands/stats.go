package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/fbce-flight/bit-go/pkg/health"
)

// Stats holds aggregate statistics about a health log.
type Stats struct {
	TotalEntries int
	BySeverity   map[health.Severity]int
	BySubsystem  map[health.CSC]int
	ByOperation  map[string]int
	Runs         map[string]*RunStats
	TimeRange    struct {
		Start time.Time
		End   time.Time
	}
}

// RunStats holds statistics for a single test run.
type RunStats struct {
	FirstSeen time.Time
	LastSeen  time.Time
	Entries   int
	Errors    int
}

// Collect reads every entry of the log file into a Stats.
func Collect(path string) (*Stats, error) {
	reader, err := health.NewReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	stats := &Stats{
		BySeverity:  make(map[health.Severity]int),
		BySubsystem: make(map[health.CSC]int),
		ByOperation: make(map[string]int),
		Runs:        make(map[string]*RunStats),
	}

	for {
		entry, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read entry: %w", err)
		}

		stats.TotalEntries++
		stats.BySeverity[entry.Severity]++
		stats.BySubsystem[entry.Subsystem]++
		stats.ByOperation[entry.Operation]++

		if stats.TimeRange.Start.IsZero() || entry.Timestamp.Before(stats.TimeRange.Start) {
			stats.TimeRange.Start = entry.Timestamp
		}
		if entry.Timestamp.After(stats.TimeRange.End) {
			stats.TimeRange.End = entry.Timestamp
		}

		if entry.RunID == "" {
			continue
		}
		run, ok := stats.Runs[entry.RunID]
		if !ok {
			run = &RunStats{FirstSeen: entry.Timestamp, LastSeen: entry.Timestamp}
			stats.Runs[entry.RunID] = run
		}
		run.Entries++
		if entry.IsError() {
			run.Errors++
		}
		if entry.Timestamp.After(run.LastSeen) {
			run.LastSeen = entry.Timestamp
		}
	}
	return stats, nil
}

// RunStatsCommand analyzes the log file and prints statistics.
func RunStatsCommand(path string, w io.Writer) error {
	stats, err := Collect(path)
	if err != nil {
		return err
	}
	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== BIT Health Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEntries > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Entries: %d\n", stats.TotalEntries)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Entries by Severity:")
	for _, sev := range []health.Severity{health.SeverityStatus, health.SeverityError} {
		if count := stats.BySeverity[sev]; count > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", sev.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Entries by Subsystem:")
	for c := health.CSCUnknown; c <= health.CSCController; c++ {
		if count := stats.BySubsystem[c]; count > 0 {
			fmt.Fprintf(w, "  %-16s %d\n", c.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.ByOperation) > 0 {
		fmt.Fprintln(w, "Entries by Operation:")
		ops := make([]string, 0, len(stats.ByOperation))
		for op := range stats.ByOperation {
			ops = append(ops, op)
		}
		sort.Strings(ops)
		for _, op := range ops {
			fmt.Fprintf(w, "  %-16s %d\n", op+":", stats.ByOperation[op])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Runs: %d\n", len(stats.Runs))
	if len(stats.Runs) == 0 {
		return
	}

	type runInfo struct {
		id    string
		stats *RunStats
	}
	runs := make([]runInfo, 0, len(stats.Runs))
	for id, rs := range stats.Runs {
		runs = append(runs, runInfo{id, rs})
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].stats.FirstSeen.Before(runs[j].stats.FirstSeen)
	})

	fmt.Fprintln(w)
	for _, r := range runs {
		duration := r.stats.LastSeen.Sub(r.stats.FirstSeen).Round(time.Millisecond)
		fmt.Fprintf(w, "  [%s] %d entries, duration %s", shortenRunID(r.id), r.stats.Entries, duration)
		if r.stats.Errors > 0 {
			fmt.Fprintf(w, ", %d errors", r.stats.Errors)
		}
		fmt.Fprintln(w)
	}
}

// Command bit-log is a tool for viewing and analyzing BIT health logs.
//
// Health logs are written by bit-controller with the -health-log flag.
//
// Usage:
//
//	bit-log <command> [flags] <file.hlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View only errors
//	bit-log view --severity error health.hlog
//
//	# View one run
//	bit-log view --run-id 1a2b3c4d-... health.hlog
//
//	# Export to CSV
//	bit-log export --format csv -o health.csv health.hlog
//
//	# Show statistics
//	bit-log stats health.hlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/fbce-flight/bit-go/cmd/bit-log/commands"
)

const usage = `bit-log - BIT Health Log Analyzer

Usage:
  bit-log <command> [flags] <file.hlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "bit-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func requirePath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func runView(args []string) {
	fs := flag.NewFlagSet("view", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `bit-log view - View log file in human-readable format

Usage:
  bit-log view [flags] <file.hlog>

Flags:
`)
		fs.PrintDefaults()
	}

	severity := fs.String("severity", "", "Filter by severity (status, error)")
	subsystem := fs.String("subsystem", "", "Filter by subsystem (bit, commands, sensor_effector, telemetry, controller)")
	operation := fs.String("op", "", "Filter by operation name")
	runID := fs.String("run-id", "", "Filter by run ID")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)

	filter := commands.ViewFilter{Operation: *operation, RunID: *runID}

	if *severity != "" {
		s, err := commands.ParseSeverityFlag(*severity)
		if err != nil {
			fail(err)
		}
		filter.Severity = &s
	}

	if *subsystem != "" {
		c, err := commands.ParseSubsystemFlag(*subsystem)
		if err != nil {
			fail(err)
		}
		filter.Subsystem = &c
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `bit-log export - Export log file to JSON or CSV format

Usage:
  bit-log export [flags] <file.hlog>

Flags:
`)
		fs.PrintDefaults()
	}

	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := flag.NewFlagSet("filter", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `bit-log filter - Filter log file and write to new file

Usage:
  bit-log filter [flags] <file.hlog>

Flags:
`)
		fs.PrintDefaults()
	}

	output := fs.String("o", "", "Output file (required)")
	severity := fs.String("severity", "", "Filter by severity (status, error)")
	subsystem := fs.String("subsystem", "", "Filter by subsystem")
	operation := fs.String("op", "", "Filter by operation name")
	runID := fs.String("run-id", "", "Filter by run ID")
	timeStart := fs.String("time-start", "", "Filter by start time (RFC3339)")
	timeEnd := fs.String("time-end", "", "Filter by end time (RFC3339)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)

	if *output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	count, err := commands.RunFilter(path, commands.FilterOptions{
		Output:    *output,
		Severity:  *severity,
		Subsystem: *subsystem,
		Operation: *operation,
		RunID:     *runID,
		TimeStart: *timeStart,
		TimeEnd:   *timeEnd,
	})
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d entries to %s\n", count, *output)
}

func runStats(args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `bit-log stats - Show statistics about the log file

Usage:
  bit-log stats <file.hlog>

`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := requirePath(fs)

	if err := commands.RunStatsCommand(path, os.Stdout); err != nil {
		fail(err)
	}
}

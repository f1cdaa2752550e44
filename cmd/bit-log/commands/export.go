package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fbce-flight/bit-go/pkg/health"
)

// exportRecord is the flat form written by the JSONL exporter.
type exportRecord struct {
	Timestamp string `json:"timestamp"`
	Subsystem string `json:"subsystem"`
	Operation string `json:"operation"`
	Severity  string `json:"severity"`
	Message   string `json:"message,omitempty"`
	RunID     string `json:"runId,omitempty"`
}

// RunExport exports the log file to the specified format.
func RunExport(path, format, output string) error {
	reader, err := health.NewReader(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer reader.Close()

	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	switch format {
	case "jsonl":
		return exportJSONL(reader, w)
	case "csv":
		return exportCSV(reader, w)
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}
}

func toRecord(entry health.Entry) exportRecord {
	return exportRecord{
		Timestamp: entry.Timestamp.UTC().Format(time.RFC3339Nano),
		Subsystem: entry.Subsystem.String(),
		Operation: entry.Operation,
		Severity:  entry.Severity.String(),
		Message:   entry.Message,
		RunID:     entry.RunID,
	}
}

func exportJSONL(reader *health.Reader, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for {
		entry, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read entry: %w", err)
		}
		if err := encoder.Encode(toRecord(entry)); err != nil {
			return fmt.Errorf("failed to encode entry: %w", err)
		}
	}
	return nil
}

func exportCSV(reader *health.Reader, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "subsystem", "operation", "severity", "message", "run_id"}); err != nil {
		return err
	}

	for {
		entry, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read entry: %w", err)
		}
		r := toRecord(entry)
		if err := cw.Write([]string{r.Timestamp, r.Subsystem, r.Operation, r.Severity, r.Message, r.RunID}); err != nil {
			return fmt.Errorf("failed to write entry: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

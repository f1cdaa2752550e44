package commands

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestExportJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEntries())
	out := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	var records []exportRecord
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r exportRecord
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		records = append(records, r)
	}

	if len(records) != 5 {
		t.Fatalf("expected 5 records, got %d", len(records))
	}
	if records[2].Severity != "ERROR" || records[2].Operation != "Step" {
		t.Errorf("unexpected record: %+v", records[2])
	}
	if records[0].RunID != "" {
		t.Errorf("expected empty run id, got %q", records[0].RunID)
	}
	if records[3].Subsystem != "COMMANDS" {
		t.Errorf("expected COMMANDS, got %q", records[3].Subsystem)
	}
}

func TestExportCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEntries())
	out := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", out); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatalf("open output: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected header + 5 rows, got %d", len(rows))
	}
	if rows[0][0] != "timestamp" || rows[0][5] != "run_id" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[5][3] != "ERROR" {
		t.Errorf("expected ERROR severity, got %q", rows[5][3])
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEntries())
	if err := RunExport(path, "xml", filepath.Join(t.TempDir(), "out.xml")); err == nil {
		t.Error("expected error for unknown format")
	}
}

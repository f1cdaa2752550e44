package health

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter specifies criteria for selecting entries.
// Empty/nil fields match every entry.
type Filter struct {
	// Severity filters by exact severity.
	Severity *Severity

	// Subsystem filters by component tag.
	Subsystem *CSC

	// Operation filters by exact operation name.
	Operation string

	// RunID filters by run correlation ID.
	RunID string

	// TimeStart filters entries at or after this time.
	TimeStart *time.Time

	// TimeEnd filters entries before this time.
	TimeEnd *time.Time
}

// Matches reports whether the entry satisfies every criterion.
func (f *Filter) Matches(entry Entry) bool {
	if f.Severity != nil && entry.Severity != *f.Severity {
		return false
	}
	if f.Subsystem != nil && entry.Subsystem != *f.Subsystem {
		return false
	}
	if f.Operation != "" && entry.Operation != f.Operation {
		return false
	}
	if f.RunID != "" && entry.RunID != f.RunID {
		return false
	}
	if f.TimeStart != nil && entry.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !entry.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader reads health entries from a CBOR-encoded file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
	pending cbor.RawMessage
}

// NewReader creates a Reader that reads all entries from the specified log file.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader creates a Reader that reads entries matching the filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		file:    f,
		decoder: NewDecoder(f),
		filter:  filter,
	}
	if err := r.readHeader(); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// readHeader checks the file header. Files written without one start
// directly with an entry, which is kept for the first Next.
func (r *Reader) readHeader() error {
	var raw cbor.RawMessage
	if err := r.decoder.Decode(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}

	if !isArray(raw) {
		r.pending = raw
		return nil
	}
	var h fileHeader
	if err := decMode.Unmarshal(raw, &h); err != nil {
		return fmt.Errorf("%w: %v", ErrNotHealthLog, err)
	}
	return h.validate()
}

// Next returns the next entry that matches the filter.
// Returns io.EOF when no more entries are available.
func (r *Reader) Next() (Entry, error) {
	for {
		var entry Entry
		if r.pending != nil {
			raw := r.pending
			r.pending = nil
			if err := decMode.Unmarshal(raw, &entry); err != nil {
				return Entry{}, err
			}
		} else if err := r.decoder.Decode(&entry); err != nil {
			if errors.Is(err, io.EOF) {
				return Entry{}, io.EOF
			}
			return Entry{}, err
		}

		if r.filter.Matches(entry) {
			return entry, nil
		}
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

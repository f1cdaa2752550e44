package health

import (
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger writes health entries to a file in CBOR format.
// It is safe for concurrent use from multiple goroutines.
type FileLogger struct {
	file    *os.File
	encoder *cbor.Encoder
	mu      sync.Mutex
	closed  bool
}

// NewFileLogger creates a FileLogger that writes to the specified path.
// A new or empty file starts with the versioned file header; an existing
// log is appended to as is.
func NewFileLogger(path string) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	l := &FileLogger{
		file:    f,
		encoder: NewEncoder(f),
	}
	if info.Size() == 0 {
		if err := l.encoder.Encode(fileHeader{Magic: FileMagic, Version: FileVersion}); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write health log header: %w", err)
		}
	}
	return l, nil
}

// Log writes an entry to the log file.
func (l *FileLogger) Log(entry Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}

	// Encoding errors are dropped: the health log must never take down
	// the component reporting through it.
	_ = l.encoder.Encode(entry)
}

// Close closes the log file. Subsequent Log calls are ignored.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}

	l.closed = true
	return l.file.Close()
}

// Compile-time interface satisfaction check.
var _ Logger = (*FileLogger)(nil)

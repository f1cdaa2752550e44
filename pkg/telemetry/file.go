package telemetry

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeUnixMicro,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create telemetry CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create telemetry CBOR decoder mode: %v", err))
	}
}

// ErrClosed is returned by writes to a closed FileWriter.
var ErrClosed = errors.New("telemetry writer closed")

// FileWriter appends frames to a file as a CBOR stream.
type FileWriter struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	closed  bool
}

// NewFileWriter opens path for appending, creating it if needed.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, encoder: encMode.NewEncoder(f)}, nil
}

// Write appends frame to the file.
func (w *FileWriter) Write(frame Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrClosed
	}
	if err := w.encoder.Encode(frame); err != nil {
		return fmt.Errorf("encode telemetry frame: %w", err)
	}
	return nil
}

// Close closes the file. It is safe to call more than once.
func (w *FileWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// Reader reads frames written by FileWriter.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
}

// NewReader opens a telemetry file for reading.
func NewReader(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, decoder: decMode.NewDecoder(f)}, nil
}

// Next returns the next frame, or io.EOF at the end of the file.
func (r *Reader) Next() (Frame, error) {
	var frame Frame
	if err := r.decoder.Decode(&frame); err != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, io.EOF
		}
		return Frame{}, err
	}
	return frame, nil
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}

var _ Writer = (*FileWriter)(nil)

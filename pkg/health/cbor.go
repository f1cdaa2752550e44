package health

import (
	"errors"
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for health entries.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for health entries.
var decMode cbor.DecMode

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create health CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create health CBOR decoder mode: %v", err))
	}
}

// EncodeEntry encodes an Entry to CBOR bytes.
func EncodeEntry(entry Entry) ([]byte, error) {
	return encMode.Marshal(entry)
}

// DecodeEntry decodes CBOR bytes into an Entry.
func DecodeEntry(data []byte) (Entry, error) {
	var entry Entry
	if err := decMode.Unmarshal(data, &entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

// NewEncoder creates a CBOR encoder for entries that writes to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates a CBOR decoder for entries that reads from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}

// File header written once at the start of every health log file.
const (
	// FileMagic identifies a health log file.
	FileMagic = "BIT-HLOG"

	// FileVersion is the current file format version.
	FileVersion uint8 = 1
)

// File header errors.
var (
	// ErrNotHealthLog is returned for a file whose header has the wrong magic.
	ErrNotHealthLog = errors.New("not a health log file")

	// ErrUnsupportedVersion is returned for a header newer than FileVersion.
	ErrUnsupportedVersion = errors.New("unsupported health log version")
)

// fileHeader is encoded as a CBOR array so it cannot be mistaken for an
// entry, which is always a map.
type fileHeader struct {
	_       struct{} `cbor:",toarray"`
	Magic   string
	Version uint8
}

func (h fileHeader) validate() error {
	if h.Magic != FileMagic {
		return fmt.Errorf("%w: magic %q", ErrNotHealthLog, h.Magic)
	}
	if h.Version == 0 || h.Version > FileVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	return nil
}

// isArray reports whether raw holds a CBOR array (major type 4).
func isArray(raw cbor.RawMessage) bool {
	return len(raw) > 0 && raw[0]>>5 == 4
}

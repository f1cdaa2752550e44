package command

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidCode is returned for commands with a zero code.
var ErrInvalidCode = errors.New("invalid command code")

// Code identifies a command.
type Code uint16

// Well-known command codes used by the BIT procedures.
const (
	CodeStartTest Code = 0x0101
	CodeStopTest  Code = 0x0102
	CodeTestDone  Code = 0x0103
	CodeValveOpen Code = 0x0201
	CodeValveShut Code = 0x0202
	CodePumpOn    Code = 0x0203
	CodePumpOff   Code = 0x0204
	CodeAck       Code = 0x0F01
	CodeNack      Code = 0x0F02
)

var codeNames = map[Code]string{
	CodeStartTest: "START_TEST",
	CodeStopTest:  "STOP_TEST",
	CodeTestDone:  "TEST_DONE",
	CodeValveOpen: "VALVE_OPEN",
	CodeValveShut: "VALVE_SHUT",
	CodePumpOn:    "PUMP_ON",
	CodePumpOff:   "PUMP_OFF",
	CodeAck:       "ACK",
	CodeNack:      "NACK",
}

// String returns the command name, or its hex value when unnamed.
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("0x%04X", uint16(c))
}

// ParseCode accepts a command name or a numeric code (decimal or 0x-prefixed).
func ParseCode(s string) (Code, error) {
	for c, name := range codeNames {
		if name == strings.ToUpper(s) {
			return c, nil
		}
	}
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidCode, s)
	}
	return Code(n), nil
}

// Command is one message on the command link. Payload is opaque to the BIT
// core.
type Command struct {
	Code     Code   `cbor:"1,keyasint"`
	Sequence uint32 `cbor:"2,keyasint"`
	Payload  []byte `cbor:"3,keyasint,omitempty"`
}

// Validate checks the command for structural validity.
func (c Command) Validate() error {
	if c.Code == 0 {
		return ErrInvalidCode
	}
	return nil
}

// String returns a short human-readable form.
func (c Command) String() string {
	return fmt.Sprintf("%s#%d(%d bytes)", c.Code, c.Sequence, len(c.Payload))
}

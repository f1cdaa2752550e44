package testid

import (
	"fmt"
	"strconv"
	"strings"
)

// TestID identifies a built-in test. Values are totally ordered by family
// and then by number.
type TestID uint8

const (
	NoTest TestID = iota
	PowerOnOne
	PowerOnTwo

	InterfaceBit1
	InterfaceBit2
	InterfaceBit3
	InterfaceBit4
	InterfaceBit5

	FunctionalTest1
	FunctionalTest2
	FunctionalTest3
	FunctionalTest4
	FunctionalTest5
	FunctionalTest6

	MaintenanceBit1
	MaintenanceBit2
	MaintenanceBit3
	MaintenanceBit4
	MaintenanceBit5
	MaintenanceBit6
	MaintenanceBit7
	MaintenanceBit8
	MaintenanceBit9
	MaintenanceBit10

	// numTests is one past the last defined identifier.
	numTests
)

// Family groups identifiers of the same kind.
type Family uint8

const (
	FamilyNone Family = iota
	FamilyPowerOn
	FamilyInterface
	FamilyFunctional
	FamilyMaintenance
)

// String returns the family prefix used in test names.
func (f Family) String() string {
	switch f {
	case FamilyNone:
		return "NONE"
	case FamilyPowerOn:
		return "PBIT"
	case FamilyInterface:
		return "IBIT"
	case FamilyFunctional:
		return "FTEST"
	case FamilyMaintenance:
		return "MBIT"
	default:
		return "UNKNOWN"
	}
}

// Family returns the family the identifier belongs to.
func (t TestID) Family() Family {
	switch {
	case t == NoTest:
		return FamilyNone
	case t >= PowerOnOne && t <= PowerOnTwo:
		return FamilyPowerOn
	case t >= InterfaceBit1 && t <= InterfaceBit5:
		return FamilyInterface
	case t >= FunctionalTest1 && t <= FunctionalTest6:
		return FamilyFunctional
	case t >= MaintenanceBit1 && t <= MaintenanceBit10:
		return FamilyMaintenance
	default:
		return FamilyNone
	}
}

// Number returns the 1-based position of the identifier inside its family,
// or 0 for NoTest and undefined values.
func (t TestID) Number() int {
	switch t.Family() {
	case FamilyPowerOn:
		return int(t-PowerOnOne) + 1
	case FamilyInterface:
		return int(t-InterfaceBit1) + 1
	case FamilyFunctional:
		return int(t-FunctionalTest1) + 1
	case FamilyMaintenance:
		return int(t-MaintenanceBit1) + 1
	default:
		return 0
	}
}

// Valid reports whether t is a defined identifier (NoTest included).
func (t TestID) Valid() bool {
	return t < numTests
}

// String returns the canonical test name, e.g. "MBIT-003".
func (t TestID) String() string {
	if t == NoTest {
		return "NO_TEST"
	}
	if !t.Valid() {
		return fmt.Sprintf("UNKNOWN(%d)", uint8(t))
	}
	return fmt.Sprintf("%s-%03d", t.Family(), t.Number())
}

// MarshalText implements encoding.TextMarshaler.
func (t TestID) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("invalid test identifier %d", uint8(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *TestID) UnmarshalText(text []byte) error {
	id, err := Parse(string(text))
	if err != nil {
		return err
	}
	*t = id
	return nil
}

// Parse converts a test name into its identifier. Matching is case
// insensitive and accepts unpadded numbers and an optional dash, so
// "MBIT-003", "mbit-3" and "MBIT3" are equivalent.
func Parse(s string) (TestID, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	switch name {
	case "NO_TEST", "NOTEST", "NONE":
		return NoTest, nil
	}

	for _, fam := range []Family{FamilyPowerOn, FamilyInterface, FamilyFunctional, FamilyMaintenance} {
		prefix := fam.String()
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimPrefix(name[len(prefix):], "-"))
		if err != nil {
			break
		}
		if id, ok := fromFamily(fam, n); ok {
			return id, nil
		}
		break
	}
	return NoTest, fmt.Errorf("unknown test name %q", s)
}

// fromFamily returns the n-th (1-based) identifier of a family.
func fromFamily(fam Family, n int) (TestID, bool) {
	if n < 1 {
		return NoTest, false
	}
	var first TestID
	switch fam {
	case FamilyPowerOn:
		first = PowerOnOne
	case FamilyInterface:
		first = InterfaceBit1
	case FamilyFunctional:
		first = FunctionalTest1
	case FamilyMaintenance:
		first = MaintenanceBit1
	default:
		return NoTest, false
	}
	id := first + TestID(n-1)
	if n > int(numTests) || id.Family() != fam {
		return NoTest, false
	}
	return id, true
}

// All returns every defined identifier in order, NoTest first.
func All() []TestID {
	ids := make([]TestID, 0, numTests)
	for id := NoTest; id < numTests; id++ {
		ids = append(ids, id)
	}
	return ids
}

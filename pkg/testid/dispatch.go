package testid

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidTest is returned by Resolve for identifiers that are not valid
// requests on the primary dispatch path.
var ErrInvalidTest = errors.New("invalid test identifier")

// dispatch maps each requestable identifier onto the identifier of the
// implementation that performs the work.
var dispatch = map[TestID]TestID{
	InterfaceBit1: InterfaceBit1,
	InterfaceBit2: InterfaceBit2,
	InterfaceBit3: InterfaceBit3,
	InterfaceBit4: InterfaceBit4,
	InterfaceBit5: InterfaceBit5,

	FunctionalTest1: FunctionalTest1,
	FunctionalTest2: FunctionalTest2,
	FunctionalTest3: FunctionalTest3,
	FunctionalTest4: FunctionalTest4,
	FunctionalTest5: FunctionalTest5,
	FunctionalTest6: FunctionalTest6,

	MaintenanceBit1:  FunctionalTest1,
	MaintenanceBit2:  MaintenanceBit2,
	MaintenanceBit3:  InterfaceBit3,
	MaintenanceBit4:  FunctionalTest2,
	MaintenanceBit5:  FunctionalTest3,
	MaintenanceBit6:  FunctionalTest4,
	MaintenanceBit7:  MaintenanceBit7,
	MaintenanceBit8:  InterfaceBit5,
	MaintenanceBit9:  InterfaceBit4,
	MaintenanceBit10: MaintenanceBit10,
}

// Resolve returns the physical identifier implementing the requested test.
// It fails with ErrInvalidTest for NoTest, PowerOnTwo and any identifier
// absent from the dispatch table.
func Resolve(requested TestID) (TestID, error) {
	physical, ok := dispatch[requested]
	if !ok {
		return NoTest, fmt.Errorf("%w: %s", ErrInvalidTest, requested)
	}
	return physical, nil
}

// IsAlias reports whether requested is served by a different implementation.
func IsAlias(requested TestID) bool {
	physical, err := Resolve(requested)
	return err == nil && physical != requested
}

// Requestable returns every identifier accepted by Resolve, in order.
func Requestable() []TestID {
	ids := make([]TestID, 0, len(dispatch))
	for id := range dispatch {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Physical returns the distinct implementation identifiers the dispatch
// table resolves to, in order.
func Physical() []TestID {
	seen := make(map[TestID]bool, len(dispatch))
	var ids []TestID
	for _, physical := range dispatch {
		if !seen[physical] {
			seen[physical] = true
			ids = append(ids, physical)
		}
	}
	slices.Sort(ids)
	return ids
}

// AliasesOf returns the requestable identifiers served by physical,
// physical itself included when it is requestable.
func AliasesOf(physical TestID) []TestID {
	var ids []TestID
	for requested, p := range dispatch {
		if p == physical {
			ids = append(ids, requested)
		}
	}
	slices.Sort(ids)
	return ids
}

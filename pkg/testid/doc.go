// Package testid defines the built-in test identifiers and the dispatch
// table that maps requester-facing (logical) identifiers onto the
// implementations (physical identifiers) that perform the work.
//
// # Families
//
// Identifiers are drawn from disjoint families:
//   - NoTest: the absence of a test
//   - PowerOnOne, PowerOnTwo: power-on tests (PBIT)
//   - InterfaceBit1..InterfaceBit5: interface tests (IBIT)
//   - FunctionalTest1..FunctionalTest6: functional tests (FTEST)
//   - MaintenanceBit1..MaintenanceBit10: maintenance tests (MBIT)
//
// # Dispatch
//
// Resolve maps a requested identifier onto its physical implementation.
// Most interface and functional tests map to themselves; several
// maintenance tests are aliases for interface or functional routines.
// NoTest and PowerOnTwo are never valid requests on the primary path.
package testid

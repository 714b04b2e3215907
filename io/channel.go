// Package io provides the I/O collaborators of the LS-8 emulator: the
// `.ls8` program image format, and the output transports that receive the
// values printed by PRN and PRA.
package io

// Output receives the observable output events of a running program.
type Output interface {
	// Number receives the value printed by PRN.
	Number(value byte) error
	// Char receives the value printed by PRA.
	Char(value byte) error
}

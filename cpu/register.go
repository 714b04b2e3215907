package cpu

import (
	"fmt"
)

// Register indices with a fixed role.
const (
	REG_IM    = 5 // Interrupt mask.
	REG_IS    = 6 // Interrupt status.
	REG_SP    = 7 // Stack pointer.
	REG_COUNT = 8 // Number of general-purpose registers.
)

// Flag register bits.
const (
	FLAG_EQUAL   = 0
	FLAG_GREATER = 1
	FLAG_LESS    = 2

	FLAG_COMPARE = byte(1<<FLAG_EQUAL | 1<<FLAG_GREATER | 1<<FLAG_LESS)
)

// Registers is the LS-8 register file.
type Registers struct {
	R  [REG_COUNT]byte // General-purpose registers R0-R7.
	Pc uint            // Program counter.
	Fl byte            // Flags.
}

// Reset sets the power-on state.
func (regs *Registers) Reset() {
	clear(regs.R[:])
	regs.R[REG_SP] = STACK_TOP
	regs.Pc = 0
	regs.Fl = 0
}

// Valid returns true if index names a general-purpose register.
func (regs *Registers) Valid(index byte) bool {
	return index < REG_COUNT
}

// Get returns register index.
// index must be Valid; the engine checks operands before use.
func (regs *Registers) Get(index byte) byte {
	return regs.R[index]
}

// Set stores value modulo 256 into register index.
// index must be Valid.
func (regs *Registers) Set(index byte, value uint) {
	regs.R[index] = byte(value & 0xff)
}

// SetFlag sets a single flag bit, leaving the others as they are.
func (regs *Registers) SetFlag(bit uint) {
	regs.Fl |= 1 << bit
}

// ClearFlag clears a single flag bit.
func (regs *Registers) ClearFlag(bit uint) {
	regs.Fl &^= 1 << bit
}

// CheckFlag returns true if the flag bit is set.
func (regs *Registers) CheckFlag(bit uint) bool {
	return (regs.Fl & (1 << bit)) != 0
}

// ClearCompare clears the Equal, Greater and Less flags.
func (regs *Registers) ClearCompare() {
	regs.Fl &^= FLAG_COMPARE
}

// String returns the register file as text.
func (regs *Registers) String() (text string) {
	text = fmt.Sprintf("   pc: %02x\n   fl: %08b\n", regs.Pc, regs.Fl)
	for n, val := range regs.R {
		var name string
		switch n {
		case REG_IM:
			name = " (im)"
		case REG_IS:
			name = " (is)"
		case REG_SP:
			name = " (sp)"
		}
		text += fmt.Sprintf("   r%d: %02x%v\n", n, val, name)
	}
	return
}

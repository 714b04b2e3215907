package cpu

import (
	"errors"
)

// Alu performs the ALU instruction op on registers a and b.
//
// Results are written back to register a, wrapped to 8 bits. CMP only
// updates the comparison flags. On error no register is modified.
func Alu(regs *Registers, op Opcode, a, b byte) (err error) {
	inst, err := Decode(byte(op))
	if err != nil {
		return
	}

	if !inst.Alu {
		err = errors.Join(ErrOpcodeAlu, ErrOpcodeUnknown)
		return
	}

	if !regs.Valid(a) {
		err = errors.Join(ErrOpcodeAlu, ErrOpcodeArg1, ErrRegisterInvalid)
		return
	}

	if inst.Operands > 1 && !regs.Valid(b) {
		err = errors.Join(ErrOpcodeAlu, ErrOpcodeArg2, ErrRegisterInvalid)
		return
	}

	input := uint(regs.Get(a))
	var value uint
	if inst.Operands > 1 {
		value = uint(regs.Get(b))
	}

	switch op {
	case ADD:
		regs.Set(a, input+value)
	case SUB:
		regs.Set(a, input+((^value)+1))
	case MUL:
		regs.Set(a, input*value)
	case DIV:
		if value == 0 {
			err = ErrDivideByZero
			return
		}
		regs.Set(a, input/value)
	case MOD:
		if value == 0 {
			err = ErrDivideByZero
			return
		}
		regs.Set(a, input%value)
	case AND:
		regs.Set(a, input&value)
	case OR:
		regs.Set(a, input|value)
	case XOR:
		regs.Set(a, input^value)
	case NOT:
		regs.Set(a, ^input)
	case INC:
		regs.Set(a, input+1)
	case DEC:
		regs.Set(a, input-1)
	case CMP:
		regs.ClearCompare()
		switch {
		case input == value:
			regs.SetFlag(FLAG_EQUAL)
		case input > value:
			regs.SetFlag(FLAG_GREATER)
		default:
			regs.SetFlag(FLAG_LESS)
		}
	default:
		err = errors.Join(ErrOpcodeAlu, ErrOpcodeUnknown)
		return
	}

	return
}

package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlu(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		op     Opcode
		a, b   byte
		expect byte
	}){
		{ADD, 200, 100, 44},
		{ADD, 1, 2, 3},
		{SUB, 5, 10, 251},
		{SUB, 10, 5, 5},
		{MUL, 16, 16, 0},
		{MUL, 12, 12, 144},
		{DIV, 200, 7, 28},
		{MOD, 200, 7, 4},
		{AND, 0b1100, 0b1010, 0b1000},
		{OR, 0b1100, 0b1010, 0b1110},
		{XOR, 0b1100, 0b1010, 0b0110},
		{NOT, 0b1100_0011, 0, 0b0011_1100},
		{INC, 255, 0, 0},
		{INC, 7, 0, 8},
		{DEC, 0, 0, 255},
		{DEC, 8, 0, 7},
	}

	for _, entry := range table {
		regs := &Registers{}
		regs.R[2] = entry.a
		regs.R[3] = entry.b
		err := Alu(regs, entry.op, 2, 3)
		assert.NoError(err, entry.op.String())
		assert.Equal(entry.expect, regs.R[2], "%v %d %d", entry.op, entry.a, entry.b)
		assert.Equal(entry.b, regs.R[3], entry.op.String())
	}
}

func TestAlu_Cmp(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		a, b byte
		flag uint
	}){
		{5, 5, FLAG_EQUAL},
		{6, 5, FLAG_GREATER},
		{4, 5, FLAG_LESS},
		{0, 255, FLAG_LESS},
		{255, 0, FLAG_GREATER},
	}

	for _, entry := range table {
		regs := &Registers{}
		regs.Fl = 0b1000_0111 // stale compare results are cleared
		regs.R[0] = entry.a
		regs.R[1] = entry.b
		assert.NoError(Alu(regs, CMP, 0, 1))
		assert.Equal(byte(0b1000_0000|(1<<entry.flag)), regs.Fl, "%d %d", entry.a, entry.b)
		assert.Equal(entry.a, regs.R[0])
	}
}

func TestAlu_DivideByZero(t *testing.T) {
	assert := assert.New(t)

	for _, op := range []Opcode{DIV, MOD} {
		regs := &Registers{}
		regs.R[0] = 42
		regs.Fl = 0b001
		before := *regs

		err := Alu(regs, op, 0, 1)
		assert.ErrorIs(err, ErrDivideByZero, op.String())
		assert.Equal(before, *regs, op.String())
	}
}

func TestAlu_Invalid(t *testing.T) {
	assert := assert.New(t)

	regs := &Registers{}

	assert.ErrorIs(Alu(regs, LDI, 0, 1), ErrOpcodeAlu)
	assert.ErrorIs(Alu(regs, Opcode(0xff), 0, 1), ErrOpcodeUnknown)
	assert.ErrorIs(Alu(regs, ADD, 8, 1), ErrRegisterInvalid)
	assert.ErrorIs(Alu(regs, ADD, 0, 9), ErrOpcodeArg2)

	// Single operand instructions ignore operand b.
	assert.NoError(Alu(regs, INC, 0, 0xff))
	assert.Equal(byte(1), regs.R[0])
}

func FuzzAlu(f *testing.F) {
	for op := range opcodeTable {
		f.Add(byte(op), byte(0), byte(0))
		f.Add(byte(op), byte(0xff), byte(0x01))
		f.Add(byte(op), byte(0x80), byte(0x7f))
	}

	f.Fuzz(func(t *testing.T, value byte, x byte, y byte) {
		assert := assert.New(t)

		regs := &Registers{}
		regs.R[0] = x
		regs.R[1] = y
		before := *regs

		err := Alu(regs, Opcode(value), 0, 1)

		inst, derr := Decode(value)
		if derr != nil || !inst.Alu {
			assert.Error(err)
			assert.Equal(before, *regs)
			return
		}

		a := int(x)
		b := int(y)
		var expect int
		switch inst.Opcode {
		case ADD:
			expect = a + b
		case SUB:
			expect = a - b
		case MUL:
			expect = a * b
		case DIV, MOD:
			if b == 0 {
				assert.ErrorIs(err, ErrDivideByZero)
				assert.Equal(before, *regs)
				return
			}
			if inst.Opcode == DIV {
				expect = a / b
			} else {
				expect = a % b
			}
		case AND:
			expect = a & b
		case OR:
			expect = a | b
		case XOR:
			expect = a ^ b
		case NOT:
			expect = ^a
		case INC:
			expect = a + 1
		case DEC:
			expect = a - 1
		case CMP:
			assert.NoError(err)
			compare := regs.Fl & FLAG_COMPARE
			assert.Equal(1, popcount(compare))
			assert.Equal(a == b, regs.CheckFlag(FLAG_EQUAL))
			assert.Equal(a > b, regs.CheckFlag(FLAG_GREATER))
			assert.Equal(a < b, regs.CheckFlag(FLAG_LESS))
			return
		}

		assert.NoError(err)
		assert.Equal(byte(((expect%256)+256)%256), regs.R[0], "%v %d %d", inst, x, y)
		assert.Equal(y, regs.R[1])
	})
}

func popcount(value byte) (count int) {
	for ; value != 0; value &= value - 1 {
		count++
	}
	return
}

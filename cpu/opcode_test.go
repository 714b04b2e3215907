package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		value    byte
		name     string
		operands int
		setsPc   bool
		alu      bool
	}){
		{0b00000000, "NOP", 0, false, false},
		{0b00000001, "HLT", 0, false, false},
		{0b10011001, "LDI", 2, false, false},
		{0b01000011, "PRN", 1, false, false},
		{0b01001000, "CALL", 1, true, false},
		{0b00001001, "RET", 0, true, false},
		{0b00001011, "IRET", 0, true, false},
		{0b01010000, "JMP", 1, true, false},
		{0b01010001, "JEQ", 1, true, false},
		{0b01010010, "JNE", 1, true, false},
		{0b01010011, "JLT", 1, true, false},
		{0b01010100, "JGT", 1, true, false},
		{0b10101000, "ADD", 2, false, true},
		{0b10100000, "CMP", 2, false, true},
		{0b01110000, "NOT", 1, false, true},
		{0b01111000, "INC", 1, false, true},
		{0b01111001, "DEC", 1, false, true},
		{0b01001101, "PUSH", 1, false, false},
		{0b01001100, "POP", 1, false, false},
	}

	for _, entry := range table {
		inst, err := Decode(entry.value)
		assert.NoError(err, entry.name)
		assert.Equal(entry.name, inst.String())
		assert.Equal(entry.operands, inst.Operands, entry.name)
		assert.Equal(entry.setsPc, inst.SetsPc, entry.name)
		assert.Equal(entry.alu, inst.Alu, entry.name)
		assert.Equal(entry.operands+1, inst.Size(), entry.name)
	}
}

func TestDecode_Unknown(t *testing.T) {
	assert := assert.New(t)

	for _, value := range []byte{0x02, 0x44, 0xff, 0xc0, 0b101000000 & 0xff} {
		_, err := Decode(value)
		assert.ErrorIs(err, ErrOpcodeUnknown, "0x%02x", value)
	}

	assert.Equal("0xff", Opcode(0xff).String())
}

func TestDecode_Table(t *testing.T) {
	assert := assert.New(t)

	alu := map[Opcode]bool{
		ADD: true, SUB: true, MUL: true, DIV: true, MOD: true,
		AND: true, OR: true, XOR: true, NOT: true,
		INC: true, DEC: true, CMP: true,
	}

	for op := range opcodeTable {
		inst, err := Decode(byte(op))
		assert.NoError(err)
		assert.LessOrEqual(inst.Operands, 2, op.String())
		assert.Equal(alu[op], inst.Alu, op.String())
		assert.Equal(op, opcodeByName[op.String()])
	}
}

func TestInstruction_Format(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		op       Opcode
		operands []byte
		text     string
	}){
		{HLT, nil, "HLT"},
		{LDI, []byte{0, 8}, "LDI R0,0x08"},
		{PRN, []byte{3, 9}, "PRN R3"},
		{ADD, []byte{1, 2}, "ADD R1,R2"},
	}

	for _, entry := range table {
		inst, err := Decode(byte(entry.op))
		assert.NoError(err)
		assert.Equal(entry.text, inst.Format(entry.operands...))
	}
}

func TestInstruction_Encode(t *testing.T) {
	assert := assert.New(t)

	inst, err := Decode(byte(LDI))
	assert.NoError(err)
	assert.Equal([]byte{0x99, 0x00, 0x08}, inst.Encode(0, 8))
	assert.True(inst.Immediate(1))
	assert.False(inst.Immediate(0))
	assert.False(inst.Conditional())

	inst, err = Decode(byte(JGT))
	assert.NoError(err)
	assert.True(inst.Conditional())
}

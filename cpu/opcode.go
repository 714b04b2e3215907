package cpu

import (
	"fmt"
	"strings"
)

// Opcode is the first byte of an LS-8 instruction.
//
// Bits 7-6 hold the operand count and bit 5 marks the ALU group.
type Opcode byte

const (
	NOP  = Opcode(0b00000000)
	HLT  = Opcode(0b00000001)
	RET  = Opcode(0b00001001)
	IRET = Opcode(0b00001011)
	PRA  = Opcode(0b01000010)
	PRN  = Opcode(0b01000011)
	CALL = Opcode(0b01001000)
	INT  = Opcode(0b01001010)
	POP  = Opcode(0b01001100)
	PUSH = Opcode(0b01001101)
	JMP  = Opcode(0b01010000)
	JEQ  = Opcode(0b01010001)
	JNE  = Opcode(0b01010010)
	JLT  = Opcode(0b01010011)
	JGT  = Opcode(0b01010100)
	NOT  = Opcode(0b01110000)
	INC  = Opcode(0b01111000)
	DEC  = Opcode(0b01111001)
	LD   = Opcode(0b10011000)
	LDI  = Opcode(0b10011001)
	ST   = Opcode(0b10011010)
	CMP  = Opcode(0b10100000)
	ADD  = Opcode(0b10101000)
	SUB  = Opcode(0b10101001)
	MUL  = Opcode(0b10101010)
	DIV  = Opcode(0b10101011)
	MOD  = Opcode(0b10101100)
	OR   = Opcode(0b10110001)
	XOR  = Opcode(0b10110010)
	AND  = Opcode(0b10110011)
)

const (
	OPCODE_OPERANDS_SHIFT = 6
	OPCODE_ALU_BIT        = Opcode(1 << 5)
)

// opcodeInfo is the static decode data of a known opcode.
type opcodeInfo struct {
	name   string
	setsPc bool
}

var opcodeTable = map[Opcode]opcodeInfo{
	NOP:  {"NOP", false},
	HLT:  {"HLT", false},
	RET:  {"RET", true},
	IRET: {"IRET", true},
	PRA:  {"PRA", false},
	PRN:  {"PRN", false},
	CALL: {"CALL", true},
	INT:  {"INT", false},
	POP:  {"POP", false},
	PUSH: {"PUSH", false},
	JMP:  {"JMP", true},
	JEQ:  {"JEQ", true},
	JNE:  {"JNE", true},
	JLT:  {"JLT", true},
	JGT:  {"JGT", true},
	NOT:  {"NOT", false},
	INC:  {"INC", false},
	DEC:  {"DEC", false},
	LD:   {"LD", false},
	LDI:  {"LDI", false},
	ST:   {"ST", false},
	CMP:  {"CMP", false},
	ADD:  {"ADD", false},
	SUB:  {"SUB", false},
	MUL:  {"MUL", false},
	DIV:  {"DIV", false},
	MOD:  {"MOD", false},
	OR:   {"OR", false},
	XOR:  {"XOR", false},
	AND:  {"AND", false},
}

// opcodeByName maps upper case mnemonics to opcodes.
var opcodeByName = func() map[string]Opcode {
	names := make(map[string]Opcode, len(opcodeTable))
	for op, info := range opcodeTable {
		names[info.name] = op
	}
	return names
}()

// String returns the mnemonic, or the hex value of an unknown opcode.
func (op Opcode) String() string {
	info, ok := opcodeTable[op]
	if !ok {
		return fmt.Sprintf("0x%02x", byte(op))
	}
	return info.name
}

// Operands returns the operand count encoded in the opcode.
func (op Opcode) Operands() int {
	return int(op >> OPCODE_OPERANDS_SHIFT)
}

// Instruction is a decoded opcode.
type Instruction struct {
	Opcode   Opcode // Opcode byte.
	Operands int    // Operand bytes following the opcode (0, 1 or 2).
	SetsPc   bool   // Instruction may take responsibility for PC.
	Alu      bool   // Instruction is executed by the ALU.
}

// Decode decodes an opcode byte.
func Decode(value byte) (inst Instruction, err error) {
	op := Opcode(value)
	info, ok := opcodeTable[op]
	if !ok {
		err = ErrOpcodeUnknown
		return
	}

	inst = Instruction{
		Opcode:   op,
		Operands: op.Operands(),
		SetsPc:   info.setsPc,
		Alu:      (op & OPCODE_ALU_BIT) != 0,
	}

	return
}

// Size returns the size in bytes of the encoded instruction.
func (inst Instruction) Size() int {
	return inst.Operands + 1
}

// Conditional returns true for jumps that depend on the flags.
func (inst Instruction) Conditional() bool {
	switch inst.Opcode {
	case JEQ, JNE, JGT, JLT:
		return true
	}
	return false
}

// Immediate returns true if operand n (0 or 1) is a literal, not a register index.
func (inst Instruction) Immediate(n int) bool {
	return inst.Opcode == LDI && n == 1
}

// String returns the mnemonic of the instruction.
func (inst Instruction) String() string {
	return inst.Opcode.String()
}

// Format returns the assembly text of the instruction with its operands.
func (inst Instruction) Format(operands ...byte) string {
	var args []string
	for n := range min(inst.Operands, len(operands)) {
		if inst.Immediate(n) {
			args = append(args, fmt.Sprintf("0x%02x", operands[n]))
		} else {
			args = append(args, fmt.Sprintf("R%d", operands[n]))
		}
	}

	if len(args) == 0 {
		return inst.String()
	}

	return inst.String() + " " + strings.Join(args, ",")
}

// Encode returns the machine bytes of the instruction.
func (inst Instruction) Encode(operands ...byte) (data []byte) {
	data = append(data, byte(inst.Opcode))
	data = append(data, operands...)
	return
}

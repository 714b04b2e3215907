package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assemble(t *testing.T, program ...string) (prog *Program) {
	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	require.NoError(t, err)
	return
}

func TestAssembler_Print8(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"; print8",
		"LDI R0,8",
		"PRN R0",
		"HLT",
	)

	assert.Equal([]byte{0b10011001, 0b00000000, 0b00001000, 0b01000011, 0b00000000, 0b00000001}, prog.Binary())
	assert.Len(prog.Statements, 3)
	assert.Equal(2, prog.Statements[0].LineNo)
	assert.Equal(3, prog.Statements[1].Address)
}

func TestAssembler_Syntax(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		line   string
		expect []byte
	}){
		{"lower", "ldi r1, 0x10", []byte{0x99, 1, 0x10}},
		{"spaces", "  ADD   R1  R2   ; add", []byte{0xa8, 1, 2}},
		{"binary", "LDI R2,0b1010", []byte{0x99, 2, 10}},
		{"negative", "LDI R2,-1", []byte{0x99, 2, 0xff}},
		{"invert", "LDI R3,~0x0f", []byte{0x99, 3, 0xf0}},
		{"char", "LDI R0,'A'", []byte{0x99, 0, 'A'}},
		{"char_escape", "LDI R0,'\\n'", []byte{0x99, 0, '\n'}},
		{"char_semicolon", "LDI R0,';' ; comment", []byte{0x99, 0, ';'}},
		{"alias", "PUSH SP", []byte{0x4d, 7}},
		{"alias_im", "LDI IM,INT_KEYBOARD", []byte{0x99, 5, 1}},
		{"expression", "LDI R0,$(VECTOR_TABLE + 2)", []byte{0x99, 0, 0xfa}},
		{"db", "DB 1, 2, 'c'", []byte{1, 2, 'c'}},
		{"ds", `DS "a;b, c"`, []byte{'a', ';', 'b', ',', ' ', 'c'}},
		{"ds_escape", `DS "x\ty\n"`, []byte{'x', '\t', 'y', '\n'}},
		{"noop", "NOP", []byte{0}},
	}

	for _, entry := range table {
		prog := assemble(t, entry.line)
		assert.Equal(entry.expect, prog.Binary(), entry.name)
	}
}

func TestAssembler_Labels(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	prog, err := asm.Parse(strings.NewReader(strings.Join([]string{
		"Main:",
		"  LDI R1,Sub", // forward reference
		"  CALL R1",
		"  HLT",
		"Sub: Also:",
		"  INC R0",
		"  RET",
		"Table: DB Sub, Also, $(Main + 1)",
	}, "\n")))
	assert.NoError(err)
	assert.Equal(0, asm.Label["Main"])
	assert.Equal(6, asm.Label["Sub"])
	assert.Equal(6, asm.Label["Also"])
	assert.Equal(9, asm.Label["Table"])
	assert.Equal([]byte{
		0x99, 1, 6, // LDI R1,Sub
		0x48, 1, // CALL R1
		0x01,    // HLT
		0x78, 0, // INC R0
		0x09,    // RET
		6, 6, 1, // Table
	}, prog.Binary())
}

func TestAssembler_Org(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		"LDI IM,1",
		"HLT",
		"Handler:",
		"  IRET",
		".org VECTOR_TABLE",
		"DB Handler",
	)

	image := prog.Binary()
	assert.Len(image, 0xf9)
	assert.Equal(byte(4), image[0xf8])
	assert.Equal(byte(0), image[0x10])

	dbg := prog.Debug(0xf8)
	assert.NotNil(dbg.Statement)
	assert.Equal(6, dbg.LineNo)
}

func TestAssembler_EquMacro(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		".equ COUNT 3",
		".equ DOUBLE $(COUNT * 2)",
		".macro SETADD rn a b",
		"LDI rn,a",
		"LDI R7,b",
		"ADD rn,R7",
		".endm",
		"SETADD R0 COUNT DOUBLE",
		"SETADD R1 'a' 1",
		"LDI R2,LINENO",
	)

	assert.Equal([]byte{
		0x99, 0, 3, 0x99, 7, 6, 0xa8, 0, 7,
		0x99, 1, 'a', 0x99, 7, 1, 0xa8, 1, 7,
		0x99, 2, 10,
	}, prog.Binary())
}

func TestAssembler_MacroLocalLabels(t *testing.T) {
	assert := assert.New(t)

	prog := assemble(t,
		".macro SKIP",
		"LDI R0,@next",
		"JMP R0",
		"@next:",
		".endm",
		"SKIP",
		"SKIP",
		"HLT",
	)

	assert.Equal([]byte{
		0x99, 0, 5, 0x50, 0,
		0x99, 0, 10, 0x50, 0,
		0x01,
	}, prog.Binary())
}

func TestAssembler_Errors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []string
		err     error
		lineno  int
	}){
		{"invalid", []string{"NOP", "FOO R0"}, ErrInstructionInvalid, 2},
		{"extra", []string{"HLT R0"}, ErrOpcodeExtraArgs, 1},
		{"missing", []string{"LDI R0"}, ErrOpcodeValueMissing, 1},
		{"register", []string{"PRN R8"}, ErrParseRegister("R8"), 1},
		{"label_dup", []string{"A:", "A:"}, ErrLabelDuplicate, 2},
		{"label_missing", []string{"NOP", "LDI R0,Nowhere"}, ErrLabelMissing("Nowhere"), 2},
		{"label_range", []string{"LDI R0,Far", ".org 0x100", "Far: HLT"}, ErrLabelRange, 1},
		{"equ_dup", []string{".equ A 1", ".equ A 2"}, ErrEquateDuplicate, 2},
		{"equ_syntax", []string{".equ A"}, ErrEquateSyntax, 1},
		{"macro_nest", []string{".macro A", ".macro B"}, ErrMacroNesting, 2},
		{"macro_dup", []string{".macro A", ".endm", ".macro A"}, ErrMacroDuplicate, 3},
		{"macro_lonely", []string{".macro A", "NOP"}, ErrMacroLonely, 2},
		{"endm_lonely", []string{".endm"}, ErrMacroLonelyEndm, 1},
		{"macro_args", []string{".macro A x", ".endm", "A"}, ErrMacroSyntax, 3},
		{"org_back", []string{"NOP", "NOP", ".org 1"}, ErrOrgBackward, 3},
		{"org_syntax", []string{".org"}, ErrOrgSyntax, 1},
		{"string", []string{`DS "open`}, ErrStringSyntax, 1},
		{"db_empty", []string{"DB"}, ErrOpcodeValueMissing, 1},
		{"db_range", []string{"DB 0x100"}, ErrParseNumber("0x100"), 1},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(strings.Join(entry.program, "\n")))
		assert.ErrorIs(err, entry.err, entry.name)
		var syntax ErrSyntax
		if assert.True(errors.As(err, &syntax), entry.name) {
			assert.Equal(entry.lineno, syntax.LineNo, entry.name)
		}
	}
}

func TestAssembler_MacroError(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader(".macro BAD\nPRN R9\n.endm\nBAD\n"))
	assert.ErrorIs(err, ErrParseRegister("R9"))
	var macro ErrMacro
	if assert.True(errors.As(err, &macro)) {
		assert.Equal("BAD", macro.Macro)
		assert.Equal(2, macro.Line)
	}
}

func TestAssembler_ExpressionError(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader("LDI R0,$(1 +)"))
	assert.Error(err)

	_, err = asm.Parse(strings.NewReader("LDI R0,$(True)"))
	assert.ErrorIs(err, ErrParseExpression("True"))
}

func TestAssembler_Predefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("LIMIT", "0x20")
	asm.Predefine("LIMIT", "0x30")

	prog, err := asm.Parse(strings.NewReader("LDI R0,LIMIT\nLDI R1,$(LIMIT + 1)"))
	assert.NoError(err)
	assert.Equal([]byte{0x99, 0, 0x30, 0x99, 1, 0x31}, prog.Binary())
}

func TestAssembler_Reuse(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader("A: NOP\n.equ X 1\n"))
	assert.NoError(err)

	// Labels and equates do not survive to the next parse.
	prog, err := asm.Parse(strings.NewReader("A: HLT\n.equ X 2\n"))
	assert.NoError(err)
	assert.Equal([]byte{0x01}, prog.Binary())
}

func TestAssembler_Run(t *testing.T) {
	assert := assert.New(t)

	// Count down from 5, printing each value, via a subroutine.
	prog := assemble(t,
		"    LDI R0,5",
		"    LDI R1,0",
		"    LDI R2,Print",
		"    LDI R3,Loop",
		"    LDI R4,Done",
		"Loop:",
		"    CALL R2",
		"    DEC R0",
		"    CMP R0,R1",
		"    JEQ R4",
		"    JMP R3",
		"Done:",
		"    LDI R0,'!'",
		"    PRA R0",
		"    HLT",
		"Print:",
		"    PRN R0",
		"    RET",
	)

	cpu, out := newTestCpu(t, prog.Binary()...)
	assert.NoError(runCpu(t, cpu))
	assert.Equal("5\n4\n3\n2\n1\n!", out.Text())
}

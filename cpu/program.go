package cpu

import (
	"fmt"
	"io"
	"iter"
	"strings"

	ls8io "github.com/ezrec/ls8/io"
)

// Statement represents a line of assembled code with its source location and generated bytes.
type Statement struct {
	LineNo  int            // Source line number.
	Address int            // Address of the first byte.
	Words   []string       // Source words.
	Bytes   []byte         // Generated bytes.
	Links   map[int]string // Byte offsets to fill with label addresses.
}

// Program is an assembled LS-8 program.
type Program struct {
	Statements []Statement
}

// Debug locates the statement that generated a memory address.
type Debug struct {
	*Statement
	Index int // Offset of the address in the statement.
}

func (prog *Program) Debug(addr uint) (dbg Debug) {
	for n, stmt := range prog.Statements {
		start := uint(stmt.Address)
		if addr >= start && addr < start+uint(len(stmt.Bytes)) {
			dbg = Debug{
				Statement: &prog.Statements[n],
				Index:     int(addr - start),
			}
			break
		}
	}

	return
}

// Size returns the extent of the program image.
func (prog *Program) Size() (size int) {
	for _, stmt := range prog.Statements {
		size = max(size, stmt.Address+len(stmt.Bytes))
	}
	return
}

// Binary returns the memory image of the program, starting at address 0.
// Gaps left by .org are zero filled.
func (prog *Program) Binary() (data []byte) {
	data = make([]byte, prog.Size())
	for addr, value := range prog.Bytes() {
		data[addr] = value
	}

	return
}

// Bytes iterates over every generated byte and its address.
func (prog *Program) Bytes() iter.Seq2[uint, byte] {
	return func(yield func(addr uint, value byte) bool) {
		for _, stmt := range prog.Statements {
			addr := uint(stmt.Address)
			for n, value := range stmt.Bytes {
				if !yield(addr+uint(n), value) {
					return
				}
			}
		}
	}
}

// WriteText writes the program as a `.ls8` image, each statement
// annotated with its source.
func (prog *Program) WriteText(w io.Writer) (err error) {
	return ls8io.Save(w, prog.Binary(), func(addr int) string {
		dbg := prog.Debug(uint(addr))
		if dbg.Statement == nil || dbg.Index != 0 {
			return ""
		}
		return fmt.Sprintf("%v: %v", dbg.LineNo, strings.Join(dbg.Words, " "))
	})
}

// Disassemble iterates over the instructions in a memory image.
// Bytes that do not decode are shown as DB data.
func Disassemble(mem []byte) iter.Seq2[uint, string] {
	return func(yield func(addr uint, text string) bool) {
		for addr := 0; addr < len(mem); {
			inst, err := Decode(mem[addr])
			if err != nil || addr+inst.Size() > len(mem) {
				if !yield(uint(addr), fmt.Sprintf("DB 0x%02x", mem[addr])) {
					return
				}
				addr++
				continue
			}

			if !yield(uint(addr), inst.Format(mem[addr+1:addr+inst.Size()]...)) {
				return
			}
			addr += inst.Size()
		}
	}
}

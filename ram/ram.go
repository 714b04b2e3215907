// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package ram

import (
	"fmt"
	"log"
	"slices"
	"strings"
)

const (
	DEFAULT_SIZE = 256 // Size of a stock LS-8 memory.
)

// Ram is the main memory of the LS-8.
type Ram struct {
	Cell    []byte // Memory cells.
	Verbose bool   // Set to log every write.

	Reads  int // Number of successful reads.
	Writes int // Number of successful writes.
}

// NewRam creates a new zeroed memory of size cells.
func NewRam(size uint) (mem *Ram) {
	mem = &Ram{
		Cell: make([]byte, size),
	}

	return
}

// Size returns the number of addressable cells.
func (mem *Ram) Size() uint {
	return uint(len(mem.Cell))
}

// Reset zeros all cells and statistics.
func (mem *Ram) Reset() {
	clear(mem.Cell)
	mem.Reads = 0
	mem.Writes = 0
}

func (mem *Ram) check(addr uint) (err error) {
	if addr >= mem.Size() {
		err = &ErrAddress{Address: addr, Size: mem.Size()}
	}
	return
}

// Read returns the cell at addr.
func (mem *Ram) Read(addr uint) (value byte, err error) {
	err = mem.check(addr)
	if err != nil {
		return
	}

	value = mem.Cell[addr]
	mem.Reads++
	return
}

// Write stores the low 8 bits of value at addr.
func (mem *Ram) Write(addr uint, value uint) (err error) {
	err = mem.check(addr)
	if err != nil {
		return
	}

	if mem.Verbose {
		log.Printf("ram: [%02x] <- %02x", addr, byte(value))
	}

	mem.Cell[addr] = byte(value)
	mem.Writes++
	return
}

// Load copies data into memory starting at base.
// Nothing is written unless the whole span fits.
func (mem *Ram) Load(base uint, data []byte) (err error) {
	if len(data) == 0 {
		return
	}

	err = mem.check(base + uint(len(data)) - 1)
	if err != nil {
		return
	}

	copy(mem.Cell[base:], data)
	return
}

// Bytes returns a copy of the memory contents.
func (mem *Ram) Bytes() []byte {
	return slices.Clone(mem.Cell)
}

// String returns a hex dump of memory, 16 cells per row.
func (mem *Ram) String() string {
	var sb strings.Builder
	for row := 0; row < len(mem.Cell); row += 16 {
		end := min(row+16, len(mem.Cell))
		fmt.Fprintf(&sb, "%04x:", row)
		for _, cell := range mem.Cell[row:end] {
			fmt.Fprintf(&sb, " %02x", cell)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
	"math/bits"

	"github.com/ezrec/ls8/io"
	"github.com/ezrec/ls8/ram"
)

// Output receives the values printed by PRN and PRA.
type Output io.Output

// State is the execution state of the CPU.
type State int

const (
	STATE_RUNNING = State(0)
	STATE_HALTED  = State(1)
	STATE_FAULTED = State(2)
)

func (state State) String() string {
	switch state {
	case STATE_RUNNING:
		return "running"
	case STATE_HALTED:
		return "halted"
	case STATE_FAULTED:
		return "faulted"
	}
	return fmt.Sprintf("State(%d)", int(state))
}

var _cpu_defines = map[string]string{
	"IM":           "R5",
	"IS":           "R6",
	"SP":           "R7",
	"STACK_TOP":    fmt.Sprintf("0x%02x", STACK_TOP),
	"KEY_BUFFER":   fmt.Sprintf("0x%02x", KEY_BUFFER),
	"VECTOR_TABLE": fmt.Sprintf("0x%02x", VECTOR_TABLE),
	"INT_TIMER":    fmt.Sprintf("%d", INT_TIMER),
	"INT_KEYBOARD": fmt.Sprintf("%d", INT_KEYBOARD),
	"FLAG_EQUAL":   fmt.Sprintf("%d", FLAG_EQUAL),
	"FLAG_GREATER": fmt.Sprintf("%d", FLAG_GREATER),
	"FLAG_LESS":    fmt.Sprintf("%d", FLAG_LESS),
}

// Step describes the last instruction executed by the CPU.
type Step struct {
	Tick        int         // Tick number of the step.
	Pc          uint        // Address of the instruction.
	Instruction Instruction // Decoded instruction.
	Operand     [2]byte     // Operand bytes, as fetched.
	Interrupt   int         // Interrupt line dispatched before the fetch, or -1.
}

// String returns the step as assembly text.
func (step Step) String() string {
	return fmt.Sprintf("%02x: %v", step.Pc, step.Instruction.Format(step.Operand[:]...))
}

// undo is a memory cell to restore when a step faults.
type undo struct {
	addr  uint
	value byte
}

// Cpu is the simulation context for the LS-8 processor.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Ram    *ram.Ram // Main memory.
	Output Output   // Destination of PRN and PRA; nil discards.

	Registers // Register file.

	Interrupts bool // Interrupts are serviced in this session.
	Ie         bool // Interrupt enable latch; cleared on dispatch, set by IRET.

	State State // Execution state.
	Fault error // Reason for STATE_FAULTED.

	Ticks int  // CPU ticks counter.
	Last  Step // Last completed step.

	journal []undo
}

// NewCpu creates a new CPU attached to mem.
func NewCpu(mem *ram.Ram) (cpu *Cpu) {
	cpu = &Cpu{
		Ram:        mem,
		Interrupts: true,
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// Reset the CPU state. Memory is left untouched.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	cpu.Registers.Reset()
	cpu.Ie = true
	cpu.State = STATE_RUNNING
	cpu.Fault = nil
	cpu.Ticks = 0
	cpu.Last = Step{Interrupt: -1}
	cpu.journal = cpu.journal[:0]
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text = fmt.Sprintf("state: %v\n   ie: %v\n", cpu.State, cpu.Ie)
	text += cpu.Registers.String()

	top, err := cpu.Peek()
	if err != nil || cpu.Depth() == 0 {
		text += "stack: --\n"
	} else {
		text += fmt.Sprintf("stack: %02x (depth %d)\n", top, cpu.Depth())
	}

	return
}

// RaiseInterrupt sets the status bit of an interrupt line.
func (cpu *Cpu) RaiseInterrupt(line uint) (err error) {
	if line >= VECTOR_COUNT {
		err = ErrInterruptLine
		return
	}

	cpu.Registers.Set(REG_IS, uint(cpu.Registers.Get(REG_IS))|(1<<line))
	return
}

// read reads memory for the current step.
func (cpu *Cpu) read(addr uint) (value byte, err error) {
	return cpu.Ram.Read(addr)
}

// write writes memory for the current step, remembering the prior value.
func (cpu *Cpu) write(addr uint, value uint) (err error) {
	prior, err := cpu.Ram.Read(addr)
	if err != nil {
		return
	}

	err = cpu.Ram.Write(addr, value)
	if err != nil {
		return
	}

	cpu.journal = append(cpu.journal, undo{addr: addr, value: prior})
	return
}

// rollback restores memory changed by the current step.
func (cpu *Cpu) rollback() {
	for n := len(cpu.journal) - 1; n >= 0; n-- {
		entry := cpu.journal[n]
		cpu.Ram.Cell[entry.addr] = entry.value
	}
	cpu.journal = cpu.journal[:0]
}

// Tick executes a single CPU instruction cycle.
//
// A step either completes, or faults and leaves registers and memory as
// they were before the step.
func (cpu *Cpu) Tick() (err error) {
	switch cpu.State {
	case STATE_HALTED:
		return ErrHalted
	case STATE_FAULTED:
		return cpu.Fault
	}

	saved := cpu.Registers
	savedIe := cpu.Ie
	cpu.journal = cpu.journal[:0]

	step := Step{Tick: cpu.Ticks, Interrupt: -1}

	defer func() {
		if err != nil {
			err = &ErrFault{Pc: step.Pc, Opcode: byte(step.Instruction.Opcode), Err: err}
			cpu.rollback()
			cpu.Registers = saved
			cpu.Ie = savedIe
			cpu.State = STATE_FAULTED
			cpu.Fault = err
			if cpu.Verbose {
				log.Printf("cpu: %v", err)
			}
		}
	}()

	if cpu.Interrupts && cpu.Ie {
		step.Interrupt, err = cpu.interrupt()
		if err != nil {
			step.Pc = cpu.Pc
			return
		}
	}

	step.Pc = cpu.Pc
	step.Instruction, step.Operand, err = cpu.Fetch()
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("%v", step)
	}

	err = cpu.Execute(step.Instruction, step.Operand[0], step.Operand[1])
	if err != nil {
		return
	}

	cpu.Ticks++
	cpu.Last = step

	return
}

// interrupt dispatches the lowest pending, unmasked interrupt line.
// Returns -1 when nothing was dispatched.
func (cpu *Cpu) interrupt() (line int, err error) {
	line = -1

	pending := cpu.Registers.Get(REG_IS) & cpu.Registers.Get(REG_IM)
	if pending == 0 {
		return
	}

	n := bits.TrailingZeros8(pending)

	cpu.Ie = false
	cpu.Registers.Set(REG_IS, uint(cpu.Registers.Get(REG_IS)&^(1<<n)))

	err = cpu.PushPc(cpu.Pc)
	if err != nil {
		return
	}

	err = cpu.Push(uint(cpu.Fl))
	if err != nil {
		return
	}

	for r := byte(0); r < REG_SP; r++ {
		err = cpu.Push(uint(cpu.Registers.Get(r)))
		if err != nil {
			return
		}
	}

	vector, err := cpu.read(VECTOR_TABLE + uint(n))
	if err != nil {
		return
	}

	if cpu.Verbose {
		log.Printf("cpu: interrupt %d -> %02x", n, vector)
	}

	cpu.Pc = uint(vector)
	line = n

	return
}

// Fetch reads and decodes the instruction at PC.
func (cpu *Cpu) Fetch() (inst Instruction, operand [2]byte, err error) {
	value, err := cpu.read(cpu.Pc)
	if err != nil {
		return
	}

	inst, err = Decode(value)
	if err != nil {
		inst.Opcode = Opcode(value)
		return
	}

	for n := range inst.Operands {
		operand[n], err = cpu.read(cpu.Pc + 1 + uint(n))
		if err != nil {
			return
		}
	}

	return
}

// register checks that operand n of inst is a register index.
func (cpu *Cpu) register(inst Instruction, n int, index byte) (err error) {
	if n >= inst.Operands || inst.Immediate(n) || cpu.Registers.Valid(index) {
		return
	}

	if n == 0 {
		err = errors.Join(ErrOpcodeArg1, ErrRegisterInvalid)
	} else {
		err = errors.Join(ErrOpcodeArg2, ErrRegisterInvalid)
	}
	return
}

// branch decides whether a conditional jump is taken.
func (cpu *Cpu) branch(op Opcode) (taken bool, err error) {
	compare := cpu.Fl & FLAG_COMPARE
	if bits.OnesCount8(compare) > 1 {
		err = ErrFlagState
		return
	}

	switch op {
	case JEQ:
		taken = cpu.CheckFlag(FLAG_EQUAL)
	case JNE:
		taken = !cpu.CheckFlag(FLAG_EQUAL)
	case JGT:
		taken = cpu.CheckFlag(FLAG_GREATER)
	case JLT:
		taken = cpu.CheckFlag(FLAG_LESS)
	}

	return
}

// Execute executes a single decoded instruction.
func (cpu *Cpu) Execute(inst Instruction, a, b byte) (err error) {
	err = cpu.register(inst, 0, a)
	if err != nil {
		return
	}
	err = cpu.register(inst, 1, b)
	if err != nil {
		return
	}

	regs := &cpu.Registers
	next_pc := cpu.Pc + uint(inst.Size())

	// Control flow target; only honored for instructions that set PC.
	var target uint
	var taken bool

	switch inst.Opcode {
	case HLT:
		cpu.State = STATE_HALTED
	case NOP:
		// pass
	case LDI:
		regs.Set(a, uint(b))
	case LD:
		var value byte
		value, err = cpu.read(uint(regs.Get(b)))
		if err != nil {
			return
		}
		regs.Set(a, uint(value))
	case ST:
		err = cpu.write(uint(regs.Get(a)), uint(regs.Get(b)))
		if err != nil {
			return
		}
	case PUSH:
		err = cpu.Push(uint(regs.Get(a)))
		if err != nil {
			return
		}
	case POP:
		var value byte
		value, err = cpu.Pop()
		if err != nil {
			return
		}
		regs.Set(a, uint(value))
	case CALL:
		err = cpu.PushPc(next_pc)
		if err != nil {
			return
		}
		target, taken = uint(regs.Get(a)), true
	case RET:
		var value byte
		value, err = cpu.Pop()
		if err != nil {
			return
		}
		target, taken = uint(value), true
	case INT:
		regs.Set(REG_IS, uint(regs.Get(REG_IS))|(1<<(regs.Get(a)&7)))
	case IRET:
		var value byte
		for r := int(REG_SP) - 1; r >= 0; r-- {
			value, err = cpu.Pop()
			if err != nil {
				return
			}
			regs.Set(byte(r), uint(value))
		}
		value, err = cpu.Pop()
		if err != nil {
			return
		}
		regs.Fl = value
		value, err = cpu.Pop()
		if err != nil {
			return
		}
		target, taken = uint(value), true
		cpu.Ie = true
	case JMP:
		target, taken = uint(regs.Get(a)), true
	case PRN:
		if cpu.Output != nil {
			err = cpu.Output.Number(regs.Get(a))
		}
	case PRA:
		if cpu.Output != nil {
			err = cpu.Output.Char(regs.Get(a))
		}
	default:
		if inst.Conditional() {
			taken, err = cpu.branch(inst.Opcode)
			if err != nil {
				return
			}
			target = uint(regs.Get(a))
			break
		}
		if !inst.Alu {
			err = ErrOpcodeUnknown
			return
		}
		err = Alu(regs, inst.Opcode, a, b)
	}

	if err != nil {
		return
	}

	if inst.SetsPc && taken {
		next_pc = target
	}

	cpu.Pc = next_pc

	return
}

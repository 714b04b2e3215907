package cpu

// Push decrements SP and writes value at the new SP.
func (cpu *Cpu) Push(value uint) (err error) {
	sp := uint(cpu.Registers.Get(REG_SP)) - 1
	cpu.Registers.Set(REG_SP, sp)

	err = cpu.write(uint(cpu.Registers.Get(REG_SP)), value)
	return
}

// PushPc pushes a return address. The stack holds bytes, so a PC
// beyond 0xff cannot be saved and faults with ErrPcRange.
func (cpu *Cpu) PushPc(pc uint) (err error) {
	if pc > 0xff {
		err = ErrPcRange
		return
	}

	err = cpu.Push(pc)
	return
}

// Pop reads the value at SP and increments SP.
func (cpu *Cpu) Pop() (value byte, err error) {
	value, err = cpu.Peek()
	if err != nil {
		return
	}

	cpu.Registers.Set(REG_SP, uint(cpu.Registers.Get(REG_SP))+1)
	return
}

// Peek reads the value at SP.
func (cpu *Cpu) Peek() (value byte, err error) {
	return cpu.Ram.Read(uint(cpu.Registers.Get(REG_SP)))
}

// Depth returns the number of bytes on the stack, relative to STACK_TOP.
func (cpu *Cpu) Depth() int {
	return int(byte(STACK_TOP - cpu.Registers.Get(REG_SP)))
}

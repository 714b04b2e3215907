// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/internal"
	ls8io "github.com/ezrec/ls8/io"
	"github.com/ezrec/ls8/ram"
	"github.com/ezrec/ls8/trace"
)

// errStopped ends the clock and timer tasks when the CPU stops.
var errStopped = errors.New("stopped")

// Emulator state. CPU + RAM + clock and timer drivers.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Ram      *ram.Ram     // Main memory.
	Program  *cpu.Program // Listing of the loaded program, if it was assembled.
	Config   Config       // Session options.
	Trace    *trace.Trace // If set, records every completed step.

	lock  sync.Mutex
	image []byte
}

// NewEmulator creates a new emulator.
func NewEmulator(cfg Config) (emu *Emulator) {
	if cfg.MemorySize == 0 {
		cfg.MemorySize = ram.DEFAULT_SIZE
	}

	mem := ram.NewRam(cfg.MemorySize)

	emu = &Emulator{
		Verbose: cfg.Verbose,
		Cpu:     cpu.NewCpu(mem),
		Ram:     mem,
		Program: &cpu.Program{},
		Config:  cfg,
	}

	emu.Cpu.Interrupts = cfg.Interrupts
	emu.Cpu.Output = &ls8io.Console{Output: os.Stdout}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	defines := map[string]string{
		"MEMORY_SIZE": fmt.Sprintf("%v", emu.Ram.Size()),
	}

	return internal.IterSeq2Concat(maps.All(defines),
		emu.Cpu.Defines(),
	)
}

// Assembler returns an assembler with the session defines predefined.
func (emu *Emulator) Assembler() (asm *cpu.Assembler) {
	asm = &cpu.Assembler{Verbose: emu.Verbose}
	for key, value := range emu.Defines() {
		asm.Predefine(key, value)
	}

	return
}

// Assemble assembles source text and loads the program.
func (emu *Emulator) Assemble(input io.Reader) (err error) {
	prog, err := emu.Assembler().Parse(input)
	if err != nil {
		return
	}

	err = emu.LoadProgram(prog)
	return
}

// LoadProgram loads an assembled program.
func (emu *Emulator) LoadProgram(prog *cpu.Program) (err error) {
	err = emu.Load(prog.Binary())
	if err != nil {
		return
	}

	emu.Program = prog
	return
}

// Load places a program image at address 0 and resets the CPU.
func (emu *Emulator) Load(image []byte) (err error) {
	if len(image) == 0 {
		err = ls8io.ErrProgramEmpty
		return
	}

	if uint(len(image)) > emu.Ram.Size() {
		err = &ram.ErrAddress{Address: uint(len(image)) - 1, Size: emu.Ram.Size()}
		return
	}

	emu.image = slices.Clone(image)
	emu.Program = &cpu.Program{}

	err = emu.Reset()
	return
}

// Reset restores the loaded program image and the power-on CPU state.
func (emu *Emulator) Reset() (err error) {
	emu.lock.Lock()
	defer emu.lock.Unlock()

	if emu.Verbose {
		log.Printf("emulator: reset (%d bytes)", len(emu.image))
	}

	emu.Ram.Reset()
	err = emu.Ram.Load(0, emu.image)
	if err != nil {
		return
	}

	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset()

	if emu.Trace != nil {
		emu.Trace.Reset()
	}

	return
}

// LineNo returns the source line of the instruction at pc, or zero.
func (emu *Emulator) LineNo(pc uint) int {
	dbg := emu.Program.Debug(pc)
	if dbg.Statement == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single step of the emulator.
// done is set once the CPU is no longer running.
func (emu *Emulator) Tick() (done bool, err error) {
	emu.lock.Lock()
	defer emu.lock.Unlock()

	return emu.tick()
}

func (emu *Emulator) tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	pc := emu.Cpu.Pc
	ticks := emu.Cpu.Ticks

	defer func() {
		if err != nil {
			var fault *cpu.ErrFault
			if errors.As(err, &fault) {
				pc = fault.Pc
			}
			err = &ErrRuntime{Pc: pc, Tick: ticks, LineNo: emu.LineNo(pc), Err: err}
		}
	}()

	if emu.Config.MaxTicks > 0 && ticks >= emu.Config.MaxTicks {
		err = ErrTickLimit
		return
	}

	err = emu.Cpu.Tick()
	done = emu.Cpu.State != cpu.STATE_RUNNING
	if errors.Is(err, cpu.ErrHalted) {
		err = nil
		return
	}
	if err != nil {
		return
	}

	if emu.Trace != nil {
		emu.Trace.Record(emu.Cpu)
	}

	return
}

// RaiseInterrupt requests service on an interrupt line.
func (emu *Emulator) RaiseInterrupt(line uint) (err error) {
	emu.lock.Lock()
	defer emu.lock.Unlock()

	if emu.Verbose {
		log.Printf("emulator: raise %d", line)
	}

	return emu.Cpu.RaiseInterrupt(line)
}

// KeyPress stores a key in the key buffer and raises the keyboard interrupt.
func (emu *Emulator) KeyPress(key byte) (err error) {
	emu.lock.Lock()
	defer emu.lock.Unlock()

	err = emu.Ram.Write(cpu.KEY_BUFFER, uint(key))
	if err != nil {
		return
	}

	return emu.Cpu.RaiseInterrupt(cpu.INT_KEYBOARD)
}

// Run executes the program until it halts, faults, or ctx is cancelled.
//
// The instruction clock and the timer run as separate tasks. A halt
// returns nil; a fault returns its *ErrRuntime.
func (emu *Emulator) Run(ctx context.Context) (err error) {
	grp, ctx := errgroup.WithContext(ctx)

	grp.Go(func() error {
		return emu.clock(ctx)
	})

	if emu.Config.Interrupts && emu.Config.TimerPeriod > 0 {
		grp.Go(func() error {
			return emu.timer(ctx)
		})
	}

	err = grp.Wait()
	if errors.Is(err, errStopped) {
		err = nil
	}

	return
}

// clock ticks the CPU, paced by ClockPeriod.
func (emu *Emulator) clock(ctx context.Context) (err error) {
	var pace <-chan time.Time
	if emu.Config.ClockPeriod > 0 {
		ticker := time.NewTicker(emu.Config.ClockPeriod)
		defer ticker.Stop()
		pace = ticker.C
	}

	for {
		if pace == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		} else {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-pace:
			}
		}

		var done bool
		done, err = emu.Tick()
		if err != nil {
			return
		}
		if done {
			return errStopped
		}
	}
}

// timer raises the timer interrupt every TimerPeriod.
func (emu *Emulator) timer(ctx context.Context) (err error) {
	ticker := time.NewTicker(emu.Config.TimerPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err = emu.RaiseInterrupt(emu.Config.TimerLine)
			if err != nil {
				return
			}
		}
	}
}

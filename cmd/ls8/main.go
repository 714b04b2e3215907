// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/emulator"
	ls8io "github.com/ezrec/ls8/io"
	"github.com/ezrec/ls8/trace"
	"github.com/ezrec/ls8/translate"
)

var f = translate.From

var (
	ErrUsage = errors.New(f("program file required"))
)

// runOptions are the flags of the run command.
type runOptions struct {
	config   emulator.Config
	noIrq    bool
	keyboard bool
	trace    string
}

// addRunFlags registers the session flags on flags.
func addRunFlags(flags *pflag.FlagSet, opts *runOptions) {
	opts.config = emulator.DefaultConfig()

	flags.UintVar(&opts.config.MemorySize, "memory", opts.config.MemorySize, "Memory size in bytes")
	flags.DurationVar(&opts.config.ClockPeriod, "clock", 0, "Time per instruction (0 = unpaced)")
	flags.DurationVar(&opts.config.TimerPeriod, "timer", opts.config.TimerPeriod, "Timer interrupt period (0 = no timer)")
	flags.BoolVar(&opts.noIrq, "no-interrupts", false, "Do not service interrupts")
	flags.BoolVar(&opts.keyboard, "keyboard", false, "Raise the keyboard interrupt for each byte of standard input")
	flags.IntVar(&opts.config.MaxTicks, "max-ticks", 0, "Stop after this many instructions (0 = unbounded)")
	flags.StringVar(&opts.trace, "trace", "", "Write an execution trace (.csv or .parquet)")
	flags.BoolVarP(&opts.config.Verbose, "verbose", "v", false, "Verbose mode")
}

// load reads a program into emu; `.asm` files are assembled first.
func load(emu *emulator.Emulator, path string) (err error) {
	if strings.ToLower(filepath.Ext(path)) == ".asm" {
		var inf *os.File
		inf, err = os.Open(path)
		if err != nil {
			return
		}
		defer inf.Close()

		err = emu.Assemble(inf)
		if err != nil {
			err = fmt.Errorf("%v: %w", path, err)
		}
		return
	}

	image, err := ls8io.LoadFile(path)
	if err != nil {
		return
	}

	err = emu.Load(image)
	return
}

// assemble parses an assembly source file, with the defines of a
// session configured as cfg.
func assemble(path string, cfg emulator.Config) (prog *cpu.Program, err error) {
	inf, err := os.Open(path)
	if err != nil {
		return
	}
	defer inf.Close()

	asm := emulator.NewEmulator(cfg).Assembler()
	prog, err = asm.Parse(inf)
	if err != nil {
		err = fmt.Errorf("%v: %w", path, err)
	}
	return
}

// keyboard forwards input bytes as key presses until input ends.
func keyboard(ctx context.Context, emu *emulator.Emulator, input io.Reader) {
	rd := bufio.NewReader(input)
	for ctx.Err() == nil {
		key, err := rd.ReadByte()
		if err != nil {
			return
		}
		err = emu.KeyPress(key)
		if err != nil {
			log.Printf("keyboard: %v", err)
			return
		}
	}
}

// run executes a program file.
func run(cmd *cobra.Command, args []string, opts *runOptions) (err error) {
	if len(args) == 0 {
		err = ErrUsage
		return
	}

	cfg := opts.config
	cfg.Interrupts = !opts.noIrq

	emu := emulator.NewEmulator(cfg)
	emu.Output = &ls8io.Console{Output: cmd.OutOrStdout()}
	if len(opts.trace) != 0 {
		emu.Trace = trace.NewTrace()
		emu.Trace.Verbose = cfg.Verbose
	}

	err = load(emu, args[0])
	if err != nil {
		return
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	if opts.keyboard {
		go keyboard(ctx, emu, cmd.InOrStdin())
	}

	err = emu.Run(ctx)

	if emu.Trace != nil {
		err = errors.Join(err, emu.Trace.Save(context.Background(), opts.trace))
	}

	if cfg.Verbose {
		log.Printf("%v", emu.Cpu)
	}

	return
}

func newRunCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run PROGRAM",
		Short: "Run a .ls8 program image or .asm source",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}
	addRunFlags(cmd.Flags(), opts)

	return cmd
}

func newAsmCmd() *cobra.Command {
	var output string
	cfg := emulator.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "asm SOURCE",
		Short: "Assemble source into a .ls8 program image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			prog, err := assemble(args[0], cfg)
			if err != nil {
				return
			}

			if len(output) == 0 {
				return prog.WriteText(cmd.OutOrStdout())
			}

			ouf, err := os.Create(output)
			if err != nil {
				return
			}
			defer func() {
				cerr := ouf.Close()
				if err == nil {
					err = cerr
				}
			}()

			err = prog.WriteText(ouf)
			return
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output .ls8 file (default standard output)")
	cmd.Flags().UintVar(&cfg.MemorySize, "memory", cfg.MemorySize, "Memory size in bytes, for MEMORY_SIZE")
	cmd.Flags().BoolVarP(&cfg.Verbose, "verbose", "v", false, "Verbose mode")

	return cmd
}

func newDisasmCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disasm PROGRAM",
		Short: "Disassemble a .ls8 program image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			image, err := ls8io.LoadFile(args[0])
			if err != nil {
				return
			}

			out := cmd.OutOrStdout()
			for addr, text := range cpu.Disassemble(image) {
				_, err = fmt.Fprintf(out, "%02x: %v\n", addr, text)
				if err != nil {
					return
				}
			}
			return
		},
	}

	return cmd
}

// newRootCmd builds the command tree; `ls8 PROGRAM` is short for `ls8 run PROGRAM`.
func newRootCmd(stdout io.Writer) *cobra.Command {
	opts := &runOptions{}

	root := &cobra.Command{
		Use:           "ls8 [PROGRAM]",
		Short:         "LS-8 8-bit computer emulator",
		Args:          cobra.MaximumNArgs(1),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, args, opts)
		},
	}
	addRunFlags(root.Flags(), opts)

	root.AddCommand(newRunCmd(), newAsmCmd(), newDisasmCmd())
	root.SetOut(stdout)

	return root
}

func main() {
	cmd := newRootCmd(os.Stdout)

	err := cmd.Execute()
	if errors.Is(err, ErrUsage) {
		log.Printf("%v: %v", os.Args[0], err)
		fmt.Fprint(os.Stderr, cmd.UsageString())
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%v: %v", os.Args[0], err)
	}
}

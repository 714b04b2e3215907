package trace

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"strings"

	dataframe "github.com/rocketlaunchr/dataframe-go"
	"github.com/rocketlaunchr/dataframe-go/exports"
	"github.com/xitongsys/parquet-go-source/local"

	"github.com/ezrec/ls8/cpu"
)

const (
	COLUMN_TICK        = "tick"
	COLUMN_PC          = "pc"
	COLUMN_INSTRUCTION = "instruction"
	COLUMN_A           = "a"
	COLUMN_B           = "b"
	COLUMN_INTERRUPT   = "interrupt"
	COLUMN_FL          = "fl"
)

// Trace is a table of completed CPU steps, one row per step.
//
// Columns are the tick, the address and text of the instruction, its raw
// operand bytes, the interrupt line dispatched before it (-1 if none), and
// the register file after the step.
type Trace struct {
	Verbose bool

	frame *dataframe.DataFrame
}

// NewTrace creates an empty trace.
func NewTrace() (tr *Trace) {
	tr = &Trace{}
	tr.Reset()
	return
}

// Columns returns the column names, in order.
func Columns() (names []string) {
	names = []string{COLUMN_TICK, COLUMN_PC, COLUMN_INSTRUCTION, COLUMN_A, COLUMN_B, COLUMN_INTERRUPT}
	for n := range cpu.REG_COUNT {
		names = append(names, fmt.Sprintf("r%d", n))
	}
	names = append(names, COLUMN_FL)
	return
}

// Reset discards all recorded steps.
func (tr *Trace) Reset() {
	var series []dataframe.Series
	for _, name := range Columns() {
		if name == COLUMN_INSTRUCTION {
			series = append(series, dataframe.NewSeriesString(name, nil))
		} else {
			series = append(series, dataframe.NewSeriesInt64(name, nil))
		}
	}
	tr.frame = dataframe.NewDataFrame(series...)
}

// Record appends the last completed step of the CPU.
func (tr *Trace) Record(c *cpu.Cpu) {
	step := c.Last

	vals := []any{
		int64(step.Tick),
		int64(step.Pc),
		step.Instruction.Format(step.Operand[:]...),
		int64(step.Operand[0]),
		int64(step.Operand[1]),
		int64(step.Interrupt),
	}
	for _, value := range c.R {
		vals = append(vals, int64(value))
	}
	vals = append(vals, int64(c.Fl))

	if tr.Verbose {
		log.Printf("trace: %v", step)
	}

	tr.frame.Append(nil, vals...)
}

// Len returns the number of recorded steps.
func (tr *Trace) Len() int {
	return tr.frame.NRows()
}

// Frame returns the underlying table.
func (tr *Trace) Frame() *dataframe.DataFrame {
	return tr.frame
}

// WriteCSV writes the trace as CSV, with a header row.
func (tr *Trace) WriteCSV(ctx context.Context, w io.Writer) (err error) {
	err = exports.ExportToCSV(ctx, w, tr.frame)
	return
}

// WriteParquet writes the trace to a Parquet file.
func (tr *Trace) WriteParquet(ctx context.Context, path string) (err error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return
	}
	defer func() {
		cerr := fw.Close()
		if err == nil {
			err = cerr
		}
	}()

	err = exports.ExportToParquet(ctx, fw, tr.frame)
	return
}

// Save writes the trace to a file, in the format named by its extension.
func (tr *Trace) Save(ctx context.Context, path string) (err error) {
	if tr.Verbose {
		log.Printf("trace: save %v (%d steps)", path, tr.Len())
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		err = tr.saveCSV(ctx, path)
	case ".parquet":
		err = tr.WriteParquet(ctx, path)
	default:
		err = fmt.Errorf("%v: %w", path, ErrTraceFormat)
	}

	return
}

func (tr *Trace) saveCSV(ctx context.Context, path string) (err error) {
	fw, err := local.NewLocalFileWriter(path)
	if err != nil {
		return
	}
	defer func() {
		cerr := fw.Close()
		if err == nil {
			err = cerr
		}
	}()

	err = tr.WriteCSV(ctx, fw)
	return
}

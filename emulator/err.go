package emulator

import (
	"errors"

	"github.com/ezrec/ls8/translate"
)

var f = translate.From

var (
	ErrTickLimit = errors.New(f("tick limit reached"))
)

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Pc     uint // Address of the faulting instruction.
	Tick   int  // CPU tick of the fault.
	LineNo int  // Source line, if the program was assembled.
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("pc 0x%02x tick %d: %v", err.Pc, err.Tick, err.Err)
	}
	return f("line %d pc 0x%02x tick %d: %v", err.LineNo, err.Pc, err.Tick, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

package ram

import (
	"errors"

	"github.com/ezrec/ls8/translate"
)

var f = translate.From

var (
	// Memory errors
	ErrOutOfBounds = errors.New(f("address out of bounds"))
)

// ErrAddress reports the offending address of an out of bounds access.
type ErrAddress struct {
	Address uint
	Size    uint
}

func (err *ErrAddress) Error() string {
	return f("address 0x%02x beyond memory size 0x%02x", err.Address, err.Size)
}

func (err *ErrAddress) Unwrap() error {
	return ErrOutOfBounds
}

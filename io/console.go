package io

import (
	"fmt"
	"io"
)

// Console writes program output to a text stream.
// PRN values are written in decimal, one per line; PRA values are written
// as the character with that code point.
type Console struct {
	Output io.Writer
}

var _ Output = (*Console)(nil)

// Number writes value in decimal followed by a newline.
func (con *Console) Number(value byte) (err error) {
	_, err = fmt.Fprintf(con.Output, "%d\n", value)
	return
}

// Char writes the character value.
func (con *Console) Char(value byte) (err error) {
	_, err = fmt.Fprintf(con.Output, "%c", rune(value))
	return
}

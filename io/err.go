package io

import (
	"errors"

	"github.com/ezrec/ls8/translate"
)

var f = translate.From

var (
	// Program image errors
	ErrNotBinary    = errors.New(f("not an 8-digit binary literal"))
	ErrProgramEmpty = errors.New(f("program is empty"))
)

// ErrSyntax indicates the line of a malformed program image.
type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

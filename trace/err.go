package trace

import (
	"errors"

	"github.com/ezrec/ls8/translate"
)

var f = translate.From

var (
	ErrTraceFormat = errors.New(f("trace format not supported"))
)

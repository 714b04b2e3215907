package io

import (
	"fmt"
	"strings"
)

// EventKind distinguishes the two output instructions.
type EventKind int

const (
	EVENT_NUMBER = EventKind(0) // prn
	EVENT_CHAR   = EventKind(1) // pra
)

// Event is a single output value.
type Event struct {
	Kind  EventKind
	Value byte
}

// String renders the event the way a Console would.
func (ev Event) String() string {
	if ev.Kind == EVENT_CHAR {
		return string(rune(ev.Value))
	}
	return fmt.Sprintf("%d\n", ev.Value)
}

// Recorder keeps every output event in order.
type Recorder struct {
	Events []Event
}

var _ Output = (*Recorder)(nil)

// Reset discards all recorded events.
func (rec *Recorder) Reset() {
	rec.Events = nil
}

// Number records a PRN value.
func (rec *Recorder) Number(value byte) error {
	rec.Events = append(rec.Events, Event{Kind: EVENT_NUMBER, Value: value})
	return nil
}

// Char records a PRA value.
func (rec *Recorder) Char(value byte) error {
	rec.Events = append(rec.Events, Event{Kind: EVENT_CHAR, Value: value})
	return nil
}

// Text returns all events rendered as console text.
func (rec *Recorder) Text() string {
	var sb strings.Builder
	for _, ev := range rec.Events {
		sb.WriteString(ev.String())
	}
	return sb.String()
}

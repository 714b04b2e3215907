package emulator

import (
	"time"

	"github.com/ezrec/ls8/cpu"
	"github.com/ezrec/ls8/ram"
)

const (
	TIMER_PERIOD = time.Second // Default period of the timer interrupt.
)

// Config holds the session options.
type Config struct {
	MemorySize  uint          // Memory size in bytes.
	ClockPeriod time.Duration // Time per instruction; zero runs unpaced.
	TimerPeriod time.Duration // Timer interrupt period; zero disables the timer.
	TimerLine   uint          // Interrupt line raised by the timer.
	Interrupts  bool          // Service interrupts.
	MaxTicks    int           // Stop with ErrTickLimit after this many ticks; zero is unbounded.
	Verbose     bool          // Verbose logging.
}

// DefaultConfig returns the stock LS-8 session options.
func DefaultConfig() Config {
	return Config{
		MemorySize:  ram.DEFAULT_SIZE,
		TimerPeriod: TIMER_PERIOD,
		TimerLine:   cpu.INT_TIMER,
		Interrupts:  true,
	}
}

package cpu

// Fixed memory map of the LS-8.
const (
	STACK_TOP     = 0xf4 // Initial stack pointer; the stack grows down from here.
	KEY_BUFFER    = 0xf4 // Last key pressed.
	VECTOR_TABLE  = 0xf8 // Interrupt vector table, one handler address per line.
	VECTOR_COUNT  = 8    // Interrupt lines.
	INT_TIMER     = 0    // Timer interrupt line.
	INT_KEYBOARD  = 1    // Keyboard interrupt line.
	PUSHED_ON_INT = 9    // Bytes pushed by interrupt dispatch: PC, FL, R0-R6.
)

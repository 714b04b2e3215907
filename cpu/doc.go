// Package cpu implements the processor and assembler for the LS-8 system.
//
// The CPU consists of a program counter (PC), a flags register (FL), eight
// 8-bit general-purpose registers (R0-R7, where R5 is the interrupt mask,
// R6 the interrupt status and R7 the stack pointer), an ALU, and a
// hardware call/return and interrupt mechanism. Programs and the stack live
// in the byte-addressable memory provided by package ram.
//
// The assembler provides an assembly language for the LS-8 instruction set,
// supporting macros, labels, equates, data directives and compile-time
// expression evaluation.
package cpu

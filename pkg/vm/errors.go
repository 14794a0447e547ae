package vm

import "errors"

// The following errors are fatal: once returned from Step or Run, the
// machine must not be stepped further. None of them are catchable by the
// executing program — spec.md §7 describes these as the UM equivalent of a
// processor fault.
var (
	// ErrDivideByZero indicates opcode 5 (Divide) with register C zero.
	ErrDivideByZero = errors.New("um: division by zero")

	// ErrOutputOverflow indicates opcode 10 (Output) with a register value
	// above 255.
	ErrOutputOverflow = errors.New("um: output value exceeds one byte")

	// ErrReservedOpcode indicates a decoded opcode of 14 or 15, which have
	// no defined behaviour.
	ErrReservedOpcode = errors.New("um: reserved opcode")

	// ErrIPOutOfRange indicates the instruction pointer fell outside
	// segment zero at the start of a fetch.
	ErrIPOutOfRange = errors.New("um: instruction pointer out of range")

	// ErrHalted indicates the machine has already executed a halt
	// instruction; returned by Step if called again afterwards.
	ErrHalted = errors.New("um: machine halted")
)

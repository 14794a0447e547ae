package asm

import "errors"

var (
	// ErrCannotEncode indicates an attempt to encode an instruction that
	// carries a parse error.
	ErrCannotEncode = errors.New("asm: cannot encode an invalid instruction")

	// ErrTooManyInstructions indicates the program has more instructions
	// than a 32-bit program counter can address.
	ErrTooManyInstructions = errors.New("asm: too many instructions")

	// ErrUnknownMnemonic indicates a line whose first token is not a
	// recognised opcode or directive.
	ErrUnknownMnemonic = errors.New("asm: unknown mnemonic")

	// ErrBadOperand indicates an operand that failed to parse as a
	// register, an immediate, or a label reference.
	ErrBadOperand = errors.New("asm: bad operand")

	// ErrWrongOperandCount indicates a mnemonic was given the wrong
	// number of operands.
	ErrWrongOperandCount = errors.New("asm: wrong number of operands")

	// ErrUndefinedLabel indicates a load-immediate operand referencing a
	// label that was never defined.
	ErrUndefinedLabel = errors.New("asm: undefined label")

	// ErrImmediateOutOfRange indicates a load-immediate operand that does
	// not fit in 25 unsigned bits.
	ErrImmediateOutOfRange = errors.New("asm: immediate out of range")
)

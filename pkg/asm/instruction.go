package asm

import (
	"fmt"
	"strconv"

	"github.com/bassosimone/um32/pkg/vm"
)

// Instruction is a parsed line of assembly. It is either a machine
// instruction, a raw data word, or a wrapped parse error.
type Instruction interface {
	// Err returns the error occurred processing the instruction. If this
	// function returns nil, then the instruction is valid.
	Err() error

	// Label returns the label attached to this line, if any.
	Label() *string

	// Line returns the source line number.
	Line() int

	// Encode encodes the instruction into a 32-bit word. labels maps each
	// defined label to its instruction index, available for resolving
	// load-immediate operands that reference a label.
	Encode(labels map[string]int64, pc uint32) (uint32, error)
}

// InstructionErr wraps a parse error so the pipeline can carry it as far
// as the point it needs to be reported, the same way a zero value would
// carry through an arithmetic error in the reference interpreter.
type InstructionErr struct {
	Cause  error
	Lineno int
}

func (ie InstructionErr) Err() error     { return ie.Cause }
func (ie InstructionErr) Label() *string { return nil }
func (ie InstructionErr) Line() int      { return ie.Lineno }

func (ie InstructionErr) Encode(map[string]int64, uint32) (uint32, error) {
	return 0, fmt.Errorf("%w: %v", ErrCannotEncode, ie.Cause)
}

var _ Instruction = InstructionErr{}

// RegInstruction is any instruction whose operands are entirely register
// fields: every opcode except load-immediate (spec.md §6).
type RegInstruction struct {
	Op         vm.Opcode
	A, B, C    uint32
	MaybeLabel *string
	Lineno     int
}

func (ri RegInstruction) Err() error     { return nil }
func (ri RegInstruction) Label() *string { return ri.MaybeLabel }
func (ri RegInstruction) Line() int      { return ri.Lineno }

func (ri RegInstruction) Encode(map[string]int64, uint32) (uint32, error) {
	return uint32(ri.Op)<<28 | ri.A<<6 | ri.B<<3 | ri.C, nil
}

var _ Instruction = RegInstruction{}

// ImmInstruction is a load-immediate instruction (opcode 13). Operand is
// either a decimal/hex literal or a label name; Encode resolves labels
// against the table built from the first assembly pass.
type ImmInstruction struct {
	A          uint32
	Operand    string
	MaybeLabel *string
	Lineno     int
}

func (ii ImmInstruction) Err() error     { return nil }
func (ii ImmInstruction) Label() *string { return ii.MaybeLabel }
func (ii ImmInstruction) Line() int      { return ii.Lineno }

func (ii ImmInstruction) Encode(labels map[string]int64, pc uint32) (uint32, error) {
	value, err := resolveImmediate(ii.Operand, labels)
	if err != nil {
		return 0, err
	}
	if value > 0x01FFFFFF {
		return 0, fmt.Errorf("%w: %d", ErrImmediateOutOfRange, value)
	}
	return uint32(vm.OpLoadImmediate)<<28 | ii.A<<25 | value, nil
}

var _ Instruction = ImmInstruction{}

// WordInstruction embeds a raw 32-bit word produced by a .word directive,
// used to lay down string and table data inline with code.
type WordInstruction struct {
	Value      uint32
	MaybeLabel *string
	Lineno     int
}

func (wi WordInstruction) Err() error     { return nil }
func (wi WordInstruction) Label() *string { return wi.MaybeLabel }
func (wi WordInstruction) Line() int      { return wi.Lineno }

func (wi WordInstruction) Encode(map[string]int64, uint32) (uint32, error) {
	return wi.Value, nil
}

var _ Instruction = WordInstruction{}

func resolveImmediate(operand string, labels map[string]int64) (uint32, error) {
	if n, err := strconv.ParseUint(operand, 0, 32); err == nil {
		return uint32(n), nil
	}
	idx, ok := labels[operand]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUndefinedLabel, operand)
	}
	return uint32(idx), nil
}

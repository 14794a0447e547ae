// Package asm contains the um32 assembler: a small line-oriented syntax
// that maps one line to one machine word, used by cmd/um32asm. The matching
// disassembler is vm.Disassemble in pkg/vm.
//
// See the documentation of the vm package for the instruction set and the
// bytecode format this assembler targets.
package asm

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/bassosimone/um32/pkg/vm"
)

// InstructionOrError contains either an assembled instruction or an error
// that occurred while assembling it.
type InstructionOrError struct {
	Instruction uint32
	Error       error
	Lineno      int
}

// Encode renders the current instruction as a line of hex-dump output or
// returns an error.
func (ioe InstructionOrError) Encode() (string, error) {
	if ioe.Error != nil {
		return "", ioe.Error
	}
	return fmt.Sprintf(
		"0x%08x\t# 0b%032b - line: %d\n", ioe.Instruction, ioe.Instruction, ioe.Lineno,
	), nil
}

// StartAssembler starts the assembler in a background goroutine and
// returns a sequence of InstructionOrError.
func StartAssembler(r io.Reader) <-chan InstructionOrError {
	out := make(chan InstructionOrError)
	go AssemblerAsync(r, out)
	return out
}

// AssemblerAsync runs the assembler. It reads from r and writes
// InstructionOrError values to out, in source order.
func AssemblerAsync(r io.Reader, out chan<- InstructionOrError) {
	defer close(out)
	var idx int64
	labels := make(map[string]int64)
	var instructions []Instruction
	for instr := range StartParsing(StartLexing(r)) {
		if instr.Err() != nil {
			out <- InstructionOrError{Error: instr.Err(), Lineno: instr.Line()}
			return
		}
		if instr.Label() != nil {
			labels[*instr.Label()] = idx
		}
		instructions = append(instructions, instr)
		idx++
	}
	for pc, instr := range instructions {
		if pc > math.MaxUint32 {
			out <- InstructionOrError{Error: ErrTooManyInstructions, Lineno: instr.Line()}
			return
		}
		encoded, err := instr.Encode(labels, uint32(pc))
		if err != nil {
			out <- InstructionOrError{Error: err, Lineno: instr.Line()}
			continue
		}
		out <- InstructionOrError{Instruction: encoded, Lineno: instr.Line()}
	}
}

// rawLine is one non-empty, comment-stripped line of source.
type rawLine struct {
	Text   string
	Lineno int
}

// StartLexing splits r into comment-stripped, non-blank lines.
func StartLexing(r io.Reader) <-chan rawLine {
	out := make(chan rawLine)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		lineno := 0
		for scanner.Scan() {
			lineno++
			text := scanner.Text()
			if idx := strings.IndexAny(text, "#;"); idx >= 0 {
				text = text[:idx]
			}
			text = strings.TrimSpace(text)
			if text == "" {
				continue
			}
			out <- rawLine{Text: text, Lineno: lineno}
		}
	}()
	return out
}

// regInfo describes a three-register opcode's operand layout in source
// order, since some mnemonics read fewer than three registers (e.g.
// "unmap rC") or assign them to fields in a different order than they
// appear on the line (e.g. "map rB, rC").
type regInfo struct {
	op      vm.Opcode
	operands int
}

var mnemonics = map[string]regInfo{
	"cmov":     {vm.OpConditionalMove, 3},
	"load":     {vm.OpSegmentedLoad, 3},
	"store":    {vm.OpSegmentedStore, 3},
	"add":      {vm.OpAdd, 3},
	"mul":      {vm.OpMultiply, 3},
	"div":      {vm.OpDivide, 3},
	"nand":     {vm.OpNand, 3},
	"halt":     {vm.OpHalt, 0},
	"map":      {vm.OpMapSegment, 2},
	"unmap":    {vm.OpUnmapSegment, 1},
	"out":      {vm.OpOutput, 1},
	"in":       {vm.OpInput, 1},
	"loadprog": {vm.OpLoadProgram, 2},
}

// StartParsing turns lexed lines into Instruction values.
func StartParsing(lines <-chan rawLine) <-chan Instruction {
	out := make(chan Instruction)
	go func() {
		defer close(out)
		for line := range lines {
			instr := parseLine(line)
			out <- instr
			if instr.Err() != nil {
				return
			}
		}
	}()
	return out
}

func parseLine(line rawLine) Instruction {
	text, label := splitLabel(line.Text)
	if text == "" {
		// A bare label on its own line still occupies no instruction
		// slot; the caller treats this as an error rather than silently
		// merging it with the next line, since the indexing scheme here
		// is one label per instruction.
		return InstructionErr{Cause: fmt.Errorf("%w: label with no instruction", ErrBadOperand), Lineno: line.Lineno}
	}

	fields := strings.FieldsFunc(text, func(r rune) bool {
		return r == ' ' || r == '\t' || r == ','
	})
	mnemonic := strings.ToLower(fields[0])
	args := fields[1:]

	if mnemonic == ".word" {
		return parseWord(args, label, line.Lineno)
	}
	if mnemonic == "li" {
		return parseImmediate(args, label, line.Lineno)
	}

	info, ok := mnemonics[mnemonic]
	if !ok {
		return InstructionErr{Cause: fmt.Errorf("%w: %q", ErrUnknownMnemonic, mnemonic), Lineno: line.Lineno}
	}
	if len(args) != info.operands {
		return InstructionErr{Cause: fmt.Errorf("%w: %q wants %d operand(s), got %d", ErrWrongOperandCount, mnemonic, info.operands, len(args)), Lineno: line.Lineno}
	}

	regs := make([]uint32, len(args))
	for i, a := range args {
		r, err := parseRegister(a)
		if err != nil {
			return InstructionErr{Cause: err, Lineno: line.Lineno}
		}
		regs[i] = r
	}

	ri := RegInstruction{Op: info.op, MaybeLabel: label, Lineno: line.Lineno}
	switch mnemonic {
	case "cmov", "load", "store", "add", "mul", "div", "nand":
		ri.A, ri.B, ri.C = regs[0], regs[1], regs[2]
	case "map", "loadprog":
		ri.B, ri.C = regs[0], regs[1]
	case "unmap", "out", "in":
		ri.C = regs[0]
	case "halt":
		// no operands
	}
	return ri
}

func parseWord(args []string, label *string, lineno int) Instruction {
	if len(args) != 1 {
		return InstructionErr{Cause: fmt.Errorf("%w: .word wants 1 operand, got %d", ErrWrongOperandCount, len(args)), Lineno: lineno}
	}
	v, err := strconv.ParseUint(args[0], 0, 32)
	if err != nil {
		return InstructionErr{Cause: fmt.Errorf("%w: %v", ErrBadOperand, err), Lineno: lineno}
	}
	return WordInstruction{Value: uint32(v), MaybeLabel: label, Lineno: lineno}
}

func parseImmediate(args []string, label *string, lineno int) Instruction {
	if len(args) != 2 {
		return InstructionErr{Cause: fmt.Errorf("%w: li wants 2 operands, got %d", ErrWrongOperandCount, len(args)), Lineno: lineno}
	}
	a, err := parseRegister(args[0])
	if err != nil {
		return InstructionErr{Cause: err, Lineno: lineno}
	}
	return ImmInstruction{A: a, Operand: args[1], MaybeLabel: label, Lineno: lineno}
}

func splitLabel(text string) (rest string, label *string) {
	fields := strings.SplitN(text, " ", 2)
	if strings.HasSuffix(fields[0], ":") {
		name := strings.TrimSuffix(fields[0], ":")
		label = &name
		if len(fields) == 2 {
			return strings.TrimSpace(fields[1]), label
		}
		return "", label
	}
	return text, nil
}

func parseRegister(s string) (uint32, error) {
	s = strings.ToLower(s)
	if !strings.HasPrefix(s, "r") {
		return 0, fmt.Errorf("%w: %q is not a register", ErrBadOperand, s)
	}
	n, err := strconv.ParseUint(s[1:], 10, 32)
	if err != nil || n > 7 {
		return 0, fmt.Errorf("%w: %q is not a register in r0-r7", ErrBadOperand, s)
	}
	return uint32(n), nil
}

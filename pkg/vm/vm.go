// Package vm implements the UM32 register machine: eight general-purpose
// registers, a separate instruction pointer, and a fetch/decode/execute
// dispatch loop over a segment.Store. See pkg/segment for the memory model
// and pkg/loader for how a program reaches segment zero in the first
// place.
package vm

import (
	"bufio"
	"fmt"
	"io"

	"github.com/bassosimone/um32/pkg/segment"
)

// VM is one UM32 machine instance. The zero value is not ready for use;
// construct one with New.
//
// Unlike the reference implementation this was distilled from (which
// tracks "has the program halted" in a process-wide global), halted is an
// ordinary struct field: two *VM values in the same process are completely
// independent, and one halting never affects the other.
type VM struct {
	registers [numRegisters]uint32
	ip        uint32
	mem       *segment.Store
	halted    bool

	in  *bufio.Reader
	out *bufio.Writer
}

// New returns a VM with all registers zeroed, the instruction pointer at
// zero, and segment zero bound to program. It reads from in and writes to
// out a byte at a time as the Input/Output opcodes execute.
func New(program []uint32, in io.Reader, out io.Writer) *VM {
	mem := segment.New()
	// Segment zero starts out empty (see segment.New); bind it to the
	// loaded program by allocating a scratch segment of the right length
	// and reloading it into zero, which is the only way the store exposes
	// to replace segment zero's contents.
	id := mem.Allocate(uint32(len(program)))
	for i, word := range program {
		_ = mem.Write(id, uint32(i), word) // id was just allocated at this exact length
	}
	if _, err := mem.ReloadZero(id); err != nil {
		// Allocating then immediately reloading from a freshly-minted
		// segment of known length cannot fail.
		panic(err)
	}
	_ = mem.Release(id)
	return &VM{
		mem: mem,
		in:  bufio.NewReader(in),
		out: bufio.NewWriter(out),
	}
}

// Halted reports whether the machine has executed a halt instruction.
func (m *VM) Halted() bool {
	return m.halted
}

// IP returns the current instruction pointer. Exposed for tracing tools
// such as cmd/um32dbg.
func (m *VM) IP() uint32 {
	return m.ip
}

// Register returns the current value of register r (0-7).
func (m *VM) Register(r uint32) uint32 {
	return m.registers[r&regFieldMask]
}

// Run executes instructions until the machine halts or a fatal error
// occurs. It always flushes buffered output before returning, even on
// error, so that any bytes already written by Output are visible to the
// caller (spec.md §4.4).
func (m *VM) Run() error {
	for !m.halted {
		if err := m.Step(); err != nil {
			m.out.Flush()
			return err
		}
	}
	return m.out.Flush()
}

// Step executes exactly one instruction: fetch from segment zero at the
// instruction pointer, advance the pointer, decode, and dispatch
// (spec.md §4.6). It returns ErrHalted if the machine already halted on a
// previous call.
func (m *VM) Step() error {
	if m.halted {
		return ErrHalted
	}
	length, err := m.mem.Length(0)
	if err != nil {
		return err
	}
	if m.ip >= length {
		return ErrIPOutOfRange
	}
	word, err := m.mem.Read(0, m.ip)
	if err != nil {
		return err
	}
	m.ip++
	return m.execute(Decode(word))
}

// PeekInstruction returns the word at the current instruction pointer
// without advancing it or executing anything, for tracing tools such as
// cmd/um32's -trace flag and cmd/um32dbg.
func (m *VM) PeekInstruction() (uint32, error) {
	return m.mem.Read(0, m.ip)
}

func (m *VM) execute(d Decoded) error {
	switch d.Op {
	case OpConditionalMove:
		if m.registers[d.C] != 0 {
			m.registers[d.A] = m.registers[d.B]
		}
	case OpSegmentedLoad:
		v, err := m.mem.Read(m.registers[d.B], m.registers[d.C])
		if err != nil {
			return err
		}
		m.registers[d.A] = v
	case OpSegmentedStore:
		if err := m.mem.Write(m.registers[d.A], m.registers[d.B], m.registers[d.C]); err != nil {
			return err
		}
	case OpAdd:
		m.registers[d.A] = m.registers[d.B] + m.registers[d.C]
	case OpMultiply:
		m.registers[d.A] = m.registers[d.B] * m.registers[d.C]
	case OpDivide:
		if m.registers[d.C] == 0 {
			return ErrDivideByZero
		}
		m.registers[d.A] = m.registers[d.B] / m.registers[d.C]
	case OpNand:
		m.registers[d.A] = ^(m.registers[d.B] & m.registers[d.C])
	case OpHalt:
		m.halted = true
		m.mem.Close()
		return m.out.Flush()
	case OpMapSegment:
		m.registers[d.B] = m.mem.Allocate(m.registers[d.C])
	case OpUnmapSegment:
		if err := m.mem.Release(m.registers[d.C]); err != nil {
			return err
		}
	case OpOutput:
		v := m.registers[d.C]
		if v > 255 {
			return fmt.Errorf("%w: %d", ErrOutputOverflow, v)
		}
		if err := m.out.WriteByte(byte(v)); err != nil {
			return err
		}
	case OpInput:
		b, err := m.in.ReadByte()
		if err != nil {
			m.registers[d.C] = 0xFFFFFFFF
			return nil
		}
		m.registers[d.C] = uint32(b)
	case OpLoadProgram:
		if _, err := m.mem.ReloadZero(m.registers[d.B]); err != nil {
			return err
		}
		m.ip = m.registers[d.C]
	case OpLoadImmediate:
		m.registers[d.A] = d.Imm
	default:
		return fmt.Errorf("%w: %d", ErrReservedOpcode, d.Op)
	}
	return nil
}

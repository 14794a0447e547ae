package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func mustRun(t *testing.T, program []uint32, in string) string {
	t.Helper()
	var out bytes.Buffer
	m := New(program, strings.NewReader(in), &out)
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return out.String()
}

// Scenario A — immediate halt.
func TestScenarioImmediateHalt(t *testing.T) {
	out := mustRun(t, []uint32{word3(OpHalt, 0, 0, 0)}, "")
	if out != "" {
		t.Fatalf("output = %q, want empty", out)
	}
}

// Scenario B — print 'A'.
func TestScenarioPrintA(t *testing.T) {
	program := []uint32{
		wordImm(1, 65),
		word3(OpOutput, 0, 0, 1),
		word3(OpHalt, 0, 0, 0),
	}
	if out := mustRun(t, program, ""); out != "A" {
		t.Fatalf("output = %q, want %q", out, "A")
	}
}

// Scenario C — add two registers and print the ASCII result.
func TestScenarioAddAndPrint(t *testing.T) {
	program := []uint32{
		wordImm(1, 3),
		wordImm(2, 4),
		word3(OpAdd, 3, 1, 2),
		wordImm(4, 48), // ASCII '0'
		word3(OpAdd, 3, 3, 4),
		word3(OpOutput, 0, 0, 3),
		word3(OpHalt, 0, 0, 0),
	}
	if out := mustRun(t, program, ""); out != "7" {
		t.Fatalf("output = %q, want %q", out, "7")
	}
}

// Scenario D — echo input bytes until EOF, then halt.
func TestScenarioEchoUntilEOF(t *testing.T) {
	const rIn = 1
	program := []uint32{
		wordImm(3, 1),  // r3 = 1
		wordImm(4, 9),  // r4 = 9 (address of the output below)
		wordImm(5, 11), // r5 = 11 (address of the halt)
		wordImm(7, 4),  // r7 = 4 (loop start: the input below)
		word3(OpInput, 0, 0, rIn),
		word3(OpAdd, 2, rIn, 3),           // r2 = r1 + 1, zero only at EOF
		word3(OpAdd, 6, 5, 0),             // r6 = halt address
		word3(OpConditionalMove, 6, 4, 2), // r6 = output address unless EOF
		word3(OpLoadProgram, 0, 0, 6),     // jump to r6 within segment zero
		word3(OpOutput, 0, 0, rIn),
		word3(OpLoadProgram, 0, 0, 7), // jump back to the input
		word3(OpHalt, 0, 0, 0),
	}
	if out := mustRun(t, program, "hi"); out != "hi" {
		t.Fatalf("output = %q, want %q", out, "hi")
	}
}

// Scenario E — identifier recycling: unmapping and remapping reuses the
// most recently freed identifier (LIFO, spec.md §8.5).
func TestScenarioIdentifierRecycling(t *testing.T) {
	program := []uint32{
		wordImm(1, 1),
		word3(OpMapSegment, 0, 2, 1),   // r2 = map(length 1)
		word3(OpUnmapSegment, 0, 0, 2), // unmap r2
		wordImm(1, 2),
		word3(OpMapSegment, 0, 3, 1), // r3 = map(length 2), should reuse r2's id
		word3(OpHalt, 0, 0, 0),
	}
	var out bytes.Buffer
	m := New(program, strings.NewReader(""), &out)
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Register(2) != m.Register(3) {
		t.Fatalf("recycled id mismatch: first map = %d, second map = %d", m.Register(2), m.Register(3))
	}
}

// Scenario F — self-jump short-circuit: reloading segment zero from
// itself must leave segment zero's contents untouched.
func TestScenarioSelfJumpShortCircuit(t *testing.T) {
	program := []uint32{
		wordImm(1, 0), // r1 = 0 (segment id for self)
		wordImm(2, 3), // r2 = 3 (jump target: the halt below)
		word3(OpLoadProgram, 0, 1, 2),
		word3(OpHalt, 0, 0, 0),
	}
	before := append([]uint32(nil), program...)
	var out bytes.Buffer
	m := New(program, strings.NewReader(""), &out)
	// Step through the load-program instruction and inspect segment zero
	// before the halt runs, since halting releases every segment.
	for i := 0; i < 3; i++ {
		if err := m.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	for off := range before {
		v, err := m.mem.Read(0, uint32(off))
		if err != nil {
			t.Fatalf("reading segment zero offset %d: %v", off, err)
		}
		if v != before[off] {
			t.Fatalf("segment zero offset %d changed after self-jump: %#x != %#x", off, v, before[off])
		}
	}
	if err := m.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.IP() != 4 {
		t.Fatalf("IP after self-jump = %d, want 4", m.IP())
	}
}

func TestArithmeticWrapsModulo2_32(t *testing.T) {
	m := New(nil, strings.NewReader(""), &bytes.Buffer{})
	m.registers[1] = 0xFFFFFFFF
	m.registers[2] = 1
	if err := m.execute(Decoded{Op: OpAdd, A: 3, B: 1, C: 2}); err != nil {
		t.Fatal(err)
	}
	if m.registers[3] != 0 {
		t.Fatalf("0xFFFFFFFF + 1 = %#x, want 0", m.registers[3])
	}

	m.registers[1] = 0x80000000
	m.registers[2] = 2
	if err := m.execute(Decoded{Op: OpMultiply, A: 3, B: 1, C: 2}); err != nil {
		t.Fatal(err)
	}
	if m.registers[3] != 0 {
		t.Fatalf("0x80000000 * 2 = %#x, want 0", m.registers[3])
	}
}

func TestNandBoundaryValues(t *testing.T) {
	m := New(nil, strings.NewReader(""), &bytes.Buffer{})
	m.registers[1], m.registers[2] = 0, 0
	if err := m.execute(Decoded{Op: OpNand, A: 3, B: 1, C: 2}); err != nil {
		t.Fatal(err)
	}
	if m.registers[3] != 0xFFFFFFFF {
		t.Fatalf("NAND(0,0) = %#x, want 0xFFFFFFFF", m.registers[3])
	}

	m.registers[1], m.registers[2] = 0xFFFFFFFF, 0xFFFFFFFF
	if err := m.execute(Decoded{Op: OpNand, A: 3, B: 1, C: 2}); err != nil {
		t.Fatal(err)
	}
	if m.registers[3] != 0 {
		t.Fatalf("NAND(-1,-1) = %#x, want 0", m.registers[3])
	}
}

func TestConditionalMoveNoOpWhenZero(t *testing.T) {
	m := New(nil, strings.NewReader(""), &bytes.Buffer{})
	m.registers[1] = 111
	m.registers[2] = 222
	m.registers[3] = 0
	if err := m.execute(Decoded{Op: OpConditionalMove, A: 1, B: 2, C: 3}); err != nil {
		t.Fatal(err)
	}
	if m.registers[1] != 111 {
		t.Fatalf("conditional move with C=0 changed A to %d, want unchanged 111", m.registers[1])
	}

	m.registers[3] = 1
	if err := m.execute(Decoded{Op: OpConditionalMove, A: 1, B: 2, C: 3}); err != nil {
		t.Fatal(err)
	}
	if m.registers[1] != 222 {
		t.Fatalf("conditional move with C!=0 left A at %d, want 222", m.registers[1])
	}
}

func TestDivideByZeroIsFatal(t *testing.T) {
	m := New(nil, strings.NewReader(""), &bytes.Buffer{})
	m.registers[2] = 10
	m.registers[3] = 0
	err := m.execute(Decoded{Op: OpDivide, A: 1, B: 2, C: 3})
	if !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("divide by zero = %v, want ErrDivideByZero", err)
	}
}

func TestOutputAboveByteIsFatal(t *testing.T) {
	m := New(nil, strings.NewReader(""), &bytes.Buffer{})
	m.registers[1] = 256
	err := m.execute(Decoded{Op: OpOutput, C: 1})
	if !errors.Is(err, ErrOutputOverflow) {
		t.Fatalf("output(256) = %v, want ErrOutputOverflow", err)
	}
}

func TestInputAtEOFYieldsAllOnes(t *testing.T) {
	m := New(nil, strings.NewReader(""), &bytes.Buffer{})
	if err := m.execute(Decoded{Op: OpInput, C: 1}); err != nil {
		t.Fatal(err)
	}
	if m.registers[1] != 0xFFFFFFFF {
		t.Fatalf("input at EOF = %#x, want 0xFFFFFFFF", m.registers[1])
	}
}

func TestReservedOpcodesAreFatal(t *testing.T) {
	for _, op := range []Opcode{14, 15} {
		m := New(nil, strings.NewReader(""), &bytes.Buffer{})
		if err := m.execute(Decoded{Op: op}); !errors.Is(err, ErrReservedOpcode) {
			t.Fatalf("reserved opcode %d = %v, want ErrReservedOpcode", op, err)
		}
	}
}

func TestUnmappedSegmentAccessIsFatal(t *testing.T) {
	m := New(nil, strings.NewReader(""), &bytes.Buffer{})
	m.registers[2] = 99 // never mapped
	if err := m.execute(Decoded{Op: OpSegmentedLoad, A: 1, B: 2, C: 0}); err == nil {
		t.Fatal("segmented load from an unmapped segment succeeded, want error")
	}
}

func TestInstructionPointerOutOfRangeIsFatal(t *testing.T) {
	m := New([]uint32{word3(OpHalt, 0, 0, 0)}, strings.NewReader(""), &bytes.Buffer{})
	m.ip = 5
	if err := m.Step(); !errors.Is(err, ErrIPOutOfRange) {
		t.Fatalf("Step at out-of-range ip = %v, want ErrIPOutOfRange", err)
	}
}

func TestStepAfterHaltReturnsErrHalted(t *testing.T) {
	m := New([]uint32{word3(OpHalt, 0, 0, 0)}, strings.NewReader(""), &bytes.Buffer{})
	if err := m.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if err := m.Step(); !errors.Is(err, ErrHalted) {
		t.Fatalf("Step after halt = %v, want ErrHalted", err)
	}
}

// TestTwoMachinesDoNotShareHaltState is the regression test for spec.md
// §9's redesign note: the reference tracks halted as a process-wide
// global, which this implementation replaces with per-instance state.
func TestTwoMachinesDoNotShareHaltState(t *testing.T) {
	halted := New([]uint32{word3(OpHalt, 0, 0, 0)}, strings.NewReader(""), &bytes.Buffer{})
	running := New([]uint32{
		wordImm(1, 1),
		word3(OpHalt, 0, 0, 0),
	}, strings.NewReader(""), &bytes.Buffer{})

	if err := halted.Step(); err != nil {
		t.Fatalf("halted.Step: %v", err)
	}
	if !halted.Halted() {
		t.Fatal("halted.Halted() = false after executing halt")
	}
	if running.Halted() {
		t.Fatal("running.Halted() = true before running ever executed an instruction")
	}
	if err := running.Step(); err != nil {
		t.Fatalf("running.Step: %v", err)
	}
	if running.Halted() {
		t.Fatal("running.Halted() = true after a non-halt instruction")
	}
}

func TestInstructionPointerAdvancesByOne(t *testing.T) {
	program := []uint32{
		wordImm(1, 1),
		wordImm(2, 2),
		word3(OpHalt, 0, 0, 0),
	}
	m := New(program, strings.NewReader(""), &bytes.Buffer{})
	for i := 0; i < 2; i++ {
		before := m.IP()
		if err := m.Step(); err != nil {
			t.Fatalf("Step: %v", err)
		}
		if m.IP() != before+1 {
			t.Fatalf("IP after non-jump step = %d, want %d", m.IP(), before+1)
		}
	}
}

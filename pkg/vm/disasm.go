package vm

import "fmt"

// Disassemble renders a single instruction word as the assembly syntax
// pkg/asm accepts, for use by cmd/um32asm and the tracing output of
// cmd/um32dbg.
func Disassemble(word uint32) string {
	d := Decode(word)
	switch d.Op {
	case OpConditionalMove:
		return fmt.Sprintf("cmov r%d, r%d, r%d", d.A, d.B, d.C)
	case OpSegmentedLoad:
		return fmt.Sprintf("load r%d, r%d, r%d", d.A, d.B, d.C)
	case OpSegmentedStore:
		return fmt.Sprintf("store r%d, r%d, r%d", d.A, d.B, d.C)
	case OpAdd:
		return fmt.Sprintf("add r%d, r%d, r%d", d.A, d.B, d.C)
	case OpMultiply:
		return fmt.Sprintf("mul r%d, r%d, r%d", d.A, d.B, d.C)
	case OpDivide:
		return fmt.Sprintf("div r%d, r%d, r%d", d.A, d.B, d.C)
	case OpNand:
		return fmt.Sprintf("nand r%d, r%d, r%d", d.A, d.B, d.C)
	case OpHalt:
		return "halt"
	case OpMapSegment:
		return fmt.Sprintf("map r%d, r%d", d.B, d.C)
	case OpUnmapSegment:
		return fmt.Sprintf("unmap r%d", d.C)
	case OpOutput:
		return fmt.Sprintf("out r%d", d.C)
	case OpInput:
		return fmt.Sprintf("in r%d", d.C)
	case OpLoadProgram:
		return fmt.Sprintf("loadprog r%d, r%d", d.B, d.C)
	case OpLoadImmediate:
		return fmt.Sprintf("li r%d, %d", d.A, d.Imm)
	default:
		return fmt.Sprintf("<reserved opcode %d: %#08x>", d.Op, word)
	}
}

// Command um32asm assembles um32 source into a raw bytecode file, or
// disassembles a bytecode file back into source with -d. Assembled output
// is big-endian binary by default, suitable as direct input to cmd/um32;
// pass -text for a human-readable hex dump instead.
package main

import (
	"bufio"
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/bassosimone/um32/pkg/asm"
	"github.com/bassosimone/um32/pkg/loader"
	"github.com/bassosimone/um32/pkg/vm"
)

func main() {
	log.SetFlags(0)
	disassemble := flag.Bool("d", false, "disassemble a bytecode file instead of assembling source")
	text := flag.Bool("text", false, "emit a human-readable hex dump instead of raw bytecode")
	filename := flag.String("f", "", "file to process")
	flag.Parse()
	if *filename == "" {
		log.Fatal("usage: um32asm [-d] [-text] -f <file>")
	}

	fp, err := os.Open(*filename)
	if err != nil {
		log.Fatal(err)
	}
	defer fp.Close()

	if *disassemble {
		runDisassemble(fp)
		return
	}
	runAssemble(fp, *text)
}

func runAssemble(fp *os.File, text bool) {
	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()
	for instr := range asm.StartAssembler(fp) {
		if instr.Error != nil {
			log.Fatal(instr.Error)
		}
		if text {
			rendered, err := instr.Encode()
			if err != nil {
				log.Fatal(err)
			}
			fmt.Fprint(out, rendered)
			continue
		}
		if err := binary.Write(out, binary.BigEndian, instr.Instruction); err != nil {
			log.Fatal(err)
		}
	}
}

func runDisassemble(fp *os.File) {
	words, err := loader.Load(fp)
	if err != nil {
		log.Fatal(err)
	}
	for i, w := range words {
		fmt.Printf("%04d: %s\n", i, vm.Disassemble(w))
	}
}

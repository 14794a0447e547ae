// Command um32 runs a um32 bytecode program: one positional argument
// naming the program file, loaded into segment zero and executed to
// completion or fatal error.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/bassosimone/um32/pkg/loader"
	"github.com/bassosimone/um32/pkg/vm"
)

func main() {
	log.SetFlags(0)
	trace := flag.Bool("trace", false, "log the disassembly of each instruction before executing it")
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: um32 [-trace] <program-file>")
	}
	filename := flag.Arg(0)

	fp, err := os.Open(filename)
	if err != nil {
		log.Fatal(err)
	}
	defer fp.Close()

	program, err := loader.Load(fp)
	if err != nil {
		log.Fatalf("um32: %s: %s", filename, err)
	}

	machine := vm.New(program, os.Stdin, os.Stdout)
	if !*trace {
		if err := machine.Run(); err != nil {
			log.Fatalf("um32: %s", err)
		}
		return
	}
	for !machine.Halted() {
		ip := machine.IP()
		word, err := machine.PeekInstruction()
		if err == nil {
			log.Printf("um32: %04d: %s", ip, vm.Disassemble(word))
		}
		if err := machine.Step(); err != nil {
			log.Fatalf("um32: %s", err)
		}
	}
}

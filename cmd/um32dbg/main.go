// Command um32dbg is an interactive single-stepping debugger for um32
// bytecode: load a program, then step, inspect registers, or run to
// completion from a liner-backed prompt.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/bassosimone/um32/pkg/loader"
	"github.com/bassosimone/um32/pkg/vm"
)

func main() {
	log.SetFlags(0)
	flag.Parse()
	if flag.NArg() != 1 {
		log.Fatal("usage: um32dbg <program-file>")
	}

	fp, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatal(err)
	}
	defer fp.Close()

	program, err := loader.Load(fp)
	if err != nil {
		log.Fatalf("um32dbg: %s", err)
	}
	machine := vm.New(program, os.Stdin, os.Stdout)

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(prefix string) []string {
		return completions(prefix)
	})

	fmt.Println("um32dbg: type 'help' for a command list")
	for !machine.Halted() {
		command, err := line.Prompt("um32dbg> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			log.Fatal(err)
		}
		line.AppendHistory(command)
		if done := dispatch(machine, strings.TrimSpace(command)); done {
			return
		}
	}
	fmt.Println("um32dbg: machine halted")
}

func completions(prefix string) []string {
	all := []string{"step", "run", "regs", "ip", "help", "quit"}
	var out []string
	for _, c := range all {
		if strings.HasPrefix(c, prefix) {
			out = append(out, c)
		}
	}
	return out
}

// dispatch runs one debugger command and reports whether the session
// should end.
func dispatch(machine *vm.VM, command string) bool {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return false
	}
	switch fields[0] {
	case "step", "s":
		n := 1
		if len(fields) > 1 {
			if v, err := strconv.Atoi(fields[1]); err == nil {
				n = v
			}
		}
		for i := 0; i < n && !machine.Halted(); i++ {
			traceStep(machine)
			if err := machine.Step(); err != nil {
				fmt.Println("error:", err)
				return false
			}
		}
	case "run", "r":
		for !machine.Halted() {
			if err := machine.Step(); err != nil {
				fmt.Println("error:", err)
				return false
			}
		}
	case "regs":
		for r := uint32(0); r < 8; r++ {
			fmt.Printf("r%d = %d (0x%08x)\n", r, machine.Register(r), machine.Register(r))
		}
	case "ip":
		fmt.Println("ip =", machine.IP())
	case "help", "h":
		fmt.Println("commands: step [n], run, regs, ip, quit")
	case "quit", "q":
		return true
	default:
		fmt.Printf("unknown command %q; type 'help'\n", fields[0])
	}
	return false
}

func traceStep(machine *vm.VM) {
	word, err := machine.PeekInstruction()
	if err != nil {
		return
	}
	fmt.Printf("%04d: %s\n", machine.IP(), vm.Disassemble(word))
}

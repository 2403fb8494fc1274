// ncsc compiles, disassembles and runs NWScript.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tliron/commonlog"
	_ "github.com/tliron/commonlog/simple"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string     { return strings.Join(*s, ",") }
func (s *stringList) Set(v string) error { *s = append(*s, v); return nil }

// globals are the flags every subcommand accepts.
type globals struct {
	verbose  int
	includes stringList
	table    string
	noCache  bool
	stdout   io.Writer
	stderr   io.Writer
}

func (g *globals) register(fs *flag.FlagSet) {
	fs.BoolFunc("v", "Verbose output (repeat for more)", func(string) error { g.verbose++; return nil })
	fs.Var(&g.includes, "I", "Add an include directory (repeatable)")
	fs.StringVar(&g.table, "table", "", "Engine table: nwscript.nss or a YAML file")
	fs.BoolVar(&g.noCache, "no-cache", false, "Bypass the compiled-artifact cache")
}

func usage(w io.Writer) {
	fmt.Fprintf(w, "Usage: ncsc <command> [options] [files...]\n\n")
	fmt.Fprintf(w, "Commands:\n")
	fmt.Fprintf(w, "  compile   Compile .nss scripts to .ncs\n")
	fmt.Fprintf(w, "  check     Compile without writing output\n")
	fmt.Fprintf(w, "  disasm    Print the instruction listing of .ncs or .nss files\n")
	fmt.Fprintf(w, "  run       Run a script (.nss or .ncs) in the interpreter\n")
	fmt.Fprintf(w, "  deps      Fetch the dependencies listed in ncs.toml\n")
	fmt.Fprintf(w, "  lsp       Serve the language server protocol on stdio\n")
	fmt.Fprintf(w, "\nExamples:\n")
	fmt.Fprintf(w, "  ncsc compile -o build k_act_talk.nss\n")
	fmt.Fprintf(w, "  ncsc disasm k_act_talk.ncs\n")
	fmt.Fprintf(w, "  ncsc run -trace trace.cbor test.nss\n")
	fmt.Fprintf(w, "\nWithout files, compile and check use the scripts listed in ncs.toml.\n")
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "--help" || args[0] == "help" {
		usage(stderr)
		if len(args) == 0 {
			return 2
		}
		return 0
	}

	g := &globals{stdout: stdout, stderr: stderr}
	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "compile":
		err = compileCommand(g, rest, true)
	case "check":
		err = compileCommand(g, rest, false)
	case "disasm":
		err = disasmCommand(g, rest)
	case "run":
		err = runCommand(g, rest)
	case "deps":
		err = depsCommand(g, rest)
	case "lsp":
		err = lspCommand(g, rest)
	default:
		fmt.Fprintf(stderr, "Unknown command %q\n\n", cmd)
		usage(stderr)
		return 2
	}
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// parse parses subcommand flags and configures logging.
func parse(g *globals, fs *flag.FlagSet, args []string) error {
	fs.SetOutput(g.stderr)
	g.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	commonlog.Configure(g.verbose, nil)
	return nil
}

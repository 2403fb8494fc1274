package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/th3w1zard1/nwscript/compiler"
	"github.com/th3w1zard1/nwscript/manifest"
	"github.com/th3w1zard1/nwscript/pkg/bytecode"
	"github.com/th3w1zard1/nwscript/server"
	"github.com/th3w1zard1/nwscript/vm"
)

// compileCommand handles `ncsc compile` and, with write false, `ncsc check`.
func compileCommand(g *globals, args []string, write bool) error {
	fs := flag.NewFlagSet("compile", flag.ContinueOnError)
	out := fs.String("o", "", "Output directory (default: next to each script, or [compile] output)")
	optimize := fs.Bool("O", false, "Run the peephole optimizer")
	if err := parse(g, fs, args); err != nil {
		return err
	}

	pr, err := loadProject(g, *optimize)
	if err != nil {
		return err
	}
	defer pr.close()

	scripts, err := pr.scripts(fs.Args())
	if err != nil {
		return err
	}

	failed := 0
	for _, path := range scripts {
		p, err := pr.compile(path)
		if err != nil {
			fmt.Fprintf(g.stderr, "%v\n", err)
			failed++
			continue
		}
		if !write {
			fmt.Fprintf(g.stdout, "%s: ok (%d instructions)\n", path, p.Len())
			continue
		}
		dest := outputPath(path, *out, pr.manifest)
		if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
			return err
		}
		if err := compiler.WriteProgram(p, dest); err != nil {
			return err
		}
		if g.verbose > 0 {
			fmt.Fprintf(g.stdout, "%s -> %s (%d instructions)\n", path, dest, p.Len())
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scripts failed to compile", failed, len(scripts))
	}
	return nil
}

// outputPath places name.ncs in dir, in the manifest's output directory,
// or next to the script.
func outputPath(script, dir string, m *manifest.Manifest) string {
	base := strings.TrimSuffix(filepath.Base(script), filepath.Ext(script)) + ".ncs"
	switch {
	case dir != "":
		return filepath.Join(dir, base)
	case m != nil:
		return filepath.Join(m.OutputDir(), base)
	}
	return filepath.Join(filepath.Dir(script), base)
}

// disasmCommand handles `ncsc disasm`.
func disasmCommand(g *globals, args []string) error {
	fs := flag.NewFlagSet("disasm", flag.ContinueOnError)
	if err := parse(g, fs, args); err != nil {
		return err
	}
	if fs.NArg() == 0 {
		return fmt.Errorf("disasm needs at least one file")
	}

	pr, err := loadProject(g, false)
	if err != nil {
		return err
	}
	defer pr.close()

	for _, path := range fs.Args() {
		p, err := pr.load(path)
		if err != nil {
			return err
		}
		fmt.Fprint(g.stdout, bytecode.DisassembleWithName(p, filepath.Base(path)))
	}
	return nil
}

// runCommand handles `ncsc run`.
func runCommand(g *globals, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	maxInstructions := fs.Int("max", 0, "Instruction limit (default: [run] max-instructions or 100000)")
	seed := fs.Int64("seed", 0, "Seed for Random")
	tracePath := fs.String("trace", "", "Write a CBOR execution trace to this file")
	profile := fs.Int("profile", 0, "Print the N most executed opcodes")
	if err := parse(g, fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("run needs exactly one script")
	}

	pr, err := loadProject(g, false)
	if err != nil {
		return err
	}
	defer pr.close()

	p, err := pr.load(fs.Arg(0))
	if err != nil {
		return err
	}

	opts := pr.vmOptions()
	opts.Output = g.stdout
	if *maxInstructions > 0 {
		opts.MaxInstructions = *maxInstructions
	}
	if *seed != 0 {
		opts.Seed = *seed
	}
	if *tracePath != "" {
		opts.Trace = true
	}

	m, err := vm.New(p, opts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runErr := m.Run(ctx)

	if *tracePath != "" && m.Trace() != nil {
		data, err := m.Trace().EncodeCBOR()
		if err != nil {
			return err
		}
		if err := os.WriteFile(*tracePath, data, 0644); err != nil {
			return err
		}
	}
	if *profile > 0 {
		for _, row := range m.Profile().Top(*profile) {
			fmt.Fprintf(g.stderr, "%-12s %d\n", row.Type, row.Count)
		}
	}
	if runErr != nil {
		return runErr
	}

	if top, ok := m.Result(); ok {
		fmt.Fprintf(g.stdout, "result: %s\n", top)
	}
	if g.verbose > 0 {
		fmt.Fprintf(g.stderr, "run %s: %d instructions, %d engine calls\n", m.RunID(), m.Executed(), len(m.Calls()))
	}
	return nil
}

// depsCommand handles `ncsc deps`.
func depsCommand(g *globals, args []string) error {
	fs := flag.NewFlagSet("deps", flag.ContinueOnError)
	if err := parse(g, fs, args); err != nil {
		return err
	}
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return err
	}
	if m == nil {
		return fmt.Errorf("no %s found", manifest.FileName)
	}
	deps, err := manifest.NewResolver(m).Resolve()
	if err != nil {
		return err
	}
	for _, d := range deps {
		fmt.Fprintf(g.stdout, "%s\t%s\n", d.Name, d.LocalPath)
	}
	return nil
}

// lspCommand handles `ncsc lsp`. Logging goes to stderr, since stdout
// carries the protocol.
func lspCommand(g *globals, args []string) error {
	fs := flag.NewFlagSet("lsp", flag.ContinueOnError)
	if err := parse(g, fs, args); err != nil {
		return err
	}
	pr, err := loadProject(g, false)
	if err != nil {
		return err
	}
	defer pr.close()
	return server.NewLSP(pr.opts).Run()
}

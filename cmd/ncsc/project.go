package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/th3w1zard1/nwscript/compiler"
	"github.com/th3w1zard1/nwscript/lib/cache"
	"github.com/th3w1zard1/nwscript/manifest"
	"github.com/th3w1zard1/nwscript/pkg/bytecode"
	"github.com/th3w1zard1/nwscript/pkg/nwscript"
	"github.com/th3w1zard1/nwscript/vm"
)

// project is the configuration a command works with: the manifest when
// one is found, overridden by command-line flags.
type project struct {
	manifest *manifest.Manifest
	deps     []manifest.ResolvedDep
	opts     compiler.Options
	cache    *cache.Cache
}

func loadProject(g *globals, optimize bool) (*project, error) {
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return nil, fmt.Errorf("loading manifest: %w", err)
	}
	pr := &project{manifest: m}

	if m != nil {
		if pr.deps, err = manifest.NewResolver(m).Resolve(); err != nil {
			return nil, fmt.Errorf("resolving dependencies: %w", err)
		}
		if pr.opts, err = m.CompilerOptions(pr.deps); err != nil {
			return nil, err
		}
	}

	// Flags win over the manifest.
	for _, dir := range g.includes {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		pr.opts.IncludePaths = append([]string{abs}, pr.opts.IncludePaths...)
	}
	if g.table != "" {
		if pr.opts.Table, err = loadTable(g.table); err != nil {
			return nil, fmt.Errorf("loading table: %w", err)
		}
	}
	if optimize {
		pr.opts.Optimize = true
	}
	pr.opts.Debug = g.verbose > 1

	if m != nil && m.Cache.Enabled && !g.noCache {
		if pr.cache, err = cache.Open(m.Cache.Driver, m.Cache.DSN); err != nil {
			return nil, fmt.Errorf("opening cache: %w", err)
		}
	}
	return pr, nil
}

func loadTable(path string) (*nwscript.Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return nwscript.LoadYAMLFile(path)
	}
	return compiler.LoadTableFile(path)
}

func (pr *project) close() {
	if pr.cache != nil {
		pr.cache.Close()
	}
}

// compile compiles one script, through the cache when it is enabled.
func (pr *project) compile(path string) (*bytecode.Program, error) {
	if pr.cache == nil {
		return compiler.CompileFile(path, pr.opts)
	}
	p, _, err := pr.cache.CompileFile(path, pr.opts)
	return p, err
}

// load reads a compiled .ncs file or compiles an .nss script.
func (pr *project) load(path string) (*bytecode.Program, error) {
	if strings.EqualFold(filepath.Ext(path), ".ncs") {
		return bytecode.ReadFile(path)
	}
	return pr.compile(path)
}

// scripts returns args, or the manifest's scripts when args is empty.
func (pr *project) scripts(args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	if pr.manifest == nil || len(pr.manifest.Project.Scripts) == 0 {
		return nil, fmt.Errorf("no scripts given and no [project] scripts in %s", manifest.FileName)
	}
	return pr.manifest.ScriptPaths(), nil
}

func (pr *project) vmOptions() vm.Options {
	if pr.manifest == nil {
		return vm.Options{Table: pr.opts.Table}
	}
	return pr.manifest.VMOptions(pr.opts.Table)
}

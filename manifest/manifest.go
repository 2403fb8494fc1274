// Package manifest handles ncs.toml project configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/th3w1zard1/nwscript/compiler"
	"github.com/th3w1zard1/nwscript/pkg/nwscript"
	"github.com/th3w1zard1/nwscript/vm"
)

var log = commonlog.GetLogger("ncs.manifest")

// FileName is the project file looked up by Load and FindAndLoad.
const FileName = "ncs.toml"

// Manifest represents an ncs.toml project configuration.
type Manifest struct {
	Project      Project               `toml:"project"`
	Compile      CompileConfig         `toml:"compile"`
	Run          RunConfig             `toml:"run"`
	Cache        CacheConfig           `toml:"cache"`
	Dependencies map[string]Dependency `toml:"dependencies"`

	// Dir is the directory containing the ncs.toml file (set at load time).
	Dir string `toml:"-"`
}

// Project contains project metadata.
type Project struct {
	Name    string   `toml:"name"`
	Version string   `toml:"version"`
	Scripts []string `toml:"scripts"`
}

// CompileConfig mirrors compiler.Options.
type CompileConfig struct {
	IncludeDirs []string `toml:"include-dirs"`
	Table       string   `toml:"table"` // nwscript.nss or a YAML table
	MaxDepth    int      `toml:"max-depth"`
	Optimize    bool     `toml:"optimize"`
	Output      string   `toml:"output"`
}

// RunConfig mirrors vm.Options.
type RunConfig struct {
	MaxInstructions int   `toml:"max-instructions"`
	Trace           bool  `toml:"trace"`
	Seed            int64 `toml:"seed"`
}

// CacheConfig selects the compiled-artifact cache backend.
type CacheConfig struct {
	Enabled bool   `toml:"enabled"`
	Driver  string `toml:"driver"` // sqlite, postgres or mysql
	DSN     string `toml:"dsn"`
}

// Dependency is an include library fetched from git or found on disk.
type Dependency struct {
	Git    string `toml:"git"`
	Tag    string `toml:"tag"`
	Branch string `toml:"branch"`
	Rev    string `toml:"rev"`
	Path   string `toml:"path"`
}

// Load parses an ncs.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if len(m.Compile.IncludeDirs) == 0 {
		m.Compile.IncludeDirs = []string{"."}
	}
	if m.Compile.Output == "" {
		m.Compile.Output = "build"
	}
	if m.Cache.Driver == "" {
		m.Cache.Driver = "sqlite"
	}
	if m.Cache.DSN == "" && m.Cache.Driver == "sqlite" {
		m.Cache.DSN = filepath.Join(m.Dir, ".ncs", "cache.db")
	}
	for name := range m.Dependencies {
		if err := ValidateDependencyName(name); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	log.Debugf("loaded %s (%d dependencies)", path, len(m.Dependencies))
	return &m, nil
}

// FindAndLoad walks up from startDir to find an ncs.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, FileName)
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

func (m *Manifest) abs(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(m.Dir, p)
}

// IncludeDirPaths returns absolute paths for the configured include directories.
func (m *Manifest) IncludeDirPaths() []string {
	var paths []string
	for _, d := range m.Compile.IncludeDirs {
		paths = append(paths, m.abs(d))
	}
	return paths
}

// ScriptPaths returns absolute paths for the listed entry scripts.
func (m *Manifest) ScriptPaths() []string {
	var paths []string
	for _, s := range m.Project.Scripts {
		paths = append(paths, m.abs(s))
	}
	return paths
}

// OutputDir returns the absolute directory compiled .ncs files go to.
func (m *Manifest) OutputDir() string {
	return m.abs(m.Compile.Output)
}

// DepsDir returns the path to the .ncs/deps directory.
func (m *Manifest) DepsDir() string {
	return filepath.Join(m.Dir, ".ncs", "deps")
}

// LockFilePath returns the path to .ncs/lock.yaml.
func (m *Manifest) LockFilePath() string {
	return filepath.Join(m.Dir, ".ncs", "lock.yaml")
}

// LoadTable reads the configured engine table. It returns nil, nil when
// none is configured, which selects the built-in table.
func (m *Manifest) LoadTable() (*nwscript.Table, error) {
	if m.Compile.Table == "" {
		return nil, nil
	}
	path := m.abs(m.Compile.Table)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return nwscript.LoadYAMLFile(path)
	default:
		return compiler.LoadTableFile(path)
	}
}

// CompilerOptions builds compiler options from the [compile] section.
// Include directories of resolved dependencies are searched after the
// project's own.
func (m *Manifest) CompilerOptions(deps []ResolvedDep) (compiler.Options, error) {
	table, err := m.LoadTable()
	if err != nil {
		return compiler.Options{}, fmt.Errorf("loading table: %w", err)
	}
	opts := compiler.Options{
		Table:        table,
		IncludePaths: m.IncludeDirPaths(),
		MaxDepth:     m.Compile.MaxDepth,
		Optimize:     m.Compile.Optimize,
	}
	for _, d := range deps {
		opts.IncludePaths = append(opts.IncludePaths, d.IncludeDirs...)
	}
	return opts, nil
}

// VMOptions builds interpreter options from the [run] section.
func (m *Manifest) VMOptions(table *nwscript.Table) vm.Options {
	return vm.Options{
		Table:           table,
		MaxInstructions: m.Run.MaxInstructions,
		Trace:           m.Run.Trace,
		Seed:            m.Run.Seed,
	}
}

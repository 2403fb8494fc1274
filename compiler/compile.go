package compiler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/th3w1zard1/nwscript/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// CompileSource compiles script source text.
func CompileSource(source string, opts Options) (*bytecode.Program, error) {
	return CompileNamed("", source, opts)
}

// CompileFile compiles a script file. The file's directory is searched for
// includes after opts.IncludePaths.
func CompileFile(path string, opts Options) (*bytecode.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading script: %w", err)
	}
	dir := filepath.Dir(path)
	if !containsPath(opts.IncludePaths, dir) {
		opts.IncludePaths = append(append([]string(nil), opts.IncludePaths...), dir)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return CompileNamed(name, string(data), opts)
}

func containsPath(paths []string, dir string) bool {
	for _, p := range paths {
		if filepath.Clean(p) == filepath.Clean(dir) {
			return true
		}
	}
	return false
}

// CompileNamed compiles source text, reporting errors against name.
func CompileNamed(name, source string, opts Options) (*bytecode.Program, error) {
	f, err := Parse(name, source, opts.maxDepth())
	if err != nil {
		return nil, err
	}
	return NewCompiler(opts).Compile(f)
}

// SerializeProgram encodes a program in the NCS binary format.
func SerializeProgram(p *bytecode.Program) ([]byte, error) {
	return bytecode.Encode(p)
}

// DeserializeProgram decodes NCS bytes.
func DeserializeProgram(data []byte) (*bytecode.Program, error) {
	return bytecode.Decode(data)
}

// WriteProgram encodes p and writes it to path.
func WriteProgram(p *bytecode.Program, path string) error {
	return bytecode.WriteFile(p, path)
}

package compiler

import (
	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// DefaultMaxDepth bounds nesting of statements and expressions.
const DefaultMaxDepth = 128

// Options configures a compilation. The zero value compiles against the
// built-in action table with no include paths.
type Options struct {
	// Table is the engine routine table. Nil selects nwscript.Builtin().
	Table *nwscript.Table

	// IncludePaths are searched in order for name.nss.
	IncludePaths []string

	// Library maps include names to source text. It is consulted after
	// IncludePaths.
	Library map[string]string

	// MaxDepth caps nesting depth. Zero means DefaultMaxDepth.
	MaxDepth int

	// Optimize runs the peephole passes over the finished program.
	Optimize bool

	// Debug logs the function map and the instruction listing.
	Debug bool
}

func (o *Options) table() *nwscript.Table {
	if o.Table == nil {
		return nwscript.Builtin()
	}
	return o.Table
}

func (o *Options) maxDepth() int {
	if o.MaxDepth <= 0 {
		return DefaultMaxDepth
	}
	return o.MaxDepth
}

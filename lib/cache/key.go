package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sort"

	"github.com/th3w1zard1/nwscript/compiler"
	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// Key hashes source together with every option that changes the output.
// Include files found on disk are fingerprinted by search path only, so a
// changed include under an unchanged path still hits; in-memory library
// sources are hashed in full.
func Key(source string, opts compiler.Options) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00", compilerVersion)
	fmt.Fprintf(h, "src %d\x00%s\x00", len(source), source)
	Fingerprint(h, opts)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint writes a canonical description of opts to w.
func Fingerprint(w io.Writer, opts compiler.Options) {
	maxDepth := opts.MaxDepth
	if maxDepth <= 0 {
		maxDepth = compiler.DefaultMaxDepth
	}
	fmt.Fprintf(w, "depth %d\x00optimize %t\x00", maxDepth, opts.Optimize)
	for _, p := range opts.IncludePaths {
		fmt.Fprintf(w, "path %s\x00", p)
	}

	names := make([]string, 0, len(opts.Library))
	for name := range opts.Library {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		src := opts.Library[name]
		fmt.Fprintf(w, "lib %s %d\x00%s\x00", name, len(src), src)
	}

	table := opts.Table
	if table == nil {
		table = nwscript.Builtin()
	}
	for i := range table.Actions {
		fmt.Fprintf(w, "action %s\x00", table.Actions[i].String())
	}
	for _, c := range table.Constants {
		fmt.Fprintf(w, "const %s %s %s\x00", c.Value.Type, c.Name, c.Value.GoString())
	}
}

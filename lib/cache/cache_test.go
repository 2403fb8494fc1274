package cache

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/th3w1zard1/nwscript/compiler"
	"github.com/th3w1zard1/nwscript/pkg/bytecode"
	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

const script = `void main() { PrintInteger(1 + 2); }`

func openTemp(t *testing.T) *Cache {
	t.Helper()
	c, err := Open("sqlite", filepath.Join(t.TempDir(), "sub", "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKeyDependsOnSourceAndOptions(t *testing.T) {
	base := Key(script, compiler.Options{})
	if len(base) != 64 {
		t.Errorf("key length = %d, want 64 hex digits", len(base))
	}
	if Key(script, compiler.Options{}) != base {
		t.Error("key is not deterministic")
	}
	if Key(script, compiler.Options{MaxDepth: compiler.DefaultMaxDepth}) != base {
		t.Error("explicit default depth should not change the key")
	}

	table := nwscript.NewTable([]nwscript.Routine{{Name: "PrintInteger", Params: []nwscript.Param{{Name: "n", Type: nwscript.Int}}}}, nil)
	variants := map[string]string{
		"source":   Key(script+" ", compiler.Options{}),
		"optimize": Key(script, compiler.Options{Optimize: true}),
		"depth":    Key(script, compiler.Options{MaxDepth: 12}),
		"paths":    Key(script, compiler.Options{IncludePaths: []string{"/inc"}}),
		"library":  Key(script, compiler.Options{Library: map[string]string{"k_inc": "int X = 1;"}}),
		"table":    Key(script, compiler.Options{Table: table}),
	}
	seen := map[string]string{}
	for name, k := range variants {
		if k == base {
			t.Errorf("%s change did not change the key", name)
		}
		if other, dup := seen[k]; dup {
			t.Errorf("%s and %s share a key", name, other)
		}
		seen[k] = name
	}

	a := Key(script, compiler.Options{Library: map[string]string{"a": "1", "b": "2"}})
	b := Key(script, compiler.Options{Library: map[string]string{"b": "2", "a": "1"}})
	if a != b {
		t.Error("library order changed the key")
	}
}

func TestPutGet(t *testing.T) {
	c := openTemp(t)
	p, err := compiler.CompileSource(script, compiler.Options{})
	if err != nil {
		t.Fatal(err)
	}

	put, err := c.Put("k1", "add", p)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := c.Get("k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != put.ID || got.Name != "add" || got.Size != p.Len() || got.Compiler != compilerVersion {
		t.Errorf("artifact = %+v, want %+v", got, put)
	}
	if !got.Created.Equal(put.Created) {
		t.Errorf("created = %v, want %v", got.Created, put.Created)
	}
	back, err := got.Program()
	if err != nil {
		t.Fatalf("Program: %v", err)
	}
	if !back.Equal(p) {
		t.Errorf("decoded program differs:\n%s\nwant\n%s", bytecode.Disassemble(back), bytecode.Disassemble(p))
	}

	// Put replaces
	again, err := c.Put("k1", "add2", p)
	if err != nil {
		t.Fatal(err)
	}
	if n, _ := c.Len(); n != 1 {
		t.Errorf("Len = %d after replace, want 1", n)
	}
	if got, _ := c.Get("k1"); got.ID != again.ID || got.Name != "add2" {
		t.Errorf("replaced artifact = %+v", got)
	}
}

func TestGetMissing(t *testing.T) {
	c := openTemp(t)
	if _, err := c.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := c.Delete("nope"); err != nil {
		t.Errorf("Delete missing key: %v", err)
	}
}

func TestCompileHitsSecondTime(t *testing.T) {
	c := openTemp(t)
	opts := compiler.Options{Optimize: true}

	first, hit, err := c.Compile("add", script, opts)
	if err != nil || hit {
		t.Fatalf("first Compile: hit=%v err=%v", hit, err)
	}
	second, hit, err := c.Compile("add", script, opts)
	if err != nil || !hit {
		t.Fatalf("second Compile: hit=%v err=%v", hit, err)
	}
	if !first.Equal(second) {
		t.Error("cached program differs from compiled one")
	}

	if _, hit, _ := c.Compile("add", script, compiler.Options{}); hit {
		t.Error("different options should miss")
	}
	if n, _ := c.Len(); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}
}

func TestCompileErrorNotCached(t *testing.T) {
	c := openTemp(t)
	_, _, err := c.Compile("bad", "void main() { undefined(); }", compiler.Options{})
	var cerr *compiler.CompileError
	if !errors.As(err, &cerr) {
		t.Fatalf("err = %v, want *CompileError", err)
	}
	if cerr.File != "bad" {
		t.Errorf("error file = %q, want bad", cerr.File)
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
}

func TestCompileFileUsesScriptDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "k_inc_math.nss"), []byte("int Three() { return 3; }\n"), 0644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(dir, "main.nss")
	src := "#include \"k_inc_math\"\nvoid main() { PrintInteger(Three()); }\n"
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		t.Fatal(err)
	}

	c := openTemp(t)
	if _, hit, err := c.CompileFile(path, compiler.Options{}); err != nil || hit {
		t.Fatalf("CompileFile: hit=%v err=%v", hit, err)
	}
	if _, hit, err := c.CompileFile(path, compiler.Options{}); err != nil || !hit {
		t.Fatalf("second CompileFile: hit=%v err=%v", hit, err)
	}
}

func TestPrune(t *testing.T) {
	c := openTemp(t)
	p, err := compiler.CompileSource(script, compiler.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.Put("old", "a", p); err != nil {
		t.Fatal(err)
	}
	n, err := c.Prune(time.Now().Add(time.Hour))
	if err != nil || n != 1 {
		t.Errorf("Prune = %d, %v; want 1", n, err)
	}
	if n, _ := c.Len(); n != 0 {
		t.Errorf("Len after prune = %d", n)
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	if _, err := Open("oracle", "x"); err == nil {
		t.Error("Open should reject unknown drivers")
	}
}

func TestNormalizeDriver(t *testing.T) {
	tests := map[string]string{
		"":           "sqlite",
		"SQLite3":    "sqlite",
		"postgresql": "postgres",
		"pq":         "postgres",
		"mariadb":    "mysql",
	}
	for in, want := range tests {
		if got, err := normalizeDriver(in); err != nil || got != want {
			t.Errorf("normalizeDriver(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
}

func TestBindPlaceholders(t *testing.T) {
	pg := &Cache{dialect: dialects["postgres"]}
	if got := pg.bind("a = ? AND b = ?"); got != "a = $1 AND b = $2" {
		t.Errorf("postgres bind = %q", got)
	}
	my := &Cache{dialect: dialects["mysql"]}
	if got := my.bind("a = ?"); got != "a = ?" {
		t.Errorf("mysql bind = %q", got)
	}
}

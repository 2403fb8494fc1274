package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/th3w1zard1/nwscript/pkg/bytecode"
	"github.com/th3w1zard1/nwscript/vm"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// writeScript writes a file into dir and returns its path.
func writeScript(t *testing.T, dir, name, source string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(source), 0644); err != nil {
		t.Fatalf("writing %s: %v", p, err)
	}
	return p
}

// ncsc runs the command line in a fresh temp directory.
func ncsc(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

const addScript = "void main() { PrintInteger(1 + 2); }\n"

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestUsage(t *testing.T) {
	if code, _, stderr := ncsc(t); code != 2 || !strings.Contains(stderr, "Usage") {
		t.Errorf("no args: code %d, stderr %q", code, stderr)
	}
	if code, _, _ := ncsc(t, "help"); code != 0 {
		t.Errorf("help: code %d", code)
	}
	if code, _, stderr := ncsc(t, "frobnicate"); code != 2 || !strings.Contains(stderr, "frobnicate") {
		t.Errorf("unknown command: code %d, stderr %q", code, stderr)
	}
	if code, _, _ := ncsc(t, "run", "-h"); code != 0 {
		t.Errorf("run -h: code %d", code)
	}
}

func TestCompileWritesNCS(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	src := writeScript(t, dir, "add.nss", addScript)
	out := filepath.Join(dir, "out")

	code, _, stderr := ncsc(t, "compile", "-o", out, "-O", src)
	if code != 0 {
		t.Fatalf("compile: code %d, stderr %q", code, stderr)
	}
	p, err := bytecode.ReadFile(filepath.Join(out, "add.ncs"))
	if err != nil {
		t.Fatalf("reading output: %v", err)
	}

	var buf bytes.Buffer
	m, err := vm.New(p, vm.Options{Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	if err := m.Run(testContext(t)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if buf.String() != "3\n" {
		t.Errorf("output = %q, want 3", buf.String())
	}
}

func TestCompileNextToScript(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	src := writeScript(t, dir, "src/add.nss", addScript)
	if code, _, stderr := ncsc(t, "compile", src); code != 0 {
		t.Fatalf("compile: code %d, stderr %q", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "src", "add.ncs")); err != nil {
		t.Errorf("output missing: %v", err)
	}
}

func TestCheckReportsErrors(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	good := writeScript(t, dir, "good.nss", addScript)
	bad := writeScript(t, dir, "bad.nss", "void main() { int x = \"s\"; }\n")

	code, stdout, stderr := ncsc(t, "check", good, bad)
	if code != 1 {
		t.Errorf("code = %d, want 1", code)
	}
	if !strings.Contains(stdout, "good.nss: ok") {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "bad:") || !strings.Contains(stderr, "1 of 2 scripts failed") {
		t.Errorf("stderr = %q", stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "good.ncs")); !os.IsNotExist(err) {
		t.Error("check should not write output")
	}
}

func TestIncludeFlag(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	writeScript(t, dir, "lib/k_inc_five.nss", "int Five() { return 5; }\n")
	src := writeScript(t, dir, "main.nss", "#include \"k_inc_five\"\nvoid main() { PrintInteger(Five()); }\n")

	if code, _, _ := ncsc(t, "check", src); code == 0 {
		t.Error("check without -I should fail")
	}
	code, stdout, stderr := ncsc(t, "run", "-I", filepath.Join(dir, "lib"), src)
	if code != 0 {
		t.Fatalf("run: code %d, stderr %q", code, stderr)
	}
	if stdout != "5\n" {
		t.Errorf("stdout = %q, want 5", stdout)
	}
}

func TestDisasm(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	src := writeScript(t, dir, "add.nss", addScript)

	code, fromSource, stderr := ncsc(t, "disasm", src)
	if code != 0 {
		t.Fatalf("disasm: code %d, stderr %q", code, stderr)
	}
	for _, want := range []string{"add.nss", "ACTION", "RETN"} {
		if !strings.Contains(fromSource, want) {
			t.Errorf("listing lacks %q:\n%s", want, fromSource)
		}
	}

	if code, _, _ := ncsc(t, "compile", src); code != 0 {
		t.Fatal("compile failed")
	}
	code, fromBinary, _ := ncsc(t, "disasm", filepath.Join(dir, "add.ncs"))
	if code != 0 || !strings.Contains(fromBinary, "ACTION") {
		t.Errorf("disasm .ncs: code %d\n%s", code, fromBinary)
	}

	if code, _, _ := ncsc(t, "disasm"); code != 1 {
		t.Errorf("disasm without files: code %d, want 1", code)
	}
}

func TestRunWritesTrace(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	src := writeScript(t, dir, "add.nss", addScript)
	tracePath := filepath.Join(dir, "trace.cbor")

	code, stdout, stderr := ncsc(t, "run", "-trace", tracePath, "-profile", "3", src)
	if code != 0 {
		t.Fatalf("run: code %d, stderr %q", code, stderr)
	}
	if stdout != "3\n" {
		t.Errorf("stdout = %q", stdout)
	}
	if !strings.Contains(stderr, "RETN") {
		t.Errorf("profile missing from stderr: %q", stderr)
	}

	data, err := os.ReadFile(tracePath)
	if err != nil {
		t.Fatal(err)
	}
	tr, err := vm.DecodeTrace(data)
	if err != nil {
		t.Fatalf("DecodeTrace: %v", err)
	}
	if len(tr.Entries) == 0 || tr.RunID == "" {
		t.Errorf("trace = %+v", tr)
	}
}

func TestRunInstructionLimit(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	src := writeScript(t, dir, "loop.nss", "void main() { while (TRUE) { } }\n")
	code, _, stderr := ncsc(t, "run", "-max", "100", src)
	if code != 1 || !strings.Contains(stderr, "Error") {
		t.Errorf("code %d, stderr %q", code, stderr)
	}
}

func TestManifestProject(t *testing.T) {
	dir := t.TempDir()
	testChdir(t, dir)
	writeScript(t, dir, "ncs.toml", `
[project]
name = "demo"
scripts = ["scripts/add.nss", "scripts/hello.nss"]

[compile]
include-dirs = ["inc"]
output = "out"

[cache]
enabled = true
`)
	writeScript(t, dir, "inc/k_inc_greet.nss", "string Greeting() { return \"hi\"; }\n")
	writeScript(t, dir, "scripts/add.nss", addScript)
	writeScript(t, dir, "scripts/hello.nss", "#include \"k_inc_greet\"\nvoid main() { PrintString(Greeting()); }\n")

	for i := 0; i < 2; i++ {
		if code, _, stderr := ncsc(t, "compile"); code != 0 {
			t.Fatalf("compile #%d: code %d, stderr %q", i, code, stderr)
		}
	}
	for _, name := range []string{"add.ncs", "hello.ncs"} {
		if _, err := os.Stat(filepath.Join(dir, "out", name)); err != nil {
			t.Errorf("%s missing: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, ".ncs", "cache.db")); err != nil {
		t.Errorf("cache database missing: %v", err)
	}

	code, stdout, _ := ncsc(t, "run", filepath.Join(dir, "out", "hello.ncs"))
	if code != 0 || stdout != "hi\n" {
		t.Errorf("run: code %d, stdout %q", code, stdout)
	}
}

func TestCompileWithoutScripts(t *testing.T) {
	testChdir(t, t.TempDir())
	code, _, stderr := ncsc(t, "compile")
	if code != 1 || !strings.Contains(stderr, "no scripts") {
		t.Errorf("code %d, stderr %q", code, stderr)
	}
}

func TestDepsCommand(t *testing.T) {
	root := t.TempDir()
	writeScript(t, root, "lib/k_inc_lib.nss", "int Lib() { return 1; }\n")
	app := filepath.Join(root, "app")
	writeScript(t, app, "ncs.toml", "[dependencies]\nlib = { path = \"../lib\" }\n")
	testChdir(t, app)

	code, stdout, stderr := ncsc(t, "deps")
	if code != 0 {
		t.Fatalf("deps: code %d, stderr %q", code, stderr)
	}
	if !strings.HasPrefix(stdout, "lib\t") {
		t.Errorf("stdout = %q", stdout)
	}
	if _, err := os.Stat(filepath.Join(app, ".ncs", "lock.yaml")); err != nil {
		t.Errorf("lock file missing: %v", err)
	}
}

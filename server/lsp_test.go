package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/th3w1zard1/nwscript/compiler"
)

// ---------------------------------------------------------------------------
// Text extraction helpers
// ---------------------------------------------------------------------------

func TestExtractPrefix(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"simple word", "int n = GetFir", protocol.Position{Line: 0, Character: 14}, "GetFir"},
		{"at start", "Prin", protocol.Position{Line: 0, Character: 4}, "Prin"},
		{"empty line", "", protocol.Position{Line: 0, Character: 0}, ""},
		{"multi line", "void main()\n{\n  OBJECT_", protocol.Position{Line: 2, Character: 9}, "OBJECT_"},
		{"after paren", "PrintInteger(nVal", protocol.Position{Line: 0, Character: 17}, "nVal"},
		{"cursor at beginning", "hello", protocol.Position{Line: 0, Character: 0}, ""},
		{"line beyond document", "single line", protocol.Position{Line: 5, Character: 0}, ""},
		{"column beyond line", "abc", protocol.Position{Line: 0, Character: 40}, "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractPrefix(tt.text, tt.pos); got != tt.want {
				t.Errorf("extractPrefix = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractWord(t *testing.T) {
	tests := []struct {
		name string
		text string
		pos  protocol.Position
		want string
	}{
		{"inside word", "hello world", protocol.Position{Line: 0, Character: 3}, "hello"},
		{"at end", "hello world", protocol.Position{Line: 0, Character: 5}, "hello"},
		{"second word", "hello world", protocol.Position{Line: 0, Character: 8}, "world"},
		{"empty line", "", protocol.Position{Line: 0, Character: 0}, ""},
		{"multi line", "first\nGetModule()", protocol.Position{Line: 1, Character: 3}, "GetModule"},
		{"underscore", "OBJECT_SELF", protocol.Position{Line: 0, Character: 3}, "OBJECT_SELF"},
		{"line beyond document", "single line", protocol.Position{Line: 5, Character: 0}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractWord(tt.text, tt.pos); got != tt.want {
				t.Errorf("extractWord = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBoolPtr(t *testing.T) {
	if p := boolPtr(true); p == nil || !*p {
		t.Error("boolPtr(true) should point at true")
	}
	if p := boolPtr(false); p == nil || *p {
		t.Error("boolPtr(false) should point at false")
	}
}

func TestURIPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "k_act talk.nss")
	uri := pathURI(path)
	if !strings.HasPrefix(string(uri), "file://") {
		t.Errorf("pathURI = %q", uri)
	}
	if got := uriPath(uri); got != path {
		t.Errorf("uriPath(%q) = %q, want %q", uri, got, path)
	}
	if got := uriPath("untitled:Untitled-1"); got != "" {
		t.Errorf("uriPath of non-file URI = %q, want empty", got)
	}
}

// ---------------------------------------------------------------------------
// Language features
// ---------------------------------------------------------------------------

const doc = `struct Pair { int a; int b; };

const int LIMIT = 10;
int gCount;

int Add(int x, int y);

int Add(int x, int y) { return x + y; }

void main() {
    gCount = Add(1, LIMIT);
    PrintInteger(gCount);
}
`

func newTestLSP(t *testing.T, includes ...string) *LspServer {
	t.Helper()
	return NewLSP(compiler.Options{IncludePaths: includes})
}

func labels(items []protocol.CompletionItem) map[string]protocol.CompletionItem {
	out := make(map[string]protocol.CompletionItem, len(items))
	for _, it := range items {
		out[it.Label] = it
	}
	return out
}

func hoverText(t *testing.T, h *protocol.Hover) string {
	t.Helper()
	if h == nil {
		t.Fatal("hover returned nil")
	}
	mc, ok := h.Contents.(protocol.MarkupContent)
	if !ok {
		t.Fatal("hover contents should be MarkupContent")
	}
	if mc.Kind != protocol.MarkupKindMarkdown {
		t.Errorf("hover markup kind = %q, want markdown", mc.Kind)
	}
	return mc.Value
}

func TestCompleteDocumentSymbols(t *testing.T) {
	lsp := newTestLSP(t)
	items := labels(lsp.complete("file:///k.nss", doc, "Ad"))
	add, ok := items["Add"]
	if !ok {
		t.Fatalf("completion lacks Add: %v", items)
	}
	if add.Kind == nil || *add.Kind != protocol.CompletionItemKindFunction {
		t.Error("Add should complete as a function")
	}
	if add.Detail == nil || *add.Detail != "int Add(int x, int y)" {
		t.Errorf("Add detail = %v", add.Detail)
	}

	items = labels(lsp.complete("file:///k.nss", doc, "LIM"))
	if it, ok := items["LIMIT"]; !ok || *it.Kind != protocol.CompletionItemKindConstant {
		t.Errorf("LIMIT completion = %+v", it)
	}
	items = labels(lsp.complete("file:///k.nss", doc, "Pa"))
	if it, ok := items["Pair"]; !ok || *it.Kind != protocol.CompletionItemKindStruct {
		t.Errorf("Pair completion = %+v", it)
	}
}

func TestCompleteEngineRoutinesAndKeywords(t *testing.T) {
	lsp := newTestLSP(t)
	items := labels(lsp.complete("file:///k.nss", doc, "print"))
	pi, ok := items["PrintInteger"]
	if !ok {
		t.Fatal("completion lacks PrintInteger")
	}
	if pi.Detail == nil || !strings.Contains(*pi.Detail, "PrintInteger(int") {
		t.Errorf("PrintInteger detail = %v", pi.Detail)
	}

	items = labels(lsp.complete("file:///k.nss", doc, "whi"))
	if it, ok := items["while"]; !ok || *it.Kind != protocol.CompletionItemKindKeyword {
		t.Errorf("while completion = %+v", it)
	}

	items = labels(lsp.complete("file:///k.nss", doc, "FAL"))
	if it, ok := items["FALSE"]; !ok || it.Detail == nil || *it.Detail != "0" {
		t.Errorf("FALSE completion = %+v", it)
	}
}

func TestCompleteUnparsableDocument(t *testing.T) {
	lsp := newTestLSP(t)
	items := labels(lsp.complete("file:///k.nss", "int Broken( {", "Print"))
	if _, ok := items["PrintString"]; !ok {
		t.Error("engine routines should complete even when the document does not parse")
	}
}

func TestHover(t *testing.T) {
	lsp := newTestLSP(t)

	if got := hoverText(t, lsp.hover("file:///k.nss", doc, "Add")); !strings.Contains(got, "int Add(int x, int y)") {
		t.Errorf("Add hover = %q", got)
	}
	if got := hoverText(t, lsp.hover("file:///k.nss", doc, "gCount")); !strings.Contains(got, "int gCount") {
		t.Errorf("gCount hover = %q", got)
	}

	got := hoverText(t, lsp.hover("file:///k.nss", doc, "PrintInteger"))
	if !strings.Contains(got, "void PrintInteger(") || !strings.Contains(got, "Engine routine #") {
		t.Errorf("PrintInteger hover = %q", got)
	}
	if got := hoverText(t, lsp.hover("file:///k.nss", doc, "TRUE")); !strings.Contains(got, "const int TRUE") {
		t.Errorf("TRUE hover = %q", got)
	}

	if h := lsp.hover("file:///k.nss", doc, "NoSuchThing99"); h != nil {
		t.Errorf("hover for unknown word = %+v, want nil", h)
	}
}

func TestDefinition(t *testing.T) {
	lsp := newTestLSP(t)
	locs := lsp.definition("file:///k.nss", doc, "Add")
	if len(locs) != 1 {
		t.Fatalf("definition of Add = %d locations, want 1 (the body, not the prototype)", len(locs))
	}
	if locs[0].Range.Start.Line != 7 {
		t.Errorf("Add defined on line %d, want 7", locs[0].Range.Start.Line)
	}
	if locs := lsp.definition("file:///k.nss", doc, "PrintInteger"); len(locs) != 0 {
		t.Errorf("engine routines have no definition, got %v", locs)
	}
}

func TestDefinitionInInclude(t *testing.T) {
	dir := t.TempDir()
	inc := filepath.Join(dir, "k_inc_util.nss")
	if err := os.WriteFile(inc, []byte("\nint Twice(int n) { return n * 2; }\n"), 0644); err != nil {
		t.Fatal(err)
	}
	main := filepath.Join(dir, "main.nss")
	text := "#include \"k_inc_util\"\nvoid main() { PrintInteger(Twice(2)); }\n"
	uri := pathURI(main)

	lsp := newTestLSP(t)
	locs := lsp.definition(uri, text, "Twice")
	if len(locs) != 1 {
		t.Fatalf("definition of Twice = %v", locs)
	}
	if locs[0].URI != pathURI(inc) || locs[0].Range.Start.Line != 1 {
		t.Errorf("Twice location = %+v", locs[0])
	}
	if got := hoverText(t, lsp.hover(uri, text, "Twice")); !strings.Contains(got, "k_inc_util.nss") {
		t.Errorf("hover should name the include: %q", got)
	}
}

func TestReferences(t *testing.T) {
	locs := references("file:///k.nss", doc, "gCount")
	if len(locs) != 3 {
		t.Fatalf("references to gCount = %d, want 3", len(locs))
	}
	first := locs[0].Range
	if first.Start.Line != 3 || first.Start.Character != 4 || first.End.Character != 10 {
		t.Errorf("first reference = %+v", first)
	}
	if locs := references("file:///k.nss", "// gCount\nint x;", "gCount"); len(locs) != 0 {
		t.Errorf("comments should not count as references: %v", locs)
	}
}

// ---------------------------------------------------------------------------
// Diagnostics
// ---------------------------------------------------------------------------

func TestDiagnose(t *testing.T) {
	lsp := newTestLSP(t)

	if d := lsp.diagnose("file:///ok.nss", doc); len(d) != 0 {
		t.Errorf("clean script reported %v", d)
	}
	if d := lsp.diagnose("file:///k_inc.nss", "int Helper() { return 1; }\n"); len(d) != 0 {
		t.Errorf("include file without entry point reported %v", d)
	}

	text := "void main() {\n    int x = \"s\";\n}\n"
	d := lsp.diagnose("file:///bad.nss", text)
	if len(d) != 1 {
		t.Fatalf("diagnostics = %v, want 1", d)
	}
	if d[0].Range.Start.Line != 1 || d[0].Range.End.Character != 16 {
		t.Errorf("range = %+v, want line 1 up to column 16", d[0].Range)
	}
	if d[0].Severity == nil || *d[0].Severity != protocol.DiagnosticSeverityError {
		t.Error("severity should be Error")
	}
	if !strings.Contains(d[0].Message, "type mismatch") {
		t.Errorf("message = %q", d[0].Message)
	}
}

func TestDiagnoseMissingInclude(t *testing.T) {
	lsp := newTestLSP(t, t.TempDir())
	d := lsp.diagnose(pathURI(filepath.Join(t.TempDir(), "m.nss")), "#include \"k_nope\"\nvoid main() { }\n")
	if len(d) != 1 || !strings.Contains(d[0].Message, "k_nope") {
		t.Errorf("diagnostics = %+v", d)
	}
}

func TestDocumentStore(t *testing.T) {
	lsp := newTestLSP(t)
	lsp.mu.Lock()
	lsp.docs["file:///test.nss"] = "void main() { }"
	lsp.mu.Unlock()

	if text, ok := lsp.document("file:///test.nss"); !ok || text != "void main() { }" {
		t.Errorf("document = %q, %v", text, ok)
	}
	if _, ok := lsp.document("file:///other.nss"); ok {
		t.Error("unknown document should not be found")
	}
}

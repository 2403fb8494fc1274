// Package server implements a language server for NWScript.
package server

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/tliron/commonlog"
	"github.com/tliron/glsp"
	protocol "github.com/tliron/glsp/protocol_3_16"
	glspserver "github.com/tliron/glsp/server"

	"github.com/th3w1zard1/nwscript/compiler"
	"github.com/th3w1zard1/nwscript/pkg/nwscript"

	_ "github.com/tliron/commonlog/simple"
)

const lspName = "ncs-lsp"

var log = commonlog.GetLogger("ncs.lsp")

var keywords = []string{
	"action", "break", "case", "const", "continue", "default", "do", "effect",
	"else", "event", "float", "for", "if", "int", "location", "object",
	"return", "string", "struct", "switch", "talent", "vector", "void", "while",
}

// LspServer answers editor requests by compiling open documents against
// an engine routine table.
type LspServer struct {
	opts  compiler.Options
	table *nwscript.Table

	mu   sync.Mutex
	docs map[string]string // URI → full document content

	handler protocol.Handler
	server  *glspserver.Server
	version string
}

// NewLSP creates a language server. opts supplies the table and the
// include search paths; each document's own directory is searched last.
func NewLSP(opts compiler.Options) *LspServer {
	table := opts.Table
	if table == nil {
		table = nwscript.Builtin()
	}
	s := &LspServer{
		opts:    opts,
		table:   table,
		docs:    make(map[string]string),
		version: "0.1.0",
	}

	s.handler = protocol.Handler{
		Initialize:  s.initialize,
		Initialized: s.initialized,
		Shutdown:    s.shutdown,
		SetTrace:    s.setTrace,

		TextDocumentDidOpen:   s.textDocumentDidOpen,
		TextDocumentDidChange: s.textDocumentDidChange,
		TextDocumentDidClose:  s.textDocumentDidClose,

		TextDocumentCompletion: s.textDocumentCompletion,
		TextDocumentHover:      s.textDocumentHover,
		TextDocumentDefinition: s.textDocumentDefinition,
		TextDocumentReferences: s.textDocumentReferences,
	}

	s.server = glspserver.NewServer(&s.handler, lspName, false)

	return s
}

// Run starts the LSP server on stdio. Blocks until the client disconnects.
func (s *LspServer) Run() error {
	return s.server.RunStdio()
}

// --- LSP lifecycle handlers ---

func (s *LspServer) initialize(ctx *glsp.Context, params *protocol.InitializeParams) (any, error) {
	log.Infof("initializing with %d engine routines", s.table.Len())

	capabilities := s.handler.CreateServerCapabilities()

	syncKind := protocol.TextDocumentSyncKindFull
	capabilities.TextDocumentSync = &protocol.TextDocumentSyncOptions{
		OpenClose: boolPtr(true),
		Change:    &syncKind,
	}

	capabilities.CompletionProvider = &protocol.CompletionOptions{}
	capabilities.HoverProvider = true
	capabilities.DefinitionProvider = true
	capabilities.ReferencesProvider = true

	return protocol.InitializeResult{
		Capabilities: capabilities,
		ServerInfo: &protocol.InitializeResultServerInfo{
			Name:    lspName,
			Version: &s.version,
		},
	}, nil
}

func (s *LspServer) initialized(ctx *glsp.Context, params *protocol.InitializedParams) error {
	return nil
}

func (s *LspServer) shutdown(ctx *glsp.Context) error {
	return nil
}

func (s *LspServer) setTrace(ctx *glsp.Context, params *protocol.SetTraceParams) error {
	return nil
}

// --- Document synchronization ---

func (s *LspServer) textDocumentDidOpen(ctx *glsp.Context, params *protocol.DidOpenTextDocumentParams) error {
	uri := params.TextDocument.URI
	text := params.TextDocument.Text

	s.mu.Lock()
	s.docs[string(uri)] = text
	s.mu.Unlock()

	s.publishDiagnostics(ctx, uri, text)
	return nil
}

func (s *LspServer) textDocumentDidChange(ctx *glsp.Context, params *protocol.DidChangeTextDocumentParams) error {
	uri := params.TextDocument.URI

	// With Full sync, the last change event contains the full text
	if len(params.ContentChanges) > 0 {
		last := params.ContentChanges[len(params.ContentChanges)-1]
		if whole, ok := last.(protocol.TextDocumentContentChangeEventWhole); ok {
			s.mu.Lock()
			s.docs[string(uri)] = whole.Text
			s.mu.Unlock()

			s.publishDiagnostics(ctx, uri, whole.Text)
		}
	}
	return nil
}

func (s *LspServer) textDocumentDidClose(ctx *glsp.Context, params *protocol.DidCloseTextDocumentParams) error {
	uri := params.TextDocument.URI

	s.mu.Lock()
	delete(s.docs, string(uri))
	s.mu.Unlock()

	// Clear diagnostics for the closed document
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: []protocol.Diagnostic{},
	})
	return nil
}

func (s *LspServer) document(uri protocol.DocumentUri) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	text, ok := s.docs[string(uri)]
	return text, ok
}

// --- Language features ---

func (s *LspServer) textDocumentCompletion(ctx *glsp.Context, params *protocol.CompletionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	prefix := extractPrefix(text, params.Position)
	if prefix == "" {
		return nil, nil
	}
	return s.complete(params.TextDocument.URI, text, prefix), nil
}

func (s *LspServer) textDocumentHover(ctx *glsp.Context, params *protocol.HoverParams) (*protocol.Hover, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return s.hover(params.TextDocument.URI, text, word), nil
}

func (s *LspServer) textDocumentDefinition(ctx *glsp.Context, params *protocol.DefinitionParams) (any, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	locations := s.definition(params.TextDocument.URI, text, word)
	if len(locations) == 0 {
		return nil, nil
	}
	return locations, nil
}

func (s *LspServer) textDocumentReferences(ctx *glsp.Context, params *protocol.ReferenceParams) ([]protocol.Location, error) {
	text, ok := s.document(params.TextDocument.URI)
	if !ok {
		return nil, nil
	}
	word := extractWord(text, params.Position)
	if word == "" {
		return nil, nil
	}
	return references(params.TextDocument.URI, text, word), nil
}

// --- Symbol lookup ---

// symbol is a name declared by a document or one of its includes.
type symbol struct {
	name   string
	kind   protocol.CompletionItemKind
	detail string
	uri    protocol.DocumentUri
	span   compiler.Span
}

// symbols parses the document and, transitively, the includes it names.
// A document that does not parse contributes nothing.
func (s *LspServer) symbols(uri protocol.DocumentUri, text string) []symbol {
	var out []symbol
	seen := map[string]bool{}
	s.collect(uri, text, seen, &out)
	return out
}

func (s *LspServer) collect(uri protocol.DocumentUri, text string, seen map[string]bool, out *[]symbol) {
	f, err := compiler.Parse(string(uri), text, s.opts.MaxDepth)
	if err != nil {
		return
	}
	defined := map[string]bool{}
	for _, d := range f.Decls {
		if fn, ok := d.(*compiler.FuncDecl); ok && !fn.IsPrototype() {
			defined[fn.Name] = true
		}
	}

	for _, d := range f.Decls {
		switch d := d.(type) {
		case *compiler.FuncDecl:
			if d.IsPrototype() && defined[d.Name] {
				continue
			}
			*out = append(*out, symbol{d.Name, protocol.CompletionItemKindFunction, funcSignature(d), uri, d.Span()})
		case *compiler.GlobalDecl:
			kind := protocol.CompletionItemKindVariable
			prefix := ""
			if d.Const {
				kind = protocol.CompletionItemKindConstant
				prefix = "const "
			}
			for _, v := range d.Vars {
				*out = append(*out, symbol{v.Name, kind, prefix + d.Type.String() + " " + v.Name, uri, v.SpanVal})
			}
		case *compiler.StructDecl:
			*out = append(*out, symbol{d.Name, protocol.CompletionItemKindStruct, "struct " + d.Name, uri, d.Span()})
		case *compiler.IncludeDecl:
			key := strings.ToLower(d.Path)
			if seen[key] {
				continue
			}
			seen[key] = true
			path, ok := s.findInclude(uri, d.Path)
			if !ok {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				log.Warningf("reading include %s: %v", path, err)
				continue
			}
			s.collect(pathURI(path), string(data), seen, out)
		}
	}
}

// findInclude searches the include paths, then the document's directory.
func (s *LspServer) findInclude(uri protocol.DocumentUri, name string) (string, bool) {
	dirs := s.opts.IncludePaths
	if p := uriPath(uri); p != "" {
		dirs = append(append([]string(nil), dirs...), filepath.Dir(p))
	}
	for _, dir := range dirs {
		path := filepath.Join(dir, name+".nss")
		if _, err := os.Stat(path); err == nil {
			return path, true
		}
	}
	return "", false
}

func funcSignature(fn *compiler.FuncDecl) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s(", fn.Return, fn.Name)
	for i, p := range fn.Params {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s %s", p.Type, p.Name)
	}
	b.WriteByte(')')
	return b.String()
}

func (s *LspServer) complete(uri protocol.DocumentUri, text, prefix string) []protocol.CompletionItem {
	var items []protocol.CompletionItem
	lowerPrefix := strings.ToLower(prefix)
	add := func(label string, kind protocol.CompletionItemKind, detail string) {
		if !strings.HasPrefix(strings.ToLower(label), lowerPrefix) {
			return
		}
		item := protocol.CompletionItem{Label: label, Kind: &kind, InsertText: &label}
		if detail != "" {
			item.Detail = &detail
		}
		items = append(items, item)
	}

	// Document symbols first, so they survive the limit
	for _, sym := range s.symbols(uri, text) {
		add(sym.name, sym.kind, sym.detail)
	}
	for _, kw := range keywords {
		add(kw, protocol.CompletionItemKindKeyword, "")
	}
	for i := range s.table.Actions {
		a := &s.table.Actions[i]
		add(a.Name, protocol.CompletionItemKindFunction, a.String())
	}
	for _, c := range s.table.Constants {
		add(c.Name, protocol.CompletionItemKindConstant, c.Value.GoString())
	}

	// Limit results
	const maxItems = 100
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items
}

func (s *LspServer) hover(uri protocol.DocumentUri, text, word string) *protocol.Hover {
	var b strings.Builder
	for _, sym := range s.symbols(uri, text) {
		if sym.name == word {
			fmt.Fprintf(&b, "```nwscript\n%s\n```", sym.detail)
			if sym.uri != uri {
				fmt.Fprintf(&b, "\n\nDeclared in `%s`", filepath.Base(uriPath(sym.uri)))
			}
			return markdown(b.String())
		}
	}

	if id, a, ok := s.table.Lookup(word); ok {
		fmt.Fprintf(&b, "```nwscript\n%s\n```\n\nEngine routine #%d", a, id)
		return markdown(b.String())
	}
	if v, ok := s.table.Constant(word); ok {
		fmt.Fprintf(&b, "```nwscript\nconst %s %s = %s\n```", v.Type, word, v.GoString())
		return markdown(b.String())
	}
	return nil
}

func markdown(value string) *protocol.Hover {
	return &protocol.Hover{
		Contents: protocol.MarkupContent{
			Kind:  protocol.MarkupKindMarkdown,
			Value: value,
		},
	}
}

func (s *LspServer) definition(uri protocol.DocumentUri, text, word string) []protocol.Location {
	var locations []protocol.Location
	for _, sym := range s.symbols(uri, text) {
		if sym.name == word {
			locations = append(locations, protocol.Location{URI: sym.uri, Range: spanRange(sym.span)})
		}
	}
	return locations
}

// references finds every identifier token spelled word in the document.
func references(uri protocol.DocumentUri, text, word string) []protocol.Location {
	var locations []protocol.Location
	lx := compiler.NewLexer(text)
	for {
		tok := lx.NextToken()
		if tok.Type == compiler.TokenEOF || tok.Type == compiler.TokenError {
			break
		}
		if tok.Type == compiler.TokenIdentifier && tok.Literal == word {
			start := position(tok.Pos)
			end := start
			end.Character += protocol.UInteger(len(word))
			locations = append(locations, protocol.Location{URI: uri, Range: protocol.Range{Start: start, End: end}})
		}
	}
	sort.SliceStable(locations, func(i, j int) bool {
		a, b := locations[i].Range.Start, locations[j].Range.Start
		return a.Line < b.Line || (a.Line == b.Line && a.Character < b.Character)
	})
	return locations
}

// --- Diagnostics ---

func (s *LspServer) publishDiagnostics(ctx *glsp.Context, uri protocol.DocumentUri, text string) {
	go ctx.Notify(protocol.ServerTextDocumentPublishDiagnostics, protocol.PublishDiagnosticsParams{
		URI:         uri,
		Diagnostics: s.diagnose(uri, text),
	})
}

// diagnose compiles the document. Include files, which have no entry
// point, are clean when everything else compiles.
func (s *LspServer) diagnose(uri protocol.DocumentUri, text string) []protocol.Diagnostic {
	opts := s.opts
	name := string(uri)
	if p := uriPath(uri); p != "" {
		opts.IncludePaths = append(append([]string(nil), opts.IncludePaths...), filepath.Dir(p))
		name = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	}

	_, err := compiler.CompileNamed(name, text, opts)
	if err == nil || errors.Is(err, compiler.ErrEntryPoint) {
		return []protocol.Diagnostic{}
	}

	line := 0
	message := err.Error()
	var ce *compiler.CompileError
	if errors.As(err, &ce) {
		if ce.File == name && ce.Line > 0 {
			line = ce.Line - 1
			message = ce.Err.Error()
		}
	}

	severity := protocol.DiagnosticSeverityError
	source := lspName
	return []protocol.Diagnostic{{
		Range:    lineRange(text, line),
		Severity: &severity,
		Source:   &source,
		Message:  message,
	}}
}

// --- Position helpers ---

func position(p compiler.Position) protocol.Position {
	pos := protocol.Position{}
	if p.Line > 0 {
		pos.Line = protocol.UInteger(p.Line - 1)
	}
	if p.Column > 0 {
		pos.Character = protocol.UInteger(p.Column - 1)
	}
	return pos
}

func spanRange(sp compiler.Span) protocol.Range {
	return protocol.Range{Start: position(sp.Start), End: position(sp.End)}
}

// lineRange covers one whole line of text.
func lineRange(text string, line int) protocol.Range {
	lines := strings.Split(text, "\n")
	width := 0
	if line < len(lines) {
		width = len(strings.TrimRight(lines[line], "\r"))
	}
	return protocol.Range{
		Start: protocol.Position{Line: protocol.UInteger(line)},
		End:   protocol.Position{Line: protocol.UInteger(line), Character: protocol.UInteger(width)},
	}
}

// uriPath returns the filesystem path of a file:// URI, or "".
func uriPath(uri protocol.DocumentUri) string {
	u, err := url.Parse(string(uri))
	if err != nil || u.Scheme != "file" {
		return ""
	}
	return filepath.FromSlash(u.Path)
}

func pathURI(path string) protocol.DocumentUri {
	return protocol.DocumentUri((&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String())
}

// --- Text extraction helpers ---

func isIdentChar(ch rune) bool {
	return unicode.IsLetter(ch) || unicode.IsDigit(ch) || ch == '_'
}

// extractPrefix returns the word fragment before the cursor for completion.
func extractPrefix(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	// Walk backwards from cursor to find the start of the identifier
	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	return line[start:col]
}

// extractWord returns the full identifier under the cursor.
func extractWord(text string, pos protocol.Position) string {
	lines := strings.Split(text, "\n")
	if int(pos.Line) >= len(lines) {
		return ""
	}
	line := lines[pos.Line]
	col := int(pos.Character)
	if col > len(line) {
		col = len(line)
	}

	start := col
	for start > 0 && isIdentChar(rune(line[start-1])) {
		start--
	}
	end := col
	for end < len(line) && isIdentChar(rune(line[end])) {
		end++
	}
	return line[start:end]
}

func boolPtr(b bool) *bool {
	return &b
}

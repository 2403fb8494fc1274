package compiler

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tliron/commonlog"

	"github.com/th3w1zard1/nwscript/pkg/bytecode"
	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

var log = commonlog.GetLogger("ncs.compiler")

// Entry point names.
const (
	EntryMain        = "main"
	EntryConditional = "StartingConditional"
)

// ---------------------------------------------------------------------------
// Codegen: Compile AST to bytecode
// ---------------------------------------------------------------------------

// function is a registered script function.
type function struct {
	name    string
	ret     Type
	params  []ParamDecl
	start   bytecode.Ref // placeholder until a prototyped function is defined
	retn    bytecode.Ref
	proto   *FuncDecl
	def     *FuncDecl
	defined bool
	called  bool
}

// unit is a top-level declaration with the file it came from.
type unit struct {
	file string
	decl Decl
}

// jumpScope is an enclosing loop or switch that break and continue target.
type jumpScope struct {
	scope      scopeID
	breakTo    bytecode.Ref
	continueTo bytecode.Ref
	isSwitch   bool
}

// Compiler compiles a parsed file to a program. A Compiler is used for a
// single compilation.
type Compiler struct {
	opts  Options
	table *nwscript.Table

	prog    *bytecode.Program // the program being built
	out     *bytecode.Program // current emission target
	scopes  *scopeArena
	structs structRegistry
	funcs   map[string]*function
	order   []*function // registration order

	// scriptFuncs names every function the unit defines, so global
	// initializers can report calls to them clearly.
	scriptFuncs map[string]bool
	included    map[string]bool

	fn      *function
	fnScope scopeID
	jumps   []jumpScope
	file    string
	depth   int
	residue int // intermediate bytes reclaimed by block cleanup
}

// NewCompiler creates a new compiler.
func NewCompiler(opts Options) *Compiler {
	return &Compiler{
		opts:        opts,
		table:       opts.table(),
		prog:        bytecode.NewProgram(),
		scopes:      newScopeArena(),
		structs:     structRegistry{},
		funcs:       map[string]*function{},
		scriptFuncs: map[string]bool{},
		included:    map[string]bool{},
		fnScope:     noScope,
	}
}

// Compile compiles f and everything it includes.
func (c *Compiler) Compile(f *File) (*bytecode.Program, error) {
	c.out = c.prog
	c.included[includeKey(f.Name)] = true

	units, err := c.expand(f, 0)
	if err != nil {
		return nil, err
	}
	for _, u := range units {
		if fd, ok := u.decl.(*FuncDecl); ok {
			c.scriptFuncs[fd.Name] = true
		}
	}

	// Structs and globals come first regardless of where they appear.
	for _, u := range units {
		c.file = u.file
		switch d := u.decl.(type) {
		case *StructDecl:
			err = c.defineStruct(d)
		case *GlobalDecl:
			err = c.compileDecl(d, d.Type, d.Const, d.Vars, globalScope)
		}
		if err != nil {
			return nil, c.wrap(err)
		}
	}
	globals := c.scopes.get(globalScope).size
	if globals > 0 {
		c.prog.Emit(bytecode.OpSaveBP)
	}
	stub := c.prog.Len()

	for _, u := range units {
		c.file = u.file
		if d, ok := u.decl.(*FuncDecl); ok {
			if err := c.compileFunction(d); err != nil {
				return nil, c.wrap(err)
			}
		}
	}
	c.file = f.Name

	for _, fn := range c.order {
		if fn.called && !fn.defined {
			return nil, c.wrap(errorfAt(fn.proto, ErrUndefinedFunction, "%s is declared but never defined", fn.name))
		}
	}

	if err := c.emitEntry(stub, globals); err != nil {
		return nil, c.wrap(err)
	}

	if c.opts.Debug {
		c.dump()
	}
	if c.opts.Optimize {
		if n := bytecode.Optimize(c.prog); n > 0 {
			log.Debugf("optimizer removed %d instructions", n)
		}
	}
	return c.prog, nil
}

// wrap attaches the current file to err.
func (c *Compiler) wrap(err error) error {
	var ce *CompileError
	if errors.As(err, &ce) {
		if ce.File == "" {
			ce.File = c.file
		}
		return ce
	}
	return &CompileError{File: c.file, Err: err}
}

// enter guards nesting depth.
func (c *Compiler) enter(n Node) error {
	c.depth++
	if c.depth > c.opts.maxDepth() {
		c.depth--
		return errorfAt(n, ErrRecursionDepth, "nesting deeper than %d", c.opts.maxDepth())
	}
	return nil
}

func (c *Compiler) leave() {
	c.depth--
}

// dump logs the function map and the listing.
func (c *Compiler) dump() {
	for _, fn := range c.order {
		idx, _ := c.prog.IndexOf(fn.start)
		log.Debugf("function %s -> %d", fn.name, idx)
	}
	for _, line := range strings.Split(strings.TrimRight(c.prog.String(), "\n"), "\n") {
		log.Debugf("%s", line)
	}
}

// ---------------------------------------------------------------------------
// Includes
// ---------------------------------------------------------------------------

func includeKey(name string) string {
	return strings.ToLower(strings.TrimSuffix(filepath.Base(name), ".nss"))
}

// expand replaces include declarations with the included declarations.
// Each file is included at most once.
func (c *Compiler) expand(f *File, depth int) ([]unit, error) {
	var head, body []unit
	for _, d := range f.Decls {
		inc, ok := d.(*IncludeDecl)
		if !ok {
			body = append(body, unit{file: f.Name, decl: d})
			continue
		}
		key := includeKey(inc.Path)
		if c.included[key] {
			continue
		}
		c.included[key] = true
		if depth >= c.opts.maxDepth() {
			return nil, &CompileError{File: f.Name, Line: inc.Span().Start.Line,
				Err: fmt.Errorf("%w: includes nested deeper than %d", ErrRecursionDepth, c.opts.maxDepth())}
		}

		src, err := c.findInclude(inc.Path)
		if err != nil {
			return nil, &CompileError{File: f.Name, Line: inc.Span().Start.Line, Err: err}
		}
		sub, err := Parse(inc.Path, src, c.opts.maxDepth())
		if err != nil {
			return nil, err
		}
		units, err := c.expand(sub, depth+1)
		if err != nil {
			return nil, err
		}
		head = append(head, units...)
	}
	return append(head, body...), nil
}

// findInclude searches the include paths, then the library. Library names
// are matched case-insensitively unless every search path is absolute.
func (c *Compiler) findInclude(name string) (string, error) {
	for _, dir := range c.opts.IncludePaths {
		data, err := os.ReadFile(filepath.Join(dir, name+".nss"))
		if err == nil {
			return string(data), nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: reading %s: %v", ErrMissingInclude, name, err)
		}
	}

	caseSensitive := true
	for _, dir := range c.opts.IncludePaths {
		if !filepath.IsAbs(dir) {
			caseSensitive = false
			break
		}
	}
	key := name
	if !caseSensitive {
		key = strings.ToLower(name)
	}
	if src, ok := c.opts.Library[key]; ok {
		return src, nil
	}
	return "", &MissingIncludeError{Name: name, Searched: c.opts.IncludePaths}
}

// ---------------------------------------------------------------------------
// Structs and functions
// ---------------------------------------------------------------------------

func (c *Compiler) defineStruct(d *StructDecl) error {
	if _, ok := c.structs[d.Name]; ok {
		return errorfAt(d, ErrRedefinition, "struct %s", d.Name)
	}
	def := &StructDef{Name: d.Name}
	seen := map[string]bool{}
	for _, m := range d.Members {
		if seen[m.Name] {
			return errorfAt(d, ErrRedefinition, "member %s of struct %s", m.Name, d.Name)
		}
		seen[m.Name] = true
		if m.Type == TypeVoid || m.Type == TypeAction {
			return errorfAt(d, ErrTypeMismatch, "member %s of struct %s cannot be %s", m.Name, d.Name, m.Type)
		}
		def.Members = append(def.Members, Member{Type: m.Type, Name: m.Name})
	}
	c.structs[d.Name] = def
	if _, err := c.structs.size(StructType(d.Name)); err != nil {
		delete(c.structs, d.Name)
		return errorAt(d, err)
	}
	return nil
}

// signatureDiff lists how a definition differs from its prototype.
func signatureDiff(proto, def *FuncDecl) []string {
	var diffs []string
	if proto.Return != def.Return {
		diffs = append(diffs, fmt.Sprintf("return type %s != %s", def.Return, proto.Return))
	}
	if len(proto.Params) != len(def.Params) {
		diffs = append(diffs, fmt.Sprintf("%d parameters != %d", len(def.Params), len(proto.Params)))
	}
	for i := 0; i < len(proto.Params) && i < len(def.Params); i++ {
		if proto.Params[i].Type != def.Params[i].Type {
			diffs = append(diffs, fmt.Sprintf("parameter %d (%s) is %s, prototype has %s",
				i+1, def.Params[i].Name, def.Params[i].Type, proto.Params[i].Type))
		}
	}
	return diffs
}

func (c *Compiler) checkParams(d *FuncDecl) error {
	seen := map[string]bool{}
	for _, p := range d.Params {
		if p.Type == TypeVoid || p.Type == TypeAction {
			return errorfAt(d, ErrTypeMismatch, "parameter %s of %s cannot be %s", p.Name, d.Name, p.Type)
		}
		if _, err := c.structs.size(p.Type); err != nil {
			return errorAt(d, err)
		}
		if seen[p.Name] {
			return errorfAt(d, ErrRedefinition, "parameter %s of %s", p.Name, d.Name)
		}
		seen[p.Name] = true
	}
	if d.Return != TypeVoid {
		if _, err := c.structs.size(d.Return); err != nil {
			return errorAt(d, err)
		}
	}
	return nil
}

// compileFunction registers a prototype or compiles a definition.
func (c *Compiler) compileFunction(d *FuncDecl) error {
	if err := c.checkParams(d); err != nil {
		return err
	}
	if _, _, ok := c.table.Lookup(d.Name); ok {
		return errorfAt(d, ErrRedefinition, "%s is an engine routine", d.Name)
	}
	fn, exists := c.funcs[d.Name]

	if d.IsPrototype() {
		if exists {
			if fn.proto != nil {
				return errorfAt(d, ErrRedefinition, "function %s is already declared", d.Name)
			}
			if diffs := signatureDiff(d, fn.def); len(diffs) > 0 {
				return errorAt(d, &SignatureMismatchError{Function: d.Name, Differences: diffs})
			}
			fn.proto = d
			return nil
		}
		c.register(&function{
			name:   d.Name,
			ret:    d.Return,
			params: d.Params,
			start:  c.prog.Emit(bytecode.OpNop),
			proto:  d,
		})
		return nil
	}

	if exists && fn.defined {
		return errorfAt(d, ErrRedefinition, "function %s is already defined", d.Name)
	}
	if exists {
		if diffs := signatureDiff(fn.proto, d); len(diffs) > 0 {
			return errorAt(d, &SignatureMismatchError{Function: d.Name, Differences: diffs})
		}
		fn.params = mergeDefaults(fn.proto.Params, d.Params)
	} else {
		fn = &function{name: d.Name, ret: d.Return, params: d.Params, start: bytecode.NoRef}
		c.register(fn)
	}

	body := c.prog.Fork()
	start := body.Emit(bytecode.OpNop)
	stub := fn.start
	if stub == bytecode.NoRef {
		fn.start = start
	}
	fn.defined = true
	fn.def = d

	if err := c.compileBody(fn, d, body); err != nil {
		return err
	}

	if stub == bytecode.NoRef {
		c.prog.Merge(body)
		return nil
	}
	// Replace the placeholder with the body and point every call at it.
	idx, ok := c.prog.IndexOf(stub)
	if !ok {
		panic(fmt.Sprintf("compiler: placeholder of %s is not placed", d.Name))
	}
	c.prog.Remove(idx)
	c.prog.Splice(idx, body)
	n := c.prog.Retarget(stub, start)
	fn.start = start
	log.Debugf("patched %d calls to %s", n, d.Name)
	return nil
}

func (c *Compiler) register(fn *function) {
	c.funcs[fn.name] = fn
	c.order = append(c.order, fn)
}

// mergeDefaults takes each parameter's default from the definition, or the
// prototype when the definition has none.
func mergeDefaults(proto, def []ParamDecl) []ParamDecl {
	out := make([]ParamDecl, len(def))
	copy(out, def)
	for i := range out {
		if out[i].Default == nil && i < len(proto) {
			out[i].Default = proto[i].Default
		}
	}
	return out
}

// compileBody emits a function body into out. Parameters are bound so the
// last one is nearest the stack top.
func (c *Compiler) compileBody(fn *function, d *FuncDecl, out *bytecode.Program) error {
	c.out = out
	c.fn = fn
	c.fnScope = c.scopes.push(noScope, scopeFunction)
	defer func() {
		c.out = c.prog
		c.fn = nil
		c.fnScope = noScope
		c.jumps = nil
	}()

	for _, p := range d.Params {
		size, _ := c.structs.size(p.Type)
		if err := c.scopes.declare(c.fnScope, p.Name, p.Type, size, false); err != nil {
			return errorAt(d, err)
		}
	}
	fn.retn = out.New(bytecode.OpRetn)

	done, err := c.compileStmts(d.Body.Stmts, c.fnScope)
	if err != nil {
		return err
	}
	c.closeScope(c.fnScope, done, d.Body)
	out.Place(fn.retn)
	return nil
}

// ---------------------------------------------------------------------------
// Entry point
// ---------------------------------------------------------------------------

// emitEntry inserts the call into main or StartingConditional at stub.
func (c *Compiler) emitEntry(stub, globals int) error {
	insert := func(t bytecode.InstructionType, args ...int32) {
		c.prog.Insert(stub, c.prog.New(t, args...))
		stub++
	}
	call := func(fn *function) {
		jsr := c.prog.New(bytecode.OpJsr)
		c.prog.SetJump(jsr, fn.start)
		c.prog.Insert(stub, jsr)
		stub++
	}

	if fn, ok := c.funcs[EntryMain]; ok && fn.defined {
		if fn.ret != TypeVoid {
			return errorfAt(fn.def, ErrTypeMismatch, "%s must return void, not %s", EntryMain, fn.ret)
		}
		if len(fn.params) > 0 {
			return errorfAt(fn.def, ErrArgumentCount, "%s takes no parameters", EntryMain)
		}
		call(fn)
		if globals > 0 {
			insert(bytecode.OpRestoreBP)
			insert(bytecode.OpMovSP, int32(-globals))
		}
		insert(bytecode.OpRetn)
		return nil
	}

	if fn, ok := c.funcs[EntryConditional]; ok && fn.defined {
		if fn.ret != TypeInt {
			return errorfAt(fn.def, ErrTypeMismatch, "%s must return int, not %s", EntryConditional, fn.ret)
		}
		if len(fn.params) > 0 {
			return errorfAt(fn.def, ErrArgumentCount, "%s takes no parameters", EntryConditional)
		}
		// The result stays on top of the globals.
		insert(bytecode.OpRsAddI)
		call(fn)
		if globals > 0 {
			insert(bytecode.OpRestoreBP)
		}
		insert(bytecode.OpRetn)
		return nil
	}

	return &CompileError{File: c.file, Err: ErrEntryPoint}
}

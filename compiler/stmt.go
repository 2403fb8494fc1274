package compiler

import (
	"fmt"

	"github.com/th3w1zard1/nwscript/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

// Statement compilers report whether the statement never falls through
// (return, break, continue). The rest of the block is then skipped.

func (c *Compiler) emit(t bytecode.InstructionType, args ...int32) bytecode.Ref {
	return c.out.Emit(t, args...)
}

// pop emits a stack move of n bytes down, if any.
func (c *Compiler) pop(n int) {
	if n != 0 {
		c.emit(bytecode.OpMovSP, int32(-n))
	}
}

func (c *Compiler) compileStmts(stmts []Stmt, sc scopeID) (bool, error) {
	for _, s := range stmts {
		done, err := c.compileStmt(s, sc)
		if err != nil {
			return false, err
		}
		if done {
			return true, nil
		}
	}
	return false, nil
}

// compileBlock compiles b in a new scope of the given kind under parent.
func (c *Compiler) compileBlock(b *BlockStmt, parent scopeID, kind scopeKind) (bool, error) {
	return c.compileIn(b, c.scopes.push(parent, kind))
}

// compileIn compiles b in the already opened scope sc and closes it.
func (c *Compiler) compileIn(b *BlockStmt, sc scopeID) (bool, error) {
	done, err := c.compileStmts(b.Stmts, sc)
	if err != nil {
		return false, err
	}
	c.closeScope(sc, done, b)
	return done, nil
}

// closeScope releases the variables of sc. Intermediates left behind by a
// statement are popped with a warning.
func (c *Compiler) closeScope(sc scopeID, done bool, n Node) {
	if done {
		return
	}
	s := c.scopes.get(sc)
	c.reclaim(s, "at end of block", n.Span().End.Line)
	c.pop(s.size)
}

// reclaim pops whatever s holds above its base. Well-formed statements
// leave nothing there, so any residue is counted and logged.
func (c *Compiler) reclaim(s *scope, where string, line int) {
	residue := s.temp - s.base
	if residue == 0 {
		return
	}
	log.Warningf("%s:%d: %d bytes left on the stack %s", c.file, line, residue, where)
	c.residue += residue
	c.pop(residue)
	s.temp = s.base
}

func (c *Compiler) compileStmt(s Stmt, sc scopeID) (bool, error) {
	if err := c.enter(s); err != nil {
		return false, err
	}
	defer c.leave()

	switch n := s.(type) {
	case *BlockStmt:
		return c.compileBlock(n, sc, scopePlain)

	case *EmptyStmt:
		return false, nil

	case *DeclStmt:
		if c.scopes.get(sc).kind == scopeSwitch {
			return false, errorfAt(n, ErrInvalidStatement, "declarations directly inside a switch need their own block")
		}
		return false, c.compileDecl(n, n.Type, n.Const, n.Vars, sc)

	case *ExprStmt:
		return false, c.discard(n.X, sc)

	case *IfStmt:
		return false, c.compileIf(n, sc)

	case *WhileStmt:
		return false, c.compileWhile(n, sc)

	case *DoWhileStmt:
		return false, c.compileDoWhile(n, sc)

	case *ForStmt:
		return false, c.compileFor(n, sc)

	case *SwitchStmt:
		return false, c.compileSwitch(n, sc)

	case *ReturnStmt:
		return true, c.compileReturn(n, sc)

	case *BreakStmt:
		return true, c.compileBreak(n, sc)

	case *ContinueStmt:
		return true, c.compileContinue(n, sc)
	}
	return false, errorfAt(s, ErrInvalidStatement, "unexpected %T", s)
}

// discard compiles e and pops its value.
func (c *Compiler) discard(e Expr, sc scopeID) error {
	t, err := c.compileExpr(e, sc)
	if err != nil {
		return err
	}
	size, err := c.structs.size(t)
	if err != nil {
		return errorAt(e, err)
	}
	c.pop(size)
	c.scopes.adjust(sc, -size)
	return nil
}

// compileDecl reserves and optionally initializes each declared name.
// Globals use the same path with sc set to the global scope.
func (c *Compiler) compileDecl(n Node, t Type, isConst bool, vars []VarSpec, sc scopeID) error {
	if t == TypeVoid || t == TypeAction {
		return errorfAt(n, ErrTypeMismatch, "cannot declare a variable of type %s", t)
	}
	size, err := c.structs.size(t)
	if err != nil {
		return errorAt(n, err)
	}
	for i := range vars {
		v := &vars[i]
		if isConst && v.Init == nil {
			return errorfAt(n, ErrInvalidStatement, "constant %s needs an initializer", v.Name)
		}
		if err := c.reserve(t); err != nil {
			return errorAt(n, err)
		}
		if err := c.scopes.declare(sc, v.Name, t, size, isConst); err != nil {
			return errorAt(n, err)
		}
		if v.Init == nil {
			continue
		}
		it, err := c.compileExpr(v.Init, sc)
		if err != nil {
			return err
		}
		if it != t {
			return errorfAt(v.Init, ErrTypeMismatch, "cannot initialize %s %s with %s", t, v.Name, it)
		}
		dst, _ := c.scopes.resolve(sc, v.Name)
		c.store(dst, 0, size)
		c.pop(size)
		c.scopes.adjust(sc, -size)
	}
	return nil
}

// reserve emits the stack reservation for a value of type t.
func (c *Compiler) reserve(t Type) error {
	switch {
	case t.IsStruct():
		def, ok := c.structs[t.Struct]
		if !ok {
			return fmt.Errorf("%w: %s", ErrStructNotFound, t.Struct)
		}
		for _, m := range def.Members {
			if err := c.reserve(m.Type); err != nil {
				return err
			}
		}
	case t == TypeVector:
		for i := 0; i < 3; i++ {
			c.emit(bytecode.OpRsAddF)
		}
	default:
		op, ok := reserveOps[t.Kind]
		if !ok {
			return fmt.Errorf("%w: cannot reserve a value of type %s", ErrTypeMismatch, t)
		}
		c.emit(op)
	}
	return nil
}

// condition compiles an int condition and leaves it for a JZ/JNZ, which
// consumes it.
func (c *Compiler) condition(e Expr, sc scopeID) error {
	t, err := c.compileExpr(e, sc)
	if err != nil {
		return err
	}
	if t != TypeInt {
		return errorfAt(e, ErrTypeMismatch, "condition must be int, not %s", t)
	}
	c.scopes.adjust(sc, -4)
	return nil
}

func (c *Compiler) compileIf(n *IfStmt, sc scopeID) error {
	end := c.out.New(bytecode.OpNop)
	for _, br := range n.Branches {
		next := c.out.New(bytecode.OpNop)
		if err := c.condition(br.Cond, sc); err != nil {
			return err
		}
		c.out.EmitJump(bytecode.OpJz, next)
		if _, err := c.compileBlock(br.Body, sc, scopePlain); err != nil {
			return err
		}
		c.out.EmitJump(bytecode.OpJmp, end)
		c.out.Place(next)
	}
	if n.Else != nil {
		if _, err := c.compileBlock(n.Else, sc, scopePlain); err != nil {
			return err
		}
	}
	c.out.Place(end)
	return nil
}

// loop compiles a loop body in its own scope, registered as the target of
// break and continue.
func (c *Compiler) loop(body *BlockStmt, sc scopeID, breakTo, continueTo bytecode.Ref) error {
	bodyScope := c.scopes.push(sc, scopeLoop)
	c.jumps = append(c.jumps, jumpScope{scope: bodyScope, breakTo: breakTo, continueTo: continueTo})
	_, err := c.compileIn(body, bodyScope)
	c.jumps = c.jumps[:len(c.jumps)-1]
	return err
}

func (c *Compiler) compileWhile(n *WhileStmt, sc scopeID) error {
	start := c.emit(bytecode.OpNop)
	end := c.out.New(bytecode.OpNop)
	if err := c.condition(n.Cond, sc); err != nil {
		return err
	}
	c.out.EmitJump(bytecode.OpJz, end)
	if err := c.loop(n.Body, sc, end, start); err != nil {
		return err
	}
	c.out.EmitJump(bytecode.OpJmp, start)
	c.out.Place(end)
	return nil
}

func (c *Compiler) compileDoWhile(n *DoWhileStmt, sc scopeID) error {
	start := c.emit(bytecode.OpNop)
	cont := c.out.New(bytecode.OpNop)
	end := c.out.New(bytecode.OpNop)
	if err := c.loop(n.Body, sc, end, cont); err != nil {
		return err
	}
	c.out.Place(cont)
	if err := c.condition(n.Cond, sc); err != nil {
		return err
	}
	c.out.EmitJump(bytecode.OpJnz, start)
	c.out.Place(end)
	return nil
}

// compileFor gives the loop an enclosing scope for a declared counter.
func (c *Compiler) compileFor(n *ForStmt, sc scopeID) error {
	outer := c.scopes.push(sc, scopePlain)
	switch init := n.Init.(type) {
	case nil:
	case *DeclStmt:
		if err := c.compileDecl(init, init.Type, init.Const, init.Vars, outer); err != nil {
			return err
		}
	case *ExprStmt:
		if err := c.discard(init.X, outer); err != nil {
			return err
		}
	default:
		return errorfAt(init, ErrInvalidStatement, "unexpected for initializer %T", init)
	}

	start := c.emit(bytecode.OpNop)
	cont := c.out.New(bytecode.OpNop)
	end := c.out.New(bytecode.OpNop)
	if n.Cond != nil {
		if err := c.condition(n.Cond, outer); err != nil {
			return err
		}
		c.out.EmitJump(bytecode.OpJz, end)
	}
	if err := c.loop(n.Body, outer, end, cont); err != nil {
		return err
	}
	c.out.Place(cont)
	if n.Post != nil {
		if err := c.discard(n.Post, outer); err != nil {
			return err
		}
	}
	c.out.EmitJump(bytecode.OpJmp, start)
	c.out.Place(end)
	c.closeScope(outer, false, n)
	return nil
}

// compileSwitch keeps the switch value on the stack for the whole
// statement. Each label is tested against a copy of it, then control jumps
// to the matching clause; clauses fall through into each other.
func (c *Compiler) compileSwitch(n *SwitchStmt, sc scopeID) error {
	vt, err := c.compileExpr(n.Value, sc)
	if err != nil {
		return err
	}
	if vt != TypeInt && vt != TypeString {
		return errorfAt(n.Value, ErrTypeMismatch, "switch value must be int or string, not %s", vt)
	}
	size := 4

	// The value now belongs to the switch scope.
	c.scopes.adjust(sc, -size)
	sw := c.scopes.push(sc, scopeSwitch)
	s := c.scopes.get(sw)
	s.temp, s.base = size, size

	end := c.out.New(bytecode.OpNop)
	labels := make([]bytecode.Ref, len(n.Clauses))
	fallback := end
	for i, cl := range n.Clauses {
		labels[i] = c.out.New(bytecode.OpNop)
		if cl.Default {
			if fallback != end {
				return errorfAt(n, ErrInvalidStatement, "multiple default labels in switch")
			}
			fallback = labels[i]
		}
		for _, label := range cl.Labels {
			c.emit(bytecode.OpCpTopSP, int32(-size), int32(size))
			c.scopes.adjust(sw, size)
			lt, err := c.compileExpr(label, sw)
			if err != nil {
				return err
			}
			op, ok := lookupBinary(TokenEq, vt, lt)
			if !ok || lt != vt {
				return errorfAt(label, ErrTypeMismatch, "case label is %s, switch value is %s", lt, vt)
			}
			c.emit(op.inst)
			c.scopes.adjust(sw, -size-size+4)
			c.out.EmitJump(bytecode.OpJnz, labels[i])
			c.scopes.adjust(sw, -4)
		}
	}
	c.out.EmitJump(bytecode.OpJmp, fallback)

	c.jumps = append(c.jumps, jumpScope{scope: sw, breakTo: end, continueTo: bytecode.NoRef, isSwitch: true})
	defer func() { c.jumps = c.jumps[:len(c.jumps)-1] }()
	for i := range n.Clauses {
		c.out.Place(labels[i])
		done, err := c.compileStmts(n.Clauses[i].Body, sw)
		if err != nil {
			return err
		}
		if !done {
			c.reclaim(c.scopes.get(sw), "in case clause", n.Span().Start.Line)
		}
	}
	c.out.Place(end)
	c.pop(size)
	return nil
}

// compileReturn copies the value into the caller's reserved slot, releases
// every local of the function and jumps to its shared RETN.
func (c *Compiler) compileReturn(n *ReturnStmt, sc scopeID) error {
	if c.fn == nil {
		return errorfAt(n, ErrInvalidStatement, "return outside a function")
	}
	full := c.scopes.unwindTo(sc, c.fnScope)
	if n.Value == nil {
		if c.fn.ret != TypeVoid {
			return errorfAt(n, ErrTypeMismatch, "%s must return %s", c.fn.name, c.fn.ret)
		}
		c.pop(full)
		c.out.EmitJump(bytecode.OpJmp, c.fn.retn)
		return nil
	}

	if c.fn.ret == TypeVoid {
		return errorfAt(n, ErrTypeMismatch, "%s returns void", c.fn.name)
	}
	t, err := c.compileExpr(n.Value, sc)
	if err != nil {
		return err
	}
	if t != c.fn.ret {
		return errorfAt(n.Value, ErrTypeMismatch, "%s returns %s, not %s", c.fn.name, c.fn.ret, t)
	}
	ret, _ := c.structs.size(t)
	c.emit(bytecode.OpCpDownSP, int32(-(full + 2*ret)), int32(ret))
	c.pop(ret)
	c.scopes.adjust(sc, -ret)
	c.pop(full)
	c.out.EmitJump(bytecode.OpJmp, c.fn.retn)
	return nil
}

func (c *Compiler) compileBreak(n *BreakStmt, sc scopeID) error {
	if len(c.jumps) == 0 {
		return errorfAt(n, ErrInvalidStatement, "break outside a loop or switch")
	}
	target := c.jumps[len(c.jumps)-1]
	size := c.scopes.unwindTo(sc, target.scope)
	if target.isSwitch {
		// The end of the switch pops the value.
		size -= c.scopes.get(target.scope).base
	}
	c.pop(size)
	c.out.EmitJump(bytecode.OpJmp, target.breakTo)
	return nil
}

func (c *Compiler) compileContinue(n *ContinueStmt, sc scopeID) error {
	for i := len(c.jumps) - 1; i >= 0; i-- {
		target := c.jumps[i]
		if target.isSwitch {
			continue
		}
		c.pop(c.scopes.unwindTo(sc, target.scope))
		c.out.EmitJump(bytecode.OpJmp, target.continueTo)
		return nil
	}
	return errorfAt(n, ErrInvalidStatement, "continue outside a loop")
}

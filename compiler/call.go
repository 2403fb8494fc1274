package compiler

import (
	"github.com/th3w1zard1/nwscript/pkg/bytecode"
	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// ---------------------------------------------------------------------------
// Calls: script functions (JSR) and engine routines (ACTION)
// ---------------------------------------------------------------------------

func (c *Compiler) compileCall(n *CallExpr, sc scopeID) (Type, error) {
	if fn, ok := c.funcs[n.Name]; ok {
		return c.callFunction(n, fn, sc)
	}
	if id, act, ok := c.table.Lookup(n.Name); ok {
		return c.callAction(n, id, act, sc)
	}
	if c.fn == nil && c.scriptFuncs[n.Name] {
		return Type{}, errorfAt(n, ErrInvalidStatement, "global initializers cannot call script function %s", n.Name)
	}
	return Type{}, errorfAt(n, ErrUndefinedFunction, "%s", n.Name)
}

// callFunction reserves the return slot, pushes the arguments in
// declaration order and jumps to the function. The callee pops its
// arguments.
func (c *Compiler) callFunction(n *CallExpr, fn *function, sc scopeID) (Type, error) {
	if len(n.Args) > len(fn.params) {
		return Type{}, errorfAt(n, ErrArgumentCount, "%s takes %d arguments, got %d", fn.name, len(fn.params), len(n.Args))
	}
	for i := len(n.Args); i < len(fn.params); i++ {
		if fn.params[i].Default == nil {
			return Type{}, errorfAt(n, ErrArgumentCount, "missing argument %s in call to %s", fn.params[i].Name, fn.name)
		}
	}

	ret := 0
	if fn.ret != TypeVoid {
		if err := c.reserve(fn.ret); err != nil {
			return Type{}, errorAt(n, err)
		}
		ret, _ = c.structs.size(fn.ret)
		c.push(sc, ret)
	}

	args := 0
	for i, p := range fn.params {
		arg := p.Default
		if i < len(n.Args) {
			arg = n.Args[i]
		}
		t, err := c.compileExpr(arg, sc)
		if err != nil {
			return Type{}, err
		}
		if t != p.Type {
			return Type{}, errorfAt(arg, ErrTypeMismatch, "argument %s of %s must be %s, not %s", p.Name, fn.name, p.Type, t)
		}
		size, _ := c.structs.size(t)
		args += size
	}

	c.out.EmitJump(bytecode.OpJsr, fn.start)
	c.push(sc, -args)
	fn.called = true
	return fn.ret, nil
}

// callAction pushes the arguments in declaration order and calls an engine
// routine. Action-typed parameters capture the current state and compile
// their argument as a deferred fragment instead of a value.
func (c *Compiler) callAction(n *CallExpr, id int, act *nwscript.Routine, sc scopeID) (Type, error) {
	if len(n.Args) > len(act.Params) {
		return Type{}, errorfAt(n, ErrArgumentCount, "%s takes %d arguments, got %d", act.Name, len(act.Params), len(n.Args))
	}
	if len(n.Args) < act.RequiredParams() {
		return Type{}, errorfAt(n, ErrArgumentCount, "%s needs at least %d arguments, got %d", act.Name, act.RequiredParams(), len(n.Args))
	}

	args := 0
	for i, p := range act.Params {
		if i >= len(n.Args) {
			if p.Default == nil {
				return Type{}, errorfAt(n, ErrArgumentCount, "missing argument %s in call to %s", p.Name, act.Name)
			}
			t, err := c.emitConst(*p.Default, sc)
			if err != nil {
				return Type{}, errorAt(n, err)
			}
			args += t.Kind.Size()
			continue
		}
		if p.Type == nwscript.Action {
			if err := c.deferred(n.Args[i], sc); err != nil {
				return Type{}, err
			}
			continue
		}
		t, err := c.compileExpr(n.Args[i], sc)
		if err != nil {
			return Type{}, err
		}
		if t.IsStruct() || t.Kind != p.Type {
			return Type{}, errorfAt(n.Args[i], ErrTypeMismatch, "argument %s of %s must be %s, not %s", p.Name, act.Name, p.Type, t)
		}
		args += t.Kind.Size()
	}

	c.emit(bytecode.OpAction, int32(id), int32(len(act.Params)))
	c.push(sc, act.Return.Size()-args)
	return Type{Kind: act.Return}, nil
}

// deferred emits STORE_STATE followed by a fragment that evaluates e when
// resumed. Normal execution jumps over the fragment.
func (c *Compiler) deferred(e Expr, sc scopeID) error {
	if c.fn == nil {
		return errorfAt(e, ErrInvalidStatement, "action arguments are only allowed inside functions")
	}
	globals := c.scopes.get(globalScope).size
	locals := c.scopes.unwindTo(sc, c.fnScope)
	c.emit(bytecode.OpStoreState, int32(globals), int32(locals))
	after := c.out.New(bytecode.OpNop)
	c.out.EmitJump(bytecode.OpJmp, after)
	if err := c.discard(e, sc); err != nil {
		return err
	}
	c.emit(bytecode.OpRetn)
	c.out.Place(after)
	return nil
}

package compiler

import (
	"fmt"

	"github.com/th3w1zard1/nwscript/pkg/bytecode"
	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// Every expression leaves exactly one value of its type on the stack (none
// for void) and adds its size to the temp counter of sc.

// push records n bytes of intermediates in sc.
func (c *Compiler) push(sc scopeID, n int) {
	c.scopes.adjust(sc, n)
}

func (c *Compiler) compileExpr(e Expr, sc scopeID) (Type, error) {
	if err := c.enter(e); err != nil {
		return Type{}, err
	}
	defer c.leave()

	switch n := e.(type) {
	case *IntLiteral:
		c.emit(bytecode.OpConstI, n.Value)
		c.push(sc, 4)
		return TypeInt, nil

	case *FloatLiteral:
		c.out.EmitFloat(n.Value)
		c.push(sc, 4)
		return TypeFloat, nil

	case *StringLiteral:
		c.out.EmitString(n.Value)
		c.push(sc, 4)
		return TypeString, nil

	case *ObjectLiteral:
		c.emit(bytecode.OpConstO, n.Value)
		c.push(sc, 4)
		return TypeObject, nil

	case *VectorLiteral:
		return c.compileVector(n, sc)

	case *Identifier:
		return c.compileIdentifier(n, sc)

	case *MemberAccess:
		return c.compileMember(n, sc)

	case *CallExpr:
		return c.compileCall(n, sc)

	case *UnaryExpr:
		return c.compileUnary(n, sc)

	case *BinaryExpr:
		return c.compileBinary(n, sc)

	case *TernaryExpr:
		return c.compileTernary(n, sc)

	case *AssignExpr:
		return c.compileAssign(n, sc)

	case *IncDecExpr:
		return c.compileIncDec(n, sc)
	}
	return Type{}, errorfAt(e, ErrInvalidStatement, "unexpected expression %T", e)
}

func (c *Compiler) compileVector(n *VectorLiteral, sc scopeID) (Type, error) {
	for _, comp := range n.Components {
		if lit, ok := comp.(*IntLiteral); ok {
			c.out.EmitFloat(float32(lit.Value))
			c.push(sc, 4)
			continue
		}
		t, err := c.compileExpr(comp, sc)
		if err != nil {
			return Type{}, err
		}
		if t != TypeFloat {
			return Type{}, errorfAt(comp, ErrTypeMismatch, "vector component must be float, not %s", t)
		}
	}
	return TypeVector, nil
}

// emitConst pushes a table constant or parameter default.
func (c *Compiler) emitConst(v nwscript.Value, sc scopeID) (Type, error) {
	switch v.Type {
	case nwscript.Int:
		c.emit(bytecode.OpConstI, v.Int)
	case nwscript.Object:
		c.emit(bytecode.OpConstO, v.Int)
	case nwscript.Float:
		c.out.EmitFloat(v.Float)
	case nwscript.String:
		c.out.EmitString(v.String)
	case nwscript.Vector:
		for _, f := range v.Vector {
			c.out.EmitFloat(f)
		}
		c.push(sc, 12)
		return TypeVector, nil
	default:
		return Type{}, fmt.Errorf("%w: no constant form for %s", ErrTypeMismatch, v.Type)
	}
	c.push(sc, 4)
	return Type{Kind: v.Type}, nil
}

// load pushes size bytes starting extra bytes into v.
func (c *Compiler) load(v variable, extra, size int, sc scopeID) {
	op := bytecode.OpCpTopSP
	if v.global {
		op = bytecode.OpCpTopBP
	}
	c.emit(op, int32(v.offset+extra), int32(size))
	c.push(sc, size)
}

// store copies the top size bytes into v at extra bytes in. The value stays
// on the stack.
func (c *Compiler) store(v variable, extra, size int) {
	op := bytecode.OpCpDownSP
	if v.global {
		op = bytecode.OpCpDownBP
	}
	c.emit(op, int32(v.offset+extra), int32(size))
}

// lvalue resolves an identifier or a member chain rooted at one to its
// storage, the byte offset of the member within it and the member type.
func (c *Compiler) lvalue(e Expr, sc scopeID) (variable, int, Type, error) {
	switch n := e.(type) {
	case *Identifier:
		v, ok := c.scopes.resolve(sc, n.Name)
		if !ok {
			return variable{}, 0, Type{}, errorfAt(n, ErrUndefinedVariable, "%s", n.Name)
		}
		return v, 0, v.typ, nil
	case *MemberAccess:
		v, off, t, err := c.lvalue(n.Target, sc)
		if err != nil {
			return variable{}, 0, Type{}, err
		}
		mt, moff, err := c.structs.member(t, n.Member)
		if err != nil {
			return variable{}, 0, Type{}, errorAt(n, err)
		}
		return v, off + moff, mt, nil
	}
	return variable{}, 0, Type{}, errorfAt(e, ErrInvalidStatement, "expression is not assignable")
}

// rootIsVariable reports whether a member chain starts at a named variable.
func (c *Compiler) rootIsVariable(e Expr, sc scopeID) bool {
	for {
		switch n := e.(type) {
		case *Identifier:
			_, ok := c.scopes.resolve(sc, n.Name)
			return ok
		case *MemberAccess:
			e = n.Target
		default:
			return false
		}
	}
}

func (c *Compiler) compileIdentifier(n *Identifier, sc scopeID) (Type, error) {
	if v, ok := c.scopes.resolve(sc, n.Name); ok {
		size, err := c.structs.size(v.typ)
		if err != nil {
			return Type{}, errorAt(n, err)
		}
		c.load(v, 0, size, sc)
		return v.typ, nil
	}
	if val, ok := c.table.Constant(n.Name); ok {
		t, err := c.emitConst(val, sc)
		if err != nil {
			return Type{}, errorAt(n, err)
		}
		return t, nil
	}
	return Type{}, errorfAt(n, ErrUndefinedVariable, "%s", n.Name)
}

// compileMember reads a field. Fields of variables are copied directly;
// fields of computed values are cut out of the value with DESTRUCT.
func (c *Compiler) compileMember(n *MemberAccess, sc scopeID) (Type, error) {
	if c.rootIsVariable(n, sc) {
		v, off, t, err := c.lvalue(n, sc)
		if err != nil {
			return Type{}, err
		}
		size, err := c.structs.size(t)
		if err != nil {
			return Type{}, errorAt(n, err)
		}
		c.load(v, off, size, sc)
		return t, nil
	}

	whole, err := c.compileExpr(n.Target, sc)
	if err != nil {
		return Type{}, err
	}
	mt, moff, err := c.structs.member(whole, n.Member)
	if err != nil {
		return Type{}, errorAt(n, err)
	}
	total, _ := c.structs.size(whole)
	size, _ := c.structs.size(mt)
	c.emit(bytecode.OpDestruct, int32(total), int32(moff), int32(size))
	c.push(sc, size-total)
	return mt, nil
}

func (c *Compiler) compileUnary(n *UnaryExpr, sc scopeID) (Type, error) {
	t, err := c.compileExpr(n.Operand, sc)
	if err != nil {
		return Type{}, err
	}
	op, ok := unaryOps[unaryKey{n.Op, t.Kind}]
	if !ok || t.IsStruct() {
		return Type{}, errorfAt(n, ErrUnsupportedOperator, "%s%s", n.Op, t)
	}
	c.emit(op.inst)
	return Type{Kind: op.result}, nil
}

// binaryOp emits the instruction for left op right, both already pushed.
func (c *Compiler) binaryOp(n Node, op TokenType, left, right Type, sc scopeID) (Type, error) {
	lsize, _ := c.structs.size(left)
	rsize, _ := c.structs.size(right)

	if (op == TokenEq || op == TokenNotEq) && left == right && (left.IsStruct() || left == TypeVector) {
		inst := bytecode.OpEqualTT
		if op == TokenNotEq {
			inst = bytecode.OpNEqualTT
		}
		c.emit(inst, int32(lsize))
		c.push(sc, 4-lsize-rsize)
		return TypeInt, nil
	}

	r, ok := lookupBinary(op, left, right)
	if !ok {
		return Type{}, errorfAt(n, ErrUnsupportedOperator, "%s %s %s", left, op, right)
	}
	c.emit(r.inst)
	result := Type{Kind: r.result}
	c.push(sc, result.Kind.Size()-lsize-rsize)
	return result, nil
}

func (c *Compiler) compileBinary(n *BinaryExpr, sc scopeID) (Type, error) {
	left, err := c.compileExpr(n.Left, sc)
	if err != nil {
		return Type{}, err
	}
	right, err := c.compileExpr(n.Right, sc)
	if err != nil {
		return Type{}, err
	}
	return c.binaryOp(n, n.Op, left, right, sc)
}

func (c *Compiler) compileTernary(n *TernaryExpr, sc scopeID) (Type, error) {
	if err := c.condition(n.Cond, sc); err != nil {
		return Type{}, err
	}
	otherwise := c.out.New(bytecode.OpNop)
	end := c.out.New(bytecode.OpNop)
	c.out.EmitJump(bytecode.OpJz, otherwise)

	a, err := c.compileExpr(n.Then, sc)
	if err != nil {
		return Type{}, err
	}
	size, _ := c.structs.size(a)
	c.out.EmitJump(bytecode.OpJmp, end)
	// Only one branch runs; the else branch starts from the same depth.
	c.push(sc, -size)

	c.out.Place(otherwise)
	b, err := c.compileExpr(n.Else, sc)
	if err != nil {
		return Type{}, err
	}
	if a != b {
		return Type{}, errorfAt(n, ErrTypeMismatch, "ternary branches are %s and %s", a, b)
	}
	c.out.Place(end)
	return a, nil
}

func (c *Compiler) compileAssign(n *AssignExpr, sc scopeID) (Type, error) {
	v, off, t, err := c.lvalue(n.Target, sc)
	if err != nil {
		return Type{}, err
	}
	if v.isConst {
		return Type{}, errorfAt(n, ErrConstAssignment, "%s", describe(n.Target))
	}
	size, err := c.structs.size(t)
	if err != nil {
		return Type{}, errorAt(n, err)
	}

	var vt Type
	if n.Op == TokenAssign {
		if vt, err = c.compileExpr(n.Value, sc); err != nil {
			return Type{}, err
		}
	} else {
		c.load(v, off, size, sc)
		rt, err := c.compileExpr(n.Value, sc)
		if err != nil {
			return Type{}, err
		}
		if vt, err = c.binaryOp(n, compoundOps[n.Op], t, rt, sc); err != nil {
			return Type{}, err
		}
	}
	if vt != t {
		return Type{}, errorfAt(n, ErrTypeMismatch, "cannot assign %s to %s %s", vt, t, describe(n.Target))
	}

	// The temp counter moved, so resolve again.
	v, off, _, _ = c.lvalue(n.Target, sc)
	c.store(v, off, size)
	return t, nil
}

func (c *Compiler) compileIncDec(n *IncDecExpr, sc scopeID) (Type, error) {
	v, off, t, err := c.lvalue(n.Target, sc)
	if err != nil {
		return Type{}, err
	}
	if v.isConst {
		return Type{}, errorfAt(n, ErrConstAssignment, "%s", describe(n.Target))
	}
	if t != TypeInt {
		return Type{}, errorfAt(n, ErrUnsupportedOperator, "increment of %s", t)
	}
	step := func(v variable) {
		var op bytecode.InstructionType
		switch {
		case v.global && n.Increment:
			op = bytecode.OpIncIBP
		case v.global:
			op = bytecode.OpDecIBP
		case n.Increment:
			op = bytecode.OpIncISP
		default:
			op = bytecode.OpDecISP
		}
		c.emit(op, int32(v.offset+off))
	}

	if n.Prefix {
		step(v)
		c.load(v, off, 4, sc)
		return TypeInt, nil
	}
	c.load(v, off, 4, sc)
	v, _, _, _ = c.lvalue(n.Target, sc)
	step(v)
	return TypeInt, nil
}

// describe renders an assignment target for messages.
func describe(e Expr) string {
	switch n := e.(type) {
	case *Identifier:
		return n.Name
	case *MemberAccess:
		return describe(n.Target) + "." + n.Member
	}
	return "expression"
}

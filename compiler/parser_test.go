package compiler

import (
	"errors"
	"strings"
	"testing"
)

func parseOK(t *testing.T, source string) *File {
	t.Helper()
	f, err := Parse("test", source, 0)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return f
}

func parseExpr(t *testing.T, source string) Expr {
	t.Helper()
	p := NewParser(source)
	e := p.ParseExpression()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("ParseExpression(%q): %v", source, errs)
	}
	return e
}

func TestParseFunction(t *testing.T) {
	f := parseOK(t, `
int Add(int a, int b = 2) { return a + b; }
void main() { }
`)
	if len(f.Decls) != 2 {
		t.Fatalf("decls = %d, want 2", len(f.Decls))
	}
	add, ok := f.Decls[0].(*FuncDecl)
	if !ok {
		t.Fatalf("decl[0] = %T, want *FuncDecl", f.Decls[0])
	}
	if add.Name != "Add" || add.Return != TypeInt {
		t.Errorf("Add = %s returning %s", add.Name, add.Return)
	}
	if len(add.Params) != 2 {
		t.Fatalf("Add params = %d, want 2", len(add.Params))
	}
	if add.Params[0].Default != nil {
		t.Error("a should have no default")
	}
	if lit, ok := add.Params[1].Default.(*IntLiteral); !ok || lit.Value != 2 {
		t.Errorf("b default = %#v, want 2", add.Params[1].Default)
	}
	if add.IsPrototype() {
		t.Error("Add has a body")
	}
}

func TestParsePrototypeAndVoidParams(t *testing.T) {
	f := parseOK(t, `int Helper(void); void main(void) { }`)
	proto := f.Decls[0].(*FuncDecl)
	if !proto.IsPrototype() {
		t.Error("Helper should be a prototype")
	}
	if len(proto.Params) != 0 {
		t.Errorf("Helper params = %d, want 0", len(proto.Params))
	}
}

func TestParseGlobalsAndStructs(t *testing.T) {
	f := parseOK(t, `
struct Pair { int a; float b; };
const int LIMIT = 10;
int x, y = 3;
struct Pair gPair;
void main() { }
`)
	s, ok := f.Decls[0].(*StructDecl)
	if !ok || s.Name != "Pair" || len(s.Members) != 2 {
		t.Fatalf("decl[0] = %#v, want struct Pair with 2 members", f.Decls[0])
	}

	limit := f.Decls[1].(*GlobalDecl)
	if !limit.Const || limit.Vars[0].Name != "LIMIT" {
		t.Errorf("LIMIT = %#v", limit)
	}

	xy := f.Decls[2].(*GlobalDecl)
	if len(xy.Vars) != 2 || xy.Vars[0].Init != nil || xy.Vars[1].Init == nil {
		t.Errorf("x, y = %#v", xy.Vars)
	}

	pair := f.Decls[3].(*GlobalDecl)
	if !pair.Type.IsStruct() || pair.Type.Struct != "Pair" {
		t.Errorf("gPair type = %s, want struct Pair", pair.Type)
	}
}

func TestParseIncludes(t *testing.T) {
	f := parseOK(t, `#include "k_inc_utility.nss"
#include "k_inc_debug"
void main() { }`)
	want := []string{"k_inc_utility", "k_inc_debug"}
	for i, name := range want {
		inc, ok := f.Decls[i].(*IncludeDecl)
		if !ok {
			t.Fatalf("decl[%d] = %T, want *IncludeDecl", i, f.Decls[i])
		}
		if inc.Path != name {
			t.Errorf("include[%d] = %q, want %q", i, inc.Path, name)
		}
	}
}

func TestParsePrecedence(t *testing.T) {
	tests := []struct {
		input string
		op    TokenType
	}{
		{"a + b * c", TokenPlus},
		{"a * b + c", TokenPlus},
		{"a || b && c", TokenOrOr},
		{"a == b < c", TokenEq},
		{"a & b == c", TokenAmp},
		{"a | b ^ c", TokenPipe},
		{"a << 1 + 2", TokenShl},
	}

	for _, tc := range tests {
		e := parseExpr(t, tc.input)
		b, ok := e.(*BinaryExpr)
		if !ok {
			t.Errorf("%q: got %T, want *BinaryExpr", tc.input, e)
			continue
		}
		if b.Op != tc.op {
			t.Errorf("%q: root op = %v, want %v", tc.input, b.Op, tc.op)
		}
	}
}

func TestParseLeftAssociative(t *testing.T) {
	e := parseExpr(t, "a - b - c")
	root := e.(*BinaryExpr)
	if _, ok := root.Left.(*BinaryExpr); !ok {
		t.Errorf("left of root = %T, want *BinaryExpr", root.Left)
	}
	if id, ok := root.Right.(*Identifier); !ok || id.Name != "c" {
		t.Errorf("right of root = %#v, want c", root.Right)
	}
}

func TestParseAssignmentRightAssociative(t *testing.T) {
	e := parseExpr(t, "a = b += 2")
	outer, ok := e.(*AssignExpr)
	if !ok || outer.Op != TokenAssign {
		t.Fatalf("got %#v, want assignment", e)
	}
	inner, ok := outer.Value.(*AssignExpr)
	if !ok || inner.Op != TokenAddAssign {
		t.Errorf("value = %#v, want compound assignment", outer.Value)
	}
}

func TestParseUnaryAndPostfix(t *testing.T) {
	if lit, ok := parseExpr(t, "-5").(*IntLiteral); !ok || lit.Value != -5 {
		t.Errorf("-5 did not fold to a literal")
	}
	if lit, ok := parseExpr(t, "-1.5f").(*FloatLiteral); !ok || lit.Value != -1.5 {
		t.Errorf("-1.5f did not fold to a literal")
	}
	if u, ok := parseExpr(t, "-x").(*UnaryExpr); !ok || u.Op != TokenMinus {
		t.Errorf("-x is not a unary minus")
	}

	inc, ok := parseExpr(t, "i++").(*IncDecExpr)
	if !ok || !inc.Increment || inc.Prefix {
		t.Errorf("i++ = %#v", inc)
	}
	dec, ok := parseExpr(t, "--i").(*IncDecExpr)
	if !ok || dec.Increment || !dec.Prefix {
		t.Errorf("--i = %#v", dec)
	}

	m, ok := parseExpr(t, "v.x").(*MemberAccess)
	if !ok || m.Member != "x" {
		t.Errorf("v.x = %#v", m)
	}
}

func TestParseLiterals(t *testing.T) {
	if lit := parseExpr(t, "0x10").(*IntLiteral); lit.Value != 16 {
		t.Errorf("0x10 = %d, want 16", lit.Value)
	}
	if lit := parseExpr(t, "0xFFFFFFFF").(*IntLiteral); lit.Value != -1 {
		t.Errorf("0xFFFFFFFF = %d, want -1", lit.Value)
	}
	if lit := parseExpr(t, "OBJECT_INVALID").(*ObjectLiteral); lit.Value != 1 {
		t.Errorf("OBJECT_INVALID = %d, want 1", lit.Value)
	}

	v, ok := parseExpr(t, "[1.0, 2.0, 3.0]").(*VectorLiteral)
	if !ok {
		t.Fatal("vector literal not parsed")
	}
	if z, ok := v.Components[2].(*FloatLiteral); !ok || z.Value != 3 {
		t.Errorf("z = %#v", v.Components[2])
	}

	zero := parseExpr(t, "[]").(*VectorLiteral)
	for i, c := range zero.Components {
		if f, ok := c.(*FloatLiteral); !ok || f.Value != 0 {
			t.Errorf("[] component %d = %#v", i, c)
		}
	}
}

func TestParseStatements(t *testing.T) {
	f := parseOK(t, `
void main() {
	int i;
	for (i = 0; i < 3; i++) { }
	for (int j = 0; j < 3; j++) ;
	while (i > 0) i--;
	do { i++; } while (i < 10);
	if (i == 1) i = 2; else if (i == 2) i = 3; else i = 4;
	switch (i) {
	case 1:
	case 2:
		break;
	default:
		i = 0;
	}
	return;
}`)
	body := f.Decls[0].(*FuncDecl).Body.Stmts
	kinds := []string{"*compiler.DeclStmt", "*compiler.ForStmt", "*compiler.ForStmt",
		"*compiler.WhileStmt", "*compiler.DoWhileStmt", "*compiler.IfStmt",
		"*compiler.SwitchStmt", "*compiler.ReturnStmt"}
	if len(body) != len(kinds) {
		t.Fatalf("statements = %d, want %d", len(body), len(kinds))
	}

	if _, ok := body[2].(*ForStmt).Init.(*DeclStmt); !ok {
		t.Error("second for should declare its counter")
	}
	ifs := body[5].(*IfStmt)
	if len(ifs.Branches) != 2 || ifs.Else == nil {
		t.Errorf("if chain = %d branches, else %v", len(ifs.Branches), ifs.Else != nil)
	}
	sw := body[6].(*SwitchStmt)
	if len(sw.Clauses) != 2 {
		t.Fatalf("switch clauses = %d, want 2", len(sw.Clauses))
	}
	if len(sw.Clauses[0].Labels) != 2 {
		t.Errorf("first clause labels = %d, want 2", len(sw.Clauses[0].Labels))
	}
	if !sw.Clauses[1].Default {
		t.Error("second clause should be default")
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		line   int
	}{
		{"missing semicolon", "void main() {\n int x = 1\n}", 3},
		{"bad assignment target", "void main() {\n 1 = 2;\n}", 2},
		{"unterminated string", "void main() {\n string s = \"abc\n}", 2},
		{"stray token", "void main() {\n int x = ;\n}", 2},
		{"statement before case", "void main() {\n switch (1) { x = 1; }\n}", 2},
		{"huge literal", "int x = 0x1FFFFFFFF;", 1},
		{"unknown directive", "#define X 1", 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse("bad", tc.source, 0)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrSyntax) {
				t.Errorf("error %v is not ErrSyntax", err)
			}
			var ce *CompileError
			if !errors.As(err, &ce) {
				t.Fatalf("error %T is not a *CompileError", err)
			}
			if ce.File != "bad" {
				t.Errorf("file = %q, want bad", ce.File)
			}
			if ce.Line != tc.line {
				t.Errorf("line = %d, want %d (%v)", ce.Line, tc.line, err)
			}
		})
	}
}

func TestParseDepthLimit(t *testing.T) {
	deep := strings.Repeat("(", 200) + "1" + strings.Repeat(")", 200)
	source := "void main() { int x = " + deep + "; }"

	_, err := Parse("deep", source, 64)
	if !errors.Is(err, ErrRecursionDepth) {
		t.Fatalf("err = %v, want ErrRecursionDepth", err)
	}

	if _, err := Parse("deep", source, 1000); err != nil {
		t.Fatalf("Parse with room: %v", err)
	}
}

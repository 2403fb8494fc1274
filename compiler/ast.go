package compiler

// ---------------------------------------------------------------------------
// AST: Abstract Syntax Tree for NWScript
// ---------------------------------------------------------------------------

// Position represents a source location.
type Position struct {
	Offset int // byte offset
	Line   int // 1-based line number
	Column int // 1-based column number
}

// Span represents a range in source code.
type Span struct {
	Start Position
	End   Position
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Span() Span
	node() // marker method
}

// ---------------------------------------------------------------------------
// Expression nodes
// ---------------------------------------------------------------------------

// Expr is the interface for expression nodes.
type Expr interface {
	Node
	expr() // marker method
}

// IntLiteral represents an integer literal.
type IntLiteral struct {
	SpanVal Span
	Value   int32
}

func (n *IntLiteral) Span() Span { return n.SpanVal }
func (n *IntLiteral) node()      {}
func (n *IntLiteral) expr()      {}

// FloatLiteral represents a floating-point literal.
type FloatLiteral struct {
	SpanVal Span
	Value   float32
}

func (n *FloatLiteral) Span() Span { return n.SpanVal }
func (n *FloatLiteral) node()      {}
func (n *FloatLiteral) expr()      {}

// StringLiteral represents a string literal.
type StringLiteral struct {
	SpanVal Span
	Value   string
}

func (n *StringLiteral) Span() Span { return n.SpanVal }
func (n *StringLiteral) node()      {}
func (n *StringLiteral) expr()      {}

// ObjectLiteral represents OBJECT_SELF or OBJECT_INVALID.
type ObjectLiteral struct {
	SpanVal Span
	Value   int32
}

func (n *ObjectLiteral) Span() Span { return n.SpanVal }
func (n *ObjectLiteral) node()      {}
func (n *ObjectLiteral) expr()      {}

// VectorLiteral represents [x, y, z].
type VectorLiteral struct {
	SpanVal    Span
	Components [3]Expr
}

func (n *VectorLiteral) Span() Span { return n.SpanVal }
func (n *VectorLiteral) node()      {}
func (n *VectorLiteral) expr()      {}

// Identifier represents a variable or constant reference.
type Identifier struct {
	SpanVal Span
	Name    string
}

func (n *Identifier) Span() Span { return n.SpanVal }
func (n *Identifier) node()      {}
func (n *Identifier) expr()      {}

// MemberAccess represents x.member on a struct or vector.
type MemberAccess struct {
	SpanVal Span
	Target  Expr
	Member  string
}

func (n *MemberAccess) Span() Span { return n.SpanVal }
func (n *MemberAccess) node()      {}
func (n *MemberAccess) expr()      {}

// CallExpr represents a call of a script function or engine routine.
type CallExpr struct {
	SpanVal Span
	Name    string
	Args    []Expr
}

func (n *CallExpr) Span() Span { return n.SpanVal }
func (n *CallExpr) node()      {}
func (n *CallExpr) expr()      {}

// UnaryExpr represents a prefix operator: -x, !x, ~x.
type UnaryExpr struct {
	SpanVal Span
	Op      TokenType
	Operand Expr
}

func (n *UnaryExpr) Span() Span { return n.SpanVal }
func (n *UnaryExpr) node()      {}
func (n *UnaryExpr) expr()      {}

// BinaryExpr represents an infix operator.
type BinaryExpr struct {
	SpanVal Span
	Op      TokenType
	Left    Expr
	Right   Expr
}

func (n *BinaryExpr) Span() Span { return n.SpanVal }
func (n *BinaryExpr) node()      {}
func (n *BinaryExpr) expr()      {}

// TernaryExpr represents cond ? a : b.
type TernaryExpr struct {
	SpanVal Span
	Cond    Expr
	Then    Expr
	Else    Expr
}

func (n *TernaryExpr) Span() Span { return n.SpanVal }
func (n *TernaryExpr) node()      {}
func (n *TernaryExpr) expr()      {}

// AssignExpr represents plain or compound assignment. Op is TokenAssign
// or one of the compound assignment tokens.
type AssignExpr struct {
	SpanVal Span
	Op      TokenType
	Target  Expr // Identifier or MemberAccess rooted at an Identifier
	Value   Expr
}

func (n *AssignExpr) Span() Span { return n.SpanVal }
func (n *AssignExpr) node()      {}
func (n *AssignExpr) expr()      {}

// IncDecExpr represents ++x, x++, --x and x--.
type IncDecExpr struct {
	SpanVal   Span
	Target    Expr
	Increment bool
	Prefix    bool
}

func (n *IncDecExpr) Span() Span { return n.SpanVal }
func (n *IncDecExpr) node()      {}
func (n *IncDecExpr) expr()      {}

// ---------------------------------------------------------------------------
// Statement nodes
// ---------------------------------------------------------------------------

// Stmt is the interface for statement nodes.
type Stmt interface {
	Node
	stmt() // marker method
}

// VarSpec is one declared name with an optional initializer.
type VarSpec struct {
	SpanVal Span
	Name    string
	Init    Expr // nil when uninitialized
}

// BlockStmt represents { ... }.
type BlockStmt struct {
	SpanVal Span
	Stmts   []Stmt
}

func (n *BlockStmt) Span() Span { return n.SpanVal }
func (n *BlockStmt) node()      {}
func (n *BlockStmt) stmt()      {}

// DeclStmt represents a local declaration: int a = 1, b;
type DeclStmt struct {
	SpanVal Span
	Type    Type
	Const   bool
	Vars    []VarSpec
}

func (n *DeclStmt) Span() Span { return n.SpanVal }
func (n *DeclStmt) node()      {}
func (n *DeclStmt) stmt()      {}

// ExprStmt represents an expression evaluated for its effect.
type ExprStmt struct {
	SpanVal Span
	X       Expr
}

func (n *ExprStmt) Span() Span { return n.SpanVal }
func (n *ExprStmt) node()      {}
func (n *ExprStmt) stmt()      {}

// EmptyStmt represents a lone semicolon.
type EmptyStmt struct {
	SpanVal Span
}

func (n *EmptyStmt) Span() Span { return n.SpanVal }
func (n *EmptyStmt) node()      {}
func (n *EmptyStmt) stmt()      {}

// IfBranch is one if or else-if arm.
type IfBranch struct {
	Cond Expr
	Body *BlockStmt
}

// IfStmt represents an if/else-if/else chain. Bodies are always blocks.
type IfStmt struct {
	SpanVal  Span
	Branches []IfBranch
	Else     *BlockStmt // nil when absent
}

func (n *IfStmt) Span() Span { return n.SpanVal }
func (n *IfStmt) node()      {}
func (n *IfStmt) stmt()      {}

// WhileStmt represents while (cond) body.
type WhileStmt struct {
	SpanVal Span
	Cond    Expr
	Body    *BlockStmt
}

func (n *WhileStmt) Span() Span { return n.SpanVal }
func (n *WhileStmt) node()      {}
func (n *WhileStmt) stmt()      {}

// DoWhileStmt represents do body while (cond);
type DoWhileStmt struct {
	SpanVal Span
	Body    *BlockStmt
	Cond    Expr
}

func (n *DoWhileStmt) Span() Span { return n.SpanVal }
func (n *DoWhileStmt) node()      {}
func (n *DoWhileStmt) stmt()      {}

// ForStmt represents for (init; cond; post) body. Any clause may be nil.
type ForStmt struct {
	SpanVal Span
	Init    Stmt // *DeclStmt or *ExprStmt
	Cond    Expr
	Post    Expr
	Body    *BlockStmt
}

func (n *ForStmt) Span() Span { return n.SpanVal }
func (n *ForStmt) node()      {}
func (n *ForStmt) stmt()      {}

// CaseClause is one group of labels sharing a body. Control falls through
// to the next clause unless the body breaks.
type CaseClause struct {
	SpanVal Span
	Labels  []Expr
	Default bool
	Body    []Stmt
}

// SwitchStmt represents switch (value) { case ...: ... }.
type SwitchStmt struct {
	SpanVal Span
	Value   Expr
	Clauses []CaseClause
}

func (n *SwitchStmt) Span() Span { return n.SpanVal }
func (n *SwitchStmt) node()      {}
func (n *SwitchStmt) stmt()      {}

// ReturnStmt represents return [value];
type ReturnStmt struct {
	SpanVal Span
	Value   Expr // nil for a bare return
}

func (n *ReturnStmt) Span() Span { return n.SpanVal }
func (n *ReturnStmt) node()      {}
func (n *ReturnStmt) stmt()      {}

// BreakStmt represents break;
type BreakStmt struct {
	SpanVal Span
}

func (n *BreakStmt) Span() Span { return n.SpanVal }
func (n *BreakStmt) node()      {}
func (n *BreakStmt) stmt()      {}

// ContinueStmt represents continue;
type ContinueStmt struct {
	SpanVal Span
}

func (n *ContinueStmt) Span() Span { return n.SpanVal }
func (n *ContinueStmt) node()      {}
func (n *ContinueStmt) stmt()      {}

// ---------------------------------------------------------------------------
// Top-level declarations
// ---------------------------------------------------------------------------

// Decl is the interface for top-level declarations.
type Decl interface {
	Node
	decl() // marker method
}

// IncludeDecl represents #include "name".
type IncludeDecl struct {
	SpanVal Span
	Path    string
}

func (n *IncludeDecl) Span() Span { return n.SpanVal }
func (n *IncludeDecl) node()      {}
func (n *IncludeDecl) decl()      {}

// GlobalDecl represents a file-scope variable declaration.
type GlobalDecl struct {
	SpanVal Span
	Type    Type
	Const   bool
	Vars    []VarSpec
}

func (n *GlobalDecl) Span() Span { return n.SpanVal }
func (n *GlobalDecl) node()      {}
func (n *GlobalDecl) decl()      {}

// MemberDecl is one struct member.
type MemberDecl struct {
	Type Type
	Name string
}

// StructDecl represents struct Name { members };
type StructDecl struct {
	SpanVal Span
	Name    string
	Members []MemberDecl
}

func (n *StructDecl) Span() Span { return n.SpanVal }
func (n *StructDecl) node()      {}
func (n *StructDecl) decl()      {}

// ParamDecl is one function parameter.
type ParamDecl struct {
	Type    Type
	Name    string
	Default Expr // nil when required
}

// FuncDecl represents a prototype (Body nil) or a definition.
type FuncDecl struct {
	SpanVal Span
	Return  Type
	Name    string
	Params  []ParamDecl
	Body    *BlockStmt
}

func (n *FuncDecl) Span() Span { return n.SpanVal }
func (n *FuncDecl) node()      {}
func (n *FuncDecl) decl()      {}

// IsPrototype reports whether n is a forward declaration.
func (n *FuncDecl) IsPrototype() bool { return n.Body == nil }

// File is a parsed source unit.
type File struct {
	Name  string
	Decls []Decl
}

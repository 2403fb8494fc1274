package compiler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for NWScript
// ---------------------------------------------------------------------------

// parseError is one recorded syntax error.
type parseError struct {
	line     int
	msg      string
	sentinel error
}

// Parser parses NWScript source code into an AST.
type Parser struct {
	lexer     *Lexer
	curToken  Token
	peekToken Token
	errors    []parseError

	depth    int
	maxDepth int
}

// NewParser creates a new parser for the given input.
func NewParser(input string) *Parser {
	p := &Parser{
		lexer:    NewLexer(input),
		maxDepth: DefaultMaxDepth,
	}
	// Read two tokens to fill curToken and peekToken
	p.nextToken()
	p.nextToken()
	return p
}

// nextToken advances to the next token.
func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.lexer.NextToken()
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// peekTokenIs checks if the peek token is of the given type.
func (p *Parser) peekTokenIs(t TokenType) bool {
	return p.peekToken.Type == t
}

// expect advances if the current token matches, otherwise records an error.
func (p *Parser) expect(t TokenType) bool {
	if p.curTokenIs(t) {
		p.nextToken()
		return true
	}
	p.errorf("expected %s, got %s", t, p.curToken)
	return false
}

// errorf records a parse error.
func (p *Parser) errorf(format string, args ...interface{}) {
	p.errors = append(p.errors, parseError{
		line:     p.curToken.Pos.Line,
		msg:      fmt.Sprintf(format, args...),
		sentinel: ErrSyntax,
	})
}

// Errors returns accumulated parse errors as "line N: message" strings.
func (p *Parser) Errors() []string {
	out := make([]string, len(p.errors))
	for i, e := range p.errors {
		out[i] = fmt.Sprintf("line %d: %s", e.line, e.msg)
	}
	return out
}

// err converts the accumulated errors into a CompileError, or nil.
func (p *Parser) err() error {
	if len(p.errors) == 0 {
		return nil
	}
	first := p.errors[0]
	msg := first.msg
	if n := len(p.errors) - 1; n > 0 {
		msg = fmt.Sprintf("%s (and %d more)", msg, n)
	}
	return &CompileError{Line: first.line, Err: fmt.Errorf("%w: %s", first.sentinel, msg)}
}

// enter guards recursion depth; callers must call leave when it returns true.
func (p *Parser) enter() bool {
	p.depth++
	if p.depth > p.maxDepth {
		p.errors = append(p.errors, parseError{
			line:     p.curToken.Pos.Line,
			msg:      fmt.Sprintf("nesting deeper than %d", p.maxDepth),
			sentinel: ErrRecursionDepth,
		})
		p.depth--
		return false
	}
	return true
}

func (p *Parser) leave() {
	p.depth--
}

func (p *Parser) span(start Position) Span {
	return Span{Start: start, End: p.curToken.Pos}
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// Parse parses a complete source unit.
func Parse(name, source string, maxDepth int) (*File, error) {
	p := NewParser(source)
	if maxDepth > 0 {
		p.maxDepth = maxDepth
	}
	f := p.ParseFile()
	f.Name = name
	if err := p.err(); err != nil {
		if ce, ok := err.(*CompileError); ok {
			ce.File = name
		}
		return nil, err
	}
	return f, nil
}

// ParseFile parses top-level declarations until EOF.
func (p *Parser) ParseFile() *File {
	f := &File{}
	for !p.curTokenIs(TokenEOF) {
		errs := len(p.errors)
		d := p.parseDecl()
		if d != nil {
			f.Decls = append(f.Decls, d...)
		}
		if len(p.errors) > errs {
			p.synchronize()
		}
	}
	return f
}

// synchronize skips to the next likely declaration boundary.
func (p *Parser) synchronize() {
	for !p.curTokenIs(TokenEOF) {
		if p.curTokenIs(TokenSemicolon) || p.curTokenIs(TokenRBrace) {
			p.nextToken()
			return
		}
		p.nextToken()
	}
}

func (p *Parser) parseDecl() []Decl {
	start := p.curToken.Pos
	switch {
	case p.curTokenIs(TokenInclude):
		p.nextToken()
		if !p.curTokenIs(TokenString) {
			p.errorf("expected include file name, got %s", p.curToken)
			return nil
		}
		path := strings.TrimSuffix(p.curToken.Literal, ".nss")
		p.nextToken()
		return []Decl{&IncludeDecl{SpanVal: p.span(start), Path: path}}

	case p.curTokenIs(TokenSemicolon):
		p.nextToken()
		return nil

	case p.curTokenIs(TokenStruct) && p.peekTokenIs(TokenIdentifier):
		// struct Name { ... }; is a definition, struct Name x; a global.
		p.nextToken()
		if p.peekTokenIs(TokenLBrace) {
			return []Decl{p.parseStructDecl(start)}
		}
		name := p.curToken.Literal
		p.nextToken()
		return p.parseDeclAfterType(start, StructType(name), false)

	case p.curTokenIs(TokenConst):
		p.nextToken()
		t, ok := p.parseType()
		if !ok {
			return nil
		}
		return p.parseDeclAfterType(start, t, true)

	case isTypeKeyword(p.curToken.Type):
		t, ok := p.parseType()
		if !ok {
			return nil
		}
		return p.parseDeclAfterType(start, t, false)
	}
	p.errorf("unexpected %s at top level", p.curToken)
	return nil
}

// parseDeclAfterType parses a function or global once its type is known.
func (p *Parser) parseDeclAfterType(start Position, t Type, isConst bool) []Decl {
	if !p.curTokenIs(TokenIdentifier) {
		p.errorf("expected identifier, got %s", p.curToken)
		return nil
	}
	if p.peekTokenIs(TokenLParen) {
		if isConst {
			p.errorf("function %s cannot be const", p.curToken.Literal)
			return nil
		}
		fn := p.parseFunction(start, t)
		if fn == nil {
			return nil
		}
		return []Decl{fn}
	}
	vars := p.parseVarSpecs()
	if vars == nil {
		return nil
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}
	return []Decl{&GlobalDecl{SpanVal: p.span(start), Type: t, Const: isConst, Vars: vars}}
}

// parseType parses a type name.
func (p *Parser) parseType() (Type, bool) {
	var t Type
	switch p.curToken.Type {
	case TokenVoid:
		t = TypeVoid
	case TokenInt:
		t = TypeInt
	case TokenFloatType:
		t = TypeFloat
	case TokenStringType:
		t = TypeString
	case TokenObject:
		t = TypeObject
	case TokenVector:
		t = TypeVector
	case TokenEffect:
		t = TypeEffect
	case TokenEvent:
		t = TypeEvent
	case TokenLocation:
		t = TypeLocation
	case TokenTalent:
		t = TypeTalent
	case TokenAction:
		t = TypeAction
	case TokenStruct:
		p.nextToken()
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected struct name, got %s", p.curToken)
			return Type{}, false
		}
		t = StructType(p.curToken.Literal)
	default:
		p.errorf("expected type, got %s", p.curToken)
		return Type{}, false
	}
	p.nextToken()
	return t, true
}

func (p *Parser) parseStructDecl(start Position) Decl {
	name := p.curToken.Literal
	p.nextToken() // name
	p.nextToken() // {
	s := &StructDecl{Name: name}
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		t, ok := p.parseType()
		if !ok {
			return nil
		}
		for {
			if !p.curTokenIs(TokenIdentifier) {
				p.errorf("expected member name, got %s", p.curToken)
				return nil
			}
			s.Members = append(s.Members, MemberDecl{Type: t, Name: p.curToken.Literal})
			p.nextToken()
			if !p.curTokenIs(TokenComma) {
				break
			}
			p.nextToken()
		}
		if !p.expect(TokenSemicolon) {
			return nil
		}
	}
	if !p.expect(TokenRBrace) {
		return nil
	}
	p.expect(TokenSemicolon)
	s.SpanVal = p.span(start)
	return s
}

func (p *Parser) parseFunction(start Position, ret Type) *FuncDecl {
	fn := &FuncDecl{Return: ret, Name: p.curToken.Literal}
	p.nextToken() // name
	p.nextToken() // (

	if p.curTokenIs(TokenVoid) && p.peekTokenIs(TokenRParen) {
		p.nextToken()
	}
	for !p.curTokenIs(TokenRParen) {
		t, ok := p.parseType()
		if !ok {
			return nil
		}
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected parameter name, got %s", p.curToken)
			return nil
		}
		param := ParamDecl{Type: t, Name: p.curToken.Literal}
		p.nextToken()
		if p.curTokenIs(TokenAssign) {
			p.nextToken()
			param.Default = p.parseExpression()
			if param.Default == nil {
				return nil
			}
		}
		fn.Params = append(fn.Params, param)
		if p.curTokenIs(TokenComma) {
			p.nextToken()
			continue
		}
		if !p.curTokenIs(TokenRParen) {
			p.errorf("expected , or ) in parameter list, got %s", p.curToken)
			return nil
		}
	}
	p.nextToken() // )

	if p.curTokenIs(TokenSemicolon) {
		p.nextToken()
		fn.SpanVal = p.span(start)
		return fn
	}
	if !p.curTokenIs(TokenLBrace) {
		p.errorf("expected ; or function body, got %s", p.curToken)
		return nil
	}
	fn.Body = p.parseBlock()
	if fn.Body == nil {
		return nil
	}
	fn.SpanVal = p.span(start)
	return fn
}

// parseVarSpecs parses name [= init] {, name [= init]}.
func (p *Parser) parseVarSpecs() []VarSpec {
	var vars []VarSpec
	for {
		if !p.curTokenIs(TokenIdentifier) {
			p.errorf("expected variable name, got %s", p.curToken)
			return nil
		}
		v := VarSpec{Name: p.curToken.Literal}
		start := p.curToken.Pos
		p.nextToken()
		if p.curTokenIs(TokenAssign) {
			p.nextToken()
			v.Init = p.parseExpression()
			if v.Init == nil {
				return nil
			}
		}
		v.SpanVal = p.span(start)
		vars = append(vars, v)
		if !p.curTokenIs(TokenComma) {
			return vars
		}
		p.nextToken()
	}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseBlock() *BlockStmt {
	start := p.curToken.Pos
	if !p.expect(TokenLBrace) {
		return nil
	}
	b := &BlockStmt{}
	for !p.curTokenIs(TokenRBrace) {
		if p.curTokenIs(TokenEOF) {
			p.errorf("unterminated block starting on line %d", start.Line)
			return nil
		}
		s := p.parseStatement()
		if s == nil {
			return nil
		}
		b.Stmts = append(b.Stmts, s)
	}
	p.nextToken()
	b.SpanVal = p.span(start)
	return b
}

// parseBody parses a statement and wraps it in a block if needed.
func (p *Parser) parseBody() *BlockStmt {
	if p.curTokenIs(TokenLBrace) {
		return p.parseBlock()
	}
	s := p.parseStatement()
	if s == nil {
		return nil
	}
	return &BlockStmt{SpanVal: s.Span(), Stmts: []Stmt{s}}
}

func (p *Parser) parseStatement() Stmt {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	start := p.curToken.Pos
	switch p.curToken.Type {
	case TokenLBrace:
		if b := p.parseBlock(); b != nil {
			return b
		}
		return nil
	case TokenSemicolon:
		p.nextToken()
		return &EmptyStmt{SpanVal: p.span(start)}
	case TokenIf:
		return p.parseIf()
	case TokenWhile:
		return p.parseWhile()
	case TokenDo:
		return p.parseDoWhile()
	case TokenFor:
		return p.parseFor()
	case TokenSwitch:
		return p.parseSwitch()
	case TokenReturn:
		p.nextToken()
		r := &ReturnStmt{}
		if !p.curTokenIs(TokenSemicolon) {
			r.Value = p.parseExpression()
			if r.Value == nil {
				return nil
			}
		}
		if !p.expect(TokenSemicolon) {
			return nil
		}
		r.SpanVal = p.span(start)
		return r
	case TokenBreak:
		p.nextToken()
		if !p.expect(TokenSemicolon) {
			return nil
		}
		return &BreakStmt{SpanVal: p.span(start)}
	case TokenContinue:
		p.nextToken()
		if !p.expect(TokenSemicolon) {
			return nil
		}
		return &ContinueStmt{SpanVal: p.span(start)}
	}

	if p.curTokenIs(TokenConst) || isTypeKeyword(p.curToken.Type) {
		d := p.parseDeclStmt()
		if d == nil {
			return nil
		}
		if !p.expect(TokenSemicolon) {
			return nil
		}
		return d
	}

	x := p.parseExpression()
	if x == nil {
		return nil
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}
	return &ExprStmt{SpanVal: p.span(start), X: x}
}

// parseDeclStmt parses a local declaration without the trailing semicolon.
func (p *Parser) parseDeclStmt() *DeclStmt {
	start := p.curToken.Pos
	isConst := false
	if p.curTokenIs(TokenConst) {
		isConst = true
		p.nextToken()
	}
	t, ok := p.parseType()
	if !ok {
		return nil
	}
	vars := p.parseVarSpecs()
	if vars == nil {
		return nil
	}
	return &DeclStmt{SpanVal: p.span(start), Type: t, Const: isConst, Vars: vars}
}

// parseCondition parses ( expr ).
func (p *Parser) parseCondition() Expr {
	if !p.expect(TokenLParen) {
		return nil
	}
	cond := p.parseExpression()
	if cond == nil {
		return nil
	}
	if !p.expect(TokenRParen) {
		return nil
	}
	return cond
}

// parseIf flattens else-if chains into one IfStmt.
func (p *Parser) parseIf() Stmt {
	start := p.curToken.Pos
	s := &IfStmt{}
	for {
		p.nextToken() // if
		cond := p.parseCondition()
		if cond == nil {
			return nil
		}
		body := p.parseBody()
		if body == nil {
			return nil
		}
		s.Branches = append(s.Branches, IfBranch{Cond: cond, Body: body})
		if !p.curTokenIs(TokenElse) {
			break
		}
		p.nextToken() // else
		if p.curTokenIs(TokenIf) {
			continue
		}
		s.Else = p.parseBody()
		if s.Else == nil {
			return nil
		}
		break
	}
	s.SpanVal = p.span(start)
	return s
}

func (p *Parser) parseWhile() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	body := p.parseBody()
	if body == nil {
		return nil
	}
	return &WhileStmt{SpanVal: p.span(start), Cond: cond, Body: body}
}

func (p *Parser) parseDoWhile() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	body := p.parseBody()
	if body == nil {
		return nil
	}
	if !p.expect(TokenWhile) {
		return nil
	}
	cond := p.parseCondition()
	if cond == nil {
		return nil
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}
	return &DoWhileStmt{SpanVal: p.span(start), Body: body, Cond: cond}
}

func (p *Parser) parseFor() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	if !p.expect(TokenLParen) {
		return nil
	}
	s := &ForStmt{}

	switch {
	case p.curTokenIs(TokenSemicolon):
	case p.curTokenIs(TokenConst) || isTypeKeyword(p.curToken.Type):
		d := p.parseDeclStmt()
		if d == nil {
			return nil
		}
		s.Init = d
	default:
		istart := p.curToken.Pos
		x := p.parseExpression()
		if x == nil {
			return nil
		}
		s.Init = &ExprStmt{SpanVal: p.span(istart), X: x}
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}

	if !p.curTokenIs(TokenSemicolon) {
		if s.Cond = p.parseExpression(); s.Cond == nil {
			return nil
		}
	}
	if !p.expect(TokenSemicolon) {
		return nil
	}

	if !p.curTokenIs(TokenRParen) {
		if s.Post = p.parseExpression(); s.Post == nil {
			return nil
		}
	}
	if !p.expect(TokenRParen) {
		return nil
	}

	if s.Body = p.parseBody(); s.Body == nil {
		return nil
	}
	s.SpanVal = p.span(start)
	return s
}

func (p *Parser) parseSwitch() Stmt {
	start := p.curToken.Pos
	p.nextToken()
	value := p.parseCondition()
	if value == nil {
		return nil
	}
	if !p.expect(TokenLBrace) {
		return nil
	}
	s := &SwitchStmt{Value: value}
	for !p.curTokenIs(TokenRBrace) {
		switch p.curToken.Type {
		case TokenEOF:
			p.errorf("unterminated switch starting on line %d", start.Line)
			return nil
		case TokenCase, TokenDefault:
			// Consecutive labels share one clause.
			n := len(s.Clauses)
			if n == 0 || len(s.Clauses[n-1].Body) > 0 {
				s.Clauses = append(s.Clauses, CaseClause{SpanVal: p.span(p.curToken.Pos)})
				n++
			}
			clause := &s.Clauses[n-1]
			if p.curTokenIs(TokenDefault) {
				p.nextToken()
				clause.Default = true
			} else {
				p.nextToken()
				label := p.parseTernary()
				if label == nil {
					return nil
				}
				clause.Labels = append(clause.Labels, label)
			}
			if !p.expect(TokenColon) {
				return nil
			}
		default:
			if len(s.Clauses) == 0 {
				p.errorf("statement before first case label")
				return nil
			}
			stmt := p.parseStatement()
			if stmt == nil {
				return nil
			}
			clause := &s.Clauses[len(s.Clauses)-1]
			clause.Body = append(clause.Body, stmt)
		}
	}
	p.nextToken()
	s.SpanVal = p.span(start)
	return s
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// ParseExpression parses a single expression.
func (p *Parser) ParseExpression() Expr {
	return p.parseExpression()
}

func (p *Parser) parseExpression() Expr {
	return p.parseAssignment()
}

func isAssignOp(t TokenType) bool {
	switch t {
	case TokenAssign, TokenAddAssign, TokenSubAssign, TokenMulAssign, TokenDivAssign,
		TokenModAssign, TokenAndAssign, TokenOrAssign, TokenXorAssign,
		TokenShlAssign, TokenShrAssign, TokenUShrAssign:
		return true
	}
	return false
}

func (p *Parser) parseAssignment() Expr {
	start := p.curToken.Pos
	left := p.parseTernary()
	if left == nil {
		return nil
	}
	if !isAssignOp(p.curToken.Type) {
		return left
	}
	op := p.curToken.Type
	if !isLValue(left) {
		p.errorf("cannot assign to this expression")
		return nil
	}
	p.nextToken()
	if !p.enter() {
		return nil
	}
	defer p.leave()
	right := p.parseAssignment()
	if right == nil {
		return nil
	}
	return &AssignExpr{SpanVal: p.span(start), Op: op, Target: left, Value: right}
}

// isLValue reports whether e names storage: an identifier or a member
// chain rooted at one.
func isLValue(e Expr) bool {
	switch n := e.(type) {
	case *Identifier:
		return true
	case *MemberAccess:
		return isLValue(n.Target)
	}
	return false
}

func (p *Parser) parseTernary() Expr {
	start := p.curToken.Pos
	cond := p.parseBinary(1)
	if cond == nil || !p.curTokenIs(TokenQuestion) {
		return cond
	}
	p.nextToken()
	if !p.enter() {
		return nil
	}
	defer p.leave()
	then := p.parseAssignment()
	if then == nil || !p.expect(TokenColon) {
		return nil
	}
	els := p.parseTernary()
	if els == nil {
		return nil
	}
	return &TernaryExpr{SpanVal: p.span(start), Cond: cond, Then: then, Else: els}
}

// binaryPrecedence returns the binding power of an infix operator, or 0.
func binaryPrecedence(t TokenType) int {
	switch t {
	case TokenOrOr:
		return 1
	case TokenAndAnd:
		return 2
	case TokenPipe:
		return 3
	case TokenCaret:
		return 4
	case TokenAmp:
		return 5
	case TokenEq, TokenNotEq:
		return 6
	case TokenLess, TokenLessEq, TokenGreater, TokenGreatEq:
		return 7
	case TokenShl, TokenShr, TokenUShr:
		return 8
	case TokenPlus, TokenMinus:
		return 9
	case TokenStar, TokenSlash, TokenPercent:
		return 10
	}
	return 0
}

// parseBinary is a precedence climber over left-associative operators.
func (p *Parser) parseBinary(minPrec int) Expr {
	start := p.curToken.Pos
	left := p.parseUnary()
	if left == nil {
		return nil
	}
	for {
		prec := binaryPrecedence(p.curToken.Type)
		if prec == 0 || prec < minPrec {
			return left
		}
		op := p.curToken.Type
		p.nextToken()
		right := p.parseBinary(prec + 1)
		if right == nil {
			return nil
		}
		left = &BinaryExpr{SpanVal: p.span(start), Op: op, Left: left, Right: right}
	}
}

func (p *Parser) parseUnary() Expr {
	if !p.enter() {
		return nil
	}
	defer p.leave()

	start := p.curToken.Pos
	switch p.curToken.Type {
	case TokenMinus:
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		// Fold negative literals so defaults and constants stay literal.
		switch lit := operand.(type) {
		case *IntLiteral:
			lit.Value = -lit.Value
			lit.SpanVal.Start = start
			return lit
		case *FloatLiteral:
			lit.Value = -lit.Value
			lit.SpanVal.Start = start
			return lit
		}
		return &UnaryExpr{SpanVal: p.span(start), Op: TokenMinus, Operand: operand}
	case TokenBang, TokenTilde:
		op := p.curToken.Type
		p.nextToken()
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return &UnaryExpr{SpanVal: p.span(start), Op: op, Operand: operand}
	case TokenInc, TokenDec:
		inc := p.curTokenIs(TokenInc)
		p.nextToken()
		target := p.parseUnary()
		if target == nil {
			return nil
		}
		if !isLValue(target) {
			p.errorf("operand of prefix increment or decrement is not assignable")
			return nil
		}
		return &IncDecExpr{SpanVal: p.span(start), Target: target, Increment: inc, Prefix: true}
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() Expr {
	start := p.curToken.Pos
	x := p.parsePrimary()
	if x == nil {
		return nil
	}
	for {
		switch p.curToken.Type {
		case TokenDot:
			p.nextToken()
			if !p.curTokenIs(TokenIdentifier) {
				p.errorf("expected member name, got %s", p.curToken)
				return nil
			}
			x = &MemberAccess{SpanVal: p.span(start), Target: x, Member: p.curToken.Literal}
			p.nextToken()
		case TokenInc, TokenDec:
			if !isLValue(x) {
				p.errorf("operand of postfix %s is not assignable", p.curToken.Literal)
				return nil
			}
			x = &IncDecExpr{SpanVal: p.span(start), Target: x, Increment: p.curTokenIs(TokenInc)}
			p.nextToken()
		default:
			return x
		}
	}
}

func (p *Parser) parsePrimary() Expr {
	tok := p.curToken
	start := tok.Pos
	switch tok.Type {
	case TokenInteger:
		p.nextToken()
		lit, base := tok.Literal, 10
		if strings.HasPrefix(lit, "0x") || strings.HasPrefix(lit, "0X") {
			lit, base = lit[2:], 16
		}
		n, err := strconv.ParseInt(lit, base, 64)
		if err != nil || n > 0xFFFFFFFF {
			p.errorf("invalid integer literal %s", tok.Literal)
			return nil
		}
		return &IntLiteral{SpanVal: p.span(start), Value: int32(n)}

	case TokenFloat:
		p.nextToken()
		f, err := strconv.ParseFloat(tok.Literal, 32)
		if err != nil {
			p.errorf("invalid float literal %s", tok.Literal)
			return nil
		}
		return &FloatLiteral{SpanVal: p.span(start), Value: float32(f)}

	case TokenString:
		p.nextToken()
		return &StringLiteral{SpanVal: p.span(start), Value: tok.Literal}

	case TokenObjectSelf:
		p.nextToken()
		return &ObjectLiteral{SpanVal: p.span(start), Value: nwscript.ObjectSelf}

	case TokenObjectInvalid:
		p.nextToken()
		return &ObjectLiteral{SpanVal: p.span(start), Value: nwscript.ObjectInvalid}

	case TokenLBracket:
		p.nextToken()
		v := &VectorLiteral{}
		if p.curTokenIs(TokenRBracket) {
			// [] is the zero vector.
			p.nextToken()
			for i := range v.Components {
				v.Components[i] = &FloatLiteral{SpanVal: p.span(start)}
			}
			v.SpanVal = p.span(start)
			return v
		}
		for i := range v.Components {
			if i > 0 && !p.expect(TokenComma) {
				return nil
			}
			if v.Components[i] = p.parseTernary(); v.Components[i] == nil {
				return nil
			}
		}
		if !p.expect(TokenRBracket) {
			return nil
		}
		v.SpanVal = p.span(start)
		return v

	case TokenLParen:
		p.nextToken()
		x := p.parseExpression()
		if x == nil || !p.expect(TokenRParen) {
			return nil
		}
		return x

	case TokenIdentifier:
		p.nextToken()
		if !p.curTokenIs(TokenLParen) {
			return &Identifier{SpanVal: p.span(start), Name: tok.Literal}
		}
		p.nextToken()
		call := &CallExpr{Name: tok.Literal}
		for !p.curTokenIs(TokenRParen) {
			arg := p.parseExpression()
			if arg == nil {
				return nil
			}
			call.Args = append(call.Args, arg)
			if p.curTokenIs(TokenComma) {
				p.nextToken()
				continue
			}
			if !p.curTokenIs(TokenRParen) {
				p.errorf("expected , or ) in argument list, got %s", p.curToken)
				return nil
			}
		}
		p.nextToken()
		call.SpanVal = p.span(start)
		return call

	case TokenError:
		p.errorf("%s", tok.Literal)
		return nil
	}
	p.errorf("unexpected %s in expression", tok)
	return nil
}

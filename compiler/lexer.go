package compiler

import (
	"strings"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for NWScript source
// ---------------------------------------------------------------------------

// Lexer tokenizes NWScript source code. Scripts are treated as bytes; the
// engine's strings are single-byte encoded.
type Lexer struct {
	input     string
	pos       int  // current position in input
	readPos   int  // reading position (after current char)
	ch        byte // current character
	line      int  // current line (1-based)
	col       int  // current column (1-based)
	lineStart int  // offset of current line start
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	l := &Lexer{
		input: input,
		line:  1,
		col:   0,
	}
	l.readChar()
	return l
}

// readChar reads the next character.
func (l *Lexer) readChar() {
	if l.ch == '\n' {
		l.line++
		l.col = 0
		l.lineStart = l.readPos
	}
	if l.readPos >= len(l.input) {
		l.ch = 0 // EOF
		l.pos = l.readPos
	} else {
		l.ch = l.input[l.readPos]
		l.pos = l.readPos
		l.readPos++
	}
	l.col++
}

// peekChar returns the next character without consuming it.
func (l *Lexer) peekChar() byte {
	if l.readPos >= len(l.input) {
		return 0
	}
	return l.input[l.readPos]
}

// position returns the current position.
func (l *Lexer) position() Position {
	return Position{
		Offset: l.pos,
		Line:   l.line,
		Column: l.col,
	}
}

// operators lists multi-character operators longest first so the first
// prefix match wins.
var operators = []struct {
	text string
	typ  TokenType
}{
	{">>>=", TokenUShrAssign},
	{">>>", TokenUShr},
	{"<<=", TokenShlAssign},
	{">>=", TokenShrAssign},
	{"<<", TokenShl},
	{">>", TokenShr},
	{"&&", TokenAndAnd},
	{"||", TokenOrOr},
	{"==", TokenEq},
	{"!=", TokenNotEq},
	{"<=", TokenLessEq},
	{">=", TokenGreatEq},
	{"++", TokenInc},
	{"--", TokenDec},
	{"+=", TokenAddAssign},
	{"-=", TokenSubAssign},
	{"*=", TokenMulAssign},
	{"/=", TokenDivAssign},
	{"%=", TokenModAssign},
	{"&=", TokenAndAssign},
	{"|=", TokenOrAssign},
	{"^=", TokenXorAssign},
	{"(", TokenLParen},
	{")", TokenRParen},
	{"{", TokenLBrace},
	{"}", TokenRBrace},
	{"[", TokenLBracket},
	{"]", TokenRBracket},
	{";", TokenSemicolon},
	{",", TokenComma},
	{".", TokenDot},
	{"?", TokenQuestion},
	{":", TokenColon},
	{"+", TokenPlus},
	{"-", TokenMinus},
	{"*", TokenStar},
	{"/", TokenSlash},
	{"%", TokenPercent},
	{"&", TokenAmp},
	{"|", TokenPipe},
	{"^", TokenCaret},
	{"~", TokenTilde},
	{"!", TokenBang},
	{"<", TokenLess},
	{">", TokenGreater},
	{"=", TokenAssign},
}

// NextToken returns the next token.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	pos := l.position()

	switch {
	case l.ch == 0:
		return Token{Type: TokenEOF, Literal: "", Pos: pos}

	case l.ch == '"':
		return l.readString(pos)

	case l.ch == '#':
		return l.readDirective(pos)

	case isDigit(l.ch), l.ch == '.' && isDigit(l.peekChar()):
		return l.readNumber(pos)

	case isIdentStart(l.ch):
		start := l.pos
		for isIdentPart(l.ch) {
			l.readChar()
		}
		word := l.input[start:l.pos]
		if t, ok := reservedWords[word]; ok {
			return Token{Type: t, Literal: word, Pos: pos}
		}
		return Token{Type: TokenIdentifier, Literal: word, Pos: pos}
	}

	rest := l.input[l.pos:]
	for _, op := range operators {
		if strings.HasPrefix(rest, op.text) {
			for range op.text {
				l.readChar()
			}
			return Token{Type: op.typ, Literal: op.text, Pos: pos}
		}
	}

	ch := l.ch
	l.readChar()
	return Token{Type: TokenError, Literal: "unexpected character " + string(rune(ch)), Pos: pos}
}

// skipWhitespaceAndComments skips whitespace, line comments and block
// comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for {
		switch {
		case l.ch == ' ' || l.ch == '\t' || l.ch == '\n' || l.ch == '\r' || l.ch == '\f' || l.ch == '\v':
			l.readChar()
		case l.ch == '/' && l.peekChar() == '/':
			for l.ch != '\n' && l.ch != 0 {
				l.readChar()
			}
		case l.ch == '/' && l.peekChar() == '*':
			l.readChar()
			l.readChar()
			for l.ch != 0 && !(l.ch == '*' && l.peekChar() == '/') {
				l.readChar()
			}
			if l.ch != 0 {
				l.readChar()
				l.readChar()
			}
		default:
			return
		}
	}
}

// readDirective reads a preprocessor directive. Only #include is
// supported; anything else yields an error token.
func (l *Lexer) readDirective(pos Position) Token {
	l.readChar() // skip #
	start := l.pos
	for isIdentPart(l.ch) {
		l.readChar()
	}
	word := l.input[start:l.pos]
	if word == "include" {
		return Token{Type: TokenInclude, Literal: "#include", Pos: pos}
	}
	return Token{Type: TokenError, Literal: "unsupported directive #" + word, Pos: pos}
}

// readNumber reads an integer or float literal. Hex integers use 0x; floats
// may carry an f suffix.
func (l *Lexer) readNumber(pos Position) Token {
	start := l.pos
	if l.ch == '0' && (l.peekChar() == 'x' || l.peekChar() == 'X') {
		l.readChar()
		l.readChar()
		for isHexDigit(l.ch) {
			l.readChar()
		}
		return Token{Type: TokenInteger, Literal: l.input[start:l.pos], Pos: pos}
	}

	isFloat := false
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' {
		isFloat = true
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	if l.ch == 'e' || l.ch == 'E' {
		next := l.peekChar()
		if isDigit(next) || next == '-' || next == '+' {
			isFloat = true
			l.readChar()
			if l.ch == '-' || l.ch == '+' {
				l.readChar()
			}
			for isDigit(l.ch) {
				l.readChar()
			}
		}
	}
	literal := l.input[start:l.pos]
	if l.ch == 'f' || l.ch == 'F' {
		isFloat = true
		l.readChar()
	}
	if isFloat {
		return Token{Type: TokenFloat, Literal: literal, Pos: pos}
	}
	return Token{Type: TokenInteger, Literal: literal, Pos: pos}
}

// readString reads a double-quoted string literal with C escapes.
func (l *Lexer) readString(pos Position) Token {
	l.readChar() // skip opening quote
	var sb strings.Builder
	for {
		switch l.ch {
		case 0, '\n':
			return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
		case '"':
			l.readChar()
			return Token{Type: TokenString, Literal: sb.String(), Pos: pos}
		case '\\':
			l.readChar()
			switch l.ch {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '0':
				sb.WriteByte(0)
			case 0:
				return Token{Type: TokenError, Literal: "unterminated string", Pos: pos}
			default:
				sb.WriteByte(l.ch)
			}
			l.readChar()
		default:
			sb.WriteByte(l.ch)
			l.readChar()
		}
	}
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isHexDigit(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

func isIdentStart(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}

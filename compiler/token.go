package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the NWScript lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenError

	// Literals
	TokenInteger    // 42, 0x2A
	TokenFloat      // 3.14, 1.5f
	TokenString     // "hello"
	TokenIdentifier // foo, GetFirstPC

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenSemicolon // ;
	TokenComma     // ,
	TokenDot       // .
	TokenQuestion  // ?
	TokenColon     // :
	TokenInclude   // #include

	// Operators
	TokenPlus     // +
	TokenMinus    // -
	TokenStar     // *
	TokenSlash    // /
	TokenPercent  // %
	TokenAmp      // &
	TokenPipe     // |
	TokenCaret    // ^
	TokenTilde    // ~
	TokenBang     // !
	TokenShl      // <<
	TokenShr      // >>
	TokenUShr     // >>>
	TokenAndAnd   // &&
	TokenOrOr     // ||
	TokenEq       // ==
	TokenNotEq    // !=
	TokenLess     // <
	TokenLessEq   // <=
	TokenGreater  // >
	TokenGreatEq  // >=
	TokenInc      // ++
	TokenDec      // --
	TokenAssign   // =
	TokenAddAssign
	TokenSubAssign
	TokenMulAssign
	TokenDivAssign
	TokenModAssign
	TokenAndAssign
	TokenOrAssign
	TokenXorAssign
	TokenShlAssign
	TokenShrAssign
	TokenUShrAssign

	// Keywords
	TokenIf
	TokenElse
	TokenFor
	TokenWhile
	TokenDo
	TokenSwitch
	TokenCase
	TokenDefault
	TokenBreak
	TokenContinue
	TokenReturn
	TokenConst
	TokenStruct
	TokenVoid
	TokenInt
	TokenFloatType
	TokenStringType
	TokenObject
	TokenVector
	TokenEffect
	TokenEvent
	TokenLocation
	TokenTalent
	TokenAction
	TokenObjectSelf
	TokenObjectInvalid
)

var tokenNames = map[TokenType]string{
	TokenEOF:           "EOF",
	TokenError:         "ERROR",
	TokenInteger:       "INTEGER",
	TokenFloat:         "FLOAT",
	TokenString:        "STRING",
	TokenIdentifier:    "IDENTIFIER",
	TokenLParen:        "(",
	TokenRParen:        ")",
	TokenLBrace:        "{",
	TokenRBrace:        "}",
	TokenLBracket:      "[",
	TokenRBracket:      "]",
	TokenSemicolon:     ";",
	TokenComma:         ",",
	TokenDot:           ".",
	TokenQuestion:      "?",
	TokenColon:         ":",
	TokenInclude:       "#include",
	TokenPlus:          "+",
	TokenMinus:         "-",
	TokenStar:          "*",
	TokenSlash:         "/",
	TokenPercent:       "%",
	TokenAmp:           "&",
	TokenPipe:          "|",
	TokenCaret:         "^",
	TokenTilde:         "~",
	TokenBang:          "!",
	TokenShl:           "<<",
	TokenShr:           ">>",
	TokenUShr:          ">>>",
	TokenAndAnd:        "&&",
	TokenOrOr:          "||",
	TokenEq:            "==",
	TokenNotEq:         "!=",
	TokenLess:          "<",
	TokenLessEq:        "<=",
	TokenGreater:       ">",
	TokenGreatEq:       ">=",
	TokenInc:           "++",
	TokenDec:           "--",
	TokenAssign:        "=",
	TokenAddAssign:     "+=",
	TokenSubAssign:     "-=",
	TokenMulAssign:     "*=",
	TokenDivAssign:     "/=",
	TokenModAssign:     "%=",
	TokenAndAssign:     "&=",
	TokenOrAssign:      "|=",
	TokenXorAssign:     "^=",
	TokenShlAssign:     "<<=",
	TokenShrAssign:     ">>=",
	TokenUShrAssign:    ">>>=",
	TokenIf:            "if",
	TokenElse:          "else",
	TokenFor:           "for",
	TokenWhile:         "while",
	TokenDo:            "do",
	TokenSwitch:        "switch",
	TokenCase:          "case",
	TokenDefault:       "default",
	TokenBreak:         "break",
	TokenContinue:      "continue",
	TokenReturn:        "return",
	TokenConst:         "const",
	TokenStruct:        "struct",
	TokenVoid:          "void",
	TokenInt:           "int",
	TokenFloatType:     "float",
	TokenStringType:    "string",
	TokenObject:        "object",
	TokenVector:        "vector",
	TokenEffect:        "effect",
	TokenEvent:         "event",
	TokenLocation:      "location",
	TokenTalent:        "talent",
	TokenAction:        "action",
	TokenObjectSelf:    "OBJECT_SELF",
	TokenObjectInvalid: "OBJECT_INVALID",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text; unescaped contents for strings
	Pos     Position // start position
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if t.Type == TokenError {
		return fmt.Sprintf("ERROR(%s)", t.Literal)
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// Reserved words mapped to their token types.
var reservedWords = map[string]TokenType{
	"if":             TokenIf,
	"else":           TokenElse,
	"for":            TokenFor,
	"while":          TokenWhile,
	"do":             TokenDo,
	"switch":         TokenSwitch,
	"case":           TokenCase,
	"default":        TokenDefault,
	"break":          TokenBreak,
	"continue":       TokenContinue,
	"return":         TokenReturn,
	"const":          TokenConst,
	"struct":         TokenStruct,
	"void":           TokenVoid,
	"int":            TokenInt,
	"float":          TokenFloatType,
	"string":         TokenStringType,
	"object":         TokenObject,
	"vector":         TokenVector,
	"effect":         TokenEffect,
	"event":          TokenEvent,
	"location":       TokenLocation,
	"talent":         TokenTalent,
	"action":         TokenAction,
	"OBJECT_SELF":    TokenObjectSelf,
	"OBJECT_INVALID": TokenObjectInvalid,
}

// isTypeKeyword reports whether t starts a type name.
func isTypeKeyword(t TokenType) bool {
	switch t {
	case TokenVoid, TokenInt, TokenFloatType, TokenStringType, TokenObject, TokenVector,
		TokenEffect, TokenEvent, TokenLocation, TokenTalent, TokenAction, TokenStruct:
		return true
	}
	return false
}

package compiler

import (
	"testing"
)

func TestLexerPunctuation(t *testing.T) {
	input := `( ) { } [ ] ; , . ? :`
	expected := []TokenType{
		TokenLParen, TokenRParen, TokenLBrace, TokenRBrace,
		TokenLBracket, TokenRBracket, TokenSemicolon, TokenComma,
		TokenDot, TokenQuestion, TokenColon, TokenEOF,
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, want)
		}
	}
}

func TestLexerOperatorsLongestMatch(t *testing.T) {
	tests := []struct {
		input string
		want  TokenType
	}{
		{">>>=", TokenUShrAssign},
		{">>>", TokenUShr},
		{">>=", TokenShrAssign},
		{">>", TokenShr},
		{">=", TokenGreatEq},
		{">", TokenGreater},
		{"<<=", TokenShlAssign},
		{"<=", TokenLessEq},
		{"&&", TokenAndAnd},
		{"&=", TokenAndAssign},
		{"||", TokenOrOr},
		{"++", TokenInc},
		{"--", TokenDec},
		{"-=", TokenSubAssign},
		{"==", TokenEq},
		{"!=", TokenNotEq},
		{"!", TokenBang},
		{"~", TokenTilde},
		{"%=", TokenModAssign},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok := l.NextToken()
		if tok.Type != tc.want {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.want)
		}
		if next := l.NextToken(); next.Type != TokenEOF {
			t.Errorf("Lexer(%q): trailing token %v", tc.input, next)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		lit   string
	}{
		{"42", TokenInteger, "42"},
		{"0", TokenInteger, "0"},
		{"0x2A", TokenInteger, "0x2A"},
		{"3.14", TokenFloat, "3.14"},
		{"1.5f", TokenFloat, "1.5"},
		{"2f", TokenFloat, "2"},
		{".5", TokenFloat, ".5"},
		{"1e3", TokenFloat, "1e3"},
		{"2.0E-1", TokenFloat, "2.0E-1"},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
		if tok.Literal != tc.lit {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.lit)
		}
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		want  string
	}{
		{`"hello"`, TokenString, "hello"},
		{`""`, TokenString, ""},
		{`"a\nb"`, TokenString, "a\nb"},
		{`"say \"hi\""`, TokenString, `say "hi"`},
		{`"back\\slash"`, TokenString, `back\slash`},
		{`"open`, TokenError, "unterminated string"},
		{"\"line\nbreak\"", TokenError, "unterminated string"},
	}

	for _, tc := range tests {
		tok := NewLexer(tc.input).NextToken()
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q): type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
		if tok.Literal != tc.want {
			t.Errorf("Lexer(%q): literal = %q, want %q", tc.input, tok.Literal, tc.want)
		}
	}
}

func TestLexerKeywordsAndIdentifiers(t *testing.T) {
	input := `int float string object vector effect event location talent action
struct const void if else for while do switch case default break continue return
OBJECT_SELF OBJECT_INVALID GetFirstPC nCount`
	expected := []TokenType{
		TokenInt, TokenFloatType, TokenStringType, TokenObject, TokenVector,
		TokenEffect, TokenEvent, TokenLocation, TokenTalent, TokenAction,
		TokenStruct, TokenConst, TokenVoid, TokenIf, TokenElse, TokenFor,
		TokenWhile, TokenDo, TokenSwitch, TokenCase, TokenDefault, TokenBreak,
		TokenContinue, TokenReturn, TokenObjectSelf, TokenObjectInvalid,
		TokenIdentifier, TokenIdentifier, TokenEOF,
	}

	l := NewLexer(input)
	for i, want := range expected {
		tok := l.NextToken()
		if tok.Type != want {
			t.Errorf("token[%d] (%q) type = %v, want %v", i, tok.Literal, tok.Type, want)
		}
	}
}

func TestLexerCommentsAndPositions(t *testing.T) {
	input := "// line comment\n/* block\ncomment */ x\n  y"
	l := NewLexer(input)

	x := l.NextToken()
	if x.Type != TokenIdentifier || x.Literal != "x" {
		t.Fatalf("first token = %v, want identifier x", x)
	}
	if x.Pos.Line != 3 {
		t.Errorf("x line = %d, want 3", x.Pos.Line)
	}

	y := l.NextToken()
	if y.Pos.Line != 4 || y.Pos.Column != 3 {
		t.Errorf("y position = %d:%d, want 4:3", y.Pos.Line, y.Pos.Column)
	}
}

func TestLexerDirectives(t *testing.T) {
	tok := NewLexer(`#include "k_inc_debug"`).NextToken()
	if tok.Type != TokenInclude {
		t.Errorf("#include type = %v, want %v", tok.Type, TokenInclude)
	}

	tok = NewLexer(`#pragma once`).NextToken()
	if tok.Type != TokenError {
		t.Errorf("#pragma type = %v, want ERROR", tok.Type)
	}
}

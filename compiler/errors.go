package compiler

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Compile Error Types
// ---------------------------------------------------------------------------

var (
	ErrSyntax              = errors.New("syntax error")
	ErrEntryPoint          = errors.New("This file has no entry point and cannot be compiled (Most likely an include file).")
	ErrMissingInclude      = errors.New("missing include")
	ErrUndefinedVariable   = errors.New("undefined variable")
	ErrUndefinedFunction   = errors.New("undefined function")
	ErrTypeMismatch        = errors.New("type mismatch")
	ErrSignatureMismatch   = errors.New("definition does not match prototype")
	ErrUnsupportedOperator = errors.New("unsupported operator")
	ErrStructNotFound      = errors.New("unknown struct")
	ErrUnknownMember       = errors.New("unknown member")
	ErrRedefinition        = errors.New("redefinition")
	ErrConstAssignment     = errors.New("assignment to constant")
	ErrArgumentCount       = errors.New("wrong number of arguments")
	ErrInvalidStatement    = errors.New("invalid statement")
	ErrRecursionDepth      = errors.New("nesting exceeds maximum depth")
)

// CompileError is a diagnostic tied to a source line. Err is one of the
// sentinel errors above, possibly wrapped with detail.
type CompileError struct {
	File string
	Line int
	Err  error
}

func (e *CompileError) Error() string {
	var sb strings.Builder
	if e.File != "" {
		sb.WriteString(e.File)
		sb.WriteByte(':')
	}
	if e.Line > 0 {
		fmt.Fprintf(&sb, "%d: ", e.Line)
	} else if e.File != "" {
		sb.WriteByte(' ')
	}
	sb.WriteString(e.Err.Error())
	return sb.String()
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// MissingIncludeError names an include that no search path or library
// entry could satisfy.
type MissingIncludeError struct {
	Name     string
	Searched []string
}

func (e *MissingIncludeError) Error() string {
	paths := "none"
	if len(e.Searched) > 0 {
		paths = strings.Join(e.Searched, ", ")
	}
	return fmt.Sprintf("could not find included script %q (searched: %s)", e.Name+".nss", paths)
}

func (e *MissingIncludeError) Is(target error) bool {
	return target == ErrMissingInclude
}

// SignatureMismatchError lists every difference between a prototype and
// its definition.
type SignatureMismatchError struct {
	Function    string
	Differences []string
}

func (e *SignatureMismatchError) Error() string {
	return fmt.Sprintf("function %s definition does not match its prototype: %s",
		e.Function, strings.Join(e.Differences, "; "))
}

func (e *SignatureMismatchError) Is(target error) bool {
	return target == ErrSignatureMismatch
}

// errorAt wraps err with the line of n.
func errorAt(n Node, err error) *CompileError {
	line := 0
	if n != nil {
		line = n.Span().Start.Line
	}
	return &CompileError{Line: line, Err: err}
}

// errorfAt builds a CompileError wrapping a sentinel with detail.
func errorfAt(n Node, sentinel error, format string, args ...interface{}) *CompileError {
	return errorAt(n, fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...)))
}

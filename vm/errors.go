package vm

import (
	"errors"
	"fmt"

	"github.com/th3w1zard1/nwscript/pkg/bytecode"
)

// ---------------------------------------------------------------------------
// Runtime Error Types
// ---------------------------------------------------------------------------

var (
	ErrInstructionLimit = errors.New("instruction limit exceeded (likely infinite loop)")
	ErrUnimplemented    = errors.New("unimplemented instruction")
	ErrStackUnderflow   = errors.New("stack underflow")
	ErrBadOffset        = errors.New("stack offset out of range")
	ErrCellType         = errors.New("stack cell has the wrong type")
	ErrUnknownAction    = errors.New("unknown engine routine")
	ErrActionSignature  = errors.New("engine routine call does not match its signature")
	ErrDivisionByZero   = errors.New("integer division by zero")
)

// RuntimeError locates a failure at an instruction.
type RuntimeError struct {
	Index int
	Type  bytecode.InstructionType
	Err   error
}

func (e *RuntimeError) Error() string {
	return fmt.Sprintf("instruction %d (%s): %v", e.Index, e.Type, e.Err)
}

func (e *RuntimeError) Unwrap() error {
	return e.Err
}

func errorf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

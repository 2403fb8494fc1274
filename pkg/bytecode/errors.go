package bytecode

import (
	"errors"
	"fmt"
	"strings"
)

// ---------------------------------------------------------------------------
// Codec Error Types
// ---------------------------------------------------------------------------

var (
	ErrInvalidMagic      = errors.New("invalid file type: expected \"NCS \"")
	ErrVersionMismatch   = errors.New("unsupported version: expected \"V1.0\"")
	ErrInvalidMarker     = errors.New("invalid header marker byte")
	ErrSizeMismatch      = errors.New("size field exceeds data length")
	ErrTruncated         = errors.New("unexpected end of instruction data")
	ErrUnknownOpcode     = errors.New("unknown bytecode/qualifier combination")
	ErrUnresolvedJump    = errors.New("jump instruction has no target")
	ErrMissingJumpTarget = errors.New("jump target is not part of the program")
	ErrOperandRange      = errors.New("operand out of encodable range")
)

// CorruptError locates a codec or validation failure. Offset is the byte
// offset for decoding failures; Index the instruction position otherwise.
type CorruptError struct {
	Offset  int
	Index   int
	Context string
	Err     error
}

func (e *CorruptError) Error() string {
	var sb strings.Builder
	if e.Offset > 0 {
		fmt.Fprintf(&sb, "offset 0x%X: ", e.Offset)
	} else {
		fmt.Fprintf(&sb, "instruction %d: ", e.Index)
	}
	sb.WriteString(e.Err.Error())
	if e.Context != "" {
		sb.WriteString(" (")
		sb.WriteString(e.Context)
		sb.WriteByte(')')
	}
	return sb.String()
}

func (e *CorruptError) Unwrap() error {
	return e.Err
}

// hexDump formats up to n bytes of data starting at off.
func hexDump(data []byte, off, n int) string {
	if off < 0 {
		off = 0
	}
	end := off + n
	if end > len(data) {
		end = len(data)
	}
	if off >= end {
		return ""
	}
	parts := make([]string, 0, end-off)
	for _, b := range data[off:end] {
		parts = append(parts, fmt.Sprintf("%02X", b))
	}
	return strings.Join(parts, " ")
}

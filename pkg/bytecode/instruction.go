package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// Ref is a stable handle to an instruction in a program's arena. Handles
// survive insertion, removal and splicing; only the order changes.
type Ref int32

// NoRef marks an unset jump target.
const NoRef Ref = -1

// Instruction is one decoded operation. Operands live in Args according to
// the type's Layout:
//
//	LayoutCopy        Args[0] offset, Args[1] size
//	LayoutInt         Args[0]
//	LayoutFloat       Float
//	LayoutString      Str
//	LayoutAction      Args[0] routine number, Args[1] argument count
//	LayoutJump        Jump
//	LayoutDestruct    Args[0] size, Args[1] offset, Args[2] size kept
//	LayoutStoreState  Args[0] bp bytes, Args[1] sp bytes
//	LayoutSize        Args[0] size
type Instruction struct {
	Type   InstructionType
	Args   [3]int32
	Float  float32
	Str    string
	Jump   Ref
}

// EncodedSize returns the number of bytes the instruction occupies on disk.
func (in *Instruction) EncodedSize() int {
	n := 2
	switch in.Type.Layout() {
	case LayoutCopy, LayoutDestruct:
		n += 6
	case LayoutInt, LayoutFloat, LayoutJump:
		n += 4
	case LayoutString:
		n += 2 + len(in.Str)
	case LayoutAction:
		n += 3
	case LayoutStoreState:
		n += 8
	case LayoutSize:
		n += 2
	}
	return n
}

// sameOperands compares everything but the jump target.
func (in *Instruction) sameOperands(other *Instruction) bool {
	if in.Type != other.Type {
		return false
	}
	switch in.Type.Layout() {
	case LayoutFloat:
		return in.Float == other.Float
	case LayoutString:
		return in.Str == other.Str
	case LayoutJump, LayoutNone:
		return true
	}
	return in.Args == other.Args
}

// operandText renders the operands without any jump target.
func (in *Instruction) operandText() string {
	switch in.Type.Layout() {
	case LayoutCopy:
		return fmt.Sprintf("%d, %d", in.Args[0], in.Args[1])
	case LayoutInt, LayoutSize:
		return strconv.Itoa(int(in.Args[0]))
	case LayoutFloat:
		return strconv.FormatFloat(float64(in.Float), 'g', -1, 32)
	case LayoutString:
		return strconv.Quote(in.Str)
	case LayoutAction:
		return fmt.Sprintf("%d, %d", in.Args[0], in.Args[1])
	case LayoutDestruct:
		return fmt.Sprintf("%d, %d, %d", in.Args[0], in.Args[1], in.Args[2])
	case LayoutStoreState:
		return fmt.Sprintf("%d, %d", in.Args[0], in.Args[1])
	}
	return ""
}

func (in *Instruction) String() string {
	var sb strings.Builder
	sb.WriteString(in.Type.String())
	if in.Type.IsJump() {
		if in.Jump == NoRef {
			sb.WriteString(" <unset>")
		} else {
			fmt.Fprintf(&sb, " @%d", in.Jump)
		}
		return sb.String()
	}
	if ops := in.operandText(); ops != "" {
		sb.WriteByte(' ')
		sb.WriteString(ops)
	}
	return sb.String()
}

func checkArgs(t InstructionType, args []int32) error {
	want := 0
	switch t.Layout() {
	case LayoutCopy, LayoutAction, LayoutStoreState:
		want = 2
	case LayoutInt, LayoutSize:
		want = 1
	case LayoutDestruct:
		want = 3
	}
	if len(args) != want {
		return fmt.Errorf("%s takes %d integer operands, got %d", t, want, len(args))
	}
	return nil
}

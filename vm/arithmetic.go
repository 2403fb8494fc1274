package vm

import (
	"fmt"

	"github.com/th3w1zard1/nwscript/pkg/bytecode"
	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// ---------------------------------------------------------------------------
// Operators: logic, comparison and arithmetic
// ---------------------------------------------------------------------------

type operator func(s *stack, in *bytecode.Instruction) error

// intOp pops two ints and pushes f(left, right).
func intOp(f func(a, b int32) (int32, error)) operator {
	return func(s *stack, _ *bytecode.Instruction) error {
		b, err := s.popInt()
		if err != nil {
			return err
		}
		a, err := s.popInt()
		if err != nil {
			return err
		}
		r, err := f(a, b)
		if err != nil {
			return err
		}
		s.push(intCell(r))
		return nil
	}
}

func intPure(f func(a, b int32) int32) operator {
	return intOp(func(a, b int32) (int32, error) { return f(a, b), nil })
}

// floatOp pops two numbers of the given kinds, widens both to float and
// pushes the result of f.
func floatOp(left, right nwscript.DataType, f func(a, b float32) Cell) operator {
	return func(s *stack, _ *bytecode.Instruction) error {
		b, err := popNumber(s, right)
		if err != nil {
			return err
		}
		a, err := popNumber(s, left)
		if err != nil {
			return err
		}
		s.push(f(a, b))
		return nil
	}
}

func popNumber(s *stack, t nwscript.DataType) (float32, error) {
	if t == nwscript.Int {
		n, err := s.popInt()
		return float32(n), err
	}
	return s.popFloat()
}

func floatPure(left, right nwscript.DataType, f func(a, b float32) float32) operator {
	return floatOp(left, right, func(a, b float32) Cell { return floatCell(f(a, b)) })
}

func floatCompare(f func(a, b float32) bool) operator {
	return floatOp(nwscript.Float, nwscript.Float, func(a, b float32) Cell { return boolCell(f(a, b)) })
}

func intCompare(f func(a, b int32) bool) operator {
	return intPure(func(a, b int32) int32 {
		if f(a, b) {
			return 1
		}
		return 0
	})
}

// equality compares the top two single cells of type t.
func equality(t nwscript.DataType, want bool) operator {
	return func(s *stack, _ *bytecode.Instruction) error {
		b, err := s.popType(t)
		if err != nil {
			return err
		}
		a, err := s.popType(t)
		if err != nil {
			return err
		}
		s.push(boolCell(a.Equal(b) == want))
		return nil
	}
}

// blockEquality compares the top two runs of Args[0] bytes cell by cell.
func blockEquality(want bool) operator {
	return func(s *stack, in *bytecode.Instruction) error {
		n, err := cellCount(in.Args[0])
		if err != nil {
			return err
		}
		b, err := s.popN(n)
		if err != nil {
			return err
		}
		a, err := s.popN(n)
		if err != nil {
			return err
		}
		same := true
		for i := range a {
			if !a[i].Equal(b[i]) {
				same = false
				break
			}
		}
		s.push(boolCell(same == want))
		return nil
	}
}

// vectorOp combines two vectors component-wise.
func vectorOp(f func(a, b float32) float32) operator {
	return func(s *stack, _ *bytecode.Instruction) error {
		b, err := s.popVector()
		if err != nil {
			return err
		}
		a, err := s.popVector()
		if err != nil {
			return err
		}
		s.pushVector([3]float32{f(a[0], b[0]), f(a[1], b[1]), f(a[2], b[2])})
		return nil
	}
}

// scaleOp combines a vector with a float. vectorFirst says which operand
// was pushed first.
func scaleOp(vectorFirst bool, f func(v, x float32) float32) operator {
	return func(s *stack, _ *bytecode.Instruction) error {
		var v [3]float32
		var x float32
		var err error
		if vectorFirst {
			if x, err = s.popFloat(); err != nil {
				return err
			}
			if v, err = s.popVector(); err != nil {
				return err
			}
		} else {
			if v, err = s.popVector(); err != nil {
				return err
			}
			if x, err = s.popFloat(); err != nil {
				return err
			}
		}
		s.pushVector([3]float32{f(v[0], x), f(v[1], x), f(v[2], x)})
		return nil
	}
}

func unaryInt(f func(a int32) int32) operator {
	return func(s *stack, _ *bytecode.Instruction) error {
		a, err := s.popInt()
		if err != nil {
			return err
		}
		s.push(intCell(f(a)))
		return nil
	}
}

func truth(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func divide(a, b int32) (int32, error) {
	if b == 0 {
		return 0, fmt.Errorf("%w: %d / 0", ErrDivisionByZero, a)
	}
	return a / b, nil
}

func modulo(a, b int32) (int32, error) {
	if b == 0 {
		return 0, fmt.Errorf("%w: %d %% 0", ErrDivisionByZero, a)
	}
	return a % b, nil
}

var (
	tInt   = nwscript.Int
	tFloat = nwscript.Float
)

var operators = map[bytecode.InstructionType]operator{
	bytecode.OpLogAndII:  intPure(func(a, b int32) int32 { return truth(a != 0 && b != 0) }),
	bytecode.OpLogOrII:   intPure(func(a, b int32) int32 { return truth(a != 0 || b != 0) }),
	bytecode.OpIncOrII:   intPure(func(a, b int32) int32 { return a | b }),
	bytecode.OpExcOrII:   intPure(func(a, b int32) int32 { return a ^ b }),
	bytecode.OpBoolAndII: intPure(func(a, b int32) int32 { return a & b }),

	bytecode.OpEqualII:      equality(nwscript.Int, true),
	bytecode.OpEqualFF:      equality(nwscript.Float, true),
	bytecode.OpEqualSS:      equality(nwscript.String, true),
	bytecode.OpEqualOO:      equality(nwscript.Object, true),
	bytecode.OpEqualEffEff:  equality(nwscript.Effect, true),
	bytecode.OpEqualEvtEvt:  equality(nwscript.Event, true),
	bytecode.OpEqualLocLoc:  equality(nwscript.Location, true),
	bytecode.OpEqualTalTal:  equality(nwscript.Talent, true),
	bytecode.OpEqualTT:      blockEquality(true),
	bytecode.OpNEqualII:     equality(nwscript.Int, false),
	bytecode.OpNEqualFF:     equality(nwscript.Float, false),
	bytecode.OpNEqualSS:     equality(nwscript.String, false),
	bytecode.OpNEqualOO:     equality(nwscript.Object, false),
	bytecode.OpNEqualEffEff: equality(nwscript.Effect, false),
	bytecode.OpNEqualEvtEvt: equality(nwscript.Event, false),
	bytecode.OpNEqualLocLoc: equality(nwscript.Location, false),
	bytecode.OpNEqualTalTal: equality(nwscript.Talent, false),
	bytecode.OpNEqualTT:     blockEquality(false),

	bytecode.OpGEqII: intCompare(func(a, b int32) bool { return a >= b }),
	bytecode.OpGTII:  intCompare(func(a, b int32) bool { return a > b }),
	bytecode.OpLTII:  intCompare(func(a, b int32) bool { return a < b }),
	bytecode.OpLEqII: intCompare(func(a, b int32) bool { return a <= b }),
	bytecode.OpGEqFF: floatCompare(func(a, b float32) bool { return a >= b }),
	bytecode.OpGTFF:  floatCompare(func(a, b float32) bool { return a > b }),
	bytecode.OpLTFF:  floatCompare(func(a, b float32) bool { return a < b }),
	bytecode.OpLEqFF: floatCompare(func(a, b float32) bool { return a <= b }),

	bytecode.OpShLeftII:   intPure(func(a, b int32) int32 { return a << uint32(b&31) }),
	bytecode.OpShRightII:  intPure(func(a, b int32) int32 { return a >> uint32(b&31) }),
	bytecode.OpUShRightII: intPure(func(a, b int32) int32 { return int32(uint32(a) >> uint32(b&31)) }),

	bytecode.OpAddII: intPure(func(a, b int32) int32 { return a + b }),
	bytecode.OpAddIF: floatPure(tInt, tFloat, func(a, b float32) float32 { return a + b }),
	bytecode.OpAddFI: floatPure(tFloat, tInt, func(a, b float32) float32 { return a + b }),
	bytecode.OpAddFF: floatPure(tFloat, tFloat, func(a, b float32) float32 { return a + b }),
	bytecode.OpAddSS: addStrings,
	bytecode.OpAddVV: vectorOp(func(a, b float32) float32 { return a + b }),

	bytecode.OpSubII: intPure(func(a, b int32) int32 { return a - b }),
	bytecode.OpSubIF: floatPure(tInt, tFloat, func(a, b float32) float32 { return a - b }),
	bytecode.OpSubFI: floatPure(tFloat, tInt, func(a, b float32) float32 { return a - b }),
	bytecode.OpSubFF: floatPure(tFloat, tFloat, func(a, b float32) float32 { return a - b }),
	bytecode.OpSubVV: vectorOp(func(a, b float32) float32 { return a - b }),

	bytecode.OpMulII: intPure(func(a, b int32) int32 { return a * b }),
	bytecode.OpMulIF: floatPure(tInt, tFloat, func(a, b float32) float32 { return a * b }),
	bytecode.OpMulFI: floatPure(tFloat, tInt, func(a, b float32) float32 { return a * b }),
	bytecode.OpMulFF: floatPure(tFloat, tFloat, func(a, b float32) float32 { return a * b }),
	bytecode.OpMulVF: scaleOp(true, func(v, x float32) float32 { return v * x }),
	bytecode.OpMulFV: scaleOp(false, func(v, x float32) float32 { return x * v }),

	bytecode.OpDivII: intOp(divide),
	bytecode.OpDivIF: floatPure(tInt, tFloat, func(a, b float32) float32 { return a / b }),
	bytecode.OpDivFI: floatPure(tFloat, tInt, func(a, b float32) float32 { return a / b }),
	bytecode.OpDivFF: floatPure(tFloat, tFloat, func(a, b float32) float32 { return a / b }),
	bytecode.OpDivVF: scaleOp(true, func(v, x float32) float32 { return v / x }),
	bytecode.OpDivFV: scaleOp(false, func(v, x float32) float32 { return x / v }),
	bytecode.OpModII: intOp(modulo),

	bytecode.OpNegI:  unaryInt(func(a int32) int32 { return -a }),
	bytecode.OpCompI: unaryInt(func(a int32) int32 { return ^a }),
	bytecode.OpNotI:  unaryInt(func(a int32) int32 { return truth(a == 0) }),
	bytecode.OpNegF:  negateFloat,
}

func addStrings(s *stack, _ *bytecode.Instruction) error {
	b, err := s.popString()
	if err != nil {
		return err
	}
	a, err := s.popString()
	if err != nil {
		return err
	}
	s.push(Cell{Type: nwscript.String, Str: a + b})
	return nil
}

func negateFloat(s *stack, _ *bytecode.Instruction) error {
	f, err := s.popFloat()
	if err != nil {
		return err
	}
	s.push(floatCell(-f))
	return nil
}

func isArithmetic(t bytecode.InstructionType) bool {
	_, ok := operators[t]
	return ok
}

func (m *VM) arithmetic(in *bytecode.Instruction) error {
	return operators[in.Type](&m.stack, in)
}

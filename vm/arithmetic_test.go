package vm

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/th3w1zard1/nwscript/pkg/bytecode"
	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// runBuilt appends RETN to the program build produces and runs it.
func runBuilt(t *testing.T, build func(p *bytecode.Program)) (*VM, error) {
	t.Helper()
	p := bytecode.NewProgram()
	build(p)
	p.Emit(bytecode.OpRetn)
	m, err := New(p, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m, m.Run(context.Background())
}

func ints(p *bytecode.Program, ns ...int32) {
	for _, n := range ns {
		p.Emit(bytecode.OpConstI, n)
	}
}

func floats(p *bytecode.Program, fs ...float32) {
	for _, f := range fs {
		p.EmitFloat(f)
	}
}

func TestOperators(t *testing.T) {
	tests := []struct {
		name  string
		build func(p *bytecode.Program)
		want  []Cell
	}{
		{"ADDII", func(p *bytecode.Program) { ints(p, 5, 3); p.Emit(bytecode.OpAddII) }, []Cell{intCell(8)}},
		{"SUBII", func(p *bytecode.Program) { ints(p, 5, 3); p.Emit(bytecode.OpSubII) }, []Cell{intCell(2)}},
		{"MULII", func(p *bytecode.Program) { ints(p, -4, 3); p.Emit(bytecode.OpMulII) }, []Cell{intCell(-12)}},
		{"DIVII truncates", func(p *bytecode.Program) { ints(p, -7, 2); p.Emit(bytecode.OpDivII) }, []Cell{intCell(-3)}},
		{"MODII", func(p *bytecode.Program) { ints(p, 7, 3); p.Emit(bytecode.OpModII) }, []Cell{intCell(1)}},
		{"ADDIF", func(p *bytecode.Program) { ints(p, 1); floats(p, 2.5); p.Emit(bytecode.OpAddIF) }, []Cell{floatCell(3.5)}},
		{"SUBFI", func(p *bytecode.Program) { floats(p, 2.5); ints(p, 1); p.Emit(bytecode.OpSubFI) }, []Cell{floatCell(1.5)}},
		{"DIVFF", func(p *bytecode.Program) { floats(p, 3, 2); p.Emit(bytecode.OpDivFF) }, []Cell{floatCell(1.5)}},
		{"ADDSS", func(p *bytecode.Program) {
			p.EmitString("foo")
			p.EmitString("bar")
			p.Emit(bytecode.OpAddSS)
		}, []Cell{{Type: nwscript.String, Str: "foobar"}}},
		{"SHLEFTII", func(p *bytecode.Program) { ints(p, 3, 2); p.Emit(bytecode.OpShLeftII) }, []Cell{intCell(12)}},
		{"SHRIGHTII keeps sign", func(p *bytecode.Program) { ints(p, -8, 1); p.Emit(bytecode.OpShRightII) }, []Cell{intCell(-4)}},
		{"USHRIGHTII", func(p *bytecode.Program) { ints(p, -1, 28); p.Emit(bytecode.OpUShRightII) }, []Cell{intCell(15)}},
		{"INCORII", func(p *bytecode.Program) { ints(p, 5, 2); p.Emit(bytecode.OpIncOrII) }, []Cell{intCell(7)}},
		{"EXCORII", func(p *bytecode.Program) { ints(p, 6, 3); p.Emit(bytecode.OpExcOrII) }, []Cell{intCell(5)}},
		{"BOOLANDII", func(p *bytecode.Program) { ints(p, 6, 3); p.Emit(bytecode.OpBoolAndII) }, []Cell{intCell(2)}},
		{"LOGANDII", func(p *bytecode.Program) { ints(p, 1, 0); p.Emit(bytecode.OpLogAndII) }, []Cell{intCell(0)}},
		{"LOGORII", func(p *bytecode.Program) { ints(p, 0, 9); p.Emit(bytecode.OpLogOrII) }, []Cell{intCell(1)}},
		{"LTII", func(p *bytecode.Program) { ints(p, 1, 2); p.Emit(bytecode.OpLTII) }, []Cell{intCell(1)}},
		{"GEQFF", func(p *bytecode.Program) { floats(p, 1, 2); p.Emit(bytecode.OpGEqFF) }, []Cell{intCell(0)}},
		{"EQUALSS", func(p *bytecode.Program) {
			p.EmitString("a")
			p.EmitString("a")
			p.Emit(bytecode.OpEqualSS)
		}, []Cell{intCell(1)}},
		{"NEQUALOO", func(p *bytecode.Program) {
			p.Emit(bytecode.OpConstO, nwscript.ObjectSelf)
			p.Emit(bytecode.OpConstO, nwscript.ObjectInvalid)
			p.Emit(bytecode.OpNEqualOO)
		}, []Cell{intCell(1)}},
		{"NEGI", func(p *bytecode.Program) { ints(p, 4); p.Emit(bytecode.OpNegI) }, []Cell{intCell(-4)}},
		{"NEGF", func(p *bytecode.Program) { floats(p, 1.5); p.Emit(bytecode.OpNegF) }, []Cell{floatCell(-1.5)}},
		{"COMPI", func(p *bytecode.Program) { ints(p, 0); p.Emit(bytecode.OpCompI) }, []Cell{intCell(-1)}},
		{"NOTI", func(p *bytecode.Program) { ints(p, 0); p.Emit(bytecode.OpNotI) }, []Cell{intCell(1)}},
		{"ADDVV", func(p *bytecode.Program) {
			floats(p, 1, 2, 3, 10, 20, 30)
			p.Emit(bytecode.OpAddVV)
		}, []Cell{floatCell(11), floatCell(22), floatCell(33)}},
		{"MULVF", func(p *bytecode.Program) {
			floats(p, 1, 2, 3, 2)
			p.Emit(bytecode.OpMulVF)
		}, []Cell{floatCell(2), floatCell(4), floatCell(6)}},
		{"DIVFV", func(p *bytecode.Program) {
			floats(p, 6, 1, 2, 3)
			p.Emit(bytecode.OpDivFV)
		}, []Cell{floatCell(6), floatCell(3), floatCell(2)}},
		{"EQUALTT", func(p *bytecode.Program) {
			floats(p, 1, 2, 3, 1, 2, 3)
			p.Emit(bytecode.OpEqualTT, 12)
		}, []Cell{intCell(1)}},
		{"NEQUALTT", func(p *bytecode.Program) {
			floats(p, 1, 2, 3, 1, 2, 4)
			p.Emit(bytecode.OpNEqualTT, 12)
		}, []Cell{intCell(1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := runBuilt(t, tt.build)
			if err != nil {
				t.Fatalf("Run: %v", err)
			}
			got := m.Stack()
			if len(got) != len(tt.want) {
				t.Fatalf("stack = %v, want %v", got, tt.want)
			}
			for i := range got {
				if !got[i].Equal(tt.want[i]) {
					t.Errorf("cell %d = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestIntegerDivisionByZero(t *testing.T) {
	for _, op := range []bytecode.InstructionType{bytecode.OpDivII, bytecode.OpModII} {
		_, err := runBuilt(t, func(p *bytecode.Program) { ints(p, 1, 0); p.Emit(op) })
		if !errors.Is(err, ErrDivisionByZero) {
			t.Errorf("%s: err = %v, want ErrDivisionByZero", op, err)
		}
		var rerr *RuntimeError
		if !errors.As(err, &rerr) || rerr.Index != 2 || rerr.Type != op {
			t.Errorf("%s: runtime error = %+v", op, rerr)
		}
	}
}

func TestFloatDivisionByZero(t *testing.T) {
	m, err := runBuilt(t, func(p *bytecode.Program) { floats(p, 1, 0); p.Emit(bytecode.OpDivFF) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	top, _ := m.Result()
	if !math.IsInf(float64(top.Float), 1) {
		t.Errorf("1.0/0.0 = %v, want +Inf", top)
	}
}

func TestOperandTypeMismatch(t *testing.T) {
	_, err := runBuilt(t, func(p *bytecode.Program) {
		floats(p, 1)
		ints(p, 2)
		p.Emit(bytecode.OpAddII)
	})
	if !errors.Is(err, ErrCellType) {
		t.Errorf("err = %v, want ErrCellType", err)
	}
}

func TestOperandUnderflow(t *testing.T) {
	_, err := runBuilt(t, func(p *bytecode.Program) { p.Emit(bytecode.OpAddII) })
	if !errors.Is(err, ErrStackUnderflow) {
		t.Errorf("err = %v, want ErrStackUnderflow", err)
	}
}

package vm

import (
	"context"
	"fmt"

	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// ---------------------------------------------------------------------------
// Engine routines
// ---------------------------------------------------------------------------

// ActionFunc implements an engine routine. A zero Value stands for the zero
// value of the routine's return type.
type ActionFunc func(call *Call) (Value, error)

// Call is one invocation of an engine routine.
type Call struct {
	VM      *VM
	Context context.Context
	ID      int
	Routine *nwscript.Routine
	Args    []Value // in declaration order
}

// Arg returns the i'th argument, or the zero Value when out of range.
func (c *Call) Arg(i int) Value {
	if i < 0 || i >= len(c.Args) {
		return Value{}
	}
	return c.Args[i]
}

// ActionCall records an engine routine call for later inspection.
type ActionCall struct {
	ID   int
	Name string
	Args []Value
}

// action pops the arguments of routine id, dispatches it and pushes the
// result.
func (m *VM) action(id, argc int) error {
	a, ok := m.table.At(id)
	if !ok {
		return errorf(ErrUnknownAction, "routine %d of %d", id, m.table.Len())
	}
	if argc != len(a.Params) {
		return errorf(ErrActionSignature, "%s takes %d arguments, got %d", a.Name, len(a.Params), argc)
	}

	args := make([]Value, argc)
	for j := argc - 1; j >= 0; j-- {
		v, err := m.popArg(a.Params[j].Type)
		if err != nil {
			return fmt.Errorf("%s argument %d: %w", a.Name, j, err)
		}
		args[j] = v
	}
	m.calls = append(m.calls, ActionCall{ID: id, Name: a.Name, Args: args})

	result := Value{}
	if fn := m.actions[a.Name]; fn != nil {
		var err error
		result, err = fn(&Call{VM: m, Context: m.ctx, ID: id, Routine: a, Args: args})
		if err != nil {
			return fmt.Errorf("%s: %w", a.Name, err)
		}
	} else {
		log.Debugf("unbound engine routine %s", a.Name)
	}
	return m.pushResult(a, result)
}

func (m *VM) popArg(t nwscript.DataType) (Value, error) {
	switch t {
	case nwscript.Action:
		if len(m.pending) == 0 {
			return Value{}, errorf(ErrActionSignature, "no stored state for action argument")
		}
		d := m.pending[len(m.pending)-1]
		m.pending = m.pending[:len(m.pending)-1]
		return Value{Type: nwscript.Action, Deferred: d}, nil
	case nwscript.Void, nwscript.Struct:
		return Value{}, errorf(ErrActionSignature, "%s parameter", t)
	}
	cells, err := m.stack.popN(t.Size() / nwscript.CellSize)
	if err != nil {
		return Value{}, err
	}
	return valueOf(t, cells)
}

func (m *VM) pushResult(a *nwscript.Routine, v Value) error {
	if a.Return == nwscript.Void {
		return nil
	}
	if v.Type == nwscript.Void {
		v = zeroValue(a.Return)
	}
	if v.Type != a.Return {
		return errorf(ErrActionSignature, "%s returned %s, declared %s", a.Name, v.Type, a.Return)
	}
	m.stack.push(v.cells()...)
	return nil
}

func zeroValue(t nwscript.DataType) Value {
	if t == nwscript.Object {
		return ObjectValue(nwscript.ObjectInvalid)
	}
	return Value{Type: t}
}

// ---------------------------------------------------------------------------
// Built-in routine implementations
// ---------------------------------------------------------------------------

func (m *VM) bindBuiltins() {
	m.actions["Random"] = builtinRandom
	m.actions["PrintString"] = func(c *Call) (Value, error) {
		return Value{}, c.VM.print(c.Arg(0).Str)
	}
	m.actions["PrintInteger"] = func(c *Call) (Value, error) {
		return Value{}, c.VM.print(fmt.Sprintf("%d", c.Arg(0).Int))
	}
	m.actions["PrintObject"] = func(c *Call) (Value, error) {
		return Value{}, c.VM.print(fmt.Sprintf("%d", c.Arg(0).Int))
	}
	m.actions["PrintFloat"] = func(c *Call) (Value, error) {
		return Value{}, c.VM.print(formatFloat(c.Arg(0).Float, c.Arg(1).Int, c.Arg(2).Int))
	}
	m.actions["FloatToString"] = func(c *Call) (Value, error) {
		return StringValue(formatFloat(c.Arg(0).Float, c.Arg(1).Int, c.Arg(2).Int)), nil
	}
	m.actions["AssignCommand"] = func(c *Call) (Value, error) {
		return Value{}, c.VM.RunDeferred(c.Context, c.Arg(1).Deferred)
	}
	m.actions["DelayCommand"] = func(c *Call) (Value, error) {
		c.VM.delayed = append(c.VM.delayed, delayedAction{delay: c.Arg(0).Float, d: c.Arg(1).Deferred})
		return Value{}, nil
	}
}

func builtinRandom(c *Call) (Value, error) {
	n := c.Arg(0).Int
	if n <= 0 {
		return IntValue(0), nil
	}
	return IntValue(c.VM.rng.Int31n(n)), nil
}

func (m *VM) print(s string) error {
	_, err := fmt.Fprintln(m.opts.Output, s)
	return err
}

// formatFloat right-aligns f in width columns with the given number of
// decimals.
func formatFloat(f float32, width, decimals int32) string {
	if decimals < 0 {
		decimals = 0
	}
	if width < 0 {
		width = 0
	}
	return fmt.Sprintf("%*.*f", int(width), int(decimals), f)
}

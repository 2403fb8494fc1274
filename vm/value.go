package vm

import (
	"fmt"
	"reflect"
	"strconv"

	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// ---------------------------------------------------------------------------
// Cell: one 4-byte stack slot
// ---------------------------------------------------------------------------

// Cell is one slot of the machine stack. Vectors occupy three float cells
// and structs one cell per scalar member. Engine handle types carry an
// opaque Go value supplied by action implementations.
type Cell struct {
	Type   nwscript.DataType
	Int    int32 // int and object ids
	Float  float32
	Str    string
	Handle interface{}
}

// zeroCell is the value RSADD reserves for t.
func zeroCell(t nwscript.DataType) Cell {
	c := Cell{Type: t}
	if t == nwscript.Object {
		c.Int = nwscript.ObjectInvalid
	}
	return c
}

func intCell(n int32) Cell     { return Cell{Type: nwscript.Int, Int: n} }
func floatCell(f float32) Cell { return Cell{Type: nwscript.Float, Float: f} }
func boolCell(b bool) Cell {
	if b {
		return intCell(1)
	}
	return intCell(0)
}

// Equal compares type and payload.
func (c Cell) Equal(other Cell) bool {
	if c.Type != other.Type {
		return false
	}
	switch c.Type {
	case nwscript.Int, nwscript.Object:
		return c.Int == other.Int
	case nwscript.Float:
		return c.Float == other.Float
	case nwscript.String:
		return c.Str == other.Str
	}
	return reflect.DeepEqual(c.Handle, other.Handle)
}

// IsZero reports whether a conditional jump treats c as false: a zero
// number or object id, an empty string, or a nil engine handle.
func (c Cell) IsZero() bool {
	switch c.Type {
	case nwscript.Int, nwscript.Object:
		return c.Int == 0
	case nwscript.Float:
		return c.Float == 0
	case nwscript.String:
		return c.Str == ""
	}
	return c.Handle == nil
}

func (c Cell) String() string {
	switch c.Type {
	case nwscript.Int:
		return strconv.Itoa(int(c.Int))
	case nwscript.Object:
		return fmt.Sprintf("object(%d)", c.Int)
	case nwscript.Float:
		return strconv.FormatFloat(float64(c.Float), 'g', -1, 32)
	case nwscript.String:
		return strconv.Quote(c.Str)
	}
	if c.Handle == nil {
		return c.Type.String() + "(nil)"
	}
	return fmt.Sprintf("%s(%v)", c.Type, c.Handle)
}

// ---------------------------------------------------------------------------
// Value: an engine routine argument or result
// ---------------------------------------------------------------------------

// Value is a typed argument passed to or returned from an engine routine.
// Action-typed arguments carry the captured Deferred instead of data.
type Value struct {
	Type     nwscript.DataType
	Int      int32
	Float    float32
	Str      string
	Vector   [3]float32
	Handle   interface{}
	Deferred *Deferred
}

// IntValue returns an int value.
func IntValue(n int32) Value { return Value{Type: nwscript.Int, Int: n} }

// FloatValue returns a float value.
func FloatValue(f float32) Value { return Value{Type: nwscript.Float, Float: f} }

// StringValue returns a string value.
func StringValue(s string) Value { return Value{Type: nwscript.String, Str: s} }

// ObjectValue returns an object id.
func ObjectValue(id int32) Value { return Value{Type: nwscript.Object, Int: id} }

// VectorValue returns a vector.
func VectorValue(x, y, z float32) Value {
	return Value{Type: nwscript.Vector, Vector: [3]float32{x, y, z}}
}

// HandleValue wraps an opaque engine value of type t.
func HandleValue(t nwscript.DataType, h interface{}) Value {
	return Value{Type: t, Handle: h}
}

func (v Value) String() string {
	switch v.Type {
	case nwscript.Vector:
		return fmt.Sprintf("[%g, %g, %g]", v.Vector[0], v.Vector[1], v.Vector[2])
	case nwscript.Action:
		if v.Deferred == nil {
			return "action(nil)"
		}
		return fmt.Sprintf("action(@%d)", v.Deferred.Resume)
	case nwscript.Void:
		return "void"
	}
	return v.cells()[0].String()
}

// cells flattens v into stack cells.
func (v Value) cells() []Cell {
	switch v.Type {
	case nwscript.Void, nwscript.Action:
		return nil
	case nwscript.Vector:
		return []Cell{floatCell(v.Vector[0]), floatCell(v.Vector[1]), floatCell(v.Vector[2])}
	}
	return []Cell{{Type: v.Type, Int: v.Int, Float: v.Float, Str: v.Str, Handle: v.Handle}}
}

// valueOf reads a value of type t from cells, which must hold exactly its
// footprint.
func valueOf(t nwscript.DataType, cells []Cell) (Value, error) {
	if t == nwscript.Vector {
		v := Value{Type: t}
		for i, c := range cells {
			if c.Type != nwscript.Float {
				return Value{}, fmt.Errorf("%w: vector component %d is %s", ErrCellType, i, c.Type)
			}
			v.Vector[i] = c.Float
		}
		return v, nil
	}
	c := cells[0]
	if c.Type != t {
		return Value{}, fmt.Errorf("%w: want %s, got %s", ErrCellType, t, c.Type)
	}
	return Value{Type: t, Int: c.Int, Float: c.Float, Str: c.Str, Handle: c.Handle}, nil
}

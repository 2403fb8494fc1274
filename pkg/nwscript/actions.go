package nwscript

import (
	"fmt"
	"strconv"
	"strings"
)

// Value is a compile-time constant: a named constant's value or a parameter
// default.
type Value struct {
	Type   DataType
	Int    int32
	Float  float32
	String string
	Vector [3]float32
}

func (v Value) GoString() string {
	switch v.Type {
	case Int, Object:
		return strconv.Itoa(int(v.Int))
	case Float:
		return strconv.FormatFloat(float64(v.Float), 'g', -1, 32)
	case String:
		return strconv.Quote(v.String)
	case Vector:
		return fmt.Sprintf("[%g, %g, %g]", v.Vector[0], v.Vector[1], v.Vector[2])
	}
	return v.Type.String()
}

// ParseValue converts literal text into a Value of type t. Object values
// accept OBJECT_SELF and OBJECT_INVALID besides plain integers.
func ParseValue(t DataType, text string) (Value, error) {
	text = strings.TrimSpace(text)
	v := Value{Type: t}
	switch t {
	case Int:
		n, err := strconv.ParseInt(text, 0, 32)
		if err != nil {
			return v, fmt.Errorf("invalid int %q: %w", text, err)
		}
		v.Int = int32(n)
	case Object:
		switch text {
		case "OBJECT_SELF":
			v.Int = ObjectSelf
		case "OBJECT_INVALID":
			v.Int = ObjectInvalid
		default:
			n, err := strconv.ParseInt(text, 0, 32)
			if err != nil {
				return v, fmt.Errorf("invalid object %q: %w", text, err)
			}
			v.Int = int32(n)
		}
	case Float:
		f, err := strconv.ParseFloat(strings.TrimSuffix(text, "f"), 32)
		if err != nil {
			return v, fmt.Errorf("invalid float %q: %w", text, err)
		}
		v.Float = float32(f)
	case String:
		if unq, err := strconv.Unquote(text); err == nil {
			text = unq
		}
		v.String = text
	case Vector:
		inner := strings.Trim(text, "[]() ")
		if inner == "" {
			return v, nil
		}
		parts := strings.Split(inner, ",")
		if len(parts) != 3 {
			return v, fmt.Errorf("invalid vector %q: want 3 components", text)
		}
		for i, p := range parts {
			f, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(p), "f"), 32)
			if err != nil {
				return v, fmt.Errorf("invalid vector component %q: %w", p, err)
			}
			v.Vector[i] = float32(f)
		}
	default:
		return v, fmt.Errorf("type %s has no literal form", t)
	}
	return v, nil
}

// Param is one declared parameter of an engine routine.
type Param struct {
	Name    string
	Type    DataType
	Default *Value
}

// Routine is an engine routine reachable through the ACTION opcode. Its
// position in a Table is its routine number.
type Routine struct {
	Name   string
	Return DataType
	Params []Param
}

// RequiredParams returns the number of leading parameters without defaults.
func (a *Routine) RequiredParams() int {
	n := 0
	for _, p := range a.Params {
		if p.Default != nil {
			break
		}
		n++
	}
	return n
}

// String renders the routine as a script prototype.
func (a *Routine) String() string {
	var sb strings.Builder
	sb.WriteString(a.Return.String())
	sb.WriteByte(' ')
	sb.WriteString(a.Name)
	sb.WriteByte('(')
	for i, p := range a.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Type.String())
		if p.Name != "" {
			sb.WriteByte(' ')
			sb.WriteString(p.Name)
		}
		if p.Default != nil {
			sb.WriteString(" = ")
			sb.WriteString(p.Default.GoString())
		}
	}
	sb.WriteByte(')')
	return sb.String()
}

// Constant is a named compile-time value exported by the engine table.
type Constant struct {
	Name  string
	Value Value
}

// Table is an ordered engine routine table plus its named constants.
type Table struct {
	Actions   []Routine
	Constants []Constant

	actionIndex   map[string]int
	constantIndex map[string]int
}

// NewTable builds a table. Later duplicates of a name shadow earlier ones.
func NewTable(actions []Routine, constants []Constant) *Table {
	t := &Table{
		Actions:       actions,
		Constants:     constants,
		actionIndex:   make(map[string]int, len(actions)),
		constantIndex: make(map[string]int, len(constants)),
	}
	for i, a := range actions {
		t.actionIndex[a.Name] = i
	}
	for i, c := range constants {
		t.constantIndex[c.Name] = i
	}
	return t
}

// Len returns the number of routines.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Actions)
}

// Lookup finds a routine by name and returns its routine number.
func (t *Table) Lookup(name string) (int, *Routine, bool) {
	if t == nil {
		return 0, nil, false
	}
	i, ok := t.actionIndex[name]
	if !ok {
		return 0, nil, false
	}
	return i, &t.Actions[i], true
}

// At returns the routine with the given number.
func (t *Table) At(id int) (*Routine, bool) {
	if t == nil || id < 0 || id >= len(t.Actions) {
		return nil, false
	}
	return &t.Actions[id], true
}

// Constant finds a named constant.
func (t *Table) Constant(name string) (Value, bool) {
	if t == nil {
		return Value{}, false
	}
	i, ok := t.constantIndex[name]
	if !ok {
		return Value{}, false
	}
	return t.Constants[i].Value, true
}

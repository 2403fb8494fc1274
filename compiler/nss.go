package compiler

import (
	"fmt"
	"os"
	"strings"

	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// ---------------------------------------------------------------------------
// Engine table loading from nwscript.nss
// ---------------------------------------------------------------------------

// LoadTableFile reads an engine table from an nwscript.nss file.
func LoadTableFile(path string) (*nwscript.Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	t, err := LoadTable(string(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadTable builds an engine table from nwscript.nss source. Prototypes
// become routines numbered in source order and initialized globals become
// constants. #define lines are ignored.
func LoadTable(source string) (*nwscript.Table, error) {
	lines := strings.Split(source, "\n")
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "#define") {
			lines[i] = ""
		}
	}
	f, err := Parse("nwscript", strings.Join(lines, "\n"), 0)
	if err != nil {
		return nil, err
	}

	var (
		actions   []nwscript.Routine
		constants []nwscript.Constant
		known     = map[string]nwscript.Value{}
	)
	for _, d := range f.Decls {
		switch d := d.(type) {
		case *GlobalDecl:
			if d.Type.IsStruct() {
				return nil, errorfAt(d, ErrTypeMismatch, "constant of type %s", d.Type)
			}
			for _, v := range d.Vars {
				if v.Init == nil {
					continue
				}
				val, err := constantValue(v.Init, d.Type.Kind, known)
				if err != nil {
					return nil, errorfAt(d, ErrTypeMismatch, "constant %s: %v", v.Name, err)
				}
				known[v.Name] = val
				constants = append(constants, nwscript.Constant{Name: v.Name, Value: val})
			}

		case *FuncDecl:
			if !d.IsPrototype() {
				return nil, errorfAt(d, ErrInvalidStatement, "engine routine %s has a body", d.Name)
			}
			if d.Return.IsStruct() {
				return nil, errorfAt(d, ErrTypeMismatch, "engine routine %s returns %s", d.Name, d.Return)
			}
			a := nwscript.Routine{Name: d.Name, Return: d.Return.Kind}
			for _, p := range d.Params {
				if p.Type.IsStruct() {
					return nil, errorfAt(d, ErrTypeMismatch, "parameter %s of %s is %s", p.Name, d.Name, p.Type)
				}
				param := nwscript.Param{Name: p.Name, Type: p.Type.Kind}
				if p.Default != nil {
					val, err := constantValue(p.Default, p.Type.Kind, known)
					if err != nil {
						return nil, errorfAt(d, ErrTypeMismatch, "default of %s in %s: %v", p.Name, d.Name, err)
					}
					param.Default = &val
				}
				a.Params = append(a.Params, param)
			}
			actions = append(actions, a)

		default:
			return nil, errorfAt(d, ErrInvalidStatement, "unexpected %T in engine table", d)
		}
	}
	return nwscript.NewTable(actions, constants), nil
}

// constantValue evaluates a literal, a previously defined constant or an
// object keyword as a value of type want. Integer literals widen to float.
func constantValue(e Expr, want nwscript.DataType, known map[string]nwscript.Value) (nwscript.Value, error) {
	var v nwscript.Value
	switch n := e.(type) {
	case *IntLiteral:
		v = nwscript.Value{Type: nwscript.Int, Int: n.Value}
		if want == nwscript.Float {
			v = nwscript.Value{Type: nwscript.Float, Float: float32(n.Value)}
		}
	case *FloatLiteral:
		v = nwscript.Value{Type: nwscript.Float, Float: n.Value}
	case *StringLiteral:
		v = nwscript.Value{Type: nwscript.String, String: n.Value}
	case *ObjectLiteral:
		v = nwscript.Value{Type: nwscript.Object, Int: n.Value}
	case *VectorLiteral:
		v.Type = nwscript.Vector
		for i, comp := range n.Components {
			cv, err := constantValue(comp, nwscript.Float, known)
			if err != nil {
				return v, err
			}
			v.Vector[i] = cv.Float
		}
	case *Identifier:
		k, ok := known[n.Name]
		if !ok {
			return v, fmt.Errorf("unknown constant %s", n.Name)
		}
		v = k
	default:
		return v, fmt.Errorf("not a constant expression")
	}
	if v.Type != want {
		return v, fmt.Errorf("value is %s, want %s", v.Type, want)
	}
	return v, nil
}

package compiler

import (
	"fmt"

	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// Type is a script type: a built-in kind, or a struct by name.
type Type struct {
	Kind   nwscript.DataType
	Struct string // set when Kind is nwscript.Struct
}

var (
	TypeVoid     = Type{Kind: nwscript.Void}
	TypeInt      = Type{Kind: nwscript.Int}
	TypeFloat    = Type{Kind: nwscript.Float}
	TypeString   = Type{Kind: nwscript.String}
	TypeObject   = Type{Kind: nwscript.Object}
	TypeVector   = Type{Kind: nwscript.Vector}
	TypeEffect   = Type{Kind: nwscript.Effect}
	TypeEvent    = Type{Kind: nwscript.Event}
	TypeLocation = Type{Kind: nwscript.Location}
	TypeTalent   = Type{Kind: nwscript.Talent}
	TypeAction   = Type{Kind: nwscript.Action}
)

// StructType returns the type of the named struct.
func StructType(name string) Type {
	return Type{Kind: nwscript.Struct, Struct: name}
}

func (t Type) String() string {
	if t.Kind == nwscript.Struct {
		return "struct " + t.Struct
	}
	return t.Kind.String()
}

// IsStruct reports whether t names a struct.
func (t Type) IsStruct() bool {
	return t.Kind == nwscript.Struct
}

// Member is one field of a struct definition.
type Member struct {
	Type Type
	Name string
}

// StructDef is a registered struct. Its shape is fixed at registration, so
// the size is computed once.
type StructDef struct {
	Name    string
	Members []Member

	size  int
	sized bool
}

// structRegistry resolves struct names and sizes.
type structRegistry map[string]*StructDef

// size returns the byte size of t. Struct sizes come from the registry; an
// unknown struct name is an error.
func (r structRegistry) size(t Type) (int, error) {
	if !t.IsStruct() {
		return t.Kind.Size(), nil
	}
	def, ok := r[t.Struct]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrStructNotFound, t.Struct)
	}
	if def.sized {
		return def.size, nil
	}
	total := 0
	for _, m := range def.Members {
		if m.Type.IsStruct() && m.Type.Struct == def.Name {
			return 0, fmt.Errorf("%w: struct %s contains itself", ErrTypeMismatch, def.Name)
		}
		n, err := r.size(m.Type)
		if err != nil {
			return 0, err
		}
		total += n
	}
	def.size, def.sized = total, true
	return total, nil
}

// member finds a field of t and returns its byte offset within t. Vectors
// expose x, y and z.
func (r structRegistry) member(t Type, name string) (Type, int, error) {
	if t.Kind == nwscript.Vector {
		switch name {
		case "x":
			return TypeFloat, 0, nil
		case "y":
			return TypeFloat, 4, nil
		case "z":
			return TypeFloat, 8, nil
		}
		return Type{}, 0, fmt.Errorf("%w: vector has no member %q", ErrUnknownMember, name)
	}
	if !t.IsStruct() {
		return Type{}, 0, fmt.Errorf("%w: %s has no members", ErrUnknownMember, t)
	}
	def, ok := r[t.Struct]
	if !ok {
		return Type{}, 0, fmt.Errorf("%w: %s", ErrStructNotFound, t.Struct)
	}
	off := 0
	for _, m := range def.Members {
		if m.Name == name {
			return m.Type, off, nil
		}
		n, err := r.size(m.Type)
		if err != nil {
			return Type{}, 0, err
		}
		off += n
	}
	names := make([]string, len(def.Members))
	for i, m := range def.Members {
		names[i] = m.Name
	}
	return Type{}, 0, fmt.Errorf("%w: struct %s has no member %q (members: %v)", ErrUnknownMember, def.Name, name, names)
}

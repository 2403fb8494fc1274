// Package nwscript holds the vocabulary shared by the script compiler and the
// bytecode interpreter: data-type tags, engine routine (action) tables and
// named constants.
package nwscript

import (
	"fmt"
	"strings"
)

// DataType tags a script value.
type DataType int

const (
	Void DataType = iota
	Int
	Float
	String
	Object
	Vector
	Event
	Effect
	Location
	Talent
	Struct
	Action
)

var dataTypeNames = map[DataType]string{
	Void:     "void",
	Int:      "int",
	Float:    "float",
	String:   "string",
	Object:   "object",
	Vector:   "vector",
	Event:    "event",
	Effect:   "effect",
	Location: "location",
	Talent:   "talent",
	Struct:   "struct",
	Action:   "action",
}

// String returns the script keyword for the type.
func (t DataType) String() string {
	if name, ok := dataTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("DataType(%d)", int(t))
}

// ParseDataType maps a script keyword to its tag.
func ParseDataType(s string) (DataType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range dataTypeNames {
		if name == s {
			return t, true
		}
	}
	return Void, false
}

// CellSize is the width in bytes of one interpreter stack cell.
const CellSize = 4

// Size returns the stack footprint of a builtin type in bytes. Struct sizes
// depend on a registry and are reported as zero here.
func (t DataType) Size() int {
	switch t {
	case Void, Action, Struct:
		return 0
	case Vector:
		return 3 * CellSize
	default:
		return CellSize
	}
}

// IsEngineType reports whether t is one of the opaque engine handle types.
func (t DataType) IsEngineType() bool {
	switch t {
	case Event, Effect, Location, Talent:
		return true
	}
	return false
}

// Object ids the compiler emits for the two object keywords.
const (
	ObjectSelf    int32 = 0
	ObjectInvalid int32 = 1
)

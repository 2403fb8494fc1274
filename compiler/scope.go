package compiler

import (
	"fmt"
)

// ---------------------------------------------------------------------------
// Scopes: Arena of lexical scopes and stack offset resolution
// ---------------------------------------------------------------------------

// scopeID indexes the scope arena. Parents always have smaller ids than
// their children, so a parent chain cannot loop.
type scopeID int32

const (
	noScope     scopeID = -1
	globalScope scopeID = 0
)

type scopeKind uint8

const (
	scopePlain scopeKind = iota
	scopeGlobal
	scopeFunction
	scopeLoop
	scopeSwitch
)

// binding is a named stack slot.
type binding struct {
	name    string
	typ     Type
	size    int
	isConst bool
}

// scope holds the bindings of one block. vars is newest first, so the
// binding nearest the stack top comes first.
type scope struct {
	parent scopeID
	kind   scopeKind
	vars   []binding
	size   int // bytes bound to names
	temp   int // bytes of unnamed intermediates above the bindings
	base   int // temp bytes owned by the construct itself (switch value)
}

// footprint is every byte this scope has on the stack.
func (s *scope) footprint() int {
	return s.size + s.temp
}

// scopeArena owns every scope of one compilation.
type scopeArena struct {
	scopes []scope
}

func newScopeArena() *scopeArena {
	a := &scopeArena{}
	a.scopes = append(a.scopes, scope{parent: noScope, kind: scopeGlobal})
	return a
}

// push opens a scope under parent.
func (a *scopeArena) push(parent scopeID, kind scopeKind) scopeID {
	a.scopes = append(a.scopes, scope{parent: parent, kind: kind})
	return scopeID(len(a.scopes) - 1)
}

func (a *scopeArena) get(id scopeID) *scope {
	if id < 0 || int(id) >= len(a.scopes) {
		panic(fmt.Sprintf("compiler: scope %d out of range", id))
	}
	return &a.scopes[id]
}

// declare binds name in scope id. Names may shadow outer scopes but not
// each other.
func (a *scopeArena) declare(id scopeID, name string, t Type, size int, isConst bool) error {
	s := a.get(id)
	for _, b := range s.vars {
		if b.name == name {
			return fmt.Errorf("%w: %s is already declared in this scope", ErrRedefinition, name)
		}
	}
	s.vars = append([]binding{{name: name, typ: t, size: size, isConst: isConst}}, s.vars...)
	s.size += size
	return nil
}

// variable is a resolved name.
type variable struct {
	global  bool // addressed from BP rather than SP
	typ     Type
	offset  int // start of the value relative to SP or BP
	isConst bool
}

// resolve finds name starting at scope from. Locals and, while globals are
// still being initialized, globals are addressed from the stack top. Inside
// functions globals are addressed from the saved base pointer.
func (a *scopeArena) resolve(from scopeID, name string) (variable, bool) {
	offset := -a.get(from).temp
	for id := from; id != noScope; {
		s := a.get(id)
		for _, b := range s.vars {
			offset -= b.size
			if b.name == name {
				return variable{typ: b.typ, offset: offset, isConst: b.isConst}, true
			}
		}
		if s.parent != noScope && s.parent >= id {
			panic(fmt.Sprintf("compiler: scope %d has parent %d", id, s.parent))
		}
		id = s.parent
		if id != noScope {
			offset -= a.get(id).temp
		}
	}
	if from == globalScope {
		return variable{}, false
	}

	offset = 0
	for _, b := range a.get(globalScope).vars {
		offset -= b.size
		if b.name == name {
			return variable{global: true, typ: b.typ, offset: offset, isConst: b.isConst}, true
		}
	}
	return variable{}, false
}

// unwindTo sums the stack footprint of every scope from from up to and
// including to.
func (a *scopeArena) unwindTo(from, to scopeID) int {
	total := 0
	for id := from; id != noScope; id = a.get(id).parent {
		total += a.get(id).footprint()
		if id == to {
			return total
		}
	}
	panic(fmt.Sprintf("compiler: scope %d is not an ancestor of %d", to, from))
}

// adjust changes the temp counter of a scope.
func (a *scopeArena) adjust(id scopeID, delta int) {
	s := a.get(id)
	s.temp += delta
	if s.temp < 0 {
		panic(fmt.Sprintf("compiler: scope %d temp underflow (%d)", id, s.temp))
	}
}

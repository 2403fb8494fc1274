package bytecode

import (
	"fmt"
	"strings"
)

// store is the instruction arena. Programs forked from one another share a
// store so handles stay valid when their bodies are spliced together.
type store struct {
	insts []Instruction
}

func (s *store) alloc(in Instruction) Ref {
	s.insts = append(s.insts, in)
	return Ref(len(s.insts) - 1)
}

// Program is an ordered sequence of instructions held in an arena.
// Instructions are addressed by Ref; the order slice decides layout.
type Program struct {
	store *store
	order []Ref

	// index maps a handle to its position; nil means stale.
	index map[Ref]int
}

// NewProgram returns an empty program with a fresh arena.
func NewProgram() *Program {
	return &Program{store: &store{}}
}

// Fork returns an empty program sharing p's arena. Its instructions can
// reference p's and vice versa, and it can later be spliced into p.
func (p *Program) Fork() *Program {
	return &Program{store: p.store}
}

// SharesArena reports whether p and other allocate from the same arena.
func (p *Program) SharesArena(other *Program) bool {
	return p.store == other.store
}

// ---------------------------------------------------------------------------
// Construction
// ---------------------------------------------------------------------------

// New allocates an instruction without placing it. Use Place or Insert to
// put it in the order; until then it can already serve as a jump target.
func (p *Program) New(t InstructionType, args ...int32) Ref {
	if err := checkArgs(t, args); err != nil {
		panic(err)
	}
	in := Instruction{Type: t, Jump: NoRef}
	copy(in.Args[:], args)
	return p.store.alloc(in)
}

// Place appends an allocated instruction to the order.
func (p *Program) Place(r Ref) Ref {
	p.order = append(p.order, r)
	if p.index != nil {
		p.index[r] = len(p.order) - 1
	}
	return r
}

// Emit allocates and appends an instruction with integer operands.
func (p *Program) Emit(t InstructionType, args ...int32) Ref {
	return p.Place(p.New(t, args...))
}

// EmitFloat appends a CONSTF.
func (p *Program) EmitFloat(f float32) Ref {
	r := p.New(OpConstF)
	p.store.insts[r].Float = f
	return p.Place(r)
}

// EmitString appends a CONSTS.
func (p *Program) EmitString(s string) Ref {
	r := p.New(OpConstS)
	p.store.insts[r].Str = s
	return p.Place(r)
}

// EmitJump appends a jump-carrying instruction. target may be NoRef and
// set later with SetJump.
func (p *Program) EmitJump(t InstructionType, target Ref) Ref {
	if !t.IsJump() {
		panic(fmt.Sprintf("bytecode: %s is not a jump", t))
	}
	r := p.New(t)
	p.store.insts[r].Jump = target
	return p.Place(r)
}

// Insert places an allocated instruction at position i, shifting later
// instructions up.
func (p *Program) Insert(i int, r Ref) {
	if i < 0 || i > len(p.order) {
		panic(fmt.Sprintf("bytecode: insert position %d out of range [0,%d]", i, len(p.order)))
	}
	p.order = append(p.order, 0)
	copy(p.order[i+1:], p.order[i:])
	p.order[i] = r
	p.index = nil
}

// Remove drops the instruction at position i from the order. Its handle
// stays allocated so stale jumps can still be retargeted.
func (p *Program) Remove(i int) Ref {
	r := p.order[i]
	p.order = append(p.order[:i], p.order[i+1:]...)
	p.index = nil
	return r
}

// SetJump sets the jump target of r.
func (p *Program) SetJump(r, target Ref) {
	in := p.Get(r)
	if !in.Type.IsJump() {
		panic(fmt.Sprintf("bytecode: %s is not a jump", in.Type))
	}
	in.Jump = target
}

// Retarget rewrites every jump in p that points at from so it points at to.
// It returns the number of rewritten jumps.
func (p *Program) Retarget(from, to Ref) int {
	n := 0
	for _, r := range p.order {
		in := &p.store.insts[r]
		if in.Type.IsJump() && in.Jump == from {
			in.Jump = to
			n++
		}
	}
	return n
}

// Splice inserts other's instructions at position i. Both programs must
// share an arena; other is left empty.
func (p *Program) Splice(i int, other *Program) {
	if !p.SharesArena(other) {
		panic("bytecode: splice across arenas")
	}
	if i < 0 || i > len(p.order) {
		panic(fmt.Sprintf("bytecode: splice position %d out of range [0,%d]", i, len(p.order)))
	}
	merged := make([]Ref, 0, len(p.order)+len(other.order))
	merged = append(merged, p.order[:i]...)
	merged = append(merged, other.order...)
	merged = append(merged, p.order[i:]...)
	p.order = merged
	p.index = nil
	other.order = nil
	other.index = nil
}

// Merge appends other's instructions to p.
func (p *Program) Merge(other *Program) {
	p.Splice(len(p.order), other)
}

// ---------------------------------------------------------------------------
// Access
// ---------------------------------------------------------------------------

// Len returns the number of placed instructions.
func (p *Program) Len() int {
	return len(p.order)
}

// At returns the handle at position i.
func (p *Program) At(i int) Ref {
	return p.order[i]
}

// Get returns the instruction behind r. The pointer is valid until the
// next allocation in the arena.
func (p *Program) Get(r Ref) *Instruction {
	if r < 0 || int(r) >= len(p.store.insts) {
		panic(fmt.Sprintf("bytecode: dangling handle %d", r))
	}
	return &p.store.insts[r]
}

// Instruction returns a copy of the instruction at position i.
func (p *Program) Instruction(i int) Instruction {
	return p.store.insts[p.order[i]]
}

// Refs returns a copy of the instruction order.
func (p *Program) Refs() []Ref {
	return append([]Ref(nil), p.order...)
}

// Last returns the final placed handle, or NoRef for an empty program.
func (p *Program) Last() Ref {
	if len(p.order) == 0 {
		return NoRef
	}
	return p.order[len(p.order)-1]
}

// IndexOf returns the position of r in the order.
func (p *Program) IndexOf(r Ref) (int, bool) {
	if p.index == nil {
		p.index = make(map[Ref]int, len(p.order))
		for i, ref := range p.order {
			p.index[ref] = i
		}
	}
	i, ok := p.index[r]
	return i, ok
}

// Contains reports whether r is placed in p.
func (p *Program) Contains(r Ref) bool {
	_, ok := p.IndexOf(r)
	return ok
}

// JumpIndex returns the position of the jump target of the instruction at
// position i, or -1 when the target is unset or not placed.
func (p *Program) JumpIndex(i int) int {
	in := p.Get(p.order[i])
	if !in.Type.IsJump() || in.Jump == NoRef {
		return -1
	}
	j, ok := p.IndexOf(in.Jump)
	if !ok {
		return -1
	}
	return j
}

// Validate checks that every jump has a target placed in p.
func (p *Program) Validate() error {
	for i, r := range p.order {
		in := p.Get(r)
		if !in.Type.Valid() {
			return &CorruptError{Index: i, Err: ErrUnknownOpcode, Context: in.Type.String()}
		}
		if !in.Type.IsJump() {
			continue
		}
		if in.Jump == NoRef {
			return &CorruptError{Index: i, Err: ErrUnresolvedJump, Context: in.Type.String()}
		}
		if !p.Contains(in.Jump) {
			return &CorruptError{Index: i, Err: ErrMissingJumpTarget, Context: fmt.Sprintf("%s @%d", in.Type, in.Jump)}
		}
	}
	return nil
}

// Equal reports whether p and other hold the same instruction sequence with
// the same jump topology by position.
func (p *Program) Equal(other *Program) bool {
	if p.Len() != other.Len() {
		return false
	}
	for i := range p.order {
		a := p.Get(p.order[i])
		b := other.Get(other.order[i])
		if !a.sameOperands(b) {
			return false
		}
		if a.Type.IsJump() && p.JumpIndex(i) != other.JumpIndex(i) {
			return false
		}
	}
	return true
}

// String renders one instruction per line with jump targets as positions.
func (p *Program) String() string {
	var sb strings.Builder
	for i, r := range p.order {
		in := p.Get(r)
		fmt.Fprintf(&sb, "%4d  %s", i, in.Type)
		if in.Type.IsJump() {
			fmt.Fprintf(&sb, " -> %d", p.JumpIndex(i))
		} else if ops := in.operandText(); ops != "" {
			sb.WriteByte(' ')
			sb.WriteString(ops)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

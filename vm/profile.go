package vm

import (
	"github.com/th3w1zard1/nwscript/pkg/bytecode"
)

// Profile counts executed instructions per opcode and per instruction
// index, to find the hot loops of a script.
type Profile struct {
	byType  map[bytecode.InstructionType]uint64
	byIndex map[int]uint64
	total   uint64
}

// OpCount is one row of a profile report.
type OpCount struct {
	Type  bytecode.InstructionType
	Count uint64
}

// ProfileStats summarizes a profile.
type ProfileStats struct {
	Total        uint64 // instructions executed
	DistinctOps  int    // opcodes seen
	Instructions int    // instruction indexes executed at least once
}

// NewProfile returns an empty profile.
func NewProfile() *Profile {
	p := &Profile{}
	p.Reset()
	return p
}

func (p *Profile) record(i int, t bytecode.InstructionType) {
	p.byType[t]++
	p.byIndex[i]++
	p.total++
}

// Count returns how often instructions of type t ran.
func (p *Profile) Count(t bytecode.InstructionType) uint64 {
	return p.byType[t]
}

// Hits returns how often the instruction at index i ran.
func (p *Profile) Hits(i int) uint64 {
	return p.byIndex[i]
}

// Stats returns aggregate counts.
func (p *Profile) Stats() ProfileStats {
	return ProfileStats{Total: p.total, DistinctOps: len(p.byType), Instructions: len(p.byIndex)}
}

// Top returns the n most frequently executed opcodes, most frequent first.
// Ties are broken by opcode value.
func (p *Profile) Top(n int) []OpCount {
	if n < 0 {
		n = 0
	}
	all := make([]OpCount, 0, len(p.byType))
	for t, c := range p.byType {
		all = append(all, OpCount{Type: t, Count: c})
	}

	// Selection sort for the top n
	for i := 0; i < n && i < len(all); i++ {
		best := i
		for j := i + 1; j < len(all); j++ {
			if all[j].Count > all[best].Count ||
				(all[j].Count == all[best].Count && all[j].Type < all[best].Type) {
				best = j
			}
		}
		all[i], all[best] = all[best], all[i]
	}
	if n < len(all) {
		all = all[:n]
	}
	return all
}

// Reset clears all counts.
func (p *Profile) Reset() {
	p.byType = map[bytecode.InstructionType]uint64{}
	p.byIndex = map[int]uint64{}
	p.total = 0
}

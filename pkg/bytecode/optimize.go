package bytecode

// Pass is an in-place program rewrite returning how many instructions it
// removed.
type Pass func(*Program) int

// DefaultPasses is the optimizer pipeline run by Optimize.
var DefaultPasses = []Pass{RemoveNops, RemoveZeroMoves, RemoveUnreachable}

// Optimize runs DefaultPasses until none of them changes the program.
func Optimize(p *Program) int {
	total := 0
	for {
		n := 0
		for _, pass := range DefaultPasses {
			n += pass(p)
		}
		if n == 0 {
			return total
		}
		total += n
	}
}

// removeWhere drops every instruction matching drop except a trailing one,
// forwarding jumps that targeted a removed instruction to its successor.
func removeWhere(p *Program, drop func(i int, in *Instruction) bool) int {
	var kept []Ref
	var pending []Ref
	removed := 0
	for i, r := range p.order {
		if i < len(p.order)-1 && drop(i, p.Get(r)) {
			pending = append(pending, r)
			removed++
			continue
		}
		for _, gone := range pending {
			p.Retarget(gone, r)
		}
		pending = pending[:0]
		kept = append(kept, r)
	}
	if removed > 0 {
		p.order = kept
		p.index = nil
	}
	return removed
}

// RemoveNops drops NOP instructions.
func RemoveNops(p *Program) int {
	return removeWhere(p, func(_ int, in *Instruction) bool {
		return in.Type == OpNop
	})
}

// RemoveZeroMoves drops MOVSP instructions that move the stack by zero.
func RemoveZeroMoves(p *Program) int {
	return removeWhere(p, func(_ int, in *Instruction) bool {
		return in.Type == OpMovSP && in.Args[0] == 0
	})
}

// RemoveUnreachable drops instructions that cannot execute from position 0.
// Unreachable instructions are never jump targets of reachable code, so no
// retargeting is needed.
func RemoveUnreachable(p *Program) int {
	live := p.Reachable()
	var kept []Ref
	for i, r := range p.order {
		if live[i] {
			kept = append(kept, r)
		}
	}
	removed := len(p.order) - len(kept)
	if removed > 0 {
		p.order = kept
		p.index = nil
	}
	return removed
}

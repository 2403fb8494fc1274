package bytecode

// successors returns the positions control can reach directly from
// position i. JSR continues at the next instruction once the callee returns.
func (p *Program) successors(i int) []int {
	in := p.Get(p.order[i])
	var out []int
	if in.Type.IsJump() {
		if j := p.JumpIndex(i); j >= 0 {
			out = append(out, j)
		}
	}
	if !in.Type.Terminates() && i+1 < len(p.order) {
		out = append(out, i+1)
	}
	return out
}

// Reachable returns, per position, whether the instruction can execute when
// the program starts at position 0. STORE_STATE resumes at the instruction
// two positions later, so that instruction counts as reachable too.
func (p *Program) Reachable() []bool {
	seen := make([]bool, len(p.order))
	if len(p.order) == 0 {
		return seen
	}
	queue := []int{0}
	seen[0] = true
	for len(queue) > 0 {
		i := queue[0]
		queue = queue[1:]
		next := p.successors(i)
		if p.Get(p.order[i]).Type == OpStoreState && i+2 < len(p.order) {
			next = append(next, i+2)
		}
		for _, j := range next {
			if !seen[j] {
				seen[j] = true
				queue = append(queue, j)
			}
		}
	}
	return seen
}

// BasicBlock is a maximal straight-line run of instructions, [Start, End).
type BasicBlock struct {
	Start, End int
	Succs      []int // indexes into the block list
}

// BasicBlocks partitions p into basic blocks. Leaders are position 0, every
// jump target and every instruction following a jump or RETN.
func (p *Program) BasicBlocks() []BasicBlock {
	n := len(p.order)
	if n == 0 {
		return nil
	}
	leader := make([]bool, n)
	leader[0] = true
	for i := range p.order {
		in := p.Get(p.order[i])
		if in.Type.IsJump() {
			if j := p.JumpIndex(i); j >= 0 {
				leader[j] = true
			}
		}
		if (in.Type.IsJump() || in.Type == OpRetn) && i+1 < n {
			leader[i+1] = true
		}
	}

	var blocks []BasicBlock
	blockOf := make([]int, n)
	for i := 0; i < n; i++ {
		if leader[i] {
			blocks = append(blocks, BasicBlock{Start: i})
		}
		blockOf[i] = len(blocks) - 1
	}
	for b := range blocks {
		if b+1 < len(blocks) {
			blocks[b].End = blocks[b+1].Start
		} else {
			blocks[b].End = n
		}
		for _, s := range p.successors(blocks[b].End - 1) {
			blocks[b].Succs = append(blocks[b].Succs, blockOf[s])
		}
	}
	return blocks
}

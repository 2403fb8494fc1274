package bytecode

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of p with byte offsets.
func Disassemble(p *Program) string {
	return DisassembleWithName(p, "")
}

// DisassembleWithName returns a listing with a name header.
func DisassembleWithName(p *Program, name string) string {
	var sb strings.Builder
	offsets, total := p.Offsets()

	// Header
	if name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", name))
	}
	sb.WriteString(fmt.Sprintf("; %s%s, %d instructions, %d bytes\n\n", headerMagic, headerVersion, p.Len(), total))

	// Jump targets get a label line so loops read naturally.
	targets := make(map[int]bool)
	for i := range p.order {
		if j := p.JumpIndex(i); j >= 0 {
			targets[j] = true
		}
	}

	for i, r := range p.order {
		if targets[i] {
			sb.WriteString(fmt.Sprintf("L%04X:\n", offsets[i]))
		}
		sb.WriteString(disassembleInstruction(p, i, r, offsets))
	}
	return sb.String()
}

// disassembleInstruction formats a single instruction.
func disassembleInstruction(p *Program, i int, r Ref, offsets []int) string {
	in := p.Get(r)
	if !in.Type.IsJump() {
		ops := in.operandText()
		if ops == "" {
			return fmt.Sprintf("%04X  %s\n", offsets[i], in.Type)
		}
		return fmt.Sprintf("%04X  %-12s %s\n", offsets[i], in.Type, ops)
	}
	j := p.JumpIndex(i)
	if j < 0 {
		return fmt.Sprintf("%04X  %-12s <unresolved>\n", offsets[i], in.Type)
	}
	return fmt.Sprintf("%04X  %-12s L%04X (%+d)\n", offsets[i], in.Type, offsets[j], offsets[j]-offsets[i])
}

package vm

import (
	"fmt"

	"github.com/th3w1zard1/nwscript/pkg/bytecode"
	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// ---------------------------------------------------------------------------
// Instruction execution
// ---------------------------------------------------------------------------

// exec runs the instruction at index i. pc already points past it.
func (m *VM) exec(i int, in *bytecode.Instruction) error {
	s := &m.stack
	switch in.Type {
	case bytecode.OpNop:
		return nil

	// Stack copies and reservation
	case bytecode.OpCpDownSP:
		return s.copyDown(s.len(), in.Args[0], in.Args[1])
	case bytecode.OpCpTopSP:
		return s.copyTop(s.len(), in.Args[0], in.Args[1])
	case bytecode.OpCpDownBP:
		return s.copyDown(m.bp, in.Args[0], in.Args[1])
	case bytecode.OpCpTopBP:
		return s.copyTop(m.bp, in.Args[0], in.Args[1])
	case bytecode.OpRsAddI:
		s.push(zeroCell(nwscript.Int))
	case bytecode.OpRsAddF:
		s.push(zeroCell(nwscript.Float))
	case bytecode.OpRsAddS:
		s.push(zeroCell(nwscript.String))
	case bytecode.OpRsAddO:
		s.push(zeroCell(nwscript.Object))
	case bytecode.OpRsAddEff:
		s.push(zeroCell(nwscript.Effect))
	case bytecode.OpRsAddEvt:
		s.push(zeroCell(nwscript.Event))
	case bytecode.OpRsAddLoc:
		s.push(zeroCell(nwscript.Location))
	case bytecode.OpRsAddTal:
		s.push(zeroCell(nwscript.Talent))
	case bytecode.OpMovSP:
		return s.move(in.Args[0])
	case bytecode.OpDestruct:
		return m.destruct(in.Args[0], in.Args[1], in.Args[2])
	case bytecode.OpIncISP:
		return s.step(s.len(), in.Args[0], 1)
	case bytecode.OpDecISP:
		return s.step(s.len(), in.Args[0], -1)
	case bytecode.OpIncIBP:
		return s.step(m.bp, in.Args[0], 1)
	case bytecode.OpDecIBP:
		return s.step(m.bp, in.Args[0], -1)

	// Constants and engine routines
	case bytecode.OpConstI:
		s.push(intCell(in.Args[0]))
	case bytecode.OpConstF:
		s.push(floatCell(in.Float))
	case bytecode.OpConstS:
		s.push(Cell{Type: nwscript.String, Str: in.Str})
	case bytecode.OpConstO:
		s.push(Cell{Type: nwscript.Object, Int: in.Args[0]})
	case bytecode.OpAction:
		return m.action(int(in.Args[0]), int(in.Args[1]))

	// Control flow and frames
	case bytecode.OpJmp:
		m.pc = m.targets[i]
	case bytecode.OpJsr:
		m.returns = append(m.returns, m.pc)
		m.pc = m.targets[i]
	case bytecode.OpJz, bytecode.OpJnz:
		cond, err := s.pop()
		if err != nil {
			return err
		}
		if cond.IsZero() == (in.Type == bytecode.OpJz) {
			m.pc = m.targets[i]
		}
	case bytecode.OpRetn:
		if len(m.returns) == 0 {
			m.halted = true
			return nil
		}
		m.pc = m.returns[len(m.returns)-1]
		m.returns = m.returns[:len(m.returns)-1]
	case bytecode.OpSaveBP:
		m.savedBP = append(m.savedBP, m.bp)
		m.bp = s.len()
	case bytecode.OpRestoreBP:
		if len(m.savedBP) == 0 {
			return fmt.Errorf("%w: RESTOREBP without SAVEBP", ErrStackUnderflow)
		}
		m.bp = m.savedBP[len(m.savedBP)-1]
		m.savedBP = m.savedBP[:len(m.savedBP)-1]
	case bytecode.OpStoreState:
		return m.storeState(i, in.Args[0], in.Args[1])

	default:
		if isArithmetic(in.Type) {
			return m.arithmetic(in)
		}
		return fmt.Errorf("%w: %s", ErrUnimplemented, in.Type)
	}
	return nil
}

// destruct keeps keep bytes at offset within the top size bytes and drops
// the rest.
func (m *VM) destruct(size, offset, keep int32) error {
	n, err := cellCount(size)
	if err != nil {
		return err
	}
	block, err := m.stack.popN(n)
	if err != nil {
		return err
	}
	from, err := cellCount(offset)
	if err != nil {
		return err
	}
	k, err := cellCount(keep)
	if err != nil {
		return err
	}
	if from < 0 || k < 0 || from+k > len(block) {
		return fmt.Errorf("%w: keep %d bytes at %d of %d", ErrBadOffset, keep, offset, size)
	}
	m.stack.push(block[from : from+k]...)
	return nil
}

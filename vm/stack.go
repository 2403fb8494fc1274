package vm

import (
	"fmt"

	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// ---------------------------------------------------------------------------
// Stack: cell storage addressed in bytes
// ---------------------------------------------------------------------------

// stack is the machine stack. Instruction operands address it in bytes
// relative to the top or to the base pointer; every byte count must be a
// whole number of cells.
type stack struct {
	cells []Cell
}

func (s *stack) len() int { return len(s.cells) }

func (s *stack) push(cs ...Cell) {
	s.cells = append(s.cells, cs...)
}

// cellCount converts a byte count to cells.
func cellCount(bytes int32) (int, error) {
	if bytes%nwscript.CellSize != 0 {
		return 0, fmt.Errorf("%w: %d bytes is not a whole number of cells", ErrBadOffset, bytes)
	}
	return int(bytes / nwscript.CellSize), nil
}

// popN removes and returns the top n cells.
func (s *stack) popN(n int) ([]Cell, error) {
	if n < 0 || n > len(s.cells) {
		return nil, fmt.Errorf("%w: need %d cells, have %d", ErrStackUnderflow, n, len(s.cells))
	}
	top := len(s.cells) - n
	out := make([]Cell, n)
	copy(out, s.cells[top:])
	s.cells = s.cells[:top]
	return out, nil
}

func (s *stack) pop() (Cell, error) {
	cs, err := s.popN(1)
	if err != nil {
		return Cell{}, err
	}
	return cs[0], nil
}

func (s *stack) popType(t nwscript.DataType) (Cell, error) {
	c, err := s.pop()
	if err != nil {
		return Cell{}, err
	}
	if c.Type != t {
		return Cell{}, fmt.Errorf("%w: want %s, got %s", ErrCellType, t, c.Type)
	}
	return c, nil
}

func (s *stack) popInt() (int32, error) {
	c, err := s.popType(nwscript.Int)
	return c.Int, err
}

func (s *stack) popFloat() (float32, error) {
	c, err := s.popType(nwscript.Float)
	return c.Float, err
}

func (s *stack) popString() (string, error) {
	c, err := s.popType(nwscript.String)
	return c.Str, err
}

func (s *stack) popVector() ([3]float32, error) {
	var v [3]float32
	for i := 2; i >= 0; i-- {
		f, err := s.popFloat()
		if err != nil {
			return v, err
		}
		v[i] = f
	}
	return v, nil
}

func (s *stack) pushVector(v [3]float32) {
	s.push(floatCell(v[0]), floatCell(v[1]), floatCell(v[2]))
}

// span checks that size bytes starting at cell index start lie on the
// stack and returns the cell range.
func (s *stack) span(start int, size int32) (int, int, error) {
	n, err := cellCount(size)
	if err != nil {
		return 0, 0, err
	}
	if start < 0 || n < 0 || start+n > len(s.cells) {
		return 0, 0, fmt.Errorf("%w: cells [%d, %d) on a stack of %d", ErrBadOffset, start, start+n, len(s.cells))
	}
	return start, start + n, nil
}

// index converts a byte offset from base into a cell index.
func (s *stack) index(base int, offset int32) (int, error) {
	n, err := cellCount(offset)
	if err != nil {
		return 0, err
	}
	return base + n, nil
}

// copyTop pushes a copy of size bytes found offset bytes from base.
func (s *stack) copyTop(base int, offset, size int32) error {
	i, err := s.index(base, offset)
	if err != nil {
		return err
	}
	from, to, err := s.span(i, size)
	if err != nil {
		return err
	}
	s.push(append([]Cell(nil), s.cells[from:to]...)...)
	return nil
}

// copyDown overwrites size bytes offset bytes from base with the top size
// bytes. The top is left in place.
func (s *stack) copyDown(base int, offset, size int32) error {
	i, err := s.index(base, offset)
	if err != nil {
		return err
	}
	from, to, err := s.span(i, size)
	if err != nil {
		return err
	}
	src, _, err := s.span(len(s.cells)-(to-from), size)
	if err != nil {
		return err
	}
	copy(s.cells[from:to], s.cells[src:])
	return nil
}

// step adds delta to the int cell offset bytes from base.
func (s *stack) step(base int, offset int32, delta int32) error {
	i, err := s.index(base, offset)
	if err != nil {
		return err
	}
	if _, _, err := s.span(i, nwscript.CellSize); err != nil {
		return err
	}
	if s.cells[i].Type != nwscript.Int {
		return fmt.Errorf("%w: increment of %s", ErrCellType, s.cells[i].Type)
	}
	s.cells[i].Int += delta
	return nil
}

// move grows the stack by zero int cells or shrinks it.
func (s *stack) move(bytes int32) error {
	n, err := cellCount(bytes)
	if err != nil {
		return err
	}
	if n < 0 {
		_, err := s.popN(-n)
		return err
	}
	for i := 0; i < n; i++ {
		s.push(intCell(0))
	}
	return nil
}

// snapshot copies cells [from, to).
func (s *stack) snapshot(from, to int) []Cell {
	return append([]Cell(nil), s.cells[from:to]...)
}

package bytecode

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/tliron/commonlog"
)

// Header layout constants
const (
	headerMagic   = "NCS "
	headerVersion = "V1.0"
	headerMarker  = 0x42
	HeaderSize    = 13

	// jumpSlack bounds how far a damaged jump target may be from a real
	// instruction before decoding gives up.
	jumpSlack = 16
)

var log = commonlog.GetLogger("ncs.codec")

// ---------------------------------------------------------------------------
// Decoding
// ---------------------------------------------------------------------------

// decoder walks an encoded program.
type decoder struct {
	data []byte
	pos  int
	end  int
}

func (d *decoder) need(n int) error {
	if d.pos+n > d.end {
		return &CorruptError{
			Offset:  d.pos,
			Err:     ErrTruncated,
			Context: fmt.Sprintf("need %d bytes, have %d; bytes: %s", n, d.end-d.pos, hexDump(d.data, d.pos-16, 32)),
		}
	}
	return nil
}

func (d *decoder) u8() uint8 {
	v := d.data[d.pos]
	d.pos++
	return v
}

func (d *decoder) u16() uint16 {
	v := binary.BigEndian.Uint16(d.data[d.pos:])
	d.pos += 2
	return v
}

func (d *decoder) u32() uint32 {
	v := binary.BigEndian.Uint32(d.data[d.pos:])
	d.pos += 4
	return v
}

type pendingJump struct {
	ref    Ref
	offset int // of the jump instruction
	target int
}

// ReadFile decodes the compiled script at path.
func ReadFile(path string) (*Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	p, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Decode parses an encoded program. Trailing zero padding counted in the
// size field is tolerated with a warning, and so is a jump target within a
// few bytes of a real instruction.
func Decode(data []byte) (*Program, error) {
	if len(data) < HeaderSize {
		if len(data) >= 4 && string(data[:4]) != headerMagic {
			return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, data[:4])
		}
		return nil, fmt.Errorf("%w: header needs %d bytes, got %d", ErrTruncated, HeaderSize, len(data))
	}
	if magic := string(data[0:4]); magic != headerMagic {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidMagic, magic)
	}
	if version := string(data[4:8]); version != headerVersion {
		return nil, fmt.Errorf("%w: got %q", ErrVersionMismatch, version)
	}
	if data[8] != headerMarker {
		return nil, fmt.Errorf("%w: expected 0x%02X, got 0x%02X", ErrInvalidMarker, headerMarker, data[8])
	}
	size := binary.BigEndian.Uint32(data[9:13])
	if uint64(size) > uint64(len(data)) {
		return nil, fmt.Errorf("%w: size field %d, data length %d", ErrSizeMismatch, size, len(data))
	}
	if size < HeaderSize {
		return nil, fmt.Errorf("%w: size field %d is smaller than the %d byte header", ErrSizeMismatch, size, HeaderSize)
	}

	p := NewProgram()
	if size == HeaderSize {
		return p, nil
	}

	d := &decoder{data: data, pos: HeaderSize, end: int(size)}
	at := make(map[int]Ref)
	var offsets []int
	var jumps []pendingJump

	for d.pos < d.end {
		start := d.pos
		if d.data[start] == byte(CodeReserved) && allZero(d.data[start:d.end]) {
			log.Warningf("size field %d includes %d bytes of zero padding after offset 0x%X", size, d.end-start, start)
			break
		}
		r, target, err := d.instruction(p)
		if err != nil {
			return nil, err
		}
		at[start] = r
		offsets = append(offsets, start)
		if p.Get(r).Type.IsJump() {
			jumps = append(jumps, pendingJump{ref: r, offset: start, target: target})
		}
	}

	for _, j := range jumps {
		target, ok := at[j.target]
		if !ok {
			near, diff, found := nearest(offsets, j.target)
			if !found {
				return nil, &CorruptError{
					Offset:  j.offset,
					Err:     ErrMissingJumpTarget,
					Context: fmt.Sprintf("target 0x%X; bytes: %s", j.target, hexDump(data, j.offset-16, 32)),
				}
			}
			log.Warningf("jump target 0x%X for instruction at 0x%X not found, using 0x%X (%d bytes away)", j.target, j.offset, near, diff)
			target = at[near]
		}
		p.SetJump(j.ref, target)
	}
	return p, nil
}

// instruction decodes one instruction and places it in p. For jumps it
// returns the absolute target offset, otherwise -1.
func (d *decoder) instruction(p *Program) (Ref, int, error) {
	start := d.pos
	if err := d.need(2); err != nil {
		return NoRef, -1, err
	}
	code := ByteCode(d.u8())
	qual := Qualifier(d.u8())

	t, ok := LookupType(code, qual)
	if !ok && code == CodeReserved {
		t, ok = OpReserved, true
	}
	if !ok {
		return NoRef, -1, &CorruptError{
			Offset:  start,
			Err:     ErrUnknownOpcode,
			Context: fmt.Sprintf("bytecode 0x%02X qualifier 0x%02X; bytes: %s", byte(code), byte(qual), hexDump(d.data, start-16, 32)),
		}
	}

	in := Instruction{Type: t, Jump: NoRef}
	target := -1
	switch t.Layout() {
	case LayoutCopy:
		if err := d.need(6); err != nil {
			return NoRef, -1, err
		}
		in.Args[0] = int32(d.u32())
		in.Args[1] = int32(d.u16())
	case LayoutInt:
		if err := d.need(4); err != nil {
			return NoRef, -1, err
		}
		in.Args[0] = int32(d.u32())
	case LayoutFloat:
		if err := d.need(4); err != nil {
			return NoRef, -1, err
		}
		in.Float = math.Float32frombits(d.u32())
	case LayoutString:
		if err := d.need(2); err != nil {
			return NoRef, -1, err
		}
		n := int(d.u16())
		if err := d.need(n); err != nil {
			return NoRef, -1, err
		}
		in.Str = string(d.data[d.pos : d.pos+n])
		d.pos += n
	case LayoutAction:
		if err := d.need(3); err != nil {
			return NoRef, -1, err
		}
		in.Args[0] = int32(d.u16())
		in.Args[1] = int32(d.u8())
	case LayoutJump:
		if err := d.need(4); err != nil {
			return NoRef, -1, err
		}
		target = start + int(int32(d.u32()))
	case LayoutDestruct:
		if err := d.need(6); err != nil {
			return NoRef, -1, err
		}
		in.Args[0] = int32(d.u16())
		in.Args[1] = int32(int16(d.u16()))
		in.Args[2] = int32(d.u16())
	case LayoutStoreState:
		if err := d.need(8); err != nil {
			return NoRef, -1, err
		}
		in.Args[0] = int32(d.u32())
		in.Args[1] = int32(d.u32())
	case LayoutSize:
		if err := d.need(2); err != nil {
			return NoRef, -1, err
		}
		in.Args[0] = int32(d.u16())
	}

	r := p.store.alloc(in)
	p.Place(r)
	return r, target, nil
}

func allZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// nearest finds the instruction offset closest to want, at most jumpSlack
// bytes away.
// offsets is ascending.
func nearest(offsets []int, want int) (int, int, bool) {
	i := sort.SearchInts(offsets, want)
	best, bestDiff, found := 0, 0, false
	for _, k := range []int{i - 1, i} {
		if k < 0 || k >= len(offsets) {
			continue
		}
		diff := offsets[k] - want
		if diff < 0 {
			diff = -diff
		}
		if diff <= jumpSlack && (!found || diff < bestDiff) {
			best, bestDiff, found = offsets[k], diff, true
		}
	}
	return best, bestDiff, found
}

package bytecode

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// Offsets returns the byte offset of every placed instruction, counting the
// header, plus the total encoded size.
func (p *Program) Offsets() ([]int, int) {
	offsets := make([]int, len(p.order))
	off := HeaderSize
	for i, r := range p.order {
		offsets[i] = off
		off += p.Get(r).EncodedSize()
	}
	return offsets, off
}

// Encode serializes p. Every jump must have a placed target.
func Encode(p *Program) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	offsets, total := p.Offsets()

	var buf bytes.Buffer
	buf.Grow(total)
	buf.WriteString(headerMagic)
	buf.WriteString(headerVersion)
	buf.WriteByte(headerMarker)
	writeU32(&buf, uint32(total))

	for i, r := range p.order {
		in := p.Get(r)
		info := in.Type.Info()
		buf.WriteByte(byte(info.Code))
		buf.WriteByte(byte(info.Qualifier))

		switch info.Layout {
		case LayoutCopy:
			writeU32(&buf, uint32(in.Args[0]))
			writeU16(&buf, uint16(in.Args[1]))
		case LayoutInt:
			writeU32(&buf, uint32(in.Args[0]))
		case LayoutFloat:
			writeU32(&buf, math.Float32bits(in.Float))
		case LayoutString:
			if len(in.Str) > math.MaxUint16 {
				return nil, &CorruptError{Index: i, Err: ErrOperandRange, Context: fmt.Sprintf("string constant of %d bytes exceeds 65535", len(in.Str))}
			}
			writeU16(&buf, uint16(len(in.Str)))
			buf.WriteString(in.Str)
		case LayoutAction:
			writeU16(&buf, uint16(in.Args[0]))
			buf.WriteByte(byte(in.Args[1]))
		case LayoutJump:
			j, _ := p.IndexOf(in.Jump)
			writeU32(&buf, uint32(int32(offsets[j]-offsets[i])))
		case LayoutDestruct:
			writeU16(&buf, uint16(in.Args[0]))
			writeU16(&buf, uint16(int16(in.Args[1])))
			writeU16(&buf, uint16(in.Args[2]))
		case LayoutStoreState:
			writeU32(&buf, uint32(in.Args[0]))
			writeU32(&buf, uint32(in.Args[1]))
		case LayoutSize:
			writeU16(&buf, uint16(in.Args[0]))
		}
	}
	return buf.Bytes(), nil
}

// WriteFile encodes p to path.
func WriteFile(p *Program, path string) error {
	data, err := Encode(p)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cannot write %s: %w", path, err)
	}
	return nil
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}

package bytecode

import (
	"bytes"
	"encoding/binary"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

// sample builds a program that touches every operand layout.
func sample() *Program {
	p := NewProgram()
	end := p.New(OpRetn)
	loop := p.Emit(OpRsAddI)
	p.Emit(OpConstI, -7)
	p.EmitFloat(2.5)
	p.EmitString("hello")
	p.Emit(OpConstO, 1)
	p.Emit(OpCpDownSP, -8, 4)
	p.Emit(OpCpTopBP, -4, 4)
	p.Emit(OpAction, 1, 1)
	p.Emit(OpDestruct, 12, 4, 4)
	p.Emit(OpStoreState, 8, 12)
	p.Emit(OpEqualTT, 12)
	p.Emit(OpIncISP, -4)
	p.EmitJump(OpJz, end)
	p.EmitJump(OpJmp, loop)
	p.Place(end)
	return p
}

func TestRoundTrip(t *testing.T) {
	p := sample()
	data, err := Encode(p)
	if err != nil {
		t.Fatalf("Encode error: %v", err)
	}
	if got := binary.BigEndian.Uint32(data[9:13]); int(got) != len(data) {
		t.Errorf("size field = %d, want %d", got, len(data))
	}

	q, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !p.Equal(q) {
		t.Errorf("round trip mismatch:\nwant\n%s\ngot\n%s", p, q)
	}

	again, err := Encode(q)
	if err != nil {
		t.Fatalf("re-Encode error: %v", err)
	}
	if !bytes.Equal(data, again) {
		t.Error("re-encoding is not byte identical")
	}
}

func TestEncodeLayout(t *testing.T) {
	p := NewProgram()
	p.Emit(OpConstI, 5)
	p.Emit(OpConstI, 3)
	p.Emit(OpAddII)
	p.Emit(OpRetn)

	data, err := Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	want := []byte{
		'N', 'C', 'S', ' ', 'V', '1', '.', '0', 0x42, 0, 0, 0, 29,
		0x04, 0x03, 0, 0, 0, 5,
		0x04, 0x03, 0, 0, 0, 3,
		0x14, 0x20,
		0x20, 0x00,
	}
	if !bytes.Equal(data, want) {
		t.Errorf("Encode =\n% X\nwant\n% X", data, want)
	}
}

func TestJumpOperandIsRelativeToInstruction(t *testing.T) {
	p := NewProgram()
	end := p.New(OpRetn)
	p.EmitJump(OpJmp, end)
	p.Emit(OpNop)
	p.Place(end)

	data, err := Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	// JMP at 13 (6 bytes), NOP at 19 (2 bytes), RETN at 21.
	if got := int32(binary.BigEndian.Uint32(data[15:19])); got != 8 {
		t.Errorf("jump operand = %d, want 8", got)
	}
}

func TestEncodeUnresolvedJump(t *testing.T) {
	p := NewProgram()
	p.EmitJump(OpJsr, NoRef)
	if _, err := Encode(p); !errors.Is(err, ErrUnresolvedJump) {
		t.Errorf("Encode error = %v, want ErrUnresolvedJump", err)
	}
}

func TestDecodeHeaderErrors(t *testing.T) {
	valid, _ := Encode(sample())
	mutate := func(f func([]byte)) []byte {
		b := append([]byte(nil), valid...)
		f(b)
		return b
	}
	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"bad magic", mutate(func(b []byte) { b[0] = 'X' }), ErrInvalidMagic},
		{"bad version", mutate(func(b []byte) { b[5] = '2' }), ErrVersionMismatch},
		{"bad marker", mutate(func(b []byte) { b[8] = 0x41 }), ErrInvalidMarker},
		{"size exceeds data", mutate(func(b []byte) {
			binary.BigEndian.PutUint32(b[9:], uint32(len(b)+1))
		}), ErrSizeMismatch},
		{"short header", valid[:10], ErrTruncated},
		{"size below header", []byte("NCS V1.0\x42\x00\x00\x00\x05"), ErrSizeMismatch},
		{"size zero", mutate(func(b []byte) { binary.BigEndian.PutUint32(b[9:], 0) }), ErrSizeMismatch},
		{"truncated operand", func() []byte {
			b := append([]byte(nil), valid[:HeaderSize+3]...)
			binary.BigEndian.PutUint32(b[9:], uint32(len(b)))
			return b
		}(), ErrTruncated},
		{"unknown opcode", mutate(func(b []byte) { b[HeaderSize] = 0x7F }), ErrUnknownOpcode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeUnknownOpcodeHasHexContext(t *testing.T) {
	data, _ := Encode(sample())
	data[HeaderSize] = 0x7F
	_, err := Decode(data)
	var ce *CorruptError
	if !errors.As(err, &ce) {
		t.Fatalf("error %v is not a CorruptError", err)
	}
	if ce.Offset != HeaderSize || !strings.Contains(ce.Context, "7F") {
		t.Errorf("CorruptError = %+v", ce)
	}
}

func TestDecodeCorruptionHasHexContext(t *testing.T) {
	valid, _ := Encode(sample())

	truncated := append([]byte(nil), valid[:HeaderSize+3]...)
	binary.BigEndian.PutUint32(truncated[9:], uint32(len(truncated)))

	p := NewProgram()
	end := p.New(OpRetn)
	p.EmitJump(OpJmp, end)
	p.Place(end)
	farJump, _ := Encode(p)
	binary.BigEndian.PutUint32(farJump[15:19], 400)

	tests := []struct {
		name string
		data []byte
		want error
		hex  string
	}{
		{"truncated operand", truncated, ErrTruncated, "4E 43 53 20"},
		{"missing jump target", farJump, ErrMissingJumpTarget, "1D 00 00 00 01 90"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.data)
			var ce *CorruptError
			if !errors.As(err, &ce) || !errors.Is(err, tt.want) {
				t.Fatalf("Decode error = %v, want CorruptError wrapping %v", err, tt.want)
			}
			if !strings.Contains(ce.Context, "bytes: ") || !strings.Contains(ce.Context, tt.hex) {
				t.Errorf("Context = %q, want a hex dump containing %q", ce.Context, tt.hex)
			}
		})
	}
}

func TestDecodeEmpty(t *testing.T) {
	p := NewProgram()
	data, err := Encode(p)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != HeaderSize {
		t.Fatalf("empty program encodes to %d bytes", len(data))
	}
	q, err := Decode(data)
	if err != nil || q.Len() != 0 {
		t.Errorf("Decode empty = %d instructions, %v", q.Len(), err)
	}
}

func TestDecodeZeroPadding(t *testing.T) {
	p := NewProgram()
	p.Emit(OpConstI, 1)
	p.Emit(OpRetn)
	data, _ := Encode(p)

	padded := append(data, 0, 0, 0, 0)
	binary.BigEndian.PutUint32(padded[9:], uint32(len(padded)))

	q, err := Decode(padded)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if !p.Equal(q) {
		t.Errorf("padding changed the program:\n%s", q)
	}
}

func TestDecodeNearestJumpTarget(t *testing.T) {
	p := NewProgram()
	end := p.New(OpRetn)
	p.EmitJump(OpJmp, end)
	p.Emit(OpNop)
	p.Place(end)
	data, _ := Encode(p)

	// Point one byte past RETN; the nearest instruction is RETN itself.
	binary.BigEndian.PutUint32(data[15:19], 9)
	q, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode error: %v", err)
	}
	if j := q.JumpIndex(0); j != 2 {
		t.Errorf("jump resolved to %d, want 2", j)
	}

	binary.BigEndian.PutUint32(data[15:19], 400)
	if _, err := Decode(data); !errors.Is(err, ErrMissingJumpTarget) {
		t.Errorf("far jump error = %v, want ErrMissingJumpTarget", err)
	}
}

func TestDecodeJumpSlackBoundary(t *testing.T) {
	p := NewProgram()
	end := p.New(OpRetn)
	p.EmitJump(OpJmp, end)
	p.Emit(OpNop)
	p.Place(end)
	data, _ := Encode(p)

	// RETN sits at offset 21, eight bytes after the jump at 13.
	tests := []struct {
		name string
		rel  uint32
		ok   bool
	}{
		{"exact", 8, true},
		{"fifteen past", 8 + 15, true},
		{"sixteen past", 8 + jumpSlack, true},
		{"seventeen past", 8 + jumpSlack + 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := append([]byte(nil), data...)
			binary.BigEndian.PutUint32(b[15:19], tt.rel)
			q, err := Decode(b)
			if !tt.ok {
				if !errors.Is(err, ErrMissingJumpTarget) {
					t.Errorf("Decode error = %v, want ErrMissingJumpTarget", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode error: %v", err)
			}
			if j := q.JumpIndex(0); j != 2 {
				t.Errorf("jump resolved to %d, want 2", j)
			}
		})
	}
}

func TestNearest(t *testing.T) {
	offsets := []int{13, 19, 21}
	tests := []struct {
		want  int
		near  int
		diff  int
		found bool
	}{
		{19, 19, 0, true},
		{20, 19, 1, true},
		{0, 13, 13, true},
		{21 + jumpSlack, 21, jumpSlack, true},
		{21 + jumpSlack + 1, 0, 0, false},
	}
	for _, tt := range tests {
		near, diff, found := nearest(offsets, tt.want)
		if found != tt.found || (found && (near != tt.near || diff != tt.diff)) {
			t.Errorf("nearest(%d) = %d, %d, %v, want %d, %d, %v", tt.want, near, diff, found, tt.near, tt.diff, tt.found)
		}
	}
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.ncs")
	p := sample()
	if err := WriteFile(p, path); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	q, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile error: %v", err)
	}
	if !p.Equal(q) {
		t.Error("file round trip mismatch")
	}
}

func TestDisassemble(t *testing.T) {
	out := DisassembleWithName(sample(), "sample")
	for _, want := range []string{
		"; === sample ===",
		"NCS V1.0",
		"RSADDI",
		`CONSTS       "hello"`,
		"CPDOWNSP     -8, 4",
		"STORE_STATE  8, 12",
		"L000D:",
		"JMP          L000D",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("disassembly missing %q:\n%s", want, out)
		}
	}
}

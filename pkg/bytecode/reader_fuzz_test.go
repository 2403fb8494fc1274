package bytecode

import (
	"testing"
)

// ---------------------------------------------------------------------------
// FuzzDecode: the decoder must never panic or read out of bounds on
// arbitrary input. Errors are expected; panics are bugs.
// ---------------------------------------------------------------------------

func FuzzDecode(f *testing.F) {
	valid, err := Encode(sample())
	if err != nil {
		f.Fatalf("Encode failed: %v", err)
	}
	f.Add(valid)
	f.Add(valid[:HeaderSize])
	f.Add([]byte("NCS V1.0"))
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		p, err := Decode(data)
		if err != nil {
			return
		}
		// Anything that decodes must re-encode: all jumps are resolved.
		if _, err := Encode(p); err != nil {
			t.Errorf("decoded program fails to encode: %v", err)
		}
	})
}

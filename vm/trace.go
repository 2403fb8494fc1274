package vm

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"

	"github.com/th3w1zard1/nwscript/pkg/bytecode"
)

// Trace is the ordered list of instructions a run executed.
type Trace struct {
	RunID   string       `cbor:"1,keyasint"`
	Entries []TraceEntry `cbor:"2,keyasint"`
}

// TraceEntry is one executed instruction and the stack depth after it.
type TraceEntry struct {
	Index int    `cbor:"1,keyasint"`
	Op    string `cbor:"2,keyasint"`
	Text  string `cbor:"3,keyasint"`
	Depth int    `cbor:"4,keyasint"`
}

var traceEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("vm: failed to create CBOR enc mode: %v", err))
	}
	traceEncMode = em
}

func newTrace(id uuid.UUID) *Trace {
	return &Trace{RunID: id.String()}
}

func (t *Trace) record(i int, in *bytecode.Instruction, depth int) {
	t.Entries = append(t.Entries, TraceEntry{
		Index: i,
		Op:    in.Type.String(),
		Text:  in.String(),
		Depth: depth,
	})
}

// EncodeCBOR serializes the trace deterministically.
func (t *Trace) EncodeCBOR() ([]byte, error) {
	return traceEncMode.Marshal(t)
}

// DecodeTrace parses a trace written by EncodeCBOR.
func DecodeTrace(data []byte) (*Trace, error) {
	var t Trace
	if err := cbor.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("vm: unmarshal trace: %w", err)
	}
	return &t, nil
}

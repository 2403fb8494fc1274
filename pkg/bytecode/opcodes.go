package bytecode

import "fmt"

// ByteCode is the first byte of an encoded instruction.
type ByteCode byte

const (
	CodeReserved   ByteCode = 0x00
	CodeCpDownSP   ByteCode = 0x01
	CodeRsAdd      ByteCode = 0x02
	CodeCpTopSP    ByteCode = 0x03
	CodeConst      ByteCode = 0x04
	CodeAction     ByteCode = 0x05
	CodeLogAnd     ByteCode = 0x06
	CodeLogOr      ByteCode = 0x07
	CodeIncOr      ByteCode = 0x08
	CodeExcOr      ByteCode = 0x09
	CodeBoolAnd    ByteCode = 0x0A
	CodeEqual      ByteCode = 0x0B
	CodeNEqual     ByteCode = 0x0C
	CodeGEq        ByteCode = 0x0D
	CodeGT         ByteCode = 0x0E
	CodeLT         ByteCode = 0x0F
	CodeLEq        ByteCode = 0x10
	CodeShLeft     ByteCode = 0x11
	CodeShRight    ByteCode = 0x12
	CodeUShRight   ByteCode = 0x13
	CodeAdd        ByteCode = 0x14
	CodeSub        ByteCode = 0x15
	CodeMul        ByteCode = 0x16
	CodeDiv        ByteCode = 0x17
	CodeMod        ByteCode = 0x18
	CodeNeg        ByteCode = 0x19
	CodeComp       ByteCode = 0x1A
	CodeMovSP      ByteCode = 0x1B
	CodeStoreAll   ByteCode = 0x1C
	CodeJmp        ByteCode = 0x1D
	CodeJsr        ByteCode = 0x1E
	CodeJz         ByteCode = 0x1F
	CodeRetn       ByteCode = 0x20
	CodeDestruct   ByteCode = 0x21
	CodeNot        ByteCode = 0x22
	CodeDecSP      ByteCode = 0x23
	CodeIncSP      ByteCode = 0x24
	CodeJnz        ByteCode = 0x25
	CodeCpDownBP   ByteCode = 0x26
	CodeCpTopBP    ByteCode = 0x27
	CodeDecBP      ByteCode = 0x28
	CodeIncBP      ByteCode = 0x29
	CodeSaveBP     ByteCode = 0x2A
	CodeRestoreBP  ByteCode = 0x2B
	CodeStoreState ByteCode = 0x2C
	CodeNop        ByteCode = 0x2D
)

// Qualifier is the second byte of an encoded instruction. It selects the
// operand types of the operation.
type Qualifier byte

const (
	QualNone             Qualifier = 0x00
	QualCopy             Qualifier = 0x01
	QualInt              Qualifier = 0x03
	QualFloat            Qualifier = 0x04
	QualString           Qualifier = 0x05
	QualObject           Qualifier = 0x06
	QualEffect           Qualifier = 0x10
	QualEvent            Qualifier = 0x11
	QualLocation         Qualifier = 0x12
	QualTalent           Qualifier = 0x13
	QualIntInt           Qualifier = 0x20
	QualFloatFloat       Qualifier = 0x21
	QualObjectObject     Qualifier = 0x22
	QualStringString     Qualifier = 0x23
	QualStructStruct     Qualifier = 0x24
	QualIntFloat         Qualifier = 0x25
	QualFloatInt         Qualifier = 0x26
	QualEffectEffect     Qualifier = 0x30
	QualEventEvent       Qualifier = 0x31
	QualLocationLocation Qualifier = 0x32
	QualTalentTalent     Qualifier = 0x33
	QualVectorVector     Qualifier = 0x3A
	QualVectorFloat      Qualifier = 0x3B
	QualFloatVector      Qualifier = 0x3C
	QualStoreState       Qualifier = 0x10
)

// Layout describes the operand bytes that follow the opcode and qualifier.
type Layout int

const (
	LayoutNone       Layout = iota
	LayoutCopy              // int32 offset, uint16 size
	LayoutInt               // int32
	LayoutFloat             // float32
	LayoutString            // uint16 length, bytes
	LayoutAction            // uint16 routine, uint8 argument count
	LayoutJump              // int32 relative offset
	LayoutDestruct          // uint16 size, int16 offset, uint16 size kept
	LayoutStoreState        // uint32 bp bytes, uint32 sp bytes
	LayoutSize              // uint16 size
)

// InstructionType is the decoded (bytecode, qualifier) pair.
type InstructionType int

const (
	// ===========================================================================
	// Bookkeeping
	// ===========================================================================
	OpReserved InstructionType = iota
	OpReserved01
	OpNop

	// ===========================================================================
	// Stack copy and reservation
	// ===========================================================================
	OpCpDownSP
	OpRsAddI
	OpRsAddF
	OpRsAddS
	OpRsAddO
	OpRsAddEff
	OpRsAddEvt
	OpRsAddLoc
	OpRsAddTal
	OpCpTopSP

	// ===========================================================================
	// Constants and engine routines
	// ===========================================================================
	OpConstI
	OpConstF
	OpConstS
	OpConstO
	OpAction

	// ===========================================================================
	// Logical and bitwise
	// ===========================================================================
	OpLogAndII
	OpLogOrII
	OpIncOrII
	OpExcOrII
	OpBoolAndII

	// ===========================================================================
	// Comparison
	// ===========================================================================
	OpEqualII
	OpEqualFF
	OpEqualSS
	OpEqualOO
	OpEqualTT
	OpEqualEffEff
	OpEqualEvtEvt
	OpEqualLocLoc
	OpEqualTalTal
	OpNEqualII
	OpNEqualFF
	OpNEqualSS
	OpNEqualOO
	OpNEqualTT
	OpNEqualEffEff
	OpNEqualEvtEvt
	OpNEqualLocLoc
	OpNEqualTalTal
	OpGEqII
	OpGEqFF
	OpGTII
	OpGTFF
	OpLTII
	OpLTFF
	OpLEqII
	OpLEqFF

	// ===========================================================================
	// Shifts
	// ===========================================================================
	OpShLeftII
	OpShRightII
	OpUShRightII

	// ===========================================================================
	// Arithmetic
	// ===========================================================================
	OpAddII
	OpAddIF
	OpAddFI
	OpAddFF
	OpAddSS
	OpAddVV
	OpSubII
	OpSubIF
	OpSubFI
	OpSubFF
	OpSubVV
	OpMulII
	OpMulIF
	OpMulFI
	OpMulFF
	OpMulVF
	OpMulFV
	OpDivII
	OpDivIF
	OpDivFI
	OpDivFF
	OpDivVF
	OpDivFV
	OpModII
	OpNegI
	OpNegF
	OpCompI
	OpNotI

	// ===========================================================================
	// Control flow and frames
	// ===========================================================================
	OpMovSP
	OpJmp
	OpJsr
	OpJz
	OpJnz
	OpRetn
	OpDestruct
	OpDecISP
	OpIncISP
	OpCpDownBP
	OpCpTopBP
	OpDecIBP
	OpIncIBP
	OpSaveBP
	OpRestoreBP
	OpStoreState

	opCount
)

// TypeInfo is the static description of one instruction type.
type TypeInfo struct {
	Name      string
	Code      ByteCode
	Qualifier Qualifier
	Layout    Layout
}

var typeInfoTable = [opCount]TypeInfo{
	OpReserved:   {"RESERVED", CodeReserved, QualNone, LayoutNone},
	OpReserved01: {"RESERVED_01", CodeReserved, QualCopy, LayoutNone},
	OpNop:        {"NOP", CodeNop, QualNone, LayoutNone},

	OpCpDownSP: {"CPDOWNSP", CodeCpDownSP, QualCopy, LayoutCopy},
	OpRsAddI:   {"RSADDI", CodeRsAdd, QualInt, LayoutNone},
	OpRsAddF:   {"RSADDF", CodeRsAdd, QualFloat, LayoutNone},
	OpRsAddS:   {"RSADDS", CodeRsAdd, QualString, LayoutNone},
	OpRsAddO:   {"RSADDO", CodeRsAdd, QualObject, LayoutNone},
	OpRsAddEff: {"RSADDEFF", CodeRsAdd, QualEffect, LayoutNone},
	OpRsAddEvt: {"RSADDEVT", CodeRsAdd, QualEvent, LayoutNone},
	OpRsAddLoc: {"RSADDLOC", CodeRsAdd, QualLocation, LayoutNone},
	OpRsAddTal: {"RSADDTAL", CodeRsAdd, QualTalent, LayoutNone},
	OpCpTopSP:  {"CPTOPSP", CodeCpTopSP, QualCopy, LayoutCopy},

	OpConstI: {"CONSTI", CodeConst, QualInt, LayoutInt},
	OpConstF: {"CONSTF", CodeConst, QualFloat, LayoutFloat},
	OpConstS: {"CONSTS", CodeConst, QualString, LayoutString},
	OpConstO: {"CONSTO", CodeConst, QualObject, LayoutInt},
	OpAction: {"ACTION", CodeAction, QualNone, LayoutAction},

	OpLogAndII:  {"LOGANDII", CodeLogAnd, QualIntInt, LayoutNone},
	OpLogOrII:   {"LOGORII", CodeLogOr, QualIntInt, LayoutNone},
	OpIncOrII:   {"INCORII", CodeIncOr, QualIntInt, LayoutNone},
	OpExcOrII:   {"EXCORII", CodeExcOr, QualIntInt, LayoutNone},
	OpBoolAndII: {"BOOLANDII", CodeBoolAnd, QualIntInt, LayoutNone},

	OpEqualII:      {"EQUALII", CodeEqual, QualIntInt, LayoutNone},
	OpEqualFF:      {"EQUALFF", CodeEqual, QualFloatFloat, LayoutNone},
	OpEqualSS:      {"EQUALSS", CodeEqual, QualStringString, LayoutNone},
	OpEqualOO:      {"EQUALOO", CodeEqual, QualObjectObject, LayoutNone},
	OpEqualTT:      {"EQUALTT", CodeEqual, QualStructStruct, LayoutSize},
	OpEqualEffEff:  {"EQUALEFFEFF", CodeEqual, QualEffectEffect, LayoutNone},
	OpEqualEvtEvt:  {"EQUALEVTEVT", CodeEqual, QualEventEvent, LayoutNone},
	OpEqualLocLoc:  {"EQUALLOCLOC", CodeEqual, QualLocationLocation, LayoutNone},
	OpEqualTalTal:  {"EQUALTALTAL", CodeEqual, QualTalentTalent, LayoutNone},
	OpNEqualII:     {"NEQUALII", CodeNEqual, QualIntInt, LayoutNone},
	OpNEqualFF:     {"NEQUALFF", CodeNEqual, QualFloatFloat, LayoutNone},
	OpNEqualSS:     {"NEQUALSS", CodeNEqual, QualStringString, LayoutNone},
	OpNEqualOO:     {"NEQUALOO", CodeNEqual, QualObjectObject, LayoutNone},
	OpNEqualTT:     {"NEQUALTT", CodeNEqual, QualStructStruct, LayoutSize},
	OpNEqualEffEff: {"NEQUALEFFEFF", CodeNEqual, QualEffectEffect, LayoutNone},
	OpNEqualEvtEvt: {"NEQUALEVTEVT", CodeNEqual, QualEventEvent, LayoutNone},
	OpNEqualLocLoc: {"NEQUALLOCLOC", CodeNEqual, QualLocationLocation, LayoutNone},
	OpNEqualTalTal: {"NEQUALTALTAL", CodeNEqual, QualTalentTalent, LayoutNone},
	OpGEqII:        {"GEQII", CodeGEq, QualIntInt, LayoutNone},
	OpGEqFF:        {"GEQFF", CodeGEq, QualFloatFloat, LayoutNone},
	OpGTII:         {"GTII", CodeGT, QualIntInt, LayoutNone},
	OpGTFF:         {"GTFF", CodeGT, QualFloatFloat, LayoutNone},
	OpLTII:         {"LTII", CodeLT, QualIntInt, LayoutNone},
	OpLTFF:         {"LTFF", CodeLT, QualFloatFloat, LayoutNone},
	OpLEqII:        {"LEQII", CodeLEq, QualIntInt, LayoutNone},
	OpLEqFF:        {"LEQFF", CodeLEq, QualFloatFloat, LayoutNone},

	OpShLeftII:   {"SHLEFTII", CodeShLeft, QualIntInt, LayoutNone},
	OpShRightII:  {"SHRIGHTII", CodeShRight, QualIntInt, LayoutNone},
	OpUShRightII: {"USHRIGHTII", CodeUShRight, QualIntInt, LayoutNone},

	OpAddII: {"ADDII", CodeAdd, QualIntInt, LayoutNone},
	OpAddIF: {"ADDIF", CodeAdd, QualIntFloat, LayoutNone},
	OpAddFI: {"ADDFI", CodeAdd, QualFloatInt, LayoutNone},
	OpAddFF: {"ADDFF", CodeAdd, QualFloatFloat, LayoutNone},
	OpAddSS: {"ADDSS", CodeAdd, QualStringString, LayoutNone},
	OpAddVV: {"ADDVV", CodeAdd, QualVectorVector, LayoutNone},
	OpSubII: {"SUBII", CodeSub, QualIntInt, LayoutNone},
	OpSubIF: {"SUBIF", CodeSub, QualIntFloat, LayoutNone},
	OpSubFI: {"SUBFI", CodeSub, QualFloatInt, LayoutNone},
	OpSubFF: {"SUBFF", CodeSub, QualFloatFloat, LayoutNone},
	OpSubVV: {"SUBVV", CodeSub, QualVectorVector, LayoutNone},
	OpMulII: {"MULII", CodeMul, QualIntInt, LayoutNone},
	OpMulIF: {"MULIF", CodeMul, QualIntFloat, LayoutNone},
	OpMulFI: {"MULFI", CodeMul, QualFloatInt, LayoutNone},
	OpMulFF: {"MULFF", CodeMul, QualFloatFloat, LayoutNone},
	OpMulVF: {"MULVF", CodeMul, QualVectorFloat, LayoutNone},
	OpMulFV: {"MULFV", CodeMul, QualFloatVector, LayoutNone},
	OpDivII: {"DIVII", CodeDiv, QualIntInt, LayoutNone},
	OpDivIF: {"DIVIF", CodeDiv, QualIntFloat, LayoutNone},
	OpDivFI: {"DIVFI", CodeDiv, QualFloatInt, LayoutNone},
	OpDivFF: {"DIVFF", CodeDiv, QualFloatFloat, LayoutNone},
	OpDivVF: {"DIVVF", CodeDiv, QualVectorFloat, LayoutNone},
	OpDivFV: {"DIVFV", CodeDiv, QualFloatVector, LayoutNone},
	OpModII: {"MODII", CodeMod, QualIntInt, LayoutNone},
	OpNegI:  {"NEGI", CodeNeg, QualInt, LayoutNone},
	OpNegF:  {"NEGF", CodeNeg, QualFloat, LayoutNone},
	OpCompI: {"COMPI", CodeComp, QualInt, LayoutNone},
	OpNotI:  {"NOTI", CodeNot, QualInt, LayoutNone},

	OpMovSP:      {"MOVSP", CodeMovSP, QualNone, LayoutInt},
	OpJmp:        {"JMP", CodeJmp, QualNone, LayoutJump},
	OpJsr:        {"JSR", CodeJsr, QualNone, LayoutJump},
	OpJz:         {"JZ", CodeJz, QualNone, LayoutJump},
	OpJnz:        {"JNZ", CodeJnz, QualNone, LayoutJump},
	OpRetn:       {"RETN", CodeRetn, QualNone, LayoutNone},
	OpDestruct:   {"DESTRUCT", CodeDestruct, QualCopy, LayoutDestruct},
	OpDecISP:     {"DECxSP", CodeDecSP, QualInt, LayoutInt},
	OpIncISP:     {"INCxSP", CodeIncSP, QualInt, LayoutInt},
	OpCpDownBP:   {"CPDOWNBP", CodeCpDownBP, QualCopy, LayoutCopy},
	OpCpTopBP:    {"CPTOPBP", CodeCpTopBP, QualCopy, LayoutCopy},
	OpDecIBP:     {"DECxBP", CodeDecBP, QualInt, LayoutInt},
	OpIncIBP:     {"INCxBP", CodeIncBP, QualInt, LayoutInt},
	OpSaveBP:     {"SAVEBP", CodeSaveBP, QualNone, LayoutNone},
	OpRestoreBP:  {"RESTOREBP", CodeRestoreBP, QualNone, LayoutNone},
	OpStoreState: {"STORE_STATE", CodeStoreState, QualStoreState, LayoutStoreState},
}

type codeKey struct {
	code ByteCode
	qual Qualifier
}

var typeByCode = func() map[codeKey]InstructionType {
	m := make(map[codeKey]InstructionType, opCount)
	for t := InstructionType(0); t < opCount; t++ {
		info := typeInfoTable[t]
		m[codeKey{info.Code, info.Qualifier}] = t
	}
	return m
}()

// Info returns the static description of t.
func (t InstructionType) Info() TypeInfo {
	if t < 0 || t >= opCount {
		return TypeInfo{Name: fmt.Sprintf("UNKNOWN(%d)", int(t))}
	}
	return typeInfoTable[t]
}

// String returns the mnemonic.
func (t InstructionType) String() string {
	return t.Info().Name
}

// Valid reports whether t names a known instruction type.
func (t InstructionType) Valid() bool {
	return t >= 0 && t < opCount
}

// Layout returns the operand layout of t.
func (t InstructionType) Layout() Layout {
	return t.Info().Layout
}

// IsJump reports whether t carries a jump target.
func (t InstructionType) IsJump() bool {
	return t.Layout() == LayoutJump
}

// IsConditional reports whether t is a conditional branch.
func (t InstructionType) IsConditional() bool {
	return t == OpJz || t == OpJnz
}

// Terminates reports whether execution never falls through t.
func (t InstructionType) Terminates() bool {
	return t == OpJmp || t == OpRetn
}

// LookupType decodes a (bytecode, qualifier) pair.
func LookupType(code ByteCode, qual Qualifier) (InstructionType, bool) {
	t, ok := typeByCode[codeKey{code, qual}]
	return t, ok
}

// AllTypes returns every known instruction type in declaration order.
func AllTypes() []InstructionType {
	types := make([]InstructionType, 0, opCount)
	for t := InstructionType(0); t < opCount; t++ {
		types = append(types, t)
	}
	return types
}

// TypeCount returns the number of instruction types.
func TypeCount() int {
	return int(opCount)
}

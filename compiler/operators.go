package compiler

import (
	"github.com/th3w1zard1/nwscript/pkg/bytecode"
	"github.com/th3w1zard1/nwscript/pkg/nwscript"
)

// ---------------------------------------------------------------------------
// Operator tables: (operator, operand types) -> instruction
// ---------------------------------------------------------------------------

type binaryKey struct {
	op          TokenType
	left, right nwscript.DataType
}

type opResult struct {
	inst   bytecode.InstructionType
	result nwscript.DataType
}

const (
	tInt    = nwscript.Int
	tFloat  = nwscript.Float
	tString = nwscript.String
	tObject = nwscript.Object
	tVector = nwscript.Vector
)

var binaryOps = map[binaryKey]opResult{
	{TokenPlus, tInt, tInt}:          {bytecode.OpAddII, tInt},
	{TokenPlus, tInt, tFloat}:        {bytecode.OpAddIF, tFloat},
	{TokenPlus, tFloat, tInt}:        {bytecode.OpAddFI, tFloat},
	{TokenPlus, tFloat, tFloat}:      {bytecode.OpAddFF, tFloat},
	{TokenPlus, tString, tString}:    {bytecode.OpAddSS, tString},
	{TokenPlus, tVector, tVector}:    {bytecode.OpAddVV, tVector},
	{TokenMinus, tInt, tInt}:         {bytecode.OpSubII, tInt},
	{TokenMinus, tInt, tFloat}:       {bytecode.OpSubIF, tFloat},
	{TokenMinus, tFloat, tInt}:       {bytecode.OpSubFI, tFloat},
	{TokenMinus, tFloat, tFloat}:     {bytecode.OpSubFF, tFloat},
	{TokenMinus, tVector, tVector}:   {bytecode.OpSubVV, tVector},
	{TokenStar, tInt, tInt}:          {bytecode.OpMulII, tInt},
	{TokenStar, tInt, tFloat}:        {bytecode.OpMulIF, tFloat},
	{TokenStar, tFloat, tInt}:        {bytecode.OpMulFI, tFloat},
	{TokenStar, tFloat, tFloat}:      {bytecode.OpMulFF, tFloat},
	{TokenStar, tVector, tFloat}:     {bytecode.OpMulVF, tVector},
	{TokenStar, tFloat, tVector}:     {bytecode.OpMulFV, tVector},
	{TokenSlash, tInt, tInt}:         {bytecode.OpDivII, tInt},
	{TokenSlash, tInt, tFloat}:       {bytecode.OpDivIF, tFloat},
	{TokenSlash, tFloat, tInt}:       {bytecode.OpDivFI, tFloat},
	{TokenSlash, tFloat, tFloat}:     {bytecode.OpDivFF, tFloat},
	{TokenSlash, tVector, tFloat}:    {bytecode.OpDivVF, tVector},
	{TokenPercent, tInt, tInt}:       {bytecode.OpModII, tInt},
	{TokenAndAnd, tInt, tInt}:        {bytecode.OpLogAndII, tInt},
	{TokenOrOr, tInt, tInt}:          {bytecode.OpLogOrII, tInt},
	{TokenAmp, tInt, tInt}:           {bytecode.OpBoolAndII, tInt},
	{TokenPipe, tInt, tInt}:          {bytecode.OpIncOrII, tInt},
	{TokenCaret, tInt, tInt}:         {bytecode.OpExcOrII, tInt},
	{TokenShl, tInt, tInt}:           {bytecode.OpShLeftII, tInt},
	{TokenShr, tInt, tInt}:           {bytecode.OpShRightII, tInt},
	{TokenUShr, tInt, tInt}:          {bytecode.OpUShRightII, tInt},
	{TokenLess, tInt, tInt}:          {bytecode.OpLTII, tInt},
	{TokenLess, tFloat, tFloat}:      {bytecode.OpLTFF, tInt},
	{TokenLessEq, tInt, tInt}:        {bytecode.OpLEqII, tInt},
	{TokenLessEq, tFloat, tFloat}:    {bytecode.OpLEqFF, tInt},
	{TokenGreater, tInt, tInt}:       {bytecode.OpGTII, tInt},
	{TokenGreater, tFloat, tFloat}:   {bytecode.OpGTFF, tInt},
	{TokenGreatEq, tInt, tInt}:       {bytecode.OpGEqII, tInt},
	{TokenGreatEq, tFloat, tFloat}:   {bytecode.OpGEqFF, tInt},
	{TokenEq, tInt, tInt}:            {bytecode.OpEqualII, tInt},
	{TokenEq, tFloat, tFloat}:        {bytecode.OpEqualFF, tInt},
	{TokenEq, tString, tString}:      {bytecode.OpEqualSS, tInt},
	{TokenEq, tObject, tObject}:      {bytecode.OpEqualOO, tInt},
	{TokenNotEq, tInt, tInt}:         {bytecode.OpNEqualII, tInt},
	{TokenNotEq, tFloat, tFloat}:     {bytecode.OpNEqualFF, tInt},
	{TokenNotEq, tString, tString}:   {bytecode.OpNEqualSS, tInt},
	{TokenNotEq, tObject, tObject}:   {bytecode.OpNEqualOO, tInt},

	{TokenEq, nwscript.Effect, nwscript.Effect}:        {bytecode.OpEqualEffEff, tInt},
	{TokenEq, nwscript.Event, nwscript.Event}:          {bytecode.OpEqualEvtEvt, tInt},
	{TokenEq, nwscript.Location, nwscript.Location}:    {bytecode.OpEqualLocLoc, tInt},
	{TokenEq, nwscript.Talent, nwscript.Talent}:        {bytecode.OpEqualTalTal, tInt},
	{TokenNotEq, nwscript.Effect, nwscript.Effect}:     {bytecode.OpNEqualEffEff, tInt},
	{TokenNotEq, nwscript.Event, nwscript.Event}:       {bytecode.OpNEqualEvtEvt, tInt},
	{TokenNotEq, nwscript.Location, nwscript.Location}: {bytecode.OpNEqualLocLoc, tInt},
	{TokenNotEq, nwscript.Talent, nwscript.Talent}:     {bytecode.OpNEqualTalTal, tInt},
}

type unaryKey struct {
	op      TokenType
	operand nwscript.DataType
}

var unaryOps = map[unaryKey]opResult{
	{TokenMinus, tInt}:   {bytecode.OpNegI, tInt},
	{TokenMinus, tFloat}: {bytecode.OpNegF, tFloat},
	{TokenTilde, tInt}:   {bytecode.OpCompI, tInt},
	{TokenBang, tInt}:    {bytecode.OpNotI, tInt},
}

// compoundOps maps a compound assignment to its binary operator.
var compoundOps = map[TokenType]TokenType{
	TokenAddAssign:  TokenPlus,
	TokenSubAssign:  TokenMinus,
	TokenMulAssign:  TokenStar,
	TokenDivAssign:  TokenSlash,
	TokenModAssign:  TokenPercent,
	TokenAndAssign:  TokenAmp,
	TokenOrAssign:   TokenPipe,
	TokenXorAssign:  TokenCaret,
	TokenShlAssign:  TokenShl,
	TokenShrAssign:  TokenShr,
	TokenUShrAssign: TokenUShr,
}

// reserveOps maps a scalar type to the instruction reserving one slot of it.
var reserveOps = map[nwscript.DataType]bytecode.InstructionType{
	nwscript.Int:      bytecode.OpRsAddI,
	nwscript.Float:    bytecode.OpRsAddF,
	nwscript.String:   bytecode.OpRsAddS,
	nwscript.Object:   bytecode.OpRsAddO,
	nwscript.Effect:   bytecode.OpRsAddEff,
	nwscript.Event:    bytecode.OpRsAddEvt,
	nwscript.Location: bytecode.OpRsAddLoc,
	nwscript.Talent:   bytecode.OpRsAddTal,
}

// lookupBinary finds the instruction for op over the given operand types.
// Struct equality is handled by the caller since it carries a size.
func lookupBinary(op TokenType, left, right Type) (opResult, bool) {
	if left.IsStruct() || right.IsStruct() {
		return opResult{}, false
	}
	r, ok := binaryOps[binaryKey{op, left.Kind, right.Kind}]
	return r, ok
}

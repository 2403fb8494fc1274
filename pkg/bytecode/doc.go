// Package bytecode models compiled NWScript programs: the instruction set,
// an arena-backed instruction list, control-flow analysis, a few
// peephole passes and the NCS binary codec.
//
// # Instruction Model
//
// Every instruction is an (opcode, qualifier) pair plus operands. The
// qualifier selects the operand types, so integer and float addition are
// distinct instruction types (ADDII, ADDFF) sharing opcode 0x14. About ninety
// types exist; InstructionType enumerates them and TypeInfo records each
// one's encoding and operand layout.
//
// # Programs and Handles
//
// A Program owns its instructions through an arena. Code refers to an
// instruction by Ref, a stable integer handle, never by position. Jumps
// store the Ref of their target, so inserting or splicing code never breaks
// control flow, and retargeting a jump is a single field write.
//
// Programs created with Fork share an arena with their parent. The compiler
// uses this to build function bodies and switch cases separately, then
// splice them into place:
//
//	body := prog.Fork()
//	body.Emit(OpRsAddI)
//	prog.Splice(stub, body)
//
// # Binary Format
//
// An encoded program starts with a 13-byte header:
//
//	"NCS " "V1.0" 0x42 <uint32 total size, big endian>
//
// followed by instructions. Each instruction is an opcode byte, a qualifier
// byte and big-endian operands. Jump operands are the signed distance in
// bytes from the start of the jump instruction to the start of its target.
//
// Decode tolerates two damage patterns seen in the wild: a size field that
// counts trailing zero padding, and jumps that land a few bytes off an
// instruction boundary. Both produce a logged warning.
package bytecode

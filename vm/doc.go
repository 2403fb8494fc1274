// Package vm executes NCS bytecode.
//
// This package contains:
//   - A 4-byte cell stack addressed from the top and from a base pointer
//   - The interpreter for every defined opcode
//   - Engine routine dispatch with mockable implementations
//   - Deferred actions captured by STORE_STATE
//   - Execution traces and opcode profiles
package vm

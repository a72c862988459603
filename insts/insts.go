// Package insts provides SPARC-style instruction definitions and text decoding.
//
// This package turns one line of assembly text into a structured instruction
// record in the Format 3 layout (op, rd, op3, rs1, i, rs2/simm13). It supports:
//   - Integer add: ADD rs1, rs2|simm13, rd
//
// Register operands use the windowed naming %g0-%g7 (0-7), %l0-%l7 (8-15)
// and %o0-%o7 (16-23).
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode("ADD %g1 3 %l2")
//	fmt.Printf("Op: %v, Rd: %d, Rs1: %d, Imm: %d\n", inst.Op, inst.Rd, inst.Rs1, inst.Simm13)
package insts

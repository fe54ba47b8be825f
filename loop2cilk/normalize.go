package loop2cilk

import (
	"github.com/nickng/loop2cilk/ir"
	"github.com/nickng/loop2cilk/loopinfo"
)

// trueExit normalizes the loop's exit chain to the shape the matcher
// actually needs: given a detacher whose Detach continuation is not
// itself the sync block, walk forward conservatively — only through empty
// single-successor (Jump) blocks — until a Sync terminator is reached.
// Any other shape (a branch, a block with real instructions, a cycle)
// means there is no unique true exit.
func trueExit(l *loopinfo.Loop, detacher *ir.BasicBlock) (*ir.BasicBlock, error) {
	if _, ok := detacher.Term().(*ir.Detach); !ok {
		return nil, &StructureMismatch{Loop: l, Reason: "detacher does not end in Detach"}
	}
	if len(detacher.Succs) != 2 {
		return nil, &StructureMismatch{Loop: l, Reason: "Detach does not have two successors"}
	}
	cur := detacher.Succs[1]
	seen := make(map[*ir.BasicBlock]bool)
	for {
		if seen[cur] {
			return nil, &MultiExit{Loop: l}
		}
		seen[cur] = true
		if isSync(cur) {
			return cur, nil
		}
		if len(cur.Instrs) != 1 {
			return nil, &MultiExit{Loop: l}
		}
		if _, ok := cur.Term().(*ir.Jump); !ok || len(cur.Succs) != 1 {
			return nil, &MultiExit{Loop: l}
		}
		cur = cur.Succs[0]
	}
}

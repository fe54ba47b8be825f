package loop2cilk

import (
	"github.com/nickng/loop2cilk/ir"
	"github.com/nickng/loop2cilk/loopinfo"
)

// Match is the structural matcher's successful result: the two blocks
// framing the loop's parallel body, and the block whose terminator was
// actually the branch matched against (the header, or the preheader when
// the header's own terminator was neither a branch nor a jump).
type Match struct {
	Detacher    *ir.BasicBlock
	Sync        *ir.BasicBlock
	BranchBlock *ir.BasicBlock
}

// matchLoop locates l's detacher/sync pair. The header's (or preheader's)
// terminator may be either shape: an ir.If, handled by trying both
// successor orderings, or an ir.Jump, handled by resolving the sync via
// trueExit on the single successor's true-exit chain.
func matchLoop(l *loopinfo.Loop) (*Match, error) {
	branchBlock := l.Header
	term := l.Header.Term()
	if _, ok := term.(*ir.If); !ok {
		if _, ok := term.(*ir.Jump); !ok {
			if l.Preheader == nil {
				return nil, &StructureMismatch{Loop: l, Reason: "header terminator is neither a branch nor a jump, and the loop has no preheader"}
			}
			branchBlock = l.Preheader
			term = l.Preheader.Term()
		}
	}

	switch term.(type) {
	case *ir.If:
		succs := branchBlock.Succs
		if len(succs) != 2 {
			return nil, &StructureMismatch{Loop: l, Reason: "conditional branch does not have exactly two successors"}
		}
		a, b := succs[0], succs[1]
		if isDetacher(a) && isSync(b) {
			return &Match{Detacher: a, Sync: b, BranchBlock: branchBlock}, nil
		}
		if isDetacher(b) && isSync(a) {
			return &Match{Detacher: b, Sync: a, BranchBlock: branchBlock}, nil
		}
		return nil, &StructureMismatch{Loop: l, Reason: "neither successor ordering ends in Detach/Sync"}

	case *ir.Jump:
		if len(branchBlock.Succs) != 1 {
			return nil, &StructureMismatch{Loop: l, Reason: "unconditional branch does not have exactly one successor"}
		}
		detacher := branchBlock.Succs[0]
		if !isDetacher(detacher) {
			return nil, &StructureMismatch{Loop: l, Reason: "single successor does not end in Detach"}
		}
		sync, err := trueExit(l, detacher)
		if err != nil {
			return nil, err
		}
		return &Match{Detacher: detacher, Sync: sync, BranchBlock: branchBlock}, nil

	default:
		return nil, &StructureMismatch{Loop: l, Reason: "branch terminator kind is not Detach-compatible"}
	}
}

func isDetacher(b *ir.BasicBlock) bool {
	_, ok := b.Term().(*ir.Detach)
	return ok
}

func isSync(b *ir.BasicBlock) bool {
	_, ok := b.Term().(*ir.Sync)
	return ok
}

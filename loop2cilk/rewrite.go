package loop2cilk

import (
	"fmt"

	"github.com/nickng/loop2cilk/deadblock"
	"github.com/nickng/loop2cilk/domtree"
	"github.com/nickng/loop2cilk/ir"
	"github.com/nickng/loop2cilk/loopinfo"
	"github.com/nickng/loop2cilk/outline"
	"github.com/nickng/loop2cilk/scev"
)

// rewrite is the rewrite driver: given a loop already matched (matchLoop) and
// canonicalized (canonicalize), it performs the final graph surgery that
// deletes the loop and splices in a single cilk_for runtime call.
func rewrite(fn *ir.Function, l *loopinfo.Loop, m *Match, res *canonResult, dt *domtree.Tree, se *scev.Facts) (*domtree.Tree, error) {
	detachedEntry := m.Detacher.Succs[0]
	detach, ok := m.Detacher.Term().(*ir.Detach)
	if !ok {
		return nil, &StructureMismatch{Loop: l, Reason: "detacher terminator is no longer a Detach at rewrite time"}
	}

	// Step 1: empty the detacher into its detached successor.
	if err := emptyDetacher(fn, dt, m.Detacher, detachedEntry); err != nil {
		return nil, err
	}

	// Step 2: eliminate the sync block's φ-nodes.
	if err := emptySyncPhis(m.Sync); err != nil {
		return nil, err
	}

	// Step 3: hoist the trip-count expression above the header terminator.
	if err := hoist(dt, l.Header.Term(), res.Info.TripCount); err != nil {
		return nil, wrap(err, "hoisting trip count above header")
	}

	// Step 4: outline the detached body into its own function.
	out, err := outline.Extract(fn, detach, ir.Value(res.PIV.Phi))
	if err != nil {
		return nil, wrap(err, "outlining detached body")
	}

	// Step 5: the extracted blocks are no longer part of this loop.
	for _, b := range out.Fn.Blocks {
		delete(l.Blocks, b)
	}

	// Step 6: the PIV is now dead outside the extracted function — its
	// last two referrers (the exit comparison and its own increment)
	// are erased along with it, and the Detach terminator it used to
	// feed is gone too.
	cmp := res.Cmp
	cmp.Block().Erase(cmp)
	res.PIV.Incr.Block().Erase(res.PIV.Incr)
	l.Header.Erase(res.PIV.Phi)
	if uses := ir.Uses(fn, ir.Value(res.PIV.Phi), nil); len(uses) != 0 {
		return nil, fmt.Errorf("loop2cilk: primary induction variable still has %d use(s) after canonical erase", len(uses))
	}
	for _, s := range append([]*ir.BasicBlock{}, m.Detacher.Succs...) {
		m.Detacher.RemoveSucc(s)
	}
	m.Detacher.Erase(detach)

	// Step 7 (the detached child was already relocated by outline.Extract
	// above; the detacher's now-unreachable continuation, and anything
	// else orphaned by the edge surgery below, is swept by deadblock.Run
	// at the end of this function instead of a bespoke a1/a2 check).

	// Step 8: the header becomes a single unconditional branch into the
	// detacher.
	for _, s := range append([]*ir.BasicBlock{}, l.Header.Succs...) {
		l.Header.RemoveSucc(s)
	}
	l.Header.ReplaceTerm(&ir.Jump{})
	l.Header.AddSucc(m.Detacher)

	// Step 9: splice the runtime call into the detacher and fall through
	// to the sync block.
	width := ir.Bits(res.Info.TripCount.Type())
	if width != 32 && width != 64 {
		return nil, &WidthMismatch{Bits: width}
	}
	rtName := "__cilkrts_cilk_for_32"
	if width == 64 {
		rtName = "__cilkrts_cilk_for_64"
	}
	// The extracted function's sole parameter is the per-iteration index
	// itself (outline.Extract's closure argument), not a captured
	// environment — this pass never lowers free-variable capture — so
	// the runtime's void* closure slot always carries a null placeholder.
	closureArg := ir.NewConst(0, ir.PointerType{Elem: res.PIV.Phi.Type()})
	grain := ir.NewConst(0, ir.I32)
	call := ir.NewCall("", runtimeFunc{rtName}, false, nil,
		out.Callee, closureArg, res.Info.TripCount, grain)
	m.Detacher.Append(call)
	m.Detacher.Append(&ir.Jump{})
	m.Detacher.AddSucc(m.Sync)

	deadblock.Run(fn)

	// Step 10: invalidate analyses the rewrite has just falsified.
	se.ForgetLoop(l)
	newDT := domtree.Build(fn)
	return newDT, nil
}

// runtimeFunc names the external work-stealing entry point a rewritten
// loop calls into; it carries no block of its own, mirroring how
// golang.org/x/tools/go/ssa models ssa.Builtin as a Value with no
// instruction behind it.
type runtimeFunc struct{ name string }

func (r runtimeFunc) Name() string   { return r.name }
func (r runtimeFunc) Type() ir.Type  { return ir.FuncType{} }
func (r runtimeFunc) String() string { return r.name }

// emptyDetacher pushes every non-φ, non-terminator instruction in
// detacher into the first post-φ position of child, in order, provided
// none of them writes memory and every one of their uses will still be
// dominated by the new position (i.e. no use remains behind in detacher
// itself).
func emptyDetacher(fn *ir.Function, dt *domtree.Tree, detacher, child *ir.BasicBlock) error {
	pending := append([]ir.Instruction{}, detacher.NonPhiNonTerm()...)
	if len(pending) == 0 {
		return nil
	}
	moving := make(map[ir.Instruction]bool, len(pending))
	for _, instr := range pending {
		if ir.HasSideEffects(instr) {
			return &DetacherNotEmpty{Block: detacher}
		}
		moving[instr] = true
	}
	for _, instr := range pending {
		for _, u := range ir.Uses(fn, ir.Value(instr), nil) {
			if moving[u] {
				continue
			}
			if !dt.Dominates(child, u.Block()) {
				return &DetacherNotEmpty{Block: detacher}
			}
		}
	}
	var anchor ir.Instruction
	for _, instr := range pending {
		detacher.Erase(instr)
		if anchor == nil {
			child.PrependAfterPhis(instr)
		} else {
			child.InsertAfter(anchor, instr)
		}
		anchor = instr
	}
	return nil
}

// emptySyncPhis replaces every φ-node in the sync block with its single
// incoming value and erases it. A φ whose incoming
// edges disagree cannot be resolved this way — the matcher only ever
// produces sync blocks joining a single live path, so disagreement means
// the block is not as empty as the match required.
func emptySyncPhis(sync *ir.BasicBlock) error {
	for _, phi := range sync.Phis() {
		v := phi.Edges[0]
		for _, e := range phi.Edges[1:] {
			if e != v {
				return &SyncNotEmpty{Block: sync}
			}
		}
		ir.ReplaceAll(sync.Fn, ir.Value(phi), v)
		sync.Erase(phi)
	}
	return nil
}

package loop2cilk

import (
	"go/token"

	"github.com/nickng/loop2cilk/domtree"
	"github.com/nickng/loop2cilk/ir"
	"github.com/nickng/loop2cilk/loopinfo"
	"github.com/nickng/loop2cilk/loopsimplify"
	"github.com/nickng/loop2cilk/mem2reg"
)

// canonResult is what the induction-variable canonicalizer hands back to
// the rewrite driver on success. Besides the Info record every external
// caller wants, it keeps the PIV's own induction record and the exit
// comparison around: rewrite.go has to erase both once the detach/sync
// framing they lived in is gone.
type canonResult struct {
	Info     *loopinfo.Info
	Detacher *ir.BasicBlock
	PIV      *induction
	Cmp      *ir.BinOp
}

// induction is the φ and its step kept as one tagged record, so the cyclic
// φ<->increment relationship is never walked as a plain operand graph.
type induction struct {
	Phi            *ir.Phi
	Incr           *ir.BinOp // normalized: Incr.X == Phi, Incr.Y == Step
	Step           ir.Value
	Init           ir.Value
	ComparedIsIncr bool // the exit comparison reads Incr, not Phi, directly
}

// canonicalize locates the exit comparison, promotes any memory-backed
// operands, classifies the header's induction φ-nodes, folds secondaries
// into the primary, and rewrites the exit test into a trip count over
// [0, trip_count).
func canonicalize(fn *ir.Function, l *loopinfo.Loop, m *Match, branchBlock *ir.BasicBlock, dt *domtree.Tree, info *loopinfo.Info) (*canonResult, error) {
	loopsimplify.Run(fn, l)
	if l.Preheader == nil {
		return nil, &NonCanonicalInduction{Loop: l, Reason: "loop has no preheader after loop-simplify"}
	}

	cmpBlock, ifTerm, err := locateComparison(l, m, branchBlock)
	if err != nil {
		return nil, err
	}
	cmp, ok := ifTerm.Cond.(*ir.BinOp)
	if !ok || !ir.IsOrdering(cmp.Op) {
		return nil, &NonCanonicalInduction{Loop: l, Reason: "exit comparison is not an integer ordering predicate"}
	}

	trueInside, falseInside := l.Contains(cmpBlock.Succs[0]), l.Contains(cmpBlock.Succs[1])
	if trueInside == falseInside {
		return nil, &NonCanonicalInduction{Loop: l, Reason: "cannot determine which branch target is inside the loop"}
	}
	op := cmp.Op
	if !trueInside {
		op = invertPredicate(op)
	}

	promoteIfPossible(fn, dt, cmp.X)
	promoteIfPossible(fn, dt, cmp.Y)

	var pivs []*induction
	var secondaries []*induction
	inIdx, backIdx := -1, -1
	for i, p := range l.Header.Preds {
		if l.Contains(p) {
			backIdx = i
		} else {
			inIdx = i
		}
	}
	if inIdx < 0 || backIdx < 0 {
		return nil, &StructureMismatch{Loop: l, Reason: "header does not have exactly one inside and one outside predecessor"}
	}

	for _, phi := range l.Header.Phis() {
		ind, err := classifyPhi(fn, dt, l, l.Preheader, phi, inIdx, backIdx)
		if err != nil {
			return nil, err
		}
		if isComparisonOperand(cmp, ind.Phi, ind.Incr) {
			ind.ComparedIsIncr = isIncrOperand(cmp, ind.Incr)
			pivs = append(pivs, ind)
		} else {
			secondaries = append(secondaries, ind)
		}
	}
	if len(pivs) != 1 {
		return nil, &NonCanonicalInduction{Loop: l, Reason: "loop does not have exactly one induction phi in the exit comparison"}
	}
	piv := pivs[0]

	bound, op := orientComparison(cmp, piv, op)

	if bound.Type() != piv.Phi.Type() {
		c := ir.NewCast(piv.Phi.Name()+".bound", bound, piv.Phi.Type())
		cmpBlock.InsertBefore(ifTerm, c)
		bound = c
	}

	tripCount, err := computeTripCount(l, cmpBlock, ifTerm, piv, bound, op)
	if err != nil {
		return nil, err
	}

	detachedEntry := m.Detacher.Succs[0]
	info.PIV = piv.Phi
	info.StepP = stepConst(piv.Step)
	info.InitP = piv.Init
	info.PIVIsIncr = piv.ComparedIsIncr
	info.TripCount = tripCount
	info.Detacher = m.Detacher
	info.SyncBlk = m.Sync

	var helpers []ir.Instruction
	for _, sec := range secondaries {
		secStepC, ok := sec.Step.(*ir.Const)
		if !ok {
			return nil, &NonCanonicalInduction{Loop: l, Reason: "secondary induction step is not a compile-time constant"}
		}
		s := info.AddSecondary(sec.Phi, sec.Incr, secStepC.Val, sec.Init)
		hs, err := rewriteSecondary(fn, dt, detachedEntry, info, piv, sec, s)
		if err != nil {
			return nil, err
		}
		helpers = append(helpers, hs...)
	}

	if err := installCanonicalForm(fn, dt, detachedEntry, cmp, piv, tripCount, helpers, inIdx, backIdx); err != nil {
		return nil, err
	}

	return &canonResult{Info: info, Detacher: m.Detacher, PIV: piv, Cmp: cmp}, nil
}

// stepConst reports the constant value behind an induction's step, which
// computeTripCount has already required to be an *ir.Const by the time
// canonicalize reaches the PIV's info record.
func stepConst(v ir.Value) int64 {
	if c, ok := v.(*ir.Const); ok {
		return c.Val
	}
	return 0
}

func locateComparison(l *loopinfo.Loop, m *Match, branchBlock *ir.BasicBlock) (*ir.BasicBlock, *ir.If, error) {
	if ifTerm, ok := branchBlock.Term().(*ir.If); ok {
		return branchBlock, ifTerm, nil
	}
	if len(m.Detacher.Preds) != 1 {
		return nil, nil, &NonCanonicalInduction{Loop: l, Reason: "detacher has no unique predecessor to serve as the exit comparison block"}
	}
	pred := m.Detacher.Preds[0]
	ifTerm, ok := pred.Term().(*ir.If)
	if !ok {
		return nil, nil, &NonCanonicalInduction{Loop: l, Reason: "exit comparison block does not end in a conditional branch"}
	}
	return pred, ifTerm, nil
}

func promoteIfPossible(fn *ir.Function, dt *domtree.Tree, v ir.Value) {
	load, ok := v.(*ir.Load)
	if !ok {
		return
	}
	alloc, ok := load.Addr.(*ir.Alloc)
	if !ok {
		return
	}
	if mem2reg.Promotable(fn, alloc) {
		mem2reg.Promote(fn, dt, alloc)
	}
}

// classifyPhi determines whether one header φ-node is a primary or
// secondary induction variable and normalizes its backedge into a
// canonical add.
func classifyPhi(fn *ir.Function, dt *domtree.Tree, l *loopinfo.Loop, preheader *ir.BasicBlock, phi *ir.Phi, inIdx, backIdx int) (*induction, error) {
	back := phi.Edges[backIdx]
	bin, ok := back.(*ir.BinOp)
	if !ok || (bin.Op != token.ADD && bin.Op != token.SUB) {
		return nil, &NonCanonicalInduction{Loop: l, Reason: "header phi's backedge value is not a binary add/sub"}
	}

	var step ir.Value
	switch {
	case bin.X == ir.Value(phi):
		step = bin.Y
	case bin.Y == ir.Value(phi):
		step = bin.X
	default:
		return nil, &NonCanonicalInduction{Loop: l, Reason: "backedge add/sub does not have the phi as an operand"}
	}

	incr := bin
	if bin.Op == token.SUB {
		if bin.X != ir.Value(phi) {
			return nil, &NonCanonicalInduction{Loop: l, Reason: "subtraction backedge must have the phi as the minuend"}
		}
		var negStep ir.Value
		if c, ok := step.(*ir.Const); ok {
			// Fold the negation at compile time instead of synthesizing a
			// UnOp: computeTripCount and canonicalize's secondary-induction
			// loop both require the step to stay an *ir.Const, and ir has no constant folder to
			// turn a UnOp back into one later.
			negStep = ir.NewConst(-c.Val, c.Type())
		} else {
			neg := ir.NewUnOp(phi.Name()+".negstep", token.SUB, step, step.Type())
			bin.Block().InsertBefore(bin, neg)
			negStep = ir.Value(neg)
		}
		add := ir.NewBinOp(phi.Name()+".incr", token.ADD, ir.Value(phi), negStep, phi.Type())
		bin.Block().InsertBefore(bin, add)
		ir.ReplaceAll(fn, ir.Value(bin), ir.Value(add))
		bin.Block().Erase(bin)
		step = negStep
		incr = add
	} else if bin.X != ir.Value(phi) {
		// Swap tracked logically: Incr.X must read as the phi for callers
		// that pattern-match induction.Incr.X == induction.Phi. Synthesize
		// a commuted add rather than mutate bin's fields out from under any
		// other referrer that still expects X,Y in source order.
		swapped := ir.NewBinOp(phi.Name()+".incr", token.ADD, ir.Value(phi), step, phi.Type())
		bin.Block().InsertBefore(bin, swapped)
		ir.ReplaceAll(fn, ir.Value(bin), ir.Value(swapped))
		bin.Block().Erase(bin)
		incr = swapped
	}

	anchor := preheader.Term()
	if err := hoist(dt, anchor, step); err != nil {
		return nil, wrap(err, "hoisting induction step")
	}
	init := phi.Edges[inIdx]
	if err := hoist(dt, anchor, init); err != nil {
		return nil, wrap(err, "hoisting induction initial value")
	}

	return &induction{Phi: phi, Incr: incr, Step: step, Init: init}, nil
}

func isComparisonOperand(cmp *ir.BinOp, phi *ir.Phi, incr *ir.BinOp) bool {
	return cmp.X == ir.Value(phi) || cmp.Y == ir.Value(phi) ||
		cmp.X == ir.Value(incr) || cmp.Y == ir.Value(incr)
}

func isIncrOperand(cmp *ir.BinOp, incr *ir.BinOp) bool {
	return cmp.X == ir.Value(incr) || cmp.Y == ir.Value(incr)
}

type side int

const (
	sideX side = iota
	sideY
	sideNone
)

func sideOf(cmp *ir.BinOp, v ir.Value) side {
	switch {
	case cmp.X == v:
		return sideX
	case cmp.Y == v:
		return sideY
	default:
		return sideNone
	}
}

func isPIVOperand(cmp *ir.BinOp, piv *induction) side {
	if s := sideOf(cmp, ir.Value(piv.Phi)); s != sideNone {
		return s
	}
	return sideOf(cmp, ir.Value(piv.Incr))
}

// orientComparison returns the non-PIV operand (cast target pending) and
// the predicate re-expressed as "PIV-side op bound" (swapping sides if the
// PIV operand was on the right).
func orientComparison(cmp *ir.BinOp, piv *induction, op token.Token) (ir.Value, token.Token) {
	if isPIVOperand(cmp, piv) == sideX {
		return cmp.Y, op
	}
	return cmp.X, swapSides(op)
}

func invertPredicate(op token.Token) token.Token {
	switch op {
	case token.LSS:
		return token.GEQ
	case token.LEQ:
		return token.GTR
	case token.GTR:
		return token.LEQ
	case token.GEQ:
		return token.LSS
	}
	return op
}

func swapSides(op token.Token) token.Token {
	switch op {
	case token.LSS:
		return token.GTR
	case token.LEQ:
		return token.GEQ
	case token.GTR:
		return token.LSS
	case token.GEQ:
		return token.LEQ
	}
	return op
}

// computeTripCount derives the iteration count from the bound, the PIV's
// initial value, and its step. The step is required to be a compile-time
// constant: the direction sign and the final division both need its sign
// and magnitude known statically, and every loop this pass is meant to
// recognize (cilk_for's iteration space) has one. A non-constant,
// merely loop-invariant step is rejected as non-canonical rather than
// lowered to a runtime abs/select sequence.
func computeTripCount(l *loopinfo.Loop, cmpBlock *ir.BasicBlock, ifTerm *ir.If, piv *induction, bound ir.Value, op token.Token) (ir.Value, error) {
	stepC, ok := piv.Step.(*ir.Const)
	if !ok {
		return nil, &NonCanonicalInduction{Loop: l, Reason: "primary induction step is not a compile-time constant"}
	}
	t := piv.Phi.Type()
	ascending := op == token.LSS || op == token.LEQ

	insert := func(instr ir.Instruction) ir.Instruction {
		cmpBlock.InsertBefore(ifTerm, instr)
		return instr
	}

	top, bottom := bound, piv.Init
	if !ascending {
		top, bottom = piv.Init, bound
	}
	if piv.ComparedIsIncr {
		bottom = insert(ir.NewBinOp(piv.Phi.Name()+".bottom", token.ADD, bottom, piv.Step, t))
	}

	var diff ir.Value
	if c, ok := bottom.(*ir.Const); ok && c.Val == 0 {
		diff = top
	} else {
		diff = insert(ir.NewBinOp(piv.Phi.Name()+".diff", token.SUB, top, bottom, t))
	}

	strict := op == token.LSS || op == token.GTR
	if strict {
		diff = insert(ir.NewBinOp(piv.Phi.Name()+".diff1", token.SUB, diff, ir.NewConst(1, t), t))
	}

	absStep := stepC.Val
	if absStep < 0 {
		absStep = -absStep
	}
	trip := insert(ir.NewBinOp(piv.Phi.Name()+".trip", token.QUO, diff, ir.NewConst(absStep, t), t))
	trip = insert(ir.NewBinOp(piv.Phi.Name()+".tripcount", token.ADD, trip, ir.NewConst(1, t), t))
	return trip, nil
}

// rewriteSecondary replaces one secondary induction variable with a
// closed form over the PIV. It returns the helper instructions it created
// so the caller can exclude them from the PIV's own closed-form
// substitution: that substitution reads the PIV directly, and these
// helpers are the one place besides the comparison that must keep doing
// so.
func rewriteSecondary(fn *ir.Function, dt *domtree.Tree, detachedEntry *ir.BasicBlock, info *loopinfo.Info, piv, sec *induction, s *loopinfo.Secondary) ([]ir.Instruction, error) {
	target := sec.Phi.Type()
	var anchor ir.Instruction
	var helpers []ir.Instruction
	insert := func(instr ir.Instruction) {
		if anchor == nil {
			detachedEntry.PrependAfterPhis(instr)
		} else {
			detachedEntry.InsertAfter(anchor, instr)
		}
		anchor = instr
		helpers = append(helpers, instr)
	}

	pivVal := ir.Value(piv.Phi)
	if piv.Phi.Type() != target {
		c := ir.NewCast(sec.Phi.Name()+".pivcast", pivVal, target)
		insert(c)
		pivVal = c
	}
	mul := ir.NewBinOp(sec.Phi.Name()+".mul", token.MUL, sec.Step, pivVal, target)
	insert(mul)
	expr := ir.NewBinOp(sec.Phi.Name()+".expr", token.ADD, sec.Init, ir.Value(mul), target)
	insert(expr)

	ignore := map[ir.Instruction]bool{sec.Incr: true}
	for _, h := range helpers {
		ignore[h] = true
	}
	for _, u := range ir.Uses(fn, ir.Value(sec.Phi), ignore) {
		if !dt.DominatesInstr(expr, u) {
			if err := sink(fn, dt, expr, u); err != nil {
				return nil, wrap(err, "sinking secondary induction variable use")
			}
		}
		var rands []*ir.Value
		rands = u.Operands(rands)
		for _, r := range rands {
			if *r == ir.Value(sec.Phi) {
				*r = ir.Value(expr)
			}
		}
	}

	sec.Phi.Block().Erase(sec.Phi)
	// The erase condition for a secondary's increment is "no remaining
	// references", resolved here via loopinfo.Info.StillReferenced rather
	// than a raw use count, since a secondary's Increment can be shared
	// with another secondary derived from the same backedge value.
	if !info.StillReferenced(s) {
		sec.Incr.Block().Erase(sec.Incr)
	}
	return helpers, nil
}

// installCanonicalForm rewrites the PIV to range over [0, trip_count) by
// unit step, and replaces every use outside the φ, its increment, the
// comparison, and rewriteSecondary's helpers with the closed form it used
// to compute before the rewrite.
func installCanonicalForm(fn *ir.Function, dt *domtree.Tree, detachedEntry *ir.BasicBlock, cmp *ir.BinOp, piv *induction, tripCount ir.Value, helpers []ir.Instruction, inIdx, backIdx int) error {
	t := piv.Phi.Type()

	var anchor ir.Instruction
	var newHelpers []ir.Instruction
	insert := func(instr ir.Instruction) {
		if anchor == nil {
			detachedEntry.PrependAfterPhis(instr)
		} else {
			detachedEntry.InsertAfter(anchor, instr)
		}
		anchor = instr
		newHelpers = append(newHelpers, instr)
	}

	mul := ir.NewBinOp(piv.Phi.Name()+".scaled", token.MUL, piv.Step, ir.Value(piv.Phi), t)
	insert(mul)
	expr := ir.NewBinOp(piv.Phi.Name()+".closed", token.ADD, piv.Init, ir.Value(mul), t)
	insert(expr)

	ignore := map[ir.Instruction]bool{piv.Incr: true, ir.Instruction(cmp): true}
	for _, h := range helpers {
		ignore[h] = true
	}
	for _, h := range newHelpers {
		ignore[h] = true
	}

	for _, u := range ir.Uses(fn, ir.Value(piv.Phi), ignore) {
		if !dt.DominatesInstr(expr, u) {
			if err := sink(fn, dt, expr, u); err != nil {
				return wrap(err, "sinking PIV use")
			}
		}
		var rands []*ir.Value
		rands = u.Operands(rands)
		for _, r := range rands {
			if *r == ir.Value(piv.Phi) {
				*r = ir.Value(expr)
			}
		}
	}

	piv.Incr.Y = ir.NewConst(1, t)
	piv.Phi.Edges[inIdx] = ir.NewConst(0, t)
	cmp.Op = token.NEQ

	pivSide := sideOf(cmp, ir.Value(piv.Phi))
	if pivSide == sideNone {
		pivSide = sideOf(cmp, ir.Value(piv.Incr))
	}
	if pivSide == sideX {
		cmp.X, cmp.Y = ir.Value(piv.Phi), tripCount
	} else {
		cmp.Y, cmp.X = ir.Value(piv.Phi), tripCount
	}
	return nil
}

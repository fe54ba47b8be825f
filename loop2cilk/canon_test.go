package loop2cilk

import (
	"go/token"
	"testing"

	"github.com/nickng/loop2cilk/domtree"
	"github.com/nickng/loop2cilk/ir"
	"github.com/nickng/loop2cilk/loopinfo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// canonicalizeLoop runs matchLoop+canonicalize over fn's single natural
// loop, the way Pass.RunOnLoop does, without the rewrite/outline stages
// that follow: these boundary-scenario cases are about the trip-count and
// closed-form arithmetic canonicalize produces, not about splicing the
// runtime call.
func canonicalizeLoop(t *testing.T, fn *ir.Function) *canonResult {
	t.Helper()
	dt := domtree.Build(fn)
	loops := loopinfo.Nest(loopinfo.Find(fn, dt))
	require.Len(t, loops, 1)

	m, err := matchLoop(loops[0])
	require.NoError(t, err)

	res, err := canonicalize(fn, loops[0], m, m.BranchBlock, dt, loopinfo.New())
	require.NoError(t, err)
	return res
}

func asConst(t *testing.T, v ir.Value, ctx string) int64 {
	t.Helper()
	c, ok := v.(*ir.Const)
	require.True(t, ok, "%s: want *ir.Const, got %T", ctx, v)
	return c.Val
}

func asBinOp(t *testing.T, v ir.Value, op token.Token, ctx string) *ir.BinOp {
	t.Helper()
	b, ok := v.(*ir.BinOp)
	require.True(t, ok, "%s: want *ir.BinOp, got %T", ctx, v)
	assert.Equal(t, op, b.Op, ctx)
	return b
}

// buildOffsetStrideLoop builds "for i := 3; i <= 17; i += 2" (boundary
// scenario 2: a non-unit stride starting away from zero).
func buildOffsetStrideLoop() (*ir.Function, map[string]*ir.BasicBlock, *ir.BinOp) {
	fn := (&ir.Program{}).NewFunction("stride")
	entry := fn.NewBlock("entry")
	header := fn.NewBlock("header")
	detacher := fn.NewBlock("detacher")
	child := fn.NewBlock("child")
	latch := fn.NewBlock("latch")
	syncBlk := fn.NewBlock("sync")
	rest := fn.NewBlock("rest")

	b := ir.NewBuilder(fn, entry)
	b.Jump(header)

	i := ir.NewPhi("i", ir.I64, 2)
	header.Append(i)
	b.At(header)
	cmp := b.BinOp("cmp", token.LEQ, ir.Value(i), ir.NewConst(17, ir.I64), ir.IntType{Bits: 1})
	b.If(cmp, detacher, syncBlk)

	b.At(detacher).Detach(child, latch)
	use := b.At(child).BinOp("use", token.MUL, ir.Value(i), ir.Value(i), ir.I64)
	b.Reattach(latch)

	b.At(latch)
	incr := b.BinOp("i.next", token.ADD, ir.Value(i), ir.NewConst(2, ir.I64), ir.I64)
	b.Jump(header)
	i.Edges[0] = ir.NewConst(3, ir.I64)
	i.Edges[1] = incr

	b.At(syncBlk).Sync(rest)
	b.At(rest).Return()

	return fn, map[string]*ir.BasicBlock{
		"entry": entry, "header": header, "detacher": detacher,
		"child": child, "latch": latch, "sync": syncBlk, "rest": rest,
	}, use
}

func TestCanonicalizeOffsetStrideLoop(t *testing.T) {
	fn, _, use := buildOffsetStrideLoop()
	res := canonicalizeLoop(t, fn)

	// (17-3)/2 + 1 == 8; LEQ is non-strict so there is no diff1 step.
	tripcount := asBinOp(t, res.Info.TripCount, token.ADD, "tripcount")
	assert.Equal(t, int64(1), asConst(t, tripcount.Y, "tripcount.Y"))
	trip := asBinOp(t, tripcount.X, token.QUO, "trip")
	assert.Equal(t, int64(2), asConst(t, trip.Y, "trip.Y"))
	diff := asBinOp(t, trip.X, token.SUB, "diff")
	assert.Equal(t, int64(17), asConst(t, diff.X, "diff.X"))
	assert.Equal(t, int64(3), asConst(t, diff.Y, "diff.Y"))

	// Every use of i was replaced by the closed form 3 + 2*PIV'.
	assert.Equal(t, use.X, use.Y)
	closed := asBinOp(t, use.X, token.ADD, "closed")
	assert.Equal(t, int64(3), asConst(t, closed.X, "closed.X"))
	scaled := asBinOp(t, closed.Y, token.MUL, "scaled")
	assert.Equal(t, int64(2), asConst(t, scaled.X, "scaled.X"))
	phi, ok := scaled.Y.(*ir.Phi)
	require.True(t, ok)
	assert.Same(t, res.PIV.Phi, phi)
}

// buildDescendingLoop builds "for i := 10; i > 0; i -= 1" (boundary scenario
// 3: a subtraction backedge, which classifyPhi must normalize to a
// canonical add with a negated, still-constant step).
func buildDescendingLoop() (*ir.Function, map[string]*ir.BasicBlock, *ir.BinOp) {
	fn := (&ir.Program{}).NewFunction("descend")
	entry := fn.NewBlock("entry")
	header := fn.NewBlock("header")
	detacher := fn.NewBlock("detacher")
	child := fn.NewBlock("child")
	latch := fn.NewBlock("latch")
	syncBlk := fn.NewBlock("sync")
	rest := fn.NewBlock("rest")

	b := ir.NewBuilder(fn, entry)
	b.Jump(header)

	i := ir.NewPhi("i", ir.I64, 2)
	header.Append(i)
	b.At(header)
	cmp := b.BinOp("cmp", token.GTR, ir.Value(i), ir.NewConst(0, ir.I64), ir.IntType{Bits: 1})
	b.If(cmp, detacher, syncBlk)

	b.At(detacher).Detach(child, latch)
	use := b.At(child).BinOp("use", token.MUL, ir.Value(i), ir.Value(i), ir.I64)
	b.Reattach(latch)

	b.At(latch)
	incr := b.BinOp("i.next", token.SUB, ir.Value(i), ir.NewConst(1, ir.I64), ir.I64)
	b.Jump(header)
	i.Edges[0] = ir.NewConst(10, ir.I64)
	i.Edges[1] = incr

	b.At(syncBlk).Sync(rest)
	b.At(rest).Return()

	return fn, map[string]*ir.BasicBlock{
		"entry": entry, "header": header, "detacher": detacher,
		"child": child, "latch": latch, "sync": syncBlk, "rest": rest,
	}, use
}

func TestCanonicalizeDescendingLoop(t *testing.T) {
	fn, _, use := buildDescendingLoop()
	res := canonicalizeLoop(t, fn)

	require.Equal(t, int64(-1), res.Info.StepP, "negated step must stay a compile-time constant")

	// bottom == 0 short-circuits diff to top (== init == 10); GTR is strict
	// so diff1 subtracts 1, giving 9; abs(step) == 1, so trip == 9 and
	// tripcount == 10.
	tripcount := asBinOp(t, res.Info.TripCount, token.ADD, "tripcount")
	assert.Equal(t, int64(1), asConst(t, tripcount.Y, "tripcount.Y"))
	trip := asBinOp(t, tripcount.X, token.QUO, "trip")
	assert.Equal(t, int64(1), asConst(t, trip.Y, "trip.Y"))
	diff1 := asBinOp(t, trip.X, token.SUB, "diff1")
	assert.Equal(t, int64(10), asConst(t, diff1.X, "diff1.X"))
	assert.Equal(t, int64(1), asConst(t, diff1.Y, "diff1.Y"))

	// Every use of i was replaced by the closed form 10 + (-1)*PIV'.
	assert.Equal(t, use.X, use.Y)
	closed := asBinOp(t, use.X, token.ADD, "closed")
	assert.Equal(t, int64(10), asConst(t, closed.X, "closed.X"))
	scaled := asBinOp(t, closed.Y, token.MUL, "scaled")
	assert.Equal(t, int64(-1), asConst(t, scaled.X, "scaled.X"))
}

// buildIncrementComparedLoop builds "for (i = 0; ++i < n;)": the increment
// is computed in the header and the exit comparison reads it directly
// rather than the φ (boundary scenario 4).
func buildIncrementComparedLoop() (*ir.Function, map[string]*ir.BasicBlock, *ir.BinOp, *ir.Param) {
	fn := (&ir.Program{}).NewFunction("preincr")
	n := ir.NewParam("n", ir.I64)
	fn.Params = []*ir.Param{n}

	entry := fn.NewBlock("entry")
	header := fn.NewBlock("header")
	detacher := fn.NewBlock("detacher")
	child := fn.NewBlock("child")
	latch := fn.NewBlock("latch")
	syncBlk := fn.NewBlock("sync")
	rest := fn.NewBlock("rest")

	b := ir.NewBuilder(fn, entry)
	b.Jump(header)

	i := ir.NewPhi("i", ir.I64, 2)
	header.Append(i)
	b.At(header)
	incr := b.BinOp("i.next", token.ADD, ir.Value(i), ir.NewConst(1, ir.I64), ir.I64)
	cmp := b.BinOp("cmp", token.LSS, ir.Value(incr), ir.Value(n), ir.IntType{Bits: 1})
	b.If(cmp, detacher, syncBlk)

	b.At(detacher).Detach(child, latch)
	use := b.At(child).BinOp("use", token.MUL, ir.Value(i), ir.Value(i), ir.I64)
	b.Reattach(latch)

	b.At(latch).Jump(header)
	i.Edges[0] = ir.NewConst(0, ir.I64)
	i.Edges[1] = incr

	b.At(syncBlk).Sync(rest)
	b.At(rest).Return()

	return fn, map[string]*ir.BasicBlock{
		"entry": entry, "header": header, "detacher": detacher,
		"child": child, "latch": latch, "sync": syncBlk, "rest": rest,
	}, use, n
}

func TestCanonicalizeIncrementComparedLoop(t *testing.T) {
	fn, _, use, n := buildIncrementComparedLoop()
	res := canonicalizeLoop(t, fn)

	require.True(t, res.Info.PIVIsIncr)

	// bottom = init + step = 0 + 1 (not folded, since the PIV's own step
	// gets re-added symbolically rather than compared against 0 directly).
	// diff = n - bottom; LSS is strict so diff1 = diff - 1; trip = diff1/1;
	// tripcount = trip + 1.
	tripcount := asBinOp(t, res.Info.TripCount, token.ADD, "tripcount")
	assert.Equal(t, int64(1), asConst(t, tripcount.Y, "tripcount.Y"))
	trip := asBinOp(t, tripcount.X, token.QUO, "trip")
	assert.Equal(t, int64(1), asConst(t, trip.Y, "trip.Y"))
	diff1 := asBinOp(t, trip.X, token.SUB, "diff1")
	assert.Equal(t, int64(1), asConst(t, diff1.Y, "diff1.Y"))
	diff := asBinOp(t, diff1.X, token.SUB, "diff")
	assert.Same(t, n, diff.X)
	bottom := asBinOp(t, diff.Y, token.ADD, "bottom")
	assert.Equal(t, int64(0), asConst(t, bottom.X, "bottom.X"))
	assert.Equal(t, int64(1), asConst(t, bottom.Y, "bottom.Y"))

	// Every use of i (not the increment) was replaced by 0 + 1*PIV'.
	assert.Equal(t, use.X, use.Y)
	closed := asBinOp(t, use.X, token.ADD, "closed")
	assert.Equal(t, int64(0), asConst(t, closed.X, "closed.X"))
	scaled := asBinOp(t, closed.Y, token.MUL, "scaled")
	assert.Equal(t, int64(1), asConst(t, scaled.X, "scaled.X"))
}

// buildSecondaryInductionLoop builds a loop with a primary i (0, step +1,
// exit i<n) and a secondary j (100, step -3) folded away entirely
// (boundary scenario 5).
func buildSecondaryInductionLoop() (*ir.Function, map[string]*ir.BasicBlock, *ir.BinOp) {
	fn := (&ir.Program{}).NewFunction("secondary")
	n := ir.NewParam("n", ir.I64)
	fn.Params = []*ir.Param{n}

	entry := fn.NewBlock("entry")
	header := fn.NewBlock("header")
	detacher := fn.NewBlock("detacher")
	child := fn.NewBlock("child")
	latch := fn.NewBlock("latch")
	syncBlk := fn.NewBlock("sync")
	rest := fn.NewBlock("rest")

	b := ir.NewBuilder(fn, entry)
	b.Jump(header)

	i := ir.NewPhi("i", ir.I64, 2)
	j := ir.NewPhi("j", ir.I64, 2)
	header.Append(i)
	header.Append(j)
	b.At(header)
	cmp := b.BinOp("cmp", token.LSS, ir.Value(i), ir.Value(n), ir.IntType{Bits: 1})
	b.If(cmp, detacher, syncBlk)

	b.At(detacher).Detach(child, latch)
	use := b.At(child).BinOp("use", token.ADD, ir.Value(j), ir.NewConst(0, ir.I64), ir.I64)
	b.Reattach(latch)

	b.At(latch)
	incrI := b.BinOp("i.next", token.ADD, ir.Value(i), ir.NewConst(1, ir.I64), ir.I64)
	incrJ := b.BinOp("j.next", token.SUB, ir.Value(j), ir.NewConst(3, ir.I64), ir.I64)
	b.Jump(header)
	i.Edges[0] = ir.NewConst(0, ir.I64)
	i.Edges[1] = incrI
	j.Edges[0] = ir.NewConst(100, ir.I64)
	j.Edges[1] = incrJ

	b.At(syncBlk).Sync(rest)
	b.At(rest).Return()

	return fn, map[string]*ir.BasicBlock{
		"entry": entry, "header": header, "detacher": detacher,
		"child": child, "latch": latch, "sync": syncBlk, "rest": rest,
	}, use
}

func TestCanonicalizeSecondaryInductionLoop(t *testing.T) {
	fn, blk, use := buildSecondaryInductionLoop()
	res := canonicalizeLoop(t, fn)

	require.Len(t, res.Info.Secondaries, 1)
	assert.Equal(t, int64(-3), res.Info.Secondaries[0].Step, "negated secondary step must stay a compile-time constant")

	// j's φ is gone entirely; only i's φ remains in the header.
	phis := blk["header"].Phis()
	require.Len(t, phis, 1)
	assert.Equal(t, "i", phis[0].Name())

	// Its increment (j -= 3, folded to j.next = j + (-3)) is erased too,
	// leaving only i's increment in the latch.
	assert.Len(t, blk["latch"].NonPhiNonTerm(), 1)

	// Every use of j was replaced by the closed form 100 + (-3)*i.
	expr := asBinOp(t, use.X, token.ADD, "expr")
	assert.Equal(t, int64(100), asConst(t, expr.X, "expr.X"))
	mul := asBinOp(t, expr.Y, token.MUL, "mul")
	assert.Equal(t, int64(-3), asConst(t, mul.X, "mul.X"))
	iphi, ok := mul.Y.(*ir.Phi)
	require.True(t, ok)
	assert.Same(t, res.PIV.Phi, iphi)
}

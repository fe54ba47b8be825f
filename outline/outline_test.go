package outline

import (
	"go/token"
	"testing"

	"github.com/nickng/loop2cilk/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDetachedRegion: detacher detaches into {a, b} (a two-block region)
// then rejoins at cont; detacher's continuation is cont directly.
//
//	detacher: detach a, cont
//	a:        v = iter * iter; jump b
//	b:        w = v + 1; reattach cont
//	cont:     return
func buildDetachedRegion() (*ir.Function, *ir.Detach, ir.Value, map[string]*ir.BasicBlock) {
	fn := (&ir.Program{}).NewFunction("f")
	iter := ir.NewParam("iter", ir.I64)
	fn.Params = []*ir.Param{iter}

	detacher := fn.NewBlock("detacher")
	a := fn.NewBlock("a")
	bBlk := fn.NewBlock("b")
	cont := fn.NewBlock("cont")

	bld := ir.NewBuilder(fn, detacher)
	det := bld.Detach(a, cont)

	v := bld.At(a).BinOp("v", token.MUL, ir.Value(iter), ir.Value(iter), ir.I64)
	bld.Jump(bBlk)

	bld.At(bBlk).BinOp("w", token.ADD, ir.Value(v), ir.NewConst(1, ir.I64), ir.I64)
	bld.Reattach(cont)

	bld.At(cont).Return()

	return fn, det, ir.Value(iter), map[string]*ir.BasicBlock{
		"detacher": detacher, "a": a, "b": bBlk, "cont": cont,
	}
}

func TestExtractMovesRegionIntoNewFunction(t *testing.T) {
	fn, det, iter, blk := buildDetachedRegion()

	res, err := Extract(fn, det, iter)
	require.NoError(t, err)

	assert.Equal(t, "f.detach", res.Fn.Name())
	require.Len(t, res.Fn.Params, 1)
	assert.Equal(t, ir.I64, res.Fn.Params[0].Type())

	// The region (a, b) moved out of fn and into the new function.
	for _, b := range fn.Blocks {
		assert.NotEqual(t, blk["a"], b)
		assert.NotEqual(t, blk["b"], b)
	}
	assert.Contains(t, res.Fn.Blocks, blk["a"])
	assert.Contains(t, res.Fn.Blocks, blk["b"])

	// The detacher no longer has an edge into the extracted region.
	assert.Equal(t, []*ir.BasicBlock{blk["cont"]}, blk["detacher"].Succs)

	// The reattach became a bare return with no edge into cont.
	assert.IsType(t, &ir.Return{}, blk["b"].Term())
	for _, p := range blk["cont"].Preds {
		assert.NotEqual(t, blk["b"], p)
	}
}

func TestExtractReplacesClosureWithParam(t *testing.T) {
	fn, det, iter, blk := buildDetachedRegion()

	res, err := Extract(fn, det, iter)
	require.NoError(t, err)

	param := res.Fn.Params[0]
	vInstr := blk["a"].Instrs[0].(*ir.BinOp)
	assert.Equal(t, ir.Value(param), vInstr.X)
	assert.Equal(t, ir.Value(param), vInstr.Y)
}

func TestExtractRejectsMultiPredDetachedEntry(t *testing.T) {
	fn := (&ir.Program{}).NewFunction("f")
	iter := ir.NewParam("iter", ir.I64)
	fn.Params = []*ir.Param{iter}

	detacher := fn.NewBlock("detacher")
	other := fn.NewBlock("other")
	a := fn.NewBlock("a")
	cont := fn.NewBlock("cont")

	bld := ir.NewBuilder(fn, detacher)
	det := bld.Detach(a, cont)
	bld.At(other).Jump(a) // gives "a" a second predecessor.
	bld.At(a).Reattach(cont)
	bld.At(cont).Return()

	_, err := Extract(fn, det, ir.Value(iter))
	require.Error(t, err)
}

package verify

import (
	"go/token"
	"testing"

	"github.com/nickng/loop2cilk/ir"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFunctionAcceptsWellFormedDiamond(t *testing.T) {
	fn := (&ir.Program{}).NewFunction("f")
	n := ir.NewParam("n", ir.I64)
	fn.Params = []*ir.Param{n}

	entry := fn.NewBlock("entry")
	then := fn.NewBlock("then")
	els := fn.NewBlock("else")
	merge := fn.NewBlock("merge")

	b := ir.NewBuilder(fn, entry)
	cmp := b.BinOp("cmp", token.GTR, n, ir.NewConst(0, ir.I64), ir.IntType{Bits: 1})
	b.If(cmp, then, els)

	thenVal := b.At(then).BinOp("tv", token.ADD, n, ir.NewConst(1, ir.I64), ir.I64)
	b.Jump(merge)
	elsVal := b.At(els).BinOp("ev", token.SUB, n, ir.NewConst(1, ir.I64), ir.I64)
	b.Jump(merge)

	b.At(merge)
	b.Phi("result", ir.I64, thenVal, elsVal)
	b.Return()

	require.NoError(t, Function(fn))
}

func TestFunctionRejectsPhiEdgeCountMismatch(t *testing.T) {
	fn := (&ir.Program{}).NewFunction("f")
	entry := fn.NewBlock("entry")
	then := fn.NewBlock("then")
	els := fn.NewBlock("else")
	merge := fn.NewBlock("merge")

	b := ir.NewBuilder(fn, entry)
	cmp := ir.NewConst(1, ir.IntType{Bits: 1})
	b.If(cmp, then, els)
	b.At(then).Jump(merge)
	b.At(els).Jump(merge)

	b.At(merge)
	// Only one edge even though merge has two preds: malformed.
	b.Phi("bad", ir.I64, ir.NewConst(0, ir.I64))
	b.Return()

	err := Function(fn)
	require.Error(t, err)
}

func TestFunctionRejectsOperandNotDominatingUse(t *testing.T) {
	fn2 := (&ir.Program{}).NewFunction("g")
	a := fn2.NewBlock("a")
	bb := fn2.NewBlock("b")
	c := fn2.NewBlock("c")
	b2 := ir.NewBuilder(fn2, a)
	cmp := ir.NewConst(1, ir.IntType{Bits: 1})
	b2.If(cmp, bb, c)
	definedInB := b2.At(bb).BinOp("definedInB", token.ADD, ir.NewConst(1, ir.I64), ir.NewConst(1, ir.I64), ir.I64)
	b2.Return()
	b2.At(c)
	// c is not dominated by bb, yet uses its value.
	b2.BinOp("bad", token.ADD, ir.Value(definedInB), ir.NewConst(1, ir.I64), ir.I64)
	b2.Return()

	err := Function(fn2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not dominated")
}

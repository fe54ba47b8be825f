package ir

import (
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDiamond builds:
//
//	entry -> { left, right } -> merge -> return phi(left, right)
func buildDiamond(t *testing.T) (*Function, *Phi) {
	prog := &Program{}
	fn := prog.NewFunction("diamond")
	cond := NewParam("cond", IntType{Bits: 1, Signed: false})
	fn.Params = []*Param{cond}

	entry := fn.NewBlock("entry")
	left := fn.NewBlock("left")
	right := fn.NewBlock("right")
	merge := fn.NewBlock("merge")

	b := NewBuilder(fn, entry)
	b.If(cond, left, right)

	lv := b.At(left).BinOp("lv", token.ADD, NewConst(1, I64), NewConst(1, I64), I64)
	b.Jump(merge)

	rv := b.At(right).BinOp("rv", token.MUL, NewConst(2, I64), NewConst(2, I64), I64)
	b.Jump(merge)

	p := b.At(merge).Phi("p", I64, lv, rv)
	b.Return(p)

	return fn, p
}

func TestBuilderProducesWellFormedFunction(t *testing.T) {
	fn, p := buildDiamond(t)

	require.Len(t, fn.Blocks, 4)
	entry, left, right, merge := fn.Blocks[0], fn.Blocks[1], fn.Blocks[2], fn.Blocks[3]

	assert.IsType(t, &If{}, entry.Term())
	assert.Equal(t, []*BasicBlock{left, right}, entry.Succs)

	assert.IsType(t, &Jump{}, left.Term())
	assert.Equal(t, []*BasicBlock{merge}, left.Succs)
	assert.IsType(t, &Jump{}, right.Term())
	assert.Equal(t, []*BasicBlock{merge}, right.Succs)

	require.Equal(t, []*BasicBlock{left, right}, merge.Preds)
	require.Len(t, p.Edges, 2)
	assert.Equal(t, Value(left.Instrs[0]), p.Edges[0])
	assert.Equal(t, Value(right.Instrs[0]), p.Edges[1])

	assert.IsType(t, &Return{}, merge.Term())
}

func TestBasicBlockPhisAndNonPhiNonTerm(t *testing.T) {
	fn := (&Program{}).NewFunction("f")
	blk := fn.NewBlock("b")
	p1 := NewPhi("p1", I64, 1)
	p2 := NewPhi("p2", I64, 1)
	blk.Append(p1)
	blk.Append(p2)
	add := NewBinOp("add", token.ADD, Value(p1), Value(p2), I64)
	blk.Append(add)
	blk.Append(&Return{})

	assert.Equal(t, []*Phi{p1, p2}, blk.Phis())
	assert.Equal(t, []Instruction{add}, blk.NonPhiNonTerm())
}

func TestInsertBeforeAndAfter(t *testing.T) {
	fn := (&Program{}).NewFunction("f")
	blk := fn.NewBlock("b")
	term := &Return{}
	blk.Append(term)

	mid := NewBinOp("mid", token.ADD, NewConst(1, I64), NewConst(2, I64), I64)
	blk.InsertBefore(term, mid)
	require.Equal(t, []Instruction{mid, term}, blk.Instrs)

	head := NewBinOp("head", token.ADD, NewConst(3, I64), NewConst(4, I64), I64)
	blk.InsertAfter(mid, head)
	require.Equal(t, []Instruction{mid, head, term}, blk.Instrs)
}

func TestReplaceAllAndUses(t *testing.T) {
	fn := (&Program{}).NewFunction("f")
	blk := fn.NewBlock("b")
	x := NewBinOp("x", token.ADD, NewConst(1, I64), NewConst(1, I64), I64)
	blk.Append(x)
	y := NewBinOp("y", token.MUL, Value(x), Value(x), I64)
	blk.Append(y)
	blk.Append(&Return{Results: []Value{Value(y)}})

	uses := Uses(fn, Value(x), nil)
	assert.Len(t, uses, 1)
	assert.Equal(t, Instruction(y), uses[0])

	z := NewBinOp("z", token.SUB, NewConst(9, I64), NewConst(1, I64), I64)
	blk.InsertBefore(y, z)
	ReplaceAll(fn, Value(x), Value(z))
	assert.Equal(t, Value(z), y.X)
	assert.Equal(t, Value(z), y.Y)
}

func TestHasSideEffects(t *testing.T) {
	store := &Store{}
	assert.True(t, HasSideEffects(store))

	pureCall := NewCall("c", NewParam("f", FuncType{}), true, I64)
	assert.False(t, HasSideEffects(pureCall))

	impureCall := NewCall("c", NewParam("f", FuncType{}), false, I64)
	assert.True(t, HasSideEffects(impureCall))

	assert.False(t, HasSideEffects(NewBinOp("b", token.ADD, NewConst(1, I64), NewConst(1, I64), I64)))
}

func TestIsOrdering(t *testing.T) {
	assert.True(t, IsOrdering(token.LSS))
	assert.True(t, IsOrdering(token.GEQ))
	assert.False(t, IsOrdering(token.EQL))
	assert.False(t, IsOrdering(token.NEQ))
}

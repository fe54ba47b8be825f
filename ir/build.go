package ir

import "go/token"

// Builder provides the same kind of fluent, one-call-per-instruction
// construction surface gospal's ssa/build package offers for whole
// programs, scoped down to a single Function. frontend and the test suite
// both build ir.Function values through a Builder rather than poking at
// BasicBlock.Instrs directly.
type Builder struct {
	Fn  *Function
	blk *BasicBlock
}

// NewBuilder starts building fn at blk (blk becomes the insertion point).
func NewBuilder(fn *Function, blk *BasicBlock) *Builder {
	return &Builder{Fn: fn, blk: blk}
}

// At repositions the insertion point.
func (b *Builder) At(blk *BasicBlock) *Builder { b.blk = blk; return b }

func (b *Builder) emit(instr Instruction) Instruction {
	b.blk.Append(instr)
	return instr
}

func (b *Builder) Phi(name string, t Type, edges ...Value) *Phi {
	p := &Phi{base: base{name: name, typ: t}, Edges: edges}
	b.emit(p)
	return p
}

func (b *Builder) BinOp(name string, op token.Token, x, y Value, t Type) *BinOp {
	v := &BinOp{base: base{name: name, typ: t}, Op: op, X: x, Y: y}
	b.emit(v)
	return v
}

func (b *Builder) UnOp(name string, op token.Token, x Value, t Type) *UnOp {
	v := &UnOp{base: base{name: name, typ: t}, Op: op, X: x}
	b.emit(v)
	return v
}

func (b *Builder) Cast(name string, x Value, t Type) *Cast {
	v := &Cast{base: base{name: name, typ: t}, X: x}
	b.emit(v)
	return v
}

func (b *Builder) Alloc(name string, elem Type) *Alloc {
	v := &Alloc{base: base{name: name, typ: PointerType{Elem: elem}}, Elem: elem}
	b.emit(v)
	return v
}

func (b *Builder) Load(name string, addr Value, t Type) *Load {
	v := &Load{base: base{name: name, typ: t}, Addr: addr}
	b.emit(v)
	return v
}

func (b *Builder) Store(addr, val Value) *Store {
	v := &Store{base: base{}, Addr: addr, Val: val}
	b.emit(v)
	return v
}

func (b *Builder) Call(name string, callee Value, pure bool, t Type, args ...Value) *Call {
	v := &Call{base: base{name: name, typ: t}, Callee: callee, Args: args, Pure: pure}
	b.emit(v)
	return v
}

func (b *Builder) Jump(to *BasicBlock) *Jump {
	v := &Jump{termBase{base{}}}
	b.emit(v)
	b.blk.AddSucc(to)
	return v
}

func (b *Builder) If(cond Value, then, els *BasicBlock) *If {
	v := &If{termBase: termBase{base{}}, Cond: cond}
	b.emit(v)
	b.blk.AddSucc(then)
	b.blk.AddSucc(els)
	return v
}

func (b *Builder) Detach(child, cont *BasicBlock) *Detach {
	v := &Detach{termBase{base{}}}
	b.emit(v)
	b.blk.AddSucc(child)
	b.blk.AddSucc(cont)
	return v
}

func (b *Builder) Reattach(cont *BasicBlock) *Reattach {
	v := &Reattach{termBase{base{}}}
	b.emit(v)
	b.blk.AddSucc(cont)
	return v
}

func (b *Builder) Sync(cont *BasicBlock) *Sync {
	v := &Sync{termBase{base{}}}
	b.emit(v)
	b.blk.AddSucc(cont)
	return v
}

func (b *Builder) Return(results ...Value) *Return {
	v := &Return{termBase: termBase{base{}}, Results: results}
	b.emit(v)
	return v
}

package ir

import (
	"fmt"
	"go/token"
)

// Instruction is a Value produced inside a BasicBlock, or a side-effecting
// unit of work with no result (Store). Mirrors ssa.Instruction.
type Instruction interface {
	Value
	Block() *BasicBlock
	setBlock(*BasicBlock)

	// Operands returns the instruction's operand slots, appended to rands.
	// Each element is a pointer into the instruction so that callers (the
	// code-motion and canonicalization passes) can rewrite operands in
	// place. Mirrors ssa.Instruction.Operands.
	Operands(rands []*Value) []*Value
}

// HasSideEffects reports whether instr may not be freely hoisted, sunk, or
// deleted. Kept as a single predicate, not scattered opcode switches, so
// the hoist/sink primitives in codemotion.go have one place to consult.
func HasSideEffects(instr Instruction) bool {
	switch v := instr.(type) {
	case *Store:
		return true
	case *Call:
		return !v.Pure
	default:
		return false
	}
}

// base holds the fields every concrete instruction needs.
type base struct {
	name string
	typ  Type
	blk  *BasicBlock
}

func (b *base) Name() string        { return b.name }
func (b *base) Type() Type          { return b.typ }
func (b *base) Block() *BasicBlock  { return b.blk }
func (b *base) setBlock(x *BasicBlock) { b.blk = x }

// Phi is a header φ-node: Edges[i] is the value coming from Block().Preds[i].
type Phi struct {
	base
	Edges []Value
}

// NewPhi constructs a detached Phi (not yet inserted into any block) with
// nEdges undetermined incoming values. Collaborators that synthesize
// φ-nodes outside of a Builder call chain (mem2reg) use this instead of
// poking at Phi's unexported base fields directly.
func NewPhi(name string, t Type, nEdges int) *Phi {
	return &Phi{base: base{name: name, typ: t}, Edges: make([]Value, nEdges)}
}

func (p *Phi) String() string {
	s := "phi ["
	for i, e := range p.Edges {
		if i > 0 {
			s += ", "
		}
		s += e.Name()
	}
	return s + "]"
}
func (p *Phi) Operands(rands []*Value) []*Value {
	for i := range p.Edges {
		rands = append(rands, &p.Edges[i])
	}
	return rands
}

// BinOp is a binary arithmetic/comparison operation. Comparisons use an
// ordering or equality token.Token as Op and produce a 1-bit IntType result.
type BinOp struct {
	base
	Op   token.Token
	X, Y Value
}

// NewBinOp constructs a detached BinOp. Collaborators that synthesize
// arithmetic outside of a Builder call chain (the canonicalizer, which
// inserts mid-block rather than appending to one under construction) use
// this instead of poking at BinOp's unexported base fields directly.
func NewBinOp(name string, op token.Token, x, y Value, t Type) *BinOp {
	return &BinOp{base: base{name: name, typ: t}, Op: op, X: x, Y: y}
}

func (b *BinOp) String() string { return fmt.Sprintf("%s %s %s", b.X.Name(), b.Op, b.Y.Name()) }
func (b *BinOp) Operands(rands []*Value) []*Value {
	return append(rands, &b.X, &b.Y)
}

// IsOrdering reports whether op is one of the four ordering comparisons;
// an exit comparison built on equality is rejected as NonCanonicalInduction.
func IsOrdering(op token.Token) bool {
	switch op {
	case token.LSS, token.LEQ, token.GTR, token.GEQ:
		return true
	default:
		return false
	}
}

// UnOp is a unary operation (negation).
type UnOp struct {
	base
	Op token.Token
	X  Value
}

// NewUnOp constructs a detached UnOp; see NewBinOp.
func NewUnOp(name string, op token.Token, x Value, t Type) *UnOp {
	return &UnOp{base: base{name: name, typ: t}, Op: op, X: x}
}

func (u *UnOp) String() string              { return fmt.Sprintf("%s%s", u.Op, u.X.Name()) }
func (u *UnOp) Operands(rands []*Value) []*Value { return append(rands, &u.X) }

// Cast widens, narrows, or bit-reinterprets X to Type().
type Cast struct {
	base
	X Value
}

// NewCast constructs a detached Cast; see NewBinOp.
func NewCast(name string, x Value, t Type) *Cast {
	return &Cast{base: base{name: name, typ: t}, X: x}
}

func (c *Cast) String() string              { return fmt.Sprintf("cast<%s> %s", c.typ, c.X.Name()) }
func (c *Cast) Operands(rands []*Value) []*Value { return append(rands, &c.X) }

// Select is a ternary: Cond ? X : Y.
type Select struct {
	base
	Cond, X, Y Value
}

func (s *Select) String() string {
	return fmt.Sprintf("select %s, %s, %s", s.Cond.Name(), s.X.Name(), s.Y.Name())
}
func (s *Select) Operands(rands []*Value) []*Value {
	return append(rands, &s.Cond, &s.X, &s.Y)
}

// Extract pulls field Index out of an aggregate Tuple value.
type Extract struct {
	base
	Tuple Value
	Index int
}

func (e *Extract) String() string              { return fmt.Sprintf("extract %s, %d", e.Tuple.Name(), e.Index) }
func (e *Extract) Operands(rands []*Value) []*Value { return append(rands, &e.Tuple) }

// Alloc is a stack allocation of one Elem-typed cell; a candidate for
// mem2reg promotion.
type Alloc struct {
	base
	Elem Type
}

func (a *Alloc) String() string                  { return fmt.Sprintf("alloc %s", a.Elem) }
func (a *Alloc) Operands(rands []*Value) []*Value { return rands }

// Load reads the cell pointed to by Addr.
type Load struct {
	base
	Addr Value
}

func (l *Load) String() string              { return fmt.Sprintf("load %s", l.Addr.Name()) }
func (l *Load) Operands(rands []*Value) []*Value { return append(rands, &l.Addr) }

// Store writes Val to the cell pointed to by Addr. Produces no result.
type Store struct {
	base
	Addr, Val Value
}

func (s *Store) Name() string { return "" }
func (s *Store) String() string {
	return fmt.Sprintf("store %s, %s", s.Val.Name(), s.Addr.Name())
}
func (s *Store) Operands(rands []*Value) []*Value { return append(rands, &s.Addr, &s.Val) }

// Call invokes Callee with Args. Pure marks a call free of side effects;
// HasSideEffects treats every other Call as side-effecting. General
// side-effecting calls are out of scope; Call is retained only to model
// the emitted cilk_for runtime call itself (built with Pure false) and any
// pure builtins a frontend might lower.
type Call struct {
	base
	Callee Value
	Args   []Value
	Pure   bool
}

// NewCall constructs a detached Call; see NewBinOp. Used by rewrite.go to
// splice in the __cilkrts_cilk_for_32/64 runtime call.
func NewCall(name string, callee Value, pure bool, t Type, args ...Value) *Call {
	return &Call{base: base{name: name, typ: t}, Callee: callee, Args: args, Pure: pure}
}

func (c *Call) String() string {
	s := fmt.Sprintf("call %s(", c.Callee.Name())
	for i, a := range c.Args {
		if i > 0 {
			s += ", "
		}
		s += a.Name()
	}
	return s + ")"
}
func (c *Call) Operands(rands []*Value) []*Value {
	rands = append(rands, &c.Callee)
	for i := range c.Args {
		rands = append(rands, &c.Args[i])
	}
	return rands
}

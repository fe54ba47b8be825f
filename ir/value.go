package ir

import "strconv"

// Value is anything that produces a usable result: an Instruction, a
// Const, or a Function parameter. Mirrors ssa.Value from
// golang.org/x/tools/go/ssa.
type Value interface {
	Name() string
	Type() Type
	String() string
}

// Const is a compile-time (or, post-hoist, loop-invariant-but-not-yet-folded)
// integer constant.
type Const struct {
	name string
	typ  Type
	Val  int64
}

// NewConst returns an integer constant of type t.
func NewConst(val int64, t Type) *Const {
	return &Const{typ: t, Val: val}
}

func (c *Const) Name() string   { return c.name }
func (c *Const) Type() Type     { return c.typ }
func (c *Const) String() string { return strconv.FormatInt(c.Val, 10) }

// Param is a formal parameter of a Function. The outliner gives the
// extracted function's sole parameter — the closure — this type.
type Param struct {
	name string
	typ  Type
}

func NewParam(name string, t Type) *Param { return &Param{name: name, typ: t} }
func (p *Param) Name() string             { return p.name }
func (p *Param) Type() Type               { return p.typ }
func (p *Param) String() string           { return p.name }

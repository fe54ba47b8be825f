package loop2cilk

import (
	"github.com/nickng/loop2cilk/domtree"
	"github.com/nickng/loop2cilk/ir"
)

// hoist is the recursive hoist primitive: every transitive operand-
// producing instruction of value that does not already dominate anchor is
// moved to immediately before anchor, in dependency-first order.
// Constants and parameters dominate everything and are never moved.
//
// A naive implementation that moves instructions as it walks would leave
// fn half-mutated if a later instruction in the chain turns out to have
// side effects. This instead walks the whole operand graph and collects
// the moves to make before touching any instruction, so a mid-walk
// HoistFailure leaves fn exactly as it was.
func hoist(dt *domtree.Tree, anchor ir.Instruction, value ir.Value) error {
	visited := make(map[ir.Instruction]bool)
	var order []ir.Instruction

	var walk func(v ir.Value) error
	walk = func(v ir.Value) error {
		instr, ok := v.(ir.Instruction)
		if !ok {
			return nil
		}
		if visited[instr] {
			return nil
		}
		visited[instr] = true
		if dt.DominatesInstr(instr, anchor) {
			return nil
		}
		if ir.HasSideEffects(instr) {
			return &HoistFailure{Instr: instr}
		}
		var rands []*ir.Value
		rands = instr.Operands(rands)
		for _, r := range rands {
			if err := walk(*r); err != nil {
				return err
			}
		}
		order = append(order, instr)
		return nil
	}
	if err := walk(value); err != nil {
		return err
	}
	for _, instr := range order {
		instr.Block().Erase(instr)
		anchor.Block().InsertBefore(anchor, instr)
	}
	return nil
}

// sinkable is the enumerated whitelist of opcodes the recursive sink
// primitive may push past an anchor, kept as one predicate rather than
// scattered opcode switches.
func sinkable(instr ir.Instruction) bool {
	switch instr.(type) {
	case *ir.BinOp, *ir.UnOp, *ir.Cast, *ir.Select, *ir.Extract:
		return true
	default:
		return false
	}
}

// sink is the recursive sink primitive: user and every chained user of it
// that appears before anchor are pushed to immediately after anchor,
// provided every instruction on the chain is on the sinkable whitelist.
// It bails (returns an error, IR untouched) the moment it meets a
// non-whitelisted, non-dominated user — a chain crossing an impure
// instruction must fail outright, never sink past it.
func sink(fn *ir.Function, dt *domtree.Tree, anchor ir.Instruction, user ir.Instruction) error {
	visited := make(map[ir.Instruction]bool)
	var order []ir.Instruction

	var walk func(instr ir.Instruction) error
	walk = func(instr ir.Instruction) error {
		if visited[instr] {
			return nil
		}
		if dt.DominatesInstr(anchor, instr) && instr.Block() != anchor.Block() {
			return nil
		}
		if !sinkable(instr) {
			return &HoistFailure{Instr: instr}
		}
		visited[instr] = true
		order = append(order, instr)
		for _, u := range ir.Uses(fn, ir.Value(instr), nil) {
			if err := walk(u); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(user); err != nil {
		return err
	}
	// order is producer-before-consumer (walk visits user, then its uses);
	// the first goes immediately after anchor and each later one
	// immediately after the one moved before it, so the moved chain keeps
	// that relative order after the anchor.
	after := ir.Instruction(anchor)
	for _, instr := range order {
		instr.Block().Erase(instr)
		after.Block().InsertAfter(after, instr)
		after = instr
	}
	return nil
}

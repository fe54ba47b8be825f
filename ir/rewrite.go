package ir

// ReplaceAll rewrites every operand in fn that points at old to point at
// repl instead. Used throughout the canonicalizer to replace uses of a
// secondary induction variable, or of the PIV itself, with a synthesized
// closed-form expression.
//
// Real compilers track per-Value referrer lists to avoid the O(instructions)
// scan; this pass runs once per matched loop, not in an inner loop, so a
// full scan keeps the code simple without a measurable cost — gospal's own
// packages (block/visitgraph.go, loop/tree.go) favour this kind of
// straightforward traversal over bookkeeping structures too.
func ReplaceAll(fn *Function, old, repl Value) {
	var rands []*Value
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			rands = rands[:0]
			rands = instr.Operands(rands)
			for _, r := range rands {
				if *r == old {
					*r = repl
				}
			}
		}
	}
}

// Uses returns every Instruction in fn with an operand equal to v, except
// the ones in ignore.
func Uses(fn *Function, v Value, ignore map[Instruction]bool) []Instruction {
	var users []Instruction
	var rands []*Value
	for _, b := range fn.Blocks {
		for _, instr := range b.Instrs {
			if ignore != nil && ignore[instr] {
				continue
			}
			rands = rands[:0]
			rands = instr.Operands(rands)
			for _, r := range rands {
				if *r == v {
					users = append(users, instr)
					break
				}
			}
		}
	}
	return users
}

// IndexOf returns the position of instr within its own block's Instrs.
func IndexOf(instr Instruction) int {
	b := instr.Block()
	for i, in := range b.Instrs {
		if in == instr {
			return i
		}
	}
	return -1
}

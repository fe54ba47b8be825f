package ir

import "fmt"

// BasicBlock is a node of the function's control-flow graph: an ordered
// instruction list ending in exactly one Terminator. Succs/Preds are the
// authoritative edge lists (an If's "true" successor is always Succs[0],
// "false" is Succs[1]; a Detach's detached-child successor is Succs[0],
// its continuation is Succs[1]), mirroring the ssa.BasicBlock convention
// from golang.org/x/tools/go/ssa.
type BasicBlock struct {
	Index   int
	Comment string
	Instrs  []Instruction
	Succs   []*BasicBlock
	Preds   []*BasicBlock
	Fn      *Function
}

func (b *BasicBlock) String() string { return fmt.Sprintf("block%d", b.Index) }

// Term returns the block's terminator, or nil if the block is malformed
// (empty, or does not end in a Terminator).
func (b *BasicBlock) Term() Terminator {
	if len(b.Instrs) == 0 {
		return nil
	}
	t, _ := b.Instrs[len(b.Instrs)-1].(Terminator)
	return t
}

// Phis returns the leading φ-nodes of b.
func (b *BasicBlock) Phis() []*Phi {
	var phis []*Phi
	for _, instr := range b.Instrs {
		if p, ok := instr.(*Phi); ok {
			phis = append(phis, p)
		} else {
			break
		}
	}
	return phis
}

// NonPhiNonTerm returns the instructions that are neither leading φ-nodes
// nor the trailing terminator — what the rewrite driver needs to be empty
// for the detacher/sync blocks.
func (b *BasicBlock) NonPhiNonTerm() []Instruction {
	var out []Instruction
	for _, instr := range b.Instrs {
		if _, ok := instr.(*Phi); ok {
			continue
		}
		if _, ok := instr.(Terminator); ok {
			continue
		}
		out = append(out, instr)
	}
	return out
}

// PredIndex returns the index of pred within b.Preds, or -1.
func (b *BasicBlock) PredIndex(pred *BasicBlock) int {
	for i, p := range b.Preds {
		if p == pred {
			return i
		}
	}
	return -1
}

// Terminator is the last Instruction of a BasicBlock: it determines how
// control leaves the block, but (per the ssa.BasicBlock convention above)
// does not itself own the successor list.
type Terminator interface {
	Instruction
	isTerminator()
}

type termBase struct{ base }

func (termBase) isTerminator() {}
func (termBase) Operands(rands []*Value) []*Value { return rands }

// Jump is an unconditional branch to Block().Succs[0].
type Jump struct{ termBase }

func (j *Jump) String() string { return "jump" }

// If is a conditional branch: Cond selects Succs[0] (true) or Succs[1]
// (false).
type If struct {
	termBase
	Cond Value
}

func (i *If) String() string              { return fmt.Sprintf("if %s", i.Cond.Name()) }
func (i *If) Operands(rands []*Value) []*Value { return append(rands, &i.Cond) }

// Return has no successors.
type Return struct {
	termBase
	Results []Value
}

func (r *Return) String() string { return "return" }
func (r *Return) Operands(rands []*Value) []*Value {
	for i := range r.Results {
		rands = append(rands, &r.Results[i])
	}
	return rands
}

// Unreachable marks a block that control can never reach; it has no
// successors.
type Unreachable struct{ termBase }

func (u *Unreachable) String() string { return "unreachable" }

// Detach forks Block().Succs[0] as a logically-concurrent child task and
// continues execution into Block().Succs[1].
type Detach struct{ termBase }

func (d *Detach) String() string { return "detach" }

// Reattach closes a detached region, transferring control to
// Block().Succs[0] (the continuation it was detached from).
type Reattach struct{ termBase }

func (r *Reattach) String() string { return "reattach" }

// Sync is the join point for all detached work reachable from the
// function entry along paths that have not yet passed a matching Sync.
// Block().Succs[0] is its single successor.
type Sync struct{ termBase }

func (s *Sync) String() string { return "sync" }

// InsertBefore inserts instr immediately before anchor, which must already
// be one of b's instructions. Used by the hoist/sink primitives
// (codemotion.go) and the canonicalizer.
func (b *BasicBlock) InsertBefore(anchor, instr Instruction) {
	for i, in := range b.Instrs {
		if in == anchor {
			instr.setBlock(b)
			b.Instrs = append(b.Instrs, nil)
			copy(b.Instrs[i+1:], b.Instrs[i:])
			b.Instrs[i] = instr
			return
		}
	}
	panic("ir: InsertBefore: anchor not found in block")
}

// InsertAfter inserts instr immediately after anchor.
func (b *BasicBlock) InsertAfter(anchor, instr Instruction) {
	for i, in := range b.Instrs {
		if in == anchor {
			instr.setBlock(b)
			b.Instrs = append(b.Instrs, nil)
			copy(b.Instrs[i+2:], b.Instrs[i+1:])
			b.Instrs[i+1] = instr
			return
		}
	}
	panic("ir: InsertAfter: anchor not found in block")
}

// Append adds instr to the end of b's instruction list. b must not yet
// have a terminator if instr is not one, and must not already have one if
// instr is.
func (b *BasicBlock) Append(instr Instruction) {
	instr.setBlock(b)
	b.Instrs = append(b.Instrs, instr)
}

// PrependAfterPhis inserts instr immediately after the block's leading
// φ-nodes, into the first post-φ position.
func (b *BasicBlock) PrependAfterPhis(instr Instruction) {
	i := 0
	for ; i < len(b.Instrs); i++ {
		if _, ok := b.Instrs[i].(*Phi); !ok {
			break
		}
	}
	instr.setBlock(b)
	b.Instrs = append(b.Instrs, nil)
	copy(b.Instrs[i+1:], b.Instrs[i:])
	b.Instrs[i] = instr
}

// Erase removes instr from b's instruction list.
func (b *BasicBlock) Erase(instr Instruction) {
	for i, in := range b.Instrs {
		if in == instr {
			b.Instrs = append(b.Instrs[:i], b.Instrs[i+1:]...)
			return
		}
	}
}

// ReplaceTerm swaps b's terminator for newTerm, erasing the old one.
func (b *BasicBlock) ReplaceTerm(newTerm Terminator) {
	if old := b.Term(); old != nil {
		b.Erase(old)
	}
	b.Append(newTerm)
}

// AddSucc appends to to b's successor list and b to to's predecessor list.
func (b *BasicBlock) AddSucc(to *BasicBlock) {
	b.Succs = append(b.Succs, to)
	to.Preds = append(to.Preds, b)
}

// RemoveSucc removes the edge b->to (the first matching occurrence).
func (b *BasicBlock) RemoveSucc(to *BasicBlock) {
	for i, s := range b.Succs {
		if s == to {
			b.Succs = append(b.Succs[:i], b.Succs[i+1:]...)
			break
		}
	}
	for i, p := range to.Preds {
		if p == b {
			to.Preds = append(to.Preds[:i], to.Preds[i+1:]...)
			break
		}
	}
}

package ir

// Function is a single SSA-form function: an ordered list of BasicBlocks
// with Blocks[0] as the entry.
type Function struct {
	Name_     string
	Params    []*Param
	Blocks    []*BasicBlock
	Prog      *Program
	Synthetic string // non-empty for outliner-created functions.
}

func (f *Function) Name() string { return f.Name_ }

// NewBlock appends and returns a fresh BasicBlock owned by f.
func (f *Function) NewBlock(comment string) *BasicBlock {
	b := &BasicBlock{Index: len(f.Blocks), Comment: comment, Fn: f}
	f.Blocks = append(f.Blocks, b)
	return b
}

// RemoveBlock deletes b from f.Blocks and renumbers the remaining blocks'
// Index fields. It does not touch b's edges; callers (deadblock) must
// detach b from the CFG first.
func (f *Function) RemoveBlock(b *BasicBlock) {
	for i, blk := range f.Blocks {
		if blk == b {
			f.Blocks = append(f.Blocks[:i], f.Blocks[i+1:]...)
			break
		}
	}
	for i, blk := range f.Blocks {
		blk.Index = i
	}
}

// Program groups the functions produced by a single lowering/build,
// analogous to ssa.Program.
type Program struct {
	Funcs []*Function
}

func (p *Program) NewFunction(name string) *Function {
	f := &Function{Name_: name, Prog: p}
	p.Funcs = append(p.Funcs, f)
	return f
}

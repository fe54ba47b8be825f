package frontend

import (
	"go/constant"
	"go/token"
	"go/types"

	"github.com/nickng/loop2cilk/ir"
	gossa "golang.org/x/tools/go/ssa"
)

// Lower walks every function in prog and lowers the ones whose entry chain
// matches the detach/sync idiom into an ir.Function. Functions
// that don't match, or use a construct outside this lowerer's narrow
// supported subset, are skipped and reported through errs rather than
// aborting the run — the same "give up, never crash" discipline the pass
// itself follows.
func Lower(prog *gossa.Program) (*ir.Program, []error) {
	out := &ir.Program{}
	var errs []error
	for _, pkg := range prog.AllPackages() {
		for _, member := range pkg.Members {
			fn, ok := member.(*gossa.Function)
			if !ok || len(fn.Blocks) == 0 {
				continue
			}
			irFn, err := lowerFunction(out, fn)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out.Funcs = append(out.Funcs, irFn)
		}
	}
	return out, errs
}

// lowering holds the per-function translation state: the value map every
// generic-instruction and operand lookup consults, in the same role as a
// gossa.Function's own value numbering.
type lowering struct {
	fn     *gossa.Function
	irFn   *ir.Function
	orig2b map[*gossa.BasicBlock]*ir.BasicBlock
	vals   map[gossa.Value]ir.Value
}

func lowerFunction(prog *ir.Program, fn *gossa.Function) (*ir.Function, error) {
	header, detacher, sync, err := findIdiom(fn)
	if err != nil {
		return nil, err
	}

	irFn := &ir.Function{Name_: fn.Name(), Prog: prog}
	lw := &lowering{
		fn:     fn,
		irFn:   irFn,
		orig2b: make(map[*gossa.BasicBlock]*ir.BasicBlock),
		vals:   make(map[gossa.Value]ir.Value),
	}

	for _, p := range fn.Params {
		t, err := lw.typeFor(p.Type())
		if err != nil {
			return nil, &UnsupportedConstruct{Fn: fn, Detail: err.Error()}
		}
		param := ir.NewParam(p.Name(), t)
		irFn.Params = append(irFn.Params, param)
		lw.vals[p] = param
	}

	if err := lw.lowerPrologue(fn.Blocks[0], header); err != nil {
		return nil, err
	}
	if err := lw.lowerHeader(header, detacher, sync); err != nil {
		return nil, err
	}
	if err := lw.lowerDetacher(header, detacher); err != nil {
		return nil, err
	}
	if err := lw.lowerSync(sync); err != nil {
		return nil, err
	}
	if err := lw.patchPhis(header); err != nil {
		return nil, err
	}
	return irFn, nil
}

// findIdiom locates the single detach/sync-framed loop this lowerer
// requires a function to contain: a header block reached by a straight
// (branchless) prologue chain from the entry, two-way branching to a
// detacher and a sync block.
func findIdiom(fn *gossa.Function) (header, detacher, sync *gossa.BasicBlock, err error) {
	for _, b := range fn.Blocks {
		if len(b.Preds) != 2 {
			continue
		}
		if _, ok := lastInstr(b).(*gossa.If); !ok || len(b.Succs) != 2 || len(phisOf(b)) == 0 {
			continue
		}
		a, c := b.Succs[0], b.Succs[1]
		if isMarkerDetacher(a) && isMarkerSync(c) {
			return b, a, c, nil
		}
		if isMarkerDetacher(c) && isMarkerSync(a) {
			return b, c, a, nil
		}
	}
	return nil, nil, nil, &IdiomNotFound{Fn: fn, Reason: "no header block branches to a Detach()-led block and a Sync()-led block"}
}

func lastInstr(b *gossa.BasicBlock) gossa.Instruction {
	if len(b.Instrs) == 0 {
		return nil
	}
	return b.Instrs[len(b.Instrs)-1]
}

func phisOf(b *gossa.BasicBlock) []*gossa.Phi {
	var phis []*gossa.Phi
	for _, instr := range b.Instrs {
		if p, ok := instr.(*gossa.Phi); ok {
			phis = append(phis, p)
		}
	}
	return phis
}

func isMarkerDetacher(b *gossa.BasicBlock) bool {
	return isMarkerCallFirst(b, "Detach") && len(b.Succs) == 1
}

func isMarkerSync(b *gossa.BasicBlock) bool {
	return isMarkerCallFirst(b, "Sync")
}

// isMarkerCallFirst reports whether b's very first instruction is a call
// to markers.name. The idiom this lowerer supports requires the marker
// call to lead the block — findIdiom/lowerDetacher/lowerSync all rely on
// this rather than searching for the call anywhere in the block.
func isMarkerCallFirst(b *gossa.BasicBlock, name string) bool {
	if len(b.Instrs) == 0 {
		return false
	}
	call, ok := b.Instrs[0].(*gossa.Call)
	if !ok {
		return false
	}
	callee := call.Call.StaticCallee()
	return callee != nil && callee.Name() == name &&
		callee.Pkg != nil && isMarkersPkg(callee.Pkg.Pkg)
}

// markerCallIn reports the index of the leading markers.name call in b's
// instructions, matching isMarkerCallFirst's requirement that it be
// index 0; returns -1 otherwise. Kept as an index-returning helper (not a
// bool) because lowerDetacher/lowerSync need the boundary to slice on.
func markerCallIn(b *gossa.BasicBlock, name string) int {
	if isMarkerCallFirst(b, name) {
		return 0
	}
	return -1
}

func isMarkersPkg(pkg *types.Package) bool {
	if pkg == nil {
		return false
	}
	p := pkg.Path()
	return p == "github.com/nickng/loop2cilk/frontend/markers" ||
		(len(p) >= 8 && p[len(p)-8:] == "/markers")
}

// lowerPrologue translates the branchless chain of blocks from entry up to
// header, each required to have exactly one successor. header itself gets
// only its ir.BasicBlock allocated here — lowerHeader rebuilds its
// contents (φ-nodes, comparison, If) from scratch.
func (lw *lowering) lowerPrologue(entry, header *gossa.BasicBlock) error {
	b := entry
	var prev *ir.BasicBlock
	for {
		irb := lw.irFn.NewBlock("")
		lw.orig2b[b] = irb
		if b == header {
			return nil
		}
		if prev != nil {
			prev.AddSucc(irb)
		}
		if _, ok := lastInstr(b).(*gossa.Jump); !ok || len(b.Succs) != 1 {
			return &UnsupportedConstruct{Fn: lw.fn, Detail: "prologue block does not end in an unconditional jump"}
		}
		for _, instr := range b.Instrs[:len(b.Instrs)-1] {
			if err := lw.translateInstr(instr, irb); err != nil {
				return err
			}
		}
		irb.Append(&ir.Jump{})
		prev = irb
		b = b.Succs[0]
	}
}

// lowerHeader rebuilds header: φ-stubs (patched later by patchPhis once
// every block's values exist), the exit comparison, and the If.
func (lw *lowering) lowerHeader(header, detacher, sync *gossa.BasicBlock) error {
	irHeader := lw.orig2b[header]

	for _, phi := range phisOf(header) {
		t, err := lw.typeFor(phi.Type())
		if err != nil {
			return &UnsupportedConstruct{Fn: lw.fn, Detail: err.Error()}
		}
		p := ir.NewPhi(phi.Name(), t, len(phi.Edges))
		irHeader.Append(p)
		lw.vals[phi] = p
	}

	ifTerm, ok := lastInstr(header).(*gossa.If)
	if !ok {
		return &UnsupportedConstruct{Fn: lw.fn, Detail: "header terminator is not *ssa.If"}
	}
	cmp, ok := ifTerm.Cond.(*gossa.BinOp)
	if !ok {
		return &UnsupportedConstruct{Fn: lw.fn, Detail: "header branch condition is not a comparison"}
	}
	x, err := lw.valueFor(cmp.X)
	if err != nil {
		return err
	}
	y, err := lw.valueFor(cmp.Y)
	if err != nil {
		return err
	}
	cmpIR := ir.NewBinOp(cmp.Name(), cmp.Op, x, y, ir.IntType{Bits: 1})
	irHeader.Append(cmpIR)
	irHeader.Append(&ir.If{Cond: cmpIR})
	lw.vals[cmp] = cmpIR

	// Wire predecessors in header's original order so Phi.Edges stays
	// aligned once patchPhis fills them in.
	latch := latchOf(detacher)
	for _, pred := range header.Preds {
		var pir *ir.BasicBlock
		switch pred {
		case latch:
			pir = lw.irFn.NewBlock("")
			lw.orig2b[latch] = pir
		default:
			pir = lw.orig2b[pred]
		}
		if pir == nil {
			return &UnsupportedConstruct{Fn: lw.fn, Detail: "header predecessor outside the recognised prologue/latch"}
		}
		pir.AddSucc(irHeader)
	}

	detacherIR := lw.irFn.NewBlock("")
	lw.orig2b[detacher] = detacherIR
	syncIR := lw.irFn.NewBlock("")
	lw.orig2b[sync] = syncIR
	for _, s := range header.Succs {
		switch s {
		case detacher:
			irHeader.AddSucc(detacherIR)
		case sync:
			irHeader.AddSucc(syncIR)
		}
	}

	lirLatch := lw.orig2b[latch]
	for _, instr := range latch.Instrs[:len(latch.Instrs)-1] {
		if err := lw.translateInstr(instr, lirLatch); err != nil {
			return err
		}
	}
	lirLatch.Append(&ir.Jump{})
	return nil
}

// latchOf returns detacher's post-Detach successor in the original graph:
// the block go/ssa emits for the loop's post statement (i++), which in
// this lowerer's required shape is the sole successor of the original
// (unsplit) body block.
func latchOf(detacher *gossa.BasicBlock) *gossa.BasicBlock {
	return detacher.Succs[0]
}

// lowerDetacher splits the original body block at its Detach() call into
// a detacher block (ir.Detach terminator) and the detached child that
// runs the rest of the body, reattaching into the latch.
func (lw *lowering) lowerDetacher(header, detacher *gossa.BasicBlock) error {
	idx := markerCallIn(detacher, "Detach")
	if idx != 0 {
		return &UnsupportedConstruct{Fn: lw.fn, Detail: "Detach() is not the first statement of the loop body"}
	}
	detacherIR := lw.orig2b[detacher]
	childIR := lw.irFn.NewBlock("")
	latchIR := lw.orig2b[latchOf(detacher)]

	for _, instr := range detacher.Instrs[idx+1 : len(detacher.Instrs)-1] {
		if err := lw.translateInstr(instr, childIR); err != nil {
			return err
		}
	}
	childIR.Append(&ir.Reattach{})
	childIR.AddSucc(latchIR)

	detacherIR.Append(&ir.Detach{})
	detacherIR.AddSucc(childIR)
	detacherIR.AddSucc(latchIR)
	return nil
}

// lowerSync splits the original done block at its Sync() call into a
// sync block (ir.Sync terminator) and a continuation carrying the rest of
// the function.
func (lw *lowering) lowerSync(sync *gossa.BasicBlock) error {
	idx := markerCallIn(sync, "Sync")
	if idx != 0 {
		return &UnsupportedConstruct{Fn: lw.fn, Detail: "Sync() is not the first statement after the loop"}
	}
	syncIR := lw.orig2b[sync]
	restIR := lw.irFn.NewBlock("")

	for _, instr := range sync.Instrs[idx+1 : len(sync.Instrs)-1] {
		if err := lw.translateInstr(instr, restIR); err != nil {
			return err
		}
	}
	syncIR.Append(&ir.Sync{})
	syncIR.AddSucc(restIR)

	return lw.translateTerm(lastInstr(sync), restIR)
}

// patchPhis fills in every header φ's edges now that both the entry value
// and the (by-now translated) backedge value exist in lw.vals.
func (lw *lowering) patchPhis(header *gossa.BasicBlock) error {
	irHeader := lw.orig2b[header]
	for i, phi := range phisOf(header) {
		p := irHeader.Phis()[i]
		for j, e := range phi.Edges {
			v, err := lw.valueFor(e)
			if err != nil {
				return err
			}
			p.Edges[j] = v
		}
	}
	return nil
}

// translateInstr lowers the narrow, register-only instruction subset this
// lowerer supports; everything else (memory ops, calls other than the
// markers, aggregates) is an UnsupportedConstruct.
func (lw *lowering) translateInstr(instr gossa.Instruction, target *ir.BasicBlock) error {
	switch v := instr.(type) {
	case *gossa.BinOp:
		x, err := lw.valueFor(v.X)
		if err != nil {
			return err
		}
		y, err := lw.valueFor(v.Y)
		if err != nil {
			return err
		}
		t, err := lw.typeFor(v.Type())
		if err != nil {
			return &UnsupportedConstruct{Fn: lw.fn, Detail: err.Error()}
		}
		b := ir.NewBinOp(v.Name(), v.Op, x, y, t)
		target.Append(b)
		lw.vals[v] = b
		return nil

	case *gossa.UnOp:
		if v.Op != token.SUB {
			return &UnsupportedConstruct{Fn: lw.fn, Detail: "unary op " + v.Op.String() + " (only negation is supported)"}
		}
		x, err := lw.valueFor(v.X)
		if err != nil {
			return err
		}
		t, err := lw.typeFor(v.Type())
		if err != nil {
			return &UnsupportedConstruct{Fn: lw.fn, Detail: err.Error()}
		}
		u := ir.NewUnOp(v.Name(), v.Op, x, t)
		target.Append(u)
		lw.vals[v] = u
		return nil

	case *gossa.Convert:
		x, err := lw.valueFor(v.X)
		if err != nil {
			return err
		}
		t, err := lw.typeFor(v.Type())
		if err != nil {
			return &UnsupportedConstruct{Fn: lw.fn, Detail: err.Error()}
		}
		c := ir.NewCast(v.Name(), x, t)
		target.Append(c)
		lw.vals[v] = c
		return nil

	case *gossa.DebugRef:
		return nil

	default:
		return &UnsupportedConstruct{Fn: lw.fn, Detail: "instruction kind not in the supported subset"}
	}
}

// translateTerm lowers the terminator of the block holding the Sync() call.
// Only a Return is lowered; any other terminator (a Jump on to more code,
// for instance) is reported as an UnsupportedConstruct.
func (lw *lowering) translateTerm(instr gossa.Instruction, target *ir.BasicBlock) error {
	switch v := instr.(type) {
	case *gossa.Return:
		var results []ir.Value
		for _, r := range v.Results {
			rv, err := lw.valueFor(r)
			if err != nil {
				return err
			}
			results = append(results, rv)
		}
		target.Append(&ir.Return{Results: results})
		return nil
	default:
		return &UnsupportedConstruct{Fn: lw.fn, Detail: "function does not return directly after Sync()"}
	}
}

// valueFor resolves an already-defined ssa.Value (constant, parameter, or
// a previously translated instruction result) to its ir.Value.
func (lw *lowering) valueFor(v gossa.Value) (ir.Value, error) {
	if iv, ok := lw.vals[v]; ok {
		return iv, nil
	}
	c, ok := v.(*gossa.Const)
	if !ok || c.IsNil() || c.Value == nil || c.Value.Kind() != constant.Int {
		return nil, &UnsupportedConstruct{Fn: lw.fn, Detail: "operand is not an integer constant or an already-translated value"}
	}
	t, err := lw.typeFor(c.Type())
	if err != nil {
		return nil, &UnsupportedConstruct{Fn: lw.fn, Detail: err.Error()}
	}
	iv := ir.NewConst(c.Int64(), t)
	lw.vals[v] = iv
	return iv, nil
}

// typeFor maps the integer basic kinds this lowerer supports to ir's
// integer types; every other Go type (strings, slices, structs,
// interfaces, floats) is out of scope, matching the aggregate/interface
// Non-goal the ir package itself already documents.
func (lw *lowering) typeFor(t types.Type) (ir.Type, error) {
	basic, ok := t.Underlying().(*types.Basic)
	if !ok {
		return nil, errUnsupportedType(t)
	}
	switch basic.Kind() {
	case types.Int, types.Int64:
		return ir.I64, nil
	case types.Int32:
		return ir.I32, nil
	case types.Uint, types.Uint64, types.Uintptr:
		return ir.U64, nil
	case types.Uint32:
		return ir.U32, nil
	default:
		return nil, errUnsupportedType(t)
	}
}

func errUnsupportedType(t types.Type) error {
	return &unsupportedTypeErr{t: t}
}

type unsupportedTypeErr struct{ t types.Type }

func (e *unsupportedTypeErr) Error() string {
	return "type " + e.t.String() + " is outside the supported integer subset"
}

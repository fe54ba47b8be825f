// Package outline is the detach-body-to-function outliner collaborator:
// it moves a detached region into its own ir.Function whose sole
// parameter is the loop's canonical iteration index, so that rewrite.go
// can replace the original Detach with a single call to the runtime's
// work-stealing entry point.
//
// Like domtree and loopinfo, nothing in the Go ecosystem implements this
// for a custom Detach/Sync IR, so it lives here as a small, from-scratch
// collaborator. It requires (Extract checks, and returns an error
// otherwise) that the detached region's entry block has exactly one
// predecessor: the detacher itself. That is the shape every loop this pass recognises produces —
// the detached child of a canonical `detach within a loop body` has no
// other way to be reached — so the outliner never needs to reconcile
// φ-nodes at the extraction boundary the way a fully general region
// outliner would.
package outline

import (
	"fmt"

	"github.com/nickng/loop2cilk/cfgwalk"
	"github.com/nickng/loop2cilk/ir"
)

// Result is what extraction produces: the new Function, and the Value
// (inside the caller's function) that names it as a callee.
type Result struct {
	Fn       *ir.Function
	Callee   ir.Value
	ClosureT ir.Type
}

// Extract moves the region reachable from detach's detached-child
// successor (stopping at the continuation) into a new Function appended
// to fn.Prog, replacing the region's Reattach terminators with Return and
// every use of closure inside the region with the new function's sole
// parameter.
func Extract(fn *ir.Function, detach *ir.Detach, closure ir.Value) (*Result, error) {
	detBlock := detach.Block()
	if len(detBlock.Succs) != 2 {
		return nil, fmt.Errorf("outline: detach block has %d successors, want 2", len(detBlock.Succs))
	}
	child, cont := detBlock.Succs[0], detBlock.Succs[1]
	if len(child.Preds) != 1 {
		return nil, fmt.Errorf("outline: detached entry %s has %d preds, want 1", child, len(child.Preds))
	}

	boundary := map[*ir.BasicBlock]bool{cont: true}
	region := cfgwalk.Region(child, boundary)
	inRegion := make(map[*ir.BasicBlock]bool, len(region))
	for _, b := range region {
		inRegion[b] = true
	}

	newFn := fn.Prog.NewFunction(fn.Name_ + ".detach")
	param := ir.NewParam("iter", closure.Type())
	newFn.Params = []*ir.Param{param}

	// Preserve original relative order; put child first regardless.
	var ordered []*ir.BasicBlock
	ordered = append(ordered, child)
	for _, b := range fn.Blocks {
		if b != child && inRegion[b] {
			ordered = append(ordered, b)
		}
	}

	remaining := fn.Blocks[:0]
	for _, b := range fn.Blocks {
		if !inRegion[b] {
			remaining = append(remaining, b)
		}
	}
	fn.Blocks = remaining
	for i, b := range fn.Blocks {
		b.Index = i
	}

	detBlock.RemoveSucc(child)

	for i, b := range ordered {
		b.Fn = newFn
		b.Index = i
		if _, ok := b.Term().(*ir.Reattach); ok {
			b.ReplaceTerm(&ir.Return{})
			b.RemoveSucc(cont)
		}
	}
	newFn.Blocks = ordered

	ir.ReplaceAll(newFn, closure, ir.Value(param))

	return &Result{Fn: newFn, Callee: FuncValue{newFn}, ClosureT: closure.Type()}, nil
}

// FuncValue wraps an extracted Function as an ir.Value so it can be used
// as the callee operand of the emitted runtime call (rewrite.go).
type FuncValue struct{ Fn *ir.Function }

func (f FuncValue) Name() string   { return f.Fn.Name_ }
func (f FuncValue) Type() ir.Type  { return ir.FuncType{Param: f.Fn.Params[0].Type()} }
func (f FuncValue) String() string { return "&" + f.Fn.Name_ }

// Package loop2cilk recognizes detach/sync-framed parallel loops in a
// function's IR and rewrites each into a single call to the work-stealing
// runtime's cilk_for entry point, deleting the original loop structure.
//
// The package is organized leaves-first, mirroring the collaborator
// packages it sits on top of: matcher.go identifies the detach/sync
// framing, codemotion.go provides the dominance-aware hoist/sink
// primitives, canon.go is the induction-variable canonicalizer, normalize.go
// is the exit-block normalizer, and rewrite.go is the driver that
// orchestrates all of them and performs the final graph surgery.
package loop2cilk

import (
	"fmt"

	"github.com/nickng/loop2cilk/ir"
	"github.com/nickng/loop2cilk/loopinfo"
	"github.com/pkg/errors"
)

// Every rejection the pass can produce is recoverable at the pass
// boundary: the caller reports the loop unchanged and moves on to the
// next one. None of these are ever fatal; only a verifier failure
// (package verify) is.

// StructureMismatch: the loop is not shaped as detach+sync.
type StructureMismatch struct {
	Loop   *loopinfo.Loop
	Reason string
}

func (e *StructureMismatch) Error() string {
	return fmt.Sprintf("loop2cilk: %s: structure mismatch: %s", e.Loop.Header, e.Reason)
}

// MultiExit: no unique true exit block.
type MultiExit struct {
	Loop *loopinfo.Loop
}

func (e *MultiExit) Error() string {
	return fmt.Sprintf("loop2cilk: %s: no unique true exit", e.Loop.Header)
}

// NonCanonicalInduction: no suitable primary induction φ, a secondary φ's
// step is not loop-invariant, the comparison is equality-based, or the
// induction type is non-integer.
type NonCanonicalInduction struct {
	Loop   *loopinfo.Loop
	Reason string
}

func (e *NonCanonicalInduction) Error() string {
	return fmt.Sprintf("loop2cilk: %s: non-canonical induction: %s", e.Loop.Header, e.Reason)
}

// HoistFailure: an instruction that must be moved has side effects or
// uses that are not dominated by its new position.
type HoistFailure struct {
	Instr ir.Instruction
}

func (e *HoistFailure) Error() string {
	return fmt.Sprintf("loop2cilk: cannot hoist/sink %s: side effects or non-dominated uses", e.Instr)
}

// DetacherNotEmpty: the detacher contains a memory-writing instruction
// that cannot be hoisted into the detached body.
type DetacherNotEmpty struct {
	Block *ir.BasicBlock
}

func (e *DetacherNotEmpty) Error() string {
	return fmt.Sprintf("loop2cilk: detacher %s is not empty after hoisting", e.Block)
}

// SyncNotEmpty: the sync block contains a non-φ, non-terminator
// instruction that cannot be sunk.
type SyncNotEmpty struct {
	Block *ir.BasicBlock
}

func (e *SyncNotEmpty) Error() string {
	return fmt.Sprintf("loop2cilk: sync block %s is not empty after sinking", e.Block)
}

// WidthMismatch: the trip count is neither 32 nor 64 bits wide.
type WidthMismatch struct {
	Bits int
}

func (e *WidthMismatch) Error() string {
	return fmt.Sprintf("loop2cilk: trip count has width %d, want 32 or 64", e.Bits)
}

// wrap adds file/line-free context the way the rest of the corpus does
// with github.com/pkg/errors, without discarding the underlying typed
// error (callers that care still get back to it with errors.Cause).
func wrap(err error, context string) error {
	return errors.Wrap(err, context)
}

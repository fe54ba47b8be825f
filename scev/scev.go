// Package scev is a minimal scalar-evolution façade.
//
// ScalarEvolution is a collaborator the rewrite driver receives alongside
// Loop/LoopInfo/DominatorTree, but the core pass only ever calls into it
// once: to forget a loop's cached analysis after rewriting it out of
// existence. A full scalar-evolution engine (closed forms for arbitrary
// recurrences, range analysis, etc.) is heavyweight analysis that isn't
// needed to implement loop2cilk itself, so this package intentionally
// implements only the surface the pass touches.
package scev

import "github.com/nickng/loop2cilk/loopinfo"

// Facts is a scalar-evolution cache keyed by loop.
type Facts struct {
	forgotten map[*loopinfo.Loop]bool
}

func New() *Facts { return &Facts{forgotten: make(map[*loopinfo.Loop]bool)} }

// ForgetLoop invalidates any cached scalar-evolution facts about l. Called
// once a loop has been rewritten away.
func (f *Facts) ForgetLoop(l *loopinfo.Loop) {
	f.forgotten[l] = true
}

// Forgotten reports whether ForgetLoop(l) has been called — used only by
// tests to assert the driver actually invalidates analyses after a rewrite.
func (f *Facts) Forgotten(l *loopinfo.Loop) bool {
	return f.forgotten[l]
}

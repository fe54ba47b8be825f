package loop2cilk

import (
	"github.com/nickng/loop2cilk/diag"
	"github.com/nickng/loop2cilk/domtree"
	"github.com/nickng/loop2cilk/ir"
	"github.com/nickng/loop2cilk/loopinfo"
	"github.com/nickng/loop2cilk/scev"
	"github.com/pkg/errors"
)

// Pass is the registered IR transformation named loop2cilk: it requires a
// dominator tree, loop info, scalar evolution, and loop-simplify form as
// analyses, and produces none of its own that outlive a single
// RunOnFunction call.
type Pass struct {
	Log *diag.Logger
}

// RunOnLoop matches, canonicalizes, and rewrites a single loop. A typed
// rejection is reported through the returned error but is never itself a
// reason to abort the rest of the function — RunOnFunction decides that.
func (p *Pass) RunOnLoop(l *loopinfo.Loop, li *loopinfo.Info, dt *domtree.Tree, se *scev.Facts) (bool, error) {
	m, err := matchLoop(l)
	if err != nil {
		p.logf("loop at %s rejected: %v", l.Header, err)
		return false, err
	}

	res, err := canonicalize(l.Header.Fn, l, m, m.BranchBlock, dt, li)
	if err != nil {
		p.logf("loop at %s not canonicalized: %v", l.Header, err)
		return false, err
	}

	newDT, err := rewrite(l.Header.Fn, l, m, res, dt, se)
	if err != nil {
		p.logf("loop at %s not rewritten: %v", l.Header, err)
		return false, err
	}
	*dt = *newDT
	return true, nil
}

// RunOnFunction builds the analyses loop2cilk needs from scratch, then
// runs RunOnLoop over every natural loop, innermost first (a loop cannot
// be matched while its own inner loops still occupy its body's detach
// framing), mirroring the worklist ordering of gospal's loop.Stack.
// It stops at the first error RunOnLoop cannot classify as a recoverable
// rejection (currently none — every error loop2cilk produces is
// recoverable), collecting per-loop rejections instead of treating them
// as fatal.
func (p *Pass) RunOnFunction(fn *ir.Function) (bool, []error) {
	dt := domtree.Build(fn)
	loops := loopinfo.Nest(loopinfo.Find(fn, dt))
	se := scev.New()

	worklist := innermostFirst(loops)

	changed := false
	var errs []error
	for _, l := range worklist {
		li := loopinfo.New()
		ok, err := p.RunOnLoop(l, li, dt, se)
		if err != nil {
			errs = append(errs, errors.Wrapf(err, "loop at %s", l.Header))
			continue
		}
		if ok {
			changed = true
		}
	}
	return changed, errs
}

// innermostFirst orders loops so every child precedes its parent: a loop
// nested inside another is only a candidate detach/sync frame once its
// own body has already been collapsed to a single cilk_for call.
func innermostFirst(loops []*loopinfo.Loop) []*loopinfo.Loop {
	depth := make(map[*loopinfo.Loop]int, len(loops))
	var depthOf func(l *loopinfo.Loop) int
	depthOf = func(l *loopinfo.Loop) int {
		if d, ok := depth[l]; ok {
			return d
		}
		d := 0
		if l.Parent != nil {
			d = depthOf(l.Parent) + 1
		}
		depth[l] = d
		return d
	}
	ordered := append([]*loopinfo.Loop{}, loops...)
	for _, l := range ordered {
		depthOf(l)
	}
	for i := 1; i < len(ordered); i++ {
		for j := i; j > 0 && depth[ordered[j]] > depth[ordered[j-1]]; j-- {
			ordered[j], ordered[j-1] = ordered[j-1], ordered[j]
		}
	}
	return ordered
}

func (p *Pass) logf(format string, args ...interface{}) {
	if p.Log == nil {
		return
	}
	p.Log.Debugf(format, args...)
}

// Package domtree computes dominator trees over ir.Function control-flow
// graphs.
//
// No off-the-shelf dominator-tree package exists for this module's custom
// ir.BasicBlock graph, so this is a from-scratch implementation of the
// Lengauer-Tarjan algorithm with the
// Georgiadis et al. path-compression-free refinement, transcribed from the
// teacher pack's github.com/adonovan/spaghetti dom.go (itself adapted from
// golang.org/x/tools/go/ssa's dom.go) onto ir.BasicBlock instead of the
// package-dependency graph node it was written for.
package domtree

import "github.com/nickng/loop2cilk/ir"

// Tree is the dominator tree of a single ir.Function.
type Tree struct {
	fn    *ir.Function
	nodes map[*ir.BasicBlock]*domInfo
}

type domInfo struct {
	idom     *ir.BasicBlock
	children []*ir.BasicBlock
	pre, post int32
	index    int32
}

// Build computes the dominator tree of fn, rooted at fn.Blocks[0].
func Build(fn *ir.Function) *Tree {
	t := &Tree{fn: fn, nodes: make(map[*ir.BasicBlock]*domInfo)}
	if len(fn.Blocks) == 0 {
		return t
	}
	for _, b := range fn.Blocks {
		t.nodes[b] = &domInfo{index: -1}
	}
	t.build(fn.Blocks[0])
	return t
}

// Idom returns b's immediate dominator, or nil if b is the root or
// unreachable.
func (t *Tree) Idom(b *ir.BasicBlock) *ir.BasicBlock {
	if n := t.nodes[b]; n != nil {
		return n.idom
	}
	return nil
}

// Dominees returns the blocks b immediately dominates.
func (t *Tree) Dominees(b *ir.BasicBlock) []*ir.BasicBlock {
	if n := t.nodes[b]; n != nil {
		return n.children
	}
	return nil
}

// Dominates reports whether a dominates b (reflexively: a dominates a).
func (t *Tree) Dominates(a, b *ir.BasicBlock) bool {
	na, nb := t.nodes[a], t.nodes[b]
	if na == nil || nb == nil || na.index < 0 || nb.index < 0 {
		return false
	}
	return na.pre <= nb.pre && nb.post <= na.post
}

// DominatesInstr reports whether def dominates use: either def's block
// strictly dominates use's block, or they are the same block and def
// comes at or before use in instruction order (φ-nodes are deemed to come
// before every non-φ instruction in their block, matching SSA convention).
func (t *Tree) DominatesInstr(def, use ir.Instruction) bool {
	db, ub := def.Block(), use.Block()
	if db == ub {
		if _, ok := def.(*ir.Phi); ok {
			return true
		}
		return ir.IndexOf(def) <= ir.IndexOf(use)
	}
	return t.Dominates(db, ub)
}

type ltState struct {
	sdom     []*ir.BasicBlock
	parent   []*ir.BasicBlock
	ancestor []*ir.BasicBlock
	nodes    map[*ir.BasicBlock]*domInfo
}

func (lt *ltState) idx(b *ir.BasicBlock) int32 { return lt.nodes[b].index }

func (lt *ltState) dfs(v *ir.BasicBlock, i int32, preorder []*ir.BasicBlock) int32 {
	preorder[i] = v
	lt.nodes[v].pre = i
	i++
	lt.sdom[lt.idx(v)] = v
	lt.link(nil, v)
	for _, w := range v.Succs {
		if lt.sdom[lt.idx(w)] == nil {
			lt.parent[lt.idx(w)] = v
			i = lt.dfs(w, i, preorder)
		}
	}
	return i
}

func (lt *ltState) eval(v *ir.BasicBlock) *ir.BasicBlock {
	u := v
	for lt.ancestor[lt.idx(v)] != nil {
		if lt.nodes[lt.sdom[lt.idx(v)]].pre < lt.nodes[lt.sdom[lt.idx(u)]].pre {
			u = v
		}
		v = lt.ancestor[lt.idx(v)]
	}
	return u
}

func (lt *ltState) link(v, w *ir.BasicBlock) { lt.ancestor[lt.idx(w)] = v }

func (t *Tree) build(root *ir.BasicBlock) {
	// Filter to blocks reachable from root; unreachable blocks keep
	// idom==nil (dominance queries against them are simply false, which is
	// the conservative answer the hoist/sink primitives want).
	var reachable []*ir.BasicBlock
	seen := make(map[*ir.BasicBlock]bool)
	var visit func(b *ir.BasicBlock)
	visit = func(b *ir.BasicBlock) {
		if seen[b] {
			return
		}
		seen[b] = true
		t.nodes[b].index = int32(len(reachable))
		reachable = append(reachable, b)
		for _, s := range b.Succs {
			visit(s)
		}
	}
	visit(root)

	n := len(reachable)
	if n == 0 {
		return
	}
	space := make([]*ir.BasicBlock, 5*n)
	lt := ltState{
		sdom:     space[0:n],
		parent:   space[n : 2*n],
		ancestor: space[2*n : 3*n],
		nodes:    t.nodes,
	}
	preorder := space[3*n : 4*n]
	lt.dfs(root, 0, preorder)

	buckets := space[4*n : 5*n]
	copy(buckets, preorder)

	for i := int32(n) - 1; i > 0; i-- {
		w := preorder[i]
		for v := buckets[i]; v != w; v = buckets[lt.nodes[v].pre] {
			u := lt.eval(v)
			if lt.nodes[lt.sdom[lt.idx(u)]].pre < i {
				lt.nodes[v].idom = u
			} else {
				lt.nodes[v].idom = w
			}
		}

		lt.sdom[lt.idx(w)] = lt.parent[lt.idx(w)]
		for _, v := range w.Preds {
			if lt.idx(v) < 0 {
				continue
			}
			u := lt.eval(v)
			if lt.nodes[lt.sdom[lt.idx(u)]].pre < lt.nodes[lt.sdom[lt.idx(w)]].pre {
				lt.sdom[lt.idx(w)] = lt.sdom[lt.idx(u)]
			}
		}

		lt.link(lt.parent[lt.idx(w)], w)

		if lt.parent[lt.idx(w)] == lt.sdom[lt.idx(w)] {
			lt.nodes[w].idom = lt.parent[lt.idx(w)]
		} else {
			buckets[i] = buckets[lt.nodes[lt.sdom[lt.idx(w)]].pre]
			buckets[lt.nodes[lt.sdom[lt.idx(w)]].pre] = w
		}
	}

	for v := buckets[0]; v != preorder[0]; v = buckets[lt.nodes[v].pre] {
		lt.nodes[v].idom = preorder[0]
	}

	for _, w := range preorder[1:] {
		if lt.nodes[w].idom != lt.sdom[lt.idx(w)] {
			lt.nodes[w].idom = lt.nodes[lt.nodes[w].idom].idom
		}
		if lt.nodes[w].idom != nil {
			lt.nodes[lt.nodes[w].idom].children = append(lt.nodes[lt.nodes[w].idom].children, w)
		}
	}

	numberDomTree(t.nodes, root, 0, 0)
}

func numberDomTree(nodes map[*ir.BasicBlock]*domInfo, v *ir.BasicBlock, pre, post int32) (int32, int32) {
	nodes[v].pre = pre
	pre++
	for _, c := range nodes[v].children {
		pre, post = numberDomTree(nodes, c, pre, post)
	}
	nodes[v].post = post
	post++
	return pre, post
}

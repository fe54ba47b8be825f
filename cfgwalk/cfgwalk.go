// Package cfgwalk provides block/edge traversal utilities shared by the
// outliner and the dead-block deleter.
//
// Adapted from gospal's block package (github.com/nickng/gospal
// block/traverser.go, block/visitgraph.go): that package tracks visited
// edges across a whole, possibly-reentrant, interprocedural analysis of
// many ssa.Function values. Nothing here needs that — the pass only ever
// walks the CFG of one already-identified ir.Function at a time — so this
// is the same "visited-set BFS over block edges" idea reduced to a single
// Function, with a plain map instead of gospal's per-function
// edge-visitation table.
package cfgwalk

import "github.com/nickng/loop2cilk/ir"

// TraverseEdges walks fn breadth-first from its entry block and calls
// visit(from, to) once per reachable block, for the first edge by which
// the walk reaches it; later edges into an already-visited block are not
// reported. from is nil for the synthetic entry "edge". Mirrors
// block.TraverseEdges.
func TraverseEdges(fn *ir.Function, visit func(from, to *ir.BasicBlock)) {
	if len(fn.Blocks) == 0 {
		return
	}
	type edge struct{ from, to *ir.BasicBlock }
	visited := make(map[*ir.BasicBlock]bool)
	queue := []edge{{to: fn.Blocks[0]}}
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if !visited[e.to] {
			visited[e.to] = true
			visit(e.from, e.to)
			for _, s := range e.to.Succs {
				queue = append(queue, edge{from: e.to, to: s})
			}
		}
	}
}

// Reachable returns the set of blocks reachable from (and including) from.
func Reachable(from *ir.BasicBlock) map[*ir.BasicBlock]bool {
	seen := map[*ir.BasicBlock]bool{from: true}
	stack := []*ir.BasicBlock{from}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, s := range b.Succs {
			if !seen[s] {
				seen[s] = true
				stack = append(stack, s)
			}
		}
	}
	return seen
}

// Region returns the blocks reachable from entry without ever visiting a
// block in boundary (boundary blocks themselves are excluded from the
// result). Used by the outliner to collect exactly the detached-region
// blocks, stopping at the Reattach's continuation.
func Region(entry *ir.BasicBlock, boundary map[*ir.BasicBlock]bool) []*ir.BasicBlock {
	var region []*ir.BasicBlock
	seen := make(map[*ir.BasicBlock]bool)
	stack := []*ir.BasicBlock{entry}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[b] || boundary[b] {
			continue
		}
		seen[b] = true
		region = append(region, b)
		for _, s := range b.Succs {
			if !seen[s] && !boundary[s] {
				stack = append(stack, s)
			}
		}
	}
	return region
}

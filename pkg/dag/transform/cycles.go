package transform

import (
	"slices"

	"github.com/matzehuels/pangraph/pkg/dag"
)

// FindCycle returns the node ids of one directed cycle in g, in edge order,
// or nil if g is acyclic. The search is an iterative depth-first search, so
// long chains do not grow the goroutine stack.
func FindCycle(g *dag.Graph) []int {
	const (
		white = iota
		gray
		black
	)

	type frame struct{ id, next int }

	n := g.NodeCount()
	color := make([]uint8, n)
	var stack []frame

	for root := range n {
		if color[root] != white {
			continue
		}
		color[root] = gray
		stack = append(stack[:0], frame{id: root})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.Outgoing(top.id)
			if top.next == len(children) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := children[top.next]
			top.next++
			switch color[child] {
			case white:
				color[child] = gray
				stack = append(stack, frame{id: child})
			case gray:
				start := slices.IndexFunc(stack, func(f frame) bool { return f.id == child })
				cycle := make([]int, 0, len(stack)-start)
				for _, f := range stack[start:] {
					cycle = append(cycle, f.id)
				}
				return cycle
			}
		}
	}
	return nil
}

// BackEdges returns every edge that closes a cycle during a depth-first
// search started from the sources and then from any unvisited node. An
// acyclic graph has none. The graph is not modified.
func BackEdges(g *dag.Graph) []dag.Edge {
	const (
		white = iota
		gray
		black
	)

	type frame struct{ id, next int }

	n := g.NodeCount()
	color := make([]uint8, n)
	var back []dag.Edge
	var stack []frame

	visit := func(root int) {
		color[root] = gray
		stack = append(stack[:0], frame{id: root})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.Outgoing(top.id)
			if top.next == len(children) {
				color[top.id] = black
				stack = stack[:len(stack)-1]
				continue
			}
			child := children[top.next]
			top.next++
			switch color[child] {
			case white:
				color[child] = gray
				stack = append(stack, frame{id: child})
			case gray:
				back = append(back, dag.Edge{From: top.id, To: child})
			}
		}
	}

	for _, id := range g.Sources() {
		if color[id] == white {
			visit(id)
		}
	}
	for id := range n {
		if color[id] == white {
			visit(id)
		}
	}
	return back
}

package dag

import (
	"errors"
	"fmt"
	"slices"

	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

var (
	// ErrOutOfRange is returned when a node id is negative or not below
	// [Graph.NodeCount]. It carries the OUT_OF_RANGE code so callers can test
	// it with [perrors.Is].
	ErrOutOfRange = perrors.New(perrors.ErrCodeOutOfRange, "node id out of range")

	// ErrUndefinedNode is returned by [Graph.Validate] when an id below
	// NodeCount was never defined by [Graph.AddNode]. Ids must be dense: a
	// segment file that skips an id leaves a hole in the graph.
	ErrUndefinedNode = errors.New("node id never defined")

	// ErrAsymmetricAdjacency is returned by [Graph.Validate] when a parent's
	// outgoing list and the child's incoming list disagree. This indicates
	// graph corruption and never happens through the public mutators.
	ErrAsymmetricAdjacency = errors.New("adjacency lists are not symmetric")

	// ErrGraphHasCycle is returned by [Graph.Validate] when a cycle is
	// detected. Cycles are detected using an iterative depth-first search with
	// white/gray/black coloring.
	ErrGraphHasCycle = perrors.New(perrors.ErrCodeCyclicGraph, "graph contains a cycle")
)

// Node is one sequence segment of the graph.
//
// X and Y are assigned by the layout engine (see the transform package) or
// restored from a cache file.
type Node struct {
	ID     int     // Dense identifier, 0..N-1 (the segment file uses ID+1)
	Length int     // Number of bases in the segment
	X      float64 // Horizontal position
	Y      float64 // Vertical position
}

// Edge is a directed link between two segments. Edges are identified by
// their endpoints; a graph never holds the same edge twice.
type Edge struct {
	From int // Parent node id
	To   int // Child node id
}

// String returns "from->to".
func (e Edge) String() string { return fmt.Sprintf("%d->%d", e.From, e.To) }

// Graph is a directed graph of sequence segments keyed by dense integer ids.
//
// Every edge is stored twice: in the parent's outgoing list and in the
// child's incoming list. Both lists preserve insertion order and never
// contain duplicates, and the mutators keep them symmetric.
//
// The zero value is not usable - use New to create a valid Graph instance.
// Graph is not safe for concurrent use without external synchronization.
type Graph struct {
	nodes    []Node
	defined  []bool
	outgoing [][]int
	incoming [][]int
	edges    int
}

// New creates an empty graph with room for capacity nodes.
func New(capacity int) *Graph {
	if capacity < 0 {
		capacity = 0
	}
	return &Graph{
		nodes:    make([]Node, 0, capacity),
		defined:  make([]bool, 0, capacity),
		outgoing: make([][]int, 0, capacity),
		incoming: make([][]int, 0, capacity),
	}
}

// AddNode defines node id with the given length, growing storage so that
// NodeCount() > id. Storage never shrinks. Redefining an existing id only
// updates its length. Returns ErrOutOfRange for negative ids.
func (g *Graph) AddNode(id, length int) error {
	if id < 0 {
		return fmt.Errorf("%w: %d", ErrOutOfRange, id)
	}
	for len(g.nodes) <= id {
		n := len(g.nodes)
		g.nodes = append(g.nodes, Node{ID: n})
		g.defined = append(g.defined, false)
		g.outgoing = append(g.outgoing, nil)
		g.incoming = append(g.incoming, nil)
	}
	g.nodes[id].Length = length
	g.defined[id] = true
	return nil
}

// AddEdge adds the edge parent→child to both adjacency lists. Adding an edge
// that already exists is a no-op. Returns ErrOutOfRange if either endpoint
// is not below NodeCount.
func (g *Graph) AddEdge(parent, child int) error {
	if !g.inRange(parent) {
		return fmt.Errorf("%w: parent %d", ErrOutOfRange, parent)
	}
	if !g.inRange(child) {
		return fmt.Errorf("%w: child %d", ErrOutOfRange, child)
	}
	if slices.Contains(g.outgoing[parent], child) {
		return nil
	}
	g.outgoing[parent] = append(g.outgoing[parent], child)
	g.incoming[child] = append(g.incoming[child], parent)
	g.edges++
	return nil
}

// HasEdge reports whether the edge parent→child exists.
func (g *Graph) HasEdge(parent, child int) bool {
	if !g.inRange(parent) {
		return false
	}
	return slices.Contains(g.outgoing[parent], child)
}

// NodeCount returns N, the number of node slots. Valid ids are 0..N-1.
func (g *Graph) NodeCount() int { return len(g.nodes) }

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int { return g.edges }

// Outgoing returns the children of id in insertion order.
// Returns nil if id is out of range. The returned slice should not be
// modified - use it as a read-only view.
func (g *Graph) Outgoing(id int) []int {
	if !g.inRange(id) {
		return nil
	}
	return g.outgoing[id]
}

// Incoming returns the parents of id in insertion order.
// Returns nil if id is out of range. The returned slice should not be
// modified - use it as a read-only view.
func (g *Graph) Incoming(id int) []int {
	if !g.inRange(id) {
		return nil
	}
	return g.incoming[id]
}

// OutDegree returns the number of outgoing edges from the node.
func (g *Graph) OutDegree(id int) int { return len(g.Outgoing(id)) }

// InDegree returns the number of incoming edges to the node. The count is
// derived from the incoming list, so it is always consistent with it.
func (g *Graph) InDegree(id int) int { return len(g.Incoming(id)) }

// Node returns a copy of the node with the given id.
func (g *Graph) Node(id int) (Node, error) {
	if !g.inRange(id) {
		return Node{}, fmt.Errorf("%w: %d", ErrOutOfRange, id)
	}
	return g.nodes[id], nil
}

// Length returns the segment length of id.
func (g *Graph) Length(id int) (int, error) {
	if !g.inRange(id) {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, id)
	}
	return g.nodes[id].Length, nil
}

// MustLength is like Length but panics on an invalid id. Use it where the
// id is already known to be valid.
func (g *Graph) MustLength(id int) int {
	n, err := g.Length(id)
	if err != nil {
		panic(err)
	}
	return n
}

// Position returns the layout coordinates of id.
func (g *Graph) Position(id int) (x, y float64, err error) {
	if !g.inRange(id) {
		return 0, 0, fmt.Errorf("%w: %d", ErrOutOfRange, id)
	}
	return g.nodes[id].X, g.nodes[id].Y, nil
}

// SetPosition stores layout coordinates for id.
func (g *Graph) SetPosition(id int, x, y float64) error {
	if !g.inRange(id) {
		return fmt.Errorf("%w: %d", ErrOutOfRange, id)
	}
	g.nodes[id].X = x
	g.nodes[id].Y = y
	return nil
}

// Nodes returns a copy of all nodes ordered by id.
func (g *Graph) Nodes() []Node { return slices.Clone(g.nodes) }

// Edges returns all edges ordered by parent id, then by insertion order.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, 0, g.edges)
	for from, children := range g.outgoing {
		for _, to := range children {
			edges = append(edges, Edge{From: from, To: to})
		}
	}
	return edges
}

// Sources returns the ids of nodes with no incoming edges, ascending.
func (g *Graph) Sources() []int {
	var ids []int
	for id, in := range g.incoming {
		if len(in) == 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Sinks returns the ids of nodes with no outgoing edges, ascending.
func (g *Graph) Sinks() []int {
	var ids []int
	for id, out := range g.outgoing {
		if len(out) == 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Defined reports whether id was explicitly defined by AddNode.
func (g *Graph) Defined(id int) bool {
	return g.inRange(id) && g.defined[id]
}

// Undefined returns the ids below NodeCount that were never defined.
func (g *Graph) Undefined() []int {
	var ids []int
	for id, ok := range g.defined {
		if !ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// Validate checks graph integrity and returns nil if valid.
// It verifies three constraints:
//
//  1. Every id in 0..N-1 was defined
//  2. Outgoing and incoming lists are symmetric
//  3. The graph is acyclic
//
// Returns ErrUndefinedNode, ErrAsymmetricAdjacency or ErrGraphHasCycle.
// Cycle detection runs in O(N+E) time.
func (g *Graph) Validate() error {
	if missing := g.Undefined(); len(missing) > 0 {
		return fmt.Errorf("%w: %d (and %d more)", ErrUndefinedNode, missing[0], len(missing)-1)
	}
	if err := g.validateSymmetry(); err != nil {
		return err
	}
	return g.detectCycles()
}

func (g *Graph) validateSymmetry() error {
	for from, children := range g.outgoing {
		for _, to := range children {
			if !g.inRange(to) || !slices.Contains(g.incoming[to], from) {
				return fmt.Errorf("%w: %d->%d", ErrAsymmetricAdjacency, from, to)
			}
		}
	}
	total := 0
	for to, parents := range g.incoming {
		for _, from := range parents {
			if !g.inRange(from) || !slices.Contains(g.outgoing[from], to) {
				return fmt.Errorf("%w: %d->%d", ErrAsymmetricAdjacency, from, to)
			}
		}
		total += len(parents)
	}
	if total != g.edges {
		return fmt.Errorf("%w: counted %d edges, expected %d", ErrAsymmetricAdjacency, total, g.edges)
	}
	return nil
}

func (g *Graph) detectCycles() error {
	const (
		white = iota
		gray
		black
	)

	type frame struct{ id, next int }

	color := make([]uint8, len(g.nodes))
	var stack []frame
	for root := range g.nodes {
		if color[root] != white {
			continue
		}
		color[root] = gray
		stack = append(stack[:0], frame{id: root})
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			children := g.outgoing[top.id]
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
				return fmt.Errorf("%w: back edge %d->%d", ErrGraphHasCycle, top.id, child)
			}
		}
	}
	return nil
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:    slices.Clone(g.nodes),
		defined:  slices.Clone(g.defined),
		outgoing: make([][]int, len(g.outgoing)),
		incoming: make([][]int, len(g.incoming)),
		edges:    g.edges,
	}
	for i := range g.outgoing {
		c.outgoing[i] = slices.Clone(g.outgoing[i])
		c.incoming[i] = slices.Clone(g.incoming[i])
	}
	return c
}

func (g *Graph) inRange(id int) bool { return id >= 0 && id < len(g.nodes) }

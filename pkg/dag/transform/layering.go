package transform

import (
	"fmt"

	"github.com/matzehuels/pangraph/pkg/dag"
)

// Point is a 2D coordinate in layout space.
type Point struct {
	X, Y float64
}

// Options configures [AssignPositions].
type Options struct {
	// Origin is the position of the first node visited. Every node shares
	// Origin.Y: the layout is a single row.
	Origin Point
	// Step is the horizontal distance between consecutive nodes. Values
	// <= 0 are replaced by 1.
	Step float64
}

// DefaultOptions places the first node at (0, 0) and advances one unit per
// node, so a chain of five nodes lands on x = 0, 1, 2, 3, 4.
func DefaultOptions() Options {
	return Options{Step: 1}
}

// DesktopLayout returns the pixel constants used by the desktop viewer:
// the first node at (543, 291) and 40 pixels between nodes.
func DesktopLayout() Options {
	return Options{Origin: Point{X: 543, Y: 291}, Step: 40}
}

// LayoutStats summarizes one layout sweep.
type LayoutStats struct {
	Nodes   int     // Nodes positioned
	Sources int     // Nodes seeded into the queue (in-degree 0)
	Width   float64 // Distance between the first and last x
}

// AssignPositions computes a deterministic left-to-right layout and stores
// it in the graph.
//
// # Algorithm
//
// AssignPositions performs a topological traversal (Kahn's algorithm):
//  1. Copy every node's in-degree into a scratch counter
//  2. Seed the queue with all in-degree-0 nodes in ascending id order
//  3. Pop a node and place it one Step right of the previously placed node
//     (the first node goes to Origin.X); y is always Origin.Y
//  4. Decrement the counters of its children in outgoing order and enqueue
//     those that reach zero
//
// Every parent therefore ends up strictly left of all its children. The
// scratch counters belong to the sweep; the graph's adjacency is untouched.
//
// # Cycles
//
// If the sweep cannot visit every node the graph has a cycle. AssignPositions
// then returns an error carrying the CYCLIC_GRAPH code that names how many
// nodes were left unvisited and one cycle found by [FindCycle]. No position is
// written in that case.
//
// # Performance
//
// Time complexity is O(V + E). Space complexity is O(V) for the queue and
// the scratch counters.
func AssignPositions(g *dag.Graph, opts Options) (LayoutStats, error) {
	if opts.Step <= 0 {
		opts.Step = 1
	}

	order, sources, err := kahn(g)
	if err != nil {
		return LayoutStats{}, err
	}

	x := opts.Origin.X
	for i, id := range order {
		if i > 0 {
			x += opts.Step
		}
		if err := g.SetPosition(id, x, opts.Origin.Y); err != nil {
			return LayoutStats{}, err
		}
	}

	stats := LayoutStats{Nodes: len(order), Sources: sources}
	if len(order) > 1 {
		stats.Width = x - opts.Origin.X
	}
	return stats, nil
}

// TopologicalOrder returns the order in which [AssignPositions] visits the
// nodes, without touching their positions.
func TopologicalOrder(g *dag.Graph) ([]int, error) {
	order, _, err := kahn(g)
	return order, err
}

func kahn(g *dag.Graph) (order []int, sources int, err error) {
	n := g.NodeCount()
	inDegree := make([]int, n)
	queue := make([]int, 0, n)

	for id := range n {
		inDegree[id] = g.InDegree(id)
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sources = len(queue)

	order = make([]int, 0, n)
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		order = append(order, curr)

		for _, child := range g.Outgoing(curr) {
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}

	if len(order) != n {
		return nil, sources, fmt.Errorf("%w: layout visited %d of %d nodes, %d unvisited (cycle %v)",
			dag.ErrGraphHasCycle, len(order), n, n-len(order), FindCycle(g))
	}
	return order, sources, nil
}

package window

import (
	"fmt"
	"slices"

	"github.com/matzehuels/pangraph/pkg/dag"
	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

// bitset marks visited node ids.
type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (b bitset) has(i int) bool { return b[i/64]&(1<<(uint(i)%64)) != 0 }
func (b bitset) set(i int)      { b[i/64] |= 1 << (uint(i) % 64) }

// Ancestor walks at most radius hops up from center, always following the
// first parent, and returns where it stopped. The choice between several
// parents is arbitrary but stable for a given graph.
func Ancestor(g *dag.Graph, center, radius int) int {
	curr := center
	for range radius {
		parents := g.Incoming(curr)
		if len(parents) == 0 {
			break
		}
		curr = parents[0]
	}
	return curr
}

// Extract returns the ids of the subgraph around center, ascending.
//
// The walk starts at [Ancestor] (up to radius hops above center) and runs a
// breadth-first search along outgoing edges, keeping every node at most
// 2*radius edges away from that ancestor. center is always included, and
// no node further than 2*radius from the ancestor is. Extract fails with
// OUT_OF_RANGE for an unknown center and INVALID_INPUT for a negative
// radius.
func Extract(g *dag.Graph, center, radius int) ([]int, error) {
	n := g.NodeCount()
	if err := perrors.ValidateNodeID(center, n); err != nil {
		return nil, fmt.Errorf("%w: center %d", dag.ErrOutOfRange, center)
	}
	if radius < 0 {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "radius must be non-negative, got %d", radius)
	}

	limit := n
	if radius <= n/2 {
		limit = 2 * radius
	}

	start := Ancestor(g, center, radius)
	visited := newBitset(n)
	visited.set(start)
	ids := []int{start}

	type item struct{ id, depth int }
	queue := []item{{start, 0}}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		if curr.depth == limit {
			continue
		}
		for _, child := range g.Outgoing(curr.id) {
			if visited.has(child) {
				continue
			}
			visited.set(child)
			ids = append(ids, child)
			queue = append(queue, item{child, curr.depth + 1})
		}
	}

	slices.Sort(ids)
	return ids, nil
}

package window

import "github.com/matzehuels/pangraph/pkg/dag"

const (
	// FinalSeg marks the last hop of a chain, the one that enters the
	// edge's true destination.
	FinalSeg = -1
	// NoPrev is the Prev value of a chain's first hop, whose predecessor is
	// the edge's source node rather than another dummy.
	NoPrev = -2
)

// DummyNode is a routing point for an edge that skips visible layers.
// Every intermediate layer crossed by the edge gets one DummyNode.
type DummyNode struct {
	From int     // Source node of the edge
	To   int     // Destination node of the edge
	Seg  int     // Hop index from 0, FinalSeg on the last hop
	Prev int     // Seg of the preceding hop, NoPrev on the first
	X    float64 // Layer position
	Y    float64
}

// IsFirst reports whether d directly follows the edge's source node.
func (d DummyNode) IsFirst() bool { return d.Prev == NoPrev }

// IsFinal reports whether d directly precedes the edge's destination node.
func (d DummyNode) IsFinal() bool { return d.Seg == FinalSeg }

// Follows reports whether d is the hop right after p on the same edge.
func (d DummyNode) Follows(p DummyNode) bool {
	return d.From == p.From && d.To == p.To && p.Seg != FinalSeg && d.Prev == p.Seg
}

// DummyChain is the sequence of dummies that routes one long edge.
type DummyChain struct {
	Edge dag.Edge
	Hops []DummyNode
}

// chain builds the hops for edge e, which spans ranks from < r < to.
func (w *Window) chain(e dag.Edge) DummyChain {
	from, to := w.rank[e.From], w.rank[e.To]
	_, y, _ := w.g.Position(e.From)
	y += w.lane

	hops := make([]DummyNode, 0, to-from-1)
	prev := NoPrev
	for r := from + 1; r < to; r++ {
		x, _, _ := w.g.Position(w.order[r])
		seg := r - from - 1
		if r == to-1 {
			seg = FinalSeg
		}
		hops = append(hops, DummyNode{From: e.From, To: e.To, Seg: seg, Prev: prev, X: x, Y: y})
		prev = seg
	}
	return DummyChain{Edge: e, Hops: hops}
}

// long reports whether an edge between two visible ranks skips a layer.
func long(fromRank, toRank int) bool { return toRank-fromRank > 1 }

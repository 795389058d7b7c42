package genome

import "github.com/matzehuels/pangraph/pkg/dag"

// EdgeWidths returns, for every outgoing edge of id (in outgoing order),
// the number of genomes that traverse both endpoints.
//
// One correction applies where branches merge: among the visible children
// take the right-most one. If it has several parents and id has several
// children, genomes that reach it from other visible parents are already
// drawn on those edges, so they are subtracted from this edge. Widths never
// drop below zero.
func EdgeWidths(x *Index, g *dag.Graph, id int, visible func(int) bool) []int {
	out := g.Outgoing(id)
	widths := make([]int, len(out))
	for i, child := range out {
		widths[i] = x.Shared(id, child)
	}

	right := -1
	var rightX float64
	for i, child := range out {
		if !visible(child) {
			continue
		}
		cx, _, _ := g.Position(child)
		if right < 0 || cx > rightX {
			right, rightX = i, cx
		}
	}
	if right < 0 || len(out) < 2 {
		return widths
	}

	merge := out[right]
	parents := g.Incoming(merge)
	if len(parents) < 2 {
		return widths
	}
	for _, p := range parents {
		if p != id && visible(p) {
			widths[right] -= x.Shared(merge, p)
		}
	}
	if widths[right] < 0 {
		widths[right] = 0
	}
	return widths
}

// StrokeWidth maps an edge width to a line thickness between 1 and 6:
// 1 + 5 * width / genomes. With no genomes every edge is 1.
func StrokeWidth(width, genomes int) float64 {
	if genomes <= 0 {
		return 1
	}
	return 1 + 5*float64(width)/float64(genomes)
}

// Package transform computes layouts over a [dag.Graph].
//
// # Overview
//
// A pangenome graph is laid out once, right after parsing, and the result is
// cached next to the source file. Windows then select ranges of that layout
// without recomputing it. The layout is a single left-to-right row: node
// order follows a topological sort, so every edge points to the right.
//
// # Layout
//
// [AssignPositions] runs Kahn's algorithm and writes X/Y coordinates into
// the graph. [TopologicalOrder] returns the same visiting order without
// touching positions. [DefaultOptions] uses unit spacing; [DesktopLayout]
// reproduces the pixel constants of the desktop viewer.
//
// # Cycles
//
// GFA files occasionally contain cycles (inversions, repeats). The layout
// refuses them with a CYCLIC_GRAPH error. [FindCycle] returns one offending
// cycle for the error message and [BackEdges] lists every edge that closes
// one, which is useful when inspecting a broken input.
//
// # Usage
//
//	stats, err := transform.AssignPositions(g, transform.DefaultOptions())
//	if err != nil {
//	    return err // errors.Is(err, dag.ErrGraphHasCycle)
//	}
//
// [dag.Graph]: github.com/matzehuels/pangraph/pkg/dag.Graph
package transform

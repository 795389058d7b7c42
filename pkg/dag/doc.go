// Package dag provides the in-memory directed graph of sequence segments
// used by pangraph.
//
// # Overview
//
// A pangenome graph is read from a GFA file where every S line defines a
// segment and every L line links two segments. This package stores that
// graph with dense integer ids: the segment "1" of a GFA file becomes node
// 0, "2" becomes node 1, and so on. Adjacency is kept in two insertion-ordered
// lists per node (children and parents) that are always symmetric.
//
// # Basic Usage
//
// Create a graph with [New], define segments with [Graph.AddNode], and link
// them with [Graph.AddEdge]:
//
//	g := dag.New(3)
//	g.AddNode(0, 120)
//	g.AddNode(1, 4)
//	g.AddEdge(0, 1)
//
// Query the structure with [Graph.Outgoing], [Graph.Incoming],
// [Graph.Length] and related methods. Use [Graph.Validate] to verify
// structural integrity after loading.
//
// # Positions
//
// Every node carries X and Y coordinates. They are assigned once, by the
// layout sweep in the [transform] subpackage, or restored from a cache file.
// Windows never re-layout the graph; they only select which nodes to show.
//
// # Errors
//
// Accessors that take an id return [ErrOutOfRange] (code OUT_OF_RANGE) for
// ids outside 0..N-1. [Graph.MustLength] panics instead and is meant for ids
// that are already known to be valid.
//
// # Concurrency
//
// Graph instances are not safe for concurrent use. A loaded graph is never
// mutated again except for positions, so readers may
// share it once loading has finished.
//
// [transform]: github.com/matzehuels/pangraph/pkg/dag/transform
package dag

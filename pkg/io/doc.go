// Package io provides JSON import and export for laid-out graphs and
// window views.
//
// # Overview
//
// Two documents are supported:
//
//   - A graph document holds every node with its length and coordinates,
//     and every edge. It round-trips through [WriteJSON] and [ReadJSON].
//   - A view document describes what one window shows: the visible nodes
//     with their display geometry and colors, the visible edges with their
//     genome widths, and the dummy chains routing long edges. It is built by
//     [NewView] and consumed by the HTTP API and the DOT renderer.
//
// # Graph Format
//
//	{
//	  "nodes": [
//	    {"id": 0, "length": 12, "x": 0, "y": 0},
//	    {"id": 1, "length": 3, "x": 1, "y": 0}
//	  ],
//	  "edges": [
//	    {"from": 0, "to": 1}
//	  ]
//	}
//
// Node ids must be dense (0..N-1). [ReadJSON] validates the result with
// [dag.Graph.Validate], so a document with holes, dangling edges or cycles
// is rejected.
//
// # View Format
//
//	{
//	  "center": 0, "radius": 2, "lo": 0, "hi": 2,
//	  "nodes": [{"id": 0, "length": 12, "x": 0, "y": 0, "width": 0.4,
//	             "height": 0.5, "color": "#dc143c"}],
//	  "edges": [{"from": 0, "to": 2, "genomes": 3, "width": 6}],
//	  "chains": [{"from": 0, "to": 2, "hops": [{"seg": -1, "prev": -2, "x": 1, "y": 0.5}]}]
//	}
//
// # Concurrency
//
// All functions in this package are safe to call concurrently with other
// readers of the same graph. [ReadJSON] and [ImportJSON] create independent
// graphs.
package io

// Package nodelink renders window views as node-link diagrams.
//
// # Overview
//
// Nodes appear as rounded boxes at their layout positions, filled with the
// color their conditions blend to. Edges are drawn with a stroke width that
// grows with the number of genomes on them, and long edges are routed
// through their dummy hops.
//
// # Usage
//
// Convert a view to DOT format, then render to SVG:
//
//	view := io.NewView(w.Snapshot(), io.ViewOptions{Graph: g, Genomes: idx, Conditions: set})
//	dot := nodelink.ToDOT(view, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(dot)
//
// For PDF or PNG output, use the render functions:
//
//	pdf, err := nodelink.RenderPDF(dot)
//	png, err := nodelink.RenderPNG(dot, 2.0)  // 2x scale
//
// # DOT Format
//
// Every node carries a pinned position (pos="x,y!"), so the DOT source is
// meant for the neato engine, which [RenderSVG] selects. Layout y grows
// downwards; DOT y grows upwards, so y is negated.
//
// # Dependencies
//
// This package uses [github.com/goccy/go-graphviz] for in-process SVG
// rendering. PDF and PNG conversion requires librsvg (rsvg-convert).
package nodelink

// Package render converts window views into images.
//
// # Overview
//
// The [nodelink] subpackage turns a view into Graphviz DOT with every node
// pinned at its layout position, and renders it to SVG in process. This
// package adds generic format conversion on top:
//
//	dot := nodelink.ToDOT(view, nodelink.Options{})
//	svg, err := nodelink.RenderSVG(dot)
//	pdf, err := render.ToPDF(svg)
//	png, err := render.ToPNG(svg, 2.0)  // 2x scale
//
// # Format Conversion
//
// [ToPDF] and [ToPNG] use the external rsvg-convert tool (from librsvg).
//
// [nodelink]: github.com/matzehuels/pangraph/pkg/render/nodelink
package render

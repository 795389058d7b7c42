package nodelink

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	pio "github.com/matzehuels/pangraph/pkg/io"
	"github.com/matzehuels/pangraph/pkg/render"
	"github.com/matzehuels/pangraph/pkg/window"
)

// Options configures node-link diagram rendering.
type Options struct {
	// Detailed includes the segment length and genome count in node labels.
	// When false, only the 1-based segment id is shown.
	Detailed bool

	// Scale converts layout units to inches. Zero means 1.
	Scale float64
}

// ToDOT converts a view to Graphviz DOT format.
// The resulting DOT string can be rendered using [RenderSVG], [RenderPDF], or [RenderPNG].
//
// Dummy hops become invisible point nodes. The edge into the first hop
// carries no arrowhead; only the final hop points at the destination.
func ToDOT(v pio.View, opts Options) string {
	scale := opts.Scale
	if scale <= 0 {
		scale = 1
	}

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  layout=neato;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  splines=true;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fixedsize=true, fontsize=10, fontcolor=white];\n")
	buf.WriteString("  edge [arrowsize=0.5];\n")
	buf.WriteString("\n")

	for _, n := range v.Nodes {
		attrs := []string{
			fmt.Sprintf("label=%q", fmtLabel(n, opts.Detailed)),
			fmt.Sprintf("pos=%q", fmtPos(n.X, n.Y, scale)),
			"width=" + fmtFloat(n.Width*scale),
			"height=" + fmtFloat(n.Height*scale),
			fmt.Sprintf("fillcolor=%q", n.Color),
		}
		fmt.Fprintf(&buf, "  %s [%s];\n", nodeName(n.ID), strings.Join(attrs, ", "))
	}

	hasChain := make(map[[2]int]bool, len(v.Chains))
	if len(v.Chains) > 0 {
		buf.WriteString("\n")
	}
	for _, c := range v.Chains {
		hasChain[[2]int{c.From, c.To}] = true
		for _, h := range c.Hops {
			fmt.Fprintf(&buf, "  %s [shape=point, width=0.01, label=\"\", pos=%q];\n",
				hopName(c.From, c.To, h), fmtPos(h.X, h.Y, scale))
		}
	}

	buf.WriteString("\n")
	for _, e := range v.Edges {
		pen := "penwidth=" + fmtFloat(e.Width)
		if !hasChain[[2]int{e.From, e.To}] {
			fmt.Fprintf(&buf, "  %s -> %s [%s];\n", nodeName(e.From), nodeName(e.To), pen)
			continue
		}
		prev := nodeName(e.From)
		for _, c := range v.Chains {
			if c.From != e.From || c.To != e.To {
				continue
			}
			for _, h := range c.Hops {
				next := hopName(c.From, c.To, h)
				fmt.Fprintf(&buf, "  %s -> %s [%s, arrowhead=none];\n", prev, next, pen)
				prev = next
			}
		}
		fmt.Fprintf(&buf, "  %s -> %s [%s];\n", prev, nodeName(e.To), pen)
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeName(id int) string { return "n" + strconv.Itoa(id) }

func hopName(from, to int, h pio.Hop) string {
	seg := strconv.Itoa(h.Seg)
	if h.Seg == window.FinalSeg {
		seg = "f"
	}
	return fmt.Sprintf("d%d_%d_%s", from, to, seg)
}

func fmtPos(x, y, scale float64) string {
	return fmtFloat(x*scale) + "," + fmtFloat(0-y*scale) + "!"
}

func fmtFloat(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

func fmtLabel(n pio.ViewNode, detailed bool) string {
	id := strconv.Itoa(n.ID + 1)
	if !detailed {
		return id
	}
	return fmt.Sprintf("%s\n%d bp\n%d genomes", id, n.Length, n.Genomes)
}

// RenderSVG renders a DOT graph to SVG using the Graphviz neato engine.
// Returns the SVG bytes ready for display or further conversion with [render.ToPDF] or [render.ToPNG].
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()
	gv.SetLayout(graphviz.NEATO)

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's svg tag with one that scales
// cleanly when embedded.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	newSvg := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)

	return svgTagRe.ReplaceAll(svg, []byte(newSvg))
}

// RenderPDF renders a DOT graph as PDF via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPDF].
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPDF(dot string) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPDF(svg)
}

// RenderPNG renders a DOT graph as PNG via SVG conversion.
// This is a convenience wrapper around [RenderSVG] and [render.ToPNG].
//
// A scale of 2.0 produces a 2x resolution image suitable for high-DPI displays.
//
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func RenderPNG(dot string, scale float64) ([]byte, error) {
	svg, err := RenderSVG(dot)
	if err != nil {
		return nil, err
	}
	return render.ToPNG(svg, scale)
}

package io

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/matzehuels/pangraph/pkg/condition"
	"github.com/matzehuels/pangraph/pkg/dag"
	"github.com/matzehuels/pangraph/pkg/genome"
	"github.com/matzehuels/pangraph/pkg/window"
)

// View is the JSON form of one window.
type View struct {
	Center int        `json:"center"`
	Radius int        `json:"radius"`
	Lo     int        `json:"lo"`
	Hi     int        `json:"hi"`
	Nodes  []ViewNode `json:"nodes"`
	Edges  []ViewEdge `json:"edges"`
	Chains []Chain    `json:"chains"`
}

// ViewNode is a visible node with its geometry and colors.
type ViewNode struct {
	ID      int      `json:"id"`
	Length  int      `json:"length"`
	X       float64  `json:"x"`
	Y       float64  `json:"y"`
	Width   float64  `json:"width"`
	Height  float64  `json:"height"`
	Color   string   `json:"color"`            // Blended fill
	Colors  []string `json:"colors,omitempty"` // One per matching condition
	Genomes int      `json:"genomes,omitempty"`
}

// ViewEdge is an edge between two visible nodes.
type ViewEdge struct {
	From    int     `json:"from"`
	To      int     `json:"to"`
	Genomes int     `json:"genomes"` // Genomes drawn on this edge
	Width   float64 `json:"width"`   // Stroke width, 1 to 6
	Long    bool    `json:"long,omitempty"`
}

// Chain routes one long edge through its dummy hops.
type Chain struct {
	From int   `json:"from"`
	To   int   `json:"to"`
	Hops []Hop `json:"hops"`
}

// Hop is one dummy node of a chain.
type Hop struct {
	Seg  int     `json:"seg"`
	Prev int     `json:"prev"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// ViewOptions supplies the annotations of a view. Every field is optional.
type ViewOptions struct {
	Graph      *dag.Graph     // Required for edge widths
	Genomes    *genome.Index  // Genome counts and edge widths
	Conditions *condition.Set // Node colors, Neutral when nil
}

// NewView converts a window snapshot into its JSON form.
func NewView(snap window.Snapshot, opts ViewOptions) View {
	v := View{
		Center: snap.Center,
		Radius: snap.Radius,
		Lo:     snap.Lo,
		Hi:     snap.Hi,
		Nodes:  make([]ViewNode, 0, len(snap.Nodes)),
		Edges:  make([]ViewEdge, 0, len(snap.Edges)),
		Chains: make([]Chain, 0, len(snap.Chains)),
	}

	visible := make(map[int]bool, len(snap.Nodes))
	for _, n := range snap.Nodes {
		visible[n.ID] = true

		vn := ViewNode{
			ID:     n.ID,
			Length: n.Length,
			X:      n.X,
			Y:      n.Y,
			Width:  n.Width,
			Height: n.Height,
			Color:  condition.Neutral.Hex(),
		}
		if opts.Conditions != nil {
			colors := opts.Conditions.ColorsFor(n)
			vn.Color = condition.Blend(colors).Hex()
			for _, c := range colors {
				vn.Colors = append(vn.Colors, c.Hex())
			}
		}
		if opts.Genomes != nil {
			vn.Genomes = opts.Genomes.Count(n.ID)
		}
		v.Nodes = append(v.Nodes, vn)
	}

	widths := edgeWidths(snap, opts, func(id int) bool { return visible[id] })
	long := make(map[dag.Edge]bool, len(snap.Chains))
	for _, c := range snap.Chains {
		long[c.Edge] = true
	}
	genomes := 0
	if opts.Genomes != nil {
		genomes = opts.Genomes.NumGenomes()
	}
	for _, e := range snap.Edges {
		w := widths[e]
		v.Edges = append(v.Edges, ViewEdge{
			From:    e.From,
			To:      e.To,
			Genomes: w,
			Width:   genome.StrokeWidth(w, genomes),
			Long:    long[e],
		})
	}

	for _, c := range snap.Chains {
		ch := Chain{From: c.Edge.From, To: c.Edge.To, Hops: make([]Hop, len(c.Hops))}
		for i, h := range c.Hops {
			ch.Hops[i] = Hop{Seg: h.Seg, Prev: h.Prev, X: h.X, Y: h.Y}
		}
		v.Chains = append(v.Chains, ch)
	}
	return v
}

func edgeWidths(snap window.Snapshot, opts ViewOptions, visible func(int) bool) map[dag.Edge]int {
	widths := make(map[dag.Edge]int, len(snap.Edges))
	if opts.Graph == nil || opts.Genomes == nil {
		return widths
	}
	for _, n := range snap.Nodes {
		out := opts.Graph.Outgoing(n.ID)
		for i, w := range genome.EdgeWidths(opts.Genomes, opts.Graph, n.ID, visible) {
			widths[dag.Edge{From: n.ID, To: out[i]}] = w
		}
	}
	return widths
}

// WriteView encodes v as indented JSON.
func WriteView(v View, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode view: %w", err)
	}
	return nil
}

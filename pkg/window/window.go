// Package window selects the part of a laid-out graph that is on screen and
// keeps that selection up to date as the user zooms.
//
// # Overview
//
// The layout places every node on one row in topological order, so each
// node has a rank: its index in that order. A [Window] always shows a
// contiguous range of ranks [lo, hi]. Zooming moves the ends of the range one
// rank at a time and only touches what enters or leaves the screen; the
// graph is never laid out again.
//
// # Centering
//
// [Window.SetCenter] runs [Extract] around a node and shows the smallest
// range of ranks that covers the result. Nodes inside that range which the
// extraction did not reach are shown too, so the range stays contiguous.
//
// # Long Edges
//
// An edge between two visible nodes whose ranks are more than one apart
// crosses the layers in between. It is routed through a [DummyChain] with
// one [DummyNode] per crossed layer. Edges with an endpoint off screen get
// no chain.
//
// # Concurrency
//
// All methods are safe for concurrent use. Mutations are serialized by a
// mutex; the underlying graph is only read.
package window

import (
	"cmp"
	"math"
	"slices"
	"sync"

	"github.com/matzehuels/pangraph/pkg/dag"
	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

// MinNodes is the size below which shrinking stops.
const MinNodes = 3

// DrawNode is a visible node with its display geometry.
type DrawNode struct {
	ID     int
	Length int
	X      float64 // Center of the node
	Y      float64
	Width  float64
	Height float64
}

// Delta describes what one window operation changed.
type Delta struct {
	Added         []DrawNode
	Removed       []int
	AddedChains   []DummyChain
	RemovedChains []dag.Edge
}

// Empty reports whether the operation changed nothing.
func (d Delta) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 &&
		len(d.AddedChains) == 0 && len(d.RemovedChains) == 0
}

func (d *Delta) merge(o Delta) {
	d.Added = append(d.Added, o.Added...)
	d.Removed = append(d.Removed, o.Removed...)
	d.AddedChains = append(d.AddedChains, o.AddedChains...)
	d.RemovedChains = append(d.RemovedChains, o.RemovedChains...)
}

// Snapshot is a consistent copy of the window state.
type Snapshot struct {
	Center int
	Radius int
	Lo, Hi int        // Rank range, Hi < Lo when empty
	Nodes  []DrawNode // In rank order
	Edges  []dag.Edge // Edges with both endpoints visible
	Chains []DummyChain
}

// Option configures a Window.
type Option func(*Window)

// WithWidth sets the function mapping a segment length to a display width.
func WithWidth(fn func(length int) float64) Option {
	return func(w *Window) { w.width = fn }
}

// WithHeight sets the display height of every node.
func WithHeight(h float64) Option {
	return func(w *Window) { w.height = h }
}

// WithLane sets the vertical offset of dummy chains from their source node.
func WithLane(dy float64) Option {
	return func(w *Window) { w.lane = dy }
}

// Window is the visible part of one graph.
type Window struct {
	mu sync.Mutex

	g     *dag.Graph
	order []int // rank → id
	rank  []int // id → rank

	ready          bool
	lo, hi         int
	center, radius int
	chains         map[dag.Edge]DummyChain

	step   float64
	width  func(int) float64
	height float64
	lane   float64
}

// New creates an empty window over g. Ranks follow the node x coordinates
// (ties broken by id), so g must already be laid out.
func New(g *dag.Graph, opts ...Option) *Window {
	n := g.NodeCount()
	nodes := g.Nodes()
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return cmp.Compare(nodes[a].X, nodes[b].X)
	})
	rank := make([]int, n)
	for r, id := range order {
		rank[id] = r
	}

	step := 1.0
	if n > 1 {
		if s := (nodes[order[n-1]].X - nodes[order[0]].X) / float64(n-1); s > 0 {
			step = s
		}
	}

	w := &Window{
		g:      g,
		order:  order,
		rank:   rank,
		chains: map[dag.Edge]DummyChain{},
		hi:     -1,
		step:   step,
		height: step / 2,
		lane:   step,
	}
	w.width = w.defaultWidth
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// defaultWidth grows logarithmically with the segment length and stays
// between 20% and 80% of the spacing between nodes.
func (w *Window) defaultWidth(length int) float64 {
	f := 0.2 + 0.06*math.Log2(float64(length)+1)
	return w.step * min(max(f, 0.2), 0.8)
}

// Graph returns the graph the window selects from.
func (w *Window) Graph() *dag.Graph { return w.g }

// Rank returns the topological rank of id.
func (w *Window) Rank(id int) (int, error) {
	if err := perrors.ValidateNodeID(id, len(w.rank)); err != nil {
		return 0, err
	}
	return w.rank[id], nil
}

// SetCenter shows the subgraph extracted around center with the given
// radius, replacing the current range.
func (w *Window) SetCenter(center, radius int) error {
	ids, err := Extract(w.g, center, radius)
	if err != nil {
		return err
	}

	lo, hi := len(w.order), -1
	for _, id := range ids {
		lo = min(lo, w.rank[id])
		hi = max(hi, w.rank[id])
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.center, w.radius = center, radius
	w.reset(lo, hi)
	return nil
}

// SetRange shows ranks lo through hi inclusive.
func (w *Window) SetRange(lo, hi int) error {
	n := len(w.order)
	if lo < 0 || hi >= n || lo > hi {
		return perrors.New(perrors.ErrCodeOutOfRange, "rank range [%d, %d] outside [0, %d)", lo, hi, n)
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.center = w.order[lo]
	w.reset(lo, hi)
	return nil
}

func (w *Window) reset(lo, hi int) {
	w.ready = true
	w.lo, w.hi = lo, hi
	clear(w.chains)
	for r := lo; r <= hi; r++ {
		from := w.order[r]
		for _, to := range w.g.Outgoing(from) {
			if tr := w.rank[to]; tr <= hi && long(r, tr) {
				e := dag.Edge{From: from, To: to}
				w.chains[e] = w.chain(e)
			}
		}
	}
}

// GrowLeaf shows the next node to the right. It is a no-op when the window
// already reaches the last rank.
func (w *Window) GrowLeaf() Delta {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.growLeaf()
}

func (w *Window) growLeaf() Delta {
	var d Delta
	if !w.ready || w.hi == len(w.order)-1 {
		return d
	}
	w.hi++
	id := w.order[w.hi]
	d.Added = append(d.Added, w.drawNode(id))
	for _, p := range w.g.Incoming(id) {
		if pr := w.rank[p]; pr >= w.lo && long(pr, w.hi) {
			e := dag.Edge{From: p, To: id}
			c := w.chain(e)
			w.chains[e] = c
			d.AddedChains = append(d.AddedChains, c)
		}
	}
	return d
}

// GrowRoot shows the next node to the left. It is a no-op when the window
// already reaches rank 0.
func (w *Window) GrowRoot() Delta {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.growRoot()
}

func (w *Window) growRoot() Delta {
	var d Delta
	if !w.ready || w.lo == 0 {
		return d
	}
	w.lo--
	id := w.order[w.lo]
	d.Added = append(d.Added, w.drawNode(id))
	for _, c := range w.g.Outgoing(id) {
		if cr := w.rank[c]; cr <= w.hi && long(w.lo, cr) {
			e := dag.Edge{From: id, To: c}
			ch := w.chain(e)
			w.chains[e] = ch
			d.AddedChains = append(d.AddedChains, ch)
		}
	}
	return d
}

// ShrinkLeaf hides the right-most node. It is a no-op when MinNodes or
// fewer nodes are visible.
func (w *Window) ShrinkLeaf() Delta {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shrinkLeaf()
}

func (w *Window) shrinkLeaf() Delta {
	var d Delta
	if !w.ready || w.size() <= MinNodes {
		return d
	}
	id := w.order[w.hi]
	w.hi--
	d.Removed = append(d.Removed, id)
	for _, p := range w.g.Incoming(id) {
		e := dag.Edge{From: p, To: id}
		if _, ok := w.chains[e]; ok {
			delete(w.chains, e)
			d.RemovedChains = append(d.RemovedChains, e)
		}
	}
	return d
}

// ShrinkRoot hides the left-most node. It is a no-op when MinNodes or
// fewer nodes are visible.
func (w *Window) ShrinkRoot() Delta {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.shrinkRoot()
}

func (w *Window) shrinkRoot() Delta {
	var d Delta
	if !w.ready || w.size() <= MinNodes {
		return d
	}
	id := w.order[w.lo]
	w.lo++
	d.Removed = append(d.Removed, id)
	for _, c := range w.g.Outgoing(id) {
		e := dag.Edge{From: id, To: c}
		if _, ok := w.chains[e]; ok {
			delete(w.chains, e)
			d.RemovedChains = append(d.RemovedChains, e)
		}
	}
	return d
}

// ZoomOut grows the window by one node on each side, leaf side first.
func (w *Window) ZoomOut() Delta {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.growLeaf()
	d.merge(w.growRoot())
	return d
}

// ZoomIn shrinks the window by one node on each side, leaf side first.
// Each side stops independently at MinNodes.
func (w *Window) ZoomIn() Delta {
	w.mu.Lock()
	defer w.mu.Unlock()
	d := w.shrinkLeaf()
	d.merge(w.shrinkRoot())
	return d
}

// Zoom applies |steps| zoom operations: ZoomOut for positive steps, ZoomIn
// for negative ones.
func (w *Window) Zoom(steps int) Delta {
	var d Delta
	for ; steps > 0; steps-- {
		d.merge(w.ZoomOut())
	}
	for ; steps < 0; steps++ {
		d.merge(w.ZoomIn())
	}
	return d
}

func (w *Window) size() int { return w.hi - w.lo + 1 }

// Len returns the number of visible nodes.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.ready {
		return 0
	}
	return w.size()
}

// Range returns the visible rank range. hi < lo when nothing is visible.
func (w *Window) Range() (lo, hi int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lo, w.hi
}

// Center returns the node and radius of the last SetCenter call.
func (w *Window) Center() (center, radius int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.center, w.radius
}

// Contains reports whether id is visible.
func (w *Window) Contains(id int) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.contains(id)
}

func (w *Window) contains(id int) bool {
	if !w.ready || id < 0 || id >= len(w.rank) {
		return false
	}
	r := w.rank[id]
	return r >= w.lo && r <= w.hi
}

// Node returns the visible node id.
func (w *Window) Node(id int) (DrawNode, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.contains(id) {
		return DrawNode{}, false
	}
	return w.drawNode(id), true
}

// Visible returns the visible nodes in rank order.
func (w *Window) Visible() []DrawNode {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.visible()
}

func (w *Window) visible() []DrawNode {
	if !w.ready {
		return nil
	}
	nodes := make([]DrawNode, 0, w.size())
	for r := w.lo; r <= w.hi; r++ {
		nodes = append(nodes, w.drawNode(w.order[r]))
	}
	return nodes
}

// DummyChains returns the chains of all visible long edges, ordered by the
// rank of their source and then of their destination.
func (w *Window) DummyChains() []DummyChain {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dummyChains()
}

func (w *Window) dummyChains() []DummyChain {
	chains := make([]DummyChain, 0, len(w.chains))
	for _, c := range w.chains {
		chains = append(chains, c)
	}
	slices.SortFunc(chains, func(a, b DummyChain) int {
		if c := cmp.Compare(w.rank[a.Edge.From], w.rank[b.Edge.From]); c != 0 {
			return c
		}
		return cmp.Compare(w.rank[a.Edge.To], w.rank[b.Edge.To])
	})
	return chains
}

// Snapshot returns a consistent copy of everything on screen.
func (w *Window) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	s := Snapshot{
		Center: w.center,
		Radius: w.radius,
		Lo:     w.lo,
		Hi:     w.hi,
		Nodes:  w.visible(),
		Chains: w.dummyChains(),
	}
	if w.ready {
		for r := w.lo; r <= w.hi; r++ {
			from := w.order[r]
			for _, to := range w.g.Outgoing(from) {
				if w.contains(to) {
					s.Edges = append(s.Edges, dag.Edge{From: from, To: to})
				}
			}
		}
	}
	return s
}

func (w *Window) drawNode(id int) DrawNode {
	n, _ := w.g.Node(id)
	return DrawNode{
		ID:     id,
		Length: n.Length,
		X:      n.X,
		Y:      n.Y,
		Width:  w.width(n.Length),
		Height: w.height,
	}
}

package window

import (
	"fmt"
	"strings"

	"github.com/matzehuels/pangraph/pkg/dag"
	perrors "github.com/matzehuels/pangraph/pkg/errors"
	"github.com/matzehuels/pangraph/pkg/genome"
)

// TargetKind distinguishes what a click landed on.
type TargetKind int

const (
	// TargetNode is a click on a segment.
	TargetNode TargetKind = iota
	// TargetEdge is a click on a link or one of its dummies.
	TargetEdge
)

// String returns "node" or "edge".
func (k TargetKind) String() string {
	switch k {
	case TargetNode:
		return "node"
	case TargetEdge:
		return "edge"
	}
	return fmt.Sprintf("TargetKind(%d)", int(k))
}

// Target is a clickable element of the window.
type Target struct {
	Kind TargetKind
	Node int      // Set for TargetNode
	Edge dag.Edge // Set for TargetEdge
}

// NodeTarget returns a target for node id.
func NodeTarget(id int) Target { return Target{Kind: TargetNode, Node: id} }

// EdgeTarget returns a target for the edge from→to.
func EdgeTarget(from, to int) Target {
	return Target{Kind: TargetEdge, Edge: dag.Edge{From: from, To: to}}
}

// Handler reacts to clicks. The returned string is a message for the user.
type Handler interface {
	HandleNode(w *Window, id int) (string, error)
	HandleEdge(w *Window, e dag.Edge) (string, error)
}

// Click dispatches t to h. Targets that are not on screen are rejected with
// OUT_OF_RANGE.
func (w *Window) Click(t Target, h Handler) (string, error) {
	switch t.Kind {
	case TargetNode:
		if !w.Contains(t.Node) {
			return "", perrors.New(perrors.ErrCodeOutOfRange, "node %d is not visible", t.Node)
		}
		return h.HandleNode(w, t.Node)
	case TargetEdge:
		if !w.Contains(t.Edge.From) || !w.Contains(t.Edge.To) || !w.g.HasEdge(t.Edge.From, t.Edge.To) {
			return "", perrors.New(perrors.ErrCodeOutOfRange, "edge %s is not visible", t.Edge)
		}
		return h.HandleEdge(w, t.Edge)
	}
	return "", perrors.New(perrors.ErrCodeInvalidInput, "unknown target kind %v", t.Kind)
}

// CenterHandler recenters the window on a clicked node.
type CenterHandler struct {
	Radius int
}

// HandleNode recenters on id.
func (h CenterHandler) HandleNode(w *Window, id int) (string, error) {
	if err := w.SetCenter(id, h.Radius); err != nil {
		return "", err
	}
	return fmt.Sprintf("centered on node %d (radius %d, %d nodes visible)", id, h.Radius, w.Len()), nil
}

// HandleEdge describes the edge.
func (h CenterHandler) HandleEdge(w *Window, e dag.Edge) (string, error) {
	return fmt.Sprintf("edge from node %d to node %d", e.From, e.To), nil
}

// SegmentReader returns segment text by node id.
type SegmentReader interface {
	Get(id int) (string, error)
}

// InfoHandler describes clicked elements without changing the window.
type InfoHandler struct {
	Segments    SegmentReader // Optional
	Genomes     *genome.Index // Optional
	MaxSequence int           // Sequence characters shown, 0 for 80
}

// HandleNode describes id: length, genomes and the start of its sequence.
func (h InfoHandler) HandleNode(w *Window, id int) (string, error) {
	length, err := w.g.Length(id)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "node %d: %d bp", id, length)
	if h.Genomes != nil {
		names := h.Genomes.Genomes(id)
		fmt.Fprintf(&sb, ", %d genomes", len(names))
		if len(names) > 0 {
			fmt.Fprintf(&sb, " (%s)", strings.Join(names, ", "))
		}
	}
	if h.Segments != nil {
		seq, err := h.Segments.Get(id)
		if err != nil {
			return "", err
		}
		limit := h.MaxSequence
		if limit <= 0 {
			limit = 80
		}
		if len(seq) > limit {
			seq = seq[:limit] + "..."
		}
		sb.WriteString("\n")
		sb.WriteString(seq)
	}
	return sb.String(), nil
}

// HandleEdge describes the edge and how many genomes use it.
func (h InfoHandler) HandleEdge(w *Window, e dag.Edge) (string, error) {
	msg := fmt.Sprintf("edge from node %d to node %d", e.From, e.To)
	if h.Genomes != nil {
		msg += fmt.Sprintf(": %d shared genomes", h.Genomes.Shared(e.From, e.To))
	}
	return msg, nil
}

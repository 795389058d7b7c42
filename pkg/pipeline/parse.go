package pipeline

import (
	"fmt"

	"github.com/matzehuels/pangraph/pkg/dag"
	perrors "github.com/matzehuels/pangraph/pkg/errors"
	"github.com/matzehuels/pangraph/pkg/genome"
	"github.com/matzehuels/pangraph/pkg/gfa"
	"github.com/matzehuels/pangraph/pkg/segment"
)

// minSegmentLine is the length of the shortest segment record, "S\t1\tA\n".
const minSegmentLine = 6

// builder is the gfa.Sink that assembles a load. Links are buffered until
// the end of the file so that they may reference segments declared later.
type builder struct {
	g        *dag.Graph
	segments *segment.Writer
	genomes  *genome.Index // nil when genomes are skipped
	links    []dag.Edge
	maxID    int // Ids at or above this cannot be dense; 0 disables the check
}

// newBuilder creates a builder for a source of size bytes. A size of 0
// means unknown.
func newBuilder(w *segment.Writer, genomes *genome.Index, size int64) *builder {
	b := &builder{g: dag.New(0), segments: w, genomes: genomes}
	if size > 0 {
		b.maxID = int(size/minSegmentLine) + 1
	}
	return b
}

func (b *builder) Header(names []string) error {
	if b.genomes == nil {
		return nil
	}
	for _, name := range names {
		if err := perrors.ValidateGenomeName(name); err != nil {
			return err
		}
		b.genomes.Intern(name)
	}
	return nil
}

func (b *builder) Segment(id int, seq string, genomes []string) error {
	if b.g.Defined(id) {
		return fmt.Errorf("segment %d defined twice", id+1)
	}
	if b.maxID > 0 && id >= b.maxID {
		return perrors.New(perrors.ErrCodeMalformedInput,
			"segment id %d is larger than the file can hold densely", id+1)
	}
	if err := b.g.AddNode(id, len(seq)); err != nil {
		return err
	}
	if err := b.segments.Append(id, seq); err != nil {
		return err
	}
	if b.genomes != nil {
		for _, name := range genomes {
			b.genomes.Add(id, name)
		}
	}
	return nil
}

func (b *builder) Link(from, to int) error {
	b.links = append(b.links, dag.Edge{From: from, To: to})
	return nil
}

func (b *builder) Path(name string, nodes []int) error {
	if b.genomes != nil {
		for _, id := range nodes {
			if b.maxID > 0 && id >= b.maxID {
				return perrors.New(perrors.ErrCodeMalformedInput,
					"path %s visits segment %d, larger than the file can hold densely", name, id+1)
			}
		}
		b.genomes.AddPath(name, nodes)
	}
	return nil
}

// finish adds the buffered links and checks that ids are dense.
func (b *builder) finish() (*dag.Graph, error) {
	for _, e := range b.links {
		if !b.g.Defined(e.From) || !b.g.Defined(e.To) {
			return nil, perrors.New(perrors.ErrCodeMalformedInput,
				"link %d -> %d references an undefined segment", e.From+1, e.To+1)
		}
		if err := b.g.AddEdge(e.From, e.To); err != nil {
			return nil, err
		}
	}
	if missing := b.g.Undefined(); len(missing) > 0 {
		return nil, perrors.New(perrors.ErrCodeMalformedInput,
			"segment ids are not dense: %d missing, first is %d", len(missing), missing[0]+1)
	}
	if b.genomes != nil {
		if n := b.genomes.NodeCount(); n > b.g.NodeCount() {
			return nil, perrors.New(perrors.ErrCodeMalformedInput,
				"genome path visits segment %d, graph has %d", n, b.g.NodeCount())
		}
	}
	return b.g, nil
}

var _ gfa.Sink = (*builder)(nil)

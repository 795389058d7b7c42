package io

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/matzehuels/pangraph/pkg/dag"
	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

// ReadJSON decodes a graph document from r.
//
// Every node keeps the coordinates stored in the document, so the result
// is ready for windowing without another layout pass. ReadJSON returns an
// error carrying the MALFORMED_INPUT code if:
//   - The JSON is malformed
//   - A node id is negative or appears twice
//   - An edge references an unknown node
//   - The ids are not dense or the edges form a cycle
//
// ReadJSON does not close r.
func ReadJSON(r io.Reader) (*dag.Graph, error) {
	var data Graph
	if err := json.NewDecoder(r).Decode(&data); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeMalformedInput, err, "decode graph")
	}

	g := dag.New(len(data.Nodes))
	for _, n := range data.Nodes {
		if g.Defined(n.ID) {
			return nil, perrors.New(perrors.ErrCodeMalformedInput, "node %d: duplicate id", n.ID)
		}
		if err := g.AddNode(n.ID, n.Length); err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeMalformedInput, err, "node %d", n.ID)
		}
		_ = g.SetPosition(n.ID, n.X, n.Y)
	}
	for _, e := range data.Edges {
		if err := g.AddEdge(e.From, e.To); err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeMalformedInput, err, "edge %d->%d", e.From, e.To)
		}
	}
	if err := g.Validate(); err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeMalformedInput, err, "invalid graph")
	}
	return g, nil
}

// ImportJSON reads a graph document from the file at path.
func ImportJSON(path string) (*dag.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perrors.Wrap(perrors.ErrCodeNotFound, err, "open %s", path)
		}
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return ReadJSON(f)
}

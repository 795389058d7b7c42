package dag

import (
	"errors"
	"slices"
	"testing"

	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

func chain(t *testing.T, n int) *Graph {
	t.Helper()
	g := New(n)
	for i := range n {
		if err := g.AddNode(i, i+1); err != nil {
			t.Fatalf("AddNode(%d): %v", i, err)
		}
	}
	for i := 1; i < n; i++ {
		if err := g.AddEdge(i-1, i); err != nil {
			t.Fatalf("AddEdge(%d, %d): %v", i-1, i, err)
		}
	}
	return g
}

func TestAddNode(t *testing.T) {
	t.Run("grows storage", func(t *testing.T) {
		g := New(0)
		if err := g.AddNode(4, 10); err != nil {
			t.Fatal(err)
		}
		if g.NodeCount() != 5 {
			t.Errorf("NodeCount() = %d, want 5", g.NodeCount())
		}
		if g.Defined(2) {
			t.Error("Defined(2) = true, want false for a gap")
		}
		if !g.Defined(4) {
			t.Error("Defined(4) = false, want true")
		}
	})

	t.Run("never shrinks", func(t *testing.T) {
		g := New(0)
		_ = g.AddNode(4, 10)
		_ = g.AddNode(1, 3)
		if g.NodeCount() != 5 {
			t.Errorf("NodeCount() = %d, want 5", g.NodeCount())
		}
	})

	t.Run("redefine updates length", func(t *testing.T) {
		g := New(1)
		_ = g.AddNode(0, 10)
		_ = g.AddNode(0, 12)
		if got := g.MustLength(0); got != 12 {
			t.Errorf("Length(0) = %d, want 12", got)
		}
	})

	t.Run("negative id", func(t *testing.T) {
		g := New(1)
		err := g.AddNode(-1, 1)
		if !perrors.Is(err, perrors.ErrCodeOutOfRange) {
			t.Errorf("AddNode(-1) = %v, want OUT_OF_RANGE", err)
		}
	})
}

func TestAddEdge(t *testing.T) {
	g := chain(t, 3)

	t.Run("symmetric", func(t *testing.T) {
		if !slices.Equal(g.Outgoing(0), []int{1}) {
			t.Errorf("Outgoing(0) = %v", g.Outgoing(0))
		}
		if !slices.Equal(g.Incoming(1), []int{0}) {
			t.Errorf("Incoming(1) = %v", g.Incoming(1))
		}
	})

	t.Run("duplicate is no-op", func(t *testing.T) {
		before := g.EdgeCount()
		if err := g.AddEdge(0, 1); err != nil {
			t.Fatal(err)
		}
		if g.EdgeCount() != before {
			t.Errorf("EdgeCount() = %d, want %d", g.EdgeCount(), before)
		}
		if len(g.Outgoing(0)) != 1 || len(g.Incoming(1)) != 1 {
			t.Errorf("duplicate edge stored: out=%v in=%v", g.Outgoing(0), g.Incoming(1))
		}
	})

	t.Run("insertion order", func(t *testing.T) {
		h := New(4)
		for i := range 4 {
			_ = h.AddNode(i, 1)
		}
		_ = h.AddEdge(0, 3)
		_ = h.AddEdge(0, 1)
		_ = h.AddEdge(0, 2)
		if !slices.Equal(h.Outgoing(0), []int{3, 1, 2}) {
			t.Errorf("Outgoing(0) = %v, want [3 1 2]", h.Outgoing(0))
		}
	})

	t.Run("unknown endpoint", func(t *testing.T) {
		for _, e := range []Edge{{0, 3}, {3, 0}, {-1, 0}} {
			err := g.AddEdge(e.From, e.To)
			if !errors.Is(err, ErrOutOfRange) {
				t.Errorf("AddEdge(%v) = %v, want ErrOutOfRange", e, err)
			}
		}
	})
}

func TestAccessorsOutOfRange(t *testing.T) {
	g := chain(t, 2)

	if _, err := g.Length(2); !perrors.Is(err, perrors.ErrCodeOutOfRange) {
		t.Errorf("Length(2) = %v, want OUT_OF_RANGE", err)
	}
	if _, err := g.Node(-1); !perrors.Is(err, perrors.ErrCodeOutOfRange) {
		t.Errorf("Node(-1) = %v, want OUT_OF_RANGE", err)
	}
	if err := g.SetPosition(9, 0, 0); !perrors.Is(err, perrors.ErrCodeOutOfRange) {
		t.Errorf("SetPosition(9) = %v, want OUT_OF_RANGE", err)
	}
	if g.Outgoing(5) != nil || g.Incoming(-3) != nil {
		t.Error("adjacency of out-of-range id should be nil")
	}

	defer func() {
		if recover() == nil {
			t.Error("MustLength(7) did not panic")
		}
	}()
	g.MustLength(7)
}

func TestValidate(t *testing.T) {
	t.Run("valid chain", func(t *testing.T) {
		if err := chain(t, 5).Validate(); err != nil {
			t.Errorf("Validate() = %v", err)
		}
	})

	t.Run("gap", func(t *testing.T) {
		g := New(0)
		_ = g.AddNode(0, 1)
		_ = g.AddNode(2, 1)
		if err := g.Validate(); !errors.Is(err, ErrUndefinedNode) {
			t.Errorf("Validate() = %v, want ErrUndefinedNode", err)
		}
	})

	t.Run("cycle", func(t *testing.T) {
		g := chain(t, 3)
		_ = g.AddEdge(2, 0)
		err := g.Validate()
		if !errors.Is(err, ErrGraphHasCycle) {
			t.Errorf("Validate() = %v, want ErrGraphHasCycle", err)
		}
		if !perrors.Is(err, perrors.ErrCodeCyclicGraph) {
			t.Errorf("Validate() code = %v, want CYCLIC_GRAPH", perrors.GetCode(err))
		}
	})

	t.Run("self loop", func(t *testing.T) {
		g := chain(t, 1)
		_ = g.AddEdge(0, 0)
		if err := g.Validate(); !errors.Is(err, ErrGraphHasCycle) {
			t.Errorf("Validate() = %v, want ErrGraphHasCycle", err)
		}
	})

	t.Run("asymmetric", func(t *testing.T) {
		g := chain(t, 2)
		g.incoming[1] = nil
		if err := g.Validate(); !errors.Is(err, ErrAsymmetricAdjacency) {
			t.Errorf("Validate() = %v, want ErrAsymmetricAdjacency", err)
		}
	})
}

func TestEdges(t *testing.T) {
	g := New(3)
	for i := range 3 {
		_ = g.AddNode(i, 1)
	}
	_ = g.AddEdge(1, 2)
	_ = g.AddEdge(0, 2)
	_ = g.AddEdge(0, 1)

	want := []Edge{{0, 2}, {0, 1}, {1, 2}}
	if got := g.Edges(); !slices.Equal(got, want) {
		t.Errorf("Edges() = %v, want %v", got, want)
	}
	if !g.HasEdge(0, 1) || g.HasEdge(2, 0) {
		t.Error("HasEdge mismatch")
	}
}

func TestClone(t *testing.T) {
	g := chain(t, 3)
	_ = g.SetPosition(1, 4, 2)
	c := g.Clone()

	_ = c.AddEdge(0, 2)
	_ = c.SetPosition(1, 9, 9)

	if g.HasEdge(0, 2) {
		t.Error("edge added to clone leaked into original")
	}
	if x, y, _ := g.Position(1); x != 4 || y != 2 {
		t.Errorf("original position = (%v, %v), want (4, 2)", x, y)
	}
	if c.EdgeCount() != g.EdgeCount()+1 {
		t.Errorf("clone EdgeCount() = %d", c.EdgeCount())
	}
}

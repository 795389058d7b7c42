package condition

import (
	"regexp"
	"slices"
	"testing"

	"github.com/lucasb-eyer/go-colorful"

	perrors "github.com/matzehuels/pangraph/pkg/errors"
	"github.com/matzehuels/pangraph/pkg/genome"
	"github.com/matzehuels/pangraph/pkg/window"
)

// node 0: A B C, node 1: A, node 2: B C, node 3: none
func testIndex() *genome.Index {
	x := genome.NewIndex()
	x.AddPath("A", []int{0, 1})
	x.AddPath("B", []int{0, 2})
	x.AddPath("C", []int{0, 2})
	return x
}

func dn(id int) window.DrawNode { return window.DrawNode{ID: id} }

func TestGenomeCount(t *testing.T) {
	x := testIndex()
	tests := []struct {
		name string
		cond GenomeCount
		want []bool // per node 0..3
	}{
		{"more than one", GenomeCount{Index: x, Op: Greater, K: 1}, []bool{true, false, true, false}},
		{"fewer than two", GenomeCount{Index: x, Op: Less, K: 2}, []bool{false, true, false, true}},
		{"at least three", GenomeCount{Index: x, Op: AtLeast, K: 3}, []bool{true, false, false, false}},
		{"at most zero", GenomeCount{Index: x, Op: AtMost, K: 0}, []bool{false, false, false, true}},
		{"subset", GenomeCount{Index: x, Op: AtLeast, K: 2, Genomes: []string{"B", "C"}}, []bool{true, false, true, false}},
		{"exclusive", GenomeCount{Index: x, Op: AtLeast, K: 1, Genomes: []string{"B", "C"}, Exclusive: true}, []bool{false, false, true, false}},
		{"exclusive over all genomes", GenomeCount{Index: x, Op: AtMost, K: 2, Exclusive: true}, []bool{false, true, true, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for id, want := range tt.want {
				if got := tt.cond.Evaluate(dn(id)); got != want {
					t.Errorf("node %d: got %v, want %v", id, got, want)
				}
			}
		})
	}
}

func TestGenomeMatch(t *testing.T) {
	x := testIndex()
	c := GenomeMatch{Index: x, Pattern: regexp.MustCompile("^[BC]$")}
	want := []bool{true, false, true, false}
	for id, w := range want {
		if got := c.Evaluate(dn(id)); got != w {
			t.Errorf("node %d: got %v, want %v", id, got, w)
		}
	}
}

func TestParseCondition(t *testing.T) {
	x := testIndex()
	tests := []struct {
		expr string
		want string
	}{
		{"count>3", "count>3"},
		{" count >= 2 ", "count>=2"},
		{"count<=2@A,B", "count<=2@A,B"},
		{"count>=1@A, B!", "count>=1@A,B!"},
		{"count<=2!", "count<=2!"},
		{"name~^TKK", "name~^TKK"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			c, err := ParseCondition(tt.expr, x, Fallback)
			if err != nil {
				t.Fatalf("ParseCondition: %v", err)
			}
			if got := c.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			again, err := ParseCondition(c.String(), x, Fallback)
			if err != nil || again.String() != c.String() {
				t.Errorf("reparse = %v, %v", again, err)
			}
		})
	}
}

func TestParseConditionErrors(t *testing.T) {
	x := testIndex()
	for _, expr := range []string{
		"",
		"size>3",
		"count",
		"count=3",
		"count>x",
		"count>1@",
		"name~(",
	} {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseCondition(expr, x, Fallback)
			if !perrors.Is(err, perrors.ErrCodeInvalidInput) {
				t.Errorf("ParseCondition(%q) error = %v, want INVALID_INPUT", expr, err)
			}
		})
	}
}

func TestSetColors(t *testing.T) {
	s := NewSet(testIndex())

	if got := s.ColorFor(dn(0)); got != Neutral {
		t.Errorf("empty set color = %s, want neutral", got.Hex())
	}

	if _, err := s.AddExpr("count>=1"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.AddExpr("name~^A$"); err != nil {
		t.Fatal(err)
	}

	conds := s.Conditions()
	if conds[0].Color() != DefaultPalette[0] || conds[1].Color() != DefaultPalette[1] {
		t.Errorf("colors = %s %s, want palette order", conds[0].Color().Hex(), conds[1].Color().Hex())
	}

	if got := s.ColorFor(dn(2)); got != DefaultPalette[0] {
		t.Errorf("single match = %s, want %s", got.Hex(), DefaultPalette[0].Hex())
	}
	if got := s.ColorsFor(dn(1)); len(got) != 2 {
		t.Errorf("node 1 matches %d conditions, want 2", len(got))
	}
	if got := s.ColorFor(dn(3)); got != Neutral {
		t.Errorf("no match = %s, want neutral", got.Hex())
	}
}

func TestSetPaletteReuse(t *testing.T) {
	s := NewSet(testIndex())
	for range DefaultPalette {
		if _, err := s.AddExpr("count>0"); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.NextColor(); got != Fallback {
		t.Errorf("exhausted palette = %s, want fallback", got.Hex())
	}
	if err := s.Remove(1); err != nil {
		t.Fatal(err)
	}
	if got := s.NextColor(); got != DefaultPalette[1] {
		t.Errorf("after remove = %s, want %s", got.Hex(), DefaultPalette[1].Hex())
	}
	if err := s.Remove(10); !perrors.Is(err, perrors.ErrCodeOutOfRange) {
		t.Errorf("Remove(10) = %v, want OUT_OF_RANGE", err)
	}
	if s.Len() != len(DefaultPalette)-1 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestSetExprs(t *testing.T) {
	s := NewSet(nil)
	for _, e := range []string{"count>1", "name~x"} {
		if _, err := s.AddExpr(e); err != nil {
			t.Fatal(err)
		}
	}
	if got := s.Exprs(); !slices.Equal(got, []string{"count>1", "name~x"}) {
		t.Errorf("Exprs = %v", got)
	}
}

func TestBlend(t *testing.T) {
	red := colorful.Color{R: 1}
	if got := Blend([]colorful.Color{red}); got != red {
		t.Errorf("Blend(red) = %s", got.Hex())
	}
	// Equal weights make the result independent of order.
	a := Blend([]colorful.Color{DefaultPalette[0], DefaultPalette[1], DefaultPalette[2]})
	b := Blend([]colorful.Color{DefaultPalette[2], DefaultPalette[0], DefaultPalette[1]})
	if !a.AlmostEqualRgb(b) {
		t.Errorf("Blend is order dependent: %s vs %s", a.Hex(), b.Hex())
	}
}

func TestParsePalette(t *testing.T) {
	got, err := ParsePalette([]string{"#00ff00", "#0000FF"})
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != DefaultPalette[0] || got[1] != DefaultPalette[1] {
		t.Errorf("ParsePalette = %v", got)
	}
	if _, err := ParsePalette([]string{"green"}); !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("ParsePalette(green) = %v", err)
	}
}

package condition

import (
	"slices"
	"sync"

	"github.com/lucasb-eyer/go-colorful"

	perrors "github.com/matzehuels/pangraph/pkg/errors"
	"github.com/matzehuels/pangraph/pkg/genome"
	"github.com/matzehuels/pangraph/pkg/window"
)

var (
	// Neutral is the color of a node no condition holds for.
	Neutral = colorful.Color{R: 220.0 / 255, G: 20.0 / 255, B: 60.0 / 255}

	// Fallback is handed out once the palette is exhausted.
	Fallback = colorful.Color{R: 128.0 / 255, G: 128.0 / 255, B: 128.0 / 255}

	// DefaultPalette is green, blue, yellow, magenta, cyan.
	DefaultPalette = []colorful.Color{
		{R: 0, G: 1, B: 0},
		{R: 0, G: 0, B: 1},
		{R: 1, G: 1, B: 0},
		{R: 1, G: 0, B: 1},
		{R: 0, G: 1, B: 1},
	}
)

// ParsePalette parses "#rrggbb" colors.
func ParsePalette(hex []string) ([]colorful.Color, error) {
	colors := make([]colorful.Color, 0, len(hex))
	for _, h := range hex {
		c, err := colorful.Hex(h)
		if err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "palette color %q", h)
		}
		colors = append(colors, c)
	}
	return colors, nil
}

// Set is an ordered list of conditions. It is safe for concurrent use.
type Set struct {
	mu      sync.RWMutex
	idx     *genome.Index
	palette []colorful.Color
	conds   []Condition
}

// NewSet creates an empty set over idx. An empty palette selects
// DefaultPalette.
func NewSet(idx *genome.Index, palette ...colorful.Color) *Set {
	if len(palette) == 0 {
		palette = DefaultPalette
	}
	if idx == nil {
		idx = genome.NewIndex()
	}
	return &Set{idx: idx, palette: slices.Clone(palette)}
}

// NextColor returns the first palette color no current condition uses, or
// Fallback.
func (s *Set) NextColor() colorful.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nextColor()
}

func (s *Set) nextColor() colorful.Color {
	for _, c := range s.palette {
		used := slices.ContainsFunc(s.conds, func(cond Condition) bool { return cond.Color() == c })
		if !used {
			return c
		}
	}
	return Fallback
}

// Add appends c.
func (s *Set) Add(c Condition) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conds = append(s.conds, c)
}

// AddExpr parses expr with the next free color and appends the result.
func (s *Set) AddExpr(expr string) (Condition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, err := ParseCondition(expr, s.idx, s.nextColor())
	if err != nil {
		return nil, err
	}
	s.conds = append(s.conds, c)
	return c, nil
}

// Remove deletes the i-th condition. Its color becomes free again.
func (s *Set) Remove(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.conds) {
		return perrors.New(perrors.ErrCodeOutOfRange, "condition %d out of range [0, %d)", i, len(s.conds))
	}
	s.conds = slices.Delete(s.conds, i, i+1)
	return nil
}

// Len returns the number of conditions.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conds)
}

// Conditions returns a copy of the conditions in insertion order.
func (s *Set) Conditions() []Condition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.conds)
}

// Exprs returns the expression of every condition in insertion order.
func (s *Set) Exprs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	exprs := make([]string, len(s.conds))
	for i, c := range s.conds {
		exprs[i] = c.String()
	}
	return exprs
}

// ColorsFor returns the colors of every condition that holds for n.
func (s *Set) ColorsFor(n window.DrawNode) []colorful.Color {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var colors []colorful.Color
	for _, c := range s.conds {
		if c.Evaluate(n) {
			colors = append(colors, c.Color())
		}
	}
	return colors
}

// ColorFor blends the colors of every condition that holds for n in Lab
// space, weighting them equally. Nodes no condition holds for get Neutral.
func (s *Set) ColorFor(n window.DrawNode) colorful.Color {
	return Blend(s.ColorsFor(n))
}

// Blend averages colors with equal weights in Lab space.
func Blend(colors []colorful.Color) colorful.Color {
	switch len(colors) {
	case 0:
		return Neutral
	case 1:
		return colors[0]
	}
	var l, a, b float64
	for _, c := range colors {
		cl, ca, cb := c.Lab()
		l, a, b = l+cl, a+ca, b+cb
	}
	n := float64(len(colors))
	return colorful.Lab(l/n, a/n, b/n).Clamped()
}

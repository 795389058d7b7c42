// Package condition evaluates user-defined predicates over visible nodes
// and turns the ones that hold into node colors.
//
// A [Condition] looks at the genomes traversing a node: how many there are
// ([GenomeCount]) or what they are called ([GenomeMatch]). Every condition
// carries a color. A [Set] evaluates all of its conditions against a node
// and blends the colors of those that hold.
package condition

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/matzehuels/pangraph/pkg/genome"
	"github.com/matzehuels/pangraph/pkg/window"
)

// Condition is a predicate over a visible node with an associated color.
type Condition interface {
	Evaluate(n window.DrawNode) bool
	Color() colorful.Color
	String() string
}

// Op compares a genome count against a threshold.
type Op string

// Supported comparison operators.
const (
	Greater Op = ">"
	Less    Op = "<"
	AtLeast Op = ">="
	AtMost  Op = "<="
)

func (op Op) compare(v, k int) bool {
	switch op {
	case Greater:
		return v > k
	case Less:
		return v < k
	case AtLeast:
		return v >= k
	case AtMost:
		return v <= k
	}
	return false
}

func (op Op) valid() bool {
	switch op {
	case Greater, Less, AtLeast, AtMost:
		return true
	}
	return false
}

// GenomeCount holds when the number of genomes through a node compares
// true against K.
//
// If Genomes is non-empty only those genomes are counted. Exclusive then
// additionally requires that the node carries no genome outside Genomes.
// An empty Genomes stands for every genome through the node, so Exclusive
// holds trivially.
type GenomeCount struct {
	Index     *genome.Index
	Op        Op
	K         int
	Genomes   []string
	Exclusive bool
	C         colorful.Color
}

// Evaluate implements Condition.
func (c GenomeCount) Evaluate(n window.DrawNode) bool {
	names := c.Index.Genomes(n.ID)
	if len(c.Genomes) == 0 {
		return c.Op.compare(len(names), c.K)
	}
	count := 0
	for _, name := range names {
		if slices.Contains(c.Genomes, name) {
			count++
		} else if c.Exclusive {
			return false
		}
	}
	return c.Op.compare(count, c.K)
}

// Color implements Condition.
func (c GenomeCount) Color() colorful.Color { return c.C }

// String returns the expression that ParseCondition turns back into c.
func (c GenomeCount) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "count%s%d", c.Op, c.K)
	if len(c.Genomes) > 0 {
		sb.WriteString("@")
		sb.WriteString(strings.Join(c.Genomes, ","))
	}
	if c.Exclusive {
		sb.WriteString("!")
	}
	return sb.String()
}

// GenomeMatch holds when any genome through a node matches Pattern.
type GenomeMatch struct {
	Index   *genome.Index
	Pattern *regexp.Regexp
	C       colorful.Color
}

// Evaluate implements Condition.
func (c GenomeMatch) Evaluate(n window.DrawNode) bool {
	for _, name := range c.Index.Genomes(n.ID) {
		if c.Pattern.MatchString(name) {
			return true
		}
	}
	return false
}

// Color implements Condition.
func (c GenomeMatch) Color() colorful.Color { return c.C }

// String returns the expression that ParseCondition turns back into c.
func (c GenomeMatch) String() string { return "name~" + c.Pattern.String() }

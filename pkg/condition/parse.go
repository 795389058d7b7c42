package condition

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"

	perrors "github.com/matzehuels/pangraph/pkg/errors"
	"github.com/matzehuels/pangraph/pkg/genome"
)

// ParseCondition builds a condition from a short expression:
//
//	count>3              more than three genomes
//	count<=2@A,B         at most two of the genomes A and B
//	count>=1@A,B!        at least one of A and B, and nothing else
//	count<=2!            at most two genomes; without a list every genome counts
//	name~^TKK_0          a genome whose name matches the regular expression
//
// Errors carry the INVALID_INPUT code.
func ParseCondition(expr string, idx *genome.Index, c colorful.Color) (Condition, error) {
	expr = strings.TrimSpace(expr)

	if pattern, ok := strings.CutPrefix(expr, "name~"); ok {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "condition %q", expr)
		}
		return GenomeMatch{Index: idx, Pattern: re, C: c}, nil
	}

	rest, ok := strings.CutPrefix(expr, "count")
	if !ok {
		return nil, perrors.New(perrors.ErrCodeInvalidInput, "condition %q: want count<op><n> or name~<regexp>", expr)
	}

	cond := GenomeCount{Index: idx, C: c}
	if s, ok := strings.CutSuffix(rest, "!"); ok {
		cond.Exclusive = true
		rest = s
	}
	if i := strings.IndexByte(rest, '@'); i >= 0 {
		for _, name := range strings.Split(rest[i+1:], ",") {
			if name = strings.TrimSpace(name); name != "" {
				cond.Genomes = append(cond.Genomes, name)
			}
		}
		rest = rest[:i]
		if len(cond.Genomes) == 0 {
			return nil, perrors.New(perrors.ErrCodeInvalidInput, "condition %q: empty genome list", expr)
		}
	}

	rest = strings.TrimSpace(rest)
	for _, op := range []Op{AtLeast, AtMost, Greater, Less} {
		if num, ok := strings.CutPrefix(rest, string(op)); ok {
			k, err := strconv.Atoi(strings.TrimSpace(num))
			if err != nil {
				return nil, perrors.Wrap(perrors.ErrCodeInvalidInput, err, "condition %q: bad threshold", expr)
			}
			cond.Op, cond.K = op, k
			return cond, nil
		}
	}
	return nil, perrors.New(perrors.ErrCodeInvalidInput, "condition %q: unknown operator", expr)
}

package cache

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/matzehuels/pangraph/pkg/dag"
)

// Encode writes g in the line-oriented cache format:
//
//	N                 node count
//	length            \
//	x                  |
//	y                  | repeated for node 0..N-1
//	k                  | out-degree
//	child (k lines)   /
//
// Coordinates use the shortest representation that round-trips exactly.
func Encode(w io.Writer, g *dag.Graph) error {
	bw := bufio.NewWriter(w)
	line := func(s string) {
		_, _ = bw.WriteString(s)
		_ = bw.WriteByte('\n')
	}

	line(strconv.Itoa(g.NodeCount()))
	for id := range g.NodeCount() {
		n, err := g.Node(id)
		if err != nil {
			return err
		}
		out := g.Outgoing(id)
		line(strconv.Itoa(n.Length))
		line(strconv.FormatFloat(n.X, 'g', -1, 64))
		line(strconv.FormatFloat(n.Y, 'g', -1, 64))
		line(strconv.Itoa(len(out)))
		for _, child := range out {
			line(strconv.Itoa(child))
		}
	}
	return bw.Flush()
}

// Decode reads a graph written by [Encode]. It is all-or-nothing: a short
// file, a malformed number, a negative count or an out-of-range child id
// fails the whole read with [ErrCorrupt] and no graph is returned.
func Decode(r io.Reader) (*dag.Graph, error) {
	d := decoder{sc: bufio.NewScanner(r)}
	d.sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	n := d.readInt("node count")
	if d.err == nil && n < 0 {
		d.fail("negative node count %d", n)
	}
	if d.err != nil {
		return nil, d.err
	}

	g := dag.New(n)
	children := make([][]int, n)
	for id := 0; id < n && d.err == nil; id++ {
		length := d.readInt("length")
		x := d.readFloat("x")
		y := d.readFloat("y")
		k := d.readInt("out-degree")
		if d.err != nil {
			break
		}
		if k < 0 {
			d.fail("node %d: negative out-degree %d", id, k)
			break
		}
		if length < 0 {
			d.fail("node %d: negative length %d", id, length)
			break
		}
		_ = g.AddNode(id, length)
		_ = g.SetPosition(id, x, y)
		for range k {
			c := d.readInt("child id")
			if d.err != nil {
				break
			}
			if c < 0 || c >= n {
				d.fail("node %d: child %d outside [0, %d)", id, c, n)
				break
			}
			children[id] = append(children[id], c)
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	d.trailing()
	if d.err != nil {
		return nil, d.err
	}

	for id, cs := range children {
		for _, c := range cs {
			if err := g.AddEdge(id, c); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
			}
		}
	}
	return g, nil
}

type decoder struct {
	sc   *bufio.Scanner
	line int
	err  error
}

func (d *decoder) fail(format string, args ...any) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: line %d: %s", ErrCorrupt, d.line, fmt.Sprintf(format, args...))
	}
}

func (d *decoder) next(what string) (string, bool) {
	if d.err != nil {
		return "", false
	}
	if !d.sc.Scan() {
		if err := d.sc.Err(); err != nil {
			d.err = fmt.Errorf("%w: %v", ErrCorrupt, err)
		} else {
			d.line++
			d.fail("unexpected end of file, want %s", what)
		}
		return "", false
	}
	d.line++
	return strings.TrimSpace(d.sc.Text()), true
}

func (d *decoder) readInt(what string) int {
	s, ok := d.next(what)
	if !ok {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		d.fail("bad %s %q", what, s)
	}
	return v
}

func (d *decoder) readFloat(what string) float64 {
	s, ok := d.next(what)
	if !ok {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		d.fail("bad %s %q", what, s)
	}
	return v
}

func (d *decoder) trailing() {
	for d.sc.Scan() {
		d.line++
		if strings.TrimSpace(d.sc.Text()) != "" {
			d.fail("unexpected trailing data")
			return
		}
	}
	if err := d.sc.Err(); err != nil {
		d.err = fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
}

package genome

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	perrors "github.com/matzehuels/pangraph/pkg/errors"
)

// ErrCorrupt is returned by [Read] for a truncated or inconsistent side
// file. It carries the CORRUPT_CACHE code.
var ErrCorrupt = perrors.New(perrors.ErrCodeCorruptCache, "corrupt genome file")

// Write stores x for a graph of nodes 0..n-1 in three sections, every
// field followed by a tab:
//
//   - the genome names in registration order, prefixed by their count;
//   - one line per node: the number of genomes through it, then their names;
//   - the number of ordered paths, then one line per path: its length, the
//     genome name and the node ids in walk order.
//
// For example:
//
//	2	TKK-01-0066	TKK_REF
//	2	TKK-01-0066	TKK_REF
//	1	TKK_REF
//	1
//	2	TKK_REF	0	1
func Write(w io.Writer, x *Index, n int) error {
	bw := bufio.NewWriter(w)
	writeLine(bw, len(x.names), x.names)
	for node := range n {
		names := x.Genomes(node)
		writeLine(bw, len(names), names)
	}

	var ordered []int
	for g := range x.names {
		if _, ok := x.order[g]; ok {
			ordered = append(ordered, g)
		}
	}
	bw.WriteString(strconv.Itoa(len(ordered)))
	bw.WriteByte('\n')
	for _, g := range ordered {
		nodes := x.order[g]
		fields := make([]string, 0, len(nodes)+1)
		fields = append(fields, x.names[g])
		for _, id := range nodes {
			fields = append(fields, strconv.Itoa(id))
		}
		writeLine(bw, len(nodes), fields)
	}
	return bw.Flush()
}

func writeLine(bw *bufio.Writer, count int, fields []string) {
	bw.WriteString(strconv.Itoa(count))
	bw.WriteByte('\t')
	for _, f := range fields {
		bw.WriteString(f)
		bw.WriteByte('\t')
	}
	bw.WriteByte('\n')
}

// sideReader splits a side file into counted lines.
type sideReader struct {
	sc   *bufio.Scanner
	line int
}

func (r *sideReader) scan(what string) (string, error) {
	r.line++
	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return "", fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		return "", fmt.Errorf("%w: line %d: missing %s", ErrCorrupt, r.line, what)
	}
	return strings.TrimRight(r.sc.Text(), "\t\r"), nil
}

// count reads a line holding a single count.
func (r *sideReader) count(what string) (int, error) {
	text, err := r.scan(what)
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(text)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: line %d: bad %s %q", ErrCorrupt, r.line, what, text)
	}
	return n, nil
}

// next reads one line and checks that it lists count plus extra fields
// after its count.
func (r *sideReader) next(what string, extra int) (int, []string, error) {
	text, err := r.scan(what)
	if err != nil {
		return 0, nil, err
	}
	fields := strings.Split(text, "\t")
	count, err := strconv.Atoi(fields[0])
	if err != nil || count < 0 {
		return 0, nil, fmt.Errorf("%w: line %d: bad count %q", ErrCorrupt, r.line, fields[0])
	}
	if len(fields)-1 != count+extra {
		return 0, nil, fmt.Errorf("%w: line %d: declares %d entries, lists %d", ErrCorrupt, r.line, count, len(fields)-1-extra)
	}
	return count, fields[1:], nil
}

// Read parses a side file written by [Write] for a graph of n nodes. A
// missing line, a bad count, a count that disagrees with its line, an
// unknown genome or a path node outside the graph fails the whole read with
// [ErrCorrupt].
func Read(r io.Reader, n int) (*Index, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	sr := &sideReader{sc: sc}
	x := NewIndex()

	_, names, err := sr.next("genome names", 0)
	if err != nil {
		return nil, err
	}
	for _, name := range names {
		x.Intern(name)
	}

	for node := range n {
		_, names, err := sr.next(fmt.Sprintf("node %d", node), 0)
		if err != nil {
			return nil, err
		}
		for _, name := range names {
			if _, ok := x.byName[name]; !ok {
				return nil, fmt.Errorf("%w: line %d: unknown genome %q", ErrCorrupt, sr.line, name)
			}
			x.Add(node, name)
		}
	}

	paths, err := sr.count("path count")
	if err != nil {
		return nil, err
	}
	for range paths {
		count, fields, err := sr.next("path", 1)
		if err != nil {
			return nil, err
		}
		g, ok := x.byName[fields[0]]
		if !ok {
			return nil, fmt.Errorf("%w: line %d: unknown genome %q", ErrCorrupt, sr.line, fields[0])
		}
		nodes := make([]int, count)
		for i, f := range fields[1:] {
			id, err := strconv.Atoi(f)
			if err != nil || id < 0 || id >= n {
				return nil, fmt.Errorf("%w: line %d: bad node %q", ErrCorrupt, sr.line, f)
			}
			nodes[i] = id
		}
		x.order[g] = nodes
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return x, nil
}

// Save writes the side file for x atomically.
func Save(path string, x *Index, n int) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pangraph-genomes-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if err := Write(tmp, x, n); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Load reads the side file at path. A missing file yields an empty index
// and false.
func Load(path string, n int) (*Index, bool, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return NewIndex(), false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()
	x, err := Read(f, n)
	if err != nil {
		return nil, false, err
	}
	return x, true, nil
}

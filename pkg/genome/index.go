// Package genome tracks which genomes traverse which segments of a
// pangenome graph and derives the edge annotations that depend on it.
//
// Membership comes from two sources in a GFA file: ORI:Z: tags on S
// records (per segment) and P records (ordered paths). Both feed one
// [Index]. The index is persisted as a side file next to the source, see
// [Write] and [Read].
package genome

import (
	"math/bits"
	"slices"
)

// Path is one genome's walk through the graph.
type Path struct {
	Name  string
	Nodes []int
}

// bitset holds genome indices.
type bitset []uint64

func (b bitset) has(i int) bool {
	w := i / 64
	return w < len(b) && b[w]&(1<<(uint(i)%64)) != 0
}

func (b *bitset) add(i int) bool {
	w := i / 64
	for len(*b) <= w {
		*b = append(*b, 0)
	}
	mask := uint64(1) << (uint(i) % 64)
	if (*b)[w]&mask != 0 {
		return false
	}
	(*b)[w] |= mask
	return true
}

func (b bitset) count() int {
	n := 0
	for _, w := range b {
		n += bits.OnesCount64(w)
	}
	return n
}

func (b bitset) and(o bitset) int {
	n := 0
	for i := range min(len(b), len(o)) {
		n += bits.OnesCount64(b[i] & o[i])
	}
	return n
}

func (b bitset) each(fn func(int)) {
	for w, word := range b {
		for word != 0 {
			t := bits.TrailingZeros64(word)
			fn(w*64 + t)
			word &^= 1 << uint(t)
		}
	}
}

// Index maps nodes to the genomes that traverse them.
//
// Index is not safe for concurrent mutation. Once loading has finished it
// is only read and may be shared.
type Index struct {
	names   []string
	byName  map[string]int
	members []bitset
	order   map[int][]int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{byName: map[string]int{}, order: map[int][]int{}}
}

// Intern registers a genome name and returns its index. Registering a name
// twice returns the same index.
func (x *Index) Intern(name string) int {
	if i, ok := x.byName[name]; ok {
		return i
	}
	i := len(x.names)
	x.names = append(x.names, name)
	x.byName[name] = i
	return i
}

// Names returns the genome names in registration order.
func (x *Index) Names() []string { return slices.Clone(x.names) }

// NumGenomes returns the number of registered genomes.
func (x *Index) NumGenomes() int { return len(x.names) }

// NodeCount returns one past the highest node with recorded membership.
func (x *Index) NodeCount() int { return len(x.members) }

// Add records that genome traverses node. Negative nodes are ignored.
func (x *Index) Add(node int, genome string) {
	if node < 0 {
		return
	}
	g := x.Intern(genome)
	for len(x.members) <= node {
		x.members = append(x.members, nil)
	}
	x.members[node].add(g)
}

// AddPath records an ordered walk and the membership it implies.
func (x *Index) AddPath(name string, nodes []int) {
	g := x.Intern(name)
	x.order[g] = slices.Clone(nodes)
	for _, n := range nodes {
		x.Add(n, name)
	}
}

// Genomes returns the names of the genomes through node, in registration
// order.
func (x *Index) Genomes(node int) []string {
	if node < 0 || node >= len(x.members) {
		return nil
	}
	var names []string
	x.members[node].each(func(g int) { names = append(names, x.names[g]) })
	return names
}

// Count returns how many genomes traverse node.
func (x *Index) Count(node int) int {
	if node < 0 || node >= len(x.members) {
		return 0
	}
	return x.members[node].count()
}

// Has reports whether genome traverses node.
func (x *Index) Has(node int, genome string) bool {
	g, ok := x.byName[genome]
	if !ok || node < 0 || node >= len(x.members) {
		return false
	}
	return x.members[node].has(g)
}

// Shared returns the number of genomes that traverse both a and b.
func (x *Index) Shared(a, b int) int {
	if a < 0 || b < 0 || a >= len(x.members) || b >= len(x.members) {
		return 0
	}
	return x.members[a].and(x.members[b])
}

// Path returns the walk of one genome. Explicit P records keep their order;
// otherwise the walk lists member nodes in ascending id order.
func (x *Index) Path(name string) (Path, bool) {
	g, ok := x.byName[name]
	if !ok {
		return Path{}, false
	}
	if nodes, ok := x.order[g]; ok {
		return Path{Name: name, Nodes: slices.Clone(nodes)}, true
	}
	var nodes []int
	for id, m := range x.members {
		if m.has(g) {
			nodes = append(nodes, id)
		}
	}
	return Path{Name: name, Nodes: nodes}, true
}

// Paths returns the walk of every genome in registration order.
func (x *Index) Paths() []Path {
	paths := make([]Path, 0, len(x.names))
	for _, name := range x.names {
		p, _ := x.Path(name)
		paths = append(paths, p)
	}
	return paths
}

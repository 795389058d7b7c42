// Package cache persists laid-out graphs so that reopening a GFA file skips
// parsing and layout.
//
// # Companion Files
//
// A source file "data/test.gfa" owns three companion files in the same
// directory, named after its base name:
//
//	data/test.txt          graph cache (this package)
//	data/testSegments.txt  segment text (package segment)
//	data/testGenomes.txt   genome membership (package genome)
//
// [Paths] computes these names. A [FileCache] created with an empty
// directory uses them directly; with a directory it stores the graph cache
// there under a hash of the source path instead.
//
// # Staleness
//
// Caches are never invalidated automatically: a cache that exists is used,
// even if the source file changed after it was written. Delete the
// companion files (pangraph cache clear) to force a rebuild.
package cache

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/matzehuels/pangraph/pkg/dag"
)

// Cache loads and stores laid-out graphs keyed by their source path.
type Cache interface {
	// Load returns the cached graph for source. The bool is false on a miss;
	// a cache that exists but cannot be decoded is an error.
	Load(ctx context.Context, source string) (*dag.Graph, bool, error)
	// Save stores g for source, replacing any previous entry atomically.
	Save(ctx context.Context, source string, g *dag.Graph) error
	// Delete removes the entry for source. Deleting a missing entry is not
	// an error.
	Delete(ctx context.Context, source string) error
	// Close releases resources held by the cache.
	Close() error
}

// Companion holds the companion file paths of one source file.
type Companion struct {
	Cache    string // Graph cache
	Segments string // Segment text
	Genomes  string // Genome membership
}

// All returns the three paths in a fixed order.
func (c Companion) All() []string {
	return []string{c.Cache, c.Segments, c.Genomes}
}

// Paths derives the companion file paths for source. The base name is the
// file name without its extension.
func Paths(source string) Companion {
	dir := filepath.Dir(source)
	name := filepath.Base(source)
	base := strings.TrimSuffix(name, filepath.Ext(name))
	if base == "" {
		base = name
	}
	return Companion{
		Cache:    filepath.Join(dir, base+".txt"),
		Segments: filepath.Join(dir, base+"Segments.txt"),
		Genomes:  filepath.Join(dir, base+"Genomes.txt"),
	}
}

package cache

import (
	"context"
	"os"
	"path/filepath"

	"github.com/matzehuels/pangraph/pkg/dag"
)

// FileCache stores graph caches as files.
//
// With an empty directory the cache file is the companion "<base>.txt" next
// to the source. Otherwise entries live under dir, sharded by a hash of the
// absolute source path.
type FileCache struct {
	dir string
}

// NewFileCache creates a file-based cache. If dir is non-empty it is
// created if it doesn't exist.
func NewFileCache(dir string) (*FileCache, error) {
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}
	return &FileCache{dir: dir}, nil
}

// Load reads the cache for source. A missing file is a miss.
func (c *FileCache) Load(ctx context.Context, source string) (*dag.Graph, bool, error) {
	path, err := c.Path(source)
	if err != nil {
		return nil, false, err
	}

	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	defer f.Close()

	g, err := Decode(f)
	if err != nil {
		return nil, false, err
	}
	return g, true, nil
}

// Save writes g to a temporary file and renames it over the cache path.
func (c *FileCache) Save(ctx context.Context, source string, g *dag.Graph) error {
	path, err := c.Path(source)
	if err != nil {
		return err
	}
	if abs, _ := filepath.Abs(source); abs != "" {
		if cabs, _ := filepath.Abs(path); cabs == abs {
			return ErrSourceIsCache
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".pangraph-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, g); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// Delete removes the cache file for source.
func (c *FileCache) Delete(ctx context.Context, source string) error {
	path, err := c.Path(source)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close does nothing for file cache.
func (c *FileCache) Close() error {
	return nil
}

// Path returns the cache file used for source.
func (c *FileCache) Path(source string) (string, error) {
	if c.dir == "" {
		return Paths(source).Cache, nil
	}
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", err
	}
	hash := Hash([]byte(abs))
	// Use first 2 chars as subdirectory for distribution
	return filepath.Join(c.dir, hash[:2], hash[2:]+".txt"), nil
}

// Ensure FileCache implements Cache.
var _ Cache = (*FileCache)(nil)

package cache

import (
	"context"

	"github.com/matzehuels/pangraph/pkg/dag"
)

// NullCache is a no-op cache that never stores anything.
// It backs the --no-cache flag and tests.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() *NullCache {
	return &NullCache{}
}

// Load always returns a cache miss.
func (c *NullCache) Load(ctx context.Context, source string) (*dag.Graph, bool, error) {
	return nil, false, nil
}

// Save does nothing.
func (c *NullCache) Save(ctx context.Context, source string, g *dag.Graph) error {
	return nil
}

// Delete does nothing.
func (c *NullCache) Delete(ctx context.Context, source string) error {
	return nil
}

// Close does nothing.
func (c *NullCache) Close() error {
	return nil
}

// Ensure NullCache implements Cache.
var _ Cache = (*NullCache)(nil)

package cache

import (
	"context"

	"github.com/graphsink/graphsink/pkg/graph"
)

// NullCache never stores anything; every lookup misses, so each file is
// parsed unconditionally. Used for tests and --refresh runs.
type NullCache struct{}

// NewNullCache creates a null cache.
func NewNullCache() *NullCache {
	return &NullCache{}
}

// GetSubgraph always misses.
func (*NullCache) GetSubgraph(ctx context.Context, content []byte) (*graph.Node, string, bool) {
	return nil, "", false
}

// PutSubgraph discards the subtree.
func (*NullCache) PutSubgraph(ctx context.Context, content []byte, fileNode *graph.Node) error {
	return nil
}

// Close does nothing.
func (*NullCache) Close() error {
	return nil
}

var _ SubgraphCache = (*NullCache)(nil)

package cache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/graphsink/graphsink/pkg/graph"
)

// DefaultTTL is how long cached subgraphs stay valid. Content-hashed keys
// never go stale, so the TTL only bounds disk growth from dead entries.
const DefaultTTL = 30 * 24 * time.Hour

// FileCache stores scanned subgraphs as JSON files under a directory,
// sharded by key prefix so no single directory grows unbounded.
type FileCache struct {
	dir string
	ttl time.Duration
}

// NewFileCache creates a file-backed cache in the given directory.
// The directory is created if it doesn't exist.
func NewFileCache(dir string) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileCache{dir: dir, ttl: DefaultTTL}, nil
}

// entry wraps a wire-encoded subgraph with its expiration.
type entry struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Graph     json.RawMessage `json:"graph"`
}

// GetSubgraph loads the File subtree cached for content. Corrupt and
// expired entries are removed and read as a miss, so a damaged cache heals
// itself instead of failing the scan.
func (c *FileCache) GetSubgraph(ctx context.Context, content []byte) (*graph.Node, string, bool) {
	path := c.path(content)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		_ = os.Remove(path)
		return nil, "", false
	}
	if !e.ExpiresAt.IsZero() && time.Now().After(e.ExpiresAt) {
		_ = os.Remove(path)
		return nil, "", false
	}

	fileNode, pkgName, err := decodeSubgraph(e.Graph)
	if err != nil {
		_ = os.Remove(path)
		return nil, "", false
	}
	return fileNode, pkgName, true
}

// PutSubgraph stores the File subtree for content.
func (c *FileCache) PutSubgraph(ctx context.Context, content []byte, fileNode *graph.Node) error {
	raw, err := encodeSubgraph(fileNode)
	if err != nil {
		return err
	}

	e := entry{Graph: raw}
	if c.ttl > 0 {
		e.ExpiresAt = time.Now().Add(c.ttl)
	}
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	path := c.path(content)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Close does nothing for the file cache.
func (c *FileCache) Close() error {
	return nil
}

// path maps a source file's content to its entry location.
func (c *FileCache) path(content []byte) string {
	key := contentKey(content)
	return filepath.Join(c.dir, key[:2], key[2:]+".json")
}

var _ SubgraphCache = (*FileCache)(nil)

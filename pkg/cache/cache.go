// Package cache persists scanned file subgraphs between runs.
//
// Entries are keyed by the content hash of the source file, so re-pushing
// an unchanged tree skips tree-sitter parsing entirely while any edit
// invalidates its own entry. Two implementations exist: a file-backed cache
// for normal CLI use and a null cache for tests or --refresh runs.
package cache

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/graphsink/graphsink/pkg/graph"
)

// SubgraphCache stores one scanned File subtree per source-file content.
type SubgraphCache interface {
	// GetSubgraph returns the cached File node for content together with
	// its declared package name. The bool reports whether a valid,
	// unexpired entry was found; invalid entries read as a miss.
	GetSubgraph(ctx context.Context, content []byte) (*graph.Node, string, bool)

	// PutSubgraph stores the File subtree produced by parsing content.
	// The node must carry its package name in Props["package"].
	PutSubgraph(ctx context.Context, content []byte, fileNode *graph.Node) error

	// Close releases any resources held by the cache.
	Close() error
}

// contentKey derives the cache key for a source file. The key depends only
// on file content, not path, so moved files still hit.
func contentKey(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// encodeSubgraph serializes one File subtree as a wire graph.
func encodeSubgraph(fileNode *graph.Node) ([]byte, error) {
	return graph.MarshalRoots([]*graph.Node{fileNode})
}

// decodeSubgraph restores a File subtree from its wire form. The declared
// package name travels in the File node's properties; an entry without one
// cannot have come from a successful parse.
func decodeSubgraph(data []byte) (*graph.Node, string, error) {
	roots, err := graph.ReadJSON(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if len(roots) != 1 {
		return nil, "", fmt.Errorf("expected one file root in cached subgraph, got %d", len(roots))
	}
	fileNode := roots[0]
	pkgName, _ := fileNode.Props["package"].(string)
	if pkgName == "" {
		return nil, "", fmt.Errorf("cached subgraph missing package name")
	}
	return fileNode, pkgName, nil
}

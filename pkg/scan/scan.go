// Package scan turns source trees into the code property graph persisted by
// the pipeline.
//
// The scanner parses Go files with tree-sitter and produces one Package
// root node per declared package, with File children and declaration
// grandchildren (functions, methods, types). Containment edges form the
// structural relationship the flattener traverses; methods additionally
// carry a semantic MEMBER_OF relation to their receiver type when it is
// declared in the same file.
//
// Node identities are content-independent (path, line, name), so they stay
// stable for the duration of a run as the analysis boundary requires.
// Per-file subgraphs are cached by content hash, so unchanged files skip
// parsing on repeat runs.
package scan

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/graphsink/graphsink/pkg/cache"
	"github.com/graphsink/graphsink/pkg/errors"
	"github.com/graphsink/graphsink/pkg/graph"
	"github.com/graphsink/graphsink/pkg/observability"
)

// DefaultMaxFileSize is the largest source file the scanner will parse (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// Scanner parses source paths into graph roots.
type Scanner struct {
	Logger      *log.Logger
	Cache       cache.SubgraphCache
	MaxFileSize int64
}

// New creates a Scanner. A nil cache disables caching; a nil logger uses
// the default logger.
func New(c cache.SubgraphCache, logger *log.Logger) *Scanner {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Scanner{Logger: logger, Cache: c, MaxFileSize: DefaultMaxFileSize}
}

// ScanPaths scans files and directories into Package root nodes.
//
// Directories are walked recursively, skipping hidden entries. Files in
// the same package share one Package root, so scanning overlapping inputs
// yields duplicate root identities rather than duplicate trees - the
// pipeline's flattener deduplicates them by identity.
func (s *Scanner) ScanPaths(ctx context.Context, paths []string) ([]*graph.Node, error) {
	var files []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "stat %s", p)
		}
		if !info.IsDir() {
			files = append(files, p)
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			name := d.Name()
			if d.IsDir() {
				if path != p && strings.HasPrefix(name, ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if strings.HasSuffix(name, ".go") && !strings.HasPrefix(name, ".") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeScan, err, "walk %s", p)
		}
	}

	packages := make(map[string]*graph.Node)
	var roots []*graph.Node

	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fileNode, pkgName, err := s.scanFile(ctx, path)
		if err != nil {
			return nil, err
		}
		if fileNode == nil {
			continue // unsupported or empty file
		}

		pkgID := packageID(filepath.Dir(path), pkgName)
		pkg, ok := packages[pkgID]
		if !ok {
			pkg = graph.MustNode(pkgID, "Package")
			pkg.Props["name"] = pkgName
			pkg.Props["dir"] = filepath.ToSlash(filepath.Dir(path))
			packages[pkgID] = pkg
			roots = append(roots, pkg)
		}
		if err := pkg.AddChild(fileNode); err != nil {
			return nil, err
		}
	}

	s.Logger.Debug("scan complete", "files", len(files), "packages", len(roots))
	return roots, nil
}

// scanFile parses one file, consulting the cache first. Returns the File
// node and the declared package name.
func (s *Scanner) scanFile(ctx context.Context, path string) (*graph.Node, string, error) {
	start := time.Now()
	observability.Scan().OnFileStart(ctx, path)

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeScan, err, "read %s", path)
	}
	if int64(len(content)) > s.MaxFileSize {
		return nil, "", errors.New(errors.ErrCodeScan, "%s exceeds maximum file size (%d bytes)", path, s.MaxFileSize)
	}

	if fileNode, pkgName, hit := s.Cache.GetSubgraph(ctx, content); hit {
		observability.Cache().OnCacheHit(ctx, "scan")
		observability.Scan().OnFileComplete(ctx, path, nodeCount(fileNode), time.Since(start), nil)
		return fileNode, pkgName, nil
	}
	observability.Cache().OnCacheMiss(ctx, "scan")

	fileNode, pkgName, err := parseGoFile(ctx, content, filepath.ToSlash(path))
	observability.Scan().OnFileComplete(ctx, path, nodeCount(fileNode), time.Since(start), err)
	if err != nil {
		return nil, "", err
	}

	if err := s.Cache.PutSubgraph(ctx, content, fileNode); err == nil {
		observability.Cache().OnCacheSet(ctx, "scan", nodeCount(fileNode))
	}

	return fileNode, pkgName, nil
}

func nodeCount(n *graph.Node) int {
	if n == nil {
		return 0
	}
	return 1 + len(n.Children())
}

// packageID derives the stable identity of a package node from its
// directory and declared name.
func packageID(dir, name string) string {
	return "package:" + shortHash(filepath.ToSlash(dir)+":"+name)
}

// nodeID derives the stable identity of a declaration node.
func nodeID(kind, path string, line int, name string) string {
	return kind + ":" + shortHash(fmt.Sprintf("%s:%d:%s", path, line, name))
}

func shortHash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:8])
}

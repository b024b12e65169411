package cli

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/graphsink/graphsink/pkg/errors"
)

// validatePaths checks that every input path exists, contains no hidden
// component, and that all paths share a common top-level directory. The
// common-root requirement keeps one run scoped to one project; scanning
// unrelated trees in a single destructive push is almost always a mistake.
func validatePaths(paths []string) error {
	if len(paths) == 0 {
		return errors.New(errors.ErrCodeInvalidInput, "at least one path is required")
	}

	var root string
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "path %s", p)
		}
		abs, err := filepath.Abs(p)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidPath, err, "resolve %s", p)
		}
		if hidden := hiddenComponent(abs); hidden != "" {
			return errors.New(errors.ErrCodeInvalidPath, "path %s contains hidden component %q", p, hidden)
		}
		top := topLevel(abs)
		if root == "" {
			root = top
		} else if top != root {
			return errors.New(errors.ErrCodeInvalidPath,
				"paths must share a common top-level directory: %s is outside %s", p, root)
		}
	}
	return nil
}

// hiddenComponent returns the first dot-prefixed path component, or "".
// "." and ".." are path syntax, not hidden names.
func hiddenComponent(abs string) string {
	for _, part := range strings.Split(filepath.ToSlash(abs), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return part
		}
	}
	return ""
}

// topLevel returns the first directory component below the filesystem root.
func topLevel(abs string) string {
	rel := strings.TrimPrefix(filepath.ToSlash(abs), "/")
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return rel
}

// loadIncludes reads one path per line from file. Blank lines and lines
// starting with '#' are skipped; relative entries are resolved against the
// directory containing the file.
func loadIncludes(file string) ([]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "open includes file %s", file)
	}
	defer f.Close()

	base := filepath.Dir(file)
	var paths []string

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !filepath.IsAbs(line) {
			line = filepath.Join(base, line)
		}
		paths = append(paths, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidPath, err, "read includes file %s", file)
	}
	return paths, nil
}

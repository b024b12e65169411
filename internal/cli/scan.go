package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/graphsink/graphsink/pkg/cache"
	"github.com/graphsink/graphsink/pkg/export"
	"github.com/graphsink/graphsink/pkg/scan"
)

// scanOpts holds the command-line flags for the scan command.
type scanOpts struct {
	format       string
	output       string
	includesFrom string
	refresh      bool
	cacheDir     string
}

// newScanCmd creates the scan command, which parses source paths into a
// graph and writes it without touching a database.
func newScanCmd() *cobra.Command {
	opts := scanOpts{format: export.FormatJSON}

	cmd := &cobra.Command{
		Use:   "scan [paths...]",
		Short: "Scan source paths into a code graph",
		Long: `Scan Go source paths into a code graph and write it to a file or stdout.

Examples:
  graphsink scan ./pkg                       # JSON to stdout
  graphsink scan . -o graph.json             # JSON to file
  graphsink scan . --format svg -o graph.svg # rendered visualization`,
		RunE: func(c *cobra.Command, args []string) error {
			return runScan(c.Context(), &opts, args)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", opts.format, "output format ("+strings.Join(export.Formats(), "|")+")")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output file (stdout if empty)")
	cmd.Flags().StringVar(&opts.includesFrom, "includes-from", "", "file listing additional paths to scan, one per line")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the scan cache")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "scan cache directory (default: user cache dir)")

	return cmd
}

func runScan(ctx context.Context, opts *scanOpts, args []string) error {
	logger := loggerFromContext(ctx)

	if err := export.ValidateFormat(opts.format); err != nil {
		return err
	}
	paths, err := collectPaths(args, opts.includesFrom)
	if err != nil {
		return err
	}

	scanner, closeCache, err := newScanner(opts.refresh, opts.cacheDir, logger)
	if err != nil {
		return err
	}
	defer closeCache()

	prog := newProgress(logger)
	roots, err := scanner.ScanPaths(ctx, paths)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Scanned %d packages", len(roots)))

	out, err := openOutput(opts.output)
	if err != nil {
		return err
	}
	defer out.Close()

	if err := export.Write(roots, opts.format, out); err != nil {
		return err
	}
	if opts.output != "" {
		logger.Infof("Wrote %s graph to %s", opts.format, opts.output)
	}
	return nil
}

// newScanner builds a scanner with a file-backed cache. With refresh the
// cache is disabled entirely for this run. The returned func closes the
// cache and must be called when scanning is done.
func newScanner(refresh bool, cacheDir string, logger *log.Logger) (*scan.Scanner, func(), error) {
	if refresh {
		s := scan.New(cache.NewNullCache(), logger)
		return s, func() {}, nil
	}
	if cacheDir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			logger.Warn("no user cache dir; scan cache disabled", "err", err)
			s := scan.New(cache.NewNullCache(), logger)
			return s, func() {}, nil
		}
		cacheDir = filepath.Join(base, "graphsink", "scan")
	}
	c, err := cache.NewFileCache(cacheDir)
	if err != nil {
		return nil, nil, err
	}
	s := scan.New(c, logger)
	return s, func() { _ = c.Close() }, nil
}

// nopCloser wraps an io.Writer with a no-op Close method.
type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// openOutput returns a WriteCloser for the given path.
// If path is empty, it returns os.Stdout wrapped in nopCloser.
func openOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stdout}, nil
	}
	return os.Create(path)
}

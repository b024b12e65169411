package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/graphsink/graphsink/pkg/errors"
	"github.com/graphsink/graphsink/pkg/pipeline"
	"github.com/graphsink/graphsink/pkg/store"
	mongostore "github.com/graphsink/graphsink/pkg/store/mongo"
	neo4jstore "github.com/graphsink/graphsink/pkg/store/neo4j"
)

// pushOpts holds the command-line flags for the push command.
type pushOpts struct {
	uri          string
	username     string
	password     string
	database     string
	backend      string
	backendSet   bool
	autoIndex    bool
	depth        int
	maxAttempts  int
	retryDelay   time.Duration
	configFile   string
	includesFrom string
	refresh      bool
	cacheDir     string
}

// dialers maps backend names to their store dialers.
var dialers = map[string]store.Dialer{
	"neo4j": neo4jstore.Dial,
	"mongo": mongostore.Dial,
}

// newPushCmd creates the push command.
//
// Push is destructive: it purges the entire target database before writing.
// There is no flag to skip the purge; the tool's contract is that after a
// successful push the database holds exactly the scanned graph.
func newPushCmd() *cobra.Command {
	opts := pushOpts{
		backend:     "neo4j",
		depth:       pipeline.DefaultSaveDepth,
		maxAttempts: 0, // pipeline default
	}

	cmd := &cobra.Command{
		Use:   "push [paths...]",
		Short: "Scan source paths and persist the graph into a database",
		Long: `Scan Go source paths into a code graph and persist it into a graph database.

The target database is purged before writing. Connection failures are retried
with a fixed delay up to a bound; rejected credentials abort immediately.

Examples:
  graphsink push ./cmd ./pkg --uri bolt://localhost:7687 --username neo4j --password secret
  graphsink push --includes-from paths.txt --backend mongo --uri mongodb://localhost:27017
  graphsink push . -c graphsink.toml --depth 2`,
		RunE: func(c *cobra.Command, args []string) error {
			opts.backendSet = c.Flags().Changed("backend")
			return runPush(c.Context(), &opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.uri, "uri", "", "database connection URI")
	cmd.Flags().StringVar(&opts.username, "username", "", "database username")
	cmd.Flags().StringVar(&opts.password, "password", "", "database password")
	cmd.Flags().StringVar(&opts.database, "database", "", "named database (backend default if empty)")
	cmd.Flags().StringVar(&opts.backend, "backend", opts.backend, "storage backend (neo4j|mongo)")
	cmd.Flags().BoolVar(&opts.autoIndex, "auto-index", false, "create identity constraints on connect")
	cmd.Flags().IntVar(&opts.depth, "depth", opts.depth, "relationship traversal depth cap (-1 for unbounded)")
	cmd.Flags().IntVar(&opts.maxAttempts, "max-attempts", opts.maxAttempts, "maximum connection attempts (0 for default)")
	cmd.Flags().DurationVar(&opts.retryDelay, "retry-delay", 0, "delay between connection attempts (0 for default)")
	cmd.Flags().StringVarP(&opts.configFile, "config", "c", "", "TOML config file with connection defaults")
	cmd.Flags().StringVar(&opts.includesFrom, "includes-from", "", "file listing additional paths to scan, one per line")
	cmd.Flags().BoolVar(&opts.refresh, "refresh", false, "bypass the scan cache")
	cmd.Flags().StringVar(&opts.cacheDir, "cache-dir", "", "scan cache directory (default: user cache dir)")

	return cmd
}

func runPush(ctx context.Context, opts *pushOpts, args []string) error {
	logger := loggerFromContext(ctx)

	if opts.configFile != "" {
		cfg, err := loadConfig(opts.configFile)
		if err != nil {
			return err
		}
		cfg.apply(opts)
	}

	dial, ok := dialers[opts.backend]
	if !ok {
		return errors.New(errors.ErrCodeInvalidInput, "unknown backend %q (must be neo4j or mongo)", opts.backend)
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

	logger.Infof("Scanning %d paths", len(paths))
	prog := newProgress(logger)
	roots, err := scanner.ScanPaths(ctx, paths)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Scanned %d packages", len(roots)))

	runner := pipeline.NewRunner(dial, logger)
	pushProg := newProgress(logger)
	result, err := runner.Persist(ctx, roots, pipeline.Options{
		URI:         opts.uri,
		Username:    opts.username,
		Password:    opts.password,
		Database:    opts.database,
		AutoIndex:   opts.autoIndex,
		SaveDepth:   opts.depth,
		MaxAttempts: opts.maxAttempts,
		RetryDelay:  opts.retryDelay,
		Logger:      logger,
	})
	if err != nil {
		// A rejected credential is a configuration error, not a runtime
		// flake. Abort the process here at the boundary; library code
		// below never exits.
		if errors.Is(err, errors.ErrCodeAuth) {
			logger.Fatal("Authentication failed; check username and password", "uri", opts.uri)
		}
		return err
	}
	pushProg.done(fmt.Sprintf("Pushed %d nodes to %s", result.NodeCount, opts.backend))

	logger.Debug("timings",
		"connect", result.Stats.ConnectTime.Round(time.Millisecond),
		"flatten", result.Stats.FlattenTime.Round(time.Millisecond),
		"save", result.Stats.SaveTime.Round(time.Millisecond))
	return nil
}

// collectPaths merges positional arguments with an optional includes file
// and validates the combined set.
func collectPaths(args []string, includesFrom string) ([]string, error) {
	paths := append([]string(nil), args...)
	if includesFrom != "" {
		extra, err := loadIncludes(includesFrom)
		if err != nil {
			return nil, err
		}
		paths = append(paths, extra...)
	}
	if err := validatePaths(paths); err != nil {
		return nil, err
	}
	return paths, nil
}

// Package pipeline persists a scanned code graph into a graph database.
//
// The pipeline runs one synchronous sequence per invocation:
//
//  1. Acquire a session through the connection manager (bounded retry)
//  2. Purge all existing database content (fixed policy, always on)
//  3. Flatten the root nodes into a deduplicated node set
//  4. Begin a transaction scoped to the session
//  5. Bulk-save the node set, bounded by the configured traversal depth
//  6. Commit
//
// Session clear and factory close run on every exit path via deferred
// cleanup, so a failure in any step cannot leak the connection. A failure
// during steps 2–5 leaves the transaction uncommitted; a purge that already
// ran is not undone, so a failed run can leave the database empty. That risk
// is inherent to the destructive-by-default write policy and is surfaced in
// the logs rather than masked.
package pipeline

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/graphsink/graphsink/pkg/connect"
	"github.com/graphsink/graphsink/pkg/errors"
	"github.com/graphsink/graphsink/pkg/graph"
	"github.com/graphsink/graphsink/pkg/observability"
	"github.com/graphsink/graphsink/pkg/store"
)

// DefaultSaveDepth lets the backend expand relationships without an
// explicit hop limit.
const DefaultSaveDepth = store.UnboundedDepth

// Options contains all configuration for one persistence run.
type Options struct {
	// Connection settings, handed to the backend dialer.
	URI      string
	Username string
	Password string
	Database string

	// AutoIndex asks the backend to create identity constraints on open.
	AutoIndex bool

	// SaveDepth caps how many structural hops from each node are expanded
	// into persisted relationships. -1 means unbounded. A depth cap is a
	// resource control, not a correctness one: nodes beyond the cap are
	// still written as records, just not linked in this write.
	SaveDepth int

	// Retry policy for transient connection failures.
	MaxAttempts int
	RetryDelay  time.Duration

	// Logger for progress output. Defaults to log.Default().
	Logger *log.Logger `json:"-"`

	validated bool
}

// ValidateAndSetDefaults checks fields and applies defaults.
// This method is idempotent.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if o.URI == "" {
		return errors.New(errors.ErrCodeInvalidInput, "database URI is required")
	}
	if o.SaveDepth < store.UnboundedDepth {
		return errors.New(errors.ErrCodeInvalidDepth, "save depth must be -1 (unbounded) or >= 0, got %d", o.SaveDepth)
	}
	if o.MaxAttempts == 0 {
		o.MaxAttempts = connect.DefaultMaxAttempts
	}
	if o.RetryDelay == 0 {
		o.RetryDelay = connect.DefaultRetryDelay
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	o.validated = true
	return nil
}

func (o *Options) storeConfig() store.Config {
	return store.Config{
		URI:       o.URI,
		Username:  o.Username,
		Password:  o.Password,
		AutoIndex: o.AutoIndex,
		Database:  o.Database,
	}
}

func (o *Options) policy() connect.Policy {
	return connect.Policy{MaxAttempts: o.MaxAttempts, Delay: o.RetryDelay}
}

// Stats contains timing information for one run.
type Stats struct {
	ConnectTime time.Duration
	FlattenTime time.Duration
	SaveTime    time.Duration
}

// Result contains the outputs of a persistence run.
type Result struct {
	// NodeCount is the number of nodes pushed to the database.
	NodeCount int

	// Stats contains per-phase timings.
	Stats Stats
}

// Runner executes persistence runs against one backend dialer.
// The Runner is stateless across runs; each Persist call acquires and
// releases its own session.
type Runner struct {
	Manager *connect.Manager
	Logger  *log.Logger
}

// NewRunner creates a runner that opens sessions through dial.
func NewRunner(dial store.Dialer, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Manager: connect.New(dial, logger),
		Logger:  logger,
	}
}

// Persist writes the graph reachable from roots into the database.
//
// It returns the number of nodes pushed on success. On any failure the
// transaction is not committed and no partial commit is visible; the
// session and factory are released regardless of outcome.
func (r *Runner) Persist(ctx context.Context, roots []*graph.Node, opts Options) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	logger := opts.Logger

	// Step 1: acquire the session, retrying transient failures.
	connectStart := time.Now()
	factory, session, err := r.Manager.Connect(ctx, opts.storeConfig(), opts.policy())
	connectTime := time.Since(connectStart)
	observability.Persistence().OnConnectComplete(ctx, opts.URI, opts.MaxAttempts, connectTime, err)
	if err != nil {
		return nil, err
	}
	logger.Info("connected", "uri", opts.URI, "duration", connectTime.Round(time.Millisecond))

	// The session and factory are released on every exit path, in that
	// order, exactly once.
	defer func() {
		if err := session.Clear(ctx); err != nil {
			logger.Warn("session clear failed", "err", err)
		}
		if err := factory.Close(ctx); err != nil {
			logger.Warn("connection close failed", "err", err)
		}
	}()

	// Step 2: purge. Destructive and always on; there is deliberately no
	// flag to skip it, matching the tool's replace-everything contract.
	logger.Warn("purging all existing database content")
	purgeStart := time.Now()
	err = session.Purge(ctx)
	observability.Persistence().OnPurge(ctx, time.Since(purgeStart), err)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistence, err, "purge database")
	}

	// Step 3: flatten.
	observability.Persistence().OnFlattenStart(ctx, len(roots))
	flattenStart := time.Now()
	nodes := graph.Flatten(roots)
	flattenTime := time.Since(flattenStart)
	observability.Persistence().OnFlattenComplete(ctx, len(nodes), flattenTime)
	logger.Info("flattened graph",
		"roots", len(roots),
		"nodes", len(nodes),
		"duration", flattenTime.Round(time.Millisecond))

	// Steps 4–6: transactional bulk save. Close after Commit is a no-op;
	// Close without Commit rolls back, which gives abort semantics on any
	// save failure.
	tx, err := session.BeginTransaction(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistence, err, "begin transaction")
	}
	defer func() {
		if err := tx.Close(ctx); err != nil {
			logger.Warn("transaction close failed", "err", err)
		}
	}()

	observability.Persistence().OnSaveStart(ctx, len(nodes), opts.SaveDepth)
	saveStart := time.Now()
	err = session.Save(ctx, nodes, opts.SaveDepth)
	saveTime := time.Since(saveStart)
	observability.Persistence().OnSaveComplete(ctx, len(nodes), saveTime, err)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistence, err, "save %d nodes", len(nodes))
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistence, err, "commit transaction")
	}

	logger.Info("saved graph",
		"nodes", len(nodes),
		"depth", opts.SaveDepth,
		"duration", saveTime.Round(time.Millisecond))

	return &Result{
		NodeCount: len(nodes),
		Stats: Stats{
			ConnectTime: connectTime,
			FlattenTime: flattenTime,
			SaveTime:    saveTime,
		},
	}, nil
}

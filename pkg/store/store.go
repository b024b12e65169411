// Package store defines the graph-database client boundary consumed by the
// persistence pipeline.
//
// Backends (see the neo4j and mongo subpackages) expose a connection
// factory, a session, and explicit transactions. The pipeline owns one
// session exclusively per run and releases it unconditionally when the run
// ends; the interfaces here exist so that ownership and release can be
// tested without a live database.
package store

import (
	"context"

	"github.com/graphsink/graphsink/pkg/graph"
)

// UnboundedDepth disables the relationship traversal cap during Save:
// the backend may expand and persist relationships without an explicit
// hop limit.
const UnboundedDepth = -1

// Config describes how to open a session against a backend.
type Config struct {
	URI      string // backend connection URI, e.g. "bolt://localhost:7687"
	Username string
	Password string

	// AutoIndex requests that the backend create identity indexes or
	// uniqueness constraints when the session is opened.
	AutoIndex bool

	// Database selects a named database where the backend supports one.
	// Empty means the backend default.
	Database string
}

// Factory owns the underlying connection resources (driver, client pool).
// It outlives the session and must be closed exactly once at the end of
// a pipeline run.
type Factory interface {
	// Close releases the underlying connection resources.
	Close(ctx context.Context) error
}

// Session is a live, authenticated handle to the database. A session is
// exclusively owned by one pipeline run and is not safe for concurrent use.
type Session interface {
	// Purge destructively removes all existing content in the target
	// database. Irreversible; the caller is responsible for gating it.
	Purge(ctx context.Context) error

	// BeginTransaction starts an explicit transaction scoped to this
	// session. Saves issued on the session before Commit belong to it.
	BeginTransaction(ctx context.Context) (Transaction, error)

	// Save bulk-persists the node set. depth caps how many structural
	// hops from each node are expanded into persisted relationships;
	// UnboundedDepth removes the cap. Nodes beyond the cap are still
	// written as records, just not linked in this write.
	Save(ctx context.Context, nodes []*graph.Node, depth int) error

	// Clear releases the session. Must be called exactly once, on every
	// exit path, before the factory is closed.
	Clear(ctx context.Context) error
}

// Transaction is an explicit unit of work. Close without a prior Commit
// rolls the work back; Close after Commit is a no-op, so callers can defer
// it unconditionally.
type Transaction interface {
	Commit(ctx context.Context) error
	Close(ctx context.Context) error
}

// Dialer opens a session against a backend. Implementations classify
// failures with the structured error codes in pkg/errors: ErrCodeAuth for
// rejected credentials (never retried) and ErrCodeConnection for transient
// connectivity failures (retried by the connection manager).
type Dialer func(ctx context.Context, cfg Config) (Factory, Session, error)

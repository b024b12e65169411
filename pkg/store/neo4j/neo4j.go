// Package neo4j implements the store boundary on top of the official
// Bolt driver.
//
// The driver is the connection factory, a write-mode driver session backs
// [store.Session], and explicit driver transactions back
// [store.Transaction]. Bulk saves batch node records with UNWIND + MERGE
// per label and relationship rows per type, since Cypher cannot
// parameterize labels or relationship types.
package neo4j

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/graphsink/graphsink/pkg/errors"
	"github.com/graphsink/graphsink/pkg/graph"
	"github.com/graphsink/graphsink/pkg/store"
)

const (
	// DefaultLabel is used for nodes that carry no labels of their own.
	DefaultLabel = "Element"

	// batchSize bounds how many rows one UNWIND statement carries.
	batchSize = 1000
)

// purgeQuery destructively removes all nodes and relationships.
const purgeQuery = `MATCH (n) DETACH DELETE n`

// identifierRx validates labels and relationship types before they are
// interpolated into Cypher text (they cannot be passed as parameters).
var identifierRx = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Dial opens a driver and a write session against a Neo4j server.
// It verifies connectivity eagerly so that authentication and reachability
// failures surface here, classified with the structured codes the
// connection manager retries on.
func Dial(ctx context.Context, cfg store.Config) (store.Factory, store.Session, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeConnection, err, "create driver for %s", cfg.URI)
	}

	if err := driver.VerifyConnectivity(ctx); err != nil {
		_ = driver.Close(ctx)
		return nil, nil, classify(err, cfg.URI)
	}

	sess := driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: cfg.Database,
	})

	s := &session{sess: sess}
	if cfg.AutoIndex {
		if err := s.createConstraints(ctx); err != nil {
			_ = sess.Close(ctx)
			_ = driver.Close(ctx)
			return nil, nil, err
		}
	}

	return &factory{driver: driver}, s, nil
}

// classify maps driver errors onto the tool's failure taxonomy. Security
// errors are terminal misconfiguration; everything else during dialing is
// treated as transient connectivity.
func classify(err error, uri string) error {
	var neoErr *neo4j.Neo4jError
	if stderrors.As(err, &neoErr) && strings.HasPrefix(neoErr.Code, "Neo.ClientError.Security.") {
		return errors.Wrap(errors.ErrCodeAuth, err, "credentials rejected by %s", uri)
	}
	return errors.Wrap(errors.ErrCodeConnection, err, "database unreachable at %s", uri)
}

type factory struct {
	driver neo4j.DriverWithContext
}

func (f *factory) Close(ctx context.Context) error {
	return f.driver.Close(ctx)
}

type session struct {
	sess neo4j.SessionWithContext
	tx   neo4j.ExplicitTransaction
}

// createConstraints installs uniqueness constraints on node identity, which
// also index the MERGE lookups the bulk save depends on.
func (s *session) createConstraints(ctx context.Context) error {
	for _, label := range []string{DefaultLabel, "File", "Function", "Method", "Type", "Package"} {
		q := fmt.Sprintf(
			"CREATE CONSTRAINT %s_id IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
			strings.ToLower(label), label)
		if _, err := s.sess.Run(ctx, q, nil); err != nil {
			return errors.Wrap(errors.ErrCodePersistence, err, "create constraint for %s", label)
		}
	}
	return nil
}

func (s *session) Purge(ctx context.Context) error {
	_, err := s.run(ctx, purgeQuery, nil)
	return err
}

func (s *session) BeginTransaction(ctx context.Context) (store.Transaction, error) {
	tx, err := s.sess.BeginTransaction(ctx)
	if err != nil {
		return nil, err
	}
	s.tx = tx
	return &transaction{tx: tx, owner: s}, nil
}

// Save writes the node set and its depth-capped relationships. Writes run
// inside the currently open explicit transaction, so nothing is visible
// until the caller commits.
func (s *session) Save(ctx context.Context, nodes []*graph.Node, depth int) error {
	plan := store.PlanSave(nodes, depth)

	for label, rows := range nodeRows(plan.Nodes) {
		if !identifierRx.MatchString(label) {
			return errors.New(errors.ErrCodePersistence, "invalid node label %q", label)
		}
		q := fmt.Sprintf(`
UNWIND $rows AS row
MERGE (n:%s {id: row.id})
SET n += row.props, n.labels = row.labels`, label)
		if err := s.runBatched(ctx, q, rows); err != nil {
			return err
		}
	}

	if err := s.runBatched(ctx, `
UNWIND $rows AS row
MATCH (a {id: row.from})
MATCH (b {id: row.to})
MERGE (a)-[:CONTAINS]->(b)`, edgeRows(plan.Children)); err != nil {
		return err
	}

	for relType, rows := range relationRows(plan.Relations) {
		if !identifierRx.MatchString(relType) {
			return errors.New(errors.ErrCodePersistence, "invalid relationship type %q", relType)
		}
		q := fmt.Sprintf(`
UNWIND $rows AS row
MATCH (a {id: row.from})
MATCH (b {id: row.to})
MERGE (a)-[:%s]->(b)`, relType)
		if err := s.runBatched(ctx, q, rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) Clear(ctx context.Context) error {
	s.tx = nil
	return s.sess.Close(ctx)
}

// run executes a statement on the open explicit transaction if one exists,
// otherwise directly on the session (auto-commit).
func (s *session) run(ctx context.Context, query string, params map[string]any) (any, error) {
	if s.tx != nil {
		return s.tx.Run(ctx, query, params)
	}
	return s.sess.Run(ctx, query, params)
}

func (s *session) runBatched(ctx context.Context, query string, rows []map[string]any) error {
	for start := 0; start < len(rows); start += batchSize {
		end := min(start+batchSize, len(rows))
		if _, err := s.run(ctx, query, map[string]any{"rows": rows[start:end]}); err != nil {
			return errors.Wrap(errors.ErrCodePersistence, err, "bulk write of %d rows", end-start)
		}
	}
	return nil
}

// nodeRows groups node records by their primary label, since a label is
// part of the Cypher text rather than a parameter.
func nodeRows(nodes []*graph.Node) map[string][]map[string]any {
	grouped := make(map[string][]map[string]any)
	for _, n := range nodes {
		label := DefaultLabel
		if len(n.Labels) > 0 {
			label = n.Labels[0]
		}
		grouped[label] = append(grouped[label], map[string]any{
			"id":     n.ID,
			"labels": n.Labels,
			"props":  map[string]any(n.Props),
		})
	}
	return grouped
}

func edgeRows(edges []store.Edge) []map[string]any {
	rows := make([]map[string]any, len(edges))
	for i, e := range edges {
		rows[i] = map[string]any{"from": e.From, "to": e.To}
	}
	return rows
}

func relationRows(edges []store.Edge) map[string][]map[string]any {
	grouped := make(map[string][]map[string]any)
	for _, e := range edges {
		grouped[e.Type] = append(grouped[e.Type], map[string]any{"from": e.From, "to": e.To})
	}
	return grouped
}

type transaction struct {
	tx    neo4j.ExplicitTransaction
	owner *session
}

func (t *transaction) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

// Close rolls the transaction back unless it was committed (the driver
// makes Close after Commit a no-op), then detaches it from the session so
// later statements auto-commit.
func (t *transaction) Close(ctx context.Context) error {
	if t.owner.tx == t.tx {
		t.owner.tx = nil
	}
	return t.tx.Close(ctx)
}

var _ store.Dialer = Dial

// Package mongo implements the store boundary on a MongoDB document store.
//
// Nodes and relationships land in two collections ("nodes", "edges") inside
// one database. The client is the connection factory, a driver session backs
// [store.Session] so that saves participate in a multi-document transaction,
// and purge drops both collections. This backend exists for deployments
// without a graph database; the document shape mirrors the JSON export
// format, so the graph can be rebuilt or ETL'd later.
package mongo

import (
	"context"
	stderrors "errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/graphsink/graphsink/pkg/errors"
	"github.com/graphsink/graphsink/pkg/graph"
	"github.com/graphsink/graphsink/pkg/store"
)

const (
	// DefaultDatabase is used when the config names no database.
	DefaultDatabase = "graphsink"

	nodesCollection = "nodes"
	edgesCollection = "edges"
)

// Dial connects a client and opens a driver session. Connectivity is
// verified eagerly with a primary ping so that unreachable servers and
// rejected credentials surface here, classified for the retry policy.
func Dial(ctx context.Context, cfg store.Config) (store.Factory, store.Session, error) {
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.Username != "" {
		opts.SetAuth(options.Credential{Username: cfg.Username, Password: cfg.Password})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, errors.Wrap(errors.ErrCodeConnection, err, "create client for %s", cfg.URI)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, classify(err, cfg.URI)
	}

	dbName := cfg.Database
	if dbName == "" {
		dbName = DefaultDatabase
	}
	db := client.Database(dbName)

	if cfg.AutoIndex {
		if err := createIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, err
		}
	}

	msess, err := client.StartSession()
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, errors.Wrap(errors.ErrCodeConnection, err, "start session on %s", cfg.URI)
	}

	return &factory{client: client}, &session{msess: msess, db: db}, nil
}

// classify maps driver errors onto the tool's failure taxonomy.
func classify(err error, uri string) error {
	var cmdErr mongo.CommandError
	if stderrors.As(err, &cmdErr) && cmdErr.Code == 18 { // AuthenticationFailed
		return errors.Wrap(errors.ErrCodeAuth, err, "credentials rejected by %s", uri)
	}
	if strings.Contains(err.Error(), "auth error") || strings.Contains(err.Error(), "authentication failed") {
		return errors.Wrap(errors.ErrCodeAuth, err, "credentials rejected by %s", uri)
	}
	return errors.Wrap(errors.ErrCodeConnection, err, "database unreachable at %s", uri)
}

func createIndexes(ctx context.Context, db *mongo.Database) error {
	edges := db.Collection(edgesCollection)
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "from", Value: 1}}},
		{Keys: bson.D{{Key: "to", Value: 1}}},
	}
	if _, err := edges.Indexes().CreateMany(ctx, models); err != nil {
		return errors.Wrap(errors.ErrCodePersistence, err, "create edge indexes")
	}
	return nil
}

type factory struct {
	client *mongo.Client
}

func (f *factory) Close(ctx context.Context) error {
	return f.client.Disconnect(ctx)
}

type session struct {
	msess mongo.Session
	db    *mongo.Database
	inTx  bool
}

func (s *session) Purge(ctx context.Context) error {
	for _, name := range []string{nodesCollection, edgesCollection} {
		if err := s.db.Collection(name).Drop(ctx); err != nil {
			return errors.Wrap(errors.ErrCodePersistence, err, "drop collection %s", name)
		}
	}
	return nil
}

func (s *session) BeginTransaction(ctx context.Context) (store.Transaction, error) {
	if err := s.msess.StartTransaction(); err != nil {
		return nil, err
	}
	s.inTx = true
	return &transaction{owner: s}, nil
}

// Save inserts the node set and its depth-capped relationship documents.
// When a transaction is open the inserts are bound to it through the
// session context, so nothing is visible until commit.
func (s *session) Save(ctx context.Context, nodes []*graph.Node, depth int) error {
	plan := store.PlanSave(nodes, depth)

	nodeDocs := make([]any, len(plan.Nodes))
	for i, n := range plan.Nodes {
		nodeDocs[i] = bson.M{
			"_id":    n.ID,
			"labels": n.Labels,
			"props":  map[string]any(n.Props),
		}
	}

	var edgeDocs []any
	for _, e := range plan.Children {
		edgeDocs = append(edgeDocs, bson.M{"from": e.From, "to": e.To, "type": "CONTAINS"})
	}
	for _, e := range plan.Relations {
		edgeDocs = append(edgeDocs, bson.M{"from": e.From, "to": e.To, "type": e.Type})
	}

	return mongo.WithSession(ctx, s.msess, func(sc mongo.SessionContext) error {
		if len(nodeDocs) > 0 {
			if _, err := s.db.Collection(nodesCollection).InsertMany(sc, nodeDocs); err != nil {
				return errors.Wrap(errors.ErrCodePersistence, err, "insert %d nodes", len(nodeDocs))
			}
		}
		if len(edgeDocs) > 0 {
			if _, err := s.db.Collection(edgesCollection).InsertMany(sc, edgeDocs); err != nil {
				return errors.Wrap(errors.ErrCodePersistence, err, "insert %d edges", len(edgeDocs))
			}
		}
		return nil
	})
}

func (s *session) Clear(ctx context.Context) error {
	s.msess.EndSession(ctx)
	return nil
}

type transaction struct {
	owner     *session
	committed bool
}

func (t *transaction) Commit(ctx context.Context) error {
	if err := t.owner.msess.CommitTransaction(ctx); err != nil {
		return err
	}
	t.committed = true
	t.owner.inTx = false
	return nil
}

// Close aborts the transaction if it was never committed, giving the same
// rollback-on-failure semantics as the graph backend.
func (t *transaction) Close(ctx context.Context) error {
	if t.committed || !t.owner.inTx {
		return nil
	}
	t.owner.inTx = false
	return t.owner.msess.AbortTransaction(ctx)
}

var _ store.Dialer = Dial

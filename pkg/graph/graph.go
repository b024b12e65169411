// Package graph defines the in-memory code property graph handed to the
// persistence pipeline.
//
// A [Node] carries a stable identity, labels, opaque properties, and two
// kinds of outgoing relationships: the structural child relationship used
// for containment (file → declaration → member), and semantic relations
// (calls, references, implements) that may form cycles.
//
// [Flatten] walks the structural relationship only. Semantic relations are
// carried along for persistence but never traversed, so cyclic call graphs
// cannot break flattening.
package graph

import "errors"

var (
	// ErrInvalidNodeID is returned by [NewNode] when the ID is empty.
	// All nodes must have non-empty, stable identifiers.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrNilNode is returned by [Node.AddChild] and [Node.Relate] when
	// the target node is nil.
	ErrNilNode = errors.New("node must not be nil")
)

// Metadata stores arbitrary key-value properties attached to a node.
// The pipeline treats it as opaque; it is owned by whatever produced the
// graph and only read during persistence.
type Metadata map[string]any

// Relation is a typed semantic edge from one node to another.
// Unlike the structural child relationship, relations may point anywhere
// in the graph, including back up the containment tree.
type Relation struct {
	Type   string // relationship type, e.g. "CALLS", "REFERENCES"
	Target *Node
}

// Node is one element of the analyzed program graph.
//
// Nodes are built once by the scanner and treated as immutable by the
// persistence pipeline, which only borrows them for the duration of a run.
// Node is not safe for concurrent mutation.
type Node struct {
	ID     string   // unique, stable for the duration of a pipeline run
	Labels []string // classification labels, e.g. ["File"], ["Function"]
	Props  Metadata // opaque properties (never nil after NewNode)

	children []*Node
	related  []Relation
}

// NewNode creates a node with the given identity and labels.
// Returns ErrInvalidNodeID if id is empty.
func NewNode(id string, labels ...string) (*Node, error) {
	if id == "" {
		return nil, ErrInvalidNodeID
	}
	return &Node{
		ID:     id,
		Labels: labels,
		Props:  Metadata{},
	}, nil
}

// MustNode is like [NewNode] but panics on an empty ID.
// Intended for tests and static graph construction.
func MustNode(id string, labels ...string) *Node {
	n, err := NewNode(id, labels...)
	if err != nil {
		panic(err)
	}
	return n
}

// AddChild appends a structural child. Children are the containment edges
// followed by [Flatten]; a node may appear as a child of multiple parents
// (shared substructure) without affecting flattening correctness.
func (n *Node) AddChild(child *Node) error {
	if child == nil {
		return ErrNilNode
	}
	n.children = append(n.children, child)
	return nil
}

// Relate appends a semantic relation of the given type.
// Relations are persisted but never traversed during flattening.
func (n *Node) Relate(relType string, target *Node) error {
	if target == nil {
		return ErrNilNode
	}
	n.related = append(n.related, Relation{Type: relType, Target: target})
	return nil
}

// Children returns the structural children in insertion order.
// The returned slice is a read-only view; do not modify it.
func (n *Node) Children() []*Node { return n.children }

// Related returns the semantic relations in insertion order.
// The returned slice is a read-only view; do not modify it.
func (n *Node) Related() []Relation { return n.related }

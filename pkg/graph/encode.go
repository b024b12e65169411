package graph

import (
	"encoding/json"
	"fmt"
	"io"
)

// wireGraph is the canonical serialization format for a flattened graph.
// The format is human-readable and designed for round-trip fidelity:
// scan → export → re-import produces an identical graph.
type wireGraph struct {
	Nodes     []wireNode     `json:"nodes" bson:"nodes"`
	Children  []wireEdge     `json:"children,omitempty" bson:"children,omitempty"`
	Relations []wireRelation `json:"relations,omitempty" bson:"relations,omitempty"`
}

type wireNode struct {
	ID     string   `json:"id" bson:"_id"`
	Labels []string `json:"labels,omitempty" bson:"labels,omitempty"`
	Props  Metadata `json:"props,omitempty" bson:"props,omitempty"`
}

type wireEdge struct {
	From string `json:"from" bson:"from"`
	To   string `json:"to" bson:"to"`
}

type wireRelation struct {
	From string `json:"from" bson:"from"`
	To   string `json:"to" bson:"to"`
	Type string `json:"type" bson:"type"`
}

// MarshalRoots serializes the graph reachable from roots as indented JSON.
// The node set is flattened (deduplicated) before encoding; child and
// semantic edges are emitted by node identity.
func MarshalRoots(roots []*Node) ([]byte, error) {
	return json.MarshalIndent(toWire(Flatten(roots)), "", "  ")
}

// WriteJSON encodes the graph reachable from roots and writes it to w.
// The output can be re-imported with [ReadJSON].
func WriteJSON(roots []*Node, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(toWire(Flatten(roots)))
}

// ReadJSON decodes a graph written by [WriteJSON] and returns its roots:
// the nodes that appear as no other node's structural child.
func ReadJSON(r io.Reader) ([]*Node, error) {
	var wg wireGraph
	if err := json.NewDecoder(r).Decode(&wg); err != nil {
		return nil, fmt.Errorf("decode graph: %w", err)
	}
	return fromWire(wg)
}

func toWire(nodes []*Node) wireGraph {
	wg := wireGraph{Nodes: make([]wireNode, len(nodes))}
	for i, n := range nodes {
		wg.Nodes[i] = wireNode{ID: n.ID, Labels: n.Labels, Props: n.Props}
		for _, c := range n.Children() {
			wg.Children = append(wg.Children, wireEdge{From: n.ID, To: c.ID})
		}
		for _, rel := range n.Related() {
			wg.Relations = append(wg.Relations, wireRelation{
				From: n.ID,
				To:   rel.Target.ID,
				Type: rel.Type,
			})
		}
	}
	return wg
}

func fromWire(wg wireGraph) ([]*Node, error) {
	byID := make(map[string]*Node, len(wg.Nodes))
	order := make([]*Node, 0, len(wg.Nodes))
	for _, wn := range wg.Nodes {
		n, err := NewNode(wn.ID, wn.Labels...)
		if err != nil {
			return nil, err
		}
		if wn.Props != nil {
			n.Props = wn.Props
		}
		if _, dup := byID[wn.ID]; dup {
			return nil, fmt.Errorf("duplicate node ID %q", wn.ID)
		}
		byID[wn.ID] = n
		order = append(order, n)
	}

	isChild := make(map[string]bool)
	for _, e := range wg.Children {
		from, okF := byID[e.From]
		to, okT := byID[e.To]
		if !okF || !okT {
			return nil, fmt.Errorf("child edge references unknown node: %s -> %s", e.From, e.To)
		}
		if err := from.AddChild(to); err != nil {
			return nil, err
		}
		isChild[e.To] = true
	}
	for _, r := range wg.Relations {
		from, okF := byID[r.From]
		to, okT := byID[r.To]
		if !okF || !okT {
			return nil, fmt.Errorf("relation references unknown node: %s -[%s]-> %s", r.From, r.Type, r.To)
		}
		if err := from.Relate(r.Type, to); err != nil {
			return nil, err
		}
	}

	var roots []*Node
	for _, n := range order {
		if !isChild[n.ID] {
			roots = append(roots, n)
		}
	}
	return roots, nil
}

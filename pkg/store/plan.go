package store

import "github.com/graphsink/graphsink/pkg/graph"

// Edge is a relationship row planned for a bulk save, identified purely by
// node identity so backends can batch it into their native write format.
type Edge struct {
	From string
	To   string
	Type string // empty for structural containment edges
}

// Plan is the backend-neutral write plan for one bulk save: every node in
// the set as a record, plus the relationship rows that fall inside the
// traversal depth cap.
type Plan struct {
	Nodes     []*graph.Node
	Children  []Edge // structural containment edges
	Relations []Edge // semantic typed edges
}

// PlanSave computes the write plan for nodes with the given depth cap.
//
// All nodes are always written as records. depth bounds relationship
// expansion: structural edges are emitted only from nodes within depth-1
// child hops of the set's entry nodes (members that are no other member's
// child), and semantic edges only between nodes that both fall inside the
// cap. UnboundedDepth emits every edge whose endpoints are in the set.
//
// Edges pointing outside the node set are never emitted; the set is the
// persistence unit and dangling references would fail the batched MATCH
// on the backend.
func PlanSave(nodes []*graph.Node, depth int) Plan {
	plan := Plan{Nodes: nodes}
	inSet := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		inSet[n.ID] = true
	}

	level := hopLevels(nodes, inSet)
	withinCap := func(id string) bool {
		return depth == UnboundedDepth || level[id] <= depth
	}

	for _, n := range nodes {
		// A structural edge is one hop from its source.
		if depth == UnboundedDepth || level[n.ID] < depth {
			for _, c := range n.Children() {
				if inSet[c.ID] {
					plan.Children = append(plan.Children, Edge{From: n.ID, To: c.ID})
				}
			}
		}
		for _, rel := range n.Related() {
			if inSet[rel.Target.ID] && withinCap(n.ID) && withinCap(rel.Target.ID) {
				plan.Relations = append(plan.Relations, Edge{From: n.ID, To: rel.Target.ID, Type: rel.Type})
			}
		}
	}
	return plan
}

// hopLevels assigns each node its child-hop distance from the set's entry
// nodes via breadth-first traversal. Entry nodes are members that are not
// a structural child of any other member.
func hopLevels(nodes []*graph.Node, inSet map[string]bool) map[string]int {
	isChild := make(map[string]bool)
	for _, n := range nodes {
		for _, c := range n.Children() {
			if inSet[c.ID] {
				isChild[c.ID] = true
			}
		}
	}

	level := make(map[string]int, len(nodes))
	var queue []*graph.Node
	for _, n := range nodes {
		if !isChild[n.ID] {
			level[n.ID] = 0
			queue = append(queue, n)
		}
	}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, c := range n.Children() {
			if !inSet[c.ID] {
				continue
			}
			if _, seen := level[c.ID]; seen {
				continue
			}
			level[c.ID] = level[n.ID] + 1
			queue = append(queue, c)
		}
	}
	return level
}

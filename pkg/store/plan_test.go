package store

import (
	"slices"
	"testing"

	"github.com/graphsink/graphsink/pkg/graph"
)

// chain builds pkg -> file -> fn with a semantic edge fn -> typ, where typ
// is a child of file. Returns the flattened node set.
func chainGraph(t *testing.T) []*graph.Node {
	t.Helper()
	pkg := graph.MustNode("pkg", "Package")
	file := graph.MustNode("file", "File")
	fn := graph.MustNode("fn", "Function")
	typ := graph.MustNode("typ", "Type")
	if err := pkg.AddChild(file); err != nil {
		t.Fatal(err)
	}
	if err := file.AddChild(fn); err != nil {
		t.Fatal(err)
	}
	if err := file.AddChild(typ); err != nil {
		t.Fatal(err)
	}
	if err := fn.Relate("MEMBER_OF", typ); err != nil {
		t.Fatal(err)
	}
	return graph.Flatten([]*graph.Node{pkg})
}

func edgePairs(edges []Edge) []string {
	out := make([]string, len(edges))
	for i, e := range edges {
		out[i] = e.From + ">" + e.To
	}
	slices.Sort(out)
	return out
}

func TestPlanSaveUnbounded(t *testing.T) {
	nodes := chainGraph(t)
	plan := PlanSave(nodes, UnboundedDepth)

	if len(plan.Nodes) != 4 {
		t.Errorf("plan has %d nodes, want 4", len(plan.Nodes))
	}
	wantChildren := []string{"file>fn", "file>typ", "pkg>file"}
	if got := edgePairs(plan.Children); !slices.Equal(got, wantChildren) {
		t.Errorf("children = %v, want %v", got, wantChildren)
	}
	if len(plan.Relations) != 1 || plan.Relations[0].Type != "MEMBER_OF" {
		t.Errorf("relations = %v, want one MEMBER_OF", plan.Relations)
	}
}

func TestPlanSaveDepthZero(t *testing.T) {
	nodes := chainGraph(t)
	plan := PlanSave(nodes, 0)

	// All nodes still written; no relationships at depth 0.
	if len(plan.Nodes) != 4 {
		t.Errorf("plan has %d nodes, want 4", len(plan.Nodes))
	}
	if len(plan.Children) != 0 {
		t.Errorf("children = %v, want none at depth 0", plan.Children)
	}
	if len(plan.Relations) != 0 {
		t.Errorf("relations = %v, want none at depth 0", plan.Relations)
	}
}

func TestPlanSaveDepthOne(t *testing.T) {
	nodes := chainGraph(t)
	plan := PlanSave(nodes, 1)

	// Only edges out of the level-0 entry node.
	want := []string{"pkg>file"}
	if got := edgePairs(plan.Children); !slices.Equal(got, want) {
		t.Errorf("children = %v, want %v", got, want)
	}
	// fn and typ sit at level 2, beyond the cap.
	if len(plan.Relations) != 0 {
		t.Errorf("relations = %v, want none at depth 1", plan.Relations)
	}
}

func TestPlanSaveDepthTwo(t *testing.T) {
	nodes := chainGraph(t)
	plan := PlanSave(nodes, 2)

	wantChildren := []string{"file>fn", "file>typ", "pkg>file"}
	if got := edgePairs(plan.Children); !slices.Equal(got, wantChildren) {
		t.Errorf("children = %v, want %v", got, wantChildren)
	}
	if len(plan.Relations) != 1 {
		t.Errorf("relations = %v, want one at depth 2", plan.Relations)
	}
}

func TestPlanSaveDropsEdgesOutsideSet(t *testing.T) {
	a := graph.MustNode("a")
	outside := graph.MustNode("outside")
	_ = a.AddChild(outside)
	_ = a.Relate("CALLS", outside)

	plan := PlanSave([]*graph.Node{a}, UnboundedDepth)
	if len(plan.Children) != 0 || len(plan.Relations) != 0 {
		t.Errorf("edges to nodes outside the set were emitted: %+v", plan)
	}
}

func TestPlanSaveEmptySet(t *testing.T) {
	plan := PlanSave(nil, UnboundedDepth)
	if len(plan.Nodes) != 0 || len(plan.Children) != 0 || len(plan.Relations) != 0 {
		t.Errorf("empty set produced non-empty plan: %+v", plan)
	}
}

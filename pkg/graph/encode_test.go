package graph

import (
	"bytes"
	"strings"
	"testing"
)

func TestWriteReadJSONRoundTrip(t *testing.T) {
	pkg := MustNode("pkg", "Package")
	pkg.Props["name"] = "main"
	file := MustNode("file", "File")
	fn := MustNode("fn", "Function")
	typ := MustNode("typ", "Type")
	_ = pkg.AddChild(file)
	_ = file.AddChild(fn)
	_ = file.AddChild(typ)
	_ = fn.Relate("MEMBER_OF", typ)

	var buf bytes.Buffer
	if err := WriteJSON([]*Node{pkg}, &buf); err != nil {
		t.Fatalf("WriteJSON() error = %v", err)
	}

	roots, err := ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if len(roots) != 1 || roots[0].ID != "pkg" {
		t.Fatalf("ReadJSON() roots = %v, want [pkg]", ids(roots))
	}

	nodes := Flatten(roots)
	if len(nodes) != 4 {
		t.Errorf("round trip produced %d nodes, want 4", len(nodes))
	}
	if got := roots[0].Props["name"]; got != "main" {
		t.Errorf("Props[name] = %v, want main", got)
	}

	var fn2 *Node
	for _, n := range nodes {
		if n.ID == "fn" {
			fn2 = n
		}
	}
	if fn2 == nil {
		t.Fatal("round trip lost node fn")
	}
	rels := fn2.Related()
	if len(rels) != 1 || rels[0].Type != "MEMBER_OF" || rels[0].Target.ID != "typ" {
		t.Errorf("relations = %v, want one MEMBER_OF -> typ", rels)
	}
}

func TestReadJSONRejectsDuplicateIDs(t *testing.T) {
	in := `{"nodes":[{"id":"a"},{"id":"a"}]}`
	if _, err := ReadJSON(strings.NewReader(in)); err == nil {
		t.Error("ReadJSON() accepted duplicate node IDs")
	}
}

func TestReadJSONRejectsUnknownEdgeTarget(t *testing.T) {
	in := `{"nodes":[{"id":"a"}],"children":[{"from":"a","to":"ghost"}]}`
	if _, err := ReadJSON(strings.NewReader(in)); err == nil {
		t.Error("ReadJSON() accepted edge to unknown node")
	}
}

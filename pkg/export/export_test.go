package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/graphsink/graphsink/pkg/graph"
)

func sampleGraph() []*graph.Node {
	pkg := graph.MustNode("pkg", "Package")
	pkg.Props["name"] = "sample"
	file := graph.MustNode("file", "File")
	file.Props["path"] = "sample.go"
	fn := graph.MustNode("fn", "Function")
	fn.Props["name"] = "Hello"
	typ := graph.MustNode("typ", "Type")
	typ.Props["name"] = "Greeter"
	_ = pkg.AddChild(file)
	_ = file.AddChild(fn)
	_ = file.AddChild(typ)
	_ = fn.Relate("MEMBER_OF", typ)
	return []*graph.Node{pkg}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleGraph())

	if !strings.HasPrefix(dot, "digraph G {") {
		t.Errorf("DOT missing digraph header:\n%s", dot)
	}
	for _, want := range []string{
		`"pkg" -> "file";`,
		`"file" -> "fn";`,
		`"file" -> "typ";`,
		`"fn" -> "typ" [style=dashed, label="MEMBER_OF"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
	if !strings.Contains(dot, "Hello") {
		t.Errorf("DOT missing node label Hello:\n%s", dot)
	}
}

func TestToDOTDuplicateRootsOnce(t *testing.T) {
	roots := sampleGraph()
	dot := ToDOT(append(roots, roots[0]))

	if got := strings.Count(dot, `"pkg" [`); got != 1 {
		t.Errorf("pkg declared %d times, want 1", got)
	}
}

func TestFormatsSortedAndComplete(t *testing.T) {
	got := Formats()
	want := []string{"dot", "json", "svg"}
	if len(got) != len(want) {
		t.Fatalf("Formats() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Formats()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
	if err := ValidateFormat("webp"); err == nil || !strings.Contains(err.Error(), "dot, json, svg") {
		t.Errorf("ValidateFormat error should list valid formats, got %v", err)
	}
}

func TestValidateFormat(t *testing.T) {
	for _, f := range []string{FormatJSON, FormatDOT, FormatSVG} {
		if err := ValidateFormat(f); err != nil {
			t.Errorf("ValidateFormat(%q) error = %v", f, err)
		}
	}
	if err := ValidateFormat("pdf"); err == nil {
		t.Error("ValidateFormat(pdf) = nil, want error")
	}
}

func TestWriteJSONRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if err := Write(sampleGraph(), FormatJSON, &buf); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	roots, err := graph.ReadJSON(&buf)
	if err != nil {
		t.Fatalf("ReadJSON() error = %v", err)
	}
	if len(roots) != 1 || roots[0].ID != "pkg" {
		t.Errorf("round trip roots = %v", roots)
	}
}

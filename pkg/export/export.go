// Package export renders a scanned graph without a database, for
// inspection before pushing. Supported formats: JSON (round-trippable via
// pkg/graph), Graphviz DOT text, and SVG rendered through Graphviz.
package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/graphsink/graphsink/pkg/graph"
)

// Format constants for export output.
const (
	FormatJSON = "json"
	FormatDOT  = "dot"
	FormatSVG  = "svg"
)

// ValidFormats is the set of supported export formats.
var ValidFormats = map[string]bool{
	FormatJSON: true,
	FormatDOT:  true,
	FormatSVG:  true,
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return fmt.Errorf("invalid format: %q (must be one of: %s)", format, strings.Join(Formats(), ", "))
	}
	return nil
}

// Write renders the graph reachable from roots in the given format.
func Write(roots []*graph.Node, format string, w io.Writer) error {
	switch format {
	case FormatJSON:
		return graph.WriteJSON(roots, w)
	case FormatDOT:
		_, err := io.WriteString(w, ToDOT(roots))
		return err
	case FormatSVG:
		svg, err := RenderSVG(ToDOT(roots))
		if err != nil {
			return err
		}
		_, err = w.Write(svg)
		return err
	default:
		return ValidateFormat(format)
	}
}

// ToDOT converts the graph reachable from roots to Graphviz DOT format.
// Structural containment edges are solid; semantic relations are dashed
// and labeled with their type.
func ToDOT(roots []*graph.Node) string {
	nodes := graph.Flatten(roots)

	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	for _, n := range nodes {
		fmt.Fprintf(&buf, "  %q [label=%q];\n", n.ID, nodeLabel(n))
	}

	buf.WriteString("\n")
	for _, n := range nodes {
		for _, c := range n.Children() {
			fmt.Fprintf(&buf, "  %q -> %q;\n", n.ID, c.ID)
		}
		for _, rel := range n.Related() {
			fmt.Fprintf(&buf, "  %q -> %q [style=dashed, label=%q];\n", n.ID, rel.Target.ID, rel.Type)
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n *graph.Node) string {
	label := n.ID
	if name, ok := n.Props["name"].(string); ok && name != "" {
		label = name
	} else if path, ok := n.Props["path"].(string); ok && path != "" {
		label = path
	}
	if len(n.Labels) > 0 {
		return fmt.Sprintf("%s\n(%s)", label, strings.Join(sortedLabels(n.Labels), ","))
	}
	return label
}

func sortedLabels(labels []string) []string {
	out := slices.Clone(labels)
	slices.Sort(out)
	return out
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(dot string) ([]byte, error) {
	ctx := context.Background()
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

// Formats returns the valid format names in sorted order, for CLI help.
func Formats() []string {
	return slices.Sorted(maps.Keys(ValidFormats))
}

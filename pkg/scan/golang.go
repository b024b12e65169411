package scan

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"

	"github.com/graphsink/graphsink/pkg/errors"
	"github.com/graphsink/graphsink/pkg/graph"
)

// parseGoFile extracts a File node with declaration children from Go source.
// Tree-sitter is error-tolerant, so syntactically broken files still yield
// the declarations it could recognize.
func parseGoFile(ctx context.Context, content []byte, path string) (*graph.Node, string, error) {
	if !utf8.Valid(content) {
		return nil, "", errors.New(errors.ErrCodeScan, "%s is not valid UTF-8", path)
	}

	// New parser per call: tree-sitter parsers are not safe for reuse
	// across concurrent callers, and construction is cheap.
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, "", errors.Wrap(errors.ErrCodeScan, err, "parse %s", path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, "", errors.New(errors.ErrCodeScan, "no parse tree for %s", path)
	}

	fileNode := graph.MustNode(nodeID("file", path, 0, path), "File")
	fileNode.Props["path"] = path
	fileNode.Props["lines"] = int(root.EndPoint().Row) + 1

	var pkgName string
	typesByName := make(map[string]*graph.Node)
	type pendingMethod struct {
		node     *graph.Node
		receiver string
	}
	var methods []pendingMethod

	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		switch child.Type() {
		case "package_clause":
			pkgName = packageClauseName(child, content)

		case "import_declaration":
			fileNode.Props["imports"] = append(
				importList(fileNode.Props["imports"]),
				importPaths(child, content)...)

		case "function_declaration":
			if fn := declNode(child, content, path, "Function"); fn != nil {
				_ = fileNode.AddChild(fn)
			}

		case "method_declaration":
			m := declNode(child, content, path, "Method")
			if m == nil {
				continue
			}
			recv := receiverType(child, content)
			if recv != "" {
				m.Props["receiver"] = recv
			}
			_ = fileNode.AddChild(m)
			methods = append(methods, pendingMethod{node: m, receiver: recv})

		case "type_declaration":
			for j := 0; j < int(child.ChildCount()); j++ {
				spec := child.Child(j)
				if spec.Type() != "type_spec" {
					continue
				}
				tn := typeSpecNode(spec, content, path)
				if tn == nil {
					continue
				}
				_ = fileNode.AddChild(tn)
				if name, ok := tn.Props["name"].(string); ok {
					typesByName[name] = tn
				}
			}
		}
	}

	// Link methods to receiver types declared in the same file. Types
	// declared elsewhere are left unlinked; cross-file resolution is the
	// database's job once the graph is persisted.
	for _, m := range methods {
		if t, ok := typesByName[m.receiver]; ok {
			_ = m.node.Relate("MEMBER_OF", t)
		}
	}

	if pkgName == "" {
		return nil, "", errors.New(errors.ErrCodeScan, "%s has no package clause", path)
	}
	fileNode.Props["package"] = pkgName
	return fileNode, pkgName, nil
}

func packageClauseName(clause *sitter.Node, content []byte) string {
	for i := 0; i < int(clause.ChildCount()); i++ {
		if c := clause.Child(i); c.Type() == "package_identifier" {
			return text(c, content)
		}
	}
	return ""
}

// declNode builds a declaration node from a function or method declaration.
func declNode(decl *sitter.Node, content []byte, path, label string) *graph.Node {
	nameNode := decl.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := text(nameNode, content)
	line := int(decl.StartPoint().Row) + 1

	n := graph.MustNode(nodeID(strings.ToLower(label), path, line, name), label)
	n.Props["name"] = name
	n.Props["line"] = line
	n.Props["end_line"] = int(decl.EndPoint().Row) + 1
	n.Props["exported"] = isExported(name)
	return n
}

// typeSpecNode builds a Type node from a type_spec, recording whether it
// declares a struct, interface, or alias.
func typeSpecNode(spec *sitter.Node, content []byte, path string) *graph.Node {
	nameNode := spec.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}
	name := text(nameNode, content)
	line := int(spec.StartPoint().Row) + 1

	kind := "alias"
	if typeNode := spec.ChildByFieldName("type"); typeNode != nil {
		switch typeNode.Type() {
		case "struct_type":
			kind = "struct"
		case "interface_type":
			kind = "interface"
		}
	}

	n := graph.MustNode(nodeID("type", path, line, name), "Type")
	n.Props["name"] = name
	n.Props["line"] = line
	n.Props["kind"] = kind
	n.Props["exported"] = isExported(name)
	return n
}

// receiverType extracts the bare receiver type name from a method
// declaration, stripping pointers and type parameters.
func receiverType(decl *sitter.Node, content []byte) string {
	recv := decl.ChildByFieldName("receiver")
	if recv == nil {
		return ""
	}
	raw := text(recv, content)
	raw = strings.Trim(raw, "()")
	if fields := strings.Fields(raw); len(fields) > 0 {
		raw = fields[len(fields)-1]
	}
	raw = strings.TrimPrefix(raw, "*")
	if i := strings.IndexByte(raw, '['); i >= 0 {
		raw = raw[:i]
	}
	return raw
}

// importPaths collects the quoted import paths of an import declaration.
func importPaths(decl *sitter.Node, content []byte) []any {
	var paths []any
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "interpreted_string_literal" {
			paths = append(paths, strings.Trim(text(n, content), `"`))
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			walk(n.Child(i))
		}
	}
	walk(decl)
	return paths
}

func importList(v any) []any {
	if list, ok := v.([]any); ok {
		return list
	}
	return nil
}

func text(n *sitter.Node, content []byte) string {
	return string(content[n.StartByte():n.EndByte()])
}

func isExported(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

package exports

import (
	"context"
	"fmt"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Extraction is the export surface of one module source.
type Extraction struct {
	// Names are the exported bindings, sorted. "default" marks a default export.
	Names []string
	// StarFrom lists the specifiers of `export * from` re-exports.
	StarFrom []string
}

// Extract parses a JavaScript or TypeScript module and lists its exports.
// Syntax errors do not fail extraction; whatever parsed is reported.
func Extract(ctx context.Context, source []byte) (Extraction, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(typescript.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return Extraction{}, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	names := make(map[string]bool)
	var star []string

	root := tree.RootNode()
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		if node.Type() != "export_statement" {
			continue
		}
		star = exportStatement(node, source, names, star)
	}

	out := Extraction{Names: make([]string, 0, len(names)), StarFrom: star}
	for n := range names {
		out.Names = append(out.Names, n)
	}
	sort.Strings(out.Names)
	return out, nil
}

func exportStatement(node *sitter.Node, source []byte, names map[string]bool, star []string) []string {
	if decl := node.ChildByFieldName("declaration"); decl != nil {
		declarationNames(decl, source, names)
	}

	var hasStar, hasNamespace bool
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "default":
			names["default"] = true
		case "*":
			hasStar = true
		case "namespace_export":
			hasNamespace = true
			for j := 0; j < int(child.NamedChildCount()); j++ {
				names[unquote(child.NamedChild(j).Content(source))] = true
			}
		case "export_clause":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				spec := child.NamedChild(j)
				if spec.Type() != "export_specifier" {
					continue
				}
				target := spec.ChildByFieldName("alias")
				if target == nil {
					target = spec.ChildByFieldName("name")
				}
				if target == nil && spec.ChildCount() > 0 {
					target = spec.Child(0)
				}
				if target != nil {
					names[unquote(target.Content(source))] = true
				}
			}
		}
	}

	if hasStar && !hasNamespace {
		if src := node.ChildByFieldName("source"); src != nil {
			star = append(star, unquote(src.Content(source)))
		}
	}
	return star
}

func declarationNames(decl *sitter.Node, source []byte, names map[string]bool) {
	switch decl.Type() {
	case "lexical_declaration", "variable_declaration":
		for i := 0; i < int(decl.NamedChildCount()); i++ {
			d := decl.NamedChild(i)
			if d.Type() != "variable_declarator" {
				continue
			}
			if name := d.ChildByFieldName("name"); name != nil {
				bindingNames(name, source, names)
			}
		}
	case "ambient_declaration":
		for i := 0; i < int(decl.NamedChildCount()); i++ {
			declarationNames(decl.NamedChild(i), source, names)
		}
	default:
		if name := decl.ChildByFieldName("name"); name != nil {
			names[name.Content(source)] = true
		}
	}
}

// bindingNames collects the identifiers bound by a declarator name, which may
// be a destructuring pattern.
func bindingNames(node *sitter.Node, source []byte, names map[string]bool) {
	switch node.Type() {
	case "identifier", "shorthand_property_identifier_pattern":
		names[node.Content(source)] = true
		return
	case "pair_pattern":
		if v := node.ChildByFieldName("value"); v != nil {
			bindingNames(v, source, names)
		}
		return
	case "assignment_pattern", "object_assignment_pattern":
		if l := node.ChildByFieldName("left"); l != nil {
			bindingNames(l, source, names)
		}
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		bindingNames(node.NamedChild(i), source, names)
	}
}

func unquote(s string) string {
	if len(s) >= 2 {
		switch s[0] {
		case '"', '\'', '`':
			if s[len(s)-1] == s[0] {
				return s[1 : len(s)-1]
			}
		}
	}
	return strings.TrimSpace(s)
}

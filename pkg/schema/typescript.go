package schema

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

const indentUnit = "  "

// TypeExpr projects a node onto a single-line TypeScript type expression.
func TypeExpr(n Node) string {
	p := printer{}
	return p.expr(n, 0)
}

// TypeBlock projects a node onto a TypeScript type expression, printing
// object field lists one per line starting at the given depth.
func TypeBlock(n Node, depth int) string {
	p := printer{multiline: true}
	return p.expr(n, depth)
}

type printer struct {
	multiline bool
}

func (p printer) expr(n Node, depth int) string {
	switch v := n.(type) {
	case *Primitive:
		return primitiveExpr(v.Type)
	case *Literal:
		return literalExpr(v.Value)
	case *Array:
		return "Array<" + p.expr(v.Items, depth) + ">"
	case *Object:
		return p.object(v, depth)
	case *Union:
		return p.union(v, depth)
	case *Intersection:
		return p.intersection(v, depth)
	}
	return "unknown"
}

func primitiveExpr(t PrimitiveType) string {
	switch t {
	case TypeString:
		return "string"
	case TypeNumber, TypeInteger:
		return "number"
	case TypeBoolean:
		return "boolean"
	case TypeNull:
		return "null"
	}
	return "unknown"
}

func literalExpr(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		return Quote(x)
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	}
	return "unknown"
}

func (p printer) object(o *Object, depth int) string {
	if o.Record {
		values := "unknown"
		if o.Values != nil {
			values = p.expr(o.Values, depth)
		}
		return "Record<string, " + values + ">"
	}
	if len(o.Fields) == 0 {
		return "Record<string, never>"
	}

	if !p.multiline {
		parts := make([]string, 0, len(o.Fields))
		for _, f := range o.Fields {
			parts = append(parts, fieldDecl(f)+": "+p.expr(f.Schema, depth))
		}
		return "{ " + strings.Join(parts, "; ") + " }"
	}

	inner := strings.Repeat(indentUnit, depth+1)
	var b strings.Builder
	b.WriteString("{\n")
	for _, f := range o.Fields {
		if desc := f.Schema.Info().Description; desc != "" {
			b.WriteString(inner + DocComment(desc) + "\n")
		}
		b.WriteString(inner + fieldDecl(f) + ": " + p.expr(f.Schema, depth+1) + ";\n")
	}
	b.WriteString(strings.Repeat(indentUnit, depth) + "}")
	return b.String()
}

func fieldDecl(f Field) string {
	name := PropertyName(f.Name)
	if !f.Required {
		name += "?"
	}
	return name
}

func (p printer) union(u *Union, depth int) string {
	seen := make(map[string]bool)
	var parts []string
	for _, m := range u.Members {
		if m.Kind() == KindUnknown {
			return "unknown"
		}
		s := p.expr(m, depth)
		if !seen[s] {
			seen[s] = true
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return "never"
	}
	return strings.Join(parts, " | ")
}

func (p printer) intersection(in *Intersection, depth int) string {
	var parts []string
	for _, m := range in.Members {
		s := p.expr(m, depth)
		if m.Kind() == KindUnion && strings.Contains(s, " | ") {
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, " & ")
}

// DocComment renders a single-line JSDoc comment.
func DocComment(text string) string {
	text = strings.ReplaceAll(text, "*/", "*\\/")
	text = strings.Join(strings.Fields(text), " ")
	return "/** " + text + " */"
}

// Quote renders s as a double-quoted string literal.
func Quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

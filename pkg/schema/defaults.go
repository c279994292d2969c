package schema

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Default synthesizes the default value for a node. The schema's own default
// wins; otherwise a type-appropriate zero value is used. ok is false when the
// value is undefined (unresolvable node, or no member yields a value).
func Default(n Node) (value any, ok bool) {
	if n == nil {
		return nil, false
	}
	if meta := n.Info(); meta.HasDefault {
		return meta.Default, true
	}

	switch v := n.(type) {
	case *Literal:
		return v.Value, true
	case *Primitive:
		switch v.Type {
		case TypeString:
			return "", true
		case TypeNumber, TypeInteger:
			return float64(0), true
		case TypeBoolean:
			return false, true
		case TypeNull:
			return nil, true
		}
	case *Array:
		return []any{}, true
	case *Object:
		if v.Record {
			return map[string]any{}, true
		}
		out := make(map[string]any, len(v.Fields))
		for _, f := range v.Fields {
			// Optional fields stay undefined unless they declare a default.
			if !f.Required && !f.Schema.Info().HasDefault {
				continue
			}
			if fv, ok := Default(f.Schema); ok {
				out[f.Name] = fv
			}
		}
		return out, true
	case *Union:
		for _, m := range v.Members {
			if mv, ok := Default(m); ok {
				return mv, true
			}
		}
	case *Intersection:
		merged := map[string]any{}
		var first any
		found := false
		for _, m := range v.Members {
			mv, ok := Default(m)
			if !ok {
				continue
			}
			if obj, isObj := mv.(map[string]any); isObj {
				for k, fv := range obj {
					merged[k] = fv
				}
			} else if !found {
				first = mv
			}
			found = true
		}
		if len(merged) > 0 {
			return merged, true
		}
		if found {
			return first, true
		}
	}
	return nil, false
}

// DefaultLiteral renders the node's default as TypeScript source, "undefined"
// when no default exists. Objects and arrays span multiple lines indented
// relative to depth.
func DefaultLiteral(n Node, depth int) string {
	v, ok := Default(n)
	if !ok {
		return "undefined"
	}
	return ValueLiteral(v, depth)
}

// ValueLiteral renders a JSON value as TypeScript source.
func ValueLiteral(v any, depth int) string {
	switch x := v.(type) {
	case []any:
		if len(x) == 0 {
			return "[]"
		}
	case map[string]any:
		if len(x) == 0 {
			return "{}"
		}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(strings.Repeat(indentUnit, depth), indentUnit)
	if err := enc.Encode(normalizeValue(v)); err != nil {
		return "undefined"
	}
	return strings.TrimSuffix(buf.String(), "\n")
}

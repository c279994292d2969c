package schema

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Parse converts a JSON-Schema-shaped map into a Node. It never fails:
// anything it cannot interpret becomes Unknown.
func Parse(raw map[string]any) Node {
	if raw == nil {
		return &Unknown{}
	}
	node := parseNode(raw)
	meta := node.Info()
	if d, ok := raw["description"].(string); ok {
		meta.Description = d
	}
	if def, ok := raw["default"]; ok {
		meta.Default = normalizeValue(def)
		meta.HasDefault = true
	}
	if nullable, _ := raw["nullable"].(bool); nullable && !acceptsNull(node) {
		outer := *meta
		inner := stripMeta(node)
		return &Union{Meta: outer, Members: []Node{inner, &Primitive{Type: TypeNull}}}
	}
	return node
}

// ParseJSON parses a JSON document into a Node.
func ParseJSON(data []byte) (Node, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode schema: %w", err)
	}
	return Parse(raw), nil
}

func parseNode(raw map[string]any) Node {
	if c, ok := raw["const"]; ok {
		return &Literal{Value: normalizeValue(c)}
	}

	if enum, ok := raw["enum"].([]any); ok && len(enum) > 0 {
		members := make([]Node, 0, len(enum))
		for _, v := range enum {
			members = append(members, &Literal{Value: normalizeValue(v)})
		}
		if len(members) == 1 {
			return members[0]
		}
		return &Union{Members: members}
	}

	for _, key := range []string{"anyOf", "oneOf"} {
		if members := parseList(raw[key]); len(members) > 0 {
			if len(members) == 1 {
				return members[0]
			}
			return &Union{Members: members}
		}
	}

	if members := parseList(raw["allOf"]); len(members) > 0 {
		if len(members) == 1 {
			return members[0]
		}
		return &Intersection{Members: members}
	}

	switch t := raw["type"].(type) {
	case string:
		return parseTyped(t, raw)
	case []any:
		var members []Node
		for _, item := range t {
			if name, ok := item.(string); ok {
				members = append(members, parseTyped(name, raw))
			}
		}
		switch len(members) {
		case 0:
			return &Unknown{}
		case 1:
			return members[0]
		}
		return &Union{Members: members}
	}

	// Untyped documents that still describe a shape.
	if _, ok := raw["properties"]; ok {
		return parseObject(raw)
	}
	if _, ok := raw["items"]; ok {
		return parseArray(raw)
	}
	return &Unknown{}
}

func parseTyped(t string, raw map[string]any) Node {
	switch PrimitiveType(t) {
	case TypeString, TypeNumber, TypeInteger, TypeBoolean, TypeNull:
		return &Primitive{Type: PrimitiveType(t)}
	}
	switch t {
	case "array":
		return parseArray(raw)
	case "object":
		return parseObject(raw)
	}
	return &Unknown{}
}

func parseArray(raw map[string]any) Node {
	switch items := raw["items"].(type) {
	case map[string]any:
		return &Array{Items: Parse(items)}
	case []any:
		// Tuple form: project the first element.
		if len(items) > 0 {
			if first, ok := items[0].(map[string]any); ok {
				return &Array{Items: Parse(first)}
			}
		}
	}
	return &Array{Items: &Unknown{}}
}

func parseObject(raw map[string]any) Node {
	// additionalProperties of true or a schema makes a keyed map, with or
	// without declared properties.
	switch ap := raw["additionalProperties"].(type) {
	case map[string]any:
		return &Object{Record: true, Values: Parse(ap)}
	case bool:
		if ap {
			return &Object{Record: true}
		}
	}
	props, _ := raw["properties"].(map[string]any)

	required := make(map[string]bool)
	if list, ok := raw["required"].([]any); ok {
		for _, r := range list {
			if name, ok := r.(string); ok {
				required[name] = true
			}
		}
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	obj := &Object{Fields: make([]Field, 0, len(names))}
	for _, name := range names {
		var node Node = &Unknown{}
		if child, ok := props[name].(map[string]any); ok {
			node = Parse(child)
		}
		obj.Fields = append(obj.Fields, Field{Name: name, Schema: node, Required: required[name]})
	}
	return obj
}

func parseList(v any) []Node {
	list, ok := v.([]any)
	if !ok {
		return nil
	}
	var out []Node
	for _, item := range list {
		if m, ok := item.(map[string]any); ok {
			out = append(out, Parse(m))
		}
	}
	return out
}

func acceptsNull(n Node) bool {
	switch v := n.(type) {
	case *Primitive:
		return v.Type == TypeNull
	case *Literal:
		return v.Value == nil
	case *Union:
		for _, m := range v.Members {
			if acceptsNull(m) {
				return true
			}
		}
	case *Unknown:
		return true
	}
	return false
}

// stripMeta returns n with empty annotations so a wrapping node can own them.
func stripMeta(n Node) Node {
	*n.Info() = Meta{}
	return n
}

// normalizeValue converts decoded YAML/JSON values into the JSON value space:
// all numbers become float64 and maps get string keys.
func normalizeValue(v any) any {
	switch x := v.(type) {
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case int32:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = normalizeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = normalizeValue(item)
		}
		return out
	case map[any]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[fmt.Sprint(k)] = normalizeValue(item)
		}
		return out
	}
	return v
}

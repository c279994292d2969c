// Package schema projects JSON-Schema-shaped documents onto TypeScript types
// and matching default values.
//
// Documents are first parsed into a closed set of node variants (Primitive,
// Array, Object, Union, Intersection, Literal, Unknown). Projection and
// default synthesis are total functions over that set.
package schema

// Kind identifies a node variant.
type Kind int

// Node variants.
const (
	KindUnknown Kind = iota
	KindPrimitive
	KindArray
	KindObject
	KindUnion
	KindIntersection
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindPrimitive:
		return "primitive"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindUnion:
		return "union"
	case KindIntersection:
		return "intersection"
	case KindLiteral:
		return "literal"
	}
	return "unknown"
}

// Node is a parsed schema node.
type Node interface {
	Kind() Kind
	Info() *Meta
}

// Meta carries annotations shared by every variant.
type Meta struct {
	Description string
	Default     any
	HasDefault  bool
}

// Info returns the node's annotations.
func (m *Meta) Info() *Meta { return m }

// PrimitiveType is a JSON primitive type name.
type PrimitiveType string

// Primitive types.
const (
	TypeString  PrimitiveType = "string"
	TypeNumber  PrimitiveType = "number"
	TypeInteger PrimitiveType = "integer"
	TypeBoolean PrimitiveType = "boolean"
	TypeNull    PrimitiveType = "null"
)

// Primitive is a string, number, integer, boolean or null.
type Primitive struct {
	Meta
	Type PrimitiveType
}

func (*Primitive) Kind() Kind { return KindPrimitive }

// Array is a sequence of Items.
type Array struct {
	Meta
	Items Node
}

func (*Array) Kind() Kind { return KindArray }

// Field is one named property of an Object.
type Field struct {
	Name     string
	Schema   Node
	Required bool
}

// Object is either a field list or, when Record is set, a keyed map whose
// values are described by Values (nil meaning unknown values).
type Object struct {
	Meta
	Fields []Field
	Record bool
	Values Node
}

func (*Object) Kind() Kind { return KindObject }

// Union is a choice between Members.
type Union struct {
	Meta
	Members []Node
}

func (*Union) Kind() Kind { return KindUnion }

// Intersection combines all Members.
type Intersection struct {
	Meta
	Members []Node
}

func (*Intersection) Kind() Kind { return KindIntersection }

// Literal is a single constant value: string, float64, bool or nil.
type Literal struct {
	Meta
	Value any
}

func (*Literal) Kind() Kind { return KindLiteral }

// Unknown is anything the parser could not resolve.
type Unknown struct {
	Meta
}

func (*Unknown) Kind() Kind { return KindUnknown }

// Package schema declares the shape of GraphQL responses and validates untyped
// JSON trees against those declarations.
//
// A contract is a tree of *Node values. Validation is total: it either accepts
// the tree or returns a *ParseError listing every mismatch with its path and
// the expected versus actual value. Nullable nodes accept null and nothing is
// ever defaulted here; defaults belong to the extractors.
package schema

import (
	"slices"
)

// TypenameField is the discriminant key of every union in a contract.
const TypenameField = "__typename"

// Kind is the JSON type a Node accepts.
type Kind int

// Node kinds.
const (
	KindAny     Kind = iota // any JSON value
	KindObject              // object with declared fields
	KindString              // string, optionally limited to an enum
	KindNumber              // any JSON number
	KindInteger             // number with no fractional part
	KindBool                // true or false
	KindArray               // array of one item shape
	KindUnion               // object discriminated on __typename
)

// String returns the name used in parse error messages.
func (k Kind) String() string {
	switch k {
	case KindObject:
		return "object"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindInteger:
		return "integer"
	case KindBool:
		return "boolean"
	case KindArray:
		return "array"
	case KindUnion:
		return "union"
	default:
		return "any"
	}
}

// Node is an immutable shape declaration. Build nodes with the constructor
// functions; Nullable returns a copy rather than mutating the receiver.
type Node struct {
	kind     Kind
	nullable bool
	fields   []Field
	items    *Node
	enum     []string
	variants []Variant
}

// Field is a named member of an object node.
type Field struct {
	Name     string
	Node     *Node
	Required bool
}

// Variant is one tagged member of a union node.
type Variant struct {
	Tag    string
	Fields []Field
}

// Req declares a field whose key must be present.
func Req(name string, n *Node) Field {
	return Field{Name: name, Node: n, Required: true}
}

// Opt declares a field whose key may be absent.
func Opt(name string, n *Node) Field {
	return Field{Name: name, Node: n}
}

// Tag declares a union variant.
func Tag(tag string, fields ...Field) Variant {
	return Variant{Tag: tag, Fields: fields}
}

// Any accepts every JSON value.
func Any() *Node { return &Node{kind: KindAny} }

// String accepts a JSON string.
func String() *Node { return &Node{kind: KindString} }

// Number accepts a JSON number.
func Number() *Node { return &Node{kind: KindNumber} }

// Integer accepts a JSON number with no fractional part.
func Integer() *Node { return &Node{kind: KindInteger} }

// Bool accepts true or false.
func Bool() *Node { return &Node{kind: KindBool} }

// Enum accepts a string equal to one of values.
func Enum(values ...string) *Node {
	return &Node{kind: KindString, enum: slices.Clone(values)}
}

// Array accepts a list whose every element matches items.
func Array(items *Node) *Node {
	return &Node{kind: KindArray, items: items}
}

// Object accepts a JSON object carrying the given fields. Keys not declared
// are ignored.
func Object(fields ...Field) *Node {
	return &Node{kind: KindObject, fields: fields}
}

// Union accepts an object whose __typename is one of the variant tags and
// whose fields match that variant.
func Union(variants ...Variant) *Node {
	return &Node{kind: KindUnion, variants: variants}
}

// Nullable returns a copy of n that also accepts null.
func (n *Node) Nullable() *Node {
	cp := *n
	cp.nullable = true
	return &cp
}

// Kind returns the JSON type accepted by n.
func (n *Node) Kind() Kind { return n.kind }

// IsNullable reports whether n accepts null.
func (n *Node) IsNullable() bool { return n.nullable }

// Tags returns the discriminant values of a union node in declaration order.
func (n *Node) Tags() []string {
	tags := make([]string, 0, len(n.variants))
	for _, v := range n.variants {
		tags = append(tags, v.Tag)
	}
	return tags
}

func (n *Node) variant(tag string) (Variant, bool) {
	for _, v := range n.variants {
		if v.Tag == tag {
			return v, true
		}
	}
	return Variant{}, false
}

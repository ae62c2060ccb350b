package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/swaggest/jsonschema-go"
)

var (
	registry      = make(map[string]*Node)
	registryMu    sync.RWMutex
	documentCache = make(map[string]string)
	documentMu    sync.RWMutex
)

// Register adds a contract to the registry under label. The JSON Schema
// document is rendered on first access via Document.
func Register(label string, n *Node) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[label] = n

	documentMu.Lock()
	delete(documentCache, label)
	documentMu.Unlock()
}

// Lookup returns the contract registered under label.
func Lookup(label string) (*Node, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	n, ok := registry[label]
	return n, ok
}

// Labels returns every registered contract label, sorted.
func Labels() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	labels := make([]string, 0, len(registry))
	for label := range registry {
		labels = append(labels, label)
	}
	slices.Sort(labels)
	return labels
}

// ErrUnknownContract is returned by Document for an unregistered label.
var ErrUnknownContract = errors.New("unknown contract")

// Document returns the JSON Schema document for a registered contract.
// Documents are cached after first generation.
func Document(label string) (string, error) {
	documentMu.RLock()
	if cached, ok := documentCache[label]; ok {
		documentMu.RUnlock()
		return cached, nil
	}
	documentMu.RUnlock()

	n, ok := Lookup(label)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownContract, label)
	}

	s := n.JSONSchema()
	s.Title = &label
	data, err := json.Marshal(&s)
	if err != nil {
		return "", fmt.Errorf("marshal schema for %s: %w", label, err)
	}

	documentMu.Lock()
	documentCache[label] = string(data)
	documentMu.Unlock()

	return string(data), nil
}

// JSONSchema renders n as a JSON Schema. Unions become oneOf over their
// variants, each pinning __typename to a single value.
func (n *Node) JSONSchema() jsonschema.Schema {
	var s jsonschema.Schema

	switch n.kind {
	case KindAny:
		return s
	case KindString:
		s.Type = n.jsonType(jsonschema.String)
		for _, v := range n.enum {
			s.Enum = append(s.Enum, v)
		}
		if len(n.enum) > 0 && n.nullable {
			s.Enum = append(s.Enum, nil)
		}
	case KindNumber:
		s.Type = n.jsonType(jsonschema.Number)
	case KindInteger:
		s.Type = n.jsonType(jsonschema.Integer)
	case KindBool:
		s.Type = n.jsonType(jsonschema.Boolean)
	case KindArray:
		s.Type = n.jsonType(jsonschema.Array)
		items := toSchemaOrBool(n.items.JSONSchema())
		s.Items = &jsonschema.Items{SchemaOrBool: &items}
	case KindObject:
		s = objectSchema(n.fields)
		s.Type = n.jsonType(jsonschema.Object)
	case KindUnion:
		for _, v := range n.variants {
			vs := objectSchema(append([]Field{Req(TypenameField, Enum(v.Tag))}, v.Fields...))
			objType := jsonschema.Object.Type()
			vs.Type = &objType
			s.OneOf = append(s.OneOf, toSchemaOrBool(vs))
		}
		if n.nullable {
			nullType := jsonschema.Null.Type()
			s.OneOf = append(s.OneOf, toSchemaOrBool(jsonschema.Schema{Type: &nullType}))
		}
	}
	return s
}

func (n *Node) jsonType(t jsonschema.SimpleType) *jsonschema.Type {
	if !n.nullable {
		typ := t.Type()
		return &typ
	}
	return &jsonschema.Type{SliceOfSimpleTypeValues: []jsonschema.SimpleType{t, jsonschema.Null}}
}

func objectSchema(fields []Field) jsonschema.Schema {
	s := jsonschema.Schema{Properties: make(map[string]jsonschema.SchemaOrBool, len(fields))}
	for _, f := range fields {
		s.Properties[f.Name] = toSchemaOrBool(f.Node.JSONSchema())
		if f.Required {
			s.Required = append(s.Required, f.Name)
		}
	}
	return s
}

func toSchemaOrBool(s jsonschema.Schema) jsonschema.SchemaOrBool {
	return jsonschema.SchemaOrBool{TypeObject: &s}
}

// Reflect generates a JSON Schema for a Go type from its struct tags. It is
// used for the view-model side of a contract, whose shape is owned by Go.
func Reflect(v any) (string, error) {
	r := jsonschema.Reflector{}

	s, err := r.Reflect(v, jsonschema.InlineRefs)
	if err != nil {
		return "", err
	}

	data, err := json.Marshal(&s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

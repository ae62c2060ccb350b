package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// maxIssues bounds how many mismatches a single ParseError collects.
const maxIssues = 20

// Issue is a single mismatch between a response and its contract.
type Issue struct {
	Path     string
	Expected string
	Actual   string
}

// String formats the issue as "path: expected X, got Y".
func (i Issue) String() string {
	path := i.Path
	if path == "" {
		path = "(root)"
	}
	return fmt.Sprintf("%s: expected %s, got %s", path, i.Expected, i.Actual)
}

// ParseError reports every mismatch found while validating a response.
type ParseError struct {
	Contract string
	Issues   []Issue
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	var b strings.Builder
	if e.Contract != "" {
		fmt.Fprintf(&b, "%s: ", e.Contract)
	}
	b.WriteString("response does not match contract")
	if len(e.Issues) == 0 {
		return b.String()
	}
	b.WriteString(": ")
	b.WriteString(e.Issues[0].String())
	if extra := len(e.Issues) - 1; extra > 0 {
		fmt.Fprintf(&b, " (and %d more)", extra)
	}
	return b.String()
}

// Paths returns the path of every issue, useful as a compact log attribute.
func (e *ParseError) Paths() []string {
	paths := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		paths = append(paths, is.Path)
	}
	return paths
}

// AsParseError extracts a ParseError from an error chain.
func AsParseError(err error) (*ParseError, bool) {
	var pe *ParseError
	if errors.As(err, &pe) {
		return pe, true
	}
	return nil, false
}

// Parse decodes raw JSON into an untyped tree. Numbers are kept as
// json.Number so integers are not silently widened to floats.
func Parse(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, &ParseError{Issues: []Issue{{Expected: "valid JSON", Actual: err.Error()}}}
	}
	if dec.More() {
		return nil, &ParseError{Issues: []Issue{{Expected: "a single JSON value", Actual: "trailing data"}}}
	}
	return v, nil
}

// Validate checks v against n. It returns nil or a *ParseError.
func Validate(n *Node, v any) error {
	var issues []Issue
	validate(n, v, "", &issues)
	if len(issues) > 0 {
		return &ParseError{Issues: issues}
	}
	return nil
}

func validate(n *Node, v any, path string, issues *[]Issue) {
	if len(*issues) >= maxIssues {
		return
	}

	if v == nil {
		if !n.nullable && n.kind != KindAny {
			addIssue(issues, path, expectation(n), "null")
		}
		return
	}

	switch n.kind {
	case KindAny:
		return
	case KindString:
		s, ok := v.(string)
		if !ok {
			addIssue(issues, path, expectation(n), describe(v))
			return
		}
		if len(n.enum) > 0 && !slices.Contains(n.enum, s) {
			addIssue(issues, path, expectation(n), describe(v))
		}
	case KindNumber:
		if !isNumber(v) {
			addIssue(issues, path, "number", describe(v))
		}
	case KindInteger:
		if !isInteger(v) {
			addIssue(issues, path, "integer", describe(v))
		}
	case KindBool:
		if _, ok := v.(bool); !ok {
			addIssue(issues, path, "boolean", describe(v))
		}
	case KindArray:
		list, ok := v.([]any)
		if !ok {
			addIssue(issues, path, "array", describe(v))
			return
		}
		for i, item := range list {
			validate(n.items, item, path+"["+strconv.Itoa(i)+"]", issues)
		}
	case KindObject:
		obj, ok := v.(map[string]any)
		if !ok {
			addIssue(issues, path, "object", describe(v))
			return
		}
		validateFields(n.fields, obj, path, issues)
	case KindUnion:
		validateUnion(n, v, path, issues)
	}
}

func validateUnion(n *Node, v any, path string, issues *[]Issue) {
	obj, ok := v.(map[string]any)
	if !ok {
		addIssue(issues, path, "object", describe(v))
		return
	}

	tagPath := join(path, TypenameField)
	raw, present := obj[TypenameField]
	if !present {
		addIssue(issues, tagPath, expectation(n), "missing")
		return
	}
	tag, ok := raw.(string)
	if !ok {
		addIssue(issues, tagPath, expectation(n), describe(raw))
		return
	}
	variant, ok := n.variant(tag)
	if !ok {
		addIssue(issues, tagPath, expectation(n), describe(raw))
		return
	}
	validateFields(variant.Fields, obj, path, issues)
}

func validateFields(fields []Field, obj map[string]any, path string, issues *[]Issue) {
	for _, f := range fields {
		fieldPath := join(path, f.Name)
		val, ok := obj[f.Name]
		if !ok {
			if f.Required {
				addIssue(issues, fieldPath, expectation(f.Node), "missing")
			}
			continue
		}
		validate(f.Node, val, fieldPath, issues)
	}
}

func addIssue(issues *[]Issue, path, expected, actual string) {
	if len(*issues) >= maxIssues {
		return
	}
	*issues = append(*issues, Issue{Path: path, Expected: expected, Actual: actual})
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func expectation(n *Node) string {
	var s string
	switch {
	case n.kind == KindUnion:
		s = "one of " + strings.Join(n.Tags(), "|")
	case len(n.enum) > 0:
		s = "one of " + strings.Join(n.enum, "|")
	default:
		s = n.kind.String()
	}
	if n.nullable {
		s += " or null"
	}
	return s
}

func isNumber(v any) bool {
	switch x := v.(type) {
	case json.Number:
		_, err := x.Float64()
		return err == nil
	case float64, float32, int, int64, int32:
		return true
	}
	return false
}

func isInteger(v any) bool {
	switch x := v.(type) {
	case json.Number:
		_, err := x.Int64()
		return err == nil
	case int, int64, int32:
		return true
	case float64:
		return x == float64(int64(x))
	}
	return false
}

// describe renders a short description of an actual value for error output.
func describe(v any) string {
	switch x := v.(type) {
	case nil:
		return "null"
	case string:
		if len(x) > 40 {
			x = x[:40] + "..."
		}
		return strconv.Quote(x)
	case json.Number:
		return "number " + x.String()
	case float64:
		return "number " + strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return "boolean " + strconv.FormatBool(x)
	case []any:
		return fmt.Sprintf("array of %d", len(x))
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

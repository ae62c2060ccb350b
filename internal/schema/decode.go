package schema

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Decode validates data against n and, when it matches, decodes it into T.
// Any failure is returned as a *ParseError tagged with the contract name.
func Decode[T any](contract string, n *Node, data []byte) (T, error) {
	var out T

	tree, err := Parse(data)
	if err != nil {
		return out, tag(err, contract)
	}
	if err := Validate(n, tree); err != nil {
		return out, tag(err, contract)
	}

	// The tree already matched, so the typed decode only fails when the Go
	// type disagrees with its own contract.
	if err := json.Unmarshal(data, &out); err != nil {
		var zero T
		return zero, &ParseError{Contract: contract, Issues: []Issue{typedIssue(err)}}
	}
	return out, nil
}

func tag(err error, contract string) error {
	if pe, ok := AsParseError(err); ok {
		pe.Contract = contract
		return pe
	}
	return err
}

func typedIssue(err error) Issue {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return Issue{
			Path:     typeErr.Field,
			Expected: typeErr.Type.String(),
			Actual:   typeErr.Value,
		}
	}
	return Issue{Expected: "decodable value", Actual: fmt.Sprint(err)}
}

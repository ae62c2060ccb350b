// Package contract declares the GraphQL documents served by the coverage API
// together with the schema each response must satisfy and the typed Go value
// it decodes into.
//
// Unions are sealed interfaces. Variant-specific fields are only reachable
// after a type switch on the concrete variant.
package contract

import (
	"encoding/json"
	"fmt"

	"github.com/ericfisherdev/covlens/internal/schema"
)

// Repository union tags.
const (
	TypeRepository             = "Repository"
	TypeNotFoundError          = "NotFoundError"
	TypeOwnerNotActivatedError = "OwnerNotActivatedError"
)

// Response is the root of every repository-scoped query.
type Response[R any] struct {
	Owner *Owner[R] `json:"owner"`
}

// Owner is the owner object of a response. Repository is nil when the owner
// resolved but the repository does not exist for the current viewer.
type Owner[R any] struct {
	IsCurrentUserPartOfOrg bool
	Repository             RepositoryVariant
}

// RepositoryVariant is one of *Repository[R], *NotFoundError or
// *OwnerNotActivatedError.
type RepositoryVariant interface {
	repositoryTypename() string
}

// Repository is the success variant. Data holds the query-specific fields.
type Repository[R any] struct {
	Data R
}

// NotFoundError is returned when the repository is absent or hidden.
type NotFoundError struct {
	Message string `json:"message"`
}

// OwnerNotActivatedError is returned when the viewer has no activated seat.
type OwnerNotActivatedError struct {
	Message string `json:"message"`
}

func (*Repository[R]) repositoryTypename() string          { return TypeRepository }
func (*NotFoundError) repositoryTypename() string          { return TypeNotFoundError }
func (*OwnerNotActivatedError) repositoryTypename() string { return TypeOwnerNotActivatedError }

// Typename returns the discriminant of a repository variant, or "" for nil.
func Typename(v RepositoryVariant) string {
	if v == nil {
		return ""
	}
	return v.repositoryTypename()
}

// UnmarshalJSON decodes the success variant's fields into Data.
func (r *Repository[R]) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &r.Data)
}

// UnmarshalJSON dispatches the repository union on __typename.
func (o *Owner[R]) UnmarshalJSON(b []byte) error {
	var raw struct {
		IsCurrentUserPartOfOrg bool            `json:"isCurrentUserPartOfOrg"`
		Repository             json.RawMessage `json:"repository"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	repo, err := decodeUnion(raw.Repository, map[string]func() RepositoryVariant{
		TypeRepository:             func() RepositoryVariant { return &Repository[R]{} },
		TypeNotFoundError:          func() RepositoryVariant { return &NotFoundError{} },
		TypeOwnerNotActivatedError: func() RepositoryVariant { return &OwnerNotActivatedError{} },
	})
	if err != nil {
		return fmt.Errorf("repository: %w", err)
	}

	o.IsCurrentUserPartOfOrg = raw.IsCurrentUserPartOfOrg
	o.Repository = repo
	return nil
}

// decodeUnion reads __typename from raw and decodes raw into the variant the
// matching factory returns. Null or empty input yields the zero value.
func decodeUnion[T any](raw json.RawMessage, factories map[string]func() T) (T, error) {
	var zero T
	if len(raw) == 0 || string(raw) == "null" {
		return zero, nil
	}

	var head struct {
		Typename string `json:"__typename"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return zero, err
	}

	factory, ok := factories[head.Typename]
	if !ok {
		return zero, fmt.Errorf("unknown %s %q", schema.TypenameField, head.Typename)
	}

	v := factory()
	if err := json.Unmarshal(raw, any(v)); err != nil {
		return zero, fmt.Errorf("%s: %w", head.Typename, err)
	}
	return v, nil
}

// repositoryContract wraps the success variant's fields in the owner and
// repository union shared by every repository-scoped query.
func repositoryContract(fields ...schema.Field) *schema.Node {
	return schema.Object(
		schema.Req("owner", schema.Object(
			schema.Req("isCurrentUserPartOfOrg", schema.Bool()),
			schema.Req("repository", schema.Union(
				schema.Tag(TypeRepository, fields...),
				schema.Tag(TypeNotFoundError, schema.Req("message", schema.String())),
				schema.Tag(TypeOwnerNotActivatedError, schema.Req("message", schema.String())),
			).Nullable()),
		).Nullable()),
	)
}

// Operation is a GraphQL document with the variables of one request.
type Operation struct {
	Name      string
	Query     string
	Variables map[string]any
	// Provider selects the per-provider GraphQL endpoint ("gh", "gl", "bb").
	Provider string
}

// Contract ties a named GraphQL document to the schema of its response.
type Contract struct {
	Name     string
	Document string
	Node     *schema.Node
}

// Operation builds a request for this contract.
func (c Contract) Operation(provider string, vars map[string]any) Operation {
	return Operation{Name: c.Name, Query: c.Document, Variables: vars, Provider: provider}
}

// All lists every contract in a stable order.
func All() []Contract {
	return []Contract{CommitPageData, CoverageForCommitFile, CoverageForBranchFile, CoverageForPullFile, PathContents}
}

func init() {
	for _, c := range All() {
		schema.Register(c.Name, c.Node)
	}
}

package contract

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/ericfisherdev/covlens/internal/schema"
)

// Path contents union tags.
const (
	TypePathContents    = "PathContents"
	TypeMissingCoverage = "MissingCoverage"
	TypeUnknownPath     = "UnknownPath"
	TypePathContentDir  = "PathContentDir"
	TypePathContentFile = "PathContentFile"
)

const pathContentsQuery = `query PathContents($owner: String!, $repo: String!, $branch: String!, $path: String!, $flags: [String], $components: [String]) {
  owner(username: $owner) {
    isCurrentUserPartOfOrg
    repository(name: $repo) {
      __typename
      ... on Repository {
        branch(name: $branch) {
          head {
            pathContents(path: $path, filters: { flags: $flags, components: $components }) {
              __typename
              ... on PathContents {
                results {
                  __typename
                  name
                  path
                  hits
                  misses
                  partials
                  lines
                  percentCovered
                  ... on PathContentFile { isCriticalFile }
                }
              }
              ... on MissingCoverage { message }
              ... on UnknownPath { message }
              ... on MissingHeadReport { message }
            }
          }
        }
      }
      ... on NotFoundError { message }
      ... on OwnerNotActivatedError { message }
    }
  }
}`

var pathEntryFields = []schema.Field{
	schema.Req("name", schema.String()),
	schema.Req("path", schema.String()),
	schema.Req("hits", schema.Integer()),
	schema.Req("misses", schema.Integer()),
	schema.Req("partials", schema.Integer()),
	schema.Req("lines", schema.Integer()),
	schema.Req("percentCovered", schema.Number().Nullable()),
}

var pathContentsNode = schema.Union(
	schema.Tag(TypePathContents,
		schema.Req("results", schema.Array(schema.Union(
			schema.Tag(TypePathContentDir, pathEntryFields...),
			schema.Tag(TypePathContentFile, append(slices.Clone(pathEntryFields),
				schema.Req("isCriticalFile", schema.Bool()))...),
		))),
	),
	schema.Tag(TypeMissingCoverage, schema.Req("message", schema.String())),
	schema.Tag(TypeUnknownPath, schema.Req("message", schema.String())),
	schema.Tag(TypeMissingHeadReport, schema.Req("message", schema.String())),
).Nullable()

// PathContents lists the files and directories under a path at a branch head
// with their coverage totals.
var PathContents = Contract{
	Name:     "PathContents",
	Document: pathContentsQuery,
	Node: repositoryContract(
		schema.Req("branch", schema.Object(
			schema.Req("head", schema.Object(
				schema.Req("pathContents", pathContentsNode),
			).Nullable()),
		).Nullable()),
	),
}

// PathContentsResponse is the decoded PathContents response.
type PathContentsResponse = Response[PathContentsRepository]

// PathContentsRepository holds the Repository variant fields of PathContents.
type PathContentsRepository struct {
	Branch *struct {
		Head *PathHead `json:"head"`
	} `json:"branch"`
}

// PathHead is the head commit of the listed branch.
type PathHead struct {
	PathContents PathContentsVariant
}

// UnmarshalJSON dispatches pathContents on __typename.
func (h *PathHead) UnmarshalJSON(b []byte) error {
	var raw struct {
		PathContents json.RawMessage `json:"pathContents"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	v, err := decodeUnion(raw.PathContents, map[string]func() PathContentsVariant{
		TypePathContents:      func() PathContentsVariant { return &PathListing{} },
		TypeMissingCoverage:   func() PathContentsVariant { return &PathUnavailable{} },
		TypeUnknownPath:       func() PathContentsVariant { return &PathUnavailable{} },
		TypeMissingHeadReport: func() PathContentsVariant { return &PathUnavailable{} },
	})
	if err != nil {
		return fmt.Errorf("pathContents: %w", err)
	}
	h.PathContents = v
	return nil
}

// PathContentsVariant is *PathListing or *PathUnavailable.
type PathContentsVariant interface {
	pathContentsTypename() string
}

// PathListing is a successful listing.
type PathListing struct {
	Results []PathEntry `json:"results"`
}

// PathUnavailable explains why no listing exists. Typename holds the tag.
type PathUnavailable struct {
	Typename string `json:"__typename"`
	Message  string `json:"message"`
}

func (*PathListing) pathContentsTypename() string       { return TypePathContents }
func (p *PathUnavailable) pathContentsTypename() string { return p.Typename }

// PathContentsTypename returns the discriminant of v, or "" for nil.
func PathContentsTypename(v PathContentsVariant) string {
	if v == nil {
		return ""
	}
	return v.pathContentsTypename()
}

// PathEntry is a directory or file in a listing. IsCriticalFile is only
// selected on the PathContentFile variant and stays false for directories.
type PathEntry struct {
	Typename       string   `json:"__typename"`
	Name           string   `json:"name"`
	Path           string   `json:"path"`
	Hits           int      `json:"hits"`
	Misses         int      `json:"misses"`
	Partials       int      `json:"partials"`
	Lines          int      `json:"lines"`
	PercentCovered *float64 `json:"percentCovered"`
	IsCriticalFile bool     `json:"isCriticalFile"`
}

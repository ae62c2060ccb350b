// Package query builds the query definitions consumed by the view layer: a
// cache key plus a fetch that runs transport, validation, classification and
// extraction in that order.
package query

import (
	"encoding/json"

	"github.com/ericfisherdev/covlens/internal/contract"
	"github.com/ericfisherdev/covlens/internal/domain/model"
)

// contractNames maps each query kind to the contract it executes. The contract
// name is the first component of every cache key.
var contractNames = map[model.QueryKind]string{
	model.QueryKindCommitPage:   contract.CommitPageData.Name,
	model.QueryKindCommitFile:   contract.CoverageForCommitFile.Name,
	model.QueryKindBranchFile:   contract.CoverageForBranchFile.Name,
	model.QueryKindPullFile:     contract.CoverageForPullFile.Name,
	model.QueryKindPathContents: contract.PathContents.Name,
}

// Key returns the cache key of t. Two targets share a key exactly when they
// would issue the same request: the key is the JSON array
//
//	[queryName, provider, owner, repo, ref, path, flags, components]
//
// so no two distinct tuples can collide. Filters keep their order; a nil
// filter and an empty one are the same filter.
func Key(t model.QueryTarget) string {
	parts := []any{
		contractNames[t.Kind],
		t.Provider,
		t.Owner,
		t.Repo,
		t.Ref,
		t.NormalizedPath(),
		filter(t.Flags),
		filter(t.Components),
	}
	// Strings and string slices always marshal.
	b, _ := json.Marshal(parts)
	return string(b)
}

func filter(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

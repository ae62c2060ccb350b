package model

import "strings"

// QueryKind names one of the query definitions served to the view layer.
type QueryKind string

const (
	QueryKindCommitPage   QueryKind = "commit_page"
	QueryKindCommitFile   QueryKind = "commit_file"
	QueryKindBranchFile   QueryKind = "branch_file"
	QueryKindPullFile     QueryKind = "pull_file"
	QueryKindPathContents QueryKind = "path_contents"
)

// ValidQueryKinds lists every QueryKind in a stable order.
var ValidQueryKinds = []QueryKind{
	QueryKindCommitPage,
	QueryKindCommitFile,
	QueryKindBranchFile,
	QueryKindPullFile,
	QueryKindPathContents,
}

// Valid reports whether k is a known query kind.
func (k QueryKind) Valid() bool {
	for _, v := range ValidQueryKinds {
		if v == k {
			return true
		}
	}
	return false
}

// RepoRef identifies a repository on a git provider ("gh", "gl", "bb").
type RepoRef struct {
	Provider string
	Owner    string
	Repo     string
}

// FullName returns "owner/repo".
func (r RepoRef) FullName() string {
	return r.Owner + "/" + r.Repo
}

// QueryTarget is the routing identity of a single query: which query and
// against which repository, ref and path, with optional filter sets.
// Ref is a commit SHA, branch name or pull request number depending on Kind.
type QueryTarget struct {
	Kind QueryKind
	RepoRef
	Ref        string
	Path       string
	Flags      []string
	Components []string
}

// NormalizedPath strips leading and trailing slashes so "/src/" and "src"
// address the same directory.
func (t QueryTarget) NormalizedPath() string {
	return strings.Trim(t.Path, "/")
}

package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/ericfisherdev/covlens/internal/classify"
	"github.com/ericfisherdev/covlens/internal/contract"
	"github.com/ericfisherdev/covlens/internal/domain/model"
	"github.com/ericfisherdev/covlens/internal/domain/port/driven"
	"github.com/ericfisherdev/covlens/internal/extract"
	"github.com/ericfisherdev/covlens/internal/schema"
)

// ErrInvalidTarget is returned when a QueryTarget cannot be turned into a
// request.
var ErrInvalidTarget = errors.New("invalid query target")

// Builder creates query definitions that execute against a GraphQL transport.
type Builder struct {
	transport driven.GraphQLTransport
}

// NewBuilder creates a Builder backed by transport.
func NewBuilder(transport driven.GraphQLTransport) *Builder {
	return &Builder{transport: transport}
}

// CommitPage loads the header data of a commit page.
func (b *Builder) CommitPage(repo model.RepoRef, commitID string) Definition[*model.CommitPage] {
	t := model.QueryTarget{Kind: model.QueryKindCommitPage, RepoRef: repo, Ref: commitID}
	vars := map[string]any{
		"owner":    repo.Owner,
		"repo":     repo.Repo,
		"commitId": commitID,
	}
	return Definition[*model.CommitPage]{
		Key: Key(t),
		Fetch: func(ctx context.Context) (*model.CommitPage, error) {
			return run(ctx, b.transport, contract.CommitPageData, repo, vars, extract.CommitPage)
		},
	}
}

// CommitFile loads the coverage of one file at a commit.
func (b *Builder) CommitFile(repo model.RepoRef, commitID, path string, flags, components []string) Definition[*model.CoverageFileRecord] {
	t := fileTarget(model.QueryKindCommitFile, repo, commitID, path, flags, components)
	return b.fileDefinition(contract.CoverageForCommitFile, t, map[string]any{"ref": commitID})
}

// BranchFile loads the coverage of one file at the head of a branch.
func (b *Builder) BranchFile(repo model.RepoRef, branch, path string, flags, components []string) Definition[*model.CoverageFileRecord] {
	t := fileTarget(model.QueryKindBranchFile, repo, branch, path, flags, components)
	return b.fileDefinition(contract.CoverageForBranchFile, t, map[string]any{"ref": branch})
}

// PullFile loads the coverage of one file at the head of a pull request.
func (b *Builder) PullFile(repo model.RepoRef, pullID int, path string, flags, components []string) Definition[*model.CoverageFileRecord] {
	t := fileTarget(model.QueryKindPullFile, repo, strconv.Itoa(pullID), path, flags, components)
	return b.fileDefinition(contract.CoverageForPullFile, t, map[string]any{"pullId": pullID})
}

// PathContents lists coverage totals under a directory at a branch head.
func (b *Builder) PathContents(repo model.RepoRef, branch, path string, flags, components []string) Definition[*model.PathContents] {
	t := fileTarget(model.QueryKindPathContents, repo, branch, path, flags, components)
	vars := map[string]any{
		"owner":      repo.Owner,
		"repo":       repo.Repo,
		"branch":     branch,
		"path":       t.NormalizedPath(),
		"flags":      filter(flags),
		"components": filter(components),
	}
	return Definition[*model.PathContents]{
		Key: Key(t),
		Fetch: func(ctx context.Context) (*model.PathContents, error) {
			return run(ctx, b.transport, contract.PathContents, repo, vars,
				func(_ bool, r *contract.PathContentsRepository) *model.PathContents {
					return extract.PathContents(r)
				})
		},
	}
}

// Target builds the definition addressed by t, erasing its value type. Its
// key is Key(Canonical(t)).
func (b *Builder) Target(t model.QueryTarget) (Definition[any], error) {
	t, err := Canonical(t)
	if err != nil {
		return Definition[any]{}, err
	}

	switch t.Kind {
	case model.QueryKindCommitPage:
		return b.CommitPage(t.RepoRef, t.Ref).Any(), nil
	case model.QueryKindCommitFile:
		return b.CommitFile(t.RepoRef, t.Ref, t.Path, t.Flags, t.Components).Any(), nil
	case model.QueryKindBranchFile:
		return b.BranchFile(t.RepoRef, t.Ref, t.Path, t.Flags, t.Components).Any(), nil
	case model.QueryKindPullFile:
		// Canonical guarantees a positive numeric ref.
		pullID, _ := strconv.Atoi(t.Ref)
		return b.PullFile(t.RepoRef, pullID, t.Path, t.Flags, t.Components).Any(), nil
	default:
		return b.PathContents(t.RepoRef, t.Ref, t.Path, t.Flags, t.Components).Any(), nil
	}
}

// Validate checks that t names a known query with every required part set.
func Validate(t model.QueryTarget) error {
	if !t.Kind.Valid() {
		return fmt.Errorf("%w: unknown query kind %q", ErrInvalidTarget, t.Kind)
	}
	if t.Provider == "" || t.Owner == "" || t.Repo == "" {
		return fmt.Errorf("%w: provider, owner and repo are required", ErrInvalidTarget)
	}
	if t.Ref == "" {
		return fmt.Errorf("%w: ref is required", ErrInvalidTarget)
	}

	switch t.Kind {
	case model.QueryKindCommitFile, model.QueryKindBranchFile, model.QueryKindPullFile:
		if t.NormalizedPath() == "" {
			return fmt.Errorf("%w: path is required for %s", ErrInvalidTarget, t.Kind)
		}
	}
	if t.Kind == model.QueryKindPullFile {
		id, err := strconv.Atoi(t.Ref)
		if err != nil {
			return fmt.Errorf("%w: pull request id %q is not a number", ErrInvalidTarget, t.Ref)
		}
		if id <= 0 {
			return fmt.Errorf("%w: pull request id %d must be positive", ErrInvalidTarget, id)
		}
	}
	return nil
}

// Canonical validates t and rewrites it into the form the typed builders key
// on: the path is normalized, a pull ref is reformatted ("007" becomes "7")
// and a commit page drops the path and filters it does not send. Two targets
// that fetch the same entry have equal canonical forms.
func Canonical(t model.QueryTarget) (model.QueryTarget, error) {
	if err := Validate(t); err != nil {
		return model.QueryTarget{}, err
	}

	t.Path = t.NormalizedPath()
	switch t.Kind {
	case model.QueryKindCommitPage:
		t.Path = ""
		t.Flags = nil
		t.Components = nil
	case model.QueryKindPullFile:
		id, _ := strconv.Atoi(t.Ref)
		t.Ref = strconv.Itoa(id)
	}
	return t, nil
}

func fileTarget(kind model.QueryKind, repo model.RepoRef, ref, path string, flags, components []string) model.QueryTarget {
	return model.QueryTarget{
		Kind:       kind,
		RepoRef:    repo,
		Ref:        ref,
		Path:       path,
		Flags:      flags,
		Components: components,
	}
}

func (b *Builder) fileDefinition(c contract.Contract, t model.QueryTarget, refVars map[string]any) Definition[*model.CoverageFileRecord] {
	vars := map[string]any{
		"owner":      t.Owner,
		"repo":       t.Repo,
		"path":       t.NormalizedPath(),
		"flags":      filter(t.Flags),
		"components": filter(t.Components),
	}
	for k, v := range refVars {
		vars[k] = v
	}

	return Definition[*model.CoverageFileRecord]{
		Key: Key(t),
		Fetch: func(ctx context.Context) (*model.CoverageFileRecord, error) {
			return run(ctx, b.transport, c, t.RepoRef, vars,
				func(_ bool, r *contract.FileRepository) *model.CoverageFileRecord {
					return extract.CoverageFile(r)
				})
		},
	}
}

// run executes c and pipes the response through validation, classification
// and extraction. Transport errors are returned wrapped and unclassified.
func run[R, T any](
	ctx context.Context,
	transport driven.GraphQLTransport,
	c contract.Contract,
	repo model.RepoRef,
	vars map[string]any,
	extractFn func(isCurrentUserPartOfOrg bool, r *R) T,
) (T, error) {
	var zero T

	data, err := transport.Execute(ctx, c.Operation(repo.Provider, vars))
	if err != nil {
		return zero, fmt.Errorf("executing %s for %s: %w", c.Name, repo.FullName(), err)
	}

	resp, decodeErr := schema.Decode[contract.Response[R]](c.Name, c.Node, data)
	r, err := classify.Classify(classify.Call{Query: c.Name, RepoRef: repo}, resp.Owner, decodeErr)
	if err != nil {
		return zero, err
	}
	return extractFn(resp.Owner.IsCurrentUserPartOfOrg, r), nil
}

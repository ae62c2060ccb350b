// Package application contains use-case orchestration services.
package application

import (
	"context"

	"github.com/ericfisherdev/covlens/internal/domain/model"
	"github.com/ericfisherdev/covlens/internal/domain/port/driven"
	"github.com/ericfisherdev/covlens/internal/query"
)

// QueryService serves the query definitions through the shared cache. Reads
// and prefetches of the same target resolve to the same cache entry.
type QueryService struct {
	builder *query.Builder
	cache   driven.QueryCache
}

// NewQueryService creates a new QueryService with the required dependencies.
func NewQueryService(builder *query.Builder, cache driven.QueryCache) *QueryService {
	return &QueryService{
		builder: builder,
		cache:   cache,
	}
}

// CommitPage returns the commit page header data.
func (s *QueryService) CommitPage(ctx context.Context, repo model.RepoRef, commitID string) (*model.CommitPage, error) {
	return query.Read(ctx, s.cache, s.builder.CommitPage(repo, commitID))
}

// CommitFile returns the coverage of a file at a commit, or nil when the
// commit has no coverage for it.
func (s *QueryService) CommitFile(ctx context.Context, repo model.RepoRef, commitID, path string, flags, components []string) (*model.CoverageFileRecord, error) {
	return query.Read(ctx, s.cache, s.builder.CommitFile(repo, commitID, path, flags, components))
}

// BranchFile returns the coverage of a file at a branch head.
func (s *QueryService) BranchFile(ctx context.Context, repo model.RepoRef, branch, path string, flags, components []string) (*model.CoverageFileRecord, error) {
	return query.Read(ctx, s.cache, s.builder.BranchFile(repo, branch, path, flags, components))
}

// PullFile returns the coverage of a file at a pull request head.
func (s *QueryService) PullFile(ctx context.Context, repo model.RepoRef, pullID int, path string, flags, components []string) (*model.CoverageFileRecord, error) {
	return query.Read(ctx, s.cache, s.builder.PullFile(repo, pullID, path, flags, components))
}

// PathContents returns the directory listing under path at a branch head.
func (s *QueryService) PathContents(ctx context.Context, repo model.RepoRef, branch, path string, flags, components []string) (*model.PathContents, error) {
	return query.Read(ctx, s.cache, s.builder.PathContents(repo, branch, path, flags, components))
}

// Prefetch warms the cache entry of t and returns its key. Rejections are
// stored on the entry; the returned error is for the caller's information.
func (s *QueryService) Prefetch(ctx context.Context, t model.QueryTarget) (string, error) {
	def, err := s.builder.Target(t)
	if err != nil {
		return "", err
	}
	return def.Key, query.Prefetch(ctx, s.cache, def)
}

// Key validates t and returns the key Prefetch and the typed reads store its
// entry under.
func (s *QueryService) Key(t model.QueryTarget) (string, error) {
	t, err := query.Canonical(t)
	if err != nil {
		return "", err
	}
	return query.Key(t), nil
}

// Entry reports the cache entry for key without fetching.
func (s *QueryService) Entry(key string) model.CacheEntry {
	return s.cache.Peek(key)
}

// Invalidate drops the cache entry for key.
func (s *QueryService) Invalidate(key string) bool {
	return s.cache.Invalidate(key)
}

// Keys lists the keys of every cached entry.
func (s *QueryService) Keys() []string {
	return s.cache.Keys()
}

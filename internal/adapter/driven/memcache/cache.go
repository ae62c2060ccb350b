// Package memcache implements the QueryCache port with an in-memory
// expirable LRU and per-key request de-duplication.
package memcache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/covlens/internal/domain/model"
	"github.com/ericfisherdev/covlens/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.QueryCache = (*Cache)(nil)

// Defaults used when New receives zero values.
const (
	DefaultSize      = 512
	DefaultStaleTime = 30 * time.Second
	DefaultTTL       = 5 * time.Minute
)

type entry struct {
	data      any
	hasData   bool
	err       error
	updatedAt time.Time
}

// Cache keeps resolved query results for up to ttl and serves them without
// refetching while they are younger than staleTime.
type Cache struct {
	entries   *expirable.LRU[string, entry]
	group     singleflight.Group
	staleTime time.Duration
	now       func() time.Time

	mu      sync.Mutex
	loading map[string]struct{}
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now for staleness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// New creates a Cache holding at most size entries. Entries are dropped ttl
// after their last write and refetched once older than staleTime.
func New(size int, staleTime, ttl time.Duration, opts ...Option) *Cache {
	if size <= 0 {
		size = DefaultSize
	}
	if staleTime <= 0 {
		staleTime = DefaultStaleTime
	}
	if ttl < staleTime {
		ttl = max(DefaultTTL, staleTime)
	}

	c := &Cache{
		entries:   expirable.NewLRU[string, entry](size, nil, ttl),
		staleTime: staleTime,
		now:       time.Now,
		loading:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the fresh entry for key or resolves it with fetch. Concurrent
// callers of the same key share one fetch. The fetch runs detached from ctx
// cancellation; a caller whose ctx ends stops waiting but the fetch still
// completes and populates the entry.
func (c *Cache) Fetch(ctx context.Context, key string, fetch driven.FetchFunc) (any, error) {
	if e, ok := c.entries.Get(key); ok && c.fresh(e) {
		if e.err != nil {
			return nil, e.err
		}
		return e.data, nil
	}

	ch := c.group.DoChan(key, func() (any, error) {
		c.setLoading(key, true)
		defer c.setLoading(key, false)

		start := c.now()
		v, err := fetch(context.WithoutCancel(ctx))
		c.store(key, v, err)

		slog.Debug("query fetched",
			"key", key,
			"duration", c.now().Sub(start),
			"error", err,
		)
		return v, err
	})

	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// store records a fetch outcome. Successful values replace the entry and clear
// any previous error. Classified rejections keep the previous data next to
// the error. Any other error leaves the entry untouched.
func (c *Cache) store(key string, v any, err error) {
	if err == nil {
		c.entries.Add(key, entry{data: v, hasData: true, updatedAt: c.now()})
		return
	}

	if _, ok := model.AsClassified(err); !ok {
		return
	}
	prev, _ := c.entries.Peek(key)
	c.entries.Add(key, entry{
		data:      prev.data,
		hasData:   prev.hasData,
		err:       err,
		updatedAt: c.now(),
	})
}

func (c *Cache) fresh(e entry) bool {
	return c.now().Sub(e.updatedAt) < c.staleTime
}

func (c *Cache) setLoading(key string, loading bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if loading {
		c.loading[key] = struct{}{}
	} else {
		delete(c.loading, key)
	}
}

// Peek reports the {data, error, isLoading} triple for key.
func (c *Cache) Peek(key string) model.CacheEntry {
	c.mu.Lock()
	_, loading := c.loading[key]
	c.mu.Unlock()

	e, _ := c.entries.Peek(key)
	return model.CacheEntry{
		Data:      e.data,
		HasData:   e.hasData,
		Err:       e.err,
		IsLoading: loading,
		UpdatedAt: e.updatedAt,
	}
}

// Invalidate drops the entry for key. An in-flight fetch still completes and
// repopulates it.
func (c *Cache) Invalidate(key string) bool {
	return c.entries.Remove(key)
}

// Keys returns the keys of every live entry, oldest first.
func (c *Cache) Keys() []string {
	return c.entries.Keys()
}

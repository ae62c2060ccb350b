package query

import (
	"context"
	"fmt"

	"github.com/ericfisherdev/covlens/internal/domain/port/driven"
)

// Definition pairs a cache key with the fetch that resolves it. A fetch
// rejects with a *model.ClassifiedError for upstream business states and
// contract drift, and with a transport error when no response was obtained.
type Definition[T any] struct {
	Key   string
	Fetch func(ctx context.Context) (T, error)
}

// Any erases the value type so definitions of different queries can be
// handled together, e.g. by the warmer.
func (d Definition[T]) Any() Definition[any] {
	return Definition[any]{
		Key: d.Key,
		Fetch: func(ctx context.Context) (any, error) {
			return d.Fetch(ctx)
		},
	}
}

func (d Definition[T]) fetchFunc() driven.FetchFunc {
	return func(ctx context.Context) (any, error) {
		return d.Fetch(ctx)
	}
}

// Read resolves def through the cache, sharing an in-flight fetch with any
// concurrent reader or prefetch of the same key.
func Read[T any](ctx context.Context, cache driven.QueryCache, def Definition[T]) (T, error) {
	var zero T
	v, err := cache.Fetch(ctx, def.Key, def.fetchFunc())
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("cache entry %s holds %T", def.Key, v)
	}
	return t, nil
}

// Prefetch warms the cache entry of def. It uses the same key as Read, so a
// later read of the same target is served from the cache.
func Prefetch[T any](ctx context.Context, cache driven.QueryCache, def Definition[T]) error {
	_, err := cache.Fetch(ctx, def.Key, def.fetchFunc())
	return err
}

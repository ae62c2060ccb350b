package driven

import (
	"context"

	"github.com/ericfisherdev/covlens/internal/domain/model"
)

// FetchFunc resolves the value for a cache key. A nil value with a nil error
// is a resolved "no data" result.
type FetchFunc func(ctx context.Context) (any, error)

// QueryCache defines the driven port for the async query cache.
//
// Fetch returns the cached value for key when it is fresh, otherwise runs
// fetch once no matter how many callers are waiting on the same key. Only
// *model.ClassifiedError rejections are stored on the entry; other errors are
// returned to the waiters and leave the entry untouched.
type QueryCache interface {
	Fetch(ctx context.Context, key string, fetch FetchFunc) (any, error)
	// Peek reports the current entry for key without triggering a fetch.
	Peek(key string) model.CacheEntry
	// Invalidate drops the entry for key and reports whether one existed.
	Invalidate(key string) bool
	Keys() []string
}

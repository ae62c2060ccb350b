package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/covlens/internal/domain/model"
)

// Sentinel errors returned by WatchStore implementations.
var (
	// ErrWatchNotFound indicates the requested watch does not exist.
	ErrWatchNotFound = errors.New("watch not found")

	// ErrWatchAlreadyExists indicates an identical target is already watched.
	ErrWatchAlreadyExists = errors.New("watch already exists")
)

// WatchStore defines the driven port for persisted prefetch targets.
// Add returns ErrWatchAlreadyExists if the same target is already watched.
// Remove returns ErrWatchNotFound if no watch has the given ID.
type WatchStore interface {
	Add(ctx context.Context, target model.QueryTarget) (model.Watch, error)
	Remove(ctx context.Context, id int64) error
	List(ctx context.Context) ([]model.Watch, error)
}

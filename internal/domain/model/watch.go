package model

import "time"

// Watch is a persisted query target that the warmer keeps prefetched.
type Watch struct {
	ID      int64
	Target  QueryTarget
	AddedAt time.Time
}

package model

import "time"

// CacheEntry is the async-resource triple exposed for a single cache key.
// Err is only ever a *ClassifiedError; transport failures are not stored.
// HasData distinguishes a resolved nil value ("no report for this ref")
// from a key that never resolved.
type CacheEntry struct {
	Data      any
	HasData   bool
	Err       error
	IsLoading bool
	UpdatedAt time.Time
}

// Empty reports whether nothing is known for the key yet.
func (e CacheEntry) Empty() bool {
	return !e.HasData && e.Err == nil && !e.IsLoading
}

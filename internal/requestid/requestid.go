// Package requestid carries a correlation ID from an inbound HTTP request to
// the upstream requests it causes.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header carrying the ID in both directions.
const Header = "X-Request-ID"

type ctxKey struct{}

// New returns a fresh random ID.
func New() string {
	return uuid.NewString()
}

// With returns a copy of ctx carrying id.
func With(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// From returns the ID stored in ctx, or "" if there is none.
func From(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// FromOrNew returns the ID stored in ctx, or a fresh one.
func FromOrNew(ctx context.Context) string {
	if id := From(ctx); id != "" {
		return id
	}
	return New()
}

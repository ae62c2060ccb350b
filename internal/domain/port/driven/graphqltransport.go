package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/covlens/internal/contract"
)

// ErrTransport marks failures to obtain a response body at all: network
// errors, non-2xx statuses and GraphQL errors with no data. These are never
// classified; they surface to callers as-is.
var ErrTransport = errors.New("upstream transport failure")

// GraphQLTransport defines the driven port for executing a named GraphQL
// operation. It returns the raw "data" object of the response so the caller
// can validate it against the operation's contract.
type GraphQLTransport interface {
	Execute(ctx context.Context, op contract.Operation) ([]byte, error)
}

package graphql

import (
	"fmt"

	"github.com/ericfisherdev/covlens/internal/domain/port/driven"
)

// TransportError reports that no usable response was obtained for an
// operation. It matches driven.ErrTransport with errors.Is.
type TransportError struct {
	Operation string
	Status    int // 0 when no response was received.
	Err       error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("graphql %s: status %d: %v", e.Operation, e.Status, e.Err)
	}
	return fmt.Sprintf("graphql %s: %v", e.Operation, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is reports whether target is driven.ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == driven.ErrTransport
}

package invalidate

import (
	"errors"
	"fmt"
)

// ErrInvalidEventPayload matches every ValidationError via errors.Is.
var ErrInvalidEventPayload = errors.New("invalidate: invalid event payload")

// ErrRemoteRejected is returned by Client when the render service answers 4xx.
var ErrRemoteRejected = errors.New("invalidate: request rejected by render service")

// ValidationError describes why an event was rejected.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalidate: invalid event payload: %s: %s", e.Field, e.Reason)
}

// Kind returns the error taxonomy name used in API responses.
func (e *ValidationError) Kind() string {
	return "InvalidEventPayload"
}

// Is reports whether target is ErrInvalidEventPayload.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidEventPayload
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

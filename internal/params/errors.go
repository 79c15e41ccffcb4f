package params

import (
	"errors"
	"fmt"
)

// ErrCodeInvalidArgument marks a malformed Set or CacheDirective.
const ErrCodeInvalidArgument = "INVALID_ARGUMENT"

// ArgumentError reports a malformed call descriptor. It is always raised
// before any I/O and is never worth retrying.
type ArgumentError struct {
	// Field names the offending field ("schema", "procedure", "param[2]", ...).
	Field string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ArgumentError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", ErrCodeInvalidArgument, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", ErrCodeInvalidArgument, e.Message)
}

// IsArgumentError returns true if err is, or wraps, an ArgumentError.
func IsArgumentError(err error) bool {
	var ae *ArgumentError
	return errors.As(err, &ae)
}

func argErrorf(field, format string, args ...any) *ArgumentError {
	return &ArgumentError{Field: field, Message: fmt.Sprintf(format, args...)}
}

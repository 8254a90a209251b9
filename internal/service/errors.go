package service

import (
	"errors"
	"fmt"
)

// ErrUnauthorized is returned when the caller may not perform the operation:
// a non-organizer mutating the registry, or a user touching someone else's claim.
var ErrUnauthorized = errors.New("not authorized")

// ValidationError marks malformed input. The caller fixes the input and
// retries; it is never retried automatically.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func invalidf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// internal/services/errors.go
package services

import (
	"errors"
	"strings"
)

// ValidationError carries every business-rule violation found for one request.
// Services accumulate all failures before returning, and nothing is written
// unless the list is empty, so callers never see partial writes. Handlers
// unwrap it with AsValidationError and surface the messages to the client;
// any other error is treated as an infrastructure failure.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

func NewValidationError(errs ...string) *ValidationError {
	return &ValidationError{Errors: errs}
}

func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

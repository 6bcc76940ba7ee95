package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the services and mapped to HTTP statuses at
// the handler edge.
var (
	ErrNotFound           = errors.New("not found")
	ErrDuplicateEmail     = errors.New("email already in use")
	ErrDuplicateReference = errors.New("transaction reference already exists")
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrForbidden          = errors.New("forbidden")
)

// ValidationError carries a user-facing message for malformed input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// Validation builds a ValidationError from a plain message.
func Validation(msg string) error {
	return &ValidationError{Message: msg}
}

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

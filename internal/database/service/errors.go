package service

import (
	"errors"
	"strings"

	"github.com/EgehanKilicarslan/bienesraices/internal/validation"
)

// Service errors
var (
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
	ErrUnknownAccount     = errors.New("no account registered with that email")
	ErrNotFound           = errors.New("resource not found")
	ErrForbidden          = errors.New("caller does not own this resource")
	ErrImageCleanup       = errors.New("listing deleted but its image could not be removed")
	ErrSessionRevoked     = errors.New("session has been revoked")
)

// Causes wrapped by ErrInvalidCredentials. Callers only use them to pick the message text.
var (
	ErrAccountNotFound    = errors.New("account does not exist")
	ErrAccountUnconfirmed = errors.New("account has not been confirmed")
	ErrWrongPassword      = errors.New("password is incorrect")
)

// ValidationError carries every violated input rule, keyed by form field
type ValidationError struct {
	Fields validation.Errors
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields.Messages(), "; ")
}

// newValidationError returns nil when there is nothing to report
func newValidationError(fields validation.Errors) error {
	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}

// AsValidationError unwraps a *ValidationError from err
func AsValidationError(err error) (*ValidationError, bool) {
	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return vErr, true
	}
	return nil, false
}

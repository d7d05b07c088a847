// Package common defines shared constants and sentinel errors used across
// accountd components. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"strings"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Account-flow errors. Login failures collapse "no such email" and
	// "wrong password" into one value to prevent account enumeration.
	ErrorInvalidCredentials = errors.New("incorrect email or password")
	ErrorDuplicateEmail     = errors.New("user with that email exists")
	ErrorEmailInUse         = errors.New("that email is already in use")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)

// ValidationError aggregates every violated input rule so callers see the
// full list, not just the first failure.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations, ", ")
}

// NewValidationError wraps the given rule violations.
func NewValidationError(violations ...string) *ValidationError {
	return &ValidationError{Violations: violations}
}

package errors

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidUserID          = errors.New("invalid user id")
	ErrInvalidPolicyID        = errors.New("invalid policy id")
	ErrInvalidPolicyName      = errors.New("invalid policy name")
	ErrInvalidPolicyType      = errors.New("invalid policy type")
	ErrInvalidPolicyScope     = errors.New("invalid policy scope")
	ErrSettingsTypeMismatch   = errors.New("settings payload does not match policy type")
	ErrUserNotFound           = errors.New("user not found")
	ErrOUNotFound             = errors.New("organization unit not found")
	ErrGroupNotFound          = errors.New("security group not found")
	ErrPolicyNotFound         = errors.New("policy not found")
	ErrStoreUnavailable       = errors.New("store unavailable")
	ErrIdempotencyKeyRequired = errors.New("idempotency key is required")
	ErrIdempotencyConflict    = errors.New("idempotency key conflict")
)

// ValidationError reports a malformed settings field together with what would
// have been accepted. Validation is all-or-nothing per policy; the first
// violation aborts the check.
type ValidationError struct {
	Field   string
	Allowed string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid settings field %s: allowed %s", e.Field, e.Allowed)
}

// NewValidationError builds a field-level validation failure.
func NewValidationError(field string, allowed string) *ValidationError {
	return &ValidationError{Field: field, Allowed: allowed}
}

// NewRangeError is the common numeric-bound violation.
func NewRangeError(field string, min, max int) *ValidationError {
	return &ValidationError{Field: field, Allowed: fmt.Sprintf("[%d,%d]", min, max)}
}

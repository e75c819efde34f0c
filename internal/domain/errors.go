package domain

import (
	"errors"
	"fmt"
)

// InvalidContributionError rejects a non-positive distance before any row is touched.
type InvalidContributionError struct {
	Delta int64
}

func (e *InvalidContributionError) Error() string {
	return fmt.Sprintf("invalid contribution: distance must be positive, got %d", e.Delta)
}

// ValidationError rejects a malformed request argument other than a distance.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// ConflictError reports a business-rule conflict or a constraint violation that
// could not be resolved.
type ConflictError struct {
	Reason string
	Err    error
}

func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conflict: %s: %v", e.Reason, e.Err)
	}
	return "conflict: " + e.Reason
}

func (e *ConflictError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Entity, e.ID)
}

// LockTimeoutError means waiting for a write lock exceeded the configured bound.
// Callers may retry.
type LockTimeoutError struct {
	Err error
}

func (e *LockTimeoutError) Error() string {
	return fmt.Sprintf("lock wait timeout: %v", e.Err)
}

func (e *LockTimeoutError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

func IsLockTimeout(err error) bool {
	var lt *LockTimeoutError
	return errors.As(err, &lt)
}

func IsInvalidContribution(err error) bool {
	var ic *InvalidContributionError
	return errors.As(err, &ic)
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

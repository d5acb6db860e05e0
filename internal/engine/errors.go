package engine

import (
	"errors"
	"fmt"

	"github.com/rishabhrd09/vitaltrack-sub000/internal/model"
)

// ErrorCode classifies sync failures.
type ErrorCode string

const (
	// ErrCodeValidation marks a malformed or out-of-range payload. Rejects
	// one operation, or the whole request when the envelope itself is bad.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"

	// ErrCodeNotFound marks an update whose target does not exist.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeUnauthorized fails a request before any operation runs.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// ErrCodeConflict is reserved for optimistic concurrency. Last-write-wins
	// never produces it.
	ErrCodeConflict ErrorCode = "CONFLICT"

	// ErrCodeInternal marks a storage or other unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// SyncError is a classified sync failure.
type SyncError struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Field names the offending payload field, if any.
	Field string

	// Err is the underlying cause, if any.
	Err error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, msg)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// CodeOf returns the classification of err. Unclassified errors are
// internal.
func CodeOf(err error) ErrorCode {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}

// IsValidation returns true if err is a validation error.
func IsValidation(err error) bool { return CodeOf(err) == ErrCodeValidation }

// IsNotFound returns true if err is a not-found error.
func IsNotFound(err error) bool { return CodeOf(err) == ErrCodeNotFound }

// IsUnauthorized returns true if err is an authorization error.
func IsUnauthorized(err error) bool { return CodeOf(err) == ErrCodeUnauthorized }

// IsConflict returns true if err is a conflict error.
func IsConflict(err error) bool { return CodeOf(err) == ErrCodeConflict }

// NewValidationError creates a SyncError for a rejected payload field.
func NewValidationError(field, message string) *SyncError {
	return &SyncError{Code: ErrCodeValidation, Field: field, Message: message}
}

// NewNotFoundError creates a SyncError for a missing target.
func NewNotFoundError(class model.EntityClass, ref string) *SyncError {
	return &SyncError{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %q not found", class, ref)}
}

// NewUnauthorizedError creates a SyncError for a request without a usable
// account identity.
func NewUnauthorizedError(message string) *SyncError {
	return &SyncError{Code: ErrCodeUnauthorized, Message: message}
}

// toOperationError converts err into its wire form. Internal errors carry a
// generic message; the cause is logged, not returned.
func toOperationError(err error) *model.OperationError {
	var se *SyncError
	if errors.As(err, &se) && se.Code != ErrCodeInternal {
		return &model.OperationError{Code: string(se.Code), Message: se.Message, Field: se.Field}
	}
	return &model.OperationError{Code: string(ErrCodeInternal), Message: "internal error"}
}

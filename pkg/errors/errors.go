package errors

import (
	"errors"
	"fmt"
)

// ErrorType represents different types of errors in the system
type ErrorType string

const (
	// ErrorTypeNotFound indicates a resource was not found
	ErrorTypeNotFound ErrorType = "NOT_FOUND"

	// ErrorTypeValidation indicates a validation error; never retried
	ErrorTypeValidation ErrorType = "VALIDATION"

	// ErrorTypeContention indicates a lock or slot is already taken
	ErrorTypeContention ErrorType = "CONTENTION"

	// ErrorTypeUnauthorized indicates unauthorized access
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	// ErrorTypeInternal indicates an internal error
	ErrorTypeInternal ErrorType = "INTERNAL"

	// ErrorTypeTransientExternal indicates a timeout or navigation failure
	// in the external portal; retried with backoff
	ErrorTypeTransientExternal ErrorType = "TRANSIENT_EXTERNAL"

	// ErrorTypePermanentExternal indicates the portal completed navigation
	// but the requested item could not be located; retried up to the cap
	// then dropped for manual reconciliation
	ErrorTypePermanentExternal ErrorType = "PERMANENT_EXTERNAL"

	// ErrorTypeStoreUnavailable indicates the shared store is unreachable;
	// fatal to the affected process
	ErrorTypeStoreUnavailable ErrorType = "STORE_UNAVAILABLE"
)

// AppError represents an application error
type AppError struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements the unwrap interface
func (e *AppError) Unwrap() error {
	return e.Err
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewValidationError creates a new validation error
func NewValidationError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeValidation,
		Message: message,
	}
}

// NewContentionError creates a new contention error
func NewContentionError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeContention,
		Message: message,
	}
}

// NewUnauthorizedError creates a new unauthorized error
func NewUnauthorizedError(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Message: message,
	}
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Message: message,
		Err:     err,
	}
}

// NewTransientExternalError creates a new transient external error
func NewTransientExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeTransientExternal,
		Message: message,
		Err:     err,
	}
}

// NewPermanentExternalError creates a new permanent external error
func NewPermanentExternalError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypePermanentExternal,
		Message: message,
		Err:     err,
	}
}

// NewStoreUnavailableError creates a new store unavailable error
func NewStoreUnavailableError(message string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeStoreUnavailable,
		Message: message,
		Err:     err,
	}
}

// TypeOf returns the ErrorType of err, or ErrorTypeInternal for errors
// that were not created by this package.
func TypeOf(err error) ErrorType {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Type
	}
	return ErrorTypeInternal
}

// IsRetryable reports whether an execution agent may retry the job that
// produced err. Validation and contention errors are never retried; both
// external categories are, the permanent one only up to the attempt cap.
func IsRetryable(err error) bool {
	switch TypeOf(err) {
	case ErrorTypeTransientExternal, ErrorTypePermanentExternal:
		return true
	default:
		return false
	}
}

// IsFatal reports whether err should terminate the process rather than be
// handled per job.
func IsFatal(err error) bool {
	return TypeOf(err) == ErrorTypeStoreUnavailable
}

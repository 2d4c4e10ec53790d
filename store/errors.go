package store

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies failures reported by the pattern store.
type ErrorCode string

const (
	// ErrCodeNotFound indicates the requested pattern does not exist in the store.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeConflict indicates a write was rejected because the presented
	// version token no longer matches the store's current version.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeDiscoveryFailed indicates the field-discovery collaborator failed.
	ErrCodeDiscoveryFailed ErrorCode = "DISCOVERY_FAILED"
	// ErrCodeUnavailable indicates a transient store failure.
	ErrCodeUnavailable ErrorCode = "STORE_UNAVAILABLE"
)

// StoreError is a structured error for pattern store operations.
type StoreError struct {
	Code    ErrorCode
	Status  int
	Message string
	Cause   error

	// ID is the pattern identifier the operation targeted, when known.
	ID string
	// Version is the version token presented by the caller on a conflicting
	// write. Callers use it to decide between re-fetch-and-retry and abandon.
	Version string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *StoreError) Unwrap() error {
	return e.Cause
}

// NewNotFound creates a not-found error for the given pattern id.
func NewNotFound(id string) *StoreError {
	return &StoreError{
		Code:    ErrCodeNotFound,
		Status:  http.StatusNotFound,
		Message: fmt.Sprintf("pattern not found: %s", id),
		ID:      id,
	}
}

// NewConflict creates a conflict error for a rejected write. version is the
// stale token the caller presented.
func NewConflict(id, version string) *StoreError {
	return &StoreError{
		Code:    ErrCodeConflict,
		Status:  http.StatusConflict,
		Message: fmt.Sprintf("version conflict on pattern %s: stale token %q", id, version),
		ID:      id,
		Version: version,
	}
}

// NewDiscoveryFailed creates a discovery error for the given wildcard expression.
func NewDiscoveryFailed(expression string, cause error) *StoreError {
	return &StoreError{
		Code:    ErrCodeDiscoveryFailed,
		Status:  http.StatusUnprocessableEntity,
		Message: fmt.Sprintf("field discovery failed for %q", expression),
		Cause:   cause,
	}
}

// NewUnavailable creates a transient store error.
func NewUnavailable(msg string, cause error) *StoreError {
	return &StoreError{
		Code:    ErrCodeUnavailable,
		Status:  http.StatusServiceUnavailable,
		Message: msg,
		Cause:   cause,
	}
}

// AsStoreError extracts a StoreError from err's chain.
func AsStoreError(err error) (*StoreError, bool) {
	var storeErr *StoreError
	if errors.As(err, &storeErr) {
		return storeErr, true
	}
	return nil, false
}

// IsCode checks if an error carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	if storeErr, ok := AsStoreError(err); ok {
		return storeErr.Code == code
	}
	return false
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	return IsCode(err, ErrCodeNotFound)
}

// IsConflict reports whether err is a version conflict.
func IsConflict(err error) bool {
	return IsCode(err, ErrCodeConflict)
}

// IsDiscoveryFailed reports whether err is a field discovery failure.
func IsDiscoveryFailed(err error) bool {
	return IsCode(err, ErrCodeDiscoveryFailed)
}

package models

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound indicates a referenced trip, user or place does not exist
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated indicates a mutation without a resolvable viewer
	ErrUnauthenticated = errors.New("authentication required")

	// ErrForbidden indicates the viewer does not own the resource
	ErrForbidden = errors.New("forbidden")

	// ErrValidationFailed is the kind every *ValidationError unwraps to
	ErrValidationFailed = errors.New("validation failed")

	// ErrConcurrencyConflict indicates a racing write the store refused.
	// Transient: the caller may retry.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrStoreUnavailable indicates the entity store could not serve the request
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError carries field-level detail for a rejected input
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError builds a ValidationError for a single field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// ErrorKind names the taxonomy bucket of err for structured responses
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrUnauthenticated):
		return "Unauthenticated"
	case errors.Is(err, ErrForbidden):
		return "Forbidden"
	case errors.Is(err, ErrValidationFailed):
		return "ValidationFailed"
	case errors.Is(err, ErrConcurrencyConflict):
		return "ConcurrencyConflict"
	case errors.Is(err, ErrStoreUnavailable):
		return "StoreUnavailable"
	default:
		return "Internal"
	}
}

// Package apperr holds the error taxonomy shared by the policy, the services
// and the HTTP layer.
package apperr

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound covers both missing rows and rows the actor may not learn about.
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthenticated = errors.New("authentication required")
	ErrConflict        = errors.New("conflicting update")
	ErrDuplicate       = errors.New("duplicate value")
)

// ValidationError carries one message per offending field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// First returns the message of the alphabetically first field, used as the
// summary line of an error response.
func (e *ValidationError) First() string {
	best := ""
	for k := range e.Fields {
		if best == "" || k < best {
			best = k
		}
	}
	if best == "" {
		return "The given data was invalid"
	}
	return e.Fields[best]
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// IsValidation reports whether err wraps a *ValidationError and returns it.
func IsValidation(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

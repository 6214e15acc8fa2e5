package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a catalog item identifier is unknown
	ErrNotFound = errors.New("catalog item not found")

	// ErrInvalidProfile is returned when a user profile fails validation before scoring
	ErrInvalidProfile = errors.New("invalid user profile")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCatalogLoad is returned for a malformed catalog record
	ErrCatalogLoad = errors.New("catalog record rejected")

	// ErrDuplicateID is returned when two catalog records share an identifier
	ErrDuplicateID = errors.New("duplicate catalog identifier")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrResearchUnavailable is returned when the research service cannot be reached
	ErrResearchUnavailable = errors.New("research service unavailable")

	// ErrRateLimited is returned when rate limit is exceeded
	ErrRateLimited = errors.New("rate limit exceeded")
)

// FieldError names the field that violated a validation rule.
// Kind is one of the sentinel errors above and is what errors.Is matches.
type FieldError struct {
	Kind   error
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%v: %s: %s", e.Kind, e.Field, e.Reason)
}

func (e *FieldError) Unwrap() error {
	return e.Kind
}

// NewProfileError builds a FieldError for an invalid user profile
func NewProfileError(field, reason string) *FieldError {
	return &FieldError{Kind: ErrInvalidProfile, Field: field, Reason: reason}
}

// NotFoundError lists every identifier that could not be resolved
type NotFoundError struct {
	IDs []string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%v: %s", ErrNotFound, strings.Join(e.IDs, ", "))
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// CatalogLoadError describes one rejected catalog record.
// Loading continues past it; the caller receives all rejections at the end.
type CatalogLoadError struct {
	Index  int
	ID     string
	Field  string
	Reason string
	Err    error
}

func (e *CatalogLoadError) Error() string {
	id := e.ID
	if id == "" {
		id = "<unknown>"
	}
	return fmt.Sprintf("%v: record %d (%s): %s: %s", ErrCatalogLoad, e.Index, id, e.Field, e.Reason)
}

func (e *CatalogLoadError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrCatalogLoad, e.Err}
	}
	return []error{ErrCatalogLoad}
}

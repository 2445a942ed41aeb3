package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is() matching across layers.
//
// ErrNotFound is a store-layer outcome: repositories translate it into a nil
// result for lookups and deletes, so callers never see it as an error from
// the public repository surface.
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrValidation = errors.New("validation failed")
)

// ValidationError indicates an entity failed validation. It is raised before
// any store interaction takes place.
type ValidationError struct {
	Entity  string // entity kind (project, user)
	Message string // human-readable rule failure(s)
	Err     error  // underlying rule error, if any
}

// NewValidationError wraps a rule failure for the given entity kind.
func NewValidationError(entity string, err error) *ValidationError {
	return &ValidationError{
		Entity:  entity,
		Message: fmt.Sprintf("invalid %s: %v", entity, err),
		Err:     err,
	}
}

// Error implements the error interface
func (e *ValidationError) Error() string { return e.Message }

// Unwrap exposes the underlying rule error
func (e *ValidationError) Unwrap() error { return e.Err }

// Is allows errors.Is() to match against ErrValidation
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// ConflictError represents a resource conflict with details about the
// existing resource. The store surfaces it unchanged on create, so callers
// can distinguish "name taken" from invalid input.
type ConflictError struct {
	Message      string // Human-readable error message
	ResourceType string // Type of resource (project, user)
	ResourceID   string // ID or name of the existing/conflicting resource
}

// Error implements the error interface
func (e *ConflictError) Error() string { return e.Message }

// Is allows errors.Is() to match against ErrConflict
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors - use with errors.Is()
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("already exists")
	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrTransient    = errors.New("temporarily unavailable")
)

// OwnershipError is returned when the acting user has no rights over a board
// or one of its blocks. It is a security boundary and is always surfaced.
type OwnershipError struct {
	UserID       string
	ResourceType string
	ResourceID   string
}

func (e *OwnershipError) Error() string {
	return fmt.Sprintf("user %s does not own %s %s", e.UserID, e.ResourceType, e.ResourceID)
}

// Is allows errors.Is() to match against ErrForbidden
func (e *OwnershipError) Is(target error) bool {
	return target == ErrForbidden
}

// SelfLoopError is returned when a connection would link a block to itself.
type SelfLoopError struct {
	BlockID string
}

func (e *SelfLoopError) Error() string {
	return fmt.Sprintf("block %s cannot be connected to itself", e.BlockID)
}

// Is allows errors.Is() to match against ErrValidation
func (e *SelfLoopError) Is(target error) bool {
	return target == ErrValidation
}

// TransientFetchError wraps a store failure that is expected to heal on its own.
type TransientFetchError struct {
	Op  string
	Err error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// Is allows errors.Is() to match against ErrTransient
func (e *TransientFetchError) Is(target error) bool {
	return target == ErrTransient
}

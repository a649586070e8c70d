package metadata

import (
	"errors"
	"fmt"
)

// StoreError is a domain error from a metadata driver. Drivers translate
// backend failures (missing rows, constraint violations, connection errors)
// into these codes; the HTTP layer maps the codes onto response statuses.
type StoreError struct {
	// Code is the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Detail identifies the entity involved (vault ID, block ID, ...).
	Detail string
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.Detail != "" {
		return e.Message + ": " + e.Detail
	}
	return e.Message
}

// ErrorCode categorizes a metadata store error.
type ErrorCode int

const (
	// ErrNotFound indicates the vault, block or file does not exist.
	ErrNotFound ErrorCode = iota

	// ErrAlreadyExists indicates a record with the same key exists.
	ErrAlreadyExists

	// ErrConstraint indicates the operation would violate an invariant:
	// unregistering a referenced block, assigning to a finalized file,
	// finalizing twice.
	ErrConstraint

	// ErrInvalidArgument indicates malformed parameters.
	ErrInvalidArgument

	// ErrIOError indicates the backend failed to read or write.
	ErrIOError

	// ErrUnavailable indicates the backend is temporarily unreachable.
	ErrUnavailable
)

// NewNotFoundError creates a StoreError for a missing entity.
func NewNotFoundError(entity, id string) *StoreError {
	return &StoreError{
		Code:    ErrNotFound,
		Message: entity + " not found",
		Detail:  id,
	}
}

// NewAlreadyExistsError creates a StoreError for a duplicate key.
func NewAlreadyExistsError(entity, id string) *StoreError {
	return &StoreError{
		Code:    ErrAlreadyExists,
		Message: entity + " already exists",
		Detail:  id,
	}
}

// NewConstraintError creates a StoreError for an invariant violation.
func NewConstraintError(message, detail string) *StoreError {
	return &StoreError{
		Code:    ErrConstraint,
		Message: message,
		Detail:  detail,
	}
}

// NewInvalidArgumentError creates a StoreError for malformed input.
func NewInvalidArgumentError(message, detail string) *StoreError {
	return &StoreError{
		Code:    ErrInvalidArgument,
		Message: message,
		Detail:  detail,
	}
}

// NewIOError wraps a backend read/write failure.
func NewIOError(message string, err error) *StoreError {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &StoreError{
		Code:    ErrIOError,
		Message: message,
		Detail:  detail,
	}
}

// NewUnavailableError creates a StoreError for a transiently unreachable backend.
func NewUnavailableError(message string, err error) *StoreError {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	return &StoreError{
		Code:    ErrUnavailable,
		Message: message,
		Detail:  detail,
	}
}

// HasCode reports whether err is a *StoreError with the given code.
func HasCode(err error, code ErrorCode) bool {
	var se *StoreError
	if errors.As(err, &se) {
		return se.Code == code
	}
	return false
}

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool {
	return HasCode(err, ErrNotFound)
}

// IsConstraint reports whether err indicates an invariant violation.
func IsConstraint(err error) bool {
	return HasCode(err, ErrConstraint)
}

// GapError reports a hole in a file's block tiling discovered at
// finalization: no block covers bytes [Start, End).
type GapError struct {
	Start int64
	End   int64
}

// Error implements the error interface.
func (e *GapError) Error() string {
	return fmt.Sprintf("file has a gap at bytes [%d, %d)", e.Start, e.End)
}

// OverlapError reports a double-covered byte range discovered at
// finalization: BlockID covers bytes [Start, End) that are already covered.
type OverlapError struct {
	BlockID string
	Start   int64
	End     int64
}

// Error implements the error interface.
func (e *OverlapError) Error() string {
	return fmt.Sprintf("block %s overlaps bytes [%d, %d)", e.BlockID, e.Start, e.End)
}

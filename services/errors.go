package services

import (
	"errors"
	"fmt"

	"github.com/monitoria-simple/repositories"
)

// ErrorKind classifies business errors for the API boundary
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindNotFound         ErrorKind = "not_found"
	KindForbidden        ErrorKind = "forbidden"
	KindStateTransition  ErrorKind = "state_transition"
	KindCapacityExceeded ErrorKind = "capacity_exceeded"
	KindConflict         ErrorKind = "conflict"
	KindInternal         ErrorKind = "internal"
)

// Error is the error type returned by every service operation
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// ValidationError reports malformed or missing input
func ValidationError(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// NotFoundError reports a missing entity
func NotFoundError(entity, id string) *Error {
	return newError(KindNotFound, "%s %s not found", entity, id)
}

// ForbiddenError reports a role or ownership violation
func ForbiddenError(format string, args ...interface{}) *Error {
	return newError(KindForbidden, format, args...)
}

// StateTransitionError reports an illegal status change
func StateTransitionError(format string, args ...interface{}) *Error {
	return newError(KindStateTransition, format, args...)
}

// CapacityExceededError reports a grant or selection beyond capacity
func CapacityExceededError(format string, args ...interface{}) *Error {
	return newError(KindCapacityExceeded, format, args...)
}

// ConflictError reports a duplicate or already-finalized resource
func ConflictError(format string, args ...interface{}) *Error {
	return newError(KindConflict, format, args...)
}

// InternalError wraps an unexpected failure
func InternalError(err error, format string, args ...interface{}) *Error {
	e := newError(KindInternal, format, args...)
	e.Err = err
	return e
}

// KindOf returns the kind of err, internal for foreign errors
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindInternal
}

// IsKind reports whether err is a service error of kind
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// storeError translates repository failures. Service errors pass through
// so that they survive a rolled back transaction unchanged.
func storeError(err error, entity, id string) error {
	if err == nil {
		return nil
	}
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return err
	}
	switch {
	case errors.Is(err, repositories.ErrNotFound):
		return NotFoundError(entity, id)
	case errors.Is(err, repositories.ErrDuplicate):
		return ConflictError("%s %s already exists", entity, id)
	}
	return InternalError(err, "failed to access %s", entity)
}

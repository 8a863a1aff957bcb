package service

import (
	"errors"
	"fmt"
	"strings"
)

// The error taxonomy of the onboarding core. Every operation either returns
// a populated result or exactly one of these; there is no silent failure path.

// ValidationError reports malformed input. It is always recoverable by the
// caller correcting the input, and it is detected before any write.
type ValidationError struct {
	Fields []string // names of the missing or invalid fields
	Reason string
}

func (e *ValidationError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("validation failed: %s (fields: %s)", e.Reason, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("validation failed: %s", e.Reason)
}

// NotFoundError reports that a referenced workflow, phase, item or instance is absent.
type NotFoundError struct {
	Resource string // e.g. "workflow", "phase"
	Ref      string // the identifier that was looked up
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.Ref)
}

// ConflictError reports a uniqueness violation such as a duplicate slug,
// phase number or an already-assigned workflow instance.
type ConflictError struct {
	Resource string
	Ref      string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %s already exists", e.Resource, e.Ref)
}

// StoreError wraps an underlying persistence failure. It is not classified
// further at this layer and is never retried internally.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store operation %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsConflict reports whether err is (or wraps) a ConflictError.
func IsConflict(err error) bool {
	var c *ConflictError
	return errors.As(err, &c)
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

package application

import (
	"errors"
	"fmt"
	"strings"

	"github.com/example/training-erp/internal/persistence"
	"github.com/example/training-erp/internal/scheduler"
)

// ErrNotFound is returned when the referenced deal, session or resource does not exist.
var ErrNotFound = errors.New("application: not found")

// ValidationError captures field level validation issues that callers can surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	if len(v.FieldErrors) == 1 {
		for field, msg := range v.FieldErrors {
			return fmt.Sprintf("validation failed: %s: %s", field, msg)
		}
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error. The first message for a field wins.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	if _, exists := v.FieldErrors[field]; exists {
		return
	}
	v.FieldErrors[field] = message
}

// merge copies entries from another validation error into the receiver.
func (v *ValidationError) merge(other *ValidationError) {
	if other == nil || len(other.FieldErrors) == 0 {
		return
	}
	for field, msg := range other.FieldErrors {
		v.add(field, msg)
	}
}

func newValidationError(field, message string) *ValidationError {
	vErr := &ValidationError{}
	vErr.add(field, message)
	return vErr
}

// ConflictError reports resources already committed to overlapping active
// sessions. Summary is a sentence built from the first conflict.
type ConflictError struct {
	Conflicts []scheduler.Conflict
	Summary   string
}

// Error implements the error interface.
func (c *ConflictError) Error() string {
	if c == nil {
		return ""
	}
	if c.Summary != "" {
		return c.Summary
	}
	return "resource conflict"
}

// NotFoundError reports a missing deal, session or resource. It matches
// ErrNotFound with errors.Is; Err keeps the underlying cause for logs.
type NotFoundError struct {
	Entity string
	Err    error
}

// Error implements the error interface.
func (n *NotFoundError) Error() string {
	if n.Err == nil {
		return n.Message()
	}
	return fmt.Sprintf("%s: %v", n.Message(), n.Err)
}

// Message is the client-facing text, free of internal detail.
func (n *NotFoundError) Message() string {
	if n.Entity == "" {
		return "not found"
	}
	return n.Entity + " not found"
}

// Is makes NotFoundError match ErrNotFound.
func (n *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// Unwrap returns the underlying cause.
func (n *NotFoundError) Unwrap() error {
	return n.Err
}

// mapRepoError translates persistence sentinels. field names the input the
// caller should fix when a constraint rejects the write.
func mapRepoError(err error, field string) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return err
	case errors.Is(err, persistence.ErrNotFound):
		return &NotFoundError{Entity: strings.TrimSuffix(field, "_id"), Err: err}
	case errors.Is(err, persistence.ErrDuplicate):
		return newValidationError(field, "already exists")
	case errors.Is(err, persistence.ErrForeignKeyViolation):
		return newValidationError(field, "references a record that does not exist")
	case errors.Is(err, persistence.ErrConstraintViolation):
		return newValidationError(field, "violates a data constraint")
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, persistence.ErrNotFound)
}

func joinIDs(ids []string) string {
	return strings.Join(ids, ", ")
}

package application

import (
	"errors"
	"fmt"
	"testing"

	"github.com/example/training-erp/internal/persistence"
)

func TestValidationError_Error(t *testing.T) {
	t.Parallel()

	var err *ValidationError
	if err.Error() != "" {
		t.Fatalf("expected empty string for nil error, got %q", err.Error())
	}

	empty := &ValidationError{}
	if got := empty.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for empty error, got %q", got)
	}

	withField := &ValidationError{FieldErrors: map[string]string{"field": "invalid"}}
	if got := withField.Error(); got != "validation failed: field: invalid" {
		t.Fatalf("expected field in message for single error, got %q", got)
	}

	withFields := &ValidationError{FieldErrors: map[string]string{"a": "invalid", "b": "invalid"}}
	if got := withFields.Error(); got != "validation failed" {
		t.Fatalf("expected generic message for several errors, got %q", got)
	}
}

func TestValidationError_HasErrors(t *testing.T) {
	t.Parallel()

	if err := (&ValidationError{}).HasErrors(); err {
		t.Fatalf("expected HasErrors to report false for empty error")
	}

	if err := (&ValidationError{FieldErrors: map[string]string{"field": "bad"}}).HasErrors(); !err {
		t.Fatalf("expected HasErrors to report true when fields are present")
	}
}

func TestValidationError_AddAndMerge(t *testing.T) {
	t.Parallel()

	base := &ValidationError{}
	base.add("first", "value")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected add to populate map, got %q", got)
	}

	other := &ValidationError{FieldErrors: map[string]string{"second": "another"}}
	base.merge(other)
	if got := base.FieldErrors["second"]; got != "another" {
		t.Fatalf("expected merge to copy field, got %q", got)
	}

	base.merge(nil)
	if len(base.FieldErrors) != 2 {
		t.Fatalf("expected merge with nil to leave fields unchanged")
	}

	base.add("first", "overwritten")
	if got := base.FieldErrors["first"]; got != "value" {
		t.Fatalf("expected first message to win, got %q", got)
	}
}

func TestConflictError_Error(t *testing.T) {
	t.Parallel()

	var nilErr *ConflictError
	if nilErr.Error() != "" {
		t.Fatalf("expected empty string for nil error")
	}
	if got := (&ConflictError{}).Error(); got != "resource conflict" {
		t.Fatalf("expected generic message, got %q", got)
	}
	if got := (&ConflictError{Summary: "El aula A ya está ocupada."}).Error(); got != "El aula A ya está ocupada." {
		t.Fatalf("expected summary, got %q", got)
	}
}

func TestMapRepoError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{name: "nil", err: nil, check: func(err error) bool { return err == nil }},
		{name: "not found", err: fmt.Errorf("load: %w", persistence.ErrNotFound), check: func(err error) bool { return errors.Is(err, ErrNotFound) }},
		{name: "duplicate", err: persistence.ErrDuplicate, check: func(err error) bool {
			var vErr *ValidationError
			return errors.As(err, &vErr) && vErr.FieldErrors["name"] == "already exists"
		}},
		{name: "foreign key", err: persistence.ErrForeignKeyViolation, check: func(err error) bool {
			var vErr *ValidationError
			return errors.As(err, &vErr) && vErr.FieldErrors["name"] != ""
		}},
		{name: "other", err: errors.New("disk full"), check: func(err error) bool { return ErrorKind(err) == "unexpected" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := mapRepoError(tc.err, "name"); !tc.check(got) {
				t.Fatalf("unexpected mapping: %v", got)
			}
		})
	}
}

func TestNotFoundError(t *testing.T) {
	t.Parallel()

	cause := fmt.Errorf("load deal crm-9: %w", persistence.ErrNotFound)
	err := mapRepoError(cause, "deal_id")

	var nErr *NotFoundError
	if !errors.As(err, &nErr) {
		t.Fatalf("expected NotFoundError, got %T", err)
	}
	if got := nErr.Message(); got != "deal not found" {
		t.Fatalf("unexpected message %q", got)
	}
	if !errors.Is(err, ErrNotFound) || !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected both sentinels to match: %v", err)
	}
	if ErrorKind(err) != "not_found" {
		t.Fatalf("unexpected kind %q", ErrorKind(err))
	}
	if got := (&NotFoundError{}).Message(); got != "not found" {
		t.Fatalf("unexpected default message %q", got)
	}
}

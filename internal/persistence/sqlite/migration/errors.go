package migration

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMigrationFailed      = errors.New("migration execution failed")
	ErrInvalidMigrationFile = errors.New("invalid migration file")
	ErrVersionConflict      = errors.New("migration version conflict")
	ErrDuplicateVersion     = errors.New("duplicate migration version")
	// ErrChecksumMismatch means an applied migration file was edited afterwards.
	ErrChecksumMismatch = errors.New("migration checksum mismatch")
	// ErrDatabase marks failures reported by the database rather than by a file.
	ErrDatabase = errors.New("migration database error")
)

// MigrationError records the migration and the step that failed.
type MigrationError struct {
	Version string
	File    string
	Step    string
	Err     error
}

func (e *MigrationError) Error() string {
	var b strings.Builder
	b.WriteString("migration")
	if e.Version != "" {
		b.WriteString(" " + e.Version)
	}
	if e.File != "" {
		fmt.Fprintf(&b, " (%s)", e.File)
	}
	fmt.Fprintf(&b, ": %s: %v", e.Step, e.Err)
	return b.String()
}

func (e *MigrationError) Unwrap() error {
	return e.Err
}

// fileError reports a problem with a migration file.
func fileError(version, file, step string, err error) *MigrationError {
	return &MigrationError{Version: version, File: file, Step: step, Err: err}
}

// dbError reports a database failure while applying or inspecting migrations.
func dbError(version, step string, err error) *MigrationError {
	return &MigrationError{Version: version, Step: step, Err: fmt.Errorf("%w: %w", ErrDatabase, err)}
}

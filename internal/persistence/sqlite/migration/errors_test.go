package migration

import (
	"errors"
	"testing"
)

func TestMigrationErrorMessages(t *testing.T) {
	t.Parallel()

	cause := errors.New("disk I/O error")
	tests := []struct {
		name string
		err  *MigrationError
		want string
		is   error
	}{
		{
			name: "file error",
			err:  fileError("002", "002_sessions.sql", "read file", cause),
			want: "migration 002 (002_sessions.sql): read file: disk I/O error",
			is:   cause,
		},
		{
			name: "database error without version",
			err:  dbError("", "create schema_migrations table", cause),
			want: "migration: create schema_migrations table: migration database error: disk I/O error",
			is:   ErrDatabase,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.err.Error(); got != tc.want {
				t.Fatalf("Error() = %q, want %q", got, tc.want)
			}
			if !errors.Is(tc.err, tc.is) {
				t.Fatalf("expected errors.Is(%v)", tc.is)
			}
		})
	}
}

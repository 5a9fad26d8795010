package migration

import (
	"errors"
	"testing"
	"testing/fstest"
)

func TestFSScanner_ScanMigrations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name          string
		files         map[string]string
		expectedOrder []string
		expectedErr   error
	}{
		{
			name: "sorted numerically",
			files: map[string]string{
				"migrations/010_add_indexes.sql":    "CREATE INDEX idx_deals_title ON deals(title);",
				"migrations/002_add_rooms.sql":      "CREATE TABLE rooms (id TEXT PRIMARY KEY);",
				"migrations/001_initial_schema.sql": "CREATE TABLE deals (id TEXT PRIMARY KEY);",
			},
			expectedOrder: []string{"001", "002", "010"},
		},
		{
			name: "non-SQL files ignored",
			files: map[string]string{
				"migrations/001_initial_schema.sql": "CREATE TABLE deals (id TEXT PRIMARY KEY);",
				"migrations/README.md":              "# notes",
			},
			expectedOrder: []string{"001"},
		},
		{
			name: "invalid file name",
			files: map[string]string{
				"migrations/initial.sql": "CREATE TABLE deals (id TEXT PRIMARY KEY);",
			},
			expectedErr: ErrInvalidMigrationFile,
		},
		{
			name: "comment-only file",
			files: map[string]string{
				"migrations/001_empty.sql": "-- nothing here\n",
			},
			expectedErr: ErrInvalidMigrationFile,
		},
		{
			name: "duplicate version",
			files: map[string]string{
				"migrations/001_first.sql":  "CREATE TABLE a (id TEXT);",
				"migrations/0001_again.sql": "CREATE TABLE b (id TEXT);",
			},
			expectedErr: ErrDuplicateVersion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fsys := fstest.MapFS{}
			for name, content := range tt.files {
				fsys[name] = &fstest.MapFile{Data: []byte(content)}
			}

			migrations, err := NewFSScanner(fsys, "migrations").ScanMigrations()
			if tt.expectedErr != nil {
				if !errors.Is(err, tt.expectedErr) {
					t.Fatalf("expected %v, got %v", tt.expectedErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(migrations) != len(tt.expectedOrder) {
				t.Fatalf("expected %d migrations, got %d", len(tt.expectedOrder), len(migrations))
			}
			for i, version := range tt.expectedOrder {
				if migrations[i].Version != version {
					t.Errorf("position %d: expected version %s, got %s", i, version, migrations[i].Version)
				}
				if migrations[i].Checksum == "" {
					t.Errorf("migration %s has no checksum", version)
				}
			}
		})
	}
}

func TestFSScanner_Description(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"m/001_initial_schema.sql": {Data: []byte("-- Description: Deals and sessions\nCREATE TABLE deals (id TEXT);")},
		"m/002_add_rooms.sql":      {Data: []byte("CREATE TABLE rooms (id TEXT);")},
	}

	migrations, err := NewFSScanner(fsys, "m").ScanMigrations()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := migrations[0].Description; got != "Deals and sessions" {
		t.Errorf("expected description from header, got %q", got)
	}
	if got := migrations[1].Description; got != "add rooms" {
		t.Errorf("expected description from file name, got %q", got)
	}
}

func TestFSScanner_MissingDirectory(t *testing.T) {
	t.Parallel()

	_, err := NewFSScanner(fstest.MapFS{}, "missing").ScanMigrations()
	var migrationErr *MigrationError
	if !errors.As(err, &migrationErr) {
		t.Fatalf("expected MigrationError, got %v", err)
	}
}

func TestSplitStatements(t *testing.T) {
	t.Parallel()

	content := `
-- Description: test
CREATE TABLE a (id TEXT);

-- second
CREATE INDEX idx_a ON a(id);
`
	statements := splitStatements(content)
	if len(statements) != 2 {
		t.Fatalf("expected 2 statements, got %d: %q", len(statements), statements)
	}
	if statements[1] != "CREATE INDEX idx_a ON a(id)" {
		t.Errorf("unexpected statement %q", statements[1])
	}
}

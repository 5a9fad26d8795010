package migration

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestSQLiteConfig_DSN(t *testing.T) {
	t.Parallel()

	cfg := DefaultSQLiteConfig("data/erp.db")
	cfg.BusyTimeout = 2 * time.Second

	dsn := cfg.DSN()
	if !strings.HasPrefix(dsn, "file:data/erp.db?") {
		t.Fatalf("unexpected DSN prefix: %s", dsn)
	}

	query, err := url.ParseQuery(dsn[strings.Index(dsn, "?")+1:])
	if err != nil {
		t.Fatalf("parse DSN query: %v", err)
	}

	pragmas := strings.Join(query["_pragma"], ",")
	for _, want := range []string{"foreign_keys(1)", "busy_timeout(2000)", "journal_mode(WAL)", "synchronous(NORMAL)"} {
		if !strings.Contains(pragmas, want) {
			t.Errorf("expected pragma %s in %s", want, pragmas)
		}
	}
	if query.Get("_txlock") != "immediate" {
		t.Errorf("expected immediate transactions, got %q", query.Get("_txlock"))
	}
}

func TestSQLiteConfig_DSNKeepsExistingQuery(t *testing.T) {
	t.Parallel()

	cfg := DefaultSQLiteConfig("file:erp.db?mode=rwc")
	if dsn := cfg.DSN(); !strings.HasPrefix(dsn, "file:erp.db?mode=rwc&") {
		t.Fatalf("unexpected DSN: %s", dsn)
	}
}

func TestSQLiteConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*SQLiteConfig)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*SQLiteConfig) {}},
		{name: "lowercase journal mode", mutate: func(c *SQLiteConfig) { c.JournalMode = "wal" }},
		{name: "empty path", mutate: func(c *SQLiteConfig) { c.Path = " " }, wantErr: true},
		{name: "negative timeout", mutate: func(c *SQLiteConfig) { c.BusyTimeout = -time.Second }, wantErr: true},
		{name: "bad journal mode", mutate: func(c *SQLiteConfig) { c.JournalMode = "FAST" }, wantErr: true},
		{name: "bad synchronous", mutate: func(c *SQLiteConfig) { c.Synchronous = "SOMETIMES" }, wantErr: true},
		{name: "negative pool", mutate: func(c *SQLiteConfig) { c.MaxOpenConns = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := DefaultSQLiteConfig("erp.db")
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestOpenDB_CreatesDirectoryAndEnforcesForeignKeys(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "dir", "erp.db")

	db, err := OpenDB(ctx, DefaultSQLiteConfig(path))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	defer db.Close()

	var enabled int
	if err := db.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&enabled); err != nil {
		t.Fatalf("query pragma: %v", err)
	}
	if enabled != 1 {
		t.Fatalf("expected foreign keys on, got %d", enabled)
	}
}

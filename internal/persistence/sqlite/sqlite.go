package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/example/training-erp/internal/persistence"
	"github.com/example/training-erp/internal/persistence/sqlite/migration"
	"github.com/example/training-erp/internal/persistence/sqlite/migrations"
)

// timeLayout is fixed width in UTC so stored timestamps compare correctly as text
const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Store implements persistence.Store on a SQLite database
type Store struct {
	*queries
	pool   *ConnectionPool
	retry  *RetryHelper
	logger *slog.Logger
}

var _ persistence.Store = (*Store)(nil)

// queries binds every repository to one handle, the pool or a transaction
type queries struct {
	*DealRepository
	*ResourceRepository
	*SessionRepository
	*OverlapRepository
}

func newQueries(db dbtx) *queries {
	mapper := NewErrorMapper()
	return &queries{
		DealRepository:     &DealRepository{db: db, mapper: mapper},
		ResourceRepository: &ResourceRepository{db: db, mapper: mapper},
		SessionRepository:  &SessionRepository{db: db, mapper: mapper},
		OverlapRepository:  &OverlapRepository{db: db, mapper: mapper},
	}
}

// Open connects to the database. Call Migrate before serving requests.
func Open(ctx context.Context, config migration.SQLiteConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	pool, err := NewConnectionPool(ctx, config)
	if err != nil {
		return nil, err
	}

	return &Store{
		queries: newQueries(pool.DB()),
		pool:    pool,
		retry:   NewRetryHelper(DefaultRetryConfig()),
		logger:  logger,
	}, nil
}

// Migrate applies the embedded schema migrations
func (s *Store) Migrate(ctx context.Context) error {
	manager := migration.NewManager(
		migration.NewFSScanner(migrations.FS, "."),
		migration.NewSQLiteExecutor(s.pool.DB()),
		s.logger,
	)

	applied, err := manager.RunMigrations(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if applied > 0 {
		s.logger.InfoContext(ctx, "database migrated", slog.Int("applied", applied))
	}
	return nil
}

// WithinTx runs fn inside one immediate write transaction, retrying the whole
// unit when SQLite reports the database busy.
func (s *Store) WithinTx(ctx context.Context, fn func(q persistence.Queries) error) error {
	return s.retry.WithRetry(ctx, func() error {
		return s.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
			return fn(newQueries(tx))
		})
	})
}

// Ping checks database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases the connection pool
func (s *Store) Close() error {
	return s.pool.Close()
}

// atomically runs fn in a transaction unless db already is one
func atomically(ctx context.Context, db dbtx, fn func(tx dbtx) error) error {
	conn, ok := db.(*sql.DB)
	if !ok {
		return fn(db)
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func formatNullTime(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored time %q: %w", value, err)
	}
	return t.UTC(), nil
}

func parseNullTime(value sql.NullString) (*time.Time, error) {
	if !value.Valid {
		return nil, nil
	}
	t, err := parseTime(value.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func stringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	s := value.String
	return &s
}

// inClause returns "?, ?, ?" and the matching arguments
func inClause(ids []string) (string, []interface{}) {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", "), args
}

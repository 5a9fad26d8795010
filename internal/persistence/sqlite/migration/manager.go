package migration

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
)

// Manager applies pending migrations in version order
type Manager struct {
	scanner  Scanner
	executor Executor
	logger   *slog.Logger
}

// NewManager creates a migration manager. A nil logger discards output.
func NewManager(scanner Scanner, executor Executor, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Manager{
		scanner:  scanner,
		executor: executor,
		logger:   logger.With("component", "migration"),
	}
}

// RunMigrations executes all pending migrations in sequential order and
// returns how many were applied.
func (m *Manager) RunMigrations(ctx context.Context) (int, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return 0, fmt.Errorf("initialize version table: %w", err)
	}

	pending, err := m.PendingMigrations(ctx)
	if err != nil {
		return 0, err
	}
	if len(pending) == 0 {
		m.logger.DebugContext(ctx, "schema up to date")
		return 0, nil
	}

	for i, migration := range pending {
		elapsed, err := m.executor.ExecuteMigration(ctx, migration)
		if err != nil {
			m.logger.ErrorContext(ctx, "migration failed",
				slog.String("version", migration.Version),
				slog.String("file", migration.FilePath),
				slog.Any("error", err),
			)
			return i, fileError(migration.Version, migration.FilePath, "execute migration",
				fmt.Errorf("%w: %w", ErrMigrationFailed, err))
		}

		m.logger.InfoContext(ctx, "migration applied",
			slog.String("version", migration.Version),
			slog.String("description", migration.Description),
			slog.Duration("elapsed", elapsed),
		)
	}

	return len(pending), nil
}

// PendingMigrations returns the migrations that have not been applied yet.
// Applied migrations whose file changed or disappeared are reported as errors.
func (m *Manager) PendingMigrations(ctx context.Context) ([]Migration, error) {
	available, err := m.scanner.ScanMigrations()
	if err != nil {
		return nil, fmt.Errorf("scan migrations: %w", err)
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return nil, fmt.Errorf("get applied versions: %w", err)
	}

	if err := validateSequence(available); err != nil {
		return nil, err
	}

	byVersion := make(map[string]Migration, len(available))
	for _, migration := range available {
		byVersion[migration.Version] = migration
	}

	appliedSet := make(map[string]bool, len(applied))
	for _, record := range applied {
		migration, ok := byVersion[record.Version]
		if !ok {
			return nil, fmt.Errorf("%w: applied migration %s has no file", ErrVersionConflict, record.Version)
		}
		if record.Checksum != "" && record.Checksum != migration.Checksum {
			return nil, fileError(record.Version, migration.FilePath, "verify checksum", ErrChecksumMismatch)
		}
		appliedSet[record.Version] = true
	}

	var pending []Migration
	for _, migration := range available {
		if !appliedSet[migration.Version] {
			pending = append(pending, migration)
		}
	}
	return pending, nil
}

// Status reports the applied and pending migrations
func (m *Manager) Status(ctx context.Context) (MigrationStatus, error) {
	if err := m.executor.InitializeVersionTable(ctx); err != nil {
		return MigrationStatus{}, fmt.Errorf("initialize version table: %w", err)
	}

	applied, err := m.executor.GetAppliedVersions(ctx)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("get applied versions: %w", err)
	}
	pending, err := m.PendingMigrations(ctx)
	if err != nil {
		return MigrationStatus{}, err
	}

	status := MigrationStatus{
		PendingCount:      len(pending),
		AppliedMigrations: applied,
		PendingMigrations: pending,
	}
	highest := -1
	for _, record := range applied {
		if v, err := strconv.Atoi(record.Version); err == nil && v > highest {
			highest = v
			status.CurrentVersion = record.Version
		}
	}
	return status, nil
}

// validateSequence ensures there are no gaps in migration version numbers.
// Migrations arrive sorted from the scanner.
func validateSequence(migrations []Migration) error {
	for i := 1; i < len(migrations); i++ {
		prev, _ := strconv.Atoi(migrations[i-1].Version)
		curr, _ := strconv.Atoi(migrations[i].Version)
		if curr != prev+1 {
			return fmt.Errorf("%w: missing migration version %03d in sequence", ErrVersionConflict, prev+1)
		}
	}
	return nil
}

package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/training-erp/internal/persistence"
	"github.com/example/training-erp/internal/persistence/sqlite"
	"github.com/example/training-erp/internal/persistence/sqlite/migration"
)

// SQLiteHarness provides a migrated store on a temporary database file plus
// helpers that seed it.
type SQLiteHarness struct {
	Store *sqlite.Store

	tb      testing.TB
	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness using a temporary file that is
// migrated automatically. The store is closed when the test ends.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	ctx := context.Background()
	path := filepath.Join(tb.TempDir(), "training-erp.db")

	store, err := sqlite.Open(ctx, migration.DefaultSQLiteConfig(path), nil)
	if err != nil {
		tb.Fatalf("failed to open store: %v", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate store: %v", err)
	}

	harness := &SQLiteHarness{
		Store: store,
		tb:    tb,
		cleanup: func() {
			_ = store.Close()
		},
	}
	tb.Cleanup(harness.Close)
	return harness
}

// SeedDeal stores the deal and its product lines.
func (h *SQLiteHarness) SeedDeal(fixture DealFixture) DealFixture {
	h.tb.Helper()
	if err := h.Store.CreateDeal(context.Background(), fixture.Deal, fixture.Lines); err != nil {
		h.tb.Fatalf("seed deal %s: %v", fixture.Deal.ID, err)
	}
	return fixture
}

// SeedRoom stores a new room.
func (h *SQLiteHarness) SeedRoom() persistence.Room {
	h.tb.Helper()
	room := NewRoom()
	if err := h.Store.CreateRoom(context.Background(), room); err != nil {
		h.tb.Fatalf("seed room: %v", err)
	}
	return room
}

// SeedTrainer stores a new active trainer.
func (h *SQLiteHarness) SeedTrainer() persistence.Trainer {
	h.tb.Helper()
	trainer := NewTrainer()
	if err := h.Store.CreateTrainer(context.Background(), trainer); err != nil {
		h.tb.Fatalf("seed trainer: %v", err)
	}
	return trainer
}

// SeedMobileUnit stores a new mobile unit.
func (h *SQLiteHarness) SeedMobileUnit() persistence.MobileUnit {
	h.tb.Helper()
	unit := NewMobileUnit()
	if err := h.Store.CreateMobileUnit(context.Background(), unit); err != nil {
		h.tb.Fatalf("seed mobile unit: %v", err)
	}
	return unit
}

// SeedSession stores a session.
func (h *SQLiteHarness) SeedSession(session persistence.Session) persistence.Session {
	h.tb.Helper()
	if err := h.Store.CreateSession(context.Background(), session); err != nil {
		h.tb.Fatalf("seed session %s: %v", session.ID, err)
	}
	return session
}

// Sessions returns the deal's stored sessions in creation order.
func (h *SQLiteHarness) Sessions(dealID string) []persistence.Session {
	h.tb.Helper()
	sessions, err := h.Store.ListSessionsByDeal(context.Background(), dealID)
	if err != nil {
		h.tb.Fatalf("list sessions: %v", err)
	}
	return sessions
}

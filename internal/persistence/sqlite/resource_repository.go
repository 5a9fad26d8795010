package sqlite

import (
	"context"
	"time"

	"github.com/example/training-erp/internal/persistence"
)

// ResourceRepository implements persistence.ResourceRepository using SQLite
type ResourceRepository struct {
	db     dbtx
	mapper *ErrorMapper
}

// CreateRoom inserts a new room into the database
func (r *ResourceRepository) CreateRoom(ctx context.Context, room persistence.Room) error {
	if room.ID == "" || room.Name == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO rooms (id, name, location, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		room.ID,
		room.Name,
		room.Location,
		formatTime(room.CreatedAt),
		formatTime(room.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// ListRooms returns every room ordered by name
func (r *ResourceRepository) ListRooms(ctx context.Context) ([]persistence.Room, error) {
	return r.queryRooms(ctx, `SELECT id, name, location, created_at, updated_at FROM rooms ORDER BY name ASC, id ASC`)
}

// GetRoomsByIDs returns the rooms that exist among ids
func (r *ResourceRepository) GetRoomsByIDs(ctx context.Context, ids []string) ([]persistence.Room, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	return r.queryRooms(ctx, `SELECT id, name, location, created_at, updated_at FROM rooms WHERE id IN (`+placeholders+`)`, args...)
}

func (r *ResourceRepository) queryRooms(ctx context.Context, query string, args ...interface{}) ([]persistence.Room, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var rooms []persistence.Room
	for rows.Next() {
		var (
			room                 persistence.Room
			createdAt, updatedAt string
		)
		if err := rows.Scan(&room.ID, &room.Name, &room.Location, &createdAt, &updatedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if room.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if room.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return rooms, nil
}

// CreateTrainer inserts a new trainer
func (r *ResourceRepository) CreateTrainer(ctx context.Context, trainer persistence.Trainer) error {
	if trainer.ID == "" || trainer.Name == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO trainers (id, name, email, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		trainer.ID,
		trainer.Name,
		trainer.Email,
		trainer.Active,
		formatTime(trainer.CreatedAt),
		formatTime(trainer.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// ListTrainers returns every trainer ordered by name
func (r *ResourceRepository) ListTrainers(ctx context.Context) ([]persistence.Trainer, error) {
	return r.queryTrainers(ctx, `SELECT id, name, email, active, created_at, updated_at FROM trainers ORDER BY name ASC, id ASC`)
}

// GetTrainersByIDs returns the trainers that exist among ids, active or not
func (r *ResourceRepository) GetTrainersByIDs(ctx context.Context, ids []string) ([]persistence.Trainer, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	return r.queryTrainers(ctx, `SELECT id, name, email, active, created_at, updated_at FROM trainers WHERE id IN (`+placeholders+`)`, args...)
}

// SetTrainerActive toggles whether a trainer can be assigned
func (r *ResourceRepository) SetTrainerActive(ctx context.Context, id string, active bool, updatedAt time.Time) error {
	result, err := r.db.ExecContext(ctx, `UPDATE trainers SET active = ?, updated_at = ? WHERE id = ?`, active, formatTime(updatedAt), id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

func (r *ResourceRepository) queryTrainers(ctx context.Context, query string, args ...interface{}) ([]persistence.Trainer, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var trainers []persistence.Trainer
	for rows.Next() {
		var (
			trainer              persistence.Trainer
			createdAt, updatedAt string
		)
		if err := rows.Scan(&trainer.ID, &trainer.Name, &trainer.Email, &trainer.Active, &createdAt, &updatedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if trainer.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if trainer.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		trainers = append(trainers, trainer)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return trainers, nil
}

// CreateMobileUnit inserts a new mobile unit
func (r *ResourceRepository) CreateMobileUnit(ctx context.Context, unit persistence.MobileUnit) error {
	if unit.ID == "" || unit.Name == "" {
		return persistence.ErrConstraintViolation
	}

	query := `
		INSERT INTO mobile_units (id, name, plate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		unit.ID,
		unit.Name,
		unit.Plate,
		formatTime(unit.CreatedAt),
		formatTime(unit.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// ListMobileUnits returns every mobile unit ordered by name
func (r *ResourceRepository) ListMobileUnits(ctx context.Context) ([]persistence.MobileUnit, error) {
	return r.queryMobileUnits(ctx, `SELECT id, name, plate, created_at, updated_at FROM mobile_units ORDER BY name ASC, id ASC`)
}

// GetMobileUnitsByIDs returns the mobile units that exist among ids
func (r *ResourceRepository) GetMobileUnitsByIDs(ctx context.Context, ids []string) ([]persistence.MobileUnit, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders, args := inClause(ids)
	return r.queryMobileUnits(ctx, `SELECT id, name, plate, created_at, updated_at FROM mobile_units WHERE id IN (`+placeholders+`)`, args...)
}

func (r *ResourceRepository) queryMobileUnits(ctx context.Context, query string, args ...interface{}) ([]persistence.MobileUnit, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var units []persistence.MobileUnit
	for rows.Next() {
		var (
			unit                 persistence.MobileUnit
			createdAt, updatedAt string
		)
		if err := rows.Scan(&unit.ID, &unit.Name, &unit.Plate, &createdAt, &updatedAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if unit.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if unit.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		units = append(units, unit)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return units, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/training-erp/internal/persistence"
)

// SessionRepository implements persistence.SessionRepository using SQLite.
// Trainer and mobile unit links live in join tables and keep insertion order.
type SessionRepository struct {
	db     dbtx
	mapper *ErrorMapper
}

const sessionColumns = `id, deal_id, product_line_id, status, start_at, end_at, room_id, address, site, comments, origin, created_at, updated_at`

// CreateSession inserts the session row and its resource links
func (r *SessionRepository) CreateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" || session.DealID == "" {
		return persistence.ErrConstraintViolation
	}

	return atomically(ctx, r.db, func(tx dbtx) error {
		query := `
			INSERT INTO sessions (` + sessionColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, query,
			session.ID,
			session.DealID,
			nullString(session.ProductLineID),
			string(session.Status),
			formatNullTime(session.Start),
			formatNullTime(session.End),
			nullString(session.RoomID),
			nullString(session.Address),
			nullString(session.Site),
			nullString(session.Comments),
			nullString(session.Origin),
			formatTime(session.CreatedAt),
			formatTime(session.UpdatedAt),
		); err != nil {
			return r.mapper.MapError(err)
		}

		return r.insertLinks(ctx, tx, session)
	})
}

// UpdateSession overwrites the session row and replaces all resource links
func (r *SessionRepository) UpdateSession(ctx context.Context, session persistence.Session) error {
	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return atomically(ctx, r.db, func(tx dbtx) error {
		query := `
			UPDATE sessions
			SET product_line_id = ?, status = ?, start_at = ?, end_at = ?, room_id = ?,
				address = ?, site = ?, comments = ?, origin = ?, updated_at = ?
			WHERE id = ?
		`
		result, err := tx.ExecContext(ctx, query,
			nullString(session.ProductLineID),
			string(session.Status),
			formatNullTime(session.Start),
			formatNullTime(session.End),
			nullString(session.RoomID),
			nullString(session.Address),
			nullString(session.Site),
			nullString(session.Comments),
			nullString(session.Origin),
			formatTime(session.UpdatedAt),
			session.ID,
		)
		if err != nil {
			return r.mapper.MapError(err)
		}
		if err := requireAffected(result); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM session_trainers WHERE session_id = ?`, session.ID); err != nil {
			return r.mapper.MapError(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM session_mobile_units WHERE session_id = ?`, session.ID); err != nil {
			return r.mapper.MapError(err)
		}

		return r.insertLinks(ctx, tx, session)
	})
}

func (r *SessionRepository) insertLinks(ctx context.Context, tx dbtx, session persistence.Session) error {
	for _, trainerID := range session.TrainerIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_trainers (session_id, trainer_id) VALUES (?, ?)`,
			session.ID, trainerID,
		); err != nil {
			return r.mapper.MapError(err)
		}
	}
	for _, unitID := range session.MobileUnitIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO session_mobile_units (session_id, mobile_unit_id) VALUES (?, ?)`,
			session.ID, unitID,
		); err != nil {
			return r.mapper.MapError(err)
		}
	}
	return nil
}

// GetSession retrieves a session with its resource links
func (r *SessionRepository) GetSession(ctx context.Context, id string) (persistence.Session, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM sessions WHERE id = ?`, id)
	session, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Session{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Session{}, r.mapper.MapError(err)
	}

	links, err := r.loadLinks(ctx, `WHERE l.session_id = ?`, id)
	if err != nil {
		return persistence.Session{}, err
	}
	links.apply(&session)
	return session, nil
}

// ListSessionsByDeal returns the deal's sessions ordered by creation time, then id
func (r *SessionRepository) ListSessionsByDeal(ctx context.Context, dealID string) ([]persistence.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE deal_id = ? ORDER BY created_at ASC, id ASC`

	rows, err := r.db.QueryContext(ctx, query, dealID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var sessions []persistence.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		sessions = append(sessions, session)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	rows.Close()

	if len(sessions) == 0 {
		return sessions, nil
	}

	links, err := r.loadLinks(ctx, `JOIN sessions s ON s.id = l.session_id WHERE s.deal_id = ?`, dealID)
	if err != nil {
		return nil, err
	}
	for i := range sessions {
		links.apply(&sessions[i])
	}
	return sessions, nil
}

// CountSessionsByDeal returns how many sessions the deal has
func (r *SessionRepository) CountSessionsByDeal(ctx context.Context, dealID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions WHERE deal_id = ?`, dealID).Scan(&count); err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

// DeleteSession removes a session; links cascade
func (r *SessionRepository) DeleteSession(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// DeleteSessions removes the given sessions and reports how many existed
func (r *SessionRepository) DeleteSessions(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders, args := inClause(ids)
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

type sessionLinks struct {
	trainers    map[string][]string
	mobileUnits map[string][]string
}

func (l sessionLinks) apply(session *persistence.Session) {
	session.TrainerIDs = l.trainers[session.ID]
	session.MobileUnitIDs = l.mobileUnits[session.ID]
}

// loadLinks reads both join tables; filter is appended after "FROM <table> l"
func (r *SessionRepository) loadLinks(ctx context.Context, filter string, args ...interface{}) (sessionLinks, error) {
	trainers, err := r.loadLinkTable(ctx, `SELECT l.session_id, l.trainer_id FROM session_trainers l `+filter+` ORDER BY l.rowid`, args...)
	if err != nil {
		return sessionLinks{}, err
	}
	units, err := r.loadLinkTable(ctx, `SELECT l.session_id, l.mobile_unit_id FROM session_mobile_units l `+filter+` ORDER BY l.rowid`, args...)
	if err != nil {
		return sessionLinks{}, err
	}
	return sessionLinks{trainers: trainers, mobileUnits: units}, nil
}

func (r *SessionRepository) loadLinkTable(ctx context.Context, query string, args ...interface{}) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	links := make(map[string][]string)
	for rows.Next() {
		var sessionID, resourceID string
		if err := rows.Scan(&sessionID, &resourceID); err != nil {
			return nil, r.mapper.MapError(err)
		}
		links[sessionID] = append(links[sessionID], resourceID)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return links, nil
}

func scanSession(row rowScanner) (persistence.Session, error) {
	var (
		session                         persistence.Session
		status                          string
		productLineID, roomID           sql.NullString
		start, end                      sql.NullString
		address, site, comments, origin sql.NullString
		createdAt, updatedAt            string
	)
	if err := row.Scan(
		&session.ID,
		&session.DealID,
		&productLineID,
		&status,
		&start,
		&end,
		&roomID,
		&address,
		&site,
		&comments,
		&origin,
		&createdAt,
		&updatedAt,
	); err != nil {
		return persistence.Session{}, err
	}

	session.Status = persistence.SessionStatus(status)
	session.ProductLineID = stringPtr(productLineID)
	session.RoomID = stringPtr(roomID)
	session.Address = stringPtr(address)
	session.Site = stringPtr(site)
	session.Comments = stringPtr(comments)
	session.Origin = stringPtr(origin)

	var err error
	if session.Start, err = parseNullTime(start); err != nil {
		return persistence.Session{}, err
	}
	if session.End, err = parseNullTime(end); err != nil {
		return persistence.Session{}, err
	}
	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Session{}, err
	}
	if session.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Session{}, err
	}
	return session, nil
}

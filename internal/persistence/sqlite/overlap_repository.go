package sqlite

import (
	"context"

	"github.com/example/training-erp/internal/persistence"
)

// OverlapRepository implements persistence.OverlapRepository using SQLite.
// Stored times share one fixed-width UTC layout, so the range predicate
// compares them as text.
type OverlapRepository struct {
	db     dbtx
	mapper *ErrorMapper
}

// RoomOverlaps finds active sessions holding any of the rooms during the range
func (r *OverlapRepository) RoomOverlaps(ctx context.Context, query persistence.OverlapQuery) ([]persistence.SessionOverlap, error) {
	return r.overlaps(ctx, `s.room_id`, ``, query)
}

// TrainerOverlaps finds active sessions assigned to any of the trainers during the range
func (r *OverlapRepository) TrainerOverlaps(ctx context.Context, query persistence.OverlapQuery) ([]persistence.SessionOverlap, error) {
	return r.overlaps(ctx, `st.trainer_id`, `JOIN session_trainers st ON st.session_id = s.id`, query)
}

// MobileUnitOverlaps finds active sessions using any of the mobile units during the range
func (r *OverlapRepository) MobileUnitOverlaps(ctx context.Context, query persistence.OverlapQuery) ([]persistence.SessionOverlap, error) {
	return r.overlaps(ctx, `smu.mobile_unit_id`, `JOIN session_mobile_units smu ON smu.session_id = s.id`, query)
}

func (r *OverlapRepository) overlaps(ctx context.Context, resourceColumn, join string, query persistence.OverlapQuery) ([]persistence.SessionOverlap, error) {
	if len(query.ResourceIDs) == 0 {
		return nil, nil
	}

	placeholders, args := inClause(query.ResourceIDs)
	statusPlaceholders, statusArgs := inClause(activeStatusLabels())

	sqlQuery := `
		SELECT ` + resourceColumn + `, s.id, s.deal_id, d.title, d.organization_name,
			COALESCE(pl.product_code, s.origin, ''), COALESCE(pl.product_name, ''),
			s.start_at, s.end_at
		FROM sessions s
		` + join + `
		JOIN deals d ON d.id = s.deal_id
		LEFT JOIN product_lines pl ON pl.id = s.product_line_id
		WHERE ` + resourceColumn + ` IN (` + placeholders + `)
			AND s.status IN (` + statusPlaceholders + `)
			AND s.start_at IS NOT NULL
			AND s.end_at IS NOT NULL
			AND s.start_at < ?
			AND s.end_at > ?
	`
	args = append(args, statusArgs...)
	args = append(args, formatTime(query.End), formatTime(query.Start))

	if query.ExcludeSessionID != "" {
		sqlQuery += ` AND s.id <> ?`
		args = append(args, query.ExcludeSessionID)
	}
	sqlQuery += ` ORDER BY s.start_at ASC, s.id ASC`

	rows, err := r.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var overlaps []persistence.SessionOverlap
	for rows.Next() {
		var (
			overlap    persistence.SessionOverlap
			start, end string
		)
		if err := rows.Scan(
			&overlap.ResourceID,
			&overlap.SessionID,
			&overlap.DealID,
			&overlap.DealTitle,
			&overlap.OrganizationName,
			&overlap.ProductCode,
			&overlap.ProductName,
			&start,
			&end,
		); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if overlap.Start, err = parseTime(start); err != nil {
			return nil, err
		}
		if overlap.End, err = parseTime(end); err != nil {
			return nil, err
		}
		overlaps = append(overlaps, overlap)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return overlaps, nil
}

func activeStatusLabels() []string {
	labels := make([]string, len(persistence.ActiveStatuses))
	for i, status := range persistence.ActiveStatuses {
		labels[i] = string(status)
	}
	return labels
}

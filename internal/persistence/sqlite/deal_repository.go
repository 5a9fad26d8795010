package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/example/training-erp/internal/persistence"
)

// DealRepository implements persistence.DealRepository using SQLite
type DealRepository struct {
	db     dbtx
	mapper *ErrorMapper
}

// CreateDeal inserts a deal together with its product lines
func (r *DealRepository) CreateDeal(ctx context.Context, deal persistence.Deal, lines []persistence.ProductLine) error {
	if deal.ID == "" {
		return persistence.ErrConstraintViolation
	}

	return atomically(ctx, r.db, func(tx dbtx) error {
		query := `
			INSERT INTO deals (id, title, organization_name, default_address, default_site, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`
		if _, err := tx.ExecContext(ctx, query,
			deal.ID,
			deal.Title,
			deal.OrganizationName,
			nullString(deal.DefaultAddress),
			nullString(deal.DefaultSite),
			formatTime(deal.CreatedAt),
			formatTime(deal.UpdatedAt),
		); err != nil {
			return r.mapper.MapError(err)
		}

		for _, line := range lines {
			if line.ID == "" {
				return persistence.ErrConstraintViolation
			}
			query := `
				INSERT INTO product_lines (id, deal_id, product_code, product_name, quantity, hours, created_at)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`
			if _, err := tx.ExecContext(ctx, query,
				line.ID,
				deal.ID,
				line.ProductCode,
				line.ProductName,
				line.Quantity.String(),
				line.Hours.String(),
				formatTime(line.CreatedAt),
			); err != nil {
				return r.mapper.MapError(err)
			}
		}
		return nil
	})
}

// GetDeal retrieves a deal by id
func (r *DealRepository) GetDeal(ctx context.Context, id string) (persistence.Deal, error) {
	query := `
		SELECT id, title, organization_name, default_address, default_site, created_at, updated_at
		FROM deals
		WHERE id = ?
	`

	deal, err := scanDeal(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.Deal{}, persistence.ErrNotFound
	}
	if err != nil {
		return persistence.Deal{}, r.mapper.MapError(err)
	}
	return deal, nil
}

// ListDeals returns all deals, oldest first
func (r *DealRepository) ListDeals(ctx context.Context) ([]persistence.Deal, error) {
	query := `
		SELECT id, title, organization_name, default_address, default_site, created_at, updated_at
		FROM deals
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var deals []persistence.Deal
	for rows.Next() {
		deal, err := scanDeal(rows)
		if err != nil {
			return nil, r.mapper.MapError(err)
		}
		deals = append(deals, deal)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return deals, nil
}

// DeleteDeal removes a deal; product lines and sessions cascade
func (r *DealRepository) DeleteDeal(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM deals WHERE id = ?`, id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// ListProductLines returns the deal's product lines ordered by creation
func (r *DealRepository) ListProductLines(ctx context.Context, dealID string) ([]persistence.ProductLine, error) {
	query := `
		SELECT id, deal_id, product_code, product_name, quantity, hours, created_at
		FROM product_lines
		WHERE deal_id = ?
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, dealID)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	var lines []persistence.ProductLine
	for rows.Next() {
		var (
			line                      persistence.ProductLine
			quantity, hours, createdAt string
		)
		if err := rows.Scan(&line.ID, &line.DealID, &line.ProductCode, &line.ProductName, &quantity, &hours, &createdAt); err != nil {
			return nil, r.mapper.MapError(err)
		}
		if line.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("product line %s quantity: %w", line.ID, err)
		}
		if line.Hours, err = decimal.NewFromString(hours); err != nil {
			return nil, fmt.Errorf("product line %s hours: %w", line.ID, err)
		}
		if line.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, r.mapper.MapError(err)
	}
	return lines, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDeal(row rowScanner) (persistence.Deal, error) {
	var (
		deal                 persistence.Deal
		address, site        sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&deal.ID, &deal.Title, &deal.OrganizationName, &address, &site, &createdAt, &updatedAt); err != nil {
		return persistence.Deal{}, err
	}

	deal.DefaultAddress = stringPtr(address)
	deal.DefaultSite = stringPtr(site)

	var err error
	if deal.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Deal{}, err
	}
	if deal.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Deal{}, err
	}
	return deal, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

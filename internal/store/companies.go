package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"

	"github.com/cleared-dev/bukubesar/internal/model"
)

const companyColumns = `id, code, name, address, tax_id, currency, fiscal_year_start, locked_until, created_at`

// CreateCompany inserts c and sets its ID.
func (s *Store) CreateCompany(ctx context.Context, c *model.Company) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO companies (code, name, address, tax_id, currency, fiscal_year_start, locked_until, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Code, c.Name, c.Address, c.TaxID, c.Currency, c.FiscalYearStart, formatDate(c.LockedUntil), c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting company %s: %w", c.Code, mapErr(err))
	}
	c.ID, err = res.LastInsertId()
	return err
}

// DeleteCompany removes a company and, through cascading keys, everything
// it owns.
func (s *Store) DeleteCompany(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM companies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting company %d: %w", id, mapErr(err))
	}
	return affected(res)
}

// UpdateCompany overwrites the editable fields of c.
func (s *Store) UpdateCompany(ctx context.Context, c model.Company) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE companies SET code = ?, name = ?, address = ?, tax_id = ?, currency = ?, fiscal_year_start = ?, locked_until = ?
		WHERE id = ?`,
		c.Code, c.Name, c.Address, c.TaxID, c.Currency, c.FiscalYearStart, formatDate(c.LockedUntil), c.ID,
	)
	if err != nil {
		return fmt.Errorf("updating company %d: %w", c.ID, mapErr(err))
	}
	return affected(res)
}

// GetCompany returns a company by ID.
func (s *Store) GetCompany(ctx context.Context, id int64) (model.Company, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
	c, err := scanCompany(row)
	if err != nil {
		return model.Company{}, fmt.Errorf("getting company %d: %w", id, mapErr(err))
	}
	return c, nil
}

// ListCompanies returns all companies ordered by code.
func (s *Store) ListCompanies(ctx context.Context) ([]model.Company, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+companyColumns+` FROM companies ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	defer rows.Close()

	var companies []model.Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCompany(sc scanner) (model.Company, error) {
	var c model.Company
	var locked string
	if err := sc.Scan(&c.ID, &c.Code, &c.Name, &c.Address, &c.TaxID, &c.Currency, &c.FiscalYearStart, &locked, &c.CreatedAt); err != nil {
		return model.Company{}, err
	}
	d, err := parseDate(locked)
	if err != nil {
		return model.Company{}, err
	}
	c.LockedUntil = d
	return c, nil
}

func formatDate(d civil.Date) string {
	if d == (civil.Date{}) {
		return ""
	}
	return d.String()
}

func parseDate(s string) (civil.Date, error) {
	if s == "" {
		return civil.Date{}, nil
	}
	d, err := civil.ParseDate(s)
	if err != nil {
		return civil.Date{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return d, nil
}

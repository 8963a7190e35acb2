package store

import (
	"context"
	"fmt"

	"github.com/cleared-dev/bukubesar/internal/model"
)

const partnerColumns = `id, company_id, code, name, role, address, phone, email, tax_id, active`

// CreatePartner inserts p and sets its ID.
func (s *Store) CreatePartner(ctx context.Context, p *model.Partner) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO partners (company_id, code, name, role, address, phone, email, tax_id, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.CompanyID, p.Code, p.Name, string(p.Role), p.Address, p.Phone, p.Email, p.TaxID, boolInt(p.Active),
	)
	if err != nil {
		return fmt.Errorf("inserting partner %s: %w", p.Code, mapErr(err))
	}
	p.ID, err = res.LastInsertId()
	return err
}

// UpdatePartner overwrites the editable fields of p.
func (s *Store) UpdatePartner(ctx context.Context, p model.Partner) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE partners SET code = ?, name = ?, role = ?, address = ?, phone = ?, email = ?, tax_id = ?, active = ?
		WHERE id = ? AND company_id = ?`,
		p.Code, p.Name, string(p.Role), p.Address, p.Phone, p.Email, p.TaxID, boolInt(p.Active),
		p.ID, p.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("updating partner %d: %w", p.ID, mapErr(err))
	}
	return affected(res)
}

// DeletePartner removes a partner. Partners used by transactions fail with ErrReferenced.
func (s *Store) DeletePartner(ctx context.Context, companyID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM partners WHERE id = ? AND company_id = ?`, id, companyID)
	if err != nil {
		return fmt.Errorf("deleting partner %d: %w", id, mapErr(err))
	}
	return affected(res)
}

// GetPartner returns a partner by ID.
func (s *Store) GetPartner(ctx context.Context, companyID, id int64) (model.Partner, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+partnerColumns+` FROM partners WHERE id = ? AND company_id = ?`, id, companyID)
	p, err := scanPartner(row)
	if err != nil {
		return model.Partner{}, fmt.Errorf("getting partner %d: %w", id, mapErr(err))
	}
	return p, nil
}

// ListPartners returns a company's business relations ordered by code.
func (s *Store) ListPartners(ctx context.Context, companyID int64) ([]model.Partner, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+partnerColumns+` FROM partners WHERE company_id = ? ORDER BY code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing partners: %w", err)
	}
	defer rows.Close()

	var partners []model.Partner
	for rows.Next() {
		p, err := scanPartner(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning partner: %w", err)
		}
		partners = append(partners, p)
	}
	return partners, rows.Err()
}

func scanPartner(sc scanner) (model.Partner, error) {
	var p model.Partner
	var role string
	if err := sc.Scan(&p.ID, &p.CompanyID, &p.Code, &p.Name, &role, &p.Address, &p.Phone, &p.Email, &p.TaxID, &p.Active); err != nil {
		return model.Partner{}, err
	}
	p.Role = model.PartnerRole(role)
	return p, nil
}

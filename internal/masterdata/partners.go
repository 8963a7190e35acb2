package masterdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/cleared-dev/bukubesar/internal/audit"
	"github.com/cleared-dev/bukubesar/internal/model"
)

// ListPartners returns a company's business relations.
func (s *Service) ListPartners(ctx context.Context, companyID int64) ([]model.Partner, error) {
	return s.repo.ListPartners(ctx, companyID)
}

// GetPartner returns one business relation.
func (s *Service) GetPartner(ctx context.Context, companyID, id int64) (model.Partner, error) {
	return s.repo.GetPartner(ctx, companyID, id)
}

// CreatePartner validates and stores a new business relation.
func (s *Service) CreatePartner(ctx context.Context, user string, p model.Partner) (model.Partner, error) {
	p.ID = 0
	if err := normalizePartner(&p); err != nil {
		return model.Partner{}, err
	}
	if err := s.repo.CreatePartner(ctx, &p); err != nil {
		return model.Partner{}, err
	}
	s.record(user, audit.ActionCreate, "partner", p.ID, p.Code)
	return p, nil
}

// UpdatePartner validates and saves a business relation.
func (s *Service) UpdatePartner(ctx context.Context, user string, p model.Partner) (model.Partner, error) {
	if err := normalizePartner(&p); err != nil {
		return model.Partner{}, err
	}
	if err := s.repo.UpdatePartner(ctx, p); err != nil {
		return model.Partner{}, err
	}
	s.record(user, audit.ActionUpdate, "partner", p.ID, p.Code)
	return p, nil
}

// DeletePartner removes a business relation. Partners named on transactions
// fail with store.ErrReferenced.
func (s *Service) DeletePartner(ctx context.Context, user string, companyID, id int64) error {
	if err := s.repo.DeletePartner(ctx, companyID, id); err != nil {
		return err
	}
	s.record(user, audit.ActionDelete, "partner", id, "")
	return nil
}

func normalizePartner(p *model.Partner) error {
	p.Code = strings.TrimSpace(p.Code)
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	if p.Code == "" || p.Name == "" {
		return fmt.Errorf("%w: partner code and name are required", model.ErrInvalid)
	}
	if p.Role == "" {
		p.Role = model.PartnerCustomer
	}
	if !p.Role.Valid() {
		return fmt.Errorf("%w: partner %s: unknown role %q", model.ErrInvalid, p.Code, p.Role)
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		return fmt.Errorf("%w: partner %s: invalid email %q", model.ErrInvalid, p.Code, p.Email)
	}
	return nil
}

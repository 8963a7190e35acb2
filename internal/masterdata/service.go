// Package masterdata maintains companies, inventory items and business relations.
package masterdata

import (
	"context"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/cleared-dev/bukubesar/internal/audit"
	"github.com/cleared-dev/bukubesar/internal/model"
)

// Repository is the persistence the master-data service needs.
type Repository interface {
	CreateCompany(ctx context.Context, c *model.Company) error
	DeleteCompany(ctx context.Context, id int64) error
	UpdateCompany(ctx context.Context, c model.Company) error
	GetCompany(ctx context.Context, id int64) (model.Company, error)
	ListCompanies(ctx context.Context) ([]model.Company, error)

	GetAccount(ctx context.Context, companyID, id int64) (model.Account, error)

	CreateItem(ctx context.Context, it *model.Item) error
	UpdateItem(ctx context.Context, it model.Item) error
	DeleteItem(ctx context.Context, companyID, id int64) error
	GetItem(ctx context.Context, companyID, id int64) (model.Item, error)
	ListItems(ctx context.Context, companyID int64) ([]model.Item, error)

	CreatePartner(ctx context.Context, p *model.Partner) error
	UpdatePartner(ctx context.Context, p model.Partner) error
	DeletePartner(ctx context.Context, companyID, id int64) error
	GetPartner(ctx context.Context, companyID, id int64) (model.Partner, error)
	ListPartners(ctx context.Context, companyID int64) ([]model.Partner, error)
}

// ChartSeeder installs the starting chart of accounts for a new company.
type ChartSeeder interface {
	SeedDefault(ctx context.Context, companyID int64) error
}

// Auditor receives a record of every state change.
type Auditor interface {
	Append(entries ...audit.Entry) error
}

// Service provides business logic for master data.
type Service struct {
	repo   Repository
	seeder ChartSeeder
	audit  Auditor
	log    *zap.Logger
}

// NewService creates a master-data Service. seeder may be nil, in which case
// new companies start with an empty chart.
func NewService(repo Repository, seeder ChartSeeder, auditor Auditor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, seeder: seeder, audit: auditor, log: logger.Named("masterdata")}
}

// ListCompanies returns every company.
func (s *Service) ListCompanies(ctx context.Context) ([]model.Company, error) {
	return s.repo.ListCompanies(ctx)
}

// GetCompany returns one company.
func (s *Service) GetCompany(ctx context.Context, id int64) (model.Company, error) {
	return s.repo.GetCompany(ctx, id)
}

// CreateCompany registers a company and seeds its chart of accounts. If the
// seed fails the company row is removed again so the code can be reused.
func (s *Service) CreateCompany(ctx context.Context, user string, c model.Company) (model.Company, error) {
	c.ID = 0
	c.LockedUntil = civil.Date{}
	if err := normalizeCompany(&c); err != nil {
		return model.Company{}, err
	}

	if err := s.repo.CreateCompany(ctx, &c); err != nil {
		return model.Company{}, err
	}
	if s.seeder != nil {
		if err := s.seeder.SeedDefault(ctx, c.ID); err != nil {
			if derr := s.repo.DeleteCompany(context.WithoutCancel(ctx), c.ID); derr != nil {
				s.log.Error("removing half-created company", zap.String("code", c.Code), zap.Error(derr))
			}
			return model.Company{}, fmt.Errorf("seeding chart of accounts for %s: %w", c.Code, err)
		}
	}

	s.record(user, audit.ActionCreate, "company", c.ID, c.Code)
	s.log.Info("company created", zap.String("code", c.Code), zap.String("user", user))
	return c, nil
}

// UpdateCompany saves a company's profile. The locked period is left alone;
// use LockPeriod to move it.
func (s *Service) UpdateCompany(ctx context.Context, user string, c model.Company) (model.Company, error) {
	cur, err := s.repo.GetCompany(ctx, c.ID)
	if err != nil {
		return model.Company{}, err
	}
	if err := normalizeCompany(&c); err != nil {
		return model.Company{}, err
	}
	c.LockedUntil = cur.LockedUntil
	c.CreatedAt = cur.CreatedAt

	if err := s.repo.UpdateCompany(ctx, c); err != nil {
		return model.Company{}, err
	}
	s.record(user, audit.ActionUpdate, "company", c.ID, c.Code)
	return c, nil
}

// LockPeriod closes the books up to and including until. A zero date reopens
// every period.
func (s *Service) LockPeriod(ctx context.Context, user string, companyID int64, until civil.Date) (model.Company, error) {
	if until != (civil.Date{}) && !until.IsValid() {
		return model.Company{}, fmt.Errorf("%w: invalid lock date %s", model.ErrInvalid, until)
	}
	c, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return model.Company{}, err
	}
	prev := c.LockedUntil
	c.LockedUntil = until

	if err := s.repo.UpdateCompany(ctx, c); err != nil {
		return model.Company{}, err
	}

	s.record(user, audit.ActionLockPeriod, "company", c.ID, fmt.Sprintf("%s -> %s", lockLabel(prev), lockLabel(until)))
	s.log.Info("period locked",
		zap.String("company", c.Code),
		zap.Stringer("until", until),
		zap.String("user", user))
	return c, nil
}

func lockLabel(d civil.Date) string {
	if d == (civil.Date{}) {
		return "open"
	}
	return d.String()
}

func normalizeCompany(c *model.Company) error {
	c.Code = strings.TrimSpace(c.Code)
	c.Name = strings.TrimSpace(c.Name)
	c.Currency = strings.ToUpper(strings.TrimSpace(c.Currency))

	if c.Code == "" || c.Name == "" {
		return fmt.Errorf("%w: company code and name are required", model.ErrInvalid)
	}
	if c.Currency == "" {
		c.Currency = "IDR"
	}
	if len(c.Currency) != 3 {
		return fmt.Errorf("%w: currency %q is not an ISO 4217 code", model.ErrInvalid, c.Currency)
	}
	if c.FiscalYearStart == 0 {
		c.FiscalYearStart = 1
	}
	if c.FiscalYearStart < 1 || c.FiscalYearStart > 12 {
		return fmt.Errorf("%w: fiscal year start month %d out of range", model.ErrInvalid, c.FiscalYearStart)
	}
	return nil
}

func (s *Service) record(user, action, entity string, id int64, details string) {
	if s.audit == nil {
		return
	}
	err := s.audit.Append(audit.Entry{User: user, Action: action, Entity: entity, EntityID: id, Details: details})
	if err != nil {
		s.log.Error("writing audit entry", zap.String("entity", entity), zap.Int64("id", id), zap.Error(err))
	}
}

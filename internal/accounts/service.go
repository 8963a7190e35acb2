package accounts

import (
	"context"
	"fmt"
	"strings"

	"github.com/cleared-dev/bukubesar/internal/model"
)

// Repository is the persistence the account service needs.
type Repository interface {
	ListAccounts(ctx context.Context, companyID int64) ([]model.Account, error)
	GetAccount(ctx context.Context, companyID, id int64) (model.Account, error)
	CreateAccount(ctx context.Context, a *model.Account) error
	CreateAccounts(ctx context.Context, accts []model.Account, parentRefs map[int]int) error
	UpdateAccount(ctx context.Context, a model.Account) error
	DeleteAccount(ctx context.Context, companyID, id int64) error
	CountAccountDetails(ctx context.Context, accountID int64) (int, error)
}

// Service maintains companies' charts of accounts.
type Service struct {
	repo Repository
}

// NewService creates an account Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Chart loads a company's chart of accounts.
func (s *Service) Chart(ctx context.Context, companyID int64) (*Chart, error) {
	accts, err := s.repo.ListAccounts(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("loading chart of accounts: %w", err)
	}
	return NewChart(accts), nil
}

// List returns a company's accounts ordered by code.
func (s *Service) List(ctx context.Context, companyID int64) ([]model.Account, error) {
	return s.repo.ListAccounts(ctx, companyID)
}

// Tree returns a company's accounts as nested nodes.
func (s *Service) Tree(ctx context.Context, companyID int64) ([]Node, error) {
	chart, err := s.Chart(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return chart.Tree(), nil
}

// Get returns one account.
func (s *Service) Get(ctx context.Context, companyID, id int64) (model.Account, error) {
	return s.repo.GetAccount(ctx, companyID, id)
}

// Create validates and inserts a new account.
func (s *Service) Create(ctx context.Context, a model.Account) (model.Account, error) {
	a.ID = 0
	normalize(&a)

	chart, err := s.Chart(ctx, a.CompanyID)
	if err != nil {
		return model.Account{}, err
	}
	if err := validate(a, chart); err != nil {
		return model.Account{}, err
	}

	if err := s.repo.CreateAccount(ctx, &a); err != nil {
		return model.Account{}, err
	}
	return a, nil
}

// Update validates and saves changes to an existing account.
func (s *Service) Update(ctx context.Context, a model.Account) (model.Account, error) {
	normalize(&a)

	chart, err := s.Chart(ctx, a.CompanyID)
	if err != nil {
		return model.Account{}, err
	}
	cur, err := s.repo.GetAccount(ctx, a.CompanyID, a.ID)
	if err != nil {
		return model.Account{}, err
	}
	if err := validate(a, chart); err != nil {
		return model.Account{}, err
	}

	if a.ParentID == a.ID || chart.IsDescendant(a.ID, a.ParentID) {
		return model.Account{}, fmt.Errorf("%w: account %s cannot be moved below itself", model.ErrInvalid, a.Code)
	}

	children := chart.Children(a.ID)
	if len(children) > 0 && !a.IsGroup {
		return model.Account{}, fmt.Errorf("%w: account %s has sub-accounts and must stay a group", model.ErrInvalid, a.Code)
	}
	if len(children) > 0 && a.Type != cur.Type {
		return model.Account{}, fmt.Errorf("%w: account %s has sub-accounts; its type cannot change", model.ErrInvalid, a.Code)
	}

	if a.Type != cur.Type || (a.IsGroup && !cur.IsGroup) {
		n, err := s.repo.CountAccountDetails(ctx, a.ID)
		if err != nil {
			return model.Account{}, err
		}
		if n > 0 {
			return model.Account{}, fmt.Errorf("%w: account %s has %d journal lines; its type and group flag are fixed", model.ErrInvalid, a.Code, n)
		}
	}

	if err := s.repo.UpdateAccount(ctx, a); err != nil {
		return model.Account{}, err
	}
	return a, nil
}

// Delete removes an account that has neither sub-accounts nor journal lines.
func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	chart, err := s.Chart(ctx, companyID)
	if err != nil {
		return err
	}
	a, ok := chart.Get(id)
	if !ok {
		_, err := s.repo.GetAccount(ctx, companyID, id)
		return err
	}
	if len(chart.Children(id)) > 0 {
		return fmt.Errorf("%w: account %s has sub-accounts", model.ErrInvalid, a.Code)
	}
	n, err := s.repo.CountAccountDetails(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: account %s has %d journal lines; deactivate it instead", model.ErrInvalid, a.Code, n)
	}
	return s.repo.DeleteAccount(ctx, companyID, id)
}

// SeedDefault installs the default chart for a company.
func (s *Service) SeedDefault(ctx context.Context, companyID int64) error {
	_, err := s.Import(ctx, companyID, DefaultChart())
	return err
}

// Import adds rows to a company's chart in one database transaction. Parents
// may be earlier rows of the same import or accounts that already exist.
func (s *Service) Import(ctx context.Context, companyID int64, rows []Row) (int, error) {
	chart, err := s.Chart(ctx, companyID)
	if err != nil {
		return 0, err
	}

	ordered, err := parentFirst(rows)
	if err != nil {
		return 0, err
	}

	batchIdx := make(map[string]int, len(ordered))
	accts := make([]model.Account, len(ordered))
	parentRefs := make(map[int]int)

	for i, row := range ordered {
		a := model.Account{
			CompanyID:   companyID,
			Code:        row.Code,
			Name:        row.Name,
			Type:        row.Type,
			Kind:        row.Kind,
			IsGroup:     row.IsGroup,
			Active:      true,
			Description: row.Description,
		}
		normalize(&a)
		if err := validateFields(a); err != nil {
			return 0, err
		}
		if _, dup := batchIdx[a.Code]; dup {
			return 0, fmt.Errorf("%w: account code %s appears twice", model.ErrInvalid, a.Code)
		}

		if row.ParentCode != "" {
			var parent model.Account
			if pi, ok := batchIdx[row.ParentCode]; ok {
				parent = accts[pi]
				parentRefs[i] = pi
			} else if p, ok := chart.ByCode(row.ParentCode); ok {
				parent = p
				a.ParentID = p.ID
			} else {
				return 0, fmt.Errorf("%w: account %s: unknown parent %s", model.ErrInvalid, a.Code, row.ParentCode)
			}
			if err := checkParent(a, parent); err != nil {
				return 0, err
			}
		}

		batchIdx[a.Code] = i
		accts[i] = a
	}

	if err := s.repo.CreateAccounts(ctx, accts, parentRefs); err != nil {
		return 0, fmt.Errorf("importing accounts: %w", err)
	}
	return len(accts), nil
}

// Export returns a company's chart as rows, parents before children.
func (s *Service) Export(ctx context.Context, companyID int64) ([]Row, error) {
	chart, err := s.Chart(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return RowsFromChart(chart), nil
}

func normalize(a *model.Account) {
	a.Code = strings.TrimSpace(a.Code)
	a.Name = strings.TrimSpace(a.Name)
}

func validateFields(a model.Account) error {
	if a.Code == "" {
		return fmt.Errorf("%w: account code is required", model.ErrInvalid)
	}
	if a.Name == "" {
		return fmt.Errorf("%w: account %s: name is required", model.ErrInvalid, a.Code)
	}
	if !a.Type.Valid() {
		return fmt.Errorf("%w: account %s: unknown type %q", model.ErrInvalid, a.Code, a.Type)
	}
	if !a.Kind.Valid() {
		return fmt.Errorf("%w: account %s: unknown kind %q", model.ErrInvalid, a.Code, a.Kind)
	}
	return nil
}

func validate(a model.Account, chart *Chart) error {
	if err := validateFields(a); err != nil {
		return err
	}
	if a.ParentID == 0 {
		return nil
	}
	parent, ok := chart.Get(a.ParentID)
	if !ok {
		return fmt.Errorf("%w: account %s: parent %d does not exist", model.ErrInvalid, a.Code, a.ParentID)
	}
	return checkParent(a, parent)
}

func checkParent(a, parent model.Account) error {
	if !parent.IsGroup {
		return fmt.Errorf("%w: account %s: parent %s is not a group account", model.ErrInvalid, a.Code, parent.Code)
	}
	if parent.Type != a.Type {
		return fmt.Errorf("%w: account %s (%s) cannot sit below %s (%s)", model.ErrInvalid, a.Code, a.Type, parent.Code, parent.Type)
	}
	return nil
}

// parentFirst orders rows so every parent precedes its children. Rows whose
// parent is not in the batch keep their relative order.
func parentFirst(rows []Row) ([]Row, error) {
	byCode := make(map[string]Row, len(rows))
	for _, r := range rows {
		byCode[r.Code] = r
	}

	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(rows))
	ordered := make([]Row, 0, len(rows))

	var visit func(r Row) error
	visit = func(r Row) error {
		switch state[r.Code] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: account %s is its own ancestor", model.ErrInvalid, r.Code)
		}
		state[r.Code] = visiting
		if p, ok := byCode[r.ParentCode]; ok && r.ParentCode != "" {
			if err := visit(p); err != nil {
				return err
			}
		}
		state[r.Code] = done
		ordered = append(ordered, r)
		return nil
	}

	for _, r := range rows {
		if err := visit(r); err != nil {
			return nil, err
		}
	}
	return ordered, nil
}

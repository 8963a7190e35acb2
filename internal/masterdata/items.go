package masterdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/cleared-dev/bukubesar/internal/audit"
	"github.com/cleared-dev/bukubesar/internal/model"
)

// ListItems returns a company's inventory items.
func (s *Service) ListItems(ctx context.Context, companyID int64) ([]model.Item, error) {
	return s.repo.ListItems(ctx, companyID)
}

// GetItem returns one item.
func (s *Service) GetItem(ctx context.Context, companyID, id int64) (model.Item, error) {
	return s.repo.GetItem(ctx, companyID, id)
}

// CreateItem validates and stores a new item.
func (s *Service) CreateItem(ctx context.Context, user string, it model.Item) (model.Item, error) {
	it.ID = 0
	if err := s.checkItem(ctx, &it); err != nil {
		return model.Item{}, err
	}
	if err := s.repo.CreateItem(ctx, &it); err != nil {
		return model.Item{}, err
	}
	s.record(user, audit.ActionCreate, "item", it.ID, it.Code)
	return it, nil
}

// UpdateItem validates and saves an item.
func (s *Service) UpdateItem(ctx context.Context, user string, it model.Item) (model.Item, error) {
	if err := s.checkItem(ctx, &it); err != nil {
		return model.Item{}, err
	}
	if err := s.repo.UpdateItem(ctx, it); err != nil {
		return model.Item{}, err
	}
	s.record(user, audit.ActionUpdate, "item", it.ID, it.Code)
	return it, nil
}

// DeleteItem removes an item. Items used on journal lines stay; deactivate them instead.
func (s *Service) DeleteItem(ctx context.Context, user string, companyID, id int64) error {
	if err := s.repo.DeleteItem(ctx, companyID, id); err != nil {
		return err
	}
	s.record(user, audit.ActionDelete, "item", id, "")
	return nil
}

func (s *Service) checkItem(ctx context.Context, it *model.Item) error {
	it.Code = strings.TrimSpace(it.Code)
	it.Name = strings.TrimSpace(it.Name)
	if it.Code == "" || it.Name == "" {
		return fmt.Errorf("%w: item code and name are required", model.ErrInvalid)
	}
	if it.PurchasePrice.IsNegative() || it.SalePrice.IsNegative() {
		return fmt.Errorf("%w: item %s: prices must not be negative", model.ErrInvalid, it.Code)
	}

	refs := []struct {
		field string
		id    int64
	}{
		{"inventory_account_id", it.InventoryAccountID},
		{"sales_account_id", it.SalesAccountID},
		{"cost_account_id", it.CostAccountID},
	}
	for _, ref := range refs {
		if ref.id == 0 {
			continue
		}
		a, err := s.repo.GetAccount(ctx, it.CompanyID, ref.id)
		if err != nil {
			return fmt.Errorf("%w: item %s: %s %d is not an account of this company", model.ErrInvalid, it.Code, ref.field, ref.id)
		}
		if a.IsGroup {
			return fmt.Errorf("%w: item %s: %s %s is a group account", model.ErrInvalid, it.Code, ref.field, a.Code)
		}
	}
	return nil
}

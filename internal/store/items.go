package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cleared-dev/bukubesar/internal/model"
)

const itemColumns = `id, company_id, code, name, unit, category, purchase_price, sale_price,
	inventory_account_id, sales_account_id, cost_account_id, active`

// CreateItem inserts it and sets its ID.
func (s *Store) CreateItem(ctx context.Context, it *model.Item) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO items (company_id, code, name, unit, category, purchase_price, sale_price,
			inventory_account_id, sales_account_id, cost_account_id, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.CompanyID, it.Code, it.Name, it.Unit, it.Category, it.PurchasePrice, it.SalePrice,
		nullID(it.InventoryAccountID), nullID(it.SalesAccountID), nullID(it.CostAccountID), boolInt(it.Active),
	)
	if err != nil {
		return fmt.Errorf("inserting item %s: %w", it.Code, mapErr(err))
	}
	it.ID, err = res.LastInsertId()
	return err
}

// UpdateItem overwrites the editable fields of it.
func (s *Store) UpdateItem(ctx context.Context, it model.Item) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE items SET code = ?, name = ?, unit = ?, category = ?, purchase_price = ?, sale_price = ?,
			inventory_account_id = ?, sales_account_id = ?, cost_account_id = ?, active = ?
		WHERE id = ? AND company_id = ?`,
		it.Code, it.Name, it.Unit, it.Category, it.PurchasePrice, it.SalePrice,
		nullID(it.InventoryAccountID), nullID(it.SalesAccountID), nullID(it.CostAccountID), boolInt(it.Active),
		it.ID, it.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("updating item %d: %w", it.ID, mapErr(err))
	}
	return affected(res)
}

// DeleteItem removes an item.
func (s *Store) DeleteItem(ctx context.Context, companyID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ? AND company_id = ?`, id, companyID)
	if err != nil {
		return fmt.Errorf("deleting item %d: %w", id, mapErr(err))
	}
	return affected(res)
}

// GetItem returns an item by ID.
func (s *Store) GetItem(ctx context.Context, companyID, id int64) (model.Item, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+itemColumns+` FROM items WHERE id = ? AND company_id = ?`, id, companyID)
	it, err := scanItem(row)
	if err != nil {
		return model.Item{}, fmt.Errorf("getting item %d: %w", id, mapErr(err))
	}
	return it, nil
}

// ListItems returns a company's items ordered by code.
func (s *Store) ListItems(ctx context.Context, companyID int64) ([]model.Item, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+itemColumns+` FROM items WHERE company_id = ? ORDER BY code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func scanItem(sc scanner) (model.Item, error) {
	var it model.Item
	var inv, sales, cost sql.NullInt64
	if err := sc.Scan(&it.ID, &it.CompanyID, &it.Code, &it.Name, &it.Unit, &it.Category, &it.PurchasePrice, &it.SalePrice,
		&inv, &sales, &cost, &it.Active); err != nil {
		return model.Item{}, err
	}
	it.InventoryAccountID = inv.Int64
	it.SalesAccountID = sales.Int64
	it.CostAccountID = cost.Int64
	return it, nil
}

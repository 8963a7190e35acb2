package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/cleared-dev/bukubesar/internal/model"
)

const accountColumns = `id, company_id, code, name, type, kind, parent_id, is_group, active, description`

// CreateAccount inserts a and sets its ID.
func (s *Store) CreateAccount(ctx context.Context, a *model.Account) error {
	return createAccount(ctx, s.db, a)
}

// CreateAccounts inserts a batch of accounts in one transaction.
// ParentRefs maps an index in accts to the index of its parent in the same
// batch; it lets a whole tree be inserted before any ID is known.
func (s *Store) CreateAccounts(ctx context.Context, accts []model.Account, parentRefs map[int]int) error {
	return s.Transaction(ctx, func(tx *sql.Tx) error {
		for i := range accts {
			if p, ok := parentRefs[i]; ok {
				if p >= i {
					return fmt.Errorf("account %s: parent must precede child", accts[i].Code)
				}
				accts[i].ParentID = accts[p].ID
			}
			if err := createAccount(ctx, tx, &accts[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

func createAccount(ctx context.Context, q querier, a *model.Account) error {
	res, err := q.ExecContext(ctx, `
		INSERT INTO accounts (company_id, code, name, type, kind, parent_id, is_group, active, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.CompanyID, a.Code, a.Name, string(a.Type), string(a.Kind), nullID(a.ParentID), boolInt(a.IsGroup), boolInt(a.Active), a.Description,
	)
	if err != nil {
		return fmt.Errorf("inserting account %s: %w", a.Code, mapErr(err))
	}
	a.ID, err = res.LastInsertId()
	return err
}

// UpdateAccount overwrites the editable fields of a.
func (s *Store) UpdateAccount(ctx context.Context, a model.Account) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE accounts SET code = ?, name = ?, type = ?, kind = ?, parent_id = ?, is_group = ?, active = ?, description = ?
		WHERE id = ? AND company_id = ?`,
		a.Code, a.Name, string(a.Type), string(a.Kind), nullID(a.ParentID), boolInt(a.IsGroup), boolInt(a.Active), a.Description,
		a.ID, a.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("updating account %d: %w", a.ID, mapErr(err))
	}
	return affected(res)
}

// DeleteAccount removes an account. Accounts still referenced fail with ErrReferenced.
func (s *Store) DeleteAccount(ctx context.Context, companyID, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM accounts WHERE id = ? AND company_id = ?`, id, companyID)
	if err != nil {
		return fmt.Errorf("deleting account %d: %w", id, mapErr(err))
	}
	return affected(res)
}

// GetAccount returns an account by ID.
func (s *Store) GetAccount(ctx context.Context, companyID, id int64) (model.Account, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = ? AND company_id = ?`, id, companyID)
	a, err := scanAccount(row)
	if err != nil {
		return model.Account{}, fmt.Errorf("getting account %d: %w", id, mapErr(err))
	}
	return a, nil
}

// ListAccounts returns a company's chart of accounts ordered by code.
func (s *Store) ListAccounts(ctx context.Context, companyID int64) ([]model.Account, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE company_id = ? ORDER BY code`, companyID)
	if err != nil {
		return nil, fmt.Errorf("listing accounts: %w", err)
	}
	defer rows.Close()

	var accts []model.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning account: %w", err)
		}
		accts = append(accts, a)
	}
	return accts, rows.Err()
}

// CountAccountDetails returns how many journal lines reference an account.
func (s *Store) CountAccountDetails(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transaction_details WHERE account_id = ?`, accountID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting details for account %d: %w", accountID, err)
	}
	return n, nil
}

func scanAccount(sc scanner) (model.Account, error) {
	var a model.Account
	var typ, kind string
	var parent sql.NullInt64
	if err := sc.Scan(&a.ID, &a.CompanyID, &a.Code, &a.Name, &typ, &kind, &parent, &a.IsGroup, &a.Active, &a.Description); err != nil {
		return model.Account{}, err
	}
	a.Type = model.AccountType(typ)
	a.Kind = model.AccountKind(kind)
	a.ParentID = parent.Int64
	return a, nil
}

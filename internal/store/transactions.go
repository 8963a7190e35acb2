package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"

	"github.com/cleared-dev/bukubesar/internal/model"
	"github.com/cleared-dev/bukubesar/internal/numbering"
)

const transactionColumns = `id, company_id, number, type, date, description, reference, partner_id, status,
	total_debit, total_credit, reversal_of, created_by, posted_by, posted_at, created_at, updated_at`

const detailColumns = `id, transaction_id, line_no, account_id, partner_id, item_id, quantity, description, debit, credit`

// TransactionFilter narrows ListTransactions. Zero fields are ignored.
type TransactionFilter struct {
	CompanyID int64
	From      civil.Date
	To        civil.Date
	Status    model.TransactionStatus
	Type      model.TransactionType
	AccountID int64
	PartnerID int64
	Search    string
	Limit     int
	Offset    int
}

// CreateTransaction inserts the header and details of t. The transaction
// number is allocated from the per-period counter inside the same database
// transaction, so concurrent writers never share a number.
func (s *Store) CreateTransaction(ctx context.Context, t *model.Transaction) error {
	now := time.Now().UTC()
	t.CreatedAt, t.UpdatedAt = now, now

	return s.Transaction(ctx, func(tx *sql.Tx) error {
		number, err := allocateNumber(ctx, tx, t.CompanyID, t.Type, t.Date)
		if err != nil {
			return err
		}
		t.Number = number

		res, err := tx.ExecContext(ctx, `
			INSERT INTO transactions (company_id, number, type, date, description, reference, partner_id, status,
				total_debit, total_credit, reversal_of, created_by, posted_by, posted_at, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.CompanyID, t.Number, string(t.Type), t.Date.String(), t.Description, t.Reference, nullID(t.PartnerID), string(t.Status),
			t.TotalDebit, t.TotalCredit, nullID(t.ReversalOf), t.CreatedBy, t.PostedBy, nullTime(t.PostedAt), t.CreatedAt, t.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("inserting transaction %s: %w", t.Number, mapErr(err))
		}
		if t.ID, err = res.LastInsertId(); err != nil {
			return err
		}
		return insertDetails(ctx, tx, t)
	})
}

// UpdateTransaction replaces a draft's header and details. A change of type or
// period allocates a new number; otherwise the number is kept.
func (s *Store) UpdateTransaction(ctx context.Context, t *model.Transaction) error {
	t.UpdatedAt = time.Now().UTC()

	return s.Transaction(ctx, func(tx *sql.Tx) error {
		cur, err := draftHeader(ctx, tx, t.CompanyID, t.ID)
		if err != nil {
			return err
		}

		t.Number = cur.Number
		t.CreatedAt = cur.CreatedAt
		t.CreatedBy = cur.CreatedBy
		if cur.Type != t.Type || cur.Date.Year != t.Date.Year || cur.Date.Month != t.Date.Month {
			if t.Number, err = allocateNumber(ctx, tx, t.CompanyID, t.Type, t.Date); err != nil {
				return err
			}
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE transactions SET number = ?, type = ?, date = ?, description = ?, reference = ?, partner_id = ?,
				total_debit = ?, total_credit = ?, updated_at = ?
			WHERE id = ?`,
			t.Number, string(t.Type), t.Date.String(), t.Description, t.Reference, nullID(t.PartnerID),
			t.TotalDebit, t.TotalCredit, t.UpdatedAt, t.ID,
		)
		if err != nil {
			return fmt.Errorf("updating transaction %d: %w", t.ID, mapErr(err))
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_details WHERE transaction_id = ?`, t.ID); err != nil {
			return fmt.Errorf("clearing details of transaction %d: %w", t.ID, err)
		}
		return insertDetails(ctx, tx, t)
	})
}

// DeleteTransaction removes a draft and its details.
func (s *Store) DeleteTransaction(ctx context.Context, companyID, id int64) error {
	return s.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := draftHeader(ctx, tx, companyID, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("deleting transaction %d: %w", id, mapErr(err))
		}
		return nil
	})
}

// MarkPosted moves a draft to posted. The status guard in the WHERE clause
// makes the transition happen at most once.
func (s *Store) MarkPosted(ctx context.Context, companyID, id int64, by string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE transactions SET status = ?, posted_by = ?, posted_at = ?, updated_at = ?
		WHERE id = ? AND company_id = ? AND status = ?`,
		string(model.StatusPosted), by, at, at, id, companyID, string(model.StatusDraft),
	)
	if err != nil {
		return fmt.Errorf("posting transaction %d: %w", id, err)
	}
	if err := affected(res); err == nil {
		return nil
	}
	if _, err := s.GetTransactionHeader(ctx, companyID, id); err != nil {
		return err
	}
	return ErrNotDraft
}

// GetTransaction returns a transaction with its details.
func (s *Store) GetTransaction(ctx context.Context, companyID, id int64) (model.Transaction, error) {
	t, err := s.GetTransactionHeader(ctx, companyID, id)
	if err != nil {
		return model.Transaction{}, err
	}
	t.Details, err = listDetails(ctx, s.db, id)
	if err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

// GetTransactionHeader returns a transaction without details.
func (s *Store) GetTransactionHeader(ctx context.Context, companyID, id int64) (model.Transaction, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND company_id = ?`, id, companyID)
	t, err := scanTransaction(row)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("getting transaction %d: %w", id, mapErr(err))
	}
	return t, nil
}

// FindReversal returns the ID of the transaction that reverses id.
func (s *Store) FindReversal(ctx context.Context, id int64) (int64, error) {
	var rid int64
	err := s.db.QueryRowContext(ctx, `SELECT id FROM transactions WHERE reversal_of = ?`, id).Scan(&rid)
	if err != nil {
		return 0, mapErr(err)
	}
	return rid, nil
}

// ListTransactions returns headers matching f ordered by date and number.
func (s *Store) ListTransactions(ctx context.Context, f TransactionFilter) ([]model.Transaction, error) {
	where := []string{"company_id = ?"}
	args := []any{f.CompanyID}

	if f.From != (civil.Date{}) {
		where = append(where, "date >= ?")
		args = append(args, f.From.String())
	}
	if f.To != (civil.Date{}) {
		where = append(where, "date <= ?")
		args = append(args, f.To.String())
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(f.Type))
	}
	if f.PartnerID != 0 {
		where = append(where, "(partner_id = ? OR id IN (SELECT transaction_id FROM transaction_details WHERE partner_id = ?))")
		args = append(args, f.PartnerID, f.PartnerID)
	}
	if f.AccountID != 0 {
		where = append(where, "id IN (SELECT transaction_id FROM transaction_details WHERE account_id = ?)")
		args = append(args, f.AccountID)
	}
	if f.Search != "" {
		where = append(where, "(description LIKE ? OR reference LIKE ? OR number LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like, like)
	}

	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE ` + strings.Join(where, " AND ") + ` ORDER BY date, number`
	if f.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// allocateNumber takes the next sequence of a (company, type, period) counter.
func allocateNumber(ctx context.Context, q querier, companyID int64, typ model.TransactionType, date civil.Date) (string, error) {
	period := numbering.Period(date.Year, int(date.Month))
	var seq int
	err := q.QueryRowContext(ctx, `
		INSERT INTO number_sequences (company_id, type, period, last_seq) VALUES (?, ?, ?, 1)
		ON CONFLICT(company_id, type, period) DO UPDATE SET last_seq = last_seq + 1
		RETURNING last_seq`,
		companyID, string(typ), period,
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("allocating %s number for %s: %w", typ, period, mapErr(err))
	}
	// The caller's transaction rolls back, leaving last_seq at MaxSeq.
	if seq > numbering.MaxSeq {
		return "", fmt.Errorf("%w: %s %s has used all %d numbers", ErrSequenceExhausted, typ, period, numbering.MaxSeq)
	}
	return numbering.Format(typ, date.Year, int(date.Month), seq), nil
}

// draftHeader loads a header inside tx and fails unless it is a draft.
func draftHeader(ctx context.Context, tx *sql.Tx, companyID, id int64) (model.Transaction, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE id = ? AND company_id = ?`, id, companyID)
	t, err := scanTransaction(row)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("getting transaction %d: %w", id, mapErr(err))
	}
	if t.Status != model.StatusDraft {
		return model.Transaction{}, ErrNotDraft
	}
	return t, nil
}

func insertDetails(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	for i := range t.Details {
		d := &t.Details[i]
		d.TransactionID = t.ID
		res, err := tx.ExecContext(ctx, `
			INSERT INTO transaction_details (transaction_id, line_no, account_id, partner_id, item_id, quantity, description, debit, credit)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			d.TransactionID, d.LineNo, d.AccountID, nullID(d.PartnerID), nullID(d.ItemID), d.Quantity, d.Description, d.Debit, d.Credit,
		)
		if err != nil {
			return fmt.Errorf("inserting line %d: %w", d.LineNo, mapErr(err))
		}
		if d.ID, err = res.LastInsertId(); err != nil {
			return err
		}
	}
	return nil
}

func listDetails(ctx context.Context, q querier, transactionID int64) ([]model.Detail, error) {
	rows, err := q.QueryContext(ctx, `SELECT `+detailColumns+` FROM transaction_details WHERE transaction_id = ? ORDER BY line_no`, transactionID)
	if err != nil {
		return nil, fmt.Errorf("listing details of transaction %d: %w", transactionID, err)
	}
	defer rows.Close()

	var details []model.Detail
	for rows.Next() {
		var d model.Detail
		var partner, item sql.NullInt64
		if err := rows.Scan(&d.ID, &d.TransactionID, &d.LineNo, &d.AccountID, &partner, &item, &d.Quantity, &d.Description, &d.Debit, &d.Credit); err != nil {
			return nil, fmt.Errorf("scanning detail: %w", err)
		}
		d.PartnerID = partner.Int64
		d.ItemID = item.Int64
		details = append(details, d)
	}
	return details, rows.Err()
}

func scanTransaction(sc scanner) (model.Transaction, error) {
	var t model.Transaction
	var typ, date, status string
	var partner, reversal sql.NullInt64
	var postedAt sql.NullTime
	if err := sc.Scan(&t.ID, &t.CompanyID, &t.Number, &typ, &date, &t.Description, &t.Reference, &partner, &status,
		&t.TotalDebit, &t.TotalCredit, &reversal, &t.CreatedBy, &t.PostedBy, &postedAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return model.Transaction{}, err
	}
	d, err := civil.ParseDate(date)
	if err != nil {
		return model.Transaction{}, fmt.Errorf("parsing date %q: %w", date, err)
	}
	t.Date = d
	t.Type = model.TransactionType(typ)
	t.Status = model.TransactionStatus(status)
	t.PartnerID = partner.Int64
	t.ReversalOf = reversal.Int64
	if postedAt.Valid {
		at := postedAt.Time
		t.PostedAt = &at
	}
	return t, nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

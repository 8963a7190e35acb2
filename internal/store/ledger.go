package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bukubesar/internal/model"
)

// LedgerLine is one posted journal line joined with its header.
type LedgerLine struct {
	TransactionID int64
	Number        string
	Type          model.TransactionType
	Date          civil.Date
	Description   string // header description
	Memo          string // line description
	Reference     string
	AccountID     int64
	PartnerID     int64 // line partner, falling back to the header partner
	Debit         decimal.Decimal
	Credit        decimal.Decimal
}

// LineFilter narrows PostedLines. A zero From or To leaves that end open.
type LineFilter struct {
	CompanyID  int64
	From       civil.Date
	To         civil.Date
	AccountIDs []int64
}

// PostedLines returns posted journal lines ordered by date, number and line.
// Sums are left to the caller so that they stay exact decimals.
func (s *Store) PostedLines(ctx context.Context, f LineFilter) ([]LedgerLine, error) {
	where := []string{"t.company_id = ?", "t.status = ?"}
	args := []any{f.CompanyID, string(model.StatusPosted)}

	if f.From != (civil.Date{}) {
		where = append(where, "t.date >= ?")
		args = append(args, f.From.String())
	}
	if f.To != (civil.Date{}) {
		where = append(where, "t.date <= ?")
		args = append(args, f.To.String())
	}
	if len(f.AccountIDs) > 0 {
		marks := strings.TrimSuffix(strings.Repeat("?,", len(f.AccountIDs)), ",")
		where = append(where, "d.account_id IN ("+marks+")")
		for _, id := range f.AccountIDs {
			args = append(args, id)
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT t.id, t.number, t.type, t.date, t.description, d.description, t.reference, d.account_id,
			COALESCE(d.partner_id, t.partner_id), d.debit, d.credit
		FROM transaction_details d
		JOIN transactions t ON t.id = d.transaction_id
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY t.date, t.number, d.line_no`, args...)
	if err != nil {
		return nil, fmt.Errorf("querying posted lines: %w", err)
	}
	defer rows.Close()

	var lines []LedgerLine
	for rows.Next() {
		var l LedgerLine
		var typ, date string
		var partner sql.NullInt64
		if err := rows.Scan(&l.TransactionID, &l.Number, &typ, &date, &l.Description, &l.Memo, &l.Reference, &l.AccountID,
			&partner, &l.Debit, &l.Credit); err != nil {
			return nil, fmt.Errorf("scanning posted line: %w", err)
		}
		if l.Date, err = civil.ParseDate(date); err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", date, err)
		}
		l.Type = model.TransactionType(typ)
		l.PartnerID = partner.Int64
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

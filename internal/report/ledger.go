package report

import (
	"context"
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bukubesar/internal/model"
)

// LedgerEntry is one posted line in a general ledger.
type LedgerEntry struct {
	TransactionID int64           `json:"transaction_id"`
	Number        string          `json:"number"`
	Date          civil.Date      `json:"date"`
	Description   string          `json:"description"`
	Memo          string          `json:"memo,omitempty"`
	AccountCode   string          `json:"account_code"`
	Debit         decimal.Decimal `json:"debit"`
	Credit        decimal.Decimal `json:"credit"`
	Balance       decimal.Decimal `json:"balance"`
}

// GeneralLedger is the movement of one account over a period.
type GeneralLedger struct {
	CompanyID      int64           `json:"company_id"`
	Account        model.Account   `json:"account"`
	From           civil.Date      `json:"from,omitzero"`
	To             civil.Date      `json:"to,omitzero"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Entries        []LedgerEntry   `json:"entries"`
	TotalDebit     decimal.Decimal `json:"total_debit"`
	TotalCredit    decimal.Decimal `json:"total_credit"`
	ClosingBalance decimal.Decimal `json:"closing_balance"`
}

// GeneralLedger lists the posted lines of an account between from and to
// with a running balance. A group account covers all its descendants.
// Balances are signed by the account's normal side.
func (s *Service) GeneralLedger(ctx context.Context, companyID, accountID int64, from, to civil.Date) (GeneralLedger, error) {
	_, chart, err := s.books(ctx, companyID)
	if err != nil {
		return GeneralLedger{}, err
	}
	acct, ok := chart.Get(accountID)
	if !ok {
		return GeneralLedger{}, fmt.Errorf("%w: account %d does not exist", model.ErrInvalid, accountID)
	}
	if err := checkRange(from, to); err != nil {
		return GeneralLedger{}, err
	}

	ids := chart.Subtree(accountID)
	side := acct.Type.NormalSide()

	gl := GeneralLedger{
		CompanyID:      companyID,
		Account:        acct,
		From:           from,
		To:             to,
		OpeningBalance: decimal.Zero,
		TotalDebit:     decimal.Zero,
		TotalCredit:    decimal.Zero,
	}

	if from != (civil.Date{}) {
		before, err := s.lines(ctx, companyID, civil.Date{}, from.AddDays(-1), ids...)
		if err != nil {
			return GeneralLedger{}, err
		}
		for _, l := range before {
			gl.OpeningBalance = gl.OpeningBalance.Add(signedAmount(l, side))
		}
	}

	lines, err := s.lines(ctx, companyID, from, to, ids...)
	if err != nil {
		return GeneralLedger{}, err
	}

	running := gl.OpeningBalance
	for _, l := range lines {
		running = running.Add(signedAmount(l, side))
		code := ""
		if a, ok := chart.Get(l.AccountID); ok {
			code = a.Code
		}
		gl.Entries = append(gl.Entries, LedgerEntry{
			TransactionID: l.TransactionID,
			Number:        l.Number,
			Date:          l.Date,
			Description:   l.Description,
			Memo:          l.Memo,
			AccountCode:   code,
			Debit:         l.Debit,
			Credit:        l.Credit,
			Balance:       running,
		})
		gl.TotalDebit = gl.TotalDebit.Add(l.Debit)
		gl.TotalCredit = gl.TotalCredit.Add(l.Credit)
	}
	gl.ClosingBalance = running
	return gl, nil
}

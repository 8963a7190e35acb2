package report

import (
	"context"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bukubesar/internal/model"
)

// TrialBalanceRow is one postable account's movements up to the report date.
type TrialBalanceRow struct {
	AccountID int64             `json:"account_id"`
	Code      string            `json:"code"`
	Name      string            `json:"name"`
	Type      model.AccountType `json:"type"`
	Debit     decimal.Decimal   `json:"debit"`
	Credit    decimal.Decimal   `json:"credit"`
	Balance   decimal.Decimal   `json:"balance"` // signed by the account's normal side
}

// TrialBalance lists every account with posted activity.
type TrialBalance struct {
	CompanyID   int64             `json:"company_id"`
	AsOf        civil.Date        `json:"as_of,omitzero"`
	Rows        []TrialBalanceRow `json:"rows"`
	TotalDebit  decimal.Decimal   `json:"total_debit"`
	TotalCredit decimal.Decimal   `json:"total_credit"`
	Balanced    bool              `json:"balanced"`
}

// TrialBalance sums posted lines per account up to and including asOf.
// A zero asOf covers everything.
func (s *Service) TrialBalance(ctx context.Context, companyID int64, asOf civil.Date) (TrialBalance, error) {
	_, chart, err := s.books(ctx, companyID)
	if err != nil {
		return TrialBalance{}, err
	}
	lines, err := s.lines(ctx, companyID, civil.Date{}, asOf)
	if err != nil {
		return TrialBalance{}, err
	}
	sums := sumByAccount(lines)

	tb := TrialBalance{CompanyID: companyID, AsOf: asOf, TotalDebit: decimal.Zero, TotalCredit: decimal.Zero}
	for _, a := range chart.All() {
		t, ok := sums[a.ID]
		if !ok {
			continue
		}
		tb.Rows = append(tb.Rows, TrialBalanceRow{
			AccountID: a.ID,
			Code:      a.Code,
			Name:      a.Name,
			Type:      a.Type,
			Debit:     t.debit,
			Credit:    t.credit,
			Balance:   t.signed(a.Type.NormalSide()),
		})
		tb.TotalDebit = tb.TotalDebit.Add(t.debit)
		tb.TotalCredit = tb.TotalCredit.Add(t.credit)
	}
	tb.Balanced = tb.TotalDebit.Equal(tb.TotalCredit)
	return tb, nil
}

// BalanceSheet is the statement of financial position at a date.
type BalanceSheet struct {
	CompanyID   int64      `json:"company_id"`
	AsOf        civil.Date `json:"as_of"`
	Assets      Section    `json:"assets"`
	Liabilities Section    `json:"liabilities"`
	Equity      Section    `json:"equity"`
	// CurrentEarnings is revenue minus expenses since the start of the fiscal
	// year containing AsOf. RetainedEarnings is the same for all earlier
	// periods. Both are included in Equity.Total.
	CurrentEarnings        decimal.Decimal `json:"current_earnings"`
	RetainedEarnings       decimal.Decimal `json:"retained_earnings"`
	TotalLiabilitiesEquity decimal.Decimal `json:"total_liabilities_equity"`
	Balanced               bool            `json:"balanced"`
}

// Labels of the computed equity rows.
const (
	LabelRetainedEarnings = "Laba Ditahan Tahun Lalu"
	LabelCurrentEarnings  = "Laba Tahun Berjalan"
)

// BalanceSheet reports assets, liabilities and equity at asOf. Income and
// expense accounts are never closed, so their balances flow into equity as
// computed earnings rows.
func (s *Service) BalanceSheet(ctx context.Context, companyID int64, asOf civil.Date) (BalanceSheet, error) {
	company, chart, err := s.books(ctx, companyID)
	if err != nil {
		return BalanceSheet{}, err
	}
	if asOf == (civil.Date{}) {
		asOf = civil.DateOf(timeNow())
	}
	lines, err := s.lines(ctx, companyID, civil.Date{}, asOf)
	if err != nil {
		return BalanceSheet{}, err
	}

	fyStart := company.FiscalYearStartFor(asOf)
	current, retained := decimal.Zero, decimal.Zero
	for _, l := range lines {
		a, ok := chart.Get(l.AccountID)
		if !ok || a.Type.IsBalanceSheet() {
			continue
		}
		// Earnings are revenue-positive whatever the account's own side.
		amt := signedAmount(l, model.SideCredit)
		if l.Date.Before(fyStart) {
			retained = retained.Add(amt)
		} else {
			current = current.Add(amt)
		}
	}

	bal := balances(chart, sumByAccount(lines))
	bs := BalanceSheet{
		CompanyID:        companyID,
		AsOf:             asOf,
		Assets:           section(chart, model.AccountTypeAsset, bal),
		Liabilities:      section(chart, model.AccountTypeLiability, bal),
		Equity:           section(chart, model.AccountTypeEquity, bal),
		CurrentEarnings:  current,
		RetainedEarnings: retained,
	}
	if !retained.IsZero() {
		bs.Equity.Lines = append(bs.Equity.Lines, Line{Name: LabelRetainedEarnings, Amount: retained})
	}
	bs.Equity.Lines = append(bs.Equity.Lines, Line{Name: LabelCurrentEarnings, Amount: current})
	bs.Equity.Total = bs.Equity.Total.Add(retained).Add(current)

	bs.TotalLiabilitiesEquity = bs.Liabilities.Total.Add(bs.Equity.Total)
	bs.Balanced = bs.Assets.Total.Equal(bs.TotalLiabilitiesEquity)
	return bs, nil
}

// IncomeStatement is the profit and loss over a period.
type IncomeStatement struct {
	CompanyID int64           `json:"company_id"`
	From      civil.Date      `json:"from"`
	To        civil.Date      `json:"to"`
	Revenue   Section         `json:"revenue"`
	Expenses  Section         `json:"expenses"`
	NetIncome decimal.Decimal `json:"net_income"`
}

// IncomeStatement reports revenue and expenses between from and to
// inclusive. A zero from starts at the fiscal year containing to.
func (s *Service) IncomeStatement(ctx context.Context, companyID int64, from, to civil.Date) (IncomeStatement, error) {
	company, chart, err := s.books(ctx, companyID)
	if err != nil {
		return IncomeStatement{}, err
	}
	if to == (civil.Date{}) {
		to = civil.DateOf(timeNow())
	}
	if from == (civil.Date{}) {
		from = company.FiscalYearStartFor(to)
	}
	if err := checkRange(from, to); err != nil {
		return IncomeStatement{}, err
	}

	lines, err := s.lines(ctx, companyID, from, to)
	if err != nil {
		return IncomeStatement{}, err
	}
	bal := balances(chart, sumByAccount(lines))

	is := IncomeStatement{
		CompanyID: companyID,
		From:      from,
		To:        to,
		Revenue:   section(chart, model.AccountTypeRevenue, bal),
		Expenses:  section(chart, model.AccountTypeExpense, bal),
	}
	is.NetIncome = is.Revenue.Total.Sub(is.Expenses.Total)
	return is, nil
}

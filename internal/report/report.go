// Package report builds financial statements from posted transactions.
package report

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bukubesar/internal/accounts"
	"github.com/cleared-dev/bukubesar/internal/model"
	"github.com/cleared-dev/bukubesar/internal/store"
)

// Repository is the read access reports need.
type Repository interface {
	GetCompany(ctx context.Context, id int64) (model.Company, error)
	ListAccounts(ctx context.Context, companyID int64) ([]model.Account, error)
	ListPartners(ctx context.Context, companyID int64) ([]model.Partner, error)
	PostedLines(ctx context.Context, f store.LineFilter) ([]store.LedgerLine, error)
}

var timeNow = time.Now

// Service builds reports. Drafts never contribute to any figure.
type Service struct {
	repo Repository
}

// NewService creates a report Service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Line is one account row of a hierarchical statement section. Group rows
// carry the sum of their descendants.
type Line struct {
	AccountID int64           `json:"account_id,omitempty"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Level     int             `json:"level"`
	IsGroup   bool            `json:"is_group"`
	Amount    decimal.Decimal `json:"amount"`
}

// Section is one account type's part of a statement.
type Section struct {
	Type  model.AccountType `json:"type"`
	Lines []Line            `json:"lines"`
	Total decimal.Decimal   `json:"total"`
}

// totals accumulates debits and credits per account.
type totals struct {
	debit  decimal.Decimal
	credit decimal.Decimal
}

func (t totals) signed(side model.Side) decimal.Decimal {
	if side == model.SideDebit {
		return t.debit.Sub(t.credit)
	}
	return t.credit.Sub(t.debit)
}

// signedAmount returns a line's effect on an account with the given normal side.
func signedAmount(l store.LedgerLine, side model.Side) decimal.Decimal {
	return totals{debit: l.Debit, credit: l.Credit}.signed(side)
}

func sumByAccount(lines []store.LedgerLine) map[int64]totals {
	sums := make(map[int64]totals)
	for _, l := range lines {
		t := sums[l.AccountID]
		t.debit = t.debit.Add(l.Debit)
		t.credit = t.credit.Add(l.Credit)
		sums[l.AccountID] = t
	}
	return sums
}

// balances converts per-account totals into balances signed by each
// account's normal side.
func balances(chart *accounts.Chart, sums map[int64]totals) map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal, len(sums))
	for id, t := range sums {
		a, ok := chart.Get(id)
		if !ok {
			continue
		}
		out[id] = t.signed(a.Type.NormalSide())
	}
	return out
}

// section walks the chart for one account type and rolls balances up into
// group rows. Rows whose amount is zero are left out.
func section(chart *accounts.Chart, typ model.AccountType, bal map[int64]decimal.Decimal) Section {
	sec := Section{Type: typ, Total: decimal.Zero}

	var subtotal func(a model.Account) decimal.Decimal
	subtotal = func(a model.Account) decimal.Decimal {
		sum := bal[a.ID]
		for _, c := range chart.Children(a.ID) {
			sum = sum.Add(subtotal(c))
		}
		return sum
	}

	var walk func(a model.Account, level int)
	walk = func(a model.Account, level int) {
		amt := subtotal(a)
		if amt.IsZero() {
			return
		}
		sec.Lines = append(sec.Lines, Line{
			AccountID: a.ID,
			Code:      a.Code,
			Name:      a.Name,
			Level:     level,
			IsGroup:   a.IsGroup,
			Amount:    amt,
		})
		for _, c := range chart.Children(a.ID) {
			walk(c, level+1)
		}
	}

	for _, r := range chart.Roots() {
		if r.Type != typ {
			continue
		}
		sec.Total = sec.Total.Add(subtotal(r))
		walk(r, 0)
	}
	return sec
}

func (s *Service) books(ctx context.Context, companyID int64) (model.Company, *accounts.Chart, error) {
	company, err := s.repo.GetCompany(ctx, companyID)
	if err != nil {
		return model.Company{}, nil, err
	}
	accts, err := s.repo.ListAccounts(ctx, companyID)
	if err != nil {
		return model.Company{}, nil, fmt.Errorf("loading chart of accounts: %w", err)
	}
	return company, accounts.NewChart(accts), nil
}

func (s *Service) lines(ctx context.Context, companyID int64, from, to civil.Date, accountIDs ...int64) ([]store.LedgerLine, error) {
	lines, err := s.repo.PostedLines(ctx, store.LineFilter{CompanyID: companyID, From: from, To: to, AccountIDs: accountIDs})
	if err != nil {
		return nil, fmt.Errorf("loading posted lines: %w", err)
	}
	return lines, nil
}

func checkRange(from, to civil.Date) error {
	if from != (civil.Date{}) && to != (civil.Date{}) && to.Before(from) {
		return fmt.Errorf("%w: period ends (%s) before it starts (%s)", model.ErrInvalid, to, from)
	}
	return nil
}

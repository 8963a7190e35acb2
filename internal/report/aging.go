package report

import (
	"context"
	"sort"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bukubesar/internal/model"
)

// AgingRow is one partner's outstanding balance split by age.
type AgingRow struct {
	PartnerID   int64           `json:"partner_id,omitempty"`
	PartnerCode string          `json:"partner_code,omitempty"`
	PartnerName string          `json:"partner_name"`
	Current     decimal.Decimal `json:"current"` // 0-30 days
	Days31To60  decimal.Decimal `json:"days_31_60"`
	Days61To90  decimal.Decimal `json:"days_61_90"`
	Over90      decimal.Decimal `json:"over_90"`
	Total       decimal.Decimal `json:"total"`
}

func (r *AgingRow) add(days int, amt decimal.Decimal) {
	switch {
	case days <= 30:
		r.Current = r.Current.Add(amt)
	case days <= 60:
		r.Days31To60 = r.Days31To60.Add(amt)
	case days <= 90:
		r.Days61To90 = r.Days61To90.Add(amt)
	default:
		r.Over90 = r.Over90.Add(amt)
	}
	r.Total = r.Total.Add(amt)
}

func newAgingRow() AgingRow {
	return AgingRow{Current: decimal.Zero, Days31To60: decimal.Zero, Days61To90: decimal.Zero, Over90: decimal.Zero, Total: decimal.Zero}
}

// Aging lists what partners owe, or are owed, on receivable or payable accounts.
type Aging struct {
	CompanyID int64             `json:"company_id"`
	Kind      model.AccountKind `json:"kind"`
	AsOf      civil.Date        `json:"as_of"`
	Rows      []AgingRow        `json:"rows"`
	Totals    AgingRow          `json:"totals"`
}

// UnassignedPartner names the row collecting lines without a partner.
const UnassignedPartner = "(tanpa relasi)"

// Receivables ages customer balances on receivable accounts.
func (s *Service) Receivables(ctx context.Context, companyID int64, asOf civil.Date) (Aging, error) {
	return s.aging(ctx, companyID, model.AccountKindReceivable, asOf)
}

// Payables ages supplier balances on payable accounts.
func (s *Service) Payables(ctx context.Context, companyID int64, asOf civil.Date) (Aging, error) {
	return s.aging(ctx, companyID, model.AccountKindPayable, asOf)
}

type charge struct {
	date   civil.Date
	amount decimal.Decimal
}

// aging settles each partner's decreases against the oldest increases first
// and ages what is left by the date of the increase.
func (s *Service) aging(ctx context.Context, companyID int64, kind model.AccountKind, asOf civil.Date) (Aging, error) {
	_, chart, err := s.books(ctx, companyID)
	if err != nil {
		return Aging{}, err
	}
	if asOf == (civil.Date{}) {
		asOf = civil.DateOf(timeNow())
	}

	rep := Aging{CompanyID: companyID, Kind: kind, AsOf: asOf, Totals: newAgingRow()}
	rep.Totals.PartnerName = "Total"

	accts := chart.ByKind(kind)
	if len(accts) == 0 {
		return rep, nil
	}
	ids := make([]int64, len(accts))
	for i, a := range accts {
		ids[i] = a.ID
	}
	side := accts[0].Type.NormalSide()

	lines, err := s.lines(ctx, companyID, civil.Date{}, asOf, ids...)
	if err != nil {
		return Aging{}, err
	}

	charges := make(map[int64][]charge)
	settled := make(map[int64]decimal.Decimal)
	for _, l := range lines {
		amt := signedAmount(l, side)
		if amt.IsPositive() {
			charges[l.PartnerID] = append(charges[l.PartnerID], charge{date: l.Date, amount: amt})
		} else {
			settled[l.PartnerID] = settled[l.PartnerID].Add(amt.Neg())
		}
		if _, ok := charges[l.PartnerID]; !ok {
			charges[l.PartnerID] = nil
		}
	}

	partners, err := s.repo.ListPartners(ctx, companyID)
	if err != nil {
		return Aging{}, err
	}
	byID := make(map[int64]model.Partner, len(partners))
	for _, p := range partners {
		byID[p.ID] = p
	}

	for pid, cs := range charges {
		row := newAgingRow()
		row.PartnerID = pid
		if p, ok := byID[pid]; ok {
			row.PartnerCode = p.Code
			row.PartnerName = p.Name
		} else {
			row.PartnerName = UnassignedPartner
		}

		left := settled[pid]
		for _, c := range cs {
			if left.GreaterThanOrEqual(c.amount) {
				left = left.Sub(c.amount)
				continue
			}
			row.add(asOf.DaysSince(c.date), c.amount.Sub(left))
			left = decimal.Zero
		}
		if left.IsPositive() {
			// Overpaid: a credit balance, shown as current.
			row.add(0, left.Neg())
		}

		if row.Total.IsZero() {
			continue
		}
		rep.Rows = append(rep.Rows, row)
		rep.Totals.add(0, row.Current)
		rep.Totals.add(31, row.Days31To60)
		rep.Totals.add(61, row.Days61To90)
		rep.Totals.add(91, row.Over90)
	}

	sort.Slice(rep.Rows, func(i, j int) bool {
		a, b := rep.Rows[i], rep.Rows[j]
		if (a.PartnerID == 0) != (b.PartnerID == 0) {
			return b.PartnerID == 0
		}
		if a.PartnerCode != b.PartnerCode {
			return a.PartnerCode < b.PartnerCode
		}
		return a.PartnerID < b.PartnerID
	})
	return rep, nil
}

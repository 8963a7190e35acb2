package journal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/cleared-dev/bukubesar/internal/model"
)

// Validation rules, numbered as reported in ValidationError.Rule.
const (
	RuleBalanced    = 1
	RuleOneSide     = 2
	RuleAccount     = 3
	RuleLockedDate  = 4
	RuleMinLines    = 5
	RuleScale       = 6
	RuleNonNegative = 7
	RuleNonZero     = 8
)

// ValidationError describes a single rule violation. Line is the 1-based
// detail line, or 0 when the rule applies to the whole transaction.
type ValidationError struct {
	Rule        int    `json:"rule"`
	Line        int    `json:"line,omitempty"`
	Description string `json:"description"`
}

func (e ValidationError) Error() string {
	if e.Line == 0 {
		return fmt.Sprintf("rule %d: %s", e.Rule, e.Description)
	}
	return fmt.Sprintf("rule %d [line %d]: %s", e.Rule, e.Line, e.Description)
}

// ValidationErrors is returned by the service when a transaction breaks one or more rules.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, ve := range errs {
		msgs[i] = ve.Error()
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// AccountLookup resolves account IDs against a company's chart.
type AccountLookup interface {
	Get(id int64) (model.Account, bool)
}

// ReferenceLookup resolves the partners and items a transaction points at.
type ReferenceLookup interface {
	Partner(id int64) (model.Partner, bool)
	Item(id int64) (model.Item, bool)
}

// References is a ReferenceLookup over preloaded master data. The zero value
// knows no partners or items.
type References struct {
	Partners map[int64]model.Partner
	Items    map[int64]model.Item
}

// NewReferences indexes partners and items by ID.
func NewReferences(partners []model.Partner, items []model.Item) References {
	r := References{
		Partners: make(map[int64]model.Partner, len(partners)),
		Items:    make(map[int64]model.Item, len(items)),
	}
	for _, p := range partners {
		r.Partners[p.ID] = p
	}
	for _, it := range items {
		r.Items[it.ID] = it
	}
	return r
}

func (r References) Partner(id int64) (model.Partner, bool) {
	p, ok := r.Partners[id]
	return p, ok
}

func (r References) Item(id int64) (model.Item, bool) {
	it, ok := r.Items[id]
	return it, ok
}

var hundred = decimal.NewFromInt(100)

// ValidateTransaction checks t against the posting rules. Totals are taken
// from the details, not the header. Balance and a non-zero total are only
// required when requireBalanced is set, so drafts can be saved half done.
// Partners and items must belong to the company; a nil refs knows none.
func ValidateTransaction(t model.Transaction, accounts AccountLookup, refs ReferenceLookup, company model.Company, requireBalanced bool) []ValidationError {
	var errs []ValidationError
	if refs == nil {
		refs = References{}
	}

	if msg := checkPartner(t.PartnerID, refs, company.ID); msg != "" {
		errs = append(errs, ValidationError{Rule: RuleAccount, Description: msg})
	}

	if len(t.Details) < 2 {
		errs = append(errs, ValidationError{
			Rule:        RuleMinLines,
			Description: fmt.Sprintf("a transaction needs at least 2 lines, got %d", len(t.Details)),
		})
	}

	if company.Locked(t.Date) {
		errs = append(errs, ValidationError{
			Rule:        RuleLockedDate,
			Description: fmt.Sprintf("date %s falls in the locked period (until %s)", t.Date, company.LockedUntil),
		})
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero

	for i, d := range t.Details {
		line := i + 1
		totalDebit = totalDebit.Add(d.Debit)
		totalCredit = totalCredit.Add(d.Credit)

		if d.Debit.IsNegative() || d.Credit.IsNegative() {
			errs = append(errs, ValidationError{
				Rule:        RuleNonNegative,
				Line:        line,
				Description: "amounts must not be negative",
			})
		}

		if d.Debit.IsZero() == d.Credit.IsZero() {
			errs = append(errs, ValidationError{
				Rule:        RuleOneSide,
				Line:        line,
				Description: "line must have exactly one of debit or credit",
			})
		}

		for _, amt := range []decimal.Decimal{d.Debit, d.Credit} {
			if !hasCents(amt) {
				errs = append(errs, ValidationError{
					Rule:        RuleScale,
					Line:        line,
					Description: fmt.Sprintf("amount %s has more than 2 decimal places", amt),
				})
			}
		}

		if msg := checkAccount(d.AccountID, accounts, company.ID); msg != "" {
			errs = append(errs, ValidationError{
				Rule:        RuleAccount,
				Line:        line,
				Description: msg,
			})
		}
		if msg := checkPartner(d.PartnerID, refs, company.ID); msg != "" {
			errs = append(errs, ValidationError{Rule: RuleAccount, Line: line, Description: msg})
		}
		if msg := checkItem(d.ItemID, refs, company.ID); msg != "" {
			errs = append(errs, ValidationError{Rule: RuleAccount, Line: line, Description: msg})
		}
	}

	if requireBalanced {
		if !totalDebit.Equal(totalCredit) {
			errs = append(errs, ValidationError{
				Rule:        RuleBalanced,
				Description: fmt.Sprintf("debits (%s) != credits (%s)", totalDebit.StringFixed(2), totalCredit.StringFixed(2)),
			})
		}
		if totalDebit.IsZero() && totalCredit.IsZero() {
			errs = append(errs, ValidationError{
				Rule:        RuleNonZero,
				Description: "transaction total is zero",
			})
		}
	}

	return errs
}

func hasCents(d decimal.Decimal) bool {
	scaled := d.Mul(hundred)
	return scaled.Equal(scaled.Truncate(0))
}

func checkAccount(id int64, accounts AccountLookup, companyID int64) string {
	a, ok := accounts.Get(id)
	switch {
	case !ok:
		return fmt.Sprintf("unknown account %d", id)
	case a.CompanyID != companyID:
		return fmt.Sprintf("account %s belongs to another company", a.Code)
	case a.IsGroup:
		return fmt.Sprintf("account %s is a group account", a.Code)
	case !a.Active:
		return fmt.Sprintf("account %s is inactive", a.Code)
	}
	return ""
}

// checkPartner allows 0, meaning no partner.
func checkPartner(id int64, refs ReferenceLookup, companyID int64) string {
	if id == 0 {
		return ""
	}
	p, ok := refs.Partner(id)
	switch {
	case !ok:
		return fmt.Sprintf("unknown partner %d", id)
	case p.CompanyID != companyID:
		return fmt.Sprintf("partner %s belongs to another company", p.Code)
	}
	return ""
}

func checkItem(id int64, refs ReferenceLookup, companyID int64) string {
	if id == 0 {
		return ""
	}
	it, ok := refs.Item(id)
	switch {
	case !ok:
		return fmt.Sprintf("unknown item %d", id)
	case it.CompanyID != companyID:
		return fmt.Sprintf("item %s belongs to another company", it.Code)
	}
	return ""
}

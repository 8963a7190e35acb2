package journal

import (
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/cleared-dev/bukubesar/internal/accounts"
	"github.com/cleared-dev/bukubesar/internal/model"
)

const (
	acctGroup    = 1
	acctCash     = 2
	acctRevenue  = 3
	acctInactive = 4
	acctForeign  = 5
)

func testChart() *accounts.Chart {
	return accounts.NewChart([]model.Account{
		{ID: acctGroup, CompanyID: 1, Code: "1", Name: "Aset", Type: model.AccountTypeAsset, IsGroup: true, Active: true},
		{ID: acctCash, CompanyID: 1, Code: "1-1100", Name: "Kas", Type: model.AccountTypeAsset, ParentID: acctGroup, Active: true},
		{ID: acctRevenue, CompanyID: 1, Code: "4-1100", Name: "Penjualan", Type: model.AccountTypeRevenue, Active: true},
		{ID: acctInactive, CompanyID: 1, Code: "4-9000", Name: "Lama", Type: model.AccountTypeRevenue},
		{ID: acctForeign, CompanyID: 2, Code: "4-1101", Name: "Penjualan", Type: model.AccountTypeRevenue, Active: true},
	})
}

var testCompany = model.Company{ID: 1, Code: "PT1", Name: "PT Satu", FiscalYearStart: 1}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func txn(lines ...model.Detail) model.Transaction {
	t := model.Transaction{
		CompanyID: 1,
		Type:      model.TypeGeneral,
		Date:      civil.Date{Year: 2025, Month: time.January, Day: 15},
		Details:   lines,
	}
	t.Recompute()
	return t
}

func debit(acct int64, amt string) model.Detail {
	return model.Detail{AccountID: acct, Debit: d(amt)}
}

func credit(acct int64, amt string) model.Detail {
	return model.Detail{AccountID: acct, Credit: d(amt)}
}

func rules(errs []ValidationError) []int {
	var out []int
	for _, e := range errs {
		out = append(out, e.Rule)
	}
	return out
}

func TestValidBalancedTransaction(t *testing.T) {
	errs := ValidateTransaction(txn(debit(acctCash, "150000"), credit(acctRevenue, "150000")), testChart(), nil, testCompany, true)
	assert.Empty(t, errs)
}

func TestUnbalancedDraftAllowed(t *testing.T) {
	tx := txn(debit(acctCash, "150000"), credit(acctRevenue, "100000"))

	assert.Empty(t, ValidateTransaction(tx, testChart(), nil, testCompany, false))

	errs := ValidateTransaction(tx, testChart(), nil, testCompany, true)
	assert.Equal(t, []int{RuleBalanced}, rules(errs))
	assert.Contains(t, errs[0].Description, "150000.00")
}

func TestValidationRules(t *testing.T) {
	tests := []struct {
		name  string
		tx    model.Transaction
		rules []int
		line  int
	}{
		{
			name:  "both sides on one line",
			tx:    txn(model.Detail{AccountID: acctCash, Debit: d("10"), Credit: d("10")}, credit(acctRevenue, "0.01")),
			rules: []int{RuleOneSide, RuleBalanced},
			line:  1,
		},
		{
			name:  "empty line",
			tx:    txn(debit(acctCash, "10"), credit(acctRevenue, "10"), model.Detail{AccountID: acctCash}),
			rules: []int{RuleOneSide},
			line:  3,
		},
		{
			name:  "unknown account",
			tx:    txn(debit(99, "10"), credit(acctRevenue, "10")),
			rules: []int{RuleAccount},
			line:  1,
		},
		{
			name:  "group account",
			tx:    txn(debit(acctGroup, "10"), credit(acctRevenue, "10")),
			rules: []int{RuleAccount},
			line:  1,
		},
		{
			name:  "inactive account",
			tx:    txn(debit(acctCash, "10"), credit(acctInactive, "10")),
			rules: []int{RuleAccount},
			line:  2,
		},
		{
			name:  "other company's account",
			tx:    txn(debit(acctCash, "10"), credit(acctForeign, "10")),
			rules: []int{RuleAccount},
			line:  2,
		},
		{
			name:  "single line",
			tx:    txn(debit(acctCash, "10")),
			rules: []int{RuleMinLines, RuleBalanced},
		},
		{
			name:  "three decimals",
			tx:    txn(debit(acctCash, "10.005"), credit(acctRevenue, "10.005")),
			rules: []int{RuleScale, RuleScale},
			line:  1,
		},
		{
			name:  "negative amount",
			tx:    txn(debit(acctCash, "-10"), credit(acctRevenue, "-10")),
			rules: []int{RuleNonNegative, RuleNonNegative},
			line:  1,
		},
		{
			name:  "zero total",
			tx:    txn(model.Detail{AccountID: acctCash}, model.Detail{AccountID: acctRevenue}),
			rules: []int{RuleOneSide, RuleOneSide, RuleNonZero},
			line:  1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateTransaction(tt.tx, testChart(), nil, testCompany, true)
			assert.Equal(t, tt.rules, rules(errs))
			if tt.line != 0 {
				assert.Equal(t, tt.line, errs[0].Line)
			}
		})
	}
}

func TestLockedPeriod(t *testing.T) {
	company := testCompany
	company.LockedUntil = civil.Date{Year: 2025, Month: time.January, Day: 31}

	tx := txn(debit(acctCash, "10"), credit(acctRevenue, "10"))
	errs := ValidateTransaction(tx, testChart(), nil, company, false)
	assert.Equal(t, []int{RuleLockedDate}, rules(errs))

	tx.Date = civil.Date{Year: 2025, Month: time.February, Day: 1}
	assert.Empty(t, ValidateTransaction(tx, testChart(), nil, company, true))
}

func TestValidationErrorsMessage(t *testing.T) {
	errs := ValidationErrors{
		{Rule: RuleBalanced, Description: "debits (1.00) != credits (2.00)"},
		{Rule: RuleAccount, Line: 2, Description: "unknown account 9"},
	}
	assert.Equal(t,
		"validation failed: rule 1: debits (1.00) != credits (2.00); rule 3 [line 2]: unknown account 9",
		errs.Error())
}

func TestPartnerAndItemScope(t *testing.T) {
	refs := NewReferences(
		[]model.Partner{
			{ID: 10, CompanyID: 1, Code: "C-001", Name: "Toko Maju"},
			{ID: 11, CompanyID: 2, Code: "C-X", Name: "Toko Lain"},
		},
		[]model.Item{
			{ID: 20, CompanyID: 1, Code: "BRG-1", Name: "Kertas"},
			{ID: 21, CompanyID: 2, Code: "BRG-X", Name: "Tinta"},
		},
	)

	ok := txn(
		model.Detail{AccountID: acctCash, PartnerID: 10, Debit: d("50")},
		model.Detail{AccountID: acctRevenue, ItemID: 20, Credit: d("50")},
	)
	ok.PartnerID = 10
	assert.Empty(t, ValidateTransaction(ok, testChart(), refs, testCompany, true))

	foreignPartner := ok
	foreignPartner.PartnerID = 11

	tests := []struct {
		name  string
		tx    model.Transaction
		refs  ReferenceLookup
		line  int
		match string
	}{
		{
			name:  "header partner of another company",
			tx:    foreignPartner,
			refs:  refs,
			match: "partner C-X belongs to another company",
		},
		{
			name:  "line partner unknown",
			tx:    txn(model.Detail{AccountID: acctCash, PartnerID: 99, Debit: d("50")}, credit(acctRevenue, "50")),
			refs:  refs,
			line:  1,
			match: "unknown partner 99",
		},
		{
			name:  "line item of another company",
			tx:    txn(debit(acctCash, "50"), model.Detail{AccountID: acctRevenue, ItemID: 21, Credit: d("50")}),
			refs:  refs,
			line:  2,
			match: "item BRG-X belongs to another company",
		},
		{
			name:  "no lookup knows no items",
			tx:    txn(model.Detail{AccountID: acctCash, ItemID: 20, Debit: d("50")}, credit(acctRevenue, "50")),
			line:  1,
			match: "unknown item 20",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateTransaction(tt.tx, testChart(), tt.refs, testCompany, false)
			if assert.Len(t, errs, 1) {
				assert.Equal(t, RuleAccount, errs[0].Rule)
				assert.Equal(t, tt.line, errs[0].Line)
				assert.Contains(t, errs[0].Description, tt.match)
			}
		})
	}
}

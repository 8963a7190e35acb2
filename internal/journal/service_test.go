package journal

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bukubesar/internal/accounts"
	"github.com/cleared-dev/bukubesar/internal/audit"
	"github.com/cleared-dev/bukubesar/internal/model"
	"github.com/cleared-dev/bukubesar/internal/store"
)

type fixture struct {
	svc     *Service
	store   *store.Store
	audit   *audit.Log
	company model.Company
	cash    int64
	revenue int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()

	st, err := store.Open(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	c := model.Company{Code: "PT1", Name: "PT Satu", Currency: "IDR", FiscalYearStart: 1}
	require.NoError(t, st.CreateCompany(ctx, &c))

	acctSvc := accounts.NewService(st)
	require.NoError(t, acctSvc.SeedDefault(ctx, c.ID))
	chart, err := acctSvc.Chart(ctx, c.ID)
	require.NoError(t, err)
	cash, _ := chart.ByCode("1-1100")
	revenue, _ := chart.ByCode("4-1200")

	log := audit.New(filepath.Join(dir, audit.FileName))
	svc := NewService(st, log, nil)
	svc.now = func() time.Time { return time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC) }

	return &fixture{svc: svc, store: st, audit: log, company: c, cash: cash.ID, revenue: revenue.ID}
}

func (f *fixture) receipt(day int, dr, cr string) model.Transaction {
	return model.Transaction{
		CompanyID:   f.company.ID,
		Type:        model.TypeCashReceipt,
		Date:        civil.Date{Year: 2025, Month: time.January, Day: day},
		Description: "Jasa konsultasi",
		Details: []model.Detail{
			{AccountID: f.cash, Debit: d(dr)},
			{AccountID: f.revenue, Credit: d(cr)},
		},
	}
}

func validationRules(t *testing.T, err error) []int {
	t.Helper()
	var verrs ValidationErrors
	require.True(t, errors.As(err, &verrs), "expected ValidationErrors, got %v", err)
	return rules(verrs)
}

func TestCreateDraftAllowsUnbalanced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, "budi", f.receipt(15, "150000", "100000"), false)
	require.NoError(t, err)
	assert.Equal(t, "KM-2025-01-0001", tx.Number)
	assert.Equal(t, model.StatusDraft, tx.Status)
	assert.True(t, tx.TotalDebit.Equal(d("150000")), "totals come from the lines")
	assert.True(t, tx.TotalCredit.Equal(d("100000")))
	assert.Equal(t, "budi", tx.CreatedBy)

	entries, err := f.audit.Read(audit.Filter{Entity: "transaction", EntityID: tx.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionCreate, entries[0].Action)
}

func TestCreateIgnoresClientTotalsAndStatus(t *testing.T) {
	f := newFixture(t)

	in := f.receipt(15, "10", "10")
	in.TotalDebit = d("999")
	in.Status = model.StatusPosted
	in.PostedBy = "mallory"

	tx, err := f.svc.Create(context.Background(), "budi", in, false)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDraft, tx.Status)
	assert.True(t, tx.TotalDebit.Equal(d("10")))
	assert.Empty(t, tx.PostedBy)
}

func TestCreateAndPostRequiresBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "budi", f.receipt(15, "150000", "100000"), true)
	assert.Equal(t, []int{RuleBalanced}, validationRules(t, err))

	tx, err := f.svc.Create(ctx, "budi", f.receipt(15, "150000", "150000"), true)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPosted, tx.Status)
	assert.Equal(t, "budi", tx.PostedBy)
	require.NotNil(t, tx.PostedAt)
}

func TestCreateRejectsBadHeader(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	in := f.receipt(15, "1", "1")
	in.Type = "XX"
	_, err := f.svc.Create(ctx, "budi", in, false)
	assert.ErrorIs(t, err, model.ErrInvalid)

	in = f.receipt(15, "1", "1")
	in.Date = civil.Date{}
	_, err = f.svc.Create(ctx, "budi", in, false)
	assert.ErrorIs(t, err, model.ErrInvalid)

	in = f.receipt(15, "1", "1")
	in.CompanyID = 999
	_, err = f.svc.Create(ctx, "budi", in, false)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestCreateRejectsPartnerOfAnotherCompany(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	other := model.Company{Code: "PT2", Name: "PT Dua", Currency: "IDR", FiscalYearStart: 1}
	require.NoError(t, f.store.CreateCompany(ctx, &other))
	foreign := model.Partner{CompanyID: other.ID, Code: "C-X", Name: "Toko Lain", Role: model.PartnerCustomer, Active: true}
	require.NoError(t, f.store.CreatePartner(ctx, &foreign))
	own := model.Partner{CompanyID: f.company.ID, Code: "C-001", Name: "Toko Maju", Role: model.PartnerCustomer, Active: true}
	require.NoError(t, f.store.CreatePartner(ctx, &own))

	in := f.receipt(15, "100000", "100000")
	in.PartnerID = foreign.ID
	in.Details[0].PartnerID = foreign.ID
	_, err := f.svc.Create(ctx, "budi", in, true)
	assert.Equal(t, []int{RuleAccount, RuleAccount}, validationRules(t, err))

	in = f.receipt(15, "100000", "100000")
	in.Details[1].PartnerID = 9999
	_, err = f.svc.Create(ctx, "budi", in, false)
	assert.Equal(t, []int{RuleAccount}, validationRules(t, err))
	assert.NotErrorIs(t, err, store.ErrReferenced)

	in = f.receipt(15, "100000", "100000")
	in.Details[0].ItemID = 9999
	_, err = f.svc.Create(ctx, "budi", in, false)
	assert.Equal(t, []int{RuleAccount}, validationRules(t, err))

	// Nothing was booked against PT2's partner, so PT2 can still delete it.
	require.NoError(t, f.store.DeletePartner(ctx, other.ID, foreign.ID))

	in = f.receipt(15, "100000", "100000")
	in.PartnerID = own.ID
	in.Details[0].PartnerID = own.ID
	tx, err := f.svc.Create(ctx, "budi", in, true)
	require.NoError(t, err)
	assert.Equal(t, own.ID, tx.PartnerID)

	// A draft moved to a foreign partner is rejected on update too.
	draft, err := f.svc.Create(ctx, "budi", f.receipt(16, "1", "1"), false)
	require.NoError(t, err)
	draft.PartnerID = 9999
	_, err = f.svc.Update(ctx, "budi", draft)
	assert.Equal(t, []int{RuleAccount}, validationRules(t, err))
}

func TestPostLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, "budi", f.receipt(15, "150000", "100000"), false)
	require.NoError(t, err)

	_, err = f.svc.Post(ctx, "ani", f.company.ID, tx.ID)
	assert.Equal(t, []int{RuleBalanced}, validationRules(t, err))

	tx.Details[1].Credit = d("150000")
	tx, err = f.svc.Update(ctx, "budi", tx)
	require.NoError(t, err)
	assert.Equal(t, "KM-2025-01-0001", tx.Number)

	posted, err := f.svc.Post(ctx, "ani", f.company.ID, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPosted, posted.Status)
	assert.Equal(t, "ani", posted.PostedBy)

	_, err = f.svc.Post(ctx, "ani", f.company.ID, tx.ID)
	assert.ErrorIs(t, err, ErrPosted)

	tx.Description = "diubah"
	_, err = f.svc.Update(ctx, "budi", tx)
	assert.ErrorIs(t, err, ErrPosted)

	assert.ErrorIs(t, f.svc.Delete(ctx, "budi", f.company.ID, tx.ID), ErrPosted)

	got, err := f.svc.Get(ctx, f.company.ID, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jasa konsultasi", got.Description)
	assert.Equal(t, model.StatusPosted, got.Status)
}

func TestUpdateRenumbersOnTypeChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, "budi", f.receipt(15, "1", "1"), false)
	require.NoError(t, err)

	tx.Type = model.TypeGeneral
	tx, err = f.svc.Update(ctx, "budi", tx)
	require.NoError(t, err)
	assert.Equal(t, "JU-2025-01-0001", tx.Number)

	entries, err := f.audit.Read(audit.Filter{Entity: "transaction", EntityID: tx.ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Details, "renumbered from KM-2025-01-0001")
}

func TestConcurrentPostSucceedsOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, "budi", f.receipt(15, "10", "10"), false)
	require.NoError(t, err)

	const n = 8
	var wg sync.WaitGroup
	results := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.Post(ctx, "ani", f.company.ID, tx.ID)
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, ErrPosted)
	}
	assert.Equal(t, 1, ok)
}

func TestDeleteDraft(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tx, err := f.svc.Create(ctx, "budi", f.receipt(15, "1", "1"), false)
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, "budi", f.company.ID, tx.ID))

	_, err = f.svc.Get(ctx, f.company.ID, tx.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	next, err := f.svc.Create(ctx, "budi", f.receipt(16, "1", "1"), false)
	require.NoError(t, err)
	assert.Equal(t, "KM-2025-01-0002", next.Number, "numbers are not reused")
}

func TestLockedPeriodBlocksEntry(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	draft, err := f.svc.Create(ctx, "budi", f.receipt(10, "1", "1"), false)
	require.NoError(t, err)

	c := f.company
	c.LockedUntil = civil.Date{Year: 2025, Month: time.January, Day: 31}
	require.NoError(t, f.store.UpdateCompany(ctx, c))

	_, err = f.svc.Create(ctx, "budi", f.receipt(20, "1", "1"), false)
	assert.Equal(t, []int{RuleLockedDate}, validationRules(t, err))

	_, err = f.svc.Post(ctx, "ani", f.company.ID, draft.ID)
	assert.Equal(t, []int{RuleLockedDate}, validationRules(t, err))
}

func TestReverse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	orig, err := f.svc.Create(ctx, "budi", f.receipt(15, "150000", "150000"), true)
	require.NoError(t, err)

	rev, err := f.svc.Reverse(ctx, "ani", f.company.ID, orig.ID, ReverseParams{Date: civil.Date{Year: 2025, Month: time.January, Day: 20}})
	require.NoError(t, err)
	assert.Equal(t, model.StatusPosted, rev.Status)
	assert.Equal(t, orig.ID, rev.ReversalOf)
	assert.Equal(t, "KM-2025-01-0002", rev.Number)
	assert.Equal(t, "Pembalikan KM-2025-01-0001", rev.Description)
	assert.True(t, rev.Details[0].Credit.Equal(d("150000")))
	assert.True(t, rev.Details[1].Debit.Equal(d("150000")))

	_, err = f.svc.Reverse(ctx, "ani", f.company.ID, orig.ID, ReverseParams{})
	assert.ErrorIs(t, err, ErrAlreadyReversed)

	_, err = f.svc.Reverse(ctx, "ani", f.company.ID, rev.ID, ReverseParams{})
	assert.ErrorIs(t, err, model.ErrInvalid)

	draft, err := f.svc.Create(ctx, "budi", f.receipt(15, "1", "1"), false)
	require.NoError(t, err)
	_, err = f.svc.Reverse(ctx, "ani", f.company.ID, draft.ID, ReverseParams{})
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestListFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "budi", f.receipt(10, "1", "1"), true)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "budi", f.receipt(20, "2", "2"), false)
	require.NoError(t, err)

	all, err := f.svc.List(ctx, Filter{CompanyID: f.company.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	drafts, err := f.svc.List(ctx, Filter{CompanyID: f.company.ID, Status: model.StatusDraft})
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, 20, drafts[0].Date.Day)
}

func TestExportImport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, "budi", f.receipt(10, "100", "100"), true)
	require.NoError(t, err)
	_, err = f.svc.Create(ctx, "budi", f.receipt(11, "250.50", "250.50"), true)
	require.NoError(t, err)

	records, err := f.svc.Export(ctx, Filter{CompanyID: f.company.ID})
	require.NoError(t, err)
	require.Len(t, records, 4)

	other := model.Company{Code: "PT2", Name: "PT Dua", Currency: "IDR", FiscalYearStart: 1}
	require.NoError(t, f.store.CreateCompany(ctx, &other))
	require.NoError(t, accounts.NewService(f.store).SeedDefault(ctx, other.ID))

	res, err := f.svc.Import(ctx, "budi", other.ID, records, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"KM-2025-01-0001", "KM-2025-01-0002"}, res.Created)

	imported, err := f.svc.List(ctx, Filter{CompanyID: other.ID, Status: model.StatusDraft})
	require.NoError(t, err)
	require.Len(t, imported, 2)
	assert.True(t, imported[1].TotalDebit.Equal(d("250.50")))
}

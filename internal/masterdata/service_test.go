package masterdata

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/bukubesar/internal/accounts"
	"github.com/cleared-dev/bukubesar/internal/audit"
	"github.com/cleared-dev/bukubesar/internal/model"
	"github.com/cleared-dev/bukubesar/internal/store"
)

func newTestService(t *testing.T) (*Service, *store.Store, *audit.Log) {
	t.Helper()
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	log := audit.New(filepath.Join(dir, audit.FileName))
	return NewService(st, accounts.NewService(st), log, nil), st, log
}

func createCompany(t *testing.T, svc *Service) model.Company {
	t.Helper()
	c, err := svc.CreateCompany(context.Background(), "admin", model.Company{Code: " PT1 ", Name: "PT Satu", Currency: "idr"})
	require.NoError(t, err)
	return c
}

func TestCreateCompanySeedsChart(t *testing.T) {
	svc, st, log := newTestService(t)
	c := createCompany(t, svc)

	assert.Equal(t, "PT1", c.Code)
	assert.Equal(t, "IDR", c.Currency)
	assert.Equal(t, 1, c.FiscalYearStart)

	accts, err := st.ListAccounts(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Len(t, accts, len(accounts.DefaultChart()))

	entries, err := log.Read(audit.Filter{Entity: "company"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "admin", entries[0].User)
}

func TestCreateCompanyValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		c    model.Company
	}{
		{"missing name", model.Company{Code: "X"}},
		{"bad currency", model.Company{Code: "X", Name: "X", Currency: "RUPIAH"}},
		{"bad fiscal month", model.Company{Code: "X", Name: "X", FiscalYearStart: 13}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateCompany(ctx, "admin", tt.c)
			assert.ErrorIs(t, err, model.ErrInvalid)
		})
	}

	createCompany(t, svc)
	_, err := svc.CreateCompany(ctx, "admin", model.Company{Code: "PT1", Name: "Lagi"})
	assert.ErrorIs(t, err, store.ErrConflict)
}

type flakySeeder struct {
	next  ChartSeeder
	fails int
}

func (f *flakySeeder) SeedDefault(ctx context.Context, companyID int64) error {
	if f.fails > 0 {
		f.fails--
		return errors.New("disk full")
	}
	return f.next.SeedDefault(ctx, companyID)
}

func TestCreateCompanyRemovedWhenSeedFails(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	log := audit.New(filepath.Join(dir, audit.FileName))
	svc := NewService(st, &flakySeeder{next: accounts.NewService(st), fails: 1}, log, nil)
	ctx := context.Background()

	_, err = svc.CreateCompany(ctx, "admin", model.Company{Code: "PT1", Name: "PT Satu"})
	require.ErrorContains(t, err, "disk full")

	companies, err := st.ListCompanies(ctx)
	require.NoError(t, err)
	assert.Empty(t, companies)
	entries, err := log.Read(audit.Filter{Entity: "company"})
	require.NoError(t, err)
	assert.Empty(t, entries)

	c, err := svc.CreateCompany(ctx, "admin", model.Company{Code: "PT1", Name: "PT Satu"})
	require.NoError(t, err)
	accts, err := st.ListAccounts(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, accts, len(accounts.DefaultChart()))
}

func TestUpdateCompanyKeepsLock(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	c := createCompany(t, svc)

	jan31 := civil.Date{Year: 2025, Month: time.January, Day: 31}
	_, err := svc.LockPeriod(ctx, "admin", c.ID, jan31)
	require.NoError(t, err)

	c.Name = "PT Satu Jaya"
	c.LockedUntil = civil.Date{}
	_, err = svc.UpdateCompany(ctx, "admin", c)
	require.NoError(t, err)

	got, err := svc.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "PT Satu Jaya", got.Name)
	assert.Equal(t, jan31, got.LockedUntil)
}

func TestLockPeriodMovesBothWays(t *testing.T) {
	svc, _, log := newTestService(t)
	ctx := context.Background()
	c := createCompany(t, svc)

	mar31 := civil.Date{Year: 2025, Month: time.March, Day: 31}
	jan31 := civil.Date{Year: 2025, Month: time.January, Day: 31}

	got, err := svc.LockPeriod(ctx, "admin", c.ID, mar31)
	require.NoError(t, err)
	assert.Equal(t, mar31, got.LockedUntil)

	got, err = svc.LockPeriod(ctx, "admin", c.ID, jan31)
	require.NoError(t, err)
	assert.Equal(t, jan31, got.LockedUntil)

	got, err = svc.LockPeriod(ctx, "admin", c.ID, civil.Date{})
	require.NoError(t, err)
	assert.False(t, got.Locked(jan31))

	entries, err := log.Read(audit.Filter{Entity: "company", EntityID: c.ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, audit.ActionLockPeriod, entries[0].Action)
	assert.Equal(t, "2025-01-31 -> open", entries[0].Details)

	_, err = svc.LockPeriod(ctx, "admin", 999, jan31)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestItems(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	c := createCompany(t, svc)

	chart, err := accounts.NewService(st).Chart(ctx, c.ID)
	require.NoError(t, err)
	inv, _ := chart.ByCode("1-1400")
	sales, _ := chart.ByCode("4-1100")
	group, _ := chart.ByCode("1-1")

	it, err := svc.CreateItem(ctx, "admin", model.Item{
		CompanyID: c.ID, Code: "BRG-01", Name: "Kertas A4", Unit: "rim",
		PurchasePrice: decimal.RequireFromString("45000"), SalePrice: decimal.RequireFromString("52000"),
		InventoryAccountID: inv.ID, SalesAccountID: sales.ID, Active: true,
	})
	require.NoError(t, err)
	assert.NotZero(t, it.ID)

	_, err = svc.CreateItem(ctx, "admin", model.Item{CompanyID: c.ID, Code: "BRG-02", Name: "Tinta", InventoryAccountID: group.ID})
	assert.ErrorIs(t, err, model.ErrInvalid)

	_, err = svc.CreateItem(ctx, "admin", model.Item{CompanyID: c.ID, Code: "BRG-02", Name: "Tinta", SalePrice: decimal.RequireFromString("-1")})
	assert.ErrorIs(t, err, model.ErrInvalid)

	_, err = svc.CreateItem(ctx, "admin", model.Item{CompanyID: c.ID, Code: "BRG-01", Name: "Duplikat"})
	assert.ErrorIs(t, err, store.ErrConflict)

	it.Name = "Kertas A4 80gr"
	_, err = svc.UpdateItem(ctx, "admin", it)
	require.NoError(t, err)

	items, err := svc.ListItems(ctx, c.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Kertas A4 80gr", items[0].Name)
	assert.True(t, items[0].SalePrice.Equal(decimal.RequireFromString("52000")))

	require.NoError(t, svc.DeleteItem(ctx, "admin", c.ID, it.ID))
	_, err = svc.GetItem(ctx, c.ID, it.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestItemAccountFromOtherCompany(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	c1 := createCompany(t, svc)
	c2, err := svc.CreateCompany(ctx, "admin", model.Company{Code: "PT2", Name: "PT Dua"})
	require.NoError(t, err)

	chart, err := accounts.NewService(st).Chart(ctx, c1.ID)
	require.NoError(t, err)
	inv, _ := chart.ByCode("1-1400")

	_, err = svc.CreateItem(ctx, "admin", model.Item{CompanyID: c2.ID, Code: "X", Name: "X", InventoryAccountID: inv.ID})
	assert.ErrorIs(t, err, model.ErrInvalid)
}

func TestPartners(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := context.Background()
	c := createCompany(t, svc)

	p, err := svc.CreatePartner(ctx, "admin", model.Partner{CompanyID: c.ID, Code: "C-001", Name: "CV Maju", Active: true})
	require.NoError(t, err)
	assert.Equal(t, model.PartnerCustomer, p.Role)

	_, err = svc.CreatePartner(ctx, "admin", model.Partner{CompanyID: c.ID, Code: "S-001", Name: "PT Pemasok", Role: "vendor"})
	assert.ErrorIs(t, err, model.ErrInvalid)

	_, err = svc.CreatePartner(ctx, "admin", model.Partner{CompanyID: c.ID, Code: "C-001", Name: "Lagi"})
	assert.ErrorIs(t, err, store.ErrConflict)

	// A transaction naming the partner blocks deletion.
	chart, err := accounts.NewService(st).Chart(ctx, c.ID)
	require.NoError(t, err)
	ar, _ := chart.ByCode("1-1300")
	rev, _ := chart.ByCode("4-1100")
	tx := &model.Transaction{
		CompanyID: c.ID, Type: model.TypeSales, Date: civil.Date{Year: 2025, Month: time.January, Day: 5},
		PartnerID: p.ID, Status: model.StatusDraft,
		Details: []model.Detail{
			{AccountID: ar.ID, Debit: decimal.NewFromInt(100)},
			{AccountID: rev.ID, Credit: decimal.NewFromInt(100)},
		},
	}
	tx.Recompute()
	require.NoError(t, st.CreateTransaction(ctx, tx))

	assert.ErrorIs(t, svc.DeletePartner(ctx, "admin", c.ID, p.ID), store.ErrReferenced)

	require.NoError(t, st.DeleteTransaction(ctx, c.ID, tx.ID))
	require.NoError(t, svc.DeletePartner(ctx, "admin", c.ID, p.ID))

	partners, err := svc.ListPartners(ctx, c.ID)
	require.NoError(t, err)
	assert.Empty(t, partners)
}

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/cleared-dev/bukubesar/internal/app"
	"github.com/cleared-dev/bukubesar/internal/config"
	"github.com/cleared-dev/bukubesar/internal/journal"
	"github.com/cleared-dev/bukubesar/internal/model"
	"github.com/cleared-dev/bukubesar/internal/report"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const password = "rahasia123"

type env struct {
	app     *app.App
	srv     *Server
	handler http.Handler
	company model.Company
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	a, err := app.Open(cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.OpenSessions())

	for _, u := range []model.User{
		{Username: "admin", Role: model.RoleAdmin},
		{Username: "akuntan", Role: model.RoleAccountant},
		{Username: "tamu", Role: model.RoleViewer},
	} {
		_, err := a.Users.Create(ctx, "setup", u, password)
		require.NoError(t, err)
	}
	c, err := a.MasterData.CreateCompany(ctx, "setup", model.Company{Code: "PT1", Name: "PT Satu"})
	require.NoError(t, err)

	srv := NewServer(a.Sessions, nil)
	Register(srv, Services{
		Users:      a.Users,
		Sessions:   a.Sessions,
		MasterData: a.MasterData,
		Accounts:   a.Accounts,
		Journal:    a.Journal,
		Reports:    a.Reports,
		Audit:      a.Audit,
	})
	return &env{app: a, srv: srv, handler: NewRouter(srv, RouterConfig{}, nil), company: c}
}

func (e *env) post(t *testing.T, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/rpc", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func (e *env) call(t *testing.T, token, method string, params any) Response {
	t.Helper()
	p, err := json.Marshal(params)
	require.NoError(t, err)
	body, err := json.Marshal(Request{JSONRPC: Version, Method: method, Params: p, ID: json.RawMessage("1")})
	require.NoError(t, err)

	rec := e.post(t, token, string(body))
	require.Equal(t, http.StatusOK, rec.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func (e *env) login(t *testing.T, username string) string {
	t.Helper()
	resp := e.call(t, "", "auth.login", loginParams{Username: username, Password: password})
	require.Nil(t, resp.Error)
	var res loginResult
	require.NoError(t, json.Unmarshal(resp.Result, &res))
	require.NotEmpty(t, res.Token)
	return res.Token
}

func (e *env) accountID(t *testing.T, code string) int64 {
	t.Helper()
	chart, err := e.app.Accounts.Chart(context.Background(), e.company.ID)
	require.NoError(t, err)
	a, ok := chart.ByCode(code)
	require.True(t, ok, code)
	return a.ID
}

func decode[T any](t *testing.T, resp Response) T {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error %+v", resp.Error)
	var v T
	require.NoError(t, json.Unmarshal(resp.Result, &v))
	return v
}

func errCode(resp Response) int {
	if resp.Error == nil {
		return 0
	}
	return resp.Error.Code
}

func TestLoginAndMe(t *testing.T) {
	e := newEnv(t)

	resp := e.call(t, "", "auth.login", loginParams{Username: "admin", Password: "salah-sekali"})
	assert.Equal(t, CodeUnauthorized, errCode(resp))

	token := e.login(t, "ADMIN")
	me := decode[model.User](t, e.call(t, token, "auth.me", nil))
	assert.Equal(t, "admin", me.Username)
	assert.Equal(t, model.RoleAdmin, me.Role)

	decode[okResult](t, e.call(t, token, "auth.logout", nil))
	assert.Equal(t, CodeUnauthorized, errCode(e.call(t, token, "auth.me", nil)))
}

func TestRoles(t *testing.T) {
	e := newEnv(t)
	viewer := e.login(t, "tamu")

	assert.Equal(t, CodeUnauthorized, errCode(e.call(t, "", "company.list", nil)))
	assert.Equal(t, CodeUnauthorized, errCode(e.call(t, "bogus-token", "company.list", nil)))

	companies := decode[[]model.Company](t, e.call(t, viewer, "company.list", nil))
	require.Len(t, companies, 1)
	assert.Equal(t, "PT1", companies[0].Code)

	resp := e.call(t, viewer, "company.create", model.Company{Code: "PT2", Name: "PT Dua"})
	assert.Equal(t, CodeForbidden, errCode(resp))

	resp = e.call(t, viewer, "partner.create", model.Partner{CompanyID: e.company.ID, Code: "C-001", Name: "PT Sentosa"})
	assert.Equal(t, CodeForbidden, errCode(resp))

	accountant := e.login(t, "akuntan")
	p := decode[model.Partner](t, e.call(t, accountant, "partner.create", model.Partner{CompanyID: e.company.ID, Code: "C-001", Name: "PT Sentosa"}))
	assert.Equal(t, model.PartnerCustomer, p.Role)

	resp = e.call(t, accountant, "partner.create", model.Partner{CompanyID: e.company.ID, Code: "C-001", Name: "Lagi"})
	assert.Equal(t, CodeConflict, errCode(resp))
}

func TestProtocolErrors(t *testing.T) {
	e := newEnv(t)
	token := e.login(t, "admin")

	tests := []struct {
		name string
		body string
		code int
	}{
		{"parse", `{"jsonrpc":"2.0",`, CodeParseError},
		{"empty", ``, CodeParseError},
		{"version", `{"jsonrpc":"1.0","method":"company.list","id":1}`, CodeInvalidRequest},
		{"not an object", `42`, CodeInvalidRequest},
		{"empty batch", `[]`, CodeInvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","method":"ledger.burn","id":1}`, CodeMethodNotFound},
		{"unknown field", `{"jsonrpc":"2.0","method":"company.get","params":{"idd":1},"id":1}`, CodeInvalidParams},
		{"wrong type", `{"jsonrpc":"2.0","method":"company.get","params":{"id":"x"},"id":1}`, CodeInvalidParams},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.post(t, token, tt.body)
			var resp Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, errCode(resp))
			assert.Equal(t, Version, resp.JSONRPC)
		})
	}

	resp := e.call(t, token, "company.get", idRef{ID: 999})
	assert.Equal(t, CodeNotFound, errCode(resp))
}

func TestBatchAndNotifications(t *testing.T) {
	e := newEnv(t)
	token := e.login(t, "admin")

	body := `[
		{"jsonrpc":"2.0","method":"company.list","id":"a"},
		{"jsonrpc":"2.0","method":"company.list"},
		1,
		{"jsonrpc":"2.0","method":"nope","id":"c"}
	]`
	rec := e.post(t, token, body)
	require.Equal(t, http.StatusOK, rec.Code)

	var resps []Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resps))
	require.Len(t, resps, 3)
	assert.JSONEq(t, `"a"`, string(resps[0].ID))
	assert.Nil(t, resps[0].Error)
	assert.Equal(t, CodeInvalidRequest, errCode(resps[1]))
	assert.Equal(t, "null", string(resps[1].ID))
	assert.Equal(t, CodeMethodNotFound, errCode(resps[2]))

	rec = e.post(t, token, `[{"jsonrpc":"2.0","method":"company.list"}]`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Zero(t, rec.Body.Len())

	rec = e.post(t, token, `{"jsonrpc":"2.0","method":"company.list"}`)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestTransactionLifecycle(t *testing.T) {
	e := newEnv(t)
	token := e.login(t, "akuntan")
	kas, modal := e.accountID(t, "1-1100"), e.accountID(t, "3-1100")

	unbalanced := map[string]any{
		"company_id":  e.company.ID,
		"type":        "JU",
		"date":        "2025-01-15",
		"description": "Setoran modal",
		"details": []map[string]any{
			{"account_id": kas, "debit": "1000000"},
			{"account_id": modal, "credit": "900000"},
		},
		"post": true,
	}
	resp := e.call(t, token, "transaction.create", unbalanced)
	require.Equal(t, CodeValidation, errCode(resp))
	raw, err := json.Marshal(resp.Error.Data)
	require.NoError(t, err)
	var violations []journal.ValidationError
	require.NoError(t, json.Unmarshal(raw, &violations))
	require.NotEmpty(t, violations)
	assert.Equal(t, journal.RuleBalanced, violations[0].Rule)

	unbalanced["details"] = []map[string]any{
		{"account_id": kas, "debit": "1000000"},
		{"account_id": modal, "credit": "1000000"},
	}
	unbalanced["post"] = false
	draft := decode[model.Transaction](t, e.call(t, token, "transaction.create", unbalanced))
	assert.Equal(t, "JU-2025-01-0001", draft.Number)
	assert.Equal(t, model.StatusDraft, draft.Status)

	posted := decode[model.Transaction](t, e.call(t, token, "transaction.post", recordRef{CompanyID: e.company.ID, ID: draft.ID}))
	assert.Equal(t, model.StatusPosted, posted.Status)
	assert.Equal(t, "akuntan", posted.PostedBy)

	posted.Description = "Ubah setelah posting"
	assert.Equal(t, CodePosted, errCode(e.call(t, token, "transaction.update", posted)))
	assert.Equal(t, CodePosted, errCode(e.call(t, token, "transaction.delete", recordRef{CompanyID: e.company.ID, ID: draft.ID})))

	rev := decode[model.Transaction](t, e.call(t, token, "transaction.reverse", map[string]any{"company_id": e.company.ID, "id": draft.ID}))
	assert.Equal(t, draft.ID, rev.ReversalOf)
	assert.Equal(t, "Pembalikan JU-2025-01-0001", rev.Description)
	assert.Equal(t, CodeConflict, errCode(e.call(t, token, "transaction.reverse", recordRef{CompanyID: e.company.ID, ID: draft.ID})))

	list := decode[[]model.Transaction](t, e.call(t, token, "transaction.list", listTransactionsParams{CompanyID: e.company.ID, Status: model.StatusPosted}))
	assert.Len(t, list, 2)

	tb := decode[report.TrialBalance](t, e.call(t, token, "report.trialBalance", asOfParams{CompanyID: e.company.ID}))
	assert.True(t, tb.Balanced)
	assert.Equal(t, "2000000", tb.TotalDebit.String())
}

func TestUserAdministration(t *testing.T) {
	e := newEnv(t)
	admin := e.login(t, "admin")
	viewer := e.login(t, "tamu")

	users := decode[[]model.User](t, e.call(t, admin, "user.list", nil))
	require.Len(t, users, 3)
	var tamu model.User
	for _, u := range users {
		if u.Username == "tamu" {
			tamu = u
		}
	}
	raw, err := json.Marshal(users[0])
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "password")

	me := decode[model.User](t, e.call(t, viewer, "auth.me", nil))
	resp := e.call(t, viewer, "user.setPassword", passwordParams{ID: me.ID + 100, Password: "passwordbaru"})
	assert.Equal(t, CodeForbidden, errCode(resp))
	decode[okResult](t, e.call(t, viewer, "user.setPassword", passwordParams{ID: me.ID, Password: "passwordbaru"}))
	decode[model.User](t, e.call(t, viewer, "auth.me", nil))

	created := decode[model.User](t, e.call(t, admin, "user.create", map[string]any{"username": "Siti", "role": "accountant", "password": "12345678"}))
	assert.Equal(t, "siti", created.Username)
	assert.Equal(t, CodeInvalidParams, errCode(e.call(t, admin, "user.create", map[string]any{"username": "x", "password": "pendek"})))

	decode[model.User](t, e.call(t, admin, "user.deactivate", idRef{ID: tamu.ID}))
	assert.Equal(t, CodeUnauthorized, errCode(e.call(t, viewer, "auth.me", nil)), "sessions of a deactivated user end")

	adminUser := decode[model.User](t, e.call(t, admin, "auth.me", nil))
	assert.Equal(t, CodeConflict, errCode(e.call(t, admin, "user.deactivate", idRef{ID: adminUser.ID})))
}

func TestLockPeriodAndAudit(t *testing.T) {
	e := newEnv(t)
	admin := e.login(t, "admin")

	c := decode[model.Company](t, e.call(t, admin, "company.lockPeriod", map[string]any{"company_id": e.company.ID, "until": "2024-12-31"}))
	assert.Equal(t, "2024-12-31", c.LockedUntil.String())

	// Round-tripping an unlocked company must not trip over the zero date.
	c = decode[model.Company](t, e.call(t, admin, "company.lockPeriod", lockParams{CompanyID: e.company.ID}))
	raw, err := json.Marshal(c)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "locked_until")
	c.Name = "PT Satu Jaya"
	c = decode[model.Company](t, e.call(t, admin, "company.update", c))
	assert.Equal(t, "PT Satu Jaya", c.Name)

	entries := decode[[]map[string]any](t, e.call(t, admin, "audit.list", map[string]any{"entity": "company", "limit": 2}))
	require.Len(t, entries, 2)
	assert.Equal(t, "update", entries[0]["action"])
}

func TestRegisteredMethods(t *testing.T) {
	e := newEnv(t)

	want := []string{
		"account.create", "account.delete", "account.get", "account.list", "account.tree", "account.update",
		"audit.list",
		"auth.login", "auth.logout", "auth.me",
		"company.create", "company.get", "company.list", "company.lockPeriod", "company.update",
		"item.create", "item.delete", "item.get", "item.list", "item.update",
		"partner.create", "partner.delete", "partner.get", "partner.list", "partner.update",
		"report.balanceSheet", "report.generalLedger", "report.incomeStatement", "report.payables", "report.receivables", "report.trialBalance",
		"transaction.create", "transaction.delete", "transaction.get", "transaction.list", "transaction.post", "transaction.reverse", "transaction.update",
		"user.create", "user.deactivate", "user.list", "user.setPassword", "user.update",
	}
	if diff := cmp.Diff(want, e.srv.Methods()); diff != "" {
		t.Errorf("methods mismatch (-want +got):\n%s", diff)
	}

	assert.Panics(t, func() {
		Handle(e.srv, "auth.me", Public, func(ctx context.Context, _ struct{}) (int, error) { return 0, nil })
	})
}

func TestOverHTTP(t *testing.T) {
	e := newEnv(t)
	e.srv.SetMaxBodyBytes(512)
	ts := httptest.NewServer(e.handler)
	defer ts.Close()
	client := ts.Client()

	res, err := client.Get(ts.URL + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(res.Body)
	res.Body.Close()
	assert.Equal(t, "OK", string(body))

	res, err = client.Post(ts.URL+"/rpc", "application/json", strings.NewReader(`{"jsonrpc":"2.0","method":"auth.login","params":{"username":"admin","password":"rahasia123"},"id":7}`))
	require.NoError(t, err)
	var resp Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	res.Body.Close()
	assert.Nil(t, resp.Error)
	assert.Equal(t, "7", string(resp.ID))
	assert.NotEmpty(t, res.Header.Get("Content-Type"))

	res, err = client.Post(ts.URL+"/rpc", "application/json", bytes.NewReader(bytes.Repeat([]byte(" "), 1024)))
	require.NoError(t, err)
	res.Body.Close()
	assert.Equal(t, http.StatusRequestEntityTooLarge, res.StatusCode)

	client.CloseIdleConnections()
}

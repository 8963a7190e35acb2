package rpc

import (
	"context"
	"time"

	"cloud.google.com/go/civil"

	"github.com/cleared-dev/bukubesar/internal/accounts"
	"github.com/cleared-dev/bukubesar/internal/audit"
	"github.com/cleared-dev/bukubesar/internal/journal"
	"github.com/cleared-dev/bukubesar/internal/masterdata"
	"github.com/cleared-dev/bukubesar/internal/model"
	"github.com/cleared-dev/bukubesar/internal/report"
	"github.com/cleared-dev/bukubesar/internal/session"
	"github.com/cleared-dev/bukubesar/internal/users"
)

// Services are the backends exposed over RPC.
type Services struct {
	Users      *users.Service
	Sessions   *session.Store
	MasterData *masterdata.Service
	Accounts   *accounts.Service
	Journal    *journal.Service
	Reports    *report.Service
	Audit      *audit.Log
}

type companyRef struct {
	CompanyID int64 `json:"company_id"`
}

type recordRef struct {
	CompanyID int64 `json:"company_id"`
	ID        int64 `json:"id"`
}

type idRef struct {
	ID int64 `json:"id"`
}

type okResult struct {
	OK bool `json:"ok"`
}

var done = okResult{OK: true}

type loginParams struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResult struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      model.User `json:"user"`
}

type lockParams struct {
	CompanyID int64      `json:"company_id"`
	Until     civil.Date `json:"until,omitzero"`
}

type createUserParams struct {
	model.User
	Password string `json:"password"`
}

type passwordParams struct {
	ID       int64  `json:"id"`
	Password string `json:"password"`
}

type createTransactionParams struct {
	model.Transaction
	Post bool `json:"post"`
}

type listTransactionsParams struct {
	CompanyID int64                   `json:"company_id"`
	From      civil.Date              `json:"from,omitzero"`
	To        civil.Date              `json:"to,omitzero"`
	Status    model.TransactionStatus `json:"status,omitempty"`
	Type      model.TransactionType   `json:"type,omitempty"`
	AccountID int64                   `json:"account_id,omitempty"`
	PartnerID int64                   `json:"partner_id,omitempty"`
	Search    string                  `json:"search,omitempty"`
	Limit     int                     `json:"limit,omitempty"`
	Offset    int                     `json:"offset,omitempty"`
}

type reverseParams struct {
	CompanyID int64 `json:"company_id"`
	ID        int64 `json:"id"`
	journal.ReverseParams
}

type asOfParams struct {
	CompanyID int64      `json:"company_id"`
	AsOf      civil.Date `json:"as_of,omitzero"`
}

type periodParams struct {
	CompanyID int64      `json:"company_id"`
	From      civil.Date `json:"from,omitzero"`
	To        civil.Date `json:"to,omitzero"`
}

type ledgerParams struct {
	CompanyID int64      `json:"company_id"`
	AccountID int64      `json:"account_id"`
	From      civil.Date `json:"from,omitzero"`
	To        civil.Date `json:"to,omitzero"`
}

// Register installs every method on s.
func Register(s *Server, svc Services) {
	registerAuth(s, svc)
	registerMasterData(s, svc)
	registerAccounts(s, svc)
	registerUsers(s, svc)
	registerTransactions(s, svc)
	registerReports(s, svc)

	Handle(s, "audit.list", model.RoleAdmin, func(ctx context.Context, f audit.Filter) ([]audit.Entry, error) {
		return svc.Audit.Read(f)
	})
}

func registerAuth(s *Server, svc Services) {
	Handle(s, "auth.login", Public, func(ctx context.Context, p loginParams) (loginResult, error) {
		u, err := svc.Users.Authenticate(ctx, p.Username, p.Password)
		if err != nil {
			return loginResult{}, err
		}
		sess, err := svc.Sessions.Create(u)
		if err != nil {
			return loginResult{}, err
		}
		svc.record(audit.Entry{User: u.Username, Action: audit.ActionLogin, Entity: "user", EntityID: u.ID})
		return loginResult{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: u}, nil
	})

	Handle(s, "auth.logout", model.RoleViewer, func(ctx context.Context, _ struct{}) (okResult, error) {
		sess, _ := SessionFrom(ctx)
		if err := svc.Sessions.Revoke(sess.Token); err != nil {
			return okResult{}, err
		}
		svc.record(audit.Entry{User: sess.Username, Action: audit.ActionLogout, Entity: "user", EntityID: sess.UserID})
		return done, nil
	})

	Handle(s, "auth.me", model.RoleViewer, func(ctx context.Context, _ struct{}) (model.User, error) {
		sess, _ := SessionFrom(ctx)
		return svc.Users.Get(ctx, sess.UserID)
	})
}

func registerMasterData(s *Server, svc Services) {
	md := svc.MasterData

	Handle(s, "company.list", model.RoleViewer, func(ctx context.Context, _ struct{}) ([]model.Company, error) {
		return md.ListCompanies(ctx)
	})
	Handle(s, "company.get", model.RoleViewer, func(ctx context.Context, p idRef) (model.Company, error) {
		return md.GetCompany(ctx, p.ID)
	})
	Handle(s, "company.create", model.RoleAdmin, func(ctx context.Context, c model.Company) (model.Company, error) {
		return md.CreateCompany(ctx, actor(ctx), c)
	})
	Handle(s, "company.update", model.RoleAdmin, func(ctx context.Context, c model.Company) (model.Company, error) {
		return md.UpdateCompany(ctx, actor(ctx), c)
	})
	Handle(s, "company.lockPeriod", model.RoleAdmin, func(ctx context.Context, p lockParams) (model.Company, error) {
		return md.LockPeriod(ctx, actor(ctx), p.CompanyID, p.Until)
	})

	Handle(s, "item.list", model.RoleViewer, func(ctx context.Context, p companyRef) ([]model.Item, error) {
		return md.ListItems(ctx, p.CompanyID)
	})
	Handle(s, "item.get", model.RoleViewer, func(ctx context.Context, p recordRef) (model.Item, error) {
		return md.GetItem(ctx, p.CompanyID, p.ID)
	})
	Handle(s, "item.create", model.RoleAccountant, func(ctx context.Context, it model.Item) (model.Item, error) {
		return md.CreateItem(ctx, actor(ctx), it)
	})
	Handle(s, "item.update", model.RoleAccountant, func(ctx context.Context, it model.Item) (model.Item, error) {
		return md.UpdateItem(ctx, actor(ctx), it)
	})
	Handle(s, "item.delete", model.RoleAccountant, func(ctx context.Context, p recordRef) (okResult, error) {
		return done, md.DeleteItem(ctx, actor(ctx), p.CompanyID, p.ID)
	})

	Handle(s, "partner.list", model.RoleViewer, func(ctx context.Context, p companyRef) ([]model.Partner, error) {
		return md.ListPartners(ctx, p.CompanyID)
	})
	Handle(s, "partner.get", model.RoleViewer, func(ctx context.Context, p recordRef) (model.Partner, error) {
		return md.GetPartner(ctx, p.CompanyID, p.ID)
	})
	Handle(s, "partner.create", model.RoleAccountant, func(ctx context.Context, p model.Partner) (model.Partner, error) {
		return md.CreatePartner(ctx, actor(ctx), p)
	})
	Handle(s, "partner.update", model.RoleAccountant, func(ctx context.Context, p model.Partner) (model.Partner, error) {
		return md.UpdatePartner(ctx, actor(ctx), p)
	})
	Handle(s, "partner.delete", model.RoleAccountant, func(ctx context.Context, p recordRef) (okResult, error) {
		return done, md.DeletePartner(ctx, actor(ctx), p.CompanyID, p.ID)
	})
}

func registerAccounts(s *Server, svc Services) {
	as := svc.Accounts

	Handle(s, "account.list", model.RoleViewer, func(ctx context.Context, p companyRef) ([]model.Account, error) {
		return as.List(ctx, p.CompanyID)
	})
	Handle(s, "account.tree", model.RoleViewer, func(ctx context.Context, p companyRef) ([]accounts.Node, error) {
		return as.Tree(ctx, p.CompanyID)
	})
	Handle(s, "account.get", model.RoleViewer, func(ctx context.Context, p recordRef) (model.Account, error) {
		return as.Get(ctx, p.CompanyID, p.ID)
	})
	Handle(s, "account.create", model.RoleAccountant, func(ctx context.Context, a model.Account) (model.Account, error) {
		created, err := as.Create(ctx, a)
		if err == nil {
			svc.record(audit.Entry{User: actor(ctx), Action: audit.ActionCreate, Entity: "account", EntityID: created.ID, Details: created.Code})
		}
		return created, err
	})
	Handle(s, "account.update", model.RoleAccountant, func(ctx context.Context, a model.Account) (model.Account, error) {
		updated, err := as.Update(ctx, a)
		if err == nil {
			svc.record(audit.Entry{User: actor(ctx), Action: audit.ActionUpdate, Entity: "account", EntityID: updated.ID, Details: updated.Code})
		}
		return updated, err
	})
	Handle(s, "account.delete", model.RoleAccountant, func(ctx context.Context, p recordRef) (okResult, error) {
		if err := as.Delete(ctx, p.CompanyID, p.ID); err != nil {
			return okResult{}, err
		}
		svc.record(audit.Entry{User: actor(ctx), Action: audit.ActionDelete, Entity: "account", EntityID: p.ID})
		return done, nil
	})
}

func registerUsers(s *Server, svc Services) {
	us := svc.Users

	Handle(s, "user.list", model.RoleAdmin, func(ctx context.Context, _ struct{}) ([]model.User, error) {
		return us.List(ctx)
	})
	Handle(s, "user.create", model.RoleAdmin, func(ctx context.Context, p createUserParams) (model.User, error) {
		return us.Create(ctx, actor(ctx), p.User, p.Password)
	})
	Handle(s, "user.update", model.RoleAdmin, func(ctx context.Context, u model.User) (model.User, error) {
		updated, err := us.Update(ctx, actor(ctx), u)
		if err != nil {
			return model.User{}, err
		}
		// Role changes apply from the next login.
		if _, err := svc.Sessions.RevokeUser(updated.ID); err != nil {
			return model.User{}, err
		}
		return updated, nil
	})
	// Anyone may change their own password; changing someone else's is
	// an admin task and ends that user's sessions.
	Handle(s, "user.setPassword", model.RoleViewer, func(ctx context.Context, p passwordParams) (okResult, error) {
		sess, _ := SessionFrom(ctx)
		self := sess.UserID == p.ID
		if !self && !sess.Role.Allows(model.RoleAdmin) {
			return okResult{}, newError(CodeForbidden, "only admins can change other users' passwords")
		}
		if err := us.SetPassword(ctx, actor(ctx), p.ID, p.Password); err != nil {
			return okResult{}, err
		}
		if !self {
			if _, err := svc.Sessions.RevokeUser(p.ID); err != nil {
				return okResult{}, err
			}
		}
		return done, nil
	})
	Handle(s, "user.deactivate", model.RoleAdmin, func(ctx context.Context, p idRef) (model.User, error) {
		u, err := us.Deactivate(ctx, actor(ctx), p.ID)
		if err != nil {
			return model.User{}, err
		}
		if _, err := svc.Sessions.RevokeUser(u.ID); err != nil {
			return model.User{}, err
		}
		return u, nil
	})
}

func registerTransactions(s *Server, svc Services) {
	js := svc.Journal

	Handle(s, "transaction.list", model.RoleViewer, func(ctx context.Context, p listTransactionsParams) ([]model.Transaction, error) {
		return js.List(ctx, journal.Filter{
			CompanyID: p.CompanyID,
			From:      p.From,
			To:        p.To,
			Status:    p.Status,
			Type:      p.Type,
			AccountID: p.AccountID,
			PartnerID: p.PartnerID,
			Search:    p.Search,
			Limit:     p.Limit,
			Offset:    p.Offset,
		})
	})
	Handle(s, "transaction.get", model.RoleViewer, func(ctx context.Context, p recordRef) (model.Transaction, error) {
		return js.Get(ctx, p.CompanyID, p.ID)
	})
	Handle(s, "transaction.create", model.RoleAccountant, func(ctx context.Context, p createTransactionParams) (model.Transaction, error) {
		return js.Create(ctx, actor(ctx), p.Transaction, p.Post)
	})
	Handle(s, "transaction.update", model.RoleAccountant, func(ctx context.Context, t model.Transaction) (model.Transaction, error) {
		return js.Update(ctx, actor(ctx), t)
	})
	Handle(s, "transaction.delete", model.RoleAccountant, func(ctx context.Context, p recordRef) (okResult, error) {
		return done, js.Delete(ctx, actor(ctx), p.CompanyID, p.ID)
	})
	Handle(s, "transaction.post", model.RoleAccountant, func(ctx context.Context, p recordRef) (model.Transaction, error) {
		return js.Post(ctx, actor(ctx), p.CompanyID, p.ID)
	})
	Handle(s, "transaction.reverse", model.RoleAccountant, func(ctx context.Context, p reverseParams) (model.Transaction, error) {
		return js.Reverse(ctx, actor(ctx), p.CompanyID, p.ID, p.ReverseParams)
	})
}

func registerReports(s *Server, svc Services) {
	rs := svc.Reports

	Handle(s, "report.trialBalance", model.RoleViewer, func(ctx context.Context, p asOfParams) (report.TrialBalance, error) {
		return rs.TrialBalance(ctx, p.CompanyID, p.AsOf)
	})
	Handle(s, "report.balanceSheet", model.RoleViewer, func(ctx context.Context, p asOfParams) (report.BalanceSheet, error) {
		return rs.BalanceSheet(ctx, p.CompanyID, p.AsOf)
	})
	Handle(s, "report.incomeStatement", model.RoleViewer, func(ctx context.Context, p periodParams) (report.IncomeStatement, error) {
		return rs.IncomeStatement(ctx, p.CompanyID, p.From, p.To)
	})
	Handle(s, "report.generalLedger", model.RoleViewer, func(ctx context.Context, p ledgerParams) (report.GeneralLedger, error) {
		return rs.GeneralLedger(ctx, p.CompanyID, p.AccountID, p.From, p.To)
	})
	Handle(s, "report.receivables", model.RoleViewer, func(ctx context.Context, p asOfParams) (report.Aging, error) {
		return rs.Receivables(ctx, p.CompanyID, p.AsOf)
	})
	Handle(s, "report.payables", model.RoleViewer, func(ctx context.Context, p asOfParams) (report.Aging, error) {
		return rs.Payables(ctx, p.CompanyID, p.AsOf)
	})
}

// record appends to the audit trail. Failures there do not undo the call.
func (svc Services) record(e audit.Entry) {
	if svc.Audit != nil {
		_ = svc.Audit.Append(e)
	}
}

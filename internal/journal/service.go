// Package journal records, validates, posts and reverses transactions.
package journal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"go.uber.org/zap"

	"github.com/cleared-dev/bukubesar/internal/accounts"
	"github.com/cleared-dev/bukubesar/internal/audit"
	"github.com/cleared-dev/bukubesar/internal/model"
	"github.com/cleared-dev/bukubesar/internal/store"
)

var (
	// ErrPosted is returned when a change targets a posted transaction.
	ErrPosted = errors.New("posted transactions cannot be changed")

	// ErrAlreadyReversed is returned when a transaction already has a reversal.
	ErrAlreadyReversed = errors.New("transaction has already been reversed")
)

const auditEntity = "transaction"

// Filter narrows List.
type Filter = store.TransactionFilter

// Repository is the persistence the journal service needs.
type Repository interface {
	GetCompany(ctx context.Context, id int64) (model.Company, error)
	ListAccounts(ctx context.Context, companyID int64) ([]model.Account, error)
	ListPartners(ctx context.Context, companyID int64) ([]model.Partner, error)
	ListItems(ctx context.Context, companyID int64) ([]model.Item, error)
	CreateTransaction(ctx context.Context, t *model.Transaction) error
	UpdateTransaction(ctx context.Context, t *model.Transaction) error
	DeleteTransaction(ctx context.Context, companyID, id int64) error
	MarkPosted(ctx context.Context, companyID, id int64, by string, at time.Time) error
	GetTransaction(ctx context.Context, companyID, id int64) (model.Transaction, error)
	GetTransactionHeader(ctx context.Context, companyID, id int64) (model.Transaction, error)
	FindReversal(ctx context.Context, id int64) (int64, error)
	ListTransactions(ctx context.Context, f store.TransactionFilter) ([]model.Transaction, error)
}

// Auditor receives a record of every state change.
type Auditor interface {
	Append(entries ...audit.Entry) error
}

// Service provides business logic for journal transactions.
type Service struct {
	repo  Repository
	audit Auditor
	log   *zap.Logger
	now   func() time.Time
}

// NewService creates a journal Service. A nil logger discards output.
func NewService(repo Repository, auditor Auditor, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, audit: auditor, log: logger.Named("journal"), now: time.Now}
}

// Get returns a transaction with its details.
func (s *Service) Get(ctx context.Context, companyID, id int64) (model.Transaction, error) {
	return s.repo.GetTransaction(ctx, companyID, id)
}

// List returns transaction headers matching f.
func (s *Service) List(ctx context.Context, f Filter) ([]model.Transaction, error) {
	return s.repo.ListTransactions(ctx, f)
}

// Create stores t as a new draft, or posts it straight away when post is set.
// Drafts may be unbalanced; posting runs the full rule set.
func (s *Service) Create(ctx context.Context, user string, t model.Transaction, post bool) (model.Transaction, error) {
	company, chart, err := s.books(ctx, t.CompanyID)
	if err != nil {
		return model.Transaction{}, err
	}
	if err := prepare(&t); err != nil {
		return model.Transaction{}, err
	}
	t.ID = 0
	t.ReversalOf = 0
	t.Status = model.StatusDraft
	t.CreatedBy = user
	t.PostedBy = ""
	t.PostedAt = nil

	refs, err := s.references(ctx, t.CompanyID)
	if err != nil {
		return model.Transaction{}, err
	}
	if verrs := ValidateTransaction(t, chart, refs, company, post); len(verrs) > 0 {
		return model.Transaction{}, ValidationErrors(verrs)
	}

	if post {
		at := s.now().UTC()
		t.Status = model.StatusPosted
		t.PostedBy = user
		t.PostedAt = &at
	}

	if err := s.repo.CreateTransaction(ctx, &t); err != nil {
		return model.Transaction{}, fmt.Errorf("creating transaction: %w", err)
	}

	s.record(user, audit.ActionCreate, t)
	if post {
		s.record(user, audit.ActionPost, t)
	}
	s.log.Info("transaction created",
		zap.String("number", t.Number),
		zap.String("status", string(t.Status)),
		zap.String("user", user))
	return t, nil
}

// Update replaces a draft's header and lines.
func (s *Service) Update(ctx context.Context, user string, t model.Transaction) (model.Transaction, error) {
	cur, err := s.repo.GetTransactionHeader(ctx, t.CompanyID, t.ID)
	if err != nil {
		return model.Transaction{}, err
	}
	if cur.Posted() {
		return model.Transaction{}, fmt.Errorf("%w: %s", ErrPosted, cur.Number)
	}

	company, chart, err := s.books(ctx, t.CompanyID)
	if err != nil {
		return model.Transaction{}, err
	}
	if err := prepare(&t); err != nil {
		return model.Transaction{}, err
	}
	t.Status = model.StatusDraft
	t.ReversalOf = cur.ReversalOf
	t.PostedBy = ""
	t.PostedAt = nil

	refs, err := s.references(ctx, t.CompanyID)
	if err != nil {
		return model.Transaction{}, err
	}
	if verrs := ValidateTransaction(t, chart, refs, company, false); len(verrs) > 0 {
		return model.Transaction{}, ValidationErrors(verrs)
	}

	if err := s.repo.UpdateTransaction(ctx, &t); err != nil {
		if errors.Is(err, store.ErrNotDraft) {
			return model.Transaction{}, fmt.Errorf("%w: %s", ErrPosted, cur.Number)
		}
		return model.Transaction{}, fmt.Errorf("updating transaction: %w", err)
	}

	details := ""
	if t.Number != cur.Number {
		details = "renumbered from " + cur.Number
	}
	s.recordDetails(user, audit.ActionUpdate, t, details)
	return t, nil
}

// Delete removes a draft.
func (s *Service) Delete(ctx context.Context, user string, companyID, id int64) error {
	cur, err := s.repo.GetTransactionHeader(ctx, companyID, id)
	if err != nil {
		return err
	}
	if cur.Posted() {
		return fmt.Errorf("%w: %s", ErrPosted, cur.Number)
	}
	if err := s.repo.DeleteTransaction(ctx, companyID, id); err != nil {
		if errors.Is(err, store.ErrNotDraft) {
			return fmt.Errorf("%w: %s", ErrPosted, cur.Number)
		}
		return fmt.Errorf("deleting transaction: %w", err)
	}
	s.record(user, audit.ActionDelete, cur)
	return nil
}

// Post validates a draft against every rule and makes it final. Two callers
// posting the same draft at once see exactly one success.
func (s *Service) Post(ctx context.Context, user string, companyID, id int64) (model.Transaction, error) {
	t, err := s.repo.GetTransaction(ctx, companyID, id)
	if err != nil {
		return model.Transaction{}, err
	}
	if t.Posted() {
		return model.Transaction{}, fmt.Errorf("%w: %s", ErrPosted, t.Number)
	}

	company, chart, err := s.books(ctx, companyID)
	if err != nil {
		return model.Transaction{}, err
	}
	refs, err := s.references(ctx, companyID)
	if err != nil {
		return model.Transaction{}, err
	}
	t.Recompute()
	if verrs := ValidateTransaction(t, chart, refs, company, true); len(verrs) > 0 {
		return model.Transaction{}, ValidationErrors(verrs)
	}

	at := s.now().UTC()
	if err := s.repo.MarkPosted(ctx, companyID, id, user, at); err != nil {
		if errors.Is(err, store.ErrNotDraft) {
			return model.Transaction{}, fmt.Errorf("%w: %s", ErrPosted, t.Number)
		}
		return model.Transaction{}, fmt.Errorf("posting transaction: %w", err)
	}
	t.Status = model.StatusPosted
	t.PostedBy = user
	t.PostedAt = &at

	s.record(user, audit.ActionPost, t)
	s.log.Info("transaction posted", zap.String("number", t.Number), zap.String("user", user))
	return t, nil
}

// ReverseParams customizes a reversal. Zero values fall back to the
// original's date and a generated description.
type ReverseParams struct {
	Date        civil.Date `json:"date,omitzero"`
	Description string     `json:"description"`
}

// Reverse books a posted mirror image of a posted transaction, swapping
// debits and credits. A transaction can be reversed once.
func (s *Service) Reverse(ctx context.Context, user string, companyID, id int64, p ReverseParams) (model.Transaction, error) {
	orig, err := s.repo.GetTransaction(ctx, companyID, id)
	if err != nil {
		return model.Transaction{}, err
	}
	if !orig.Posted() {
		return model.Transaction{}, fmt.Errorf("%w: only posted transactions can be reversed; delete the draft %s instead", model.ErrInvalid, orig.Number)
	}
	if orig.ReversalOf != 0 {
		return model.Transaction{}, fmt.Errorf("%w: %s is itself a reversal", model.ErrInvalid, orig.Number)
	}
	if rid, err := s.repo.FindReversal(ctx, id); err == nil {
		return model.Transaction{}, fmt.Errorf("%w: %s (reversal id %d)", ErrAlreadyReversed, orig.Number, rid)
	} else if !errors.Is(err, store.ErrNotFound) {
		return model.Transaction{}, fmt.Errorf("checking reversal of %s: %w", orig.Number, err)
	}

	rev := Mirror(orig)
	if p.Date != (civil.Date{}) {
		rev.Date = p.Date
	}
	if p.Description != "" {
		rev.Description = p.Description
	}

	company, chart, err := s.books(ctx, companyID)
	if err != nil {
		return model.Transaction{}, err
	}
	refs, err := s.references(ctx, companyID)
	if err != nil {
		return model.Transaction{}, err
	}
	if verrs := ValidateTransaction(rev, chart, refs, company, true); len(verrs) > 0 {
		return model.Transaction{}, ValidationErrors(verrs)
	}

	at := s.now().UTC()
	rev.CreatedBy = user
	rev.Status = model.StatusPosted
	rev.PostedBy = user
	rev.PostedAt = &at

	if err := s.repo.CreateTransaction(ctx, &rev); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return model.Transaction{}, fmt.Errorf("%w: %s", ErrAlreadyReversed, orig.Number)
		}
		return model.Transaction{}, fmt.Errorf("creating reversal: %w", err)
	}

	s.recordDetails(user, audit.ActionReverse, orig, "reversed by "+rev.Number)
	s.record(user, audit.ActionCreate, rev)
	s.log.Info("transaction reversed",
		zap.String("number", orig.Number),
		zap.String("reversal", rev.Number),
		zap.String("user", user))
	return rev, nil
}

// Mirror returns an unsaved copy of t with debits and credits swapped.
func Mirror(t model.Transaction) model.Transaction {
	rev := model.Transaction{
		CompanyID:   t.CompanyID,
		Type:        t.Type,
		Date:        t.Date,
		Description: "Pembalikan " + t.Number,
		Reference:   t.Number,
		PartnerID:   t.PartnerID,
		ReversalOf:  t.ID,
		Details:     make([]model.Detail, len(t.Details)),
	}
	for i, d := range t.Details {
		rev.Details[i] = model.Detail{
			AccountID:   d.AccountID,
			PartnerID:   d.PartnerID,
			ItemID:      d.ItemID,
			Quantity:    d.Quantity,
			Description: d.Description,
			Debit:       d.Credit,
			Credit:      d.Debit,
		}
	}
	rev.Recompute()
	return rev
}

// ImportResult summarizes an Import.
type ImportResult struct {
	Created []string `json:"created"`
}

// Import creates one transaction per group of records, all as drafts unless
// post is set. The first failing transaction stops the import; earlier ones stay.
func (s *Service) Import(ctx context.Context, user string, companyID int64, records []Record, post bool) (ImportResult, error) {
	_, chart, err := s.books(ctx, companyID)
	if err != nil {
		return ImportResult{}, err
	}
	txns, err := FromRecords(records, chart, companyID)
	if err != nil {
		return ImportResult{}, err
	}

	var res ImportResult
	for i, t := range txns {
		created, err := s.Create(ctx, user, t, post)
		if err != nil {
			return res, fmt.Errorf("transaction %d (%s %s): %w", i+1, t.Date, t.Description, err)
		}
		res.Created = append(res.Created, created.Number)
	}
	return res, nil
}

// Export returns the lines of every transaction matching f as CSV records.
func (s *Service) Export(ctx context.Context, f Filter) ([]Record, error) {
	_, chart, err := s.books(ctx, f.CompanyID)
	if err != nil {
		return nil, err
	}
	headers, err := s.repo.ListTransactions(ctx, f)
	if err != nil {
		return nil, err
	}
	txns := make([]model.Transaction, 0, len(headers))
	for _, h := range headers {
		t, err := s.repo.GetTransaction(ctx, f.CompanyID, h.ID)
		if err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return ToRecords(txns, chart), nil
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

// references loads the partners and items a company's transactions may use.
func (s *Service) references(ctx context.Context, companyID int64) (References, error) {
	partners, err := s.repo.ListPartners(ctx, companyID)
	if err != nil {
		return References{}, fmt.Errorf("loading partners: %w", err)
	}
	items, err := s.repo.ListItems(ctx, companyID)
	if err != nil {
		return References{}, fmt.Errorf("loading items: %w", err)
	}
	return NewReferences(partners, items), nil
}

// prepare checks header fields and derives the totals from the lines.
func prepare(t *model.Transaction) error {
	if !t.Type.Valid() {
		return fmt.Errorf("%w: unknown transaction type %q", model.ErrInvalid, t.Type)
	}
	if t.Date == (civil.Date{}) || !t.Date.IsValid() {
		return fmt.Errorf("%w: transaction date is required", model.ErrInvalid)
	}
	t.Description = strings.TrimSpace(t.Description)
	t.Reference = strings.TrimSpace(t.Reference)
	t.Recompute()
	return nil
}

func (s *Service) record(user, action string, t model.Transaction) {
	s.recordDetails(user, action, t, "")
}

func (s *Service) recordDetails(user, action string, t model.Transaction, extra string) {
	if s.audit == nil {
		return
	}
	details := fmt.Sprintf("%s %s %s", t.Number, t.Date, t.TotalDebit.StringFixed(2))
	if extra != "" {
		details += "; " + extra
	}
	err := s.audit.Append(audit.Entry{
		Timestamp: s.now(),
		User:      user,
		Action:    action,
		Entity:    auditEntity,
		EntityID:  t.ID,
		Details:   details,
	})
	if err != nil {
		s.log.Error("writing audit entry", zap.String("action", action), zap.Int64("id", t.ID), zap.Error(err))
	}
}

package app

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/cleared-dev/bukubesar/internal/audit"
	"github.com/cleared-dev/bukubesar/internal/importer"
	"github.com/cleared-dev/bukubesar/internal/journal"
	"github.com/cleared-dev/bukubesar/internal/model"
)

// StatementImport describes one bank statement file to book as drafts.
type StatementImport struct {
	CompanyID   int64
	Format      string // parser name, see importer.DefaultRegistry
	Path        string
	BankCode    string // account the statement belongs to
	CounterCode string // suspense account for the other side
}

// StatementResult summarizes an import.
type StatementResult struct {
	Drafts  []string `json:"drafts"`  // numbers of the created drafts
	Skipped int      `json:"skipped"` // lines already booked, or with a zero amount
}

// ImportStatement parses a statement and books every line not yet in the
// ledger as a draft KM or KK transaction. Lines are matched on reference.
// When a booking fails the drafts already created are kept and returned
// alongside the error.
func (a *App) ImportStatement(ctx context.Context, user string, in StatementImport) (StatementResult, error) {
	parser := importer.DefaultRegistry().Get(in.Format)
	if parser == nil {
		return StatementResult{}, fmt.Errorf("%w: no parser for format %q", model.ErrInvalid, in.Format)
	}

	chart, err := a.Accounts.Chart(ctx, in.CompanyID)
	if err != nil {
		return StatementResult{}, err
	}
	bank, ok := chart.ByCode(in.BankCode)
	if !ok {
		return StatementResult{}, fmt.Errorf("%w: unknown bank account %s", model.ErrInvalid, in.BankCode)
	}
	if bank.Kind != model.AccountKindBank && bank.Kind != model.AccountKindCash {
		return StatementResult{}, fmt.Errorf("%w: account %s is not a cash or bank account", model.ErrInvalid, bank.Code)
	}
	counter, ok := chart.ByCode(in.CounterCode)
	if !ok {
		return StatementResult{}, fmt.Errorf("%w: unknown counter account %s", model.ErrInvalid, in.CounterCode)
	}

	f, err := os.Open(in.Path)
	if err != nil {
		return StatementResult{}, fmt.Errorf("opening statement: %w", err)
	}
	defer f.Close()

	lines, err := parser.Parse(f)
	if err != nil {
		return StatementResult{}, fmt.Errorf("parsing %s: %w", in.Path, err)
	}

	fresh, err := a.unbooked(ctx, in.CompanyID, lines)
	if err != nil {
		return StatementResult{}, err
	}

	res := StatementResult{Drafts: []string{}, Skipped: len(lines) - len(fresh)}
	for _, l := range fresh {
		if l.Amount.IsZero() {
			res.Skipped++
		}
	}
	for _, t := range importer.Drafts(in.CompanyID, fresh, bank.ID, counter.ID) {
		created, err := a.Journal.Create(ctx, user, t, false)
		if err != nil {
			err = fmt.Errorf("booking %s: %w", t.Reference, err)
			a.recordImport(user, in.Path, res, err)
			return res, err
		}
		res.Drafts = append(res.Drafts, created.Number)
	}

	a.recordImport(user, in.Path, res, nil)
	return res, nil
}

// recordImport audits an import, including one that stopped part way.
func (a *App) recordImport(user, path string, res StatementResult, failure error) {
	details := fmt.Sprintf("%s: %d drafts, %d skipped", path, len(res.Drafts), res.Skipped)
	if failure != nil {
		details += "; stopped: " + failure.Error()
	}
	if err := a.Audit.Append(audit.Entry{
		User:    user,
		Action:  audit.ActionImport,
		Entity:  "statement",
		Details: details,
	}); err != nil {
		a.log.Error("writing audit entry", zap.Error(err))
	}
}

// unbooked drops lines whose reference already appears on a transaction in
// the statement's date range.
func (a *App) unbooked(ctx context.Context, companyID int64, lines []importer.StatementLine) ([]importer.StatementLine, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	from, to := lines[0].Date, lines[0].Date
	for _, l := range lines[1:] {
		if l.Date.Before(from) {
			from = l.Date
		}
		if l.Date.After(to) {
			to = l.Date
		}
	}

	existing, err := a.Journal.List(ctx, journal.Filter{CompanyID: companyID, From: from, To: to})
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(existing))
	for _, t := range existing {
		if t.Reference != "" {
			seen[t.Reference] = true
		}
	}

	var fresh []importer.StatementLine
	for _, l := range lines {
		if seen[l.Reference] {
			continue
		}
		seen[l.Reference] = true
		fresh = append(fresh, l)
	}
	return fresh, nil
}


// Package app opens a bukubesar data directory and wires the services
// shared by the CLI and the RPC server.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/cleared-dev/bukubesar/internal/accounts"
	"github.com/cleared-dev/bukubesar/internal/audit"
	"github.com/cleared-dev/bukubesar/internal/config"
	"github.com/cleared-dev/bukubesar/internal/journal"
	"github.com/cleared-dev/bukubesar/internal/masterdata"
	"github.com/cleared-dev/bukubesar/internal/model"
	"github.com/cleared-dev/bukubesar/internal/report"
	"github.com/cleared-dev/bukubesar/internal/session"
	"github.com/cleared-dev/bukubesar/internal/store"
	"github.com/cleared-dev/bukubesar/internal/users"
)

// App holds the store and every service built on it.
type App struct {
	Config     *config.Config
	Store      *store.Store
	Audit      *audit.Log
	Accounts   *accounts.Service
	Journal    *journal.Service
	MasterData *masterdata.Service
	Users      *users.Service
	Reports    *report.Service

	// Sessions is nil until OpenSessions; only the server needs it and
	// bbolt allows one process per file.
	Sessions *session.Store

	log *zap.Logger
}

// Open creates the data directory if needed and opens the ledger.
func Open(cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, err
	}
	trail := audit.New(cfg.AuditPath())
	accts := accounts.NewService(st)

	a := &App{
		Config:     cfg,
		Store:      st,
		Audit:      trail,
		Accounts:   accts,
		Journal:    journal.NewService(st, trail, logger),
		MasterData: masterdata.NewService(st, accts, trail, logger),
		Users:      users.NewService(st, trail, logger),
		Reports:    report.NewService(st),
		log:        logger,
	}
	logger.Debug("ledger opened", zap.String("db", cfg.DBPath()))
	return a, nil
}

// OpenSessions opens the session database.
func (a *App) OpenSessions() error {
	if a.Sessions != nil {
		return nil
	}
	s, err := session.Open(a.Config.SessionPath(), a.Config.Session.TTL)
	if err != nil {
		return err
	}
	a.Sessions = s
	return nil
}

// Close releases the databases.
func (a *App) Close() error {
	var errs []error
	if a.Sessions != nil {
		errs = append(errs, a.Sessions.Close())
	}
	errs = append(errs, a.Store.Close())
	return errors.Join(errs...)
}

// CompanyByCode finds a company by its short code.
func (a *App) CompanyByCode(ctx context.Context, code string) (model.Company, error) {
	companies, err := a.MasterData.ListCompanies(ctx)
	if err != nil {
		return model.Company{}, err
	}
	for _, c := range companies {
		if c.Code == code {
			return c, nil
		}
	}
	return model.Company{}, fmt.Errorf("company %s: %w", code, store.ErrNotFound)
}

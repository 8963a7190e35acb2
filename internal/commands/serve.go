package commands

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cleared-dev/bukubesar/internal/app"
	"github.com/cleared-dev/bukubesar/internal/rpc"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(opts *options) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON-RPC server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			if addr != "" {
				a.Config.Server.Addr = addr
			}
			ln, err := net.Listen("tcp", a.Config.Server.Addr)
			if err != nil {
				return fmt.Errorf("listening on %s: %w", a.Config.Server.Addr, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, a, ln, opts.log())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	return cmd
}

// serve runs the RPC server on ln until ctx ends, purging expired sessions
// in the background.
func serve(ctx context.Context, a *app.App, ln net.Listener, logger *zap.Logger) error {
	if err := a.OpenSessions(); err != nil {
		return err
	}
	cfg := a.Config

	srv := rpc.NewServer(a.Sessions, logger)
	srv.SetMaxBodyBytes(cfg.Server.MaxBodyBytes)
	rpc.Register(srv, rpc.Services{
		Users:      a.Users,
		Sessions:   a.Sessions,
		MasterData: a.MasterData,
		Accounts:   a.Accounts,
		Journal:    a.Journal,
		Reports:    a.Reports,
		Audit:      a.Audit,
	})

	httpSrv := &http.Server{
		Handler: rpc.NewRouter(srv, rpc.RouterConfig{
			RequestTimeout: cfg.Server.RequestTimeout,
			StaticDir:      cfg.Server.StaticDir,
		}, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting server", zap.String("addr", ln.Addr().String()), zap.Int("methods", len(srv.Methods())))
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		purgeSessions(gctx, a, cfg.Session.PurgeInterval, logger)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func purgeSessions(ctx context.Context, a *app.App, every time.Duration, logger *zap.Logger) {
	if every <= 0 {
		return
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.Sessions.Purge()
			if err != nil {
				logger.Error("purging sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				logger.Debug("purged expired sessions", zap.Int("count", n))
			}
		}
	}
}

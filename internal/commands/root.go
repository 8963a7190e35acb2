package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cleared-dev/bukubesar/internal/app"
	"github.com/cleared-dev/bukubesar/internal/buildinfo"
	"github.com/cleared-dev/bukubesar/internal/config"
	"github.com/cleared-dev/bukubesar/internal/model"
)

// options carries the persistent flags and the logger to subcommands.
type options struct {
	configPath string
	envFile    string
	company    string
	user       string
	verbose    bool

	logger *zap.Logger
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:     "bukubesar",
		Short:   "Double-entry general ledger for small companies",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", buildinfo.Version, buildinfo.Commit, buildinfo.Date),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			opts.logger, err = newLogger(cfg.Log, opts.verbose)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", config.FileName, "path to the configuration file")
	flags.StringVar(&opts.envFile, "env-file", ".env", "environment file with overrides")
	flags.StringVar(&opts.company, "company", "", "company code (default from config)")
	flags.StringVar(&opts.user, "as", "cli", "user name recorded in the audit trail")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newServeCommand(opts),
		newUserCommand(opts),
		newCompanyCommand(opts),
		newAccountsCommand(opts),
		newJournalCommand(opts),
		newImportCommand(opts),
		newReportCommand(opts),
	)

	return rootCmd
}

func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadOrDefault(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(o.envFile); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", o.configPath, err)
	}
	return cfg, nil
}

func (o *options) openApp() (*app.App, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	return app.Open(cfg, o.log())
}

// resolveCompany picks the --company flag or the configured default.
func (o *options) resolveCompany(ctx context.Context, a *app.App) (model.Company, error) {
	code := o.company
	if code == "" {
		code = a.Config.DefaultCompany
	}
	if code == "" {
		return model.Company{}, fmt.Errorf("no company selected; pass --company or set default_company")
	}
	return a.CompanyByCode(ctx, code)
}

func (o *options) log() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return o.logger
}

func newLogger(cfg config.LogConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level: %w", err)
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	if !cfg.JSON {
		zc.Encoding = "console"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

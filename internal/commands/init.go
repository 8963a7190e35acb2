package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cleared-dev/bukubesar/internal/app"
	"github.com/cleared-dev/bukubesar/internal/config"
	"github.com/cleared-dev/bukubesar/internal/model"
)

type initParams struct {
	CompanyCode   string
	CompanyName   string
	AdminUser     string
	AdminPassword string
}

func newInitCommand(opts *options) *cobra.Command {
	var p initParams

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new bukubesar installation",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.Context(), cmd.OutOrStdout(), absDir, p, opts.log())
		},
	}

	cmd.Flags().StringVar(&p.AdminUser, "admin", "admin", "name of the first administrator")
	cmd.Flags().StringVar(&p.AdminPassword, "password", "", "administrator password (required)")
	_ = cmd.MarkFlagRequired("password")
	cmd.Flags().StringVar(&p.CompanyCode, "company-code", "", "code of the first company")
	cmd.Flags().StringVar(&p.CompanyName, "company-name", "", "name of the first company")

	return cmd
}

func runInit(ctx context.Context, out io.Writer, dir string, p initParams, logger *zap.Logger) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	cfgPath := filepath.Join(dir, config.FileName)
	if _, err := os.Stat(cfgPath); err == nil {
		return fmt.Errorf("%s already exists", cfgPath)
	}

	// Write bukubesar.yaml.
	cfg := config.Default()
	cfg.DefaultCompany = p.CompanyCode
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Reload so the data dir resolves against the new directory.
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	a, err := app.Open(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if _, err := a.Users.Create(ctx, "init", model.User{Username: p.AdminUser, Role: model.RoleAdmin}, p.AdminPassword); err != nil {
		return fmt.Errorf("creating administrator: %w", err)
	}

	if p.CompanyCode != "" {
		name := p.CompanyName
		if name == "" {
			name = p.CompanyCode
		}
		if _, err := a.MasterData.CreateCompany(ctx, p.AdminUser, model.Company{Code: p.CompanyCode, Name: name}); err != nil {
			return fmt.Errorf("creating company: %w", err)
		}
	}

	// Write .gitignore.
	gitignore := "data/\n.env\n"
	if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0o644); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}

	fmt.Fprintf(out, "Initialized bukubesar at %s (admin: %s)\n", dir, p.AdminUser)
	return nil
}

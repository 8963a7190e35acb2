package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bukubesar/internal/accounts"
)

func newAccountsCommand(opts *options) *cobra.Command {
	accountsCmd := &cobra.Command{
		Use:   "accounts",
		Short: "Chart of accounts import and export",
	}
	accountsCmd.AddCommand(newAccountsExportCommand(opts), newAccountsImportCommand(opts))
	return accountsCmd
}

func newAccountsExportCommand(opts *options) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the chart of accounts as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := opts.resolveCompany(cmd.Context(), a)
			if err != nil {
				return err
			}
			rows, err := a.Accounts.Export(cmd.Context(), c.ID)
			if err != nil {
				return err
			}

			w, closeFn, err := createOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := accounts.WriteRows(w, rows); err != nil {
				_ = closeFn()
				return err
			}
			return closeFn()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")

	return cmd
}

func newAccountsImportCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Add accounts from CSV (code,name,type,kind,parent_code,is_group,description)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()
			rows, err := accounts.ReadRows(f)
			if err != nil {
				return err
			}

			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			c, err := opts.resolveCompany(cmd.Context(), a)
			if err != nil {
				return err
			}
			n, err := a.Accounts.Import(cmd.Context(), c.ID, rows)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d accounts into %s\n", n, c.Code)
			return nil
		},
	}
}

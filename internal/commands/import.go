package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bukubesar/internal/app"
	"github.com/cleared-dev/bukubesar/internal/importer"
)

func newImportCommand(opts *options) *cobra.Command {
	importCmd := &cobra.Command{
		Use:   "import",
		Short: "Import external data",
	}
	importCmd.AddCommand(newImportBankCommand(opts))
	return importCmd
}

func newImportBankCommand(opts *options) *cobra.Command {
	var format, bank, counter string

	cmd := &cobra.Command{
		Use:   "bank <file.csv|directory>",
		Short: "Book a bank statement as draft cash transactions",
		Long: `Parses a bank statement and books each line as a draft KM (money in) or
KK (money out) transaction between the bank account and a counter account.
Lines already booked under the same reference, and lines with a zero amount,
are skipped. Drafts booked before a failing line are kept and listed. Given a
directory, every CSV in it is imported and moved to processed/.`,
		Args: cobra.ExactArgs(1),
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
			in := app.StatementImport{CompanyID: c.ID, Format: format, BankCode: bank, CounterCode: counter}

			info, err := os.Stat(args[0])
			if err != nil {
				return err
			}
			if !info.IsDir() {
				in.Path = args[0]
				return importStatement(cmd, opts, a, in)
			}

			files, err := importer.Scan(args[0])
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No CSV files in %s\n", args[0])
				return nil
			}
			for _, f := range files {
				in.Path = f.Path
				if err := importStatement(cmd, opts, a, in); err != nil {
					return err
				}
				if err := importer.MarkProcessed(args[0], f.Name); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "generic", "statement format: "+strings.Join(importer.DefaultRegistry().Formats(), ", "))
	cmd.Flags().StringVar(&bank, "bank", "1-1200", "code of the bank account")
	cmd.Flags().StringVar(&counter, "counter", "1-1900", "code of the account for the other side")

	return cmd
}

func importStatement(cmd *cobra.Command, opts *options, a *app.App, in app.StatementImport) error {
	res, err := a.ImportStatement(cmd.Context(), opts.user, in)
	if err != nil && len(res.Drafts) == 0 {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: %d drafts, %d skipped\n", filepath.Base(in.Path), len(res.Drafts), res.Skipped)
	for _, number := range res.Drafts {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", number)
	}
	return err
}

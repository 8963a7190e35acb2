package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cleared-dev/bukubesar/internal/journal"
	"github.com/cleared-dev/bukubesar/internal/model"
)

func newJournalCommand(opts *options) *cobra.Command {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Journal transaction import and export",
	}
	journalCmd.AddCommand(newJournalExportCommand(opts), newJournalImportCommand(opts))
	return journalCmd
}

func newJournalExportCommand(opts *options) *cobra.Command {
	var output, from, to, status string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write journal lines as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f := journal.Filter{Status: model.TransactionStatus(status)}
			var err error
			if f.From, err = parseDateArg(from); err != nil {
				return err
			}
			if f.To, err = parseDateArg(to); err != nil {
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
			f.CompanyID = c.ID
			records, err := a.Journal.Export(cmd.Context(), f)
			if err != nil {
				return err
			}

			w, closeFn, err := createOutput(output, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := journal.WriteRecords(w, records); err != nil {
				_ = closeFn()
				return err
			}
			return closeFn()
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&from, "from", "", "first date, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last date, YYYY-MM-DD")
	cmd.Flags().StringVar(&status, "status", "", "draft or posted (default both)")

	return cmd
}

func newJournalImportCommand(opts *options) *cobra.Command {
	var post bool

	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Book transactions from journal CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening %s: %w", args[0], err)
			}
			defer f.Close()
			records, err := journal.ReadRecords(f)
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
			res, err := a.Journal.Import(cmd.Context(), opts.user, c.ID, records, post)
			for _, number := range res.Created {
				fmt.Fprintln(cmd.OutOrStdout(), number)
			}
			if err != nil {
				return fmt.Errorf("import stopped after %d transactions: %w", len(res.Created), err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions into %s\n", len(res.Created), c.Code)
			return nil
		},
	}

	cmd.Flags().BoolVar(&post, "post", false, "post each transaction after booking it")

	return cmd
}

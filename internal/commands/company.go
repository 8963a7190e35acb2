package commands

import (
	"fmt"

	"cloud.google.com/go/civil"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/bukubesar/internal/model"
)

func newCompanyCommand(opts *options) *cobra.Command {
	companyCmd := &cobra.Command{
		Use:   "company",
		Short: "Manage companies",
	}
	companyCmd.AddCommand(newCompanyCreateCommand(opts), newCompanyListCommand(opts), newCompanyLockCommand(opts))
	return companyCmd
}

func newCompanyCreateCommand(opts *options) *cobra.Command {
	var c model.Company

	cmd := &cobra.Command{
		Use:   "create <code>",
		Short: "Create a company with the default chart of accounts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			c.Code = args[0]
			created, err := a.MasterData.CreateCompany(cmd.Context(), opts.user, c)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created company %s (%s)\n", created.Code, created.Name)
			return nil
		},
	}

	cmd.Flags().StringVar(&c.Name, "name", "", "company name (required)")
	_ = cmd.MarkFlagRequired("name")
	cmd.Flags().StringVar(&c.Currency, "currency", "IDR", "reporting currency")
	cmd.Flags().IntVar(&c.FiscalYearStart, "fiscal-start", 1, "first month of the fiscal year")
	cmd.Flags().StringVar(&c.TaxID, "tax-id", "", "NPWP")
	cmd.Flags().StringVar(&c.Address, "address", "", "address")

	return cmd
}

func newCompanyListCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List companies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			companies, err := a.MasterData.ListCompanies(cmd.Context())
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(companies))
			for _, c := range companies {
				locked := "-"
				if c.LockedUntil != (civil.Date{}) {
					locked = c.LockedUntil.String()
				}
				rows = append(rows, []string{c.Code, c.Name, c.Currency, fmt.Sprint(c.FiscalYearStart), locked})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Code", "Name", "Currency", "FY start", "Locked until"}, rows, nil))
			return nil
		},
	}
}

func newCompanyLockCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "lock <date>",
		Short: "Close the books up to and including a date (\"open\" unlocks)",
		Args:  cobra.ExactArgs(1),
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
			until, err := parseDateArg(args[0])
			if err != nil {
				return err
			}
			c, err = a.MasterData.LockPeriod(cmd.Context(), opts.user, c.ID, until)
			if err != nil {
				return err
			}
			if c.LockedUntil == (civil.Date{}) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: all periods open\n", c.Code)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: locked until %s\n", c.Code, c.LockedUntil)
			}
			return nil
		},
	}
}

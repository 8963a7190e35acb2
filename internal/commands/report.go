package commands

import (
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/cleared-dev/bukubesar/internal/app"
	"github.com/cleared-dev/bukubesar/internal/model"
	"github.com/cleared-dev/bukubesar/internal/report"
)

func newReportCommand(opts *options) *cobra.Command {
	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Print financial reports from posted transactions",
	}
	reportCmd.AddCommand(
		newTrialBalanceCommand(opts),
		newBalanceSheetCommand(opts),
		newIncomeStatementCommand(opts),
		newLedgerCommand(opts),
		newAgingCommand(opts, "receivables", "Outstanding customer balances by age", model.AccountKindReceivable),
		newAgingCommand(opts, "payables", "Outstanding supplier balances by age", model.AccountKindPayable),
	)
	return reportCmd
}

// withCompany opens the app, resolves the selected company and runs fn.
func (o *options) withCompany(cmd *cobra.Command, fn func(a *app.App, c model.Company) error) error {
	a, err := o.openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := o.resolveCompany(cmd.Context(), a)
	if err != nil {
		return err
	}
	return fn(a, c)
}

func newTrialBalanceCommand(opts *options) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "trial-balance",
		Short: "Debit and credit totals per account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDateArg(asOf)
			if err != nil {
				return err
			}
			return opts.withCompany(cmd, func(a *app.App, c model.Company) error {
				tb, err := a.Reports.TrialBalance(cmd.Context(), c.ID, date)
				if err != nil {
					return err
				}
				printTrialBalance(cmd.OutOrStdout(), c, tb)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "last date included (YYYY-MM-DD, default everything)")
	return cmd
}

func printTrialBalance(w io.Writer, c model.Company, tb report.TrialBalance) {
	heading := "Neraca Saldo"
	if tb.AsOf != (civil.Date{}) {
		heading += " per " + tb.AsOf.String()
	}
	fmt.Fprintln(w, title(c.Name, heading))

	rows := make([][]string, 0, len(tb.Rows)+1)
	for _, r := range tb.Rows {
		rows = append(rows, []string{r.Code, r.Name, formatAmount(r.Debit), formatAmount(r.Credit), formatAmount(r.Balance)})
	}
	rows = append(rows, []string{"", "Total", formatAmount(tb.TotalDebit), formatAmount(tb.TotalCredit), ""})
	fmt.Fprintln(w, renderTable([]string{"Kode", "Akun", "Debit", "Kredit", "Saldo"}, rows, map[int]bool{2: true, 3: true, 4: true}))

	if !tb.Balanced {
		fmt.Fprintln(w, "WARNING: debits and credits differ")
	}
}

func newBalanceSheetCommand(opts *options) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   "balance-sheet",
		Short: "Assets, liabilities and equity at a date",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDateArg(asOf)
			if err != nil {
				return err
			}
			return opts.withCompany(cmd, func(a *app.App, c model.Company) error {
				bs, err := a.Reports.BalanceSheet(cmd.Context(), c.ID, date)
				if err != nil {
					return err
				}
				printBalanceSheet(cmd.OutOrStdout(), c, bs)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "report date (YYYY-MM-DD, default today)")
	return cmd
}

func printBalanceSheet(w io.Writer, c model.Company, bs report.BalanceSheet) {
	fmt.Fprintln(w, title(c.Name, "Neraca per "+bs.AsOf.String()))

	var rows [][]string
	rows = appendSection(rows, "ASET", bs.Assets)
	rows = appendSection(rows, "KEWAJIBAN", bs.Liabilities)
	rows = appendSection(rows, "EKUITAS", bs.Equity)
	rows = append(rows, []string{"", "Total Kewajiban dan Ekuitas", formatAmount(bs.TotalLiabilitiesEquity)})
	fmt.Fprintln(w, renderTable([]string{"Kode", "Akun", "Jumlah"}, rows, map[int]bool{2: true}))

	if !bs.Balanced {
		fmt.Fprintln(w, "WARNING: assets do not equal liabilities plus equity")
	}
}

func newIncomeStatementCommand(opts *options) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "income-statement",
		Short: "Revenue and expenses over a period",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := parseDateArg(from)
			if err != nil {
				return err
			}
			toDate, err := parseDateArg(to)
			if err != nil {
				return err
			}
			return opts.withCompany(cmd, func(a *app.App, c model.Company) error {
				is, err := a.Reports.IncomeStatement(cmd.Context(), c.ID, fromDate, toDate)
				if err != nil {
					return err
				}
				printIncomeStatement(cmd.OutOrStdout(), c, is)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD, default start of the fiscal year)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD, default today)")
	return cmd
}

func printIncomeStatement(w io.Writer, c model.Company, is report.IncomeStatement) {
	fmt.Fprintln(w, title(c.Name, fmt.Sprintf("Laba Rugi %s s/d %s", is.From, is.To)))

	var rows [][]string
	rows = appendSection(rows, "PENDAPATAN", is.Revenue)
	rows = appendSection(rows, "BEBAN", is.Expenses)
	label := "Laba Bersih"
	if is.NetIncome.IsNegative() {
		label = "Rugi Bersih"
	}
	rows = append(rows, []string{"", label, formatAmount(is.NetIncome)})
	fmt.Fprintln(w, renderTable([]string{"Kode", "Akun", "Jumlah"}, rows, map[int]bool{2: true}))
}

// appendSection adds a section's lines, indented by level, and its total.
func appendSection(rows [][]string, heading string, s report.Section) [][]string {
	rows = append(rows, []string{"", heading, ""})
	for _, l := range s.Lines {
		name := strings.Repeat("  ", l.Level+1) + l.Name
		rows = append(rows, []string{l.Code, name, formatAmount(l.Amount)})
	}
	return append(rows, []string{"", "Total " + heading, formatAmount(s.Total)})
}

func newLedgerCommand(opts *options) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "ledger <account-code>",
		Short: "Posted lines of an account with a running balance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fromDate, err := parseDateArg(from)
			if err != nil {
				return err
			}
			toDate, err := parseDateArg(to)
			if err != nil {
				return err
			}
			return opts.withCompany(cmd, func(a *app.App, c model.Company) error {
				chart, err := a.Accounts.Chart(cmd.Context(), c.ID)
				if err != nil {
					return err
				}
				acct, ok := chart.ByCode(args[0])
				if !ok {
					return fmt.Errorf("account %s not found in %s", args[0], c.Code)
				}
				gl, err := a.Reports.GeneralLedger(cmd.Context(), c.ID, acct.ID, fromDate, toDate)
				if err != nil {
					return err
				}
				printLedger(cmd.OutOrStdout(), c, gl)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "last date (YYYY-MM-DD)")
	return cmd
}

func printLedger(w io.Writer, c model.Company, gl report.GeneralLedger) {
	fmt.Fprintln(w, title(c.Name, fmt.Sprintf("Buku Besar %s %s", gl.Account.Code, gl.Account.Name)))

	rows := [][]string{{"", "", "Saldo Awal", "", "", formatAmount(gl.OpeningBalance)}}
	for _, e := range gl.Entries {
		desc := e.Description
		if e.Memo != "" {
			desc = e.Memo
		}
		rows = append(rows, []string{e.Date.String(), e.Number, desc, amountOrBlank(e.Debit), amountOrBlank(e.Credit), formatAmount(e.Balance)})
	}
	rows = append(rows, []string{"", "", "Saldo Akhir", formatAmount(gl.TotalDebit), formatAmount(gl.TotalCredit), formatAmount(gl.ClosingBalance)})
	fmt.Fprintln(w, renderTable([]string{"Tanggal", "Nomor", "Keterangan", "Debit", "Kredit", "Saldo"}, rows, map[int]bool{3: true, 4: true, 5: true}))
}

func amountOrBlank(d decimal.Decimal) string {
	if d.IsZero() {
		return ""
	}
	return formatAmount(d)
}

func newAgingCommand(opts *options, use, short string, kind model.AccountKind) *cobra.Command {
	var asOf string
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := parseDateArg(asOf)
			if err != nil {
				return err
			}
			return opts.withCompany(cmd, func(a *app.App, c model.Company) error {
				var ag report.Aging
				if kind == model.AccountKindPayable {
					ag, err = a.Reports.Payables(cmd.Context(), c.ID, date)
				} else {
					ag, err = a.Reports.Receivables(cmd.Context(), c.ID, date)
				}
				if err != nil {
					return err
				}
				printAging(cmd.OutOrStdout(), c, ag)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "report date (YYYY-MM-DD, default today)")
	return cmd
}

func printAging(w io.Writer, c model.Company, ag report.Aging) {
	heading := "Umur Piutang"
	if ag.Kind == model.AccountKindPayable {
		heading = "Umur Utang"
	}
	fmt.Fprintln(w, title(c.Name, heading+" per "+ag.AsOf.String()))

	agingRow := func(code, name string, r report.AgingRow) []string {
		return []string{code, name, formatAmount(r.Current), formatAmount(r.Days31To60), formatAmount(r.Days61To90), formatAmount(r.Over90), formatAmount(r.Total)}
	}
	rows := make([][]string, 0, len(ag.Rows)+1)
	for _, r := range ag.Rows {
		rows = append(rows, agingRow(r.PartnerCode, r.PartnerName, r))
	}
	rows = append(rows, agingRow("", "Total", ag.Totals))
	fmt.Fprintln(w, renderTable(
		[]string{"Kode", "Relasi", "0-30", "31-60", "61-90", ">90", "Total"},
		rows,
		map[int]bool{2: true, 3: true, 4: true, 5: true, 6: true},
	))
}

package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/export"
	"github.com/finansage/finansage/internal/history"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/report"
	"github.com/finansage/finansage/internal/store"
)

func newNetWorthCommand(a *app) *cobra.Command {
	var showHistory bool

	cmd := &cobra.Command{
		Use:   "networth",
		Short: "Show net worth and how it changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			out := cmd.OutOrStdout()
			writeNetWorth(out, st, s.Today())

			if !showHistory {
				return nil
			}
			fmt.Fprintln(out)
			t := newTable(out, "DATE", "NET WORTH")
			for _, e := range st.NetWorthHistory {
				t.row(e.Date.String(), amount(e.Value, st.Settings.PrimaryCurrency))
			}
			return t.flush()
		},
	}
	cmd.Flags().BoolVar(&showHistory, "history", false, "list every recorded day")
	return cmd
}

func writeNetWorth(w io.Writer, st store.State, today date.Date) {
	cur := st.Settings.PrimaryCurrency
	b := report.NetWorthBreakdown(st.Accounts)
	fmt.Fprintf(w, "Net worth:   %s\n", amount(b.NetWorth, cur))
	fmt.Fprintf(w, "Assets:      %s\n", amount(b.Assets, cur))
	fmt.Fprintf(w, "Liabilities: %s\n", amount(b.Liabilities, cur))
	for _, p := range []struct {
		label string
		days  int
	}{{"7 days", 7}, {"30 days", 30}} {
		if delta, ok := history.Change(st.NetWorthHistory, today.Add(-p.days)); ok {
			sign := ""
			if delta.IsPositive() {
				sign = "+"
			}
			fmt.Fprintf(w, "Change (%s): %s%s\n", p.label, sign, amount(delta, cur))
		}
	}
}

func newDashboardCommand(a *app) *cobra.Command {
	var withAI, raw bool

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Summarize this month at a glance",
		Long: `Summarize net worth, this month's income and spending, budgets, goals,
upcoming subscriptions and recent transactions. Cards hidden with
"finansage settings card <name> off" are skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			st := s.Snapshot()
			today := s.Today()
			cur := st.Settings.PrimaryCurrency
			out := cmd.OutOrStdout()
			show := st.Settings.CardVisible

			section := func(title string) { fmt.Fprintf(out, "\n== %s ==\n", title) }

			if show(model.CardNetWorth) {
				section("Net worth")
				writeNetWorth(out, st, today)
			}

			if show(model.CardMonthlySummary) {
				section(fmt.Sprintf("%s %d", today.Month(), today.Year()))
				m := report.MonthlyTotals(st.Transactions, today)
				fmt.Fprintf(out, "Income:       %s\n", amount(m.Income, cur))
				fmt.Fprintf(out, "Expenses:     %s\n", amount(m.Expense, cur))
				fmt.Fprintf(out, "Net:          %s\n", amount(m.Net(), cur))
				fmt.Fprintf(out, "Savings rate: %s%%\n", m.SavingsRate().StringFixed(1))
			}

			if show(model.CardSpending) {
				section("Spending by category")
				var month []model.Transaction
				for _, t := range st.Transactions {
					if t.Date.SameMonth(today) {
						month = append(month, t)
					}
				}
				t := newTable(out, "CATEGORY", "SPENT")
				for _, c := range report.SpendingByCategory(month, st.Categories) {
					t.row(c.Name, amount(c.Total, cur))
				}
				if err := t.flush(); err != nil {
					return err
				}
			}

			if show(model.CardBudgets) && len(st.Budgets) > 0 {
				section("Budgets")
				t := newTable(out, "CATEGORY", "SPENT", "BUDGET", "USED")
				for _, p := range report.BudgetStatus(st.Budgets, st.Transactions, st.Categories, today) {
					used := p.Progress.StringFixed(0) + "%"
					if p.Over() {
						used += " over"
					}
					t.row(p.CategoryName, amount(p.Spent, cur), amount(p.Budget.Amount, cur), used)
				}
				if err := t.flush(); err != nil {
					return err
				}
			}

			if show(model.CardGoals) && len(st.Goals) > 0 {
				section("Goals")
				t := newTable(out, "GOAL", "SAVED", "PROGRESS")
				for _, g := range report.GoalProgress(st.Goals, today) {
					t.row(g.Goal.Name, amount(g.Goal.CurrentAmount, cur), g.Progress.StringFixed(0)+"%")
				}
				if err := t.flush(); err != nil {
					return err
				}
			}

			if show(model.CardSubscriptions) {
				if due := report.UpcomingSubscriptions(st.Subscriptions, today, 7); len(due) > 0 {
					section("Due this week")
					t := newTable(out, "NAME", "AMOUNT", "DATE")
					for _, v := range due {
						t.row(v.Name, amount(v.Amount, cur), v.NextPaymentDate.String())
					}
					if err := t.flush(); err != nil {
						return err
					}
				}
			}

			if show(model.CardRecent) && len(st.Transactions) > 0 {
				section("Recent transactions")
				t := newTable(out, "DATE", "DESCRIPTION", "AMOUNT")
				for _, txn := range st.Transactions[:min(5, len(st.Transactions))] {
					t.row(txn.Date.String(), txn.Description, signed(txn, currencyOf(st.Accounts, txn.AccountID, cur)))
				}
				if err := t.flush(); err != nil {
					return err
				}
			}

			if withAI && show(model.CardInsights) {
				svc, err := a.insights(ctx, cur)
				if err != nil {
					return err
				}
				analysis := svc.AnalyzeAll(ctx, insightData(st))
				section("Insights")
				if err := markdown(out, analysis.Insights, raw); err != nil {
					return err
				}
				if len(analysis.Subscriptions) > 0 {
					section("Possible subscriptions")
					t := newTable(out, "NAME", "AMOUNT", "EVERY")
					for _, d := range analysis.Subscriptions {
						t.row(d.Name, amount(d.Amount, cur), string(d.Frequency))
					}
					if err := t.flush(); err != nil {
						return err
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&withAI, "ai", false, "include model insights and subscription detection")
	cmd.Flags().BoolVar(&raw, "raw", false, "print insights as markdown source")
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var f filterFlags
	var dir string
	var stdout bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write matching transactions to a CSV file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			flt, err := f.filter(st)
			if err != nil {
				return err
			}
			txns := flt.Apply(st.Transactions)
			names := export.NewNames(st.Accounts, st.Categories)

			if stdout {
				return export.WriteTransactions(cmd.OutOrStdout(), txns, names)
			}

			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}
			path := filepath.Join(dir, export.FileName(s.Today()))
			file, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("creating export: %w", err)
			}
			if err := export.WriteTransactions(file, txns, names); err != nil {
				file.Close()
				return err
			}
			if err := file.Close(); err != nil {
				return fmt.Errorf("closing export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d transactions to %s\n", len(txns), path)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVarP(&dir, "out", "o", "exports", "output directory")
	cmd.Flags().BoolVar(&stdout, "stdout", false, "write the CSV to standard output")
	return cmd
}

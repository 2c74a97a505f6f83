package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/report"
	"github.com/finansage/finansage/internal/store"
)

func newGoalCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "goal",
		Short: "Track savings goals",
	}
	cmd.AddCommand(newGoalAddCommand(a), newGoalListCommand(a), newGoalContributeCommand(a))
	return cmd
}

func newGoalAddCommand(a *app) *cobra.Command {
	var target, current, deadline, icon string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a savings goal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			g := model.Goal{Name: args[0], Icon: icon}
			if g.TargetAmount, err = optionalAmount(target); err != nil {
				return err
			}
			if g.CurrentAmount, err = optionalAmount(current); err != nil {
				return err
			}
			if g.Deadline, err = dateOr(deadline, date.Date{}); err != nil {
				return err
			}
			g, err = s.AddGoal(cmd.Context(), g)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added goal %s %s (target %s)\n",
				short(g.ID), g.Name, amount(g.TargetAmount, s.Snapshot().Settings.PrimaryCurrency))
			return nil
		},
	}
	cmd.Flags().StringVar(&target, "target", "", "target amount")
	cmd.Flags().StringVar(&current, "current", "0", "amount already saved")
	cmd.Flags().StringVar(&deadline, "deadline", "", "deadline YYYY-MM-DD")
	cmd.Flags().StringVar(&icon, "icon", "", "icon name")
	_ = cmd.MarkFlagRequired("target")
	return cmd
}

func newGoalListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show progress towards each goal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			cur := st.Settings.PrimaryCurrency

			t := newTable(cmd.OutOrStdout(), "ID", "GOAL", "SAVED", "TARGET", "PROGRESS", "DEADLINE")
			for _, g := range report.GoalProgress(st.Goals, s.Today()) {
				t.row(short(g.Goal.ID), g.Goal.Name, amount(g.Goal.CurrentAmount, cur), amount(g.Goal.TargetAmount, cur),
					g.Progress.StringFixed(0)+"%", deadlineLabel(g))
			}
			return t.flush()
		},
	}
}

func deadlineLabel(g report.GoalStatus) string {
	switch {
	case g.Goal.Deadline.IsZero():
		return "-"
	case g.DaysLeft < 0:
		return g.Goal.Deadline.String() + " (passed)"
	}
	return fmt.Sprintf("%s (%d days)", g.Goal.Deadline, g.DaysLeft)
}

func newGoalContributeCommand(a *app) *cobra.Command {
	var account, category, on string

	cmd := &cobra.Command{
		Use:   "contribute <goal> <amount>",
		Short: "Move money from an account towards a goal",
		Long: `Raise a goal's saved amount and book the same amount as an expense
against the paying account, in one step.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()

			var c store.Contribution
			if c.GoalID, err = byName("goal", args[0], st.Goals, func(g model.Goal) string { return g.Name }); err != nil {
				return err
			}
			if c.Amount, err = optionalAmount(args[1]); err != nil {
				return err
			}
			if c.AccountID, err = accountRef(account, st.Accounts); err != nil {
				return err
			}
			if category != "" {
				if c.CategoryID, err = categoryRef(category, st.Categories); err != nil {
					return err
				}
			}
			if c.Date, err = dateOr(on, date.Date{}); err != nil {
				return err
			}

			g, txn, err := s.ContributeToGoal(cmd.Context(), c)
			if err != nil {
				return err
			}
			cur := currencyOf(st.Accounts, txn.AccountID, st.Settings.PrimaryCurrency)
			fmt.Fprintf(cmd.OutOrStdout(), "Contributed %s to %s (%s of %s)\n",
				amount(txn.Amount, cur), g.Name, amount(g.CurrentAmount, cur), amount(g.TargetAmount, cur))
			return nil
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "paying account name or ID")
	cmd.Flags().StringVar(&category, "category", "", "expense category for the booked transaction")
	cmd.Flags().StringVar(&on, "date", "", "contribution date (default today)")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/report"
)

func newCategoryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "category",
		Short: "Manage income and expense categories",
	}
	cmd.AddCommand(newCategoryAddCommand(a), newCategoryListCommand(a), newCategoryDeleteCommand(a))
	return cmd
}

func newCategoryAddCommand(a *app) *cobra.Command {
	var typ, icon string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			c, err := s.AddCategory(cmd.Context(), model.Category{Name: args[0], Type: model.CategoryType(typ), Icon: icon})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s category %s %s\n", c.Type, short(c.ID), c.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&typ, "type", string(model.CategoryExpense), "income or expense")
	cmd.Flags().StringVar(&icon, "icon", "", "icon name")
	return cmd
}

func newCategoryListCommand(a *app) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "TYPE")
			for _, c := range s.Snapshot().Categories {
				if typ != "" && string(c.Type) != typ {
					continue
				}
				t.row(short(c.ID), c.Name, string(c.Type))
			}
			return t.flush()
		},
	}
	cmd.Flags().StringVar(&typ, "type", "", "only income or expense")
	return cmd
}

func newCategoryDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name|id>",
		Short: "Delete a category no transaction, budget or subscription uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			categoryID, err := categoryRef(args[0], s.Snapshot().Categories)
			if err != nil {
				return err
			}
			if err := s.DeleteCategory(cmd.Context(), categoryID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted category %s\n", args[0])
			return nil
		},
	}
}

// categoryRef resolves a category by name or ID.
func categoryRef(ref string, categories []model.Category) (string, error) {
	return byName("category", ref, categories, func(c model.Category) string { return c.Name })
}

func newBudgetCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Manage monthly budgets per expense category",
	}
	cmd.AddCommand(newBudgetSetCommand(a), newBudgetListCommand(a), newBudgetDeleteCommand(a))
	return cmd
}

func newBudgetSetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set <category> <amount>",
		Short: "Create or change the monthly budget for a category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			categoryID, err := categoryRef(args[0], st.Categories)
			if err != nil {
				return err
			}
			amt, err := optionalAmount(args[1])
			if err != nil {
				return err
			}

			b := model.Budget{CategoryID: categoryID, Amount: amt}
			for _, existing := range st.Budgets {
				if existing.CategoryID == categoryID {
					b.ID = existing.ID
				}
			}
			if b.ID == "" {
				b, err = s.AddBudget(cmd.Context(), b)
			} else {
				b, err = s.UpdateBudget(cmd.Context(), b)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Budget for %s set to %s\n", args[0], amount(b.Amount, st.Settings.PrimaryCurrency))
			return nil
		},
	}
}

func newBudgetListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show this month's spending against each budget",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			cur := st.Settings.PrimaryCurrency

			t := newTable(cmd.OutOrStdout(), "CATEGORY", "BUDGET", "SPENT", "LEFT", "USED")
			for _, p := range report.BudgetStatus(st.Budgets, st.Transactions, st.Categories, s.Today()) {
				used := p.Progress.StringFixed(0) + "%"
				if p.Over() {
					used += " over"
				}
				t.row(p.CategoryName, amount(p.Budget.Amount, cur), amount(p.Spent, cur), amount(p.Remaining, cur), used)
			}
			return t.flush()
		},
	}
}

func newBudgetDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <category>",
		Short: "Remove a category's budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			categoryID, err := categoryRef(args[0], st.Categories)
			if err != nil {
				return err
			}
			for _, b := range st.Budgets {
				if b.CategoryID == categoryID {
					if err := s.DeleteBudget(cmd.Context(), b.ID); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted budget for %s\n", args[0])
					return nil
				}
			}
			return fmt.Errorf("no budget for %s", args[0])
		},
	}
}

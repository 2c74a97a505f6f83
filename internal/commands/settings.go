package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finansage/finansage/internal/model"
)

func newSettingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change preferences",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			set := s.Snapshot().Settings
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Currency:   %s\n", set.PrimaryCurrency)
			fmt.Fprintf(out, "Navigation: %s\n", strings.Join(set.BottomNav, ", "))
			fmt.Fprintln(out, "Dashboard cards:")
			t := newTable(out, "  CARD", "VISIBLE")
			for _, card := range model.DashboardCards {
				t.row("  "+card, yesNo(set.CardVisible(card)))
			}
			return t.flush()
		},
	}

	currency := &cobra.Command{
		Use:   "currency <code>",
		Short: "Set the primary currency",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.SetPrimaryCurrency(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Primary currency set to %s\n", s.Snapshot().Settings.PrimaryCurrency)
			return nil
		},
	}

	card := &cobra.Command{
		Use:       "card <name> <on|off>",
		Short:     "Show or hide a dashboard card",
		Args:      cobra.ExactArgs(2),
		ValidArgs: model.DashboardCards,
		RunE: func(cmd *cobra.Command, args []string) error {
			var visible bool
			switch strings.ToLower(args[1]) {
			case "on", "show", "true":
				visible = true
			case "off", "hide", "false":
			default:
				return fmt.Errorf("expected on or off, got %q", args[1])
			}
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.SetDashboardCard(cmd.Context(), args[0], visible); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Card %s %s\n", args[0], map[bool]string{true: "shown", false: "hidden"}[visible])
			return nil
		},
	}

	nav := &cobra.Command{
		Use:   "nav <view>...",
		Short: "Choose the views in the navigation bar",
		Long:  "Choose the views in the navigation bar. Available: " + strings.Join(model.NavViews, ", "),
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.SetBottomNav(cmd.Context(), args); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Navigation set to %s\n", strings.Join(args, ", "))
			return nil
		},
	}

	cmd.AddCommand(show, currency, card, nav)
	return cmd
}

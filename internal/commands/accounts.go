package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/money"
)

func newAccountCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Manage accounts",
	}
	cmd.AddCommand(
		newAccountAddCommand(a),
		newAccountListCommand(a),
		newAccountUpdateCommand(a),
		newAccountDeleteCommand(a),
	)
	return cmd
}

// accountFlags are the descriptive account fields shared by add and update.
type accountFlags struct {
	name, typ, currency, bank, number string
	creditLimit, interestRate         string
	dueDay                            int
}

func (f *accountFlags) register(cmd *cobra.Command) {
	types := make([]string, len(model.AccountTypes))
	for i, t := range model.AccountTypes {
		types[i] = string(t)
	}
	cmd.Flags().StringVar(&f.name, "name", "", "account name")
	cmd.Flags().StringVar(&f.typ, "type", string(model.AccountTypeChecking), "account type: "+strings.Join(types, ", "))
	cmd.Flags().StringVar(&f.currency, "currency", "", "currency code (default: primary currency)")
	cmd.Flags().StringVar(&f.bank, "bank", "", "bank name")
	cmd.Flags().StringVar(&f.number, "number", "", "last four digits of the account number")
	cmd.Flags().StringVar(&f.creditLimit, "credit-limit", "", "credit limit for cards")
	cmd.Flags().StringVar(&f.interestRate, "interest-rate", "", "annual interest rate in percent")
	cmd.Flags().IntVar(&f.dueDay, "due-day", 0, "day of month a payment is due")
}

// apply copies every flag the user set onto acct.
func (f *accountFlags) apply(cmd *cobra.Command, acct *model.Account) error {
	changed := cmd.Flags().Changed
	if changed("name") {
		acct.Name = f.name
	}
	if changed("type") || acct.Type == "" {
		acct.Type = model.AccountType(f.typ)
	}
	if changed("currency") {
		acct.Currency = f.currency
	}
	if changed("bank") {
		acct.BankName = f.bank
	}
	if changed("number") {
		acct.AccountNumber = f.number
	}
	if changed("due-day") {
		acct.DueDay = f.dueDay
	}
	if changed("credit-limit") {
		v, err := optionalAmount(f.creditLimit)
		if err != nil {
			return err
		}
		acct.CreditLimit = v
	}
	if changed("interest-rate") {
		v, err := optionalAmount(f.interestRate)
		if err != nil {
			return err
		}
		acct.InterestRate = v
	}
	return nil
}

func newAccountAddCommand(a *app) *cobra.Command {
	var f accountFlags
	var balance string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an account with its opening balance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			var acct model.Account
			if err := f.apply(cmd, &acct); err != nil {
				return err
			}
			if acct.Balance, err = optionalAmount(balance); err != nil {
				return err
			}
			acct, err = s.AddAccount(cmd.Context(), acct)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added account %s %s (%s)\n", short(acct.ID), acct.Name, amount(acct.Balance, acct.Currency))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&balance, "balance", "0", "opening balance")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func newAccountListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List accounts and balances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			if len(st.Accounts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No accounts.")
				return nil
			}

			accounts := slices.Clone(st.Accounts)
			slices.SortStableFunc(accounts, func(x, y model.Account) int {
				return slices.Index(model.AccountTypes, x.Type) - slices.Index(model.AccountTypes, y.Type)
			})

			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "TYPE", "BANK", "BALANCE")
			for _, acct := range accounts {
				bal := amount(acct.Balance, acct.Currency)
				if acct.Type == model.AccountTypeCreditCard && acct.CreditLimit.IsPositive() {
					bal += " of " + amount(acct.CreditLimit, acct.Currency)
				}
				t.row(short(acct.ID), acct.Name, string(acct.Type), acct.BankName, bal)
			}
			return t.flush()
		},
	}
}

func newAccountUpdateCommand(a *app) *cobra.Command {
	var f accountFlags

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an account's details (the balance follows its transactions)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			accountID, err := resolve("account", args[0], st.Accounts)
			if err != nil {
				return err
			}
			acct, _ := st.Account(accountID)
			if err := f.apply(cmd, &acct); err != nil {
				return err
			}
			acct, err = s.UpdateAccount(cmd.Context(), acct)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated account %s %s\n", short(acct.ID), acct.Name)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newAccountDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account that nothing references",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			accountID, err := resolve("account", args[0], s.Snapshot().Accounts)
			if err != nil {
				return err
			}
			if err := s.DeleteAccount(cmd.Context(), accountID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted account %s\n", short(accountID))
			return nil
		},
	}
}

// accountRef resolves an account flag by name or ID.
func accountRef(ref string, accounts []model.Account) (string, error) {
	return byName("account", ref, accounts, func(a model.Account) string { return a.Name })
}

// currencyOf is the account's currency, or primary when unknown.
func currencyOf(accounts []model.Account, accountID, primary string) string {
	for _, acct := range accounts {
		if acct.ID == accountID && money.ValidCurrency(acct.Currency) {
			return acct.Currency
		}
	}
	return primary
}

package commands

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/model"
)

func newAssetCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset",
		Short: "Track physical assets",
	}
	cmd.AddCommand(newAssetAddCommand(a), newAssetListCommand(a), newAssetFetchCommand(a))
	return cmd
}

func newAssetAddCommand(a *app) *cobra.Command {
	var category, description, price, value, purchased, url string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an asset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			v := model.Asset{Name: args[0], Description: description, URL: url}
			if v.CategoryID, err = assetCategoryRef(category, st.AssetCategories); err != nil {
				return err
			}
			if v.PurchasePrice, err = optionalAmount(price); err != nil {
				return err
			}
			if v.CurrentValue, err = optionalAmount(value); err != nil {
				return err
			}
			if value == "" {
				v.CurrentValue = v.PurchasePrice
			}
			if v.PurchaseDate, err = dateOr(purchased, s.Today()); err != nil {
				return err
			}
			v, err = s.AddAsset(cmd.Context(), v)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added asset %s %s (%s)\n", short(v.ID), v.Name, amount(v.CurrentValue, st.Settings.PrimaryCurrency))
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "asset category name or ID")
	cmd.Flags().StringVar(&description, "description", "", "description")
	cmd.Flags().StringVar(&price, "price", "", "purchase price")
	cmd.Flags().StringVar(&value, "value", "", "current value (default: purchase price)")
	cmd.Flags().StringVar(&purchased, "purchased", "", "purchase date (default today)")
	cmd.Flags().StringVar(&url, "url", "", "product page")
	return cmd
}

func newAssetListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List assets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			cur := st.Settings.PrimaryCurrency

			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "CATEGORY", "PAID", "VALUE", "PURCHASED")
			for _, v := range st.Assets {
				cat := "-"
				if c, ok := findByID(st.AssetCategories, v.CategoryID); ok {
					cat = c.Name
				}
				t.row(short(v.ID), v.Name, cat, amount(v.PurchasePrice, cur), amount(v.CurrentValue, cur), v.PurchaseDate.String())
			}
			return t.flush()
		},
	}
}

func newAssetFetchCommand(a *app) *cobra.Command {
	var add bool
	var category string

	cmd := &cobra.Command{
		Use:   "fetch <url>",
		Short: "Read product details from a web page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			st := s.Snapshot()
			svc, err := a.insights(ctx, st.Settings.PrimaryCurrency)
			if err != nil {
				return err
			}
			p := svc.ExtractProduct(ctx, args[0])
			if p == nil {
				return fmt.Errorf("could not read product details from %s", args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:        %s\n", p.Name)
			fmt.Fprintf(out, "Price:       %s\n", amount(p.Price, st.Settings.PrimaryCurrency))
			if p.Description != "" {
				fmt.Fprintf(out, "Description: %s\n", p.Description)
			}
			if p.ImageURL != "" {
				fmt.Fprintf(out, "Image:       %s\n", p.ImageURL)
			}
			if !add {
				return nil
			}

			v := model.Asset{
				Name:          p.Name,
				Description:   p.Description,
				PurchasePrice: p.Price,
				CurrentValue:  p.Price,
				PurchaseDate:  s.Today(),
				ImageURL:      p.ImageURL,
				URL:           args[0],
			}
			if v.CategoryID, err = assetCategoryRef(category, st.AssetCategories); err != nil {
				return err
			}
			v, err = s.AddAsset(ctx, v)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Added asset %s %s\n", short(v.ID), v.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&add, "add", false, "store the product as an asset")
	cmd.Flags().StringVar(&category, "category", "", "asset category for --add")
	return cmd
}

func assetCategoryRef(ref string, categories []model.AssetCategory) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", nil
	}
	return byName("asset category", ref, categories, func(c model.AssetCategory) string { return c.Name })
}

func findByID[T model.Record](list []T, recID string) (T, bool) {
	i := slices.IndexFunc(list, func(r T) bool { return r.GetID() == recID })
	if i < 0 {
		var zero T
		return zero, false
	}
	return list[i], true
}

func newAssetCategoryCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asset-category",
		Short: "Manage asset categories",
	}

	var icon string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an asset category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			c, err := s.AddAssetCategory(cmd.Context(), model.AssetCategory{Name: args[0], Icon: icon})
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added asset category %s %s\n", short(c.ID), c.Name)
			return nil
		},
	}
	add.Flags().StringVar(&icon, "icon", "", "icon name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List asset categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable(cmd.OutOrStdout(), "ID", "NAME")
			for _, c := range s.Snapshot().AssetCategories {
				t.row(short(c.ID), c.Name)
			}
			return t.flush()
		},
	}

	del := &cobra.Command{
		Use:   "delete <name|id>",
		Short: "Delete an asset category no asset uses",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			categoryID, err := assetCategoryRef(args[0], s.Snapshot().AssetCategories)
			if err != nil {
				return err
			}
			if err := s.DeleteAssetCategory(cmd.Context(), categoryID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted asset category %s\n", args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, del)
	return cmd
}

func newInvestmentCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "investment",
		Short: "Track market holdings",
	}

	var symbol, typ, quantity, paid, price, purchased, account string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a holding",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			v := model.Investment{Name: args[0], Symbol: strings.ToUpper(symbol), Type: model.InvestmentType(typ)}
			if v.Quantity, err = optionalAmount(quantity); err != nil {
				return err
			}
			if v.PurchasePrice, err = optionalAmount(paid); err != nil {
				return err
			}
			if v.CurrentPrice, err = optionalAmount(price); err != nil {
				return err
			}
			if price == "" {
				v.CurrentPrice = v.PurchasePrice
			}
			if v.PurchaseDate, err = dateOr(purchased, s.Today()); err != nil {
				return err
			}
			if account != "" {
				if v.AccountID, err = accountRef(account, st.Accounts); err != nil {
					return err
				}
			}
			v, err = s.AddInvestment(cmd.Context(), v)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added investment %s %s worth %s\n", short(v.ID), v.Name, amount(v.Value(), st.Settings.PrimaryCurrency))
			return nil
		},
	}
	add.Flags().StringVar(&symbol, "symbol", "", "ticker symbol")
	add.Flags().StringVar(&typ, "type", string(model.InvestmentStock), "stock, etf, mutual_fund, bond, crypto or other")
	add.Flags().StringVar(&quantity, "quantity", "", "units held")
	add.Flags().StringVar(&paid, "paid", "", "purchase price per unit")
	add.Flags().StringVar(&price, "price", "", "current price per unit (default: purchase price)")
	add.Flags().StringVar(&purchased, "purchased", "", "purchase date (default today)")
	add.Flags().StringVar(&account, "account", "", "brokerage account name or ID")
	_ = add.MarkFlagRequired("quantity")

	list := &cobra.Command{
		Use:   "list",
		Short: "List holdings with value and unrealized gain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			cur := st.Settings.PrimaryCurrency
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "SYMBOL", "TYPE", "QTY", "VALUE", "GAIN")
			for _, v := range st.Investments {
				t.row(short(v.ID), v.Name, v.Symbol, string(v.Type), v.Quantity.String(), amount(v.Value(), cur), amount(v.Gain(), cur))
			}
			return t.flush()
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newSavingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "savings",
		Short: "Track deposits and bonds",
	}

	var typ, principal, rate, start, maturity, account string
	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a savings instrument",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			v := model.SavingsInstrument{Name: args[0], Type: model.SavingsType(typ)}
			if v.Principal, err = optionalAmount(principal); err != nil {
				return err
			}
			if v.InterestRate, err = optionalAmount(rate); err != nil {
				return err
			}
			if v.StartDate, err = dateOr(start, s.Today()); err != nil {
				return err
			}
			if v.MaturityDate, err = dateOr(maturity, date.Date{}); err != nil {
				return err
			}
			if account != "" {
				if v.AccountID, err = accountRef(account, st.Accounts); err != nil {
					return err
				}
			}
			v, err = s.AddSavings(cmd.Context(), v)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added savings %s %s (%s)\n", short(v.ID), v.Name, amount(v.Principal, st.Settings.PrimaryCurrency))
			return nil
		},
	}
	add.Flags().StringVar(&typ, "type", string(model.SavingsFixedDeposit), "fixed_deposit, recurring_deposit, bond or other")
	add.Flags().StringVar(&principal, "principal", "", "amount deposited")
	add.Flags().StringVar(&rate, "rate", "0", "annual interest rate in percent")
	add.Flags().StringVar(&start, "start", "", "start date (default today)")
	add.Flags().StringVar(&maturity, "maturity", "", "maturity date")
	add.Flags().StringVar(&account, "account", "", "linked account name or ID")
	_ = add.MarkFlagRequired("principal")

	list := &cobra.Command{
		Use:   "list",
		Short: "List savings instruments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			cur := st.Settings.PrimaryCurrency
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "TYPE", "PRINCIPAL", "RATE", "MATURES")
			for _, v := range st.Savings {
				matures := "-"
				if !v.MaturityDate.IsZero() {
					matures = v.MaturityDate.String()
				}
				t.row(short(v.ID), v.Name, string(v.Type), amount(v.Principal, cur), v.InterestRate.String()+"%", matures)
			}
			return t.flush()
		},
	}

	cmd.AddCommand(add, list)
	return cmd
}

func newSubscriptionCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "subscription",
		Aliases: []string{"sub"},
		Short:   "Track recurring payments",
	}
	cmd.AddCommand(newSubscriptionAddCommand(a), newSubscriptionListCommand(a), newSubscriptionDetectCommand(a))
	return cmd
}

func newSubscriptionAddCommand(a *app) *cobra.Command {
	var amt, frequency, next, category, account string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a subscription",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			v := model.Subscription{Name: args[0], Frequency: model.Frequency(frequency)}
			if v.Amount, err = optionalAmount(amt); err != nil {
				return err
			}
			if v.NextPaymentDate, err = dateOr(next, s.Today()); err != nil {
				return err
			}
			if category != "" {
				if v.CategoryID, err = categoryRef(category, st.Categories); err != nil {
					return err
				}
			}
			if account != "" {
				if v.AccountID, err = accountRef(account, st.Accounts); err != nil {
					return err
				}
			}
			v, err = s.AddSubscription(cmd.Context(), v)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added subscription %s %s %s %s\n",
				short(v.ID), v.Name, amount(v.Amount, st.Settings.PrimaryCurrency), v.Frequency)
			return nil
		},
	}
	cmd.Flags().StringVar(&amt, "amount", "", "amount per billing period")
	cmd.Flags().StringVar(&frequency, "frequency", string(model.FrequencyMonthly), "weekly, monthly or yearly")
	cmd.Flags().StringVar(&next, "next", "", "next payment date (default today)")
	cmd.Flags().StringVar(&category, "category", "", "category name or ID")
	cmd.Flags().StringVar(&account, "account", "", "paying account name or ID")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newSubscriptionListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List subscriptions with their monthly cost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			cur := st.Settings.PrimaryCurrency
			t := newTable(cmd.OutOrStdout(), "ID", "NAME", "AMOUNT", "EVERY", "MONTHLY", "NEXT")
			total := decimal.Zero
			for _, v := range st.Subscriptions {
				total = total.Add(v.MonthlyCost())
				t.row(short(v.ID), v.Name, amount(v.Amount, cur), string(v.Frequency), amount(v.MonthlyCost(), cur), v.NextPaymentDate.String())
			}
			if err := t.flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "\nMonthly total: %s\n", amount(total, cur))
			return nil
		},
	}
}

func newSubscriptionDetectCommand(a *app) *cobra.Command {
	var add bool

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Look for recurring payments in the transaction history",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			st := s.Snapshot()
			cur := st.Settings.PrimaryCurrency
			svc, err := a.insights(ctx, cur)
			if err != nil {
				return err
			}

			found := svc.DetectSubscriptions(ctx, insightData(st))
			out := cmd.OutOrStdout()
			if len(found) == 0 {
				fmt.Fprintln(out, "No recurring payments found.")
				return nil
			}

			t := newTable(out, "NAME", "AMOUNT", "EVERY", "LAST PAID", "CATEGORY")
			for _, d := range found {
				t.row(d.Name, amount(d.Amount, cur), string(d.Frequency), d.LastPaymentDate.String(), d.Category)
			}
			if err := t.flush(); err != nil {
				return err
			}
			if !add {
				return nil
			}

			for _, d := range found {
				if slices.ContainsFunc(st.Subscriptions, func(v model.Subscription) bool { return strings.EqualFold(v.Name, d.Name) }) {
					continue
				}
				v := model.Subscription{Name: d.Name, Amount: d.Amount, Frequency: d.Frequency, NextPaymentDate: s.Today()}
				if !d.LastPaymentDate.IsZero() {
					v.NextPaymentDate = d.Frequency.Next(d.LastPaymentDate)
				}
				if d.Category != "" {
					// An unknown category name leaves the subscription uncategorized.
					v.CategoryID, _ = categoryRef(d.Category, st.Categories)
				}
				v, err := s.AddSubscription(ctx, v)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Added subscription %s %s\n", short(v.ID), v.Name)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&add, "add", false, "store detected subscriptions that are not tracked yet")
	return cmd
}

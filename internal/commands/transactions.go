package commands

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finansage/finansage/internal/importer"
	"github.com/finansage/finansage/internal/insight"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/report"
	"github.com/finansage/finansage/internal/store"
)

func newTxCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tx",
		Aliases: []string{"transaction"},
		Short:   "Record and browse transactions",
	}
	cmd.AddCommand(
		newTxAddCommand(a),
		newTxEditCommand(a),
		newTxDeleteCommand(a),
		newTxListCommand(a),
		newTxImportCommand(a),
	)
	return cmd
}

// txFlags are the editable transaction fields.
type txFlags struct {
	date, description, notes, amount string
	typ, category, account, to       string
	receipt                          string
	tags                             []string
}

func (f *txFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.date, "date", "", "transaction date YYYY-MM-DD (default today)")
	cmd.Flags().StringVarP(&f.description, "desc", "d", "", "description")
	cmd.Flags().StringVar(&f.notes, "notes", "", "free-form notes")
	cmd.Flags().StringVarP(&f.amount, "amount", "a", "", "amount, always positive")
	cmd.Flags().StringVarP(&f.typ, "type", "t", string(model.TransactionExpense), "income, expense or transfer")
	cmd.Flags().StringVarP(&f.category, "category", "c", "", "category name or ID")
	cmd.Flags().StringVar(&f.account, "account", "", "account name or ID")
	cmd.Flags().StringVar(&f.to, "to", "", "destination account for transfers")
	cmd.Flags().StringVar(&f.receipt, "receipt", "", "receipt image file or data URL")
	cmd.Flags().StringSliceVar(&f.tags, "tag", nil, "tag (repeatable)")
}

// apply overlays the flags the user set onto p.
func (f *txFlags) apply(cmd *cobra.Command, st store.State, p *store.TransactionParams) error {
	changed := cmd.Flags().Changed
	var err error
	if changed("date") {
		if p.Date, err = dateOr(f.date, p.Date); err != nil {
			return err
		}
	}
	if changed("desc") {
		p.Description = f.description
	}
	if changed("notes") {
		p.Notes = f.notes
	}
	if changed("amount") {
		if p.Amount, err = optionalAmount(f.amount); err != nil {
			return err
		}
	}
	if changed("type") || p.Type == "" {
		p.Type = model.TransactionType(f.typ)
	}
	if changed("category") {
		p.CategoryID = ""
		if f.category != "" {
			if p.CategoryID, err = categoryRef(f.category, st.Categories); err != nil {
				return err
			}
		}
	}
	if changed("account") {
		if p.AccountID, err = accountRef(f.account, st.Accounts); err != nil {
			return err
		}
	}
	if changed("to") {
		p.ToAccountID = ""
		if f.to != "" {
			if p.ToAccountID, err = accountRef(f.to, st.Accounts); err != nil {
				return err
			}
		}
	}
	if changed("receipt") {
		if p.Receipt, err = receiptRef(f.receipt); err != nil {
			return err
		}
	}
	if changed("tag") {
		p.Tags = f.tags
	}
	return nil
}

func paramsOf(t model.Transaction) store.TransactionParams {
	return store.TransactionParams{
		Date:        t.Date,
		Description: t.Description,
		Notes:       t.Notes,
		Amount:      t.Amount,
		Type:        t.Type,
		CategoryID:  t.CategoryID,
		AccountID:   t.AccountID,
		ToAccountID: t.ToAccountID,
		Tags:        t.Tags,
		Receipt:     t.Receipt,
	}
}

func newTxAddCommand(a *app) *cobra.Command {
	var f txFlags
	var suggest bool

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Record a transaction",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			s, err := a.open(ctx)
			if err != nil {
				return err
			}
			st := s.Snapshot()
			p := store.TransactionParams{Date: s.Today()}
			if len(st.Accounts) == 1 {
				p.AccountID = st.Accounts[0].ID
			}
			if err := f.apply(cmd, st, &p); err != nil {
				return err
			}

			if suggest && p.CategoryID == "" && p.Type == model.TransactionExpense {
				svc, err := a.insights(ctx, st.Settings.PrimaryCurrency)
				if err != nil {
					return err
				}
				if name := svc.SuggestCategory(ctx, p.Description, st.Categories); name != nil {
					p.CategoryID, _ = categoryRef(*name, st.Categories)
					fmt.Fprintf(cmd.OutOrStdout(), "Suggested category: %s\n", *name)
				}
			}

			t, err := s.AddTransaction(ctx, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s %s %s\n",
				t.Type, short(t.ID), t.Description, amount(t.Amount, currencyOf(st.Accounts, t.AccountID, st.Settings.PrimaryCurrency)))
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().BoolVar(&suggest, "suggest", false, "ask the insight provider for a category when none is given")
	_ = cmd.MarkFlagRequired("desc")
	_ = cmd.MarkFlagRequired("amount")
	return cmd
}

func newTxEditCommand(a *app) *cobra.Command {
	var f txFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a transaction; balances follow",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			txnID, err := resolve("transaction", args[0], st.Transactions)
			if err != nil {
				return err
			}
			old, _ := st.Transaction(txnID)
			p := paramsOf(old)
			if err := f.apply(cmd, st, &p); err != nil {
				return err
			}
			t, err := s.UpdateTransaction(cmd.Context(), txnID, p)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s %s\n", short(t.ID), t.Description)
			return nil
		},
	}
	f.register(cmd)
	return cmd
}

func newTxDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a transaction and revert its effect",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			txnID, err := resolve("transaction", args[0], s.Snapshot().Transactions)
			if err != nil {
				return err
			}
			if err := s.DeleteTransaction(cmd.Context(), txnID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted transaction %s\n", short(txnID))
			return nil
		},
	}
}

// filterFlags select transactions for list and export.
type filterFlags struct {
	search, typ, category, account, tag, from, to string
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "s", "", "match description, notes or tags")
	cmd.Flags().StringVar(&f.typ, "type", "", "income, expense or transfer")
	cmd.Flags().StringVar(&f.category, "category", "", "category name or ID")
	cmd.Flags().StringVar(&f.account, "account", "", "account name or ID (either side of a transfer)")
	cmd.Flags().StringVar(&f.tag, "tag", "", "tag")
	cmd.Flags().StringVar(&f.from, "from", "", "first date YYYY-MM-DD")
	cmd.Flags().StringVar(&f.to, "to", "", "last date YYYY-MM-DD")
}

func (f *filterFlags) filter(st store.State) (report.Filter, error) {
	flt := report.Filter{Search: f.search, Type: model.TransactionType(f.typ), Tag: f.tag}
	if f.typ != "" && !flt.Type.Valid() {
		return report.Filter{}, fmt.Errorf("unknown transaction type %q", f.typ)
	}
	var err error
	if f.category != "" {
		if flt.CategoryID, err = categoryRef(f.category, st.Categories); err != nil {
			return report.Filter{}, err
		}
	}
	if f.account != "" {
		if flt.AccountID, err = accountRef(f.account, st.Accounts); err != nil {
			return report.Filter{}, err
		}
	}
	if flt.From, err = dateOr(f.from, flt.From); err != nil {
		return report.Filter{}, err
	}
	if flt.To, err = dateOr(f.to, flt.To); err != nil {
		return report.Filter{}, err
	}
	return flt, nil
}

func newTxListCommand(a *app) *cobra.Command {
	var f filterFlags
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List transactions, newest first",
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
			if len(txns) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No transactions.")
				return nil
			}
			if limit > 0 && len(txns) > limit {
				txns = txns[:limit]
			}

			t := newTable(cmd.OutOrStdout(), "ID", "DATE", "DESCRIPTION", "CATEGORY", "ACCOUNT", "AMOUNT")
			for _, txn := range txns {
				t.row(short(txn.ID), txn.Date.String(), txn.Description,
					categoryLabel(st, txn), accountLabel(st, txn),
					signed(txn, currencyOf(st.Accounts, txn.AccountID, st.Settings.PrimaryCurrency)))
			}
			return t.flush()
		},
	}
	f.register(cmd)
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "show at most n transactions (0 for all)")
	return cmd
}

func categoryLabel(st store.State, t model.Transaction) string {
	if t.Type == model.TransactionTransfer {
		return "transfer"
	}
	if c, ok := st.Category(t.CategoryID); ok {
		return c.Name
	}
	return "-"
}

func accountLabel(st store.State, t model.Transaction) string {
	name := func(accountID string) string {
		if acct, ok := st.Account(accountID); ok {
			return acct.Name
		}
		return "?"
	}
	if t.Type == model.TransactionTransfer {
		return name(t.AccountID) + " -> " + name(t.ToAccountID)
	}
	return name(t.AccountID)
}

// signed shows expenses negative and income positive.
func signed(t model.Transaction, currency string) string {
	switch t.Type {
	case model.TransactionExpense:
		return amount(t.Amount.Neg(), currency)
	case model.TransactionIncome:
		return "+" + amount(t.Amount, currency)
	}
	return amount(t.Amount, currency)
}

func newTxImportCommand(a *app) *cobra.Command {
	var format, account string
	var inbox bool

	cmd := &cobra.Command{
		Use:   "import [file]",
		Short: "Import transactions from a CSV file or the inbox directory",
		Long: `Import transactions from CSV.

With a file argument, the file is parsed in the given format. With --inbox, every
CSV file in the configured import directory is imported and then moved to its
processed/ subdirectory. Each file is all-or-nothing: a single invalid row stores
nothing from that file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if inbox == (len(args) == 1) {
				return errors.New("give either a file or --inbox")
			}
			parser := importer.DefaultRegistry().Get(format)
			if parser == nil {
				return fmt.Errorf("unknown format %q (available: %s)", format,
					strings.Join(importer.DefaultRegistry().Formats(), ", "))
			}
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			st := s.Snapshot()
			target := importer.Target{Accounts: st.Accounts, Categories: st.Categories}
			if account != "" {
				if target.AccountID, err = accountRef(account, st.Accounts); err != nil {
					return err
				}
			}

			importFile := func(path string) (int, error) {
				f, err := os.Open(path)
				if err != nil {
					return 0, err
				}
				defer f.Close()
				batch, err := parser.Parse(f, target)
				if err != nil {
					return 0, fmt.Errorf("parsing %s: %w", path, err)
				}
				txns, err := s.ImportTransactions(cmd.Context(), batch)
				if err != nil {
					return 0, fmt.Errorf("importing %s: %w", path, err)
				}
				return len(txns), nil
			}

			if !inbox {
				n, err := importFile(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions from %s\n", n, args[0])
				return nil
			}

			dir := a.cfg.Import.Dir
			files, err := importer.Scan(dir)
			if err != nil {
				return err
			}
			if len(files) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No CSV files in %s\n", dir)
				return nil
			}
			for _, file := range files {
				n, err := importFile(file.Path)
				if err != nil {
					return err
				}
				if err := importer.MarkProcessed(dir, file.Name); err != nil {
					return err
				}
				a.log.Info().Str("file", file.Name).Int("count", n).Msg("imported")
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions from %s\n", n, file.Name)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "finansage", "file format: finansage or chase")
	cmd.Flags().StringVar(&account, "account", "", "account that bank statement rows post to")
	cmd.Flags().BoolVar(&inbox, "inbox", false, "import every CSV in the import directory")
	return cmd
}

// insightData is the snapshot slice the insight operations read.
func insightData(st store.State) insight.Data {
	return insight.Data{Transactions: st.Transactions, Accounts: st.Accounts, Categories: st.Categories}
}

package store

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/id"
	"github.com/finansage/finansage/internal/ledger"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/storage"
)

// TransactionParams holds the user-editable fields of a transaction.
type TransactionParams struct {
	Date        date.Date
	Description string
	Notes       string
	Amount      decimal.Decimal
	Type        model.TransactionType
	CategoryID  string
	AccountID   string
	ToAccountID string
	Tags        []string
	Receipt     string
}

// build normalizes p into a transaction with the given ID.
func (p TransactionParams) build(txnID string) model.Transaction {
	t := model.Transaction{
		ID:          txnID,
		Date:        p.Date,
		Description: strings.TrimSpace(p.Description),
		Notes:       strings.TrimSpace(p.Notes),
		Amount:      p.Amount,
		Type:        p.Type,
		CategoryID:  p.CategoryID,
		AccountID:   p.AccountID,
		ToAccountID: p.ToAccountID,
		Tags:        cleanTags(p.Tags),
		Receipt:     p.Receipt,
	}
	if t.Type == model.TransactionTransfer {
		t.CategoryID = ""
	} else {
		t.ToAccountID = ""
	}
	return t
}

// cleanTags trims tags and drops blanks and duplicates, keeping first-seen order.
func cleanTags(tags []string) []string {
	out := []string{}
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag != "" && !slices.Contains(out, tag) {
			out = append(out, tag)
		}
	}
	return out
}

func validateTransaction(st State, t model.Transaction) ValidationErrors {
	var errs ValidationErrors
	if t.Description == "" {
		errs.add("description", "is required")
	}
	if !t.Amount.IsPositive() {
		errs.add("amount", "must be greater than zero")
	}
	if t.Date.IsZero() {
		errs.add("date", "is required")
	}
	if !t.Type.Valid() {
		errs.add("type", "unknown transaction type %q", t.Type)
	}
	if _, ok := st.Account(t.AccountID); !ok {
		errs.add("accountId", "unknown account %q", t.AccountID)
	}

	if t.Type == model.TransactionTransfer {
		switch _, ok := st.Account(t.ToAccountID); {
		case t.ToAccountID == "":
			errs.add("toAccountId", "is required for transfers")
		case !ok:
			errs.add("toAccountId", "unknown account %q", t.ToAccountID)
		case t.ToAccountID == t.AccountID:
			errs.add("toAccountId", "must differ from the source account")
		}
		return errs
	}

	if t.CategoryID != "" {
		c, ok := st.Category(t.CategoryID)
		switch {
		case !ok:
			errs.add("categoryId", "unknown category %q", t.CategoryID)
		case string(c.Type) != string(t.Type):
			errs.add("categoryId", "%s is an %s category", c.Name, c.Type)
		}
	}
	return errs
}

// AddTransaction records a transaction and applies its effect to account balances.
func (s *Store) AddTransaction(ctx context.Context, p TransactionParams) (model.Transaction, error) {
	t := p.build(id.New())
	err := s.mutate(ctx, "adding transaction", func(st *State) ([]string, error) {
		if err := validateTransaction(*st, t).err(); err != nil {
			return nil, err
		}
		s.insert(st, t)
		return []string{storage.KeyAccounts, storage.KeyTransactions}, nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

// insert applies t to the balances in st and adds it to the ordered list.
func (s *Store) insert(st *State, t model.Transaction) {
	book := ledger.NewBook(st.Accounts)
	s.warnOrphans(t.ID, book.Apply(t))
	st.Accounts = book.Accounts()
	st.Transactions = ledger.Insert(st.Transactions, t)
}

// UpdateTransaction replaces a transaction, reverting its old effect and applying the new
// one in a single balance change.
func (s *Store) UpdateTransaction(ctx context.Context, txnID string, p TransactionParams) (model.Transaction, error) {
	t := p.build(txnID)
	err := s.mutate(ctx, "updating transaction", func(st *State) ([]string, error) {
		old, ok := st.Transaction(txnID)
		if !ok {
			return nil, notFound("transaction", txnID)
		}
		if err := validateTransaction(*st, t).err(); err != nil {
			return nil, err
		}
		book := ledger.NewBook(st.Accounts)
		s.warnOrphans(txnID, book.Update(old, t))
		st.Accounts = book.Accounts()
		st.Transactions, _ = ledger.Replace(st.Transactions, t)
		return []string{storage.KeyAccounts, storage.KeyTransactions}, nil
	})
	if err != nil {
		return model.Transaction{}, err
	}
	return t, nil
}

// DeleteTransaction removes a transaction and reverts its effect.
func (s *Store) DeleteTransaction(ctx context.Context, txnID string) error {
	return s.mutate(ctx, "deleting transaction", func(st *State) ([]string, error) {
		old, ok := st.Transaction(txnID)
		if !ok {
			return nil, notFound("transaction", txnID)
		}
		book := ledger.NewBook(st.Accounts)
		s.warnOrphans(txnID, book.Delete(old))
		st.Accounts = book.Accounts()
		st.Transactions, _ = ledger.Remove(st.Transactions, txnID)
		return []string{storage.KeyAccounts, storage.KeyTransactions}, nil
	})
}

// ImportTransactions adds a batch in one transition. Nothing is stored unless every row is valid;
// field names in the returned errors are prefixed with the row number (1-based).
func (s *Store) ImportTransactions(ctx context.Context, batch []TransactionParams) ([]model.Transaction, error) {
	txns := make([]model.Transaction, len(batch))
	for i, p := range batch {
		txns[i] = p.build(id.New())
	}

	err := s.mutate(ctx, "importing transactions", func(st *State) ([]string, error) {
		var errs ValidationErrors
		for i, t := range txns {
			for _, ve := range validateTransaction(*st, t) {
				ve.Field = fmt.Sprintf("row %d: %s", i+1, ve.Field)
				errs = append(errs, ve)
			}
		}
		if err := errs.err(); err != nil {
			return nil, err
		}

		book := ledger.NewBook(st.Accounts)
		for _, t := range txns {
			s.warnOrphans(t.ID, book.Apply(t))
		}
		st.Transactions = append(slices.Clone(txns), st.Transactions...)
		ledger.SortTransactions(st.Transactions)
		st.Accounts = book.Accounts()
		return []string{storage.KeyAccounts, storage.KeyTransactions}, nil
	})
	if err != nil {
		return nil, err
	}
	return txns, nil
}

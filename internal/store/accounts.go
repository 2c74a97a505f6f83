package store

import (
	"context"
	"strings"

	"github.com/finansage/finansage/internal/id"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/money"
	"github.com/finansage/finansage/internal/storage"
)

func validateAccount(a model.Account) error {
	var errs ValidationErrors
	if a.Name == "" {
		errs.add("name", "is required")
	}
	if !a.Type.Valid() {
		errs.add("type", "unknown account type %q", a.Type)
	}
	if !money.ValidCurrency(a.Currency) {
		errs.add("currency", "unknown currency %q", a.Currency)
	}
	if a.DueDay < 0 || a.DueDay > 31 {
		errs.add("dueDay", "must be between 1 and 31")
	}
	if a.CreditLimit.IsNegative() {
		errs.add("creditLimit", "must not be negative")
	}
	return errs.err()
}

func normalizeAccount(a model.Account, primary string) model.Account {
	a.Name = strings.TrimSpace(a.Name)
	a.Currency = strings.ToUpper(strings.TrimSpace(a.Currency))
	if a.Currency == "" {
		a.Currency = primary
	}
	return a
}

// AddAccount stores a new account. Balance is taken as the opening balance.
func (s *Store) AddAccount(ctx context.Context, a model.Account) (model.Account, error) {
	err := s.mutate(ctx, "adding account", func(st *State) ([]string, error) {
		a = normalizeAccount(a, st.Settings.PrimaryCurrency)
		if err := validateAccount(a); err != nil {
			return nil, err
		}
		a.ID = id.New()
		st.Accounts = append(st.Accounts, a)
		return []string{storage.KeyAccounts}, nil
	})
	if err != nil {
		return model.Account{}, err
	}
	return a, nil
}

// UpdateAccount replaces the descriptive fields of an account. The balance is owned by the
// ledger and is never taken from the input.
func (s *Store) UpdateAccount(ctx context.Context, a model.Account) (model.Account, error) {
	err := s.mutate(ctx, "updating account", func(st *State) ([]string, error) {
		old, ok := st.Account(a.ID)
		if !ok {
			return nil, notFound("account", a.ID)
		}
		a = normalizeAccount(a, st.Settings.PrimaryCurrency)
		a.Balance = old.Balance
		if err := validateAccount(a); err != nil {
			return nil, err
		}
		st.Accounts, _ = replace(st.Accounts, a)
		return []string{storage.KeyAccounts}, nil
	})
	if err != nil {
		return model.Account{}, err
	}
	return a, nil
}

// DeleteAccount removes an account nothing references.
func (s *Store) DeleteAccount(ctx context.Context, accountID string) error {
	return s.mutate(ctx, "deleting account", func(st *State) ([]string, error) {
		if _, ok := st.Account(accountID); !ok {
			return nil, notFound("account", accountID)
		}
		if err := accountReferences(*st, accountID); err != nil {
			return nil, err
		}
		st.Accounts, _ = remove(st.Accounts, accountID)
		return []string{storage.KeyAccounts}, nil
	})
}

func accountReferences(st State, accountID string) error {
	return refuse("account", accountID,
		refCount{"transactions", countWhere(st.Transactions, func(t model.Transaction) bool { return t.References(accountID) })},
		refCount{"subscriptions", countWhere(st.Subscriptions, func(v model.Subscription) bool { return v.AccountID == accountID })},
		refCount{"investments", countWhere(st.Investments, func(v model.Investment) bool { return v.AccountID == accountID })},
		refCount{"savings instruments", countWhere(st.Savings, func(v model.SavingsInstrument) bool { return v.AccountID == accountID })},
	)
}

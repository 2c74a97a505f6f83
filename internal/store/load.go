package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/finansage/finansage/internal/history"
	"github.com/finansage/finansage/internal/ledger"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/money"
	"github.com/finansage/finansage/internal/storage"
)

var errMissingID = errors.New("missing id")

// load decodes every slot independently. A missing slot takes its default. A corrupt slot
// takes its default with a warning. Records that fail to decode or validate are dropped
// with a warning.
func (s *Store) load(ctx context.Context, currency string) (State, error) {
	var st State

	if currency == "" {
		currency = money.DefaultCurrency
	}
	cur, err := decodeSlot(ctx, s, storage.KeyPrimaryCurrency, currency)
	if err != nil {
		return State{}, err
	}
	cur = strings.ToUpper(strings.TrimSpace(cur))
	if !money.ValidCurrency(cur) {
		s.log.Warn().Str("slot", storage.KeyPrimaryCurrency).Str("value", cur).Msg("unknown currency, using default")
		cur = currency
	}
	st.Settings.PrimaryCurrency = cur

	if st.Settings.DashboardCards, err = decodeSlot(ctx, s, storage.KeyDashboardCards, DefaultDashboardCards()); err != nil {
		return State{}, err
	}
	if st.Settings.DashboardCards == nil {
		st.Settings.DashboardCards = DefaultDashboardCards()
	}

	if st.Settings.BottomNav, err = decodeSlot(ctx, s, storage.KeyBottomNav, slices.Clone(model.DefaultBottomNav)); err != nil {
		return State{}, err
	}
	st.Settings.BottomNav = slices.DeleteFunc(st.Settings.BottomNav, func(v string) bool {
		return !slices.Contains(model.NavViews, v)
	})
	if len(st.Settings.BottomNav) == 0 {
		st.Settings.BottomNav = slices.Clone(model.DefaultBottomNav)
	}

	st.Accounts, err = decodeList(ctx, s, storage.KeyAccounts, nil, func(a *model.Account) error {
		if a.ID == "" {
			return errMissingID
		}
		if !a.Type.Valid() {
			a.Type = model.AccountTypeChecking
		}
		if a.Currency == "" {
			a.Currency = cur
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}

	st.Transactions, err = decodeList(ctx, s, storage.KeyTransactions, nil, func(t *model.Transaction) error {
		switch {
		case t.ID == "":
			return errMissingID
		case !t.Type.Valid():
			return fmt.Errorf("unknown type %q", t.Type)
		case t.AccountID == "":
			return errors.New("missing account")
		}
		t.Amount = t.Amount.Abs()
		if t.Type == model.TransactionTransfer {
			t.CategoryID = ""
		} else {
			t.ToAccountID = ""
		}
		if t.Tags == nil {
			t.Tags = []string{}
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}
	ledger.SortTransactions(st.Transactions)

	st.Categories, err = decodeList(ctx, s, storage.KeyCategories, DefaultCategories(), func(c *model.Category) error {
		if c.ID == "" || c.Name == "" {
			return errors.New("missing id or name")
		}
		if c.Type != model.CategoryIncome && c.Type != model.CategoryExpense {
			c.Type = model.CategoryExpense
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}

	st.Budgets, err = decodeList(ctx, s, storage.KeyBudgets, nil, func(b *model.Budget) error {
		if b.ID == "" || b.CategoryID == "" {
			return errors.New("missing id or category")
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}

	st.Investments, err = decodeList(ctx, s, storage.KeyInvestments, nil, func(i *model.Investment) error {
		if i.ID == "" {
			return errMissingID
		}
		if i.Type == "" {
			i.Type = model.InvestmentOther
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}

	st.Savings, err = decodeList(ctx, s, storage.KeySavings, nil, func(v *model.SavingsInstrument) error {
		if v.ID == "" {
			return errMissingID
		}
		if v.Type == "" {
			v.Type = model.SavingsOther
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}

	if st.Goals, err = decodeList(ctx, s, storage.KeyGoals, nil, requireID[model.Goal]); err != nil {
		return State{}, err
	}
	if st.Assets, err = decodeList(ctx, s, storage.KeyAssets, nil, requireID[model.Asset]); err != nil {
		return State{}, err
	}
	if st.AssetCategories, err = decodeList(ctx, s, storage.KeyAssetCategories, DefaultAssetCategories(), requireID[model.AssetCategory]); err != nil {
		return State{}, err
	}

	st.Subscriptions, err = decodeList(ctx, s, storage.KeySubscriptions, nil, func(v *model.Subscription) error {
		if v.ID == "" {
			return errMissingID
		}
		if !v.Frequency.Valid() {
			v.Frequency = model.FrequencyMonthly
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}

	st.NetWorthHistory, err = decodeList(ctx, s, storage.KeyNetWorthHistory, nil, func(e *model.NetWorthEntry) error {
		if e.Date.IsZero() {
			return errors.New("missing date")
		}
		return nil
	})
	if err != nil {
		return State{}, err
	}
	st.NetWorthHistory = history.Normalize(st.NetWorthHistory)

	return st, nil
}

// decodeSlot reads key as a T. Only storage failures are returned; a missing or corrupt
// slot yields def.
func decodeSlot[T any](ctx context.Context, s *Store, key string, def T) (T, error) {
	data, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return def, fmt.Errorf("reading slot %s: %w", key, err)
	}
	if !ok {
		return def, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		s.log.Warn().Err(err).Str("slot", key).Msg("corrupt slot, using default")
		return def, nil
	}
	return v, nil
}

// decodeList reads a JSON array slot one element at a time so a bad record only costs
// itself. fix normalizes each record and rejects the ones that cannot be kept.
func decodeList[T any](ctx context.Context, s *Store, key string, def []T, fix func(*T) error) ([]T, error) {
	raw, err := decodeSlot[[]json.RawMessage](ctx, s, key, nil)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return def, nil
	}

	out := make([]T, 0, len(raw))
	for i, r := range raw {
		var v T
		if err := json.Unmarshal(r, &v); err != nil {
			s.log.Warn().Err(err).Str("slot", key).Int("index", i).Msg("dropping undecodable record")
			continue
		}
		if err := fix(&v); err != nil {
			s.log.Warn().Err(err).Str("slot", key).Int("index", i).Msg("dropping invalid record")
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

func requireID[T model.Record](r *T) error {
	if (*r).GetID() == "" {
		return errMissingID
	}
	return nil
}

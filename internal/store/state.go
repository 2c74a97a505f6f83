package store

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/storage"
)

// State is one consistent snapshot of every collection.
type State struct {
	Accounts        []model.Account
	Transactions    []model.Transaction // newest first
	Categories      []model.Category
	Budgets         []model.Budget
	Investments     []model.Investment
	Savings         []model.SavingsInstrument
	Goals           []model.Goal
	Assets          []model.Asset
	AssetCategories []model.AssetCategory
	Subscriptions   []model.Subscription
	NetWorthHistory []model.NetWorthEntry // oldest first
	Settings        model.Settings
}

// Clone returns a deep copy that shares no slices or maps with s.
func (s State) Clone() State {
	out := State{
		Accounts:        slices.Clone(s.Accounts),
		Transactions:    slices.Clone(s.Transactions),
		Categories:      slices.Clone(s.Categories),
		Budgets:         slices.Clone(s.Budgets),
		Investments:     slices.Clone(s.Investments),
		Savings:         slices.Clone(s.Savings),
		Goals:           slices.Clone(s.Goals),
		Assets:          slices.Clone(s.Assets),
		AssetCategories: slices.Clone(s.AssetCategories),
		Subscriptions:   slices.Clone(s.Subscriptions),
		NetWorthHistory: slices.Clone(s.NetWorthHistory),
		Settings: model.Settings{
			PrimaryCurrency: s.Settings.PrimaryCurrency,
			DashboardCards:  maps.Clone(s.Settings.DashboardCards),
			BottomNav:       slices.Clone(s.Settings.BottomNav),
		},
	}
	for i := range out.Transactions {
		out.Transactions[i].Tags = slices.Clone(out.Transactions[i].Tags)
	}
	return out
}

// Account looks up an account by ID.
func (s State) Account(id string) (model.Account, bool) { return find(s.Accounts, id) }

// Category looks up a category by ID.
func (s State) Category(id string) (model.Category, bool) { return find(s.Categories, id) }

// Transaction looks up a transaction by ID.
func (s State) Transaction(id string) (model.Transaction, bool) { return find(s.Transactions, id) }

// CategoriesOf returns the categories of the given type in stored order.
func (s State) CategoriesOf(t model.CategoryType) []model.Category {
	var out []model.Category
	for _, c := range s.Categories {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// slot returns the JSON encoding of the value persisted under key.
func (s State) slot(key string) ([]byte, error) {
	var v any
	switch key {
	case storage.KeyAccounts:
		v = nonNil(s.Accounts)
	case storage.KeyTransactions:
		v = nonNil(s.Transactions)
	case storage.KeyCategories:
		v = nonNil(s.Categories)
	case storage.KeyBudgets:
		v = nonNil(s.Budgets)
	case storage.KeyInvestments:
		v = nonNil(s.Investments)
	case storage.KeySavings:
		v = nonNil(s.Savings)
	case storage.KeyGoals:
		v = nonNil(s.Goals)
	case storage.KeyAssets:
		v = nonNil(s.Assets)
	case storage.KeyAssetCategories:
		v = nonNil(s.AssetCategories)
	case storage.KeySubscriptions:
		v = nonNil(s.Subscriptions)
	case storage.KeyNetWorthHistory:
		v = nonNil(s.NetWorthHistory)
	case storage.KeyPrimaryCurrency:
		v = s.Settings.PrimaryCurrency
	case storage.KeyDashboardCards:
		v = s.Settings.DashboardCards
	case storage.KeyBottomNav:
		v = nonNil(s.Settings.BottomNav)
	default:
		return nil, fmt.Errorf("unknown slot %q", key)
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding slot %s: %w", key, err)
	}
	return data, nil
}

// nonNil makes empty collections encode as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func find[T model.Record](list []T, id string) (T, bool) {
	for _, r := range list {
		if r.GetID() == id {
			return r, true
		}
	}
	var zero T
	return zero, false
}

func indexOf[T model.Record](list []T, id string) int {
	return slices.IndexFunc(list, func(r T) bool { return r.GetID() == id })
}

// replace swaps the record with rec's ID in place.
func replace[T model.Record](list []T, rec T) ([]T, bool) {
	i := indexOf(list, rec.GetID())
	if i < 0 {
		return list, false
	}
	list[i] = rec
	return list, true
}

func remove[T model.Record](list []T, id string) ([]T, bool) {
	i := indexOf(list, id)
	if i < 0 {
		return list, false
	}
	return slices.Delete(list, i, i+1), true
}

func countWhere[T any](list []T, pred func(T) bool) int {
	n := 0
	for _, v := range list {
		if pred(v) {
			n++
		}
	}
	return n
}

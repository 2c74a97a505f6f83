// Package storage persists named JSON slots, one per top-level collection.
package storage

import (
	"context"
	"maps"
	"sync"
)

// Slot keys, one per persisted collection or setting.
const (
	KeyAccounts        = "finansage_accounts"
	KeyTransactions    = "finansage_transactions"
	KeyCategories      = "finansage_categories"
	KeyBudgets         = "finansage_budgets"
	KeyInvestments     = "finansage_investments"
	KeySavings         = "finansage_savings"
	KeyGoals           = "finansage_goals"
	KeyAssets          = "finansage_assets"
	KeyAssetCategories = "finansage_asset_categories"
	KeySubscriptions   = "finansage_subscriptions"
	KeyNetWorthHistory = "finansage_net_worth_history"
	KeyPrimaryCurrency = "finansage_primary_currency"
	KeyDashboardCards  = "finansage_dashboard_cards"
	KeyBottomNav       = "finansage_bottom_nav"
)

// Keys lists every slot in load order.
var Keys = []string{
	KeyAccounts,
	KeyTransactions,
	KeyCategories,
	KeyBudgets,
	KeyInvestments,
	KeySavings,
	KeyGoals,
	KeyAssets,
	KeyAssetCategories,
	KeySubscriptions,
	KeyNetWorthHistory,
	KeyPrimaryCurrency,
	KeyDashboardCards,
	KeyBottomNav,
}

// KV is a key-value slot store.
type KV interface {
	// Get returns the slot value; ok is false when the slot was never written.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// SetMany writes every slot or none of them.
	SetMany(ctx context.Context, slots map[string][]byte) error
	Close() error
}

// Memory is a process-local KV.
type Memory struct {
	mu    sync.Mutex
	slots map[string][]byte
	// Writes counts SetMany calls; tests use it to assert persistence happened.
	Writes int
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	v, ok := m.slots[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) SetMany(_ context.Context, slots map[string][]byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range slots {
		m.slots[k] = append([]byte(nil), v...)
	}
	m.Writes++
	return nil
}

// Put writes a single raw slot, bypassing any encoding. Handy for seeding fixtures.
func (m *Memory) Put(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slots[key] = value
}

// Dump returns a copy of every slot.
func (m *Memory) Dump() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.slots)
}

func (m *Memory) Close() error { return nil }

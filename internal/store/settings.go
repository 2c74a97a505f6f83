package store

import (
	"context"
	"slices"
	"strings"

	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/money"
	"github.com/finansage/finansage/internal/storage"
)

// SetPrimaryCurrency changes the currency used for totals and new accounts.
func (s *Store) SetPrimaryCurrency(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !money.ValidCurrency(code) {
		return ValidationErrors{{Field: "currency", Message: "unknown currency " + code}}
	}
	return s.mutate(ctx, "setting currency", func(st *State) ([]string, error) {
		st.Settings.PrimaryCurrency = code
		return []string{storage.KeyPrimaryCurrency}, nil
	})
}

// SetDashboardCard shows or hides one dashboard card.
func (s *Store) SetDashboardCard(ctx context.Context, card string, visible bool) error {
	if !slices.Contains(model.DashboardCards, card) {
		return ValidationErrors{{Field: "card", Message: "unknown dashboard card " + card}}
	}
	return s.mutate(ctx, "setting dashboard card", func(st *State) ([]string, error) {
		if st.Settings.DashboardCards == nil {
			st.Settings.DashboardCards = DefaultDashboardCards()
		}
		st.Settings.DashboardCards[card] = visible
		return []string{storage.KeyDashboardCards}, nil
	})
}

// SetBottomNav replaces the navigation bar entries.
func (s *Store) SetBottomNav(ctx context.Context, views []string) error {
	var errs ValidationErrors
	if len(views) == 0 {
		errs.add("bottomNav", "needs at least one view")
	}
	for i, v := range views {
		switch {
		case !slices.Contains(model.NavViews, v):
			errs.add("bottomNav", "unknown view %q", v)
		case slices.Contains(views[:i], v):
			errs.add("bottomNav", "%q listed twice", v)
		}
	}
	if err := errs.err(); err != nil {
		return err
	}
	return s.mutate(ctx, "setting bottom navigation", func(st *State) ([]string, error) {
		st.Settings.BottomNav = slices.Clone(views)
		return []string{storage.KeyBottomNav}, nil
	})
}

package store

import (
	"context"
	"strings"

	"github.com/finansage/finansage/internal/id"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/storage"
)

// collection binds a record type to its slot inside State.
type collection[T model.Record] struct {
	kind     string
	key      string
	list     func(st *State) *[]T
	validate func(st State, r T) error
}

func (c collection[T]) add(ctx context.Context, s *Store, r T, setID func(*T, string)) (T, error) {
	setID(&r, "")
	err := s.mutate(ctx, "adding "+c.kind, func(st *State) ([]string, error) {
		if err := c.validate(*st, r); err != nil {
			return nil, err
		}
		setID(&r, id.New())
		l := c.list(st)
		*l = append(*l, r)
		return []string{c.key}, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return r, nil
}

func (c collection[T]) update(ctx context.Context, s *Store, r T) (T, error) {
	err := s.mutate(ctx, "updating "+c.kind, func(st *State) ([]string, error) {
		l := c.list(st)
		if indexOf(*l, r.GetID()) < 0 {
			return nil, notFound(c.kind, r.GetID())
		}
		if err := c.validate(*st, r); err != nil {
			return nil, err
		}
		*l, _ = replace(*l, r)
		return []string{c.key}, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return r, nil
}

func (c collection[T]) delete(ctx context.Context, s *Store, recID string, guard func(st State) error) error {
	return s.mutate(ctx, "deleting "+c.kind, func(st *State) ([]string, error) {
		l := c.list(st)
		if indexOf(*l, recID) < 0 {
			return nil, notFound(c.kind, recID)
		}
		if guard != nil {
			if err := guard(*st); err != nil {
				return nil, err
			}
		}
		*l, _ = remove(*l, recID)
		return []string{c.key}, nil
	})
}

// optionalAccount checks an account reference that may be left empty.
func optionalAccount(errs *ValidationErrors, st State, accountID string) {
	if accountID == "" {
		return
	}
	if _, ok := st.Account(accountID); !ok {
		errs.add("accountId", "unknown account %q", accountID)
	}
}

var investments = collection[model.Investment]{
	kind: "investment",
	key:  storage.KeyInvestments,
	list: func(st *State) *[]model.Investment { return &st.Investments },
	validate: func(st State, v model.Investment) error {
		var errs ValidationErrors
		if strings.TrimSpace(v.Name) == "" {
			errs.add("name", "is required")
		}
		switch v.Type {
		case model.InvestmentStock, model.InvestmentETF, model.InvestmentMutualFund,
			model.InvestmentBond, model.InvestmentCrypto, model.InvestmentOther:
		default:
			errs.add("type", "unknown investment type %q", v.Type)
		}
		if v.Quantity.IsNegative() {
			errs.add("quantity", "must not be negative")
		}
		if v.PurchasePrice.IsNegative() || v.CurrentPrice.IsNegative() {
			errs.add("price", "must not be negative")
		}
		optionalAccount(&errs, st, v.AccountID)
		return errs.err()
	},
}

// AddInvestment stores a new holding.
func (s *Store) AddInvestment(ctx context.Context, v model.Investment) (model.Investment, error) {
	return investments.add(ctx, s, v, func(r *model.Investment, newID string) { r.ID = newID })
}

// UpdateInvestment replaces a holding, typically to refresh its current price.
func (s *Store) UpdateInvestment(ctx context.Context, v model.Investment) (model.Investment, error) {
	return investments.update(ctx, s, v)
}

// DeleteInvestment removes a holding.
func (s *Store) DeleteInvestment(ctx context.Context, investmentID string) error {
	return investments.delete(ctx, s, investmentID, nil)
}

var savings = collection[model.SavingsInstrument]{
	kind: "savings instrument",
	key:  storage.KeySavings,
	list: func(st *State) *[]model.SavingsInstrument { return &st.Savings },
	validate: func(st State, v model.SavingsInstrument) error {
		var errs ValidationErrors
		if strings.TrimSpace(v.Name) == "" {
			errs.add("name", "is required")
		}
		switch v.Type {
		case model.SavingsFixedDeposit, model.SavingsRecurringDeposit, model.SavingsBond, model.SavingsOther:
		default:
			errs.add("type", "unknown savings type %q", v.Type)
		}
		if !v.Principal.IsPositive() {
			errs.add("principal", "must be greater than zero")
		}
		if v.InterestRate.IsNegative() {
			errs.add("interestRate", "must not be negative")
		}
		if !v.StartDate.IsZero() && !v.MaturityDate.IsZero() && !v.MaturityDate.After(v.StartDate) {
			errs.add("maturityDate", "must be after the start date")
		}
		optionalAccount(&errs, st, v.AccountID)
		return errs.err()
	},
}

// AddSavings stores a new savings instrument.
func (s *Store) AddSavings(ctx context.Context, v model.SavingsInstrument) (model.SavingsInstrument, error) {
	return savings.add(ctx, s, v, func(r *model.SavingsInstrument, newID string) { r.ID = newID })
}

// UpdateSavings replaces a savings instrument.
func (s *Store) UpdateSavings(ctx context.Context, v model.SavingsInstrument) (model.SavingsInstrument, error) {
	return savings.update(ctx, s, v)
}

// DeleteSavings removes a savings instrument.
func (s *Store) DeleteSavings(ctx context.Context, savingsID string) error {
	return savings.delete(ctx, s, savingsID, nil)
}

var assets = collection[model.Asset]{
	kind: "asset",
	key:  storage.KeyAssets,
	list: func(st *State) *[]model.Asset { return &st.Assets },
	validate: func(st State, v model.Asset) error {
		var errs ValidationErrors
		if strings.TrimSpace(v.Name) == "" {
			errs.add("name", "is required")
		}
		if v.CategoryID != "" {
			if _, ok := find(st.AssetCategories, v.CategoryID); !ok {
				errs.add("categoryId", "unknown asset category %q", v.CategoryID)
			}
		}
		if v.PurchasePrice.IsNegative() || v.CurrentValue.IsNegative() {
			errs.add("value", "must not be negative")
		}
		return errs.err()
	},
}

// AddAsset stores a new physical asset.
func (s *Store) AddAsset(ctx context.Context, v model.Asset) (model.Asset, error) {
	return assets.add(ctx, s, v, func(r *model.Asset, newID string) { r.ID = newID })
}

// UpdateAsset replaces an asset.
func (s *Store) UpdateAsset(ctx context.Context, v model.Asset) (model.Asset, error) {
	return assets.update(ctx, s, v)
}

// DeleteAsset removes an asset.
func (s *Store) DeleteAsset(ctx context.Context, assetID string) error {
	return assets.delete(ctx, s, assetID, nil)
}

var assetCategories = collection[model.AssetCategory]{
	kind: "asset category",
	key:  storage.KeyAssetCategories,
	list: func(st *State) *[]model.AssetCategory { return &st.AssetCategories },
	validate: func(st State, v model.AssetCategory) error {
		var errs ValidationErrors
		if strings.TrimSpace(v.Name) == "" {
			errs.add("name", "is required")
		}
		for _, other := range st.AssetCategories {
			if other.ID != v.ID && strings.EqualFold(other.Name, v.Name) {
				errs.add("name", "%q already exists", other.Name)
				break
			}
		}
		return errs.err()
	},
}

// AddAssetCategory stores a new asset category.
func (s *Store) AddAssetCategory(ctx context.Context, v model.AssetCategory) (model.AssetCategory, error) {
	return assetCategories.add(ctx, s, v, func(r *model.AssetCategory, newID string) { r.ID = newID })
}

// DeleteAssetCategory removes an asset category no asset uses.
func (s *Store) DeleteAssetCategory(ctx context.Context, categoryID string) error {
	return assetCategories.delete(ctx, s, categoryID, func(st State) error {
		return refuse("asset category", categoryID,
			refCount{"assets", countWhere(st.Assets, func(a model.Asset) bool { return a.CategoryID == categoryID })},
		)
	})
}

var subscriptions = collection[model.Subscription]{
	kind: "subscription",
	key:  storage.KeySubscriptions,
	list: func(st *State) *[]model.Subscription { return &st.Subscriptions },
	validate: func(st State, v model.Subscription) error {
		var errs ValidationErrors
		if strings.TrimSpace(v.Name) == "" {
			errs.add("name", "is required")
		}
		if !v.Amount.IsPositive() {
			errs.add("amount", "must be greater than zero")
		}
		if !v.Frequency.Valid() {
			errs.add("frequency", "must be weekly, monthly or yearly")
		}
		if v.CategoryID != "" {
			if _, ok := st.Category(v.CategoryID); !ok {
				errs.add("categoryId", "unknown category %q", v.CategoryID)
			}
		}
		optionalAccount(&errs, st, v.AccountID)
		return errs.err()
	},
}

// AddSubscription stores a new recurring payment.
func (s *Store) AddSubscription(ctx context.Context, v model.Subscription) (model.Subscription, error) {
	return subscriptions.add(ctx, s, v, func(r *model.Subscription, newID string) { r.ID = newID })
}

// UpdateSubscription replaces a subscription.
func (s *Store) UpdateSubscription(ctx context.Context, v model.Subscription) (model.Subscription, error) {
	return subscriptions.update(ctx, s, v)
}

// DeleteSubscription removes a subscription.
func (s *Store) DeleteSubscription(ctx context.Context, subscriptionID string) error {
	return subscriptions.delete(ctx, s, subscriptionID, nil)
}

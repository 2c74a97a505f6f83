package store

import (
	"context"
	"strings"

	"github.com/finansage/finansage/internal/id"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/storage"
)

func validateCategory(st State, c model.Category) error {
	var errs ValidationErrors
	if c.Name == "" {
		errs.add("name", "is required")
	}
	if c.Type != model.CategoryIncome && c.Type != model.CategoryExpense {
		errs.add("type", "must be income or expense")
	}
	for _, other := range st.Categories {
		if other.ID != c.ID && other.Type == c.Type && strings.EqualFold(other.Name, c.Name) {
			errs.add("name", "an %s category named %q already exists", c.Type, other.Name)
			break
		}
	}
	return errs.err()
}

// AddCategory stores a new category.
func (s *Store) AddCategory(ctx context.Context, c model.Category) (model.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	err := s.mutate(ctx, "adding category", func(st *State) ([]string, error) {
		if err := validateCategory(*st, c); err != nil {
			return nil, err
		}
		c.ID = id.New()
		st.Categories = append(st.Categories, c)
		return []string{storage.KeyCategories}, nil
	})
	if err != nil {
		return model.Category{}, err
	}
	return c, nil
}

// UpdateCategory renames or re-icons a category. Its type is fixed once transactions may use it.
func (s *Store) UpdateCategory(ctx context.Context, c model.Category) (model.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	err := s.mutate(ctx, "updating category", func(st *State) ([]string, error) {
		old, ok := st.Category(c.ID)
		if !ok {
			return nil, notFound("category", c.ID)
		}
		c.Type = old.Type
		if err := validateCategory(*st, c); err != nil {
			return nil, err
		}
		st.Categories, _ = replace(st.Categories, c)
		return []string{storage.KeyCategories}, nil
	})
	if err != nil {
		return model.Category{}, err
	}
	return c, nil
}

// DeleteCategory removes a category no transaction, budget or subscription uses.
func (s *Store) DeleteCategory(ctx context.Context, categoryID string) error {
	return s.mutate(ctx, "deleting category", func(st *State) ([]string, error) {
		if _, ok := st.Category(categoryID); !ok {
			return nil, notFound("category", categoryID)
		}
		err := refuse("category", categoryID,
			refCount{"transactions", countWhere(st.Transactions, func(t model.Transaction) bool { return t.CategoryID == categoryID })},
			refCount{"budgets", countWhere(st.Budgets, func(b model.Budget) bool { return b.CategoryID == categoryID })},
			refCount{"subscriptions", countWhere(st.Subscriptions, func(v model.Subscription) bool { return v.CategoryID == categoryID })},
		)
		if err != nil {
			return nil, err
		}
		st.Categories, _ = remove(st.Categories, categoryID)
		return []string{storage.KeyCategories}, nil
	})
}

func validateBudget(st State, b model.Budget) error {
	var errs ValidationErrors
	c, ok := st.Category(b.CategoryID)
	switch {
	case !ok:
		errs.add("categoryId", "unknown category %q", b.CategoryID)
	case c.Type != model.CategoryExpense:
		errs.add("categoryId", "budgets apply to expense categories only")
	}
	if !b.Amount.IsPositive() {
		errs.add("amount", "must be greater than zero")
	}
	for _, other := range st.Budgets {
		if other.ID != b.ID && other.CategoryID == b.CategoryID {
			errs.add("categoryId", "category already has a budget")
			break
		}
	}
	return errs.err()
}

// AddBudget stores a monthly ceiling for an expense category. A category has at most one budget.
func (s *Store) AddBudget(ctx context.Context, b model.Budget) (model.Budget, error) {
	err := s.mutate(ctx, "adding budget", func(st *State) ([]string, error) {
		b.ID = ""
		if err := validateBudget(*st, b); err != nil {
			return nil, err
		}
		b.ID = id.New()
		st.Budgets = append(st.Budgets, b)
		return []string{storage.KeyBudgets}, nil
	})
	if err != nil {
		return model.Budget{}, err
	}
	return b, nil
}

// UpdateBudget changes a budget's category or amount.
func (s *Store) UpdateBudget(ctx context.Context, b model.Budget) (model.Budget, error) {
	err := s.mutate(ctx, "updating budget", func(st *State) ([]string, error) {
		if _, ok := find(st.Budgets, b.ID); !ok {
			return nil, notFound("budget", b.ID)
		}
		if err := validateBudget(*st, b); err != nil {
			return nil, err
		}
		st.Budgets, _ = replace(st.Budgets, b)
		return []string{storage.KeyBudgets}, nil
	})
	if err != nil {
		return model.Budget{}, err
	}
	return b, nil
}

// DeleteBudget removes a budget.
func (s *Store) DeleteBudget(ctx context.Context, budgetID string) error {
	return s.mutate(ctx, "deleting budget", func(st *State) ([]string, error) {
		var ok bool
		if st.Budgets, ok = remove(st.Budgets, budgetID); !ok {
			return nil, notFound("budget", budgetID)
		}
		return []string{storage.KeyBudgets}, nil
	})
}

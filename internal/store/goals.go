package store

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/id"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/storage"
)

func validateGoal(g model.Goal) error {
	var errs ValidationErrors
	if g.Name == "" {
		errs.add("name", "is required")
	}
	if !g.TargetAmount.IsPositive() {
		errs.add("targetAmount", "must be greater than zero")
	}
	if g.CurrentAmount.IsNegative() {
		errs.add("currentAmount", "must not be negative")
	}
	return errs.err()
}

// AddGoal stores a new savings goal.
func (s *Store) AddGoal(ctx context.Context, g model.Goal) (model.Goal, error) {
	g.Name = strings.TrimSpace(g.Name)
	if err := validateGoal(g); err != nil {
		return model.Goal{}, err
	}
	g.ID = id.New()
	err := s.mutate(ctx, "adding goal", func(st *State) ([]string, error) {
		st.Goals = append(st.Goals, g)
		return []string{storage.KeyGoals}, nil
	})
	if err != nil {
		return model.Goal{}, err
	}
	return g, nil
}

// UpdateGoal replaces a goal.
func (s *Store) UpdateGoal(ctx context.Context, g model.Goal) (model.Goal, error) {
	g.Name = strings.TrimSpace(g.Name)
	if err := validateGoal(g); err != nil {
		return model.Goal{}, err
	}
	err := s.mutate(ctx, "updating goal", func(st *State) ([]string, error) {
		var ok bool
		if st.Goals, ok = replace(st.Goals, g); !ok {
			return nil, notFound("goal", g.ID)
		}
		return []string{storage.KeyGoals}, nil
	})
	if err != nil {
		return model.Goal{}, err
	}
	return g, nil
}

// DeleteGoal removes a goal. Contributions already booked stay in the ledger.
func (s *Store) DeleteGoal(ctx context.Context, goalID string) error {
	return s.mutate(ctx, "deleting goal", func(st *State) ([]string, error) {
		var ok bool
		if st.Goals, ok = remove(st.Goals, goalID); !ok {
			return nil, notFound("goal", goalID)
		}
		return []string{storage.KeyGoals}, nil
	})
}

// Contribution moves money from an account towards a goal.
type Contribution struct {
	GoalID     string
	AccountID  string
	Amount     decimal.Decimal
	Date       date.Date // today when zero
	CategoryID string    // optional expense category for the booked transaction
}

// ContributeToGoal raises the goal's current amount and books the matching expense
// against the account, both in one transition.
func (s *Store) ContributeToGoal(ctx context.Context, c Contribution) (model.Goal, model.Transaction, error) {
	if c.Date.IsZero() {
		c.Date = s.Today()
	}

	var (
		goal model.Goal
		txn  model.Transaction
	)
	err := s.mutate(ctx, "contributing to goal", func(st *State) ([]string, error) {
		var ok bool
		if goal, ok = find(st.Goals, c.GoalID); !ok {
			return nil, notFound("goal", c.GoalID)
		}
		txn = TransactionParams{
			Date:        c.Date,
			Description: "Contribution to " + goal.Name,
			Amount:      c.Amount,
			Type:        model.TransactionExpense,
			CategoryID:  c.CategoryID,
			AccountID:   c.AccountID,
		}.build(id.New())
		if err := validateTransaction(*st, txn).err(); err != nil {
			return nil, err
		}

		goal.CurrentAmount = goal.CurrentAmount.Add(c.Amount)
		st.Goals, _ = replace(st.Goals, goal)
		s.insert(st, txn)
		return []string{storage.KeyGoals, storage.KeyAccounts, storage.KeyTransactions}, nil
	})
	if err != nil {
		return model.Goal{}, model.Transaction{}, err
	}
	return goal, txn, nil
}

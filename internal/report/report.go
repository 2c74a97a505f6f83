// Package report derives dashboard and report views from a ledger snapshot.
// Every function is pure: it reads its arguments and returns fresh values.
package report

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/money"
)

var hundred = decimal.NewFromInt(100)

// NetWorth sums account balances, negating loans and credit cards.
func NetWorth(accounts []model.Account) decimal.Decimal {
	total := decimal.Zero
	for _, a := range accounts {
		if a.Type.IsLiability() {
			total = total.Sub(a.Balance)
			continue
		}
		total = total.Add(a.Balance)
	}
	return total
}

// Breakdown splits net worth into its asset and liability sides, both as stored contributions.
type Breakdown struct {
	Assets      decimal.Decimal
	Liabilities decimal.Decimal
	NetWorth    decimal.Decimal
}

// NetWorthBreakdown is NetWorth with the two sides kept apart.
func NetWorthBreakdown(accounts []model.Account) Breakdown {
	var b Breakdown
	for _, a := range accounts {
		if a.Type.IsLiability() {
			b.Liabilities = b.Liabilities.Add(a.Balance)
			continue
		}
		b.Assets = b.Assets.Add(a.Balance)
	}
	b.NetWorth = b.Assets.Sub(b.Liabilities)
	return b
}

// CategoryTotal is the spending attributed to one category.
type CategoryTotal struct {
	CategoryID string
	Name       string
	Total      decimal.Decimal
}

// SpendingByCategory sums expense transactions per resolvable category, largest first.
func SpendingByCategory(txns []model.Transaction, categories []model.Category) []CategoryTotal {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	totals := map[string]decimal.Decimal{}
	var order []string
	for _, t := range txns {
		if t.Type != model.TransactionExpense {
			continue
		}
		if _, ok := names[t.CategoryID]; !ok {
			continue
		}
		if _, seen := totals[t.CategoryID]; !seen {
			order = append(order, t.CategoryID)
		}
		totals[t.CategoryID] = totals[t.CategoryID].Add(t.Amount)
	}

	out := make([]CategoryTotal, 0, len(order))
	for _, id := range order {
		out = append(out, CategoryTotal{CategoryID: id, Name: names[id], Total: totals[id]})
	}
	slices.SortStableFunc(out, func(a, b CategoryTotal) int { return b.Total.Cmp(a.Total) })
	return out
}

// BudgetProgress is one budget measured against this month's spending.
type BudgetProgress struct {
	Budget       model.Budget
	CategoryName string
	Spent        decimal.Decimal
	Remaining    decimal.Decimal
	Progress     decimal.Decimal // percent, capped at 100
}

// Over reports whether spending passed the ceiling.
func (p BudgetProgress) Over() bool { return p.Spent.GreaterThan(p.Budget.Amount) }

// BudgetStatus measures each budget against the expenses of the calendar month containing today,
// most consumed first.
func BudgetStatus(budgets []model.Budget, txns []model.Transaction, categories []model.Category, today date.Date) []BudgetProgress {
	names := make(map[string]string, len(categories))
	for _, c := range categories {
		names[c.ID] = c.Name
	}

	spent := map[string]decimal.Decimal{}
	for _, t := range txns {
		if t.Type == model.TransactionExpense && t.Date.SameMonth(today) {
			spent[t.CategoryID] = spent[t.CategoryID].Add(t.Amount)
		}
	}

	out := make([]BudgetProgress, 0, len(budgets))
	for _, b := range budgets {
		s := spent[b.CategoryID]
		p := BudgetProgress{
			Budget:       b,
			CategoryName: names[b.CategoryID],
			Spent:        s,
			Remaining:    b.Amount.Sub(s),
		}
		if b.Amount.IsPositive() {
			p.Progress = decimal.Min(s.Div(b.Amount).Mul(hundred), hundred)
		}
		out = append(out, p)
	}
	slices.SortStableFunc(out, func(a, b BudgetProgress) int { return b.Progress.Cmp(a.Progress) })
	return out
}

// Totals is income and expense over some period.
type Totals struct {
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// Net is income minus expense.
func (t Totals) Net() decimal.Decimal { return t.Income.Sub(t.Expense) }

// SavingsRate is the share of income kept, in percent.
func (t Totals) SavingsRate() decimal.Decimal { return money.Percent(t.Net(), t.Income) }

// MonthlyTotals sums income and expense whose date falls in today's calendar month.
// Transfers are neither.
func MonthlyTotals(txns []model.Transaction, today date.Date) Totals {
	var out Totals
	for _, t := range txns {
		if !t.Date.SameMonth(today) {
			continue
		}
		switch t.Type {
		case model.TransactionIncome:
			out.Income = out.Income.Add(t.Amount)
		case model.TransactionExpense:
			out.Expense = out.Expense.Add(t.Amount)
		}
	}
	return out
}

// MonthTotals is Totals for one calendar month.
type MonthTotals struct {
	Year  int
	Month int
	Totals
}

// IncomeExpenseByMonth returns totals for the n calendar months ending with today's, oldest first.
func IncomeExpenseByMonth(txns []model.Transaction, n int, today date.Date) []MonthTotals {
	if n <= 0 {
		return nil
	}
	first := date.New(today.Year(), today.Month(), 1)
	out := make([]MonthTotals, n)
	for i := range out {
		m := first.AddMonths(i - n + 1)
		out[i] = MonthTotals{Year: m.Year(), Month: int(m.Month())}
		out[i].Totals = MonthlyTotals(txns, m)
	}
	return out
}

// GoalStatus is a goal with its completion percentage.
type GoalStatus struct {
	Goal     model.Goal
	Progress decimal.Decimal // percent, capped at 100
	DaysLeft int             // negative once the deadline passed; 0 without a deadline
}

// GoalProgress reports progress for every goal in input order.
func GoalProgress(goals []model.Goal, today date.Date) []GoalStatus {
	out := make([]GoalStatus, 0, len(goals))
	for _, g := range goals {
		s := GoalStatus{Goal: g, Progress: decimal.Min(money.Percent(g.CurrentAmount, g.TargetAmount), hundred)}
		if !g.Deadline.IsZero() {
			s.DaysLeft = int(g.Deadline.Time().Sub(today.Time()).Hours() / 24)
		}
		out = append(out, s)
	}
	return out
}

// UpcomingSubscriptions returns subscriptions due within days of today, soonest first.
func UpcomingSubscriptions(subs []model.Subscription, today date.Date, days int) []model.Subscription {
	limit := today.Add(days)
	var out []model.Subscription
	for _, s := range subs {
		if !s.NextPaymentDate.IsZero() && s.NextPaymentDate.Between(today, limit) {
			out = append(out, s)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Subscription) int { return a.NextPaymentDate.Compare(b.NextPaymentDate) })
	return out
}

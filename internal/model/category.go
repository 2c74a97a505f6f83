package model

import "github.com/shopspring/decimal"

// CategoryType is the transaction type a category applies to.
type CategoryType string

const (
	CategoryIncome  CategoryType = "income"
	CategoryExpense CategoryType = "expense"
)

// Category groups income or expense transactions.
type Category struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Type CategoryType `json:"type"`
	Icon string       `json:"icon,omitempty"`
}

func (c Category) GetID() string { return c.ID }

// Budget is a monthly spending ceiling for one expense category.
type Budget struct {
	ID         string          `json:"id"`
	CategoryID string          `json:"categoryId"`
	Amount     decimal.Decimal `json:"amount"`
}

func (b Budget) GetID() string { return b.ID }

package model

import (
	"github.com/shopspring/decimal"

	"github.com/finansage/finansage/internal/date"
)

// TransactionType tells the ledger which way money moves.
type TransactionType string

const (
	TransactionIncome   TransactionType = "income"
	TransactionExpense  TransactionType = "expense"
	TransactionTransfer TransactionType = "transfer"
)

// Valid reports whether t is income, expense or transfer.
func (t TransactionType) Valid() bool {
	switch t {
	case TransactionIncome, TransactionExpense, TransactionTransfer:
		return true
	}
	return false
}

// Transaction is one ledger record. Amount is always a non-negative magnitude;
// direction comes from Type.
type Transaction struct {
	ID          string          `json:"id"`
	Date        date.Date       `json:"date"`
	Description string          `json:"description"`
	Notes       string          `json:"notes,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TransactionType `json:"type"`
	CategoryID  string          `json:"categoryId,omitempty"` // unused for transfers
	AccountID   string          `json:"accountId"`
	ToAccountID string          `json:"toAccountId,omitempty"` // transfers only
	Tags        []string        `json:"tags,omitempty"`
	Receipt     string          `json:"receiptImage,omitempty"` // data URL
}

func (t Transaction) GetID() string { return t.ID }

// References reports whether t touches accountID on either side.
func (t Transaction) References(accountID string) bool {
	return t.AccountID == accountID || (t.Type == TransactionTransfer && t.ToAccountID == accountID)
}

// HasTag reports whether t carries tag (exact match).
func (t Transaction) HasTag(tag string) bool {
	for _, v := range t.Tags {
		if v == tag {
			return true
		}
	}
	return false
}

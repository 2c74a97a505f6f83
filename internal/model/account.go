package model

import "github.com/shopspring/decimal"

// AccountType classifies accounts.
type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeCreditCard AccountType = "credit_card"
	AccountTypeInvestment AccountType = "investment"
	AccountTypeLoan       AccountType = "loan"
	AccountTypeCash       AccountType = "cash"
)

// AccountTypes lists every account type in display order.
var AccountTypes = []AccountType{
	AccountTypeChecking,
	AccountTypeSavings,
	AccountTypeCreditCard,
	AccountTypeInvestment,
	AccountTypeLoan,
	AccountTypeCash,
}

// Valid reports whether t is one of AccountTypes.
func (t AccountType) Valid() bool {
	for _, v := range AccountTypes {
		if t == v {
			return true
		}
	}
	return false
}

// IsLiability reports whether balances of this type count against net worth.
func (t AccountType) IsLiability() bool {
	return t == AccountTypeLoan || t == AccountTypeCreditCard
}

// Account is a place money lives. Balance is owned by the ledger.
type Account struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Type          AccountType     `json:"type"`
	Currency      string          `json:"currency"`
	Balance       decimal.Decimal `json:"balance"`
	BankName      string          `json:"bankName,omitempty"`
	AccountNumber string          `json:"accountNumber,omitempty"` // last four digits only
	CreditLimit   decimal.Decimal `json:"creditLimit,omitzero"`
	InterestRate  decimal.Decimal `json:"interestRate,omitzero"`
	DueDay        int             `json:"dueDay,omitempty"` // day of month a card or loan payment is due
}

func (a Account) GetID() string { return a.ID }

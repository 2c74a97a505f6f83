package model

import (
	"github.com/shopspring/decimal"

	"github.com/finansage/finansage/internal/date"
)

// Record is implemented by every stored entity.
type Record interface {
	GetID() string
}

// InvestmentType classifies holdings.
type InvestmentType string

const (
	InvestmentStock      InvestmentType = "stock"
	InvestmentETF        InvestmentType = "etf"
	InvestmentMutualFund InvestmentType = "mutual_fund"
	InvestmentBond       InvestmentType = "bond"
	InvestmentCrypto     InvestmentType = "crypto"
	InvestmentOther      InvestmentType = "other"
)

// Investment is a market holding.
type Investment struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Symbol        string          `json:"symbol,omitempty"`
	Type          InvestmentType  `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	CurrentPrice  decimal.Decimal `json:"currentPrice"`
	PurchaseDate  date.Date       `json:"purchaseDate"`
	AccountID     string          `json:"accountId,omitempty"`
}

func (i Investment) GetID() string { return i.ID }

// Value is quantity times the current price.
func (i Investment) Value() decimal.Decimal { return i.Quantity.Mul(i.CurrentPrice) }

// Gain is the unrealized gain against the purchase price.
func (i Investment) Gain() decimal.Decimal {
	return i.Value().Sub(i.Quantity.Mul(i.PurchasePrice))
}

// SavingsType classifies savings instruments.
type SavingsType string

const (
	SavingsFixedDeposit     SavingsType = "fixed_deposit"
	SavingsRecurringDeposit SavingsType = "recurring_deposit"
	SavingsBond             SavingsType = "bond"
	SavingsOther            SavingsType = "other"
)

// SavingsInstrument is a deposit or bond held to maturity.
type SavingsInstrument struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Type         SavingsType     `json:"type"`
	Principal    decimal.Decimal `json:"principal"`
	InterestRate decimal.Decimal `json:"interestRate"` // annual percent
	StartDate    date.Date       `json:"startDate"`
	MaturityDate date.Date       `json:"maturityDate"`
	AccountID    string          `json:"accountId,omitempty"`
}

func (s SavingsInstrument) GetID() string { return s.ID }

// Goal tracks progress towards a savings target.
type Goal struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Deadline      date.Date       `json:"deadline"`
	Icon          string          `json:"icon,omitempty"`
}

func (g Goal) GetID() string { return g.ID }

// AssetCategory groups physical assets.
type AssetCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon,omitempty"`
}

func (c AssetCategory) GetID() string { return c.ID }

// Asset is a physical possession with an estimated value.
type Asset struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	CategoryID    string          `json:"categoryId,omitempty"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	CurrentValue  decimal.Decimal `json:"currentValue"`
	PurchaseDate  date.Date       `json:"purchaseDate"`
	ImageURL      string          `json:"imageUrl,omitempty"`
	URL           string          `json:"url,omitempty"`
}

func (a Asset) GetID() string { return a.ID }

// Frequency is how often a subscription bills.
type Frequency string

const (
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Frequencies lists the accepted billing frequencies.
var Frequencies = []Frequency{FrequencyWeekly, FrequencyMonthly, FrequencyYearly}

// Valid reports whether f is weekly, monthly or yearly.
func (f Frequency) Valid() bool {
	for _, v := range Frequencies {
		if f == v {
			return true
		}
	}
	return false
}

// Next returns the billing date one period after d.
func (f Frequency) Next(d date.Date) date.Date {
	switch f {
	case FrequencyWeekly:
		return d.Add(7)
	case FrequencyYearly:
		return d.AddMonths(12)
	default:
		return d.AddMonths(1)
	}
}

// Subscription is a recurring payment.
type Subscription struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Amount          decimal.Decimal `json:"amount"`
	Frequency       Frequency       `json:"frequency"`
	NextPaymentDate date.Date       `json:"nextPaymentDate"`
	CategoryID      string          `json:"categoryId,omitempty"`
	AccountID       string          `json:"accountId,omitempty"`
}

func (s Subscription) GetID() string { return s.ID }

// MonthlyCost normalizes the subscription amount to a month.
func (s Subscription) MonthlyCost() decimal.Decimal {
	switch s.Frequency {
	case FrequencyWeekly:
		return s.Amount.Mul(decimal.NewFromInt(52)).Div(decimal.NewFromInt(12)).Round(2)
	case FrequencyYearly:
		return s.Amount.Div(decimal.NewFromInt(12)).Round(2)
	default:
		return s.Amount
	}
}

// NetWorthEntry is one daily net-worth snapshot.
type NetWorthEntry struct {
	Date  date.Date       `json:"date"`
	Value decimal.Decimal `json:"netWorth"`
}

package insight

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/money"
	"github.com/finansage/finansage/internal/report"
)

// Request size limits.
const (
	InsightTransactions      = 50
	SubscriptionTransactions = 200
	ReportTransactions       = 500
	MinSubscriptionInput     = 5
	PageTextLimit            = 8000
)

const advisorSystem = `You are a friendly, practical personal finance advisor.
Answer in concise markdown with short headings and bullet points.
Base every statement on the data provided. Do not invent transactions.`

// Data is the slice of ledger state the narrative operations read.
type Data struct {
	Transactions []model.Transaction // newest first
	Accounts     []model.Account
	Categories   []model.Category
}

// txnLine is the compact form a transaction takes inside a prompt.
type txnLine struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	Type        string `json:"type"`
	Category    string `json:"category,omitempty"`
	Account     string `json:"account,omitempty"`
	ToAccount   string `json:"toAccount,omitempty"`
	Tags        string `json:"tags,omitempty"`
}

type accountLine struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Balance string `json:"balance"`
}

// encoder renders ledger records with names instead of IDs.
type encoder struct {
	currency   string
	accounts   map[string]model.Account
	categories map[string]string
}

func newEncoder(currency string, accounts []model.Account, categories []model.Category) encoder {
	e := encoder{
		currency:   currency,
		accounts:   make(map[string]model.Account, len(accounts)),
		categories: make(map[string]string, len(categories)),
	}
	for _, a := range accounts {
		e.accounts[a.ID] = a
	}
	for _, c := range categories {
		e.categories[c.ID] = c.Name
	}
	return e
}

func (e encoder) transactions(txns []model.Transaction) string {
	lines := make([]txnLine, len(txns))
	for i, t := range txns {
		lines[i] = txnLine{
			Date:        t.Date.String(),
			Description: t.Description,
			Amount:      money.Format(t.Amount, e.currency),
			Type:        string(t.Type),
			Category:    e.categories[t.CategoryID],
			Account:     e.accounts[t.AccountID].Name,
			ToAccount:   e.accounts[t.ToAccountID].Name,
			Tags:        strings.Join(t.Tags, ", "),
		}
	}
	return mustJSON(lines)
}

func (e encoder) accountList(accounts []model.Account) string {
	lines := make([]accountLine, len(accounts))
	for i, a := range accounts {
		cur := a.Currency
		if cur == "" {
			cur = e.currency
		}
		lines[i] = accountLine{Name: a.Name, Type: string(a.Type), Balance: money.Format(a.Balance, cur)}
	}
	return mustJSON(lines)
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		// Only plain strings are marshalled here.
		panic(fmt.Sprintf("encoding prompt data: %v", err))
	}
	return string(b)
}

// newest returns at most n transactions from a newest-first list that pass keep.
func newest(txns []model.Transaction, n int, keep func(model.Transaction) bool) []model.Transaction {
	var out []model.Transaction
	for _, t := range txns {
		if len(out) == n {
			break
		}
		if keep == nil || keep(t) {
			out = append(out, t)
		}
	}
	return out
}

func insightsPrompt(e encoder, d Data) string {
	txns := newest(d.Transactions, InsightTransactions, nil)
	nw := report.NetWorthBreakdown(d.Accounts)

	var b strings.Builder
	fmt.Fprintf(&b, "Primary currency: %s\n", e.currency)
	fmt.Fprintf(&b, "Net worth: %s (assets %s, liabilities %s)\n",
		money.Format(nw.NetWorth, e.currency), money.Format(nw.Assets, e.currency), money.Format(nw.Liabilities, e.currency))
	fmt.Fprintf(&b, "Accounts: %s\n", e.accountList(d.Accounts))
	fmt.Fprintf(&b, "Recent transactions (newest first, %d shown): %s\n\n", len(txns), e.transactions(txns))
	b.WriteString("Give three to five specific observations about spending patterns, then concrete suggestions to save money or improve financial health.")
	return b.String()
}

func suggestPrompt(description string, names []string) string {
	return fmt.Sprintf("Pick the expense category that best fits this transaction description: %q.\n"+
		"Choose only from: %s. If none fits, answer null.", description, strings.Join(names, ", "))
}

func productPrompt(p Page) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract the product being sold on this page.\nURL: %s\n", p.URL)
	if p.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", p.Title)
	}
	if p.Description != "" {
		fmt.Fprintf(&b, "Meta description: %s\n", p.Description)
	}
	if p.Price != "" {
		fmt.Fprintf(&b, "Listed price: %s\n", p.Price)
	}
	if p.ImageURL != "" {
		fmt.Fprintf(&b, "Image: %s\n", p.ImageURL)
	}
	fmt.Fprintf(&b, "Page text:\n%s", truncate(p.Text, PageTextLimit))
	return b.String()
}

func receiptPrompt(today date.Date) string {
	return fmt.Sprintf("Read this receipt. Return the merchant name, the final total paid and the purchase date as YYYY-MM-DD. "+
		"If the receipt omits the year, assume %d.", today.Year())
}

func subscriptionPrompt(e encoder, txns []model.Transaction) string {
	return "Find recurring payments (subscriptions, memberships, bills) in these expense transactions. " +
		"Only report a payment that repeats at a regular weekly, monthly or yearly interval. " +
		"For each give the merchant name, the usual amount, the frequency, the most recent payment date " +
		"as YYYY-MM-DD and the category it was filed under.\n" + e.transactions(txns)
}

func reportPrompt(e encoder, txns []model.Transaction, from, to date.Date) string {
	var totals report.Totals
	for _, t := range txns {
		switch t.Type {
		case model.TransactionIncome:
			totals.Income = totals.Income.Add(t.Amount)
		case model.TransactionExpense:
			totals.Expense = totals.Expense.Add(t.Amount)
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a financial report for %s to %s.\n", rangeLabel(from), rangeLabel(to))
	fmt.Fprintf(&b, "Total income: %s. Total expenses: %s. Savings rate: %s%%.\n",
		money.Format(totals.Income, e.currency), money.Format(totals.Expense, e.currency), totals.SavingsRate().StringFixed(1))
	for _, c := range report.SpendingByCategory(txns, categoriesOf(e)) {
		fmt.Fprintf(&b, "- %s: %s\n", c.Name, money.Format(c.Total, e.currency))
	}
	fmt.Fprintf(&b, "Transactions (%d): %s\n\n", len(txns), e.transactions(txns))
	b.WriteString("Use these sections: Summary, Income, Spending by Category, Notable Transactions, Recommendations.")
	return b.String()
}

func rangeLabel(d date.Date) string {
	if d.IsZero() {
		return "the open end"
	}
	return d.String()
}

func categoriesOf(e encoder) []model.Category {
	out := make([]model.Category, 0, len(e.categories))
	for id, name := range e.categories {
		out = append(out, model.Category{ID: id, Name: name})
	}
	return out
}

// truncate cuts s to at most n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

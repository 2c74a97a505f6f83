// Package ledger keeps account balances consistent with the transactions that touch them.
//
// Sign convention: income adds to the source account, expense subtracts from it,
// and a transfer subtracts from the source and adds the same amount to the destination.
package ledger

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/finansage/finansage/internal/model"
)

// Delta maps account IDs to the balance change owed to them.
type Delta map[string]decimal.Decimal

// Add accumulates amount on accountID. Empty IDs are ignored.
func (d Delta) Add(accountID string, amount decimal.Decimal) {
	if accountID == "" {
		return
	}
	d[accountID] = d[accountID].Add(amount)
}

// Merge folds other into d.
func (d Delta) Merge(other Delta) {
	for id, v := range other {
		d.Add(id, v)
	}
}

// Neg returns the inverse delta.
func (d Delta) Neg() Delta {
	out := make(Delta, len(d))
	for id, v := range d {
		out[id] = v.Neg()
	}
	return out
}

// Effect returns the balance change t causes on each account it touches.
// A transfer without a destination only affects its source.
func Effect(t model.Transaction) Delta {
	d := make(Delta, 2)
	switch t.Type {
	case model.TransactionIncome:
		d.Add(t.AccountID, t.Amount)
	case model.TransactionExpense:
		d.Add(t.AccountID, t.Amount.Neg())
	case model.TransactionTransfer:
		d.Add(t.AccountID, t.Amount.Neg())
		d.Add(t.ToAccountID, t.Amount)
	}
	return d
}

// Book applies transaction effects to a private copy of the account list.
// Callers publish Accounts() once they are done, so no reader observes a half-applied change.
type Book struct {
	accounts []model.Account
	index    map[string]int
}

// NewBook copies accounts into a new Book.
func NewBook(accounts []model.Account) *Book {
	b := &Book{
		accounts: slices.Clone(accounts),
		index:    make(map[string]int, len(accounts)),
	}
	for i, a := range b.accounts {
		b.index[a.ID] = i
	}
	return b
}

// Accounts returns the account list with every committed delta applied.
func (b *Book) Accounts() []model.Account { return b.accounts }

// Balance returns the current balance of id and whether the account exists.
func (b *Book) Balance(id string) (decimal.Decimal, bool) {
	i, ok := b.index[id]
	if !ok {
		return decimal.Zero, false
	}
	return b.accounts[i].Balance, true
}

// Apply books a new transaction. It returns the IDs of missing accounts whose side was skipped.
func (b *Book) Apply(t model.Transaction) []string {
	return b.Commit(Effect(t))
}

// Revert undoes a previously applied transaction.
func (b *Book) Revert(t model.Transaction) []string {
	return b.Commit(Effect(t).Neg())
}

// Update replaces old with updated. The revert and the apply are folded into one delta,
// so an account on both sides receives a single combined write.
func (b *Book) Update(old, updated model.Transaction) []string {
	d := Effect(old).Neg()
	d.Merge(Effect(updated))
	return b.Commit(d)
}

// Delete reverts t; removing the record itself is the caller's job.
func (b *Book) Delete(t model.Transaction) []string {
	return b.Revert(t)
}

// Commit writes d to the accounts. Deltas for unknown accounts are skipped and
// their IDs returned in sorted order.
func (b *Book) Commit(d Delta) []string {
	var orphans []string
	for id, v := range d {
		i, ok := b.index[id]
		if !ok {
			orphans = append(orphans, id)
			continue
		}
		b.accounts[i].Balance = b.accounts[i].Balance.Add(v)
	}
	slices.Sort(orphans)
	return orphans
}

// SortTransactions orders txns newest first. Equal dates keep their relative order.
func SortTransactions(txns []model.Transaction) {
	slices.SortStableFunc(txns, func(a, b model.Transaction) int {
		return b.Date.Compare(a.Date)
	})
}

// Insert puts t in front of txns and re-sorts, so it precedes older records of the same day.
func Insert(txns []model.Transaction, t model.Transaction) []model.Transaction {
	out := make([]model.Transaction, 0, len(txns)+1)
	out = append(out, t)
	out = append(out, txns...)
	SortTransactions(out)
	return out
}

// Replace swaps the record with t.ID for t in place and re-sorts. It reports whether t.ID was found.
func Replace(txns []model.Transaction, t model.Transaction) ([]model.Transaction, bool) {
	i := slices.IndexFunc(txns, func(x model.Transaction) bool { return x.ID == t.ID })
	if i < 0 {
		return txns, false
	}
	out := slices.Clone(txns)
	out[i] = t
	SortTransactions(out)
	return out, true
}

// Remove drops the record with the given ID.
func Remove(txns []model.Transaction, id string) ([]model.Transaction, bool) {
	i := slices.IndexFunc(txns, func(x model.Transaction) bool { return x.ID == id })
	if i < 0 {
		return txns, false
	}
	return slices.Delete(slices.Clone(txns), i, i+1), true
}

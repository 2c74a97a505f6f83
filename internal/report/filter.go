package report

import (
	"strings"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/model"
)

// Filter selects transactions for listing and export. Zero fields match everything.
type Filter struct {
	Search     string // case-insensitive match on description, notes and tags
	Type       model.TransactionType
	CategoryID string
	AccountID  string // matches either side of a transfer
	Tag        string
	From       date.Date
	To         date.Date
}

// Match reports whether t passes every set criterion.
func (f Filter) Match(t model.Transaction) bool {
	if f.Type != "" && t.Type != f.Type {
		return false
	}
	if f.CategoryID != "" && t.CategoryID != f.CategoryID {
		return false
	}
	if f.AccountID != "" && !t.References(f.AccountID) {
		return false
	}
	if f.Tag != "" && !t.HasTag(f.Tag) {
		return false
	}
	if !t.Date.Between(f.From, f.To) {
		return false
	}
	if f.Search != "" {
		q := strings.ToLower(f.Search)
		hay := strings.ToLower(t.Description + "\n" + t.Notes + "\n" + strings.Join(t.Tags, "\n"))
		if !strings.Contains(hay, q) {
			return false
		}
	}
	return true
}

// Apply returns the transactions that match, in input order.
func (f Filter) Apply(txns []model.Transaction) []model.Transaction {
	var out []model.Transaction
	for _, t := range txns {
		if f.Match(t) {
			out = append(out, t)
		}
	}
	return out
}

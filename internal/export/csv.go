// Package export writes transactions as CSV for spreadsheets and re-import.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/model"
)

// Header is the first row of every export.
const Header = "ID,Date,Description,Notes,Amount,Type,Category,Account,To Account,Tags"

// Column positions, shared with the importer that reads exports back.
const (
	NumFields     = 10
	ColID         = 0
	ColDate       = 1
	ColDesc       = 2
	ColNotes      = 3
	ColAmount     = 4
	ColType       = 5
	ColCategory   = 6
	ColAccount    = 7
	ColToAccount  = 8
	ColTags       = 9
	TagSeparator  = ";"
	filePrefix    = "finansage_transactions_"
	fileExtension = ".csv"
)

// FileName is the download name for an export made on day.
func FileName(day date.Date) string {
	return filePrefix + day.String() + fileExtension
}

// Names resolves account and category IDs to display names.
type Names struct {
	accounts   map[string]string
	categories map[string]string
}

// NewNames indexes the given accounts and categories.
func NewNames(accounts []model.Account, categories []model.Category) Names {
	n := Names{
		accounts:   make(map[string]string, len(accounts)),
		categories: make(map[string]string, len(categories)),
	}
	for _, a := range accounts {
		n.accounts[a.ID] = a.Name
	}
	for _, c := range categories {
		n.categories[c.ID] = c.Name
	}
	return n
}

// Account returns the account's name, or the ID itself when the account is gone.
func (n Names) Account(id string) string {
	if name, ok := n.accounts[id]; ok {
		return name
	}
	return id
}

// Category returns the category's name, or the ID itself when the category is gone.
func (n Names) Category(id string) string {
	if name, ok := n.categories[id]; ok {
		return name
	}
	return id
}

// MarshalTransaction converts a transaction to a CSV row.
func MarshalTransaction(t model.Transaction, names Names) []string {
	row := make([]string, NumFields)
	row[ColID] = t.ID
	row[ColDate] = t.Date.String()
	row[ColDesc] = t.Description
	row[ColNotes] = t.Notes
	row[ColAmount] = t.Amount.StringFixed(2)
	row[ColType] = string(t.Type)
	if t.CategoryID != "" {
		row[ColCategory] = names.Category(t.CategoryID)
	}
	row[ColAccount] = names.Account(t.AccountID)
	if t.ToAccountID != "" {
		row[ColToAccount] = names.Account(t.ToAccountID)
	}
	row[ColTags] = strings.Join(t.Tags, TagSeparator)
	return row
}

// WriteTransactions writes the header and one row per transaction, in the order given.
func WriteTransactions(w io.Writer, txns []model.Transaction, names Names) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(strings.Split(Header, ",")); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, t := range txns {
		if err := cw.Write(MarshalTransaction(t, names)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

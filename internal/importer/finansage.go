package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/export"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/store"
)

// FinansageParser reads files produced by the export command. Account and category
// columns hold names, which are resolved back to IDs. The ID column is ignored so a
// re-import never collides with existing records.
type FinansageParser struct{}

// Format returns the parser name.
func (p *FinansageParser) Format() string { return "finansage" }

// Parse reads an export file.
func (p *FinansageParser) Parse(r io.Reader, opts Target) ([]store.TransactionParams, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = export.NumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading finansage CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}
	if got := strings.Join(records[0], ","); got != export.Header {
		return nil, fmt.Errorf("unexpected header %q", got)
	}

	lk := newLookup(opts)
	var txns []store.TransactionParams
	for i, rec := range records[1:] {
		txn, err := lk.row(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

// lookup maps lower-cased names to IDs.
type lookup struct {
	accounts   map[string]string
	categories map[model.CategoryType]map[string]string
}

func newLookup(opts Target) lookup {
	lk := lookup{
		accounts: make(map[string]string, len(opts.Accounts)),
		categories: map[model.CategoryType]map[string]string{
			model.CategoryIncome:  {},
			model.CategoryExpense: {},
		},
	}
	for _, a := range opts.Accounts {
		lk.accounts[strings.ToLower(a.Name)] = a.ID
	}
	for _, c := range opts.Categories {
		if m, ok := lk.categories[c.Type]; ok {
			m[strings.ToLower(c.Name)] = c.ID
		}
	}
	return lk
}

func (lk lookup) account(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	id, ok := lk.accounts[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return "", fmt.Errorf("unknown account %q", name)
	}
	return id, nil
}

func (lk lookup) row(rec []string) (store.TransactionParams, error) {
	d, err := date.Parse(rec[export.ColDate])
	if err != nil {
		return store.TransactionParams{}, fmt.Errorf("parsing date %q: %w", rec[export.ColDate], err)
	}

	amount, err := decimal.NewFromString(rec[export.ColAmount])
	if err != nil {
		return store.TransactionParams{}, fmt.Errorf("parsing amount %q: %w", rec[export.ColAmount], err)
	}

	typ := model.TransactionType(strings.ToLower(rec[export.ColType]))
	if !typ.Valid() {
		return store.TransactionParams{}, fmt.Errorf("unknown type %q", rec[export.ColType])
	}

	from, err := lk.account(rec[export.ColAccount])
	if err != nil {
		return store.TransactionParams{}, err
	}
	to, err := lk.account(rec[export.ColToAccount])
	if err != nil {
		return store.TransactionParams{}, err
	}

	// Unknown category names import uncategorized rather than failing the file.
	var categoryID string
	if typ != model.TransactionTransfer {
		categoryID = lk.categories[model.CategoryType(typ)][strings.ToLower(strings.TrimSpace(rec[export.ColCategory]))]
	}

	var tags []string
	if rec[export.ColTags] != "" {
		tags = strings.Split(rec[export.ColTags], export.TagSeparator)
	}

	return store.TransactionParams{
		Date:        d,
		Description: rec[export.ColDesc],
		Notes:       rec[export.ColNotes],
		Amount:      amount.Abs(),
		Type:        typ,
		CategoryID:  categoryID,
		AccountID:   from,
		ToAccountID: to,
		Tags:        tags,
	}, nil
}

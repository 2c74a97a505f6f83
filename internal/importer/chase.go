package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/store"
)

// ChaseParser parses Chase bank checking CSV exports.
// Negative amounts become expenses and positive amounts income.
type ChaseParser struct{}

const (
	chaseDateFormat = "01/02/2006"
	chaseNumFields  = 7
	chaseColDate    = 1
	chaseColDesc    = 2
	chaseColAmount  = 3
	chaseColType    = 4
	chaseTag        = "chase"
)

// Format returns the parser name.
func (p *ChaseParser) Format() string { return "chase" }

// Parse reads a Chase CSV and returns drafts posted to opts.AccountID.
func (p *ChaseParser) Parse(r io.Reader, opts Target) ([]store.TransactionParams, error) {
	if opts.AccountID == "" {
		return nil, fmt.Errorf("chase import needs a target account")
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = chaseNumFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading chase CSV: %w", err)
	}

	if len(records) <= 1 {
		return nil, nil
	}

	var txns []store.TransactionParams
	for i, rec := range records[1:] {
		txn, err := parseChaseRow(rec, opts.AccountID)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		txns = append(txns, txn)
	}
	return txns, nil
}

func parseChaseRow(rec []string, accountID string) (store.TransactionParams, error) {
	posted, err := time.Parse(chaseDateFormat, rec[chaseColDate])
	if err != nil {
		return store.TransactionParams{}, fmt.Errorf("parsing date %q: %w", rec[chaseColDate], err)
	}

	amount, err := decimal.NewFromString(rec[chaseColAmount])
	if err != nil {
		return store.TransactionParams{}, fmt.Errorf("parsing amount %q: %w", rec[chaseColAmount], err)
	}

	typ := model.TransactionIncome
	if amount.IsNegative() {
		typ = model.TransactionExpense
	}

	desc := strings.TrimSpace(rec[chaseColDesc])
	d := date.Of(posted)
	return store.TransactionParams{
		Date:        d,
		Description: desc,
		Notes:       makeChaseRef(d, desc) + " " + rec[chaseColType],
		Amount:      amount.Abs(),
		Type:        typ,
		AccountID:   accountID,
		Tags:        []string{chaseTag},
	}, nil
}

// makeChaseRef creates a reference like chase_20250103_GITHUBPROS.
func makeChaseRef(d date.Date, desc string) string {
	prefix := strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, desc)
	if len(prefix) > 10 {
		prefix = prefix[:10]
	}
	return fmt.Sprintf("chase_%s_%s", d.Time().Format("20060102"), prefix)
}

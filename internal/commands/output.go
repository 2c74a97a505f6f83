package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/shopspring/decimal"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/id"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/money"
)

// table is a tab-aligned listing.
type table struct {
	tw *tabwriter.Writer
}

func newTable(w io.Writer, header ...string) *table {
	t := &table{tw: tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)}
	t.row(header...)
	return t
}

func (t *table) row(cols ...string) {
	fmt.Fprintln(t.tw, strings.Join(cols, "\t"))
}

func (t *table) flush() error { return t.tw.Flush() }

// markdown prints md rendered for the terminal, or as-is when raw is set.
func markdown(w io.Writer, md string, raw bool) error {
	if raw {
		_, err := fmt.Fprintln(w, md)
		return err
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return fmt.Errorf("creating renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return fmt.Errorf("rendering markdown: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

func amount(d decimal.Decimal, currency string) string {
	return money.Format(d, currency)
}

// optionalAmount parses s, treating an empty string as zero.
func optionalAmount(s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	return money.Parse(s)
}

// dateOr parses s, or returns def when s is empty.
func dateOr(s string, def date.Date) (date.Date, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return date.Parse(strings.TrimSpace(s))
}

// resolve maps a full or short ID onto a record in list.
func resolve[T model.Record](kind, ref string, list []T) (string, error) {
	ids := make([]string, len(list))
	for i, r := range list {
		ids[i] = r.GetID()
	}
	full, err := id.Resolve(ref, ids)
	if err != nil {
		return "", fmt.Errorf("%s: %w", kind, err)
	}
	return full, nil
}

// resolveOptional is resolve for flags that may be left empty.
func resolveOptional[T model.Record](kind, ref string, list []T) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", nil
	}
	return resolve(kind, ref, list)
}

// byName finds a record by case-insensitive name, falling back to an ID reference.
func byName[T model.Record](kind, ref string, list []T, name func(T) string) (string, error) {
	for _, r := range list {
		if strings.EqualFold(name(r), strings.TrimSpace(ref)) {
			return r.GetID(), nil
		}
	}
	return resolve(kind, ref, list)
}

func short(recID string) string { return id.Short(recID) }

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

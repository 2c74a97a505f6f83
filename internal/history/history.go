// Package history maintains the daily net-worth series.
package history

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/model"
)

// MaxEntries is how many days of history are kept.
const MaxEntries = 90

// Record upserts the value for day and returns the series sorted oldest first,
// trimmed to the newest MaxEntries days. Several recordings on one day keep the last value.
func Record(entries []model.NetWorthEntry, day date.Date, value decimal.Decimal) []model.NetWorthEntry {
	out := slices.Clone(entries)
	if i := slices.IndexFunc(out, func(e model.NetWorthEntry) bool { return e.Date == day }); i >= 0 {
		out[i].Value = value
	} else {
		out = append(out, model.NetWorthEntry{Date: day, Value: value})
	}
	return Normalize(out)
}

// Normalize sorts entries by date, collapses duplicate days (the later element wins)
// and keeps the newest MaxEntries.
func Normalize(entries []model.NetWorthEntry) []model.NetWorthEntry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b model.NetWorthEntry) int { return a.Date.Compare(b.Date) })
	dedup := out[:0]
	for _, e := range out {
		if n := len(dedup); n > 0 && dedup[n-1].Date == e.Date {
			dedup[n-1] = e
			continue
		}
		dedup = append(dedup, e)
	}
	if len(dedup) > MaxEntries {
		dedup = dedup[len(dedup)-MaxEntries:]
	}
	return slices.Clip(dedup)
}

// Change returns the difference between the newest value and the value on or before since.
// ok is false when the series has no point old enough.
func Change(entries []model.NetWorthEntry, since date.Date) (delta decimal.Decimal, ok bool) {
	if len(entries) == 0 {
		return decimal.Zero, false
	}
	latest := entries[len(entries)-1].Value
	for i := len(entries) - 1; i >= 0; i-- {
		if !entries[i].Date.After(since) {
			return latest.Sub(entries[i].Value), true
		}
	}
	return decimal.Zero, false
}

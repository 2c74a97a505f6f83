package history

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/model"
)

func TestRecord_SameDayOverwrites(t *testing.T) {
	today := date.New(2025, 3, 14)
	var h []model.NetWorthEntry
	h = Record(h, today, decimal.NewFromInt(100))
	h = Record(h, today, decimal.NewFromInt(250))

	require.Len(t, h, 1)
	assert.Equal(t, today, h[0].Date)
	assert.True(t, h[0].Value.Equal(decimal.NewFromInt(250)))
}

func TestRecord_SortedAscending(t *testing.T) {
	var h []model.NetWorthEntry
	h = Record(h, date.New(2025, 3, 14), decimal.NewFromInt(3))
	h = Record(h, date.New(2025, 3, 12), decimal.NewFromInt(1))
	h = Record(h, date.New(2025, 3, 13), decimal.NewFromInt(2))

	require.Len(t, h, 3)
	for i := 1; i < len(h); i++ {
		assert.True(t, h[i-1].Date.Before(h[i].Date))
	}
}

func TestRecord_CappedAt90(t *testing.T) {
	start := date.New(2025, 1, 1)
	var h []model.NetWorthEntry
	for i := 0; i < 200; i++ {
		h = Record(h, start.Add(i), decimal.NewFromInt(int64(i)))
		assert.LessOrEqual(t, len(h), MaxEntries)
	}
	require.Len(t, h, MaxEntries)
	assert.Equal(t, start.Add(199), h[len(h)-1].Date)
	assert.Equal(t, start.Add(110), h[0].Date)
}

func TestRecord_DoesNotMutateInput(t *testing.T) {
	in := []model.NetWorthEntry{{Date: date.New(2025, 1, 1), Value: decimal.NewFromInt(1)}}
	_ = Record(in, date.New(2025, 1, 1), decimal.NewFromInt(9))
	assert.True(t, in[0].Value.Equal(decimal.NewFromInt(1)))
}

func TestNormalize_CollapsesDuplicates(t *testing.T) {
	d := date.New(2025, 5, 1)
	h := Normalize([]model.NetWorthEntry{
		{Date: d, Value: decimal.NewFromInt(1)},
		{Date: d.Add(-1), Value: decimal.NewFromInt(5)},
		{Date: d, Value: decimal.NewFromInt(2)},
	})
	require.Len(t, h, 2)
	assert.True(t, h[1].Value.Equal(decimal.NewFromInt(2)))
}

func TestChange(t *testing.T) {
	d := date.New(2025, time.May, 10)
	h := []model.NetWorthEntry{
		{Date: d.Add(-30), Value: decimal.NewFromInt(1000)},
		{Date: d.Add(-7), Value: decimal.NewFromInt(1200)},
		{Date: d, Value: decimal.NewFromInt(1500)},
	}

	delta, ok := Change(h, d.Add(-7))
	require.True(t, ok)
	assert.True(t, delta.Equal(decimal.NewFromInt(300)))

	delta, ok = Change(h, d.Add(-10))
	require.True(t, ok)
	assert.True(t, delta.Equal(decimal.NewFromInt(500)))

	_, ok = Change(h, d.Add(-60))
	assert.False(t, ok)
}

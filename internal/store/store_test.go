package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/model"
	"github.com/finansage/finansage/internal/storage"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(y, m, d int) date.Date {
	return date.New(y, time.Month(m), d)
}

var clock = func() time.Time { return time.Date(2025, 3, 15, 9, 30, 0, 0, time.UTC) }

func open(t *testing.T, kv storage.KV) *Store {
	t.Helper()
	s, err := Open(context.Background(), kv, Options{Logger: zerolog.Nop(), Now: clock})
	require.NoError(t, err)
	return s
}

// seed opens an empty store with checking A (1000) and savings B (500).
func seed(t *testing.T) (*Store, *storage.Memory, model.Account, model.Account) {
	t.Helper()
	mem := storage.NewMemory()
	s := open(t, mem)
	ctx := context.Background()
	a, err := s.AddAccount(ctx, model.Account{Name: "Checking", Type: model.AccountTypeChecking, Balance: dec("1000")})
	require.NoError(t, err)
	b, err := s.AddAccount(ctx, model.Account{Name: "Savings", Type: model.AccountTypeSavings, Balance: dec("500")})
	require.NoError(t, err)
	return s, mem, a, b
}

func balance(t *testing.T, s *Store, accountID string) decimal.Decimal {
	t.Helper()
	a, ok := s.Snapshot().Account(accountID)
	require.True(t, ok, "account %s", accountID)
	return a.Balance
}

func expenseOn(accountID, amount string) TransactionParams {
	return TransactionParams{
		Date:        day(2025, 3, 10),
		Description: "Groceries",
		Amount:      dec(amount),
		Type:        model.TransactionExpense,
		CategoryID:  "cat-groceries",
		AccountID:   accountID,
	}
}

func TestOpen_EmptyStorage(t *testing.T) {
	mem := storage.NewMemory()
	s := open(t, mem)

	st := s.Snapshot()
	assert.Equal(t, "USD", st.Settings.PrimaryCurrency)
	assert.Equal(t, DefaultCategories(), st.Categories)
	assert.Equal(t, DefaultAssetCategories(), st.AssetCategories)
	assert.Equal(t, model.DefaultBottomNav, st.Settings.BottomNav)
	assert.True(t, st.Settings.CardVisible(model.CardInsights))
	assert.Empty(t, st.Accounts)

	require.Len(t, st.NetWorthHistory, 1, "opening records today's net worth")
	assert.Equal(t, day(2025, 3, 15), st.NetWorthHistory[0].Date)
	assert.True(t, st.NetWorthHistory[0].Value.IsZero())
	assert.Contains(t, mem.Dump(), storage.KeyNetWorthHistory)
}

func TestAddTransaction_UpdatesBalance(t *testing.T) {
	s, mem, a, _ := seed(t)
	writes := mem.Writes

	txn, err := s.AddTransaction(context.Background(), expenseOn(a.ID, "100"))
	require.NoError(t, err)
	assert.NotEmpty(t, txn.ID)
	assert.Equal(t, []string{}, txn.Tags)

	assert.True(t, dec("900").Equal(balance(t, s, a.ID)))
	assert.Equal(t, writes+1, mem.Writes, "one transition is one write")

	// The persisted slots reload into the same state.
	reopened := open(t, mem)
	assert.True(t, dec("900").Equal(balance(t, reopened, a.ID)))
	got, ok := reopened.Snapshot().Transaction(txn.ID)
	require.True(t, ok)
	assert.Equal(t, "Groceries", got.Description)
}

func TestUpdateTransaction_ExpenseToTransfer(t *testing.T) {
	s, _, a, b := seed(t)
	ctx := context.Background()

	txn, err := s.AddTransaction(ctx, expenseOn(a.ID, "100"))
	require.NoError(t, err)

	_, err = s.UpdateTransaction(ctx, txn.ID, TransactionParams{
		Date:        day(2025, 3, 10),
		Description: "Move to savings",
		Amount:      dec("60"),
		Type:        model.TransactionTransfer,
		CategoryID:  "cat-groceries",
		AccountID:   a.ID,
		ToAccountID: b.ID,
	})
	require.NoError(t, err)

	assert.True(t, dec("940").Equal(balance(t, s, a.ID)))
	assert.True(t, dec("560").Equal(balance(t, s, b.ID)))

	got, _ := s.Snapshot().Transaction(txn.ID)
	assert.Empty(t, got.CategoryID, "transfers carry no category")
}

func TestDeleteTransaction_RevertsBalance(t *testing.T) {
	s, _, a, b := seed(t)
	ctx := context.Background()

	txn, err := s.AddTransaction(ctx, TransactionParams{
		Date: day(2025, 3, 1), Description: "Top up", Amount: dec("250"),
		Type: model.TransactionTransfer, AccountID: a.ID, ToAccountID: b.ID,
	})
	require.NoError(t, err)
	assert.True(t, dec("750").Equal(balance(t, s, a.ID)))

	require.NoError(t, s.DeleteTransaction(ctx, txn.ID))
	assert.True(t, dec("1000").Equal(balance(t, s, a.ID)))
	assert.True(t, dec("500").Equal(balance(t, s, b.ID)))
	assert.Empty(t, s.Snapshot().Transactions)

	err = s.DeleteTransaction(ctx, txn.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTransactions_NewestFirst(t *testing.T) {
	s, _, a, _ := seed(t)
	ctx := context.Background()

	for _, d := range []date.Date{day(2025, 3, 1), day(2025, 3, 9), day(2025, 3, 5)} {
		p := expenseOn(a.ID, "1")
		p.Date = d
		_, err := s.AddTransaction(ctx, p)
		require.NoError(t, err)
	}

	txns := s.Snapshot().Transactions
	require.Len(t, txns, 3)
	assert.Equal(t, day(2025, 3, 9), txns[0].Date)
	assert.Equal(t, day(2025, 3, 5), txns[1].Date)
	assert.Equal(t, day(2025, 3, 1), txns[2].Date)
}

func TestAddTransaction_Validation(t *testing.T) {
	s, mem, a, b := seed(t)
	writes := mem.Writes

	tests := []struct {
		name  string
		p     TransactionParams
		field string
	}{
		{name: "zero amount", p: expenseOn(a.ID, "0"), field: "amount"},
		{name: "unknown account", p: expenseOn("nope", "5"), field: "accountId"},
		{
			name:  "transfer to itself",
			p:     TransactionParams{Date: day(2025, 3, 1), Description: "x", Amount: dec("5"), Type: model.TransactionTransfer, AccountID: a.ID, ToAccountID: a.ID},
			field: "toAccountId",
		},
		{
			name:  "transfer without destination",
			p:     TransactionParams{Date: day(2025, 3, 1), Description: "x", Amount: dec("5"), Type: model.TransactionTransfer, AccountID: b.ID},
			field: "toAccountId",
		},
		{
			name:  "income under expense category",
			p:     TransactionParams{Date: day(2025, 3, 1), Description: "x", Amount: dec("5"), Type: model.TransactionIncome, CategoryID: "cat-groceries", AccountID: a.ID},
			field: "categoryId",
		},
		{
			name:  "missing description",
			p:     TransactionParams{Date: day(2025, 3, 1), Amount: dec("5"), Type: model.TransactionIncome, AccountID: a.ID},
			field: "description",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.AddTransaction(context.Background(), tt.p)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			fields := make([]string, len(verrs))
			for i, ve := range verrs {
				fields[i] = ve.Field
			}
			assert.Contains(t, fields, tt.field)
		})
	}

	assert.Equal(t, writes, mem.Writes, "rejected input never reaches storage")
	assert.True(t, dec("1000").Equal(balance(t, s, a.ID)))
}

func TestDeleteAccount_RefusedWhileReferenced(t *testing.T) {
	s, _, a, b := seed(t)
	ctx := context.Background()

	txn, err := s.AddTransaction(ctx, TransactionParams{
		Date: day(2025, 3, 1), Description: "Top up", Amount: dec("10"),
		Type: model.TransactionTransfer, AccountID: a.ID, ToAccountID: b.ID,
	})
	require.NoError(t, err)
	before := s.Snapshot().Accounts

	err = s.DeleteAccount(ctx, b.ID)
	require.ErrorIs(t, err, ErrReferenced)
	var refErr *ReferenceError
	require.ErrorAs(t, err, &refErr)
	assert.Equal(t, "transactions", refErr.By)
	assert.Equal(t, 1, refErr.Count)
	assert.Equal(t, before, s.Snapshot().Accounts)

	require.NoError(t, s.DeleteTransaction(ctx, txn.ID))
	require.NoError(t, s.DeleteAccount(ctx, b.ID))
	_, ok := s.Snapshot().Account(b.ID)
	assert.False(t, ok)
}

func TestDeleteAccount_RefusedForSubscription(t *testing.T) {
	s, _, a, _ := seed(t)
	ctx := context.Background()

	_, err := s.AddSubscription(ctx, model.Subscription{
		Name: "Music", Amount: dec("9.99"), Frequency: model.FrequencyMonthly, AccountID: a.ID,
	})
	require.NoError(t, err)

	err = s.DeleteAccount(ctx, a.ID)
	assert.ErrorIs(t, err, ErrReferenced)
}

func TestUpdateAccount_KeepsBalance(t *testing.T) {
	s, _, a, _ := seed(t)

	a.Name = "Everyday"
	a.Balance = dec("99999")
	got, err := s.UpdateAccount(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, "Everyday", got.Name)
	assert.True(t, dec("1000").Equal(got.Balance), "balance is owned by the ledger")

	_, err = s.UpdateAccount(context.Background(), model.Account{ID: "missing", Name: "x", Type: model.AccountTypeCash})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddAccount_Defaults(t *testing.T) {
	s := open(t, storage.NewMemory())

	a, err := s.AddAccount(context.Background(), model.Account{Name: " Wallet ", Type: model.AccountTypeCash})
	require.NoError(t, err)
	assert.Equal(t, "Wallet", a.Name)
	assert.Equal(t, "USD", a.Currency)

	_, err = s.AddAccount(context.Background(), model.Account{Name: "Bad", Type: "piggy_bank"})
	var verrs ValidationErrors
	assert.ErrorAs(t, err, &verrs)
}

func TestImportTransactions_AllOrNothing(t *testing.T) {
	s, mem, a, _ := seed(t)
	ctx := context.Background()
	writes := mem.Writes

	_, err := s.ImportTransactions(ctx, []TransactionParams{
		expenseOn(a.ID, "10"),
		expenseOn("ghost", "20"),
	})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "row 2: accountId", verrs[0].Field)
	assert.Equal(t, writes, mem.Writes)
	assert.Empty(t, s.Snapshot().Transactions)

	got, err := s.ImportTransactions(ctx, []TransactionParams{
		expenseOn(a.ID, "10"),
		{Date: day(2025, 3, 12), Description: "Paycheck", Amount: dec("2000"), Type: model.TransactionIncome, CategoryID: "cat-salary", AccountID: a.ID},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, dec("2990").Equal(balance(t, s, a.ID)))
	assert.Equal(t, "Paycheck", s.Snapshot().Transactions[0].Description)
}

func TestContributeToGoal(t *testing.T) {
	s, _, a, _ := seed(t)
	ctx := context.Background()

	g, err := s.AddGoal(ctx, model.Goal{Name: "Vacation", TargetAmount: dec("2000")})
	require.NoError(t, err)

	goal, txn, err := s.ContributeToGoal(ctx, Contribution{GoalID: g.ID, AccountID: a.ID, Amount: dec("150"), CategoryID: "cat-savings"})
	require.NoError(t, err)
	assert.True(t, dec("150").Equal(goal.CurrentAmount))
	assert.Equal(t, "Contribution to Vacation", txn.Description)
	assert.Equal(t, model.TransactionExpense, txn.Type)
	assert.Equal(t, day(2025, 3, 15), txn.Date, "defaults to today")
	assert.True(t, dec("850").Equal(balance(t, s, a.ID)))

	// A bad account leaves the goal untouched.
	_, _, err = s.ContributeToGoal(ctx, Contribution{GoalID: g.ID, AccountID: "ghost", Amount: dec("10")})
	require.Error(t, err)
	got, _ := find(s.Snapshot().Goals, g.ID)
	assert.True(t, dec("150").Equal(got.CurrentAmount))

	_, _, err = s.ContributeToGoal(ctx, Contribution{GoalID: "nope", AccountID: a.ID, Amount: dec("10")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategoriesAndBudgets(t *testing.T) {
	s := open(t, storage.NewMemory())
	ctx := context.Background()

	c, err := s.AddCategory(ctx, model.Category{Name: "Pets", Type: model.CategoryExpense})
	require.NoError(t, err)

	_, err = s.AddCategory(ctx, model.Category{Name: "pets", Type: model.CategoryExpense})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs, "names are unique per type")

	b, err := s.AddBudget(ctx, model.Budget{CategoryID: c.ID, Amount: dec("80")})
	require.NoError(t, err)

	_, err = s.AddBudget(ctx, model.Budget{CategoryID: c.ID, Amount: dec("90")})
	require.ErrorAs(t, err, &verrs, "one budget per category")

	_, err = s.AddBudget(ctx, model.Budget{CategoryID: "cat-salary", Amount: dec("90")})
	require.ErrorAs(t, err, &verrs, "income categories take no budget")

	b.Amount = dec("120")
	_, err = s.UpdateBudget(ctx, b)
	require.NoError(t, err)

	err = s.DeleteCategory(ctx, c.ID)
	assert.ErrorIs(t, err, ErrReferenced)

	require.NoError(t, s.DeleteBudget(ctx, b.ID))
	require.NoError(t, s.DeleteCategory(ctx, c.ID))
	_, ok := s.Snapshot().Category(c.ID)
	assert.False(t, ok)
}

func TestUpdateCategory_KeepsType(t *testing.T) {
	s := open(t, storage.NewMemory())

	got, err := s.UpdateCategory(context.Background(), model.Category{ID: "cat-dining", Name: "Restaurants", Type: model.CategoryIncome})
	require.NoError(t, err)
	assert.Equal(t, model.CategoryExpense, got.Type)
	assert.Equal(t, "Restaurants", got.Name)
}

func TestHoldings(t *testing.T) {
	s, _, a, _ := seed(t)
	ctx := context.Background()

	inv, err := s.AddInvestment(ctx, model.Investment{ID: "ignored", Name: "Index fund", Type: model.InvestmentETF, Quantity: dec("10"), PurchasePrice: dec("100"), CurrentPrice: dec("110"), AccountID: a.ID})
	require.NoError(t, err)
	assert.NotEqual(t, "ignored", inv.ID)

	inv.CurrentPrice = dec("120")
	_, err = s.UpdateInvestment(ctx, inv)
	require.NoError(t, err)
	got, _ := find(s.Snapshot().Investments, inv.ID)
	assert.True(t, dec("200").Equal(got.Gain()))

	_, err = s.AddSavings(ctx, model.SavingsInstrument{Name: "CD", Type: model.SavingsFixedDeposit, Principal: dec("1000"), StartDate: day(2025, 1, 1), MaturityDate: day(2024, 1, 1)})
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)

	cat, err := s.AddAssetCategory(ctx, model.AssetCategory{Name: "Instruments"})
	require.NoError(t, err)
	asset, err := s.AddAsset(ctx, model.Asset{Name: "Piano", CategoryID: cat.ID, CurrentValue: dec("3000")})
	require.NoError(t, err)

	err = s.DeleteAssetCategory(ctx, cat.ID)
	assert.ErrorIs(t, err, ErrReferenced)
	require.NoError(t, s.DeleteAsset(ctx, asset.ID))
	require.NoError(t, s.DeleteAssetCategory(ctx, cat.ID))

	_, err = s.AddSubscription(ctx, model.Subscription{Name: "Gym", Amount: dec("30"), Frequency: "daily"})
	require.ErrorAs(t, err, &verrs)

	require.NoError(t, s.DeleteInvestment(ctx, inv.ID))
	assert.ErrorIs(t, s.DeleteInvestment(ctx, inv.ID), ErrNotFound)
}

func TestSettings(t *testing.T) {
	mem := storage.NewMemory()
	s := open(t, mem)
	ctx := context.Background()

	require.NoError(t, s.SetPrimaryCurrency(ctx, "eur"))
	require.Error(t, s.SetPrimaryCurrency(ctx, "ZZZ"))
	require.NoError(t, s.SetDashboardCard(ctx, model.CardInsights, false))
	require.Error(t, s.SetDashboardCard(ctx, "weather", true))
	require.NoError(t, s.SetBottomNav(ctx, []string{"dashboard", "goals"}))
	require.Error(t, s.SetBottomNav(ctx, []string{"dashboard", "dashboard"}))
	require.Error(t, s.SetBottomNav(ctx, nil))

	reopened := open(t, mem)
	st := reopened.Snapshot().Settings
	assert.Equal(t, "EUR", st.PrimaryCurrency)
	assert.False(t, st.CardVisible(model.CardInsights))
	assert.Equal(t, []string{"dashboard", "goals"}, st.BottomNav)
}

func TestNetWorthHistory_OneEntryPerDay(t *testing.T) {
	s, _, a, _ := seed(t)

	_, err := s.AddTransaction(context.Background(), expenseOn(a.ID, "100"))
	require.NoError(t, err)

	h := s.Snapshot().NetWorthHistory
	require.Len(t, h, 1)
	assert.True(t, dec("1400").Equal(h[0].Value), "latest recording of the day wins")
}

func TestOpen_RepairsStoredData(t *testing.T) {
	mem := storage.NewMemory()
	mem.Put(storage.KeyAccounts, []byte(`[
		{"id":"a1","name":"Main","type":"mystery","balance":"10"},
		{"name":"no id"},
		{"id":"a2","name":"Card","type":"credit_card","currency":"EUR","balance":"bad-number"}
	]`))
	mem.Put(storage.KeyTransactions, []byte(`[
		{"id":"t1","date":"2025-01-02","description":"old","amount":"-5","type":"expense","accountId":"a1","toAccountId":"a2"},
		{"id":"t2","date":"2025-02-02","description":"new","amount":"7","type":"transfer","accountId":"a1","toAccountId":"a2","categoryId":"cat-dining"},
		{"id":"t3","date":"2025-02-03","amount":"1","type":"refund","accountId":"a1"}
	]`))
	mem.Put(storage.KeyCategories, []byte(`{not json`))
	mem.Put(storage.KeyBottomNav, []byte(`["dashboard","casino"]`))
	mem.Put(storage.KeyPrimaryCurrency, []byte(`"gbp"`))

	st := open(t, mem).Snapshot()

	require.Len(t, st.Accounts, 1)
	assert.Equal(t, model.AccountTypeChecking, st.Accounts[0].Type)
	assert.Equal(t, "GBP", st.Accounts[0].Currency)

	require.Len(t, st.Transactions, 2)
	assert.Equal(t, "t2", st.Transactions[0].ID)
	assert.Empty(t, st.Transactions[0].CategoryID)
	assert.True(t, dec("5").Equal(st.Transactions[1].Amount))
	assert.Empty(t, st.Transactions[1].ToAccountID)
	assert.NotNil(t, st.Transactions[1].Tags)

	assert.Equal(t, DefaultCategories(), st.Categories, "corrupt slot falls back to the default")
	assert.Equal(t, []string{"dashboard"}, st.Settings.BottomNav)
	assert.Equal(t, "GBP", st.Settings.PrimaryCurrency)
}

func TestOpen_KeepsEmptyCategoryList(t *testing.T) {
	mem := storage.NewMemory()
	mem.Put(storage.KeyCategories, []byte(`[]`))

	assert.Empty(t, open(t, mem).Snapshot().Categories)
}

func TestFlush_WritesEverySlot(t *testing.T) {
	mem := storage.NewMemory()
	s := open(t, mem)
	require.NoError(t, s.Flush(context.Background()))

	dump := mem.Dump()
	for _, k := range storage.Keys {
		assert.Contains(t, dump, k)
	}
	assert.JSONEq(t, `"USD"`, string(dump[storage.KeyPrimaryCurrency]))
	assert.JSONEq(t, `[]`, string(dump[storage.KeyAccounts]))

	var cats []model.Category
	require.NoError(t, json.Unmarshal(dump[storage.KeyCategories], &cats))
	assert.Equal(t, DefaultCategories(), cats)
}

type failingKV struct {
	*storage.Memory
	fail bool
}

func (f *failingKV) SetMany(ctx context.Context, slots map[string][]byte) error {
	if f.fail {
		return errors.New("disk full")
	}
	return f.Memory.SetMany(ctx, slots)
}

func TestMutate_PersistFailureKeepsState(t *testing.T) {
	kv := &failingKV{Memory: storage.NewMemory()}
	s := open(t, kv)
	ctx := context.Background()

	a, err := s.AddAccount(ctx, model.Account{Name: "Checking", Type: model.AccountTypeChecking, Balance: dec("100")})
	require.NoError(t, err)

	kv.fail = true
	_, err = s.AddTransaction(ctx, expenseOn(a.ID, "40"))
	require.ErrorContains(t, err, "disk full")

	st := s.Snapshot()
	assert.Empty(t, st.Transactions)
	assert.True(t, dec("100").Equal(st.Accounts[0].Balance))
}

func TestSnapshot_IsIsolated(t *testing.T) {
	s, _, a, _ := seed(t)
	p := expenseOn(a.ID, "5")
	p.Tags = []string{"weekly"}
	_, err := s.AddTransaction(context.Background(), p)
	require.NoError(t, err)

	snap := s.Snapshot()
	snap.Accounts[0].Name = "changed"
	snap.Transactions[0].Tags[0] = "changed"
	snap.Settings.DashboardCards[model.CardGoals] = false

	again := s.Snapshot()
	assert.Equal(t, "Checking", again.Accounts[0].Name)
	assert.Equal(t, "weekly", again.Transactions[0].Tags[0])
	assert.True(t, again.Settings.CardVisible(model.CardGoals))
}

func TestStateSlot_EncodesEmptyAsArray(t *testing.T) {
	var st State
	data, err := st.slot(storage.KeyBudgets)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	_, err = st.slot("finansage_unknown")
	assert.Error(t, err)

	data, err = State{Accounts: []model.Account{{ID: "x", Balance: dec("1.5")}}}.slot(storage.KeyAccounts)
	require.NoError(t, err)
	var back []map[string]any
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, "x", back[0]["id"])
}

package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finansage/finansage/internal/config"
	"github.com/finansage/finansage/internal/insight"
	"github.com/finansage/finansage/internal/storage"
	"github.com/finansage/finansage/internal/store"
)

var fixedNow = time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)

// fakeGen answers every request with answer and remembers the prompts.
type fakeGen struct {
	mu      sync.Mutex
	prompts []string
	answer  func(insight.Request) (string, error)
}

func (g *fakeGen) Generate(_ context.Context, req insight.Request) (string, error) {
	g.mu.Lock()
	g.prompts = append(g.prompts, req.Prompt)
	g.mu.Unlock()
	return g.answer(req)
}

func replyWith(s string) *fakeGen {
	return &fakeGen{answer: func(insight.Request) (string, error) { return s, nil }}
}

type fakeFetcher struct{ page insight.Page }

func (f fakeFetcher) Fetch(_ context.Context, url string) (insight.Page, error) {
	p := f.page
	p.URL = url
	return p, nil
}

// env is one data directory shared by successive invocations.
type env struct {
	t    *testing.T
	dir  string
	deps deps
}

func newEnv(t *testing.T) *env {
	return &env{t: t, dir: t.TempDir(), deps: deps{now: func() time.Time { return fixedNow }}}
}

// run executes one CLI invocation against the env's database, like a separate process would.
func (e *env) run(args ...string) (string, error) {
	e.t.Helper()
	root, a := newRoot(e.deps)
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append([]string{
		"--config", filepath.Join(e.dir, config.FileName),
		"--db", filepath.Join(e.dir, "test.db"),
		"--log-level", "error",
	}, args...))
	err := root.ExecuteContext(context.Background())
	require.NoError(e.t, a.close())
	return out.String(), err
}

func (e *env) mustRun(args ...string) string {
	e.t.Helper()
	out, err := e.run(args...)
	require.NoError(e.t, err, "finansage %s", strings.Join(args, " "))
	return out
}

// state reopens the env's database and returns what was persisted.
func (e *env) state() store.State {
	e.t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(e.dir, "test.db"))
	require.NoError(e.t, err)
	s, err := store.Open(context.Background(), db, store.Options{Logger: zerolog.Nop(), Now: e.deps.now})
	require.NoError(e.t, err)
	defer s.Close()
	return s.Snapshot()
}

// idFrom returns the short ID printed as the given word of an "Added ..." line.
func idFrom(t *testing.T, out string, word int) string {
	t.Helper()
	fields := strings.Fields(out)
	require.Greater(t, len(fields), word, out)
	return fields[word]
}

func TestInit_CreatesStructure(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "books")
	e := newEnv(t)

	root, a := newRoot(e.deps)
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"--config", filepath.Join(dir, config.FileName), "init", dir, "--currency", "eur"})
	require.NoError(t, root.ExecuteContext(context.Background()))
	require.NoError(t, a.close())

	assert.Contains(t, out.String(), "Initialized FinanSage at "+dir)
	assert.Contains(t, out.String(), "currency EUR")
	assert.Contains(t, out.String(), "15 categories")

	for _, f := range []string{config.FileName, ".gitignore", "finansage.db"} {
		_, err := os.Stat(filepath.Join(dir, f))
		assert.NoError(t, err, "%s should exist", f)
	}
	info, err := os.Stat(filepath.Join(dir, "inbox"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	require.NoError(t, err)
	assert.Equal(t, "EUR", cfg.Currency)

	gitignore, err := os.ReadFile(filepath.Join(dir, ".gitignore"))
	require.NoError(t, err)
	assert.Contains(t, string(gitignore), ".env")
}

func TestInit_RefusesExistingConfig(t *testing.T) {
	e := newEnv(t)
	e.mustRun("init", e.dir)

	_, err := e.run("init", e.dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestAccountAndTransactionFlow(t *testing.T) {
	e := newEnv(t)
	e.mustRun("account", "add", "--name", "Checking", "--balance", "1000")
	e.mustRun("account", "add", "--name", "Savings", "--type", "savings")

	out := e.mustRun("tx", "add", "--desc", "Weekly shop", "--amount", "50", "--category", "groceries", "--account", "Checking")
	assert.Contains(t, out, "Added expense")
	txnID := idFrom(t, out, 2)

	out = e.mustRun("account", "list")
	assert.Contains(t, out, "$950.00")

	out = e.mustRun("tx", "list")
	assert.Contains(t, out, "Weekly shop")
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, out, "-$50.00")
	assert.Contains(t, out, "2026-03-15")

	e.mustRun("tx", "edit", txnID, "--amount", "80")
	assert.Contains(t, e.mustRun("account", "list"), "$920.00")

	e.mustRun("tx", "add", "--desc", "Move", "--amount", "200", "--type", "transfer", "--account", "Checking", "--to", "Savings")
	out = e.mustRun("account", "list")
	assert.Contains(t, out, "$720.00")
	assert.Contains(t, out, "$200.00")

	out = e.mustRun("tx", "list", "--type", "transfer")
	assert.Contains(t, out, "Checking -> Savings")
	assert.NotContains(t, out, "Weekly shop")

	e.mustRun("tx", "delete", txnID)
	assert.Contains(t, e.mustRun("account", "list"), "$800.00")
	assert.NotContains(t, e.mustRun("tx", "list"), "Weekly shop")
}

func TestTransactionAdd_ValidationError(t *testing.T) {
	e := newEnv(t)
	e.mustRun("account", "add", "--name", "Checking")

	_, err := e.run("tx", "add", "--desc", "Paycheck", "--amount", "10", "--type", "income", "--category", "Groceries", "--account", "Checking")
	require.Error(t, err)
	var verrs store.ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "categoryId", verrs[0].Field)
}

func TestAccountDelete_RefusedWhileReferenced(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun("account", "add", "--name", "Checking", "--balance", "100")
	accountID := idFrom(t, out, 2)
	e.mustRun("tx", "add", "--desc", "Coffee", "--amount", "4.50", "--account", "Checking")

	_, err := e.run("account", "delete", accountID)
	require.Error(t, err)
	assert.ErrorIs(t, err, store.ErrReferenced)
	assert.Contains(t, e.mustRun("account", "list"), "Checking")
}

func TestNetWorth(t *testing.T) {
	e := newEnv(t)
	e.mustRun("account", "add", "--name", "Checking", "--balance", "1000")
	e.mustRun("account", "add", "--name", "Visa", "--type", "credit_card", "--balance", "250")

	out := e.mustRun("networth", "--history")
	assert.Contains(t, out, "Net worth:   $750.00")
	assert.Contains(t, out, "Liabilities: $250.00")
	assert.Contains(t, out, "2026-03-15")
}

func TestBudgetSetAndList(t *testing.T) {
	e := newEnv(t)
	e.mustRun("account", "add", "--name", "Checking", "--balance", "1000")
	e.mustRun("budget", "set", "Dining Out", "100")
	e.mustRun("tx", "add", "--desc", "Pizza", "--amount", "120", "--category", "Dining Out", "--account", "Checking")

	out := e.mustRun("budget", "list")
	assert.Contains(t, out, "Dining Out")
	assert.Contains(t, out, "100% over")

	// Setting again updates the existing budget.
	e.mustRun("budget", "set", "Dining Out", "200")
	out = e.mustRun("budget", "list")
	assert.Contains(t, out, "$200.00")
	assert.Equal(t, 1, strings.Count(out, "Dining Out"))
}

func TestGoalContribute(t *testing.T) {
	e := newEnv(t)
	e.mustRun("account", "add", "--name", "Checking", "--balance", "1000")
	e.mustRun("goal", "add", "Vacation", "--target", "1000", "--deadline", "2026-12-31")

	out := e.mustRun("goal", "contribute", "vacation", "250", "--account", "Checking")
	assert.Contains(t, out, "Contributed $250.00 to Vacation ($250.00 of $1,000.00)")

	assert.Contains(t, e.mustRun("goal", "list"), "25%")
	assert.Contains(t, e.mustRun("account", "list"), "$750.00")
	assert.Contains(t, e.mustRun("tx", "list"), "Contribution to Vacation")
}

func TestExport_WritesFilteredCSV(t *testing.T) {
	e := newEnv(t)
	e.mustRun("account", "add", "--name", "Checking", "--balance", "1000")
	e.mustRun("tx", "add", "--desc", "Salary, March", "--amount", "3000", "--type", "income", "--category", "Salary", "--account", "Checking")
	e.mustRun("tx", "add", "--desc", "Rent", "--amount", "1200", "--category", "Rent & Mortgage", "--account", "Checking")

	outDir := filepath.Join(e.dir, "exports")
	out := e.mustRun("export", "--out", outDir, "--type", "expense")
	assert.Contains(t, out, "Exported 1 transactions")

	data, err := os.ReadFile(filepath.Join(outDir, "finansage_transactions_2026-03-15.csv"))
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ID,Date,Description,Notes,Amount,Type,Category,Account,To Account,Tags", strings.TrimSpace(lines[0]))
	assert.Contains(t, lines[1], "Rent & Mortgage")
	assert.Contains(t, lines[1], "1200.00")

	csv := e.mustRun("export", "--stdout", "--search", "salary")
	assert.Contains(t, csv, `"Salary, March"`)
}

func TestImport_RoundTripsExport(t *testing.T) {
	e := newEnv(t)
	e.mustRun("account", "add", "--name", "Checking", "--balance", "100")
	e.mustRun("tx", "add", "--desc", "Lunch", "--amount", "12.50", "--category", "Dining Out", "--account", "Checking", "--tag", "work")

	path := filepath.Join(e.dir, "backup.csv")
	require.NoError(t, os.WriteFile(path, []byte(e.mustRun("export", "--stdout")), 0o644))

	out := e.mustRun("tx", "import", path)
	assert.Contains(t, out, "Imported 1 transactions")
	assert.Equal(t, 2, strings.Count(e.mustRun("tx", "list", "--tag", "work"), "Lunch"))
	assert.Contains(t, e.mustRun("account", "list"), "$75.00")
}

func TestImport_Inbox(t *testing.T) {
	e := newEnv(t)
	e.mustRun("init", e.dir)
	e.mustRun("account", "add", "--name", "Chase")

	inbox := filepath.Join(e.dir, "inbox")
	statement := "Details,Posting Date,Description,Amount,Type,Balance,Check or Slip #\n" +
		"DEBIT,03/02/2026,COFFEE SHOP,-4.25,DEBIT_CARD,995.75,\n" +
		"CREDIT,03/01/2026,PAYROLL,1000.00,ACH_CREDIT,1000.00,\n"
	require.NoError(t, os.WriteFile(filepath.Join(inbox, "march.csv"), []byte(statement), 0o644))

	out := e.mustRun("tx", "import", "--inbox", "--format", "chase", "--account", "Chase")
	assert.Contains(t, out, "Imported 2 transactions from march.csv")
	_, err := os.Stat(filepath.Join(inbox, "processed", "march.csv"))
	assert.NoError(t, err)
	assert.Contains(t, e.mustRun("account", "list"), "$995.75")

	out = e.mustRun("tx", "import", "--inbox", "--format", "chase", "--account", "Chase")
	assert.Contains(t, out, "No CSV files")
}

func TestImport_RequiresFileOrInbox(t *testing.T) {
	e := newEnv(t)
	_, err := e.run("tx", "import")
	require.Error(t, err)

	_, err = e.run("tx", "import", "x.csv", "--format", "quicken")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestInsight_UsesGenerator(t *testing.T) {
	e := newEnv(t)
	gen := replyWith("## Tip\n\nCook at home more often.")
	e.deps.generator = gen
	e.mustRun("account", "add", "--name", "Checking", "--balance", "500")
	e.mustRun("tx", "add", "--desc", "Burger", "--amount", "15", "--category", "Dining Out", "--account", "Checking")

	out := e.mustRun("insight", "--raw")
	assert.Contains(t, out, "Cook at home more often.")
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Burger")
	assert.Contains(t, gen.prompts[0], "Dining Out")
}

func TestInsight_WithoutProvider(t *testing.T) {
	e := newEnv(t)
	out := e.mustRun("insight", "--raw")
	assert.Contains(t, out, insight.InsightsUnavailable)
}

func TestSuggest(t *testing.T) {
	e := newEnv(t)
	e.deps.generator = replyWith(`{"category": "Groceries"}`)
	assert.Equal(t, "Groceries\n", e.mustRun("suggest", "whole", "foods", "market"))

	e.deps.generator = replyWith(`{"category": null}`)
	assert.Equal(t, "No suggestion.\n", e.mustRun("suggest", "mystery"))
}

func TestTransactionAdd_SuggestsCategory(t *testing.T) {
	e := newEnv(t)
	e.deps.generator = replyWith(`{"category": "Transportation"}`)
	e.mustRun("account", "add", "--name", "Checking", "--balance", "100")

	out := e.mustRun("tx", "add", "--desc", "Uber ride", "--amount", "18", "--account", "Checking", "--suggest")
	assert.Contains(t, out, "Suggested category: Transportation")
	assert.Contains(t, e.mustRun("tx", "list", "--category", "Transportation"), "Uber ride")
}

func TestReceipt_BooksExpense(t *testing.T) {
	e := newEnv(t)
	e.deps.generator = &fakeGen{answer: func(req insight.Request) (string, error) {
		if len(req.Images) == 1 {
			return `{"merchant": "Corner Market", "total": 23.40, "date": "2026-03-14"}`, nil
		}
		return `{"category": "Groceries"}`, nil
	}}
	e.mustRun("account", "add", "--name", "Checking", "--balance", "100")

	// Minimal PNG signature so content sniffing reports an image.
	img := filepath.Join(e.dir, "receipt.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o644))

	out := e.mustRun("receipt", img, "--account", "Checking")
	assert.Contains(t, out, "Merchant: Corner Market")
	assert.Contains(t, out, "Total:    $23.40")
	assert.Contains(t, out, "Booked expense")

	out = e.mustRun("tx", "list")
	assert.Contains(t, out, "Corner Market")
	assert.Contains(t, out, "2026-03-14")
	assert.Contains(t, out, "Groceries")
	assert.Contains(t, e.mustRun("account", "list"), "$76.60")

	txns := e.state().Transactions
	require.Len(t, txns, 1)
	assert.True(t, strings.HasPrefix(txns[0].Receipt, "data:image/png;base64,"), txns[0].Receipt)
	assert.NotContains(t, txns[0].Receipt, e.dir)
}

func TestTransactionReceiptFlag_EmbedsImage(t *testing.T) {
	e := newEnv(t)
	e.mustRun("account", "add", "--name", "Checking", "--balance", "100")
	img := filepath.Join(e.dir, "slip.png")
	require.NoError(t, os.WriteFile(img, []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), 0o644))

	out := e.mustRun("tx", "add", "--desc", "Hardware", "--amount", "12", "--account", "Checking", "--receipt", img)
	txnID := idFrom(t, out, 2)
	require.NoError(t, os.Remove(img))

	txns := e.state().Transactions
	require.Len(t, txns, 1)
	assert.True(t, strings.HasPrefix(txns[0].Receipt, "data:image/png;base64,"), txns[0].Receipt)

	// A data URL is kept as given, and an empty value clears the receipt.
	e.mustRun("tx", "edit", txnID, "--receipt", "data:image/jpeg;base64,AAAA")
	assert.Equal(t, "data:image/jpeg;base64,AAAA", e.state().Transactions[0].Receipt)
	e.mustRun("tx", "edit", txnID, "--receipt", "")
	assert.Empty(t, e.state().Transactions[0].Receipt)

	_, err := e.run("tx", "edit", txnID, "--receipt", filepath.Join(e.dir, "missing.png"))
	require.Error(t, err)
}

func TestReceipt_RejectsNonImage(t *testing.T) {
	e := newEnv(t)
	path := filepath.Join(e.dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("just text"), 0o644))

	_, err := e.run("receipt", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an image")
}

func TestReport_HTML(t *testing.T) {
	e := newEnv(t)
	e.deps.generator = replyWith("# Summary\n\nSpending was **steady**.")
	e.mustRun("account", "add", "--name", "Checking", "--balance", "100")
	e.mustRun("tx", "add", "--desc", "Bus", "--amount", "3", "--account", "Checking", "--date", "2026-03-10")

	path := filepath.Join(e.dir, "report.html")
	out := e.mustRun("report", "--from", "2026-03-01", "--to", "2026-03-31", "--html", path)
	assert.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "<title>Financial report 2026-03-01 to 2026-03-31</title>")
	assert.Contains(t, string(data), "<h1>Summary</h1>")
	assert.Contains(t, string(data), "<strong>steady</strong>")
}

func TestReport_NoDataAndBadRange(t *testing.T) {
	e := newEnv(t)
	gen := replyWith("unused")
	e.deps.generator = gen

	out := e.mustRun("report", "--from", "2025-01-01", "--to", "2025-01-31", "--raw")
	assert.Contains(t, out, insight.ReportNoData)
	assert.Empty(t, gen.prompts)

	_, err := e.run("report", "--from", "2026-03-10", "--to", "2026-03-01")
	require.Error(t, err)
}

func TestSubscriptionDetect_Add(t *testing.T) {
	e := newEnv(t)
	e.deps.generator = replyWith(`[{"name": "Streamly", "amount": 15.99, "frequency": "monthly", "lastPaymentDate": "2026-03-01", "category": "Subscriptions"}]`)
	e.mustRun("account", "add", "--name", "Checking", "--balance", "500")
	for _, d := range []string{"2025-11-01", "2025-12-01", "2026-01-01", "2026-02-01", "2026-03-01"} {
		e.mustRun("tx", "add", "--desc", "Streamly", "--amount", "15.99", "--account", "Checking", "--date", d)
	}

	out := e.mustRun("subscription", "detect", "--add")
	assert.Contains(t, out, "Streamly")
	assert.Contains(t, out, "Added subscription")

	out = e.mustRun("subscription", "list")
	assert.Contains(t, out, "2026-04-01")
	assert.Contains(t, out, "Monthly total: $15.99")

	// Already tracked subscriptions are not added twice.
	assert.NotContains(t, e.mustRun("subscription", "detect", "--add"), "Added subscription")
}

func TestAssetFetch_Add(t *testing.T) {
	e := newEnv(t)
	e.deps.generator = replyWith(`{"name": "Trail Bike", "description": "Aluminium frame", "price": 899.00, "imageUrl": null}`)
	e.deps.fetcher = fakeFetcher{page: insight.Page{Title: "Trail Bike | Shop", ImageURL: "https://shop.example/bike.jpg", Text: "Trail Bike $899"}}

	out := e.mustRun("asset", "fetch", "https://shop.example/bike", "--add", "--category", "vehicles")
	assert.Contains(t, out, "Name:        Trail Bike")
	assert.Contains(t, out, "Price:       $899.00")
	assert.Contains(t, out, "Image:       https://shop.example/bike.jpg")
	assert.Contains(t, out, "Added asset")

	out = e.mustRun("asset", "list")
	assert.Contains(t, out, "Trail Bike")
	assert.Contains(t, out, "Vehicles")
}

func TestAssetCategoryDelete_RefusedWhileUsed(t *testing.T) {
	e := newEnv(t)
	e.mustRun("asset", "add", "Laptop", "--category", "Electronics", "--price", "1500")

	_, err := e.run("asset-category", "delete", "Electronics")
	require.ErrorIs(t, err, store.ErrReferenced)

	e.mustRun("asset-category", "delete", "Jewelry")
	assert.NotContains(t, e.mustRun("asset-category", "list"), "Jewelry")
}

func TestInvestmentAndSavings(t *testing.T) {
	e := newEnv(t)
	e.mustRun("investment", "add", "Index Fund", "--symbol", "vti", "--type", "etf", "--quantity", "10", "--paid", "200", "--price", "250")
	out := e.mustRun("investment", "list")
	assert.Contains(t, out, "VTI")
	assert.Contains(t, out, "$2,500.00")
	assert.Contains(t, out, "$500.00")

	e.mustRun("savings", "add", "CD 12m", "--principal", "5000", "--rate", "4.5", "--start", "2026-01-01", "--maturity", "2027-01-01")
	out = e.mustRun("savings", "list")
	assert.Contains(t, out, "$5,000.00")
	assert.Contains(t, out, "4.5%")
	assert.Contains(t, out, "2027-01-01")

	_, err := e.run("savings", "add", "Bad", "--principal", "100", "--start", "2026-05-01", "--maturity", "2026-04-01")
	require.Error(t, err)
}

func TestSettings_HiddenCardSkippedOnDashboard(t *testing.T) {
	e := newEnv(t)
	e.mustRun("account", "add", "--name", "Checking", "--balance", "100")
	assert.Contains(t, e.mustRun("dashboard"), "== Net worth ==")

	e.mustRun("settings", "card", "netWorth", "off")
	out := e.mustRun("dashboard")
	assert.NotContains(t, out, "== Net worth ==")
	assert.Contains(t, out, "== March 2026 ==")
	assert.Contains(t, e.mustRun("settings", "show"), "netWorth")

	_, err := e.run("settings", "card", "nope", "off")
	require.Error(t, err)
}

func TestSettings_CurrencyAndNav(t *testing.T) {
	e := newEnv(t)
	e.mustRun("settings", "currency", "gbp")
	e.mustRun("settings", "nav", "dashboard", "goals")

	out := e.mustRun("settings", "show")
	assert.Contains(t, out, "Currency:   GBP")
	assert.Contains(t, out, "Navigation: dashboard, goals")

	_, err := e.run("settings", "nav", "dashboard", "dashboard")
	require.Error(t, err)
}

func TestDashboard_WithInsights(t *testing.T) {
	e := newEnv(t)
	e.deps.generator = &fakeGen{answer: func(req insight.Request) (string, error) {
		if req.Schema != nil {
			return `[]`, nil
		}
		return "Looking good.", nil
	}}
	e.mustRun("account", "add", "--name", "Checking", "--balance", "100")

	out := e.mustRun("dashboard", "--ai", "--raw")
	assert.Contains(t, out, "== Insights ==")
	assert.Contains(t, out, "Looking good.")
	assert.NotContains(t, out, "Possible subscriptions")
}

func TestUnknownID(t *testing.T) {
	e := newEnv(t)
	_, err := e.run("tx", "delete", "deadbeef")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown id")
}

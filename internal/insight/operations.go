package insight

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/finansage/finansage/internal/date"
	"github.com/finansage/finansage/internal/model"
)

// Fallback answers.
const (
	InsightsUnavailable = "Sorry, I couldn't generate insights right now. Please try again later."
	ReportUnavailable   = "Sorry, I couldn't generate the report right now. Please try again later."
	ReportNoData        = "No transactions were found in the selected date range, so there is nothing to report."
)

// FinancialInsights returns a markdown narrative about recent activity.
func (s *Service) FinancialInsights(ctx context.Context, d Data) string {
	e := newEncoder(s.currency, d.Accounts, d.Categories)
	out, err := s.call(ctx, "insights", Request{System: advisorSystem, Prompt: insightsPrompt(e, d)})
	if err == nil && strings.TrimSpace(out) == "" {
		err = fmt.Errorf("insights: empty answer")
	}
	if err != nil {
		s.fallback("insights", err)
		return InsightsUnavailable
	}
	return strings.TrimSpace(out)
}

// SuggestCategory picks the candidate expense category that fits description. The answer
// is nil or the exact name of one of the candidates.
func (s *Service) SuggestCategory(ctx context.Context, description string, candidates []model.Category) *string {
	description = strings.TrimSpace(description)
	var names []string
	for _, c := range candidates {
		if c.Type == model.CategoryExpense && !slices.Contains(names, c.Name) {
			names = append(names, c.Name)
		}
	}
	if description == "" || len(names) == 0 {
		return nil
	}

	req := Request{
		Prompt: suggestPrompt(description, names),
		Schema: &Schema{
			Kind: KindObject,
			Properties: map[string]*Schema{
				"category": {Kind: KindString, Enum: names, Nullable: true},
			},
			Required: []string{"category"},
		},
	}
	out, err := s.call(ctx, "suggest", req)
	if err != nil {
		s.fallback("suggest", err)
		return nil
	}
	ans, err := decode[struct {
		Category *string `json:"category"`
	}](out)
	if err != nil {
		s.fallback("suggest", err)
		return nil
	}
	if ans.Category == nil {
		return nil
	}
	// The schema is advisory for some backends.
	for _, n := range names {
		if strings.EqualFold(n, strings.TrimSpace(*ans.Category)) {
			return &n
		}
	}
	s.log.Warn().Str("op", "suggest").Str("answer", *ans.Category).Msg("suggested category is not a candidate")
	return nil
}

// ProductDetails is what ExtractProduct reads off a product page.
type ProductDetails struct {
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    string
}

// ExtractProduct fetches url and asks the model to identify the product on it.
func (s *Service) ExtractProduct(ctx context.Context, url string) *ProductDetails {
	if s.fetch == nil {
		s.fallback("product", fmt.Errorf("product: no page fetcher"))
		return nil
	}
	if s.gen == nil {
		s.fallback("product", ErrDisabled)
		return nil
	}
	fctx, cancel := context.WithTimeout(ctx, s.timeout)
	page, err := s.fetch.Fetch(fctx, url)
	cancel()
	if err != nil {
		s.fallback("product", fmt.Errorf("fetching %s: %w", url, err))
		return nil
	}

	req := Request{
		Prompt: productPrompt(page),
		Schema: &Schema{
			Kind: KindObject,
			Properties: map[string]*Schema{
				"name":        {Kind: KindString},
				"description": {Kind: KindString},
				"price":       {Kind: KindNumber, Description: "price without currency symbol"},
				"imageUrl":    {Kind: KindString, Nullable: true},
			},
			Order:    []string{"name", "description", "price", "imageUrl"},
			Required: []string{"name", "description", "price"},
		},
	}
	out, err := s.call(ctx, "product", req)
	if err != nil {
		s.fallback("product", err)
		return nil
	}
	ans, err := decode[struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Price       decimal.Decimal `json:"price"`
		ImageURL    *string         `json:"imageUrl"`
	}](out)
	if err != nil {
		s.fallback("product", err)
		return nil
	}
	if strings.TrimSpace(ans.Name) == "" {
		s.fallback("product", fmt.Errorf("product: no product name in answer"))
		return nil
	}

	p := &ProductDetails{
		Name:        strings.TrimSpace(ans.Name),
		Description: strings.TrimSpace(ans.Description),
		Price:       ans.Price.Abs(),
		ImageURL:    page.ImageURL,
	}
	if ans.ImageURL != nil && strings.TrimSpace(*ans.ImageURL) != "" {
		p.ImageURL = strings.TrimSpace(*ans.ImageURL)
	}
	return p
}

// ReceiptData is what ExtractReceipt reads off a receipt photo.
type ReceiptData struct {
	Merchant string
	Total    decimal.Decimal
	Date     date.Date
}

// ExtractReceipt reads merchant, total and date from a receipt image.
func (s *Service) ExtractReceipt(ctx context.Context, img Image) *ReceiptData {
	if len(img.Data) == 0 {
		return nil
	}
	today := s.today()
	req := Request{
		Prompt: receiptPrompt(today),
		Images: []Image{img},
		Schema: &Schema{
			Kind: KindObject,
			Properties: map[string]*Schema{
				"merchant": {Kind: KindString},
				"total":    {Kind: KindNumber},
				"date":     {Kind: KindString, Description: "YYYY-MM-DD"},
			},
			Order:    []string{"merchant", "total", "date"},
			Required: []string{"merchant", "total", "date"},
		},
	}
	out, err := s.call(ctx, "receipt", req)
	if err != nil {
		s.fallback("receipt", err)
		return nil
	}
	ans, err := decode[struct {
		Merchant string          `json:"merchant"`
		Total    decimal.Decimal `json:"total"`
		Date     string          `json:"date"`
	}](out)
	if err != nil {
		s.fallback("receipt", err)
		return nil
	}
	r := &ReceiptData{
		Merchant: strings.TrimSpace(ans.Merchant),
		Total:    ans.Total.Abs(),
		Date:     receiptDate(ans.Date, today),
	}
	if r.Merchant == "" && !r.Total.IsPositive() {
		s.fallback("receipt", fmt.Errorf("receipt: no merchant or total in answer"))
		return nil
	}
	return r
}

// receiptDate accepts YYYY-MM-DD, or a month and day alone in the current year.
// Anything unreadable becomes today.
func receiptDate(s string, today date.Date) date.Date {
	s = strings.TrimSpace(s)
	if d, err := date.Parse(s); err == nil {
		return d
	}
	for _, layout := range []string{"01-02", "01/02", "1/2", "Jan 2", "January 2"} {
		if t, err := time.Parse(layout, s); err == nil {
			return date.New(today.Year(), t.Month(), t.Day())
		}
	}
	return today
}

// DetectedSubscription is a recurring payment spotted in the transaction history.
type DetectedSubscription struct {
	Name            string
	Amount          decimal.Decimal
	Frequency       model.Frequency
	LastPaymentDate date.Date
	Category        string
}

// DetectSubscriptions looks for recurring payments among the newest expenses. It never
// returns nil.
func (s *Service) DetectSubscriptions(ctx context.Context, d Data) []DetectedSubscription {
	txns := newest(d.Transactions, SubscriptionTransactions, func(t model.Transaction) bool {
		return t.Type == model.TransactionExpense
	})
	out := []DetectedSubscription{}
	if len(txns) < MinSubscriptionInput {
		return out
	}

	freqs := make([]string, len(model.Frequencies))
	for i, f := range model.Frequencies {
		freqs[i] = string(f)
	}
	e := newEncoder(s.currency, d.Accounts, d.Categories)
	req := Request{
		Prompt: subscriptionPrompt(e, txns),
		Schema: &Schema{
			Kind: KindArray,
			Items: &Schema{
				Kind: KindObject,
				Properties: map[string]*Schema{
					"name":            {Kind: KindString},
					"amount":          {Kind: KindNumber},
					"frequency":       {Kind: KindString, Enum: freqs},
					"lastPaymentDate": {Kind: KindString, Description: "YYYY-MM-DD"},
					"category":        {Kind: KindString},
				},
				Order:    []string{"name", "amount", "frequency", "lastPaymentDate", "category"},
				Required: []string{"name", "amount", "frequency", "lastPaymentDate", "category"},
			},
		},
	}
	raw, err := s.call(ctx, "subscriptions", req)
	if err != nil {
		s.fallback("subscriptions", err)
		return out
	}
	ans, err := decode[[]struct {
		Name            string          `json:"name"`
		Amount          decimal.Decimal `json:"amount"`
		Frequency       string          `json:"frequency"`
		LastPaymentDate string          `json:"lastPaymentDate"`
		Category        string          `json:"category"`
	}](raw)
	if err != nil {
		s.fallback("subscriptions", err)
		return out
	}

	for _, a := range ans {
		f := model.Frequency(strings.ToLower(strings.TrimSpace(a.Frequency)))
		name := strings.TrimSpace(a.Name)
		if !f.Valid() || name == "" || !a.Amount.IsPositive() {
			s.log.Debug().Str("name", a.Name).Str("frequency", a.Frequency).Msg("dropping detected subscription")
			continue
		}
		last, _ := date.Parse(strings.TrimSpace(a.LastPaymentDate))
		out = append(out, DetectedSubscription{
			Name:            name,
			Amount:          a.Amount,
			Frequency:       f,
			LastPaymentDate: last,
			Category:        strings.TrimSpace(a.Category),
		})
	}
	return out
}

// GenerateReport writes a multi-section markdown report for transactions dated in
// [from, to]. Zero bounds are open.
func (s *Service) GenerateReport(ctx context.Context, d Data, from, to date.Date) string {
	txns := newest(d.Transactions, ReportTransactions, func(t model.Transaction) bool {
		return t.Date.Between(from, to)
	})
	if len(txns) == 0 {
		return ReportNoData
	}
	e := newEncoder(s.currency, d.Accounts, d.Categories)
	out, err := s.call(ctx, "report", Request{System: advisorSystem, Prompt: reportPrompt(e, txns, from, to)})
	if err == nil && strings.TrimSpace(out) == "" {
		err = fmt.Errorf("report: empty answer")
	}
	if err != nil {
		s.fallback("report", err)
		return ReportUnavailable
	}
	return strings.TrimSpace(out)
}

// Analysis is the dashboard's combined model output.
type Analysis struct {
	Insights      string
	Subscriptions []DetectedSubscription
}

// AnalyzeAll runs FinancialInsights and DetectSubscriptions concurrently.
func (s *Service) AnalyzeAll(ctx context.Context, d Data) Analysis {
	var a Analysis
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.Insights = s.FinancialInsights(gctx, d)
		return nil
	})
	g.Go(func() error {
		a.Subscriptions = s.DetectSubscriptions(gctx, d)
		return nil
	})
	// Both operations absorb their own failures.
	_ = g.Wait()
	return a
}

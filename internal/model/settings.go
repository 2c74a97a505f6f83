package model

// Dashboard cards that can be shown or hidden.
const (
	CardNetWorth       = "netWorth"
	CardMonthlySummary = "monthlySummary"
	CardSpending       = "spendingByCategory"
	CardBudgets        = "budgets"
	CardGoals          = "goals"
	CardSubscriptions  = "subscriptions"
	CardRecent         = "recentTransactions"
	CardInsights       = "aiInsights"
)

// DashboardCards lists every card in display order.
var DashboardCards = []string{
	CardNetWorth,
	CardMonthlySummary,
	CardSpending,
	CardBudgets,
	CardGoals,
	CardSubscriptions,
	CardRecent,
	CardInsights,
}

// Views that may appear in the bottom navigation.
var NavViews = []string{
	"dashboard", "transactions", "accounts", "budgets", "reports",
	"investments", "savings", "goals", "assets", "subscriptions", "settings",
}

// DefaultBottomNav is the navigation shown before the user customizes it.
var DefaultBottomNav = []string{"dashboard", "transactions", "budgets", "reports"}

// Settings holds the user preferences persisted next to the data.
type Settings struct {
	PrimaryCurrency string          `json:"primaryCurrency"`
	DashboardCards  map[string]bool `json:"dashboardCards"`
	BottomNav       []string        `json:"bottomNav"`
}

// CardVisible reports whether a dashboard card is shown; unknown entries default to visible.
func (s Settings) CardVisible(card string) bool {
	v, ok := s.DashboardCards[card]
	return !ok || v
}

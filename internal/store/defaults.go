package store

import "github.com/finansage/finansage/internal/model"

// DefaultCategories returns the built-in category set used before the user edits any.
func DefaultCategories() []model.Category {
	return []model.Category{
		{ID: "cat-salary", Name: "Salary", Type: model.CategoryIncome, Icon: "💼"},
		{ID: "cat-freelance", Name: "Freelance", Type: model.CategoryIncome, Icon: "🧑‍💻"},
		{ID: "cat-interest", Name: "Interest & Dividends", Type: model.CategoryIncome, Icon: "📈"},
		{ID: "cat-other-income", Name: "Other Income", Type: model.CategoryIncome, Icon: "💰"},
		{ID: "cat-groceries", Name: "Groceries", Type: model.CategoryExpense, Icon: "🛒"},
		{ID: "cat-dining", Name: "Dining Out", Type: model.CategoryExpense, Icon: "🍽️"},
		{ID: "cat-rent", Name: "Rent & Mortgage", Type: model.CategoryExpense, Icon: "🏠"},
		{ID: "cat-utilities", Name: "Utilities", Type: model.CategoryExpense, Icon: "💡"},
		{ID: "cat-transport", Name: "Transportation", Type: model.CategoryExpense, Icon: "🚗"},
		{ID: "cat-health", Name: "Healthcare", Type: model.CategoryExpense, Icon: "🩺"},
		{ID: "cat-entertainment", Name: "Entertainment", Type: model.CategoryExpense, Icon: "🎬"},
		{ID: "cat-shopping", Name: "Shopping", Type: model.CategoryExpense, Icon: "🛍️"},
		{ID: "cat-subscriptions", Name: "Subscriptions", Type: model.CategoryExpense, Icon: "🔁"},
		{ID: "cat-savings", Name: "Savings & Goals", Type: model.CategoryExpense, Icon: "🎯"},
		{ID: "cat-other-expense", Name: "Other Expense", Type: model.CategoryExpense, Icon: "🧾"},
	}
}

// DefaultAssetCategories returns the built-in asset categories.
func DefaultAssetCategories() []model.AssetCategory {
	return []model.AssetCategory{
		{ID: "acat-property", Name: "Property", Icon: "🏡"},
		{ID: "acat-vehicle", Name: "Vehicles", Icon: "🚙"},
		{ID: "acat-electronics", Name: "Electronics", Icon: "💻"},
		{ID: "acat-jewelry", Name: "Jewelry", Icon: "💍"},
		{ID: "acat-other", Name: "Other", Icon: "📦"},
	}
}

// DefaultDashboardCards shows every card.
func DefaultDashboardCards() map[string]bool {
	out := make(map[string]bool, len(model.DashboardCards))
	for _, c := range model.DashboardCards {
		out[c] = true
	}
	return out
}

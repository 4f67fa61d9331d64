package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Category Catalog
// ============================================================

// Default display metadata for categories created without explicit values.
const (
	DefaultCategoryColor = "#4CAF50"
	DefaultCategoryIcon  = "shopping-cart"
	FallbackCategoryName = "Other"
)

// Category is a spending category with display metadata. Position is the
// catalog (creation) order and drives deterministic output ordering.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Icon     string `json:"icon"`
	Position int64  `json:"-"`
}

// CategoryRequest is the body for POST/PUT /v1/categories.
type CategoryRequest struct {
	Name  string `json:"name"`
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// ============================================================
// Transactions
// ============================================================

// Transaction is a single expense recorded by a user.
type Transaction struct {
	ID          string          `json:"id"`
	UserID      string          `json:"-"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Merchant    string          `json:"merchant"`
	Description string          `json:"description"`
	CategoryID  string          `json:"categoryId"`
}

// TransactionRequest is the body for POST/PUT /v1/transactions.
type TransactionRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Merchant    string          `json:"merchant"`
	Description string          `json:"description"`
	CategoryID  string          `json:"categoryId"`
}

// TransactionFilter narrows a ledger query. Nil bounds are open.
type TransactionFilter struct {
	From *time.Time
	To   *time.Time
}

// PeriodFilter builds a filter covering every day of p.
func PeriodFilter(p Period) TransactionFilter {
	from := Day(p.Start)
	to := Day(p.End)
	return TransactionFilter{From: &from, To: &to}
}

// Matches applies the filter with the same day semantics the stores use.
func (f TransactionFilter) Matches(t time.Time) bool {
	t = t.UTC()
	if f.From != nil && t.Before(Day(*f.From)) {
		return false
	}
	if f.To != nil && !t.Before(Day(*f.To).AddDate(0, 0, 1)) {
		return false
	}
	return true
}

// TransactionResponse embeds the category for API consumers.
type TransactionResponse struct {
	ID          string          `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Merchant    string          `json:"merchant"`
	Description string          `json:"description"`
	Category    Category        `json:"category"`
}

// ============================================================
// Budgets
// ============================================================

// Budget is a spending ceiling for one category over a day window.
type Budget struct {
	ID         string          `json:"id"`
	UserID     string          `json:"-"`
	Amount     decimal.Decimal `json:"amount"`
	StartDate  time.Time       `json:"startDate"`
	EndDate    time.Time       `json:"endDate"`
	CategoryID string          `json:"categoryId"`
}

// Window returns the budget's day range.
func (b Budget) Window() Period {
	return NewPeriod(b.StartDate, b.EndDate)
}

// BudgetRequest is the body for POST/PUT /v1/budgets.
type BudgetRequest struct {
	Amount     decimal.Decimal `json:"amount"`
	StartDate  time.Time       `json:"startDate"`
	EndDate    time.Time       `json:"endDate"`
	CategoryID string          `json:"categoryId"`
}

// BudgetResponse is a budget with its category and the spending recorded
// inside its own window.
type BudgetResponse struct {
	ID              string          `json:"id"`
	Amount          decimal.Decimal `json:"amount"`
	StartDate       time.Time       `json:"startDate"`
	EndDate         time.Time       `json:"endDate"`
	Category        Category        `json:"category"`
	CurrentSpending decimal.Decimal `json:"currentSpending"`
}

package domain

import "github.com/shopspring/decimal"

// ============================================================
// Dashboard
// ============================================================

// CategorySpending pairs a category's spending in a period with its budget
// ceiling. Ratios are left to the consumer.
type CategorySpending struct {
	CategoryID string          `json:"categoryId"`
	Name       string          `json:"name"`
	Color      string          `json:"color"`
	Icon       string          `json:"icon"`
	Spent      decimal.Decimal `json:"spent"`
	Budgeted   decimal.Decimal `json:"budgeted"`
}

// DashboardSnapshot is the consolidated current-state view. It is derived on
// every request and never stored.
type DashboardSnapshot struct {
	Period                Period             `json:"period"`
	TotalSpent            decimal.Decimal    `json:"totalSpent"`
	TotalBudget           decimal.Decimal    `json:"totalBudget"`
	CategorySpendings     []CategorySpending `json:"categorySpendings"`
	LoanSummaries         []LoanSummary      `json:"loanSummaries"`
	TotalMonthlyPayment   decimal.Decimal    `json:"totalMonthlyPayment"`
	Cushion               decimal.Decimal    `json:"cushion"`
	Salary                decimal.Decimal    `json:"salary"`
	FinancialGoal         string             `json:"financialGoal"`
	FinancialGoalAmount   decimal.Decimal    `json:"financialGoalAmount"`
	FinancialGoalProgress decimal.Decimal    `json:"financialGoalProgress"`
	FinancialGoalMonths   int                `json:"financialGoalMonths"`
}

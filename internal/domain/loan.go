package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Loans
// ============================================================

// LoanStatus is the lifecycle state of a loan. Retired loans are kept for
// history but never feed current projections or payment totals.
type LoanStatus string

const (
	LoanActive  LoanStatus = "active"
	LoanRetired LoanStatus = "retired"
)

// Valid reports whether s is a known status.
func (s LoanStatus) Valid() bool {
	return s == LoanActive || s == LoanRetired
}

// Loan holds the amortization parameters of a user's loan.
type Loan struct {
	ID             string          `json:"id"`
	UserID         string          `json:"-"`
	Amount         decimal.Decimal `json:"amount"`
	TermMonths     int             `json:"termMonths"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	InterestRate   decimal.Decimal `json:"interestRate"`
	Type           string          `json:"type"`
	StartDate      time.Time       `json:"startDate"`
	Status         LoanStatus      `json:"status"`
}

// IsActive reports whether the loan participates in current aggregates.
func (l Loan) IsActive() bool {
	return l.Status == LoanActive
}

// LoanRequest is the body for POST/PUT /v1/loans. Status defaults to active
// on create and to the stored value on update.
type LoanRequest struct {
	Amount         decimal.Decimal `json:"amount"`
	TermMonths     int             `json:"termMonths"`
	MonthlyPayment decimal.Decimal `json:"monthlyPayment"`
	InterestRate   decimal.Decimal `json:"interestRate"`
	Type           string          `json:"type"`
	StartDate      time.Time       `json:"startDate"`
	Status         LoanStatus      `json:"status,omitempty"`
}

// LoanProjection is the payoff state of a loan at a given instant.
type LoanProjection struct {
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	RemainingMonths int             `json:"remainingMonths"`
}

// LoanSummary is a loan joined with its projection, as shown on the dashboard.
type LoanSummary struct {
	LoanID          string          `json:"loanId"`
	Type            string          `json:"type"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	PaidAmount      decimal.Decimal `json:"paidAmount"`
	RemainingAmount decimal.Decimal `json:"remainingAmount"`
	RemainingMonths int             `json:"remainingMonths"`
	MonthlyPayment  decimal.Decimal `json:"monthlyPayment"`
	InterestRate    decimal.Decimal `json:"interestRate"`
}

// MonthlyPaymentTotal is returned by GET /v1/loans/monthly-payment.
type MonthlyPaymentTotal struct {
	TotalMonthlyPayment decimal.Decimal `json:"totalMonthlyPayment"`
	ActiveLoans         int             `json:"activeLoans"`
}

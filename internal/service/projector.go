package service

import (
	"sort"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"github.com/shopspring/decimal"
)

// AverageMonth is the mean Gregorian month, 30.436875 days. Amortization
// counts elapsed months in this unit everywhere so that multi-year terms do
// not drift the way a fixed 30-day month would.
const AverageMonth = 2629746 * time.Second

// MonthsElapsed returns the whole average months between start and asOf,
// clamped to [0, termMonths].
func MonthsElapsed(start, asOf time.Time, termMonths int) int {
	if termMonths < 0 {
		termMonths = 0
	}
	d := asOf.Sub(start)
	if d <= 0 {
		return 0
	}
	months := int64(d / AverageMonth)
	if months > int64(termMonths) {
		return termMonths
	}
	return int(months)
}

// ProjectLoan computes how much of a loan is paid off at asOf. It has no
// error path: every result is clamped to be non-negative.
func ProjectLoan(loan domain.Loan, asOf time.Time) domain.LoanProjection {
	elapsed := MonthsElapsed(loan.StartDate, asOf, loan.TermMonths)

	paid := loan.MonthlyPayment.Mul(decimal.NewFromInt(int64(elapsed)))
	if paid.IsNegative() {
		paid = decimal.Zero
	}
	remaining := loan.Amount.Sub(paid)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	remainingMonths := loan.TermMonths - elapsed
	if remainingMonths < 0 {
		remainingMonths = 0
	}

	return domain.LoanProjection{
		PaidAmount:      paid,
		RemainingAmount: remaining,
		RemainingMonths: remainingMonths,
	}
}

// SummarizeLoan joins a loan with its projection.
func SummarizeLoan(loan domain.Loan, asOf time.Time) domain.LoanSummary {
	p := ProjectLoan(loan, asOf)
	return domain.LoanSummary{
		LoanID:          loan.ID,
		Type:            loan.Type,
		TotalAmount:     loan.Amount,
		PaidAmount:      p.PaidAmount,
		RemainingAmount: p.RemainingAmount,
		RemainingMonths: p.RemainingMonths,
		MonthlyPayment:  loan.MonthlyPayment,
		InterestRate:    loan.InterestRate,
	}
}

// SummarizeActiveLoans projects every active loan, newest start date first
// (ties broken by id). Retired loans are skipped.
func SummarizeActiveLoans(loans []domain.Loan, asOf time.Time) []domain.LoanSummary {
	active := ActiveLoans(loans)
	summaries := make([]domain.LoanSummary, 0, len(active))
	for _, l := range active {
		summaries = append(summaries, SummarizeLoan(l, asOf))
	}
	return summaries
}

// ActiveLoans filters out retired loans and orders the rest newest first.
func ActiveLoans(loans []domain.Loan) []domain.Loan {
	active := make([]domain.Loan, 0, len(loans))
	for _, l := range loans {
		if l.IsActive() {
			active = append(active, l)
		}
	}
	SortLoans(active)
	return active
}

// SortLoans orders loans by start date descending, then id.
func SortLoans(loans []domain.Loan) {
	sort.SliceStable(loans, func(i, j int) bool {
		if !loans[i].StartDate.Equal(loans[j].StartDate) {
			return loans[i].StartDate.After(loans[j].StartDate)
		}
		return loans[i].ID < loans[j].ID
	})
}

// TotalMonthlyPayment sums the monthly payments of active loans only.
func TotalMonthlyPayment(loans []domain.Loan) decimal.Decimal {
	total := decimal.Zero
	for _, l := range loans {
		if l.IsActive() {
			total = total.Add(l.MonthlyPayment)
		}
	}
	return total
}

package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Loans
// ============================================================

// ListLoans returns all loans, retired ones included.
func (s *LedgerService) ListLoans(ctx context.Context, userID string) ([]domain.Loan, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListLoans")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	loans, err := s.store.ListLoans(ctx, userID)
	if err != nil {
		s.metrics.IncrStoreError("loans")
		return nil, fmt.Errorf("list loans: %w", err)
	}
	SortLoans(loans)
	return loans, nil
}

func (s *LedgerService) ListActiveLoans(ctx context.Context, userID string) ([]domain.Loan, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListActiveLoans")
	defer span.End()

	loans, err := s.store.ListLoans(ctx, userID)
	if err != nil {
		s.metrics.IncrStoreError("loans")
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return ActiveLoans(loans), nil
}

// ListLoansByType matches the type case-insensitively across all statuses.
func (s *LedgerService) ListLoansByType(ctx context.Context, userID, loanType string) ([]domain.Loan, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListLoansByType")
	defer span.End()

	loans, err := s.ListLoans(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Loan, 0, len(loans))
	for _, l := range loans {
		if strings.EqualFold(l.Type, strings.TrimSpace(loanType)) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *LedgerService) GetLoan(ctx context.Context, userID, id string) (*domain.Loan, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetLoan")
	defer span.End()

	return s.store.GetLoan(ctx, userID, id)
}

// MonthlyPayment sums the monthly payments of active loans.
func (s *LedgerService) MonthlyPayment(ctx context.Context, userID string) (*domain.MonthlyPaymentTotal, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.MonthlyPayment")
	defer span.End()

	loans, err := s.store.ListLoans(ctx, userID)
	if err != nil {
		s.metrics.IncrStoreError("loans")
		return nil, fmt.Errorf("list loans: %w", err)
	}
	return &domain.MonthlyPaymentTotal{
		TotalMonthlyPayment: TotalMonthlyPayment(loans),
		ActiveLoans:         len(ActiveLoans(loans)),
	}, nil
}

// ProjectLoan projects a single loan at asOf. Retired loans are projectable
// too; they are only left out of aggregates.
func (s *LedgerService) ProjectLoan(ctx context.Context, userID, id string, asOf time.Time) (*domain.LoanProjection, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ProjectLoan")
	defer span.End()

	l, err := s.store.GetLoan(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p := ProjectLoan(*l, asOf)
	return &p, nil
}

func (s *LedgerService) CreateLoan(ctx context.Context, userID string, req *domain.LoanRequest) (*domain.Loan, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateLoan")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	l, err := buildLoan(req, domain.LoanActive)
	if err != nil {
		return nil, err
	}
	l.UserID = userID

	created, err := s.store.CreateLoan(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("create loan: %w", err)
	}

	s.logger.Info("loan created",
		zap.String("user_id", userID),
		zap.String("loan_id", created.ID),
		zap.String("type", created.Type),
	)
	return created, nil
}

// UpdateLoan replaces the loan's parameters. An empty status keeps the
// stored one, so retiring a loan is an explicit update.
func (s *LedgerService) UpdateLoan(ctx context.Context, userID, id string, req *domain.LoanRequest) (*domain.Loan, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateLoan")
	defer span.End()

	existing, err := s.store.GetLoan(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	l, err := buildLoan(req, existing.Status)
	if err != nil {
		return nil, err
	}
	l.ID = id
	l.UserID = userID

	updated, err := s.store.UpdateLoan(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("update loan: %w", err)
	}
	if existing.Status != updated.Status {
		s.logger.Info("loan status changed",
			zap.String("loan_id", id),
			zap.String("from", string(existing.Status)),
			zap.String("to", string(updated.Status)),
		)
	}
	return updated, nil
}

func (s *LedgerService) DeleteLoan(ctx context.Context, userID, id string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteLoan")
	defer span.End()

	if err := s.store.DeleteLoan(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("loan deleted", zap.String("user_id", userID), zap.String("loan_id", id))
	return nil
}

var maxInterestRate = decimal.NewFromInt(100)

func buildLoan(req *domain.LoanRequest, defaultStatus domain.LoanStatus) (*domain.Loan, error) {
	if !req.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}
	if err := domain.CheckMoney("amount", req.Amount); err != nil {
		return nil, err
	}
	if req.TermMonths < 1 {
		return nil, &domain.ErrValidation{Field: "termMonths", Message: "termMonths must be at least 1"}
	}
	if req.MonthlyPayment.IsNegative() {
		return nil, &domain.ErrValidation{Field: "monthlyPayment", Message: "monthlyPayment must not be negative"}
	}
	if err := domain.CheckMoney("monthlyPayment", req.MonthlyPayment); err != nil {
		return nil, err
	}
	if req.InterestRate.IsNegative() || req.InterestRate.GreaterThan(maxInterestRate) {
		return nil, &domain.ErrValidation{Field: "interestRate", Message: "interestRate must be between 0 and 100"}
	}
	if err := domain.CheckMoney("interestRate", req.InterestRate); err != nil {
		return nil, err
	}
	loanType := strings.TrimSpace(req.Type)
	if loanType == "" {
		return nil, &domain.ErrValidation{Field: "type", Message: "type is required"}
	}
	if len([]rune(loanType)) > maxLoanType {
		return nil, &domain.ErrValidation{Field: "type", Message: fmt.Sprintf("type must be at most %d characters", maxLoanType)}
	}
	if req.StartDate.IsZero() {
		return nil, &domain.ErrValidation{Field: "startDate", Message: "startDate is required"}
	}

	status := req.Status
	if status == "" {
		status = defaultStatus
	}
	if !status.Valid() {
		return nil, &domain.ErrValidation{Field: "status", Message: "status must be active or retired"}
	}

	return &domain.Loan{
		Amount:         req.Amount,
		TermMonths:     req.TermMonths,
		MonthlyPayment: req.MonthlyPayment,
		InterestRate:   req.InterestRate,
		Type:           loanType,
		StartDate:      req.StartDate.UTC(),
		Status:         status,
	}, nil
}

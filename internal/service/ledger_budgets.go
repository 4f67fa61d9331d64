package service

import (
	"context"
	"fmt"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Budgets
// ============================================================

// ListBudgets returns every budget of the user with the spending recorded
// inside each budget's own window.
func (s *LedgerService) ListBudgets(ctx context.Context, userID string) ([]domain.BudgetResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListBudgets")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	budgets, err := s.store.ListBudgets(ctx, userID)
	if err != nil {
		s.metrics.IncrStoreError("budgets")
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return s.budgetResponses(ctx, userID, budgets)
}

func (s *LedgerService) GetBudget(ctx context.Context, userID, id string) (*domain.BudgetResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetBudget")
	defer span.End()

	b, err := s.store.GetBudget(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.oneBudgetResponse(ctx, userID, b)
}

// CreateBudget validates the window and delegates the overlap check to the
// store, which performs it atomically with the insert.
func (s *LedgerService) CreateBudget(ctx context.Context, userID string, req *domain.BudgetRequest) (*domain.BudgetResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateBudget")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	b, err := s.buildBudget(ctx, req)
	if err != nil {
		return nil, err
	}
	b.UserID = userID

	created, err := s.store.CreateBudget(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("create budget: %w", err)
	}

	s.logger.Info("budget created",
		zap.String("user_id", userID),
		zap.String("budget_id", created.ID),
		zap.String("category_id", created.CategoryID),
	)
	return s.oneBudgetResponse(ctx, userID, created)
}

func (s *LedgerService) UpdateBudget(ctx context.Context, userID, id string, req *domain.BudgetRequest) (*domain.BudgetResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateBudget")
	defer span.End()

	if _, err := s.store.GetBudget(ctx, userID, id); err != nil {
		return nil, err
	}

	b, err := s.buildBudget(ctx, req)
	if err != nil {
		return nil, err
	}
	b.ID = id
	b.UserID = userID

	updated, err := s.store.UpdateBudget(ctx, b)
	if err != nil {
		return nil, fmt.Errorf("update budget: %w", err)
	}
	return s.oneBudgetResponse(ctx, userID, updated)
}

func (s *LedgerService) DeleteBudget(ctx context.Context, userID, id string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteBudget")
	defer span.End()

	if err := s.store.DeleteBudget(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("budget deleted", zap.String("user_id", userID), zap.String("budget_id", id))
	return nil
}

func (s *LedgerService) buildBudget(ctx context.Context, req *domain.BudgetRequest) (*domain.Budget, error) {
	if req.Amount.IsNegative() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must not be negative"}
	}
	if err := domain.CheckMoney("amount", req.Amount); err != nil {
		return nil, err
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, &domain.ErrValidation{Field: "startDate", Message: "startDate and endDate are required"}
	}
	start, end := domain.Day(req.StartDate), domain.Day(req.EndDate)
	if !start.Before(end) {
		return nil, &domain.ErrValidation{Field: "endDate", Message: "startDate must be before endDate"}
	}
	if _, err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}
	return &domain.Budget{
		Amount:     req.Amount,
		StartDate:  start,
		EndDate:    end,
		CategoryID: req.CategoryID,
	}, nil
}

func (s *LedgerService) oneBudgetResponse(ctx context.Context, userID string, b *domain.Budget) (*domain.BudgetResponse, error) {
	out, err := s.budgetResponses(ctx, userID, []domain.Budget{*b})
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// budgetResponses attaches categories and current spending. One ledger
// query covers the union of all windows.
func (s *LedgerService) budgetResponses(ctx context.Context, userID string, budgets []domain.Budget) ([]domain.BudgetResponse, error) {
	out := make([]domain.BudgetResponse, 0, len(budgets))
	if len(budgets) == 0 {
		return out, nil
	}

	categories, err := s.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}

	span := budgets[0].Window()
	for _, b := range budgets[1:] {
		w := b.Window()
		if w.Start.Before(span.Start) {
			span.Start = w.Start
		}
		if w.End.After(span.End) {
			span.End = w.End
		}
	}
	txs, err := s.store.ListTransactions(ctx, userID, domain.PeriodFilter(span))
	if err != nil {
		s.metrics.IncrStoreError("transactions")
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	for _, b := range budgets {
		c, ok := categories[b.CategoryID]
		if !ok {
			ie := &domain.ErrIntegrity{Entity: "budget", ID: b.ID, CategoryID: b.CategoryID}
			reportIntegrity(s.metrics, s.logger, userID, ie)
			return nil, ie
		}
		out = append(out, domain.BudgetResponse{
			ID:              b.ID,
			Amount:          b.Amount,
			StartDate:       b.StartDate,
			EndDate:         b.EndDate,
			Category:        c,
			CurrentSpending: spentInWindow(txs, b),
		})
	}
	return out, nil
}

func spentInWindow(txs []domain.Transaction, b domain.Budget) decimal.Decimal {
	w := b.Window()
	total := decimal.Zero
	for _, t := range txs {
		if t.CategoryID == b.CategoryID && w.Contains(t.Date) {
			total = total.Add(t.Amount)
		}
	}
	return total
}

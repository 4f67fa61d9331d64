package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Transactions
// ============================================================

// ListTransactions returns the user's transactions, newest first, each with
// its category attached.
func (s *LedgerService) ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.TransactionResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	if filter.From != nil && filter.To != nil && domain.Day(*filter.From).After(domain.Day(*filter.To)) {
		return nil, &domain.ErrValidation{Field: "startDate", Message: "startDate must not be after endDate"}
	}

	txs, err := s.store.ListTransactions(ctx, userID, filter)
	if err != nil {
		s.metrics.IncrStoreError("transactions")
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	categories, err := s.categoryIndex(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]domain.TransactionResponse, 0, len(txs))
	for _, t := range txs {
		c, ok := categories[t.CategoryID]
		if !ok {
			ie := &domain.ErrIntegrity{Entity: "transaction", ID: t.ID, CategoryID: t.CategoryID}
			reportIntegrity(s.metrics, s.logger, userID, ie)
			return nil, ie
		}
		out = append(out, toTransactionResponse(t, c))
	}
	return out, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, userID, id string) (*domain.TransactionResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetTransaction")
	defer span.End()

	t, err := s.store.GetTransaction(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.withCategory(ctx, userID, t)
}

func (s *LedgerService) CreateTransaction(ctx context.Context, userID string, req *domain.TransactionRequest) (*domain.TransactionResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateTransaction")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	t, err := s.buildTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	t.UserID = userID

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("create transaction: %w", err)
	}

	s.logger.Info("transaction created",
		zap.String("user_id", userID),
		zap.String("transaction_id", created.ID),
		zap.String("category_id", created.CategoryID),
	)
	return s.withCategory(ctx, userID, created)
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, userID, id string, req *domain.TransactionRequest) (*domain.TransactionResponse, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateTransaction")
	defer span.End()

	if _, err := s.store.GetTransaction(ctx, userID, id); err != nil {
		return nil, err
	}

	t, err := s.buildTransaction(ctx, req)
	if err != nil {
		return nil, err
	}
	t.ID = id
	t.UserID = userID

	updated, err := s.store.UpdateTransaction(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("update transaction: %w", err)
	}
	return s.withCategory(ctx, userID, updated)
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, id string) error {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.DeleteTransaction")
	defer span.End()

	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.logger.Info("transaction deleted", zap.String("user_id", userID), zap.String("transaction_id", id))
	return nil
}

// buildTransaction validates the request and checks the category exists.
// A zero date means "now".
func (s *LedgerService) buildTransaction(ctx context.Context, req *domain.TransactionRequest) (*domain.Transaction, error) {
	if !req.Amount.IsPositive() {
		return nil, &domain.ErrValidation{Field: "amount", Message: "amount must be greater than zero"}
	}
	if err := domain.CheckMoney("amount", req.Amount); err != nil {
		return nil, err
	}
	merchant := strings.TrimSpace(req.Merchant)
	if merchant == "" {
		return nil, &domain.ErrValidation{Field: "merchant", Message: "merchant is required"}
	}
	if len([]rune(merchant)) > maxMerchant {
		return nil, &domain.ErrValidation{Field: "merchant", Message: fmt.Sprintf("merchant must be at most %d characters", maxMerchant)}
	}
	description := strings.TrimSpace(req.Description)
	if len([]rune(description)) > maxDescription {
		return nil, &domain.ErrValidation{Field: "description", Message: fmt.Sprintf("description must be at most %d characters", maxDescription)}
	}
	if _, err := s.requireCategory(ctx, req.CategoryID); err != nil {
		return nil, err
	}

	date := req.Date
	if date.IsZero() {
		date = s.now()
	}

	return &domain.Transaction{
		Amount:      req.Amount,
		Date:        date.UTC(),
		Merchant:    merchant,
		Description: description,
		CategoryID:  req.CategoryID,
	}, nil
}

func (s *LedgerService) withCategory(ctx context.Context, userID string, t *domain.Transaction) (*domain.TransactionResponse, error) {
	c, err := s.store.GetCategory(ctx, t.CategoryID)
	var nf *domain.ErrNotFound
	if errors.As(err, &nf) {
		ie := &domain.ErrIntegrity{Entity: "transaction", ID: t.ID, CategoryID: t.CategoryID}
		reportIntegrity(s.metrics, s.logger, userID, ie)
		return nil, ie
	}
	if err != nil {
		return nil, fmt.Errorf("category fetch: %w", err)
	}
	resp := toTransactionResponse(*t, *c)
	return &resp, nil
}

func toTransactionResponse(t domain.Transaction, c domain.Category) domain.TransactionResponse {
	return domain.TransactionResponse{
		ID:          t.ID,
		Amount:      t.Amount,
		Date:        t.Date,
		Merchant:    t.Merchant,
		Description: t.Description,
		Category:    c,
	}
}

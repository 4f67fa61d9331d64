package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ============================================================
// Profile
// ============================================================

func (s *LedgerService) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetProfile")
	defer span.End()

	return s.store.GetProfile(ctx, userID)
}

func (s *LedgerService) UpdateProfile(ctx context.Context, userID string, req *domain.ProfileUpdate) (*domain.Profile, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateProfile")
	defer span.End()

	if err := s.validateProfileUpdate(req); err != nil {
		return nil, err
	}

	p, err := s.store.UpdateProfile(ctx, userID, *req)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.logger.Info("profile updated", zap.String("user_id", userID))
	return p, nil
}

func (s *LedgerService) validateProfileUpdate(req *domain.ProfileUpdate) error {
	if req.FullName != nil && strings.TrimSpace(*req.FullName) == "" {
		return &domain.ErrValidation{Field: "fullName", Message: "fullName must not be empty"}
	}
	if req.BirthDate != nil && domain.Day(*req.BirthDate).After(domain.Day(s.now())) {
		return &domain.ErrValidation{Field: "birthDate", Message: "birthDate must not be in the future"}
	}
	if req.Salary != nil && req.Salary.IsNegative() {
		return &domain.ErrValidation{Field: "salary", Message: "salary must not be negative"}
	}
	if req.Cushion != nil && req.Cushion.IsNegative() {
		return &domain.ErrValidation{Field: "cushion", Message: "cushion must not be negative"}
	}
	if req.FinancialGoal != nil && len([]rune(*req.FinancialGoal)) > maxGoalText {
		return &domain.ErrValidation{Field: "financialGoal", Message: fmt.Sprintf("financialGoal must be at most %d characters", maxGoalText)}
	}
	if req.FinancialGoalAmount != nil && req.FinancialGoalAmount.IsNegative() {
		return &domain.ErrValidation{Field: "financialGoalAmount", Message: "financialGoalAmount must not be negative"}
	}
	if req.FinancialGoalMonths != nil && *req.FinancialGoalMonths < 0 {
		return &domain.ErrValidation{Field: "financialGoalMonths", Message: "financialGoalMonths must not be negative"}
	}
	if req.FinancialStrategy != nil && len([]rune(*req.FinancialStrategy)) > maxGoalText {
		return &domain.ErrValidation{Field: "financialStrategy", Message: fmt.Sprintf("financialStrategy must be at most %d characters", maxGoalText)}
	}
	for _, m := range []struct {
		field string
		v     *decimal.Decimal
	}{
		{"salary", req.Salary},
		{"cushion", req.Cushion},
		{"financialGoalAmount", req.FinancialGoalAmount},
	} {
		if m.v == nil {
			continue
		}
		if err := domain.CheckMoney(m.field, *m.v); err != nil {
			return err
		}
	}
	return nil
}

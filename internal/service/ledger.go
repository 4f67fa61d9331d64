// Package service provides the business logic layer (use cases).
// LedgerService owns the user's records: categories, transactions,
// budgets, loans and the financial profile.
package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/infra/observability"
	"github.com/yosef2222/FinanceTracker/internal/port"

	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var ledgerTracer = otel.Tracer("service/ledger")

const (
	maxCategoryName = 50
	maxMerchant     = 100
	maxDescription  = 200
	maxLoanType     = 50
	maxGoalText     = 200
)

// LedgerService validates user input and delegates persistence to the store.
type LedgerService struct {
	store   port.LedgerStore
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewLedgerService creates a new ledger service.
func NewLedgerService(store port.LedgerStore, metrics *observability.Metrics, logger *zap.Logger) *LedgerService {
	return &LedgerService{store: store, metrics: metrics, logger: logger, now: time.Now}
}

// ============================================================
// Categories
// ============================================================

func (s *LedgerService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.ListCategories")
	defer span.End()

	return s.store.ListCategories(ctx)
}

func (s *LedgerService) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.GetCategory")
	defer span.End()

	return s.store.GetCategory(ctx, id)
}

// CreateCategory adds a category at the end of the catalog. Color and icon
// fall back to the catalog defaults.
func (s *LedgerService) CreateCategory(ctx context.Context, req *domain.CategoryRequest) (*domain.Category, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.CreateCategory")
	defer span.End()

	name := strings.TrimSpace(req.Name)
	if err := validateCategoryName(name); err != nil {
		return nil, err
	}

	c := &domain.Category{
		Name:  name,
		Color: orDefault(req.Color, domain.DefaultCategoryColor),
		Icon:  orDefault(req.Icon, domain.DefaultCategoryIcon),
	}
	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.Info("category created", zap.String("category_id", created.ID), zap.String("name", created.Name))
	return created, nil
}

// UpdateCategory edits display metadata only. Empty fields keep their value.
func (s *LedgerService) UpdateCategory(ctx context.Context, id string, req *domain.CategoryRequest) (*domain.Category, error) {
	ctx, span := ledgerTracer.Start(ctx, "LedgerService.UpdateCategory")
	defer span.End()

	existing, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		if err := validateCategoryName(name); err != nil {
			return nil, err
		}
		existing.Name = name
	}
	existing.Color = orDefault(req.Color, existing.Color)
	existing.Icon = orDefault(req.Icon, existing.Icon)

	updated, err := s.store.UpdateCategory(ctx, existing)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return updated, nil
}

func validateCategoryName(name string) error {
	if name == "" {
		return &domain.ErrValidation{Field: "name", Message: "name is required"}
	}
	if len([]rune(name)) > maxCategoryName {
		return &domain.ErrValidation{Field: "name", Message: fmt.Sprintf("name must be at most %d characters", maxCategoryName)}
	}
	return nil
}

// categoryIndex loads the catalog keyed by id.
func (s *LedgerService) categoryIndex(ctx context.Context) (map[string]domain.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		s.metrics.IncrStoreError("categories")
		return nil, fmt.Errorf("categories fetch: %w", err)
	}
	idx := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		idx[c.ID] = c
	}
	return idx, nil
}

// requireCategory turns a missing category into a NotFound on the input
// field rather than a store error.
func (s *LedgerService) requireCategory(ctx context.Context, id string) (*domain.Category, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &domain.ErrValidation{Field: "categoryId", Message: "categoryId is required"}
	}
	return s.store.GetCategory(ctx, id)
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v != "" {
		return v
	}
	return def
}

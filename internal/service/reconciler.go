package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/infra/observability"
	"github.com/yosef2222/FinanceTracker/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("service/engine")

// Reconciler joins budgets with the spending recorded in a period.
type Reconciler struct {
	catalog port.CategoryCatalog
	ledger  port.TransactionLedger
	budgets port.BudgetStore
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewReconciler creates the reconciler with its stores injected.
func NewReconciler(
	catalog port.CategoryCatalog,
	ledger port.TransactionLedger,
	budgets port.BudgetStore,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		catalog: catalog,
		ledger:  ledger,
		budgets: budgets,
		metrics: metrics,
		logger:  logger,
	}
}

// Reconcile reads the catalog, the user's budgets and the period's
// transactions concurrently, then joins them. Any read failure aborts the
// whole call.
func (r *Reconciler) Reconcile(ctx context.Context, userID string, period domain.Period) ([]domain.CategorySpending, error) {
	ctx, span := tracer.Start(ctx, "Reconciler.Reconcile")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("period.start", period.Start.Format(time.DateOnly)),
		attribute.String("period.end", period.End.Format(time.DateOnly)),
	)

	start := time.Now()
	defer func() {
		r.metrics.RecordRequestDuration("reconcile", time.Since(start))
	}()

	var (
		categories   []domain.Category
		budgets      []domain.Budget
		transactions []domain.Transaction
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, err := r.catalog.ListCategories(gCtx)
		if err != nil {
			r.metrics.IncrStoreError("categories")
			return fmt.Errorf("categories fetch: %w", err)
		}
		categories = c
		return nil
	})

	g.Go(func() error {
		b, err := r.budgets.ListBudgets(gCtx, userID)
		if err != nil {
			r.metrics.IncrStoreError("budgets")
			return fmt.Errorf("budgets fetch: %w", err)
		}
		budgets = b
		return nil
	})

	g.Go(func() error {
		t, err := r.ledger.ListTransactions(gCtx, userID, domain.PeriodFilter(period))
		if err != nil {
			r.metrics.IncrStoreError("transactions")
			return fmt.Errorf("transactions fetch: %w", err)
		}
		transactions = t
		return nil
	})

	if err := g.Wait(); err != nil {
		r.logger.Error("reconcile read failed", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	spendings, err := JoinSpending(categories, budgets, transactions, period)
	if err != nil {
		reportIntegrity(r.metrics, r.logger, userID, err)
		return nil, err
	}
	return spendings, nil
}

// JoinSpending is the pure reconcile join. One entry is produced per
// category that has a budget overlapping the period or a transaction inside
// it. Spent sums the category's in-period transactions; Budgeted sums its
// overlapping budgets. Output follows catalog order.
//
// A budget or in-period transaction whose category is not in the catalog
// yields *domain.ErrIntegrity.
func JoinSpending(
	categories []domain.Category,
	budgets []domain.Budget,
	transactions []domain.Transaction,
	period domain.Period,
) ([]domain.CategorySpending, error) {
	byID := make(map[string]domain.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	entries := make(map[string]*domain.CategorySpending)
	entry := func(c domain.Category) *domain.CategorySpending {
		e, ok := entries[c.ID]
		if !ok {
			e = &domain.CategorySpending{
				CategoryID: c.ID,
				Name:       c.Name,
				Color:      c.Color,
				Icon:       c.Icon,
				Spent:      decimal.Zero,
				Budgeted:   decimal.Zero,
			}
			entries[c.ID] = e
		}
		return e
	}

	for _, b := range budgets {
		if !b.Window().Overlaps(period) {
			continue
		}
		c, ok := byID[b.CategoryID]
		if !ok {
			return nil, &domain.ErrIntegrity{Entity: "budget", ID: b.ID, CategoryID: b.CategoryID}
		}
		e := entry(c)
		e.Budgeted = e.Budgeted.Add(b.Amount)
	}

	for _, t := range transactions {
		if !period.Contains(t.Date) {
			continue
		}
		c, ok := byID[t.CategoryID]
		if !ok {
			return nil, &domain.ErrIntegrity{Entity: "transaction", ID: t.ID, CategoryID: t.CategoryID}
		}
		e := entry(c)
		e.Spent = e.Spent.Add(t.Amount)
	}

	out := make([]domain.CategorySpending, 0, len(entries))
	for _, e := range entries {
		out = append(out, *e)
	}
	sortByCatalog(out, byID)
	return out, nil
}

// sortByCatalog orders entries by catalog position, ties by category id.
func sortByCatalog(out []domain.CategorySpending, byID map[string]domain.Category) {
	sort.Slice(out, func(i, j int) bool {
		pi, pj := byID[out[i].CategoryID].Position, byID[out[j].CategoryID].Position
		if pi != pj {
			return pi < pj
		}
		return out[i].CategoryID < out[j].CategoryID
	})
}

// TotalSpent sums Spent over all entries.
func TotalSpent(spendings []domain.CategorySpending) decimal.Decimal {
	total := decimal.Zero
	for _, s := range spendings {
		total = total.Add(s.Spent)
	}
	return total
}

// TotalBudgeted sums Budgeted over all entries.
func TotalBudgeted(spendings []domain.CategorySpending) decimal.Decimal {
	total := decimal.Zero
	for _, s := range spendings {
		total = total.Add(s.Budgeted)
	}
	return total
}

func reportIntegrity(metrics *observability.Metrics, logger *zap.Logger, userID string, err error) {
	var ie *domain.ErrIntegrity
	if !errors.As(err, &ie) {
		return
	}
	metrics.IncrIntegrityError(ie.Entity)
	logger.Error("dangling category reference",
		zap.String("user_id", userID),
		zap.String("entity", ie.Entity),
		zap.String("entity_id", ie.ID),
		zap.String("category_id", ie.CategoryID),
	)
}

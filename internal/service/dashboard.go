package service

import (
	"context"
	"fmt"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/infra/observability"
	"github.com/yosef2222/FinanceTracker/internal/port"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Dashboard builds the consolidated current-state snapshot.
type Dashboard struct {
	catalog  port.CategoryCatalog
	ledger   port.TransactionLedger
	budgets  port.BudgetStore
	loans    port.LoanStore
	profiles port.ProfileStore
	timeout  time.Duration
	metrics  *observability.Metrics
	logger   *zap.Logger
}

// NewDashboard creates the aggregator. A zero timeout leaves the caller's
// deadline as the only bound on the store reads.
func NewDashboard(
	catalog port.CategoryCatalog,
	ledger port.TransactionLedger,
	budgets port.BudgetStore,
	loans port.LoanStore,
	profiles port.ProfileStore,
	timeout time.Duration,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *Dashboard {
	return &Dashboard{
		catalog:  catalog,
		ledger:   ledger,
		budgets:  budgets,
		loans:    loans,
		profiles: profiles,
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger,
	}
}

// BuildSnapshot assembles the snapshot for the calendar month containing
// asOf. The five store reads run concurrently; if any of them fails no
// snapshot is returned.
func (d *Dashboard) BuildSnapshot(ctx context.Context, userID string, asOf time.Time) (*domain.DashboardSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Dashboard.BuildSnapshot")
	defer span.End()
	span.SetAttributes(
		attribute.String("user.id", userID),
		attribute.String("as_of", asOf.UTC().Format(time.RFC3339)),
	)

	start := time.Now()
	defer func() {
		d.metrics.RecordRequestDuration("dashboard", time.Since(start))
	}()

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	period := domain.MonthOf(asOf)

	var (
		categories   []domain.Category
		budgets      []domain.Budget
		transactions []domain.Transaction
		loans        []domain.Loan
		profile      *domain.Profile
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c, err := d.catalog.ListCategories(gCtx)
		if err != nil {
			d.metrics.IncrStoreError("categories")
			return fmt.Errorf("categories fetch: %w", err)
		}
		categories = c
		return nil
	})

	g.Go(func() error {
		b, err := d.budgets.ListBudgets(gCtx, userID)
		if err != nil {
			d.metrics.IncrStoreError("budgets")
			return fmt.Errorf("budgets fetch: %w", err)
		}
		budgets = b
		return nil
	})

	g.Go(func() error {
		t, err := d.ledger.ListTransactions(gCtx, userID, domain.PeriodFilter(period))
		if err != nil {
			d.metrics.IncrStoreError("transactions")
			return fmt.Errorf("transactions fetch: %w", err)
		}
		transactions = t
		return nil
	})

	g.Go(func() error {
		l, err := d.loans.ListLoans(gCtx, userID)
		if err != nil {
			d.metrics.IncrStoreError("loans")
			return fmt.Errorf("loans fetch: %w", err)
		}
		loans = l
		return nil
	})

	g.Go(func() error {
		p, err := d.profiles.GetProfile(gCtx, userID)
		if err != nil {
			d.metrics.IncrStoreError("profile")
			return fmt.Errorf("profile fetch: %w", err)
		}
		profile = p
		return nil
	})

	if err := g.Wait(); err != nil {
		d.fail(span, userID, err)
		return nil, err
	}

	spendings, err := JoinSpending(categories, budgets, transactions, period)
	if err != nil {
		reportIntegrity(d.metrics, d.logger, userID, err)
		d.fail(span, userID, err)
		return nil, err
	}

	snap := Compose(period, spendings, SummarizeActiveLoans(loans, asOf), TotalMonthlyPayment(loans), profile)
	d.metrics.IncrSnapshot("success")

	d.logger.Debug("snapshot built",
		zap.String("user_id", userID),
		zap.Int("categories", len(snap.CategorySpendings)),
		zap.Int("loans", len(snap.LoanSummaries)),
	)
	return snap, nil
}

func (d *Dashboard) fail(span trace.Span, userID string, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, "snapshot failed")
	d.metrics.IncrSnapshot("error")
	d.logger.Error("snapshot failed", zap.String("user_id", userID), zap.Error(err))
}

// Compose merges the already computed parts into a snapshot. It performs no
// I/O.
func Compose(
	period domain.Period,
	spendings []domain.CategorySpending,
	loans []domain.LoanSummary,
	monthlyPayment decimal.Decimal,
	profile *domain.Profile,
) *domain.DashboardSnapshot {
	if spendings == nil {
		spendings = []domain.CategorySpending{}
	}
	if loans == nil {
		loans = []domain.LoanSummary{}
	}
	return &domain.DashboardSnapshot{
		Period:                period,
		TotalSpent:            TotalSpent(spendings),
		TotalBudget:           TotalBudgeted(spendings),
		CategorySpendings:     spendings,
		LoanSummaries:         loans,
		TotalMonthlyPayment:   monthlyPayment,
		Cushion:               profile.Cushion,
		Salary:                profile.Salary,
		FinancialGoal:         profile.FinancialGoal,
		FinancialGoalAmount:   profile.FinancialGoalAmount,
		FinancialGoalProgress: GoalProgress(profile.Cushion, profile.FinancialGoalAmount),
		FinancialGoalMonths:   profile.FinancialGoalMonths,
	}
}

var hundred = decimal.NewFromInt(100)

// GoalProgress is cushion/goal as a percentage in [0, 100], rounded to two
// decimals. A goal that is not positive yields 0.
func GoalProgress(cushion, goal decimal.Decimal) decimal.Decimal {
	if !goal.IsPositive() {
		return decimal.Zero
	}
	p := domain.Percent(cushion, goal)
	return domain.ClampAmount(p, decimal.Zero, hundred).Round(2)
}

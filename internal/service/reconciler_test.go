package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/infra/observability"
	"github.com/yosef2222/FinanceTracker/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	food      = domain.Category{ID: "cat-food", Name: "Food", Position: 1}
	transport = domain.Category{ID: "cat-transport", Name: "Transport", Position: 2}
	housing   = domain.Category{ID: "cat-housing", Name: "Housing", Position: 3}
	catalog   = []domain.Category{housing, transport, food}
	march     = domain.NewPeriod(day(2025, 3, 1), day(2025, 3, 31))
)

func tx(id, categoryID, amount string, date time.Time) domain.Transaction {
	return domain.Transaction{ID: id, CategoryID: categoryID, Amount: dec(amount), Date: date}
}

func budget(id, categoryID, amount string, start, end time.Time) domain.Budget {
	return domain.Budget{ID: id, CategoryID: categoryID, Amount: dec(amount), StartDate: start, EndDate: end}
}

func TestJoinSpending_GroupsAndJoinsBudgets(t *testing.T) {
	txs := []domain.Transaction{
		tx("t1", food.ID, "100", day(2025, 3, 3)),
		tx("t2", food.ID, "50", day(2025, 3, 20)),
		tx("t3", transport.ID, "30", day(2025, 3, 5)),
	}
	budgets := []domain.Budget{budget("b1", food.ID, "120", day(2025, 3, 1), day(2025, 3, 31))}

	got, err := service.JoinSpending(catalog, budgets, txs, march)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, food.ID, got[0].CategoryID)
	assert.Equal(t, "Food", got[0].Name)
	assert.True(t, got[0].Spent.Equal(dec("150")))
	assert.True(t, got[0].Budgeted.Equal(dec("120")))

	assert.Equal(t, transport.ID, got[1].CategoryID)
	assert.True(t, got[1].Spent.Equal(dec("30")))
	assert.True(t, got[1].Budgeted.IsZero())
}

func TestJoinSpending_BudgetWithoutSpendingIsListed(t *testing.T) {
	budgets := []domain.Budget{budget("b1", housing.ID, "900", day(2025, 2, 15), day(2025, 3, 14))}

	got, err := service.JoinSpending(catalog, budgets, nil, march)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, housing.ID, got[0].CategoryID)
	assert.True(t, got[0].Spent.IsZero())
	assert.True(t, got[0].Budgeted.Equal(dec("900")))
}

func TestJoinSpending_IgnoresOutOfPeriodData(t *testing.T) {
	txs := []domain.Transaction{
		tx("t1", food.ID, "10", day(2025, 2, 28)),
		tx("t2", food.ID, "20", day(2025, 3, 31).Add(23*time.Hour+59*time.Minute)),
		tx("t3", food.ID, "40", day(2025, 4, 1)),
	}
	budgets := []domain.Budget{budget("b1", transport.ID, "75", day(2025, 4, 1), day(2025, 4, 30))}

	got, err := service.JoinSpending(catalog, budgets, txs, march)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Spent.Equal(dec("20")), "last day of the period is inclusive")
}

func TestJoinSpending_SumsOverlappingBudgetsOnce(t *testing.T) {
	budgets := []domain.Budget{
		budget("b1", food.ID, "100", day(2025, 3, 1), day(2025, 3, 15)),
		budget("b2", food.ID, "80", day(2025, 3, 16), day(2025, 3, 31)),
	}

	got, err := service.JoinSpending(catalog, budgets, nil, march)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Budgeted.Equal(dec("180")))
}

func TestJoinSpending_TotalsMatchTransactions(t *testing.T) {
	txs := []domain.Transaction{
		tx("t1", food.ID, "12.34", day(2025, 3, 1)),
		tx("t2", housing.ID, "800", day(2025, 3, 2)),
		tx("t3", transport.ID, "0.66", day(2025, 3, 9)),
		tx("t4", food.ID, "7", day(2025, 3, 30)),
	}

	got, err := service.JoinSpending(catalog, nil, txs, march)
	require.NoError(t, err)

	want := decimal.Zero
	for _, x := range txs {
		want = want.Add(x.Amount)
	}
	assert.True(t, service.TotalSpent(got).Equal(want))

	seen := map[string]bool{}
	for _, s := range got {
		assert.False(t, seen[s.CategoryID], "duplicate category %s", s.CategoryID)
		seen[s.CategoryID] = true
	}
	// catalog order: food(1), transport(2), housing(3)
	assert.Equal(t, []string{food.ID, transport.ID, housing.ID},
		[]string{got[0].CategoryID, got[1].CategoryID, got[2].CategoryID})
}

func TestJoinSpending_EmptyInputs(t *testing.T) {
	got, err := service.JoinSpending(catalog, nil, nil, march)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.True(t, service.TotalBudgeted(got).IsZero())
}

func TestJoinSpending_DanglingCategoryIsIntegrityError(t *testing.T) {
	txs := []domain.Transaction{tx("t1", "cat-gone", "5", day(2025, 3, 3))}

	_, err := service.JoinSpending(catalog, nil, txs, march)

	var ie *domain.ErrIntegrity
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, "transaction", ie.Entity)
	assert.Equal(t, "cat-gone", ie.CategoryID)
}

func TestReconcile_WithStore(t *testing.T) {
	store, cats := seededStore(t)
	addTx(t, store, cats["Food"].ID, "100", day(2025, 3, 3))
	addTx(t, store, cats["Food"].ID, "50", day(2025, 3, 10))
	addTx(t, store, cats["Transport"].ID, "30", day(2025, 3, 12))
	addTx(t, store, cats["Transport"].ID, "999", day(2025, 2, 12))
	addBudget(t, store, cats["Food"].ID, "120", day(2025, 3, 1), day(2025, 3, 31))

	metrics := observability.NewMetrics()
	r := service.NewReconciler(store, store, store, metrics, zap.NewNop())

	got, err := r.Reconcile(context.Background(), testUser, march)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Food", got[0].Name)
	assert.True(t, got[0].Spent.Equal(dec("150")))
	assert.True(t, got[0].Budgeted.Equal(dec("120")))
	assert.Equal(t, "Transport", got[1].Name)
	assert.True(t, got[1].Spent.Equal(dec("30")))
}

func TestReconcile_OtherUsersDataExcluded(t *testing.T) {
	store, cats := seededStore(t)
	_, err := store.CreateTransaction(context.Background(), &domain.Transaction{
		UserID: "someone-else", Amount: dec("77"), Date: day(2025, 3, 3), Merchant: "x", CategoryID: cats["Food"].ID,
	})
	require.NoError(t, err)

	r := service.NewReconciler(store, store, store, observability.NewMetrics(), zap.NewNop())
	got, err := r.Reconcile(context.Background(), testUser, march)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReconcile_ReadFailureFailsWholeCall(t *testing.T) {
	store, _ := seededStore(t)
	r := service.NewReconciler(store, brokenLedger{store}, store, observability.NewMetrics(), zap.NewNop())

	got, err := r.Reconcile(context.Background(), testUser, march)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Nil(t, got)
}

func TestReconcile_IntegrityFailureIsCounted(t *testing.T) {
	store, _ := seededStore(t)
	addTx(t, store, "cat-missing", "10", day(2025, 3, 3))

	metrics := observability.NewMetrics()
	r := service.NewReconciler(store, store, store, metrics, zap.NewNop())

	_, err := r.Reconcile(context.Background(), testUser, march)
	var ie *domain.ErrIntegrity
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, int64(1), metrics.GetEngineSnapshot().IntegrityFailures)
}

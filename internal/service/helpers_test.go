package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/infra/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// --- Fixtures ---

const testUser = "user-1"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// seededStore returns a memory store with a profile for testUser and the
// seeded catalog indexed by name.
func seededStore(t *testing.T) (*memory.Store, map[string]domain.Category) {
	t.Helper()
	store := memory.New()
	err := store.CreateUser(context.Background(),
		&domain.Credential{UserID: testUser, Email: "ana@example.com", PasswordHash: "x", CreatedAt: day(2025, 1, 1)},
		&domain.Profile{
			UserID:              testUser,
			FullName:            "Ana",
			Email:               "ana@example.com",
			Salary:              dec("5000"),
			Cushion:             dec("60000"),
			FinancialGoal:       "Flat",
			FinancialGoalAmount: dec("120000"),
			FinancialGoalMonths: 24,
		},
	)
	require.NoError(t, err)

	cats, err := store.ListCategories(context.Background())
	require.NoError(t, err)
	byName := make(map[string]domain.Category, len(cats))
	for _, c := range cats {
		byName[c.Name] = c
	}
	return store, byName
}

func addTx(t *testing.T, store *memory.Store, categoryID, amount string, date time.Time) {
	t.Helper()
	_, err := store.CreateTransaction(context.Background(), &domain.Transaction{
		UserID:     testUser,
		Amount:     dec(amount),
		Date:       date,
		Merchant:   "shop",
		CategoryID: categoryID,
	})
	require.NoError(t, err)
}

func addBudget(t *testing.T, store *memory.Store, categoryID, amount string, start, end time.Time) {
	t.Helper()
	_, err := store.CreateBudget(context.Background(), &domain.Budget{
		UserID:     testUser,
		Amount:     dec(amount),
		StartDate:  start,
		EndDate:    end,
		CategoryID: categoryID,
	})
	require.NoError(t, err)
}

// --- Mocks ---

var errStoreDown = errors.New("store unavailable")

// brokenLedger fails every transaction read.
type brokenLedger struct {
	*memory.Store
}

func (b brokenLedger) ListTransactions(context.Context, string, domain.TransactionFilter) ([]domain.Transaction, error) {
	return nil, errStoreDown
}

// brokenProfiles fails every profile read.
type brokenProfiles struct {
	*memory.Store
}

func (b brokenProfiles) GetProfile(context.Context, string) (*domain.Profile, error) {
	return nil, errStoreDown
}

// mockInference returns canned answers and records requests.
type mockInference struct {
	mu       sync.Mutex
	answer   string
	err      error
	requests []*domain.CompletionRequest
}

func (m *mockInference) Complete(_ context.Context, req *domain.CompletionRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.answer, m.err
}

func (m *mockInference) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

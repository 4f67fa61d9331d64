package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/handler"
	"github.com/yosef2222/FinanceTracker/internal/infra/cache"
	"github.com/yosef2222/FinanceTracker/internal/infra/inference"
	"github.com/yosef2222/FinanceTracker/internal/infra/memory"
	"github.com/yosef2222/FinanceTracker/internal/infra/observability"
	"github.com/yosef2222/FinanceTracker/internal/infra/resilience"
	"github.com/yosef2222/FinanceTracker/internal/service"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// inferenceServer mimics the completion endpoint. Parse prompts get a
// fenced JSON answer; everything else gets a fixed piece of advice.
func inferenceServer(t *testing.T, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)

		var req struct {
			Messages []domain.Message `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) < 2 {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		text := "Cut down on taxis and keep the food budget."
		if strings.Contains(req.Messages[0].Text, "record financial transactions") {
			text = "```json\n{\"amount\": 450, \"merchant\": \"Yandex Go\", \"description\": \"taxi home\", \"category\": \"Transport\"}\n```"
		}

		resp := map[string]any{
			"result": map[string]any{
				"alternatives": []map[string]any{
					{"message": map[string]string{"role": "assistant", "text": text}, "status": "ALTERNATIVE_STATUS_FINAL"},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

type client struct {
	t      *testing.T
	server *httptest.Server
	token  string
}

func (c *client) call(method, path string, body any, out any) int {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			c.t.Fatalf("encode body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.server.URL+path, &buf)
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			c.t.Fatalf("decode %s %s: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func (c *client) mustCall(method, path string, body any, want int, out any) {
	c.t.Helper()
	if got := c.call(method, path, body, out); got != want {
		c.t.Fatalf("%s %s: expected %d, got %d", method, path, want, got)
	}
}

// TestIntegration_FullFlow wires the real services over the in-memory store
// and drives them through HTTP like a client would.
func TestIntegration_FullFlow(t *testing.T) {
	var inferenceCalls int32
	upstream := inferenceServer(t, &inferenceCalls)
	defer upstream.Close()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.New()

	guard := resilience.NewGuard("inference", resilience.Config{
		MaxRetries:     1,
		InitialBackoff: time.Millisecond,
		MaxConcurrency: 4,
	})
	inf := inference.NewClient(&http.Client{Timeout: 5 * time.Second}, inference.Options{
		URL:      upstream.URL,
		FolderID: "folder-1",
		Token:    "token-1",
		Model:    "yandexgpt-lite",
	}, guard, metrics, logger)

	adviceCache := cache.New[domain.Advice](time.Hour)
	defer adviceCache.Close()

	ledger := service.NewLedgerService(store, metrics, logger)
	router := handler.NewRouter(&handler.Services{
		Auth:       service.NewAuthService(store, "integration-secret", time.Hour, logger),
		Ledger:     ledger,
		Reconciler: service.NewReconciler(store, store, store, metrics, logger),
		Dashboard:  service.NewDashboard(store, store, store, store, store, 5*time.Second, metrics, logger),
		Assistant:  service.NewAssistant(ledger, inf, adviceCache, time.Hour, metrics, logger),
		Checks: []handler.HealthCheck{
			{Name: "store", Critical: true, Check: store.Ping},
		},
	}, []string{"*"}, metrics, logger)

	server := httptest.NewServer(router)
	defer server.Close()

	c := &client{t: t, server: server}

	// --- Register & profile ---
	var tok domain.TokenResponse
	c.mustCall(http.MethodPost, "/v1/auth/register", domain.RegisterRequest{
		FullName: "Integration User",
		Email:    "integration@example.com",
		Password: "integration-pass",
	}, http.StatusCreated, &tok)
	c.token = tok.AccessToken

	cushion, goal, months := decimal.NewFromInt(30000), decimal.NewFromInt(120000), 12
	c.mustCall(http.MethodPut, "/v1/profile", domain.ProfileUpdate{
		Cushion:             &cushion,
		FinancialGoalAmount: &goal,
		FinancialGoalMonths: &months,
	}, http.StatusOK, nil)

	var categories []domain.Category
	c.mustCall(http.MethodGet, "/v1/categories", nil, http.StatusOK, &categories)
	ids := map[string]string{}
	for _, cat := range categories {
		ids[cat.Name] = cat.ID
	}

	// --- Ledger ---
	c.mustCall(http.MethodPost, "/v1/budgets", domain.BudgetRequest{
		Amount:     decimal.NewFromInt(500),
		StartDate:  time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC),
		CategoryID: ids["Food"],
	}, http.StatusCreated, nil)

	for _, tx := range []domain.TransactionRequest{
		{Amount: decimal.NewFromInt(120), Date: time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), Merchant: "Market", CategoryID: ids["Food"]},
		{Amount: decimal.NewFromInt(80), Date: time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC), Merchant: "Cafe", CategoryID: ids["Food"]},
		{Amount: decimal.NewFromInt(60), Date: time.Date(2025, 3, 12, 0, 0, 0, 0, time.UTC), Merchant: "Metro", CategoryID: ids["Transport"]},
		{Amount: decimal.NewFromInt(999), Date: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), Merchant: "Market", CategoryID: ids["Food"]},
	} {
		c.mustCall(http.MethodPost, "/v1/transactions", tx, http.StatusCreated, nil)
	}

	var loan domain.Loan
	c.mustCall(http.MethodPost, "/v1/loans", domain.LoanRequest{
		Amount:         decimal.NewFromInt(100000),
		TermMonths:     5,
		MonthlyPayment: decimal.NewFromInt(20000),
		InterestRate:   decimal.NewFromInt(12),
		Type:           "car",
		StartDate:      time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}, http.StatusCreated, &loan)

	var projection domain.LoanProjection
	c.mustCall(http.MethodGet, fmt.Sprintf("/v1/loans/%s/projection?asOf=2025-03-15", loan.ID), nil, http.StatusOK, &projection)
	if !projection.PaidAmount.Equal(decimal.NewFromInt(40000)) || projection.RemainingMonths != 3 {
		t.Errorf("unexpected projection: paid %s, remaining months %d", projection.PaidAmount, projection.RemainingMonths)
	}

	// --- Dashboard ---
	var snap domain.DashboardSnapshot
	c.mustCall(http.MethodGet, "/v1/dashboard?asOf=2025-03-15", nil, http.StatusOK, &snap)

	if !snap.TotalSpent.Equal(decimal.NewFromInt(260)) {
		t.Errorf("expected total spent 260, got %s", snap.TotalSpent)
	}
	if !snap.TotalBudget.Equal(decimal.NewFromInt(500)) {
		t.Errorf("expected total budget 500, got %s", snap.TotalBudget)
	}
	if len(snap.CategorySpendings) != 2 {
		t.Fatalf("expected 2 category spendings, got %d", len(snap.CategorySpendings))
	}
	if snap.CategorySpendings[0].Name != "Food" || !snap.CategorySpendings[0].Spent.Equal(decimal.NewFromInt(200)) {
		t.Errorf("unexpected first category: %+v", snap.CategorySpendings[0])
	}
	if len(snap.LoanSummaries) != 1 || !snap.TotalMonthlyPayment.Equal(decimal.NewFromInt(20000)) {
		t.Errorf("unexpected loans: %+v, monthly %s", snap.LoanSummaries, snap.TotalMonthlyPayment)
	}
	if !snap.FinancialGoalProgress.Equal(decimal.NewFromInt(25)) {
		t.Errorf("expected goal progress 25, got %s", snap.FinancialGoalProgress)
	}

	// --- Assistant ---
	var parsed domain.ParsedTransaction
	c.mustCall(http.MethodPost, "/v1/transactions/parse", domain.ParseRequest{Prompt: "450 for a taxi home"}, http.StatusOK, &parsed)
	if parsed.IsFallback || parsed.CategoryID != ids["Transport"] || !parsed.Amount.Equal(decimal.NewFromInt(450)) {
		t.Errorf("unexpected parse result: %+v", parsed)
	}

	var first, second domain.Advice
	c.mustCall(http.MethodGet, "/v1/advice", nil, http.StatusOK, &first)
	c.mustCall(http.MethodGet, "/v1/advice", nil, http.StatusOK, &second)
	if first.Text != "Cut down on taxis and keep the food budget." || second.Text != first.Text {
		t.Errorf("unexpected advice: %q / %q", first.Text, second.Text)
	}
	if got := atomic.LoadInt32(&inferenceCalls); got != 2 {
		t.Errorf("expected 2 inference calls (parse + one advice), got %d", got)
	}

	var engine domain.EngineMetrics
	c.mustCall(http.MethodGet, "/v1/metrics/engine", nil, http.StatusOK, &engine)
	if engine.SnapshotsBuilt != 1 || engine.ParseFallbacks != 0 || engine.AdviceCacheHitRate != 0.5 {
		t.Errorf("unexpected engine metrics: %+v", engine)
	}

	// --- Operational ---
	c.token = ""
	c.mustCall(http.MethodGet, "/healthz", nil, http.StatusOK, nil)
	c.mustCall(http.MethodGet, "/readyz", nil, http.StatusOK, nil)
	c.mustCall(http.MethodGet, "/v1/dashboard", nil, http.StatusUnauthorized, nil)
}

// TestIntegration_InferenceDown checks that an unreachable inference
// endpoint degrades parse and advice instead of failing them.
func TestIntegration_InferenceDown(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	store := memory.New()

	guard := resilience.NewGuard("inference", resilience.Config{MaxRetries: 1, InitialBackoff: time.Millisecond, MaxConcurrency: 2})
	inf := inference.NewClient(&http.Client{Timeout: time.Second}, inference.Options{URL: upstream.URL, Model: "m"}, guard, metrics, logger)

	adviceCache := cache.New[domain.Advice](time.Hour)
	defer adviceCache.Close()

	ledger := service.NewLedgerService(store, metrics, logger)
	router := handler.NewRouter(&handler.Services{
		Auth:       service.NewAuthService(store, "integration-secret", time.Hour, logger),
		Ledger:     ledger,
		Reconciler: service.NewReconciler(store, store, store, metrics, logger),
		Dashboard:  service.NewDashboard(store, store, store, store, store, time.Second, metrics, logger),
		Assistant:  service.NewAssistant(ledger, inf, adviceCache, time.Hour, metrics, logger),
	}, []string{"*"}, metrics, logger)

	server := httptest.NewServer(router)
	defer server.Close()
	c := &client{t: t, server: server}

	var tok domain.TokenResponse
	c.mustCall(http.MethodPost, "/v1/auth/register", domain.RegisterRequest{
		FullName: "Down", Email: "down@example.com", Password: "integration-pass",
	}, http.StatusCreated, &tok)
	c.token = tok.AccessToken

	var parsed domain.ParsedTransaction
	c.mustCall(http.MethodPost, "/v1/transactions/parse", domain.ParseRequest{Prompt: "lunch 300"}, http.StatusOK, &parsed)
	if !parsed.IsFallback || parsed.Description != "lunch 300" {
		t.Errorf("expected fallback parse, got %+v", parsed)
	}

	var advice domain.Advice
	c.mustCall(http.MethodGet, "/v1/advice", nil, http.StatusOK, &advice)
	if advice.Text != service.GenericAdvice {
		t.Errorf("expected generic advice, got %q", advice.Text)
	}
}

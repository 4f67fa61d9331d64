package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/infra/observability"
	"github.com/yosef2222/FinanceTracker/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// HealthCheck probes one dependency for /healthz and /readyz.
type HealthCheck struct {
	Name string
	// Critical checks fail /readyz; the rest only degrade /healthz.
	Critical bool
	Check    func(ctx context.Context) error
}

// Services bundles what the routes call into.
type Services struct {
	Auth       *service.AuthService
	Ledger     *service.LedgerService
	Reconciler *service.Reconciler
	Dashboard  *service.Dashboard
	Assistant  *service.Assistant
	Checks     []HealthCheck
}

// NewRouter creates the HTTP router with all routes and middleware.
// Every /v1 route except /v1/auth requires a Bearer access token.
func NewRouter(svc *Services, corsOrigins []string, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(observability.MetricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler(svc.Checks, logger))
	r.Get("/readyz", readyzHandler(svc.Checks))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		// Public
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authRegisterHandler(svc.Auth, logger))
			r.Post("/login", authLoginHandler(svc.Auth, logger))
		})

		// Protected
		r.Group(func(r chi.Router) {
			r.Use(JWTAuthMiddleware(svc.Auth, logger))

			// Profile
			r.Get("/profile", getProfileHandler(svc.Ledger, logger))
			r.Put("/profile", updateProfileHandler(svc.Ledger, logger))

			// Category catalog
			r.Get("/categories", listCategoriesHandler(svc.Ledger, logger))
			r.With(RequireAdmin(logger)).Post("/categories", createCategoryHandler(svc.Ledger, logger))
			r.Get("/categories/{id}", getCategoryHandler(svc.Ledger, logger))
			r.With(RequireAdmin(logger)).Put("/categories/{id}", updateCategoryHandler(svc.Ledger, logger))

			// Transactions
			r.Get("/transactions", listTransactionsHandler(svc.Ledger, logger))
			r.Post("/transactions", createTransactionHandler(svc.Ledger, logger))
			r.Post("/transactions/parse", parseTransactionHandler(svc.Assistant, logger))
			r.Get("/transactions/{id}", getTransactionHandler(svc.Ledger, logger))
			r.Put("/transactions/{id}", updateTransactionHandler(svc.Ledger, logger))
			r.Delete("/transactions/{id}", deleteTransactionHandler(svc.Ledger, logger))

			// Budgets
			r.Get("/budgets", listBudgetsHandler(svc.Ledger, logger))
			r.Post("/budgets", createBudgetHandler(svc.Ledger, logger))
			r.Get("/budgets/spending", spendingHandler(svc.Reconciler, logger))
			r.Get("/budgets/{id}", getBudgetHandler(svc.Ledger, logger))
			r.Put("/budgets/{id}", updateBudgetHandler(svc.Ledger, logger))
			r.Delete("/budgets/{id}", deleteBudgetHandler(svc.Ledger, logger))

			// Loans
			r.Get("/loans", listLoansHandler(svc.Ledger, logger))
			r.Post("/loans", createLoanHandler(svc.Ledger, logger))
			r.Get("/loans/active", listActiveLoansHandler(svc.Ledger, logger))
			r.Get("/loans/monthly-payment", monthlyPaymentHandler(svc.Ledger, logger))
			r.Get("/loans/type/{type}", listLoansByTypeHandler(svc.Ledger, logger))
			r.Get("/loans/{id}", getLoanHandler(svc.Ledger, logger))
			r.Put("/loans/{id}", updateLoanHandler(svc.Ledger, logger))
			r.Delete("/loans/{id}", deleteLoanHandler(svc.Ledger, logger))
			r.Get("/loans/{id}/projection", loanProjectionHandler(svc.Ledger, logger))

			// Aggregation & assistant
			r.Get("/dashboard", dashboardHandler(svc.Dashboard, logger))
			r.Get("/advice", adviceHandler(svc.Assistant, logger))
			r.Get("/metrics/engine", engineMetricsHandler(metrics))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func runChecks(ctx context.Context, checks []HealthCheck) (string, []domain.ServiceHealth) {
	now := time.Now().UTC().Format(time.RFC3339)
	services := []domain.ServiceHealth{
		{Name: "finhelper-api", Status: "healthy", LastChecked: now},
	}
	overall := "healthy"

	for _, c := range checks {
		start := time.Now()
		err := c.Check(ctx)
		h := domain.ServiceHealth{
			Name:        c.Name,
			Status:      "healthy",
			LatencyMs:   time.Since(start).Milliseconds(),
			LastChecked: now,
		}
		if err != nil {
			h.Error = err.Error()
			h.Status = "degraded"
			if c.Critical {
				h.Status = "unhealthy"
			}
		}
		switch {
		case h.Status == "unhealthy":
			overall = "unhealthy"
		case h.Status == "degraded" && overall == "healthy":
			overall = "degraded"
		}
		services = append(services, h)
	}
	return overall, services
}

func healthzHandler(checks []HealthCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status, services := runChecks(ctx, checks)
		if status != "healthy" {
			logger.Warn("health check not healthy", zap.String("status", status))
		}

		code := http.StatusOK
		if status == "unhealthy" {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, domain.HealthStatus{Status: status, Services: services})
	}
}

func readyzHandler(checks []HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		for _, c := range checks {
			if !c.Critical {
				continue
			}
			if err := c.Check(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "dependency": c.Name})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func engineMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetEngineSnapshot())
	}
}

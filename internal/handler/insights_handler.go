package handler

import (
	"net/http"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Dashboard, spending, parse & advice
// ============================================================

func dashboardHandler(dashboard *service.Dashboard, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/dashboard")
		defer span.End()

		asOf, err := asOfParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("dashboard.as_of", asOf.Format("2006-01-02")))

		snapshot, err := dashboard.BuildSnapshot(ctx, UserIDFromContext(ctx), asOf)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, snapshot)
	}
}

// spendingHandler reconciles an explicit window. Without dates it covers
// the current calendar month.
func spendingHandler(reconciler *service.Reconciler, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/budgets/spending")
		defer span.End()

		from, err := parseDateParam(r, "startDate")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		to, err := parseDateParam(r, "endDate")
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		period := domain.MonthOf(time.Now())
		switch {
		case from != nil && to != nil:
			period = domain.NewPeriod(*from, *to)
		case from != nil || to != nil:
			handleServiceError(w, &domain.ErrValidation{Field: "endDate", Message: "startDate and endDate must be given together"}, logger)
			return
		}
		if period.End.Before(period.Start) {
			handleServiceError(w, &domain.ErrValidation{Field: "endDate", Message: "must not be before startDate"}, logger)
			return
		}

		spendings, err := reconciler.Reconcile(ctx, UserIDFromContext(ctx), period)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, spendings)
	}
}

func parseTransactionHandler(assistant *service.Assistant, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/transactions/parse")
		defer span.End()

		var req domain.ParseRequest
		if !decodeBody(w, r, &req) {
			return
		}

		parsed, err := assistant.ParseTransaction(ctx, req.Prompt)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Bool("parse.fallback", parsed.IsFallback))
		writeJSON(w, http.StatusOK, parsed)
	}
}

func adviceHandler(assistant *service.Assistant, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/advice")
		defer span.End()

		advice, err := assistant.GenerateAdvice(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, advice)
	}
}

package handler

import (
	"net/http"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ============================================================
// Loans
// ============================================================

func listLoansHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans")
		defer span.End()

		loans, err := ledger.ListLoans(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loans)
	}
}

func listActiveLoansHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans/active")
		defer span.End()

		loans, err := ledger.ListActiveLoans(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loans)
	}
}

func listLoansByTypeHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans/type/{type}")
		defer span.End()

		loans, err := ledger.ListLoansByType(ctx, UserIDFromContext(ctx), chi.URLParam(r, "type"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loans)
	}
}

func monthlyPaymentHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans/monthly-payment")
		defer span.End()

		total, err := ledger.MonthlyPayment(ctx, UserIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, total)
	}
}

func getLoanHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans/{id}")
		defer span.End()

		loan, err := ledger.GetLoan(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loan)
	}
}

func loanProjectionHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/loans/{id}/projection")
		defer span.End()

		asOf, err := asOfParam(r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		projection, err := ledger.ProjectLoan(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"), asOf)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, projection)
	}
}

func createLoanHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/loans")
		defer span.End()

		var req domain.LoanRequest
		if !decodeBody(w, r, &req) {
			return
		}

		loan, err := ledger.CreateLoan(ctx, UserIDFromContext(ctx), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, loan)
	}
}

func updateLoanHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/loans/{id}")
		defer span.End()

		var req domain.LoanRequest
		if !decodeBody(w, r, &req) {
			return
		}

		loan, err := ledger.UpdateLoan(ctx, UserIDFromContext(ctx), chi.URLParam(r, "id"), &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, loan)
	}
}

func deleteLoanHandler(ledger *service.LedgerService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/loans/{id}")
		defer span.End()

		id := chi.URLParam(r, "id")
		if err := ledger.DeleteLoan(ctx, UserIDFromContext(ctx), id); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, domain.SuccessResponse{Message: "loan deleted", ID: id})
	}
}

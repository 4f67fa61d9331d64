package postgres

import (
	"context"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const loanColumns = `id, user_id, amount, term_months, monthly_payment, interest_rate, type, start_date, status`

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var (
		l      domain.Loan
		status string
	)
	if err := row.Scan(&l.ID, &l.UserID, &l.Amount, &l.TermMonths, &l.MonthlyPayment, &l.InterestRate, &l.Type, &l.StartDate, &status); err != nil {
		return nil, err
	}
	l.Status = domain.LoanStatus(status)
	l.StartDate = l.StartDate.UTC()
	return &l, nil
}

func (s *Store) ListLoans(ctx context.Context, userID string) ([]domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListLoans")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE user_id = $1 ORDER BY start_date DESC, id`, userID)
	if err != nil {
		return nil, s.mapError("list loans", "loan", "", err)
	}
	defer rows.Close()

	out := make([]domain.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows)
		if err != nil {
			return nil, s.mapError("scan loan", "loan", "", err)
		}
		out = append(out, *l)
	}
	return out, s.mapError("list loans", "loan", "", rows.Err())
}

func (s *Store) GetLoan(ctx context.Context, userID, id string) (*domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetLoan")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: id}
	}
	l, err := scanLoan(s.pool.QueryRow(ctx,
		`SELECT `+loanColumns+` FROM loans WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, s.mapError("get loan", "loan", id, err)
	}
	return l, nil
}

func (s *Store) CreateLoan(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateLoan")
	defer span.End()

	id := uuid.New().String()
	created, err := scanLoan(s.pool.QueryRow(ctx, `
		INSERT INTO loans (id, user_id, amount, term_months, monthly_payment, interest_rate, type, start_date, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+loanColumns,
		id, l.UserID, l.Amount, l.TermMonths, l.MonthlyPayment, l.InterestRate, l.Type, l.StartDate, string(l.Status),
	))
	if err != nil {
		return nil, s.mapError("create loan", "loan", id, err)
	}
	return created, nil
}

func (s *Store) UpdateLoan(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateLoan")
	defer span.End()

	updated, err := scanLoan(s.pool.QueryRow(ctx, `
		UPDATE loans
		SET amount = $3, term_months = $4, monthly_payment = $5, interest_rate = $6,
		    type = $7, start_date = $8, status = $9
		WHERE id = $1 AND user_id = $2
		RETURNING `+loanColumns,
		l.ID, l.UserID, l.Amount, l.TermMonths, l.MonthlyPayment, l.InterestRate, l.Type, l.StartDate, string(l.Status),
	))
	if err != nil {
		return nil, s.mapError("update loan", "loan", l.ID, err)
	}
	return updated, nil
}

func (s *Store) DeleteLoan(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "Postgres.DeleteLoan")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return &domain.ErrNotFound{Resource: "loan", ID: id}
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM loans WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return s.mapError("delete loan", "loan", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "loan", ID: id}
	}
	return nil
}

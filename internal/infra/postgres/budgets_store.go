package postgres

import (
	"context"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const budgetColumns = `id, user_id, amount, start_date, end_date, category_id`

func scanBudget(row pgx.Row) (*domain.Budget, error) {
	var b domain.Budget
	if err := row.Scan(&b.ID, &b.UserID, &b.Amount, &b.StartDate, &b.EndDate, &b.CategoryID); err != nil {
		return nil, err
	}
	b.StartDate, b.EndDate = domain.Day(b.StartDate), domain.Day(b.EndDate)
	return &b, nil
}

func (s *Store) ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListBudgets")
	defer span.End()

	rows, err := s.pool.Query(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE user_id = $1 ORDER BY start_date, id`, userID)
	if err != nil {
		return nil, s.mapError("list budgets", "budget", "", err)
	}
	defer rows.Close()

	out := make([]domain.Budget, 0)
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, s.mapError("scan budget", "budget", "", err)
		}
		out = append(out, *b)
	}
	return out, s.mapError("list budgets", "budget", "", rows.Err())
}

func (s *Store) GetBudget(ctx context.Context, userID, id string) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetBudget")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, &domain.ErrNotFound{Resource: "budget", ID: id}
	}
	b, err := scanBudget(s.pool.QueryRow(ctx,
		`SELECT `+budgetColumns+` FROM budgets WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, s.mapError("get budget", "budget", id, err)
	}
	return b, nil
}

// CreateBudget checks for an overlapping window and inserts inside one
// SERIALIZABLE transaction, retried on serialization failures. The
// budgets_no_overlap exclusion constraint backs the same rule at the
// storage level.
func (s *Store) CreateBudget(ctx context.Context, b *domain.Budget) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateBudget")
	defer span.End()

	id := uuid.New().String()
	var created *domain.Budget
	err := s.serializable(ctx, func(tx pgx.Tx) error {
		if err := checkOverlap(ctx, tx, b, ""); err != nil {
			return err
		}
		var err error
		created, err = scanBudget(tx.QueryRow(ctx, `
			INSERT INTO budgets (id, user_id, amount, start_date, end_date, category_id)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING `+budgetColumns,
			id, b.UserID, b.Amount, b.StartDate, b.EndDate, b.CategoryID,
		))
		return err
	})
	if err != nil {
		return nil, s.mapError("create budget", "budget", id, err)
	}
	return created, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b *domain.Budget) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateBudget")
	defer span.End()

	var updated *domain.Budget
	err := s.serializable(ctx, func(tx pgx.Tx) error {
		if err := checkOverlap(ctx, tx, b, b.ID); err != nil {
			return err
		}
		var err error
		updated, err = scanBudget(tx.QueryRow(ctx, `
			UPDATE budgets
			SET amount = $3, start_date = $4, end_date = $5, category_id = $6
			WHERE id = $1 AND user_id = $2
			RETURNING `+budgetColumns,
			b.ID, b.UserID, b.Amount, b.StartDate, b.EndDate, b.CategoryID,
		))
		return err
	})
	if err != nil {
		return nil, s.mapError("update budget", "budget", b.ID, err)
	}
	return updated, nil
}

func (s *Store) DeleteBudget(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "Postgres.DeleteBudget")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return &domain.ErrNotFound{Resource: "budget", ID: id}
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM budgets WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return s.mapError("delete budget", "budget", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "budget", ID: id}
	}
	return nil
}

// checkOverlap looks for another budget of the same user and category whose
// inclusive window intersects b's. excludeID skips the budget being updated.
func checkOverlap(ctx context.Context, tx pgx.Tx, b *domain.Budget, excludeID string) error {
	var exists bool
	err := tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM budgets
			WHERE user_id = $1 AND category_id = $2
			  AND start_date <= $4 AND end_date >= $3
			  AND ($5 = '' OR id::text <> $5)
		)`,
		b.UserID, b.CategoryID, b.StartDate, b.EndDate, excludeID,
	).Scan(&exists)
	if err != nil {
		return err
	}
	if exists {
		return &domain.ErrConflict{Message: overlapMessage}
	}
	return nil
}

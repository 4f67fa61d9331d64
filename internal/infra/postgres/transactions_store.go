package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
)

const transactionColumns = `id, user_id, amount, date, merchant, description, category_id`

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	if err := row.Scan(&t.ID, &t.UserID, &t.Amount, &t.Date, &t.Merchant, &t.Description, &t.CategoryID); err != nil {
		return nil, err
	}
	t.Date = t.Date.UTC()
	return &t, nil
}

// ListTransactions applies the filter as [From day, To day + 1) so every
// instant on the last day is included.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	where := []string{"user_id = $1"}
	args := []any{userID}
	if filter.From != nil {
		args = append(args, domain.Day(*filter.From))
		where = append(where, fmt.Sprintf("date >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, domain.Day(*filter.To).AddDate(0, 0, 1))
		where = append(where, fmt.Sprintf("date < $%d", len(args)))
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE `+strings.Join(where, " AND ")+` ORDER BY date DESC, id`,
		args...,
	)
	if err != nil {
		return nil, s.mapError("list transactions", "transaction", "", err)
	}
	defer rows.Close()

	out := make([]domain.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, s.mapError("scan transaction", "transaction", "", err)
		}
		out = append(out, *t)
	}
	return out, s.mapError("list transactions", "transaction", "", rows.Err())
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetTransaction")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	t, err := scanTransaction(s.pool.QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 AND user_id = $2`, id, userID))
	if err != nil {
		return nil, s.mapError("get transaction", "transaction", id, err)
	}
	return t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateTransaction")
	defer span.End()

	id := uuid.New().String()
	created, err := scanTransaction(s.pool.QueryRow(ctx, `
		INSERT INTO transactions (id, user_id, amount, date, merchant, description, category_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+transactionColumns,
		id, t.UserID, t.Amount, t.Date, t.Merchant, t.Description, t.CategoryID,
	))
	if err != nil {
		return nil, s.mapError("create transaction", "transaction", id, err)
	}
	return created, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateTransaction")
	defer span.End()

	updated, err := scanTransaction(s.pool.QueryRow(ctx, `
		UPDATE transactions
		SET amount = $3, date = $4, merchant = $5, description = $6, category_id = $7
		WHERE id = $1 AND user_id = $2
		RETURNING `+transactionColumns,
		t.ID, t.UserID, t.Amount, t.Date, t.Merchant, t.Description, t.CategoryID,
	))
	if err != nil {
		return nil, s.mapError("update transaction", "transaction", t.ID, err)
	}
	return updated, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	ctx, span := tracer.Start(ctx, "Postgres.DeleteTransaction")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	tag, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return s.mapError("delete transaction", "transaction", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	return nil
}

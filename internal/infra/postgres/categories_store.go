package postgres

import (
	"context"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const categoryColumns = `id, name, color, icon, position`

func scanCategory(row pgx.Row) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.Color, &c.Icon, &c.Position); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Postgres.ListCategories")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY position, id`)
	if err != nil {
		return nil, s.mapError("list categories", "category", "", err)
	}
	defer rows.Close()

	out := make([]domain.Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, s.mapError("scan category", "category", "", err)
		}
		out = append(out, *c)
	}
	return out, s.mapError("list categories", "category", "", rows.Err())
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetCategory")
	defer span.End()

	if _, err := uuid.Parse(id); err != nil {
		return nil, &domain.ErrNotFound{Resource: "category", ID: id}
	}
	c, err := scanCategory(s.pool.QueryRow(ctx, `SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if err != nil {
		return nil, s.mapError("get category", "category", id, err)
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Postgres.CreateCategory")
	defer span.End()

	id := c.ID
	if id == "" {
		id = uuid.New().String()
	}
	created, err := scanCategory(s.pool.QueryRow(ctx, `
		INSERT INTO categories (id, name, color, icon)
		VALUES ($1, $2, $3, $4)
		RETURNING `+categoryColumns,
		id, c.Name, c.Color, c.Icon,
	))
	if err != nil {
		return nil, s.mapError("create category", "category", id, err)
	}
	return created, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateCategory")
	defer span.End()

	updated, err := scanCategory(s.pool.QueryRow(ctx, `
		UPDATE categories SET name = $2, color = $3, icon = $4
		WHERE id = $1
		RETURNING `+categoryColumns,
		c.ID, c.Name, c.Color, c.Icon,
	))
	if err != nil {
		return nil, s.mapError("update category", "category", c.ID, err)
	}
	return updated, nil
}

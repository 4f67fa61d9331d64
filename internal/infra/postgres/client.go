// Package postgres is the pgx/v5 implementation of port.Store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("postgres")

// SQLSTATE codes the store translates into domain errors.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeExclusionViolation   = "23P01"
	codeSerializationFailure = "40001"
	codeCheckViolation       = "23514"
	codeNumericOutOfRange    = "22003"
)

const overlapMessage = "budget window overlaps an existing budget for this category"

// serializableAttempts bounds how often a SERIALIZABLE transaction is run
// when the server aborts it with a serialization failure.
const serializableAttempts = 3

// Store wraps a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// Open parses the URL, connects the pool and pings the server.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Ping checks the pool can reach the server.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases every pooled connection.
func (s *Store) Close() {
	s.pool.Close()
}

// serializable runs fn in a SERIALIZABLE transaction, retrying it when
// the server reports a serialization failure.
func (s *Store) serializable(ctx context.Context, fn func(pgx.Tx) error) error {
	return retrySerialization(ctx, serializableAttempts, func() error {
		return pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{IsoLevel: pgx.Serializable}, fn)
	})
}

func retrySerialization(ctx context.Context, attempts int, run func() error) error {
	var err error
	for i := 1; ; i++ {
		err = run()
		if !isSerializationFailure(err) || i >= attempts {
			return err
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(time.Duration(i) * 10 * time.Millisecond):
		}
	}
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeSerializationFailure
}

// mapError turns driver errors into domain errors. Unknown errors are
// wrapped with op for context.
func (s *Store) mapError(op, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	var conflict *domain.ErrConflict
	if errors.As(err, &conflict) {
		return conflict
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return &domain.ErrNotFound{Resource: resource, ID: id}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeExclusionViolation:
			return &domain.ErrConflict{Message: overlapMessage}
		case codeSerializationFailure:
			s.logger.Warn("postgres: serialization retries exhausted", zap.String("op", op))
			return &domain.ErrConflict{Message: "concurrent update, please retry"}
		case codeCheckViolation:
			return &domain.ErrValidation{Field: resource, Message: fmt.Sprintf("%s violates constraint %s", resource, pgErr.ConstraintName)}
		case codeNumericOutOfRange:
			return &domain.ErrValidation{Field: resource, Message: "numeric value out of range"}
		case codeUniqueViolation:
			return &domain.ErrConflict{Message: fmt.Sprintf("%s already exists", resource)}
		case codeForeignKeyViolation:
			return &domain.ErrNotFound{Resource: "category", ID: pgErr.Detail}
		}
	}

	s.logger.Error("postgres: query failed",
		zap.String("op", op),
		zap.String("resource", resource),
		zap.Error(err),
	)
	return fmt.Errorf("%s: %w", op, err)
}

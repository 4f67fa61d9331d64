package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"github.com/jackc/pgx/v5"
)

const profileColumns = `user_id, full_name, email, birth_date, salary, cushion,
	financial_goal, financial_goal_amount, financial_goal_months, financial_strategy`

func scanProfile(row pgx.Row) (*domain.Profile, error) {
	var (
		p         domain.Profile
		birthDate *time.Time
	)
	err := row.Scan(&p.UserID, &p.FullName, &p.Email, &birthDate, &p.Salary, &p.Cushion,
		&p.FinancialGoal, &p.FinancialGoalAmount, &p.FinancialGoalMonths, &p.FinancialStrategy)
	if err != nil {
		return nil, err
	}
	if birthDate != nil {
		d := domain.Day(*birthDate)
		p.BirthDate = &d
	}
	return &p, nil
}

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetProfile")
	defer span.End()

	p, err := scanProfile(s.pool.QueryRow(ctx,
		`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1`, userID))
	if err != nil {
		return nil, s.mapError("get profile", "profile", userID, err)
	}
	return p, nil
}

// UpdateProfile reads, applies and writes back under a row lock so two
// partial updates never lose each other's fields.
func (s *Store) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	ctx, span := tracer.Start(ctx, "Postgres.UpdateProfile")
	defer span.End()

	var updated *domain.Profile
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		p, err := scanProfile(tx.QueryRow(ctx,
			`SELECT `+profileColumns+` FROM profiles WHERE user_id = $1 FOR UPDATE`, userID))
		if err != nil {
			return err
		}
		update.Apply(p)
		updated, err = scanProfile(tx.QueryRow(ctx, `
			UPDATE profiles
			SET full_name = $2, birth_date = $3, salary = $4, cushion = $5,
			    financial_goal = $6, financial_goal_amount = $7, financial_goal_months = $8,
			    financial_strategy = $9
			WHERE user_id = $1
			RETURNING `+profileColumns,
			userID, p.FullName, p.BirthDate, p.Salary, p.Cushion,
			p.FinancialGoal, p.FinancialGoalAmount, p.FinancialGoalMonths, p.FinancialStrategy,
		))
		return err
	})
	if err != nil {
		return nil, s.mapError("update profile", "profile", userID, err)
	}
	return updated, nil
}

// CreateUser inserts the credential and the profile in one transaction.
func (s *Store) CreateUser(ctx context.Context, cred *domain.Credential, profile *domain.Profile) error {
	ctx, span := tracer.Start(ctx, "Postgres.CreateUser")
	defer span.End()

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`INSERT INTO users (id, email, password_hash, created_at) VALUES ($1, $2, $3, $4)`,
			cred.UserID, cred.Email, cred.PasswordHash, cred.CreatedAt,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO profiles (user_id, full_name, email, birth_date, salary, cushion,
			                      financial_goal, financial_goal_amount, financial_goal_months, financial_strategy)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			profile.UserID, profile.FullName, profile.Email, profile.BirthDate, profile.Salary, profile.Cushion,
			profile.FinancialGoal, profile.FinancialGoalAmount, profile.FinancialGoalMonths, profile.FinancialStrategy,
		)
		return err
	})
	if err != nil {
		return s.mapError("create user", "email", cred.Email, err)
	}
	return nil
}

func (s *Store) GetCredentialByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	ctx, span := tracer.Start(ctx, "Postgres.GetCredentialByEmail")
	defer span.End()

	var c domain.Credential
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, password_hash, created_at FROM users WHERE lower(email) = lower($1)`, email,
	).Scan(&c.UserID, &c.Email, &c.PasswordHash, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, s.mapError("get credential", "user", "", err)
	}
	return &c, nil
}

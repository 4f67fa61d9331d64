// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
)

// CategoryCatalog reads and maintains the category list.
// ListCategories returns categories in catalog (creation) order.
type CategoryCatalog interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
	GetCategory(ctx context.Context, id string) (*domain.Category, error)
	CreateCategory(ctx context.Context, c *domain.Category) (*domain.Category, error)
	UpdateCategory(ctx context.Context, c *domain.Category) (*domain.Category, error)
}

// TransactionLedger stores user transactions. ListTransactions returns
// newest first.
type TransactionLedger interface {
	ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error)
	CreateTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error)
	UpdateTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// BudgetStore stores budget windows. CreateBudget and UpdateBudget must
// reject a window overlapping another budget of the same user and category
// with *domain.ErrConflict, atomically with the write.
type BudgetStore interface {
	ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error)
	GetBudget(ctx context.Context, userID, id string) (*domain.Budget, error)
	CreateBudget(ctx context.Context, b *domain.Budget) (*domain.Budget, error)
	UpdateBudget(ctx context.Context, b *domain.Budget) (*domain.Budget, error)
	DeleteBudget(ctx context.Context, userID, id string) error
}

// LoanStore stores loans of every status. ListLoans returns newest start
// date first.
type LoanStore interface {
	ListLoans(ctx context.Context, userID string) ([]domain.Loan, error)
	GetLoan(ctx context.Context, userID, id string) (*domain.Loan, error)
	CreateLoan(ctx context.Context, l *domain.Loan) (*domain.Loan, error)
	UpdateLoan(ctx context.Context, l *domain.Loan) (*domain.Loan, error)
	DeleteLoan(ctx context.Context, userID, id string) error
}

// ProfileStore reads and updates financial profiles.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error)
}

// UserStore holds login credentials. CreateUser creates the credential and
// the profile together; a taken email yields *domain.ErrConflict.
// GetCredentialByEmail returns nil, nil for an unknown email.
type UserStore interface {
	CreateUser(ctx context.Context, cred *domain.Credential, profile *domain.Profile) error
	GetCredentialByEmail(ctx context.Context, email string) (*domain.Credential, error)
}

// LedgerStore bundles the per-user financial repositories.
type LedgerStore interface {
	CategoryCatalog
	TransactionLedger
	BudgetStore
	LoanStore
	ProfileStore
}

// Store bundles every repository a backend provides.
type Store interface {
	LedgerStore
	UserStore
	Ping(ctx context.Context) error
}

// TextInference runs a completion against the external inference endpoint
// and returns the first alternative's text.
type TextInference interface {
	Complete(ctx context.Context, req *domain.CompletionRequest) (string, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(ctx context.Context, key string) (T, bool)
	Set(ctx context.Context, key string, value T, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

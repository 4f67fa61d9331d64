// Package memory is an in-process implementation of port.Store. It backs
// local development when no DATABASE_URL is set, and the integration tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/yosef2222/FinanceTracker/internal/domain"

	"github.com/google/uuid"
)

// SeedCategories is the catalog every new store starts with.
var SeedCategories = []domain.Category{
	{Name: "Food", Color: "#FF7043", Icon: "utensils"},
	{Name: "Transport", Color: "#42A5F5", Icon: "bus"},
	{Name: "Entertainment", Color: "#AB47BC", Icon: "film"},
	{Name: "Housing", Color: "#8D6E63", Icon: "home"},
	{Name: "Education", Color: "#26A69A", Icon: "book"},
	{Name: domain.FallbackCategoryName, Color: domain.DefaultCategoryColor, Icon: domain.DefaultCategoryIcon},
}

// Store keeps every entity in maps guarded by a single RWMutex. Writes that
// must check an invariant (budget overlap, unique email) hold the write
// lock across check and insert.
type Store struct {
	mu sync.RWMutex

	categories   map[string]domain.Category
	nextPosition int64
	transactions map[string]domain.Transaction
	budgets      map[string]domain.Budget
	loans        map[string]domain.Loan
	profiles     map[string]domain.Profile
	credentials  map[string]domain.Credential // by email

	newID func() string
}

// New creates a store seeded with SeedCategories.
func New() *Store {
	s := &Store{
		categories:   make(map[string]domain.Category),
		transactions: make(map[string]domain.Transaction),
		budgets:      make(map[string]domain.Budget),
		loans:        make(map[string]domain.Loan),
		profiles:     make(map[string]domain.Profile),
		credentials:  make(map[string]domain.Credential),
		newID:        func() string { return uuid.New().String() },
	}
	for _, c := range SeedCategories {
		_, _ = s.CreateCategory(context.Background(), &c)
	}
	return s
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// ============================================================
// Categories
// ============================================================

func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "category", ID: id}
	}
	return &c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.categories {
		if strings.EqualFold(existing.Name, c.Name) {
			return nil, &domain.ErrConflict{Message: "category already exists: " + c.Name}
		}
	}

	created := *c
	if created.ID == "" {
		created.ID = s.newID()
	}
	s.nextPosition++
	created.Position = s.nextPosition
	s.categories[created.ID] = created
	return &created, nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *domain.Category) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[c.ID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "category", ID: c.ID}
	}
	for id, other := range s.categories {
		if id != c.ID && strings.EqualFold(other.Name, c.Name) {
			return nil, &domain.ErrConflict{Message: "category already exists: " + c.Name}
		}
	}
	existing.Name, existing.Color, existing.Icon = c.Name, c.Color, c.Icon
	s.categories[c.ID] = existing
	return &existing, nil
}

// ============================================================
// Transactions
// ============================================================

func (s *Store) ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Transaction, 0)
	for _, t := range s.transactions {
		if t.UserID == userID && filter.Matches(t.Date) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	return &t, nil
}

func (s *Store) CreateTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *t
	created.ID = s.newID()
	s.transactions[created.ID] = created
	return &created, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, t *domain.Transaction) (*domain.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.transactions[t.ID]
	if !ok || existing.UserID != t.UserID {
		return nil, &domain.ErrNotFound{Resource: "transaction", ID: t.ID}
	}
	updated := *t
	s.transactions[t.ID] = updated
	return &updated, nil
}

func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.transactions[id]
	if !ok || t.UserID != userID {
		return &domain.ErrNotFound{Resource: "transaction", ID: id}
	}
	delete(s.transactions, id)
	return nil
}

// ============================================================
// Budgets
// ============================================================

func (s *Store) ListBudgets(ctx context.Context, userID string) ([]domain.Budget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Budget, 0)
	for _, b := range s.budgets {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetBudget(ctx context.Context, userID, id string) (*domain.Budget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.budgets[id]
	if !ok || b.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "budget", ID: id}
	}
	return &b, nil
}

func (s *Store) CreateBudget(ctx context.Context, b *domain.Budget) (*domain.Budget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOverlap(*b); err != nil {
		return nil, err
	}
	created := *b
	created.ID = s.newID()
	s.budgets[created.ID] = created
	return &created, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b *domain.Budget) (*domain.Budget, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.budgets[b.ID]
	if !ok || existing.UserID != b.UserID {
		return nil, &domain.ErrNotFound{Resource: "budget", ID: b.ID}
	}
	if err := s.checkOverlap(*b); err != nil {
		return nil, err
	}
	updated := *b
	s.budgets[b.ID] = updated
	return &updated, nil
}

func (s *Store) DeleteBudget(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.budgets[id]
	if !ok || b.UserID != userID {
		return &domain.ErrNotFound{Resource: "budget", ID: id}
	}
	delete(s.budgets, id)
	return nil
}

// checkOverlap must be called with the write lock held.
func (s *Store) checkOverlap(b domain.Budget) error {
	w := b.Window()
	for id, other := range s.budgets {
		if id == b.ID || other.UserID != b.UserID || other.CategoryID != b.CategoryID {
			continue
		}
		if other.Window().Overlaps(w) {
			return &domain.ErrConflict{Message: "budget window overlaps an existing budget for this category"}
		}
	}
	return nil
}

// ============================================================
// Loans
// ============================================================

func (s *Store) ListLoans(ctx context.Context, userID string) ([]domain.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Loan, 0)
	for _, l := range s.loans {
		if l.UserID == userID {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.After(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) GetLoan(ctx context.Context, userID, id string) (*domain.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.loans[id]
	if !ok || l.UserID != userID {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: id}
	}
	return &l, nil
}

func (s *Store) CreateLoan(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	created := *l
	created.ID = s.newID()
	s.loans[created.ID] = created
	return &created, nil
}

func (s *Store) UpdateLoan(ctx context.Context, l *domain.Loan) (*domain.Loan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.loans[l.ID]
	if !ok || existing.UserID != l.UserID {
		return nil, &domain.ErrNotFound{Resource: "loan", ID: l.ID}
	}
	updated := *l
	s.loans[l.ID] = updated
	return &updated, nil
}

func (s *Store) DeleteLoan(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.loans[id]
	if !ok || l.UserID != userID {
		return &domain.ErrNotFound{Resource: "loan", ID: id}
	}
	delete(s.loans, id)
	return nil
}

// ============================================================
// Profiles & users
// ============================================================

func (s *Store) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	return &p, nil
}

func (s *Store) UpdateProfile(ctx context.Context, userID string, update domain.ProfileUpdate) (*domain.Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, &domain.ErrNotFound{Resource: "profile", ID: userID}
	}
	update.Apply(&p)
	s.profiles[userID] = p
	return &p, nil
}

func (s *Store) CreateUser(ctx context.Context, cred *domain.Credential, profile *domain.Profile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(cred.Email)
	if _, exists := s.credentials[email]; exists {
		return &domain.ErrConflict{Message: "email already registered"}
	}
	c := *cred
	c.Email = email
	s.credentials[email] = c
	s.profiles[profile.UserID] = *profile
	return nil
}

// GetCredentialByEmail returns nil, nil for an unknown email.
func (s *Store) GetCredentialByEmail(ctx context.Context, email string) (*domain.Credential, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.credentials[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

package service

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var authTracer = otel.Tracer("service/auth")

const (
	minPasswordLength = 8
	maxPasswordLength = 72 // bcrypt input limit
	bcryptCost        = 12
)

// AuthService orchestrates authentication flows.
type AuthService struct {
	store     port.UserStore
	jwtSecret []byte
	accessTTL time.Duration
	cost      int
	admins    map[string]struct{}
	logger    *zap.Logger
}

// NewAuthService creates a new auth service.
func NewAuthService(store port.UserStore, jwtSecret string, accessTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		store:     store,
		jwtSecret: []byte(jwtSecret),
		accessTTL: accessTTL,
		cost:      bcryptCost,
		admins:    map[string]struct{}{},
		logger:    logger,
	}
}

// WithAdmins grants the admin role to tokens issued for the given emails.
func (s *AuthService) WithAdmins(emails ...string) *AuthService {
	for _, e := range emails {
		if e = normalizeEmail(e); e != "" {
			s.admins[e] = struct{}{}
		}
	}
	return s
}

func (s *AuthService) roleFor(email string) string {
	if _, ok := s.admins[normalizeEmail(email)]; ok {
		return domain.RoleAdmin
	}
	return domain.RoleUser
}

// ============================================================
// Register - POST /v1/auth/register
// ============================================================

func (s *AuthService) Register(ctx context.Context, req *domain.RegisterRequest) (*domain.TokenResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email := normalizeEmail(req.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, &domain.ErrValidation{Field: "email", Message: "a valid email is required"}
	}
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, &domain.ErrValidation{Field: "fullName", Message: "fullName is required"}
	}
	if n := len(req.Password); n < minPasswordLength || n > maxPasswordLength {
		return nil, &domain.ErrValidation{
			Field:   "password",
			Message: fmt.Sprintf("password must be between %d and %d characters", minPasswordLength, maxPasswordLength),
		}
	}
	if !req.BirthDate.IsZero() && domain.Day(req.BirthDate).After(domain.Day(time.Now())) {
		return nil, &domain.ErrValidation{Field: "birthDate", Message: "birthDate must not be in the future"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID := uuid.New().String()
	cred := &domain.Credential{
		UserID:       userID,
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	}
	profile := &domain.Profile{UserID: userID, FullName: fullName, Email: email}
	if !req.BirthDate.IsZero() {
		d := domain.Day(req.BirthDate)
		profile.BirthDate = &d
	}

	if err := s.store.CreateUser(ctx, cred, profile); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered", zap.String("user_id", userID))
	return s.issue(userID, email)
}

// ============================================================
// Login - POST /v1/auth/login
// ============================================================

func (s *AuthService) Login(ctx context.Context, req *domain.LoginRequest) (*domain.TokenResponse, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Login")
	defer span.End()

	email := normalizeEmail(req.Email)
	cred, err := s.store.GetCredentialByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get credentials: %w", err)
	}
	if cred == nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid email or password"}
	}
	span.SetAttributes(attribute.String("user.id", cred.UserID))

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Warn("login: wrong password", zap.String("user_id", cred.UserID))
		return nil, &domain.ErrUnauthorized{Message: "invalid email or password"}
	}

	s.logger.Info("user logged in", zap.String("user_id", cred.UserID))
	return s.issue(cred.UserID, cred.Email)
}

func (s *AuthService) issue(userID, email string) (*domain.TokenResponse, error) {
	token, err := s.signAccessToken(userID, email, s.roleFor(email))
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &domain.TokenResponse{
		AccessToken: token,
		ExpiresIn:   int(s.accessTTL.Seconds()),
		UserID:      userID,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

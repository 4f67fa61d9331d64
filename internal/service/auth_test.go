package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/yosef2222/FinanceTracker/internal/domain"
	"github.com/yosef2222/FinanceTracker/internal/infra/memory"
	"github.com/yosef2222/FinanceTracker/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

func newAuth(store *memory.Store) *service.AuthService {
	return service.NewAuthService(store, testSecret, time.Hour, zap.NewNop())
}

func TestRegister_IssuesValidToken(t *testing.T) {
	store := memory.New()
	auth := newAuth(store)
	ctx := context.Background()

	tok, err := auth.Register(ctx, &domain.RegisterRequest{
		FullName: " Ana Lima ",
		Email:    "Ana@Example.com",
		Password: "correct-horse",
	})
	require.NoError(t, err)
	assert.Equal(t, 3600, tok.ExpiresIn)

	claims, err := auth.ValidateAccessToken(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, tok.UserID, claims.Sub)
	assert.Equal(t, "ana@example.com", claims.Email)

	profile, err := store.GetProfile(ctx, tok.UserID)
	require.NoError(t, err)
	assert.Equal(t, "Ana Lima", profile.FullName)
	assert.True(t, profile.Salary.IsZero())
}

func TestIssue_AdminRole(t *testing.T) {
	auth := newAuth(memory.New()).WithAdmins(" Root@Example.com ", "")
	ctx := context.Background()

	admin, err := auth.Register(ctx, &domain.RegisterRequest{FullName: "Root", Email: "root@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	claims, err := auth.ValidateAccessToken(admin.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims.Role)

	user, err := auth.Register(ctx, &domain.RegisterRequest{FullName: "Ana", Email: "ana@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	claims, err = auth.ValidateAccessToken(user.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, claims.Role)

	relogin, err := auth.Login(ctx, &domain.LoginRequest{Email: "ROOT@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	claims, err = auth.ValidateAccessToken(relogin.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	auth := newAuth(memory.New())
	ctx := context.Background()
	req := &domain.RegisterRequest{FullName: "Ana", Email: "ana@example.com", Password: "correct-horse"}

	_, err := auth.Register(ctx, req)
	require.NoError(t, err)

	req.Email = "ANA@example.com"
	_, err = auth.Register(ctx, req)
	var ce *domain.ErrConflict
	assert.ErrorAs(t, err, &ce)
}

func TestRegister_Validation(t *testing.T) {
	tests := []struct {
		name  string
		req   domain.RegisterRequest
		field string
	}{
		{"bad email", domain.RegisterRequest{FullName: "Ana", Email: "not-an-email", Password: "correct-horse"}, "email"},
		{"no name", domain.RegisterRequest{FullName: "  ", Email: "ana@example.com", Password: "correct-horse"}, "fullName"},
		{"short password", domain.RegisterRequest{FullName: "Ana", Email: "ana@example.com", Password: "short"}, "password"},
		{"born tomorrow", domain.RegisterRequest{FullName: "Ana", Email: "ana@example.com", Password: "correct-horse", BirthDate: time.Now().AddDate(0, 0, 2)}, "birthDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newAuth(memory.New()).Register(context.Background(), &tt.req)
			var ve *domain.ErrValidation
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestLogin(t *testing.T) {
	auth := newAuth(memory.New())
	ctx := context.Background()
	reg, err := auth.Register(ctx, &domain.RegisterRequest{FullName: "Ana", Email: "ana@example.com", Password: "correct-horse"})
	require.NoError(t, err)

	t.Run("success", func(t *testing.T) {
		tok, err := auth.Login(ctx, &domain.LoginRequest{Email: " ANA@example.com", Password: "correct-horse"})
		require.NoError(t, err)
		assert.Equal(t, reg.UserID, tok.UserID)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := auth.Login(ctx, &domain.LoginRequest{Email: "ana@example.com", Password: "wrong-horse"})
		var ue *domain.ErrUnauthorized
		assert.ErrorAs(t, err, &ue)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := auth.Login(ctx, &domain.LoginRequest{Email: "bob@example.com", Password: "correct-horse"})
		var ue *domain.ErrUnauthorized
		assert.ErrorAs(t, err, &ue)
	})
}

func TestValidateAccessToken_Rejects(t *testing.T) {
	auth := newAuth(memory.New())

	sign := func(secret string, claims service.JWTClaims) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := func() service.JWTClaims {
		return service.JWTClaims{
			Sub:  "user-1",
			Type: "access",
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "finhelper",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
	}

	_, err := auth.ValidateAccessToken(sign(testSecret, valid()))
	require.NoError(t, err, "control token must validate")

	refresh := valid()
	refresh.Type = "refresh"
	foreign := valid()
	foreign.Issuer = "someone-else"
	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
	noSubject := valid()
	noSubject.Sub = ""

	tests := map[string]string{
		"garbage":      "not.a.token",
		"wrong secret": sign("other-secret", valid()),
		"wrong type":   sign(testSecret, refresh),
		"wrong issuer": sign(testSecret, foreign),
		"expired":      sign(testSecret, expired),
		"no subject":   sign(testSecret, noSubject),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := auth.ValidateAccessToken(token)
			var ue *domain.ErrUnauthorized
			assert.ErrorAs(t, err, &ue)
		})
	}
}

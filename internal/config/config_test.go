package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{"PORT", "DATABASE_URL", "ADVICE_TTL", "SNAPSHOT_TIMEOUT", "CORS_ORIGINS", "INFERENCE_MODEL", "JWT_SECRET", "ADMIN_EMAILS"} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, 8080, cfg.Port)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 7*24*time.Hour, cfg.AdviceTTL)
	assert.Equal(t, 5*time.Second, cfg.SnapshotTimeout)
	assert.Equal(t, []string{"*"}, cfg.CORSOrigins)
	assert.Equal(t, "yandexgpt-lite", cfg.InferenceModel)
	assert.True(t, cfg.UsesDevSecret())
	assert.Empty(t, cfg.AdminEmails)
	assert.NoError(t, cfg.Validate())
}

func TestValidate_DevSecretWithDatabase(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("DATABASE_URL", "postgres://finhelper@localhost/finhelper")

	cfg := Load()
	assert.ErrorContains(t, cfg.Validate(), "JWT_SECRET")

	t.Setenv("JWT_SECRET", "a-real-secret")
	cfg = Load()
	assert.False(t, cfg.UsesDevSecret())
	assert.NoError(t, cfg.Validate())
}

func TestValidate_AccessTTL(t *testing.T) {
	cfg := Load()
	cfg.JWTAccessTTL = 0
	assert.Error(t, cfg.Validate())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SNAPSHOT_TIMEOUT", "3s")
	t.Setenv("MAX_RETRIES", "not-a-number")
	t.Setenv("CORS_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("ADMIN_EMAILS", "root@example.com")

	cfg := Load()
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 3*time.Second, cfg.SnapshotTimeout)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, []string{"root@example.com"}, cfg.AdminEmails)
}

func TestLoadDotEnv_DoesNotOverrideEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("FINHELPER_TEST_A=from-file\nFINHELPER_TEST_B=\"quoted\"\n"), 0o600))

	t.Setenv("FINHELPER_TEST_A", "from-env")
	t.Setenv("FINHELPER_TEST_B", "")
	require.NoError(t, os.Unsetenv("FINHELPER_TEST_B"))

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("FINHELPER_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("FINHELPER_TEST_B"))
}

func TestLoadDotEnv_MissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "absent.env")))
}

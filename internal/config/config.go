package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// DevJWTSecret signs tokens when JWT_SECRET is unset. It is only accepted
// together with the in-memory store.
const DevJWTSecret = "finhelper-default-dev-secret-change-me"

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port        int
	LogLevel    string
	CORSOrigins []string

	// Storage. An empty DatabaseURL selects the in-memory store and an
	// empty RedisURL the in-memory advice cache.
	DatabaseURL string
	RedisURL    string

	// Text inference
	InferenceURL      string
	InferenceFolderID string
	InferenceToken    string
	InferenceModel    string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL  time.Duration
	AdviceTTL time.Duration

	// Dashboard snapshot deadline; zero disables it.
	SnapshotTimeout time.Duration

	// Observability
	OTLPEndpoint string

	// JWT / Auth
	JWTSecret    string
	JWTAccessTTL time.Duration
	AdminEmails  []string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:        getEnvInt("PORT", 8080),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		CORSOrigins: getEnvList("CORS_ORIGINS", []string{"*"}),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		InferenceURL:      getEnv("INFERENCE_URL", "https://llm.api.cloud.yandex.net/foundationModels/v1/completion"),
		InferenceFolderID: getEnv("INFERENCE_FOLDER_ID", ""),
		InferenceToken:    getEnv("INFERENCE_TOKEN", ""),
		InferenceModel:    getEnv("INFERENCE_MODEL", "yandexgpt-lite"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 2),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 200*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 10),

		CacheTTL:  getEnvDuration("CACHE_TTL", 5*time.Minute),
		AdviceTTL: getEnvDuration("ADVICE_TTL", 7*24*time.Hour),

		SnapshotTimeout: getEnvDuration("SNAPSHOT_TIMEOUT", 5*time.Second),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret:    getEnv("JWT_SECRET", DevJWTSecret),
		JWTAccessTTL: getEnvDuration("JWT_ACCESS_TTL", 24*time.Hour),
		AdminEmails:  getEnvList("ADMIN_EMAILS", nil),
	}
}

// Validate rejects configurations that must not serve traffic.
func (c *Config) Validate() error {
	if c.DatabaseURL != "" && c.JWTSecret == DevJWTSecret {
		return errors.New("JWT_SECRET must be set when DATABASE_URL is configured")
	}
	if c.JWTAccessTTL <= 0 {
		return errors.New("JWT_ACCESS_TTL must be positive")
	}
	return nil
}

// UsesDevSecret reports whether tokens are signed with the built-in secret.
func (c *Config) UsesDevSecret() bool {
	return c.JWTSecret == DevJWTSecret
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

// getEnvList splits a comma-separated value, dropping blanks.
func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}

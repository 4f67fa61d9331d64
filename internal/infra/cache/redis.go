package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis stores JSON-encoded values in Redis. Failures are logged and
// treated as misses so a Redis outage degrades to recomputation.
type Redis[T any] struct {
	client     redis.UniversalClient
	prefix     string
	defaultTTL time.Duration
	logger     *zap.Logger
}

// NewRedis wraps an existing client. Keys are stored as prefix + key.
func NewRedis[T any](client redis.UniversalClient, prefix string, defaultTTL time.Duration, logger *zap.Logger) *Redis[T] {
	return &Redis[T]{client: client, prefix: prefix, defaultTTL: defaultTTL, logger: logger}
}

// Connect parses a redis:// URL (a bare host:port is accepted too) and
// pings the server.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	if !strings.Contains(redisURL, "://") {
		redisURL = "redis://" + redisURL
	}
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func (r *Redis[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T

	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false
	}
	if err != nil {
		r.logger.Warn("redis: get failed", zap.String("key", key), zap.Error(err))
		return zero, false
	}

	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		r.logger.Warn("redis: undecodable entry", zap.String("key", key), zap.Error(err))
		return zero, false
	}
	return v, true
}

func (r *Redis[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("redis: unencodable value", zap.String("key", key), zap.Error(err))
		return
	}
	if err := r.client.Set(ctx, r.prefix+key, raw, ttl).Err(); err != nil {
		r.logger.Warn("redis: set failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *Redis[T]) Delete(ctx context.Context, key string) {
	if err := r.client.Del(ctx, r.prefix+key).Err(); err != nil {
		r.logger.Warn("redis: delete failed", zap.String("key", key), zap.Error(err))
	}
}

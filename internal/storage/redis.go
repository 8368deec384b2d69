package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores each key as a Redis string under a common prefix
type RedisBackend struct {
	client *redis.Client
	prefix string
	logger *slog.Logger
}

// NewRedisBackend connects to redisURL, which is either a redis:// URL or a
// bare host:port.
func NewRedisBackend(ctx context.Context, redisURL, prefix string, logger *slog.Logger) (*RedisBackend, error) {
	var opt *redis.Options
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		parsed, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opt = parsed
	} else {
		opt = &redis.Options{Addr: redisURL}
	}
	return NewRedisBackendFromClient(redis.NewClient(opt), prefix, logger), nil
}

// NewRedisBackendFromClient wraps an existing client
func NewRedisBackendFromClient(client *redis.Client, prefix string, logger *slog.Logger) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix, logger: logger}
}

// Close closes the client
func (r *RedisBackend) Close() error {
	return r.client.Close()
}

// Migrate verifies connectivity; Redis needs no schema
func (r *RedisBackend) Migrate(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	r.logger.Info("redis storage ready", "prefix", r.prefix)
	return nil
}

// Read returns the value stored under key
func (r *RedisBackend) Read(ctx context.Context, key string) ([]byte, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	b, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	return b, err
}

// Write replaces the value stored under key, without expiry
func (r *RedisBackend) Write(ctx context.Context, key string, value []byte) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

// Delete removes key
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	return r.client.Del(ctx, r.prefix+key).Err()
}

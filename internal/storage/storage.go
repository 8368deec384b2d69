// Package storage provides the key-value persistence backends behind the
// domain record store. Each collection is kept as one JSON document under
// its own key, mirroring the layout of the browser storage it replaces.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pendergraft/decentradns/internal/config"
)

// Keys of the persisted collections.
const (
	DomainsKey = "decentradns_purchased_domains"
	HistoryKey = "decentradns_dns_history"
	APIKeysKey = "decentradns_api_keys"
)

// Backend is a blob store addressed by key.
// Read returns ErrNotFound when nothing was ever written under key.
type Backend interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}

// New creates a backend based on configuration
func New(cfg config.StorageConfig, logger *slog.Logger) (Backend, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryBackend(), nil
	case "file":
		return NewFileBackend(cfg.File.Dir, logger)
	case "sqlite":
		return NewSQLiteBackend(cfg.SQLite.Path, logger)
	case "postgres":
		return NewPostgresBackend(cfg.Postgres.URL, logger)
	case "redis":
		return NewRedisBackend(context.Background(), cfg.Redis.URL, cfg.Redis.KeyPrefix, logger)
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}

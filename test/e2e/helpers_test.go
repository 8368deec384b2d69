//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"log/slog"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pendergraft/decentradns/internal/auth"
	"github.com/pendergraft/decentradns/internal/config"
	"github.com/pendergraft/decentradns/internal/server"
	"github.com/pendergraft/decentradns/internal/storage"
	"github.com/pendergraft/decentradns/pkg/client"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	ConnString        string
	TestServer        *httptest.Server
	Server            *server.Server
	Backend           storage.Backend
	Keys              *auth.KeyStore
}

// setupPostgresE starts a Postgres container and returns the connection string
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("decentradns"),
		postgres.WithUsername("decentradns"),
		postgres.WithPassword("decentradns"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = postgresContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return postgresContainer, connString, nil
}

func testConfig(connString string) *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port: 8080,
			Host: "0.0.0.0",
		},
		Storage: config.StorageConfig{
			Type: "postgres",
			Postgres: config.PostgresConfig{
				URL: connString,
			},
		},
		Registry: config.RegistryConfig{
			HistoryLimit:       100,
			PlaceholderAddress: config.DefaultPlaceholderAddress,
		},
		Pinning:   config.PinningConfig{Type: "local", GatewayURL: "https://gateway.test"},
		Resolver:  config.ResolverConfig{CacheSize: 64, CacheTTLSeconds: 60},
		Auth:      config.AuthConfig{Type: "api-key"},
		Logging:   config.LoggingConfig{Level: "debug", Format: "text"},
		RateLimit: config.RateLimitConfig{Enabled: false},
		Security:  config.SecurityConfig{FilterEnabled: true, MaxBodySizeMB: 5},
		Proxy:     config.ProxyConfig{TrustProxy: false},
	}
}

// startServerE opens the postgres backend, runs migrations and serves the API
func startServerE(ctx context.Context, connString string) (*TestContext, error) {
	cfg := testConfig(connString)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	backend, err := storage.New(cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create backend: %w", err)
	}
	if err := backend.Migrate(ctx); err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	srv, err := server.New(cfg, backend, logger)
	if err != nil {
		backend.Close()
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	return &TestContext{
		TestServer: httptest.NewServer(srv.Handler()),
		Server:     srv,
		Backend:    backend,
		Keys:       auth.NewKeyStore(backend),
	}, nil
}

func newClient(apiKey string) *client.Client {
	return client.New(testCtx.TestServer.URL, apiKey)
}

func createTestAPIKey(t *testing.T, name string) string {
	key, err := testCtx.Keys.CreateAPIKey(context.Background(), name)
	require.NoError(t, err, "Failed to create API key")
	return key
}

// uniqueName returns a domain name no other test uses
func uniqueName(prefix string) string {
	return fmt.Sprintf("%s-%d.sui", prefix, time.Now().UnixNano())
}

// suiAddress builds a valid 32-byte Sui address from a repeated hex digit
func suiAddress(digit byte) string {
	b := make([]byte, 64)
	for i := range b {
		b[i] = digit
	}
	return "0x" + string(b)
}

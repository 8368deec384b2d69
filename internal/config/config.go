package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the server
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Registry  RegistryConfig
	Pinning   PinningConfig
	Events    EventsConfig
	Resolver  ResolverConfig
	Auth      AuthConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
	Proxy     ProxyConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int
	Host           string
	ReadTimeout    int // seconds
	WriteTimeout   int // seconds
	IdleTimeout    int // seconds
	RequestTimeout int // seconds
}

// StorageConfig selects and configures the persistence backend
type StorageConfig struct {
	Type     string // "memory", "file", "sqlite", "postgres" or "redis"
	Postgres PostgresConfig
	SQLite   SQLiteConfig
	File     FileConfig
	Redis    RedisConfig
}

// PostgresConfig holds Postgres connection settings
type PostgresConfig struct {
	URL string
}

// SQLiteConfig holds SQLite settings
type SQLiteConfig struct {
	Path string
}

// FileConfig holds settings for the JSON file backend
type FileConfig struct {
	Dir string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	URL       string // redis://... or host:port
	KeyPrefix string
}

// RegistryConfig holds domain record store settings
type RegistryConfig struct {
	HistoryLimit       int
	PlaceholderAddress string
}

// PinningConfig selects the content pinning collaborator
type PinningConfig struct {
	Type         string // "local" or "pinata"
	PinataURL    string
	PinataKey    string
	PinataSecret string
	GatewayURL   string
	MaxRetries   int
}

// EventsConfig holds activity event publishing settings
type EventsConfig struct {
	KafkaBrokers []string
	KafkaTopic   string
	QueueSize    int
}

// ResolverConfig holds simulated resolver settings
type ResolverConfig struct {
	CacheSize       int
	CacheTTLSeconds int
}

// AuthConfig holds authentication settings
type AuthConfig struct {
	Type string // "none" or "api-key"
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string
	Format string // "text" or "json"
}

// MetricsConfig holds prometheus settings
type MetricsConfig struct {
	Enabled     bool
	ServiceName string
}

// RateLimitConfig holds rate limiting settings
type RateLimitConfig struct {
	Enabled             bool
	RequestsPerMin      int
	WriteRequestsPerMin int
	BurstSize           int
	CleanupMinutes      int
}

// SecurityConfig holds security filter settings
type SecurityConfig struct {
	FilterEnabled bool
	MaxBodySizeMB int
}

// ProxyConfig holds trusted proxy settings for X-Forwarded-For handling
type ProxyConfig struct {
	TrustProxy     bool
	TrustedProxies []string // CIDR notation
}

// DefaultPlaceholderAddress stands in for the wallet of the current user
// until a real identity system exists.
const DefaultPlaceholderAddress = "0x1234...5678"

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnvInt("PORT", 8080),
			Host:           getEnv("HOST", "0.0.0.0"),
			ReadTimeout:    getEnvInt("SERVER_READ_TIMEOUT", 30),
			WriteTimeout:   getEnvInt("SERVER_WRITE_TIMEOUT", 60),
			IdleTimeout:    getEnvInt("SERVER_IDLE_TIMEOUT", 120),
			RequestTimeout: getEnvInt("SERVER_REQUEST_TIMEOUT", 30),
		},
		Storage: StorageConfig{
			Type: getEnv("STORAGE_TYPE", "sqlite"),
			Postgres: PostgresConfig{
				URL: getEnv("DATABASE_URL", ""),
			},
			SQLite: SQLiteConfig{
				Path: getEnv("SQLITE_PATH", "./data/decentradns.db"),
			},
			File: FileConfig{
				Dir: getEnv("FILE_STORAGE_DIR", "./data/store"),
			},
			Redis: RedisConfig{
				URL:       getEnv("REDIS_URL", ""),
				KeyPrefix: getEnv("REDIS_KEY_PREFIX", "decentradns:"),
			},
		},
		Registry: RegistryConfig{
			HistoryLimit:       getEnvInt("HISTORY_LIMIT", 100),
			PlaceholderAddress: getEnv("PLACEHOLDER_ADDRESS", DefaultPlaceholderAddress),
		},
		Pinning: PinningConfig{
			Type:         getEnv("PINNING_TYPE", "local"),
			PinataURL:    getEnv("PINATA_API_URL", "https://api.pinata.cloud"),
			PinataKey:    getEnv("PINATA_API_KEY", ""),
			PinataSecret: getEnv("PINATA_SECRET_KEY", ""),
			GatewayURL:   getEnv("PINNING_GATEWAY_URL", "https://gateway.pinata.cloud"),
			MaxRetries:   getEnvInt("PINNING_MAX_RETRIES", 3),
		},
		Events: EventsConfig{
			KafkaBrokers: getEnvStringSlice("KAFKA_BROKERS", nil),
			KafkaTopic:   getEnv("KAFKA_TOPIC", "decentradns.activity"),
			QueueSize:    getEnvInt("EVENTS_QUEUE_SIZE", 1024),
		},
		Resolver: ResolverConfig{
			CacheSize:       getEnvInt("RESOLVER_CACHE_SIZE", 1024),
			CacheTTLSeconds: getEnvInt("RESOLVER_CACHE_TTL_SECONDS", 60),
		},
		Auth: AuthConfig{
			Type: getEnv("AUTH_TYPE", "none"),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled:     getEnvBool("METRICS_ENABLED", true),
			ServiceName: getEnv("METRICS_SERVICE_NAME", "decentradns"),
		},
		RateLimit: RateLimitConfig{
			Enabled:             getEnvBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMin:      getEnvInt("RATE_LIMIT_RPM", 300),
			WriteRequestsPerMin: getEnvInt("RATE_LIMIT_WRITE_RPM", 60),
			BurstSize:           getEnvInt("RATE_LIMIT_BURST", 50),
			CleanupMinutes:      getEnvInt("RATE_LIMIT_CLEANUP_MINUTES", 10),
		},
		Security: SecurityConfig{
			FilterEnabled: getEnvBool("SECURITY_FILTER_ENABLED", true),
			MaxBodySizeMB: getEnvInt("SECURITY_MAX_BODY_SIZE_MB", 5),
		},
		Proxy: ProxyConfig{
			TrustProxy:     getEnvBool("TRUST_PROXY", false),
			TrustedProxies: getEnvStringSlice("TRUSTED_PROXIES", []string{"10.0.0.0/8", "172.16.0.0/12", "192.168.0.0/16"}),
		},
	}

	// An explicit connection string picks its backend unless one was chosen
	if os.Getenv("STORAGE_TYPE") == "" {
		switch {
		case cfg.Storage.Postgres.URL != "":
			cfg.Storage.Type = "postgres"
		case cfg.Storage.Redis.URL != "":
			cfg.Storage.Type = "redis"
		}
	}

	if cfg.Registry.HistoryLimit <= 0 {
		cfg.Registry.HistoryLimit = 100
	}

	return cfg, nil
}

// CacheTTL returns the resolver cache TTL as a duration.
func (c ResolverConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import "time"

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Queue    QueueConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Auth     AuthConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig selects and configures the roster store.
type DatabaseConfig struct {
	// Backend is memory, postgres or sqlite (default: memory)
	Backend string `env:"DB_BACKEND" default:"memory"`

	// URL is the PostgreSQL connection string or SQLite file path.
	// Required unless Backend is memory.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the maximum number of connections in the pool (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`

	// MinConns is the minimum number of connections to keep open (default: 2)
	MinConns int `env:"DB_MIN_CONNS" default:"2"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// RedisConfig holds the Redis connection used by the redis event queue.
type RedisConfig struct {
	// Addr is host:port (default: localhost:6379)
	Addr string `env:"REDIS_ADDR" default:"localhost:6379"`

	// Password is the AUTH password, if any
	Password string `env:"REDIS_PASSWORD"`

	// DB is the logical database number (default: 0)
	DB int `env:"REDIS_DB" default:"0"`
}

// QueueConfig selects where roster events are published.
type QueueConfig struct {
	// Backend is memory or redis (default: memory)
	Backend string `env:"QUEUE_BACKEND" default:"memory"`

	// Key is the Redis list name (default: rollcall:events)
	Key string `env:"QUEUE_KEY" default:"rollcall:events"`

	// Size is the in-memory buffer size (default: 100)
	Size int `env:"QUEUE_SIZE" default:"100"`
}

// ImportConfig holds roster CSV import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 5MiB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"5242880"`

	// MaxConcurrent is the maximum number of imports processed at once (default: 5)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"5"`

	// MaxWaitTime is how long an import waits for a free slot (default: 10s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"10s"`

	// RateMaxAttempts is the number of imports a user may start per window (default: 10)
	RateMaxAttempts int `env:"IMPORT_RATE_MAX_ATTEMPTS" default:"10"`

	// RateWindow is the per-user import window (default: 5m)
	RateWindow time.Duration `env:"IMPORT_RATE_WINDOW" default:"5m"`

	// FingerprintTTL is how long a submitted file is remembered (default: 1h)
	FingerprintTTL time.Duration `env:"IMPORT_FINGERPRINT_TTL" default:"1h"`

	// SweepInterval is how often expired limiter and fingerprint entries are dropped (default: 60s)
	SweepInterval time.Duration `env:"IMPORT_SWEEP_INTERVAL" default:"60s"`
}

// RateLimitConfig holds per-IP request throttling for the whole API.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`
}

// AuthConfig holds bearer token settings.
type AuthConfig struct {
	// JWTSigningKey is the HS256 key shared with the identity provider
	JWTSigningKey string `env:"JWT_SIGNING_KEY"`

	// JWTIssuer, when set, must match the token's iss claim
	JWTIssuer string `env:"JWT_ISSUER"`

	// Required rejects requests without a valid token (default: false)
	Required bool `env:"AUTH_REQUIRED" default:"false"`

	// APIKeys are accepted from trusted services via X-API-Key, which then
	// name the acting user in X-User-ID
	APIKeys []string `env:"API_KEYS"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + itoa(c.Port)
}

// itoa converts an int to string without importing strconv in this file.
func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	var b [20]byte
	n := len(b)
	neg := i < 0
	if neg {
		i = -i
	}
	for i > 0 {
		n--
		b[n] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		n--
		b[n] = '-'
	}
	return string(b[n:])
}

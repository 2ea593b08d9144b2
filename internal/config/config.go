package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Session store backends.
const (
	SessionStoreFile   = "file"
	SessionStoreMemory = "memory"
	SessionStoreRedis  = "redis"
)

// Config holds all application configuration
type Config struct {
	// Server configuration for the dashboard's own HTTP surface
	Server ServerConfig

	// Remote civic-issue service
	Remote RemoteConfig

	// Session and token persistence
	Session SessionConfig

	// Degraded-mode behaviour
	Gateway GatewayConfig

	// Rate limiting configuration
	RateLimit RateLimitConfig

	// WebSocket configuration
	WebSocket WebSocketConfig

	// Logging configuration
	Logging LoggingConfig

	// Application metadata
	App AppConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
}

// RemoteConfig describes how to reach the remote service.
type RemoteConfig struct {
	BaseURL string
	Timeout time.Duration
	PushURL string
}

// SessionConfig controls where the session token lives.
type SessionConfig struct {
	Store          string // file, memory, redis
	TokenFile      string
	RedisURL       string
	RedisKey       string
	MockAuthSecret string
	MockTokenTTL   time.Duration
}

// GatewayConfig controls the synthetic fallback.
type GatewayConfig struct {
	RetryAfter    time.Duration
	SyntheticSeed int64
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstSize         int
	AuthRPS           float64 // Stricter limit for auth endpoints
	AuthBurst         int
}

// WebSocketConfig holds WebSocket configuration
type WebSocketConfig struct {
	AllowedOrigins  []string
	ReadBufferSize  int
	WriteBufferSize int
	PingInterval    time.Duration
	PongWait        time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, text
}

// AppConfig holds application metadata
type AppConfig struct {
	Name        string
	Version     string
	Environment string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnvOrDefault("SERVER_PORT", ":8080"),
			ReadTimeout:     getDurationOrDefault("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getDurationOrDefault("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationOrDefault("SERVER_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getDurationOrDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			AllowedOrigins:  getStringSliceOrDefault("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Remote: RemoteConfig{
			BaseURL: getEnvOrDefault("REMOTE_BASE_URL", "http://localhost:3000/api"),
			Timeout: getDurationOrDefault("REMOTE_TIMEOUT", 5*time.Second),
			PushURL: getEnvOrDefault("PUSH_URL", "ws://localhost:3000/ws"),
		},
		Session: SessionConfig{
			Store:          getEnvOrDefault("SESSION_STORE", SessionStoreFile),
			TokenFile:      getEnvOrDefault("SESSION_TOKEN_FILE", defaultTokenFile()),
			RedisURL:       os.Getenv("REDIS_URL"),
			RedisKey:       getEnvOrDefault("SESSION_REDIS_KEY", "civic-dashboard:auth_token"),
			MockAuthSecret: getEnvOrDefault("MOCK_AUTH_SECRET", "mock-auth-development-secret"),
			MockTokenTTL:   getDurationOrDefault("MOCK_TOKEN_TTL", 24*time.Hour),
		},
		Gateway: GatewayConfig{
			RetryAfter:    getDurationOrDefault("GATEWAY_RETRY_AFTER", 30*time.Second),
			SyntheticSeed: getInt64OrDefault("SYNTHETIC_SEED", 0),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getBoolOrDefault("RATE_LIMIT_ENABLED", true),
			RequestsPerSecond: getFloatOrDefault("RATE_LIMIT_RPS", 10),
			BurstSize:         getIntOrDefault("RATE_LIMIT_BURST", 20),
			AuthRPS:           getFloatOrDefault("RATE_LIMIT_AUTH_RPS", 1),
			AuthBurst:         getIntOrDefault("RATE_LIMIT_AUTH_BURST", 5),
		},
		WebSocket: WebSocketConfig{
			AllowedOrigins:  getStringSliceOrDefault("WS_ALLOWED_ORIGINS", []string{}),
			ReadBufferSize:  getIntOrDefault("WS_READ_BUFFER_SIZE", 1024),
			WriteBufferSize: getIntOrDefault("WS_WRITE_BUFFER_SIZE", 1024),
			PingInterval:    getDurationOrDefault("WS_PING_INTERVAL", 54*time.Second),
			PongWait:        getDurationOrDefault("WS_PONG_WAIT", 60*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		App: AppConfig{
			Name:        getEnvOrDefault("APP_NAME", "civic-dashboard"),
			Version:     getEnvOrDefault("APP_VERSION", "dev"),
			Environment: getEnvOrDefault("APP_ENV", "development"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	var errs []string

	if u, err := url.Parse(c.Remote.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, "REMOTE_BASE_URL must be an http(s) URL")
	}
	if u, err := url.Parse(c.Remote.PushURL); err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		errs = append(errs, "PUSH_URL must be a ws(s) URL")
	}
	if c.Remote.Timeout <= 0 {
		errs = append(errs, "REMOTE_TIMEOUT must be positive")
	}
	if c.Gateway.RetryAfter <= 0 {
		errs = append(errs, "GATEWAY_RETRY_AFTER must be positive")
	}

	switch c.Session.Store {
	case SessionStoreFile:
		if c.Session.TokenFile == "" {
			errs = append(errs, "SESSION_TOKEN_FILE is required when SESSION_STORE=file")
		}
	case SessionStoreMemory:
	case SessionStoreRedis:
		if c.Session.RedisURL == "" {
			errs = append(errs, "REDIS_URL is required when SESSION_STORE=redis")
		}
	default:
		errs = append(errs, "SESSION_STORE must be one of file, memory, redis")
	}

	// Security validations
	if c.App.Environment == "production" {
		if len(c.Session.MockAuthSecret) < 32 {
			errs = append(errs, "MOCK_AUTH_SECRET must be at least 32 characters in production")
		}

		if len(c.WebSocket.AllowedOrigins) == 0 {
			errs = append(errs, "WS_ALLOWED_ORIGINS must be set in production")
		}
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".civic-dashboard/auth_token"
	}
	return dir + "/civic-dashboard/auth_token"
}

// Helper functions

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceOrDefault(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			return result
		}
	}
	return defaultValue
}

// String returns a redacted string representation of the config (safe for logging)
func (c *Config) String() string {
	return fmt.Sprintf(
		"Config{Server: %s, Remote: %s, Push: %s, SessionStore: %s, Redis: %s, MockAuthSecret: [REDACTED], RateLimit: %v, Environment: %s}",
		c.Server.Port,
		c.Remote.BaseURL,
		c.Remote.PushURL,
		c.Session.Store,
		redactURL(c.Session.RedisURL),
		c.RateLimit.Enabled,
		c.App.Environment,
	)
}

// redactURL hides credentials embedded in a connection URL
func redactURL(raw string) string {
	if raw == "" {
		return ""
	}
	if idx := strings.Index(raw, "@"); idx > 0 {
		return "[REDACTED]" + raw[idx:]
	}
	return raw
}

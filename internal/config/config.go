package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	CORSAllowedOrigins []string
	AccessTokenTTL     time.Duration
	RefreshTokenTTL    time.Duration

	// Billing knobs. CartGSTBps is the blended cart-level GST applied on
	// top of per-line GST; set to 0 to disable the inherited behavior.
	CartGSTBps         int
	DefaultLineGSTBps  int
	InvoiceCounterSeed int64
	InvoiceCounterKey  string

	// Sale session snapshot cache.
	SessionTTL time.Duration

	// Bounded retry policy for counter conflicts and transient store errors.
	RetryMaxAttempts int
	RetryBase        time.Duration
	RetryJitterPct   int

	// Catalog feed and cache.
	CatalogCacheTTL     time.Duration
	CatalogPollInterval time.Duration
	StockAlertThreshold int32

	// Worker queue.
	QueueConcurrency int
	ReceiptFrom      string
	OwnerEmail       string

	// Analytics cache.
	AnalyticsCacheTTL     time.Duration
	AnalyticsDefaultRange int

	// Request hardening.
	MaxBodyBytes     int64
	LoginRateWindow  time.Duration
	LoginRateMax     int
	GlobalRatePeriod time.Duration
	GlobalRateMax    int64

	// Startup migrations. Empty disables the runner.
	MigrationsPath string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:              valueOrDefault(k.String("APP_ENV"), "development"),
		Port:                valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:         k.String("DATABASE_URL"),
		RedisURL:            k.String("REDIS_URL"),
		JWTSecret:           k.String("JWT_SECRET"),
		JWTIssuer:           valueOrDefault(k.String("JWT_ISSUER"), "aurum-api"),
		CORSAllowedOrigins:  splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		AccessTokenTTL:      parseDuration(k.String("ACCESS_TOKEN_TTL"), "12h"),
		CartGSTBps:          parseInt(k.String("CART_GST_BPS"), 300),
		DefaultLineGSTBps:   parseInt(k.String("LINE_GST_BPS"), 300),
		InvoiceCounterSeed:  int64(parseInt(k.String("INVOICE_COUNTER_SEED"), 1000)),
		InvoiceCounterKey:   valueOrDefault(k.String("INVOICE_COUNTER_KEY"), "invoices"),
		SessionTTL:          parseDuration(k.String("SESSION_TTL"), "72h"),
		RetryMaxAttempts:    parseInt(k.String("RETRY_MAX_ATTEMPTS"), 4),
		RetryBase:           parseDuration(k.String("RETRY_BASE"), "50ms"),
		RetryJitterPct:      parseInt(k.String("RETRY_JITTER_PERCENT"), 20),
		CatalogCacheTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "30s"),
		CatalogPollInterval: parseDuration(k.String("CATALOG_POLL_INTERVAL"), "5s"),
		StockAlertThreshold: int32(parseInt(k.String("STOCK_ALERT_THRESHOLD"), 2)),
		QueueConcurrency:    parseInt(k.String("QUEUE_CONCURRENCY"), 4),
		ReceiptFrom:         valueOrDefault(k.String("RECEIPT_FROM"), "billing@aurum.local"),
		OwnerEmail:          k.String("OWNER_EMAIL"),
		RefreshTokenTTL:     parseDuration(k.String("REFRESH_TOKEN_TTL"), "720h"),

		AnalyticsCacheTTL:     parseDuration(k.String("ANALYTICS_CACHE_TTL"), "60s"),
		AnalyticsDefaultRange: parseInt(k.String("ANALYTICS_DEFAULT_RANGE_DAYS"), 30),

		MaxBodyBytes:     int64(parseInt(k.String("MAX_BODY_BYTES"), 1<<20)),
		LoginRateWindow:  parseDuration(k.String("LOGIN_RATE_WINDOW"), "1m"),
		LoginRateMax:     parseInt(k.String("LOGIN_RATE_MAX"), 10),
		GlobalRatePeriod: parseDuration(k.String("GLOBAL_RATE_PERIOD"), "1m"),
		GlobalRateMax:    int64(parseInt(k.String("GLOBAL_RATE_MAX"), 600)),

		MigrationsPath: k.String("MIGRATIONS_PATH"),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.InvoiceCounterSeed < 0 {
		return nil, errors.New("INVOICE_COUNTER_SEED must not be negative")
	}

	return cfg, nil
}

// HTTPAddr returns the listen address, accepting PORT with or without the
// leading colon.
func (c *Config) HTTPAddr() string {
	port := valueOrDefault(c.Port, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func splitAndTrim(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

// parseDuration falls back for blank or malformed input. The fallback is a
// literal controlled by Load, so its parse cannot fail.
func parseDuration(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

func parseInt(value string, fallback int) int {
	if n, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
		return n
	}
	return fallback
}

// LoadForTests swaps the given environment variables in around a Load call
// and restores the previous values afterwards. An empty value unsets the
// variable.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key, value := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, value); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var problems []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			problems = append(problems, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(problems, "; "))
	}
	return nil
}

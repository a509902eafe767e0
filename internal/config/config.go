package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the service configuration.
type Config struct {
	App       AppConfig
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Stripe    StripeConfig
	Booking   BookingConfig
	Admin     AdminConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

// AppConfig carries process-wide settings.
type AppConfig struct {
	Env string
}

// ServerConfig is the HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig is the PostgreSQL configuration.
type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	RunMigrations bool
}

// RedisConfig is the Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// StripeConfig is the payment gateway configuration.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Currency      string
}

// BookingConfig holds the booking rules and their operational knobs.
type BookingConfig struct {
	MinimumNotice time.Duration
	PaymentWindow time.Duration
	SweepInterval time.Duration
	SweepGrace    time.Duration
	CacheTTL      time.Duration
	SlotLockTTL   time.Duration
}

// AdminConfig configures admin bearer token verification.
type AdminConfig struct {
	JWTSecret string
}

// MetricsConfig guards /metrics with basic auth when both fields are set.
type MetricsConfig struct {
	User     string
	Password string
}

// RateLimitConfig limits public requests per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64
}

// Load reads the configuration from the environment. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		App: AppConfig{
			Env: getEnv("APP_ENV", "development"),
		},
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			DBName:        getEnv("DB_NAME", "session_booking"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			RunMigrations: getBoolEnv("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Stripe: StripeConfig{
			SecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:    getEnv("STRIPE_SUCCESS_URL", "http://localhost:5173/booking/success?session_id={CHECKOUT_SESSION_ID}"),
			CancelURL:     getEnv("STRIPE_CANCEL_URL", "http://localhost:5173/booking"),
			Currency:      strings.ToLower(getEnv("STRIPE_CURRENCY", "eur")),
		},
		Booking: BookingConfig{
			MinimumNotice: getDurationEnv("BOOKING_MINIMUM_NOTICE", 24*time.Hour),
			PaymentWindow: getDurationEnv("BOOKING_PAYMENT_WINDOW", 30*time.Minute),
			SweepInterval: getDurationEnv("BOOKING_SWEEP_INTERVAL", time.Minute),
			SweepGrace:    getDurationEnv("BOOKING_SWEEP_GRACE", 5*time.Minute),
			CacheTTL:      getDurationEnv("AVAILABILITY_CACHE_TTL", 30*time.Second),
			SlotLockTTL:   getDurationEnv("SLOT_LOCK_TTL", 10*time.Second),
		},
		Admin: AdminConfig{
			JWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getFloatEnv("RATE_LIMIT_RPS", 20),
		},
		Metrics: MetricsConfig{
			User:     getEnv("METRICS_USER", ""),
			Password: getEnv("METRICS_PASSWORD", ""),
		},
	}

	// Hosted platforms hand out URL-style connection strings.
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		applyDatabaseURL(&cfg.Database, raw)
	}
	if raw := os.Getenv("REDIS_URL"); raw != "" {
		applyRedisURL(&cfg.Redis, raw)
	}

	return cfg
}

// DSN returns the lib/pq connection string.
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// Addr returns the Redis host:port address.
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Enabled reports whether the gateway can create checkout sessions.
func (c *StripeConfig) Enabled() bool {
	return c.SecretKey != ""
}

// Enabled reports whether basic auth is required.
func (c *MetricsConfig) Enabled() bool {
	return c.User != "" && c.Password != ""
}

func applyDatabaseURL(c *DatabaseConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return
	}
	c.Host = u.Hostname()
	if port := u.Port(); port != "" {
		c.Port = port
	}
	if u.User != nil {
		c.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		c.DBName = name
	}
	c.SSLMode = "require"
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.SSLMode = mode
	}
}

func applyRedisURL(c *RedisConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return
	}
	c.Host = u.Hostname()
	if port := u.Port(); port != "" {
		c.Port = port
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	if db := strings.TrimPrefix(u.Path, "/"); db != "" {
		if n, err := strconv.Atoi(db); err == nil {
			c.DB = n
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

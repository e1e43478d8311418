package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

// MinProductionSigningKeyLength is the shortest token-signing secret accepted in production.
const MinProductionSigningKeyLength = 32

// DBConfig holds database configuration
type DBConfig struct {
	Driver          string
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
	LogLevel        logger.LogLevel
}

// GetDSN returns the connection string for the configured driver
func (c *DBConfig) GetDSN() string {
	switch c.Driver {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	case "sqlite":
		return c.DBName
	default:
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	}
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port      string
	Env       string
	PublicURL string
}

// IsProduction reports whether the service runs with production settings.
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	SigningKey      string
	ExpirationHours int
	RememberMeHours int
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string
}

// CacheConfig selects and tunes the shared key/value store used for rate limits and responses.
type CacheConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
	MaxEntries    int
}

// RateLimitConfig holds the fixed-window budgets per route scope.
type RateLimitConfig struct {
	AuthLimit     int
	AuthWindow    time.Duration
	GeneralLimit  int
	GeneralWindow time.Duration
	StrictLimit   int
	StrictWindow  time.Duration
}

// StripeConfig holds Stripe credentials
type StripeConfig struct {
	SecretKey      string
	PublishableKey string
}

// PayPalConfig holds PayPal credentials
type PayPalConfig struct {
	ClientID string
	Secret   string
	Mode     string
}

// MailConfig holds SMTP settings
type MailConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// PaymentConfig holds provider-agnostic payment settings
type PaymentConfig struct {
	Currency string
}

// Config holds all configuration
type Config struct {
	DB        DBConfig
	Server    ServerConfig
	JWT       JWTConfig
	Log       LogConfig
	Cache     CacheConfig
	RateLimit RateLimitConfig
	Stripe    StripeConfig
	PayPal    PayPalConfig
	Mail      MailConfig
	Payment   PaymentConfig
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// .env is optional, the environment alone is enough
		fmt.Printf("Warning: .env file not found, using environment variables\n")
	}

	// Initialize config struct with values from environment
	config := &Config{
		// Database configuration
		DB: DBConfig{
			Driver:          getEnv("DB_DRIVER", "postgres"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "password"),
			DBName:          getEnv("DB_NAME", "storefront"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 10),
			MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 100),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 1*time.Hour),
			LogLevel:        getEnvAsLogLevel("DB_LOG_LEVEL", logger.Warn),
		},
		// HTTP server and the public storefront origin
		Server: ServerConfig{
			Port:      getEnv("SERVER_PORT", "8080"),
			Env:       getEnv("APP_ENV", "development"),
			PublicURL: strings.TrimRight(getEnv("PUBLIC_APP_URL", "http://localhost:3000"), "/"),
		},
		JWT: JWTConfig{
			SigningKey:      getEnv("JWT_SIGNING_KEY", "storefrontdevelopmentsecretkey"),
			ExpirationHours: getEnvAsInt("JWT_EXPIRATION_HOURS", 24),
			RememberMeHours: getEnvAsInt("JWT_REMEMBER_ME_HOURS", 24*7),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		// Cache and rate limiting
		Cache: CacheConfig{
			Backend:       getEnv("CACHE_BACKEND", "memory"),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			TTL:           getEnvAsDuration("CACHE_TTL", 5*time.Minute),
			MaxEntries:    getEnvAsInt("CACHE_MAX_ENTRIES", 1000),
		},
		RateLimit: RateLimitConfig{
			AuthLimit:     getEnvAsInt("RATE_LIMIT_AUTH", 5),
			AuthWindow:    getEnvAsDuration("RATE_LIMIT_AUTH_WINDOW", 15*time.Minute),
			GeneralLimit:  getEnvAsInt("RATE_LIMIT_GENERAL", 60),
			GeneralWindow: getEnvAsDuration("RATE_LIMIT_GENERAL_WINDOW", time.Minute),
			StrictLimit:   getEnvAsInt("RATE_LIMIT_STRICT", 10),
			StrictWindow:  getEnvAsDuration("RATE_LIMIT_STRICT_WINDOW", time.Minute),
		},
		// Payment providers, each disabled until credentials are set
		Stripe: StripeConfig{
			SecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			PublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
		},
		PayPal: PayPalConfig{
			ClientID: getEnv("PAYPAL_CLIENT_ID", ""),
			Secret:   getEnv("PAYPAL_CLIENT_SECRET", ""),
			Mode:     getEnv("PAYPAL_MODE", "sandbox"),
		},
		Mail: MailConfig{
			Enabled:  getEnvAsBool("MAIL_ENABLED", false),
			Host:     getEnv("SMTP_HOST", "localhost"),
			Port:     getEnvAsInt("SMTP_PORT", 587),
			Username: getEnv("SMTP_USER", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("MAIL_FROM", "shop@localhost"),
		},
		Payment: PaymentConfig{
			Currency: strings.ToUpper(getEnv("PAYMENT_CURRENCY", "EUR")),
		},
	}

	// Reject settings that would only fail later at runtime
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate rejects settings the service must not start with.
func (c *Config) Validate() error {
	if c.Server.IsProduction() && len(c.JWT.SigningKey) < MinProductionSigningKeyLength {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least %d characters in production", MinProductionSigningKeyLength)
	}
	if c.JWT.SigningKey == "" {
		return errors.New("JWT_SIGNING_KEY must not be empty")
	}
	switch c.DB.Driver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.Cache.Backend)
	}
	return nil
}

// LogConfig returns the configuration as a zap logger-friendly format
func (c *Config) LogConfig() []zap.Field {
	return []zap.Field{
		zap.String("environment", c.Server.Env),
		zap.String("db_driver", c.DB.Driver),
		zap.String("db_host", c.DB.Host),
		zap.String("db_name", c.DB.DBName),
		zap.String("server_port", c.Server.Port),
		zap.String("cache_backend", c.Cache.Backend),
		zap.Bool("mail_enabled", c.Mail.Enabled),
		zap.Bool("stripe_configured", c.Stripe.SecretKey != ""),
		zap.Bool("paypal_configured", c.PayPal.ClientID != ""),
	}
}

// Helper function to get environment variables with defaults
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as integers
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as durations
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// Helper function to get environment variables as log levels
func getEnvAsLogLevel(key string, defaultValue logger.LogLevel) logger.LogLevel {
	valueStr := getEnv(key, "")
	switch valueStr {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "warn":
		return logger.Warn
	case "info":
		return logger.Info
	default:
		return defaultValue
	}
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"busfare/internal/domain"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	NewRelic  NewRelicConfig
	Log       LogConfig
	Fare      FareConfig
	PayRail   PayRailConfig
	Store     StoreConfig
	Lock      LockConfig
	Discounts map[string]float64
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// NewRelicConfig holds New Relic configuration.
type NewRelicConfig struct {
	AppName    string
	LicenseKey string
	Enabled    bool
}

// LogConfig holds logger configuration.
type LogConfig struct {
	Level  string
	Format string // json or text
}

// FareConfig holds the fare and settlement policy.
type FareConfig struct {
	RatePerSecond  float64
	MinimumFare    domain.Money
	Epsilon        domain.Money
	DebtTolerance  domain.Money
	MinimumDeposit domain.Money
	DepositHold    domain.Money
	Recipient      string
}

// PayRailConfig selects the payment rail.
type PayRailConfig struct {
	Driver  string // memory or redis
	Timeout time.Duration
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Driver string // memory or postgres
}

// LockConfig selects the per-account lock.
type LockConfig struct {
	Driver string // memory or redis
	TTL    time.Duration
}

// Load loads configuration from environment variables, after reading an
// optional .env file.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "busfare"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		NewRelic: NewRelicConfig{
			AppName:    getEnv("NEW_RELIC_APP_NAME", "busfare"),
			LicenseKey: getEnv("NEW_RELIC_LICENSE_KEY", ""),
			Enabled:    getBoolEnv("NEW_RELIC_ENABLED", false),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Fare: FareConfig{
			RatePerSecond:  getFloatEnv("FARE_RATE_PER_SECOND", 0.01),
			MinimumFare:    getMoneyEnv("FARE_MINIMUM", 1),
			Epsilon:        getMoneyEnv("FARE_EPSILON", 1),
			DebtTolerance:  getMoneyEnv("FARE_DEBT_TOLERANCE", 0),
			MinimumDeposit: getMoneyEnv("FARE_MINIMUM_DEPOSIT", 0),
			DepositHold:    getMoneyEnv("FARE_DEPOSIT_HOLD", 0),
			Recipient:      getEnv("FARE_RECIPIENT", "operator"),
		},
		PayRail: PayRailConfig{
			Driver:  getEnv("PAYRAIL_DRIVER", "memory"),
			Timeout: getDurationEnv("PAYRAIL_TIMEOUT", 10*time.Second),
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "memory"),
		},
		Lock: LockConfig{
			Driver: getEnv("LOCK_DRIVER", "memory"),
			TTL:    getDurationEnv("LOCK_TTL", 30*time.Second),
		},
		Discounts: ParseDiscounts(getEnv("DISCOUNT_RATES", "")),
	}
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.PayRail.Driver == "redis" || c.Lock.Driver == "redis" || getBoolEnv("REDIS_ENABLED", false)
}

// UsesPostgres reports whether persistence is backed by PostgreSQL.
func (c *Config) UsesPostgres() bool {
	return c.Store.Driver == "postgres"
}

// ParseDiscounts parses "acct:0.5,acct2:0.2". Malformed entries are skipped.
func ParseDiscounts(raw string) map[string]float64 {
	out := make(map[string]float64)
	for _, entry := range strings.Split(raw, ",") {
		id, rate, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if !ok || id == "" {
			continue
		}
		r, err := strconv.ParseFloat(strings.TrimSpace(rate), 64)
		if err != nil {
			continue
		}
		out[strings.TrimSpace(id)] = r
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
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

// getMoneyEnv reads a decimal amount such as "0.01"; the default is in cents.
func getMoneyEnv(key string, defaultValue domain.Money) domain.Money {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return domain.MoneyFromFloat(f)
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

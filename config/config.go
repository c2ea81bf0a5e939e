// Package config loads server settings from the environment. A .env file in
// the working directory is read first when present.
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

const devJWTSecret = "development-only-secret"

type Config struct {
	Addr               string
	DBDriver           string // empty: picked from DatabaseURL
	DatabaseURL        string
	JWTSecret          string
	Environment        string
	CORSOrigins        []string
	OvertimeMultiplier decimal.Decimal
	DefaultHourlyRate  decimal.Decimal
	MaxBodyBytes       int64
	ShutdownTimeout    time.Duration
	SeedDemo           bool
}

// Load reads .env (if any) and the environment.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[Config] loaded .env")
	}

	cfg := Config{
		Addr:               getEnv("APP_ADDR", ":8080"),
		DBDriver:           getEnv("DB_DRIVER", ""),
		DatabaseURL:        getEnv("DATABASE_URL", "./data/timesheets.db"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		Environment:        getEnv("APP_ENV", "development"),
		CORSOrigins:        getEnvList("CORS_ORIGINS", []string{"*"}),
		OvertimeMultiplier: getEnvDecimal("OVERTIME_MULTIPLIER", decimal.NewFromInt(1)),
		DefaultHourlyRate:  getEnvDecimal("DEFAULT_HOURLY_RATE", decimal.Zero),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		SeedDemo:           getEnvBool("SEED_DEMO", false),
	}
	if cfg.JWTSecret == "" && !cfg.IsProduction() {
		cfg.JWTSecret = devJWTSecret
	}
	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	switch c.DBDriver {
	case "", "sqlite3", "pgx":
	default:
		return fmt.Errorf("DB_DRIVER must be sqlite3 or pgx, got %q", c.DBDriver)
	}
	if c.IsProduction() {
		if strings.TrimSpace(c.JWTSecret) == "" || c.JWTSecret == devJWTSecret {
			return fmt.Errorf("JWT_SECRET must be set to a strong value in production")
		}
		if c.SeedDemo {
			return fmt.Errorf("SEED_DEMO must be disabled in production")
		}
	}
	if c.OvertimeMultiplier.IsNegative() {
		return fmt.Errorf("OVERTIME_MULTIPLIER must not be negative")
	}
	if c.DefaultHourlyRate.IsNegative() {
		return fmt.Errorf("DEFAULT_HOURLY_RATE must not be negative")
	}
	if c.MaxBodyBytes < 1024 {
		return fmt.Errorf("MAX_BODY_BYTES must be at least 1024")
	}
	if c.ShutdownTimeout <= 0 {
		return fmt.Errorf("SHUTDOWN_TIMEOUT must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDecimal(key string, fallback decimal.Decimal) decimal.Decimal {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var list []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			list = append(list, part)
		}
	}
	if len(list) == 0 {
		return fallback
	}
	return list
}

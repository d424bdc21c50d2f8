package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every runtime setting the application reads from the environment.
type Config struct {
	Port       string
	GinMode    string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	JWTSecret string

	// RedisAddr is optional. When empty the reorder scheduler runs without a
	// distributed lock, which is fine for single-instance deployments.
	RedisAddr string

	// ReorderInterval controls how often the auto-reorder scan runs.
	// Zero disables the background scan; the REST trigger still works.
	ReorderInterval time.Duration

	// DefaultWarehouse is stamped on purchase orders created by the
	// auto-reorder scheduler, which has no human caller to pick one.
	DefaultWarehouse string
}

// Load reads configs/.env if present and builds a Config from the environment.
func Load() Config {
	_ = godotenv.Load("configs/.env")

	cfg := Config{
		Port:             envOr("PORT", "8080"),
		GinMode:          envOr("GIN_MODE", "debug"),
		DBHost:           envOr("DB_HOST", "localhost"),
		DBPort:           envOr("DB_PORT", "5432"),
		DBUser:           envOr("DB_USER", "postgres"),
		DBPassword:       envOr("DB_PASSWORD", "postgres"),
		DBName:           envOr("DB_NAME", "factorymes"),
		DBSSLMode:        envOr("DB_SSLMODE", "disable"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		DefaultWarehouse: envOr("DEFAULT_WAREHOUSE", "MAIN"),
	}

	if mins, err := strconv.Atoi(envOr("REORDER_INTERVAL_MINUTES", "15")); err == nil && mins > 0 {
		cfg.ReorderInterval = time.Duration(mins) * time.Minute
	}

	return cfg
}

// DSN renders the PostgreSQL connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

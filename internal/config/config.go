// Package config reads service configuration from environment variables,
// optionally loading a local .env file first.
package config

import (
	"fmt"
	"net/url"
	"os"

	"github.com/joho/godotenv"
)

// StoreMemory selects the in-memory store instead of Postgres. Useful for
// local development and demos; nothing survives a restart.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds all service settings.
type Config struct {
	Addr    string
	LogMode string
	Store   string
	DB      DBConfig
}

// DBConfig holds PostgreSQL connection settings.
type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

// DSN builds a libpq-compatible connection string for pgxpool.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// MigrateURL builds the URL golang-migrate's pgx/v5 driver expects.
func (c DBConfig) MigrateURL() string {
	u := url.URL{
		Scheme:   "pgx5",
		User:     url.UserPassword(c.User, c.Password),
		Host:     c.Host + ":" + c.Port,
		Path:     "/" + c.Name,
		RawQuery: "sslmode=" + c.SSLMode,
	}
	return u.String()
}

// Load reads configuration from the environment with local-development
// defaults. A .env file in the working directory is loaded when present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Addr:    ":" + getEnv("PORT", "8080"),
		LogMode: getEnv("LOG_MODE", "dev"),
		Store:   getEnv("STORE", StorePostgres),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "eventregistry"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

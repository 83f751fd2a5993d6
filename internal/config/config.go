// Package config loads server configuration from the environment, with
// an optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds everything the server binary needs to wire itself.
type Config struct {
	ListenAddr    string
	PostgresDSN   string // empty = in-memory mirror
	RedisAddr     string // empty = historian disabled
	RedisPassword string
	RedisDB       int
	JWTSecret     string
	LogLevel      string
}

// Load reads configuration from the environment. A missing .env file is
// not an error; a missing JWT secret is.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		ListenAddr:    getenv("CALLOUT_LISTEN_ADDR", ":8080"),
		PostgresDSN:   os.Getenv("CALLOUT_POSTGRES_DSN"),
		RedisAddr:     os.Getenv("CALLOUT_REDIS_ADDR"),
		RedisPassword: os.Getenv("CALLOUT_REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("CALLOUT_JWT_SECRET"),
		LogLevel:      getenv("CALLOUT_LOG_LEVEL", "info"),
	}
	if raw := os.Getenv("CALLOUT_REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid CALLOUT_REDIS_DB %q: %w", raw, err)
		}
		cfg.RedisDB = db
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("CALLOUT_JWT_SECRET must be set")
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

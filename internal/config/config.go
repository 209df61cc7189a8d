// Package config loads application configuration from the environment.
//
// A .env file is read if present (convenient in development); real
// environment variables always win. Config is loaded once in main and passed
// down explicitly — no package reads os.Getenv after startup.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port           int
	DBPath         string
	AppBaseURL     string // used to derive referral links
	JWTSecret      string
	GatewaySecret  string // shared secret: signs outbound calls, verifies webhook HMAC
	GatewayBaseURL string
	CallbackURL    string // where the gateway redirects the payer after checkout
}

// Load reads configuration from the environment, applying defaults for
// everything that has a sensible one. It returns an error for values that
// are present but malformed; missing secrets are reported by the caller
// (main logs a warning and the dependent feature is disabled).
func Load(logger *slog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug("no .env file found, using system environment variables")
	}

	port := 8080
	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("config: invalid PORT %q: %w", portStr, err)
		}
		port = p
	}

	return &Config{
		Port:           port,
		DBPath:         getEnv("DB_PATH", "data/backend.db"),
		AppBaseURL:     getEnv("APP_BASE_URL", fmt.Sprintf("http://localhost:%d", port)),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		GatewaySecret:  os.Getenv("PAYSTACK_SECRET_KEY"),
		GatewayBaseURL: getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		CallbackURL:    getEnv("PAYSTACK_CALLBACK_URL", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

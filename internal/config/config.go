package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort    int
	DatabasePath  string
	JWTSecret     string
	AdminEmail    string        // Bootstrap admin account (created if no admin exists)
	AdminSecret   string        // Bootstrap admin password
	AllowedOrigin string        // Frontend origin for CORS
	AuditSchedule string        // Cron expression for the integrity auditor
	StatsInterval time.Duration // Live statistics broadcast interval
}

// Load loads configuration from a .env file (if present) and environment
// variables, falling back to defaults.
func Load() (*Config, error) {
	// A missing .env file is fine; real environments set variables directly.
	_ = godotenv.Load()

	portStr := getEnv("PORT", "8080")
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
	}

	intervalStr := getEnv("STATS_INTERVAL", "15s")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid STATS_INTERVAL %q: %w", intervalStr, err)
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, fmt.Errorf("JWT_SECRET must be set")
	}

	return &Config{
		ServerPort:    port,
		DatabasePath:  getEnv("DATABASE_PATH", "./ballotbox.db"),
		JWTSecret:     secret,
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminSecret:   getEnv("ADMIN_PASSWORD", ""),
		AllowedOrigin: getEnv("ALLOWED_ORIGIN", "http://localhost:3000"),
		AuditSchedule: getEnv("AUDIT_SCHEDULE", "*/5 * * * *"),
		StatsInterval: interval,
	}, nil
}

// Helper to get an environment variable with a default value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

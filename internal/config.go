package internal

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// Hosted backend (auth + data) configuration
	SupabaseURL            string
	SupabaseAnonKey        string
	SupabaseServiceRoleKey string
	UpstreamTimeout        time.Duration

	// CORS origin allow-list. Empty means reflect any origin (development).
	CORSOrigins []string

	// Session cookie configuration
	AccessCookieName  string
	RefreshCookieName string
	CookieSameSite    string // "lax", "strict", "none" or "" for environment default
	CookieDomain      string

	// Frontend base URL for email confirmation redirects
	FrontendURL string

	// Metrics endpoint authentication.
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 4000),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		UpstreamTimeout: getEnvDuration("UPSTREAM_TIMEOUT", 10*time.Second),

		AccessCookieName:  getEnv("ACCESS_COOKIE_NAME", "mb-access-token"),
		RefreshCookieName: getEnv("REFRESH_COOKIE_NAME", "mb-refresh-token"),
		CookieSameSite:    getEnv("COOKIE_SAMESITE", ""),
		CookieDomain:      getEnv("COOKIE_DOMAIN", ""),

		FrontendURL: strings.TrimRight(getEnv("FRONTEND_URL", ""), "/"),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Parse CORS origins from comma-separated environment variable
	originsStr := getEnv("CORS_ORIGINS", "")
	if originsStr != "" {
		origins := strings.Split(originsStr, ",")
		for _, origin := range origins {
			trimmed := strings.TrimRight(strings.TrimSpace(origin), "/")
			if trimmed != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, trimmed)
			}
		}
	}

	// Required
	cfg.SupabaseURL = strings.TrimRight(os.Getenv("SUPABASE_URL"), "/")
	if cfg.SupabaseURL == "" {
		return nil, fmt.Errorf("SUPABASE_URL is required")
	}
	cfg.SupabaseAnonKey = os.Getenv("SUPABASE_ANON_KEY")
	if cfg.SupabaseAnonKey == "" {
		return nil, fmt.Errorf("SUPABASE_ANON_KEY is required")
	}

	// Optional: enables the duplicate-account pre-check on signup
	cfg.SupabaseServiceRoleKey = getEnv("SUPABASE_SERVICE_ROLE_KEY", "")

	switch cfg.CookieSameSite {
	case "", "lax", "strict", "none":
	default:
		return nil, fmt.Errorf("COOKIE_SAMESITE must be 'lax', 'strict' or 'none', got: %s", cfg.CookieSameSite)
	}

	return cfg, nil
}

// IsProduction reports whether the server runs with production settings
// (secure cookies, JSON logs).
func (c *Config) IsProduction() bool {
	return c.Env != "development"
}

// SlogLevel maps the LOG_LEVEL setting onto a slog level. Unknown values
// fall back to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

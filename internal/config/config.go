package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/home-telemetry/netatmo-collector/internal/readings"
)

// AppConfig is the full runtime configuration of the collector.
type AppConfig struct {
	// Environment tags every persisted reading (the sender column).
	Environment string

	Port     string
	LogLevel slog.Level

	// PollInterval controls the collection cycle period.
	PollInterval time.Duration

	// Mock disables the collector loop; the query API still serves.
	Mock bool

	// OnMissingField decides whether a module without dashboard data yields
	// a zero-filled reading or none at all.
	OnMissingField readings.MissingFieldPolicy

	SQLitePath      string
	SQLiteDSN       string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Load reads configuration from environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("no .env file loaded", "error", err)
	}

	cfg := &AppConfig{}

	cfg.Environment = getenvDefault("ENVIRONMENT", "dev")
	cfg.Port = getenvDefault("PORT", "3978")

	level, err := parseLogLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	intervalStr := getenvDefault("POLL_INTERVAL", "5m")
	interval, err := time.ParseDuration(intervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid POLL_INTERVAL: %w", err)
	}
	if interval < 5*time.Minute || interval > 15*time.Minute {
		return nil, fmt.Errorf("POLL_INTERVAL %s out of range (5m to 15m)", interval)
	}
	cfg.PollInterval = interval

	cfg.Mock = getenvDefault("MOCK", "false") == "true"

	switch policy := getenvDefault("ON_MISSING_FIELD", "omit"); policy {
	case "omit":
		cfg.OnMissingField = readings.OmitOnMissing
	case "zero":
		cfg.OnMissingField = readings.ZeroOnMissing
	default:
		return nil, fmt.Errorf("invalid ON_MISSING_FIELD %q (allowed: omit, zero)", policy)
	}

	cfg.SQLitePath = getenvDefault("SQLITE_PATH", "data/netatmo.db")
	cfg.SQLiteDSN = os.Getenv("SQLITE_DSN")
	cfg.MaxOpenConns = getenvInt("DB_MAX_OPEN_CONNS", 1)
	cfg.MaxIdleConns = getenvInt("DB_MAX_IDLE_CONNS", 1)

	lifetimeStr := getenvDefault("DB_CONN_MAX_LIFETIME", "0s")
	lifetime, err := time.ParseDuration(lifetimeStr)
	if err != nil {
		return nil, fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}
	cfg.ConnMaxLifetime = lifetime

	return cfg, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

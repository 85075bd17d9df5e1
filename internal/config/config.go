package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Telegram
	TelegramToken   string
	AdminUsernames  []string
	AdminTelegramID int64
	ChannelLink     string

	// Storage
	DatabaseURL string
	RedisURL    string

	// App
	DefaultTimezone string
	Environment     string
	Port            string
	StatsWorkers    int
	BroadcastRate   int

	// Logging
	LogLevel string
	LogFile  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:   os.Getenv("BOT_TOKEN"),
		AdminUsernames:  parseUsernames(os.Getenv("ADMIN_USERNAMES")),
		ChannelLink:     getEnv("CHANNEL_LINK", "https://t.me/mewego"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "Europe/Moscow"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		Port:            getEnv("PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		LogFile:         os.Getenv("LOG_FILE"),
	}

	if adminID := os.Getenv("ADMIN_TELEGRAM_ID"); adminID != "" {
		id, err := strconv.ParseInt(adminID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
		cfg.AdminTelegramID = id
	}

	var err error
	if cfg.StatsWorkers, err = getPositiveInt("STATS_WORKERS", 8); err != nil {
		return nil, err
	}
	if cfg.BroadcastRate, err = getPositiveInt("BROADCAST_RATE", 25); err != nil {
		return nil, err
	}

	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("BOT_TOKEN is required")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if _, err := time.LoadLocation(cfg.DefaultTimezone); err != nil {
		return nil, fmt.Errorf("invalid DEFAULT_TIMEZONE %q: %w", cfg.DefaultTimezone, err)
	}

	return cfg, nil
}

// Location returns the default timezone. Load has already validated it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.DefaultTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// IsAdminUsername matches without the leading @ and case-insensitively.
func (c *Config) IsAdminUsername(username string) bool {
	username = strings.ToLower(strings.TrimPrefix(username, "@"))
	if username == "" {
		return false
	}
	for _, u := range c.AdminUsernames {
		if u == username {
			return true
		}
	}
	return false
}

func parseUsernames(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		u := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(part), "@"))
		if u != "" {
			out = append(out, u)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid %s %q: must be a positive integer", key, raw)
	}
	return n, nil
}

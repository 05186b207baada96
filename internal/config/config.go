// Package config handles application configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"outage_bot/internal/filter"
)

// DefaultPageURL is the outage announcement page of the Qazvin distribution company.
const DefaultPageURL = "https://qepd.co.ir/fa-IR/DouranPortal/6423/page/%D8%AE%D8%A7%D9%85%D9%88%D8%B4%DB%8C-%D9%87%D8%A7"

// Config holds the application configuration.
type Config struct {
	TelegramBotToken string
	TelegramProxyURL string
	AdminUserID      int64

	PageURL       string
	CrawlInterval time.Duration
	SectionOrder  filter.Ordering

	FetchRetries int
	FetchBackoff time.Duration
	FetchTimeout time.Duration
	PageCacheTTL time.Duration

	DatabasePath string

	LogLevel      string
	LogDir        string
	LogMaxSizeMB  int
	LogMaxBackups int

	MetricsAddr string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	cfg := &Config{
		TelegramBotToken: token,
		TelegramProxyURL: os.Getenv("TELEGRAM_PROXY_URL"),
		PageURL:          envOrDefault("PAGE_URL", DefaultPageURL),
		DatabasePath:     envOrDefault("DATABASE_PATH", "./data/bot.db"),
		LogLevel:         envOrDefault("LOG_LEVEL", "info"),
		LogDir:           os.Getenv("LOG_DIR"),
		MetricsAddr:      os.Getenv("METRICS_ADDR"),
	}

	var err error
	if cfg.AdminUserID, err = envInt64("ADMIN_USER_ID", 0); err != nil {
		return nil, err
	}

	minutes, err := envInt("CRAWL_INTERVAL_MIN", 10, 1)
	if err != nil {
		return nil, err
	}
	cfg.CrawlInterval = time.Duration(minutes) * time.Minute

	if cfg.SectionOrder, err = filter.ParseOrdering(os.Getenv("SECTION_ORDER")); err != nil {
		return nil, fmt.Errorf("SECTION_ORDER: %w", err)
	}

	if cfg.FetchRetries, err = envInt("FETCH_RETRIES", 3, 1); err != nil {
		return nil, err
	}
	if cfg.FetchBackoff, err = envDuration("FETCH_BACKOFF", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.FetchTimeout, err = envDuration("FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}

	cacheSeconds, err := envInt("PAGE_CACHE_SECONDS", 60, 0)
	if err != nil {
		return nil, err
	}
	cfg.PageCacheTTL = time.Duration(cacheSeconds) * time.Second

	if cfg.LogMaxSizeMB, err = envInt("LOG_MAX_SIZE_MB", 5, 1); err != nil {
		return nil, err
	}
	if cfg.LogMaxBackups, err = envInt("LOG_MAX_BACKUPS", 5, 0); err != nil {
		return nil, err
	}

	if cfg.TelegramProxyURL != "" {
		u, err := url.Parse(cfg.TelegramProxyURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid TELEGRAM_PROXY_URL %q", cfg.TelegramProxyURL)
		}
		switch u.Scheme {
		case "http", "https", "socks5", "socks5h":
		default:
			return nil, fmt.Errorf("unsupported proxy scheme %q in TELEGRAM_PROXY_URL", u.Scheme)
		}
	}

	return cfg, nil
}

// IsAdmin reports whether userID is the configured administrator.
// No one is admin when ADMIN_USER_ID is unset.
func (c *Config) IsAdmin(userID int64) bool {
	return c.AdminUserID != 0 && userID == c.AdminUserID
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def, minimum int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if n < minimum {
		return 0, fmt.Errorf("%s must be at least %d, got %d", key, minimum, n)
	}
	return n, nil
}

func envInt64(key string, def int64) (int64, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	return d, nil
}

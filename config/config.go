// Package config loads service configuration from a YAML file with
// environment variable overrides, so containerized deployments can tweak
// single values without shipping a file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"indicator-systemv1/internal/model"
	"indicator-systemv1/internal/refresh"
)

// Config holds all application configuration.
type Config struct {
	Database struct {
		Path string `yaml:"path"`
	} `yaml:"database"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Disabled bool   `yaml:"disabled"` // run without the latest-row cache
	} `yaml:"redis"`

	Refresh struct {
		Timeframes []string `yaml:"timeframes"`
		Lookback   int      `yaml:"lookback_bars"`
		Cron       string   `yaml:"cron"` // daemon schedule, with seconds field
	} `yaml:"refresh"`

	HTTP struct {
		Addr string `yaml:"addr"` // /metrics, /healthz, /ws/status
	} `yaml:"http"`

	Log struct {
		Level string `yaml:"level"` // debug, info, warn, error
	} `yaml:"log"`
}

// Load reads config from a YAML file (missing file is fine), then applies
// environment variable overrides, then defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REDIS_DISABLED"); v != "" {
		cfg.Redis.Disabled = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("REFRESH_TIMEFRAMES"); v != "" {
		cfg.Refresh.Timeframes = splitList(v)
	}
	if v := os.Getenv("LOOKBACK_BARS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Refresh.Lookback = n
		}
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Refresh.Cron = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	// Defaults
	if cfg.Database.Path == "" {
		cfg.Database.Path = "data/stocks.db"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if len(cfg.Refresh.Timeframes) == 0 {
		cfg.Refresh.Timeframes = model.Timeframes
	}
	if cfg.Refresh.Lookback == 0 {
		cfg.Refresh.Lookback = refresh.DefaultLookback
	}
	if cfg.Refresh.Cron == "" {
		// Weekdays at 18:30, after the daily ingestion window.
		cfg.Refresh.Cron = "0 30 18 * * 1-5"
	}
	if cfg.HTTP.Addr == "" {
		cfg.HTTP.Addr = ":9097"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	if c.Refresh.Lookback < refresh.MinLookback {
		return fmt.Errorf("refresh.lookback_bars %d below minimum %d", c.Refresh.Lookback, refresh.MinLookback)
	}
	known := map[string]bool{}
	for _, tf := range model.Timeframes {
		known[tf] = true
	}
	for _, tf := range c.Refresh.Timeframes {
		if !known[tf] {
			return fmt.Errorf("refresh.timeframes: unknown timeframe %q", tf)
		}
	}
	return nil
}

// LogLevel parses the configured level, defaulting to info.
func (c *Config) LogLevel() slog.Level {
	switch strings.ToLower(c.Log.Level) {
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

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

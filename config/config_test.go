package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "data/stocks.db" {
		t.Errorf("db path default: %q", cfg.Database.Path)
	}
	if cfg.Refresh.Lookback != 300 {
		t.Errorf("lookback default: %d", cfg.Refresh.Lookback)
	}
	if len(cfg.Refresh.Timeframes) != 3 || cfg.Refresh.Timeframes[0] != "1d" {
		t.Errorf("timeframes default: %v", cfg.Refresh.Timeframes)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults invalid: %v", err)
	}
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cfg.yaml")
	body := []byte("database:\n  path: /tmp/a.db\nrefresh:\n  lookback_bars: 400\n  timeframes: [\"1d\"]\n")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("SQLITE_PATH", "/tmp/b.db")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.Path != "/tmp/b.db" {
		t.Errorf("env must beat file: %q", cfg.Database.Path)
	}
	if cfg.Refresh.Lookback != 400 {
		t.Errorf("file value lost: %d", cfg.Refresh.Lookback)
	}
	if cfg.LogLevel().String() != "DEBUG" {
		t.Errorf("log level: %v", cfg.LogLevel())
	}
}

func TestValidate_Rejects(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	cfg.Refresh.Lookback = 100
	if err := cfg.Validate(); err == nil {
		t.Error("short lookback accepted")
	}

	cfg.Refresh.Lookback = 300
	cfg.Refresh.Timeframes = []string{"5m"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown timeframe accepted")
	}
}

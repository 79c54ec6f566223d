package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Search.DefaultCount != 100 {
		t.Errorf("Expected default count to be 100, got %d", cfg.Search.DefaultCount)
	}
	if cfg.Pagination.StallThreshold != 5 {
		t.Errorf("Expected stall threshold 5, got %d", cfg.Pagination.StallThreshold)
	}
	if cfg.Pagination.LongPauseMin != 300*time.Second || cfg.Pagination.LongPauseMax != 720*time.Second {
		t.Errorf("Unexpected long pause range %v-%v", cfg.Pagination.LongPauseMin, cfg.Pagination.LongPauseMax)
	}
	if cfg.Pagination.InitialWait != 15*time.Second {
		t.Errorf("Expected initial wait 15s, got %v", cfg.Pagination.InitialWait)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate, got %v", err)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("XSCRAPER_OUTPUT_DIR", "/tmp/scrapes")
	t.Setenv("XSCRAPER_HEADLESS", "true")
	t.Setenv("XSCRAPER_COUNT", "250")
	t.Setenv("XSCRAPER_LONG_PAUSE_MIN", "2m")
	t.Setenv("XSCRAPER_LOG_LEVEL", "debug")

	cfg := DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		t.Fatalf("Failed to load from environment: %v", err)
	}

	if cfg.Output.Directory != "/tmp/scrapes" {
		t.Errorf("Expected output directory /tmp/scrapes, got %s", cfg.Output.Directory)
	}
	if !cfg.Browser.Headless {
		t.Error("Expected headless to be enabled")
	}
	if cfg.Search.DefaultCount != 250 {
		t.Errorf("Expected count 250, got %d", cfg.Search.DefaultCount)
	}
	if cfg.Pagination.LongPauseMin != 2*time.Minute {
		t.Errorf("Expected long pause min 2m, got %v", cfg.Pagination.LongPauseMin)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.Logging.Level)
	}
}

func TestLoadFromEnvRejectsBadValues(t *testing.T) {
	t.Setenv("XSCRAPER_COUNT", "many")
	t.Setenv("XSCRAPER_INITIAL_WAIT", "soon")

	err := DefaultConfig().LoadFromEnv()
	if err == nil {
		t.Fatal("Expected error for malformed env values")
	}
	if !strings.Contains(err.Error(), "XSCRAPER_COUNT") || !strings.Contains(err.Error(), "XSCRAPER_INITIAL_WAIT") {
		t.Errorf("Expected both keys reported, got %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
pagination:
  stall_threshold: 3
  scroll_pause_min: 1s
  scroll_pause_max: 2s
output:
  directory: ./out
  write_bom: false
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil {
		t.Fatalf("LoadFromFile failed: %v", err)
	}

	if cfg.Pagination.StallThreshold != 3 {
		t.Errorf("Expected stall threshold 3, got %d", cfg.Pagination.StallThreshold)
	}
	if cfg.Pagination.ScrollPauseMax != 2*time.Second {
		t.Errorf("Expected scroll pause max 2s, got %v", cfg.Pagination.ScrollPauseMax)
	}
	if cfg.Output.WriteBOM {
		t.Error("Expected BOM disabled by file")
	}
	// untouched keys keep defaults
	if cfg.Pagination.LongPauseMax != 720*time.Second {
		t.Errorf("Expected default long pause max, got %v", cfg.Pagination.LongPauseMax)
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"valid", func(c *Config) {}, ""},
		{"inverted scroll range", func(c *Config) { c.Pagination.ScrollPauseMax = time.Second }, "scroll pause range"},
		{"zero threshold", func(c *Config) { c.Pagination.StallThreshold = 0 }, "stall threshold"},
		{"bad source", func(c *Config) { c.Accounts.Source = "ldap" }, "accounts source"},
		{"bad proxy scheme", func(c *Config) { c.Proxy.Scheme = "ftp" }, "proxy scheme"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "log format"},
		{"bad notification type", func(c *Config) { c.Notifications.NotificationType = "sms" }, "notification type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Pagination.StallThreshold = 7
	cfg.Accounts.File = "/secure/accounts.csv"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected 0600 permissions, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Pagination.StallThreshold != 7 || loaded.Accounts.File != "/secure/accounts.csv" {
		t.Errorf("Round trip lost values: %+v", loaded.Pagination)
	}
}

func TestLoadFlagPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("output:\n  directory: from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("XSCRAPER_OUTPUT_DIR", "from-env")

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Directory != "from-env" {
		t.Errorf("env should override file, got %s", cfg.Output.Directory)
	}

	cfg, err = Load(path, map[string]interface{}{"output": "from-flag", "headless": true})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Output.Directory != "from-flag" {
		t.Errorf("flag should override env, got %s", cfg.Output.Directory)
	}
	if !cfg.Browser.Headless {
		t.Error("headless flag not applied")
	}
}

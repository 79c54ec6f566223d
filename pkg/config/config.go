package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "XSCRAPER_"

// Config holds all configuration options for the scraper
type Config struct {
	Browser       BrowserConfig      `yaml:"browser" json:"browser"`
	Search        SearchConfig       `yaml:"search" json:"search"`
	Pagination    PaginationConfig   `yaml:"pagination" json:"pagination"`
	Accounts      AccountsConfig     `yaml:"accounts" json:"accounts"`
	Proxy         ProxyConfig        `yaml:"proxy" json:"proxy"`
	Output        OutputConfig       `yaml:"output" json:"output"`
	Retry         RetryConfig        `yaml:"retry" json:"retry"`
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`
	Logging       LoggingConfig      `yaml:"logging" json:"logging"`
}

// BrowserConfig controls the browser session.
type BrowserConfig struct {
	Headless      bool          `yaml:"headless" json:"headless"`
	BinPath       string        `yaml:"bin_path" json:"bin_path"`
	UserAgent     string        `yaml:"user_agent" json:"user_agent"`
	Language      string        `yaml:"language" json:"language"`
	Stealth       bool          `yaml:"stealth" json:"stealth"`
	BlockMedia    bool          `yaml:"block_media" json:"block_media"`
	ActionTimeout time.Duration `yaml:"action_timeout" json:"action_timeout"`
}

// SearchConfig holds the search endpoint and defaults for missing inputs.
type SearchConfig struct {
	BaseURL        string `yaml:"base_url" json:"base_url"`
	LoginURL       string `yaml:"login_url" json:"login_url"`
	DefaultMode    string `yaml:"default_mode" json:"default_mode"`
	DefaultRecency string `yaml:"default_recency" json:"default_recency"`
	DefaultCount   int    `yaml:"default_count" json:"default_count"`
}

// PaginationConfig mirrors the engine tuning knobs.
type PaginationConfig struct {
	ItemSelector     string        `yaml:"item_selector" json:"item_selector"`
	InitialWait      time.Duration `yaml:"initial_wait" json:"initial_wait"`
	ScrollPauseMin   time.Duration `yaml:"scroll_pause_min" json:"scroll_pause_min"`
	ScrollPauseMax   time.Duration `yaml:"scroll_pause_max" json:"scroll_pause_max"`
	StallPauseFactor float64       `yaml:"stall_pause_factor" json:"stall_pause_factor"`
	StallThreshold   int           `yaml:"stall_threshold" json:"stall_threshold"`
	LongPauseMin     time.Duration `yaml:"long_pause_min" json:"long_pause_min"`
	LongPauseMax     time.Duration `yaml:"long_pause_max" json:"long_pause_max"`
}

// AccountsConfig selects where login credentials come from.
type AccountsConfig struct {
	File             string        `yaml:"file" json:"file"`
	Source           string        `yaml:"source" json:"source"`
	InitialDelayMin  time.Duration `yaml:"initial_delay_min" json:"initial_delay_min"`
	InitialDelayMax  time.Duration `yaml:"initial_delay_max" json:"initial_delay_max"`
	FailureGrace     time.Duration `yaml:"failure_grace" json:"failure_grace"`
	LoginsPerMinute  int           `yaml:"logins_per_minute" json:"logins_per_minute"`
	ManualCheckpoint bool          `yaml:"manual_checkpoint" json:"manual_checkpoint"`
}

// ProxyConfig controls proxy selection.
type ProxyConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	File         string        `yaml:"file" json:"file"`
	Scheme       string        `yaml:"scheme" json:"scheme"`
	Probe        bool          `yaml:"probe" json:"probe"`
	ProbeTimeout time.Duration `yaml:"probe_timeout" json:"probe_timeout"`
}

// OutputConfig holds output file configuration
type OutputConfig struct {
	Directory         string `yaml:"directory" json:"directory"`
	FilePrefix        string `yaml:"file_prefix" json:"file_prefix"`
	WriteBOM          bool   `yaml:"write_bom" json:"write_bom"`
	OverwriteExisting bool   `yaml:"overwrite_existing" json:"overwrite_existing"`
	WriteMetadata     bool   `yaml:"write_metadata" json:"write_metadata"`
	WriteReport       bool   `yaml:"write_report" json:"write_report"`
	Checkpoint        bool   `yaml:"checkpoint" json:"checkpoint"`
}

// RetryConfig controls retries of browser launch and navigation.
type RetryConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	InitialDelay time.Duration `yaml:"initial_delay" json:"initial_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnComplete       bool   `yaml:"on_complete" json:"on_complete"`
	OnError          bool   `yaml:"on_error" json:"on_error"`
	OnLongPause      bool   `yaml:"on_long_pause" json:"on_long_pause"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	File   string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:      false,
			UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
			Language:      "en-US",
			Stealth:       true,
			BlockMedia:    false,
			ActionTimeout: 10 * time.Second,
		},
		Search: SearchConfig{
			BaseURL:        "https://twitter.com/search?q=",
			LoginURL:       "https://twitter.com/i/flow/login",
			DefaultMode:    "hashtag",
			DefaultRecency: "latest",
			DefaultCount:   100,
		},
		Pagination: PaginationConfig{
			ItemSelector:     `article[data-testid="tweet"]`,
			InitialWait:      15 * time.Second,
			ScrollPauseMin:   3 * time.Second,
			ScrollPauseMax:   6 * time.Second,
			StallPauseFactor: 1.5,
			StallThreshold:   5,
			LongPauseMin:     300 * time.Second,
			LongPauseMax:     720 * time.Second,
		},
		Accounts: AccountsConfig{
			File:             "accounts.csv",
			Source:           "file",
			InitialDelayMin:  5 * time.Second,
			InitialDelayMax:  10 * time.Second,
			FailureGrace:     60 * time.Second,
			LoginsPerMinute:  2,
			ManualCheckpoint: true,
		},
		Proxy: ProxyConfig{
			Enabled:      false,
			File:         "proxylist.csv",
			Scheme:       "http",
			Probe:        false,
			ProbeTimeout: 5 * time.Second,
		},
		Output: OutputConfig{
			Directory:         ".",
			FilePrefix:        "twitter_scrape",
			WriteBOM:          true,
			OverwriteExisting: true,
			WriteMetadata:     true,
			WriteReport:       false,
			Checkpoint:        true,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			InitialDelay: 2 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
		Notifications: NotificationConfig{
			Enabled:          true,
			OnComplete:       true,
			OnError:          true,
			OnLongPause:      true,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	setString(&c.Browser.BinPath, "BROWSER_BIN")
	setString(&c.Browser.UserAgent, "USER_AGENT")
	setString(&c.Search.BaseURL, "SEARCH_URL")
	setString(&c.Accounts.File, "ACCOUNTS_FILE")
	setString(&c.Accounts.Source, "ACCOUNTS_SOURCE")
	setString(&c.Proxy.File, "PROXY_FILE")
	setString(&c.Output.Directory, "OUTPUT_DIR")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Logging.Format, "LOG_FORMAT")
	setString(&c.Logging.File, "LOG_FILE")

	errs = append(errs,
		setBool(&c.Browser.Headless, "HEADLESS"),
		setBool(&c.Proxy.Enabled, "PROXY_ENABLED"),
		setBool(&c.Notifications.Enabled, "NOTIFICATIONS_ENABLED"),
		setInt(&c.Search.DefaultCount, "COUNT"),
		setInt(&c.Pagination.StallThreshold, "STALL_THRESHOLD"),
		setDuration(&c.Pagination.InitialWait, "INITIAL_WAIT"),
		setDuration(&c.Pagination.LongPauseMin, "LONG_PAUSE_MIN"),
		setDuration(&c.Pagination.LongPauseMax, "LONG_PAUSE_MAX"),
	)

	return errors.Join(errs...)
}

func setString(dst *string, key string) {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = b
	return nil
}

func setInt(dst *int, key string) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("%s%s: %w", EnvPrefix, key, err)
	}
	*dst = d
	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = FindConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// FindConfigFile searches for a config file in standard locations.
func FindConfigFile() string {
	home, _ := os.UserHomeDir()
	locations := []string{
		".xscraper.yaml",
		".xscraper.yml",
		filepath.Join(home, ".config", "xscraper", "config.yaml"),
		filepath.Join(home, ".config", "xscraper", "config.yml"),
		filepath.Join(home, ".xscraper.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// DefaultPath is where `config init` writes when no path is given.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".xscraper.yaml"
	}
	return filepath.Join(home, ".config", "xscraper", "config.yaml")
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Search.BaseURL == "" {
		errs = append(errs, errors.New("search base URL is required"))
	}
	if c.Search.DefaultCount <= 0 {
		errs = append(errs, errors.New("default count must be positive"))
	}

	p := c.Pagination
	if p.ItemSelector == "" {
		errs = append(errs, errors.New("item selector is required"))
	}
	if p.InitialWait <= 0 {
		errs = append(errs, errors.New("initial wait must be positive"))
	}
	if p.ScrollPauseMin < 0 || p.ScrollPauseMax < p.ScrollPauseMin {
		errs = append(errs, errors.New("scroll pause range is invalid"))
	}
	if p.LongPauseMin < 0 || p.LongPauseMax < p.LongPauseMin {
		errs = append(errs, errors.New("long pause range is invalid"))
	}
	if p.StallThreshold <= 0 {
		errs = append(errs, errors.New("stall threshold must be positive"))
	}
	if p.StallPauseFactor < 1 {
		errs = append(errs, errors.New("stall pause factor must be at least 1"))
	}

	if c.Accounts.InitialDelayMax < c.Accounts.InitialDelayMin {
		errs = append(errs, errors.New("account initial delay range is invalid"))
	}
	if c.Accounts.LoginsPerMinute <= 0 {
		errs = append(errs, errors.New("logins per minute must be positive"))
	}
	validSources := map[string]bool{"file": true, "keyring": true, "encrypted": true, "env": true}
	if !validSources[strings.ToLower(c.Accounts.Source)] {
		errs = append(errs, fmt.Errorf("invalid accounts source %q", c.Accounts.Source))
	}

	validSchemes := map[string]bool{"http": true, "https": true, "socks4": true, "socks5": true}
	if !validSchemes[strings.ToLower(c.Proxy.Scheme)] {
		errs = append(errs, fmt.Errorf("invalid proxy scheme %q", c.Proxy.Scheme))
	}

	if c.Output.Directory == "" {
		errs = append(errs, errors.New("output directory is required"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry max attempts must be at least 1"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}
	if f := strings.ToLower(c.Logging.Format); f != "console" && f != "json" {
		errs = append(errs, errors.New("log format must be console or json"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	return errors.Join(errs...)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only flags explicitly present in the map are applied.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = v
	}
	if v, ok := flags["accounts"].(string); ok && v != "" {
		c.Accounts.File = v
	}
	if v, ok := flags["proxy"].(bool); ok {
		c.Proxy.Enabled = v
	}
	if v, ok := flags["proxy-file"].(string); ok && v != "" {
		c.Proxy.File = v
	}
	if v, ok := flags["output"].(string); ok && v != "" {
		c.Output.Directory = v
	}
	if v, ok := flags["report"].(bool); ok {
		c.Output.WriteReport = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["stall-threshold"].(int); ok && v > 0 {
		c.Pagination.StallThreshold = v
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	if home, err := os.UserHomeDir(); err == nil {
		_ = godotenv.Load(filepath.Join(home, ".xscraper.env"))
	}

	cfg := DefaultConfig()

	if err := cfg.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := cfg.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg.MergeCommandLineFlags(flags)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

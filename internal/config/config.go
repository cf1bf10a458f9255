package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Config represents the inbox configuration from config.toml
type Config struct {
	API struct {
		URL            string  `toml:"url"`
		Key            string  `toml:"key"`
		TimeoutSeconds int     `toml:"timeout_seconds"`
		RatePerSecond  float64 `toml:"rate_per_second"` // 0 disables client-side limiting
	} `toml:"api"`
	Feed struct {
		PageSize       int `toml:"page_size"`
		MaxPages       int `toml:"max_pages"`
		LoadThreshold  int `toml:"load_threshold"`  // rows from an edge
		StickThreshold int `toml:"stick_threshold"` // rows from the bottom
	} `toml:"feed"`
	Local struct {
		DBPath string `toml:"db_path"`
	} `toml:"local"`
	TUI struct {
		Theme           string `toml:"theme"`
		Live            bool   `toml:"live"`
		RefreshInterval int    `toml:"refresh_interval"` // local polling in seconds, 0 disables
	} `toml:"tui"`
	Log struct {
		Level string `toml:"level"`
		Path  string `toml:"path"`
	} `toml:"log"`
	Metrics struct {
		Addr string `toml:"addr"`
	} `toml:"metrics"`
}

// Default returns a config with every default applied
func Default() *Config {
	c := &Config{}
	c.API.URL = "http://localhost:12345"
	c.API.TimeoutSeconds = 10
	c.API.RatePerSecond = 10
	c.Feed.PageSize = 30
	c.Feed.MaxPages = 5
	c.Feed.LoadThreshold = 8
	c.Feed.StickThreshold = 2
	c.TUI.Theme = "default"
	c.TUI.Live = true
	c.TUI.RefreshInterval = 30
	c.Log.Level = "info"
	return c
}

// Dir returns the inbox config directory under XDG_CONFIG_HOME
func Dir() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "inbox"), nil
}

// LoadConfig loads configuration from the standard XDG config path with sensible defaults
func LoadConfig() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	return Load(filepath.Join(dir, "config.toml"))
}

// Load reads the config file at path, merging it over the defaults. A
// missing file is not an error. Environment overrides are applied last;
// a .env file in the working directory or next to the config is loaded
// first without clobbering variables already set.
func Load(path string) (*Config, error) {
	config := Default()

	// Read config file if it exists
	if _, err := os.Stat(path); err == nil {
		configData, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		// Parse TOML config, merging with defaults
		if err := toml.Unmarshal(configData, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	loadDotenv(filepath.Join(filepath.Dir(path), ".env"))
	if err := config.applyEnv(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func loadDotenv(extra string) {
	for _, f := range []string{".env", extra} {
		if _, err := os.Stat(f); err == nil {
			_ = godotenv.Load(f)
		}
	}
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("INBOX_URL"); v != "" {
		c.API.URL = v
	}
	if v := os.Getenv("INBOX_API_KEY"); v != "" {
		c.API.Key = v
	}
	if v := os.Getenv("INBOX_DB"); v != "" {
		c.Local.DBPath = v
	}
	if v := os.Getenv("INBOX_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("INBOX_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid INBOX_PAGE_SIZE %q: %w", v, err)
		}
		c.Feed.PageSize = n
	}
	return nil
}

// Validate checks value ranges that would otherwise fail later
func (c *Config) Validate() error {
	if c.Feed.PageSize < 1 || c.Feed.PageSize > 100 {
		return fmt.Errorf("feed.page_size must be between 1 and 100, got %d", c.Feed.PageSize)
	}
	if c.Feed.MaxPages < 1 {
		return fmt.Errorf("feed.max_pages must be at least 1, got %d", c.Feed.MaxPages)
	}
	if c.Feed.LoadThreshold < 0 || c.Feed.StickThreshold < 0 {
		return fmt.Errorf("feed thresholds must not be negative")
	}
	if c.API.RatePerSecond < 0 {
		return fmt.Errorf("api.rate_per_second must not be negative")
	}
	return nil
}

// Timeout returns the per-request API timeout
func (c *Config) Timeout() time.Duration {
	if c.API.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}

// GetRefreshInterval returns the configured local polling interval in seconds
// Returns 0 if polling is disabled
func (c *Config) GetRefreshInterval() int {
	return c.TUI.RefreshInterval
}

// IsLocal reports whether the feed should be read from a local database
func (c *Config) IsLocal() bool {
	return c.Local.DBPath != ""
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/chartscope-portal/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Environment string               `toml:"environment"`
	Server      ServerConfig         `toml:"server"`
	API         APIConfig            `toml:"api"`
	History     HistoryConfig        `toml:"history"`
	Storage     StorageConfig        `toml:"storage"`
	Settings    SettingsConfig       `toml:"settings"`
	Logging     common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// APIConfig contains the analysis backend settings.
type APIConfig struct {
	URL            string `toml:"url"`
	AnalyzePath    string `toml:"analyze_path"`
	TiersPath      string `toml:"tiers_path"`
	HealthPath     string `toml:"health_path"`
	Timeout        string `toml:"timeout"`
	CatalogTimeout string `toml:"catalog_timeout"`
}

// GetTimeout parses the client-side analysis deadline, defaulting to 30s.
func (c *APIConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}

// GetCatalogTimeout parses the tier catalog fetch deadline, defaulting to 10s.
func (c *APIConfig) GetCatalogTimeout() time.Duration {
	d, err := time.ParseDuration(c.CatalogTimeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// HistoryConfig contains analysis history retention settings.
type HistoryConfig struct {
	MaxRecords      int   `toml:"max_records"`
	KeepFullResults int   `toml:"keep_full_results"`
	MaxBytes        int64 `toml:"max_bytes"`
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// SettingsConfig contains user-facing defaults.
type SettingsConfig struct {
	DefaultTier string  `toml:"default_tier"`
	BudgetLimit float64 `toml:"budget_limit"`
	ColorVision string  `toml:"color_vision"`
}

// IsDevMode returns true when running in the dev environment.
func (c *Config) IsDevMode() bool {
	return strings.ToLower(strings.TrimSpace(c.Environment)) == "dev"
}

// BaseURL returns the externally reachable portal URL.
func (c *Config) BaseURL() string {
	return fmt.Sprintf("http://%s:%d", c.Server.Host, c.Server.Port)
}

// AnalyzeURL returns the full URL of the analysis endpoint.
func (c *Config) AnalyzeURL() string {
	return strings.TrimRight(c.API.URL, "/") + c.API.AnalyzePath
}

// Validate returns a list of configuration problems. Empty means valid.
func (c *Config) Validate() []string {
	var issues []string
	if strings.TrimSpace(c.API.URL) == "" {
		issues = append(issues, "api.url is required (CHARTSCOPE_API_URL)")
	} else if !strings.HasPrefix(c.API.URL, "http://") && !strings.HasPrefix(c.API.URL, "https://") {
		issues = append(issues, fmt.Sprintf("api.url must start with http:// or https:// (got %q)", c.API.URL))
	}
	if !strings.HasPrefix(c.API.AnalyzePath, "/") {
		issues = append(issues, "api.analyze_path must start with /")
	}
	if !strings.HasPrefix(c.API.TiersPath, "/") {
		issues = append(issues, "api.tiers_path must start with /")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port out of range: %d", c.Server.Port))
	}
	if c.History.MaxRecords <= 0 {
		issues = append(issues, "history.max_records must be positive")
	}
	if c.History.KeepFullResults < 0 {
		issues = append(issues, "history.keep_full_results must not be negative")
	}
	if c.Settings.BudgetLimit < 0 {
		issues = append(issues, "settings.budget_limit must not be negative")
	}
	return issues
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> .env -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// .env never overrides variables already present in the environment
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("failed to load .env: %w", err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies CHARTSCOPE_* environment variable overrides to config.
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("CHARTSCOPE_ENV"); env != "" {
		config.Environment = env
	}
	if port := os.Getenv("CHARTSCOPE_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("CHARTSCOPE_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if url := os.Getenv("CHARTSCOPE_API_URL"); url != "" {
		config.API.URL = url
	}
	if timeout := os.Getenv("CHARTSCOPE_API_TIMEOUT"); timeout != "" {
		config.API.Timeout = timeout
	}
	if badgerPath := os.Getenv("CHARTSCOPE_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if tier := os.Getenv("CHARTSCOPE_DEFAULT_TIER"); tier != "" {
		config.Settings.DefaultTier = tier
	}
	if budget := os.Getenv("CHARTSCOPE_BUDGET_LIMIT"); budget != "" {
		if b, err := strconv.ParseFloat(budget, 64); err == nil {
			config.Settings.BudgetLimit = b
		}
	}
	if cv := os.Getenv("CHARTSCOPE_COLOR_VISION"); cv != "" {
		config.Settings.ColorVision = cv
	}
	if level := os.Getenv("CHARTSCOPE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

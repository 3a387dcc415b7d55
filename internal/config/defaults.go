package config

import "github.com/bobmcallan/chartscope-portal/internal/common"

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "prod",
		Server: ServerConfig{
			Port: 4251,
			Host: "localhost",
		},
		API: APIConfig{
			URL:            "http://localhost:8000",
			AnalyzePath:    "/analyze/full",
			TiersPath:      "/config/tiers",
			HealthPath:     "/health",
			Timeout:        "30s",
			CatalogTimeout: "10s",
		},
		History: HistoryConfig{
			MaxRecords:      10,
			KeepFullResults: 5,
			MaxBytes:        5 << 20,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/chartscope",
			},
		},
		Settings: SettingsConfig{
			DefaultTier: "standard",
			BudgetLimit: 10,
			ColorVision: "standard",
		},
		Logging: common.LoggingConfig{
			Level:      "info",
			Outputs:    []string{"console"},
			FilePath:   "logs/chartscope.log",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

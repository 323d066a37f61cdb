// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Dashboard DashboardConfig `toml:"dashboard"`
	Source    SourceConfig    `toml:"source"`
	Logging   LoggingConfig   `toml:"logging"`
}

// DashboardConfig maps dashboard-related settings.
type DashboardConfig struct {
	MaxPackages *int    `toml:"max-packages"`
	Window      *int    `toml:"window"`
	SortByDate  *bool   `toml:"sort-by-date"`
	Theme       *string `toml:"theme"`
}

// SourceConfig maps settings for the download stats API.
type SourceConfig struct {
	BaseURL        *string `toml:"base-url"`
	TimeoutSeconds *int    `toml:"timeout-seconds"`
	UserAgent      *string `toml:"user-agent"`
}

// LoggingConfig maps log settings.
type LoggingConfig struct {
	Level *string `toml:"level"`
	File  *string `toml:"file"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Package daemon holds process configuration. Config is TOML on disk
// with sane defaults; GRUNGA_CONFIG overrides the path.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/grunga-fit/grunga/internal/app/streak"
	"github.com/grunga-fit/grunga/internal/clock"
)

// Config is the full daemon configuration.
type Config struct {
	API          APIConfig          `toml:"api"`
	Database     DatabaseConfig     `toml:"database"`
	Clock        ClockConfig        `toml:"clock"`
	Gamification GamificationConfig `toml:"gamification"`
	Maintenance  MaintenanceConfig  `toml:"maintenance"`
}

// APIConfig controls the HTTP listener.
type APIConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	MetricsEnabled bool   `toml:"metrics_enabled"`
}

// DatabaseConfig locates the sqlite file.
type DatabaseConfig struct {
	Path string `toml:"path"`
}

// ClockConfig sets the business timezone.
type ClockConfig struct {
	Timezone string `toml:"timezone"`
}

// GamificationConfig tunes the scoring rules.
type GamificationConfig struct {
	StreakThreshold int64 `toml:"streak_threshold"`
}

// MaintenanceConfig controls the daily trigger.
type MaintenanceConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8081,
			MetricsEnabled: true,
		},
		Database: DatabaseConfig{
			Path: defaultDBPath(),
		},
		Clock: ClockConfig{
			Timezone: clock.DefaultTimezone,
		},
		Gamification: GamificationConfig{
			StreakThreshold: streak.DefaultThreshold,
		},
		Maintenance: MaintenanceConfig{
			Enabled: true,
		},
	}
}

func defaultDBPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "grunga.db"
	}
	return filepath.Join(home, ".grunga", "grunga.db")
}

// ConfigPath returns the config file location, honoring GRUNGA_CONFIG.
func ConfigPath() string {
	if p := os.Getenv("GRUNGA_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "grunga.toml"
	}
	return filepath.Join(home, ".grunga", "config.toml")
}

// LoadConfig reads TOML from path, layered over defaults. A missing
// file is not an error; defaults apply.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Addr returns the listen address in host:port form.
func (c APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Package config loads the daemon configuration from file, environment,
// and defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the complete daemon configuration.
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Storage StorageConfig `mapstructure:"storage"`
	Logging LoggingConfig `mapstructure:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// EngineConfig defines the enforcement engine timings.
type EngineConfig struct {
	InterventionCooldown time.Duration `mapstructure:"intervention_cooldown"`
	HomeActionCooldown   time.Duration `mapstructure:"home_action_cooldown"`
	AutoDismissTimeout   time.Duration `mapstructure:"auto_dismiss_timeout"`
	QueryTimeout         time.Duration `mapstructure:"query_timeout"`
	PollInterval         time.Duration `mapstructure:"poll_interval"`
	InactivityTimeout    time.Duration `mapstructure:"inactivity_timeout"`
	SelfPackage          string        `mapstructure:"self_package"`
}

// StorageConfig defines where the encrypted store lives.
type StorageConfig struct {
	DataDir       string `mapstructure:"data_dir"`
	RetentionDays int    `mapstructure:"retention_days"`
}

// LoggingConfig defines logging behavior.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // empty = stderr
}

// MetricsConfig defines the optional Prometheus listener.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// Load reads configuration from the given file (optional), the default
// locations, and SCREENGUARD_* environment variables, on top of defaults.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("SCREENGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", configFile, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/screenguard")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".screenguard"))
		}
		if err := v.ReadInConfig(); err != nil {
			// Missing config is fine; anything else is not.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.Storage.DataDir = expandHome(cfg.Storage.DataDir)
	cfg.Logging.File = expandHome(cfg.Logging.File)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine.intervention_cooldown", "5s")
	v.SetDefault("engine.home_action_cooldown", "2s")
	v.SetDefault("engine.auto_dismiss_timeout", "3s")
	v.SetDefault("engine.query_timeout", "500ms")
	v.SetDefault("engine.poll_interval", "1s")
	v.SetDefault("engine.inactivity_timeout", "2m")
	v.SetDefault("engine.self_package", "screenguard")

	v.SetDefault("storage.data_dir", "~/.local/share/screenguard")
	v.SetDefault("storage.retention_days", 90)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.file", "")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", "127.0.0.1:9437")
}

func (c *Config) validate() error {
	if c.Engine.InterventionCooldown <= 0 {
		return fmt.Errorf("engine.intervention_cooldown must be positive")
	}
	if c.Engine.HomeActionCooldown <= 0 {
		return fmt.Errorf("engine.home_action_cooldown must be positive")
	}
	if c.Engine.AutoDismissTimeout <= 0 {
		return fmt.Errorf("engine.auto_dismiss_timeout must be positive")
	}
	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("engine.poll_interval must be positive")
	}
	if c.Storage.RetentionDays <= 0 {
		return fmt.Errorf("storage.retention_days must be positive")
	}
	return nil
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

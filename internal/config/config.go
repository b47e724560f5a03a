// Package config loads engine settings from a config file and
// environment variables. Environment variables use the LOCALSEARCH_
// prefix and override file values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Embedding configures the optional embedding provider
type Embedding struct {
	Provider  string `mapstructure:"provider"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	Dimension int    `mapstructure:"dimension"`
	CacheSize int    `mapstructure:"cache_size"`
}

// Config holds all engine settings
type Config struct {
	DBPath    string    `mapstructure:"db_path"`
	Embedding Embedding `mapstructure:"embedding"`
}

// DefaultDBPath returns the default index location under the user's
// home directory
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".localsearch", "index.db"), nil
}

// Load reads configuration from the optional file at cfgFile (or the
// default search locations when empty) and from LOCALSEARCH_*
// environment variables
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	v.SetDefault("db_path", "")
	v.SetDefault("embedding.provider", "")
	v.SetDefault("embedding.model", "")
	v.SetDefault("embedding.dimension", 0)
	v.SetDefault("embedding.cache_size", 1000)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("localsearch")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".localsearch"))
		}
	}

	v.SetEnvPrefix("LOCALSEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// A missing default config file is fine; env vars and
		// defaults still apply. An explicit file must exist.
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if cfg.DBPath == "" {
		dbPath, err := DefaultDBPath()
		if err != nil {
			return nil, err
		}
		cfg.DBPath = dbPath
	}
	return &cfg, nil
}

// EnsureDBDir creates the parent directory of the configured database
// path
func (c *Config) EnsureDBDir() error {
	if err := os.MkdirAll(filepath.Dir(c.DBPath), 0o755); err != nil {
		return fmt.Errorf("failed to create database directory: %w", err)
	}
	return nil
}

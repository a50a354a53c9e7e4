// Copyright 2026 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/joho/godotenv"
	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"

	"github.com/canonical/sqlbind"
)

// Config holds the CLI configuration.
type Config struct {
	// Driver is a provider name, e.g. "postgres", or a database/sql driver
	// name.
	Driver   string
	DSN      string
	LogLevel string
	// Output is "table" or "json".
	Output string
}

// loadConfig reads the configuration from, in increasing priority, the
// config file, .env files, SQLBIND_* environment variables and flags.
func loadConfig(v *viper.Viper, configFile string) (*Config, error) {
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		home, err := homedir.Dir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(".sqlbind")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath(home)
		v.AddConfigPath(filepath.Join(home, ".config", "sqlbind"))
	}

	// Load .env files if they exist, .env.local taking priority.
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("cannot load .env: %w", err)
		}
	}
	if _, err := os.Stat(".env.local"); err == nil {
		if err := godotenv.Overload(".env.local"); err != nil {
			return nil, fmt.Errorf("cannot load .env.local: %w", err)
		}
	}

	v.SetEnvPrefix("SQLBIND")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "warn")
	v.SetDefault("output", "table")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || configFile != "" {
			return nil, fmt.Errorf("cannot read config: %w", err)
		}
	}

	cfg := &Config{
		Driver:   v.GetString("driver"),
		DSN:      v.GetString("dsn"),
		LogLevel: v.GetString("log-level"),
		Output:   v.GetString("output"),
	}
	if cfg.Output != "table" && cfg.Output != "json" {
		return nil, fmt.Errorf("output must be table or json, got %q", cfg.Output)
	}
	return cfg, nil
}

func (cfg *Config) logger(opts *hclog.LoggerOptions) hclog.Logger {
	opts.Name = "sqlbind"
	opts.Level = hclog.LevelFromString(cfg.LogLevel)
	return hclog.New(opts)
}

// open opens the configured database.
func (cfg *Config) open(logger hclog.Logger) (*sqlbind.DB, error) {
	if cfg.Driver == "" {
		return nil, fmt.Errorf("no driver configured, set --driver or SQLBIND_DRIVER")
	}
	if cfg.DSN == "" {
		return nil, fmt.Errorf("no data source configured, set --dsn or SQLBIND_DSN")
	}
	return sqlbind.Open(cfg.Driver, cfg.DSN, sqlbind.WithLogger(logger))
}

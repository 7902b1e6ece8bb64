// Package config loads resaleidx's runtime configuration from a YAML file.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config is the top-level configuration for both the loadcsv and query
// command-line entry points.
type Config struct {
	DataDir  string `mapstructure:"data_dir"`
	IndexDir string `mapstructure:"index_dir"`

	Pager struct {
		CacheBlocks int `mapstructure:"cache_blocks"`
	} `mapstructure:"pager"`

	Log struct {
		Level  string `mapstructure:"level"`
		Pretty bool   `mapstructure:"pretty"`
	} `mapstructure:"log"`

	Metrics struct {
		Enabled bool   `mapstructure:"enabled"`
		Addr    string `mapstructure:"addr"`
	} `mapstructure:"metrics"`
}

// Default returns the configuration used when no config file is supplied.
func Default() Config {
	return Config{
		DataDir:  "data_store",
		IndexDir: "data_store/index",
		Pager: struct {
			CacheBlocks int `mapstructure:"cache_blocks"`
		}{CacheBlocks: 256},
		Log: struct {
			Level  string `mapstructure:"level"`
			Pretty bool   `mapstructure:"pretty"`
		}{Level: "info", Pretty: true},
	}
}

// Load reads a YAML config file at path, falling back to Default() for any
// field the file doesn't set.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return cfg, nil
}

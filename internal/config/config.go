// Package config handles configuration loading for the CohortScope server.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cohortscope/server/internal/logging"
)

// Config represents the server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Cache     CacheConfig     `yaml:"cache"`
	Render    RenderConfig    `yaml:"render"`
	Generator GeneratorConfig `yaml:"generator"`
	Contrast  ContrastConfig  `yaml:"contrast"`
	Log       logging.Config  `yaml:"log"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port        int      `yaml:"port"`
	CORSOrigins []string `yaml:"cors_origins"`
	Title       string   `yaml:"title"`
}

// CacheConfig sizes the chart cache, the payload cache and the session
// registry.
type CacheConfig struct {
	ChartSizeMB     int `yaml:"chart_size_mb"`
	ChartTTLMinutes int `yaml:"chart_ttl_minutes"`
	QueryCacheSize  int `yaml:"query_cache_size"`
	SessionCapacity int `yaml:"session_capacity"`
}

// ChartTTL is the chart cache lifetime.
func (c CacheConfig) ChartTTL() time.Duration {
	return time.Duration(c.ChartTTLMinutes) * time.Minute
}

// RenderConfig contains chart rendering settings.
type RenderConfig struct {
	Width           int    `yaml:"width"`
	Height          int    `yaml:"height"`
	DefaultColormap string `yaml:"default_colormap"`
}

// GeneratorConfig seeds the synthetic datasets. A zero seed derives one
// from the clock at startup.
type GeneratorConfig struct {
	Seed uint64 `yaml:"seed"`
}

// ContrastConfig configures outcome contrast jobs.
type ContrastConfig struct {
	MaxConcurrent int    `yaml:"max_concurrent"`
	SQLitePath    string `yaml:"sqlite_path"`
	RetentionDays int    `yaml:"retention_days"`
	Replicates    int    `yaml:"replicates"`
}

// Retention is how long finished jobs are kept.
func (c ContrastConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
			Title:       "Patient Story Dashboard",
		},
		Cache: CacheConfig{
			ChartSizeMB:     128,
			ChartTTLMinutes: 10,
			QueryCacheSize:  1024,
			SessionCapacity: 4096,
		},
		Render: RenderConfig{
			Width:           640,
			Height:          400,
			DefaultColormap: "expression",
		},
		Contrast: ContrastConfig{
			MaxConcurrent: 2,
			SQLitePath:    "./data/contrast_jobs.sqlite",
			RetentionDays: 7,
			Replicates:    20,
		},
		Log: logging.Config{
			Level:  "info",
			Format: "json",
		},
	}
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()

	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaults.Server.Port
	}
	if len(cfg.Server.CORSOrigins) == 0 {
		cfg.Server.CORSOrigins = defaults.Server.CORSOrigins
	}
	if cfg.Server.Title == "" {
		cfg.Server.Title = defaults.Server.Title
	}
	if cfg.Cache.ChartSizeMB == 0 {
		cfg.Cache.ChartSizeMB = defaults.Cache.ChartSizeMB
	}
	if cfg.Cache.ChartTTLMinutes == 0 {
		cfg.Cache.ChartTTLMinutes = defaults.Cache.ChartTTLMinutes
	}
	if cfg.Cache.QueryCacheSize == 0 {
		cfg.Cache.QueryCacheSize = defaults.Cache.QueryCacheSize
	}
	if cfg.Cache.SessionCapacity == 0 {
		cfg.Cache.SessionCapacity = defaults.Cache.SessionCapacity
	}
	if cfg.Render.Width == 0 {
		cfg.Render.Width = defaults.Render.Width
	}
	if cfg.Render.Height == 0 {
		cfg.Render.Height = defaults.Render.Height
	}
	if cfg.Render.DefaultColormap == "" {
		cfg.Render.DefaultColormap = defaults.Render.DefaultColormap
	}
	if cfg.Contrast.MaxConcurrent == 0 {
		cfg.Contrast.MaxConcurrent = defaults.Contrast.MaxConcurrent
	}
	if cfg.Contrast.SQLitePath == "" {
		cfg.Contrast.SQLitePath = defaults.Contrast.SQLitePath
	}
	if cfg.Contrast.RetentionDays == 0 {
		cfg.Contrast.RetentionDays = defaults.Contrast.RetentionDays
	}
	if cfg.Contrast.Replicates == 0 {
		cfg.Contrast.Replicates = defaults.Contrast.Replicates
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = defaults.Log.Format
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_FullFile(t *testing.T) {
	content := `
server:
  port: 9000
  cors_origins: ["https://dash.example.org"]
  title: "Melanoma cohort"
cache:
  chart_size_mb: 64
  chart_ttl_minutes: 5
render:
  width: 800
  height: 500
  default_colormap: viridis
generator:
  seed: 1234
contrast:
  max_concurrent: 4
  sqlite_path: "/var/lib/cohortscope/jobs.sqlite"
  replicates: 50
log:
  level: debug
  format: console
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "https://dash.example.org" {
		t.Errorf("unexpected cors origins: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Server.Title != "Melanoma cohort" {
		t.Errorf("unexpected title %q", cfg.Server.Title)
	}
	if cfg.Cache.ChartTTL() != 5*time.Minute {
		t.Errorf("expected 5m ttl, got %v", cfg.Cache.ChartTTL())
	}
	if cfg.Render.Width != 800 || cfg.Render.Height != 500 {
		t.Errorf("unexpected render size %dx%d", cfg.Render.Width, cfg.Render.Height)
	}
	if cfg.Generator.Seed != 1234 {
		t.Errorf("expected seed 1234, got %d", cfg.Generator.Seed)
	}
	if cfg.Contrast.MaxConcurrent != 4 || cfg.Contrast.Replicates != 50 {
		t.Errorf("unexpected contrast config %+v", cfg.Contrast)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "console" {
		t.Errorf("unexpected log config %+v", cfg.Log)
	}
}

func TestLoad_DefaultsApplied(t *testing.T) {
	content := `
server:
  port: 0
contrast:
  retention_days: 30
`
	cfg := loadFromString(t, content)

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Cache.ChartSizeMB != 128 {
		t.Errorf("expected default chart cache 128, got %d", cfg.Cache.ChartSizeMB)
	}
	if cfg.Cache.SessionCapacity != 4096 {
		t.Errorf("expected default session capacity 4096, got %d", cfg.Cache.SessionCapacity)
	}
	if cfg.Render.DefaultColormap != "expression" {
		t.Errorf("expected default colormap 'expression', got %q", cfg.Render.DefaultColormap)
	}
	if cfg.Contrast.Retention() != 30*24*time.Hour {
		t.Errorf("expected 30 day retention, got %v", cfg.Contrast.Retention())
	}
	if cfg.Contrast.Replicates != 20 {
		t.Errorf("expected default replicates 20, got %d", cfg.Contrast.Replicates)
	}
	if cfg.Generator.Seed != 0 {
		t.Errorf("expected time-based seed (0), got %d", cfg.Generator.Seed)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected info level, got %q", cfg.Log.Level)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not fail: %v", err)
	}
	if cfg.Server.Port != DefaultConfig().Server.Port {
		t.Errorf("expected defaults, got port %d", cfg.Server.Port)
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [unterminated"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected a parse error")
	}
}

func loadFromString(t *testing.T, content string) *Config {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dshills/featurehost/internal/feature"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
	if cfg.Engine.ProviderTimeout.Std() != 5*time.Second {
		t.Errorf("Default provider timeout: got %v", cfg.Engine.ProviderTimeout.Std())
	}
}

func TestLoad_FilesAndEnv(t *testing.T) {
	dir := t.TempDir()
	base := writeFile(t, dir, "base.yaml", `
log:
  level: warn
cache:
  maxEntries: 32
`)
	main := writeFile(t, dir, "featurehost.toml", `
[log]
format = "json"

[engine]
providerTimeout = "750ms"
maxConcurrency = 3

[[servers]]
name = "gopls"
command = "gopls"
args = ["serve"]
selector = { language = "go" }
features = ["hover", "definition"]
`)
	t.Setenv("FEATUREHOST_LOG_LEVEL", "debug")

	cfg, err := Load(WithFiles(base, main))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log.level: got %q, want debug from the environment", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log.format: got %q, want json", cfg.Log.Format)
	}
	if cfg.Cache.MaxEntries != 32 {
		t.Errorf("cache.maxEntries: got %d, want 32", cfg.Cache.MaxEntries)
	}
	if !cfg.Cache.Enabled {
		t.Error("cache.enabled default should survive")
	}
	if cfg.Engine.ProviderTimeout.Std() != 750*time.Millisecond {
		t.Errorf("engine.providerTimeout: got %v", cfg.Engine.ProviderTimeout.Std())
	}
	if cfg.Engine.MaxConcurrency != 3 {
		t.Errorf("engine.maxConcurrency: got %d", cfg.Engine.MaxConcurrency)
	}

	if len(cfg.Servers) != 1 {
		t.Fatalf("Expected 1 server, got %d", len(cfg.Servers))
	}
	srv := cfg.Servers[0]
	if srv.Selector != feature.LanguageSelector("go") {
		t.Errorf("Selector: got %+v", srv.Selector)
	}
	kinds, err := srv.Kinds()
	if err != nil {
		t.Fatalf("Kinds failed: %v", err)
	}
	if len(kinds) != 2 || kinds[0] != feature.KindHover || kinds[1] != feature.KindDefinition {
		t.Errorf("Kinds: got %v", kinds)
	}
}

func TestLoad_UnknownSetting(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.toml", "[engine]\nproviderTimout = \"1s\"\n")

	_, err := Load(WithFiles(path), WithoutEnv())
	if !errors.Is(err, ErrValidationFailed) {
		t.Fatalf("Expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "providerTimout") {
		t.Errorf("Error should name the key: %v", err)
	}
}

func TestLoad_BadDuration(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "c.toml", "[cache]\nttl = \"soon\"\n")

	if _, err := Load(WithFiles(path), WithoutEnv()); err == nil {
		t.Error("Expected an error for an invalid duration")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		path   string
	}{
		{"log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"negative timeout", func(c *Config) { c.Engine.ProviderTimeout = Duration(-time.Second) }, "engine.providerTimeout"},
		{"cache size", func(c *Config) { c.Cache.MaxEntries = 0 }, "cache.maxEntries"},
		{"server without name", func(c *Config) {
			c.Servers = []ServerConfig{{Command: "x", Selector: feature.AnyDocument()}}
		}, "servers[0].name"},
		{"server without selector", func(c *Config) {
			c.Servers = []ServerConfig{{Name: "x", Command: "x"}}
		}, "servers[0].selector"},
		{"server bad feature", func(c *Config) {
			c.Servers = []ServerConfig{{Name: "x", Command: "x", Selector: feature.AnyDocument(), Features: []string{"mindreading"}}}
		}, "servers[0].features"},
		{"duplicate server", func(c *Config) {
			s := ServerConfig{Name: "x", Command: "x", Selector: feature.AnyDocument()}
			c.Servers = []ServerConfig{s, s}
		}, "servers[1].name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("Expected validation failure, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.path) {
				t.Errorf("Error %q should mention %s", err, tt.path)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "key", "value")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("Info should be filtered at warn level")
	}
	if !strings.Contains(out, `"msg":"shown"`) {
		t.Errorf("Expected JSON output, got %q", out)
	}
}

func TestEngineOptions(t *testing.T) {
	cfg := Default()
	opts, cache, err := cfg.EngineOptions(nil)
	if err != nil {
		t.Fatalf("EngineOptions failed: %v", err)
	}
	if cache == nil {
		t.Fatal("Default config should enable the cache")
	}
	defer cache.Close()
	if e := feature.NewEngine(opts...); e == nil {
		t.Error("NewEngine returned nil")
	}

	cfg.Cache.Enabled = false
	_, cache, err = cfg.EngineOptions(nil)
	if err != nil || cache != nil {
		t.Errorf("Disabled cache: got %v, %v", cache, err)
	}
}

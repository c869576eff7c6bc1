package loader

import (
	"errors"
	"io/fs"
	"testing"
	"time"
)

// MemFS is an in-memory file system for testing.
type MemFS struct {
	files map[string][]byte
}

func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string][]byte)}
}

func (m *MemFS) AddFile(path string, content string) {
	m.files[path] = []byte(content)
}

func (m *MemFS) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return data, nil
}

func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	if _, ok := m.files[path]; ok {
		return &memFileInfo{name: path}, nil
	}
	return nil, fs.ErrNotExist
}

type memFileInfo struct {
	name string
}

func (f *memFileInfo) Name() string       { return f.name }
func (f *memFileInfo) Size() int64        { return 0 }
func (f *memFileInfo) Mode() fs.FileMode  { return 0644 }
func (f *memFileInfo) ModTime() time.Time { return time.Now() }
func (f *memFileInfo) IsDir() bool        { return false }
func (f *memFileInfo) Sys() any           { return nil }

func TestFileLoader_Formats(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/c.toml", "[engine]\nmaxConcurrency = 4\n")
	memfs.AddFile("/c.yaml", "engine:\n  maxConcurrency: 4\n")
	memfs.AddFile("/c.json", `{"engine": {"maxConcurrency": 4}}`)

	for _, path := range []string{"/c.toml", "/c.yaml", "/c.json"} {
		t.Run(FormatOf(path).String(), func(t *testing.T) {
			config, err := NewFileLoaderWithFS(memfs, path).Load()
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			val, ok := GetPath(config, "engine.maxConcurrency")
			if !ok {
				t.Fatal("engine.maxConcurrency missing")
			}
			switch v := val.(type) {
			case int64:
				if v != 4 {
					t.Errorf("maxConcurrency = %d, want 4", v)
				}
			case int:
				if v != 4 {
					t.Errorf("maxConcurrency = %d, want 4", v)
				}
			default:
				t.Errorf("maxConcurrency has type %T", val)
			}
		})
	}
}

func TestFileLoader_Missing(t *testing.T) {
	config, err := NewFileLoaderWithFS(NewMemFS(), "/nope.toml").Load()
	if err != nil || config != nil {
		t.Errorf("Missing file: got %v, %v; want nil, nil", config, err)
	}
}

func TestFileLoader_ParseError(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/bad.toml", "[engine\nmaxConcurrency = 4\n")

	_, err := NewFileLoaderWithFS(memfs, "/bad.toml").Load()
	var perr *ParseError
	if !errors.As(err, &perr) {
		t.Fatalf("Expected ParseError, got %v", err)
	}
	if perr.Path != "/bad.toml" || perr.Line == 0 {
		t.Errorf("ParseError position: %+v", perr)
	}
}

func TestFileLoader_Includes(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/etc/main.toml", `
include = ["base.yaml"]

[log]
level = "debug"
`)
	memfs.AddFile("/etc/base.yaml", `
log:
  level: warn
  format: json
`)

	config, err := NewFileLoaderWithFS(memfs, "/etc/main.toml").Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if val, _ := GetPath(config, "log.level"); val != "debug" {
		t.Errorf("log.level = %v, want debug", val)
	}
	if val, _ := GetPath(config, "log.format"); val != "json" {
		t.Errorf("log.format = %v, want json", val)
	}
	if _, ok := config[IncludeKey]; ok {
		t.Error("include key should be removed")
	}
}

func TestFileLoader_IncludeCycle(t *testing.T) {
	memfs := NewMemFS()
	memfs.AddFile("/a.toml", `include = "b.toml"`)
	memfs.AddFile("/b.toml", `include = "a.toml"`)

	if _, err := NewFileLoaderWithFS(memfs, "/a.toml").Load(); err == nil {
		t.Error("Expected include depth error")
	}
}

func TestDeepMerge(t *testing.T) {
	dst := map[string]any{
		"log":    map[string]any{"level": "info", "format": "text"},
		"engine": map[string]any{"maxConcurrency": int64(2)},
	}
	src := map[string]any{
		"log":   map[string]any{"level": "debug"},
		"cache": map[string]any{"enabled": false},
	}

	merged := DeepMerge(Clone(dst), src)
	if val, _ := GetPath(merged, "log.level"); val != "debug" {
		t.Errorf("log.level = %v, want debug", val)
	}
	if val, _ := GetPath(merged, "log.format"); val != "text" {
		t.Errorf("log.format = %v, want text", val)
	}
	if val, _ := GetPath(merged, "cache.enabled"); val != false {
		t.Errorf("cache.enabled = %v, want false", val)
	}
	if val, _ := GetPath(dst, "log.level"); val != "info" {
		t.Errorf("Clone did not isolate dst: log.level = %v", val)
	}
}

func TestEnvLoader_Load(t *testing.T) {
	l := NewEnvLoader("FH_TEST_")
	l.environ = func() []string {
		return []string{
			"FH_TEST_LOG_LEVEL=debug",
			"FH_TEST_CACHE_MAX_ENTRIES=64",
			"FH_TEST_PLUGIN_WATCH=yes",
			"FH_TEST_PROVIDER_TIMEOUT=2s",
			"FH_TEST_PLUGIN_DIRS=/a:/b",
			"FH_TEST_IGNORED=1",
			"OTHER_LOG_LEVEL=error",
		}
	}

	config, err := l.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	tests := []struct {
		path string
		want any
	}{
		{"log.level", "debug"},
		{"cache.maxEntries", int64(64)},
		{"plugins.watch", true},
		{"engine.providerTimeout", "2s"},
	}
	for _, tt := range tests {
		if val, ok := GetPath(config, tt.path); !ok || val != tt.want {
			t.Errorf("%s = %v (%T), want %v", tt.path, val, val, tt.want)
		}
	}

	dirs, _ := GetPath(config, "plugins.dirs")
	if list, ok := dirs.([]any); !ok || len(list) != 2 {
		t.Errorf("plugins.dirs = %v", dirs)
	}
	if _, ok := config["ignored"]; ok {
		t.Error("Single-part names should be ignored")
	}
}

func TestEnvLoader_envToPath(t *testing.T) {
	l := NewEnvLoader("FEATUREHOST_")
	tests := map[string]string{
		"FEATUREHOST_CACHE_TTL":              "cache.ttl",
		"FEATUREHOST_CACHE_MAX_ENTRIES":      "cache.maxEntries",
		"FEATUREHOST_ENGINE_MAX_CONCURRENCY": "engine.maxConcurrency",
		"FEATUREHOST_SINGLE":                 "",
	}
	for env, want := range tests {
		if got := l.envToPath(env); got != want {
			t.Errorf("envToPath(%s) = %q, want %q", env, got, want)
		}
	}
}

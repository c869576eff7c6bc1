package plugin

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestLoader_Discover(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()

	writePluginFile(t, filepath.Join(first, "alpha"), ManifestFile, `{"name": "alpha", "selector": {"language": "go"}}`)
	writePluginFile(t, filepath.Join(first, "alpha"), "init.lua", "")
	writePluginFile(t, filepath.Join(first, "bare"), "plugin.lua", "")
	writePluginFile(t, filepath.Join(first, "empty"), "README", "")
	writePluginFile(t, first, "words.lua", "")
	writePluginFile(t, first, ".hidden.lua", "")
	writePluginFile(t, second, "words.lua", "")
	writePluginFile(t, second, "zeta.lua", "")

	l := NewLoader(WithPaths(first, second, filepath.Join(first, "missing")))
	plugins, err := l.Discover()
	if err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	want := []string{"alpha", "bare", "empty", "words", "zeta"}
	if len(plugins) != len(want) {
		t.Fatalf("Discover: got %d plugins, want %d", len(plugins), len(want))
	}
	for i, name := range want {
		if plugins[i].Name != name {
			t.Errorf("plugins[%d]: got %q, want %q", i, plugins[i].Name, name)
		}
	}

	byName := make(map[string]*PluginInfo)
	for _, p := range plugins {
		byName[p.Name] = p
	}
	if byName["words"].Path != filepath.Join(first, "words.lua") {
		t.Errorf("Earlier path should win: got %q", byName["words"].Path)
	}
	if byName["bare"].Manifest == nil || byName["bare"].Manifest.Main != "plugin.lua" {
		t.Errorf("bare should fall back to plugin.lua: %+v", byName["bare"])
	}
	if !errors.Is(byName["empty"].Error, ErrNoEntryPoint) {
		t.Errorf("empty: got error %v, want ErrNoEntryPoint", byName["empty"].Error)
	}
}

func TestLoader_FindPlugin(t *testing.T) {
	dir := t.TempDir()
	writePluginFile(t, dir, "words.lua", "")

	l := NewLoader(WithPaths(dir))
	info, err := l.FindPlugin("words")
	if err != nil {
		t.Fatalf("FindPlugin failed: %v", err)
	}
	if info.Manifest.MainPath() != filepath.Join(dir, "words.lua") {
		t.Errorf("MainPath: got %q", info.Manifest.MainPath())
	}

	if _, err := l.FindPlugin("nope"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Expected ErrPluginNotFound, got %v", err)
	}
}

func TestLoader_Owner(t *testing.T) {
	dir := t.TempDir()
	writePluginFile(t, filepath.Join(dir, "alpha"), "init.lua", "")
	writePluginFile(t, dir, "words.lua", "")

	l := NewLoader(WithPaths(dir))
	if _, err := l.Discover(); err != nil {
		t.Fatalf("Discover failed: %v", err)
	}

	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{filepath.Join(dir, "alpha", "init.lua"), "alpha", true},
		{filepath.Join(dir, "alpha", "lib", "x.lua"), "alpha", true},
		{filepath.Join(dir, "words.lua"), "words", true},
		{filepath.Join(dir, "alphabet", "init.lua"), "", false},
		{filepath.Join(dir, "other.lua"), "", false},
	}
	for _, tt := range tests {
		got, ok := l.Owner(tt.path)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Owner(%s): got %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
		}
	}
}

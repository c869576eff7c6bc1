package plugin

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dshills/featurehost/internal/feature"
)

func hoverText(t *testing.T, engine *feature.Engine) []string {
	t.Helper()
	hovers, err := engine.Hover(context.Background(), textDocument("word"), feature.Position{Line: 1, Character: 1})
	if err != nil {
		t.Fatalf("Hover failed: %v", err)
	}
	var texts []string
	for _, h := range hovers {
		for _, c := range h.Contents {
			texts = append(texts, c.Value)
		}
	}
	return texts
}

func TestManager_LoadAll(t *testing.T) {
	dir := t.TempDir()
	writePluginFile(t, filepath.Join(dir, "words"), ManifestFile, wordsManifest)
	writePluginFile(t, filepath.Join(dir, "words"), "init.lua", wordsScript)
	writePluginFile(t, dir, "shout.lua", `function provide_hover() return "HEY" end`)
	writePluginFile(t, dir, "broken.lua", `this is not lua`)

	engine := feature.NewEngine()
	m := NewManager(engine, ManagerConfig{PluginPaths: []string{dir}})
	defer m.Close(context.Background())

	var mu sync.Mutex
	var events []ManagerEvent
	m.Subscribe(func(e ManagerEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	err := m.LoadAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "broken") {
		t.Errorf("LoadAll should report the broken plugin, got %v", err)
	}
	if m.Count() != 2 {
		t.Fatalf("Count: got %d, want 2", m.Count())
	}
	if names := []string{m.List()[0].Name(), m.List()[1].Name()}; names[0] != "shout" || names[1] != "words" {
		t.Errorf("Load order: got %v", names)
	}

	texts := hoverText(t, engine)
	if len(texts) != 2 {
		t.Errorf("Hover from both plugins: got %v", texts)
	}

	mu.Lock()
	var loaded, failed int
	for _, e := range events {
		switch e.Type {
		case EventPluginLoaded:
			loaded++
		case EventPluginError:
			failed++
		}
	}
	mu.Unlock()
	if loaded != 2 || failed != 1 {
		t.Errorf("Events: got %d loaded, %d errors", loaded, failed)
	}

	if _, err := m.Load(context.Background(), "shout"); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("Second Load: got %v, want ErrAlreadyLoaded", err)
	}
}

func TestManager_UnloadAndReload(t *testing.T) {
	dir := t.TempDir()
	writePluginFile(t, dir, "shout.lua", `function provide_hover() return "HEY" end`)

	engine := feature.NewEngine()
	m := NewManager(engine, ManagerConfig{PluginPaths: []string{dir}})
	ctx := context.Background()
	defer m.Close(ctx)

	if _, err := m.Load(ctx, "shout"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	writePluginFile(t, dir, "shout.lua", `function provide_hover() return "HELLO" end`)
	if err := m.Reload(ctx, "shout"); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if texts := hoverText(t, engine); len(texts) != 1 || texts[0] != "HELLO" {
		t.Errorf("Hover after reload: got %v", texts)
	}

	if err := m.Unload(ctx, "shout"); err != nil {
		t.Fatalf("Unload failed: %v", err)
	}
	if n := engine.Registry().Len(feature.KindHover); n != 0 {
		t.Errorf("Unload left %d registrations", n)
	}
	if err := m.Unload(ctx, "shout"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("Second Unload: got %v, want ErrPluginNotFound", err)
	}
}

func TestManager_Watch(t *testing.T) {
	dir := t.TempDir()
	writePluginFile(t, dir, "shout.lua", `function provide_hover() return "HEY" end`)

	engine := feature.NewEngine()
	m := NewManager(engine, ManagerConfig{
		PluginPaths: []string{dir, filepath.Join(dir, "missing")},
		Debounce:    20 * time.Millisecond,
	})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer m.Close(context.Background())

	if err := m.LoadAll(ctx); err != nil {
		t.Fatalf("LoadAll failed: %v", err)
	}

	reloaded := make(chan string, 4)
	m.Subscribe(func(e ManagerEvent) {
		if e.Type != EventPluginReloaded {
			return
		}
		select {
		case reloaded <- e.Plugin:
		default:
		}
	})

	if err := m.Watch(ctx); err != nil {
		t.Fatalf("Watch failed: %v", err)
	}
	if err := m.Watch(ctx); err == nil {
		t.Error("Second Watch should fail")
	}

	path := filepath.Join(dir, "shout.lua")
	if err := os.WriteFile(path, []byte(`function provide_hover() return "CHANGED" end`), 0o644); err != nil {
		t.Fatalf("Rewriting plugin: %v", err)
	}

	select {
	case name := <-reloaded:
		if name != "shout" {
			t.Errorf("Reloaded plugin: got %q", name)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}
	if texts := hoverText(t, engine); len(texts) != 1 || texts[0] != "CHANGED" {
		t.Errorf("Hover after watch reload: got %v", texts)
	}
}

func TestManagerEventType_String(t *testing.T) {
	tests := map[ManagerEventType]string{
		EventPluginLoaded:    "loaded",
		EventPluginUnloaded:  "unloaded",
		EventPluginReloaded:  "reloaded",
		EventPluginError:     "error",
		ManagerEventType(99): "unknown",
	}
	for typ, want := range tests {
		if got := typ.String(); got != want {
			t.Errorf("%d.String(): got %q, want %q", typ, got, want)
		}
	}
}

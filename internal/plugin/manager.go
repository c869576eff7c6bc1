package plugin

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/dshills/featurehost/internal/feature"
	"github.com/dshills/featurehost/internal/watcher"
)

// Manager manages the lifecycle of all plugins.
// It handles discovery, loading, activation against an engine and reloading
// plugins whose files change.
type Manager struct {
	mu sync.RWMutex

	engine *feature.Engine

	// Loader for plugin discovery
	loader *Loader

	// Loaded plugins by name
	plugins map[string]*Host

	// Plugin load order (for deterministic iteration)
	loadOrder []string

	// Event handlers (protected by mu)
	eventHandlers []EventHandler

	config ManagerConfig
	logger *slog.Logger

	watchMu   sync.Mutex
	watcher   watcher.Watcher
	watchDone chan struct{}
}

// ManagerConfig configures the plugin manager.
type ManagerConfig struct {
	// PluginPaths are directories to search for plugins
	PluginPaths []string

	// ExecutionTimeout bounds every script call. Zero uses the default.
	ExecutionTimeout time.Duration

	// Debounce is the quiet period before a changed plugin is reloaded.
	Debounce time.Duration

	// Logger receives manager and script output.
	Logger *slog.Logger
}

// DefaultManagerConfig returns sensible default configuration.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		PluginPaths: DefaultPluginPaths(),
		Debounce:    watcher.DefaultDebounce,
	}
}

// EventHandler handles plugin manager events.
// Handlers must be non-blocking and should not call back into the Manager
// to avoid deadlocks. Panics in handlers are recovered.
type EventHandler func(event ManagerEvent)

// ManagerEvent represents a plugin manager event.
type ManagerEvent struct {
	Type   ManagerEventType
	Plugin string
	Error  error
}

// ManagerEventType is the type of manager event.
type ManagerEventType int

const (
	// EventPluginLoaded is emitted when a plugin is loaded and its
	// providers are registered.
	EventPluginLoaded ManagerEventType = iota
	// EventPluginUnloaded is emitted when a plugin is unloaded.
	EventPluginUnloaded
	// EventPluginReloaded is emitted when a plugin is reloaded.
	EventPluginReloaded
	// EventPluginError is emitted when a plugin encounters an error.
	EventPluginError
)

// String returns a string representation of the event type.
func (t ManagerEventType) String() string {
	switch t {
	case EventPluginLoaded:
		return "loaded"
	case EventPluginUnloaded:
		return "unloaded"
	case EventPluginReloaded:
		return "reloaded"
	case EventPluginError:
		return "error"
	default:
		return "unknown"
	}
}

// NewManager creates a plugin manager that registers providers with engine.
func NewManager(engine *feature.Engine, config ManagerConfig) *Manager {
	paths := make([]string, 0, len(config.PluginPaths))
	for _, p := range config.PluginPaths {
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		paths = append(paths, p)
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Manager{
		engine:    engine,
		loader:    NewLoader(WithPaths(paths...)),
		plugins:   make(map[string]*Host),
		loadOrder: make([]string, 0),
		config:    config,
		logger:    logger,
	}
}

// Discover searches for available plugins.
func (m *Manager) Discover() ([]*PluginInfo, error) {
	return m.loader.Discover()
}

// Load loads a plugin by name and registers its providers.
// If the plugin is already loaded, returns ErrAlreadyLoaded.
func (m *Manager) Load(ctx context.Context, name string) (*Host, error) {
	m.mu.Lock()
	if _, exists := m.plugins[name]; exists {
		m.mu.Unlock()
		return nil, fmt.Errorf("plugin %q: %w", name, ErrAlreadyLoaded)
	}
	m.mu.Unlock()

	info, err := m.loader.FindPlugin(name)
	if err != nil {
		return nil, err
	}

	opts := []HostOption{WithHostLogger(m.logger)}
	if m.config.ExecutionTimeout > 0 {
		opts = append(opts, WithHostExecutionTimeout(m.config.ExecutionTimeout))
	}
	host, err := NewHost(info.Manifest, opts...)
	if err != nil {
		return nil, err
	}

	// Load the plugin (potentially long operation, no lock)
	if err := host.Load(ctx); err != nil {
		m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
		return nil, fmt.Errorf("failed to load plugin %q: %w", name, err)
	}

	m.mu.Lock()
	// Double-check - another goroutine might have loaded it
	if _, exists := m.plugins[name]; exists {
		m.mu.Unlock()
		_ = host.Unload(ctx)
		return nil, fmt.Errorf("plugin %q: %w", name, ErrAlreadyLoaded)
	}
	m.plugins[name] = host
	m.loadOrder = append(m.loadOrder, name)
	m.mu.Unlock()

	if err := host.Activate(m.engine); err != nil {
		m.mu.Lock()
		delete(m.plugins, name)
		m.removeFromLoadOrder(name)
		m.mu.Unlock()
		_ = host.Unload(ctx)
		m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
		return nil, fmt.Errorf("failed to activate plugin %q: %w", name, err)
	}

	m.logger.Info("plugin loaded", "plugin", name, "kinds", len(host.Kinds()))
	m.emitEvent(ManagerEvent{Type: EventPluginLoaded, Plugin: name})
	return host, nil
}

// LoadAll loads all discovered plugins. Plugins that fail to load are
// reported in the joined error; the rest stay loaded.
func (m *Manager) LoadAll(ctx context.Context) error {
	plugins, discoverErr := m.loader.Discover()

	loadErrors := make([]error, 0)
	if discoverErr != nil {
		loadErrors = append(loadErrors, discoverErr)
	}
	for _, info := range plugins {
		if info.Error != nil {
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", info.Name, info.Error))
			continue
		}
		if _, err := m.Load(ctx, info.Name); err != nil && !errors.Is(err, ErrAlreadyLoaded) {
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", info.Name, err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d plugins: %w", len(loadErrors), errors.Join(loadErrors...))
	}
	return nil
}

// Unload removes a plugin's providers and releases its script state.
func (m *Manager) Unload(ctx context.Context, name string) error {
	m.mu.Lock()
	host, exists := m.plugins[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}
	delete(m.plugins, name)
	m.removeFromLoadOrder(name)
	m.mu.Unlock()

	if err := host.Unload(ctx); err != nil {
		m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
		return fmt.Errorf("failed to unload plugin %q: %w", name, err)
	}

	m.logger.Info("plugin unloaded", "plugin", name)
	m.emitEvent(ManagerEvent{Type: EventPluginUnloaded, Plugin: name})
	return nil
}

// UnloadAll unloads all plugins in reverse load order.
func (m *Manager) UnloadAll(ctx context.Context) error {
	m.mu.RLock()
	names := make([]string, len(m.loadOrder))
	for i, name := range m.loadOrder {
		names[len(m.loadOrder)-1-i] = name
	}
	m.mu.RUnlock()

	var unloadErrors []error
	for _, name := range names {
		if err := m.Unload(ctx, name); err != nil {
			unloadErrors = append(unloadErrors, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(unloadErrors) > 0 {
		return fmt.Errorf("failed to unload %d plugins: %w", len(unloadErrors), errors.Join(unloadErrors...))
	}
	return nil
}

// Reload unloads a plugin, rediscovers it and loads it again. A plugin
// that is not loaded yet is simply loaded.
func (m *Manager) Reload(ctx context.Context, name string) error {
	m.mu.RLock()
	_, exists := m.plugins[name]
	m.mu.RUnlock()

	if exists {
		if err := m.Unload(ctx, name); err != nil {
			return fmt.Errorf("reload unload failed: %w", err)
		}
	}

	// Refresh discovery to pick up manifest changes
	if _, err := m.loader.Discover(); err != nil {
		m.logger.Warn("plugin discovery reported errors", "error", err)
	}

	if _, err := m.Load(ctx, name); err != nil {
		return fmt.Errorf("reload load failed: %w", err)
	}

	m.emitEvent(ManagerEvent{Type: EventPluginReloaded, Plugin: name})
	return nil
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Host, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	host, exists := m.plugins[name]
	return host, exists
}

// List returns all loaded plugins in load order.
func (m *Manager) List() []*Host {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Host, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		if host, exists := m.plugins[name]; exists {
			result = append(result, host)
		}
	}
	return result
}

// Count returns the number of loaded plugins.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}

// Subscribe adds an event handler.
// Returns an unsubscribe function to remove the handler.
func (m *Manager) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	m.mu.Lock()
	m.eventHandlers = append(m.eventHandlers, handler)
	index := len(m.eventHandlers) - 1
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// Set to nil instead of removing to avoid index shifting issues
		if index < len(m.eventHandlers) {
			m.eventHandlers[index] = nil
		}
	}
}

// Loader returns the underlying loader.
func (m *Manager) Loader() *Loader {
	return m.loader
}

// Watch reloads plugins whose files change until ctx is done or Close is
// called. Search paths that do not exist are skipped.
func (m *Manager) Watch(ctx context.Context) error {
	m.watchMu.Lock()
	defer m.watchMu.Unlock()

	if m.watcher != nil {
		return watcher.ErrAlreadyWatching
	}

	inner, err := watcher.NewFSNotify(watcher.WithExtensions(".lua", ".json"))
	if err != nil {
		return err
	}
	w := watcher.NewDebounced(inner, m.config.Debounce)

	for _, path := range m.loader.Paths() {
		if err := w.Watch(path); err != nil {
			if errors.Is(err, watcher.ErrPathNotExist) {
				continue
			}
			_ = w.Close()
			return err
		}
		m.logger.Debug("watching plugin path", "path", path)
	}

	m.watcher = w
	m.watchDone = make(chan struct{})
	go m.watchLoop(ctx, w, m.watchDone)
	return nil
}

func (m *Manager) watchLoop(ctx context.Context, w watcher.Watcher, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.Events():
			if !ok {
				return
			}
			m.handleChange(ctx, event)
		case err, ok := <-w.Errors():
			if !ok {
				return
			}
			m.logger.Warn("plugin watcher error", "error", err)
		}
	}
}

// handleChange maps a file event to its plugin and reloads or unloads it.
func (m *Manager) handleChange(ctx context.Context, event watcher.Event) {
	name, ok := m.loader.Owner(event.Path)
	if !ok {
		// A new plugin may have appeared.
		if _, err := m.loader.Discover(); err != nil {
			m.logger.Warn("plugin discovery reported errors", "error", err)
		}
		if name, ok = m.loader.Owner(event.Path); !ok {
			return
		}
	}

	m.logger.Debug("plugin changed", "plugin", name, "path", event.Path, "op", event.Op.String())

	if info, err := m.loader.FindPlugin(name); err == nil {
		if _, statErr := os.Stat(info.Path); errors.Is(statErr, os.ErrNotExist) {
			if _, loaded := m.Get(name); loaded {
				_ = m.Unload(ctx, name)
			}
			return
		}
	}

	if err := m.Reload(ctx, name); err != nil {
		m.logger.Error("plugin reload failed", "plugin", name, "error", err)
		m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Error: err})
	}
}

// Close stops watching and unloads every plugin.
func (m *Manager) Close(ctx context.Context) error {
	m.watchMu.Lock()
	w, done := m.watcher, m.watchDone
	m.watcher, m.watchDone = nil, nil
	m.watchMu.Unlock()

	var errs []error
	if w != nil {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
		<-done
	}
	if err := m.UnloadAll(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// emitEvent sends an event to all handlers.
// Handlers are called outside any locks and panics are recovered.
func (m *Manager) emitEvent(event ManagerEvent) {
	m.mu.RLock()
	handlers := make([]EventHandler, len(m.eventHandlers))
	copy(handlers, m.eventHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				_ = recover()
			}()
			handler(event)
		}()
	}
}

// removeFromLoadOrder removes a name from the load order slice.
// Must be called with mu held.
func (m *Manager) removeFromLoadOrder(name string) {
	for i, n := range m.loadOrder {
		if n == name {
			m.loadOrder = append(m.loadOrder[:i], m.loadOrder[i+1:]...)
			return
		}
	}
}

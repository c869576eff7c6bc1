package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Loader discovers plugins on the filesystem.
type Loader struct {
	mu sync.Mutex

	// Search paths for plugins, checked in order.
	paths []string

	discovered map[string]*PluginInfo
}

// PluginInfo contains discovery information about a plugin.
type PluginInfo struct {
	Name     string
	Path     string
	Manifest *Manifest
	Error    error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the plugin search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultPluginPaths(),
		discovered: make(map[string]*PluginInfo),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// DefaultPluginPaths returns the default plugin search paths.
func DefaultPluginPaths() []string {
	paths := make([]string, 0, 2)

	// User plugins: ~/.config/featurehost/plugins/
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "featurehost", "plugins"))
	}

	// Project plugins: .featurehost/plugins/
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".featurehost", "plugins"))
	}

	return paths
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

// Discover finds all plugins in the search paths, sorted by name. When two
// paths hold a plugin of the same name the earlier path wins. Plugins that
// failed inspection are returned with Error set.
func (l *Loader) Discover() ([]*PluginInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.discovered = make(map[string]*PluginInfo)

	var errs []error
	for _, basePath := range l.paths {
		if err := l.discoverInPath(basePath); err != nil {
			errs = append(errs, err)
		}
	}

	plugins := make([]*PluginInfo, 0, len(l.discovered))
	for _, info := range l.discovered {
		plugins = append(plugins, info)
	}
	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Name < plugins[j].Name
	})

	return plugins, errors.Join(errs...)
}

func (l *Loader) discoverInPath(basePath string) error {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		var info *PluginInfo
		switch {
		case entry.IsDir():
			info = inspectPlugin(entry.Name(), filepath.Join(basePath, entry.Name()))
		case filepath.Ext(entry.Name()) == ".lua":
			info = singleFilePlugin(basePath, entry.Name())
		default:
			continue
		}
		if _, exists := l.discovered[info.Name]; !exists {
			l.discovered[info.Name] = info
		}
	}
	return nil
}

// singleFilePlugin describes a lone name.lua file in a search path.
func singleFilePlugin(basePath, file string) *PluginInfo {
	name := strings.TrimSuffix(file, ".lua")
	manifest := NewManifestMinimal(name, basePath)
	manifest.Main = file
	info := &PluginInfo{Name: name, Path: manifest.MainPath(), Manifest: manifest}
	if err := manifest.Validate(); err != nil {
		info.Error = err
	}
	return info
}

// inspectPlugin examines a plugin directory.
func inspectPlugin(name, path string) *PluginInfo {
	info := &PluginInfo{Name: name, Path: path}

	manifestPath := filepath.Join(path, ManifestFile)
	if _, err := os.Stat(manifestPath); err == nil {
		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			info.Error = fmt.Errorf("invalid manifest: %w", err)
			return info
		}
		info.Manifest = manifest
		info.Name = manifest.Name
		return info
	}

	for _, main := range []string{"init.lua", "plugin.lua"} {
		if _, err := os.Stat(filepath.Join(path, main)); err == nil {
			manifest := NewManifestMinimal(name, path)
			manifest.Main = main
			if err := manifest.Validate(); err != nil {
				info.Error = err
				return info
			}
			info.Manifest = manifest
			return info
		}
	}

	info.Error = ErrNoEntryPoint
	return info
}

// FindPlugin returns a discovered plugin, searching the paths again when
// it is not known yet.
func (l *Loader) FindPlugin(name string) (*PluginInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if info, ok := l.discovered[name]; ok && info.Error == nil {
		return info, nil
	}

	for _, basePath := range l.paths {
		dir := filepath.Join(basePath, name)
		if stat, err := os.Stat(dir); err == nil && stat.IsDir() {
			info := inspectPlugin(name, dir)
			if info.Error != nil {
				return nil, info.Error
			}
			l.discovered[info.Name] = info
			return info, nil
		}
		if _, err := os.Stat(filepath.Join(basePath, name+".lua")); err == nil {
			info := singleFilePlugin(basePath, name+".lua")
			if info.Error != nil {
				return nil, info.Error
			}
			l.discovered[name] = info
			return info, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
}

// Owner returns the name of the discovered plugin that path belongs to.
func (l *Loader) Owner(path string) (string, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for name, info := range l.discovered {
		if path == info.Path || strings.HasPrefix(path, info.Path+string(filepath.Separator)) {
			return name, true
		}
	}
	return "", false
}

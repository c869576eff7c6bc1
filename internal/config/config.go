package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/featurehost/internal/config/loader"
	"github.com/dshills/featurehost/internal/feature"
)

// Config is the complete featurehost configuration.
type Config struct {
	Log     LogConfig      `toml:"log"`
	Engine  EngineConfig   `toml:"engine"`
	Cache   CacheConfig    `toml:"cache"`
	Plugins PluginConfig   `toml:"plugins"`
	Servers []ServerConfig `toml:"servers"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `toml:"level"`
	// Format is text or json.
	Format string `toml:"format"`
}

// EngineConfig tunes the aggregation engine.
type EngineConfig struct {
	// ProviderTimeout bounds each provider call. Zero disables the bound.
	ProviderTimeout Duration `toml:"providerTimeout"`
	// MaxConcurrency limits the providers one query runs at once. Zero
	// means unlimited.
	MaxConcurrency int `toml:"maxConcurrency"`
}

// CacheConfig controls the completion result cache.
type CacheConfig struct {
	Enabled    bool     `toml:"enabled"`
	MaxEntries int64    `toml:"maxEntries"`
	TTL        Duration `toml:"ttl"`
}

// PluginConfig controls script providers.
type PluginConfig struct {
	// Dirs are searched for plugin directories.
	Dirs []string `toml:"dirs"`
	// Watch reloads plugins when their files change.
	Watch bool `toml:"watch"`
	// Debounce delays reloads after a burst of file changes.
	Debounce Duration `toml:"debounce"`
	// Timeout bounds each script call. Zero means only the provider
	// timeout applies.
	Timeout Duration `toml:"timeout"`
}

// ServerConfig describes an out-of-process language server used as a
// provider.
type ServerConfig struct {
	Name     string            `toml:"name"`
	Command  string            `toml:"command"`
	Args     []string          `toml:"args"`
	Env      map[string]string `toml:"env"`
	RootURI  string            `toml:"rootUri"`
	Selector feature.Selector  `toml:"selector"`
	// Features restricts the kinds registered for the server. Empty means
	// every kind the server advertises.
	Features []string `toml:"features"`
	// InitializationOptions is passed verbatim in the initialize request.
	InitializationOptions map[string]any `toml:"initializationOptions"`
	Disabled              bool           `toml:"disabled"`
}

// Kinds parses Features.
func (s ServerConfig) Kinds() ([]feature.Kind, error) {
	var kinds []feature.Kind
	for _, name := range s.Features {
		k, err := feature.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Duration is a time.Duration written as a string such as "750ms".
type Duration time.Duration

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
		Engine: EngineConfig{
			ProviderTimeout: Duration(5 * time.Second),
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 256,
			TTL:        Duration(30 * time.Second),
		},
		Plugins: PluginConfig{
			Debounce: Duration(200 * time.Millisecond),
			Timeout:  Duration(2 * time.Second),
		},
	}
}

// Option configures Load.
type Option func(*options)

type options struct {
	fs        loader.FileSystem
	files     []string
	envPrefix string
	env       bool
}

// WithFiles adds configuration files, lowest priority first. Missing files
// are skipped.
func WithFiles(paths ...string) Option {
	return func(o *options) {
		o.files = append(o.files, paths...)
	}
}

// WithFileSystem reads files through fsys.
func WithFileSystem(fsys loader.FileSystem) Option {
	return func(o *options) {
		o.fs = fsys
	}
}

// WithEnvPrefix changes the environment variable prefix.
func WithEnvPrefix(prefix string) Option {
	return func(o *options) {
		o.envPrefix = prefix
	}
}

// WithoutEnv ignores environment variables.
func WithoutEnv() Option {
	return func(o *options) {
		o.env = false
	}
}

// Load builds the configuration from the defaults, the files and the
// environment, in increasing priority, and validates the result.
func Load(opts ...Option) (*Config, error) {
	o := options{fs: loader.DefaultFS(), envPrefix: loader.DefaultEnvPrefix, env: true}
	for _, opt := range opts {
		opt(&o)
	}

	loaders := make([]loader.Loader, 0, len(o.files)+1)
	for _, path := range o.files {
		loaders = append(loaders, loader.NewFileLoaderWithFS(o.fs, path))
	}
	if o.env {
		loaders = append(loaders, loader.NewEnvLoader(o.envPrefix))
	}

	merged, err := loader.Chain(loaders...)
	if err != nil {
		return nil, err
	}

	cfg, err := Decode(merged)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode applies a merged settings map on top of the defaults.
func Decode(settings map[string]any) (*Config, error) {
	cfg := Default()
	if len(settings) == 0 {
		return &cfg, nil
	}

	data, err := toml.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encoding settings: %w", err)
	}
	dec := toml.NewDecoder(strings.NewReader(string(data)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return nil, &ValidationError{Path: "config", Message: strict.String(), Code: ErrCodeUnknownSetting}
		}
		return nil, fmt.Errorf("decoding settings: %w", err)
	}
	return &cfg, nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	add := func(path, msg string, value any, code ValidationErrorCode) {
		errs = append(errs, &ValidationError{Path: path, Message: msg, Value: value, Code: code})
	}

	if _, ok := parseLevel(c.Log.Level); !ok {
		add("log.level", "must be debug, info, warn or error", c.Log.Level, ErrCodeInvalidEnum)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		add("log.format", "must be text or json", c.Log.Format, ErrCodeInvalidEnum)
	}
	if c.Engine.ProviderTimeout < 0 {
		add("engine.providerTimeout", "must not be negative", c.Engine.ProviderTimeout.Std(), ErrCodeOutOfRange)
	}
	if c.Engine.MaxConcurrency < 0 {
		add("engine.maxConcurrency", "must not be negative", c.Engine.MaxConcurrency, ErrCodeOutOfRange)
	}
	if c.Cache.Enabled && c.Cache.MaxEntries <= 0 {
		add("cache.maxEntries", "must be positive when the cache is enabled", c.Cache.MaxEntries, ErrCodeOutOfRange)
	}
	if c.Cache.TTL < 0 {
		add("cache.ttl", "must not be negative", c.Cache.TTL.Std(), ErrCodeOutOfRange)
	}
	if c.Plugins.Debounce < 0 {
		add("plugins.debounce", "must not be negative", c.Plugins.Debounce.Std(), ErrCodeOutOfRange)
	}
	if c.Plugins.Timeout < 0 {
		add("plugins.timeout", "must not be negative", c.Plugins.Timeout.Std(), ErrCodeOutOfRange)
	}

	seen := make(map[string]bool)
	for i, s := range c.Servers {
		prefix := fmt.Sprintf("servers[%d]", i)
		switch {
		case s.Name == "":
			add(prefix+".name", "is required", s.Name, ErrCodeRequiredMissing)
		case seen[s.Name]:
			add(prefix+".name", "is not unique", s.Name, ErrCodeInvalidEnum)
		}
		seen[s.Name] = true
		if s.Command == "" {
			add(prefix+".command", "is required", s.Command, ErrCodeRequiredMissing)
		}
		if s.Selector.IsZero() {
			add(prefix+".selector", "must set scheme, language or pattern", s.Selector, ErrCodeRequiredMissing)
		}
		if _, err := s.Kinds(); err != nil {
			add(prefix+".features", err.Error(), s.Features, ErrCodeInvalidEnum)
		}
	}

	return errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	}
	return slog.LevelInfo, false
}

// NewLogger creates the logger described by the configuration.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, _ := parseLevel(c.Level)
	opts := &slog.HandlerOptions{Level: level, AddSource: level == slog.LevelDebug}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// EngineOptions converts the engine and cache settings into engine
// options. The returned cache, if any, must be closed by the caller.
func (c *Config) EngineOptions(logger *slog.Logger) ([]feature.Option, *feature.CompletionCache, error) {
	opts := []feature.Option{
		feature.WithLogger(logger),
		feature.WithProviderTimeout(c.Engine.ProviderTimeout.Std()),
		feature.WithMaxConcurrency(c.Engine.MaxConcurrency),
	}
	if !c.Cache.Enabled {
		return opts, nil, nil
	}
	cache, err := feature.NewCompletionCache(c.Cache.MaxEntries, c.Cache.TTL.Std())
	if err != nil {
		return nil, nil, err
	}
	return append(opts, feature.WithCompletionCache(cache)), cache, nil
}

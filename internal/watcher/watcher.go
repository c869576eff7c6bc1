// Package watcher reports changes to plugin and configuration files.
//
// A Watcher turns fsnotify notifications into Events for the files it
// cares about. Debounced wraps a Watcher so that a burst of writes to one
// file, as produced by most editors on save, arrives as a single Event.
package watcher

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

// Common errors returned by watcher operations.
var (
	ErrWatcherClosed   = errors.New("watcher is closed")
	ErrAlreadyWatching = errors.New("path is already being watched")
	ErrNotWatching     = errors.New("path is not being watched")
	ErrPathNotExist    = errors.New("path does not exist")
)

// Op is a set of file system operations.
type Op uint32

const (
	OpCreate Op = 1 << iota
	OpWrite
	OpRemove
	OpRename
	OpChmod
)

var opNames = []struct {
	op   Op
	name string
}{
	{OpCreate, "CREATE"},
	{OpWrite, "WRITE"},
	{OpRemove, "REMOVE"},
	{OpRename, "RENAME"},
	{OpChmod, "CHMOD"},
}

// String returns the operations joined by "|".
func (op Op) String() string {
	var parts []string
	for _, n := range opNames {
		if op.Has(n.op) {
			parts = append(parts, n.name)
		}
	}
	if len(parts) == 0 {
		return "NONE"
	}
	return strings.Join(parts, "|")
}

// Has reports whether op includes o.
func (op Op) Has(o Op) bool {
	return op&o == o
}

// Event is a change to one file.
type Event struct {
	// Path is the absolute path of the affected file.
	Path string
	// Op holds every operation seen for Path since the last Event.
	Op Op
	// Timestamp is when the last operation was seen.
	Timestamp time.Time
}

// Watcher monitors file system changes.
type Watcher interface {
	// Watch watches a directory and its subdirectories, or a single file.
	Watch(path string) error

	// Unwatch stops watching a path previously passed to Watch.
	Unwatch(path string) error

	// Events returns the event channel. It is closed by Close.
	Events() <-chan Event

	// Errors returns the error channel. It is closed by Close.
	Errors() <-chan error

	// Close stops the watcher.
	Close() error
}

// Config configures a watcher.
type Config struct {
	// Extensions limits events to files with one of these extensions,
	// including the dot. Empty means every file.
	Extensions []string

	// IgnoreHidden drops events for dot files and skips dot directories.
	IgnoreHidden bool

	// BufferSize is the capacity of the event channel.
	BufferSize int
}

// DefaultConfig returns the default watcher configuration.
func DefaultConfig() Config {
	return Config{
		IgnoreHidden: true,
		BufferSize:   64,
	}
}

// Option configures a watcher.
type Option func(*Config)

// WithExtensions limits events to the given file extensions.
func WithExtensions(exts ...string) Option {
	return func(c *Config) {
		c.Extensions = append(c.Extensions, exts...)
	}
}

// WithHidden includes dot files.
func WithHidden() Option {
	return func(c *Config) {
		c.IgnoreHidden = false
	}
}

// WithBufferSize sets the event channel capacity.
func WithBufferSize(n int) Option {
	return func(c *Config) {
		c.BufferSize = n
	}
}

func (c Config) wants(path string) bool {
	if c.IgnoreHidden && hidden(path) {
		return false
	}
	if len(c.Extensions) == 0 {
		return true
	}
	return slices.Contains(c.Extensions, filepath.Ext(path))
}

func hidden(path string) bool {
	base := filepath.Base(path)
	return len(base) > 1 && base[0] == '.'
}

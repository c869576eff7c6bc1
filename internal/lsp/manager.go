package lsp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/featurehost/internal/feature"
)

// DefaultStartConcurrency limits how many servers start at once.
const DefaultStartConcurrency = 4

// Manager coordinates the configured language servers of one engine.
type Manager struct {
	mu      sync.RWMutex
	engine  *feature.Engine
	logger  *slog.Logger
	servers map[string]*Server
	order   []string
}

// NewManager creates a manager that attaches servers to engine.
func NewManager(engine *feature.Engine, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		engine:  engine,
		logger:  logger,
		servers: make(map[string]*Server),
	}
}

// Start starts every server concurrently and attaches those that come up.
// Servers that fail are reported in the joined error; the others keep
// running.
func (m *Manager) Start(ctx context.Context, configs ...ServerConfig) error {
	errs := make([]error, len(configs))

	var g errgroup.Group
	g.SetLimit(DefaultStartConcurrency)
	for i, cfg := range configs {
		g.Go(func() error {
			errs[i] = m.start(ctx, cfg)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

func (m *Manager) start(ctx context.Context, cfg ServerConfig) error {
	m.mu.Lock()
	if _, exists := m.servers[cfg.Name]; exists {
		m.mu.Unlock()
		return &ServerError{Name: cfg.Name, Err: ErrAlreadyStarted}
	}
	server := NewServer(cfg, m.logger)
	m.servers[cfg.Name] = server
	m.order = append(m.order, cfg.Name)
	m.mu.Unlock()

	if err := server.Start(ctx); err != nil {
		m.remove(cfg.Name)
		m.logger.Error("language server failed to start", "server", cfg.Name, "error", err)
		return err
	}
	if err := server.Attach(m.engine); err != nil {
		_ = server.Stop(ctx)
		m.remove(cfg.Name)
		return err
	}
	return nil
}

func (m *Manager) remove(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.servers, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Get returns a running server by name.
func (m *Manager) Get(name string) (*Server, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	server, ok := m.servers[name]
	return server, ok
}

// Servers returns the running servers in start order.
func (m *Manager) Servers() []*Server {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Server, 0, len(m.order))
	for _, name := range m.order {
		result = append(result, m.servers[name])
	}
	return result
}

// Stop shuts one server down and removes its providers.
func (m *Manager) Stop(ctx context.Context, name string) error {
	server, ok := m.Get(name)
	if !ok {
		return &ServerError{Name: name, Err: ErrNotStarted}
	}
	m.remove(name)
	if err := server.Stop(ctx); err != nil {
		return fmt.Errorf("stop %s: %w", name, err)
	}
	return nil
}

// Close stops every server.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.RLock()
	names := append([]string(nil), m.order...)
	m.mu.RUnlock()

	var errs []error
	for _, name := range names {
		if err := m.Stop(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

package lsp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dshills/featurehost/internal/feature"
)

// ServerStatus indicates the current state of a server.
type ServerStatus int

const (
	ServerStatusStopped ServerStatus = iota
	ServerStatusStarting
	ServerStatusReady
	ServerStatusShuttingDown
	ServerStatusError
)

// String returns a human-readable status name.
func (s ServerStatus) String() string {
	switch s {
	case ServerStatusStopped:
		return "stopped"
	case ServerStatusStarting:
		return "starting"
	case ServerStatusReady:
		return "ready"
	case ServerStatusShuttingDown:
		return "shutting down"
	case ServerStatusError:
		return "error"
	default:
		return "unknown"
	}
}

// DefaultStartTimeout bounds the initialize handshake.
const DefaultStartTimeout = 30 * time.Second

// ServerConfig defines how to start a language server and what to
// register for it.
type ServerConfig struct {
	// Name identifies the server in registration ids and logs.
	Name string

	// Command is the executable to run.
	Command string

	// Args are command-line arguments.
	Args []string

	// Env are additional environment variables.
	Env map[string]string

	// WorkDir is the working directory of the process.
	WorkDir string

	// RootURI is sent as the workspace root.
	RootURI string

	// Selector chooses the documents the server's providers apply to.
	Selector feature.Selector

	// Kinds restricts the registered kinds. Empty means all advertised.
	Kinds []feature.Kind

	// InitializationOptions are sent during initialize.
	InitializationOptions any

	// StartTimeout bounds the initialize handshake (default: 30s).
	StartTimeout time.Duration
}

// Server runs one language server process and registers its providers.
type Server struct {
	mu sync.Mutex

	config ServerConfig
	logger *slog.Logger

	cmd    *exec.Cmd
	client *Client
	regs   *Registrations

	status atomic.Int32
	exitCh chan error
}

// NewServer creates a new server instance (not yet started).
func NewServer(config ServerConfig, logger *slog.Logger) *Server {
	if config.StartTimeout == 0 {
		config.StartTimeout = DefaultStartTimeout
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Server{
		config: config,
		logger: logger.With("server", config.Name),
		exitCh: make(chan error, 1),
	}
	s.status.Store(int32(ServerStatusStopped))
	return s
}

// Name returns the configured server name.
func (s *Server) Name() string {
	return s.config.Name
}

// Status returns the current server status.
func (s *Server) Status() ServerStatus {
	return ServerStatus(s.status.Load())
}

// Client returns the connection to the server, or nil before Start.
func (s *Server) Client() *Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.client
}

// Start launches the process and performs the initialize handshake.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() != ServerStatusStopped {
		return ErrAlreadyStarted
	}
	s.status.Store(int32(ServerStatusStarting))

	rwc, err := s.startProcess()
	if err != nil {
		s.status.Store(int32(ServerStatusError))
		return &ServerError{Name: s.config.Name, Err: err}
	}

	s.client = NewClient(context.Background(), rwc, WithLogger(s.logger))
	go s.monitorProcess()

	initCtx, cancel := context.WithTimeout(ctx, s.config.StartTimeout)
	defer cancel()

	_, err = s.client.Initialize(initCtx, InitializeParams{
		RootURI: s.config.RootURI,
		Options: s.config.InitializationOptions,
	})
	if err != nil {
		s.status.Store(int32(ServerStatusError))
		s.stopProcess()
		return &ServerError{Name: s.config.Name, Err: err}
	}

	s.status.Store(int32(ServerStatusReady))
	s.logger.Info("language server started", "command", s.config.Command)
	return nil
}

// Attach registers the server's providers and commands with engine.
func (s *Server) Attach(engine *feature.Engine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Status() != ServerStatusReady {
		return ErrNotStarted
	}
	if s.regs != nil {
		return ErrAlreadyStarted
	}

	regs, err := NewProvider(s.config.Name, s.client).Register(engine, s.config.Selector, s.config.Kinds...)
	if err != nil {
		return &ServerError{Name: s.config.Name, Err: err}
	}
	s.regs = regs
	s.logger.Debug("language server attached", "providers", len(regs.Providers), "commands", len(regs.Commands))
	return nil
}

// Stop removes the registrations, shuts the server down and waits for the
// process to exit, killing it when ctx ends first.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.Status() {
	case ServerStatusStopped:
		return nil
	case ServerStatusError:
		s.stopProcess()
		s.status.Store(int32(ServerStatusStopped))
		return nil
	}
	s.status.Store(int32(ServerStatusShuttingDown))

	s.regs.Dispose()
	s.regs = nil

	var err error
	if s.client != nil {
		err = s.client.Shutdown(ctx)
	}

	select {
	case <-s.exitCh:
	case <-ctx.Done():
		s.stopProcess()
	}

	s.status.Store(int32(ServerStatusStopped))
	return err
}

// stdio joins the process pipes into one stream.
type stdio struct {
	io.ReadCloser
	io.WriteCloser
}

// Close closes both pipes. Pipes already closed by Wait are not an error.
func (p stdio) Close() error {
	var errs []error
	for _, c := range []io.Closer{p.WriteCloser, p.ReadCloser} {
		if err := c.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// startProcess starts the language server executable.
func (s *Server) startProcess() (io.ReadWriteCloser, error) {
	if s.config.Command == "" {
		return nil, errors.New("no command configured")
	}
	cmd := exec.Command(s.config.Command, s.config.Args...)

	cmd.Env = os.Environ()
	for k, v := range s.config.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Dir = s.config.WorkDir

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		stdin.Close()
		stdout.Close()
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		stderr.Close()
		return nil, fmt.Errorf("start process: %w", err)
	}

	s.cmd = cmd
	go s.logStderr(stderr)
	return stdio{ReadCloser: stdout, WriteCloser: stdin}, nil
}

// logStderr forwards the server's stderr to the logger line by line.
func (s *Server) logStderr(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		s.logger.Debug(scanner.Text(), "source", "stderr")
	}
}

// monitorProcess waits for the process and drops the registrations when it
// exits without being asked to.
func (s *Server) monitorProcess() {
	err := s.cmd.Wait()

	if status := s.Status(); status == ServerStatusReady || status == ServerStatusStarting {
		s.status.Store(int32(ServerStatusError))
		s.logger.Warn("language server exited", "error", errors.Join(ErrServerCrashed, err))
		s.mu.Lock()
		s.regs.Dispose()
		s.regs = nil
		s.mu.Unlock()
		if s.client != nil {
			_ = s.client.Close()
		}
	}

	select {
	case s.exitCh <- err:
	default:
	}
}

// stopProcess closes the connection and kills the process.
func (s *Server) stopProcess() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
	}
}

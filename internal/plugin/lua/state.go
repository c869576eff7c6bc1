package lua

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// Default limits for a State.
const (
	DefaultExecutionTimeout = 5 * time.Second
	DefaultCallStackSize    = 256
)

// State is a sandboxed Lua interpreter.
//
// gopher-lua's LState is not goroutine-safe. State serializes every
// operation with a mutex, so one plugin runs one call at a time.
type State struct {
	L *lua.LState

	mu     sync.Mutex
	closed bool

	executionTimeout time.Duration
	logger           *slog.Logger
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout bounds every DoFile, DoString and Call. Zero means
// only the caller's context applies.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		s.executionTimeout = d
	}
}

// WithLogger receives the output of print.
func WithLogger(l *slog.Logger) StateOption {
	return func(s *State) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewState creates a sandboxed Lua state.
func NewState(opts ...StateOption) (*State, error) {
	s := &State{
		executionTimeout: DefaultExecutionTimeout,
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{
		SkipOpenLibs:  true,
		CallStackSize: DefaultCallStackSize,
	})
	openSafeLibraries(L)
	sandbox(L, s.logger)

	s.L = L
	return s, nil
}

// openSafeLibraries opens the libraries that cannot reach outside the
// interpreter.
func openSafeLibraries(L *lua.LState) {
	for _, open := range []lua.LGFunction{lua.OpenBase, lua.OpenTable, lua.OpenString, lua.OpenMath} {
		L.Push(L.NewFunction(open))
		L.Call(0, 0)
	}
}

// DoFile executes a Lua file.
func (s *State) DoFile(ctx context.Context, path string) error {
	return s.run(ctx, func() error {
		return s.L.DoFile(path)
	})
}

// DoString executes a chunk of Lua source.
func (s *State) DoString(ctx context.Context, code string) error {
	return s.run(ctx, func() error {
		return s.L.DoString(code)
	})
}

// HasFunction reports whether name is a global function.
func (s *State) HasFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// Call calls the global function name with args converted by ToLuaValue
// and returns its first result converted by ToGoValue.
func (s *State) Call(ctx context.Context, name string, args ...any) (any, error) {
	var result any
	err := s.run(ctx, func() error {
		fn := s.L.GetGlobal(name)
		if fn.Type() != lua.LTFunction {
			return fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
		}
		var err error
		result, err = s.call(fn, args)
		return err
	})
	return result, err
}

// CallFunction calls fn, which must belong to this state.
func (s *State) CallFunction(ctx context.Context, fn *lua.LFunction, args ...any) (any, error) {
	var result any
	err := s.run(ctx, func() error {
		var err error
		result, err = s.call(fn, args)
		return err
	})
	return result, err
}

// call runs fn with the lock held.
func (s *State) call(fn lua.LValue, args []any) (any, error) {
	top := s.L.GetTop()
	s.L.Push(fn)
	for _, arg := range args {
		s.L.Push(ToLuaValue(s.L, arg))
	}
	if err := s.L.PCall(len(args), 1, nil); err != nil {
		s.L.SetTop(top)
		return nil, err
	}
	result := ToGoValue(s.L.Get(-1))
	s.L.SetTop(top)
	return result, nil
}

// SetGlobal sets a global variable to v converted by ToLuaValue.
func (s *State) SetGlobal(name string, v any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, ToLuaValue(s.L, v))
}

// GetGlobal returns a global variable converted by ToGoValue.
func (s *State) GetGlobal(name string) any {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	return ToGoValue(s.L.GetGlobal(name))
}

// RegisterModule installs a global table of Go functions.
func (s *State) RegisterModule(name string, funcs map[string]lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.L.SetGlobal(name, s.L.SetFuncs(s.L.NewTable(), funcs))
}

// IsClosed reports whether Close has been called.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the interpreter. Later calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

// run executes fn with the lock held and the interpreter bound to ctx
// plus the execution timeout.
func (s *State) run(ctx context.Context, fn func() error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	callCtx := ctx
	if s.executionTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.executionTimeout)
		defer cancel()
	}
	s.L.SetContext(callCtx)
	defer s.L.RemoveContext()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
		if err == nil {
			return
		}
		switch {
		case ctx.Err() != nil:
			err = ctx.Err()
		case errors.Is(callCtx.Err(), context.DeadlineExceeded):
			err = fmt.Errorf("%w after %s", ErrExecutionTimeout, s.executionTimeout)
		}
	}()
	return fn()
}

package plugin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/featurehost/internal/feature"
	plua "github.com/dshills/featurehost/internal/plugin/lua"
)

// ModuleName is the global table through which scripts reach the host.
const ModuleName = "featurehost"

// Host runs one plugin and serves its providers.
//
// Host implements every provider interface of the feature package by
// calling the matching Lua function (see providerFunctions). It is
// registered once per kind the plugin serves.
type Host struct {
	mu sync.RWMutex

	manifest *Manifest
	logger   *slog.Logger
	timeout  time.Duration

	state       *plua.State
	pluginState State
	err         error

	kinds []feature.Kind

	cmdMu    sync.Mutex
	commands []scriptCommand

	registrations []*feature.Registration
	commandRegs   []*feature.CommandRegistration
}

// scriptCommand is a command a script registered during load.
type scriptCommand struct {
	id    string
	title string
	fn    *lua.LFunction
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostLogger sets the logger for script output and host events.
func WithHostLogger(l *slog.Logger) HostOption {
	return func(h *Host) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithHostExecutionTimeout bounds every script call.
func WithHostExecutionTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		h.timeout = d
	}
}

// NewHost creates a host for manifest.
func NewHost(manifest *Manifest, opts ...HostOption) (*Host, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}

	h := &Host{
		manifest:    manifest,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		timeout:     plua.DefaultExecutionTimeout,
		pluginState: StateUnloaded,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.With("plugin", manifest.Name)
	return h, nil
}

// Name returns the plugin name.
func (h *Host) Name() string {
	return h.manifest.Name
}

// Manifest returns the plugin manifest.
func (h *Host) Manifest() *Manifest {
	return h.manifest
}

// State returns the current plugin state.
func (h *Host) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pluginState
}

// Error returns the error that put the plugin in StateError.
func (h *Host) Error() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Kinds returns the feature kinds the plugin serves.
func (h *Host) Kinds() []feature.Kind {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]feature.Kind(nil), h.kinds...)
}

// Load runs the plugin's main file, calls setup(config) when defined and
// works out the kinds it serves.
func (h *Host) Load(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState != StateUnloaded {
		return ErrAlreadyLoaded
	}

	if err := h.load(ctx); err != nil {
		if h.state != nil {
			h.state.Close()
			h.state = nil
		}
		h.cmdMu.Lock()
		h.commands = nil
		h.cmdMu.Unlock()
		h.pluginState = StateError
		h.err = err
		return err
	}

	h.pluginState = StateLoaded
	h.err = nil
	return nil
}

func (h *Host) load(ctx context.Context) error {
	state, err := plua.NewState(
		plua.WithExecutionTimeout(h.timeout),
		plua.WithLogger(h.logger),
	)
	if err != nil {
		return err
	}
	h.state = state
	h.state.RegisterModule(ModuleName, h.module())

	if err := h.state.DoFile(ctx, h.manifest.MainPath()); err != nil {
		return fmt.Errorf("failed to load plugin: %w", err)
	}

	if h.state.HasFunction("setup") {
		if _, err := h.state.Call(ctx, "setup", h.manifest.Config); err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}
	}

	declared, err := h.manifest.Kinds()
	if err != nil {
		return err
	}
	if len(declared) == 0 {
		for _, k := range feature.Kinds() {
			if h.state.HasFunction(providerFunctions[k]) {
				declared = append(declared, k)
			}
		}
	}
	for _, k := range declared {
		if !h.state.HasFunction(providerFunctions[k]) {
			return fmt.Errorf("%w: %s needs %s", ErrMissingProvider, k, providerFunctions[k])
		}
	}
	h.kinds = declared
	return nil
}

// Activate registers the plugin's providers and commands with engine.
func (h *Host) Activate(engine *feature.Engine) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState != StateLoaded {
		return ErrNotLoaded
	}

	for _, k := range h.kinds {
		opts := []feature.RegisterOption{
			feature.WithRegistrationID(h.manifest.Name + "/" + k.String()),
		}
		if triggers := h.manifest.Triggers(k); len(triggers) > 0 {
			opts = append(opts, feature.WithTriggerCharacters(triggers...))
		}
		reg, err := engine.Registry().Register(k, h.manifest.Selector, h, opts...)
		if err != nil {
			h.deactivate()
			return err
		}
		h.registrations = append(h.registrations, reg)
	}

	h.cmdMu.Lock()
	for _, cmd := range h.commands {
		h.commandRegs = append(h.commandRegs, engine.Commands().Register(cmd.id, cmd.title, h.commandHandler(cmd.fn)))
	}
	h.cmdMu.Unlock()

	h.pluginState = StateActive
	h.logger.Debug("plugin activated", "kinds", len(h.registrations), "commands", len(h.commandRegs))
	return nil
}

// Deactivate disposes the plugin's registrations.
func (h *Host) Deactivate() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState == StateActive {
		h.deactivate()
		h.pluginState = StateLoaded
	}
}

func (h *Host) deactivate() {
	for _, reg := range h.registrations {
		reg.Dispose()
	}
	for _, reg := range h.commandRegs {
		reg.Dispose()
	}
	h.registrations = nil
	h.commandRegs = nil
}

// Unload disposes the registrations, calls teardown() when defined and
// closes the Lua state.
func (h *Host) Unload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState == StateUnloaded {
		return nil
	}

	h.deactivate()

	var err error
	if h.state != nil {
		if h.state.HasFunction("teardown") {
			_, err = h.state.Call(ctx, "teardown")
		}
		h.state.Close()
		h.state = nil
	}

	h.kinds = nil
	h.cmdMu.Lock()
	h.commands = nil
	h.cmdMu.Unlock()
	h.pluginState = StateUnloaded
	h.err = nil
	return err
}

// call invokes a global script function.
func (h *Host) call(ctx context.Context, fn string, args ...any) (any, error) {
	h.mu.RLock()
	state := h.state
	h.mu.RUnlock()

	if state == nil {
		return nil, ErrNotLoaded
	}
	return state.Call(ctx, fn, args...)
}

// has reports whether the script defines fn.
func (h *Host) has(fn string) bool {
	h.mu.RLock()
	state := h.state
	h.mu.RUnlock()

	return state != nil && state.HasFunction(fn)
}

func (h *Host) commandHandler(fn *lua.LFunction) feature.CommandHandler {
	return func(ctx context.Context, args ...any) (any, error) {
		h.mu.RLock()
		state := h.state
		h.mu.RUnlock()

		if state == nil {
			return nil, ErrNotLoaded
		}
		return state.CallFunction(ctx, fn, args...)
	}
}

// module returns the functions of the featurehost table. Commands
// registered after Activate take effect on the next reload.
func (h *Host) module() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"position": func(L *lua.LState) int {
			L.Push(position(L, L.CheckInt(1), L.CheckInt(2)))
			return 1
		},
		"range": func(L *lua.LState) int {
			rng := L.NewTable()
			rng.RawSetString("start", position(L, L.CheckInt(1), L.CheckInt(2)))
			rng.RawSetString("end", position(L, L.CheckInt(3), L.CheckInt(4)))
			L.Push(rng)
			return 1
		},
		"location": func(L *lua.LState) int {
			loc := L.NewTable()
			loc.RawSetString("uri", lua.LString(L.CheckString(1)))
			loc.RawSetString("range", L.CheckTable(2))
			L.Push(loc)
			return 1
		},
		"log": func(L *lua.LState) int {
			level := slog.LevelInfo
			if err := level.UnmarshalText([]byte(L.OptString(2, "info"))); err != nil {
				level = slog.LevelInfo
			}
			h.logger.Log(context.Background(), level, L.CheckString(1), "source", "lua")
			return 0
		},
		"register_command": func(L *lua.LState) int {
			cmd := scriptCommand{
				id:    L.CheckString(1),
				title: L.CheckString(2),
				fn:    L.CheckFunction(3),
			}
			h.cmdMu.Lock()
			h.commands = append(h.commands, cmd)
			h.cmdMu.Unlock()
			return 0
		},
	}
}

func position(L *lua.LState, line, character int) *lua.LTable {
	pos := L.NewTable()
	pos.RawSetString("line", lua.LNumber(line))
	pos.RawSetString("character", lua.LNumber(character))
	return pos
}

// documentValue is the script view of a document. lines[i+1] holds
// document line i.
type documentValue struct {
	doc feature.Document
}

// LuaValue implements plua.Valuer.
func (d documentValue) LuaValue(L *lua.LState) lua.LValue {
	t := L.NewTable()
	t.RawSetString("uri", lua.LString(d.doc.URI()))
	t.RawSetString("languageId", lua.LString(d.doc.LanguageID()))
	t.RawSetString("version", lua.LNumber(d.doc.Version()))
	t.RawSetString("text", lua.LString(feature.DocumentText(d.doc)))

	n := d.doc.LineCount()
	lines := L.CreateTable(n, 0)
	for i := 0; i < n; i++ {
		lines.RawSetInt(i+1, lua.LString(d.doc.LineAt(i)))
	}
	t.RawSetString("lines", lines)
	return t
}

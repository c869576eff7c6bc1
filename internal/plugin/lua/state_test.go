package lua

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	glua "github.com/yuin/gopher-lua"
)

func newTestState(t *testing.T, opts ...StateOption) *State {
	t.Helper()
	state, err := NewState(opts...)
	if err != nil {
		t.Fatalf("NewState() error = %v", err)
	}
	t.Cleanup(func() { state.Close() })
	return state
}

func TestStateDoStringAndCall(t *testing.T) {
	state := newTestState(t)
	ctx := context.Background()

	err := state.DoString(ctx, `
function add(a, b) return a + b end
function describe(p) return { line = p.line, label = "at " .. p.line } end
`)
	if err != nil {
		t.Fatalf("DoString() error = %v", err)
	}

	got, err := state.Call(ctx, "add", 2, 3)
	if err != nil {
		t.Fatalf("Call(add) error = %v", err)
	}
	if got != int64(5) {
		t.Errorf("add(2, 3) = %v (%T), want 5", got, got)
	}

	got, err = state.Call(ctx, "describe", map[string]any{"line": 4})
	if err != nil {
		t.Fatalf("Call(describe) error = %v", err)
	}
	want := map[string]any{"line": int64(4), "label": "at 4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("describe() = %v, want %v", got, want)
	}

	if !state.HasFunction("add") || state.HasFunction("missing") {
		t.Error("HasFunction reported wrong results")
	}
}

func TestStateCallErrors(t *testing.T) {
	state := newTestState(t)
	ctx := context.Background()

	if _, err := state.Call(ctx, "missing"); !errors.Is(err, ErrFunctionNotFound) {
		t.Errorf("Call(missing) error = %v, want ErrFunctionNotFound", err)
	}

	if err := state.DoString(ctx, `function boom() error("exploded") end`); err != nil {
		t.Fatal(err)
	}
	_, err := state.Call(ctx, "boom")
	if err == nil || !strings.Contains(err.Error(), "exploded") {
		t.Errorf("Call(boom) error = %v", err)
	}

	// The stack is restored after a failing call.
	if err := state.DoString(ctx, `function one() return 1 end`); err != nil {
		t.Fatal(err)
	}
	if got, err := state.Call(ctx, "one"); err != nil || got != int64(1) {
		t.Errorf("Call(one) = %v, %v", got, err)
	}
}

func TestStateExecutionTimeout(t *testing.T) {
	state := newTestState(t, WithExecutionTimeout(50*time.Millisecond))
	ctx := context.Background()

	if err := state.DoString(ctx, `function spin() while true do end end`); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	_, err := state.Call(ctx, "spin")
	if !errors.Is(err, ErrExecutionTimeout) {
		t.Fatalf("Call(spin) error = %v, want ErrExecutionTimeout", err)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("Timeout was not enforced promptly")
	}

	// The state stays usable.
	if err := state.DoString(ctx, `x = 1`); err != nil {
		t.Errorf("DoString after timeout error = %v", err)
	}
}

func TestStateCallerCancellation(t *testing.T) {
	state := newTestState(t, WithExecutionTimeout(0))
	if err := state.DoString(context.Background(), `function spin() while true do end end`); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	if _, err := state.Call(ctx, "spin"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Call(spin) error = %v, want context.DeadlineExceeded", err)
	}
}

func TestStateDoFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "init.lua")
	if err := os.WriteFile(path, []byte(`greeting = "hello"`), 0o644); err != nil {
		t.Fatal(err)
	}

	state := newTestState(t)
	if err := state.DoFile(context.Background(), path); err != nil {
		t.Fatalf("DoFile() error = %v", err)
	}
	if got := state.GetGlobal("greeting"); got != "hello" {
		t.Errorf("greeting = %v, want hello", got)
	}
}

func TestStateClosed(t *testing.T) {
	state, err := NewState()
	if err != nil {
		t.Fatal(err)
	}
	if err := state.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := state.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
	if !state.IsClosed() {
		t.Error("IsClosed() = false after Close")
	}
	if _, err := state.Call(context.Background(), "x"); !errors.Is(err, ErrStateClosed) {
		t.Errorf("Call on closed state error = %v", err)
	}
}

func TestSandbox(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	state := newTestState(t, WithLogger(logger))
	ctx := context.Background()

	for _, name := range []string{"io", "os", "debug", "package", "dofile", "loadstring", "require"} {
		if got := state.GetGlobal(name); got != nil {
			t.Errorf("%s should not be available, got %v", name, got)
		}
	}
	for _, name := range []string{"string", "table", "math"} {
		if state.GetGlobal(name) == nil {
			t.Errorf("%s should be available", name)
		}
	}
	if !state.HasFunction("pairs") {
		t.Error("pairs should be available")
	}

	if err := state.DoString(ctx, `print("from", "plugin")`); err != nil {
		t.Fatalf("print error = %v", err)
	}
	if !strings.Contains(buf.String(), "from\\tplugin") && !strings.Contains(buf.String(), "from\tplugin") {
		t.Errorf("print output not logged: %q", buf.String())
	}
}

func TestStateRegisterModule(t *testing.T) {
	state := newTestState(t)
	ctx := context.Background()

	state.RegisterModule("host", map[string]glua.LGFunction{
		"double": func(L *glua.LState) int {
			L.Push(glua.LNumber(L.CheckNumber(1) * 2))
			return 1
		},
	})
	if err := state.DoString(ctx, `function run() return host.double(21) end`); err != nil {
		t.Fatal(err)
	}
	if got, err := state.Call(ctx, "run"); err != nil || got != int64(42) {
		t.Errorf("run() = %v, %v; want 42", got, err)
	}
}

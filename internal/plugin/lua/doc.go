// Package lua runs plugin scripts with gopher-lua.
//
// A State is a sandboxed interpreter: io, os, debug and package are never
// opened, and dofile, loadfile, load, loadstring and require are removed.
// Every call runs under a context, so a runaway script is stopped by the
// execution timeout or by the caller's cancellation.
//
//	state, err := lua.NewState(lua.WithExecutionTimeout(time.Second))
//	if err != nil {
//	    return err
//	}
//	defer state.Close()
//
//	if err := state.DoFile("init.lua"); err != nil {
//	    return err
//	}
//	result, err := state.Call(ctx, "provide_hover", doc, pos)
//
// # Values
//
// Arguments are converted with ToLuaValue: scalars, slices and maps map
// directly, values implementing Valuer build their own representation, and
// anything else goes through its JSON encoding. Results come back through
// ToGoValue, which turns sequences into []any and other tables into
// map[string]any.
package lua

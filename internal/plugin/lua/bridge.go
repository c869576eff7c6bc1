package lua

import (
	"encoding/json"
	"math"
	"sort"
	"strconv"

	"github.com/tidwall/gjson"
	lua "github.com/yuin/gopher-lua"
)

// Valuer builds its own Lua representation.
type Valuer interface {
	LuaValue(L *lua.LState) lua.LValue
}

// ToGoValue converts a Lua value to a Go value. Sequences become []any,
// other tables map[string]any, integral numbers int64. Functions and
// cycles become nil.
func ToGoValue(lv lua.LValue) any {
	return toGo(lv, make(map[*lua.LTable]bool))
}

func toGo(lv lua.LValue, visiting map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visiting[v] {
			return nil
		}
		visiting[v] = true
		defer delete(visiting, v)
		return tableToGo(v, visiting)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

func tableToGo(t *lua.LTable, visiting map[*lua.LTable]bool) any {
	if n := t.Len(); n > 0 && sequenceLength(t) == n {
		arr := make([]any, n)
		for i := 1; i <= n; i++ {
			arr[i-1] = toGo(t.RawGetInt(i), visiting)
		}
		return arr
	}

	m := make(map[string]any)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = strconv.FormatFloat(float64(kv), 'f', -1, 64)
		default:
			return
		}
		m[key] = toGo(v, visiting)
	})
	return m
}

// sequenceLength returns the number of keys of t when they are exactly
// 1..n, and -1 otherwise.
func sequenceLength(t *lua.LTable) int {
	count := 0
	sequence := true
	t.ForEach(func(k, _ lua.LValue) {
		count++
		n, ok := k.(lua.LNumber)
		if !ok || float64(n) != math.Trunc(float64(n)) || n < 1 {
			sequence = false
		}
	})
	if !sequence {
		return -1
	}
	return count
}

// ToLuaValue converts a Go value to a Lua value.
func ToLuaValue(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case Valuer:
		return val.LuaValue(L)
	case bool:
		return lua.LBool(val)
	case int:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case []string:
		t := L.CreateTable(len(val), 0)
		for i, s := range val {
			t.RawSetInt(i+1, lua.LString(s))
		}
		return t
	case []any:
		t := L.CreateTable(len(val), 0)
		for i, item := range val {
			t.RawSetInt(i+1, ToLuaValue(L, item))
		}
		return t
	case map[string]any:
		t := L.CreateTable(0, len(val))
		for _, k := range sortedKeys(val) {
			t.RawSetString(k, ToLuaValue(L, val[k]))
		}
		return t
	default:
		data, err := json.Marshal(val)
		if err != nil {
			return lua.LNil
		}
		return FromJSON(L, data)
	}
}

// FromJSON converts JSON text to a Lua value.
func FromJSON(L *lua.LState, data []byte) lua.LValue {
	if !gjson.ValidBytes(data) {
		return lua.LNil
	}
	return fromGJSON(L, gjson.ParseBytes(data))
}

func fromGJSON(L *lua.LState, r gjson.Result) lua.LValue {
	switch {
	case r.IsArray():
		items := r.Array()
		t := L.CreateTable(len(items), 0)
		for i, item := range items {
			t.RawSetInt(i+1, fromGJSON(L, item))
		}
		return t
	case r.IsObject():
		t := L.NewTable()
		r.ForEach(func(k, v gjson.Result) bool {
			t.RawSetString(k.String(), fromGJSON(L, v))
			return true
		})
		return t
	}

	switch r.Type {
	case gjson.True:
		return lua.LTrue
	case gjson.False:
		return lua.LFalse
	case gjson.Number:
		return lua.LNumber(r.Float())
	case gjson.String:
		return lua.LString(r.Str)
	default:
		return lua.LNil
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

package lua

import (
	"reflect"
	"testing"

	glua "github.com/yuin/gopher-lua"
)

type point struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

type custom struct{}

func (custom) LuaValue(L *glua.LState) glua.LValue { return glua.LString("custom") }

func TestToGoValue(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	seq := L.NewTable()
	seq.RawSetInt(1, glua.LString("a"))
	seq.RawSetInt(2, glua.LString("b"))

	mixed := L.NewTable()
	mixed.RawSetInt(1, glua.LString("a"))
	mixed.RawSetString("n", glua.LNumber(1.5))

	cyclic := L.NewTable()
	cyclic.RawSetString("self", cyclic)

	tests := []struct {
		name  string
		input glua.LValue
		want  any
	}{
		{"nil", glua.LNil, nil},
		{"bool", glua.LTrue, true},
		{"integer", glua.LNumber(42), int64(42)},
		{"float", glua.LNumber(3.25), 3.25},
		{"string", glua.LString("hi"), "hi"},
		{"sequence", seq, []any{"a", "b"}},
		{"mixed", mixed, map[string]any{"1": "a", "n": 1.5}},
		{"empty", L.NewTable(), map[string]any{}},
		{"cycle", cyclic, map[string]any{"self": nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToGoValue(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ToGoValue() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestToLuaValue(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	tests := []struct {
		name  string
		input any
		want  any
	}{
		{"nil", nil, nil},
		{"int", 7, int64(7)},
		{"strings", []string{"x", "y"}, []any{"x", "y"}},
		{"map", map[string]any{"k": []any{true}}, map[string]any{"k": []any{true}}},
		{"struct via json", point{Line: 2, Character: 5}, map[string]any{"line": int64(2), "character": int64(5)}},
		{"valuer", custom{}, "custom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ToGoValue(ToLuaValue(L, tt.input)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("round trip = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestFromJSON(t *testing.T) {
	L := glua.NewState()
	defer L.Close()

	got := ToGoValue(FromJSON(L, []byte(`{"items":[{"label":"x"}],"incomplete":false}`)))
	want := map[string]any{
		"items":      []any{map[string]any{"label": "x"}},
		"incomplete": false,
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("FromJSON() = %#v, want %#v", got, want)
	}

	if got := FromJSON(L, []byte(`{bad`)); got != glua.LNil {
		t.Errorf("FromJSON(invalid) = %v, want nil", got)
	}
}

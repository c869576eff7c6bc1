package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/featurehost/internal/config"
	"github.com/dshills/featurehost/internal/feature"
)

func writeSource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDocuments_Versions(t *testing.T) {
	path := writeSource(t, "main.go", "package main\n")
	docs := newDocuments()

	first, err := docs.open(path, "")
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if first.LanguageID() != "go" || first.Version() != 1 {
		t.Errorf("First open: got %s v%d, want go v1", first.LanguageID(), first.Version())
	}
	if !strings.HasPrefix(first.URI(), "file://") {
		t.Errorf("URI: got %q", first.URI())
	}

	again, _ := docs.open(path, "")
	if again.Version() != 1 {
		t.Errorf("Unchanged file: got v%d, want v1", again.Version())
	}

	if err := os.WriteFile(path, []byte("package main\n\nfunc main() {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	changed, _ := docs.open(path, "")
	if changed.Version() != 2 || changed.LineCount() != 4 {
		t.Errorf("Changed file: got v%d with %d lines, want v2 with 4", changed.Version(), changed.LineCount())
	}

	if _, err := docs.open(filepath.Join(t.TempDir(), "missing.go"), ""); err == nil {
		t.Error("Expected an error for a missing file")
	}
}

func TestLanguageFor(t *testing.T) {
	tests := map[string]string{
		"main.go":        "go",
		"init.LUA":       "lua",
		"README.md":      "markdown",
		"config.yml":     "yaml",
		"Makefile":       "plaintext",
		"archive.tar.gz": "plaintext",
	}
	for path, want := range tests {
		if got := languageFor(path); got != want {
			t.Errorf("languageFor(%q): got %q, want %q", path, got, want)
		}
	}
}

func TestCheckQuery(t *testing.T) {
	tests := []struct {
		name string
		q    query
		ok   bool
	}{
		{"hover", query{Feature: "hover", File: "a.go"}, true},
		{"missing feature", query{File: "a.go"}, false},
		{"unknown feature", query{Feature: "telepathy", File: "a.go"}, false},
		{"missing file", query{Feature: "definition"}, false},
		{"workspace symbols without file", query{Feature: "workspaceSymbol", Query: "x"}, true},
		{"rename without name", query{Feature: "rename", File: "a.go"}, false},
		{"rename", query{Feature: "rename", File: "a.go", NewName: "b"}, true},
		{"on-type without trigger", query{Feature: "onTypeFormatting", File: "a.go"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := checkQuery(tt.q); (err == nil) != tt.ok {
				t.Errorf("checkQuery: got %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func hoverEngine() *feature.Engine {
	e := feature.NewEngine()
	e.RegisterHoverProvider(feature.LanguageSelector("go"), feature.HoverFunc(
		func(ctx context.Context, doc feature.Document, pos feature.Position) (*feature.Hover, error) {
			return &feature.Hover{Contents: []feature.MarkupContent{{Kind: feature.PlainText, Value: doc.LineAt(pos.Line)}}}, nil
		}))
	return e
}

func TestAnswer(t *testing.T) {
	path := writeSource(t, "main.go", "package main\nfunc main() {}\n")
	e := hoverEngine()
	docs := newDocuments()

	result, err := answer(context.Background(), e, docs, query{Feature: "hover", File: path, Pos: feature.Position{Line: 2, Character: 6}})
	if err != nil {
		t.Fatalf("answer failed: %v", err)
	}
	hovers, ok := result.([]feature.Hover)
	if !ok || len(hovers) != 1 || hovers[0].Contents[0].Value != "func main() {}" {
		t.Errorf("Hover: got %+v", result)
	}

	result, err = answer(context.Background(), e, docs, query{Feature: "definition", File: path})
	if err != nil {
		t.Fatalf("Definition without providers: got %v, want no error", err)
	}
	if locs, ok := result.([]feature.Location); !ok || len(locs) != 0 {
		t.Errorf("Definition without providers: got %+v, want no locations", result)
	}
}

func TestServeLines(t *testing.T) {
	path := writeSource(t, "main.go", "package main\n")
	in := strings.NewReader(strings.Join([]string{
		`{"feature": "hover", "file": ` + jsonString(path) + `, "position": {"line": 1, "character": 1}}`,
		``,
		`not json`,
		`{"feature": "hover", "file": "/nonexistent/x.go"}`,
	}, "\n"))
	var out bytes.Buffer

	if err := serveLines(context.Background(), hoverEngine(), newDocuments(), in, &out); err != nil {
		t.Fatalf("serveLines failed: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected 3 answers, got %d: %q", len(lines), out.String())
	}
	var first struct {
		Result []feature.Hover `json:"result"`
	}
	if err := json.Unmarshal([]byte(lines[0]), &first); err != nil || len(first.Result) != 1 {
		t.Errorf("First answer: got %s (%v)", lines[0], err)
	}
	for _, line := range lines[1:] {
		if !strings.Contains(line, `"error"`) {
			t.Errorf("Expected an error answer, got %s", line)
		}
	}
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestServerConfigs(t *testing.T) {
	cfg := config.Default()
	cfg.Servers = []config.ServerConfig{
		{Name: "gopls", Command: "gopls", Selector: feature.LanguageSelector("go"), Features: []string{"hover"}},
		{Name: "off", Command: "off", Selector: feature.AnyDocument(), Disabled: true},
	}

	got := serverConfigs(&cfg, config.LogConfig{}.NewLogger(&bytes.Buffer{}))
	if len(got) != 1 || got[0].Name != "gopls" {
		t.Fatalf("serverConfigs: got %+v", got)
	}
	if len(got[0].Kinds) != 1 || got[0].Kinds[0] != feature.KindHover {
		t.Errorf("Kinds: got %v", got[0].Kinds)
	}
	if got[0].InitializationOptions != nil {
		t.Errorf("InitializationOptions: got %v, want nil", got[0].InitializationOptions)
	}
}

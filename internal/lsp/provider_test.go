package lsp

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/dshills/featurehost/internal/feature"
)

const emojiURI = "file:///ws/emoji.go"

// emojiDoc has a character outside the BMP, so rune and UTF-16 columns
// differ after it.
func emojiDoc() *feature.TextDocument {
	return feature.NewTextDocument(emojiURI, "go", 1, "ab😀cd\nfmt.P")
}

// newProviderEngine registers a fake server with a fresh engine.
func newProviderEngine(t *testing.T, capabilities map[string]any, only ...feature.Kind) (*feature.Engine, *fakeServer, *Registrations) {
	t.Helper()
	c, f := newPair(t, capabilities)
	e := feature.NewEngine()
	regs, err := NewProvider("fake", c).Register(e, feature.LanguageSelector("go"), only...)
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	t.Cleanup(regs.Dispose)
	return e, f, regs
}

func TestProvider_Register(t *testing.T) {
	e, _, regs := newProviderEngine(t, map[string]any{
		"hoverProvider":          true,
		"definitionProvider":     map[string]any{},
		"referencesProvider":     false,
		"completionProvider":     map[string]any{"triggerCharacters": []string{"."}},
		"executeCommandProvider": map[string]any{"commands": []string{"fake.echo"}},
	})

	tests := []struct {
		kind feature.Kind
		want int
	}{
		{feature.KindHover, 1},
		{feature.KindDefinition, 1},
		{feature.KindCompletion, 1},
		{feature.KindReferences, 0},
		{feature.KindRename, 0},
	}
	for _, tt := range tests {
		if got := e.Registry().Len(tt.kind); got != tt.want {
			t.Errorf("Len(%v): got %d, want %d", tt.kind, got, tt.want)
		}
	}
	if id := e.Registry().All(feature.KindHover)[0].ID; id != "fake/hover" {
		t.Errorf("Registration id: got %q, want fake/hover", id)
	}
	if got := e.CompletionTriggerCharacters(emojiDoc()); len(got) != 1 || got[0] != "." {
		t.Errorf("Completion triggers: got %v", got)
	}
	if _, ok := e.Commands().Lookup("fake.echo"); !ok {
		t.Error("fake.echo should be in the command table")
	}

	regs.Dispose()
	if e.Registry().Len(feature.KindHover) != 0 {
		t.Error("Dispose should remove the providers")
	}
	if _, ok := e.Commands().Lookup("fake.echo"); ok {
		t.Error("Dispose should remove the commands")
	}
}

func TestProvider_RegisterOnly(t *testing.T) {
	e, _, _ := newProviderEngine(t, map[string]any{
		"hoverProvider":      true,
		"definitionProvider": true,
	}, feature.KindHover)

	if e.Registry().Len(feature.KindHover) != 1 || e.Registry().Len(feature.KindDefinition) != 0 {
		t.Errorf("Only hover should be registered: hover=%d definition=%d",
			e.Registry().Len(feature.KindHover), e.Registry().Len(feature.KindDefinition))
	}
}

func TestProvider_Hover(t *testing.T) {
	e, f, _ := newProviderEngine(t, map[string]any{"hoverProvider": true})

	var character atomic.Int64
	f.on("textDocument/hover", func(params gjson.Result) (any, error) {
		character.Store(params.Get("position.character").Int())
		return map[string]any{
			"contents": map[string]any{"kind": "markdown", "value": f.text(emojiURI)},
			"range":    map[string]any{
				"start": map[string]any{"line": 0, "character": 4},
				"end":   map[string]any{"line": 0, "character": 6},
			},
		}, nil
	})

	hovers, err := e.Hover(context.Background(), emojiDoc(), feature.Position{Line: 1, Character: 5})
	if err != nil {
		t.Fatalf("Hover failed: %v", err)
	}
	if len(hovers) != 1 {
		t.Fatalf("Expected 1 hover, got %d", len(hovers))
	}
	if got := character.Load(); got != 5 {
		t.Errorf("Wire character: got %d, want 5", got)
	}
	h := hovers[0]
	if h.Contents[0].Value != "ab😀cd\nfmt.P" {
		t.Errorf("Contents: got %q, want the synced text", h.Contents[0].Value)
	}
	want := feature.Range{Start: feature.Position{Line: 1, Character: 4}, End: feature.Position{Line: 1, Character: 6}}
	if *h.Range != want {
		t.Errorf("Range: got %+v, want %+v", *h.Range, want)
	}
}

func TestProvider_CompletionAndResolve(t *testing.T) {
	e, f, _ := newProviderEngine(t, map[string]any{
		"completionProvider": map[string]any{"triggerCharacters": []string{"."}, "resolveProvider": true},
	})

	f.on("textDocument/completion", func(params gjson.Result) (any, error) {
		if params.Get("context.triggerCharacter").String() != "." {
			return []any{}, nil
		}
		return map[string]any{
			"isIncomplete": false,
			"items":        []map[string]any{
				{"label": "Println", "kind": 3, "data": map[string]any{"id": 7}},
			},
		}, nil
	})
	f.on("completionItem/resolve", func(params gjson.Result) (any, error) {
		item := map[string]any{"label": params.Get("label").String()}
		if params.Get("data.id").Int() == 7 {
			item["detail"] = "func(a ...any) (n int, err error)"
		}
		return item, nil
	})

	res, err := e.Completion(context.Background(), emojiDoc(), feature.Position{Line: 2, Character: 5},
		feature.CompletionContext{TriggerKind: feature.CompletionTriggerCharacter, TriggerCharacter: "."})
	if err != nil {
		t.Fatalf("Completion failed: %v", err)
	}
	items := res.Items()
	if len(items) != 1 || items[0].Label != "Println" {
		t.Fatalf("Items: got %+v", items)
	}

	resolved, err := e.ResolveCompletionItem(context.Background(), items[0])
	if err != nil {
		t.Fatalf("ResolveCompletionItem failed: %v", err)
	}
	if resolved.Detail != "func(a ...any) (n int, err error)" {
		t.Errorf("Detail: got %q", resolved.Detail)
	}
}

func TestProvider_RenameWithoutPrepare(t *testing.T) {
	e, f, _ := newProviderEngine(t, map[string]any{"renameProvider": true})

	f.on("textDocument/rename", func(params gjson.Result) (any, error) {
		return map[string]any{
			"changes": map[string]any{
				emojiURI: []map[string]any{{
					"range": map[string]any{
						"start": map[string]any{"line": 0, "character": 4},
						"end":   map[string]any{"line": 0, "character": 5},
					},
					"newText": params.Get("newName").String(),
				}},
			},
		}, nil
	})

	ctx := context.Background()
	prep, err := e.PrepareRename(ctx, emojiDoc(), feature.Position{Line: 1, Character: 4})
	if err != nil || prep != nil {
		t.Errorf("PrepareRename: got %+v, %v; want nil, nil", prep, err)
	}

	edit, err := e.Rename(ctx, emojiDoc(), feature.Position{Line: 1, Character: 4}, "Z")
	if err != nil {
		t.Fatalf("Rename failed: %v", err)
	}
	edits := edit.Changes[emojiURI]
	if len(edits) != 1 || edits[0].NewText != "Z" {
		t.Fatalf("Edits: got %+v", edits)
	}
	want := feature.Range{Start: feature.Position{Line: 1, Character: 4}, End: feature.Position{Line: 1, Character: 5}}
	if edits[0].Range != want {
		t.Errorf("Range: got %+v, want %+v", edits[0].Range, want)
	}
}

func TestProvider_CodeLensResolve(t *testing.T) {
	e, f, _ := newProviderEngine(t, map[string]any{
		"codeLensProvider":       map[string]any{"resolveProvider": true},
		"executeCommandProvider": map[string]any{"commands": []string{"fake.run"}},
	})

	var sentCharacter, sentData atomic.Int64
	f.on("textDocument/codeLens", func(gjson.Result) (any, error) {
		return []map[string]any{{
			"range": map[string]any{
				"start": map[string]any{"line": 0, "character": 2},
				"end":   map[string]any{"line": 0, "character": 4},
			},
			"data": map[string]any{"n": 1},
		}}, nil
	})
	f.on("codeLens/resolve", func(params gjson.Result) (any, error) {
		sentCharacter.Store(params.Get("range.end.character").Int())
		sentData.Store(params.Get("data.n").Int())
		return map[string]any{
			"range":   params.Get("range").Value(),
			"command": map[string]any{"title": "run", "command": "fake.run"},
		}, nil
	})

	ctx := context.Background()
	lenses, err := e.CodeLenses(ctx, emojiDoc())
	if err != nil {
		t.Fatalf("CodeLenses failed: %v", err)
	}
	if len(lenses) != 1 {
		t.Fatalf("Expected 1 lens, got %d", len(lenses))
	}
	want := feature.Range{Start: feature.Position{Line: 1, Character: 3}, End: feature.Position{Line: 1, Character: 4}}
	if lenses[0].Range != want {
		t.Errorf("Range: got %+v, want %+v", lenses[0].Range, want)
	}

	resolved, err := e.ResolveCodeLens(ctx, lenses[0])
	if err != nil {
		t.Fatalf("ResolveCodeLens failed: %v", err)
	}
	if resolved.Command == nil || resolved.Command.Title != "run" {
		t.Fatalf("Command: got %+v", resolved.Command)
	}
	if resolved.Range != want {
		t.Errorf("Resolved range: got %+v, want %+v", resolved.Range, want)
	}
	if sentCharacter.Load() != 4 || sentData.Load() != 1 {
		t.Errorf("Resolve request: end character %d, data %d; want 4, 1", sentCharacter.Load(), sentData.Load())
	}
}

func TestProvider_ExecuteCommand(t *testing.T) {
	e, f, _ := newProviderEngine(t, map[string]any{
		"executeCommandProvider": map[string]any{"commands": []string{"fake.echo"}},
	})
	f.on("workspace/executeCommand", func(params gjson.Result) (any, error) {
		return params.Get("arguments.0").Value(), nil
	})

	got, err := e.ExecuteCommand(context.Background(), feature.Command{ID: "fake.echo", Arguments: []any{"hi"}})
	if err != nil {
		t.Fatalf("ExecuteCommand failed: %v", err)
	}
	if got != "hi" {
		t.Errorf("ExecuteCommand: got %v, want hi", got)
	}
}

func TestProvider_ServerErrorIsDropped(t *testing.T) {
	e, _, _ := newProviderEngine(t, map[string]any{"definitionProvider": true})

	// No handler is installed, so the server answers MethodNotFound.
	locs, err := e.Definition(context.Background(), emojiDoc(), feature.Position{Line: 1, Character: 1})
	if err != nil {
		t.Fatalf("Definition failed: %v", err)
	}
	if len(locs) != 0 {
		t.Errorf("Definition: got %v, want nothing", locs)
	}
}

package feature

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestRegistry_RegisterValidation(t *testing.T) {
	r := NewRegistry()
	hover := HoverFunc(func(ctx context.Context, doc Document, pos Position) (*Hover, error) { return nil, nil })

	tests := []struct {
		name     string
		kind     Kind
		sel      Selector
		provider any
		want     error
	}{
		{"invalid kind", Kind(99), AnyDocument(), hover, ErrInvalidKind},
		{"nil provider", KindHover, AnyDocument(), nil, ErrNilProvider},
		{"zero selector", KindHover, Selector{}, hover, ErrInvalidSelector},
		{"missing capability", KindCompletion, AnyDocument(), hover, ErrUnsupportedCapability},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := r.Register(tt.kind, tt.sel, tt.provider); !errors.Is(err, tt.want) {
				t.Errorf("Register: got %v, want %v", err, tt.want)
			}
		})
	}

	reg, err := r.Register(KindHover, AnyDocument(), hover, WithRegistrationID("hover-1"))
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if reg.ID != "hover-1" {
		t.Errorf("ID: got %q, want hover-1", reg.ID)
	}
}

func TestRegistry_DisposeIdempotent(t *testing.T) {
	r := NewRegistry()
	hover := HoverFunc(func(ctx context.Context, doc Document, pos Position) (*Hover, error) { return nil, nil })
	a, _ := r.Register(KindHover, AnyDocument(), hover)
	b, _ := r.Register(KindHover, AnyDocument(), hover)
	if a.Sequence() >= b.Sequence() {
		t.Errorf("Sequence: a=%d should be below b=%d", a.Sequence(), b.Sequence())
	}

	gen := r.Generation()
	snapshot := r.All(KindHover)
	a.Dispose()
	a.Dispose()

	if !a.Disposed() {
		t.Error("Disposed should report true")
	}
	if r.Len(KindHover) != 1 {
		t.Errorf("Len after dispose: got %d, want 1", r.Len(KindHover))
	}
	if len(snapshot) != 2 || snapshot[0] != a {
		t.Error("Earlier snapshot must not change")
	}
	if r.Generation() == gen {
		t.Error("Generation should change on dispose")
	}

	doc := testDoc()
	if list := r.List(KindHover, doc); len(list) != 1 || list[0] != b {
		t.Errorf("List: got %v", list)
	}
}

func TestRegistry_ConcurrentUse(t *testing.T) {
	e := NewEngine()
	doc := testDoc()
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			reg := e.RegisterDocumentSymbolProvider(AnyDocument(), symbolsOf("x"))
			reg.Dispose()
		}()
		go func() {
			defer wg.Done()
			if _, err := e.DocumentSymbols(context.Background(), doc); err != nil {
				t.Errorf("DocumentSymbols failed: %v", err)
			}
		}()
	}
	wg.Wait()
	if n := e.Registry().Len(KindDocumentSymbol); n != 0 {
		t.Errorf("Len after concurrent dispose: got %d, want 0", n)
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in   string
		want Kind
	}{
		{"documentSymbol", KindDocumentSymbol},
		{"document_symbol", KindDocumentSymbol},
		{"Document-Symbol", KindDocumentSymbol},
		{"symbols", KindDocumentSymbol},
		{"highlights", KindDocumentHighlight},
		{"formatting", KindDocumentFormatting},
		{"document_formatting", KindDocumentFormatting},
		{"on_type_formatting", KindOnTypeFormatting},
		{"completion", KindCompletion},
	}
	for _, tt := range tests {
		got, err := ParseKind(tt.in)
		if err != nil {
			t.Errorf("ParseKind(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseKind(%q): got %s, want %s", tt.in, got, tt.want)
		}
	}

	if _, err := ParseKind("telepathy"); !errors.Is(err, ErrInvalidKind) {
		t.Errorf("ParseKind(telepathy): got %v, want ErrInvalidKind", err)
	}
}

func TestKinds(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 14 {
		t.Fatalf("Kinds: got %d, want 14", len(kinds))
	}
	for _, k := range kinds {
		text, err := k.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%d) failed: %v", k, err)
		}
		var back Kind
		if err := back.UnmarshalText(text); err != nil || back != k {
			t.Errorf("Kind %s did not survive text encoding: got %s, %v", k, back, err)
		}
	}
	if Kind(0).Valid() || Kind(15).Valid() {
		t.Error("Out of range kinds should be invalid")
	}
}

func TestCommandTable(t *testing.T) {
	table := NewCommandTable()
	reg := table.Register("greet", "Greet", func(ctx context.Context, args ...any) (any, error) {
		return "hello " + args[0].(string), nil
	})

	out, err := table.Execute(context.Background(), "greet", "you")
	if err != nil || out != "hello you" {
		t.Errorf("Execute: got %v, %v", out, err)
	}
	if _, err := table.Execute(context.Background(), "nope"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Execute unknown: got %v", err)
	}

	if got := table.Normalize(&Command{ID: "greet", Title: "Say hi"}); got.Title != "Say hi" {
		t.Errorf("Normalize known: got %+v", got)
	}
	if got := table.Normalize(&Command{ID: "missing"}); got.Title != MissingCommandTitle {
		t.Errorf("Normalize missing: got %+v", got)
	}
	if table.Normalize(nil) != nil {
		t.Error("Normalize(nil) should be nil")
	}

	replacement := table.Register("greet", "Greet again", nil)
	reg.Dispose()
	if _, ok := table.Lookup("greet"); !ok {
		t.Error("Disposing a replaced registration must keep the replacement")
	}
	replacement.Dispose()
	replacement.Dispose()
	if ids := table.IDs(); len(ids) != 0 {
		t.Errorf("IDs after dispose: got %v", ids)
	}
}

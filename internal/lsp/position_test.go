package lsp

import (
	"testing"

	"github.com/dshills/featurehost/internal/feature"
)

func TestRuneToUTF16Offset(t *testing.T) {
	tests := []struct {
		s    string
		rune int
		want int
	}{
		{"hello", 0, 0},
		{"hello", 3, 3},
		{"hello", 9, 5},
		{"héllo", 2, 2},
		{"ab😀cd", 2, 2},
		{"ab😀cd", 3, 4},
		{"ab😀cd", 5, 6},
		{"", 4, 0},
	}
	for _, tt := range tests {
		if got := runeToUTF16Offset(tt.s, tt.rune); got != tt.want {
			t.Errorf("runeToUTF16Offset(%q, %d): got %d, want %d", tt.s, tt.rune, got, tt.want)
		}
	}
}

func TestUTF16ToRuneOffset(t *testing.T) {
	tests := []struct {
		s     string
		utf16 int
		want  int
	}{
		{"hello", 3, 3},
		{"ab😀cd", 2, 2},
		{"ab😀cd", 4, 3},
		{"ab😀cd", 3, 3},
		{"ab😀cd", 6, 5},
		{"ab😀cd", 60, 5},
		{"x", -1, 0},
	}
	for _, tt := range tests {
		if got := utf16ToRuneOffset(tt.s, tt.utf16); got != tt.want {
			t.Errorf("utf16ToRuneOffset(%q, %d): got %d, want %d", tt.s, tt.utf16, got, tt.want)
		}
	}
}

func TestColumns(t *testing.T) {
	doc := feature.NewTextDocument("file:///a.go", "go", 1, "x := \"😀\"\nfoo(😀, bar)")
	col := columns{doc}

	pos := feature.Position{Line: 1, Character: 6}
	wire := col.toWire(pos)
	if wire.Character != 7 {
		t.Errorf("toWire: got %d, want 7", wire.Character)
	}
	if back := col.fromWire(wire); back != pos {
		t.Errorf("fromWire: got %+v, want %+v", back, pos)
	}

	locs := col.locations([]feature.Location{
		{URI: "file:///a.go", Range: feature.Range{Start: feature.Position{Line: 1, Character: 7}, End: feature.Position{Line: 1, Character: 10}}},
		{URI: "file:///b.go", Range: feature.Range{Start: feature.Position{Line: 1, Character: 7}}},
	})
	if locs[0].Range.Start.Character != 6 || locs[0].Range.End.Character != 9 {
		t.Errorf("Same-document location: got %+v", locs[0].Range)
	}
	if locs[1].Range.Start.Character != 7 {
		t.Errorf("Other documents are left alone: got %+v", locs[1].Range)
	}
}

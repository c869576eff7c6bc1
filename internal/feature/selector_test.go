package feature

import "testing"

func TestScore(t *testing.T) {
	goDoc := NewTextDocument("file:///work/cmd/main.go", "go", 1, "")
	untitled := NewTextDocument("untitled:Untitled-1", "plaintext", 1, "")

	tests := []struct {
		name string
		sel  Selector
		doc  Document
		want int
	}{
		{"zero selector", Selector{}, goDoc, ScoreNone},
		{"wildcard", AnyDocument(), goDoc, ScoreWildcard},
		{"wildcard scheme", Selector{Scheme: "*"}, untitled, ScoreWildcard},
		{"scheme", SchemeSelector("file"), goDoc, ScoreScheme},
		{"scheme mismatch", SchemeSelector("file"), untitled, ScoreNone},
		{"untitled scheme", SchemeSelector("untitled"), untitled, ScoreScheme},
		{"language", LanguageSelector("go"), goDoc, ScoreLanguage},
		{"language mismatch", LanguageSelector("python"), goDoc, ScoreNone},
		{"base name pattern", PatternSelector("*.go"), goDoc, ScorePattern},
		{"double star pattern", PatternSelector("**/cmd/*.go"), goDoc, ScorePattern},
		{"anchored pattern", PatternSelector("/work/**"), goDoc, ScorePattern},
		{"pattern mismatch", PatternSelector("**/*_test.go"), goDoc, ScoreNone},
		{"scheme and language", Selector{Scheme: "file", Language: "go"}, goDoc, ScoreLanguage},
		{"all fields must match", Selector{Scheme: "untitled", Language: "go"}, goDoc, ScoreNone},
		{"nil document", AnyDocument(), nil, ScoreNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.sel, tt.doc); got != tt.want {
				t.Errorf("Score(%s): got %d, want %d", tt.sel, got, tt.want)
			}
		})
	}
}

func TestParseSelector(t *testing.T) {
	if got := ParseSelector(" * "); got != AnyDocument() {
		t.Errorf("ParseSelector(*): got %+v", got)
	}
	if got := ParseSelector("file"); got != SchemeSelector("file") {
		t.Errorf("ParseSelector(file): got %+v", got)
	}
}

func TestSelectorString(t *testing.T) {
	sel := Selector{Scheme: "file", Language: "go"}
	if got, want := sel.String(), "{scheme=file language=go}"; got != want {
		t.Errorf("String: got %q, want %q", got, want)
	}
	if got := (Selector{}).String(); got != "{}" {
		t.Errorf("Zero String: got %q", got)
	}
}
